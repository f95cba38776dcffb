// Package attach owns the process-wide Runtime Handle and hands out
// per-thread Execution Handles.
//
// The handle is installed once, when the host runtime loads the library,
// and is read without locking afterwards. Threads that reach the bridge from
// native code are attached as daemons on first use and stay attached for
// the rest of their life, so attaching never keeps the runtime from shutting
// down and repeated attaches cost a lookup in the runtime.
package attach

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"github.com/opd-ai/safejni/jni"
)

var (
	// ErrNotInstalled is returned when no Runtime Handle has been installed.
	ErrNotInstalled = errors.New("attach: runtime not installed")

	// ErrAlreadyInstalled is returned by a second Install.
	ErrAlreadyInstalled = errors.New("attach: runtime already installed")
)

type handle struct {
	vm jni.VM
}

// Manager is a write-once slot for a Runtime Handle.
type Manager struct {
	slot atomic.Pointer[handle]
}

// Default is the manager used by the shared library's load entry point.
var Default = &Manager{}

// Install records vm and returns the minimum interface version the bridge
// needs. Only the first call takes effect; later calls keep the installed
// handle and return ErrAlreadyInstalled.
func (m *Manager) Install(vm jni.VM) (jni.Version, error) {
	if vm == nil {
		return 0, fmt.Errorf("attach: install: %w", jni.ErrNullReference)
	}
	if !m.slot.CompareAndSwap(nil, &handle{vm: vm}) {
		logrus.WithFields(logrus.Fields{
			"function": "Install",
			"package":  "attach",
		}).Warn("Runtime handle installed twice; keeping the first")
		return jni.MinVersion, ErrAlreadyInstalled
	}
	logrus.WithFields(logrus.Fields{
		"function": "Install",
		"package":  "attach",
		"version":  fmt.Sprintf("%#x", int32(jni.MinVersion)),
	}).Debug("Runtime handle installed")
	return jni.MinVersion, nil
}

// Installed reports whether a Runtime Handle is present.
func (m *Manager) Installed() bool { return m.slot.Load() != nil }

// VM returns the installed Runtime Handle.
func (m *Manager) VM() (jni.VM, error) {
	h := m.slot.Load()
	if h == nil {
		return nil, ErrNotInstalled
	}
	return h.vm, nil
}

// Env attaches the calling OS thread as a daemon if needed and returns its
// Execution Handle. The caller must keep its goroutine on the same OS
// thread for as long as it uses the result; cgo callbacks always do.
func (m *Manager) Env() (jni.Env, error) {
	vm, err := m.VM()
	if err != nil {
		return nil, err
	}
	env, err := vm.AttachCurrentThreadAsDaemon()
	if err != nil {
		return nil, fmt.Errorf("attach: attach current thread: %w", err)
	}
	return env, nil
}

// MustEnv is Env for callers with no way to report failure, such as
// callbacks invoked by the native library. It panics if attaching fails.
func (m *Manager) MustEnv() jni.Env {
	env, err := m.Env()
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "MustEnv",
			"package":  "attach",
			"error":    err.Error(),
		}).Error("Cannot attach native thread to the managed runtime")
		panic(err)
	}
	return env
}
