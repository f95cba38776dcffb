//go:build jni

// Package cjni implements jni.VM and jni.Env over the real Java Native
// Interface.
//
// Build with the jni tag and point CGO_CFLAGS at the JDK headers, for
// example -I$JAVA_HOME/include -I$JAVA_HOME/include/linux.
//
// Threads attached from native code resolve classes through the system
// class loader, which cannot see application classes. Classes the bridge
// names are therefore looked up once with Preload while the runtime is
// loading the library and kept as global references for the life of the
// process.
package cjni

// #include "shim.h"
import "C"

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/safejni/jni"
)

// VM wraps a JavaVM pointer.
type VM struct {
	vm *C.JavaVM

	mu      sync.RWMutex
	classes map[string]C.jclass
}

// NewVM wraps the JavaVM* handed to JNI_OnLoad.
func NewVM(vm unsafe.Pointer) *VM {
	return &VM{vm: (*C.JavaVM)(vm), classes: make(map[string]C.jclass)}
}

// AttachCurrentThreadAsDaemon implements jni.VM.
func (vm *VM) AttachCurrentThreadAsDaemon() (jni.Env, error) {
	var env *C.JNIEnv
	if rc := C.shim_attach(vm.vm, &env, C.jint(jni.MinVersion)); rc != C.JNI_OK {
		return nil, fmt.Errorf("cjni: AttachCurrentThreadAsDaemon returned %d", int(rc))
	}
	return &Env{env: env, vm: vm}, nil
}

// Env wraps a JNIEnv* received by a native method.
func (vm *VM) Env(env unsafe.Pointer) *Env {
	return &Env{env: (*C.JNIEnv)(env), vm: vm}
}

// Preload resolves every class in names with the class loader of the
// calling thread and caches a global reference to each. It reports every
// class that could not be found.
func (vm *VM) Preload(env *Env, names ...string) error {
	var errs *multierror.Error
	for _, name := range names {
		if _, ok := vm.cached(name); ok {
			continue
		}
		cls, err := env.findClass(name)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		global := C.jclass(C.shim_new_global_ref(env.env, C.jobject(cls)))
		C.shim_delete_local_ref(env.env, C.jobject(cls))
		if global == nil {
			errs = multierror.Append(errs, fmt.Errorf("class %s: %w", name, jni.ErrPendingException))
			continue
		}
		vm.mu.Lock()
		vm.classes[name] = global
		vm.mu.Unlock()
	}
	logrus.WithFields(logrus.Fields{
		"function": "Preload",
		"package":  "cjni",
		"classes":  len(names),
	}).Debug("Managed classes cached")
	return errs.ErrorOrNil()
}

func (vm *VM) cached(name string) (C.jclass, bool) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	cls, ok := vm.classes[name]
	return cls, ok
}

// NativeMethod binds a managed native method to a C function pointer.
type NativeMethod struct {
	Name string
	Sign jni.Sign
	Fn   unsafe.Pointer
}

// RegisterNatives binds methods to the managed class.
func (e *Env) RegisterNatives(class string, methods []NativeMethod) error {
	if len(methods) == 0 {
		return nil
	}
	cls, release, err := e.class(class)
	if err != nil {
		return err
	}
	defer release()

	size := C.size_t(len(methods)) * C.size_t(unsafe.Sizeof(C.JNINativeMethod{}))
	table := unsafe.Slice((*C.JNINativeMethod)(C.malloc(size)), len(methods))
	defer C.free(unsafe.Pointer(&table[0]))
	for i, m := range methods {
		table[i].name = C.CString(m.Name)
		table[i].signature = C.CString(string(m.Sign))
		table[i].fnPtr = m.Fn
	}
	defer func() {
		for i := range table {
			C.free(unsafe.Pointer(table[i].name))
			C.free(unsafe.Pointer(table[i].signature))
		}
	}()
	if C.shim_register_natives(e.env, cls, &table[0], C.jint(len(methods))) != 0 {
		return fmt.Errorf("cjni: register natives on %s: %w", class, e.pending())
	}
	return nil
}
