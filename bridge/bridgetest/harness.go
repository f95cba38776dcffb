// Package bridgetest runs a bridge.Bridge against an in-memory managed
// runtime and records every callback the bridge delivers.
//
// A Harness defines the struct and callback classes the bridge expects in a
// fresh jvmtest.VM, installs that VM in its own attach.Manager and wires a
// Bridge to the Library under test. Callback methods decode their arguments
// back into Go values with the bridge's own converters and append an
// Invocation to the delivery log:
//
//	h := bridgetest.New(t, lib)
//	h.Bridge.GetAppID(h.Env, h.AppInfo(7, "a", key), h.Callback(bridge.CallbackIntClass))
//	lib.Fire()
//	calls := h.Invocations()
//
// AssertReleased checks the books afterwards: no live global references,
// no runtime misuse and no native allocations left behind.
package bridgetest

import (
	"fmt"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/safejni/attach"
	"github.com/opd-ai/safejni/bridge"
	"github.com/opd-ai/safejni/config"
	"github.com/opd-ai/safejni/convert"
	"github.com/opd-ai/safejni/jni"
	"github.com/opd-ai/safejni/jni/jvmtest"
	"github.com/opd-ai/safejni/native"
)

// Package is the class package of harness runtimes.
const Package = "net/maidsafe/"

// Result is a delivered FfiResult.
type Result struct {
	Null      bool
	Code      int32
	Error     string
	ErrorNull bool
}

// AppInfo is a delivered AppInfo.
type AppInfo struct {
	ID   int32
	Name string
	Key  native.Key
}

// Invocation is one delivered callback. Args holds the arguments after the
// result: int32, string (nil for null), []int32, native.Key (nil for null),
// []native.Key or AppInfo.
type Invocation struct {
	Class  string
	Thread int
	Result Result
	Args   []any
}

// Harness is a bridge wired to an in-memory runtime.
type Harness struct {
	VM       *jvmtest.VM
	Env      *jvmtest.Env
	Manager  *attach.Manager
	Registry *convert.Registry
	Bridge   *bridge.Bridge

	tb       testing.TB
	baseline int64

	mu     sync.Mutex
	log    []Invocation
	raise  map[string]bool
	notify chan struct{}
}

// New returns a harness for lib. The calling goroutine stays locked to its
// OS thread until the test ends, so Env remains its Execution Handle.
func New(tb testing.TB, lib bridge.Library) *Harness {
	tb.Helper()
	runtime.LockOSThread()
	tb.Cleanup(runtime.UnlockOSThread)

	cfg := config.Default()
	cfg.ClassPackage = Package
	h := &Harness{
		VM:       jvmtest.New(),
		Manager:  &attach.Manager{},
		Registry: convert.NewBindingsRegistry(Package),
		tb:       tb,
		baseline: native.Outstanding(),
		raise:    make(map[string]bool),
		notify:   make(chan struct{}, 1),
	}
	h.Bridge = bridge.New(lib, h.Registry, h.Manager, cfg)

	for _, s := range h.Registry.Schemas() {
		fields := make([]jvmtest.Field, len(s.Fields))
		for i, f := range s.Fields {
			fields[i] = jvmtest.Field{Name: f.Name, Sign: f.Sign}
		}
		h.VM.DefineClass(s.Class, fields...)
	}
	for _, c := range h.Bridge.Callbacks() {
		c := c
		h.VM.DefineCallback(c.Class, c.Method, c.Sign, func(env *jvmtest.Env, _ jni.Object, args []jni.Value) error {
			return h.record(env, c, args)
		})
	}

	_, err := h.Manager.Install(h.VM)
	require.NoError(tb, err)
	h.Env, err = h.VM.Attach()
	require.NoError(tb, err)
	return h
}

// Raise makes callbacks of class (relative to Package) raise an exception
// after recording their invocation.
func (h *Harness) Raise(class string) {
	h.mu.Lock()
	h.raise[Package+class] = true
	h.mu.Unlock()
}

func (h *Harness) record(env *jvmtest.Env, c bridge.Callback, args []jni.Value) error {
	params, _, err := jni.ParseFuncSign(c.Sign)
	if err != nil {
		return err
	}
	inv := Invocation{Class: c.Class, Thread: env.ThreadID()}
	for i, p := range params {
		v, err := h.decode(env, p, args[i])
		if err != nil {
			return fmt.Errorf("decode argument %d of %s: %w", i, c.Class, err)
		}
		if r, ok := v.(Result); ok && i == 0 {
			inv.Result = r
			continue
		}
		inv.Args = append(inv.Args, v)
	}

	h.mu.Lock()
	h.log = append(h.log, inv)
	raise := h.raise[c.Class]
	h.mu.Unlock()
	select {
	case h.notify <- struct{}{}:
	default:
	}

	if raise {
		return fmt.Errorf("%s raised", c.Class)
	}
	return nil
}

func (h *Harness) decode(env jni.Env, sign jni.Sign, v jni.Value) (any, error) {
	switch sign {
	case jni.IntSign:
		return v.Int(), nil
	case jni.StringSign:
		if v.Object() == jni.Null {
			return nil, nil
		}
		return env.GetString(v.Object())
	case jni.IntArraySign:
		return convert.Ints{}.FromManaged(env, v.Object())
	case jni.ClassSign(Package + convert.KeyClass):
		k, err := convert.Must[*native.Key, jni.Object](h.Registry).FromManaged(env, v.Object())
		if err != nil || k == nil {
			return nil, err
		}
		return *k, nil
	case jni.ArraySign(jni.ClassSign(Package + convert.KeyClass)):
		return convert.Must[[]native.Key, jni.Object](h.Registry).FromManaged(env, v.Object())
	case jni.ClassSign(Package + convert.AppInfoClass):
		info, err := convert.Must[native.AppInfo, jni.Object](h.Registry).FromManaged(env, v.Object())
		if err != nil {
			return nil, err
		}
		defer native.FreeString(info.Name)
		return AppInfo{ID: info.ID, Name: native.GoString(info.Name), Key: info.Key}, nil
	case jni.ClassSign(Package + convert.FfiResultClass):
		res, err := convert.Must[*native.FfiResult, jni.Object](h.Registry).FromManaged(env, v.Object())
		if err != nil {
			return nil, err
		}
		if res == nil {
			return Result{Null: true}, nil
		}
		defer native.FreeString(res.Error)
		return Result{Code: res.ErrorCode, Error: native.GoString(res.Error), ErrorNull: res.Error == nil}, nil
	}
	return nil, fmt.Errorf("unexpected argument type %s", sign)
}

// Invocations returns the delivery log.
func (h *Harness) Invocations() []Invocation {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Invocation(nil), h.log...)
}

// WaitInvocations waits until n callbacks have been delivered in total and
// returns the delivery log.
func (h *Harness) WaitInvocations(n int, timeout time.Duration) []Invocation {
	h.tb.Helper()
	deadline := time.After(timeout)
	for len(h.Invocations()) < n {
		select {
		case <-h.notify:
		case <-deadline:
			require.FailNowf(h.tb, "timed out", "%d of %d callbacks delivered", len(h.Invocations()), n)
		}
	}
	return h.Invocations()
}

// AppInfo returns a local reference to a managed AppInfo.
func (h *Harness) AppInfo(id int32, name string, key native.Key) jni.Object {
	h.tb.Helper()
	p := native.CString(name)
	defer native.FreeString(p)
	obj, err := convert.Must[native.AppInfo, jni.Object](h.Registry).ToManaged(h.Env, native.AppInfo{ID: id, Name: p, Key: key})
	require.NoError(h.tb, err)
	return obj
}

// Callback returns a local reference to a new instance of the callback
// class (relative to Package).
func (h *Harness) Callback(class string) jni.Object {
	h.tb.Helper()
	obj, err := h.Env.NewObject(Package+class, "()V")
	require.NoError(h.tb, err)
	return obj
}

// String returns a local reference to a managed string.
func (h *Harness) String(s string) jni.Object {
	h.tb.Helper()
	obj, err := h.Env.NewString(s)
	require.NoError(h.tb, err)
	return obj
}

// Value converts v to its managed form with the harness registry.
func Value[N any](h *Harness, v N) jni.Object {
	h.tb.Helper()
	obj, err := convert.Must[N, jni.Object](h.Registry).ToManaged(h.Env, v)
	require.NoError(h.tb, err)
	return obj
}

// AssertReleased checks that every global reference and native allocation
// made since New is gone and that the runtime saw no misuse.
func (h *Harness) AssertReleased() {
	h.tb.Helper()
	assert.Zero(h.tb, h.VM.GlobalRefs(), "live global references")
	assert.Empty(h.tb, h.VM.Violations())
	assert.Equal(h.tb, h.baseline, native.Outstanding(), "native allocations")
}
