// Package bridge connects managed callers to the asynchronous native
// library.
//
// Entry points run on managed threads. They marshal their arguments, pin
// each managed callback object with a global reference and hand the native
// library a context pointer: the leaked reference itself for operations
// with one callback, or a native cell with one slot per callback for
// operations with several. Trampolines run on whatever thread the library
// chooses. They attach that thread to the runtime, take their reference out
// of the context, marshal the results and invoke the callback's method.
//
// A reference is released by the trampoline that consumes it. A multi-shot
// context is released by the trampoline that empties its last slot.
package bridge

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/opd-ai/safejni/attach"
	"github.com/opd-ai/safejni/config"
	"github.com/opd-ai/safejni/convert"
	"github.com/opd-ai/safejni/jni"
	"github.com/opd-ai/safejni/native"
)

// IllegalArgumentException is thrown by entry points whose arguments cannot
// be marshaled, unless the runtime already raised something more specific.
const IllegalArgumentException = "java/lang/IllegalArgumentException"

var errNullString = errors.New("bridge: string argument is null")

// errWrongCallback reports a callback object that does not implement the
// callback class the operation reports to.
var errWrongCallback = errors.New("bridge: callback has the wrong class")

// Bridge binds one Library to the managed runtime.
type Bridge struct {
	lib    Library
	mgr    *attach.Manager
	pkg    string
	method string

	i32       convert.Converter[int32, int32]
	str       convert.Converter[*byte, jni.Object]
	owned     convert.Converter[convert.OwnedString, jni.Object]
	bytes     convert.Converter[[]byte, jni.Object]
	ints      convert.Converter[[]int32, jni.Object]
	key       convert.Converter[*native.Key, jni.Object]
	keys      convert.Converter[[]native.Key, jni.Object]
	appInfo   convert.Converter[*native.AppInfo, jni.Object]
	appInfoIn convert.Converter[native.AppInfo, jni.Object]
	result    convert.Converter[*native.FfiResult, jni.Object]
}

// New returns a bridge calling lib. A nil reg uses the bindings registry
// for cfg.ClassPackage, a nil mgr uses attach.Default.
func New(lib Library, reg *convert.Registry, mgr *attach.Manager, cfg config.Config) *Bridge {
	if reg == nil {
		reg = convert.NewBindingsRegistry(cfg.ClassPackage)
	}
	if mgr == nil {
		mgr = attach.Default
	}
	method := cfg.CallbackMethod
	if method == "" {
		method = config.DefaultCallbackMethod
	}
	return &Bridge{
		lib:    lib,
		mgr:    mgr,
		pkg:    cfg.ClassPackage,
		method: method,

		i32:       convert.Must[int32, int32](reg),
		str:       convert.Must[*byte, jni.Object](reg),
		owned:     convert.Must[convert.OwnedString, jni.Object](reg),
		bytes:     convert.Must[[]byte, jni.Object](reg),
		ints:      convert.Must[[]int32, jni.Object](reg),
		key:       convert.Must[*native.Key, jni.Object](reg),
		keys:      convert.Must[[]native.Key, jni.Object](reg),
		appInfo:   convert.Must[*native.AppInfo, jni.Object](reg),
		appInfoIn: convert.Must[native.AppInfo, jni.Object](reg),
		result:    convert.Must[*native.FfiResult, jni.Object](reg),
	}
}

// reject reports a marshaling failure to the managed caller. The runtime's
// own exception is kept if one is pending.
func (b *Bridge) reject(env jni.Env, log *logger, err error) {
	log.WithError(err, "marshal").Warn("Rejecting call with unmarshalable arguments")
	if !env.ExceptionCheck() {
		_ = env.ThrowNew(IllegalArgumentException, err.Error())
	}
}

// pin checks that cb is an instance of the callback class (relative to the
// class package) and promotes it to a GlobalRef.
func (b *Bridge) pin(env jni.Env, cb jni.Object, class string) (GlobalRef, error) {
	if cb == jni.Null {
		return GlobalRef{}, fmt.Errorf("bridge: callback: %w", jni.ErrNullReference)
	}
	ok, err := env.IsInstanceOf(cb, b.pkg+class)
	if err != nil {
		return GlobalRef{}, fmt.Errorf("bridge: callback: %w", err)
	}
	if !ok {
		return GlobalRef{}, fmt.Errorf("%w: want %s", errWrongCallback, b.pkg+class)
	}
	return NewGlobalRef(env, cb)
}

func (b *Bridge) single(env jni.Env, cb jni.Object, class string) (unsafe.Pointer, error) {
	ref, err := b.pin(env, cb, class)
	if err != nil {
		return nil, err
	}
	return newSingleContext(ref), nil
}

// startApp is the common shape of the entry points taking an AppInfo and a
// single callback. The AppInfo name is handed to the library.
func (b *Bridge) startApp(env jni.Env, function, class string, app, cb jni.Object, start func(info *native.AppInfo, ctx unsafe.Pointer)) {
	log := newLogger(function)
	info, err := b.appInfoIn.FromManaged(env, app)
	if err != nil {
		b.reject(env, log, err)
		return
	}
	ctx, err := b.single(env, cb, class)
	if err != nil {
		convert.Release(b.appInfoIn, info)
		b.reject(env, log, err)
		return
	}
	log.WithField("app_id", info.ID).Debug("Starting native operation")
	start(&info, ctx)
}

// RegisterApp starts register_app for app and reports to cb.call(FfiResult).
func (b *Bridge) RegisterApp(env jni.Env, app, cb jni.Object) {
	b.startApp(env, "RegisterApp", CallbackClass, app, cb, func(info *native.AppInfo, ctx unsafe.Pointer) {
		b.lib.RegisterApp(info, ctx, b.OnResult)
	})
}

// GetAppID reports app's id to cb.call(FfiResult, int).
func (b *Bridge) GetAppID(env jni.Env, app, cb jni.Object) {
	b.startApp(env, "GetAppID", CallbackIntClass, app, cb, func(info *native.AppInfo, ctx unsafe.Pointer) {
		b.lib.GetAppID(info, ctx, b.OnInt32)
	})
}

// GetAppName reports app's name to cb.call(FfiResult, String).
func (b *Bridge) GetAppName(env jni.Env, app, cb jni.Object) {
	b.startApp(env, "GetAppName", CallbackStringClass, app, cb, func(info *native.AppInfo, ctx unsafe.Pointer) {
		b.lib.GetAppName(info, ctx, b.OnString)
	})
}

// GetAppKey reports app's key to cb.call(FfiResult, Key).
func (b *Bridge) GetAppKey(env jni.Env, app, cb jni.Object) {
	b.startApp(env, "GetAppKey", CallbackKeyClass, app, cb, func(info *native.AppInfo, ctx unsafe.Pointer) {
		b.lib.GetAppKey(info, ctx, b.OnKey)
	})
}

// GetAppInfo reports app's fields to cb.call(FfiResult, int, String, Key).
func (b *Bridge) GetAppInfo(env jni.Env, app, cb jni.Object) {
	b.startApp(env, "GetAppInfo", CallbackIntStringKeyClass, app, cb, func(info *native.AppInfo, ctx unsafe.Pointer) {
		b.lib.GetAppInfo(info, ctx, b.OnInt32StringKey)
	})
}

// RandomNumbers reports a sequence of numbers to cb.call(FfiResult, int[]).
func (b *Bridge) RandomNumbers(env jni.Env, cb jni.Object) {
	log := newLogger("RandomNumbers")
	ctx, err := b.single(env, cb, CallbackArrayIntClass)
	if err != nil {
		b.reject(env, log, err)
		return
	}
	b.lib.RandomNumbers(ctx, b.OnInt32Array)
}

// RandomKeys reports a set of keys to cb.call(FfiResult, Key[]).
func (b *Bridge) RandomKeys(env jni.Env, cb jni.Object) {
	log := newLogger("RandomKeys")
	ctx, err := b.single(env, cb, CallbackArrayKeyClass)
	if err != nil {
		b.reject(env, log, err)
		return
	}
	b.lib.RandomKeys(ctx, b.OnKeyArray)
}

// VerifySignature checks data and reports to cb.call(FfiResult). data is
// lent to the library for the duration of the call.
func (b *Bridge) VerifySignature(env jni.Env, data, cb jni.Object) {
	log := newLogger("VerifySignature")
	buf, err := b.bytes.FromManaged(env, data)
	if err != nil {
		b.reject(env, log, err)
		return
	}
	ctx, err := b.single(env, cb, CallbackClass)
	if err != nil {
		b.reject(env, log, err)
		return
	}
	log.WithField("size", len(buf)).Debug("Starting native operation")
	b.lib.VerifySignature(buf, ctx, b.OnResult)
}

// VerifyKeys checks keys and reports to cb.call(FfiResult).
func (b *Bridge) VerifyKeys(env jni.Env, keys, cb jni.Object) {
	log := newLogger("VerifyKeys")
	ks, err := b.keys.FromManaged(env, keys)
	if err != nil {
		b.reject(env, log, err)
		return
	}
	ctx, err := b.single(env, cb, CallbackClass)
	if err != nil {
		b.reject(env, log, err)
		return
	}
	log.WithField("count", len(ks)).Debug("Starting native operation")
	b.lib.VerifyKeys(ks, ctx, b.OnResult)
}

func (b *Bridge) ownedString(env jni.Env, s jni.Object) (convert.OwnedString, error) {
	if s == jni.Null {
		return convert.OwnedString{}, errNullString
	}
	return b.owned.FromManaged(env, s)
}

// CreateAccount starts create_account. The library reports to
// connect.call(FfiResult, AppInfo) and to disconnect.call(FfiResult) in an
// order of its choosing; both share one context.
func (b *Bridge) CreateAccount(env jni.Env, locator, password, connect, disconnect jni.Object) {
	log := newLogger("CreateAccount")
	loc, err := b.ownedString(env, locator)
	if err != nil {
		b.reject(env, log, err)
		return
	}
	defer loc.Free()
	pwd, err := b.ownedString(env, password)
	if err != nil {
		b.reject(env, log, err)
		return
	}
	defer pwd.Free()

	onConnect, err := b.pin(env, connect, CallbackAppInfoClass)
	if err != nil {
		b.reject(env, log, err)
		return
	}
	onDisconnect, err := b.pin(env, disconnect, CallbackClass)
	if err != nil {
		onConnect.Release(env)
		b.reject(env, log, err)
		return
	}
	ctx := newMultiContext([]GlobalRef{onConnect, onDisconnect})
	log.WithField("slots", createAccountSlots).Debug("Starting native operation")
	b.lib.CreateAccount(loc.Ptr(), pwd.Ptr(), ctx, b.OnAccountConnect, b.OnAccountDisconnect)
}
