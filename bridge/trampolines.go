package bridge

import (
	"unsafe"

	"github.com/opd-ai/safejni/convert"
	"github.com/opd-ai/safejni/jni"
	"github.com/opd-ai/safejni/native"
)

// Slots of the create_account context.
const (
	slotConnect = iota
	slotDisconnect
	createAccountSlots
)

// arg marshals one callback argument and reports its managed type.
type arg func(env jni.Env) (jni.Value, jni.Sign, error)

func argOf[N, M any](c convert.Converter[N, M], v N) arg {
	return func(env jni.Env) (jni.Value, jni.Sign, error) {
		val, err := convert.Wrap(env, c, v)
		return val, c.Sign(), err
	}
}

func single(ctx unsafe.Pointer) func() (GlobalRef, error) {
	return func() (GlobalRef, error) { return takeSingle(ctx), nil }
}

func slot(ctx unsafe.Pointer, i int) func() (GlobalRef, error) {
	return func() (GlobalRef, error) { return takeSlot(ctx, i) }
}

// deliver runs one callback: attach, take the reference, marshal args in a
// fresh local frame and call the callback method with the descriptor of
// the marshaled types. An exception raised by the callback goes to the
// thread's uncaught-exception handler. Every other failure is fatal.
func (b *Bridge) deliver(function string, take func() (GlobalRef, error), args ...arg) {
	log := newLogger(function)
	env := b.mgr.MustEnv()
	cb, err := take()
	if err != nil {
		log.Fatal("Cannot decode callback context", err)
	}
	defer cb.Release(env)

	if err := env.PushLocalFrame(len(args) + 1); err != nil {
		log.Fatal("Cannot open local frame", err)
	}
	defer env.PopLocalFrame()

	vals := make([]jni.Value, len(args))
	signs := make([]jni.Sign, len(args))
	for i, a := range args {
		vals[i], signs[i], err = a(env)
		if err != nil {
			log.WithField("arg", i).Fatal("Cannot marshal callback argument", err)
		}
	}
	sig := jni.FuncSign(signs, jni.VoidSign)
	if err := env.CallVoidMethod(cb.Object(), b.method, sig, vals...); err != nil {
		if env.DispatchUncaughtException() {
			log.WithError(err, "call").Warn("Callback raised; passed to the uncaught exception handler")
			return
		}
		log.Fatal("Cannot invoke callback", err)
	}
	log.WithField("sign", string(sig)).Debug("Callback delivered")
}

// OnResult is the ResultFunc of single-callback operations.
func (b *Bridge) OnResult(userData unsafe.Pointer, result *native.FfiResult) {
	b.deliver("OnResult", single(userData), argOf(b.result, result))
}

// OnInt32 is the Int32Func of get_app_id.
func (b *Bridge) OnInt32(userData unsafe.Pointer, result *native.FfiResult, v int32) {
	b.deliver("OnInt32", single(userData), argOf(b.result, result), argOf(b.i32, v))
}

// OnString is the StringFunc of get_app_name.
func (b *Bridge) OnString(userData unsafe.Pointer, result *native.FfiResult, s *byte) {
	b.deliver("OnString", single(userData), argOf(b.result, result), argOf(b.str, s))
}

// OnKey is the KeyFunc of get_app_key.
func (b *Bridge) OnKey(userData unsafe.Pointer, result *native.FfiResult, key *native.Key) {
	b.deliver("OnKey", single(userData), argOf(b.result, result), argOf(b.key, key))
}

// OnInt32Array is the Int32ArrayFunc of random_numbers.
func (b *Bridge) OnInt32Array(userData unsafe.Pointer, result *native.FfiResult, v []int32) {
	b.deliver("OnInt32Array", single(userData), argOf(b.result, result), argOf(b.ints, v))
}

// OnKeyArray is the KeyArrayFunc of random_keys.
func (b *Bridge) OnKeyArray(userData unsafe.Pointer, result *native.FfiResult, keys []native.Key) {
	b.deliver("OnKeyArray", single(userData), argOf(b.result, result), argOf(b.keys, keys))
}

// OnInt32StringKey is the Int32StringKeyFunc of get_app_info.
func (b *Bridge) OnInt32StringKey(userData unsafe.Pointer, result *native.FfiResult, id int32, name *byte, key *native.Key) {
	b.deliver("OnInt32StringKey", single(userData),
		argOf(b.result, result), argOf(b.i32, id), argOf(b.str, name), argOf(b.key, key))
}

// OnAccountConnect is the connect callback of create_account.
func (b *Bridge) OnAccountConnect(userData unsafe.Pointer, result *native.FfiResult, info *native.AppInfo) {
	b.deliver("OnAccountConnect", slot(userData, slotConnect), argOf(b.result, result), argOf(b.appInfo, info))
}

// OnAccountDisconnect is the disconnect callback of create_account.
func (b *Bridge) OnAccountDisconnect(userData unsafe.Pointer, result *native.FfiResult) {
	b.deliver("OnAccountDisconnect", slot(userData, slotDisconnect), argOf(b.result, result))
}
