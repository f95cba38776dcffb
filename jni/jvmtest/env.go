package jvmtest

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/opd-ai/safejni/jni"
)

var errStale = errors.New("jvmtest: stale or foreign reference")

// Env is the per-thread execution handle of a VM. All state is guarded by
// the VM's mutex, so an Env shared across goroutines stays consistent even
// though a real runtime would forbid it.
type Env struct {
	vm      *VM
	tid     int
	frames  [][]*ref
	pending *object
}

var _ jni.Env = (*Env)(nil)
var _ jni.VM = (*VM)(nil)

// ThreadID returns the OS thread the Env was attached for.
func (e *Env) ThreadID() int { return e.tid }

// LocalRefs returns the number of live local references owned by e.
func (e *Env) LocalRefs() int {
	e.vm.mu.Lock()
	defer e.vm.mu.Unlock()
	n := 0
	for _, frame := range e.frames {
		for _, r := range frame {
			if _, ok := e.vm.refs[r]; ok {
				n++
			}
		}
	}
	return n
}

// Frames returns the depth of the local frame stack, 1 when no frame has
// been pushed.
func (e *Env) Frames() int {
	e.vm.mu.Lock()
	defer e.vm.mu.Unlock()
	return len(e.frames)
}

// Exception returns "class: message" of the pending exception, or "".
func (e *Env) Exception() string {
	e.vm.mu.Lock()
	defer e.vm.mu.Unlock()
	return describe(e.pending)
}

func describe(ex *object) string {
	if ex == nil {
		return ""
	}
	msg := ""
	if c, ok := ex.fields["message"]; ok && c.o != nil {
		msg = c.o.str
	}
	return ex.class.Name + ": " + msg
}

// The helpers below expect e.vm.mu to be held.

func (e *Env) check(op string) {
	if e.pending != nil {
		e.vm.violate("%s called with exception pending (%s)", op, describe(e.pending))
	}
}

func (e *Env) local(o *object) jni.Object {
	if o == nil {
		return jni.Null
	}
	r := &ref{obj: o, env: e}
	e.vm.refs[r] = struct{}{}
	top := len(e.frames) - 1
	e.frames[top] = append(e.frames[top], r)
	return jni.Object(unsafe.Pointer(r))
}

func (e *Env) deref(o jni.Object, op string) (*object, error) {
	if o == nil {
		return nil, nil
	}
	r, ok := e.vm.lookup(o)
	if !ok {
		e.vm.violate("%s: %v", op, errStale)
		return nil, fmt.Errorf("%s: %w", op, errStale)
	}
	if !r.global && r.env != e {
		e.vm.violate("%s: local reference used on another thread", op)
	}
	return r.obj, nil
}

func (e *Env) throw(class, msg string) error {
	c, ok := e.vm.class(class)
	if !ok {
		c, _ = e.vm.class(RuntimeExceptionClass)
	}
	ex := e.vm.newObject(c)
	ex.fields["message"] = cell{o: &object{sign: jni.StringSign, str: msg}}
	e.pending = ex
	return fmt.Errorf("%w: %s: %s", jni.ErrPendingException, class, msg)
}

func (e *Env) nonNull(o jni.Object, op string) (*object, error) {
	obj, err := e.deref(o, op)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, e.throw(NullPointerExceptionClass, op)
	}
	return obj, nil
}

// NewObject implements jni.Env. Only zero-argument constructors exist.
func (e *Env) NewObject(class string, sig jni.Sign, args ...jni.Value) (jni.Object, error) {
	e.vm.mu.Lock()
	defer e.vm.mu.Unlock()
	e.check("NewObject")
	c, ok := e.vm.class(class)
	if !ok || class == StringClass {
		return jni.Null, e.throw(NoClassDefFoundErrorClass, class)
	}
	if sig != "()V" || len(args) != 0 {
		return jni.Null, e.throw(NoSuchMethodErrorClass, class+".<init>"+string(sig))
	}
	return e.local(e.vm.newObject(c)), nil
}

// IsInstanceOf implements jni.Env.
func (e *Env) IsInstanceOf(o jni.Object, class string) (bool, error) {
	e.vm.mu.Lock()
	defer e.vm.mu.Unlock()
	obj, err := e.deref(o, "IsInstanceOf")
	if err != nil {
		return false, err
	}
	if obj == nil || class == ObjectClass {
		return true, nil
	}
	return obj.sign == jni.ClassSign(class) || obj.sign == jni.Sign(class), nil
}

// HasField implements jni.Env.
func (e *Env) HasField(class, name string, sig jni.Sign) bool {
	e.vm.mu.Lock()
	defer e.vm.mu.Unlock()
	c, ok := e.vm.class(class)
	if !ok {
		return false
	}
	got, ok := c.fields[name]
	return ok && got == sig
}

func (e *Env) field(o jni.Object, name string, sig jni.Sign, op string) (*object, error) {
	obj, err := e.nonNull(o, op)
	if err != nil {
		return nil, err
	}
	if obj.class == nil {
		return nil, e.throw(NoSuchFieldErrorClass, name)
	}
	if got, ok := obj.class.fields[name]; !ok || got != sig {
		return nil, e.throw(NoSuchFieldErrorClass, obj.class.Name+"."+name+" "+string(sig))
	}
	return obj, nil
}

// GetField implements jni.Env.
func (e *Env) GetField(o jni.Object, name string, sig jni.Sign) (jni.Value, error) {
	e.vm.mu.Lock()
	defer e.vm.mu.Unlock()
	e.check("GetField")
	obj, err := e.field(o, name, sig, "GetField")
	if err != nil {
		return jni.Value{}, err
	}
	c := obj.fields[name]
	if sig.Kind() == jni.KindObject {
		return jni.ObjectValue(e.local(c.o)), nil
	}
	return c.v, nil
}

// SetField implements jni.Env.
func (e *Env) SetField(o jni.Object, name string, sig jni.Sign, v jni.Value) error {
	e.vm.mu.Lock()
	defer e.vm.mu.Unlock()
	e.check("SetField")
	obj, err := e.field(o, name, sig, "SetField")
	if err != nil {
		return err
	}
	if v.Kind() != sig.Kind() {
		e.vm.violate("SetField %s: %s value for %s field", name, v.Kind(), sig)
		return e.throw(IllegalArgumentExceptionClass, name)
	}
	if sig.Kind() != jni.KindObject {
		obj.fields[name] = cell{v: v}
		return nil
	}
	val, err := e.deref(v.Object(), "SetField")
	if err != nil {
		return err
	}
	if !assignable(val, sig) {
		e.vm.violate("SetField %s: %s is not assignable to %s", name, val.sign, sig)
		return e.throw(IllegalArgumentExceptionClass, name)
	}
	obj.fields[name] = cell{v: v, o: val}
	return nil
}

// NewString implements jni.Env.
func (e *Env) NewString(s string) (jni.Object, error) {
	e.vm.mu.Lock()
	defer e.vm.mu.Unlock()
	e.check("NewString")
	c, _ := e.vm.class(StringClass)
	return e.local(&object{class: c, sign: jni.StringSign, str: s}), nil
}

// GetString implements jni.Env.
func (e *Env) GetString(o jni.Object) (string, error) {
	e.vm.mu.Lock()
	defer e.vm.mu.Unlock()
	e.check("GetString")
	obj, err := e.nonNull(o, "GetString")
	if err != nil {
		return "", err
	}
	if obj.sign != jni.StringSign {
		e.vm.violate("GetString on %s", obj.sign)
		return "", e.throw(IllegalArgumentExceptionClass, "not a string")
	}
	return obj.str, nil
}

func (e *Env) array(o jni.Object, sig jni.Sign, op string) (*object, error) {
	obj, err := e.nonNull(o, op)
	if err != nil {
		return nil, err
	}
	if !obj.isArray() || (sig != "" && obj.sign != sig) {
		e.vm.violate("%s on %s", op, obj.sign)
		return nil, e.throw(IllegalArgumentExceptionClass, op)
	}
	return obj, nil
}

func (e *Env) bounds(obj *object, start, n int) error {
	if start < 0 || n < 0 || start+n > obj.length() {
		return e.throw(ArrayIndexOutOfBoundsClass, fmt.Sprintf("[%d:%d] of %d", start, start+n, obj.length()))
	}
	return nil
}

// GetArrayLength implements jni.Env.
func (e *Env) GetArrayLength(o jni.Object) (int, error) {
	e.vm.mu.Lock()
	defer e.vm.mu.Unlock()
	e.check("GetArrayLength")
	obj, err := e.array(o, "", "GetArrayLength")
	if err != nil {
		return 0, err
	}
	return obj.length(), nil
}

// NewByteArray implements jni.Env.
func (e *Env) NewByteArray(b []byte) (jni.Object, error) {
	e.vm.mu.Lock()
	defer e.vm.mu.Unlock()
	e.check("NewByteArray")
	return e.local(&object{sign: jni.ByteArraySign, bytes: append([]byte{}, b...)}), nil
}

// GetByteArrayRegion implements jni.Env.
func (e *Env) GetByteArrayRegion(o jni.Object, start int, dst []byte) error {
	e.vm.mu.Lock()
	defer e.vm.mu.Unlock()
	e.check("GetByteArrayRegion")
	obj, err := e.array(o, jni.ByteArraySign, "GetByteArrayRegion")
	if err != nil {
		return err
	}
	if err := e.bounds(obj, start, len(dst)); err != nil {
		return err
	}
	copy(dst, obj.bytes[start:])
	return nil
}

// NewIntArray implements jni.Env.
func (e *Env) NewIntArray(v []int32) (jni.Object, error) {
	e.vm.mu.Lock()
	defer e.vm.mu.Unlock()
	e.check("NewIntArray")
	return e.local(&object{sign: jni.IntArraySign, ints: append([]int32{}, v...)}), nil
}

// GetIntArrayRegion implements jni.Env.
func (e *Env) GetIntArrayRegion(o jni.Object, start int, dst []int32) error {
	e.vm.mu.Lock()
	defer e.vm.mu.Unlock()
	e.check("GetIntArrayRegion")
	obj, err := e.array(o, jni.IntArraySign, "GetIntArrayRegion")
	if err != nil {
		return err
	}
	if err := e.bounds(obj, start, len(dst)); err != nil {
		return err
	}
	copy(dst, obj.ints[start:])
	return nil
}

// NewObjectArray implements jni.Env.
func (e *Env) NewObjectArray(n int, class string) (jni.Object, error) {
	e.vm.mu.Lock()
	defer e.vm.mu.Unlock()
	e.check("NewObjectArray")
	if _, ok := e.vm.class(class); !ok {
		return jni.Null, e.throw(NoClassDefFoundErrorClass, class)
	}
	elem := jni.ClassSign(class)
	return e.local(&object{sign: jni.ArraySign(elem), elem: elem, elems: make([]*object, n)}), nil
}

// GetObjectArrayElement implements jni.Env.
func (e *Env) GetObjectArrayElement(o jni.Object, i int) (jni.Object, error) {
	e.vm.mu.Lock()
	defer e.vm.mu.Unlock()
	e.check("GetObjectArrayElement")
	obj, err := e.array(o, "", "GetObjectArrayElement")
	if err != nil {
		return jni.Null, err
	}
	if obj.elem == "" {
		e.vm.violate("GetObjectArrayElement on %s", obj.sign)
		return jni.Null, e.throw(IllegalArgumentExceptionClass, "not an object array")
	}
	if err := e.bounds(obj, i, 1); err != nil {
		return jni.Null, err
	}
	return e.local(obj.elems[i]), nil
}

// SetObjectArrayElement implements jni.Env.
func (e *Env) SetObjectArrayElement(o jni.Object, i int, v jni.Object) error {
	e.vm.mu.Lock()
	defer e.vm.mu.Unlock()
	e.check("SetObjectArrayElement")
	obj, err := e.array(o, "", "SetObjectArrayElement")
	if err != nil {
		return err
	}
	if obj.elem == "" {
		e.vm.violate("SetObjectArrayElement on %s", obj.sign)
		return e.throw(IllegalArgumentExceptionClass, "not an object array")
	}
	if err := e.bounds(obj, i, 1); err != nil {
		return err
	}
	val, err := e.deref(v, "SetObjectArrayElement")
	if err != nil {
		return err
	}
	if !assignable(val, obj.elem) {
		return e.throw(IllegalArgumentExceptionClass, "ArrayStoreException: "+string(val.sign))
	}
	obj.elems[i] = val
	return nil
}

// CallVoidMethod implements jni.Env. The method body runs without the VM
// lock held so it may use e freely.
func (e *Env) CallVoidMethod(o jni.Object, name string, sig jni.Sign, args ...jni.Value) error {
	e.vm.mu.Lock()
	e.check("CallVoidMethod")
	fn, err := e.method(o, name, sig, args)
	e.vm.mu.Unlock()
	if err != nil {
		return err
	}

	if err := fn(e, o, args); err != nil {
		e.vm.mu.Lock()
		defer e.vm.mu.Unlock()
		if e.pending == nil {
			return e.throw(RuntimeExceptionClass, err.Error())
		}
		return fmt.Errorf("%w: %s", jni.ErrPendingException, describe(e.pending))
	}
	return nil
}

func (e *Env) method(o jni.Object, name string, sig jni.Sign, args []jni.Value) (Method, error) {
	obj, err := e.nonNull(o, "CallVoidMethod")
	if err != nil {
		return nil, err
	}
	var fn Method
	if obj.class != nil {
		fn = obj.class.methods[name+string(sig)]
	}
	if fn == nil {
		return nil, e.throw(NoSuchMethodErrorClass, name+string(sig))
	}
	params, ret, err := jni.ParseFuncSign(sig)
	if err != nil || ret != jni.VoidSign || len(params) != len(args) {
		e.vm.violate("CallVoidMethod %s%s with %d arguments", name, sig, len(args))
		return nil, e.throw(IllegalArgumentExceptionClass, name+string(sig))
	}
	for i, p := range params {
		if args[i].Kind() != p.Kind() {
			e.vm.violate("CallVoidMethod %s%s: argument %d is %s", name, sig, i, args[i].Kind())
			return nil, e.throw(IllegalArgumentExceptionClass, name+string(sig))
		}
		if p.Kind() != jni.KindObject {
			continue
		}
		val, err := e.deref(args[i].Object(), "CallVoidMethod")
		if err != nil {
			return nil, err
		}
		if !assignable(val, p) {
			e.vm.violate("CallVoidMethod %s%s: argument %d is %s", name, sig, i, val.sign)
			return nil, e.throw(IllegalArgumentExceptionClass, name+string(sig))
		}
	}
	return fn, nil
}

// NewGlobalRef implements jni.Env.
func (e *Env) NewGlobalRef(o jni.Object) (jni.Object, error) {
	e.vm.mu.Lock()
	defer e.vm.mu.Unlock()
	e.check("NewGlobalRef")
	obj, err := e.deref(o, "NewGlobalRef")
	if err != nil || obj == nil {
		return jni.Null, err
	}
	r := &ref{obj: obj, global: true}
	e.vm.refs[r] = struct{}{}
	return jni.Object(unsafe.Pointer(r)), nil
}

// DeleteGlobalRef implements jni.Env.
func (e *Env) DeleteGlobalRef(o jni.Object) {
	e.vm.mu.Lock()
	defer e.vm.mu.Unlock()
	if o == nil {
		return
	}
	r, ok := e.vm.lookup(o)
	switch {
	case !ok:
		e.vm.violate("DeleteGlobalRef: %v", errStale)
	case !r.global:
		e.vm.violate("DeleteGlobalRef on a local reference")
	default:
		delete(e.vm.refs, r)
	}
}

// DeleteLocalRef implements jni.Env.
func (e *Env) DeleteLocalRef(o jni.Object) {
	e.vm.mu.Lock()
	defer e.vm.mu.Unlock()
	if o == nil {
		return
	}
	r, ok := e.vm.lookup(o)
	switch {
	case !ok:
		e.vm.violate("DeleteLocalRef: %v", errStale)
	case r.global:
		e.vm.violate("DeleteLocalRef on a global reference")
	default:
		delete(e.vm.refs, r)
		for i := len(e.frames) - 1; i >= 0; i-- {
			frame := e.frames[i]
			for j, fr := range frame {
				if fr == r {
					e.frames[i] = append(frame[:j], frame[j+1:]...)
					return
				}
			}
		}
	}
}

// PushLocalFrame implements jni.Env.
func (e *Env) PushLocalFrame(capacity int) error {
	e.vm.mu.Lock()
	defer e.vm.mu.Unlock()
	e.check("PushLocalFrame")
	e.frames = append(e.frames, make([]*ref, 0, capacity))
	return nil
}

// PopLocalFrame implements jni.Env.
func (e *Env) PopLocalFrame() {
	e.vm.mu.Lock()
	defer e.vm.mu.Unlock()
	if len(e.frames) == 1 {
		e.vm.violate("PopLocalFrame without PushLocalFrame")
		return
	}
	top := len(e.frames) - 1
	for _, r := range e.frames[top] {
		delete(e.vm.refs, r)
	}
	e.frames = e.frames[:top]
}

// ExceptionCheck implements jni.Env.
func (e *Env) ExceptionCheck() bool {
	e.vm.mu.Lock()
	defer e.vm.mu.Unlock()
	return e.pending != nil
}

// ThrowNew implements jni.Env.
func (e *Env) ThrowNew(class, msg string) error {
	e.vm.mu.Lock()
	defer e.vm.mu.Unlock()
	e.throw(class, msg)
	return nil
}

// ExceptionClear drops the pending exception, if any.
func (e *Env) ExceptionClear() {
	e.vm.mu.Lock()
	defer e.vm.mu.Unlock()
	e.pending = nil
}

// DispatchUncaughtException implements jni.Env.
func (e *Env) DispatchUncaughtException() bool {
	e.vm.mu.Lock()
	defer e.vm.mu.Unlock()
	if e.pending == nil {
		return false
	}
	e.vm.uncaught = append(e.vm.uncaught, describe(e.pending))
	e.pending = nil
	return true
}
