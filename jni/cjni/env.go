//go:build jni

package cjni

// #include "shim.h"
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/opd-ai/safejni/jni"
)

// Env wraps the JNIEnv* of one attached thread.
type Env struct {
	env *C.JNIEnv
	vm  *VM
}

var _ jni.Env = (*Env)(nil)

func obj(o jni.Object) C.jobject { return C.jobject(unsafe.Pointer(o)) }

func ref(o C.jobject) jni.Object { return jni.Object(unsafe.Pointer(o)) }

func cstr(s string) (*C.char, func()) {
	p := C.CString(s)
	return p, func() { C.free(unsafe.Pointer(p)) }
}

// pending returns ErrPendingException if the last call raised.
func (e *Env) pending() error {
	if C.shim_exception_check(e.env) != 0 {
		return jni.ErrPendingException
	}
	return nil
}

func (e *Env) findClass(name string) (C.jclass, error) {
	cname, free := cstr(name)
	defer free()
	cls := C.shim_find_class(e.env, cname)
	if cls == nil {
		return nil, fmt.Errorf("class %s: %w", name, jni.ErrPendingException)
	}
	return cls, nil
}

// class returns the cached global reference to name or a fresh local
// reference, with the function that releases it.
func (e *Env) class(name string) (C.jclass, func(), error) {
	if cls, ok := e.vm.cached(name); ok {
		return cls, func() {}, nil
	}
	cls, err := e.findClass(name)
	if err != nil {
		return nil, nil, err
	}
	return cls, func() { C.shim_delete_local_ref(e.env, C.jobject(cls)) }, nil
}

func (e *Env) fieldID(o jni.Object, name string, sig jni.Sign) (C.jfieldID, error) {
	if o == jni.Null {
		return nil, jni.ErrNullReference
	}
	cls := C.shim_object_class(e.env, obj(o))
	defer C.shim_delete_local_ref(e.env, C.jobject(cls))
	cname, freeName := cstr(name)
	defer freeName()
	csig, freeSig := cstr(string(sig))
	defer freeSig()
	id := C.shim_field_id(e.env, cls, cname, csig)
	if id == nil {
		return nil, fmt.Errorf("field %s %s: %w", name, sig, jni.ErrPendingException)
	}
	return id, nil
}

func (e *Env) methodID(cls C.jclass, name string, sig jni.Sign) (C.jmethodID, error) {
	cname, freeName := cstr(name)
	defer freeName()
	csig, freeSig := cstr(string(sig))
	defer freeSig()
	id := C.shim_method_id(e.env, cls, cname, csig)
	if id == nil {
		return nil, fmt.Errorf("method %s%s: %w", name, sig, jni.ErrPendingException)
	}
	return id, nil
}

// jvalues lays args out as a jvalue array on the C heap. The array holds
// only C pointers.
func jvalues(args []jni.Value) (*C.jvalue, func()) {
	if len(args) == 0 {
		return nil, func() {}
	}
	p := (*C.jvalue)(C.calloc(C.size_t(len(args)), C.size_t(unsafe.Sizeof(C.jvalue{}))))
	vals := unsafe.Slice(p, len(args))
	for i, a := range args {
		slot := unsafe.Pointer(&vals[i])
		switch a.Kind() {
		case jni.KindBoolean:
			b := C.jboolean(C.JNI_FALSE)
			if a.Boolean() {
				b = C.JNI_TRUE
			}
			*(*C.jboolean)(slot) = b
		case jni.KindByte:
			*(*C.jbyte)(slot) = C.jbyte(a.Byte())
		case jni.KindShort:
			*(*C.jshort)(slot) = C.jshort(a.Short())
		case jni.KindInt:
			*(*C.jint)(slot) = C.jint(a.Int())
		case jni.KindLong:
			*(*C.jlong)(slot) = C.jlong(a.Long())
		case jni.KindObject:
			*(*C.jobject)(slot) = obj(a.Object())
		}
	}
	return p, func() { C.free(unsafe.Pointer(p)) }
}

// NewObject implements jni.Env.
func (e *Env) NewObject(class string, sig jni.Sign, args ...jni.Value) (jni.Object, error) {
	cls, release, err := e.class(class)
	if err != nil {
		return jni.Null, err
	}
	defer release()
	ctor, err := e.methodID(cls, "<init>", sig)
	if err != nil {
		return jni.Null, err
	}
	vals, free := jvalues(args)
	defer free()
	o := C.shim_new_object(e.env, cls, ctor, vals)
	if o == nil {
		return jni.Null, fmt.Errorf("new %s: %w", class, jni.ErrPendingException)
	}
	return ref(o), nil
}

// IsInstanceOf implements jni.Env.
func (e *Env) IsInstanceOf(o jni.Object, class string) (bool, error) {
	cls, release, err := e.class(class)
	if err != nil {
		return false, err
	}
	defer release()
	return C.shim_is_instance_of(e.env, obj(o), cls) != 0, nil
}

// GetField implements jni.Env.
func (e *Env) GetField(o jni.Object, name string, sig jni.Sign) (jni.Value, error) {
	id, err := e.fieldID(o, name, sig)
	if err != nil {
		return jni.Value{}, err
	}
	switch sig.Kind() {
	case jni.KindBoolean:
		return jni.Boolean(C.shim_get_boolean(e.env, obj(o), id) != 0), nil
	case jni.KindByte:
		return jni.Byte(int8(C.shim_get_byte(e.env, obj(o), id))), nil
	case jni.KindShort:
		return jni.Short(int16(C.shim_get_short(e.env, obj(o), id))), nil
	case jni.KindInt:
		return jni.Int(int32(C.shim_get_int(e.env, obj(o), id))), nil
	case jni.KindLong:
		return jni.Long(int64(C.shim_get_long(e.env, obj(o), id))), nil
	case jni.KindObject:
		return jni.ObjectValue(ref(C.shim_get_object(e.env, obj(o), id))), e.pending()
	default:
		return jni.Value{}, fmt.Errorf("cjni: field %s: unsupported descriptor %s", name, sig)
	}
}

// SetField implements jni.Env.
func (e *Env) SetField(o jni.Object, name string, sig jni.Sign, v jni.Value) error {
	id, err := e.fieldID(o, name, sig)
	if err != nil {
		return err
	}
	switch sig.Kind() {
	case jni.KindBoolean:
		b := C.jboolean(C.JNI_FALSE)
		if v.Boolean() {
			b = C.JNI_TRUE
		}
		C.shim_set_boolean(e.env, obj(o), id, b)
	case jni.KindByte:
		C.shim_set_byte(e.env, obj(o), id, C.jbyte(v.Byte()))
	case jni.KindShort:
		C.shim_set_short(e.env, obj(o), id, C.jshort(v.Short()))
	case jni.KindInt:
		C.shim_set_int(e.env, obj(o), id, C.jint(v.Int()))
	case jni.KindLong:
		C.shim_set_long(e.env, obj(o), id, C.jlong(v.Long()))
	case jni.KindObject:
		C.shim_set_object(e.env, obj(o), id, obj(v.Object()))
	default:
		return fmt.Errorf("cjni: field %s: unsupported descriptor %s", name, sig)
	}
	return e.pending()
}

// HasField implements jni.Env.
func (e *Env) HasField(class string, name string, sig jni.Sign) bool {
	cls, release, err := e.class(class)
	if err != nil {
		C.shim_exception_clear(e.env)
		return false
	}
	defer release()
	cname, freeName := cstr(name)
	defer freeName()
	csig, freeSig := cstr(string(sig))
	defer freeSig()
	if C.shim_field_id(e.env, cls, cname, csig) == nil {
		C.shim_exception_clear(e.env)
		return false
	}
	return true
}

// NewString implements jni.Env.
func (e *Env) NewString(s string) (jni.Object, error) {
	cs, free := cstr(s)
	defer free()
	str := C.shim_new_string(e.env, cs)
	if str == nil {
		return jni.Null, fmt.Errorf("new string: %w", jni.ErrPendingException)
	}
	return ref(C.jobject(str)), nil
}

// GetString implements jni.Env.
func (e *Env) GetString(str jni.Object) (string, error) {
	if str == jni.Null {
		return "", jni.ErrNullReference
	}
	s := C.jstring(obj(str))
	n := C.shim_string_utf_length(e.env, s)
	if n == 0 {
		return "", nil
	}
	buf := (*C.char)(C.malloc(C.size_t(n) + 1))
	defer C.free(unsafe.Pointer(buf))
	C.shim_string_utf_region(e.env, s, C.shim_string_length(e.env, s), buf)
	if err := e.pending(); err != nil {
		return "", err
	}
	return C.GoStringN(buf, C.int(n)), nil
}

// GetArrayLength implements jni.Env.
func (e *Env) GetArrayLength(arr jni.Object) (int, error) {
	if arr == jni.Null {
		return 0, jni.ErrNullReference
	}
	return int(C.shim_array_length(e.env, C.jarray(obj(arr)))), nil
}

// NewByteArray implements jni.Env.
func (e *Env) NewByteArray(b []byte) (jni.Object, error) {
	var p *C.jbyte
	if len(b) > 0 {
		p = (*C.jbyte)(unsafe.Pointer(&b[0]))
	}
	a := C.shim_new_byte_array(e.env, p, C.jsize(len(b)))
	if a == nil {
		return jni.Null, fmt.Errorf("new byte[%d]: %w", len(b), jni.ErrPendingException)
	}
	return ref(C.jobject(a)), nil
}

// GetByteArrayRegion implements jni.Env.
func (e *Env) GetByteArrayRegion(arr jni.Object, start int, dst []byte) error {
	if arr == jni.Null {
		return jni.ErrNullReference
	}
	if len(dst) == 0 {
		return nil
	}
	C.shim_byte_region(e.env, C.jbyteArray(obj(arr)), C.jsize(start), C.jsize(len(dst)), (*C.jbyte)(unsafe.Pointer(&dst[0])))
	return e.pending()
}

// NewIntArray implements jni.Env.
func (e *Env) NewIntArray(v []int32) (jni.Object, error) {
	var p *C.jint
	if len(v) > 0 {
		p = (*C.jint)(unsafe.Pointer(&v[0]))
	}
	a := C.shim_new_int_array(e.env, p, C.jsize(len(v)))
	if a == nil {
		return jni.Null, fmt.Errorf("new int[%d]: %w", len(v), jni.ErrPendingException)
	}
	return ref(C.jobject(a)), nil
}

// GetIntArrayRegion implements jni.Env.
func (e *Env) GetIntArrayRegion(arr jni.Object, start int, dst []int32) error {
	if arr == jni.Null {
		return jni.ErrNullReference
	}
	if len(dst) == 0 {
		return nil
	}
	C.shim_int_region(e.env, C.jintArray(obj(arr)), C.jsize(start), C.jsize(len(dst)), (*C.jint)(unsafe.Pointer(&dst[0])))
	return e.pending()
}

// NewObjectArray implements jni.Env.
func (e *Env) NewObjectArray(n int, class string) (jni.Object, error) {
	cls, release, err := e.class(class)
	if err != nil {
		return jni.Null, err
	}
	defer release()
	a := C.shim_new_object_array(e.env, C.jsize(n), cls)
	if a == nil {
		return jni.Null, fmt.Errorf("new %s[%d]: %w", class, n, jni.ErrPendingException)
	}
	return ref(C.jobject(a)), nil
}

// GetObjectArrayElement implements jni.Env.
func (e *Env) GetObjectArrayElement(arr jni.Object, i int) (jni.Object, error) {
	if arr == jni.Null {
		return jni.Null, jni.ErrNullReference
	}
	el := C.shim_array_element(e.env, C.jobjectArray(obj(arr)), C.jsize(i))
	return ref(el), e.pending()
}

// SetObjectArrayElement implements jni.Env.
func (e *Env) SetObjectArrayElement(arr jni.Object, i int, v jni.Object) error {
	if arr == jni.Null {
		return jni.ErrNullReference
	}
	C.shim_set_array_element(e.env, C.jobjectArray(obj(arr)), C.jsize(i), obj(v))
	return e.pending()
}

// CallVoidMethod implements jni.Env.
func (e *Env) CallVoidMethod(o jni.Object, name string, sig jni.Sign, args ...jni.Value) error {
	if o == jni.Null {
		return jni.ErrNullReference
	}
	cls := C.shim_object_class(e.env, obj(o))
	defer C.shim_delete_local_ref(e.env, C.jobject(cls))
	m, err := e.methodID(cls, name, sig)
	if err != nil {
		return err
	}
	vals, free := jvalues(args)
	defer free()
	C.shim_call_void(e.env, obj(o), m, vals)
	if err := e.pending(); err != nil {
		return fmt.Errorf("%s%s: %w", name, sig, err)
	}
	return nil
}

// NewGlobalRef implements jni.Env.
func (e *Env) NewGlobalRef(o jni.Object) (jni.Object, error) {
	if o == jni.Null {
		return jni.Null, jni.ErrNullReference
	}
	g := C.shim_new_global_ref(e.env, obj(o))
	if g == nil {
		return jni.Null, fmt.Errorf("new global ref: %w", jni.ErrPendingException)
	}
	return ref(g), nil
}

// DeleteGlobalRef implements jni.Env.
func (e *Env) DeleteGlobalRef(r jni.Object) { C.shim_delete_global_ref(e.env, obj(r)) }

// DeleteLocalRef implements jni.Env.
func (e *Env) DeleteLocalRef(r jni.Object) { C.shim_delete_local_ref(e.env, obj(r)) }

// PushLocalFrame implements jni.Env.
func (e *Env) PushLocalFrame(capacity int) error {
	if C.shim_push_local_frame(e.env, C.jint(capacity)) < 0 {
		return fmt.Errorf("push local frame(%d): %w", capacity, jni.ErrPendingException)
	}
	return nil
}

// PopLocalFrame implements jni.Env.
func (e *Env) PopLocalFrame() { C.shim_pop_local_frame(e.env) }

// ExceptionCheck implements jni.Env.
func (e *Env) ExceptionCheck() bool { return e.pending() != nil }

// ThrowNew implements jni.Env.
func (e *Env) ThrowNew(class string, msg string) error {
	cls, release, err := e.class(class)
	if err != nil {
		return err
	}
	defer release()
	cmsg, free := cstr(msg)
	defer free()
	if C.shim_throw_new(e.env, cls, cmsg) != 0 {
		return fmt.Errorf("throw %s: failed", class)
	}
	return nil
}

// DispatchUncaughtException implements jni.Env.
func (e *Env) DispatchUncaughtException() bool {
	return C.shim_dispatch_uncaught(e.env) != 0
}
