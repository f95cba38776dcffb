package convert

import (
	"fmt"

	"github.com/opd-ai/safejni/jni"
)

// Pointer lifts a struct converter to pointers: nil maps to null and back.
// FromManaged allocates the native struct in Go memory; it holds no Go
// pointers and may be passed to C for the duration of a call.
func Pointer[N any](elem Converter[N, jni.Object]) Converter[*N, jni.Object] {
	return pointer[N]{elem: elem}
}

type pointer[N any] struct {
	elem Converter[N, jni.Object]
}

func (p pointer[N]) Sign() jni.Sign { return p.elem.Sign() }

func (p pointer[N]) ToManaged(env jni.Env, v *N) (jni.Object, error) {
	if v == nil {
		return jni.Null, nil
	}
	return p.elem.ToManaged(env, *v)
}

func (p pointer[N]) FromManaged(env jni.Env, obj jni.Object) (*N, error) {
	if obj == jni.Null {
		return nil, nil
	}
	v, err := p.elem.FromManaged(env, obj)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (p pointer[N]) Release(v *N) {
	if v != nil {
		Release(p.elem, *v)
	}
}

// ObjectArray converts a native pointer+length view of structs, as a Go
// slice, to a managed array of class. An empty view becomes an empty array,
// a null array becomes nil.
func ObjectArray[N any](class string, elem Converter[N, jni.Object]) Converter[[]N, jni.Object] {
	return objectArray[N]{class: class, elem: elem}
}

type objectArray[N any] struct {
	class string
	elem  Converter[N, jni.Object]
}

func (a objectArray[N]) Sign() jni.Sign { return jni.ArraySign(a.elem.Sign()) }

func (a objectArray[N]) ToManaged(env jni.Env, v []N) (jni.Object, error) {
	arr, err := env.NewObjectArray(len(v), a.class)
	if err != nil {
		return jni.Null, fmt.Errorf("convert: new %s[%d]: %w", a.class, len(v), err)
	}
	for i := range v {
		obj, err := a.elem.ToManaged(env, v[i])
		if err != nil {
			return jni.Null, fmt.Errorf("convert: %s[%d]: %w", a.class, i, err)
		}
		err = env.SetObjectArrayElement(arr, i, obj)
		env.DeleteLocalRef(obj)
		if err != nil {
			return jni.Null, fmt.Errorf("convert: %s[%d]: %w", a.class, i, err)
		}
	}
	return arr, nil
}

func (a objectArray[N]) FromManaged(env jni.Env, arr jni.Object) ([]N, error) {
	if arr == jni.Null {
		return nil, nil
	}
	n, err := env.GetArrayLength(arr)
	if err != nil {
		return nil, err
	}
	out := make([]N, n)
	for i := range out {
		obj, err := env.GetObjectArrayElement(arr, i)
		if err != nil {
			a.Release(out[:i])
			return nil, fmt.Errorf("convert: %s[%d]: %w", a.class, i, err)
		}
		out[i], err = a.elem.FromManaged(env, obj)
		env.DeleteLocalRef(obj)
		if err != nil {
			a.Release(out[:i])
			return nil, fmt.Errorf("convert: %s[%d]: %w", a.class, i, err)
		}
	}
	return out, nil
}

func (a objectArray[N]) Release(v []N) {
	for i := range v {
		Release(a.elem, v[i])
	}
}
