package convert

import (
	"fmt"
	"unsafe"

	"github.com/opd-ai/safejni/jni"
)

// FixedArray is the set of fixed-size byte arrays the native API uses.
type FixedArray interface {
	~[8]int8 | ~[8]byte | ~[24]byte | ~[32]byte | ~[64]byte
}

// FixedBytes converts a fixed-size native byte array to a managed byte[]
// of the same length. A managed array of any other length is rejected.
type FixedBytes[A FixedArray] struct{}

// Sign implements Converter.
func (FixedBytes[A]) Sign() jni.Sign { return jni.ByteArraySign }

func bytesOf[A FixedArray](a *A) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(a)), unsafe.Sizeof(*a))
}

// ToManaged implements Converter.
func (FixedBytes[A]) ToManaged(env jni.Env, v A) (jni.Object, error) {
	return env.NewByteArray(bytesOf(&v))
}

// FromManaged implements Converter.
func (FixedBytes[A]) FromManaged(env jni.Env, arr jni.Object) (A, error) {
	var a A
	if arr == jni.Null {
		return a, fmt.Errorf("convert: byte[%d]: %w", unsafe.Sizeof(a), jni.ErrNullReference)
	}
	out := bytesOf(&a)
	n, err := env.GetArrayLength(arr)
	if err != nil {
		return a, err
	}
	if n != len(out) {
		return a, fmt.Errorf("convert: byte array of length %d, want %d", n, len(out))
	}
	if err := env.GetByteArrayRegion(arr, 0, out); err != nil {
		return a, err
	}
	return a, nil
}

// Bytes converts variable native byte buffers. A nil or empty buffer becomes
// an empty managed array; a null managed array becomes nil.
type Bytes struct{}

// Sign implements Converter.
func (Bytes) Sign() jni.Sign { return jni.ByteArraySign }

// ToManaged implements Converter.
func (Bytes) ToManaged(env jni.Env, v []byte) (jni.Object, error) {
	return env.NewByteArray(v)
}

// FromManaged implements Converter.
func (Bytes) FromManaged(env jni.Env, arr jni.Object) ([]byte, error) {
	if arr == jni.Null {
		return nil, nil
	}
	n, err := env.GetArrayLength(arr)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	if err := env.GetByteArrayRegion(arr, 0, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Ints converts variable native int32 buffers, with the same nil rules as
// Bytes.
type Ints struct{}

// Sign implements Converter.
func (Ints) Sign() jni.Sign { return jni.IntArraySign }

// ToManaged implements Converter.
func (Ints) ToManaged(env jni.Env, v []int32) (jni.Object, error) {
	return env.NewIntArray(v)
}

// FromManaged implements Converter.
func (Ints) FromManaged(env jni.Env, arr jni.Object) ([]int32, error) {
	if arr == jni.Null {
		return nil, nil
	}
	n, err := env.GetArrayLength(arr)
	if err != nil {
		return nil, err
	}
	out := make([]int32, n)
	if err := env.GetIntArrayRegion(arr, 0, out); err != nil {
		return nil, err
	}
	return out, nil
}
