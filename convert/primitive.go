package convert

import (
	"golang.org/x/exp/constraints"

	"github.com/opd-ai/safejni/jni"
)

// ManagedInt is the set of managed integer primitives.
type ManagedInt interface {
	int8 | int16 | int32 | int64
}

// Integer converts between a native integer N and a managed integer M by
// plain conversion. Between types of equal width, signed or not, that is a
// bit-preserving cast; no range check is made.
type Integer[N constraints.Integer, M ManagedInt] struct{}

// Sign implements Converter.
func (Integer[N, M]) Sign() jni.Sign {
	var m M
	switch any(m).(type) {
	case int8:
		return jni.ByteSign
	case int16:
		return jni.ShortSign
	case int32:
		return jni.IntSign
	default:
		return jni.LongSign
	}
}

// ToManaged implements Converter.
func (Integer[N, M]) ToManaged(_ jni.Env, v N) (M, error) { return M(v), nil }

// FromManaged implements Converter.
func (Integer[N, M]) FromManaged(_ jni.Env, v M) (N, error) { return N(v), nil }

// Size converts size-typed native integers to managed longs.
type Size = Integer[uintptr, int64]

// Bool converts native booleans.
type Bool struct{}

// Sign implements Converter.
func (Bool) Sign() jni.Sign { return jni.BoolSign }

// ToManaged implements Converter.
func (Bool) ToManaged(_ jni.Env, v bool) (bool, error) { return v, nil }

// FromManaged implements Converter.
func (Bool) FromManaged(_ jni.Env, v bool) (bool, error) { return v, nil }
