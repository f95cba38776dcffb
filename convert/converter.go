// Package convert is the type-conversion registry of the bridge.
//
// A Converter[N, M] maps values of a native type N (a Go mirror of a C
// type) to values of a managed type M and back. Managed types are the Go
// carriers of JNI values: bool, int8, int16, int32, int64 and jni.Object
// for everything that lives on the managed heap. Conversions are per call
// and stateless; managed allocations land in the caller's local frame and
// native allocations on the native heap.
//
// Conversion errors mean the managed schema and the native declarations
// disagree. They are programming errors: callers report and stop, they do
// not recover.
package convert

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/opd-ai/safejni/jni"
)

// Converter converts between a native type N and a managed type M.
type Converter[N, M any] interface {
	// Sign is the JVM descriptor of M as seen by managed code.
	Sign() jni.Sign
	// ToManaged converts a native value into a managed one.
	ToManaged(env jni.Env, v N) (M, error)
	// FromManaged converts a managed value into a native one.
	FromManaged(env jni.Env, v M) (N, error)
}

// Releaser is implemented by converters whose FromManaged results own
// native memory.
type Releaser[N any] interface {
	// Release frees what FromManaged allocated for v.
	Release(v N)
}

// Release frees the native memory c's FromManaged allocated for v, if any.
func Release[N, M any](c Converter[N, M], v N) {
	if r, ok := c.(Releaser[N]); ok {
		r.Release(v)
	}
}

type key struct {
	native, managed reflect.Type
}

// Registry maps (native type, managed type) pairs to converters.
type Registry struct {
	mu      sync.RWMutex
	convs   map[key]any
	schemas []Schema
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{convs: make(map[key]any)}
}

func typeKey[N, M any]() key {
	return key{
		native:  reflect.TypeOf((*N)(nil)).Elem(),
		managed: reflect.TypeOf((*M)(nil)).Elem(),
	}
}

// Register adds c as the converter for (N, M), replacing any earlier one.
// Converters that expose a managed schema have it recorded for Verify.
func Register[N, M any](r *Registry, c Converter[N, M]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.convs[typeKey[N, M]()] = c
	if s, ok := c.(interface{ Schema() Schema }); ok {
		r.schemas = append(r.schemas, s.Schema())
	}
}

// Lookup returns the converter registered for (N, M).
func Lookup[N, M any](r *Registry) (Converter[N, M], bool) {
	r.mu.RLock()
	c, ok := r.convs[typeKey[N, M]()]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return c.(Converter[N, M]), true
}

// Must is Lookup for pairs the caller knows are registered.
func Must[N, M any](r *Registry) Converter[N, M] {
	c, ok := Lookup[N, M](r)
	if !ok {
		k := typeKey[N, M]()
		panic(fmt.Sprintf("convert: no converter from %v to %v", k.native, k.managed))
	}
	return c
}

// Schemas returns the managed schemas of every registered struct converter.
func (r *Registry) Schemas() []Schema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Schema(nil), r.schemas...)
}

// wrap turns a managed Go value into a jni.Value.
func wrap[M any](m M) jni.Value {
	return jni.Of(any(m))
}

// unwrap is the inverse of wrap.
func unwrap[M any](v jni.Value) M {
	var m M
	switch p := any(&m).(type) {
	case *bool:
		*p = v.Boolean()
	case *int8:
		*p = v.Byte()
	case *int16:
		*p = v.Short()
	case *int32:
		*p = v.Int()
	case *int64:
		*p = v.Long()
	case *jni.Object:
		*p = v.Object()
	default:
		panic(fmt.Sprintf("convert: %T is not a managed type", m))
	}
	return m
}

// Wrap converts v with c and wraps the result as a call argument.
func Wrap[N, M any](env jni.Env, c Converter[N, M], v N) (jni.Value, error) {
	m, err := c.ToManaged(env, v)
	if err != nil {
		return jni.Value{}, err
	}
	return wrap(m), nil
}
