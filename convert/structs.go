package convert

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/opd-ai/safejni/jni"
)

// ctorSign is the descriptor of the zero-argument constructor every
// converted managed class must have.
const ctorSign jni.Sign = "()V"

// FieldSchema names one managed field.
type FieldSchema struct {
	Name string
	Sign jni.Sign
}

// Schema is the managed side of a struct conversion: the class and the
// fields the bridge reads and writes by name.
type Schema struct {
	Class  string
	Fields []FieldSchema
}

// Field binds one member of the native struct N to a managed field.
type Field[N any] struct {
	Name string
	Sign jni.Sign

	get     func(env jni.Env, n *N) (jni.Value, error)
	set     func(env jni.Env, n *N, v jni.Value) error
	release func(n *N)
}

// Bind returns a Field converting the member of N selected by member with
// c, stored in the managed field name.
func Bind[N, F, M any](name string, c Converter[F, M], member func(*N) *F) Field[N] {
	return Field[N]{
		Name: name,
		Sign: c.Sign(),
		get: func(env jni.Env, n *N) (jni.Value, error) {
			return Wrap(env, c, *member(n))
		},
		set: func(env jni.Env, n *N, v jni.Value) error {
			f, err := c.FromManaged(env, unwrap[M](v))
			if err != nil {
				return err
			}
			*member(n) = f
			return nil
		},
		release: func(n *N) { Release(c, *member(n)) },
	}
}

// Struct converts a native struct N to an instance of a managed class,
// built with the zero-argument constructor and filled field by field. The
// reverse direction reads every bound field back.
type Struct[N any] struct {
	class  string
	fields []Field[N]
}

// NewStruct returns a converter for N to class, in internal form.
func NewStruct[N any](class string, fields ...Field[N]) *Struct[N] {
	return &Struct[N]{class: class, fields: fields}
}

// Class returns the managed class name.
func (s *Struct[N]) Class() string { return s.class }

// Sign implements Converter.
func (s *Struct[N]) Sign() jni.Sign { return jni.ClassSign(s.class) }

// Schema returns the managed fields s touches.
func (s *Struct[N]) Schema() Schema {
	out := Schema{Class: s.class, Fields: make([]FieldSchema, len(s.fields))}
	for i, f := range s.fields {
		out.Fields[i] = FieldSchema{Name: f.Name, Sign: f.Sign}
	}
	return out
}

// ToManaged implements Converter.
func (s *Struct[N]) ToManaged(env jni.Env, v N) (jni.Object, error) {
	obj, err := env.NewObject(s.class, ctorSign)
	if err != nil {
		return jni.Null, fmt.Errorf("convert: new %s: %w", s.class, err)
	}
	for _, f := range s.fields {
		val, err := f.get(env, &v)
		if err != nil {
			return jni.Null, fmt.Errorf("convert: %s.%s: %w", s.class, f.Name, err)
		}
		err = env.SetField(obj, f.Name, f.Sign, val)
		if val.Kind() == jni.KindObject {
			env.DeleteLocalRef(val.Object())
		}
		if err != nil {
			return jni.Null, fmt.Errorf("convert: %s.%s: %w", s.class, f.Name, err)
		}
	}
	return obj, nil
}

// FromManaged implements Converter.
func (s *Struct[N]) FromManaged(env jni.Env, obj jni.Object) (N, error) {
	var v N
	if obj == jni.Null {
		return v, fmt.Errorf("convert: %s: %w", s.class, jni.ErrNullReference)
	}
	for i, f := range s.fields {
		val, err := env.GetField(obj, f.Name, f.Sign)
		if err == nil {
			err = f.set(env, &v, val)
			if val.Kind() == jni.KindObject {
				env.DeleteLocalRef(val.Object())
			}
		}
		if err != nil {
			s.release(&v, s.fields[:i])
			var zero N
			return zero, fmt.Errorf("convert: %s.%s: %w", s.class, f.Name, err)
		}
	}
	return v, nil
}

// Release frees the native memory held by the fields of v.
func (s *Struct[N]) Release(v N) { s.release(&v, s.fields) }

func (s *Struct[N]) release(v *N, fields []Field[N]) {
	for i := len(fields) - 1; i >= 0; i-- {
		fields[i].release(v)
	}
}

// Verify checks that the runtime declares every field of every schema in r
// with the expected type, and reports all mismatches at once.
func Verify(env jni.Env, r *Registry) error {
	var result *multierror.Error
	for _, s := range r.Schemas() {
		for _, f := range s.Fields {
			if !env.HasField(s.Class, f.Name, f.Sign) {
				result = multierror.Append(result, fmt.Errorf("%s: missing field %s %s", s.Class, f.Name, f.Sign))
			}
		}
	}
	return result.ErrorOrNil()
}
