package jni

import "fmt"

// Kind identifies which member of a Value is set. It mirrors the jvalue
// union restricted to the types the bridge marshals.
type Kind uint8

const (
	KindVoid Kind = iota
	KindBoolean
	KindByte
	KindShort
	KindInt
	KindLong
	KindObject
)

var kindNames = [...]string{"void", "boolean", "byte", "short", "int", "long", "object"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Value is a managed value passed to or read from the runtime.
type Value struct {
	kind Kind
	i    int64
	obj  Object
}

func Boolean(v bool) Value {
	if v {
		return Value{kind: KindBoolean, i: 1}
	}
	return Value{kind: KindBoolean}
}

func Byte(v int8) Value { return Value{kind: KindByte, i: int64(v)} }
func Short(v int16) Value { return Value{kind: KindShort, i: int64(v)} }
func Int(v int32) Value { return Value{kind: KindInt, i: int64(v)} }
func Long(v int64) Value { return Value{kind: KindLong, i: v} }
func ObjectValue(o Object) Value { return Value{kind: KindObject, obj: o} }

// Kind returns the kind of v.
func (v Value) Kind() Kind { return v.kind }

func (v Value) Boolean() bool { return v.i != 0 }
func (v Value) Byte() int8 { return int8(v.i) }
func (v Value) Short() int16 { return int16(v.i) }
func (v Value) Int() int32 { return int32(v.i) }
func (v Value) Long() int64 { return v.i }
func (v Value) Object() Object { return v.obj }

// Raw returns the integer payload of a primitive value, sign-extended.
func (v Value) Raw() int64 { return v.i }

func (v Value) String() string {
	switch v.kind {
	case KindBoolean:
		return fmt.Sprintf("boolean(%t)", v.Boolean())
	case KindObject:
		return fmt.Sprintf("object(%p)", v.obj)
	case KindVoid:
		return "void"
	default:
		return fmt.Sprintf("%s(%d)", v.kind, v.i)
	}
}

// Of wraps a Go value of a managed type. It accepts bool, int8, int16,
// int32, int64 and Object and panics on anything else.
func Of(x any) Value {
	switch x := x.(type) {
	case bool:
		return Boolean(x)
	case int8:
		return Byte(x)
	case int16:
		return Short(x)
	case int32:
		return Int(x)
	case int64:
		return Long(x)
	case Object:
		return ObjectValue(x)
	default:
		panic(fmt.Sprintf("jni: %T is not a managed type", x))
	}
}
