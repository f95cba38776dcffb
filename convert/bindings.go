package convert

import (
	"github.com/opd-ai/safejni/jni"
	"github.com/opd-ai/safejni/native"
)

// Managed class names of the native structs, relative to the class package.
const (
	KeyClass       = "Key"
	AppInfoClass   = "AppInfo"
	FfiResultClass = "FfiResult"
)

// RegisterPrimitives adds the integer, size, boolean, string and buffer
// converters to r.
func RegisterPrimitives(r *Registry) {
	Register[int8, int8](r, Integer[int8, int8]{})
	Register[int16, int16](r, Integer[int16, int16]{})
	Register[int32, int32](r, Integer[int32, int32]{})
	Register[int64, int64](r, Integer[int64, int64]{})
	Register[uint8, int8](r, Integer[uint8, int8]{})
	Register[uint16, int16](r, Integer[uint16, int16]{})
	Register[uint32, int32](r, Integer[uint32, int32]{})
	Register[uint64, int64](r, Integer[uint64, int64]{})
	Register[uintptr, int64](r, Size{})
	Register[bool, bool](r, Bool{})

	Register[*byte, jni.Object](r, CString{})
	Register[OwnedString, jni.Object](r, OwnedCString{})
	Register[[]byte, jni.Object](r, Bytes{})
	Register[[]int32, jni.Object](r, Ints{})
	Register[[8]int8, jni.Object](r, FixedBytes[[8]int8]{})
	Register[[8]byte, jni.Object](r, FixedBytes[[8]byte]{})
	Register[[24]byte, jni.Object](r, FixedBytes[[24]byte]{})
	Register[[32]byte, jni.Object](r, FixedBytes[[32]byte]{})
	Register[[64]byte, jni.Object](r, FixedBytes[[64]byte]{})
}

// NewBindingsRegistry returns a registry with the primitives and the
// structs of the native API, whose managed classes live in classPackage
// (internal form with a trailing slash, or "" for the default package).
func NewBindingsRegistry(classPackage string) *Registry {
	r := NewRegistry()
	RegisterPrimitives(r)

	key := NewStruct(classPackage+KeyClass,
		Bind[native.Key, [native.KeySize]int8, jni.Object]("bytes", FixedBytes[[native.KeySize]int8]{}, func(k *native.Key) *[native.KeySize]int8 { return &k.Bytes }),
	)
	appInfo := NewStruct(classPackage+AppInfoClass,
		Bind[native.AppInfo, int32, int32]("id", Integer[int32, int32]{}, func(a *native.AppInfo) *int32 { return &a.ID }),
		Bind[native.AppInfo, *byte, jni.Object]("name", CString{}, func(a *native.AppInfo) **byte { return &a.Name }),
		Bind[native.AppInfo, native.Key, jni.Object]("key", key, func(a *native.AppInfo) *native.Key { return &a.Key }),
	)
	result := NewStruct(classPackage+FfiResultClass,
		Bind[native.FfiResult, int32, int32]("errorCode", Integer[int32, int32]{}, func(f *native.FfiResult) *int32 { return &f.ErrorCode }),
		Bind[native.FfiResult, *byte, jni.Object]("error", CString{}, func(f *native.FfiResult) **byte { return &f.Error }),
	)

	Register[native.Key, jni.Object](r, key)
	Register[*native.Key, jni.Object](r, Pointer[native.Key](key))
	Register[[]native.Key, jni.Object](r, ObjectArray[native.Key](key.Class(), key))
	Register[native.AppInfo, jni.Object](r, appInfo)
	Register[*native.AppInfo, jni.Object](r, Pointer[native.AppInfo](appInfo))
	Register[native.FfiResult, jni.Object](r, result)
	Register[*native.FfiResult, jni.Object](r, Pointer[native.FfiResult](result))
	return r
}
