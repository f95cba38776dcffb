package bridge

import (
	"unsafe"

	"github.com/opd-ai/safejni/native"
)

// Callback shapes of the native library. Each receives the user data given
// at registration and the operation's result; a nil result is delivered to
// managed code as null. Pointer arguments are valid only for the duration
// of the call.
type (
	ResultFunc         func(userData unsafe.Pointer, result *native.FfiResult)
	Int32Func          func(userData unsafe.Pointer, result *native.FfiResult, v int32)
	StringFunc         func(userData unsafe.Pointer, result *native.FfiResult, s *byte)
	KeyFunc            func(userData unsafe.Pointer, result *native.FfiResult, key *native.Key)
	Int32ArrayFunc     func(userData unsafe.Pointer, result *native.FfiResult, v []int32)
	KeyArrayFunc       func(userData unsafe.Pointer, result *native.FfiResult, keys []native.Key)
	Int32StringKeyFunc func(userData unsafe.Pointer, result *native.FfiResult, id int32, name *byte, key *native.Key)
	AppInfoFunc        func(userData unsafe.Pointer, result *native.FfiResult, info *native.AppInfo)
)

// Library is the asynchronous native API. Every method returns once the
// operation has been started; its callbacks fire later on threads of the
// library's choosing. Arguments are borrowed for the duration of the call
// except AppInfo.Name, whose ownership passes to the library.
type Library interface {
	RegisterApp(info *native.AppInfo, userData unsafe.Pointer, cb ResultFunc)
	GetAppID(info *native.AppInfo, userData unsafe.Pointer, cb Int32Func)
	GetAppName(info *native.AppInfo, userData unsafe.Pointer, cb StringFunc)
	GetAppKey(info *native.AppInfo, userData unsafe.Pointer, cb KeyFunc)
	RandomNumbers(userData unsafe.Pointer, cb Int32ArrayFunc)
	RandomKeys(userData unsafe.Pointer, cb KeyArrayFunc)
	GetAppInfo(info *native.AppInfo, userData unsafe.Pointer, cb Int32StringKeyFunc)
	// CreateAccount calls connect and then disconnect, both with the same
	// user data.
	CreateAccount(locator, password *byte, userData unsafe.Pointer, connect AppInfoFunc, disconnect ResultFunc)
	VerifySignature(data []byte, userData unsafe.Pointer, cb ResultFunc)
	VerifyKeys(keys []native.Key, userData unsafe.Pointer, cb ResultFunc)
}
