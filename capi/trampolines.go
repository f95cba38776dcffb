//go:build jni

package main

// #include "backend.h"
import "C"

import (
	"unsafe"

	"github.com/opd-ai/safejni/native"
)

func result(r *C.FfiResult) *native.FfiResult { return (*native.FfiResult)(unsafe.Pointer(r)) }

func key(k *C.Key) *native.Key { return (*native.Key)(unsafe.Pointer(k)) }

func cbytes(s *C.char) *byte { return (*byte)(unsafe.Pointer(s)) }

//export safejni_on_result
func safejni_on_result(ctx unsafe.Pointer, res *C.FfiResult) {
	bindings.OnResult(ctx, result(res))
}

//export safejni_on_i32
func safejni_on_i32(ctx unsafe.Pointer, res *C.FfiResult, v C.int32_t) {
	bindings.OnInt32(ctx, result(res), int32(v))
}

//export safejni_on_string
func safejni_on_string(ctx unsafe.Pointer, res *C.FfiResult, s *C.char) {
	bindings.OnString(ctx, result(res), cbytes(s))
}

//export safejni_on_key
func safejni_on_key(ctx unsafe.Pointer, res *C.FfiResult, k *C.Key) {
	bindings.OnKey(ctx, result(res), key(k))
}

//export safejni_on_i32_array
func safejni_on_i32_array(ctx unsafe.Pointer, res *C.FfiResult, p *C.int32_t, n C.size_t) {
	var v []int32
	if p != nil {
		v = unsafe.Slice((*int32)(unsafe.Pointer(p)), int(n))
	}
	bindings.OnInt32Array(ctx, result(res), v)
}

//export safejni_on_key_array
func safejni_on_key_array(ctx unsafe.Pointer, res *C.FfiResult, p *C.Key, n C.size_t) {
	var keys []native.Key
	if p != nil {
		keys = unsafe.Slice(key(p), int(n))
	}
	bindings.OnKeyArray(ctx, result(res), keys)
}

//export safejni_on_i32_string_key
func safejni_on_i32_string_key(ctx unsafe.Pointer, res *C.FfiResult, id C.int32_t, name *C.char, k *C.Key) {
	bindings.OnInt32StringKey(ctx, result(res), int32(id), cbytes(name), key(k))
}

//export safejni_on_account_connect
func safejni_on_account_connect(ctx unsafe.Pointer, res *C.FfiResult, info *C.AppInfo) {
	bindings.OnAccountConnect(ctx, result(res), (*native.AppInfo)(unsafe.Pointer(info)))
}

//export safejni_on_account_disconnect
func safejni_on_account_disconnect(ctx unsafe.Pointer, res *C.FfiResult) {
	bindings.OnAccountDisconnect(ctx, result(res))
}
