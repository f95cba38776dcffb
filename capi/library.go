//go:build jni && !standalone

package main

/*
#cgo LDFLAGS: -lbackend
#include "backend.h"

extern void safejni_on_result(void *, FfiResult *);
extern void safejni_on_i32(void *, FfiResult *, int32_t);
extern void safejni_on_string(void *, FfiResult *, char *);
extern void safejni_on_key(void *, FfiResult *, Key *);
extern void safejni_on_i32_array(void *, FfiResult *, int32_t *, size_t);
extern void safejni_on_key_array(void *, FfiResult *, Key *, size_t);
extern void safejni_on_i32_string_key(void *, FfiResult *, int32_t, char *, Key *);
extern void safejni_on_account_connect(void *, FfiResult *, AppInfo *);
extern void safejni_on_account_disconnect(void *, FfiResult *);

static void lib_register_app(const AppInfo *info, void *ctx) {
	register_app(info, ctx, (cb_t)safejni_on_result);
}

static void lib_get_app_id(const AppInfo *info, void *ctx) {
	get_app_id(info, ctx, (cb_i32_t)safejni_on_i32);
}

static void lib_get_app_name(const AppInfo *info, void *ctx) {
	get_app_name(info, ctx, (cb_string_t)safejni_on_string);
}

static void lib_get_app_key(const AppInfo *info, void *ctx) {
	get_app_key(info, ctx, (cb_Key_t)safejni_on_key);
}

static void lib_random_numbers(void *ctx) {
	random_numbers(ctx, (cb_i32_array_t)safejni_on_i32_array);
}

static void lib_random_keys(void *ctx) {
	random_keys(ctx, (cb_Key_array_t)safejni_on_key_array);
}

static void lib_get_app_info(const AppInfo *info, void *ctx) {
	get_app_info(info, ctx, (cb_i32_string_Key_t)safejni_on_i32_string_key);
}

static void lib_create_account(const char *locator, const char *password, void *ctx) {
	create_account(locator, password, ctx,
		(cb_AppInfo_t)safejni_on_account_connect,
		(cb_t)safejni_on_account_disconnect);
}

static void lib_verify_signature(const uint8_t *ptr, size_t len, void *ctx) {
	verify_signature(ptr, len, ctx, (cb_t)safejni_on_result);
}

static void lib_verify_keys(const Key *ptr, size_t len, void *ctx) {
	verify_keys(ptr, len, ctx, (cb_t)safejni_on_result);
}
*/
import "C"

import (
	"unsafe"

	"github.com/opd-ai/safejni/bridge"
	"github.com/opd-ai/safejni/native"
)

// cLibrary calls libbackend. The native library receives the exported
// trampolines, which forward to the installed bridge; the Go callbacks
// passed in are that bridge's own trampolines and are not called directly.
type cLibrary struct{}

var _ bridge.Library = cLibrary{}

func newLibrary() bridge.Library { return cLibrary{} }

func appInfo(info *native.AppInfo) *C.AppInfo { return (*C.AppInfo)(unsafe.Pointer(info)) }

func (cLibrary) RegisterApp(info *native.AppInfo, userData unsafe.Pointer, _ bridge.ResultFunc) {
	C.lib_register_app(appInfo(info), userData)
}

func (cLibrary) GetAppID(info *native.AppInfo, userData unsafe.Pointer, _ bridge.Int32Func) {
	C.lib_get_app_id(appInfo(info), userData)
}

func (cLibrary) GetAppName(info *native.AppInfo, userData unsafe.Pointer, _ bridge.StringFunc) {
	C.lib_get_app_name(appInfo(info), userData)
}

func (cLibrary) GetAppKey(info *native.AppInfo, userData unsafe.Pointer, _ bridge.KeyFunc) {
	C.lib_get_app_key(appInfo(info), userData)
}

func (cLibrary) RandomNumbers(userData unsafe.Pointer, _ bridge.Int32ArrayFunc) {
	C.lib_random_numbers(userData)
}

func (cLibrary) RandomKeys(userData unsafe.Pointer, _ bridge.KeyArrayFunc) {
	C.lib_random_keys(userData)
}

func (cLibrary) GetAppInfo(info *native.AppInfo, userData unsafe.Pointer, _ bridge.Int32StringKeyFunc) {
	C.lib_get_app_info(appInfo(info), userData)
}

func (cLibrary) CreateAccount(locator, password *byte, userData unsafe.Pointer, _ bridge.AppInfoFunc, _ bridge.ResultFunc) {
	C.lib_create_account((*C.char)(unsafe.Pointer(locator)), (*C.char)(unsafe.Pointer(password)), userData)
}

func (cLibrary) VerifySignature(data []byte, userData unsafe.Pointer, _ bridge.ResultFunc) {
	var p *C.uint8_t
	if len(data) > 0 {
		p = (*C.uint8_t)(unsafe.Pointer(&data[0]))
	}
	C.lib_verify_signature(p, C.size_t(len(data)), userData)
}

func (cLibrary) VerifyKeys(keys []native.Key, userData unsafe.Pointer, _ bridge.ResultFunc) {
	var p *C.Key
	if len(keys) > 0 {
		p = (*C.Key)(unsafe.Pointer(&keys[0]))
	}
	C.lib_verify_keys(p, C.size_t(len(keys)), userData)
}
