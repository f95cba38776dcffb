//go:build jni

package main

/*
#include <jni.h>

extern void Java_NativeBindings_registerApp(JNIEnv*, jclass, jobject, jobject);
extern void Java_NativeBindings_getAppId(JNIEnv*, jclass, jobject, jobject);
extern void Java_NativeBindings_getAppName(JNIEnv*, jclass, jobject, jobject);
extern void Java_NativeBindings_getAppKey(JNIEnv*, jclass, jobject, jobject);
extern void Java_NativeBindings_randomNumbers(JNIEnv*, jclass, jobject);
extern void Java_NativeBindings_randomKeys(JNIEnv*, jclass, jobject);
extern void Java_NativeBindings_getAppInfo(JNIEnv*, jclass, jobject, jobject);
extern void Java_NativeBindings_createAccount(JNIEnv*, jclass, jobject, jobject, jobject, jobject);
extern void Java_NativeBindings_verifySignature(JNIEnv*, jclass, jobject, jobject);
extern void Java_NativeBindings_verifyKeys(JNIEnv*, jclass, jobject, jobject);

// Same order as bridge.Bridge.Symbols.
static void *native_fns[] = {
	(void *)Java_NativeBindings_registerApp,
	(void *)Java_NativeBindings_getAppId,
	(void *)Java_NativeBindings_getAppName,
	(void *)Java_NativeBindings_getAppKey,
	(void *)Java_NativeBindings_randomNumbers,
	(void *)Java_NativeBindings_randomKeys,
	(void *)Java_NativeBindings_getAppInfo,
	(void *)Java_NativeBindings_createAccount,
	(void *)Java_NativeBindings_verifySignature,
	(void *)Java_NativeBindings_verifyKeys,
};

static void *native_fn(int i) {
	if (i < 0 || i >= (int)(sizeof(native_fns) / sizeof(native_fns[0]))) {
		return NULL;
	}
	return native_fns[i];
}
*/
import "C"

import (
	"github.com/opd-ai/safejni/bridge"
	"github.com/opd-ai/safejni/jni/cjni"
)

// nativeMethods pairs each bindings method with its exported function.
func nativeMethods(b *bridge.Bridge) []cjni.NativeMethod {
	syms := b.Symbols()
	out := make([]cjni.NativeMethod, 0, len(syms))
	for i, s := range syms {
		fn := C.native_fn(C.int(i))
		if fn == nil {
			break
		}
		out = append(out, cjni.NativeMethod{Name: s.Method, Sign: s.Sign, Fn: fn})
	}
	return out
}
