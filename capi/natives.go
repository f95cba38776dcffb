//go:build jni

package main

// #include <jni.h>
import "C"

import (
	"unsafe"

	"github.com/opd-ai/safejni/jni"
	"github.com/opd-ai/safejni/jni/cjni"
)

func envOf(env *C.JNIEnv) *cjni.Env { return jvm.Env(unsafe.Pointer(env)) }

func obj(o C.jobject) jni.Object { return jni.Object(unsafe.Pointer(o)) }

//export Java_NativeBindings_registerApp
func Java_NativeBindings_registerApp(env *C.JNIEnv, cls C.jclass, app, cb C.jobject) {
	bindings.RegisterApp(envOf(env), obj(app), obj(cb))
}

//export Java_NativeBindings_getAppId
func Java_NativeBindings_getAppId(env *C.JNIEnv, cls C.jclass, app, cb C.jobject) {
	bindings.GetAppID(envOf(env), obj(app), obj(cb))
}

//export Java_NativeBindings_getAppName
func Java_NativeBindings_getAppName(env *C.JNIEnv, cls C.jclass, app, cb C.jobject) {
	bindings.GetAppName(envOf(env), obj(app), obj(cb))
}

//export Java_NativeBindings_getAppKey
func Java_NativeBindings_getAppKey(env *C.JNIEnv, cls C.jclass, app, cb C.jobject) {
	bindings.GetAppKey(envOf(env), obj(app), obj(cb))
}

//export Java_NativeBindings_randomNumbers
func Java_NativeBindings_randomNumbers(env *C.JNIEnv, cls C.jclass, cb C.jobject) {
	bindings.RandomNumbers(envOf(env), obj(cb))
}

//export Java_NativeBindings_randomKeys
func Java_NativeBindings_randomKeys(env *C.JNIEnv, cls C.jclass, cb C.jobject) {
	bindings.RandomKeys(envOf(env), obj(cb))
}

//export Java_NativeBindings_getAppInfo
func Java_NativeBindings_getAppInfo(env *C.JNIEnv, cls C.jclass, app, cb C.jobject) {
	bindings.GetAppInfo(envOf(env), obj(app), obj(cb))
}

//export Java_NativeBindings_createAccount
func Java_NativeBindings_createAccount(env *C.JNIEnv, cls C.jclass, locator, password, connect, disconnect C.jobject) {
	bindings.CreateAccount(envOf(env), obj(locator), obj(password), obj(connect), obj(disconnect))
}

//export Java_NativeBindings_verifySignature
func Java_NativeBindings_verifySignature(env *C.JNIEnv, cls C.jclass, data, cb C.jobject) {
	bindings.VerifySignature(envOf(env), obj(data), obj(cb))
}

//export Java_NativeBindings_verifyKeys
func Java_NativeBindings_verifyKeys(env *C.JNIEnv, cls C.jclass, keys, cb C.jobject) {
	bindings.VerifyKeys(envOf(env), obj(keys), obj(cb))
}
