//go:build jni

// Package main builds the bridge as a shared library the JVM loads with
// System.loadLibrary.
//
// # Build Instructions
//
// Against the native demo library (libbackend):
//
//	CGO_CFLAGS="-I$JAVA_HOME/include -I$JAVA_HOME/include/linux" \
//	  go build -tags jni -buildmode=c-shared -o libsafejni.so ./capi/
//
// Self-contained, with the Go reference backend in place of libbackend:
//
//	go build -tags 'jni standalone' -buildmode=c-shared -o libsafejni.so ./capi/
//
// # Loading
//
// JNI_OnLoad installs the runtime handle, applies the configuration from
// SAFEJNI_CONFIG, SAFEJNI_CLASS_PACKAGE and SAFEJNI_LOG_LEVEL, caches the
// managed classes the bridge names and checks their fields against the
// native declarations. Any mismatch fails the load.
//
// # Native Methods
//
// The static natives of NativeBindings are exported under their short JNI
// names for classes in the default package. When a class package is
// configured they are bound with RegisterNatives instead.
//
// # Callbacks
//
// The native library calls back through the exported trampolines
// (safejni_on_result, safejni_on_i32, ...), each of which forwards to the
// bridge on the library's thread. Callbacks may arrive on any thread.
//
// # Files
//
//   - main.go: JNI_OnLoad and process-wide state
//   - natives.go: Java_NativeBindings_* entry points
//   - trampolines.go: C callbacks handed to the native library
//   - library.go: bridge.Library over libbackend
//   - library_standalone.go: bridge.Library over the Go backend
package main
