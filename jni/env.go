// Package jni defines the view the bridge has of the managed runtime.
//
// A VM is the process-wide Runtime Handle handed to the library when the
// host runtime loads it. An Env is the per-thread Execution Handle obtained
// by attaching the current OS thread to that runtime. Both are interfaces so
// the bridge can run against the real JNI (package cjni) or against the
// in-memory runtime used by tests (package jvmtest).
//
// Class names are always given in internal form ("java/lang/String",
// "net/maidsafe/Key"), field and method types as JVM descriptors (see Sign).
package jni

import (
	"errors"
	"unsafe"
)

// Version is a JNI interface version as returned from JNI_OnLoad.
type Version int32

// Version14 is JNI_VERSION_1_4. Everything the bridge uses
// (AttachCurrentThreadAsDaemon, local frames, ExceptionCheck) exists there.
const Version14 Version = 0x00010004

// MinVersion is the interface version the bridge asks the host for.
const MinVersion = Version14

var (
	// ErrPendingException reports that a managed exception was raised by
	// the operation and is still pending on the calling thread.
	ErrPendingException = errors.New("jni: managed exception pending")

	// ErrNullReference reports a null reference where an object was required.
	ErrNullReference = errors.New("jni: null reference")
)

// Object is a reference to a managed object. Depending on how it was
// obtained it is either a local reference, valid only on the thread and in
// the frame that produced it, or a global reference. The zero value is the
// managed null.
type Object unsafe.Pointer

// Null is the managed null reference.
var Null Object

// VM is the process-wide Runtime Handle.
type VM interface {
	// AttachCurrentThreadAsDaemon returns the Env of the calling OS thread,
	// attaching it as a daemon thread first if needed. Attaching an
	// attached thread is cheap and returns the same Env.
	AttachCurrentThreadAsDaemon() (Env, error)
}

// Env is the Execution Handle of one attached thread. It must not be used
// from another thread. Every method that can raise a managed exception
// returns an error wrapping ErrPendingException when it did.
type Env interface {
	// NewObject constructs an instance of class with the constructor
	// matching sig, which must return void.
	NewObject(class string, sig Sign, args ...Value) (Object, error)
	// IsInstanceOf reports whether obj is an instance of class.
	IsInstanceOf(obj Object, class string) (bool, error)
	// GetField reads the instance field name of type sig.
	GetField(obj Object, name string, sig Sign) (Value, error)
	// SetField writes the instance field name of type sig.
	SetField(obj Object, name string, sig Sign, v Value) error
	// HasField reports whether class declares an instance field name of
	// type sig. It never leaves an exception pending.
	HasField(class string, name string, sig Sign) bool

	// NewString creates a managed string from UTF-8 text.
	NewString(s string) (Object, error)
	// GetString copies a managed string into UTF-8 text.
	GetString(str Object) (string, error)

	// GetArrayLength returns the length of any managed array.
	GetArrayLength(arr Object) (int, error)
	// NewByteArray creates a byte[] holding a copy of b.
	NewByteArray(b []byte) (Object, error)
	// GetByteArrayRegion copies len(dst) elements starting at start into dst.
	GetByteArrayRegion(arr Object, start int, dst []byte) error
	// NewIntArray creates an int[] holding a copy of v.
	NewIntArray(v []int32) (Object, error)
	// GetIntArrayRegion copies len(dst) elements starting at start into dst.
	GetIntArrayRegion(arr Object, start int, dst []int32) error
	// NewObjectArray creates an array of n nulls with element type class.
	NewObjectArray(n int, class string) (Object, error)
	// GetObjectArrayElement returns a local reference to element i.
	GetObjectArrayElement(arr Object, i int) (Object, error)
	// SetObjectArrayElement stores v at index i.
	SetObjectArrayElement(arr Object, i int, v Object) error

	// CallVoidMethod invokes the instance method name with descriptor sig.
	CallVoidMethod(obj Object, name string, sig Sign, args ...Value) error

	// NewGlobalRef creates a strong reference to obj that is valid on every
	// thread until DeleteGlobalRef.
	NewGlobalRef(obj Object) (Object, error)
	// DeleteGlobalRef releases a reference created by NewGlobalRef.
	DeleteGlobalRef(ref Object)
	// DeleteLocalRef releases a local reference before its frame ends.
	DeleteLocalRef(ref Object)
	// PushLocalFrame opens a frame for at least capacity local references.
	PushLocalFrame(capacity int) error
	// PopLocalFrame releases every local reference created since the
	// matching PushLocalFrame.
	PopLocalFrame()

	// ExceptionCheck reports whether an exception is pending.
	ExceptionCheck() bool
	// ThrowNew raises a new exception of class with msg.
	ThrowNew(class string, msg string) error
	// DispatchUncaughtException hands the pending exception, if any, to the
	// current thread's uncaught-exception handler and clears it. It reports
	// whether an exception was pending.
	DispatchUncaughtException() bool
}
