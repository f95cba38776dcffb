package bridge

import (
	"fmt"
	"unsafe"

	"github.com/opd-ai/safejni/jni"
)

// GlobalRef owns one strong, thread-independent reference to a managed
// object. The reference is released exactly once: by Release, or by whoever
// adopts it after Leak.
type GlobalRef struct {
	obj jni.Object
}

// NewGlobalRef promotes the local reference local to a GlobalRef and deletes
// local.
func NewGlobalRef(env jni.Env, local jni.Object) (GlobalRef, error) {
	if local == jni.Null {
		return GlobalRef{}, fmt.Errorf("bridge: callback: %w", jni.ErrNullReference)
	}
	obj, err := env.NewGlobalRef(local)
	if err != nil {
		return GlobalRef{}, fmt.Errorf("bridge: new global ref: %w", err)
	}
	env.DeleteLocalRef(local)
	return GlobalRef{obj: obj}, nil
}

// Adopt takes ownership of a reference previously given away with Leak.
func Adopt(p unsafe.Pointer) GlobalRef {
	return GlobalRef{obj: jni.Object(p)}
}

// Object returns the reference without giving up ownership.
func (r GlobalRef) Object() jni.Object { return r.obj }

// Valid reports whether r still owns a reference.
func (r GlobalRef) Valid() bool { return r.obj != jni.Null }

// Leak gives up ownership and returns the reference as a raw pointer, to be
// carried by native code and recovered with Adopt.
func (r *GlobalRef) Leak() unsafe.Pointer {
	p := unsafe.Pointer(r.obj)
	r.obj = jni.Null
	return p
}

// Release deletes the reference. Releasing an empty GlobalRef is a no-op.
func (r *GlobalRef) Release(env jni.Env) {
	if r.obj == jni.Null {
		return
	}
	env.DeleteGlobalRef(r.obj)
	r.obj = jni.Null
}
