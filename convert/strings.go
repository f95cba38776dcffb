package convert

import (
	"github.com/opd-ai/safejni/jni"
	"github.com/opd-ai/safejni/native"
)

// CString converts borrowed NUL-terminated native strings (*byte) to
// managed strings by copying. In the other direction it allocates a fresh
// native string whose ownership passes to the caller, and from there to the
// native function it is handed to. Nil and null map onto each other.
type CString struct{}

// Sign implements Converter.
func (CString) Sign() jni.Sign { return jni.StringSign }

// ToManaged implements Converter.
func (CString) ToManaged(env jni.Env, p *byte) (jni.Object, error) {
	if p == nil {
		return jni.Null, nil
	}
	return env.NewString(native.GoString(p))
}

// FromManaged implements Converter.
func (CString) FromManaged(env jni.Env, s jni.Object) (*byte, error) {
	if s == jni.Null {
		return nil, nil
	}
	str, err := env.GetString(s)
	if err != nil {
		return nil, err
	}
	return native.CString(str), nil
}

// Release frees a string returned by FromManaged.
func (CString) Release(p *byte) { native.FreeString(p) }

// OwnedString is a native string that stays owned by the Go side: it is
// lent to a native call and released with Free when the call returns.
type OwnedString struct {
	p *byte
}

// NewOwnedString copies s onto the native heap.
func NewOwnedString(s string) OwnedString { return OwnedString{p: native.CString(s)} }

// Ptr returns the borrowed C pointer, nil for a null string.
func (s OwnedString) Ptr() *byte { return s.p }

// String copies the text back.
func (s OwnedString) String() string { return native.GoString(s.p) }

// Free releases the string. Freeing twice is a no-op.
func (s *OwnedString) Free() {
	native.FreeString(s.p)
	s.p = nil
}

// OwnedCString converts owned native strings.
type OwnedCString struct{}

// Sign implements Converter.
func (OwnedCString) Sign() jni.Sign { return jni.StringSign }

// ToManaged implements Converter. The string stays owned by the caller.
func (OwnedCString) ToManaged(env jni.Env, s OwnedString) (jni.Object, error) {
	return CString{}.ToManaged(env, s.p)
}

// FromManaged implements Converter.
func (OwnedCString) FromManaged(env jni.Env, s jni.Object) (OwnedString, error) {
	p, err := CString{}.FromManaged(env, s)
	return OwnedString{p: p}, err
}

// Release frees a string returned by FromManaged.
func (OwnedCString) Release(s OwnedString) { s.Free() }
