// Package native holds the Go view of the native library's ABI: mirrors of
// its C structs and helpers for memory on the native (C) heap.
package native

// #include <stdlib.h>
import "C"

import (
	"unsafe"

	"go.uber.org/atomic"
)

// outstanding counts native heap blocks allocated here and not yet freed.
var outstanding atomic.Int64

// Outstanding returns the number of blocks allocated by this package that
// have not been released with Free or FreeString.
func Outstanding() int64 { return outstanding.Load() }

// Alloc returns size zeroed bytes on the native heap. The memory holds no
// Go pointers and is released with Free.
func Alloc(size uintptr) unsafe.Pointer {
	p := C.calloc(1, C.size_t(size))
	if p == nil {
		panic("native: out of memory")
	}
	outstanding.Inc()
	return p
}

// Free releases memory from Alloc or CString. Free(nil) is a no-op.
func Free(p unsafe.Pointer) {
	if p == nil {
		return
	}
	outstanding.Dec()
	C.free(p)
}

// CString copies s into a new NUL-terminated buffer on the native heap and
// returns it. Ownership passes to the caller.
func CString(s string) *byte {
	outstanding.Inc()
	return (*byte)(unsafe.Pointer(C.CString(s)))
}

// FreeString releases a string from CString.
func FreeString(p *byte) { Free(unsafe.Pointer(p)) }

// GoString copies the NUL-terminated string at p. A nil p yields "".
func GoString(p *byte) string {
	if p == nil {
		return ""
	}
	return C.GoString((*C.char)(unsafe.Pointer(p)))
}
