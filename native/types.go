package native

// The structs below are layout-compatible with the declarations in the
// library header and may be passed to C by pointer. String members point
// into the native heap, never into Go memory.

// KeySize is the length of Key.Bytes.
const KeySize = 8

// Key mirrors `struct Key { int8_t bytes[8]; }`.
type Key struct {
	Bytes [KeySize]int8
}

// AppInfo mirrors `struct AppInfo { int32_t id; char* name; Key key; }`.
type AppInfo struct {
	ID   int32
	Name *byte
	Key  Key
}

// FfiResult mirrors `struct FfiResult { int32_t error_code; char* error; }`.
// It accompanies every callback.
type FfiResult struct {
	ErrorCode int32
	Error     *byte
}
