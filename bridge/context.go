package bridge

import (
	"fmt"
	"runtime/cgo"
	"sync"
	"unsafe"

	"github.com/opd-ai/safejni/jni"
	"github.com/opd-ai/safejni/native"
)

// A single-shot context is the leaked GlobalRef itself.

func newSingleContext(ref GlobalRef) unsafe.Pointer {
	return ref.Leak()
}

func takeSingle(ctx unsafe.Pointer) GlobalRef {
	return Adopt(ctx)
}

// slots is the state of a multi-shot context. refs[i] is present until the
// callback for slot i fires.
type slots struct {
	mu   sync.Mutex
	refs []jni.Object
}

// A multi-shot context is a native heap cell holding a cgo.Handle to a
// slots box. The cell and the handle are released by whichever take empties
// the last slot.

func newMultiContext(refs []GlobalRef) unsafe.Pointer {
	box := &slots{refs: make([]jni.Object, len(refs))}
	for i := range refs {
		box.refs[i] = jni.Object(refs[i].Leak())
	}
	cell := (*cgo.Handle)(native.Alloc(unsafe.Sizeof(cgo.Handle(0))))
	*cell = cgo.NewHandle(box)
	return unsafe.Pointer(cell)
}

// takeSlot removes and returns the reference in slot i of ctx. It fails if
// the slot was already taken, which means the native library fired the same
// callback twice.
func takeSlot(ctx unsafe.Pointer, i int) (GlobalRef, error) {
	if ctx == nil {
		return GlobalRef{}, fmt.Errorf("bridge: multi-shot context: %w", jni.ErrNullReference)
	}
	cell := (*cgo.Handle)(ctx)
	box := cell.Value().(*slots)

	box.mu.Lock()
	if i < 0 || i >= len(box.refs) || box.refs[i] == jni.Null {
		box.mu.Unlock()
		return GlobalRef{}, fmt.Errorf("bridge: slot %d of multi-shot context already taken", i)
	}
	ref := Adopt(unsafe.Pointer(box.refs[i]))
	box.refs[i] = jni.Null
	empty := true
	for _, r := range box.refs {
		if r != jni.Null {
			empty = false
			break
		}
	}
	box.mu.Unlock()

	if empty {
		cell.Delete()
		native.Free(ctx)
	}
	return ref, nil
}
