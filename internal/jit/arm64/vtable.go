package arm64

import "unsafe"

// vtableSlots mirrors internal/jit/amd64/vtable.go: four slots for
// read_byte, write_byte, grow_tape, invoke_promise, every one resolving
// to the same shared Go dispatch entry point. See that file's doc
// comment for the rationale.
const vtableSlots = 4

func buildVtable(dispatch uintptr) (ptr unsafe.Pointer, keepAlive []uint64) {
	slots := make([]uint64, vtableSlots)
	for i := range slots {
		slots[i] = uint64(dispatch)
	}
	return unsafe.Pointer(&slots[0]), slots
}
