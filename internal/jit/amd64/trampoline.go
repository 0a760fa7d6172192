package amd64

import "unsafe"

// callTrampoline is implemented in trampoline_amd64.s. It loads the
// fixed three-register ABI (data pointer, ctx, vtable), computes the
// initial data pointer as tapeBase+initialIndex, calls entry, and
// converts the data pointer back to an index relative to tapeBase on
// return.
//
//go:noescape
func callTrampoline(entry unsafe.Pointer, ctx unsafe.Pointer, vtable unsafe.Pointer, tapeBase unsafe.Pointer, initialIndex int64) int64
