package arm64

import "unsafe"

// callTrampoline is implemented in trampoline_arm64.s: loads the data
// pointer, ctx, and vtable registers (X19/X20/X21) and jumps into
// generated code, converting the returned data pointer back into an
// index relative to tapeBase.
//
//go:noescape
func callTrampoline(entry unsafe.Pointer, ctx unsafe.Pointer, vtable unsafe.Pointer, tapeBase unsafe.Pointer, initialIndex int64) int64
