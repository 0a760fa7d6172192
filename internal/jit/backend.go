package jit

import (
	"unsafe"

	"github.com/lcox74/bfjit/internal/ir"
	"github.com/lcox74/bfjit/internal/jit/page"
)

// Backend is implemented once per supported architecture
// (internal/jit/amd64, internal/jit/arm64). It never imports this
// package back — engine_<arch>.go wires the concrete implementation in,
// selected by the matching Go build tag, which is what keeps the
// dependency one-directional.
type Backend interface {
	// Name identifies the backend, e.g. "amd64" or "arm64".
	Name() string

	// Compile emits machine code for a straight-line IR sequence (a full
	// program, or one loop body chosen for inline emission) following
	// the fixed register ABI. Loops at or past inlineThreshold
	// nodes are registered via addPromise instead of being emitted
	// inline; addPromise returns the stable index generated code should
	// pass to the invoke_promise vtable slot.
	Compile(nodes []ir.Node, inlineThreshold int, addPromise func([]ir.Node) int) ([]byte, error)

	// Invoke runs code (already placed in region and made executable)
	// through this architecture's trampoline, which spills the three
	// reserved ABI registers on entry, loads the data pointer to
	// tapeBase+initialIndex, ctx, and a vtable pointer (every slot of
	// which resolves to dispatch — see the amd64/arm64 backend's vtable
	// helper for why a literal per-slot function isn't used), runs the
	// code, and converts the data pointer back to an index on return.
	Invoke(region *page.Region, ctx unsafe.Pointer, dispatch uintptr, tapeBase unsafe.Pointer, initialIndex int) (finalIndex int)
}
