// Package amd64 implements the JIT backend for the x86-64 host
// architecture: instruction selection over the tree IR, the hybrid
// inline/deferred loop policy, and the trampoline bridging into and out
// of generated code. It is selected by internal/jit/engine_amd64.go and
// never imports internal/jit itself, which is what keeps that wiring
// one-directional.
package amd64

import (
	"runtime"
	"unsafe"

	"github.com/lcox74/bfjit/internal/ir"
	"github.com/lcox74/bfjit/internal/jit/abi"
	"github.com/lcox74/bfjit/internal/jit/page"
	"github.com/lcox74/bfjit/pkg/amd64"
)

// Context field offsets and call selectors come straight from
// internal/jit/abi: Context embeds abi.Frame as its first field, so
// these constants are valid byte offsets into *Context with no
// hand-duplication needed here.
const (
	offCallSelector = abi.OffCallSelector
	offCallArg0     = abi.OffCallArg0
	offCallArg1     = abi.OffCallArg1
	offCallResult   = abi.OffCallResult
	offTapeBasePtr  = abi.OffTapeBasePtr
	offHostFailed   = abi.OffHostFailed
)

const (
	callReadByte      = int(abi.CallReadByte)
	callWriteByte     = int(abi.CallWriteByte)
	callGrowTape      = int(abi.CallGrowTape)
	callInvokePromise = int(abi.CallInvokePromise)
)

// Backend implements jit.Backend for amd64.
type Backend struct{}

// New returns the amd64 backend.
func New() *Backend { return &Backend{} }

// Name identifies this backend.
func (b *Backend) Name() string { return "amd64" }

// compiler accumulates emitted bytes for one Compile call.
type compiler struct {
	buf             []byte
	inlineThreshold int
	addPromise      func([]ir.Node) int

	// epilogueJumps holds the patch sites of every jump emitted after a
	// vtable call to bail out on a host failure; they all target the
	// Ret at the very end of the emitted sequence.
	epilogueJumps []int
}

// Compile emits machine code for nodes per the engine's instruction selection
// and loop policy.
func (b *Backend) Compile(nodes []ir.Node, inlineThreshold int, addPromise func([]ir.Node) int) ([]byte, error) {
	c := &compiler{inlineThreshold: inlineThreshold, addPromise: addPromise}
	if err := c.emitSeq(nodes); err != nil {
		return nil, err
	}
	epilogue := len(c.buf)
	c.emit(amd64.Ret())
	for _, site := range c.epilogueJumps {
		end := site + 6
		writeRel32(c.buf[site+2:site+6], int32(epilogue-end))
	}
	return c.buf, nil
}

func (c *compiler) emit(b []byte) { c.buf = append(c.buf, b...) }

func (c *compiler) emitSeq(nodes []ir.Node) error {
	for _, nd := range nodes {
		if err := c.emitNode(nd); err != nil {
			return err
		}
	}
	return nil
}

func (c *compiler) emitNode(nd ir.Node) error {
	switch nd.Kind {
	case ir.Incr:
		c.emitAddImm(int(nd.Count))
	case ir.Decr:
		c.emitSubImm(int(nd.Count))
	case ir.Next:
		c.emit(amd64.AddqImm32R10(int32(nd.Offset)))
	case ir.Prev:
		c.emit(amd64.SubqImm32R10(int32(nd.Offset)))
		c.emitPrevUnderflowGuard()
	case ir.Set:
		c.emit(amd64.MovbImm8R10(nd.Count))
	case ir.Print:
		c.emit(amd64.MovzblR10ToEAX())
		c.emitVtableCall(callWriteByte, true)
	case ir.Read:
		c.emitVtableCall(callReadByte, false)
		// callResult holds the byte read, or -1 at end-of-stream. This
		// backend only supports the fixed EOFZero policy (see
		// DESIGN.md), so a negative result is clamped to 0 before being
		// stored into the current cell.
		c.emit(amd64.MovR11Disp32ToRAX(offCallResult))
		c.emit(amd64.CmpImm32EAX(0))
		site := c.emitJnsPlaceholder()
		c.emit(amd64.XorEAXEAX())
		c.patchJnsPlaceholder(site)
		c.emit(amd64.MovbALToR10())
	case ir.AddTo:
		c.emitTransfer(nd.Offset, 1)
	case ir.SubFrom:
		c.emitTransfer(nd.Offset, -1)
	case ir.MultiplyAddTo:
		if nd.Offset < 0 {
			c.emitOffsetUnderflowGuard(int32(nd.Offset))
		}
		c.emit(amd64.MovzblR10ToEAX())
		c.emit(amd64.ImulImm32EAX(int32(nd.Factor)))
		c.emit(amd64.AddbALToR10Disp32(int32(nd.Offset)))
		c.emit(amd64.MovbImm8R10(0))
	case ir.CopyTo:
		for _, off := range nd.Offsets {
			if off < 0 {
				c.emitOffsetUnderflowGuard(int32(off))
			}
		}
		c.emit(amd64.MovzblR10ToEAX())
		for _, off := range nd.Offsets {
			c.emit(amd64.AddbALToR10Disp32(int32(off)))
		}
		c.emit(amd64.MovbImm8R10(0))
	case ir.Loop:
		return c.emitLoop(nd)
	}
	return nil
}

func (c *compiler) emitTransfer(offset int, sign int) {
	if offset < 0 {
		c.emitOffsetUnderflowGuard(int32(offset))
	}
	c.emit(amd64.MovzblR10ToEAX())
	if sign < 0 {
		c.emit(amd64.NegAL())
	}
	c.emit(amd64.AddbALToR10Disp32(int32(offset)))
	c.emit(amd64.MovbImm8R10(0))
}

// emitPrevUnderflowGuard checks R10 (the data pointer, just decremented)
// against the tape's base address and routes through grow_tape with a
// sentinel negative index if it fell below it. Uses RAX, which at this
// point in ir.Prev's codegen holds no live value.
func (c *compiler) emitPrevUnderflowGuard() {
	c.emit(amd64.MovR11Disp32ToRAX(offTapeBasePtr))
	c.emit(amd64.CmpR10RAX())
	site := len(c.buf)
	c.emit(amd64.JaeRel32(0))
	c.emitUnderflowTrigger()
	end := site + 6
	writeRel32(c.buf[site+2:site+6], int32(len(c.buf)-end))
}

// emitOffsetUnderflowGuard checks a displaced address (R10+offset, offset
// known negative at compile time) against the tape base, using RDX/RCX
// scratch so the live transfer value staged in EAX/AL by the surrounding
// emitTransfer/MultiplyAddTo/CopyTo codegen is never clobbered.
func (c *compiler) emitOffsetUnderflowGuard(offset int32) {
	c.emit(amd64.LeaR10Disp32ToRDX(offset))
	c.emit(amd64.MovR11Disp32ToRCX(offTapeBasePtr))
	c.emit(amd64.CmpRDXRCX())
	site := len(c.buf)
	c.emit(amd64.JaeRel32(0))
	c.emitUnderflowTrigger()
	end := site + 6
	writeRel32(c.buf[site+2:site+6], int32(len(c.buf)-end))
}

// emitUnderflowTrigger routes through the grow_tape vtable slot with
// callArg0 set to -1, the sentinel Context.growTape treats as a fatal
// tape underflow (see internal/jit/context.go). Reuses the existing slot
// rather than adding a new one: grow_tape already owns tape-bounds
// decisions made from generated code.
func (c *compiler) emitUnderflowTrigger() {
	c.emit(amd64.MovImm64ToR11Disp32(offCallArg0, -1))
	c.emitVtableCall(callGrowTape, false)
}

// emitAddImm/emitSubImm split counts through the 8-bit immediate range,
// though Incr/Decr counts are already u8 so this is always one add.
func (c *compiler) emitAddImm(n int) {
	c.emit(amd64.AddbImm8R10(uint8(n)))
}

func (c *compiler) emitSubImm(n int) {
	c.emit(amd64.SubbImm8R10(uint8(n)))
}

// countNodes returns the total recursive node count of a sequence, the
// metric the inline threshold is measured against.
func countNodes(nodes []ir.Node) int {
	n := 0
	for _, nd := range nodes {
		n++
		if nd.Kind == ir.Loop {
			n += countNodes(nd.Body)
		}
	}
	return n
}

func (c *compiler) emitLoop(nd ir.Node) error {
	if countNodes(nd.Body) < c.inlineThreshold {
		return c.emitInlineLoop(nd)
	}
	return c.emitDeferredLoop(nd)
}

// emitInlineLoop emits: cmp cell,0; jz end; <body>; cmp cell,0; jnz
// start; end:
func (c *compiler) emitInlineLoop(nd ir.Node) error {
	c.emit(amd64.CmpbImm8R10Zero())
	forwardSite := len(c.buf)
	c.emit(amd64.JzRel32(0)) // patched below

	bodyStart := len(c.buf)
	if err := c.emitSeq(nd.Body); err != nil {
		return err
	}

	c.emit(amd64.CmpbImm8R10Zero())
	backSite := len(c.buf)
	c.emit(amd64.JnzRel32(0))
	backEnd := len(c.buf)
	backRel := int32(bodyStart - backEnd)
	writeRel32(c.buf[backSite+2:backSite+6], backRel)

	end := len(c.buf)
	fwdEnd := forwardSite + 6
	writeRel32(c.buf[forwardSite+2:forwardSite+6], int32(end-fwdEnd))
	return nil
}

// emitDeferredLoop registers the body as a promise and emits a call
// through the invoke_promise vtable slot, passing the promise id and the
// current data pointer (as an absolute address; the promise's own
// compiled entry and this call site share the same addressing scheme).
func (c *compiler) emitDeferredLoop(nd ir.Node) error {
	id := c.addPromise(nd.Body)
	c.emit(amd64.MovImm32ToR11Disp32(offCallArg0, int32(id)))
	// callArg1 (the current index) isn't meaningful under the absolute-
	// pointer addressing this backend uses throughout, so it's left at
	// its zero value; the promise's compiled entry operates on R10
	// directly, the same register invoke_promise's emitted call leaves
	// untouched aside from the save/restore around the call itself.
	c.emitVtableCall(callInvokePromise, false)
	return nil
}

// emitVtableCall emits the save-call-restore sequence around one vtable
// slot. If argFromEAX is true, EAX is stored into callArg0 before the
// call (the single-argument operations: write_byte).
func (c *compiler) emitVtableCall(slot int, argFromEAX bool) {
	if argFromEAX {
		c.emit(amd64.MovEAXToR11Disp32(offCallArg0))
	}
	c.emit(amd64.MovImm32ToR11Disp32(offCallSelector, int32(slot)))

	c.emit(amd64.PushR10())
	c.emit(amd64.PushR11())
	c.emit(amd64.PushR12())

	c.emit(amd64.MovR11ToRAX())
	c.emit(amd64.CallR12Disp8(int8(slot * 8)))

	c.emit(amd64.PopR12())
	c.emit(amd64.PopR11())
	c.emit(amd64.PopR10())

	// Unwind to the epilogue immediately if the callback recorded a
	// fatal error. The jump target isn't known
	// until Compile finishes emitting the Ret, so the site is recorded
	// and patched there.
	c.emit(amd64.CmpqImm8R11Disp32Zero(offHostFailed))
	c.epilogueJumps = append(c.epilogueJumps, len(c.buf))
	c.emit(amd64.JnzRel32(0))
}

func (c *compiler) emitJnsPlaceholder() int {
	site := len(c.buf)
	c.emit(amd64.JnsRel32(0))
	return site
}

func (c *compiler) patchJnsPlaceholder(site int) {
	end := site + 6
	writeRel32(c.buf[site+2:site+6], int32(len(c.buf)-end))
}

func writeRel32(buf []byte, v int32) {
	buf[0] = byte(v)
	buf[1] = byte(v >> 8)
	buf[2] = byte(v >> 16)
	buf[3] = byte(v >> 24)
}

// Invoke loads code, ctx, and a vtable (every slot resolving to dispatch)
// into the fixed register ABI via the trampoline, runs it, and returns
// the final tape index.
func (b *Backend) Invoke(region *page.Region, ctx unsafe.Pointer, dispatch uintptr, tapeBase unsafe.Pointer, initialIndex int) int {
	vt, keepAlive := buildVtable(dispatch)
	final := callTrampoline(region.Entry(), ctx, vt, tapeBase, int64(initialIndex))
	runtime.KeepAlive(keepAlive)
	return int(final)
}
