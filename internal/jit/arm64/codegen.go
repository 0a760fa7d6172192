// Package arm64 implements the JIT backend for the AArch64 host
// architecture, mirroring internal/jit/amd64's structure: instruction
// selection over the tree IR, the hybrid inline/deferred loop policy,
// and a trampoline bridging into and out of generated code. Selected by
// internal/jit/engine_arm64.go; never imports internal/jit.
package arm64

import (
	"runtime"
	"unsafe"

	"github.com/lcox74/bfjit/internal/ir"
	"github.com/lcox74/bfjit/internal/jit/abi"
	"github.com/lcox74/bfjit/internal/jit/page"
	"github.com/lcox74/bfjit/pkg/arm64"
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

// Backend implements jit.Backend for arm64.
type Backend struct{}

// New returns the arm64 backend.
func New() *Backend { return &Backend{} }

// Name identifies this backend.
func (b *Backend) Name() string { return "arm64" }

type compiler struct {
	buf             []byte
	inlineThreshold int
	addPromise      func([]ir.Node) int
	epilogueJumps   []int
}

// Compile emits AArch64 machine code for nodes.
func (b *Backend) Compile(nodes []ir.Node, inlineThreshold int, addPromise func([]ir.Node) int) ([]byte, error) {
	c := &compiler{inlineThreshold: inlineThreshold, addPromise: addPromise}
	if err := c.emitSeq(nodes); err != nil {
		return nil, err
	}
	epilogue := len(c.buf)
	c.emit(arm64.Ret())
	for _, site := range c.epilogueJumps {
		patchBranch19At(c.buf, site, epilogue)
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
		c.emit(arm64.LdrbW9DP())
		c.emit(arm64.AddImm32W9(uint32(nd.Count)))
		c.emit(arm64.StrbW9DP())
	case ir.Decr:
		c.emit(arm64.LdrbW9DP())
		c.emit(arm64.SubImm32W9(uint32(nd.Count)))
		c.emit(arm64.StrbW9DP())
	case ir.Next:
		c.emit(arm64.MovImm32W9(uint32(nd.Offset)))
		c.emit(arm64.AddXDPScratch1())
	case ir.Prev:
		c.emit(arm64.MovImm32W9(uint32(nd.Offset)))
		c.emit(arm64.SubXDPScratch1())
		c.emitPrevUnderflowGuard()
	case ir.Set:
		c.emit(arm64.MovImm32W9(uint32(nd.Count)))
		c.emit(arm64.StrbW9DP())
	case ir.Print:
		c.emit(arm64.LdrbW9DP())
		c.emitVtableCall(callWriteByte, true)
	case ir.Read:
		c.emitVtableCall(callReadByte, false)
		c.emit(arm64.LdrImm64CtxDispToX9(offCallResult))
		// Result is either a non-negative byte or -1 (end-of-stream);
		// this backend supports only the fixed EOFZero policy, so a
		// negative result (sign bit 63 set) stores 0 instead. The skip
		// branch covers exactly the one MOVZ instruction that follows.
		c.emit(arm64.TbzX9(63, 8))
		c.emit(arm64.MovImm32W9(0))
		c.emit(arm64.StrbW9DP())
	case ir.AddTo:
		c.emitTransfer(nd.Offset, 1)
	case ir.SubFrom:
		c.emitTransfer(nd.Offset, -1)
	case ir.MultiplyAddTo:
		if nd.Offset < 0 {
			c.emitOffsetUnderflowGuard(int32(nd.Offset))
		}
		c.emit(arm64.LdrbW9DP())
		c.emit(arm64.MovImm32W10(uint32(nd.Factor)))
		c.emit(arm64.MulW9W10())
		c.emit(arm64.LdrbW10DPDisp(int32(nd.Offset)))
		c.emit(arm64.AddW9W10())
		c.emit(arm64.StrbW9DPDisp(int32(nd.Offset)))
		c.emit(arm64.MovImm32W9(0))
		c.emit(arm64.StrbW9DP())
	case ir.CopyTo:
		for _, off := range nd.Offsets {
			if off < 0 {
				c.emitOffsetUnderflowGuard(int32(off))
			}
		}
		for _, off := range nd.Offsets {
			c.emit(arm64.LdrbW9DP())
			c.emit(arm64.LdrbW10DPDisp(int32(off)))
			c.emit(arm64.AddW9W10())
			c.emit(arm64.StrbW9DPDisp(int32(off)))
		}
		c.emit(arm64.MovImm32W9(0))
		c.emit(arm64.StrbW9DP())
	case ir.Loop:
		return c.emitLoop(nd)
	}
	return nil
}

// emitTransfer implements AddTo/SubFrom: load the current cell, add or
// subtract it into the cell at offset, then zero the source.
func (c *compiler) emitTransfer(offset int, sign int) {
	if offset < 0 {
		c.emitOffsetUnderflowGuard(int32(offset))
	}
	c.emit(arm64.LdrbW9DP())
	if sign < 0 {
		c.emit(arm64.NegW9())
	}
	c.emit(arm64.LdrbW10DPDisp(int32(offset)))
	c.emit(arm64.AddW9W10())
	c.emit(arm64.StrbW9DPDisp(int32(offset)))
	c.emit(arm64.MovImm32W9(0))
	c.emit(arm64.StrbW9DP())
}

// emitPrevUnderflowGuard checks the data pointer, just decremented,
// against the tape's base address and routes through grow_tape with a
// sentinel negative index if it fell below it. Uses X11/X12, distinct
// from the W9/W10 scratch registers Prev's own codegen leaves live.
func (c *compiler) emitPrevUnderflowGuard() {
	c.emit(arm64.LdrImm64CtxDispToX12(offTapeBasePtr))
	c.emit(arm64.CmpDPX12())
	site := len(c.buf)
	c.emit(arm64.Bhs(0))
	c.emitUnderflowTrigger()
	patchBranch19At(c.buf, site, len(c.buf))
}

// emitOffsetUnderflowGuard checks a displaced address (DP minus the
// offset's magnitude, offset known negative at compile time) against the
// tape base, using X11/X12 so the live transfer value staged in W9/W10 by
// the surrounding emitTransfer/MultiplyAddTo/CopyTo codegen is never
// clobbered. The SUB immediate this relies on only covers magnitudes up
// to 4095, the same limit pkg/arm64's other displaced load/store
// encoders carry.
func (c *compiler) emitOffsetUnderflowGuard(offset int32) {
	c.emit(arm64.SubImm64X11DP(uint32(-offset)))
	c.emit(arm64.LdrImm64CtxDispToX12(offTapeBasePtr))
	c.emit(arm64.CmpX11X12())
	site := len(c.buf)
	c.emit(arm64.Bhs(0))
	c.emitUnderflowTrigger()
	patchBranch19At(c.buf, site, len(c.buf))
}

// emitUnderflowTrigger routes through the grow_tape vtable slot with
// callArg0 set to -1, the sentinel Context.growTape treats as a fatal
// tape underflow (see internal/jit/context.go). Reuses the existing slot
// rather than adding a new one: grow_tape already owns tape-bounds
// decisions made from generated code.
func (c *compiler) emitUnderflowTrigger() {
	c.emit(arm64.MovnX11AllOnes())
	c.emit(arm64.StrImm64CtxDispFromX11(offCallArg0))
	c.emitVtableCall(callGrowTape, false)
}

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

func (c *compiler) emitInlineLoop(nd ir.Node) error {
	c.emit(arm64.LdrbW9DP())
	forwardSite := len(c.buf)
	c.emit(arm64.CbzW9(0))

	bodyStart := len(c.buf)
	if err := c.emitSeq(nd.Body); err != nil {
		return err
	}

	c.emit(arm64.LdrbW9DP())
	backSite := len(c.buf)
	c.emit(arm64.CbnzW9(0))
	patchBranch19At(c.buf, backSite, bodyStart)

	end := len(c.buf)
	patchBranch19At(c.buf, forwardSite, end)
	return nil
}

func (c *compiler) emitDeferredLoop(nd ir.Node) error {
	id := c.addPromise(nd.Body)
	c.emit(arm64.MovImm32W9(uint32(id)))
	c.emit(arm64.StrImm32CtxDisp(offCallArg0))
	c.emitVtableCall(callInvokePromise, false)
	return nil
}

// emitVtableCall marshals the selector (and, if argFromW9, the loaded
// value in W9) into Context fields, spills the reserved registers, calls
// through the vtable, restores, and bails to the epilogue on failure.
func (c *compiler) emitVtableCall(slot int, argFromW9 bool) {
	if argFromW9 {
		c.emit(arm64.StrImm32CtxDisp(offCallArg0))
	}
	c.emit(arm64.MovImm32W9(uint32(slot)))
	c.emit(arm64.StrImm32CtxDisp(offCallSelector))

	c.emit(arm64.StpPreDecDPCtxVtable())
	c.emit(arm64.MovXCtxToX0())
	c.emit(arm64.LdrX9Vtable(int32(slot * 8)))
	c.emit(arm64.Blr())
	c.emit(arm64.LdpPostIncDPCtxVtable())

	c.emit(arm64.LdrImm64CtxDispToX9(offHostFailed))
	c.emit(arm64.CmpImm64X9Zero())
	c.epilogueJumps = append(c.epilogueJumps, len(c.buf))
	c.emit(arm64.Bne(0))
}

// patchBranch19At patches a CBZ/CBNZ/B.cond at site whose imm19 field
// sits at bits [23:5] to branch to target.
func patchBranch19At(buf []byte, site int, target int) {
	rel := int32(target - site)
	imm19 := (rel >> 2) & 0x7ffff
	instr := uint32(buf[site]) | uint32(buf[site+1])<<8 | uint32(buf[site+2])<<16 | uint32(buf[site+3])<<24
	instr &^= 0x7ffff << 5
	instr |= uint32(imm19) << 5
	buf[site] = byte(instr)
	buf[site+1] = byte(instr >> 8)
	buf[site+2] = byte(instr >> 16)
	buf[site+3] = byte(instr >> 24)
}

// Invoke runs code through the trampoline.
func (b *Backend) Invoke(region *page.Region, ctx unsafe.Pointer, dispatch uintptr, tapeBase unsafe.Pointer, initialIndex int) int {
	vt, keepAlive := buildVtable(dispatch)
	final := callTrampoline(region.Entry(), ctx, vt, tapeBase, int64(initialIndex))
	runtime.KeepAlive(keepAlive)
	return int(final)
}
