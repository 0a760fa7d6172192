// Package arm64 encodes the fixed 32-bit AArch64 instructions the JIT
// backend emits. It targets the same three-register ABI as pkg/amd64,
// mapped onto callee-saved AArch64 registers: X19 the data pointer, X20
// the JIT context pointer, X21 the vtable pointer, leaving X9/X10/W9/W10
// as scratch. Bit layouts are adapted from the AArch64 Architecture
// Reference Manual's instruction encodings.
package arm64

import "encoding/binary"

const (
	regDP     = 19 // X19
	regCtx    = 20 // X20
	regVtable = 21 // X21
	regScratch1 = 9  // X9 / W9
	regScratch2 = 10 // X10 / W10
	regGuardAddr = 11 // X11, tape-underflow guard: candidate address
	regGuardBase = 12 // X12, tape-underflow guard: tape base
	regLR       = 30
	regSP       = 31
)

func encode(instr uint32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, instr)
	return buf
}

// LdrbW9DP encodes: ldrb w9, [x19] — loads the current cell, zero-extended.
func LdrbW9DP() []byte {
	// LDRB (immediate, unsigned offset, #0): size=00, opc=01
	instr := uint32(0x39400000) | (regDP << 5) | regScratch1
	return encode(instr)
}

// StrbW9DP encodes: strb w9, [x19] — stores the scratch register into the
// current cell.
func StrbW9DP() []byte {
	instr := uint32(0x39000000) | (regDP << 5) | regScratch1
	return encode(instr)
}

// ldrbOffset / strbOffset encode byte load/store at a fixed displacement
// from the data pointer, used by AddTo/SubFrom/MultiplyAddTo/CopyTo.
// offset must fit the unsigned 12-bit (post-scale, byte-scale so no
// further scaling applies) immediate form; BrainFuck cell offsets coming
// out of the tree IR are small in practice, so the unscaled LDURB/STURB
// forms cover the (rare) negative case.
func ldrbOffset(reg uint32, base uint32, offset int32) []byte {
	if offset >= 0 && offset < 4096 {
		instr := uint32(0x39400000) | (uint32(offset) << 10) | (base << 5) | reg
		return encode(instr)
	}
	imm9 := uint32(offset) & 0x1ff
	instr := uint32(0x38400000) | (imm9 << 12) | (base << 5) | reg
	return encode(instr)
}

func strbOffset(reg uint32, base uint32, offset int32) []byte {
	if offset >= 0 && offset < 4096 {
		instr := uint32(0x39000000) | (uint32(offset) << 10) | (base << 5) | reg
		return encode(instr)
	}
	imm9 := uint32(offset) & 0x1ff
	instr := uint32(0x38000000) | (imm9 << 12) | (base << 5) | reg
	return encode(instr)
}

// LdrbW10DPDisp moves the second scratch register from a fixed-offset
// cell relative to the data pointer.
func LdrbW10DPDisp(offset int32) []byte { return ldrbOffset(regScratch2, regDP, offset) }

// StrbW9DPDisp stores the first scratch register at a fixed-offset cell
// relative to the data pointer.
func StrbW9DPDisp(offset int32) []byte { return strbOffset(regScratch1, regDP, offset) }

// AddImm32W9 encodes: add w9, w9, #imm (imm12).
func AddImm32W9(imm uint32) []byte {
	instr := uint32(0x11000000) | (imm << 10) | (regScratch1 << 5) | regScratch1
	return encode(instr)
}

// SubImm32W9 encodes: sub w9, w9, #imm (imm12).
func SubImm32W9(imm uint32) []byte {
	instr := uint32(0x51000000) | (imm << 10) | (regScratch1 << 5) | regScratch1
	return encode(instr)
}

// MovImm32W9 encodes: movz w9, #imm16.
func MovImm32W9(imm uint32) []byte {
	instr := uint32(0x52800000) | ((imm & 0xffff) << 5) | regScratch1
	return encode(instr)
}

// MovImm32W10 encodes: movz w10, #imm16.
func MovImm32W10(imm uint32) []byte {
	instr := uint32(0x52800000) | ((imm & 0xffff) << 5) | regScratch2
	return encode(instr)
}

// NegW9 encodes: neg w9, w9 (alias for sub w9, wzr, w9).
func NegW9() []byte {
	instr := uint32(0x4b0003e0) | (regScratch1 << 16) | regScratch1
	return encode(instr)
}

// MulW9W10 encodes: mul w9, w9, w10 (alias for madd w9, w9, w10, wzr).
func MulW9W10() []byte {
	instr := uint32(0x1b007c00) | (regScratch2 << 16) | (regScratch1 << 5) | regScratch1
	return encode(instr)
}

// AddW9W10 encodes: add w9, w9, w10.
func AddW9W10() []byte {
	instr := uint32(0x0b000000) | (regScratch2 << 16) | (regScratch1 << 5) | regScratch1
	return encode(instr)
}

// AddXDPScratch1 encodes: add x19, x19, x9 — advances the data pointer by
// a value already loaded into X9 (Next/Prev with an arbitrary offset).
func AddXDPScratch1() []byte {
	instr := uint32(0x8b000000) | (regScratch1 << 16) | (regDP << 5) | regDP
	return encode(instr)
}

// SubXDPScratch1 encodes: sub x19, x19, x9.
func SubXDPScratch1() []byte {
	instr := uint32(0xcb000000) | (regScratch1 << 16) | (regDP << 5) | regDP
	return encode(instr)
}

// CbzW9 encodes: cbz w9, offset (branch if w9 == 0). offset is in bytes,
// relative to this instruction, and must be word-aligned.
func CbzW9(offset int32) []byte {
	imm19 := offset >> 2
	instr := uint32(0x34000000) | (uint32(imm19&0x7ffff) << 5) | regScratch1
	return encode(instr)
}

// CbnzW9 encodes: cbnz w9, offset.
func CbnzW9(offset int32) []byte {
	imm19 := offset >> 2
	instr := uint32(0x35000000) | (uint32(imm19&0x7ffff) << 5) | regScratch1
	return encode(instr)
}

// StrImm32CtxDisp encodes: str w9, [x20, #offset] — stores the scratch
// register into a Context field at a fixed byte offset, offset must be a
// multiple of 4 within the unsigned 12-bit scaled range.
func StrImm32CtxDisp(offset int32) []byte {
	instr := uint32(0xb9000000) | (uint32(offset/4) << 10) | (regCtx << 5) | regScratch1
	return encode(instr)
}

// LdrImm64CtxDispToX9 encodes: ldr x9, [x20, #offset] (offset a multiple
// of 8), used to read callResult/hostFailed (both int64 fields).
func LdrImm64CtxDispToX9(offset int32) []byte {
	instr := uint32(0xf9400000) | (uint32(offset/8) << 10) | (regCtx << 5) | regScratch1
	return encode(instr)
}

// CmpImm64X9Zero encodes: cmp x9, #0.
func CmpImm64X9Zero() []byte {
	instr := uint32(0xf100001f) | (regScratch1 << 5)
	return encode(instr)
}

// Bne/Beq encode B.cond with a relative offset.
func Bne(offset int32) []byte {
	imm19 := offset >> 2
	instr := uint32(0x54000001) | (uint32(imm19&0x7ffff) << 5)
	return encode(instr)
}

// tbz encodes TBZ/TBNZ Rt, #bit, offset — test a single bit of Rt and
// branch if it is zero (op=0) or non-zero (op=1).
func tbz(op uint32, reg uint32, bit uint32, offset int32) []byte {
	b5 := (bit >> 5) & 1
	b40 := bit & 0x1f
	imm14 := uint32(offset>>2) & 0x3fff
	instr := (b5 << 31) | (0x1b << 25) | (op << 24) | (b40 << 19) | (imm14 << 5) | reg
	return encode(instr)
}

// TbzX9 encodes: tbz x9, #bit, offset (branch if the given bit of X9 is
// clear).
func TbzX9(bit uint32, offset int32) []byte { return tbz(0, regScratch1, bit, offset) }

// LdrX9Vtable encodes: ldr x9, [x21, #offset] — loads one vtable slot
// (the dispatch function pointer) into X9 before an indirect call.
func LdrX9Vtable(offset int32) []byte {
	instr := uint32(0xf9400000) | (uint32(offset/8) << 10) | (regVtable << 5) | regScratch1
	return encode(instr)
}

// Blr encodes: blr x9 — calls the address in X9, linking X30.
func Blr() []byte {
	instr := uint32(0xd63f0000) | (regScratch1 << 5)
	return encode(instr)
}

// MovXCtxToX0 encodes: mov x0, x20 — places the ctx pointer in X0, the
// register Go's ABI reads its first argument from, ahead of a call into
// jit.Dispatch.
func MovXCtxToX0() []byte {
	instr := uint32(0xaa0003e0) | (regCtx << 16)
	return encode(instr)
}

// StpPreDecDPCtxVtable encodes: stp x19, x20, [sp, #-32]! followed by
// str x21, [sp, #16] — spills the three reserved registers before a call
// into Go, which is free to clobber them.
func StpPreDecDPCtxVtable() []byte {
	var out []byte
	// STP X19, X20, [SP, #-32]!
	instr := uint32(0xa9bf0000) | (regCtx << 10) | (regSP << 5) | regDP
	out = append(out, encode(instr)...)
	// STR X21, [SP, #16]
	instr2 := uint32(0xf9000000) | (uint32(16/8) << 10) | (regSP << 5) | regVtable
	out = append(out, encode(instr2)...)
	return out
}

// LdpPostIncDPCtxVtable is the matching restore for
// StpPreDecDPCtxVtable.
func LdpPostIncDPCtxVtable() []byte {
	var out []byte
	instr := uint32(0xf9400000) | (uint32(16/8) << 10) | (regSP << 5) | regVtable
	out = append(out, encode(instr)...)
	instr2 := uint32(0xa8c20000) | (regCtx << 10) | (regSP << 5) | regDP
	out = append(out, encode(instr2)...)
	return out
}

// Ret encodes: ret (return via X30).
func Ret() []byte {
	instr := uint32(0xd65f0000) | (regLR << 5)
	return encode(instr)
}

// SubImm64X11DP encodes: sub x11, x19, #imm12 — computes a candidate
// address at a compile-time-known negative displacement from the data
// pointer (as DP minus the displacement's magnitude) for the
// tape-underflow guard. imm12 covers only 0-4095; larger magnitudes
// aren't supported by this unshifted immediate form.
func SubImm64X11DP(imm12 uint32) []byte {
	instr := uint32(0xd1000000) | ((imm12 & 0xfff) << 10) | (regDP << 5) | regGuardAddr
	return encode(instr)
}

// LdrImm64CtxDispToX12 encodes: ldr x12, [x20, #offset] — loads the tape
// base address for the underflow guard into a register distinct from the
// scratch registers live transfer values occupy.
func LdrImm64CtxDispToX12(offset int32) []byte {
	instr := uint32(0xf9400000) | (uint32(offset/8) << 10) | (regCtx << 5) | regGuardBase
	return encode(instr)
}

// CmpX11X12 encodes: cmp x11, x12 (subs xzr, x11, x12).
func CmpX11X12() []byte {
	instr := uint32(0xeb000000) | (regGuardBase << 16) | (regGuardAddr << 5) | 31
	return encode(instr)
}

// CmpDPX12 encodes: cmp x19, x12 — compares the data pointer itself
// against the tape base, used by Prev's underflow guard after the
// pointer has already been decremented.
func CmpDPX12() []byte {
	instr := uint32(0xeb000000) | (regGuardBase << 16) | (regDP << 5) | 31
	return encode(instr)
}

// Bhs encodes: b.hs offset (branch if unsigned higher-or-same, CS/HS
// condition, cond=0b0010).
func Bhs(offset int32) []byte {
	imm19 := offset >> 2
	instr := uint32(0x54000000) | (uint32(imm19&0x7ffff) << 5) | 0x2
	return encode(instr)
}

// MovnX11AllOnes encodes: movn x11, #0 — sets X11 to -1, the sentinel
// Context.growTape treats as a fatal tape underflow.
func MovnX11AllOnes() []byte {
	instr := uint32(0x92800000) | regGuardAddr
	return encode(instr)
}

// StrImm64CtxDispFromX11 encodes: str x11, [x20, #offset].
func StrImm64CtxDispFromX11(offset int32) []byte {
	instr := uint32(0xf9000000) | (uint32(offset/8) << 10) | (regCtx << 5) | regGuardAddr
	return encode(instr)
}
