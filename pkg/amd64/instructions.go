package amd64

// This file contains x86_64 instruction encoders for the engine's fixed
// register ABI: R10 holds the data pointer (the absolute address of the
// current cell, not a base+index pair), R11 holds the JIT context
// pointer, and R12 holds the vtable pointer. Because R10 and R11 don't
// need a SIB byte for base-only addressing (unlike R12 and R13, which
// the encoding always routes through SIB), most of these are a byte or
// two shorter than the base+index forms this package originally had.
//
// For details on x86-64 instruction encoding (REX prefixes, ModRM, SIB
// bytes), see: https://wiki.osdev.org/X86-64_Instruction_Encoding

// AddbImm8R10 encodes: addb $imm8, (%r10) (41 80 02 <imm8>)
// Implements Incr(n) against the current cell.
func AddbImm8R10(imm8 uint8) []byte {
	// 41 = REX.B (R10 as ModRM.rm)
	// 80 /0 ib = add r/m8, imm8
	// ModRM: 00 (no disp, register-indirect) 000 (/0) 010 (r10) = 02
	return []byte{0x41, 0x80, 0x02, imm8}
}

// SubbImm8R10 encodes: subb $imm8, (%r10) (41 80 2A <imm8>)
// Implements Decr(n).
func SubbImm8R10(imm8 uint8) []byte {
	// 80 /5 ib = sub r/m8, imm8; ModRM: 00 101 010 = 2A
	return []byte{0x41, 0x80, 0x2A, imm8}
}

// MovbImm8R10 encodes: movb $imm8, (%r10) (41 C6 02 <imm8>)
// Implements Set(v).
func MovbImm8R10(imm8 uint8) []byte {
	// C6 /0 ib = mov r/m8, imm8; ModRM: 00 000 010 = 02
	return []byte{0x41, 0xC6, 0x02, imm8}
}

// CmpbImm8R10Zero encodes: cmpb $0, (%r10) (41 80 3A 00)
// Sets ZF from the current cell without modifying it; used for both the
// forward ("skip if zero") and backward ("loop if not zero") loop guards.
func CmpbImm8R10Zero() []byte {
	// 80 /7 ib = cmp r/m8, imm8; ModRM: 00 111 010 = 3A
	return []byte{0x41, 0x80, 0x3A, 0x00}
}

// MovzblR10ToEAX encodes: movzbl (%r10), %eax (41 0F B6 02)
// Zero-extends the current cell into EAX, the scratch register the
// AddTo/SubFrom/MultiplyAddTo/CopyTo sequences build their transfer from.
func MovzblR10ToEAX() []byte {
	// 0F B6 /r = movzx r32, r/m8; ModRM: 00 000 010 = 02
	return []byte{0x41, 0x0F, 0xB6, 0x02}
}

// AddbALToR10Disp32 encodes: addb %al, disp32(%r10) (41 00 82 <disp32>)
// Adds AL into the cell at a fixed signed offset from the data pointer,
// the core of AddTo/SubFrom (after negating AL)/MultiplyAddTo (after
// scaling AL)/CopyTo (once per offset).
func AddbALToR10Disp32(disp32 int32) []byte {
	// 00 /r = add r/m8, r8; ModRM: 10 (disp32) 000 (al) 010 (r10) = 82
	buf := make([]byte, 7)
	buf[0] = 0x41
	buf[1] = 0x00
	buf[2] = 0x82
	writeLE32(buf[3:], uint32(disp32))
	return buf
}

// NegAL encodes: negb %al (F6 D8)
// Negates AL in place; used to turn a loaded value into a subtraction
// before AddbALToR10Disp32 for SubFrom.
func NegAL() []byte {
	// F6 /3 = neg r/m8; ModRM: 11 011 000 = D8
	return []byte{0xF6, 0xD8}
}

// ImulImm32EAX encodes: imul $imm32, %eax, %eax (69 C0 <imm32>)
// Scales EAX by a fixed factor, used by MultiplyAddTo between loading the
// current cell and storing into each destination offset.
func ImulImm32EAX(imm32 int32) []byte {
	// 69 /r id = imul r32, r/m32, imm32; ModRM: 11 000 000 = C0
	buf := make([]byte, 6)
	buf[0] = 0x69
	buf[1] = 0xC0
	writeLE32(buf[2:], uint32(imm32))
	return buf
}

// AddqImm32R10 encodes: addq $imm32, %r10 (49 81 C2 <imm32>)
// Implements Next(n): moves the data pointer forward by n bytes.
func AddqImm32R10(imm32 int32) []byte {
	// REX.WB (49); 81 /0 id = add r/m64, imm32; ModRM: 11 000 010 = C2
	buf := make([]byte, 7)
	buf[0] = 0x49
	buf[1] = 0x81
	buf[2] = 0xC2
	writeLE32(buf[3:], uint32(imm32))
	return buf
}

// SubqImm32R10 encodes: subq $imm32, %r10 (49 81 EA <imm32>)
// Implements Prev(n).
func SubqImm32R10(imm32 int32) []byte {
	// 81 /5 id = sub r/m64, imm32; ModRM: 11 101 010 = EA
	buf := make([]byte, 7)
	buf[0] = 0x49
	buf[1] = 0x81
	buf[2] = 0xEA
	writeLE32(buf[3:], uint32(imm32))
	return buf
}

// PushR10, PushR11, PushR12 encode: push %r10/%r11/%r12 (41 52/53/54)
// Used by the vtable shims to preserve the reserved registers around a
// call back into Go, which is free to clobber any register it likes.
func PushR10() []byte { return []byte{0x41, 0x52} }
func PushR11() []byte { return []byte{0x41, 0x53} }
func PushR12() []byte { return []byte{0x41, 0x54} }

// PopR10, PopR11, PopR12 encode: pop %r10/%r11/%r12 (41 5A/5B/5C)
func PopR10() []byte { return []byte{0x41, 0x5A} }
func PopR11() []byte { return []byte{0x41, 0x5B} }
func PopR12() []byte { return []byte{0x41, 0x5C} }

// MovR11ToRAX encodes: movq %r11, %rax (4C 89 D8)
// Moves the ctx pointer into RAX, the register Go's internal ABI reads
// its first pointer argument from, right before a shim calls into
// jit.Dispatch.
func MovR11ToRAX() []byte {
	// REX.WR (4C); 89 /r = mov r/m64, r64; ModRM: 11 011 000 = D8
	return []byte{0x4C, 0x89, 0xD8}
}

// CallR12Disp8 encodes: call *disp8(%r12) (41 FF 52 24 <disp8>)
// Calls indirectly through one slot of the vtable R12 points at.
func CallR12Disp8(disp8 int8) []byte {
	// 41 = REX.B (R12 in SIB.base); FF /2 = call r/m64
	// ModRM: 01 (disp8) 010 (/2) 100 (SIB) = 52
	// SIB: 00 (scale=1) 100 (no index) 100 (r12 base) = 24
	return []byte{0x41, 0xFF, 0x52, 0x24, byte(disp8)}
}

// MovEAXToR11Disp32 encodes: movl %eax, disp32(%r11) (41 89 83 <disp32>)
// Stores a 32-bit scratch value into a Context field at a fixed offset
// from the ctx-pointer register, part of marshaling a vtable call's
// argument through memory rather than a spare register (the ABI only
// reserves three registers, none spare for a selector-plus-argument
// calling convention).
func MovEAXToR11Disp32(disp32 int32) []byte {
	// 41 = REX.B (R11 as ModRM.rm); 89 /r = mov r/m32, r32
	// ModRM: 10 (disp32) 000 (eax) 011 (r11) = 83
	buf := make([]byte, 7)
	buf[0] = 0x41
	buf[1] = 0x89
	buf[2] = 0x83
	writeLE32(buf[3:], uint32(disp32))
	return buf
}

// MovImm32ToR11Disp32 encodes: movl $imm32, disp32(%r11) (41 C7 83 <disp32> <imm32>)
// Stores a compile-time-known selector constant into a Context field.
func MovImm32ToR11Disp32(disp32 int32, imm32 int32) []byte {
	// 41 = REX.B; C7 /0 id = mov r/m32, imm32
	// ModRM: 10 (disp32) 000 (/0) 011 (r11) = 83
	buf := make([]byte, 11)
	buf[0] = 0x41
	buf[1] = 0xC7
	buf[2] = 0x83
	writeLE32(buf[3:7], uint32(disp32))
	writeLE32(buf[7:], uint32(imm32))
	return buf
}

// MovR11Disp32ToRAX encodes: movq disp32(%r11), %rax (49 8B 83 <disp32>)
// Loads a Context field back into RAX — used both after a vtable call
// returns (callResult) and by the tape-underflow guard (tapeBasePtr).
func MovR11Disp32ToRAX(disp32 int32) []byte {
	// REX.WB (49); 8B /r = mov r64, r/m64
	// ModRM: 10 (disp32) 000 (rax) 011 (r11) = 83
	buf := make([]byte, 7)
	buf[0] = 0x49
	buf[1] = 0x8B
	buf[2] = 0x83
	writeLE32(buf[3:], uint32(disp32))
	return buf
}

// MovR11Disp32ToRCX encodes: movq disp32(%r11), %rcx (49 8B 8B <disp32>)
// Loads a Context field into RCX instead of RAX, so the tape-underflow
// guard's offset check can hold the tape's base address without
// clobbering a displaced address already computed into RAX.
func MovR11Disp32ToRCX(disp32 int32) []byte {
	// REX.WB (49); 8B /r = mov r64, r/m64
	// ModRM: 10 (disp32) 001 (rcx) 011 (r11) = 8B
	buf := make([]byte, 7)
	buf[0] = 0x49
	buf[1] = 0x8B
	buf[2] = 0x8B
	writeLE32(buf[3:], uint32(disp32))
	return buf
}

// MovImm64ToR11Disp32 encodes: movq $imm32, disp32(%r11) (49 C7 83 <disp32> <imm32>)
// Like MovImm32ToR11Disp32 but with a 64-bit operand size, sign-extending
// imm32 into the full 8-byte field. Needed whenever the stored value must
// read back as a negative int64 (MovImm32ToR11Disp32 only ever touches
// the field's low 32 bits, so it cannot deliver a correctly-signed
// negative value into an int64 Context field).
func MovImm64ToR11Disp32(disp32 int32, imm32 int32) []byte {
	// REX.WB (49); C7 /0 id = mov r/m64, imm32 (sign-extended)
	// ModRM: 10 (disp32) 000 (/0) 011 (r11) = 83
	buf := make([]byte, 11)
	buf[0] = 0x49
	buf[1] = 0xC7
	buf[2] = 0x83
	writeLE32(buf[3:7], uint32(disp32))
	writeLE32(buf[7:], uint32(imm32))
	return buf
}

// LeaR10Disp32ToRDX encodes: lea disp32(%r10), %rdx (49 8D 92 <disp32>)
// Computes the absolute address of a cell at a fixed displacement from
// the data pointer without dereferencing it — the tape-underflow guard
// uses this to check a negative-offset access before it happens, while
// leaving RAX (which may hold a live transfer value) untouched.
func LeaR10Disp32ToRDX(disp32 int32) []byte {
	// REX.WB (49); 8D /r = lea r64, m
	// ModRM: 10 (disp32) 010 (rdx) 010 (r10) = 92
	buf := make([]byte, 7)
	buf[0] = 0x49
	buf[1] = 0x8D
	buf[2] = 0x92
	writeLE32(buf[3:], uint32(disp32))
	return buf
}

// CmpR10RAX encodes: cmp %rax, %r10 (49 39 C2)
// Computes r10 - rax, leaving flags for an unsigned below/above-or-equal
// test — used by the Prev underflow guard to compare the (already
// decremented) data pointer against the tape's base address.
func CmpR10RAX() []byte {
	// REX.WB (49); 39 /r = cmp r/m64, r64; ModRM: 11 000 010 = C2
	return []byte{0x49, 0x39, 0xC2}
}

// CmpRDXRCX encodes: cmp %rcx, %rdx (48 39 CA)
// Computes rdx - rcx, leaving flags for an unsigned below/above-or-equal
// test — used by the offset underflow guard to compare a displaced
// address (in RDX) against the tape's base address (in RCX).
func CmpRDXRCX() []byte {
	// REX.W (48); 39 /r = cmp r/m64, r64; ModRM: 11 001 010 = CA
	return []byte{0x48, 0x39, 0xCA}
}

// CmpqImm8R11Disp32Zero encodes: cmpq $0, disp32(%r11) (49 83 BB <disp32> 00)
// Tests Context.hostFailed, set by jit.Dispatch after a callback recorded
// a fatal error.
func CmpqImm8R11Disp32Zero(disp32 int32) []byte {
	// REX.WB (49); 83 /7 ib = cmp r/m64, imm8
	// ModRM: 10 (disp32) 111 (/7) 011 (r11) = BB
	buf := make([]byte, 8)
	buf[0] = 0x49
	buf[1] = 0x83
	buf[2] = 0xBB
	writeLE32(buf[3:7], uint32(disp32))
	buf[7] = 0x00
	return buf
}

// CmpImm32EAX encodes: cmp $imm32, %eax (3D <imm32>)
// Used by Read to test whether the vtable call's result was the
// end-of-stream sentinel (-1) before storing it into the current cell.
func CmpImm32EAX(imm32 int32) []byte {
	buf := make([]byte, 5)
	buf[0] = 0x3D
	writeLE32(buf[1:], uint32(imm32))
	return buf
}

// XorEAXEAX encodes: xor %eax, %eax (31 C0)
func XorEAXEAX() []byte {
	return []byte{0x31, 0xC0}
}

// MovbALToR10 encodes: movb %al, (%r10) (41 88 02)
// Stores AL into the current cell; the final step of Read.
func MovbALToR10() []byte {
	// 88 /r = mov r/m8, r8; ModRM: 00 000 010 = 02
	return []byte{0x41, 0x88, 0x02}
}

// JnsRel32 encodes: jns rel32 (0F 89 <rel32>)
// Jump if the sign flag is clear (the compared value was >= 0).
func JnsRel32(rel32 int32) []byte {
	buf := make([]byte, 6)
	buf[0] = 0x0F
	buf[1] = 0x89
	writeLE32(buf[2:], uint32(rel32))
	return buf
}

// JaeRel32 encodes: jae rel32 (0F 83 <rel32>)
// Jump if above-or-equal (CF clear, unsigned >=) — the tape-underflow
// guards use this to skip their (rare) trigger sequence when the checked
// address is still at or above the tape's base.
func JaeRel32(rel32 int32) []byte {
	buf := make([]byte, 6)
	buf[0] = 0x0F
	buf[1] = 0x83
	writeLE32(buf[2:], uint32(rel32))
	return buf
}

// JzRel32 encodes: jz rel32 (0F 84 <rel32>)
// Jump if zero flag is set. rel32 is relative to end of instruction.
func JzRel32(rel32 int32) []byte {
	buf := make([]byte, 6)
	buf[0] = 0x0F
	buf[1] = 0x84
	writeLE32(buf[2:], uint32(rel32))
	return buf
}

// JnzRel32 encodes: jnz rel32 (0F 85 <rel32>)
// Jump if zero flag is not set. rel32 is relative to end of instruction.
func JnzRel32(rel32 int32) []byte {
	buf := make([]byte, 6)
	buf[0] = 0x0F
	buf[1] = 0x85
	writeLE32(buf[2:], uint32(rel32))
	return buf
}

// Ret encodes: ret (C3)
func Ret() []byte {
	return []byte{0xC3}
}
