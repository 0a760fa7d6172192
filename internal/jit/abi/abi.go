// Package abi defines the Context marshaling layout generated code and
// internal/jit's Go-side Dispatch function both agree on. It exists so
// the two arch backends (internal/jit/amd64, internal/jit/arm64) never
// have to hand-duplicate internal/jit's unexported Context layout: they
// import this package directly for both the field offsets and the call
// selectors instead.
package abi

import "unsafe"

// Frame is the fixed-layout marshaling area crossing the Go call boundary
// through the single reserved ctx-pointer register: the assembly vtable
// shim writes CallSelector/CallArg0/CallArg1 and calls Dispatch; Dispatch
// stores its result back here (and also returns it, so callers that can
// keep the return register skip the reload).
//
// internal/jit's Context embeds Frame as its literal first field, which
// by Go's struct-layout guarantee (a struct shares its first field's
// address) makes the Off* constants below valid byte offsets directly
// into *Context with no further translation needed on either side.
type Frame struct {
	CallSelector int32
	CallArg0     int64
	CallArg1     int64
	CallResult   int64

	// TapeBasePtr/TapeLen mirror the tape's current backing array so
	// generated code can reload its data-pointer register directly from
	// Context memory after any callback that may have grown the tape.
	TapeBasePtr uintptr
	TapeLen     int64

	// HostFailed is set to 1 by Dispatch when a callback recorded a
	// fatal error. Generated code checks this immediately after every
	// vtable call and, if set, jumps straight to the function epilogue
	// instead of continuing to execute BrainFuck nodes.
	HostFailed int64
}

// Off* are Frame's field offsets, computed once via unsafe.Offsetof so
// neither arch package ever has to hand-copy (and risk drifting from)
// Context's real layout.
const (
	OffCallSelector = int32(unsafe.Offsetof(Frame{}.CallSelector))
	OffCallArg0     = int32(unsafe.Offsetof(Frame{}.CallArg0))
	OffCallArg1     = int32(unsafe.Offsetof(Frame{}.CallArg1))
	OffCallResult   = int32(unsafe.Offsetof(Frame{}.CallResult))
	OffTapeBasePtr  = int32(unsafe.Offsetof(Frame{}.TapeBasePtr))
	OffTapeLen      = int32(unsafe.Offsetof(Frame{}.TapeLen))
	OffHostFailed   = int32(unsafe.Offsetof(Frame{}.HostFailed))
)

// Call selectors identify which vtable slot a Dispatch call is invoking.
// Generated code writes one of these into Frame.CallSelector before
// calling back into Go, since the fixed three-register ABI leaves no
// spare register for a selector-plus-arguments calling convention.
const (
	CallReadByte = int32(iota)
	CallWriteByte
	CallGrowTape
	CallInvokePromise
)
