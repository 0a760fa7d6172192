package jit

import (
	"unsafe"

	"github.com/lcox74/bfjit/internal/interp"
	"github.com/lcox74/bfjit/internal/ioiface"
	"github.com/lcox74/bfjit/internal/jit/abi"
	"github.com/lcox74/bfjit/internal/tape"
)

// Call selectors identify which vtable slot a trampoline-side dispatch
// call is invoking, re-exported from internal/jit/abi so the arch
// backends and this package always agree on the exact same values.
const (
	callReadByte      = abi.CallReadByte
	callWriteByte     = abi.CallWriteByte
	callGrowTape      = abi.CallGrowTape
	callInvokePromise = abi.CallInvokePromise
)

// Context is the record generated code threads through every vtable
// callback: it owns the tape (so grow_tape can reallocate it safely), the
// I/O streams, the promise table, and a place to stash a fatal error so a
// callback failure can unwind back out through the trampoline rather than
// being silently swallowed in machine code.
//
// Lifetime: created before the first JIT call and destroyed after the
// program returns.
type Context struct {
	// Frame is embedded first so abi.Off* are valid byte offsets
	// straight into *Context; see that package's doc comment. Neither
	// arch backend ever needs its own copy of these offsets.
	abi.Frame

	tape        *tape.Tape
	src         ioiface.Source
	sink        ioiface.Sink
	eofBehavior interp.EOFBehavior
	promises    promiseTable

	engine *Engine // back-reference, needed so invoke_promise can codegen lazily

	fatal error // sticky; set by a vtable callback, checked after every call
}

// syncTapeView refreshes Frame.TapeBasePtr/TapeLen after a tape mutation
// that may have reallocated the backing array.
func (c *Context) syncTapeView() {
	cells := c.tape.Cells()
	if len(cells) == 0 {
		c.TapeBasePtr = 0
	} else {
		c.TapeBasePtr = uintptr(unsafe.Pointer(&cells[0]))
	}
	c.TapeLen = int64(len(cells))
}

// TapeBase returns the current backing array's address as the engine
// expects it: generated code must reload DP from here after any callback
// that may have grown the tape.
func (c *Context) TapeBase() []byte { return c.tape.Cells() }

// readByte implements the read_byte vtable slot: returns the next input
// byte, or -1 at end-of-stream. The fixed
// EndOfInput policy is applied by the caller of this value, not
// here, matching how the interpreter separates "what did the stream
// give us" from "what does the engine do about it".
func (c *Context) readByte() (value int16) {
	b, ok, err := c.src.ReadByte()
	if err != nil {
		c.fatal = &HostError{Msg: "input: " + err.Error()}
		return -1
	}
	if !ok {
		return -1
	}
	return int16(b)
}

// applyEOFPolicy returns the cell value to store when readByte reported
// end-of-stream, honoring the same three-mode policy interp.Interp
// applies, so interpreter and JIT agree.
func (c *Context) applyEOFPolicy(current byte) byte {
	switch c.eofBehavior {
	case interp.EOFMinusOne:
		return 255
	case interp.EOFNoChange:
		return current
	default:
		return 0
	}
}

// writeByte implements the write_byte vtable slot.
func (c *Context) writeByte(b byte) {
	if err := c.sink.WriteByte(b); err != nil {
		c.fatal = &HostError{Msg: "output: " + err.Error()}
	}
}

// growTape implements the grow_tape vtable slot. targetIndex is the tape
// index generated code is about to access, computed from an inline
// bounds check rather than called before every access (the alternative
// this callback documents). A negative targetIndex means the data
// pointer (or a displaced offset from it) moved below the tape's start —
// always fatal, the same ErrUnderflow the interpreter's tape.Move
// reports. A non-negative targetIndex grows the tape to cover it,
// zero-extending, and returns the new base so generated code can reload
// its data-pointer register.
func (c *Context) growTape(targetIndex int) []byte {
	if targetIndex < 0 {
		c.fatal = &HostError{Msg: tape.ErrUnderflow.Error()}
		return c.tape.Cells()
	}
	c.tape.Grow(targetIndex + 1)
	c.syncTapeView()
	return c.tape.Cells()
}

// invokePromise implements the invoke_promise vtable slot: compiles the
// promise on first use (caching the result), then runs it, returning the
// (possibly grown) data-pointer index.
//
// id is re-fetched from c.promises after the nested compileLoopFor call
// rather than held across it: that call may itself register further
// promises (for loops nested inside this one that are themselves past
// the inline threshold), and promiseTable.add can reallocate the
// entries slice when it does. A pointer obtained before the call would
// then point at detached memory, so the compiled result would never
// land in the live table and every subsequent invocation would
// recompile the loop from scratch.
func (c *Context) invokePromise(id int, dp int) int {
	if c.promises.get(id).compiled == nil {
		body := c.promises.get(id).body
		compiled, err := c.engine.compileLoopFor(c, body)
		if err != nil {
			c.fatal = err
			return dp
		}
		c.promises.get(id).compiled = compiled
	}
	return c.promises.get(id).compiled.entry(dp)
}
