package jit

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"unsafe"

	"github.com/lcox74/bfjit/internal/interp"
	"github.com/lcox74/bfjit/internal/ioiface"
	"github.com/lcox74/bfjit/internal/ir"
	"github.com/lcox74/bfjit/internal/tape"
)

func newTestContext(input string, output *bytes.Buffer) *Context {
	ctx := &Context{
		tape:        tape.New(),
		src:         ioiface.NewSource(strings.NewReader(input)),
		sink:        ioiface.NewSink(output),
		eofBehavior: interp.EOFZero,
	}
	ctx.syncTapeView()
	return ctx
}

func TestPromiseTableIndicesStableAcrossGrowth(t *testing.T) {
	var table promiseTable
	ids := make([]int, 0, 64)
	for i := 0; i < 64; i++ {
		ids = append(ids, table.add([]ir.Node{{Kind: ir.Incr, Count: uint8(i)}}))
	}
	for i, id := range ids {
		if id != i {
			t.Fatalf("promise %d got id %d", i, id)
		}
		got := table.get(id)
		if len(got.body) != 1 || got.body[0].Count != uint8(i) {
			t.Fatalf("promise %d body mismatch after growth: %+v", i, got.body)
		}
	}
}

func TestContextReadByteDeliversAndSignalsEOF(t *testing.T) {
	var out bytes.Buffer
	ctx := newTestContext("A", &out)

	if v := ctx.readByte(); v != int16('A') {
		t.Fatalf("first readByte = %d, want 'A'", v)
	}
	if v := ctx.readByte(); v != -1 {
		t.Fatalf("readByte at EOF = %d, want -1", v)
	}
	if ctx.fatal != nil {
		t.Fatalf("EOF should not set a fatal error, got %v", ctx.fatal)
	}
}

func TestContextWriteByteAccumulatesOutput(t *testing.T) {
	var out bytes.Buffer
	ctx := newTestContext("", &out)

	ctx.writeByte('h')
	ctx.writeByte('i')
	if ctx.fatal != nil {
		t.Fatalf("unexpected fatal error: %v", ctx.fatal)
	}
	if got := out.String(); got != "hi" {
		t.Fatalf("output = %q, want %q", got, "hi")
	}
}

func TestApplyEOFPolicyModes(t *testing.T) {
	var out bytes.Buffer
	cases := []struct {
		behavior interp.EOFBehavior
		current  byte
		want     byte
	}{
		{interp.EOFZero, 7, 0},
		{interp.EOFMinusOne, 7, 255},
		{interp.EOFNoChange, 7, 7},
	}
	for _, c := range cases {
		ctx := newTestContext("", &out)
		ctx.eofBehavior = c.behavior
		if got := ctx.applyEOFPolicy(c.current); got != c.want {
			t.Fatalf("applyEOFPolicy(%v, %d) = %d, want %d", c.behavior, c.current, got, c.want)
		}
	}
}

func TestGrowTapeZeroExtendsAndSyncsView(t *testing.T) {
	var out bytes.Buffer
	ctx := newTestContext("", &out)

	if err := ctx.tape.SetAt(10, 42); err != nil {
		t.Fatalf("SetAt: %v", err)
	}
	cells := ctx.growTape(5000)
	if len(cells) < 5001 {
		t.Fatalf("growTape did not reach targetIndex+1: got %d", len(cells))
	}
	if cells[10] != 42 {
		t.Fatalf("growTape lost existing data at index 10: got %d", cells[10])
	}
	if ctx.TapeLen != int64(len(cells)) {
		t.Fatalf("TapeLen not synced: ctx.TapeLen=%d len(cells)=%d", ctx.TapeLen, len(cells))
	}
}

func TestGrowTapeNegativeIndexIsFatalUnderflow(t *testing.T) {
	var out bytes.Buffer
	ctx := newTestContext("", &out)

	cells := ctx.growTape(-1)
	if ctx.fatal == nil {
		t.Fatal("growTape(-1) should record a fatal error")
	}
	if len(cells) == 0 {
		t.Fatal("growTape(-1) should still return the existing tape, not nil")
	}
}

func TestDispatchReadByteSetsCallResult(t *testing.T) {
	var out bytes.Buffer
	ctx := newTestContext("Z", &out)
	ctx.CallSelector = callReadByte

	result := Dispatch(ctx)
	if result != int64('Z') {
		t.Fatalf("Dispatch(read_byte) = %d, want %d", result, 'Z')
	}
	if ctx.CallResult != result {
		t.Fatalf("CallResult not mirrored: %d vs return %d", ctx.CallResult, result)
	}
}

func TestDispatchWriteByteWritesOutput(t *testing.T) {
	var out bytes.Buffer
	ctx := newTestContext("", &out)
	ctx.CallSelector = callWriteByte
	ctx.CallArg0 = int64('Q')

	Dispatch(ctx)
	if out.String() != "Q" {
		t.Fatalf("output = %q, want %q", out.String(), "Q")
	}
}

func TestDispatchSetsHostFailedOnIOError(t *testing.T) {
	var out bytes.Buffer
	ctx := newTestContext("", &out)
	ctx.sink = failingSink{}
	ctx.CallSelector = callWriteByte
	ctx.CallArg0 = int64('x')

	Dispatch(ctx)
	if ctx.HostFailed != 1 {
		t.Fatalf("HostFailed = %d, want 1 after a failing write", ctx.HostFailed)
	}
	if !ctx.Failed() {
		t.Fatal("Context.Failed() should report true")
	}
	if ctx.Err() == nil {
		t.Fatal("Context.Err() should return the recorded error")
	}
}

func TestDispatchGrowTapeNegativeIndexSetsHostFailed(t *testing.T) {
	var out bytes.Buffer
	ctx := newTestContext("", &out)
	ctx.CallSelector = callGrowTape
	ctx.CallArg0 = -1

	Dispatch(ctx)
	if ctx.HostFailed != 1 {
		t.Fatalf("HostFailed = %d, want 1 after grow_tape(-1)", ctx.HostFailed)
	}
}

func TestContextFrameEmbeddedAtOffsetZero(t *testing.T) {
	var ctx Context
	if unsafe.Offsetof(ctx.Frame) != 0 {
		t.Fatalf("Context.Frame offset = %d, want 0 so abi.Off* index directly into *Context", unsafe.Offsetof(ctx.Frame))
	}
}

// TestPromiseTableGetIsUnsafeAcrossAdd pins down exactly the hazard
// invokePromise (internal/jit/context.go) must avoid: a *promise
// obtained from get(id) before a subsequent add() can end up pointing at
// a detached backing array once add reallocates, so a write through that
// old pointer is silently lost. invokePromise's fix is to never retain a
// pointer across its nested compileLoopFor call, re-fetching via get(id)
// both before and after instead — this test documents why that
// discipline matters by reproducing the reallocation directly against
// promiseTable.
func TestPromiseTableGetIsUnsafeAcrossAdd(t *testing.T) {
	var table promiseTable
	id := table.add([]ir.Node{{Kind: ir.Incr, Count: 1}})
	stale := table.get(id)

	// Grow well past any small backing array's capacity to force a
	// reallocation.
	for i := 0; i < 256; i++ {
		table.add([]ir.Node{{Kind: ir.Decr, Count: 1}})
	}

	stale.compiled = &compiledLoop{entry: func(dp int) int { return dp + 1 }}

	if table.get(id).compiled != nil {
		t.Fatal("write through a pointer retained across add landed in the live table; the reallocation hazard no longer reproduces, or get()/add() changed")
	}

	// The correct pattern: re-fetch after the table could have grown.
	table.get(id).compiled = &compiledLoop{entry: func(dp int) int { return dp + 1 }}
	if table.get(id).compiled == nil {
		t.Fatal("write through a freshly re-fetched pointer should land in the live table")
	}
}

type failingSink struct{}

func (failingSink) WriteByte(b byte) error { return errors.New("boom") }
