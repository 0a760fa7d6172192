package jit

import "github.com/lcox74/bfjit/internal/ir"

// promise is one entry in the engine's deferred-compilation table: a loop
// body large enough to skip inline emission. It starts out holding only
// the IR body; compiled lazily records the generated region so repeat
// invocations skip codegen.
type promise struct {
	body     []ir.Node
	compiled *compiledLoop
}

// compiledLoop is the architecture-specific result of compiling a
// promise's body: an executable entry point plus the backing region, kept
// alive for the engine's lifetime.
type compiledLoop struct {
	entry func(dp int) int // returns the (possibly grown) data-pointer index
	close func() error
}

// promiseTable is the append-only table emitted code indexes into by
// integer. Indices are stable across growth since the table only ever
// grows by appending; a reallocation of the backing slice never changes
// an existing index's meaning.
type promiseTable struct {
	entries []promise
}

// add appends a new uncompiled promise and returns its stable index.
func (t *promiseTable) add(body []ir.Node) int {
	t.entries = append(t.entries, promise{body: body})
	return len(t.entries) - 1
}

// get returns a pointer into the table at id. Callers must not retain it
// across a subsequent add, since add may reallocate the backing slice.
func (t *promiseTable) get(id int) *promise {
	return &t.entries[id]
}
