package jit

import (
	"io"
	"os"
	"reflect"
	"unsafe"

	"github.com/lcox74/bfjit/internal/interp"
	"github.com/lcox74/bfjit/internal/ioiface"
	"github.com/lcox74/bfjit/internal/ir"
	"github.com/lcox74/bfjit/internal/jit/page"
	"github.com/lcox74/bfjit/internal/tape"
)

// InlineThreshold is the fixed node-count cutoff below which a
// loop body is emitted inline between its guard branches; at or past it,
// the loop is registered as a promise and compiled lazily on first
// invocation.
const InlineThreshold = 22

// jitTapeCapacity is the fixed tape size the JIT backend pre-allocates
// before handing control to generated code. See the capacity comment in
// Run for why this backend doesn't grow the tape on demand.
const jitTapeCapacity = 1 << 20

// newBackend is set by exactly one of engine_amd64.go, engine_arm64.go,
// or engine_other.go, selected at compile time by Go's GOARCH build
// tags. It is nil only if none of those files' build constraints
// matched, which should not happen for any GOARCH this repository ships
// a backend for.
var newBackend func() (Backend, error)

// Option configures an Engine.
type Option func(*Engine)

// WithInput sets the byte source (default os.Stdin).
func WithInput(r io.Reader) Option { return func(e *Engine) { e.input = r } }

// WithOutput sets the byte sink (default os.Stdout).
func WithOutput(w io.Writer) Option { return func(e *Engine) { e.output = w } }

// WithEOFBehavior overrides the default EndOfInput policy. As with
// interp.WithEOFBehavior, diverging from EOFZero only makes sense when
// the interpreter is configured identically.
func WithEOFBehavior(b interp.EOFBehavior) Option {
	return func(e *Engine) { e.eofBehavior = b }
}

// Engine owns one JIT context, its executable regions, and the backend
// compiling and running code for the host architecture. Its lifetime
// spans a single program run.
type Engine struct {
	backend     Backend
	input       io.Reader
	output      io.Writer
	eofBehavior interp.EOFBehavior

	regions []*page.Region // every region allocated this run, released together
}

// New selects the backend for the host architecture and returns an
// Engine. It fails with *UnsupportedHostError if the host architecture
// has no codegen backend.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		input:       os.Stdin,
		output:      os.Stdout,
		eofBehavior: interp.EOFZero,
	}
	for _, opt := range opts {
		opt(e)
	}

	if newBackend == nil {
		return nil, &UnsupportedHostError{Arch: "unknown"}
	}
	backend, err := newBackend()
	if err != nil {
		return nil, err
	}
	e.backend = backend
	return e, nil
}

// Run compiles p and executes it through the trampoline, returning the
// first fatal error encountered (a CodegenError at setup, or a HostError
// surfaced by a vtable callback during execution).
func (e *Engine) Run(p ir.Program) error {
	ctx := &Context{
		tape:        tape.New(),
		src:         ioiface.NewSource(e.input),
		sink:        ioiface.NewSink(e.output),
		eofBehavior: e.eofBehavior,
		engine:      e,
	}
	// Generated code addresses the tape directly through a register and
	// has no way to safely relocate that register if the backing array
	// is reallocated mid-run, so the JIT pre-sizes the tape to a
	// generous fixed capacity instead of growing it on demand the way
	// the interpreter does. A program that walks past this cap while
	// running JIT code is out of scope for this backend; see DESIGN.md.
	ctx.tape.Grow(jitTapeCapacity)
	ctx.syncTapeView()
	defer e.releaseAll()

	region, err := e.compileAndLoad(p.Nodes, &ctx.promises)
	if err != nil {
		return err
	}

	dispatchPtr := uintptr(reflect.ValueOf(Dispatch).Pointer())
	tapeBase := unsafe.Pointer(&ctx.tape.Cells()[0])
	e.backend.Invoke(region, unsafe.Pointer(ctx), dispatchPtr, tapeBase, ctx.tape.Index())

	if ctx.Failed() {
		return ctx.Err()
	}
	return nil
}

// compileLoopFor compiles one promise's body in isolation, used by
// Context.invokePromise the first time a given promise is invoked. A
// promise's own body may itself contain loops large enough to defer
// further; those append to the same ctx.promises table as the top-level
// program, since indices must stay globally unique within one Context.
func (e *Engine) compileLoopFor(ctx *Context, body []ir.Node) (*compiledLoop, error) {
	region, err := e.compileAndLoad(body, &ctx.promises)
	if err != nil {
		return nil, err
	}
	dispatchPtr := uintptr(reflect.ValueOf(Dispatch).Pointer())
	tapeBase := unsafe.Pointer(&ctx.tape.Cells()[0])
	entry := func(dp int) int {
		return e.backend.Invoke(region, unsafe.Pointer(ctx), dispatchPtr, tapeBase, dp)
	}
	return &compiledLoop{entry: entry, close: region.Release}, nil
}

// compileAndLoad emits code for nodes, loads it into a fresh executable
// region, and returns the region. promises receives any loop bodies
// deferred past InlineThreshold.
func (e *Engine) compileAndLoad(nodes []ir.Node, promises *promiseTable) (*page.Region, error) {
	code, err := e.backend.Compile(nodes, InlineThreshold, promises.add)
	if err != nil {
		return nil, err
	}
	region, err := page.Alloc(code)
	if err != nil {
		return nil, &CodegenError{Msg: err.Error()}
	}
	if err := region.MakeExecutable(); err != nil {
		return nil, &CodegenError{Msg: err.Error()}
	}
	e.regions = append(e.regions, region)
	return region, nil
}

func (e *Engine) releaseAll() {
	for _, r := range e.regions {
		_ = r.Release()
	}
	e.regions = nil
}
