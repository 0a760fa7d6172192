// Package interp provides a recursive tree-walking executor for the IR
// produced by package ir. It is the engine's baseline execution strategy:
// correct and simple, used both on its own (via a driver flag) and as the
// reference the JIT backend's behavior is checked against.
package interp

import (
	"fmt"
	"io"
	"os"

	"github.com/lcox74/bfjit/internal/ioiface"
	"github.com/lcox74/bfjit/internal/ir"
	"github.com/lcox74/bfjit/internal/tape"
)

// EOFBehavior selects what a Read node does when the input source is
// exhausted. spec.md fixes this to EOFZero for the default driver; the
// other modes exist for parity with hosts that want different semantics
// and must be opted into explicitly.
type EOFBehavior int

const (
	EOFZero     EOFBehavior = iota // set the cell to 0 (default, spec-mandated)
	EOFMinusOne                    // set the cell to 255
	EOFNoChange                    // leave the cell unchanged
)

// RuntimeError reports a failure during Run: a tape underflow or an I/O
// failure reading from or writing to the host streams.
type RuntimeError struct {
	Msg string
	Pos ir.Position
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error at line %d col %d: %s", e.Pos.Line, e.Pos.Column, e.Msg)
}

// Interp executes an ir.Program against a tape and a pair of I/O streams.
type Interp struct {
	input       io.Reader
	output      io.Writer
	eofBehavior EOFBehavior
	tape        *tape.Tape
}

// Option configures an Interp.
type Option func(*Interp)

// WithInput sets the byte source (default os.Stdin).
func WithInput(r io.Reader) Option {
	return func(i *Interp) { i.input = r }
}

// WithOutput sets the byte sink (default os.Stdout).
func WithOutput(w io.Writer) Option {
	return func(i *Interp) { i.output = w }
}

// WithEOFBehavior overrides the default EndOfInput policy. Passing
// anything other than EOFZero diverges from spec.md's fixed policy and is
// meant only for hosts that explicitly want different semantics; the JIT
// backend must be configured to match or interpreter/JIT output will
// differ.
func WithEOFBehavior(b EOFBehavior) Option {
	return func(i *Interp) { i.eofBehavior = b }
}

// New creates an Interp with the given options applied over the defaults.
func New(opts ...Option) *Interp {
	in := &Interp{
		input:       os.Stdin,
		output:      os.Stdout,
		eofBehavior: EOFZero,
		tape:        tape.New(),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Tape exposes the underlying tape, primarily so tests and drivers can
// inspect final cell state after Run returns.
func (in *Interp) Tape() *tape.Tape { return in.tape }

// Run walks p's nodes in order, applying each to the tape and I/O
// streams. It returns on the first fatal error: a tape underflow or a
// host I/O failure.
func (in *Interp) Run(p ir.Program) error {
	src := ioiface.NewSource(in.input)
	sink := ioiface.NewSink(in.output)
	return in.runSeq(p.Nodes, src, sink)
}

func (in *Interp) runSeq(nodes []ir.Node, src ioiface.Source, sink ioiface.Sink) error {
	for _, nd := range nodes {
		switch nd.Kind {
		case ir.Incr:
			in.tape.Add(int(nd.Count))

		case ir.Decr:
			in.tape.Add(-int(nd.Count))

		case ir.Next:
			if err := in.tape.Move(nd.Offset); err != nil {
				return &RuntimeError{Msg: err.Error(), Pos: nd.Pos}
			}

		case ir.Prev:
			if err := in.tape.Move(-nd.Offset); err != nil {
				return &RuntimeError{Msg: err.Error(), Pos: nd.Pos}
			}

		case ir.Set:
			in.tape.Set(nd.Count)

		case ir.Print:
			if err := sink.WriteByte(in.tape.Current()); err != nil {
				return &RuntimeError{Msg: fmt.Sprintf("output error: %v", err), Pos: nd.Pos}
			}

		case ir.Read:
			b, ok, err := src.ReadByte()
			if err != nil {
				return &RuntimeError{Msg: fmt.Sprintf("input error: %v", err), Pos: nd.Pos}
			}
			if !ok {
				switch in.eofBehavior {
				case EOFZero:
					in.tape.Set(0)
				case EOFMinusOne:
					in.tape.Set(255)
				case EOFNoChange:
					// leave the cell unchanged
				}
			} else {
				in.tape.Set(b)
			}

		case ir.AddTo:
			v := in.tape.Current()
			if err := in.tape.AddAt(nd.Offset, int(v)); err != nil {
				return &RuntimeError{Msg: err.Error(), Pos: nd.Pos}
			}
			in.tape.Set(0)

		case ir.SubFrom:
			v := in.tape.Current()
			if err := in.tape.AddAt(nd.Offset, -int(v)); err != nil {
				return &RuntimeError{Msg: err.Error(), Pos: nd.Pos}
			}
			in.tape.Set(0)

		case ir.MultiplyAddTo:
			v := in.tape.Current()
			if err := in.tape.AddAt(nd.Offset, int(v)*int(nd.Factor)); err != nil {
				return &RuntimeError{Msg: err.Error(), Pos: nd.Pos}
			}
			in.tape.Set(0)

		case ir.CopyTo:
			v := in.tape.Current()
			for _, off := range nd.Offsets {
				if err := in.tape.AddAt(off, int(v)); err != nil {
					return &RuntimeError{Msg: err.Error(), Pos: nd.Pos}
				}
			}
			in.tape.Set(0)

		case ir.Loop:
			for in.tape.Current() != 0 {
				if err := in.runSeq(nd.Body, src, sink); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
