// Package ir provides the tree-structured intermediate representation for
// Brainfuck programs.
//
// Brainfuck has eight commands, each a single character:
//
//	>  : advance the data pointer
//	<  : retreat the data pointer
//	+  : increment the byte at the data pointer
//	-  : decrement the byte at the data pointer
//	.  : output the byte at the data pointer
//	,  : input a byte and store it at the data pointer
//	[  : begin a loop (skip past the matching ] if the cell is zero)
//	]  : end a loop (jump back to the matching [ if the cell is nonzero)
//
// All other bytes are comments and are discarded during tokenizing.
//
// Parse and Optimize fold a source program directly into a tree of Node
// values. Run-length folding, constant folding, and loop-pattern
// recognition (zero loops, move/multiply loops, fan-out copy loops) all
// happen as part of a single pass over the token stream; Optimize is kept
// as a separate entry point over an already-built tree so a caller can
// re-run it (it is idempotent) without re-tokenizing.
package ir

// Kind identifies the kind of IR node.
type Kind int

const (
	Incr          Kind = iota // add Count (mod 256) to the current cell
	Decr                      // subtract Count (mod 256) from the current cell
	Next                      // advance the data pointer by Offset
	Prev                      // retreat the data pointer by Offset
	Print                     // emit the current cell
	Read                      // read one byte into the current cell
	Set                       // overwrite the current cell with Count
	AddTo                     // cell[Offset] += cell[0]; cell[0] = 0
	SubFrom                   // cell[Offset] -= cell[0]; cell[0] = 0
	MultiplyAddTo             // cell[Offset] += cell[0]*Factor; cell[0] = 0
	CopyTo                    // for each o in Offsets: cell[o] += cell[0]; cell[0] = 0
	Loop                      // while cell[0] != 0: execute Body
)

var kindNames = [...]string{
	Incr:          "Incr",
	Decr:          "Decr",
	Next:          "Next",
	Prev:          "Prev",
	Print:         "Print",
	Read:          "Read",
	Set:           "Set",
	AddTo:         "AddTo",
	SubFrom:       "SubFrom",
	MultiplyAddTo: "MultiplyAddTo",
	CopyTo:        "CopyTo",
	Loop:          "Loop",
}

func (k Kind) String() string { return kindNames[k] }

// Position is a location in the source text, kept on a best-effort basis:
// folded nodes carry the position of the first token that produced them.
type Position struct {
	Offset int // byte offset from the start of the file
	Line   int // 1-based line number
	Column int // 1-based column number
}

// Node is one IR instruction. Only the fields relevant to Kind are
// meaningful; see the Kind constants above for the payload each carries.
type Node struct {
	Kind    Kind
	Count   uint8  // Incr/Decr/Set
	Offset  int    // Next/Prev (unsigned distance); AddTo/SubFrom/MultiplyAddTo (signed, relative to current cell)
	Factor  uint8  // MultiplyAddTo
	Offsets []int  // CopyTo, signed, relative to current cell
	Body    []Node // Loop
	Pos     Position
}

// Program is the top-level IR sequence produced by Parse.
type Program struct {
	Nodes []Node
}
