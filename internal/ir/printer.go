package ir

import (
	"fmt"
	"strings"
)

// Dump renders a Program as an indented, human-readable tree. The format
// is informational only: it is not re-parsed by anything in this
// repository and carries no stability guarantee across versions.
func Dump(p Program) string {
	var out strings.Builder
	dumpSeq(&out, p.Nodes, 0)
	return out.String()
}

func dumpSeq(out *strings.Builder, nodes []Node, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, nd := range nodes {
		fmt.Fprint(out, indent)
		switch nd.Kind {
		case Incr:
			fmt.Fprintf(out, "Incr %d\n", nd.Count)
		case Decr:
			fmt.Fprintf(out, "Decr %d\n", nd.Count)
		case Next:
			fmt.Fprintf(out, "Next %d\n", nd.Offset)
		case Prev:
			fmt.Fprintf(out, "Prev %d\n", nd.Offset)
		case Print:
			fmt.Fprintln(out, "Print")
		case Read:
			fmt.Fprintln(out, "Read")
		case Set:
			fmt.Fprintf(out, "Set %d\n", nd.Count)
		case AddTo:
			fmt.Fprintf(out, "AddTo %+d\n", nd.Offset)
		case SubFrom:
			fmt.Fprintf(out, "SubFrom %+d\n", nd.Offset)
		case MultiplyAddTo:
			fmt.Fprintf(out, "MultiplyAddTo %+d * %d\n", nd.Offset, nd.Factor)
		case CopyTo:
			fmt.Fprintf(out, "CopyTo %v\n", nd.Offsets)
		case Loop:
			fmt.Fprintln(out, "Loop")
			dumpSeq(out, nd.Body, depth+1)
		}
	}
}
