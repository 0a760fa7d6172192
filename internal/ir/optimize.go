package ir

import "sort"

// Optimize re-normalizes an already-built IR tree by replaying every node
// through the same folding and loop-recognition rules Parse applies
// inline. A tree already in normal form comes back unchanged, which is
// what makes Optimize idempotent: Optimize(Optimize(p)) == Optimize(p).
func Optimize(p Program) Program {
	return Program{Nodes: optimizeSeq(p.Nodes)}
}

func optimizeSeq(nodes []Node) []Node {
	out := make([]Node, 0, len(nodes))
	for _, nd := range nodes {
		switch nd.Kind {
		case Next:
			out = appendShift(out, nd.Offset, nd.Pos)
		case Prev:
			out = appendShift(out, -nd.Offset, nd.Pos)
		case Incr:
			out = appendAdd(out, int(nd.Count), nd.Pos)
		case Decr:
			out = appendAdd(out, -int(nd.Count), nd.Pos)
		case Set:
			out = appendSet(out, nd)
		case Loop:
			body := optimizeSeq(nd.Body)
			out = appendResult(out, recognizeLoop(body, nd.Pos))
		default:
			// Print, Read, and the already-reduced AddTo/SubFrom/
			// MultiplyAddTo/CopyTo leaves don't fold into or out of
			// their neighbors.
			out = append(out, nd)
		}
	}
	return out
}

// recognizeLoop classifies a fully-optimized loop body and returns the
// node that should replace the whole `[...]` construct: a zeroing Set, a
// move/multiply/fan-out-copy node, or (if none of those patterns match) a
// generic Loop wrapping body unchanged.
//
// Precedence:
//  1. zero loop:    [Incr(1)]  or  [Decr(1)]             -> Set(0)
//  2. simple move:  net pointer displacement zero, current
//     cell decremented by exactly 1, and every other
//     touched offset changed by a single fixed amount    -> AddTo / SubFrom /
//     MultiplyAddTo / CopyTo
//  3. otherwise, kept as a generic Loop.
func recognizeLoop(body []Node, pos Position) Node {
	if len(body) == 1 {
		if (body[0].Kind == Incr || body[0].Kind == Decr) && body[0].Count == 1 {
			return Node{Kind: Set, Count: 0, Pos: pos}
		}
	}

	if nd, ok := recognizeMove(body, pos); ok {
		return nd
	}

	return Node{Kind: Loop, Body: body, Pos: pos}
}

// recognizeMove walks a straight-line body of Next/Prev/Incr/Decr nodes
// and computes, as a function of pointer displacement from the loop's
// entry, the net signed delta applied at every offset touched. Any other
// node kind (Print, Read, Set, a nested Loop, or an already-recognized
// AddTo/SubFrom/MultiplyAddTo/CopyTo) disqualifies the body outright: the
// pattern is defined purely in terms of straight-line pointer/cell
// arithmetic with no I/O and no nested control flow.
func recognizeMove(body []Node, pos Position) (Node, bool) {
	pointer := 0
	effects := map[int]int{}

	for _, nd := range body {
		switch nd.Kind {
		case Next:
			pointer += nd.Offset
		case Prev:
			pointer -= nd.Offset
		case Incr:
			effects[pointer] += int(nd.Count)
		case Decr:
			effects[pointer] -= int(nd.Count)
		default:
			return Node{}, false
		}
	}

	if pointer != 0 {
		return Node{}, false
	}
	if effects[0] != -1 {
		return Node{}, false
	}
	delete(effects, 0)
	if len(effects) == 0 {
		// No other cell touched; this degenerate case is handled by the
		// zero-loop rule already, so treat it as unrecognized here.
		return Node{}, false
	}

	offsets := make([]int, 0, len(effects))
	for o := range effects {
		offsets = append(offsets, o)
	}
	sort.Ints(offsets)

	if len(offsets) == 1 {
		o := offsets[0]
		switch a := effects[o]; {
		case a == 1:
			return Node{Kind: AddTo, Offset: o, Pos: pos}, true
		case a == -1:
			return Node{Kind: SubFrom, Offset: o, Pos: pos}, true
		case a >= 2 && a <= 255:
			return Node{Kind: MultiplyAddTo, Offset: o, Factor: uint8(a), Pos: pos}, true
		default:
			// Negative or out-of-range factors are left as a generic
			// Loop: the safest reading of an otherwise-unspecified case
			// (see Open Questions).
			return Node{}, false
		}
	}

	for _, o := range offsets {
		if effects[o] != 1 {
			return Node{}, false
		}
	}
	return Node{Kind: CopyTo, Offsets: offsets, Pos: pos}, true
}
