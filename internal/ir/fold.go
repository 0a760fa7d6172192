package ir

// This file implements the run-length and constant folding rules applied
// whenever a node is inserted into a sequence, whether during the initial
// token-driven Parse or during a later re-run by Optimize. Both callers
// funnel through the same appendX helpers so the two are guaranteed to
// agree, which is what makes Optimize idempotent over already-folded IR.

// appendShift inserts a pointer-movement delta (positive for Next, negative
// for Prev) into seq, merging with a trailing Next/Prev node and dropping
// the node entirely if the merged offset cancels to zero.
func appendShift(seq []Node, delta int, pos Position) []Node {
	if n := len(seq); n > 0 {
		switch last := seq[n-1]; last.Kind {
		case Next:
			return settleShift(seq, n-1, last.Offset+delta, pos)
		case Prev:
			return settleShift(seq, n-1, -last.Offset+delta, pos)
		}
	}
	return settleShift(seq, -1, delta, pos)
}

func settleShift(seq []Node, i, net int, pos Position) []Node {
	if i >= 0 {
		if net == 0 {
			return append(seq[:i], seq[i+1:]...)
		}
		seq = seq[:i]
	}
	kind := Next
	if net < 0 {
		kind = Prev
		net = -net
	}
	return append(seq, Node{Kind: kind, Offset: net, Pos: pos})
}

// appendAdd inserts a cell delta (positive for Incr, negative for Decr)
// into seq. It folds onto a trailing Incr/Decr (cancelling to zero, or
// splitting into a second node past 255, since Incr/Decr counts are u8),
// and constant-folds directly into a trailing Set.
func appendAdd(seq []Node, delta int, pos Position) []Node {
	if n := len(seq); n > 0 {
		switch last := seq[n-1]; last.Kind {
		case Incr:
			return settleAdd(seq, n-1, int(last.Count)+delta, pos)
		case Decr:
			return settleAdd(seq, n-1, -int(last.Count)+delta, pos)
		case Set:
			v := ((int(last.Count)+delta)%256 + 256) % 256
			seq[n-1] = Node{Kind: Set, Count: uint8(v), Pos: last.Pos}
			return seq
		}
	}
	return settleAdd(seq, -1, delta, pos)
}

func settleAdd(seq []Node, i, net int, pos Position) []Node {
	if i >= 0 {
		if net == 0 {
			return append(seq[:i], seq[i+1:]...)
		}
		seq = seq[:i]
	}
	return appendAddMagnitude(seq, net, pos)
}

// appendAddMagnitude appends one or more Incr/Decr nodes carrying net,
// splitting at the u8 boundary (255) rather than wrapping.
func appendAddMagnitude(seq []Node, net int, pos Position) []Node {
	kind := Incr
	if net < 0 {
		kind = Decr
		net = -net
	}
	for net > 255 {
		seq = append(seq, Node{Kind: kind, Count: 255, Pos: pos})
		net -= 255
	}
	if net > 0 {
		seq = append(seq, Node{Kind: kind, Count: uint8(net), Pos: pos})
	}
	return seq
}

// appendSet inserts a Set node, overwriting a trailing Set rather than
// stacking redundant writes.
func appendSet(seq []Node, nd Node) []Node {
	if n := len(seq); n > 0 && seq[n-1].Kind == Set {
		seq[n-1] = nd
		return seq
	}
	return append(seq, nd)
}

// appendResult inserts the node produced by closing a loop (a recognized
// pattern or a generic Loop), applying the same Set-overwrite rule.
func appendResult(seq []Node, nd Node) []Node {
	if nd.Kind == Set {
		return appendSet(seq, nd)
	}
	return append(seq, nd)
}
