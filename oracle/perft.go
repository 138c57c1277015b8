package oracle

// Perft counts leaf nodes of the legal move tree to the given depth.
// Positions are copied by value at each ply, so p is left untouched.
func Perft(p *Position, depth int) uint64 {
	if depth <= 0 {
		return 1
	}
	pc := perftCtx{bufs: make([][]Move, depth+1)}
	return perftRec(*p, depth, &pc)
}

type perftCtx struct {
	bufs [][]Move
}

func (pc *perftCtx) bufFor(depth int) []Move {
	buf := pc.bufs[depth]
	if buf == nil {
		buf = make([]Move, 0, 256)
		pc.bufs[depth] = buf
	}
	return buf[:0]
}

func perftRec(p Position, depth int, pc *perftCtx) uint64 {
	ev := EvaluateInto(&p, pc.bufFor(depth))
	if depth == 1 {
		return uint64(len(ev.Moves))
	}
	var nodes uint64
	for _, m := range ev.Moves {
		child := p
		if err := child.Apply(m); err != nil {
			continue
		}
		nodes += perftRec(child, depth-1, pc)
	}
	return nodes
}

// PerftDivide returns the perft count below each root move.
func PerftDivide(p *Position, depth int) map[Move]uint64 {
	result := make(map[Move]uint64)
	if depth <= 0 {
		return result
	}
	for _, m := range Evaluate(p).Moves {
		child := *p
		if err := child.Apply(m); err != nil {
			continue
		}
		result[m] = Perft(&child, depth-1)
	}
	return result
}
