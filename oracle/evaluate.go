package oracle

import (
	"math/bits"

	"golang.org/x/exp/slices"
)

// Evaluation is the combined answer for the side to move: its legal moves and
// whether its king is attacked right now.
//
// An empty Moves with KingAttacked is checkmate; empty without is stalemate.
type Evaluation struct {
	Moves        []Move
	KingAttacked bool
	Checkers     int
}

// Contains reports whether m is in the legal move set.
func (e Evaluation) Contains(m Move) bool { return slices.Contains(e.Moves, m) }

// Checkmate reports a mated side to move.
func (e Evaluation) Checkmate() bool { return len(e.Moves) == 0 && e.KingAttacked }

// Stalemate reports a side to move with no moves and a safe king.
func (e Evaluation) Stalemate() bool { return len(e.Moves) == 0 && !e.KingAttacked }

// Evaluate computes the legal move set and king-attacked flag in one pass.
func Evaluate(p *Position) Evaluation { return EvaluateInto(p, make([]Move, 0, 64)) }

// EvaluateInto is Evaluate reusing dst's backing array for the move list.
//
// The opponent's attack map is computed once, with our king lifted off the
// board so sliders see through it; king steps, castling and the checker count
// all read from that single map. Non-king moves are then masked by the
// evasion set (checker square plus the ray between it and the king) and by
// pin lines, so no move is ever made and unmade to test legality.
func EvaluateInto(p *Position, dst []Move) Evaluation {
	moves := dst[:0]
	us := p.sideToMove
	them := us.Other()
	own := p.occupancy[us]
	opp := p.occupancy[them]
	all := own | opp

	ks := p.KingSquare(us)
	if ks == NoSquare {
		return Evaluation{Moves: moves}
	}
	kingBB := bb(ks)

	attacked := p.attackMap(them, all&^kingBB)
	checkers := p.attackersOf(ks, them, all)
	nCheck := bits.OnesCount64(checkers)
	ev := Evaluation{KingAttacked: attacked&kingBB != 0, Checkers: nCheck}

	// King steps never need the evasion mask: the attack map already excludes
	// every square the king could be hit on, including squares behind it.
	for t := kingMoves[ks] &^ own &^ attacked; t != 0; {
		moves = append(moves, Move{From: ks, To: popLSB(&t)})
	}
	if nCheck >= 2 {
		ev.Moves = moves
		return ev
	}

	evasion := ^uint64(0)
	if nCheck == 1 {
		c := Square(bits.TrailingZeros64(checkers))
		evasion = checkers | between[ks][c]
	} else {
		moves = p.appendCastles(moves, attacked, all)
	}

	pins := p.pinLines(us, ks, all)
	moves = p.appendPawnMoves(moves, us, evasion, checkers, &pins, ks)

	for pcs := p.knights[us]; pcs != 0; {
		from := popLSB(&pcs)
		if pins[from] != 0 {
			continue
		}
		moves = appendTargets(moves, from, knightMoves[from]&^own&evasion)
	}
	for pcs := p.bishops[us] | p.queens[us]; pcs != 0; {
		from := popLSB(&pcs)
		moves = appendTargets(moves, from, bishopAttacks(from, all)&^own&evasion&pins.mask(from))
	}
	for pcs := p.rooks[us] | p.queens[us]; pcs != 0; {
		from := popLSB(&pcs)
		moves = appendTargets(moves, from, rookAttacks(from, all)&^own&evasion&pins.mask(from))
	}

	ev.Moves = moves
	return ev
}

func appendTargets(moves []Move, from Square, targets uint64) []Move {
	for targets != 0 {
		moves = append(moves, Move{From: from, To: popLSB(&targets)})
	}
	return moves
}

// pinSet maps a square to the line its piece may move along; 0 means unpinned.
type pinSet [64]uint64

func (ps *pinSet) mask(sq Square) uint64 {
	if ps[sq] == 0 {
		return ^uint64(0)
	}
	return ps[sq]
}

// pinLines finds our pieces that shield the king from an enemy slider.
// The stored line runs from the king (exclusive) to the pinner (inclusive).
func (p *Position) pinLines(us Color, ks Square, occ uint64) (pins pinSet) {
	them := us.Other()
	orth := p.rooks[them] | p.queens[them]
	diag := p.bishops[them] | p.queens[them]
	for d := 0; d < 8; d++ {
		sliders := orth
		if d >= 4 {
			sliders = diag
		}
		if rays[ks][d]&sliders == 0 {
			continue
		}
		blockers := rays[ks][d] & occ
		if blockers == 0 {
			continue
		}
		first := nearest(blockers, d)
		if bb(first)&p.occupancy[us] == 0 {
			continue
		}
		beyond := rays[first][d] & occ
		if beyond == 0 {
			continue
		}
		next := nearest(beyond, d)
		if bb(next)&sliders != 0 {
			pins[first] = rays[ks][d] &^ rays[next][d]
		}
	}
	return pins
}

// appendCastles adds castling moves. Callers only reach here when not in check.
func (p *Position) appendCastles(moves []Move, attacked, occ uint64) []Move {
	if p.sideToMove == White {
		if p.castlingRights&CastlingWhiteK != 0 && p.pieces[7] == WhiteRook &&
			occ&(bb(5)|bb(6)) == 0 && attacked&(bb(5)|bb(6)) == 0 {
			moves = append(moves, Move{From: 4, To: 6})
		}
		if p.castlingRights&CastlingWhiteQ != 0 && p.pieces[0] == WhiteRook &&
			occ&(bb(1)|bb(2)|bb(3)) == 0 && attacked&(bb(2)|bb(3)) == 0 {
			moves = append(moves, Move{From: 4, To: 2})
		}
		return moves
	}
	if p.castlingRights&CastlingBlackK != 0 && p.pieces[63] == BlackRook &&
		occ&(bb(61)|bb(62)) == 0 && attacked&(bb(61)|bb(62)) == 0 {
		moves = append(moves, Move{From: 60, To: 62})
	}
	if p.castlingRights&CastlingBlackQ != 0 && p.pieces[56] == BlackRook &&
		occ&(bb(57)|bb(58)|bb(59)) == 0 && attacked&(bb(58)|bb(59)) == 0 {
		moves = append(moves, Move{From: 60, To: 58})
	}
	return moves
}

var promotionOrder = [4]PieceType{PieceTypeQueen, PieceTypeRook, PieceTypeBishop, PieceTypeKnight}

func appendPawnTarget(moves []Move, from, to Square) []Move {
	if r := to.Rank(); r == 0 || r == 7 {
		for _, pt := range promotionOrder {
			moves = append(moves, Move{From: from, To: to, Promotion: pt})
		}
		return moves
	}
	return append(moves, Move{From: from, To: to})
}

func (p *Position) appendPawnMoves(moves []Move, us Color, evasion, checkers uint64, pins *pinSet, ks Square) []Move {
	them := us.Other()
	all := p.occupancy[White] | p.occupancy[Black]
	opp := p.occupancy[them]
	step, startRank := 8, 1
	if us == Black {
		step, startRank = -8, 6
	}

	for pcs := p.pawns[us]; pcs != 0; {
		from := popLSB(&pcs)
		allowed := evasion & pins.mask(from)

		one := Square(int(from) + step)
		if all&bb(one) == 0 {
			if allowed&bb(one) != 0 {
				moves = appendPawnTarget(moves, from, one)
			}
			if from.Rank() == startRank {
				two := Square(int(from) + 2*step)
				if all&bb(two) == 0 && allowed&bb(two) != 0 {
					moves = append(moves, Move{From: from, To: two})
				}
			}
		}

		for caps := pawnAttacks[us][from] & opp & allowed; caps != 0; {
			moves = appendPawnTarget(moves, from, popLSB(&caps))
		}

		ep := p.enPassantSquare
		if ep == NoSquare || pawnAttacks[us][from]&bb(ep) == 0 {
			continue
		}
		captured := Square(int(ep) - step)
		// En passant resolves a check by taking the checking pawn or, rarely, by
		// landing on the checking ray.
		if checkers != 0 && checkers&bb(captured) == 0 && evasion&bb(ep) == 0 {
			continue
		}
		// Two pawns leave the rank at once, so pins and discovered checks are
		// settled by re-reading slider attacks on the resulting occupancy.
		occ := all&^bb(from)&^bb(captured) | bb(ep)
		if rookAttacks(ks, occ)&(p.rooks[them]|p.queens[them]) != 0 ||
			bishopAttacks(ks, occ)&(p.bishops[them]|p.queens[them]) != 0 {
			continue
		}
		moves = append(moves, Move{From: from, To: ep})
	}
	return moves
}

// attackMap returns every square attacked by side 'by' under occupancy occ.
func (p *Position) attackMap(by Color, occ uint64) uint64 {
	var att uint64
	for pcs := p.pawns[by]; pcs != 0; {
		att |= pawnAttacks[by][popLSB(&pcs)]
	}
	for pcs := p.knights[by]; pcs != 0; {
		att |= knightMoves[popLSB(&pcs)]
	}
	for pcs := p.bishops[by] | p.queens[by]; pcs != 0; {
		att |= bishopAttacks(popLSB(&pcs), occ)
	}
	for pcs := p.rooks[by] | p.queens[by]; pcs != 0; {
		att |= rookAttacks(popLSB(&pcs), occ)
	}
	if k := p.kings[by]; k != 0 {
		att |= kingMoves[bits.TrailingZeros64(k)]
	}
	return att
}

// attackersOf returns the pieces of side 'by' attacking sq.
func (p *Position) attackersOf(sq Square, by Color, occ uint64) uint64 {
	return pawnAttacks[by.Other()][sq]&p.pawns[by] |
		knightMoves[sq]&p.knights[by] |
		kingMoves[sq]&p.kings[by] |
		rookAttacks(sq, occ)&(p.rooks[by]|p.queens[by]) |
		bishopAttacks(sq, occ)&(p.bishops[by]|p.queens[by])
}

// IsSquareAttacked reports whether sq is attacked by side 'by'.
func (p *Position) IsSquareAttacked(sq Square, by Color) bool {
	return p.attackersOf(sq, by, p.occupancy[White]|p.occupancy[Black]) != 0
}

// InCheck reports whether c's king is attacked.
func (p *Position) InCheck(c Color) bool {
	ks := p.KingSquare(c)
	return ks != NoSquare && p.IsSquareAttacked(ks, c.Other())
}
