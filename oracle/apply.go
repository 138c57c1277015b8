package oracle

import "fmt"

// castlingClear[sq] holds the rights that survive a move touching sq.
var castlingClear = func() (t [64]CastlingRights) {
	for i := range t {
		t[i] = CastlingWhiteK | CastlingWhiteQ | CastlingBlackK | CastlingBlackQ
	}
	t[0] &^= CastlingWhiteQ
	t[4] &^= CastlingWhiteK | CastlingWhiteQ
	t[7] &^= CastlingWhiteK
	t[56] &^= CastlingBlackQ
	t[60] &^= CastlingBlackK | CastlingBlackQ
	t[63] &^= CastlingBlackK
	return t
}()

// Apply plays m on the position. The caller is expected to have checked m
// against Evaluate; Apply only rejects moves it cannot interpret at all
// (empty source square, wrong side's piece, off-board squares).
func (p *Position) Apply(m Move) error {
	if m.From > 63 || m.To > 63 {
		return fmt.Errorf("apply %s: square off board", m)
	}
	moved := p.pieces[m.From]
	if moved == NoPiece || moved.Color() != p.sideToMove {
		return fmt.Errorf("apply %s: no piece of the side to move on %s", m, m.From)
	}
	us := p.sideToMove

	captured := p.removePiece(m.To)
	if moved.Type() == PieceTypePawn && m.To == p.enPassantSquare {
		capSq := m.To - 8
		if us == Black {
			capSq = m.To + 8
		}
		captured = p.removePiece(capSq)
	}

	p.removePiece(m.From)
	if moved.Type() == PieceTypePawn && m.Promotion != PieceTypeNone {
		p.addPiece(m.To, PieceFromType(us, m.Promotion))
	} else {
		p.addPiece(m.To, moved)
	}

	if moved.Type() == PieceTypeKing && m.From.File() == 4 && (m.To.File() == 6 || m.To.File() == 2) && m.From.Rank() == m.To.Rank() {
		rookFrom, rookTo := m.From+3, m.From+1
		if m.To.File() == 2 {
			rookFrom, rookTo = m.From-4, m.From-1
		}
		p.addPiece(rookTo, p.removePiece(rookFrom))
	}

	p.castlingRights &= castlingClear[m.From] & castlingClear[m.To]

	p.enPassantSquare = NoSquare
	if moved.Type() == PieceTypePawn {
		if d := int(m.To) - int(m.From); d == 16 || d == -16 {
			p.enPassantSquare = Square((int(m.From) + int(m.To)) / 2)
		}
	}

	if moved.Type() == PieceTypePawn || captured != NoPiece {
		p.halfmoveClock = 0
	} else if p.halfmoveClock < maxHalfmoveClock {
		p.halfmoveClock++
	}
	if us == Black {
		p.fullmoveNumber++
	}
	p.sideToMove = us.Other()
	return nil
}
