package oracle

import (
	"errors"
	"strings"
)

// Move is a proposed move: source, destination and an optional promotion type.
// It carries no board context, so two proposals for the same move compare equal.
type Move struct {
	From      Square
	To        Square
	Promotion PieceType
}

// offBoard marks the resign sentinel; no real move touches square 64.
const offBoard Square = 64

// Resign is the reserved sentinel meaning "the side to move resigns".
var Resign = Move{From: offBoard, To: offBoard}

// IsResign reports whether m is the resign sentinel.
func (m Move) IsResign() bool { return m == Resign }

// IsZero reports whether m is the empty move (a1a1), used for absent entries.
func (m Move) IsZero() bool { return m == Move{} }

// WellFormed reports whether m could name a move on some board: the resign
// sentinel, or two distinct on-board squares with at most a Q, R, B or N
// promotion.
func (m Move) WellFormed() bool {
	if m.IsResign() {
		return true
	}
	if m.From >= offBoard || m.To >= offBoard || m.From == m.To {
		return false
	}
	switch m.Promotion {
	case PieceTypeNone, PieceTypeKnight, PieceTypeBishop, PieceTypeRook, PieceTypeQueen:
		return true
	}
	return false
}

// String produces coordinate notation (e.g. "e2e4", "e7e8q") or "resign".
func (m Move) String() string {
	if m.IsResign() {
		return "resign"
	}
	s := m.From.String() + m.To.String()
	switch m.Promotion {
	case PieceTypeQueen:
		s += "q"
	case PieceTypeRook:
		s += "r"
	case PieceTypeBishop:
		s += "b"
	case PieceTypeKnight:
		s += "n"
	}
	return s
}

// ParseMove converts coordinate notation or "resign" into a Move.
func ParseMove(movestr string) (Move, error) {
	movestr = strings.TrimSpace(strings.ToLower(movestr))
	if movestr == "resign" {
		return Resign, nil
	}
	if len(movestr) < 4 || len(movestr) > 5 {
		return Move{}, errors.New("invalid move length")
	}
	from, err := parseSquare(movestr[0:2])
	if err != nil {
		return Move{}, err
	}
	to, err := parseSquare(movestr[2:4])
	if err != nil {
		return Move{}, err
	}
	m := Move{From: from, To: to}
	if len(movestr) == 5 {
		switch movestr[4] {
		case 'q':
			m.Promotion = PieceTypeQueen
		case 'r':
			m.Promotion = PieceTypeRook
		case 'b':
			m.Promotion = PieceTypeBishop
		case 'n':
			m.Promotion = PieceTypeKnight
		default:
			return Move{}, errors.New("invalid promotion piece")
		}
	}
	return m, nil
}

func parseSquare(alg string) (Square, error) {
	if len(alg) != 2 {
		return NoSquare, errors.New("invalid algebraic square length")
	}
	file, rank := alg[0], alg[1]
	if file < 'a' || file > 'h' || rank < '1' || rank > '8' {
		return NoSquare, errors.New("invalid algebraic square")
	}
	return Square(int(file-'a') + int(rank-'1')*8), nil
}
