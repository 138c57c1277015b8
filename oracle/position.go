package oracle

import "math/bits"

// Piece encodes a colored piece. Black pieces are (white piece type | 8) so that
// piece & 7 gives the type and piece & 8 != 0 indicates Black.
type Piece uint8

const (
	NoPiece     Piece = 0
	WhitePawn   Piece = 1
	WhiteKnight Piece = 2
	WhiteBishop Piece = 3
	WhiteRook   Piece = 4
	WhiteQueen  Piece = 5
	WhiteKing   Piece = 6

	BlackPawn   Piece = 1 | 8
	BlackKnight Piece = 2 | 8
	BlackBishop Piece = 3 | 8
	BlackRook   Piece = 4 | 8
	BlackQueen  Piece = 5 | 8
	BlackKing   Piece = 6 | 8
)

// PieceType is a colorless piece kind.
type PieceType uint8

const (
	PieceTypeNone   PieceType = 0
	PieceTypePawn   PieceType = 1
	PieceTypeKnight PieceType = 2
	PieceTypeBishop PieceType = 3
	PieceTypeRook   PieceType = 4
	PieceTypeQueen  PieceType = 5
	PieceTypeKing   PieceType = 6
)

// Type returns the colorless type of the piece.
func (p Piece) Type() PieceType { return PieceType(p & 7) }

// Color returns the side that owns the piece. NoPiece reports White.
func (p Piece) Color() Color {
	if p&8 != 0 {
		return Black
	}
	return White
}

func (p Piece) valid() bool {
	t := p.Type()
	return p == NoPiece || (t >= PieceTypePawn && t <= PieceTypeKing && p&^15 == 0)
}

// PieceFromType combines a side and a type into a concrete Piece.
func PieceFromType(c Color, pt PieceType) Piece {
	if pt == PieceTypeNone || pt > PieceTypeKing {
		return NoPiece
	}
	if c == Black {
		return Piece(pt) | 8
	}
	return Piece(pt)
}

type Color uint8

const (
	White Color = 0
	Black Color = 1
)

// Other returns the opposing side.
func (c Color) Other() Color { return c ^ 1 }

func (c Color) String() string {
	if c == Black {
		return "black"
	}
	return "white"
}

// CastlingRights is a bitmask of the four castling permissions.
type CastlingRights uint8

const (
	CastlingWhiteK CastlingRights = 1 << iota
	CastlingWhiteQ
	CastlingBlackK
	CastlingBlackQ
)

// Square indexes the board a1=0 .. h8=63.
type Square uint8

const NoSquare Square = 0xFF

// File returns 0..7 for files a..h.
func (s Square) File() int { return int(s) & 7 }

// Rank returns 0..7 for ranks 1..8.
func (s Square) Rank() int { return int(s) >> 3 }

func (s Square) String() string {
	if s > 63 {
		return "-"
	}
	return string([]byte{'a' + byte(s.File()), '1' + byte(s.Rank())})
}

// Position is the working representation the oracle operates on. It is a plain
// value: copying a Position yields an independent position.
type Position struct {
	// per-type bitboards, index 0 = White, 1 = Black
	pawns   [2]uint64
	knights [2]uint64
	bishops [2]uint64
	rooks   [2]uint64
	queens  [2]uint64
	kings   [2]uint64

	occupancy [2]uint64
	pieces    [64]Piece

	sideToMove      Color
	castlingRights  CastlingRights
	enPassantSquare Square
	halfmoveClock   int
	fullmoveNumber  int
}

// StartPosition returns the standard initial position.
func StartPosition() Position {
	p, err := ParseFEN(FENStartPos)
	if err != nil {
		panic(err)
	}
	return *p
}

// SideToMove reports which side is to play.
func (p *Position) SideToMove() Color { return p.sideToMove }

// CastlingRights returns the current castling mask.
func (p *Position) CastlingRights() CastlingRights { return p.castlingRights }

// EnPassantSquare returns the en-passant target square or NoSquare.
func (p *Position) EnPassantSquare() Square { return p.enPassantSquare }

// HalfmoveClock counts half-moves since the last capture or pawn move.
func (p *Position) HalfmoveClock() int { return p.halfmoveClock }

// FullmoveNumber starts at 1 and increments after Black's move.
func (p *Position) FullmoveNumber() int { return p.fullmoveNumber }

// Ply is the zero-based half-move index of the move about to be played.
func (p *Position) Ply() int {
	return 2*(p.fullmoveNumber-1) + int(p.sideToMove)
}

// PieceAt returns the piece on a square.
func (p *Position) PieceAt(sq Square) Piece { return p.pieces[sq] }

// KingSquare returns the king square of c, or NoSquare if the king is missing.
func (p *Position) KingSquare(c Color) Square {
	k := p.kings[c]
	if k == 0 {
		return NoSquare
	}
	return Square(bits.TrailingZeros64(k))
}

func bb(sq Square) uint64 { return 1 << uint64(sq) }

// popLSB removes and returns the least significant set bit from the mask.
func popLSB(mask *uint64) Square {
	idx := bits.TrailingZeros64(*mask)
	*mask &= *mask - 1
	return Square(idx)
}

func (p *Position) typeBoard(c Color, pt PieceType) *uint64 {
	switch pt {
	case PieceTypePawn:
		return &p.pawns[c]
	case PieceTypeKnight:
		return &p.knights[c]
	case PieceTypeBishop:
		return &p.bishops[c]
	case PieceTypeRook:
		return &p.rooks[c]
	case PieceTypeQueen:
		return &p.queens[c]
	default:
		return &p.kings[c]
	}
}

// addPiece places a piece on an empty square and updates bitboards and occupancy.
func (p *Position) addPiece(sq Square, pc Piece) {
	if pc == NoPiece {
		return
	}
	c := pc.Color()
	p.pieces[sq] = pc
	p.occupancy[c] |= bb(sq)
	*p.typeBoard(c, pc.Type()) |= bb(sq)
}

// removePiece clears a square and returns what stood there.
func (p *Position) removePiece(sq Square) Piece {
	pc := p.pieces[sq]
	if pc == NoPiece {
		return NoPiece
	}
	c := pc.Color()
	p.pieces[sq] = NoPiece
	p.occupancy[c] &^= bb(sq)
	*p.typeBoard(c, pc.Type()) &^= bb(sq)
	return pc
}

// SetPiece replaces whatever stands on sq.
func (p *Position) SetPiece(sq Square, pc Piece) {
	p.removePiece(sq)
	p.addPiece(sq, pc)
}

// validate checks the structural rules every stored position must satisfy.
func (p *Position) validate() error {
	if bitsCount(p.kings[White]) != 1 || bitsCount(p.kings[Black]) != 1 {
		return errKingCount
	}
	if (p.pawns[White]|p.pawns[Black])&(rankMask[0]|rankMask[7]) != 0 {
		return errPawnOnBackRank
	}
	if p.sideToMove > Black {
		return errSideToMove
	}
	if p.castlingRights > 15 {
		return errCastling
	}
	if ep := p.enPassantSquare; ep != NoSquare {
		want := 5
		if p.sideToMove == Black {
			want = 2
		}
		if ep > 63 || ep.Rank() != want {
			return errEnPassant
		}
	}
	if p.fullmoveNumber < 1 {
		return errFullmove
	}
	return nil
}

func bitsCount(x uint64) int { return bits.OnesCount64(x) }
