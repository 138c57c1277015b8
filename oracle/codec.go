package oracle

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// PositionSize is the fixed encoded size of a Position:
// 32 bytes of nibble-packed squares (low nibble = even square), then side,
// castling, en-passant square (0xFF for none), halfmove u16 LE, fullmove u16 LE.
const PositionSize = 39

const (
	posSideOffset     = 32
	posCastlingOffset = 33
	posEPOffset       = 34
	posHalfmoveOffset = 35
	posFullmoveOffset = 37
)

// maxHalfmoveClock is where Apply stops counting; it is the largest clock
// the encoding holds.
const maxHalfmoveClock = 0xFFFF

// ErrInvalidPosition is wrapped by every structural rejection of a position.
var ErrInvalidPosition = errors.New("invalid position")

var (
	errKingCount      = fmt.Errorf("%w: each side needs exactly one king", ErrInvalidPosition)
	errPawnOnBackRank = fmt.Errorf("%w: pawn on first or last rank", ErrInvalidPosition)
	errSideToMove     = fmt.Errorf("%w: side to move out of range", ErrInvalidPosition)
	errCastling       = fmt.Errorf("%w: castling rights out of range", ErrInvalidPosition)
	errEnPassant      = fmt.Errorf("%w: en-passant square on the wrong rank", ErrInvalidPosition)
	errFullmove       = fmt.Errorf("%w: fullmove number must be at least 1", ErrInvalidPosition)
	errPieceCode      = fmt.Errorf("%w: unknown piece code", ErrInvalidPosition)
	errClockRange     = fmt.Errorf("%w: move counters exceed 16 bits", ErrInvalidPosition)
)

// EncodePosition writes p into dst, which must hold at least PositionSize bytes.
func EncodePosition(dst []byte, p *Position) error {
	if len(dst) < PositionSize {
		return fmt.Errorf("encode position: buffer too small (%d < %d)", len(dst), PositionSize)
	}
	if p.halfmoveClock > maxHalfmoveClock || p.fullmoveNumber > 0xFFFF || p.halfmoveClock < 0 {
		return errClockRange
	}
	for i := 0; i < 32; i++ {
		dst[i] = byte(p.pieces[2*i]) | byte(p.pieces[2*i+1])<<4
	}
	dst[posSideOffset] = byte(p.sideToMove)
	dst[posCastlingOffset] = byte(p.castlingRights)
	dst[posEPOffset] = byte(p.enPassantSquare)
	binary.LittleEndian.PutUint16(dst[posHalfmoveOffset:], uint16(p.halfmoveClock))
	binary.LittleEndian.PutUint16(dst[posFullmoveOffset:], uint16(p.fullmoveNumber))
	return nil
}

// DecodePosition reads a Position from src and validates it.
func DecodePosition(src []byte) (Position, error) {
	var p Position
	if len(src) < PositionSize {
		return p, fmt.Errorf("%w: truncated (%d < %d bytes)", ErrInvalidPosition, len(src), PositionSize)
	}
	for i := 0; i < 32; i++ {
		lo, hi := Piece(src[i]&0x0F), Piece(src[i]>>4)
		if !lo.valid() || !hi.valid() {
			return p, errPieceCode
		}
		p.addPiece(Square(2*i), lo)
		p.addPiece(Square(2*i+1), hi)
	}
	p.sideToMove = Color(src[posSideOffset])
	p.castlingRights = CastlingRights(src[posCastlingOffset])
	p.enPassantSquare = Square(src[posEPOffset])
	p.halfmoveClock = int(binary.LittleEndian.Uint16(src[posHalfmoveOffset:]))
	p.fullmoveNumber = int(binary.LittleEndian.Uint16(src[posFullmoveOffset:]))
	if err := p.validate(); err != nil {
		return Position{}, err
	}
	return p, nil
}
