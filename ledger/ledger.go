// Package ledger holds the per-space registration and vote slots of a board.
//
// Every slot carries the generation it was written under. Bumping the
// ledger's generation retires every slot at once; the bytes stay where they
// are and simply stop matching.
package ledger

import (
	"fmt"

	"crowd-chess/chesserr"
	"crowd-chess/oracle"
)

// Side is the team a space registers for.
type Side uint8

const (
	SideNone  Side = 0
	SideWhite Side = 1
	SideBlack Side = 2
)

// Valid reports whether s names a playable side.
func (s Side) Valid() bool { return s == SideWhite || s == SideBlack }

// Color maps a playable side to the oracle color.
func (s Side) Color() oracle.Color {
	if s == SideBlack {
		return oracle.Black
	}
	return oracle.White
}

// SideFromColor maps an oracle color to a Side.
func SideFromColor(c oracle.Color) Side {
	if c == oracle.Black {
		return SideBlack
	}
	return SideWhite
}

func (s Side) String() string {
	switch s {
	case SideWhite:
		return "white"
	case SideBlack:
		return "black"
	default:
		return "none"
	}
}

// ParseSide accepts "white"/"w" or "black"/"b".
func ParseSide(s string) (Side, error) {
	switch s {
	case "white", "w":
		return SideWhite, nil
	case "black", "b":
		return SideBlack, nil
	}
	return SideNone, fmt.Errorf("side %q: %w", s, chesserr.ErrInvalidRegisterArgs)
}

// Registration is one space's side assignment.
type Registration struct {
	Generation uint8
	Side       Side
}

// VoteRecord is one space's standing proposal.
type VoteRecord struct {
	Generation uint8
	Ply        uint16
	Move       oracle.Move
}

// Ledger indexes slots by space index (see board.Layout.Index).
type Ledger struct {
	generation uint8
	regs       []Registration
	votes      []VoteRecord
}

// New allocates a ledger for the given number of spaces.
func New(spaces int) *Ledger {
	return &Ledger{
		regs:  make([]Registration, spaces),
		votes: make([]VoteRecord, spaces),
	}
}

// Spaces is the number of slots.
func (l *Ledger) Spaces() int { return len(l.regs) }

// Generation is the current epoch.
func (l *Ledger) Generation() uint8 { return l.generation }

// SetGeneration restores the epoch after decoding.
func (l *Ledger) SetGeneration(g uint8) { l.generation = g }

// Bump starts a new epoch. The counter wraps past 255 to 1, never 0, so
// zeroed slots never read as live. A slot last written exactly 255 starts
// ago does.
func (l *Ledger) Bump() uint8 {
	l.generation++
	if l.generation == 0 {
		l.generation = 1
	}
	return l.generation
}

// SideOf returns the live side registered for idx.
func (l *Ledger) SideOf(idx int) (Side, bool) {
	r := l.regs[idx]
	if r.Generation != l.generation || !r.Side.Valid() {
		return SideNone, false
	}
	return r.Side, true
}

// CanRegister reports why idx cannot take a registration, or nil.
func (l *Ledger) CanRegister(idx int, side Side) error {
	if !side.Valid() {
		return fmt.Errorf("register side %d: %w", side, chesserr.ErrInvalidRegisterArgs)
	}
	if _, live := l.SideOf(idx); live {
		return fmt.Errorf("register space %d: %w", idx, chesserr.ErrAlreadyRegistered)
	}
	return nil
}

// Register assigns side to idx under the current generation.
func (l *Ledger) Register(idx int, side Side) error {
	if err := l.CanRegister(idx, side); err != nil {
		return err
	}
	l.regs[idx] = Registration{Generation: l.generation, Side: side}
	return nil
}

// LiveVote returns the proposal idx made for ply in this generation. A
// malformed record, such as a never-written a1a1 slot, is not live.
func (l *Ledger) LiveVote(idx int, ply uint16) (oracle.Move, bool) {
	v := l.votes[idx]
	if v.Generation != l.generation || v.Ply != ply || !v.Move.WellFormed() {
		return oracle.Move{}, false
	}
	return v.Move, true
}

// RecordVote overwrites idx's vote slot.
func (l *Ledger) RecordVote(idx int, ply uint16, m oracle.Move) {
	l.votes[idx] = VoteRecord{Generation: l.generation, Ply: ply, Move: m}
}

// Registrations exposes the raw registration slots for encoding.
func (l *Ledger) Registrations() []Registration { return l.regs }

// Votes exposes the raw vote slots for encoding.
func (l *Ledger) Votes() []VoteRecord { return l.votes }
