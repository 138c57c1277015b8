// Package board defines the persisted Board aggregate and its fixed binary
// layout.
//
// A Board is the typed arena the controller works on: header fields, a
// decoded oracle.Position, the vote tally and the registration ledger. Only
// Encode and Decode know about byte offsets.
package board

import (
	"encoding/hex"
	"fmt"

	"crowd-chess/ledger"
	"crowd-chess/oracle"
	"crowd-chess/tally"
)

// Identity is an opaque 32-byte caller or owner key.
type Identity [32]byte

// ParseIdentity decodes 64 hex characters.
func ParseIdentity(s string) (Identity, error) {
	var id Identity
	raw, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("identity %q: %w", s, err)
	}
	if len(raw) != len(id) {
		return id, fmt.Errorf("identity %q: want %d bytes, got %d", s, len(id), len(raw))
	}
	copy(id[:], raw)
	return id, nil
}

func (id Identity) String() string { return hex.EncodeToString(id[:]) }

// IsZero reports the all-zero identity, which never names a real key.
func (id Identity) IsZero() bool { return id == Identity{} }

// Region addresses one partition of the space grid.
type Region struct {
	NX, NY int64
}

// Space is a cell in the global grid.
type Space struct {
	X, Y int64
}

// Phase is the lifecycle state of a board.
type Phase uint8

const (
	PhaseInactive Phase = iota
	PhaseRegistering
	PhaseActive
)

func (p Phase) String() string {
	switch p {
	case PhaseInactive:
		return "inactive"
	case PhaseRegistering:
		return "registering"
	case PhaseActive:
		return "active"
	}
	return fmt.Sprintf("phase(%d)", uint8(p))
}

// Result is the outcome of the last finished game.
type Result uint8

const (
	ResultNone Result = iota
	ResultDraw
	ResultWhiteWin
	ResultBlackWin
)

func (r Result) String() string {
	switch r {
	case ResultNone:
		return "none"
	case ResultDraw:
		return "draw"
	case ResultWhiteWin:
		return "white-win"
	case ResultBlackWin:
		return "black-win"
	}
	return fmt.Sprintf("result(%d)", uint8(r))
}

// WinFor returns the result crediting c with the win.
func WinFor(c oracle.Color) Result {
	if c == oracle.Black {
		return ResultBlackWin
	}
	return ResultWhiteWin
}

// PlayerMode decides who moves for a side.
type PlayerMode uint8

const (
	// ModeQuorum lets registered spaces vote; the tally decides.
	ModeQuorum PlayerMode = iota
	// ModePubkey binds the side to one identity whose move applies at once.
	ModePubkey
)

func (m PlayerMode) String() string {
	if m == ModePubkey {
		return "pubkey"
	}
	return "quorum"
}

// Player configures one side of the game.
type Player struct {
	Mode           PlayerMode
	Key            Identity // ModePubkey only
	MinRegistrants uint16   // ModeQuorum only
}

// Board is the whole persisted state of one partition's game.
type Board struct {
	Owner  Identity
	Region Region

	Position oracle.Position
	White    Player
	Black    Player

	RegisteredWhite uint32
	RegisteredBlack uint32

	RegisterInterval uint64
	MoveInterval     uint64
	RegisterDeadline uint64
	MoveDeadline     uint64

	Phase  Phase
	Result Result

	Tally  *tally.Tally
	Ledger *ledger.Ledger

	layout Layout
}

// New returns a fresh inactive board sized by layout.
func New(layout Layout, owner Identity, region Region) *Board {
	return &Board{
		Owner:    owner,
		Region:   region,
		Position: oracle.StartPosition(),
		Tally:    tally.New(layout.TallyCapacity),
		Ledger:   ledger.New(layout.Spaces()),
		layout:   layout,
	}
}

// Layout is the geometry the board was created with.
func (b *Board) Layout() Layout { return b.layout }

// Generation is the current registration epoch.
func (b *Board) Generation() uint8 { return b.Ledger.Generation() }

// PlayerFor returns the configuration of side c.
func (b *Board) PlayerFor(c oracle.Color) *Player {
	if c == oracle.Black {
		return &b.Black
	}
	return &b.White
}

// Registered returns the registration counter of side c.
func (b *Board) Registered(c oracle.Color) uint32 {
	if c == oracle.Black {
		return b.RegisteredBlack
	}
	return b.RegisteredWhite
}

// AddRegistrant increments side c's counter.
func (b *Board) AddRegistrant(c oracle.Color) {
	if c == oracle.Black {
		b.RegisteredBlack++
		return
	}
	b.RegisteredWhite++
}

// SpaceIndex locates s inside this board's partition.
func (b *Board) SpaceIndex(s Space) (int, bool) { return b.layout.Index(b.Region, s) }
