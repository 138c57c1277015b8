package board

import (
	"errors"
	"fmt"
	"strconv"

	"crowd-chess/oracle"
)

// Layout fixes the partition side length and tally capacity. Every size and
// offset of the encoded buffer follows from these two numbers.
type Layout struct {
	Side          int `yaml:"side"`
	TallyCapacity int `yaml:"tally_capacity"`
}

// DefaultLayout: 200×200 spaces per board. 256 tally entries cover the
// largest legal move list (218) plus resign.
var DefaultLayout = Layout{Side: 200, TallyCapacity: 256}

// Fixed record sizes.
const (
	HeaderSize       = 201
	TallyLenSize     = 2
	TallyEntrySize   = 7 // from, to, promotion, count u32
	RegistrationSize = 2 // generation, side
	VoteSize         = 6 // generation, ply u16, from, to, promotion
)

// Header field offsets.
const (
	offVersion          = 0
	offOwner            = 1
	offNX               = 33
	offNY               = 41
	offGeneration       = 49
	offPosition         = 50
	offWhite            = offPosition + oracle.PositionSize // 89
	playerSize          = 35                                // mode, key[32], min u16
	offBlack            = offWhite + playerSize             // 124
	offRegWhite         = offBlack + playerSize             // 159
	offRegBlack         = 163
	offRegisterInterval = 167
	offMoveInterval     = 175
	offRegisterDeadline = 183
	offMoveDeadline     = 191
	offPhase            = 199
	offResult           = 200
)

// layoutVersion is written at offset 0; zero marks an uninitialized buffer.
const layoutVersion = 1

// Validate rejects geometries that cannot be encoded.
func (l Layout) Validate() error {
	if l.Side <= 0 || l.Side > 1<<12 {
		return fmt.Errorf("layout side %d out of range", l.Side)
	}
	if l.TallyCapacity <= 0 || l.TallyCapacity > 0xFFFF {
		return fmt.Errorf("layout tally capacity %d out of range", l.TallyCapacity)
	}
	return nil
}

// Spaces is the number of spaces in one partition.
func (l Layout) Spaces() int { return l.Side * l.Side }

// TallyOffset is where the tally length field starts.
func (l Layout) TallyOffset() int { return HeaderSize }

// RegistrationOffset is where the registration slots start.
func (l Layout) RegistrationOffset() int {
	return l.TallyOffset() + TallyLenSize + l.TallyCapacity*TallyEntrySize
}

// VoteOffset is where the vote slots start.
func (l Layout) VoteOffset() int {
	return l.RegistrationOffset() + l.Spaces()*RegistrationSize
}

// Size is the total encoded length of a board.
func (l Layout) Size() int { return l.VoteOffset() + l.Spaces()*VoteSize }

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// RegionOf returns the partition containing s.
func (l Layout) RegionOf(s Space) Region {
	side := int64(l.Side)
	return Region{NX: floorDiv(s.X, side), NY: floorDiv(s.Y, side)}
}

// Index maps s to its slot index within r, row-major over local x then y.
func (l Layout) Index(r Region, s Space) (int, bool) {
	if l.RegionOf(s) != r {
		return 0, false
	}
	side := int64(l.Side)
	lx, ly := s.X-r.NX*side, s.Y-r.NY*side
	return int(lx*side + ly), true
}

// SpaceAt is the inverse of Index.
func (l Layout) SpaceAt(r Region, idx int) Space {
	side := int64(l.Side)
	return Space{X: r.NX*side + int64(idx)/side, Y: r.NY*side + int64(idx)%side}
}

// Key is the storage key of the board covering r.
func (r Region) Key() []byte {
	return []byte("board/" + strconv.FormatInt(r.NX, 10) + "/" + strconv.FormatInt(r.NY, 10))
}

func (r Region) String() string {
	return "(" + strconv.FormatInt(r.NX, 10) + "," + strconv.FormatInt(r.NY, 10) + ")"
}

// ParseSpace reads "x,y".
func ParseSpace(s string) (Space, error) {
	for i := 0; i < len(s); i++ {
		if s[i] != ',' {
			continue
		}
		x, err := strconv.ParseInt(s[:i], 10, 64)
		if err != nil {
			return Space{}, fmt.Errorf("space %q: %w", s, err)
		}
		y, err := strconv.ParseInt(s[i+1:], 10, 64)
		if err != nil {
			return Space{}, fmt.Errorf("space %q: %w", s, err)
		}
		return Space{X: x, Y: y}, nil
	}
	return Space{}, errors.New("space " + strconv.Quote(s) + ": want x,y")
}
