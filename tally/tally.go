// Package tally keeps the bounded per-ply vote count: an insertion-ordered
// list of distinct move proposals and the number of spaces backing each.
package tally

import (
	"fmt"

	"crowd-chess/chesserr"
	"crowd-chess/oracle"
)

// Entry is one proposal and its supporter count.
type Entry struct {
	Move  oracle.Move
	Count uint32
}

// Direction selects increment or decrement in Upsert.
type Direction int8

const (
	Up   Direction = 1
	Down Direction = -1
)

// Tally is a fixed-capacity list. Slots past Len keep whatever bytes they held
// before the last Clear; nothing reads them.
type Tally struct {
	slots []Entry
	n     int
}

// New allocates a tally able to hold capacity distinct proposals.
func New(capacity int) *Tally {
	return &Tally{slots: make([]Entry, capacity)}
}

// Len is the number of distinct proposals currently held.
func (t *Tally) Len() int { return t.n }

// Cap is the fixed proposal capacity.
func (t *Tally) Cap() int { return len(t.slots) }

func (t *Tally) find(m oracle.Move) int {
	for i := 0; i < t.n; i++ {
		if t.slots[i].Move == m {
			return i
		}
	}
	return -1
}

// CanAccept reports whether an Up for m would succeed.
func (t *Tally) CanAccept(m oracle.Move) bool {
	return t.find(m) >= 0 || t.n < len(t.slots)
}

// Upsert adjusts m's count by dir. Up appends a fresh entry when m is absent.
// Down on an absent or zero entry means a caller lost track of a live vote.
func (t *Tally) Upsert(m oracle.Move, dir Direction) error {
	i := t.find(m)
	switch dir {
	case Up:
		if i >= 0 {
			t.slots[i].Count++
			return nil
		}
		if t.n >= len(t.slots) {
			return fmt.Errorf("tally upsert %s: %w", m, chesserr.ErrCapacityExceeded)
		}
		t.slots[t.n] = Entry{Move: m, Count: 1}
		t.n++
		return nil
	case Down:
		if i < 0 || t.slots[i].Count == 0 {
			return fmt.Errorf("tally decrement %s: %w", m, chesserr.ErrTallyInvariantViolation)
		}
		t.slots[i].Count--
		return nil
	default:
		return fmt.Errorf("tally upsert: direction %d: %w", dir, chesserr.ErrTallyInvariantViolation)
	}
}

// Winner returns the entry with the strictly greatest count, scanning in
// insertion order so ties go to the earliest proposal. An empty or all-zero
// tally yields the zero Entry.
func (t *Tally) Winner() Entry {
	var best Entry
	for i := 0; i < t.n; i++ {
		if t.slots[i].Count > best.Count {
			best = t.slots[i]
		}
	}
	return best
}

// Clear forgets every proposal.
func (t *Tally) Clear() { t.n = 0 }

// Total sums the counts of live entries.
func (t *Tally) Total() uint64 {
	var sum uint64
	for i := 0; i < t.n; i++ {
		sum += uint64(t.slots[i].Count)
	}
	return sum
}

// Entries returns a copy of the live entries in insertion order.
func (t *Tally) Entries() []Entry {
	out := make([]Entry, t.n)
	copy(out, t.slots[:t.n])
	return out
}

// Slots exposes the full backing array, stale tail included, for encoding.
func (t *Tally) Slots() []Entry { return t.slots }

// SetLen restores the live length after decoding.
func (t *Tally) SetLen(n int) error {
	if n < 0 || n > len(t.slots) {
		return fmt.Errorf("tally length %d outside [0,%d]: %w", n, len(t.slots), chesserr.ErrCorruptBoard)
	}
	t.n = n
	return nil
}
