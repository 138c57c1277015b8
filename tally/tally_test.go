package tally

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crowd-chess/chesserr"
	"crowd-chess/oracle"
)

func mv(t *testing.T, s string) oracle.Move {
	t.Helper()
	m, err := oracle.ParseMove(s)
	require.NoError(t, err)
	return m
}

func TestWinnerTieGoesToFirstProposal(t *testing.T) {
	tl := New(8)
	a, b, c := mv(t, "e2e4"), mv(t, "d2d4"), mv(t, "g1f3")
	for _, m := range []oracle.Move{a, b, c} {
		require.NoError(t, tl.Upsert(m, Up))
	}
	assert.Equal(t, Entry{Move: a, Count: 1}, tl.Winner())

	require.NoError(t, tl.Upsert(c, Up))
	require.NoError(t, tl.Upsert(b, Up))
	assert.Equal(t, Entry{Move: b, Count: 2}, tl.Winner(), "earlier insert wins among equal counts")
}

func TestWinnerEmptyIsZeroSentinel(t *testing.T) {
	tl := New(4)
	assert.Equal(t, Entry{}, tl.Winner())

	m := mv(t, "e2e4")
	require.NoError(t, tl.Upsert(m, Up))
	require.NoError(t, tl.Upsert(m, Down))
	assert.Zero(t, tl.Winner().Count, "a fully decremented entry does not win")
}

func TestUpsertCapacityExceeded(t *testing.T) {
	tl := New(2)
	require.NoError(t, tl.Upsert(mv(t, "e2e4"), Up))
	require.NoError(t, tl.Upsert(mv(t, "d2d4"), Up))
	assert.False(t, tl.CanAccept(mv(t, "c2c4")))
	assert.True(t, tl.CanAccept(mv(t, "e2e4")))

	err := tl.Upsert(mv(t, "c2c4"), Up)
	require.ErrorIs(t, err, chesserr.ErrCapacityExceeded)
	assert.Equal(t, 2, tl.Len())

	require.NoError(t, tl.Upsert(mv(t, "e2e4"), Up), "existing entries still count up when full")
}

func TestDecrementAbsentIsInvariantViolation(t *testing.T) {
	tl := New(4)
	err := tl.Upsert(mv(t, "e2e4"), Down)
	require.ErrorIs(t, err, chesserr.ErrTallyInvariantViolation)
	assert.Equal(t, chesserr.KindInvariant, chesserr.KindOf(err))

	require.NoError(t, tl.Upsert(mv(t, "e2e4"), Up))
	require.NoError(t, tl.Upsert(mv(t, "e2e4"), Down))
	require.ErrorIs(t, tl.Upsert(mv(t, "e2e4"), Down), chesserr.ErrTallyInvariantViolation)
}

func TestClearKeepsStaleSlots(t *testing.T) {
	tl := New(4)
	m := mv(t, "e2e4")
	require.NoError(t, tl.Upsert(m, Up))
	tl.Clear()

	assert.Equal(t, 0, tl.Len())
	assert.Equal(t, Entry{}, tl.Winner())
	assert.Equal(t, Entry{Move: m, Count: 1}, tl.Slots()[0], "Clear only resets the length")

	require.NoError(t, tl.Upsert(mv(t, "d2d4"), Up))
	assert.Equal(t, []Entry{{Move: mv(t, "d2d4"), Count: 1}}, tl.Entries())
}

// Spaces change their minds at random; the tally total must track the number
// of spaces holding a vote, whatever the order.
func TestConservationUnderVoteChanges(t *testing.T) {
	moves := []oracle.Move{mv(t, "e2e4"), mv(t, "d2d4"), mv(t, "c2c4"), mv(t, "g1f3"), oracle.Resign}
	tl := New(len(moves))
	current := map[int]oracle.Move{}
	rng := rand.New(rand.NewSource(7))

	for step := 0; step < 2000; step++ {
		space := rng.Intn(40)
		next := moves[rng.Intn(len(moves))]
		if prev, ok := current[space]; ok {
			if prev == next {
				continue
			}
			require.NoError(t, tl.Upsert(prev, Down))
		}
		require.NoError(t, tl.Upsert(next, Up))
		current[space] = next
		require.Equal(t, uint64(len(current)), tl.Total(), "step %d", step)
	}

	counts := map[oracle.Move]uint32{}
	for _, m := range current {
		counts[m]++
	}
	for _, e := range tl.Entries() {
		assert.Equal(t, counts[e.Move], e.Count, "count for %s", e.Move)
	}
}

func TestSetLenBounds(t *testing.T) {
	tl := New(3)
	require.NoError(t, tl.SetLen(3))
	assert.Equal(t, 3, tl.Len())
	require.ErrorIs(t, tl.SetLen(4), chesserr.ErrCorruptBoard)
	require.ErrorIs(t, tl.SetLen(-1), chesserr.ErrCorruptBoard)
}
