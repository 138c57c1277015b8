package engine

import (
	"fmt"
	"log/slog"

	"crowd-chess/board"
	"crowd-chess/chesserr"
	"crowd-chess/oracle"
)

// Interval bounds, in seconds, accepted by StartGame.
const (
	MinInterval uint64 = 10
	MaxInterval uint64 = 7 * 24 * 60 * 60
)

// StartParams configures a new game.
type StartParams struct {
	White            board.Player
	Black            board.Player
	RegisterInterval uint64
	MoveInterval     uint64
}

// Validate checks the parameters against a board with the given number of spaces.
func (p StartParams) Validate(spaces int) error {
	for _, side := range []struct {
		name string
		pl   board.Player
	}{{"white", p.White}, {"black", p.Black}} {
		switch side.pl.Mode {
		case board.ModePubkey:
			if side.pl.Key.IsZero() {
				return fmt.Errorf("%s: pubkey player needs a key: %w", side.name, chesserr.ErrInvalidConfiguration)
			}
		case board.ModeQuorum:
			if side.pl.MinRegistrants < 1 || int(side.pl.MinRegistrants) > spaces {
				return fmt.Errorf("%s: min registrants %d outside [1,%d]: %w",
					side.name, side.pl.MinRegistrants, spaces, chesserr.ErrInvalidConfiguration)
			}
		default:
			return fmt.Errorf("%s: player mode %d: %w", side.name, side.pl.Mode, chesserr.ErrInvalidConfiguration)
		}
	}
	for _, iv := range []struct {
		name string
		v    uint64
	}{{"register interval", p.RegisterInterval}, {"move interval", p.MoveInterval}} {
		if iv.v < MinInterval || iv.v > MaxInterval {
			return fmt.Errorf("%s %ds outside [%d,%d]: %w", iv.name, iv.v, MinInterval, MaxInterval, chesserr.ErrInvalidConfiguration)
		}
	}
	return nil
}

// StartGame resets b for a new game and opens registration.
//
// Registration and vote slots are not touched; bumping the generation
// retires them.
func (c *Controller) StartGame(b *board.Board, caller board.Identity, p StartParams) error {
	if caller != b.Owner {
		return fmt.Errorf("start game: %w", chesserr.ErrNotOwner)
	}
	if b.Phase != board.PhaseInactive {
		return fmt.Errorf("start game on %s board: %w", b.Phase, chesserr.ErrIncorrectPhase)
	}
	if err := p.Validate(b.Layout().Spaces()); err != nil {
		return fmt.Errorf("start game: %w", err)
	}
	now := c.clock.Now()

	b.Position = oracle.StartPosition()
	b.White, b.Black = p.White, p.Black
	b.RegisteredWhite, b.RegisteredBlack = 0, 0
	b.RegisterInterval, b.MoveInterval = p.RegisterInterval, p.MoveInterval
	b.RegisterDeadline = forward(b.RegisterDeadline, now+p.RegisterInterval)
	b.Tally.Clear()
	gen := b.Ledger.Bump()
	b.Phase = board.PhaseRegistering
	b.Result = board.ResultNone

	c.logger.Info("game started",
		slog.String("region", b.Region.String()),
		slog.Int("generation", int(gen)),
		slog.String("white", p.White.Mode.String()),
		slog.String("black", p.Black.Mode.String()),
		slog.Uint64("register_deadline", b.RegisterDeadline),
	)
	return nil
}

// forward returns the later of two deadlines; stored deadlines never move back.
func forward(cur, next uint64) uint64 {
	if next > cur {
		return next
	}
	return cur
}
