package engine

import (
	"fmt"
	"log/slog"

	"crowd-chess/board"
	"crowd-chess/chesserr"
	"crowd-chess/ledger"
)

// Register assigns space s to side for the current game.
func (c *Controller) Register(b *board.Board, caller board.Identity, s board.Space, side ledger.Side) error {
	if b.Phase != board.PhaseRegistering {
		return fmt.Errorf("register on %s board: %w", b.Phase, chesserr.ErrIncorrectPhase)
	}
	if now := c.clock.Now(); now > b.RegisterDeadline {
		return fmt.Errorf("register at %d after %d: %w", now, b.RegisterDeadline, chesserr.ErrPastRegistrationDeadline)
	}
	if !side.Valid() {
		return fmt.Errorf("register side %d: %w", side, chesserr.ErrInvalidRegisterArgs)
	}
	if b.PlayerFor(side.Color()).Mode == board.ModePubkey {
		return fmt.Errorf("register for %s: %w", side, chesserr.ErrPubkeyPlayer)
	}
	idx, ok := b.SpaceIndex(s)
	if !ok {
		return fmt.Errorf("register space %d,%d outside %s: %w", s.X, s.Y, b.Region, chesserr.ErrSpaceOutsideNeighborhood)
	}
	if !c.auth.ControlsSpace(caller, s) {
		return fmt.Errorf("register space %d,%d: %w", s.X, s.Y, chesserr.ErrSpaceNotOwned)
	}
	if err := b.Ledger.Register(idx, side); err != nil {
		return err
	}
	b.AddRegistrant(side.Color())

	c.logger.Debug("space registered",
		slog.String("region", b.Region.String()),
		slog.Int64("x", s.X),
		slog.Int64("y", s.Y),
		slog.String("side", side.String()),
	)
	return nil
}
