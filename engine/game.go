package engine

import (
	"fmt"
	"log/slog"

	"crowd-chess/board"
	"crowd-chess/chesserr"
	"crowd-chess/oracle"
)

// tallyAndApply settles the current ply after the move deadline. An empty
// tally means nobody acted for the side to move, which then loses.
func (c *Controller) tallyAndApply(b *board.Board, now uint64) error {
	w := b.Tally.Winner()
	mover := b.Position.SideToMove()
	c.logger.Debug("tallying",
		slog.String("region", b.Region.String()),
		slog.Int("entries", b.Tally.Len()),
		slog.String("winner", w.Move.String()),
		slog.Uint64("count", uint64(w.Count)),
	)
	if w.Count == 0 {
		c.finish(b, board.WinFor(mover.Other()), "timeout")
		return nil
	}
	return c.applyMove(b, w.Move, now)
}

// applyMove plays m for the side to move, restarts the move clock and checks
// whether the opponent has any reply.
func (c *Controller) applyMove(b *board.Board, m oracle.Move, now uint64) error {
	mover := b.Position.SideToMove()
	if m.IsResign() {
		c.finish(b, board.WinFor(mover.Other()), "resignation")
		return nil
	}
	next := b.Position
	if err := next.Apply(m); err != nil {
		return fmt.Errorf("apply %s: %v: %w", m, err, chesserr.ErrIllegalMove)
	}
	b.Position = next
	b.MoveDeadline = forward(b.MoveDeadline, now+b.MoveInterval)
	b.Tally.Clear()

	c.logger.Info("move applied",
		slog.String("region", b.Region.String()),
		slog.String("side", mover.String()),
		slog.String("move", m.String()),
		slog.Int("ply", b.Position.Ply()),
	)

	ev := oracle.Evaluate(&b.Position)
	if len(ev.Moves) > 0 {
		return nil
	}
	if ev.KingAttacked {
		c.finish(b, board.WinFor(mover), "checkmate")
	} else {
		c.finish(b, board.ResultDraw, "stalemate")
	}
	return nil
}

func (c *Controller) finish(b *board.Board, r board.Result, reason string) {
	b.Phase = board.PhaseInactive
	b.Result = r
	b.Tally.Clear()
	c.logger.Info("game over",
		slog.String("region", b.Region.String()),
		slog.String("result", r.String()),
		slog.String("reason", reason),
	)
}
