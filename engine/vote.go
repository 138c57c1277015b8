package engine

import (
	"fmt"
	"log/slog"

	"crowd-chess/board"
	"crowd-chess/chesserr"
	"crowd-chess/ledger"
	"crowd-chess/oracle"
	"crowd-chess/tally"
)

// PlyUpdateOnly asks Vote to settle phase and deadline transitions without
// casting a vote.
const PlyUpdateOnly uint16 = 0xFFFF

// Outcome names the branch a successful Vote took.
type Outcome uint8

const (
	// OutcomeUnchanged: an update-only call found nothing to advance.
	OutcomeUnchanged Outcome = iota
	// OutcomeRecorded: a quorum vote entered the tally.
	OutcomeRecorded
	// OutcomeApplied: a pubkey player's move was played.
	OutcomeApplied
	// OutcomeTallied: the move deadline had passed and the tally was settled.
	OutcomeTallied
	// OutcomeRegistrationExtended: registration closed without enough players.
	OutcomeRegistrationExtended
	// OutcomePhaseUpdated: an update-only call moved the board to Active.
	OutcomePhaseUpdated
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRecorded:
		return "recorded"
	case OutcomeApplied:
		return "applied"
	case OutcomeTallied:
		return "tallied"
	case OutcomeRegistrationExtended:
		return "registration-extended"
	case OutcomePhaseUpdated:
		return "phase-updated"
	default:
		return "unchanged"
	}
}

// pending is the phase change a Vote would make, held aside until every
// check has passed.
type pending struct {
	advance      bool
	moveDeadline uint64
}

func (pd pending) commit(b *board.Board) {
	if pd.advance {
		b.Phase = board.PhaseActive
		b.MoveDeadline = pd.moveDeadline
	}
}

func quorumReady(b *board.Board, c oracle.Color) bool {
	p := b.PlayerFor(c)
	return p.Mode == board.ModePubkey || b.Registered(c) >= uint32(max(p.MinRegistrants, 1))
}

// Vote is the central operation: it settles any pending transition, then
// casts caller's proposal for space s at ply.
func (c *Controller) Vote(b *board.Board, caller board.Identity, s board.Space, ply uint16, m oracle.Move) (Outcome, error) {
	now := c.clock.Now()
	var pd pending

	if b.Phase == board.PhaseRegistering {
		bothPK := b.White.Mode == board.ModePubkey && b.Black.Mode == board.ModePubkey
		expired := now > b.RegisterDeadline
		switch {
		case bothPK || (expired && quorumReady(b, oracle.White) && quorumReady(b, oracle.Black)):
			pd = pending{advance: true, moveDeadline: forward(b.MoveDeadline, now+b.MoveInterval)}
		case expired:
			b.RegisterDeadline = now + b.RegisterInterval
			c.logger.Info("registration extended",
				slog.String("region", b.Region.String()),
				slog.Uint64("registered_white", uint64(b.RegisteredWhite)),
				slog.Uint64("registered_black", uint64(b.RegisteredBlack)),
				slog.Uint64("register_deadline", b.RegisterDeadline),
			)
			return OutcomeRegistrationExtended, nil
		}
	}

	if b.Phase != board.PhaseActive && !pd.advance {
		return OutcomeUnchanged, fmt.Errorf("vote on %s board: %w", b.Phase, chesserr.ErrIncorrectPhase)
	}

	if !pd.advance && now > b.MoveDeadline {
		if err := c.tallyAndApply(b, now); err != nil {
			return OutcomeUnchanged, err
		}
		return OutcomeTallied, nil
	}

	if ply == PlyUpdateOnly {
		if pd.advance {
			pd.commit(b)
			c.logActivated(b)
			return OutcomePhaseUpdated, nil
		}
		return OutcomeUnchanged, nil
	}

	if !m.WellFormed() {
		return OutcomeUnchanged, fmt.Errorf("vote %+v: %w", m, chesserr.ErrInvalidVoteArgs)
	}
	if want := uint16(b.Position.Ply()); ply != want {
		return OutcomeUnchanged, fmt.Errorf("vote for ply %d, board at half-move %d of move %d: %w", ply, want, b.Position.FullmoveNumber(), chesserr.ErrPlyMismatch)
	}
	if !m.IsResign() && !oracle.Evaluate(&b.Position).Contains(m) {
		return OutcomeUnchanged, fmt.Errorf("vote %s: %w", m, chesserr.ErrIllegalMove)
	}

	mover := b.Position.SideToMove()
	player := b.PlayerFor(mover)
	if player.Mode == board.ModePubkey {
		if caller != player.Key {
			return OutcomeUnchanged, fmt.Errorf("vote for %s: %w", mover, chesserr.ErrPubkeyMismatch)
		}
		pd.commit(b)
		if err := c.applyMove(b, m, now); err != nil {
			return OutcomeUnchanged, err
		}
		return OutcomeApplied, nil
	}

	idx, ok := b.SpaceIndex(s)
	if !ok {
		return OutcomeUnchanged, fmt.Errorf("vote space %d,%d outside %s: %w", s.X, s.Y, b.Region, chesserr.ErrSpaceOutsideNeighborhood)
	}
	if !c.auth.ControlsSpace(caller, s) {
		return OutcomeUnchanged, fmt.Errorf("vote space %d,%d: %w", s.X, s.Y, chesserr.ErrSpaceNotOwned)
	}
	side, live := b.Ledger.SideOf(idx)
	if !live {
		return OutcomeUnchanged, fmt.Errorf("vote space %d,%d: %w", s.X, s.Y, chesserr.ErrUnregisteredSpace)
	}
	if side != ledger.SideFromColor(mover) {
		return OutcomeUnchanged, fmt.Errorf("space registered %s, %s to move: %w", side, mover, chesserr.ErrPlayerMismatch)
	}

	prev, voted := b.Ledger.LiveVote(idx, ply)
	if voted && prev == m {
		pd.commit(b)
		return OutcomeRecorded, nil
	}
	if !b.Tally.CanAccept(m) {
		return OutcomeUnchanged, fmt.Errorf("vote %s: %w", m, chesserr.ErrCapacityExceeded)
	}
	if voted {
		if err := b.Tally.Upsert(prev, tally.Down); err != nil {
			return OutcomeUnchanged, err
		}
	}
	if err := b.Tally.Upsert(m, tally.Up); err != nil {
		return OutcomeUnchanged, err
	}
	b.Ledger.RecordVote(idx, ply, m)
	pd.commit(b)
	if pd.advance {
		c.logActivated(b)
	}

	c.logger.Debug("vote recorded",
		slog.String("region", b.Region.String()),
		slog.Int64("x", s.X),
		slog.Int64("y", s.Y),
		slog.Int("ply", int(ply)),
		slog.String("move", m.String()),
		slog.Bool("changed", voted),
	)
	return OutcomeRecorded, nil
}

func (c *Controller) logActivated(b *board.Board) {
	c.logger.Info("game active",
		slog.String("region", b.Region.String()),
		slog.Uint64("move_deadline", b.MoveDeadline),
	)
}
