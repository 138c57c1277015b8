// Package engine runs the game lifecycle on a decoded board.Board.
//
// Every operation validates completely before it mutates anything, so a
// returned error always leaves the Board exactly as it was passed in.
package engine

import (
	"log/slog"

	"crowd-chess/board"
)

// Clock supplies the current unix time in seconds.
type Clock interface {
	Now() uint64
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() uint64

func (f ClockFunc) Now() uint64 { return f() }

// Authority answers whether a caller controls a space. It stands in for the
// external ownership check.
type Authority interface {
	ControlsSpace(caller board.Identity, s board.Space) bool
}

// AuthorityFunc adapts a function to Authority.
type AuthorityFunc func(caller board.Identity, s board.Space) bool

func (f AuthorityFunc) ControlsSpace(caller board.Identity, s board.Space) bool { return f(caller, s) }

// Controller owns no state of its own; it applies operations to the Board it
// is handed. It is safe for concurrent use on distinct boards.
type Controller struct {
	clock  Clock
	auth   Authority
	logger *slog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger routes controller events to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewController builds a controller reading time from clock and space
// ownership from auth.
func NewController(clock Clock, auth Authority, opts ...Option) *Controller {
	c := &Controller{
		clock:  clock,
		auth:   auth,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// InitBoard returns a fresh inactive board for region.
func (c *Controller) InitBoard(layout board.Layout, owner board.Identity, region board.Region) *board.Board {
	b := board.New(layout, owner, region)
	c.logger.Info("board initialized",
		slog.String("region", region.String()),
		slog.String("owner", owner.String()),
	)
	return b
}
