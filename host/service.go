// Package host binds the game controller to persistent storage.
//
// A Service loads the board covering a space, runs one controller operation
// on it, and writes the result back in the same store transaction. An
// operation that fails writes nothing.
package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"crowd-chess/board"
	"crowd-chess/chesserr"
	"crowd-chess/engine"
	"crowd-chess/ledger"
	"crowd-chess/oracle"
	"crowd-chess/store"
)

// Service runs board operations against a Store.
type Service struct {
	store   store.Store
	layout  board.Layout
	ctrl    *engine.Controller
	logger  *slog.Logger
	metrics *Metrics

	mu    sync.Mutex
	locks map[string]*keyLock
}

// Option configures a Service.
type Option func(*Service)

// WithLayout overrides board.DefaultLayout. Every board in one store must
// share a layout.
func WithLayout(l board.Layout) Option {
	return func(s *Service) { s.layout = l }
}

// WithLogger sets the logger for the service and its controller.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics reports every call to m.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New builds a Service over st.
func New(st store.Store, clock engine.Clock, auth engine.Authority, opts ...Option) (*Service, error) {
	s := &Service{
		store:  st,
		layout: board.DefaultLayout,
		logger: slog.New(slog.DiscardHandler),
		locks:  make(map[string]*keyLock),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.layout.Validate(); err != nil {
		return nil, fmt.Errorf("host: %w", err)
	}
	s.ctrl = engine.NewController(clock, auth, engine.WithLogger(s.logger))
	return s, nil
}

// Layout returns the layout boards are stored under.
func (s *Service) Layout() board.Layout { return s.layout }

// keyLock is a mutex shared by every in-flight operation on one key.
type keyLock struct {
	sync.Mutex
	refs int
}

// lock serializes operations on one key. Badger would otherwise abort one of
// two racing transactions with a conflict. The entry is dropped once the last
// holder or waiter releases it, so locks only holds keys in use.
func (s *Service) lock(key string) func() {
	s.mu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = new(keyLock)
		s.locks[key] = l
	}
	l.refs++
	s.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		s.mu.Lock()
		if l.refs--; l.refs == 0 {
			delete(s.locks, key)
		}
		s.mu.Unlock()
	}
}

// InitBoard creates the inactive board for region, owned by caller.
func (s *Service) InitBoard(ctx context.Context, caller board.Identity, region board.Region) error {
	start := time.Now()
	key := region.Key()
	defer s.lock(string(key))()

	b := s.ctrl.InitBoard(s.layout, caller, region)
	buf, err := b.Encode()
	if err == nil {
		err = s.store.Create(ctx, key, buf)
		if errors.Is(err, store.ErrExists) {
			err = fmt.Errorf("init %s: %w", key, chesserr.ErrAlreadyInitialized)
		}
	}
	s.done(ctx, "init", key, start, err)
	return err
}

// StartGame begins a new game on region's board.
func (s *Service) StartGame(ctx context.Context, caller board.Identity, region board.Region, p engine.StartParams) error {
	return s.update(ctx, "start", region, func(b *board.Board) error {
		return s.ctrl.StartGame(b, caller, p)
	})
}

// Register assigns space to side on the board covering it.
func (s *Service) Register(ctx context.Context, caller board.Identity, space board.Space, side ledger.Side) error {
	return s.update(ctx, "register", s.layout.RegionOf(space), func(b *board.Board) error {
		return s.ctrl.Register(b, caller, space, side)
	})
}

// Vote casts caller's move for space on the board covering it. Pass
// engine.PlyUpdateOnly as ply to settle pending transitions only.
func (s *Service) Vote(ctx context.Context, caller board.Identity, space board.Space, ply uint16, m oracle.Move) (engine.Outcome, error) {
	var out engine.Outcome
	err := s.update(ctx, "vote", s.layout.RegionOf(space), func(b *board.Board) error {
		var err error
		out, err = s.ctrl.Vote(b, caller, space, ply, m)
		return err
	})
	if err != nil {
		return engine.OutcomeUnchanged, err
	}
	return out, nil
}

// Snapshot decodes region's board without modifying it.
func (s *Service) Snapshot(ctx context.Context, region board.Region) (*board.Board, error) {
	key := region.Key()
	buf, err := s.store.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("snapshot %s: %w", key, chesserr.ErrUninitializedBoard)
	}
	if err != nil {
		return nil, err
	}
	return board.Decode(s.layout, buf)
}

func (s *Service) update(ctx context.Context, op string, region board.Region, fn func(*board.Board) error) error {
	start := time.Now()
	key := region.Key()
	defer s.lock(string(key))()

	var ended board.Result
	err := s.store.Update(ctx, key, func(cur []byte) ([]byte, error) {
		b, err := board.Decode(s.layout, cur)
		if err != nil {
			return nil, err
		}
		before := b.Phase
		if err := fn(b); err != nil {
			return nil, err
		}
		if before != board.PhaseInactive && b.Phase == board.PhaseInactive {
			ended = b.Result
		}
		if err := b.EncodeInto(cur); err != nil {
			return nil, err
		}
		return cur, nil
	})
	if errors.Is(err, store.ErrNotFound) {
		err = fmt.Errorf("%s %s: %w", op, key, chesserr.ErrUninitializedBoard)
	}
	if err == nil && ended != board.ResultNone {
		s.metrics.finished(ended)
	}
	s.done(ctx, op, key, start, err)
	return err
}

func (s *Service) done(ctx context.Context, op string, key []byte, start time.Time, err error) {
	s.metrics.observe(op, time.Since(start).Seconds(), err)
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "operation rejected",
			slog.String("op", op),
			slog.String("board", string(key)),
			slog.String("code", codeLabel(err)),
			slog.String("error", err.Error()),
		)
		return
	}
	s.logger.LogAttrs(ctx, slog.LevelDebug, "operation committed",
		slog.String("op", op),
		slog.String("board", string(key)),
	)
}
