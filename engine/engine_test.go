package engine

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crowd-chess/board"
	"crowd-chess/chesserr"
	"crowd-chess/ledger"
	"crowd-chess/oracle"
)

type fakeClock struct{ now uint64 }

func (f *fakeClock) Now() uint64 { return f.now }

func id(b byte) board.Identity {
	var i board.Identity
	i[0] = b
	return i
}

var (
	owner    = id(1)
	alice    = id(2) // controls every space
	mallory  = id(3) // controls nothing
	whitePK  = id(4)
	blackPK  = id(5)
	testSide = 4
)

type env struct {
	t     *testing.T
	clock *fakeClock
	ctrl  *Controller
	b     *board.Board
	logs  *bytes.Buffer
}

func newEnv(t *testing.T, capacity int) *env {
	t.Helper()
	clock := &fakeClock{now: 1_000_000}
	auth := AuthorityFunc(func(caller board.Identity, _ board.Space) bool { return caller == alice })
	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctrl := NewController(clock, auth, WithLogger(logger))
	layout := board.Layout{Side: testSide, TallyCapacity: capacity}
	return &env{t: t, clock: clock, ctrl: ctrl, b: ctrl.InitBoard(layout, owner, board.Region{}), logs: logs}
}

func quorum(min uint16) board.Player { return board.Player{Mode: board.ModeQuorum, MinRegistrants: min} }

func pubkey(key board.Identity) board.Player { return board.Player{Mode: board.ModePubkey, Key: key} }

func (e *env) start(white, black board.Player) {
	e.t.Helper()
	require.NoError(e.t, e.ctrl.StartGame(e.b, owner, StartParams{
		White: white, Black: black, RegisterInterval: 100, MoveInterval: 60,
	}))
}

func (e *env) register(x, y int64, side ledger.Side) {
	e.t.Helper()
	require.NoError(e.t, e.ctrl.Register(e.b, alice, board.Space{X: x, Y: y}, side))
}

func (e *env) vote(caller board.Identity, x, y int64, s string) (Outcome, error) {
	e.t.Helper()
	m, err := oracle.ParseMove(s)
	require.NoError(e.t, err)
	return e.ctrl.Vote(e.b, caller, board.Space{X: x, Y: y}, uint16(e.b.Position.Ply()), m)
}

func (e *env) mustVote(caller board.Identity, x, y int64, s string, want Outcome) {
	e.t.Helper()
	got, err := e.vote(caller, x, y, s)
	require.NoError(e.t, err)
	require.Equal(e.t, want, got)
}

func (e *env) update() Outcome {
	e.t.Helper()
	out, err := e.ctrl.Vote(e.b, alice, board.Space{}, PlyUpdateOnly, oracle.Move{})
	require.NoError(e.t, err)
	return out
}

// activateQuorum starts a quorum game with three white registrants and one black
// and moves it to Active.
func (e *env) activateQuorum() {
	e.t.Helper()
	e.start(quorum(1), quorum(1))
	e.register(0, 0, ledger.SideWhite)
	e.register(0, 1, ledger.SideWhite)
	e.register(0, 2, ledger.SideWhite)
	e.register(1, 0, ledger.SideBlack)
	e.clock.now = e.b.RegisterDeadline + 1
	require.Equal(e.t, OutcomePhaseUpdated, e.update())
	require.Equal(e.t, board.PhaseActive, e.b.Phase)
}

func (e *env) snapshot() []byte {
	e.t.Helper()
	buf, err := e.b.Encode()
	require.NoError(e.t, err)
	return buf
}

func TestStartGameChecks(t *testing.T) {
	e := newEnv(t, 8)
	valid := StartParams{White: quorum(1), Black: quorum(1), RegisterInterval: 100, MoveInterval: 60}

	require.ErrorIs(t, e.ctrl.StartGame(e.b, mallory, valid), chesserr.ErrNotOwner)

	bad := []StartParams{
		{White: quorum(0), Black: quorum(1), RegisterInterval: 100, MoveInterval: 60},
		{White: quorum(17), Black: quorum(1), RegisterInterval: 100, MoveInterval: 60},
		{White: pubkey(board.Identity{}), Black: quorum(1), RegisterInterval: 100, MoveInterval: 60},
		{White: board.Player{Mode: 9}, Black: quorum(1), RegisterInterval: 100, MoveInterval: 60},
		{White: quorum(1), Black: quorum(1), RegisterInterval: 5, MoveInterval: 60},
		{White: quorum(1), Black: quorum(1), RegisterInterval: 100, MoveInterval: MaxInterval + 1},
	}
	for i, p := range bad {
		err := e.ctrl.StartGame(e.b, owner, p)
		require.ErrorIs(t, err, chesserr.ErrInvalidConfiguration, "case %d", i)
		assert.Equal(t, chesserr.KindConfiguration, chesserr.KindOf(err))
		assert.Equal(t, board.PhaseInactive, e.b.Phase)
	}

	require.NoError(t, e.ctrl.StartGame(e.b, owner, valid))
	assert.Equal(t, board.PhaseRegistering, e.b.Phase)
	assert.Equal(t, uint8(1), e.b.Generation())
	assert.Equal(t, e.clock.now+100, e.b.RegisterDeadline)
	assert.Equal(t, board.ResultNone, e.b.Result)

	require.ErrorIs(t, e.ctrl.StartGame(e.b, owner, valid), chesserr.ErrIncorrectPhase)
}

func TestGenerationInvalidatesRegistrationsAndVotes(t *testing.T) {
	e := newEnv(t, 8)
	e.activateQuorum()
	e.mustVote(alice, 0, 0, "e2e4", OutcomeRecorded)
	e.mustVote(alice, 0, 1, "resign", OutcomeRecorded)
	e.mustVote(alice, 0, 2, "resign", OutcomeRecorded)

	e.clock.now = e.b.MoveDeadline + 1
	require.Equal(t, OutcomeTallied, e.update())
	require.Equal(t, board.PhaseInactive, e.b.Phase)
	require.Equal(t, board.ResultBlackWin, e.b.Result)

	regs := append([]ledger.Registration(nil), e.b.Ledger.Registrations()...)
	votes := append([]ledger.VoteRecord(nil), e.b.Ledger.Votes()...)

	e.start(quorum(1), quorum(1))

	assert.Equal(t, regs, e.b.Ledger.Registrations(), "registration region not rewritten")
	assert.Equal(t, votes, e.b.Ledger.Votes(), "vote region not rewritten")
	for i := 0; i < e.b.Ledger.Spaces(); i++ {
		_, live := e.b.Ledger.SideOf(i)
		assert.False(t, live, "slot %d still registered", i)
		_, live = e.b.Ledger.LiveVote(i, 0)
		assert.False(t, live, "slot %d vote still live", i)
	}
	assert.Zero(t, e.b.Tally.Len())
	assert.Equal(t, board.ResultNone, e.b.Result)
	e.register(0, 0, ledger.SideBlack)
}

func TestFirstVoteAfterGenerationWrap(t *testing.T) {
	e := newEnv(t, 8)
	e.b.Ledger.SetGeneration(255)
	e.activateQuorum()
	require.Equal(t, uint8(1), e.b.Generation())

	e.mustVote(alice, 0, 0, "e2e4", OutcomeRecorded)
	e.mustVote(alice, 0, 1, "e2e4", OutcomeRecorded)
	assert.Equal(t, uint64(2), e.b.Tally.Total())
	assert.Equal(t, 1, e.b.Tally.Len())
}

func TestRegisterChecks(t *testing.T) {
	e := newEnv(t, 8)
	sp := board.Space{X: 1, Y: 1}

	require.ErrorIs(t, e.ctrl.Register(e.b, alice, sp, ledger.SideWhite), chesserr.ErrIncorrectPhase)

	e.start(pubkey(whitePK), quorum(1))
	require.ErrorIs(t, e.ctrl.Register(e.b, alice, sp, ledger.SideNone), chesserr.ErrInvalidRegisterArgs)
	require.ErrorIs(t, e.ctrl.Register(e.b, alice, sp, ledger.SideWhite), chesserr.ErrPubkeyPlayer)
	require.ErrorIs(t, e.ctrl.Register(e.b, alice, board.Space{X: 4, Y: 0}, ledger.SideBlack), chesserr.ErrSpaceOutsideNeighborhood)
	require.ErrorIs(t, e.ctrl.Register(e.b, mallory, sp, ledger.SideBlack), chesserr.ErrSpaceNotOwned)

	require.NoError(t, e.ctrl.Register(e.b, alice, sp, ledger.SideBlack))
	assert.Equal(t, uint32(1), e.b.RegisteredBlack)
	require.ErrorIs(t, e.ctrl.Register(e.b, alice, sp, ledger.SideBlack), chesserr.ErrAlreadyRegistered)
	assert.Equal(t, uint32(1), e.b.RegisteredBlack)

	e.clock.now = e.b.RegisterDeadline
	require.NoError(t, e.ctrl.Register(e.b, alice, board.Space{X: 2, Y: 2}, ledger.SideBlack), "deadline itself is still open")
	e.clock.now++
	err := e.ctrl.Register(e.b, alice, board.Space{X: 3, Y: 3}, ledger.SideBlack)
	require.ErrorIs(t, err, chesserr.ErrPastRegistrationDeadline)
	assert.Equal(t, chesserr.KindTiming, chesserr.KindOf(err))
}

func TestRegistrationExtendsWhenASideIsEmpty(t *testing.T) {
	e := newEnv(t, 8)
	e.start(quorum(1), quorum(1))
	e.register(0, 0, ledger.SideWhite)

	e.clock.now = e.b.RegisterDeadline + 5
	out, err := e.vote(alice, 0, 0, "e2e4")
	require.NoError(t, err)
	assert.Equal(t, OutcomeRegistrationExtended, out)
	assert.Equal(t, board.PhaseRegistering, e.b.Phase)
	assert.Equal(t, e.clock.now+100, e.b.RegisterDeadline)
	assert.Zero(t, e.b.Tally.Len())

	// Registration is open again and black can now join.
	e.register(1, 0, ledger.SideBlack)
	e.clock.now = e.b.RegisterDeadline + 1
	assert.Equal(t, OutcomePhaseUpdated, e.update())
}

func TestMinRegistrantsGatesAdvance(t *testing.T) {
	e := newEnv(t, 8)
	e.start(quorum(2), pubkey(blackPK))
	e.register(0, 0, ledger.SideWhite)
	e.clock.now = e.b.RegisterDeadline + 1
	assert.Equal(t, OutcomeRegistrationExtended, e.update())

	e.register(0, 1, ledger.SideWhite)
	e.clock.now = e.b.RegisterDeadline + 1
	assert.Equal(t, OutcomePhaseUpdated, e.update())
	assert.Equal(t, e.clock.now+60, e.b.MoveDeadline)
}

func TestVoteBeforeRegistrationCloses(t *testing.T) {
	e := newEnv(t, 8)
	e.start(quorum(1), quorum(1))
	e.register(0, 0, ledger.SideWhite)
	e.register(1, 0, ledger.SideBlack)

	_, err := e.vote(alice, 0, 0, "e2e4")
	require.ErrorIs(t, err, chesserr.ErrIncorrectPhase)
	assert.Equal(t, chesserr.KindPhase, chesserr.KindOf(err))

	_, err = e.ctrl.Vote(e.b, alice, board.Space{}, PlyUpdateOnly, oracle.Move{})
	require.ErrorIs(t, err, chesserr.ErrIncorrectPhase)
}

func TestUpdateOnlyWithNothingPending(t *testing.T) {
	e := newEnv(t, 8)
	e.activateQuorum()
	assert.Equal(t, OutcomeUnchanged, e.update())
	assert.Equal(t, board.PhaseActive, e.b.Phase)
}

func TestPubkeyGameAdvancesImmediately(t *testing.T) {
	e := newEnv(t, 8)
	e.start(pubkey(whitePK), pubkey(blackPK))

	_, err := e.vote(blackPK, 0, 0, "e2e4")
	require.ErrorIs(t, err, chesserr.ErrPubkeyMismatch)
	assert.Equal(t, board.PhaseRegistering, e.b.Phase, "failed vote leaves the advance uncommitted")

	e.mustVote(whitePK, 0, 0, "e2e4", OutcomeApplied)
	assert.Equal(t, board.PhaseActive, e.b.Phase)
	assert.Equal(t, oracle.Black, e.b.Position.SideToMove())
	assert.Equal(t, e.clock.now+60, e.b.MoveDeadline)

	// Pubkey votes ignore the space entirely.
	e.mustVote(blackPK, 99, -99, "e7e5", OutcomeApplied)
	assert.Equal(t, 2, e.b.Position.Ply())
}

func TestVoteGameRuleChecks(t *testing.T) {
	e := newEnv(t, 8)
	e.start(pubkey(whitePK), pubkey(blackPK))
	e.mustVote(whitePK, 0, 0, "d2d4", OutcomeApplied)

	m, err := oracle.ParseMove("d7d5")
	require.NoError(t, err)
	_, err = e.ctrl.Vote(e.b, blackPK, board.Space{}, 0, m)
	require.ErrorIs(t, err, chesserr.ErrPlyMismatch)
	// Ply 2 is move 2 too, but the board is at half-move 1.
	_, err = e.ctrl.Vote(e.b, blackPK, board.Space{}, 2, m)
	require.ErrorIs(t, err, chesserr.ErrPlyMismatch)
	assert.Contains(t, err.Error(), "half-move 1 of move 1")

	_, err = e.vote(blackPK, 0, 0, "d7d4")
	require.ErrorIs(t, err, chesserr.ErrIllegalMove)
	assert.Equal(t, chesserr.KindGameRule, chesserr.KindOf(err))
	_, err = e.vote(blackPK, 0, 0, "d2d4")
	require.ErrorIs(t, err, chesserr.ErrIllegalMove)

	for _, bad := range []oracle.Move{
		{From: 70, To: 12},
		{From: 52, To: 52},
		{From: 52, To: 36, Promotion: oracle.PieceTypeKing},
	} {
		_, err = e.ctrl.Vote(e.b, blackPK, board.Space{}, 1, bad)
		require.ErrorIs(t, err, chesserr.ErrInvalidVoteArgs, "%+v", bad)
	}
}

func TestQuorumVoteChecks(t *testing.T) {
	e := newEnv(t, 8)
	e.activateQuorum()

	_, err := e.vote(alice, 4, 4, "e2e4")
	require.ErrorIs(t, err, chesserr.ErrSpaceOutsideNeighborhood)
	_, err = e.vote(mallory, 0, 0, "e2e4")
	require.ErrorIs(t, err, chesserr.ErrSpaceNotOwned)
	_, err = e.vote(alice, 3, 3, "e2e4")
	require.ErrorIs(t, err, chesserr.ErrUnregisteredSpace)
	_, err = e.vote(alice, 1, 0, "e2e4")
	require.ErrorIs(t, err, chesserr.ErrPlayerMismatch)
	assert.Zero(t, e.b.Tally.Len())
}

func TestChangingVoteConservesTally(t *testing.T) {
	e := newEnv(t, 8)
	e.activateQuorum()

	e.mustVote(alice, 0, 0, "e2e4", OutcomeRecorded)
	e.mustVote(alice, 0, 1, "e2e4", OutcomeRecorded)
	e.mustVote(alice, 0, 2, "d2d4", OutcomeRecorded)
	assert.Equal(t, uint64(3), e.b.Tally.Total())

	e.mustVote(alice, 0, 0, "d2d4", OutcomeRecorded)
	e.mustVote(alice, 0, 0, "d2d4", OutcomeRecorded)
	assert.Equal(t, uint64(3), e.b.Tally.Total())

	d2d4, err := oracle.ParseMove("d2d4")
	require.NoError(t, err)
	assert.Equal(t, d2d4, e.b.Tally.Winner().Move)
	assert.Equal(t, uint32(2), e.b.Tally.Winner().Count)
}

func TestTallyAppliesWinnerAfterDeadline(t *testing.T) {
	e := newEnv(t, 8)
	e.activateQuorum()
	e.mustVote(alice, 0, 0, "g1f3", OutcomeRecorded)
	e.mustVote(alice, 0, 1, "e2e4", OutcomeRecorded)
	e.mustVote(alice, 0, 2, "e2e4", OutcomeRecorded)

	e.clock.now = e.b.MoveDeadline + 1
	// The caller's own proposal is ignored once the deadline passed.
	out, err := e.vote(alice, 0, 0, "d2d4")
	require.NoError(t, err)
	assert.Equal(t, OutcomeTallied, out)
	assert.Equal(t, "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1", e.b.Position.FEN())
	assert.Zero(t, e.b.Tally.Len())
	assert.Equal(t, e.clock.now+60, e.b.MoveDeadline)
	assert.Equal(t, board.PhaseActive, e.b.Phase)

	// Black's lone space now votes for ply 1; the old white votes are stale.
	e.mustVote(alice, 1, 0, "e7e5", OutcomeRecorded)
	assert.Equal(t, uint64(1), e.b.Tally.Total())
}

func TestTieBreakFavorsFirstProposal(t *testing.T) {
	e := newEnv(t, 8)
	e.activateQuorum()
	e.mustVote(alice, 0, 0, "b1c3", OutcomeRecorded)
	e.mustVote(alice, 0, 1, "g1f3", OutcomeRecorded)
	e.mustVote(alice, 0, 2, "e2e4", OutcomeRecorded)

	e.clock.now = e.b.MoveDeadline + 1
	require.Equal(t, OutcomeTallied, e.update())
	assert.Equal(t, oracle.WhiteKnight, e.b.Position.PieceAt(mustSquare(t, "c3")))
}

func TestNoVotesLosesOnTime(t *testing.T) {
	e := newEnv(t, 8)
	e.activateQuorum()
	e.clock.now = e.b.MoveDeadline + 1
	require.Equal(t, OutcomeTallied, e.update())
	assert.Equal(t, board.PhaseInactive, e.b.Phase)
	assert.Equal(t, board.ResultBlackWin, e.b.Result)
}

func TestPubkeySideLosesWhenSilent(t *testing.T) {
	e := newEnv(t, 8)
	e.start(pubkey(whitePK), pubkey(blackPK))
	e.mustVote(whitePK, 0, 0, "e2e4", OutcomeApplied)

	e.clock.now = e.b.MoveDeadline + 1
	require.Equal(t, OutcomeTallied, e.update())
	assert.Equal(t, board.ResultWhiteWin, e.b.Result)
}

func TestPubkeyResignation(t *testing.T) {
	e := newEnv(t, 8)
	e.start(pubkey(whitePK), pubkey(blackPK))
	e.mustVote(whitePK, 0, 0, "resign", OutcomeApplied)
	assert.Equal(t, board.PhaseInactive, e.b.Phase)
	assert.Equal(t, board.ResultBlackWin, e.b.Result)
}

func TestFoolsMateEndsGame(t *testing.T) {
	e := newEnv(t, 8)
	e.start(pubkey(whitePK), pubkey(blackPK))
	e.mustVote(whitePK, 0, 0, "f2f3", OutcomeApplied)
	e.mustVote(blackPK, 0, 0, "e7e5", OutcomeApplied)
	e.mustVote(whitePK, 0, 0, "g2g4", OutcomeApplied)
	e.mustVote(blackPK, 0, 0, "d8h4", OutcomeApplied)

	assert.Equal(t, board.PhaseInactive, e.b.Phase)
	assert.Equal(t, board.ResultBlackWin, e.b.Result)

	_, err := e.vote(whitePK, 0, 0, "e1f2")
	require.ErrorIs(t, err, chesserr.ErrIncorrectPhase)
}

func TestStalemateIsDraw(t *testing.T) {
	e := newEnv(t, 8)
	e.start(pubkey(whitePK), pubkey(blackPK))
	e.mustVote(whitePK, 0, 0, "e2e4", OutcomeApplied)
	setPosition(t, e.b, "7k/8/6K1/8/8/8/8/5Q2 w - - 0 1")

	e.mustVote(whitePK, 0, 0, "f1f7", OutcomeApplied)
	assert.Equal(t, board.PhaseInactive, e.b.Phase)
	assert.Equal(t, board.ResultDraw, e.b.Result)
}

func TestQuorumCheckmateViaTally(t *testing.T) {
	e := newEnv(t, 8)
	e.activateQuorum()
	setPosition(t, e.b, "7k/6pp/6Q1/8/8/2B5/8/6K1 w - - 0 1")

	e.mustVote(alice, 0, 0, "g6g7", OutcomeRecorded)
	e.clock.now = e.b.MoveDeadline + 1
	require.Equal(t, OutcomeTallied, e.update())
	assert.Equal(t, board.PhaseInactive, e.b.Phase)
	assert.Equal(t, board.ResultWhiteWin, e.b.Result)
}

func TestFailedVoteLeavesBoardUntouched(t *testing.T) {
	e := newEnv(t, 2)
	e.activateQuorum()
	e.mustVote(alice, 0, 0, "e2e4", OutcomeRecorded)
	e.mustVote(alice, 0, 1, "d2d4", OutcomeRecorded)

	before := e.snapshot()
	_, err := e.vote(alice, 0, 2, "c2c4")
	require.ErrorIs(t, err, chesserr.ErrCapacityExceeded)
	assert.Equal(t, before, e.snapshot())

	// Moving an existing voter onto a full tally's new move fails the same way.
	_, err = e.vote(alice, 0, 0, "c2c4")
	require.ErrorIs(t, err, chesserr.ErrCapacityExceeded)
	assert.Equal(t, before, e.snapshot())

	// A voter joining an existing entry still fits.
	e.mustVote(alice, 0, 2, "d2d4", OutcomeRecorded)
}

func TestUpdateOnlyOnInactiveBoard(t *testing.T) {
	e := newEnv(t, 8)
	_, err := e.ctrl.Vote(e.b, alice, board.Space{}, PlyUpdateOnly, oracle.Move{})
	require.ErrorIs(t, err, chesserr.ErrIncorrectPhase)
}

func TestControllerLogsEvents(t *testing.T) {
	e := newEnv(t, 8)
	e.start(pubkey(whitePK), pubkey(blackPK))
	e.mustVote(whitePK, 0, 0, "resign", OutcomeApplied)
	assert.Contains(t, e.logs.String(), "game started")
	assert.Contains(t, e.logs.String(), "reason=resignation")
}

func setPosition(t *testing.T, b *board.Board, fen string) {
	t.Helper()
	p, err := oracle.ParseFEN(fen)
	require.NoError(t, err)
	b.Position = *p
}

func mustSquare(t *testing.T, s string) oracle.Square {
	t.Helper()
	m, err := oracle.ParseMove(s + s)
	require.NoError(t, err)
	return m.From
}
