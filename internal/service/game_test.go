package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/darkmine-backend/internal/domain"
	"github.com/darkmine-backend/internal/store"
	"github.com/darkmine-backend/internal/token"
)

type capturedEvents struct {
	events []domain.GameCompletedEvent
}

func (c *capturedEvents) PublishGameCompleted(_ context.Context, event domain.GameCompletedEvent) error {
	c.events = append(c.events, event)
	return nil
}

type capturedBroadcasts struct {
	boards    [][]domain.RankedEntry
	completed []domain.GameCompletedEvent
}

func (c *capturedBroadcasts) BroadcastLeaderboard(entries []domain.RankedEntry) {
	c.boards = append(c.boards, entries)
}

func (c *capturedBroadcasts) BroadcastGameCompleted(event domain.GameCompletedEvent) {
	c.completed = append(c.completed, event)
}

type capturedStats struct {
	latest map[string]domain.PlayerRecord
}

func (c *capturedStats) SetPlayerStats(_ context.Context, rec *domain.PlayerRecord) error {
	if c.latest == nil {
		c.latest = make(map[string]domain.PlayerRecord)
	}
	c.latest[rec.PlayerID] = *rec
	return nil
}

func newTestService(t *testing.T) (*GameService, *token.Static, *capturedEvents) {
	t.Helper()
	minter := token.NewStatic()
	events := &capturedEvents{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc := NewGameService(store.NewMemory(), domain.NewLeaderboard(), minter, logger)
	svc.SetPublisher(events)
	svc.now = func() int64 { return 1_700_000_000 }
	return svc, minter, events
}

func TestRegisterPlayer(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	rec, err := svc.RegisterPlayer(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, "p1", rec.PlayerID)
	require.Equal(t, int64(1_700_000_000), rec.JoinedAt)
	require.Zero(t, rec.LastGameAt)
	require.Empty(t, rec.Name)

	_, err = svc.RegisterPlayer(ctx, "p1")
	require.ErrorIs(t, err, domain.ErrPlayerExists)

	_, err = svc.RegisterPlayer(ctx, "")
	require.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestSubmitResultEndToEnd(t *testing.T) {
	ctx := context.Background()
	svc, _, events := newTestService(t)

	_, err := svc.RegisterPlayer(ctx, "p1")
	require.NoError(t, err)

	res := domain.GameResult{Score: 50, CoalCollected: 2, OreCollected: 1, DiamondsCollected: 3, EnemiesDefeated: 1}
	event, err := svc.SubmitResult(ctx, "p1", res)
	require.NoError(t, err)

	rec, err := svc.GetPlayer(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, uint64(1), rec.GamesPlayed)
	require.Equal(t, uint64(50), rec.TotalScore)
	require.Equal(t, uint64(50), rec.HighScore)
	require.Equal(t, uint64(3), rec.TotalDiamonds)
	require.Equal(t, int64(1_700_000_000), rec.LastGameAt)

	board := svc.Leaderboard()
	require.Len(t, board, 1)
	require.Equal(t, "p1", board[0].PlayerID)
	require.Equal(t, uint64(50), board[0].Score)

	require.Len(t, events.events, 1)
	require.Equal(t, *event, events.events[0])
	require.Equal(t, uint64(50), event.Score)
	require.Equal(t, uint8(1), event.EnemiesDefeated)
}

func TestSubmitResultUnknownPlayer(t *testing.T) {
	ctx := context.Background()
	svc, _, events := newTestService(t)

	_, err := svc.SubmitResult(ctx, "ghost", domain.GameResult{Score: 10})
	require.ErrorIs(t, err, domain.ErrPlayerNotFound)
	require.Empty(t, events.events, "no event on failed submit")
	require.Empty(t, svc.Leaderboard())
}

func TestSubmitResultZeroScoreSkipsLeaderboard(t *testing.T) {
	ctx := context.Background()
	svc, _, events := newTestService(t)
	_, err := svc.RegisterPlayer(ctx, "p1")
	require.NoError(t, err)

	_, err = svc.SubmitResult(ctx, "p1", domain.GameResult{Score: 0, CoalCollected: 7})
	require.NoError(t, err)

	require.Empty(t, svc.Leaderboard())
	rec, err := svc.GetPlayer(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, uint64(1), rec.GamesPlayed)
	require.Equal(t, uint64(7), rec.TotalCoal)
	require.Len(t, events.events, 1, "zero score still completes the game")
}

func TestSubmitResultOverflowAbortsWholeOperation(t *testing.T) {
	ctx := context.Background()
	svc, _, events := newTestService(t)
	_, err := svc.RegisterPlayer(ctx, "p1")
	require.NoError(t, err)

	_, err = svc.SubmitResult(ctx, "p1", domain.GameResult{Score: 30})
	require.NoError(t, err)

	rec, err := svc.GetPlayer(ctx, "p1")
	require.NoError(t, err)
	rec.TotalScore = math.MaxUint64
	require.NoError(t, svc.store.Save(ctx, rec))
	before := svc.Leaderboard()

	_, err = svc.SubmitResult(ctx, "p1", domain.GameResult{Score: 40})
	require.ErrorIs(t, err, domain.ErrCounterOverflow)

	after, err := svc.GetPlayer(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, uint64(1), after.GamesPlayed, "counters unchanged after abort")
	require.Equal(t, before, svc.Leaderboard(), "leaderboard unchanged after abort")
	require.Len(t, events.events, 1, "no event for the aborted submit")
}

func TestSubmitResultUsesCurrentDisplayName(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	_, err := svc.RegisterPlayer(ctx, "p1")
	require.NoError(t, err)
	_, err = svc.SetPlayerName(ctx, "p1", "Miner42")
	require.NoError(t, err)

	_, err = svc.SubmitResult(ctx, "p1", domain.GameResult{Score: 60})
	require.NoError(t, err)

	board := svc.Leaderboard()
	require.Equal(t, "Miner42", board[0].PlayerName)
}

func TestSubmitResultFullBoardEviction(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	// Board at capacity with scores 100, 99, ... 81.
	for i := 0; i < domain.LeaderboardCapacity; i++ {
		id := fmt.Sprintf("p%d", i)
		_, err := svc.RegisterPlayer(ctx, id)
		require.NoError(t, err)
		_, err = svc.SubmitResult(ctx, id, domain.GameResult{Score: uint64(100 - i)})
		require.NoError(t, err)
	}

	_, err := svc.RegisterPlayer(ctx, "q")
	require.NoError(t, err)
	_, err = svc.SubmitResult(ctx, "q", domain.GameResult{Score: 90})
	require.NoError(t, err)

	board := svc.Leaderboard()
	require.Len(t, board, domain.LeaderboardCapacity)
	require.Equal(t, "p10", board[10].PlayerID, "existing tied score keeps the better rank")
	require.Equal(t, "q", board[11].PlayerID)
	require.Equal(t, uint64(82), board[len(board)-1].Score, "the 81 entry was evicted")
}

func TestSetPlayerName(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	_, err := svc.RegisterPlayer(ctx, "p1")
	require.NoError(t, err)

	rec, err := svc.SetPlayerName(ctx, "p1", "Ada")
	require.NoError(t, err)
	require.Equal(t, "Ada", rec.Name)

	_, err = svc.SetPlayerName(ctx, "p1", "abcdefghijklmnopqrstuvwxyz0123456789")
	require.ErrorIs(t, err, domain.ErrNameTooLong)

	rec, err = svc.GetPlayer(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, "Ada", rec.Name)

	_, err = svc.SetPlayerName(ctx, "ghost", "X")
	require.ErrorIs(t, err, domain.ErrPlayerNotFound)
}

func TestClaimDiamonds(t *testing.T) {
	ctx := context.Background()
	svc, minter, _ := newTestService(t)
	_, err := svc.RegisterPlayer(ctx, "p1")
	require.NoError(t, err)
	_, err = svc.SubmitResult(ctx, "p1", domain.GameResult{Score: 10, DiamondsCollected: 10})
	require.NoError(t, err)

	// Pre-claim part of the balance.
	_, err = svc.ClaimDiamonds(ctx, "p1", 4)
	require.NoError(t, err)

	req, err := svc.ClaimDiamonds(ctx, "p1", 6)
	require.NoError(t, err)
	require.Equal(t, uint64(6*domain.DiamondUnitScale), req.UnitAmount)

	rec, err := svc.GetPlayer(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, uint64(10), rec.DiamondsClaimed)
	require.Equal(t, uint64(10*domain.DiamondUnitScale), minter.Minted("p1"))

	_, err = svc.ClaimDiamonds(ctx, "p1", 1)
	require.ErrorIs(t, err, domain.ErrInsufficientClaimable)
}

func TestClaimDiamondsIssuanceFailureLeavesStateIntact(t *testing.T) {
	ctx := context.Background()
	svc, minter, _ := newTestService(t)
	_, err := svc.RegisterPlayer(ctx, "p1")
	require.NoError(t, err)
	_, err = svc.SubmitResult(ctx, "p1", domain.GameResult{Score: 10, DiamondsCollected: 5})
	require.NoError(t, err)

	minter.FailWith = domain.ErrIssuanceFailed
	_, err = svc.ClaimDiamonds(ctx, "p1", 3)
	require.ErrorIs(t, err, domain.ErrIssuanceFailed)

	rec, err := svc.GetPlayer(ctx, "p1")
	require.NoError(t, err)
	require.Zero(t, rec.DiamondsClaimed, "failed mint must not consume claimable balance")

	// The same claim succeeds once the issuance service recovers.
	minter.FailWith = nil
	_, err = svc.ClaimDiamonds(ctx, "p1", 3)
	require.NoError(t, err)
	rec, err = svc.GetPlayer(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, uint64(3), rec.DiamondsClaimed)
}

func TestClaimDiamondsValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	_, err := svc.ClaimDiamonds(ctx, "p1", 0)
	require.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = svc.ClaimDiamonds(ctx, "ghost", 1)
	require.ErrorIs(t, err, domain.ErrPlayerNotFound)
}

func TestBoardBroadcastOnChange(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	hub := &capturedBroadcasts{}
	svc.SetHub(hub)

	_, err := svc.RegisterPlayer(ctx, "p1")
	require.NoError(t, err)

	event, err := svc.SubmitResult(ctx, "p1", domain.GameResult{Score: 40})
	require.NoError(t, err)
	require.Len(t, hub.boards, 1)
	require.Len(t, hub.completed, 1)
	require.Equal(t, *event, hub.completed[0])

	// Zero score does not change the board and must not broadcast it,
	// but the completed game is still pushed to live clients.
	_, err = svc.SubmitResult(ctx, "p1", domain.GameResult{Score: 0})
	require.NoError(t, err)
	require.Len(t, hub.boards, 1)
	require.Len(t, hub.completed, 2)
}

func TestMutationsRefreshStatsCache(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	cache := &capturedStats{}
	svc.SetCache(cache)

	_, err := svc.RegisterPlayer(ctx, "p1")
	require.NoError(t, err)
	require.Contains(t, cache.latest, "p1")

	_, err = svc.SetPlayerName(ctx, "p1", "Ada")
	require.NoError(t, err)
	require.Equal(t, "Ada", cache.latest["p1"].Name)

	_, err = svc.SubmitResult(ctx, "p1", domain.GameResult{Score: 25, DiamondsCollected: 5})
	require.NoError(t, err)
	require.Equal(t, uint64(25), cache.latest["p1"].TotalScore)

	_, err = svc.ClaimDiamonds(ctx, "p1", 2)
	require.NoError(t, err)
	require.Equal(t, uint64(2), cache.latest["p1"].DiamondsClaimed)
}
