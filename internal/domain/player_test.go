package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplyGameResultAccumulates(t *testing.T) {
	rec := NewPlayerRecord("p1", 1000)
	res := GameResult{Score: 50, CoalCollected: 2, OreCollected: 1, DiamondsCollected: 3, EnemiesDefeated: 1}

	require.NoError(t, rec.ApplyGameResult(res, 2000))

	require.Equal(t, uint64(1), rec.GamesPlayed)
	require.Equal(t, uint64(50), rec.TotalScore)
	require.Equal(t, uint64(50), rec.HighScore)
	require.Equal(t, uint64(2), rec.TotalCoal)
	require.Equal(t, uint64(1), rec.TotalOre)
	require.Equal(t, uint64(3), rec.TotalDiamonds)
	require.Equal(t, uint64(1), rec.TotalEnemiesDefeated)
	require.Equal(t, int64(1000), rec.JoinedAt)
	require.Equal(t, int64(2000), rec.LastGameAt)

	// Second result adds each delta exactly once.
	require.NoError(t, rec.ApplyGameResult(GameResult{Score: 20, CoalCollected: 5}, 3000))
	require.Equal(t, uint64(2), rec.GamesPlayed)
	require.Equal(t, uint64(70), rec.TotalScore)
	require.Equal(t, uint64(50), rec.HighScore, "lower score must not lower the high score")
	require.Equal(t, uint64(7), rec.TotalCoal)
}

func TestApplyGameResultOverflowLeavesRecordUntouched(t *testing.T) {
	rec := NewPlayerRecord("p1", 0)
	rec.TotalDiamonds = math.MaxUint64 - 1

	before := *rec
	err := rec.ApplyGameResult(GameResult{Score: 10, DiamondsCollected: 5}, 100)
	require.ErrorIs(t, err, ErrCounterOverflow)
	require.Equal(t, before, *rec, "no partial update on overflow")
}

func TestSetName(t *testing.T) {
	rec := NewPlayerRecord("p1", 0)
	require.NoError(t, rec.SetName("Ada"))
	require.Equal(t, "Ada", rec.Name)

	tooLong := "abcdefghijklmnopqrstuvwxyz0123456789"
	require.ErrorIs(t, rec.SetName(tooLong), ErrNameTooLong)
	require.Equal(t, "Ada", rec.Name, "failed rename must not clobber the stored name")

	// Exactly 32 bytes is allowed.
	exact := tooLong[:32]
	require.NoError(t, rec.SetName(exact))
	require.Equal(t, exact, rec.Name)
}

func TestClaimableDiamonds(t *testing.T) {
	rec := NewPlayerRecord("p1", 0)
	rec.TotalDiamonds = 10
	rec.DiamondsClaimed = 4
	require.Equal(t, uint64(6), rec.ClaimableDiamonds())

	// Saturates rather than wrapping if state is ever corrupt.
	rec.DiamondsClaimed = 12
	require.Equal(t, uint64(0), rec.ClaimableDiamonds())
}

func TestNewIssuanceRequestScales(t *testing.T) {
	req, err := NewIssuanceRequest("p1", 6)
	require.NoError(t, err)
	require.Equal(t, "p1", req.Recipient)
	require.Equal(t, uint64(6_000_000_000), req.UnitAmount)

	_, err = NewIssuanceRequest("p1", math.MaxUint64/2)
	require.ErrorIs(t, err, ErrCounterOverflow)
}
