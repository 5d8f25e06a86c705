package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func requireSortedDesc(t *testing.T, lb *Leaderboard) {
	t.Helper()
	for i := 1; i < lb.Count; i++ {
		require.GreaterOrEqual(t, lb.Entries[i-1].Score, lb.Entries[i].Score,
			"entries must be sorted descending at index %d", i)
	}
}

func fillLeaderboard(lb *Leaderboard, top uint64) {
	// Scores top, top-1, ... down to top-19.
	for i := 0; i < LeaderboardCapacity; i++ {
		lb.AddScore(fmt.Sprintf("player-%d", i), top-uint64(i), fmt.Sprintf("P%d", i), int64(i))
	}
}

func TestAddScoreKeepsSortedPrefix(t *testing.T) {
	lb := NewLeaderboard()
	scores := []uint64{40, 10, 90, 90, 55, 3, 71, 40, 100, 12, 8, 66}

	for i, s := range scores {
		lb.AddScore(fmt.Sprintf("p%d", i), s, "name", int64(i))
		requireSortedDesc(t, lb)
		require.LessOrEqual(t, lb.Count, LeaderboardCapacity)
	}
	require.Equal(t, len(scores), lb.Count)
	require.Equal(t, uint64(100), lb.Entries[0].Score)
}

func TestAddScoreZeroIsNoOp(t *testing.T) {
	lb := NewLeaderboard()
	lb.AddScore("p1", 50, "one", 1)

	changed := lb.AddScore("p2", 0, "two", 2)
	require.False(t, changed)
	require.Equal(t, 1, lb.Count)
	require.Equal(t, "p1", lb.Entries[0].PlayerID)
}

func TestAddScoreFullBoardRejectsLowScore(t *testing.T) {
	lb := NewLeaderboard()
	fillLeaderboard(lb, 100) // scores 100..81
	require.Equal(t, LeaderboardCapacity, lb.Count)

	before := *lb
	changed := lb.AddScore("loser", 81, "L", 99)
	require.False(t, changed, "score equal to the lowest slot must not qualify")
	require.Equal(t, before, *lb)

	// Idempotent: a second identical attempt leaves the same table.
	lb.AddScore("loser", 81, "L", 100)
	require.Equal(t, before, *lb)
}

func TestAddScoreEvictsLastEntryWhenFull(t *testing.T) {
	lb := NewLeaderboard()
	fillLeaderboard(lb, 100) // scores 100..81

	changed := lb.AddScore("q", 90, "Q", 77)
	require.True(t, changed)
	require.Equal(t, LeaderboardCapacity, lb.Count)

	// Ten entries beat 90 (100..91) and the existing 90 keeps its slot,
	// so the newcomer lands right behind it.
	require.Equal(t, "player-10", lb.Entries[10].PlayerID)
	require.Equal(t, "q", lb.Entries[11].PlayerID)
	require.Equal(t, uint64(90), lb.Entries[11].Score)

	// The old score-81 tail fell off.
	for i := 0; i < lb.Count; i++ {
		require.NotEqual(t, uint64(81), lb.Entries[i].Score)
	}
	requireSortedDesc(t, lb)
}

func TestAddScoreTieKeepsEarlierSubmission(t *testing.T) {
	lb := NewLeaderboard()
	lb.AddScore("first", 50, "First", 1)
	lb.AddScore("second", 50, "Second", 2)

	require.Equal(t, "first", lb.Entries[0].PlayerID)
	require.Equal(t, "second", lb.Entries[1].PlayerID)
}

func TestAddScoreSamePlayerMayHoldMultipleSlots(t *testing.T) {
	lb := NewLeaderboard()
	lb.AddScore("p1", 70, "One", 1)
	lb.AddScore("p1", 90, "One", 2)

	require.Equal(t, 2, lb.Count)
	require.Equal(t, "p1", lb.Entries[0].PlayerID)
	require.Equal(t, "p1", lb.Entries[1].PlayerID)
}

func TestEntryNameTruncatedAndPadded(t *testing.T) {
	lb := NewLeaderboard()
	long := "abcdefghijklmnopqrstuvwxyz0123456789" // 36 bytes
	lb.AddScore("p1", 10, long, 1)

	require.Equal(t, long[:MaxNameLength], lb.Entries[0].Name())

	lb.AddScore("p2", 20, "Ada", 2)
	require.Equal(t, "Ada", lb.Entries[0].Name())
}

func TestEntrySnapshotSurvivesRename(t *testing.T) {
	lb := NewLeaderboard()
	rec := NewPlayerRecord("p1", 0)
	require.NoError(t, rec.SetName("Before"))

	lb.AddScore(rec.PlayerID, 30, rec.Name, 1)
	require.NoError(t, rec.SetName("After"))

	require.Equal(t, "Before", lb.Entries[0].Name())
}

func TestRanked(t *testing.T) {
	lb := NewLeaderboard()
	lb.AddScore("a", 30, "A", 1)
	lb.AddScore("b", 50, "B", 2)

	ranked := lb.Ranked()
	require.Len(t, ranked, 2)
	require.Equal(t, RankedEntry{Rank: 1, PlayerID: "b", PlayerName: "B", Score: 50, Timestamp: 2}, ranked[0])
	require.Equal(t, RankedEntry{Rank: 2, PlayerID: "a", PlayerName: "A", Score: 30, Timestamp: 1}, ranked[1])
}
