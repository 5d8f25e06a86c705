package domain

// LeaderboardCapacity is the fixed number of slots in the high-score
// table. The table never grows beyond it; a qualifying insert into a
// full table evicts the last entry.
const LeaderboardCapacity = 20

// LeaderboardEntry is a snapshot of one qualifying score. PlayerName is
// the display name at submission time, truncated to 32 bytes and
// zero-padded; later renames do not rewrite historical entries.
type LeaderboardEntry struct {
	PlayerID   string
	Score      uint64
	Timestamp  int64
	PlayerName [MaxNameLength]byte
}

// Name returns the entry's name snapshot with padding stripped.
func (e LeaderboardEntry) Name() string {
	n := len(e.PlayerName)
	for n > 0 && e.PlayerName[n-1] == 0 {
		n--
	}
	return string(e.PlayerName[:n])
}

// PackName truncates and zero-pads a display name into a fixed slot.
func PackName(name string) [MaxNameLength]byte {
	var packed [MaxNameLength]byte
	copy(packed[:], name)
	return packed
}

// Leaderboard is the single shared high-score table. Entries[0:Count]
// are sorted by score descending; the remainder of the array is unused
// default values. It is not safe for concurrent use; callers serialize
// access.
type Leaderboard struct {
	Entries [LeaderboardCapacity]LeaderboardEntry
	Count   int
}

// NewLeaderboard returns an empty leaderboard.
func NewLeaderboard() *Leaderboard {
	return &Leaderboard{}
}

// AddScore inserts a score snapshot into rank order, evicting the last
// entry when the table is full. Equal scores do not displace existing
// entries: insertion requires strictly greater, so the earlier
// submission keeps the better rank. Zero scores never qualify. Returns
// whether the table changed.
func (l *Leaderboard) AddScore(playerID string, score uint64, playerName string, now int64) bool {
	if score == 0 {
		return false
	}
	if l.Count >= LeaderboardCapacity && score <= l.Entries[LeaderboardCapacity-1].Score {
		return false
	}

	entry := LeaderboardEntry{
		PlayerID:   playerID,
		Score:      score,
		Timestamp:  now,
		PlayerName: PackName(playerName),
	}

	idx := l.Count
	for i := 0; i < l.Count; i++ {
		if score > l.Entries[i].Score {
			idx = i
			break
		}
	}
	if idx >= LeaderboardCapacity {
		return false
	}

	if l.Count < LeaderboardCapacity {
		l.Count++
	}
	// Shift tail-to-head so nothing is overwritten before it moves.
	for i := l.Count - 1; i > idx; i-- {
		l.Entries[i] = l.Entries[i-1]
	}
	l.Entries[idx] = entry
	return true
}

// RankedEntry is the JSON-friendly projection of a leaderboard slot.
type RankedEntry struct {
	Rank       int    `json:"rank"`
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	Score      uint64 `json:"score"`
	Timestamp  int64  `json:"timestamp"`
}

// Ranked returns the occupied prefix as 1-indexed ranked entries.
func (l *Leaderboard) Ranked() []RankedEntry {
	entries := make([]RankedEntry, l.Count)
	for i := 0; i < l.Count; i++ {
		e := l.Entries[i]
		entries[i] = RankedEntry{
			Rank:       i + 1,
			PlayerID:   e.PlayerID,
			PlayerName: e.Name(),
			Score:      e.Score,
			Timestamp:  e.Timestamp,
		}
	}
	return entries
}
