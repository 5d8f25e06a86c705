package domain

import "math"

// MaxNameLength is the byte limit for a player's display name.
const MaxNameLength = 32

// PlayerRecord holds a player's lifetime statistics and claim state.
// All counters are cumulative and never decrease; HighScore is a running
// maximum. DiamondsClaimed never exceeds TotalDiamonds.
type PlayerRecord struct {
	PlayerID             string `json:"player_id"`
	Name                 string `json:"name"`
	GamesPlayed          uint64 `json:"games_played"`
	TotalScore           uint64 `json:"total_score"`
	HighScore            uint64 `json:"high_score"`
	TotalCoal            uint64 `json:"total_coal"`
	TotalOre             uint64 `json:"total_ore"`
	TotalDiamonds        uint64 `json:"total_diamonds"`
	TotalEnemiesDefeated uint64 `json:"total_enemies_defeated"`
	DiamondsClaimed      uint64 `json:"diamonds_claimed"`
	JoinedAt             int64  `json:"joined_at"`
	LastGameAt           int64  `json:"last_game_at"`
}

// NewPlayerRecord creates a zeroed record for a freshly registered player.
func NewPlayerRecord(playerID string, now int64) *PlayerRecord {
	return &PlayerRecord{
		PlayerID: playerID,
		JoinedAt: now,
	}
}

// GameResult is a single finished match as reported by the game client.
// EnemiesDefeated arrives as a single byte on the wire and is widened
// when accumulated into the record.
type GameResult struct {
	Score             uint64 `json:"score"`
	CoalCollected     uint64 `json:"coal_collected"`
	OreCollected      uint64 `json:"ore_collected"`
	DiamondsCollected uint64 `json:"diamonds_collected"`
	EnemiesDefeated   uint8  `json:"enemies_defeated"`
}

func addChecked(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, ErrCounterOverflow
	}
	return a + b, nil
}

// ApplyGameResult accumulates a match into the record's counters using
// checked addition. On ErrCounterOverflow the record is left untouched:
// all additions are validated against a scratch copy and committed only
// once every one of them is in range.
func (p *PlayerRecord) ApplyGameResult(res GameResult, now int64) error {
	next := *p

	var err error
	if next.GamesPlayed, err = addChecked(p.GamesPlayed, 1); err != nil {
		return err
	}
	if next.TotalScore, err = addChecked(p.TotalScore, res.Score); err != nil {
		return err
	}
	if next.TotalCoal, err = addChecked(p.TotalCoal, res.CoalCollected); err != nil {
		return err
	}
	if next.TotalOre, err = addChecked(p.TotalOre, res.OreCollected); err != nil {
		return err
	}
	if next.TotalDiamonds, err = addChecked(p.TotalDiamonds, res.DiamondsCollected); err != nil {
		return err
	}
	if next.TotalEnemiesDefeated, err = addChecked(p.TotalEnemiesDefeated, uint64(res.EnemiesDefeated)); err != nil {
		return err
	}

	if res.Score > next.HighScore {
		next.HighScore = res.Score
	}
	next.LastGameAt = now

	*p = next
	return nil
}

// SetName updates the display name. The stored name is unchanged when
// the new one exceeds MaxNameLength bytes.
func (p *PlayerRecord) SetName(name string) error {
	if len(name) > MaxNameLength {
		return ErrNameTooLong
	}
	p.Name = name
	return nil
}

// ClaimableDiamonds returns the diamonds earned but not yet redeemed.
func (p *PlayerRecord) ClaimableDiamonds() uint64 {
	if p.DiamondsClaimed > p.TotalDiamonds {
		return 0
	}
	return p.TotalDiamonds - p.DiamondsClaimed
}
