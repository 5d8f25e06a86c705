package domain

import "math"

// GameCompletedEvent is the immutable notification emitted after a match
// result has been committed. Downstream consumers (analytics, live UI)
// receive it fire-and-forget.
type GameCompletedEvent struct {
	PlayerID          string `json:"player_id"`
	Score             uint64 `json:"score"`
	CoalCollected     uint64 `json:"coal_collected"`
	OreCollected      uint64 `json:"ore_collected"`
	DiamondsCollected uint64 `json:"diamonds_collected"`
	EnemiesDefeated   uint8  `json:"enemies_defeated"`
	Timestamp         int64  `json:"timestamp"`
}

// DiamondUnitScale converts whole claimed diamonds into token base
// units; the reward token carries nine decimals.
const DiamondUnitScale = 1_000_000_000

// IssuanceRequest instructs the external token service to create
// UnitAmount base units for Recipient. The backend only authorizes the
// amount; it never creates units itself.
type IssuanceRequest struct {
	Recipient  string `json:"recipient"`
	UnitAmount uint64 `json:"unit_amount"`
}

// NewIssuanceRequest scales a diamond amount into base units with an
// overflow check.
func NewIssuanceRequest(recipient string, diamonds uint64) (IssuanceRequest, error) {
	if diamonds > math.MaxUint64/DiamondUnitScale {
		return IssuanceRequest{}, ErrCounterOverflow
	}
	return IssuanceRequest{
		Recipient:  recipient,
		UnitAmount: diamonds * DiamondUnitScale,
	}, nil
}
