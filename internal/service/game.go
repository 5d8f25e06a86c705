package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/darkmine-backend/internal/domain"
	"github.com/darkmine-backend/internal/store"
	"github.com/darkmine-backend/internal/token"
)

// EventPublisher delivers GameCompleted notifications to external
// observers. Delivery is fire-and-forget; failures are logged, never
// surfaced to the submitting player.
type EventPublisher interface {
	PublishGameCompleted(ctx context.Context, event domain.GameCompletedEvent) error
}

// AuditLog records committed operations in durable storage.
type AuditLog interface {
	RecordGameEvent(ctx context.Context, event domain.GameCompletedEvent) error
	RecordClaim(ctx context.Context, playerID string, diamonds uint64, req domain.IssuanceRequest) error
}

// Broadcaster pushes committed game activity to connected live clients.
type Broadcaster interface {
	BroadcastLeaderboard(entries []domain.RankedEntry)
	BroadcastGameCompleted(event domain.GameCompletedEvent)
}

// StatsCache keeps a player's cached headline stats current after a
// mutation. Refresh failures are logged, never surfaced.
type StatsCache interface {
	SetPlayerStats(ctx context.Context, rec *domain.PlayerRecord) error
}

// GameService provides the business logic for player registration, game
// result submission and diamond claims. All mutating operations are
// serialized by one mutex: the record store and the shared leaderboard
// are single-writer resources and the domain layer carries no locks of
// its own.
type GameService struct {
	mu     sync.Mutex
	store  store.PlayerStore
	board  *domain.Leaderboard
	minter token.Minter
	logger *slog.Logger

	publisher EventPublisher
	audit     AuditLog
	hub       Broadcaster
	cache     StatsCache

	now func() int64
}

// NewGameService creates a new game service.
func NewGameService(
	players store.PlayerStore,
	board *domain.Leaderboard,
	minter token.Minter,
	logger *slog.Logger,
) *GameService {
	return &GameService{
		store:  players,
		board:  board,
		minter: minter,
		logger: logger,
		now:    func() int64 { return time.Now().Unix() },
	}
}

// SetPublisher attaches the GameCompleted event sink.
func (s *GameService) SetPublisher(p EventPublisher) { s.publisher = p }

// SetAudit attaches the durable audit log.
func (s *GameService) SetAudit(a AuditLog) { s.audit = a }

// SetHub attaches the live broadcast hub.
func (s *GameService) SetHub(h Broadcaster) { s.hub = h }

// SetCache attaches the read-side stats cache.
func (s *GameService) SetCache(c StatsCache) { s.cache = c }

// refreshStats pushes the freshly saved record into the stats cache.
func (s *GameService) refreshStats(ctx context.Context, rec *domain.PlayerRecord) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetPlayerStats(ctx, rec); err != nil {
		s.logger.Warn("failed to refresh player stats cache", "player_id", rec.PlayerID, "error", err)
	}
}

// RegisterPlayer creates a record for a new player identity.
func (s *GameService) RegisterPlayer(ctx context.Context, playerID string) (*domain.PlayerRecord, error) {
	if playerID == "" {
		return nil, domain.ErrInvalidRequest
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := domain.NewPlayerRecord(playerID, s.now())
	if err := s.store.Create(ctx, rec); err != nil {
		return nil, err
	}
	s.refreshStats(ctx, rec)

	s.logger.Info("player registered", "player_id", playerID)
	return rec, nil
}

// SetPlayerName updates a player's display name. Authorization (the
// caller owns the record) is established upstream.
func (s *GameService) SetPlayerName(ctx context.Context, playerID, name string) (*domain.PlayerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.store.Get(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if err := rec.SetName(name); err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("saving player record: %w", err)
	}
	s.refreshStats(ctx, rec)
	return rec, nil
}

// GetPlayer returns a player's record.
func (s *GameService) GetPlayer(ctx context.Context, playerID string) (*domain.PlayerRecord, error) {
	return s.store.Get(ctx, playerID)
}

// ListPlayers returns all player records.
func (s *GameService) ListPlayers(ctx context.Context) ([]*domain.PlayerRecord, error) {
	return s.store.List(ctx)
}

// Leaderboard returns the current ranked top scores.
func (s *GameService) Leaderboard() []domain.RankedEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board.Ranked()
}

// BoardSnapshot returns a copy of the raw leaderboard state for
// persistence.
func (s *GameService) BoardSnapshot() domain.Leaderboard {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.board
}

// SubmitResult commits one finished match: counters are accumulated on
// the player record, a qualifying score enters the leaderboard, and a
// GameCompleted event is emitted. The update is all-or-nothing: a
// missing player or a counter overflow aborts before anything becomes
// visible, and the event is emitted only after the commit.
func (s *GameService) SubmitResult(ctx context.Context, playerID string, res domain.GameResult) (*domain.GameCompletedEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.store.Get(ctx, playerID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := rec.ApplyGameResult(res, now); err != nil {
		// Overflow is a data-integrity failure, not a gameplay error.
		s.logger.Error("game result rejected", "player_id", playerID, "error", err)
		return nil, err
	}
	if err := s.store.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("saving player record: %w", err)
	}

	boardChanged := false
	if res.Score > 0 {
		boardChanged = s.board.AddScore(playerID, res.Score, rec.Name, now)
	}

	event := domain.GameCompletedEvent{
		PlayerID:          playerID,
		Score:             res.Score,
		CoalCollected:     res.CoalCollected,
		OreCollected:      res.OreCollected,
		DiamondsCollected: res.DiamondsCollected,
		EnemiesDefeated:   res.EnemiesDefeated,
		Timestamp:         now,
	}

	if s.audit != nil {
		if err := s.audit.RecordGameEvent(ctx, event); err != nil {
			s.logger.Warn("failed to record game event", "error", err)
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishGameCompleted(ctx, event); err != nil {
			s.logger.Warn("failed to publish game completed event", "error", err)
		}
	}
	if s.hub != nil {
		s.hub.BroadcastGameCompleted(event)
		if boardChanged {
			s.hub.BroadcastLeaderboard(s.board.Ranked())
		}
	}
	s.refreshStats(ctx, rec)

	return &event, nil
}

// ClaimDiamonds redeems earned diamonds for reward tokens. The claimed
// counter moves only after the issuance service confirms the mint, so a
// failed mint leaves the player's claimable balance intact.
func (s *GameService) ClaimDiamonds(ctx context.Context, playerID string, amount uint64) (*domain.IssuanceRequest, error) {
	if amount == 0 {
		return nil, domain.ErrInvalidRequest
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.store.Get(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if amount > rec.ClaimableDiamonds() {
		return nil, domain.ErrInsufficientClaimable
	}

	req, err := domain.NewIssuanceRequest(playerID, amount)
	if err != nil {
		return nil, err
	}

	if err := s.minter.Mint(ctx, req); err != nil {
		return nil, fmt.Errorf("minting reward tokens: %w", err)
	}

	rec.DiamondsClaimed += amount
	if err := s.store.Save(ctx, rec); err != nil {
		// Tokens are already issued; this must not go unnoticed.
		s.logger.Error("claim issued but record save failed",
			"player_id", playerID,
			"amount", amount,
			"error", err,
		)
		return nil, fmt.Errorf("saving claim state: %w", err)
	}

	if s.audit != nil {
		if err := s.audit.RecordClaim(ctx, playerID, amount, req); err != nil {
			s.logger.Warn("failed to record claim", "error", err)
		}
	}
	s.refreshStats(ctx, rec)

	s.logger.Info("diamonds claimed", "player_id", playerID, "amount", amount, "unit_amount", req.UnitAmount)
	return &req, nil
}
