package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/darkmine-backend/internal/config"
	"github.com/darkmine-backend/internal/domain"
)

const leaderboardKey = "darkmine:leaderboard:top"

// Cache is the Redis read-side cache: the current top-score table as a
// JSON blob and one stats hash per player. It is refreshed on every
// committed mutation by the sync worker and read by the HTTP layer with
// a fallback to the in-memory state.
type Cache struct {
	client *redis.Client
	logger *slog.Logger
}

// NewCache creates a new Redis cache
func NewCache(cfg *config.RedisConfig, logger *slog.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Test connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &Cache{
		client: client,
		logger: logger,
	}, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// playerStatsKey returns the Redis key for a player's stats hash
func (c *Cache) playerStatsKey(playerID string) string {
	return fmt.Sprintf("darkmine:player:%s:stats", playerID)
}

// SetLeaderboard caches the current ranked table.
func (c *Cache) SetLeaderboard(ctx context.Context, entries []domain.RankedEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshaling leaderboard: %w", err)
	}
	if err := c.client.Set(ctx, leaderboardKey, data, 0).Err(); err != nil {
		return fmt.Errorf("caching leaderboard: %w", err)
	}
	return nil
}

// GetLeaderboard returns the cached ranked table, or nil on a miss.
func (c *Cache) GetLeaderboard(ctx context.Context) ([]domain.RankedEntry, error) {
	data, err := c.client.Get(ctx, leaderboardKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("reading cached leaderboard: %w", err)
	}

	var entries []domain.RankedEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("unmarshaling cached leaderboard: %w", err)
	}
	return entries, nil
}

// SetPlayerStats caches a player's headline statistics.
func (c *Cache) SetPlayerStats(ctx context.Context, rec *domain.PlayerRecord) error {
	key := c.playerStatsKey(rec.PlayerID)
	err := c.client.HSet(ctx, key,
		"name", rec.Name,
		"games_played", rec.GamesPlayed,
		"total_score", rec.TotalScore,
		"high_score", rec.HighScore,
		"total_diamonds", rec.TotalDiamonds,
		"diamonds_claimed", rec.DiamondsClaimed,
		"last_game_at", rec.LastGameAt,
	).Err()
	if err != nil {
		return fmt.Errorf("caching player stats: %w", err)
	}
	return nil
}

// GetPlayerStats returns the cached stats hash, or nil on a miss.
func (c *Cache) GetPlayerStats(ctx context.Context, playerID string) (map[string]string, error) {
	result, err := c.client.HGetAll(ctx, c.playerStatsKey(playerID)).Result()
	if err != nil {
		return nil, fmt.Errorf("reading cached player stats: %w", err)
	}
	if len(result) == 0 {
		return nil, nil
	}
	return result, nil
}

// BatchSetPlayerStats refreshes many player hashes using pipelining.
func (c *Cache) BatchSetPlayerStats(ctx context.Context, records []*domain.PlayerRecord) error {
	pipe := c.client.Pipeline()
	for _, rec := range records {
		pipe.HSet(ctx, c.playerStatsKey(rec.PlayerID),
			"name", rec.Name,
			"games_played", rec.GamesPlayed,
			"total_score", rec.TotalScore,
			"high_score", rec.HighScore,
			"total_diamonds", rec.TotalDiamonds,
			"diamonds_claimed", rec.DiamondsClaimed,
			"last_game_at", rec.LastGameAt,
		)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("batch caching player stats: %w", err)
	}
	return nil
}
