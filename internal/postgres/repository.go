package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/darkmine-backend/internal/config"
	"github.com/darkmine-backend/internal/domain"
)

// Repository provides PostgreSQL-based durable storage for player
// records, the leaderboard snapshot and the event audit tables.
type Repository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewRepository creates a new PostgreSQL repository
func NewRepository(cfg *config.PostgresConfig, logger *slog.Logger) (*Repository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &Repository{
		pool:   pool,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (r *Repository) Close() {
	r.pool.Close()
}

// RunMigrations executes database migrations
func (r *Repository) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS players (
			player_id VARCHAR(64) PRIMARY KEY,
			name VARCHAR(32) NOT NULL DEFAULT '',
			games_played BIGINT NOT NULL DEFAULT 0,
			total_score BIGINT NOT NULL DEFAULT 0,
			high_score BIGINT NOT NULL DEFAULT 0,
			total_coal BIGINT NOT NULL DEFAULT 0,
			total_ore BIGINT NOT NULL DEFAULT 0,
			total_diamonds BIGINT NOT NULL DEFAULT 0,
			total_enemies_defeated BIGINT NOT NULL DEFAULT 0,
			diamonds_claimed BIGINT NOT NULL DEFAULT 0,
			joined_at BIGINT NOT NULL,
			last_game_at BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS leaderboard_snapshot (
			id INT PRIMARY KEY,
			entries JSONB NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS game_events (
			id BIGSERIAL PRIMARY KEY,
			player_id VARCHAR(64) NOT NULL,
			score BIGINT NOT NULL,
			coal_collected BIGINT NOT NULL,
			ore_collected BIGINT NOT NULL,
			diamonds_collected BIGINT NOT NULL,
			enemies_defeated SMALLINT NOT NULL,
			occurred_at BIGINT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS claim_events (
			id BIGSERIAL PRIMARY KEY,
			player_id VARCHAR(64) NOT NULL,
			diamonds BIGINT NOT NULL,
			unit_amount BIGINT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_game_events_player ON game_events(player_id, occurred_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_claim_events_player ON claim_events(player_id, created_at DESC)`,
	}

	for _, migration := range migrations {
		_, err := r.pool.Exec(ctx, migration)
		if err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	r.logger.Info("database migrations completed")
	return nil
}

const playerColumns = `player_id, name, games_played, total_score, high_score,
	total_coal, total_ore, total_diamonds, total_enemies_defeated,
	diamonds_claimed, joined_at, last_game_at`

func scanPlayer(row pgx.Row) (*domain.PlayerRecord, error) {
	var rec domain.PlayerRecord
	var gamesPlayed, totalScore, highScore, totalCoal, totalOre, totalDiamonds, enemies, claimed int64
	err := row.Scan(
		&rec.PlayerID,
		&rec.Name,
		&gamesPlayed,
		&totalScore,
		&highScore,
		&totalCoal,
		&totalOre,
		&totalDiamonds,
		&enemies,
		&claimed,
		&rec.JoinedAt,
		&rec.LastGameAt,
	)
	if err != nil {
		return nil, err
	}
	rec.GamesPlayed = uint64(gamesPlayed)
	rec.TotalScore = uint64(totalScore)
	rec.HighScore = uint64(highScore)
	rec.TotalCoal = uint64(totalCoal)
	rec.TotalOre = uint64(totalOre)
	rec.TotalDiamonds = uint64(totalDiamonds)
	rec.TotalEnemiesDefeated = uint64(enemies)
	rec.DiamondsClaimed = uint64(claimed)
	return &rec, nil
}

// Create inserts a brand-new player record.
func (r *Repository) Create(ctx context.Context, rec *domain.PlayerRecord) error {
	query := `
		INSERT INTO players (` + playerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.pool.Exec(ctx, query,
		rec.PlayerID,
		rec.Name,
		int64(rec.GamesPlayed),
		int64(rec.TotalScore),
		int64(rec.HighScore),
		int64(rec.TotalCoal),
		int64(rec.TotalOre),
		int64(rec.TotalDiamonds),
		int64(rec.TotalEnemiesDefeated),
		int64(rec.DiamondsClaimed),
		rec.JoinedAt,
		rec.LastGameAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrPlayerExists
		}
		return fmt.Errorf("creating player: %w", err)
	}
	return nil
}

// Get retrieves a player record by identity.
func (r *Repository) Get(ctx context.Context, playerID string) (*domain.PlayerRecord, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE player_id = $1`
	rec, err := scanPlayer(r.pool.QueryRow(ctx, query, playerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPlayerNotFound
		}
		return nil, fmt.Errorf("getting player: %w", err)
	}
	return rec, nil
}

// Save overwrites an existing player record.
func (r *Repository) Save(ctx context.Context, rec *domain.PlayerRecord) error {
	query := `
		UPDATE players SET
			name = $2,
			games_played = $3,
			total_score = $4,
			high_score = $5,
			total_coal = $6,
			total_ore = $7,
			total_diamonds = $8,
			total_enemies_defeated = $9,
			diamonds_claimed = $10,
			joined_at = $11,
			last_game_at = $12
		WHERE player_id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		rec.PlayerID,
		rec.Name,
		int64(rec.GamesPlayed),
		int64(rec.TotalScore),
		int64(rec.HighScore),
		int64(rec.TotalCoal),
		int64(rec.TotalOre),
		int64(rec.TotalDiamonds),
		int64(rec.TotalEnemiesDefeated),
		int64(rec.DiamondsClaimed),
		rec.JoinedAt,
		rec.LastGameAt,
	)
	if err != nil {
		return fmt.Errorf("saving player: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrPlayerNotFound
	}
	return nil
}

// List retrieves every player record.
func (r *Repository) List(ctx context.Context) ([]*domain.PlayerRecord, error) {
	query := `SELECT ` + playerColumns + ` FROM players`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing players: %w", err)
	}
	defer rows.Close()

	var records []*domain.PlayerRecord
	for rows.Next() {
		rec, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning player: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// BatchSave overwrites many records in one round trip.
func (r *Repository) BatchSave(ctx context.Context, records []*domain.PlayerRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO players (` + playerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (player_id) DO UPDATE SET
			name = $2,
			games_played = $3,
			total_score = $4,
			high_score = $5,
			total_coal = $6,
			total_ore = $7,
			total_diamonds = $8,
			total_enemies_defeated = $9,
			diamonds_claimed = $10,
			last_game_at = $12
	`
	for _, rec := range records {
		batch.Queue(query,
			rec.PlayerID,
			rec.Name,
			int64(rec.GamesPlayed),
			int64(rec.TotalScore),
			int64(rec.HighScore),
			int64(rec.TotalCoal),
			int64(rec.TotalOre),
			int64(rec.TotalDiamonds),
			int64(rec.TotalEnemiesDefeated),
			int64(rec.DiamondsClaimed),
			rec.JoinedAt,
			rec.LastGameAt,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch saving players: %w", err)
		}
	}
	return nil
}

// snapshotEntry is the persisted form of one leaderboard slot.
type snapshotEntry struct {
	PlayerID   string `json:"player_id"`
	Score      uint64 `json:"score"`
	Timestamp  int64  `json:"timestamp"`
	PlayerName string `json:"player_name"`
}

// SaveLeaderboard persists the current leaderboard state.
func (r *Repository) SaveLeaderboard(ctx context.Context, board *domain.Leaderboard) error {
	entries := make([]snapshotEntry, board.Count)
	for i := 0; i < board.Count; i++ {
		e := board.Entries[i]
		entries[i] = snapshotEntry{
			PlayerID:   e.PlayerID,
			Score:      e.Score,
			Timestamp:  e.Timestamp,
			PlayerName: e.Name(),
		}
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshaling leaderboard: %w", err)
	}

	query := `
		INSERT INTO leaderboard_snapshot (id, entries, updated_at)
		VALUES (1, $1, CURRENT_TIMESTAMP)
		ON CONFLICT (id) DO UPDATE SET entries = $1, updated_at = CURRENT_TIMESTAMP
	`
	if _, err := r.pool.Exec(ctx, query, data); err != nil {
		return fmt.Errorf("saving leaderboard: %w", err)
	}
	return nil
}

// LoadLeaderboard restores the leaderboard state, returning an empty
// board when no snapshot has been written yet.
func (r *Repository) LoadLeaderboard(ctx context.Context) (*domain.Leaderboard, error) {
	var data []byte
	err := r.pool.QueryRow(ctx, `SELECT entries FROM leaderboard_snapshot WHERE id = 1`).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.NewLeaderboard(), nil
		}
		return nil, fmt.Errorf("loading leaderboard: %w", err)
	}

	var entries []snapshotEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("unmarshaling leaderboard: %w", err)
	}

	board := domain.NewLeaderboard()
	for i, e := range entries {
		if i >= domain.LeaderboardCapacity {
			break
		}
		board.Entries[i] = domain.LeaderboardEntry{
			PlayerID:   e.PlayerID,
			Score:      e.Score,
			Timestamp:  e.Timestamp,
			PlayerName: domain.PackName(e.PlayerName),
		}
		board.Count = i + 1
	}
	return board, nil
}

// RecordGameEvent stores a committed match result for auditing.
func (r *Repository) RecordGameEvent(ctx context.Context, event domain.GameCompletedEvent) error {
	query := `
		INSERT INTO game_events (player_id, score, coal_collected, ore_collected, diamonds_collected, enemies_defeated, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.pool.Exec(ctx, query,
		event.PlayerID,
		int64(event.Score),
		int64(event.CoalCollected),
		int64(event.OreCollected),
		int64(event.DiamondsCollected),
		int16(event.EnemiesDefeated),
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("recording game event: %w", err)
	}
	return nil
}

// RecordClaim stores a completed diamond claim for auditing.
func (r *Repository) RecordClaim(ctx context.Context, playerID string, diamonds uint64, req domain.IssuanceRequest) error {
	query := `
		INSERT INTO claim_events (player_id, diamonds, unit_amount)
		VALUES ($1, $2, $3)
	`
	_, err := r.pool.Exec(ctx, query, playerID, int64(diamonds), int64(req.UnitAmount))
	if err != nil {
		return fmt.Errorf("recording claim: %w", err)
	}
	return nil
}
