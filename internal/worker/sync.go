package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/darkmine-backend/internal/config"
	"github.com/darkmine-backend/internal/domain"
	"github.com/darkmine-backend/internal/postgres"
	"github.com/darkmine-backend/internal/redis"
	"github.com/darkmine-backend/internal/service"
	"github.com/darkmine-backend/internal/store"
)

// SyncWorker periodically flushes the in-memory game state to PostgreSQL
// and refreshes the Redis read-side cache. The in-memory state is the
// authority at runtime; the database exists so a restart loses nothing.
type SyncWorker struct {
	service  *service.GameService
	postgres *postgres.Repository
	cache    *redis.Cache
	config   *config.SyncConfig
	logger   *slog.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
	mu       sync.Mutex
	running  bool
}

// NewSyncWorker creates a new sync worker
func NewSyncWorker(
	svc *service.GameService,
	pg *postgres.Repository,
	cache *redis.Cache,
	cfg *config.SyncConfig,
	logger *slog.Logger,
) *SyncWorker {
	return &SyncWorker{
		service:  svc,
		postgres: pg,
		cache:    cache,
		config:   cfg,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background sync process
func (w *SyncWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info("sync worker started", "interval", w.config.Interval)

	go w.run(ctx)
	return nil
}

// Stop stops the background sync process and runs one final flush so no
// committed results are lost on shutdown.
func (w *SyncWorker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	w.syncAll(ctx)

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("sync worker stopped")
	return nil
}

// run is the main worker loop
func (w *SyncWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.syncAll(ctx)
		}
	}
}

// syncAll flushes player records and the leaderboard snapshot to
// PostgreSQL, then refreshes the Redis cache from the same data.
func (w *SyncWorker) syncAll(ctx context.Context) {
	startTime := time.Now()

	records, err := w.service.ListPlayers(ctx)
	if err != nil {
		w.logger.Error("failed to list players for sync", "error", err)
		return
	}
	board := w.service.BoardSnapshot()

	errorCount := 0

	if err := w.postgres.BatchSave(ctx, records); err != nil {
		w.logger.Error("failed to flush player records", "error", err)
		errorCount++
	}
	if err := w.postgres.SaveLeaderboard(ctx, &board); err != nil {
		w.logger.Error("failed to flush leaderboard snapshot", "error", err)
		errorCount++
	}

	if w.cache != nil {
		if err := w.cache.SetLeaderboard(ctx, board.Ranked()); err != nil {
			w.logger.Warn("failed to refresh leaderboard cache", "error", err)
			errorCount++
		}
		if err := w.cache.BatchSetPlayerStats(ctx, records); err != nil {
			w.logger.Warn("failed to refresh player stats cache", "error", err)
			errorCount++
		}
	}

	w.logger.Info("sync cycle completed",
		"duration", time.Since(startTime),
		"players", len(records),
		"errors", errorCount,
	)
}

// IsRunning returns whether the worker is currently running
func (w *SyncWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// RunOnce runs a single sync cycle (useful for manual triggers)
func (w *SyncWorker) RunOnce(ctx context.Context) {
	w.syncAll(ctx)
}

// RecoverFromDatabase loads player records and the leaderboard snapshot
// from PostgreSQL into the in-memory state. Called once at startup,
// before any traffic is served.
func RecoverFromDatabase(ctx context.Context, pg *postgres.Repository, mem *store.Memory, board *domain.Leaderboard, logger *slog.Logger) error {
	records, err := pg.List(ctx)
	if err != nil {
		return err
	}
	mem.Load(records)

	saved, err := pg.LoadLeaderboard(ctx)
	if err != nil {
		return err
	}
	if saved != nil {
		*board = *saved
	}

	logger.Info("state recovered from database",
		"players", len(records),
		"leaderboard_entries", board.Count,
	)
	return nil
}
