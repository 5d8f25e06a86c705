package store

import (
	"context"

	"github.com/darkmine-backend/internal/domain"
)

// PlayerStore persists one PlayerRecord per player identity.
type PlayerStore interface {
	// Create stores a brand-new record; domain.ErrPlayerExists if one is
	// already present for the identity.
	Create(ctx context.Context, record *domain.PlayerRecord) error

	// Get returns a copy of the record; domain.ErrPlayerNotFound if absent.
	Get(ctx context.Context, playerID string) (*domain.PlayerRecord, error)

	// Save overwrites an existing record; domain.ErrPlayerNotFound if absent.
	Save(ctx context.Context, record *domain.PlayerRecord) error

	// List returns copies of every stored record.
	List(ctx context.Context) ([]*domain.PlayerRecord, error)
}
