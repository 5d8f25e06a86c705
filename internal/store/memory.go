package store

import (
	"context"
	"sync"

	"github.com/darkmine-backend/internal/domain"
)

// Memory is an in-memory PlayerStore. It is the authoritative store for
// the running service (records are flushed to Postgres by the sync
// worker) and the fixture store in tests. Records are stored and
// returned by value so callers cannot mutate shared state without Save.
type Memory struct {
	mu      sync.RWMutex
	records map[string]domain.PlayerRecord
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		records: make(map[string]domain.PlayerRecord),
	}
}

// Create stores a new record, failing if the identity is taken.
func (m *Memory) Create(_ context.Context, record *domain.PlayerRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[record.PlayerID]; ok {
		return domain.ErrPlayerExists
	}
	m.records[record.PlayerID] = *record
	return nil
}

// Get returns a copy of the stored record.
func (m *Memory) Get(_ context.Context, playerID string) (*domain.PlayerRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[playerID]
	if !ok {
		return nil, domain.ErrPlayerNotFound
	}
	return &rec, nil
}

// Save overwrites an existing record.
func (m *Memory) Save(_ context.Context, record *domain.PlayerRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[record.PlayerID]; !ok {
		return domain.ErrPlayerNotFound
	}
	m.records[record.PlayerID] = *record
	return nil
}

// List returns copies of all records.
func (m *Memory) List(_ context.Context) ([]*domain.PlayerRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	records := make([]*domain.PlayerRecord, 0, len(m.records))
	for _, rec := range m.records {
		rec := rec
		records = append(records, &rec)
	}
	return records, nil
}

// Load seeds the store with records fetched from durable storage,
// replacing any existing entries with the same identity.
func (m *Memory) Load(records []*domain.PlayerRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range records {
		m.records[rec.PlayerID] = *rec
	}
}
