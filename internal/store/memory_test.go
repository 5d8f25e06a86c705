package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/darkmine-backend/internal/domain"
)

func TestMemoryCreateAndGet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	rec := domain.NewPlayerRecord("p1", 100)
	require.NoError(t, m.Create(ctx, rec))

	got, err := m.Get(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, *rec, *got)

	// Duplicate registration is rejected.
	require.ErrorIs(t, m.Create(ctx, domain.NewPlayerRecord("p1", 200)), domain.ErrPlayerExists)

	_, err = m.Get(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrPlayerNotFound)
}

func TestMemoryGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Create(ctx, domain.NewPlayerRecord("p1", 100)))

	got, err := m.Get(ctx, "p1")
	require.NoError(t, err)
	got.TotalScore = 999

	again, err := m.Get(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, uint64(0), again.TotalScore, "mutating a fetched copy must not change stored state")
}

func TestMemorySave(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Create(ctx, domain.NewPlayerRecord("p1", 100)))

	rec, err := m.Get(ctx, "p1")
	require.NoError(t, err)
	require.NoError(t, rec.ApplyGameResult(domain.GameResult{Score: 10}, 150))
	require.NoError(t, m.Save(ctx, rec))

	got, err := m.Get(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, uint64(10), got.TotalScore)

	require.ErrorIs(t, m.Save(ctx, domain.NewPlayerRecord("ghost", 0)), domain.ErrPlayerNotFound)
}

func TestMemoryListAndLoad(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Create(ctx, domain.NewPlayerRecord("p1", 100)))
	require.NoError(t, m.Create(ctx, domain.NewPlayerRecord("p2", 200)))

	records, err := m.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)

	seeded := domain.NewPlayerRecord("p3", 300)
	m.Load([]*domain.PlayerRecord{seeded})

	got, err := m.Get(ctx, "p3")
	require.NoError(t, err)
	require.Equal(t, *seeded, *got)
}
