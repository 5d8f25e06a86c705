package token

import (
	"context"
	"sync"

	"github.com/darkmine-backend/internal/domain"
)

// Minter executes an authorized issuance request against the external
// token service. Implementations may fail; the caller treats a failure
// as no units issued.
type Minter interface {
	Mint(ctx context.Context, req domain.IssuanceRequest) error
}

// Static is an in-process Minter for tests and local runs. It records
// every issued amount per recipient and can be forced to fail.
type Static struct {
	mu     sync.Mutex
	minted map[string]uint64

	// FailWith, when non-nil, is returned by Mint without recording.
	FailWith error
}

// NewStatic creates an empty Static minter.
func NewStatic() *Static {
	return &Static{minted: make(map[string]uint64)}
}

// Mint records the issuance or returns the configured failure.
func (s *Static) Mint(_ context.Context, req domain.IssuanceRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	s.minted[req.Recipient] += req.UnitAmount
	return nil
}

// Minted returns the total base units issued to a recipient.
func (s *Static) Minted(recipient string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.minted[recipient]
}
