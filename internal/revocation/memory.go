package revocation

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/auth-service/internal/clock"
)

// MemoryStore is a process-local Store. It does not survive restarts and is
// meant for single-instance deployments and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
	clock   clock.Clock
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(clk clock.Clock) *MemoryStore {
	if clk == nil {
		clk = clock.Real()
	}
	return &MemoryStore{entries: make(map[string]Entry), clock: clk}
}

// Revoke records rawToken unless it is already present.
func (s *MemoryStore) Revoke(ctx context.Context, rawToken, subjectID string, expiresAt time.Time) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fingerprint := Fingerprint(rawToken)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[fingerprint]; exists {
		return OutcomeAlreadyRevoked, nil
	}
	s.entries[fingerprint] = Entry{
		Fingerprint: fingerprint,
		SubjectID:   subjectID,
		ExpiresAt:   expiresAt,
		CreatedAt:   s.clock.Now(),
	}
	return OutcomeRevoked, nil
}

// IsRevoked checks whether rawToken has been revoked.
func (s *MemoryStore) IsRevoked(ctx context.Context, rawToken string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.entries[Fingerprint(rawToken)]
	return exists, nil
}

// Cleanup removes entries whose token expiry is not after now.
func (s *MemoryStore) Cleanup(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for fingerprint, entry := range s.entries {
		if !now.Before(entry.ExpiresAt) {
			delete(s.entries, fingerprint)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
