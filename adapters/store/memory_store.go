package store

import (
	"context"
	"sync"
	"time"

	"github.com/layer-3/rangda/ports"
)

// MemoryStore is an in-memory implementation of the Store interface.
// Expired invalidation records are dropped lazily on the next write.
type MemoryStore struct {
	invalidatedTokens map[string]time.Time
	mu                sync.RWMutex
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() ports.Store {
	return &MemoryStore{
		invalidatedTokens: make(map[string]time.Time),
	}
}

// InvalidateToken marks a token as invalidated until expiry elapses
func (s *MemoryStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, deadline := range s.invalidatedTokens {
		if now.After(deadline) {
			delete(s.invalidatedTokens, id)
		}
	}

	s.invalidatedTokens[tokenID] = now.Add(expiry)
	return nil
}

// IsTokenInvalidated checks if a token is currently invalidated
func (s *MemoryStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	deadline, exists := s.invalidatedTokens[tokenID]
	if !exists || time.Now().After(deadline) {
		return false, nil
	}

	return true, nil
}
