package store

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/layer-3/rangda/core"
	"github.com/layer-3/rangda/ports"
)

// MemoryChallengeStore is an in-memory implementation of the ChallengeStore
// interface. A single mutex serializes issue and consume, so at most one
// caller observes true per issued challenge. Expired and spent entries are
// purged lazily on the next issue or consume.
type MemoryChallengeStore struct {
	challenges map[string]*core.Challenge
	mu         sync.Mutex
}

// NewMemoryChallengeStore creates a new in-memory challenge store
func NewMemoryChallengeStore() ports.ChallengeStore {
	return &MemoryChallengeStore{
		challenges: make(map[string]*core.Challenge),
	}
}

// Issue creates a new challenge for the subject, replacing any prior
// outstanding challenge for the same key
func (s *MemoryChallengeStore) Issue(ctx context.Context, subjectKey string, ttl time.Duration) (*core.Challenge, error) {
	value, err := randomChallengeValue()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	challenge := &core.Challenge{
		SubjectKey: subjectKey,
		Value:      value,
		IssuedAt:   now,
		ExpiresAt:  now.Add(ttl),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeLocked(now)
	s.challenges[subjectKey] = challenge

	out := *challenge
	return &out, nil
}

// Consume atomically checks and marks the subject's challenge as spent.
// Unknown, mismatched, expired, and already-consumed challenges all report
// false without error.
func (s *MemoryChallengeStore) Consume(ctx context.Context, subjectKey, presented string) (bool, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	challenge, ok := s.challenges[subjectKey]
	if !ok {
		return false, nil
	}
	if challenge.Consumed || challenge.Expired(now) {
		delete(s.challenges, subjectKey)
		return false, nil
	}
	if subtle.ConstantTimeCompare([]byte(challenge.Value), []byte(presented)) != 1 {
		return false, nil
	}

	challenge.Consumed = true
	return true, nil
}

func (s *MemoryChallengeStore) purgeLocked(now time.Time) {
	for key, challenge := range s.challenges {
		if challenge.Consumed || challenge.Expired(now) {
			delete(s.challenges, key)
		}
	}
}

func randomChallengeValue() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate challenge: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
