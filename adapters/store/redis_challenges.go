package store

import (
	"context"
	"fmt"
	"time"

	"github.com/layer-3/rangda/core"
	"github.com/layer-3/rangda/ports"
	"github.com/redis/go-redis/v9"
)

// consumeScript deletes the challenge key only when the presented value
// matches, making check-and-consume a single atomic step on the server.
var consumeScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisChallengeStore is a Redis implementation of the ChallengeStore
// interface. Expiry is delegated to the key TTL and consumption deletes the
// key, so a spent challenge is indistinguishable from an expired one.
type RedisChallengeStore struct {
	client *redis.Client
	prefix string
}

// NewRedisChallengeStore creates a new Redis challenge store
func NewRedisChallengeStore(client *redis.Client) ports.ChallengeStore {
	return &RedisChallengeStore{
		client: client,
		prefix: "rangda:challenge:",
	}
}

// Issue creates a new challenge for the subject. SET overwrites any prior
// outstanding challenge for the same key.
func (s *RedisChallengeStore) Issue(ctx context.Context, subjectKey string, ttl time.Duration) (*core.Challenge, error) {
	value, err := randomChallengeValue()
	if err != nil {
		return nil, err
	}

	if err := s.client.Set(ctx, s.prefix+subjectKey, value, ttl).Err(); err != nil {
		return nil, fmt.Errorf("failed to store challenge: %w", err)
	}

	now := time.Now()
	return &core.Challenge{
		SubjectKey: subjectKey,
		Value:      value,
		IssuedAt:   now,
		ExpiresAt:  now.Add(ttl),
	}, nil
}

// Consume runs the compare-and-delete script; only the first matching caller
// observes true
func (s *RedisChallengeStore) Consume(ctx context.Context, subjectKey, presented string) (bool, error) {
	res, err := consumeScript.Run(ctx, s.client, []string{s.prefix + subjectKey}, presented).Int()
	if err != nil {
		return false, fmt.Errorf("failed to consume challenge: %w", err)
	}
	return res == 1, nil
}
