package ports

import (
	"context"
	"time"

	"github.com/layer-3/rangda/core"
)

// ChallengeStore issues and single-use-consumes time-bounded challenges
// keyed by hashed subject identifiers. It is the only component holding
// mutable state across requests.
type ChallengeStore interface {
	// Issue creates a new challenge for the subject, overwriting any prior
	// outstanding challenge for the same key (last-issued-wins; a subject
	// has at most one live challenge at a time).
	Issue(ctx context.Context, subjectKey string, ttl time.Duration) (*core.Challenge, error)

	// Consume returns true exactly once per issued challenge, iff presented
	// matches the stored value, the challenge is unexpired, and it has not
	// already been consumed. Must be atomic per subject key: two concurrent
	// consumes for the same challenge must not both succeed.
	Consume(ctx context.Context, subjectKey, presented string) (bool, error)
}
