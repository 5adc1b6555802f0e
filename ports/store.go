package ports

import (
	"context"
	"time"
)

// Store tracks invalidated refresh token IDs so revoked sessions stay dead
// across instances until their natural expiry
type Store interface {
	InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error
	IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error)
}
