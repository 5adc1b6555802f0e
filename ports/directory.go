package ports

import (
	"context"
	"encoding/json"

	"github.com/layer-3/rangda/core"
)

// Directory is the boundary to the external identity platform that owns
// durable user records and the one-time token store. Implementations must
// keep the not-found and unavailable cases distinguishable so a directory
// outage is never mistaken for a fresh signup.
type Directory interface {
	// FindByEmail looks up an identity by its primary handle. Returns
	// core.ErrIdentityNotFound when no record exists and
	// core.ErrDirectoryUnavailable on transport or configuration failure.
	FindByEmail(ctx context.Context, email string) (*core.Identity, error)

	// Create registers a new identity for the given handle. Returns
	// core.ErrEmailTaken when the handle is already registered.
	Create(ctx context.Context, email string) (*core.Identity, error)

	// SetWalletAddress persists the canonical wallet address into the
	// identity's preference map
	SetWalletAddress(ctx context.Context, key, address string) error

	// SetPasskeyCredentials persists the passkey credential set into the
	// identity's preference map
	SetPasskeyCredentials(ctx context.Context, key string, credentials json.RawMessage) error

	// MintToken requests a one-time secret for the identity key
	MintToken(ctx context.Context, key string) (core.IssuedToken, error)

	// RedeemToken exchanges a one-time secret for the identity key it was
	// minted against. Returns core.ErrInvalidSecret for unknown, expired,
	// or already-redeemed secrets.
	RedeemToken(ctx context.Context, secret string) (string, error)
}
