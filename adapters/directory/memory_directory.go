package directory

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/rangda/core"
	"github.com/layer-3/rangda/ports"
)

// DefaultSecretTTL bounds how long a minted one-time secret stays redeemable
const DefaultSecretTTL = 5 * time.Minute

type issuedSecret struct {
	identityKey string
	expiresAt   time.Time
}

// MemoryDirectory is an in-memory implementation of the Directory interface.
// It enforces email uniqueness under its own mutex, which makes it a faithful
// stand-in for the platform's duplicate-create conflict in tests and local
// development.
type MemoryDirectory struct {
	byEmail map[string]*core.Identity
	byKey   map[string]*core.Identity
	secrets map[string]issuedSecret
	mu      sync.Mutex
}

// NewMemoryDirectory creates a new in-memory directory
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		byEmail: make(map[string]*core.Identity),
		byKey:   make(map[string]*core.Identity),
		secrets: make(map[string]issuedSecret),
	}
}

var _ ports.Directory = (*MemoryDirectory)(nil)

// FindByEmail looks up an identity by its primary handle
func (d *MemoryDirectory) FindByEmail(ctx context.Context, email string) (*core.Identity, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	identity, ok := d.byEmail[core.NormalizeHandle(email)]
	if !ok {
		return nil, core.ErrIdentityNotFound
	}

	out := *identity
	return &out, nil
}

// Create registers a new identity, rejecting duplicate handles
func (d *MemoryDirectory) Create(ctx context.Context, email string) (*core.Identity, error) {
	normalized := core.NormalizeHandle(email)

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.byEmail[normalized]; exists {
		return nil, core.ErrEmailTaken
	}

	identity := &core.Identity{
		Key:   uuid.New().String(),
		Email: normalized,
	}
	d.byEmail[normalized] = identity
	d.byKey[identity.Key] = identity

	out := *identity
	return &out, nil
}

// SetWalletAddress persists the canonical wallet address
func (d *MemoryDirectory) SetWalletAddress(ctx context.Context, key, address string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	identity, ok := d.byKey[key]
	if !ok {
		return core.ErrIdentityNotFound
	}

	identity.Prefs.WalletAddress = address
	return nil
}

// SetPasskeyCredentials persists the passkey credential set
func (d *MemoryDirectory) SetPasskeyCredentials(ctx context.Context, key string, credentials json.RawMessage) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	identity, ok := d.byKey[key]
	if !ok {
		return core.ErrIdentityNotFound
	}

	identity.Prefs.PasskeyCredentials = credentials
	return nil
}

// MintToken mints a fresh single-use secret for the identity key
func (d *MemoryDirectory) MintToken(ctx context.Context, key string) (core.IssuedToken, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.byKey[key]; !ok {
		return core.IssuedToken{}, core.ErrIdentityNotFound
	}

	secret := uuid.New().String()
	expiresAt := time.Now().Add(DefaultSecretTTL)
	d.secrets[secret] = issuedSecret{identityKey: key, expiresAt: expiresAt}

	return core.IssuedToken{Secret: secret, ExpiresAt: expiresAt}, nil
}

// RedeemToken exchanges a secret for its identity key, exactly once
func (d *MemoryDirectory) RedeemToken(ctx context.Context, secret string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	issued, ok := d.secrets[secret]
	if !ok {
		return "", core.ErrInvalidSecret
	}
	delete(d.secrets, secret)

	if time.Now().After(issued.expiresAt) {
		return "", core.ErrInvalidSecret
	}

	return issued.identityKey, nil
}
