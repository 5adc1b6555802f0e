package core

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
)

// BindingMethod identifies the proof-of-possession method behind a binding attempt
type BindingMethod string

const (
	MethodWallet  BindingMethod = "wallet"
	MethodPasskey BindingMethod = "passkey"
)

// Preferences is the slice of the directory's preference map owned by this service.
// An identity carries at most one canonical wallet address and one passkey
// credential set at any time.
type Preferences struct {
	WalletAddress      string          `json:"walletEth,omitempty"`
	PasskeyCredentials json.RawMessage `json:"passkeyCredentials,omitempty"`
}

// Identity is the durable account record owned by the external identity directory
type Identity struct {
	Key   string      // unique identity key assigned by the directory
	Email string      // primary handle, lower-cased
	Prefs Preferences // preference map slice relevant to binding
}

// HasWallet reports whether a wallet address is bound
func (i *Identity) HasWallet() bool {
	return i != nil && i.Prefs.WalletAddress != ""
}

// HasPasskey reports whether a passkey credential set is bound
func (i *Identity) HasPasskey() bool {
	return i != nil && len(i.Prefs.PasskeyCredentials) > 0
}

// IssuedToken is a one-time secret minted against an identity key,
// exchangeable once for a full session
type IssuedToken struct {
	Secret    string
	ExpiresAt time.Time
}

// SubjectKey derives the opaque per-subject key used for challenge storage
// and WebAuthn user handles. Raw identifiers never reach the challenge store.
func SubjectKey(identifier string) string {
	return hex.EncodeToString(SubjectHandle(identifier))
}

// SubjectHandle returns the raw subject hash bytes for use as a WebAuthn user handle
func SubjectHandle(identifier string) []byte {
	sum := sha256.Sum256([]byte(NormalizeHandle(identifier)))
	return sum[:]
}

// NormalizeHandle lower-cases and trims an email-like identifier so lookups
// and subject hashes are stable across request casing
func NormalizeHandle(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}
