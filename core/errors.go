package core

import "errors"

var (
	ErrTokenExpired     = errors.New("token has expired")
	ErrTokenInvalidated = errors.New("token has been invalidated")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrInvalidToken     = errors.New("invalid token")
	ErrInvalidChallenge = errors.New("invalid challenge")

	// ErrInvalidAssertion is returned when an authenticator response cannot
	// be parsed or validated
	ErrInvalidAssertion = errors.New("invalid authenticator response")

	// ErrWalletBound blocks a passkey binding on an account a wallet has claimed
	ErrWalletBound = errors.New("account already connected with a wallet")

	// ErrPasskeyBound blocks a wallet binding on an account a passkey has claimed
	ErrPasskeyBound = errors.New("account already connected with a passkey")

	// ErrWalletMismatch blocks a wallet binding when a different wallet is bound
	ErrWalletMismatch = errors.New("account is bound to a different wallet")

	// ErrIdentityNotFound is returned when no identity exists for a handle
	ErrIdentityNotFound = errors.New("identity not found")

	// ErrEmailTaken is returned when the directory rejects a duplicate create
	ErrEmailTaken = errors.New("email already registered")

	// ErrDirectoryUnavailable is returned when the identity directory is
	// unreachable or not configured
	ErrDirectoryUnavailable = errors.New("identity directory unavailable")

	// ErrInvalidSecret is returned when a one-time secret is unknown or spent
	ErrInvalidSecret = errors.New("invalid or spent secret")
)
