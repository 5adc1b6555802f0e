package core

import "time"

// Challenge is an outstanding single-use value for a WebAuthn ceremony,
// keyed by a hashed subject identifier. It is created by a challenge store,
// consumed at most once, and expires by wall clock regardless of consumption.
type Challenge struct {
	SubjectKey string    // hash of the normalized subject identifier
	Value      string    // cryptographically random, base64url-encoded
	IssuedAt   time.Time // when the challenge was created
	ExpiresAt  time.Time // when the challenge stops being consumable
	Consumed   bool      // set exactly once by a successful consume
}

// Expired reports whether the challenge window has closed at t
func (c *Challenge) Expired(t time.Time) bool {
	return t.After(c.ExpiresAt)
}
