package core

import "time"

// Session represents an authenticated user session minted after a one-time
// secret exchange
type Session struct {
	ID            string    // Unique session identifier
	IdentityKey   string    // Key of the resolved identity
	IssuedAt      time.Time // When the session was created
	RefreshExpiry time.Time // When the refresh capability expires
	AccessExpiry  time.Time // When the access capability expires
	RefreshID     string    // Unique identifier for the refresh token
}
