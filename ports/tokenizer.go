package ports

import "github.com/layer-3/rangda/core"

// Tokenizer converts between domain objects and signed tokens
type Tokenizer interface {
	// Challenge token operations: the opaque token a client carries between
	// the registration-options and verification phases of a ceremony
	ChallengeToToken(challenge *core.Challenge) (string, error)
	TokenToChallenge(token string) (*core.Challenge, error)

	// Session token operations
	SessionToAccessToken(session *core.Session) (string, error)
	AccessTokenToSession(token string) (*core.Session, error)
	SessionToRefreshToken(session *core.Session) (string, error)
	RefreshTokenToSession(token string) (*core.Session, error)
}
