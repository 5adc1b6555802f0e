package tokenizer

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"
	"time"

	"github.com/layer-3/rangda/core"
	"github.com/stretchr/testify/require"
)

func newTokenizer(t *testing.T) *JWTTokenizer {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	return NewJWTTokenizer(key).(*JWTTokenizer)
}

func TestChallengeTokenRoundTrip(t *testing.T) {
	j := newTokenizer(t)

	now := time.Now().Truncate(time.Second)
	challenge := &core.Challenge{
		SubjectKey: "ab12cd34",
		Value:      "random-challenge-value",
		IssuedAt:   now,
		ExpiresAt:  now.Add(2 * time.Minute),
	}

	token, err := j.ChallengeToToken(challenge)
	require.NoError(t, err)

	parsed, err := j.TokenToChallenge(token)
	require.NoError(t, err)
	require.Equal(t, challenge.SubjectKey, parsed.SubjectKey)
	require.Equal(t, challenge.Value, parsed.Value)
	require.WithinDuration(t, challenge.ExpiresAt, parsed.ExpiresAt, time.Second)
}

func TestChallengeTokenExpired(t *testing.T) {
	j := newTokenizer(t)

	now := time.Now()
	challenge := &core.Challenge{
		SubjectKey: "ab12cd34",
		Value:      "random-challenge-value",
		IssuedAt:   now.Add(-5 * time.Minute),
		ExpiresAt:  now.Add(-3 * time.Minute),
	}

	token, err := j.ChallengeToToken(challenge)
	require.NoError(t, err)

	_, err = j.TokenToChallenge(token)
	require.ErrorIs(t, err, core.ErrTokenExpired)
}

func TestSessionTokenRoundTrip(t *testing.T) {
	j := newTokenizer(t)

	now := time.Now().Truncate(time.Second)
	session := &core.Session{
		ID:            "session-id",
		IdentityKey:   "identity-key",
		IssuedAt:      now,
		AccessExpiry:  now.Add(5 * time.Minute),
		RefreshExpiry: now.Add(120 * time.Hour),
		RefreshID:     "refresh-id",
	}

	accessToken, err := j.SessionToAccessToken(session)
	require.NoError(t, err)
	refreshToken, err := j.SessionToRefreshToken(session)
	require.NoError(t, err)

	fromAccess, err := j.AccessTokenToSession(accessToken)
	require.NoError(t, err)
	require.Equal(t, session.ID, fromAccess.ID)
	require.Equal(t, session.IdentityKey, fromAccess.IdentityKey)
	require.Equal(t, session.RefreshID, fromAccess.RefreshID)

	fromRefresh, err := j.RefreshTokenToSession(refreshToken)
	require.NoError(t, err)
	require.Equal(t, session.IdentityKey, fromRefresh.IdentityKey)
	require.Equal(t, session.RefreshID, fromRefresh.RefreshID)
}

func TestTokenAudiencesAreDistinct(t *testing.T) {
	j := newTokenizer(t)

	now := time.Now()
	session := &core.Session{
		ID:            "session-id",
		IdentityKey:   "identity-key",
		IssuedAt:      now,
		AccessExpiry:  now.Add(5 * time.Minute),
		RefreshExpiry: now.Add(time.Hour),
		RefreshID:     "refresh-id",
	}

	accessToken, err := j.SessionToAccessToken(session)
	require.NoError(t, err)

	// An access token must not pass as a refresh token or a challenge token
	_, err = j.RefreshTokenToSession(accessToken)
	require.ErrorIs(t, err, core.ErrInvalidToken)
	_, err = j.TokenToChallenge(accessToken)
	require.ErrorIs(t, err, core.ErrInvalidToken)
}

func TestTokenizerMalformedTokens(t *testing.T) {
	j := newTokenizer(t)

	// Garbage input surfaces as the invalid-token sentinel on every parse
	// path, so transport can answer 400 instead of 500
	_, err := j.TokenToChallenge("garbage")
	require.ErrorIs(t, err, core.ErrInvalidToken)
	_, err = j.AccessTokenToSession("garbage")
	require.ErrorIs(t, err, core.ErrInvalidToken)
	_, err = j.RefreshTokenToSession("garbage")
	require.ErrorIs(t, err, core.ErrInvalidToken)
}

func TestTokenizerRejectsForeignKey(t *testing.T) {
	j := newTokenizer(t)
	other := newTokenizer(t)

	now := time.Now()
	challenge := &core.Challenge{
		SubjectKey: "ab12cd34",
		Value:      "random-challenge-value",
		IssuedAt:   now,
		ExpiresAt:  now.Add(time.Minute),
	}

	token, err := other.ChallengeToToken(challenge)
	require.NoError(t, err)

	_, err = j.TokenToChallenge(token)
	require.ErrorIs(t, err, core.ErrInvalidToken)
}
