package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/rangda/core"
	"github.com/layer-3/rangda/ports"
)

// SessionService exchanges one-time secrets for sessions and manages their
// access/refresh lifecycle
type SessionService struct {
	tokenizer ports.Tokenizer
	store     ports.Store
	directory ports.Directory
	events    ports.EventPublisher

	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewSessionService creates a new session service
func NewSessionService(
	tokenizer ports.Tokenizer,
	store ports.Store,
	directory ports.Directory,
	events ports.EventPublisher,
) *SessionService {
	return &SessionService{
		tokenizer:  tokenizer,
		store:      store,
		directory:  directory,
		events:     events,
		accessTTL:  5 * time.Minute,
		refreshTTL: 5 * 24 * time.Hour, // 5 days
	}
}

// SetTokenTTLs overrides the default access and refresh windows
func (s *SessionService) SetTokenTTLs(access, refresh time.Duration) {
	if access > 0 {
		s.accessTTL = access
	}
	if refresh > 0 {
		s.refreshTTL = refresh
	}
}

// Exchange redeems a one-time secret against the directory and issues a new
// access/refresh token pair for the identity it was minted against
func (s *SessionService) Exchange(ctx context.Context, secret string) (string, string, error) {
	identityKey, err := s.directory.RedeemToken(ctx, secret)
	if err != nil {
		return "", "", err
	}

	return s.issueTokens(identityKey)
}

// Refresh rotates the refresh token and issues new access and refresh tokens
func (s *SessionService) Refresh(ctx context.Context, refreshTokenStr string) (string, string, error) {
	session, err := s.tokenizer.RefreshTokenToSession(refreshTokenStr)
	if err != nil {
		return "", "", fmt.Errorf("invalid refresh token: %w", err)
	}

	if time.Now().After(session.RefreshExpiry) {
		return "", "", core.ErrTokenExpired
	}

	invalidated, err := s.store.IsTokenInvalidated(ctx, session.RefreshID)
	if err != nil {
		return "", "", fmt.Errorf("failed to check token invalidation: %w", err)
	}
	if invalidated {
		return "", "", core.ErrTokenInvalidated
	}

	// Invalidate the old refresh token for the remainder of its lifetime
	remaining := time.Until(session.RefreshExpiry)
	if err := s.store.InvalidateToken(ctx, session.RefreshID, remaining); err != nil {
		return "", "", fmt.Errorf("failed to invalidate old token: %w", err)
	}

	return s.issueTokens(session.IdentityKey)
}

// Logout invalidates a refresh token
func (s *SessionService) Logout(ctx context.Context, refreshTokenStr string) error {
	session, err := s.tokenizer.RefreshTokenToSession(refreshTokenStr)
	if err != nil {
		return fmt.Errorf("invalid refresh token: %w", err)
	}

	// Even an expired token gets an invalidation record, so slightly skewed
	// clocks cannot resurrect it
	remaining := time.Until(session.RefreshExpiry)
	if remaining <= 0 {
		remaining = time.Hour
	}

	if err := s.store.InvalidateToken(ctx, session.RefreshID, remaining); err != nil {
		return fmt.Errorf("failed to invalidate token: %w", err)
	}

	if err := s.events.PublishLogout(ctx, session.IdentityKey, session.RefreshID); err != nil {
		// The token is already invalidated in the store, which is the part
		// that matters for security
		log.Printf("warning: failed to publish logout event for %s: %v", session.IdentityKey, err)
	}

	return nil
}

// ValidateAccessToken parses and validates an access token, returning the
// associated session
func (s *SessionService) ValidateAccessToken(ctx context.Context, accessToken string) (*core.Session, error) {
	session, err := s.tokenizer.AccessTokenToSession(accessToken)
	if err != nil {
		return nil, fmt.Errorf("invalid access token: %w", err)
	}

	if time.Now().After(session.AccessExpiry) {
		return nil, core.ErrTokenExpired
	}

	// Access tokens die with their refresh token, so a logout cuts off the
	// whole session rather than just future refreshes
	if session.RefreshID != "" {
		invalidated, err := s.store.IsTokenInvalidated(ctx, session.RefreshID)
		if err != nil {
			return nil, fmt.Errorf("failed to check token invalidation: %w", err)
		}
		if invalidated {
			return nil, core.ErrTokenInvalidated
		}
	}

	return session, nil
}

func (s *SessionService) issueTokens(identityKey string) (string, string, error) {
	now := time.Now()
	session := &core.Session{
		ID:            uuid.New().String(),
		IdentityKey:   identityKey,
		IssuedAt:      now,
		RefreshExpiry: now.Add(s.refreshTTL),
		AccessExpiry:  now.Add(s.accessTTL),
		RefreshID:     uuid.New().String(),
	}

	accessToken, err := s.tokenizer.SessionToAccessToken(session)
	if err != nil {
		return "", "", fmt.Errorf("failed to create access token: %w", err)
	}

	refreshToken, err := s.tokenizer.SessionToRefreshToken(session)
	if err != nil {
		return "", "", fmt.Errorf("failed to create refresh token: %w", err)
	}

	return accessToken, refreshToken, nil
}
