package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/rangda/core"
	"github.com/layer-3/rangda/service"
)

// AuthHandlers contains HTTP handlers for the auth endpoints
type AuthHandlers struct {
	authService    *service.AuthService
	sessionService *service.SessionService
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService, sessionService *service.SessionService) *AuthHandlers {
	return &AuthHandlers{
		authService:    authService,
		sessionService: sessionService,
	}
}

// WalletToken handles wallet token issuance: verify the personal-sign proof,
// bind the wallet, and return a one-time secret
func (h *AuthHandlers) WalletToken(c *gin.Context) {
	var req struct {
		Email     string `json:"email" binding:"required"`
		Address   string `json:"address" binding:"required"`
		Signature string `json:"signature" binding:"required"`
		Message   string `json:"message" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	userID, token, err := h.authService.WalletToken(c.Request.Context(), req.Email, req.Address, req.Signature, req.Message)
	if err != nil {
		h.writeAuthError(c, err, req.Email)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"userId": userID,
		"secret": token.Secret,
	})
}

// PasskeyRegistrationOptions handles the options phase of passkey registration
func (h *AuthHandlers) PasskeyRegistrationOptions(c *gin.Context) {
	var req struct {
		UserID   string `json:"userId" binding:"required"`
		UserName string `json:"userName" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	options, err := h.authService.PasskeyRegistrationOptions(c.Request.Context(), req.UserID, req.UserName, forwardedHost(c))
	if err != nil {
		h.writeAuthError(c, err, req.UserID)
		return
	}

	c.JSON(http.StatusOK, options)
}

// PasskeyVerify handles the verification phase of passkey registration
func (h *AuthHandlers) PasskeyVerify(c *gin.Context) {
	var req struct {
		UserID         string          `json:"userId" binding:"required"`
		ChallengeToken string          `json:"challengeToken" binding:"required"`
		Credential     json.RawMessage `json:"credential" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	userID, token, err := h.authService.PasskeyVerify(c.Request.Context(), req.UserID, req.ChallengeToken, req.Credential, forwardedHost(c))
	if err != nil {
		h.writeAuthError(c, err, req.UserID)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"userId": userID,
		"secret": token.Secret,
	})
}

// Exchange handles one-time secret exchange for a session token pair
func (h *AuthHandlers) Exchange(c *gin.Context) {
	var req struct {
		Secret string `json:"secret" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	accessToken, refreshToken, err := h.sessionService.Exchange(c.Request.Context(), req.Secret)
	if err != nil {
		if errors.Is(err, core.ErrInvalidSecret) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or spent secret"})
			return
		}
		log.Printf("secret exchange failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"token_type":    "Bearer",
	})
}

// Refresh handles token refresh
func (h *AuthHandlers) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	accessToken, refreshToken, err := h.sessionService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errorMsg := "Failed to refresh tokens"

		switch {
		case errors.Is(err, core.ErrInvalidToken):
			statusCode = http.StatusBadRequest
			errorMsg = "Invalid refresh token"
		case errors.Is(err, core.ErrTokenExpired):
			statusCode = http.StatusUnauthorized
			errorMsg = "Refresh token expired"
		case errors.Is(err, core.ErrTokenInvalidated):
			statusCode = http.StatusUnauthorized
			errorMsg = "Refresh token has been invalidated"
		}

		c.JSON(statusCode, gin.H{"error": errorMsg})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"token_type":    "Bearer",
	})
}

// Logout handles session logout
func (h *AuthHandlers) Logout(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := h.sessionService.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		if errors.Is(err, core.ErrInvalidToken) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid refresh token"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to logout"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Me returns information about the authenticated user
func (h *AuthHandlers) Me(c *gin.Context) {
	identityKey, exists := c.Get("identityKey")
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User not found in context"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"userId": identityKey,
	})
}

// writeAuthError maps service errors onto the response contract. Conflicts
// get actionable messages since they are expected, recoverable user flows.
func (h *AuthHandlers) writeAuthError(c *gin.Context, err error, subject string) {
	switch {
	case errors.Is(err, core.ErrInvalidSignature):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
	case errors.Is(err, core.ErrInvalidChallenge):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired challenge"})
	case errors.Is(err, core.ErrInvalidAssertion):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authenticator response could not be verified"})
	case errors.Is(err, core.ErrWalletBound):
		c.JSON(http.StatusForbidden, gin.H{"error": "Already connected with a wallet"})
	case errors.Is(err, core.ErrPasskeyBound):
		c.JSON(http.StatusForbidden, gin.H{"error": "Already connected with a passkey; sign in with your passkey to link a wallet"})
	case errors.Is(err, core.ErrWalletMismatch):
		c.JSON(http.StatusForbidden, gin.H{"error": "This account is bound to a different wallet"})
	case errors.Is(err, core.ErrDirectoryUnavailable):
		log.Printf("directory unavailable for %s: %v", subject, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Identity directory unavailable"})
	default:
		log.Printf("authentication failed for %s: %v", subject, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Authentication failed"})
	}
}

// forwardedHost picks the relying-party host from the forwarded header,
// falling back to the request host
func forwardedHost(c *gin.Context) string {
	if host := c.GetHeader("X-Forwarded-Host"); host != "" {
		return host
	}
	return c.Request.Host
}
