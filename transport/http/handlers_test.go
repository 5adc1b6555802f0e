package http

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/layer-3/rangda/adapters/directory"
	"github.com/layer-3/rangda/adapters/events"
	"github.com/layer-3/rangda/adapters/store"
	"github.com/layer-3/rangda/adapters/tokenizer"
	"github.com/layer-3/rangda/internal/eth"
	"github.com/layer-3/rangda/service"
	"github.com/stretchr/testify/require"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	dir := directory.NewMemoryDirectory()
	jwtTokenizer := tokenizer.NewJWTTokenizer(key)
	publisher := events.NewWatermillPublisher(gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{}))

	authService := service.NewAuthService(dir, store.NewMemoryChallengeStore(), jwtTokenizer, publisher, service.RelyingParty{
		Name:    "Rangda",
		ID:      "localhost",
		Origins: []string{"http://localhost:8080"},
	}, 2*time.Minute)
	sessionService := service.NewSessionService(jwtTokenizer, store.NewMemoryStore(), dir, publisher)

	return SetupRouter(authService, sessionService)
}

type signer struct {
	key *ecdsa.PrivateKey
}

func newSigner(t *testing.T) *signer {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return &signer{key: key}
}

func (s *signer) address() string {
	return crypto.PubkeyToAddress(s.key.PublicKey).Hex()
}

func (s *signer) sign(t *testing.T, message string) string {
	t.Helper()
	sig, err := crypto.Sign(accounts.TextHash([]byte(eth.AuthPreamble+message)), s.key)
	require.NoError(t, err)
	return hexutil.Encode(sig)
}

func postJSON(t *testing.T, router *gin.Engine, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func walletTokenRequest(s *signer, t *testing.T, email, message string) map[string]string {
	return map[string]string{
		"email":     email,
		"address":   s.address(),
		"signature": s.sign(t, message),
		"message":   message,
	}
}

func TestWalletTokenEndpoint(t *testing.T) {
	router := newTestRouter(t)
	s := newSigner(t)

	w := postJSON(t, router, "/auth/wallet/token", walletTokenRequest(s, t, "a@x.com", "m1"))
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	require.NotEmpty(t, body["userId"])
	require.NotEmpty(t, body["secret"])

	// Re-login: same user, fresh secret
	w2 := postJSON(t, router, "/auth/wallet/token", walletTokenRequest(s, t, "a@x.com", "m2"))
	require.Equal(t, http.StatusOK, w2.Code)

	body2 := decodeBody(t, w2)
	require.Equal(t, body["userId"], body2["userId"])
	require.NotEqual(t, body["secret"], body2["secret"])
}

func TestWalletTokenEndpointMissingFields(t *testing.T) {
	router := newTestRouter(t)

	w := postJSON(t, router, "/auth/wallet/token", map[string]string{"email": "a@x.com"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWalletTokenEndpointBadSignature(t *testing.T) {
	router := newTestRouter(t)
	s := newSigner(t)

	req := walletTokenRequest(s, t, "a@x.com", "m1")
	req["message"] = "tampered"

	w := postJSON(t, router, "/auth/wallet/token", req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegistrationOptionsEndpoint(t *testing.T) {
	router := newTestRouter(t)

	w := postJSON(t, router, "/auth/passkey/registration-options", map[string]string{
		"userId":   "a@x.com",
		"userName": "A",
	})
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	require.NotEmpty(t, body["challengeToken"])
	require.NotEmpty(t, body["challenge"])
	require.NotEmpty(t, body["userHandle"])
	require.Contains(t, body, "publicKey")
}

func TestRegistrationOptionsConflict(t *testing.T) {
	router := newTestRouter(t)
	s := newSigner(t)

	w := postJSON(t, router, "/auth/wallet/token", walletTokenRequest(s, t, "a@x.com", "m1"))
	require.Equal(t, http.StatusOK, w.Code)

	// A wallet-bound identity cannot start passkey registration
	w2 := postJSON(t, router, "/auth/passkey/registration-options", map[string]string{
		"userId":   "a@x.com",
		"userName": "A",
	})
	require.Equal(t, http.StatusForbidden, w2.Code)
}

func TestPasskeyVerifyEndpointBadToken(t *testing.T) {
	router := newTestRouter(t)

	w := postJSON(t, router, "/auth/passkey/verify", map[string]any{
		"userId":         "a@x.com",
		"challengeToken": "garbage",
		"credential":     map[string]string{"id": "x"},
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionLifecycleEndpoints(t *testing.T) {
	router := newTestRouter(t)
	s := newSigner(t)

	w := postJSON(t, router, "/auth/wallet/token", walletTokenRequest(s, t, "a@x.com", "m1"))
	require.Equal(t, http.StatusOK, w.Code)
	secret := decodeBody(t, w)["secret"].(string)
	userID := decodeBody(t, w)["userId"].(string)

	// Exchange the one-time secret for a token pair
	w2 := postJSON(t, router, "/auth/session", map[string]string{"secret": secret})
	require.Equal(t, http.StatusOK, w2.Code)
	tokens := decodeBody(t, w2)
	access := tokens["access_token"].(string)
	refresh := tokens["refresh_token"].(string)

	// A second exchange of the same secret is rejected
	w3 := postJSON(t, router, "/auth/session", map[string]string{"secret": secret})
	require.Equal(t, http.StatusUnauthorized, w3.Code)

	// The access token authenticates protected routes
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	w4 := httptest.NewRecorder()
	router.ServeHTTP(w4, req)
	require.Equal(t, http.StatusOK, w4.Code)
	require.Equal(t, userID, decodeBody(t, w4)["userId"])

	// Refresh rotates the pair
	w5 := postJSON(t, router, "/auth/refresh", map[string]string{"refresh_token": refresh})
	require.Equal(t, http.StatusOK, w5.Code)
	rotated := decodeBody(t, w5)["refresh_token"].(string)
	require.NotEqual(t, refresh, rotated)

	// The spent refresh token is dead
	w6 := postJSON(t, router, "/auth/refresh", map[string]string{"refresh_token": refresh})
	require.Equal(t, http.StatusUnauthorized, w6.Code)

	// Logout kills the rotated session too
	w7 := postJSON(t, router, "/auth/logout", map[string]string{"refresh_token": rotated})
	require.Equal(t, http.StatusOK, w7.Code)

	w8 := postJSON(t, router, "/auth/refresh", map[string]string{"refresh_token": rotated})
	require.Equal(t, http.StatusUnauthorized, w8.Code)
}

func TestRefreshEndpointMalformedToken(t *testing.T) {
	router := newTestRouter(t)

	// A token that is not even a JWT is a bad request, not a server failure
	w := postJSON(t, router, "/auth/refresh", map[string]string{"refresh_token": "garbage"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogoutEndpointMalformedToken(t *testing.T) {
	router := newTestRouter(t)

	w := postJSON(t, router, "/auth/logout", map[string]string{"refresh_token": "garbage"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMeEndpointUnauthorized(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
