package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/layer-3/rangda/core"
	"github.com/layer-3/rangda/ports"
)

// HTTPDirectory is a REST client for the external identity platform. It maps
// the platform's responses onto the Directory contract: 404 is not-found,
// 409 on create is a duplicate handle, and everything else that is not a
// success (including missing configuration) surfaces as
// core.ErrDirectoryUnavailable.
type HTTPDirectory struct {
	endpoint string
	project  string
	apiKey   string
	client   *http.Client
}

// NewHTTPDirectory creates a directory client. Missing configuration is not
// an error here: it is reported per request, so a misconfigured deployment
// answers 500 instead of refusing to start.
func NewHTTPDirectory(endpoint, project, apiKey string) ports.Directory {
	return &HTTPDirectory{
		endpoint: endpoint,
		project:  project,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type identityPayload struct {
	Key         string           `json:"key"`
	Email       string           `json:"email"`
	Preferences core.Preferences `json:"preferences"`
}

type tokenPayload struct {
	Secret    string    `json:"secret"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// FindByEmail looks up an identity by its primary handle
func (d *HTTPDirectory) FindByEmail(ctx context.Context, email string) (*core.Identity, error) {
	path := fmt.Sprintf("identities?email=%s", url.QueryEscape(email))

	var payload identityPayload
	status, err := d.do(ctx, http.MethodGet, path, nil, &payload)
	if err != nil {
		return nil, err
	}

	switch status {
	case http.StatusOK:
		return payload.identity(), nil
	case http.StatusNotFound:
		return nil, core.ErrIdentityNotFound
	default:
		return nil, fmt.Errorf("identity lookup returned status %d: %w", status, core.ErrDirectoryUnavailable)
	}
}

// Create registers a new identity for the given handle
func (d *HTTPDirectory) Create(ctx context.Context, email string) (*core.Identity, error) {
	body := map[string]string{"email": email}

	var payload identityPayload
	status, err := d.do(ctx, http.MethodPost, "identities", body, &payload)
	if err != nil {
		return nil, err
	}

	switch status {
	case http.StatusOK, http.StatusCreated:
		return payload.identity(), nil
	case http.StatusConflict:
		return nil, core.ErrEmailTaken
	default:
		return nil, fmt.Errorf("identity create returned status %d: %w", status, core.ErrDirectoryUnavailable)
	}
}

// SetWalletAddress persists the canonical wallet address
func (d *HTTPDirectory) SetWalletAddress(ctx context.Context, key, address string) error {
	body := map[string]string{"walletEth": address}
	return d.patchPreferences(ctx, key, body)
}

// SetPasskeyCredentials persists the passkey credential set
func (d *HTTPDirectory) SetPasskeyCredentials(ctx context.Context, key string, credentials json.RawMessage) error {
	body := map[string]json.RawMessage{"passkeyCredentials": credentials}
	return d.patchPreferences(ctx, key, body)
}

// MintToken requests a one-time secret for the identity key
func (d *HTTPDirectory) MintToken(ctx context.Context, key string) (core.IssuedToken, error) {
	path := fmt.Sprintf("identities/%s/tokens", url.PathEscape(key))

	var payload tokenPayload
	status, err := d.do(ctx, http.MethodPost, path, nil, &payload)
	if err != nil {
		return core.IssuedToken{}, err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return core.IssuedToken{}, fmt.Errorf("token mint returned status %d: %w", status, core.ErrDirectoryUnavailable)
	}

	return core.IssuedToken{Secret: payload.Secret, ExpiresAt: payload.ExpiresAt}, nil
}

// RedeemToken exchanges a one-time secret for its identity key
func (d *HTTPDirectory) RedeemToken(ctx context.Context, secret string) (string, error) {
	body := map[string]string{"secret": secret}

	var payload identityPayload
	status, err := d.do(ctx, http.MethodPost, "tokens/redeem", body, &payload)
	if err != nil {
		return "", err
	}

	switch status {
	case http.StatusOK:
		return payload.Key, nil
	case http.StatusNotFound, http.StatusGone:
		return "", core.ErrInvalidSecret
	default:
		return "", fmt.Errorf("token redeem returned status %d: %w", status, core.ErrDirectoryUnavailable)
	}
}

func (d *HTTPDirectory) patchPreferences(ctx context.Context, key string, body any) error {
	path := fmt.Sprintf("identities/%s/preferences", url.PathEscape(key))

	status, err := d.do(ctx, http.MethodPatch, path, body, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusNoContent {
		return fmt.Errorf("preference update returned status %d: %w", status, core.ErrDirectoryUnavailable)
	}
	return nil
}

func (d *HTTPDirectory) do(ctx context.Context, method, path string, body, out any) (int, error) {
	if d.endpoint == "" || d.project == "" || d.apiKey == "" {
		return 0, fmt.Errorf("directory endpoint, project, and key must be configured: %w", core.ErrDirectoryUnavailable)
	}

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	target := fmt.Sprintf("%s/v1/projects/%s/%s", d.endpoint, url.PathEscape(d.project), path)
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to build directory request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+d.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("directory request failed: %w", core.ErrDirectoryUnavailable)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return 0, fmt.Errorf("failed to decode directory response: %w", core.ErrDirectoryUnavailable)
		}
	}

	return resp.StatusCode, nil
}

func (p identityPayload) identity() *core.Identity {
	return &core.Identity{
		Key:   p.Key,
		Email: p.Email,
		Prefs: p.Preferences,
	}
}
