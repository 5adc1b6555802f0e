package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/protocol/webauthncose"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/layer-3/rangda/core"
	"github.com/layer-3/rangda/internal/eth"
	"github.com/layer-3/rangda/ports"
)

// DefaultChallengeTTL bounds a WebAuthn ceremony when no override is configured
const DefaultChallengeTTL = 2 * time.Minute

// RelyingParty holds the WebAuthn relying-party settings. ID is the fallback
// when a request carries no usable host header.
type RelyingParty struct {
	Name    string
	ID      string
	Origins []string
}

// AuthService reconciles wallet and passkey proofs into durable identities
// and mints one-time secrets against them
type AuthService struct {
	directory  ports.Directory
	challenges ports.ChallengeStore
	tokenizer  ports.Tokenizer
	events     ports.EventPublisher

	relyingParty RelyingParty
	challengeTTL time.Duration

	// validateCreation checks an authenticator's creation response against a
	// challenge; a field so tests can substitute canned credentials
	validateCreation creationValidator
}

type creationValidator func(userID, display string, challenge *core.Challenge, credentialJSON []byte, host string) (*webauthn.Credential, error)

// NewAuthService creates a new authentication service
func NewAuthService(
	directory ports.Directory,
	challenges ports.ChallengeStore,
	tokenizer ports.Tokenizer,
	events ports.EventPublisher,
	relyingParty RelyingParty,
	challengeTTL time.Duration,
) *AuthService {
	if relyingParty.Name == "" {
		relyingParty.Name = "Rangda"
	}
	if relyingParty.ID == "" {
		relyingParty.ID = "localhost"
	}
	if challengeTTL <= 0 {
		challengeTTL = DefaultChallengeTTL
	}
	s := &AuthService{
		directory:    directory,
		challenges:   challenges,
		tokenizer:    tokenizer,
		events:       events,
		relyingParty: relyingParty,
		challengeTTL: challengeTTL,
	}
	s.validateCreation = s.verifyCreation
	return s
}

// WalletToken verifies a personal-sign proof over the preamble-wrapped
// message, binds the canonical wallet address to the identity for email, and
// mints a one-time secret against the resolved identity key.
func (s *AuthService) WalletToken(ctx context.Context, email, address, signature, message string) (string, core.IssuedToken, error) {
	canonical := eth.CanonicalAddress(address)
	if !eth.VerifyPersonalSignature(eth.AuthPreamble+message, signature, canonical) {
		return "", core.IssuedToken{}, core.ErrInvalidSignature
	}

	email = core.NormalizeHandle(email)

	identity, err := s.directory.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, core.ErrIdentityNotFound) {
		return "", core.IssuedToken{}, err
	}
	canonicalizeStoredWallet(identity)

	if derr := core.DecideBinding(identity, core.MethodWallet, canonical).Err(); derr != nil {
		return "", core.IssuedToken{}, derr
	}

	switch {
	case identity == nil:
		identity, err = s.createWithWallet(ctx, email, canonical)
		if err != nil {
			return "", core.IssuedToken{}, err
		}
	case !identity.HasWallet():
		if err := s.directory.SetWalletAddress(ctx, identity.Key, canonical); err != nil {
			return "", core.IssuedToken{}, err
		}
		s.publishBound(ctx, identity.Key, core.MethodWallet)
	default:
		// stored address matches the claimed one: idempotent re-login,
		// no mutation
	}

	token, err := s.directory.MintToken(ctx, identity.Key)
	if err != nil {
		return "", core.IssuedToken{}, err
	}

	return identity.Key, token, nil
}

// createWithWallet registers a fresh identity and binds the wallet. Losing a
// first-bind race surfaces as a duplicate-create conflict from the directory;
// the attempt is retried as an update against the now-existing record, with
// the binding gate re-evaluated against the winner.
func (s *AuthService) createWithWallet(ctx context.Context, email, address string) (*core.Identity, error) {
	identity, err := s.directory.Create(ctx, email)
	if errors.Is(err, core.ErrEmailTaken) {
		identity, err = s.directory.FindByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		canonicalizeStoredWallet(identity)
		if derr := core.DecideBinding(identity, core.MethodWallet, address).Err(); derr != nil {
			return nil, derr
		}
		if identity.HasWallet() {
			return identity, nil
		}
	} else if err != nil {
		return nil, err
	}

	if err := s.directory.SetWalletAddress(ctx, identity.Key, address); err != nil {
		return nil, err
	}
	s.publishBound(ctx, identity.Key, core.MethodWallet)

	identity.Prefs.WalletAddress = address
	return identity, nil
}

// canonicalizeStoredWallet normalizes the stored wallet address on a fetched
// record. Directory records created by other clients may hold the EIP-55
// checksummed form; the gate compares by plain equality, so both sides must
// be canonical before it runs.
func canonicalizeStoredWallet(identity *core.Identity) {
	if identity != nil && identity.Prefs.WalletAddress != "" {
		identity.Prefs.WalletAddress = eth.CanonicalAddress(identity.Prefs.WalletAddress)
	}
}

// RegistrationOptions is the payload for the registration-options phase of a
// passkey ceremony
type RegistrationOptions struct {
	PublicKey      protocol.PublicKeyCredentialCreationOptions `json:"publicKey"`
	ChallengeToken string                                      `json:"challengeToken"`
	Challenge      string                                      `json:"challenge"`
	UserHandle     string                                      `json:"userHandle"`
}

// PasskeyRegistrationOptions runs the first phase of passkey registration:
// gate the binding, issue a single-use challenge for the hashed subject, and
// assemble standard WebAuthn creation options. The user handle is the subject
// hash, never the raw identifier.
func (s *AuthService) PasskeyRegistrationOptions(ctx context.Context, userID, userName, host string) (*RegistrationOptions, error) {
	userID = core.NormalizeHandle(userID)

	identity, err := s.directory.FindByEmail(ctx, userID)
	if err != nil && !errors.Is(err, core.ErrIdentityNotFound) {
		return nil, err
	}
	if derr := core.DecideBinding(identity, core.MethodPasskey, "").Err(); derr != nil {
		return nil, derr
	}

	subjectKey := core.SubjectKey(userID)
	challenge, err := s.challenges.Issue(ctx, subjectKey, s.challengeTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to issue challenge: %w", err)
	}

	challengeToken, err := s.tokenizer.ChallengeToToken(challenge)
	if err != nil {
		return nil, err
	}

	challengeBytes, err := base64.RawURLEncoding.DecodeString(challenge.Value)
	if err != nil {
		return nil, fmt.Errorf("malformed challenge value: %w", err)
	}

	handle := core.SubjectHandle(userID)

	options := protocol.PublicKeyCredentialCreationOptions{
		Challenge: challengeBytes,
		RelyingParty: protocol.RelyingPartyEntity{
			CredentialEntity: protocol.CredentialEntity{Name: s.relyingParty.Name},
			ID:               s.relyingPartyID(host),
		},
		User: protocol.UserEntity{
			CredentialEntity: protocol.CredentialEntity{Name: userID},
			DisplayName:      userName,
			ID:               protocol.URLEncodedBase64(handle),
		},
		Parameters: credentialParameters(),
		Timeout:    int(s.challengeTTL.Milliseconds()),
		AuthenticatorSelection: protocol.AuthenticatorSelection{
			ResidentKey:      protocol.ResidentKeyRequirementRequired,
			UserVerification: protocol.VerificationPreferred,
		},
		Attestation: protocol.PreferNoAttestation,
	}

	return &RegistrationOptions{
		PublicKey:      options,
		ChallengeToken: challengeToken,
		Challenge:      challenge.Value,
		UserHandle:     base64.RawURLEncoding.EncodeToString(handle),
	}, nil
}

// PasskeyVerify runs the second phase of passkey registration: consume the
// challenge exactly once, validate the authenticator's attestation against
// it, persist the credential set, and mint a one-time secret.
func (s *AuthService) PasskeyVerify(ctx context.Context, userID, challengeToken string, credentialJSON []byte, host string) (string, core.IssuedToken, error) {
	userID = core.NormalizeHandle(userID)
	subjectKey := core.SubjectKey(userID)

	challenge, err := s.tokenizer.TokenToChallenge(challengeToken)
	if err != nil || challenge.SubjectKey != subjectKey {
		return "", core.IssuedToken{}, core.ErrInvalidChallenge
	}

	consumed, err := s.challenges.Consume(ctx, subjectKey, challenge.Value)
	if err != nil {
		return "", core.IssuedToken{}, err
	}
	if !consumed {
		return "", core.IssuedToken{}, core.ErrInvalidChallenge
	}

	credential, err := s.validateCreation(userID, displayName(userID), challenge, credentialJSON, host)
	if err != nil {
		return "", core.IssuedToken{}, err
	}

	identity, err := s.directory.FindByEmail(ctx, userID)
	if errors.Is(err, core.ErrIdentityNotFound) {
		identity, err = s.directory.Create(ctx, userID)
		if errors.Is(err, core.ErrEmailTaken) {
			identity, err = s.directory.FindByEmail(ctx, userID)
		}
	}
	if err != nil {
		return "", core.IssuedToken{}, err
	}

	if derr := core.DecideBinding(identity, core.MethodPasskey, "").Err(); derr != nil {
		return "", core.IssuedToken{}, derr
	}

	encoded, err := json.Marshal([]webauthn.Credential{*credential})
	if err != nil {
		return "", core.IssuedToken{}, fmt.Errorf("failed to encode credential: %w", err)
	}
	if err := s.directory.SetPasskeyCredentials(ctx, identity.Key, encoded); err != nil {
		return "", core.IssuedToken{}, err
	}
	s.publishBound(ctx, identity.Key, core.MethodPasskey)

	token, err := s.directory.MintToken(ctx, identity.Key)
	if err != nil {
		return "", core.IssuedToken{}, err
	}

	return identity.Key, token, nil
}

func (s *AuthService) verifyCreation(userID, display string, challenge *core.Challenge, credentialJSON []byte, host string) (*webauthn.Credential, error) {
	parsed, err := protocol.ParseCredentialCreationResponseBody(bytes.NewReader(credentialJSON))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidAssertion, err)
	}

	provider, err := webauthn.New(&webauthn.Config{
		RPDisplayName: s.relyingParty.Name,
		RPID:          s.relyingPartyID(host),
		RPOrigins:     s.relyingParty.Origins,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to configure relying party: %w", err)
	}

	user := &passkeyUser{
		id:          core.SubjectHandle(userID),
		name:        userID,
		displayName: display,
	}
	session := webauthn.SessionData{
		Challenge: challenge.Value,
		UserID:    user.id,
		Expires:   challenge.ExpiresAt,
	}

	credential, err := provider.CreateCredential(user, session, parsed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidAssertion, err)
	}

	return credential, nil
}

// relyingPartyID derives the RP identifier from a forwarded host header,
// falling back to the configured default
func (s *AuthService) relyingPartyID(host string) string {
	host = strings.TrimSpace(host)
	if host == "" {
		return s.relyingParty.ID
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return host
}

func (s *AuthService) publishBound(ctx context.Context, identityKey string, method core.BindingMethod) {
	if err := s.events.PublishBound(ctx, identityKey, method); err != nil {
		// Bindings are already durable in the directory; a missed
		// notification is not worth failing the request over.
		log.Printf("warning: failed to publish bound event for %s: %v", identityKey, err)
	}
}

func credentialParameters() []protocol.CredentialParameter {
	return []protocol.CredentialParameter{
		{Type: protocol.PublicKeyCredentialType, Algorithm: webauthncose.AlgES256},
		{Type: protocol.PublicKeyCredentialType, Algorithm: webauthncose.AlgRS256},
	}
}

// displayName strips the domain part so authenticator pickers show something short
func displayName(handle string) string {
	if at := strings.IndexByte(handle, '@'); at > 0 {
		return handle[:at]
	}
	return handle
}

type passkeyUser struct {
	id          []byte
	name        string
	displayName string
	credentials []webauthn.Credential
}

func (u *passkeyUser) WebAuthnID() []byte                         { return u.id }
func (u *passkeyUser) WebAuthnName() string                       { return u.name }
func (u *passkeyUser) WebAuthnDisplayName() string                { return u.displayName }
func (u *passkeyUser) WebAuthnIcon() string                       { return "" }
func (u *passkeyUser) WebAuthnCredentials() []webauthn.Credential { return u.credentials }
