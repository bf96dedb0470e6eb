package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"

	"github.com/lumilearn/lumiauth/internal/auth/domain"
	"github.com/lumilearn/lumiauth/internal/auth/store"
	"github.com/lumilearn/lumiauth/pkg/idx"
	"github.com/lumilearn/lumiauth/pkg/jwtx"
	"github.com/lumilearn/lumiauth/pkg/slogx"
)

const webauthnChallengeTTL = 5 * time.Minute

var (
	ErrInvalidCeremony      = errors.New("invalid or expired WebAuthn ceremony")
	ErrNoCredentials        = errors.New("no WebAuthn credentials registered")
	ErrCredentialNotFound   = errors.New("credential not found")
	ErrWebAuthnVerification = errors.New("WebAuthn verification failed")
)

// WebAuthnService wraps go-webauthn with challenge persistence, so the
// begin and finish halves of a ceremony can land on different instances.
type WebAuthnService struct {
	Store      store.Store
	WebAuthn   *webauthn.WebAuthn
	SessionTTL time.Duration // lifetime of sessions created by passkey login
}

// NewWebAuthnService builds the relying party configuration. rpID is the
// effective domain ("lumilearn.example"), origins the exact allowed web
// origins.
func NewWebAuthnService(st store.Store, rpDisplayName, rpID string, origins []string, sessionTTL time.Duration) (*WebAuthnService, error) {
	wa, err := webauthn.New(&webauthn.Config{
		RPDisplayName: rpDisplayName,
		RPID:          rpID,
		RPOrigins:     origins,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to configure webauthn: %w", err)
	}
	return &WebAuthnService{Store: st, WebAuthn: wa, SessionTTL: sessionTTL}, nil
}

// webauthnUser adapts a domain user and their stored credentials to the
// interface go-webauthn expects.
type webauthnUser struct {
	user  domain.User
	creds []webauthn.Credential
}

func (u *webauthnUser) WebAuthnID() []byte                         { return []byte(u.user.ID) }
func (u *webauthnUser) WebAuthnName() string                       { return u.user.Email }
func (u *webauthnUser) WebAuthnDisplayName() string                { return u.user.DisplayName }
func (u *webauthnUser) WebAuthnCredentials() []webauthn.Credential { return u.creds }

func (s *WebAuthnService) loadWebAuthnUser(ctx context.Context, user domain.User) (*webauthnUser, []domain.WebAuthnCredential, error) {
	records, err := s.Store.Credentials().ListUserCredentials(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	creds := make([]webauthn.Credential, 0, len(records))
	for _, rec := range records {
		var c webauthn.Credential
		if err := json.Unmarshal(rec.CredentialJSON, &c); err != nil {
			return nil, nil, fmt.Errorf("corrupt credential record %s: %w", rec.ID, err)
		}
		creds = append(creds, c)
	}
	return &webauthnUser{user: user, creds: creds}, records, nil
}

// BeginRegistrationResponse carries the creation options for the browser
// plus the ceremony id the client must echo back on finish.
type BeginRegistrationResponse struct {
	ChallengeID string                       `json:"challenge_id"`
	Options     *protocol.CredentialCreation `json:"options"`
}

// BeginRegistration starts adding a passkey for an authenticated user.
// Already-registered authenticators are excluded so the browser prompts
// for a new one.
func (s *WebAuthnService) BeginRegistration(ctx context.Context, userID string) (*BeginRegistrationResponse, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	waUser, records, err := s.loadWebAuthnUser(ctx, user)
	if err != nil {
		return nil, err
	}

	exclusions := make([]protocol.CredentialDescriptor, 0, len(records))
	for _, rec := range records {
		exclusions = append(exclusions, protocol.CredentialDescriptor{
			Type:         protocol.PublicKeyCredentialType,
			CredentialID: rec.CredentialID,
		})
	}

	options, session, err := s.WebAuthn.BeginRegistration(waUser, webauthn.WithExclusions(exclusions))
	if err != nil {
		return nil, fmt.Errorf("failed to begin registration: %w", err)
	}

	challengeID, err := s.storeChallenge(ctx, user.ID, domain.CeremonyRegistration, session)
	if err != nil {
		return nil, err
	}

	return &BeginRegistrationResponse{ChallengeID: challengeID, Options: options}, nil
}

// FinishRegistration validates the browser's attestation response and
// stores the new credential under the given label.
func (s *WebAuthnService) FinishRegistration(ctx context.Context, userID, challengeID, name string, body io.Reader) (domain.WebAuthnCredential, error) {
	log := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return domain.WebAuthnCredential{}, err
	}

	session, err := s.consumeChallenge(ctx, challengeID, userID, domain.CeremonyRegistration)
	if err != nil {
		return domain.WebAuthnCredential{}, err
	}

	waUser, _, err := s.loadWebAuthnUser(ctx, user)
	if err != nil {
		return domain.WebAuthnCredential{}, err
	}

	parsed, err := protocol.ParseCredentialCreationResponseBody(body)
	if err != nil {
		return domain.WebAuthnCredential{}, ErrWebAuthnVerification
	}

	cred, err := s.WebAuthn.CreateCredential(waUser, *session, parsed)
	if err != nil {
		log.Warn("webauthn registration rejected", "user_id", userID, "error", err)
		return domain.WebAuthnCredential{}, ErrWebAuthnVerification
	}

	credJSON, err := json.Marshal(cred)
	if err != nil {
		return domain.WebAuthnCredential{}, fmt.Errorf("failed to serialize credential: %w", err)
	}

	label := strings.TrimSpace(name)
	if label == "" {
		label = "Passkey"
	}

	record := domain.WebAuthnCredential{
		ID:             idx.New().String(),
		UserID:         userID,
		Name:           label,
		CredentialID:   cred.ID,
		CredentialJSON: credJSON,
		SignCount:      cred.Authenticator.SignCount,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.Store.Credentials().CreateCredential(ctx, record); err != nil {
		return domain.WebAuthnCredential{}, err
	}

	log.Info("webauthn credential registered", "user_id", userID, "credential", record.ID)
	return record, nil
}

// BeginLoginResponse mirrors BeginRegistrationResponse for the assertion
// ceremony.
type BeginLoginResponse struct {
	ChallengeID string                        `json:"challenge_id"`
	Options     *protocol.CredentialAssertion `json:"options"`
}

// BeginLogin starts a passkey login for the account with the given email.
func (s *WebAuthnService) BeginLogin(ctx context.Context, email string) (*BeginLoginResponse, error) {
	user, err := s.Store.Users().GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	waUser, records, err := s.loadWebAuthnUser(ctx, user)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoCredentials
	}

	options, session, err := s.WebAuthn.BeginLogin(waUser)
	if err != nil {
		return nil, fmt.Errorf("failed to begin login: %w", err)
	}

	challengeID, err := s.storeChallenge(ctx, user.ID, domain.CeremonyLogin, session)
	if err != nil {
		return nil, err
	}

	return &BeginLoginResponse{ChallengeID: challengeID, Options: options}, nil
}

// LoginResult is a completed passkey authentication. The session it
// creates carries webauthn in its AMR, which satisfies MFA checks on its
// own: possession of the authenticator plus its local unlock already
// covers two factors.
type LoginResult struct {
	User      domain.User
	SessionID string
	AMR       []string
}

// FinishLogin validates the assertion, bumps the stored sign counter and
// creates a logged-in session.
func (s *WebAuthnService) FinishLogin(ctx context.Context, challengeID string, body io.Reader, ipAddress, userAgent string) (*LoginResult, error) {
	log := slogx.FromContext(ctx)

	challenge, err := s.Store.WebAuthnChallenges().GetWebAuthnChallenge(ctx, challengeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCeremony
		}
		return nil, err
	}
	if challenge.Ceremony != domain.CeremonyLogin {
		return nil, ErrInvalidCeremony
	}

	var session webauthn.SessionData
	if err := json.Unmarshal(challenge.SessionJSON, &session); err != nil {
		return nil, ErrInvalidCeremony
	}
	if err := s.Store.WebAuthnChallenges().DeleteWebAuthnChallenge(ctx, challengeID); err != nil {
		return nil, err
	}

	user, err := s.Store.Users().GetUserByID(ctx, challenge.UserID)
	if err != nil {
		return nil, err
	}

	waUser, _, err := s.loadWebAuthnUser(ctx, user)
	if err != nil {
		return nil, err
	}

	parsed, err := protocol.ParseCredentialRequestResponseBody(body)
	if err != nil {
		return nil, ErrWebAuthnVerification
	}

	cred, err := s.WebAuthn.ValidateLogin(waUser, session, parsed)
	if err != nil {
		log.Warn("webauthn login rejected", "user_id", user.ID, "error", err)
		return nil, ErrWebAuthnVerification
	}
	if cred.Authenticator.CloneWarning {
		log.Warn("webauthn sign counter regressed, possible cloned authenticator",
			"user_id", user.ID)
	}

	record, err := s.Store.Credentials().GetCredentialByCredentialID(ctx, cred.ID)
	if err == nil {
		if err := s.Store.Credentials().UpdateCredentialSignCount(ctx, record.ID, cred.Authenticator.SignCount); err != nil {
			log.Warn("failed to update sign count", "credential", record.ID, "error", err)
		}
	}

	ttl := s.SessionTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	now := time.Now()
	sess := domain.Session{
		ID:             idx.New().String(),
		UserID:         user.ID,
		IPAddress:      ipAddress,
		UserAgent:      userAgent,
		CreatedAt:      now,
		LastActivityAt: now,
		ExpiresAt:      now.Add(ttl),
	}
	if err := s.Store.Sessions().CreateSession(ctx, sess); err != nil {
		return nil, err
	}

	log.Info("webauthn login succeeded", "user_id", user.ID, "session_id", sess.ID)
	return &LoginResult{
		User:      user,
		SessionID: sess.ID,
		AMR:       []string{jwtx.AMRWebAuthn, jwtx.AMRMFA},
	}, nil
}

// ListCredentials returns the user's registered passkeys.
func (s *WebAuthnService) ListCredentials(ctx context.Context, userID string) ([]domain.WebAuthnCredential, error) {
	return s.Store.Credentials().ListUserCredentials(ctx, userID)
}

// DeleteCredential removes one of the user's passkeys.
func (s *WebAuthnService) DeleteCredential(ctx context.Context, userID, credentialID string) error {
	records, err := s.Store.Credentials().ListUserCredentials(ctx, userID)
	if err != nil {
		return err
	}
	for _, rec := range records {
		if rec.ID == credentialID {
			return s.Store.Credentials().DeleteCredential(ctx, rec.ID)
		}
	}
	return ErrCredentialNotFound
}

func (s *WebAuthnService) storeChallenge(ctx context.Context, userID, ceremony string, session *webauthn.SessionData) (string, error) {
	sessionJSON, err := json.Marshal(session)
	if err != nil {
		return "", fmt.Errorf("failed to serialize session data: %w", err)
	}

	now := time.Now().UTC()
	challenge := domain.WebAuthnChallenge{
		ID:          idx.New().String(),
		UserID:      userID,
		Ceremony:    ceremony,
		SessionJSON: sessionJSON,
		ExpiresAt:   now.Add(webauthnChallengeTTL),
		CreatedAt:   now,
	}
	if err := s.Store.WebAuthnChallenges().CreateWebAuthnChallenge(ctx, challenge); err != nil {
		return "", err
	}
	return challenge.ID, nil
}

func (s *WebAuthnService) consumeChallenge(ctx context.Context, challengeID, userID, ceremony string) (*webauthn.SessionData, error) {
	challenge, err := s.Store.WebAuthnChallenges().GetWebAuthnChallenge(ctx, challengeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCeremony
		}
		return nil, err
	}
	if challenge.UserID != userID || challenge.Ceremony != ceremony {
		return nil, ErrInvalidCeremony
	}

	var session webauthn.SessionData
	if err := json.Unmarshal(challenge.SessionJSON, &session); err != nil {
		return nil, ErrInvalidCeremony
	}

	if err := s.Store.WebAuthnChallenges().DeleteWebAuthnChallenge(ctx, challengeID); err != nil {
		return nil, err
	}
	return &session, nil
}
