package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/lumilearn/lumiauth/internal/auth/domain"
	"github.com/lumilearn/lumiauth/internal/auth/store"
	"github.com/lumilearn/lumiauth/pkg/cryptox"
	"github.com/lumilearn/lumiauth/pkg/idx"
	"github.com/lumilearn/lumiauth/pkg/jwtx"
	"github.com/lumilearn/lumiauth/pkg/slogx"
)

var (
	ErrLoginRequired  = errors.New("login_required")
	ErrInvalidRequest = errors.New("invalid_request")

	errInvalidMFACode = errors.New("invalid_mfa_code")
	mfaMethods        = []string{"totp", "backup_code"}
)

// AuthorizeService encapsulates the OAuth2 authorization-code issuance flow.
type AuthorizeService struct {
	Store      store.Store
	CodeTTL    time.Duration
	SessionTTL time.Duration // absolute session lifetime
}

// AuthorizeRequest captures the validated inputs required to issue an
// authorization code.
type AuthorizeRequest struct {
	ResponseType        string
	ClientID            string
	RedirectURI         string
	Scope               []string
	State               string
	CodeChallenge       string
	CodeChallengeMethod string

	// Email/password pair for interactive login (if no existing session).
	Email    string
	Password string

	// Existing authenticated session context (e.g. from a bearer token).
	Session *SessionContext

	// Fields used when completing an MFA challenge.
	MFAToken  string
	MFAMethod string
	MFACode   string

	// Request metadata recorded on new sessions.
	IPAddress string
	UserAgent string
}

// SessionContext describes an already authenticated user session.
type SessionContext struct {
	UserID    string
	SessionID string
	AMR       []string
	Scopes    []string
}

// AuthorizeCodeResponse contains the authorization code and redirect
// information for building the redirect back to the client.
type AuthorizeCodeResponse struct {
	Code        string
	RedirectURI string
	State       string
}

// IssueAuthorizationCode implements the OAuth2 authorization code flow per
// RFC 6749 section 4.1.
//
// Authentication paths, in priority order:
//
//  1. MFA completion: req.MFAToken from a previous challenge, validated
//     against TOTP or a backup code.
//  2. Existing session: req.Session provided, scopes re-validated against
//     the user's role.
//  3. Email/password: interactive login. Users with MFA enabled get a
//     *MFARequiredError back instead of a code.
//
// Security requirements:
//
//   - PKCE: public clients (no secret) MUST send code_challenge; method
//     defaults to S256 when omitted. Confidential clients may skip PKCE.
//   - redirect_uri must exactly match one registered for the client.
//   - Granted scopes are the intersection of requested, client and role
//     scopes.
//   - Codes are single use and expire after CodeTTL (default 5 minutes).
//
// A successful interactive login also creates the session record that all
// later refreshes are validated against.
func (s *AuthorizeService) IssueAuthorizationCode(ctx context.Context, req AuthorizeRequest) (*AuthorizeCodeResponse, error) {
	log := slogx.FromContext(ctx)

	if !strings.EqualFold(strings.TrimSpace(req.ResponseType), "code") {
		return nil, ErrInvalidRequest
	}
	if strings.TrimSpace(req.ClientID) == "" || strings.TrimSpace(req.RedirectURI) == "" {
		return nil, ErrInvalidRequest
	}

	client, err := s.Store.Clients().GetClientByID(ctx, req.ClientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidClient
		}
		return nil, err
	}

	if !client.AllowsRedirect(req.RedirectURI) {
		return nil, ErrInvalidRequest
	}

	challenge, method, err := validatePKCE(req.CodeChallenge, req.CodeChallengeMethod, client)
	if err != nil {
		return nil, err
	}

	now := time.Now()

	// MFA completion has highest priority if a token is present.
	if strings.TrimSpace(req.MFAToken) != "" {
		return s.handleMFACompletion(ctx, now, client, challenge, method, req)
	}

	// Existing authenticated session.
	if req.Session != nil {
		if strings.TrimSpace(req.Session.UserID) == "" {
			return nil, ErrInvalidGrant
		}

		user, err := s.Store.Users().GetUserByID(ctx, req.Session.UserID)
		if err != nil {
			return nil, err
		}

		role, err := s.Store.Roles().GetRoleByID(ctx, user.RoleID)
		if err != nil {
			return nil, err
		}

		requested := coalesceScopes(req.Scope, req.Session.Scopes)
		if len(requested) == 0 {
			requested = client.Scopes
		}

		effective := intersectThreeWay(requested, client.Scopes, role.Scopes)
		if len(req.Session.Scopes) > 0 {
			effective = intersectScopes(effective, req.Session.Scopes)
		}
		if len(effective) == 0 {
			return nil, ErrInvalidScope
		}

		sessionID := req.Session.SessionID
		if sessionID == "" {
			sessionID = idx.New().String()
		}

		sessionAMR := dedupe(req.Session.AMR)
		if len(sessionAMR) == 0 {
			sessionAMR = []string{jwtx.AMRPassword}
		}

		return s.issueAuthorizationCode(ctx, now, user.ID, client.ID, req.RedirectURI, req.State, challenge, method, effective, sessionID, sessionAMR, nil)
	}

	// Interactive email/password authentication.
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		return nil, ErrLoginRequired
	}

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		log.Warn("authorize: user lookup failed", "error", err)
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if cryptox.VerifyPassword(req.Password, user.PasswordHash) != nil {
		return nil, ErrInvalidCredentials
	}

	role, err := s.Store.Roles().GetRoleByID(ctx, user.RoleID)
	if err != nil {
		return nil, err
	}

	requested := req.Scope
	if len(requested) == 0 {
		requested = client.Scopes
	}
	effective := intersectThreeWay(requested, client.Scopes, role.Scopes)
	if len(effective) == 0 {
		return nil, ErrInvalidScope
	}

	sessionID := idx.New().String()
	baseAMR := []string{jwtx.AMRPassword}

	if user.HasMFA() {
		mfaToken := idx.New().String()
		session := domain.MFASession{
			ID:        mfaToken,
			UserID:    user.ID,
			ClientID:  client.ID,
			Scopes:    effective,
			AMR:       baseAMR,
			SessionID: sessionID,
			CreatedAt: now,
			ExpiresAt: now.Add(5 * time.Minute),
		}

		if err := s.Store.MFASessions().CreateMFASession(ctx, session); err != nil {
			return nil, err
		}

		return nil, &MFARequiredError{
			MFAToken: mfaToken,
			Methods:  mfaMethods,
		}
	}

	if err := s.createSession(ctx, now, sessionID, user.ID, client.ID, req); err != nil {
		return nil, err
	}

	return s.issueAuthorizationCode(ctx, now, user.ID, client.ID, req.RedirectURI, req.State, challenge, method, effective, sessionID, baseAMR, nil)
}

func (s *AuthorizeService) handleMFACompletion(
	ctx context.Context,
	now time.Time,
	client domain.Client,
	challenge, method string,
	req AuthorizeRequest,
) (*AuthorizeCodeResponse, error) {
	log := slogx.FromContext(ctx)

	if strings.TrimSpace(req.MFAMethod) == "" || strings.TrimSpace(req.MFACode) == "" {
		return nil, ErrInvalidRequest
	}

	session, err := s.Store.MFASessions().GetMFASession(ctx, req.MFAToken)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidGrant
		}
		return nil, err
	}

	if session.Attempts >= domain.MFAMaxAttempts {
		_ = s.Store.MFASessions().DeleteMFASession(ctx, req.MFAToken)
		log.Warn("MFA session exceeded max attempts", "mfa_token", req.MFAToken, "attempts", session.Attempts)
		return nil, ErrTooManyAttempts
	}

	if session.ClientID != client.ID {
		return nil, ErrInvalidRequest
	}

	user, err := s.Store.Users().GetUserByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}

	role, err := s.Store.Roles().GetRoleByID(ctx, user.RoleID)
	if err != nil {
		return nil, err
	}

	effective := intersectThreeWay(session.Scopes, client.Scopes, role.Scopes)
	if len(effective) == 0 {
		return nil, ErrInvalidScope
	}

	normalizedMethod := strings.ToLower(req.MFAMethod)
	if normalizedMethod != "totp" && normalizedMethod != "backup_code" {
		return nil, ErrInvalidRequest
	}

	mfaSessionID := session.ID
	sessionID := session.SessionID
	if sessionID == "" {
		sessionID = idx.New().String()
	}

	baseAMR := dedupe(session.AMR)
	if len(baseAMR) == 0 {
		baseAMR = []string{jwtx.AMRPassword}
	}
	amr := dedupe(append(baseAMR, jwtx.AMROTP, jwtx.AMRMFA))

	var usedBackupCodeID string
	var validationErr error

	switch normalizedMethod {
	case "totp":
		if user.MFASecret == nil || *user.MFASecret == "" {
			validationErr = errInvalidMFACode
		} else if !validateTOTPCode(req.MFACode, *user.MFASecret, now) {
			validationErr = errInvalidMFACode
		}

	case "backup_code":
		hashed := cryptox.FingerprintToken(normalizeBackupCode(req.MFACode))
		bc, err := s.Store.BackupCodes().GetActiveBackupCodeByHash(ctx, user.ID, hashed)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				validationErr = errInvalidMFACode
			} else {
				return nil, err
			}
		} else {
			usedBackupCodeID = bc.ID
		}
	}

	if validationErr != nil {
		updatedSession, err := s.Store.MFASessions().IncrementMFASessionAttempts(ctx, req.MFAToken)
		if err != nil {
			log.Error("failed to increment MFA attempts", "error", err)
			return nil, ErrInvalidGrant
		}
		log.Warn("MFA validation failed", "mfa_token", req.MFAToken, "attempts", updatedSession.Attempts, "method", normalizedMethod)
		return nil, ErrInvalidGrant
	}

	code, record, err := s.prepareAuthorizationCode(now, user.ID, client.ID, req.RedirectURI, challenge, method, effective, sessionID, amr, &mfaSessionID)
	if err != nil {
		return nil, err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if usedBackupCodeID != "" {
			if err := tx.BackupCodes().MarkBackupCodeUsed(ctx, usedBackupCodeID); err != nil {
				return err
			}
		}
		if err := tx.Sessions().CreateSession(ctx, s.newSession(now, sessionID, user.ID, client.ID, req)); err != nil {
			return err
		}
		if err := tx.AuthorizationCodes().CreateAuthorizationCode(ctx, record); err != nil {
			return err
		}
		return tx.MFASessions().DeleteMFASession(ctx, session.ID)
	})
	if err != nil {
		return nil, err
	}

	return &AuthorizeCodeResponse{
		Code:        code,
		RedirectURI: req.RedirectURI,
		State:       req.State,
	}, nil
}

func (s *AuthorizeService) newSession(now time.Time, sessionID, userID, clientID string, req AuthorizeRequest) domain.Session {
	ttl := s.SessionTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return domain.Session{
		ID:             sessionID,
		UserID:         userID,
		ClientID:       clientID,
		IPAddress:      req.IPAddress,
		UserAgent:      req.UserAgent,
		CreatedAt:      now,
		LastActivityAt: now,
		ExpiresAt:      now.Add(ttl),
	}
}

func (s *AuthorizeService) createSession(ctx context.Context, now time.Time, sessionID, userID, clientID string, req AuthorizeRequest) error {
	return s.Store.Sessions().CreateSession(ctx, s.newSession(now, sessionID, userID, clientID, req))
}

func (s *AuthorizeService) issueAuthorizationCode(
	ctx context.Context,
	now time.Time,
	userID, clientID, redirectURI, state, challenge, method string,
	scopes []string,
	sessionID string,
	amr []string,
	mfaSessionID *string,
) (*AuthorizeCodeResponse, error) {
	code, record, err := s.prepareAuthorizationCode(now, userID, clientID, redirectURI, challenge, method, scopes, sessionID, amr, mfaSessionID)
	if err != nil {
		return nil, err
	}

	if err := s.Store.AuthorizationCodes().CreateAuthorizationCode(ctx, record); err != nil {
		return nil, err
	}

	return &AuthorizeCodeResponse{
		Code:        code,
		RedirectURI: redirectURI,
		State:       state,
	}, nil
}

func (s *AuthorizeService) prepareAuthorizationCode(
	now time.Time,
	userID, clientID, redirectURI, challenge, method string,
	scopes []string,
	sessionID string,
	amr []string,
	mfaSessionID *string,
) (string, domain.AuthorizationCode, error) {
	code, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return "", domain.AuthorizationCode{}, err
	}

	ttl := s.CodeTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	record := domain.AuthorizationCode{
		ID:                  idx.New().String(),
		UserID:              userID,
		ClientID:            clientID,
		CodeHash:            cryptox.FingerprintToken(code),
		RedirectURI:         redirectURI,
		Scopes:              scopes,
		SessionID:           sessionID,
		AMR:                 dedupe(amr),
		CodeChallenge:       challenge,
		CodeChallengeMethod: method,
		MFASessionID:        mfaSessionID,
		ExpiresAt:           now.Add(ttl),
		CreatedAt:           now,
	}

	return code, record, nil
}

func validatePKCE(challenge, method string, client domain.Client) (string, string, error) {
	trimmedChallenge := strings.TrimSpace(challenge)
	trimmedMethod := strings.TrimSpace(method)

	if trimmedChallenge == "" {
		if client.SecretHash == "" {
			return "", "", ErrInvalidRequest
		}
		// Confidential clients may omit PKCE; store empty values.
		return "", "", nil
	}

	normalizedMethod := trimmedMethod
	switch {
	case strings.EqualFold(trimmedMethod, "S256"):
		normalizedMethod = "S256"
	case strings.EqualFold(trimmedMethod, "plain"):
		normalizedMethod = "plain"
	case trimmedMethod == "":
		// Default to S256 when challenge provided but method omitted.
		normalizedMethod = "S256"
	default:
		return "", "", ErrInvalidRequest
	}

	return trimmedChallenge, normalizedMethod, nil
}

func coalesceScopes(primary, fallback []string) []string {
	if len(primary) > 0 {
		return primary
	}
	return fallback
}
