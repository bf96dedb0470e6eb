package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/lumilearn/lumiauth/internal/auth/domain"
	"github.com/lumilearn/lumiauth/internal/auth/store"
	"github.com/lumilearn/lumiauth/pkg/authsdk"
	"github.com/lumilearn/lumiauth/pkg/cryptox"
	"github.com/lumilearn/lumiauth/pkg/idx"
	"github.com/lumilearn/lumiauth/pkg/jwtx"
	"github.com/lumilearn/lumiauth/pkg/slogx"
)

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidClient      = errors.New("invalid_client")
	ErrInvalidScope       = errors.New("invalid_scope")
	ErrInvalidRefresh     = errors.New("invalid_refresh_token")
	ErrInvalidGrant       = errors.New("invalid_grant")
	ErrTooManyAttempts    = errors.New("too_many_attempts")
	ErrSessionExpired     = errors.New("session_expired")
)

// MFARequiredError is an alias to the SDK's MFARequiredError so both sides
// of the wire share one shape.
type MFARequiredError = authsdk.MFARequiredError

type TokenService struct {
	KeyManager *jwtx.KeyManager
	Store      store.Store
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// MaxInactivity bounds how long a session may idle between refreshes.
	MaxInactivity time.Duration

	// SessionTTL is the absolute lifetime of sessions created by grants
	// that complete a login (mfa_otp). Defaults to 12 hours.
	SessionTTL time.Duration
}

// ExchangeAuthorizationCode implements the OAuth2 authorization_code grant.
//
// It validates client authentication (for confidential clients), verifies
// the authorization code, enforces PKCE, and issues new tokens.
func (s *TokenService) ExchangeAuthorizationCode(
	ctx context.Context,
	clientID, clientSecret, code, redirectURI, codeVerifier string,
) (*domain.TokenPair, error) {
	now := time.Now()
	l := slogx.FromContext(ctx)

	client, err := s.Store.Clients().GetClientByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidClient
		}
		return nil, err
	}

	// Confidential clients must authenticate
	if client.SecretHash != "" {
		if clientSecret == "" || cryptox.VerifyPassword(clientSecret, client.SecretHash) != nil {
			l.Info("authorization_code grant client authentication failed", slog.String("client_id", clientID))
			return nil, ErrInvalidClient
		}
	}

	code = strings.TrimSpace(code)
	redirectURI = strings.TrimSpace(redirectURI)
	codeVerifier = strings.TrimSpace(codeVerifier)
	if code == "" || redirectURI == "" {
		return nil, ErrInvalidGrant
	}

	codeHash := cryptox.FingerprintToken(code)

	var result *domain.TokenPair

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		authCode, err := tx.AuthorizationCodes().GetAuthorizationCodeByHash(ctx, codeHash)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidGrant
			}
			return err
		}

		if authCode.ClientID != client.ID {
			return ErrInvalidClient
		}
		if authCode.RedirectURI != redirectURI {
			return ErrInvalidGrant
		}
		if authCode.UsedAt != nil || now.After(authCode.ExpiresAt) {
			return ErrInvalidGrant
		}
		if !verifyCodeVerifier(authCode.CodeChallenge, authCode.CodeChallengeMethod, codeVerifier) {
			return ErrInvalidGrant
		}

		user, err := tx.Users().GetUserByID(ctx, authCode.UserID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidGrant
			}
			return err
		}

		role, err := tx.Roles().GetRoleByID(ctx, user.RoleID)
		if err != nil {
			return err
		}

		effective := intersectThreeWay(authCode.Scopes, client.Scopes, role.Scopes)
		if len(effective) == 0 {
			return ErrInvalidScope
		}

		sessionID := authCode.SessionID
		if sessionID == "" {
			sessionID = idx.New().String()
		}

		amr := dedupe(authCode.AMR)
		if len(amr) == 0 {
			amr = []string{jwtx.AMRPassword}
		}

		accessToken, err := s.signAccess(user, role.Name, client.ID, sessionID, effective, amr, now)
		if err != nil {
			return err
		}

		refreshOpaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
		if err != nil {
			return err
		}

		refresh := domain.RefreshToken{
			ID:        idx.New().String(),
			UserID:    user.ID,
			ClientID:  client.ID,
			TokenHash: cryptox.FingerprintToken(refreshOpaque),
			SessionID: sessionID,
			Scopes:    effective,
			AMR:       amr,
			ExpiresAt: now.Add(s.RefreshTTL),
			Revoked:   false,
		}

		if err := tx.AuthorizationCodes().MarkAuthorizationCodeUsed(ctx, authCode.ID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidGrant
			}
			return err
		}

		if err := tx.RefreshTokens().CreateRefreshToken(ctx, refresh); err != nil {
			return err
		}

		result = &domain.TokenPair{
			AccessToken:  accessToken,
			RefreshToken: refreshOpaque,
			TokenType:    "Bearer",
			ExpiresIn:    s.AccessTTL,
			Scope:        strings.Join(effective, " "),
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// ExchangeMFAOTP handles the mfa_otp grant. It verifies the pending MFA
// challenge with a TOTP or backup code and issues tokens on success. Each
// challenge allows at most domain.MFAMaxAttempts failures.
func (s *TokenService) ExchangeMFAOTP(
	ctx context.Context,
	mfaToken, method, otpCode string,
) (*domain.TokenPair, error) {
	now := time.Now()
	l := slogx.FromContext(ctx)

	session, err := s.Store.MFASessions().GetMFASession(ctx, mfaToken)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidGrant
		}
		return nil, err
	}

	if session.Attempts >= domain.MFAMaxAttempts {
		// Delete the session to prevent further attempts
		_ = s.Store.MFASessions().DeleteMFASession(ctx, mfaToken)
		l.Warn("MFA session exceeded max attempts", "mfa_token", mfaToken, "attempts", session.Attempts)
		return nil, ErrTooManyAttempts
	}

	u, err := s.Store.Users().GetUserByID(ctx, session.UserID)
	if err != nil {
		l.Error("failed to get user",
			slog.Any("error", err),
			slog.String("user_id", session.UserID),
		)
		return nil, err
	}

	var usedBackupCodeID string
	var validationErr error

	switch method {
	case "totp":
		if u.MFASecret == nil || *u.MFASecret == "" {
			validationErr = errors.New("MFA secret not found")
		} else if !validateTOTPCode(otpCode, *u.MFASecret, now) {
			validationErr = errors.New("invalid TOTP code")
		}

	case "backup_code":
		codeHash := cryptox.FingerprintToken(normalizeBackupCode(otpCode))
		bc, err := s.Store.BackupCodes().GetActiveBackupCodeByHash(ctx, u.ID, codeHash)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				validationErr = errors.New("invalid backup code")
			} else {
				l.Error("failed to look up backup code", "error", err)
				return nil, err
			}
		} else {
			usedBackupCodeID = bc.ID
		}

	default:
		return nil, ErrInvalidGrant
	}

	if validationErr != nil {
		updatedSession, err := s.Store.MFASessions().IncrementMFASessionAttempts(ctx, mfaToken)
		if err != nil {
			l.Error("failed to increment MFA attempts", "error", err)
			return nil, ErrInvalidGrant
		}
		l.Warn("MFA validation failed", "mfa_token", mfaToken, "attempts", updatedSession.Attempts, "method", method)
		return nil, ErrInvalidGrant
	}

	role, err := s.Store.Roles().GetRoleByID(ctx, u.RoleID)
	if err != nil {
		return nil, err
	}

	amr := dedupe(append(session.AMR, jwtx.AMROTP, jwtx.AMRMFA))

	accessToken, err := s.signAccess(u, role.Name, session.ClientID, session.SessionID, session.Scopes, amr, now)
	if err != nil {
		return nil, err
	}

	refreshOpaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}

	rt := domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    u.ID,
		ClientID:  session.ClientID,
		TokenHash: cryptox.FingerprintToken(refreshOpaque),
		SessionID: session.SessionID,
		Scopes:    session.Scopes,
		AMR:       amr,
		ExpiresAt: now.Add(s.RefreshTTL),
		Revoked:   false,
	}

	// Consume the backup code, store the refresh token, materialize the
	// login session if it does not exist yet, and drop the challenge
	// atomically.
	if err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if usedBackupCodeID != "" {
			if err := tx.BackupCodes().MarkBackupCodeUsed(ctx, usedBackupCodeID); err != nil {
				return err
			}
		}
		if _, err := tx.Sessions().GetSessionByID(ctx, session.SessionID); errors.Is(err, store.ErrNotFound) {
			ttl := s.SessionTTL
			if ttl <= 0 {
				ttl = 12 * time.Hour
			}
			sess := domain.Session{
				ID:             session.SessionID,
				UserID:         u.ID,
				ClientID:       session.ClientID,
				CreatedAt:      now,
				LastActivityAt: now,
				ExpiresAt:      now.Add(ttl),
			}
			if err := tx.Sessions().CreateSession(ctx, sess); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
		if err := tx.RefreshTokens().CreateRefreshToken(ctx, rt); err != nil {
			return err
		}
		return tx.MFASessions().DeleteMFASession(ctx, mfaToken)
	}); err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshOpaque,
		TokenType:    "Bearer",
		ExpiresIn:    s.AccessTTL,
		Scope:        strings.Join(session.Scopes, " "),
	}, nil
}

// ExchangeRefreshToken implements the OAuth2 refresh_token grant with
// rotation. Beyond the token checks, the backing session must still be
// live on both bounds: inside its absolute lifetime and not idle past
// MaxInactivity. A refresh that passes records fresh session activity.
func (s *TokenService) ExchangeRefreshToken(
	ctx context.Context,
	clientID string,
	refreshOpaque string,
	requestedScopes []string, // Empty means reuse original scopes
) (*domain.TokenPair, error) {
	now := time.Now()

	fp := cryptox.FingerprintToken(refreshOpaque)
	rt, err := s.Store.RefreshTokens().GetRefreshTokenByHash(ctx, fp)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}

	if rt.Revoked {
		return nil, ErrInvalidRefresh
	}
	if now.After(rt.ExpiresAt) {
		return nil, ErrInvalidRefresh
	}
	if rt.ClientID != clientID {
		return nil, ErrInvalidClient
	}

	// Both session bounds must hold before new tokens are minted.
	sess, err := s.Store.Sessions().GetSessionByID(ctx, rt.SessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}
	if !sess.Active(now, s.MaxInactivity) {
		// The session is gone; revoke its tokens so nothing lingers.
		_ = s.Store.RefreshTokens().RevokeSessionRefreshTokens(ctx, sess.ID)
		return nil, ErrSessionExpired
	}

	u, err := s.Store.Users().GetUserByID(ctx, rt.UserID)
	if err != nil {
		return nil, err
	}

	role, err := s.Store.Roles().GetRoleByID(ctx, u.RoleID)
	if err != nil {
		return nil, err
	}

	c, err := s.Store.Clients().GetClientByID(ctx, clientID)
	if err != nil {
		return nil, err
	}

	// Scope narrowing and widening are both allowed, bounded below.
	base := rt.Scopes
	if len(requestedScopes) > 0 {
		base = requestedScopes
	}

	effective := intersectThreeWay(base, c.Scopes, role.Scopes)
	if len(effective) == 0 {
		return nil, ErrInvalidScope
	}

	rt.AMR = append(rt.AMR, jwtx.AMRRefresh)
	amr := dedupe(rt.AMR)

	accessToken, err := s.signAccess(u, role.Name, clientID, rt.SessionID, effective, amr, now)
	if err != nil {
		return nil, err
	}

	newRefreshOpaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}

	newRT := domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    u.ID,
		ClientID:  c.ID,
		TokenHash: cryptox.FingerprintToken(newRefreshOpaque),
		SessionID: rt.SessionID, // session ID survives rotation
		Scopes:    effective,
		AMR:       amr,
		ExpiresAt: now.Add(s.RefreshTTL),
		Revoked:   false,
	}

	// Atomically: revoke old token, create the new one, slide the
	// session's inactivity window.
	if err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.RefreshTokens().RevokeRefreshToken(ctx, fp); err != nil {
			return err
		}
		if err := tx.RefreshTokens().CreateRefreshToken(ctx, newRT); err != nil {
			return err
		}
		return tx.Sessions().TouchSession(ctx, rt.SessionID)
	}); err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: newRefreshOpaque,
		TokenType:    "Bearer",
		ExpiresIn:    s.AccessTTL,
		Scope:        strings.Join(effective, " "),
	}, nil
}

// ExchangeClientCredentials implements the OAuth2 client_credentials grant
// for machine-to-machine callers (roster sync jobs, LMS importers). The
// client is the subject; no user context and no refresh token.
func (s *TokenService) ExchangeClientCredentials(
	ctx context.Context,
	clientID, clientSecret string,
	requestedScopes []string,
) (*domain.TokenPair, error) {
	now := time.Now()
	l := slogx.FromContext(ctx)

	c, err := s.Store.Clients().GetClientByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidClient
		}
		return nil, err
	}

	// Only confidential clients may use this grant.
	if c.SecretHash == "" {
		l.Warn("client_credentials grant attempted with public client", "client_id", clientID)
		return nil, ErrInvalidClient
	}

	if err := cryptox.VerifyPassword(clientSecret, c.SecretHash); err != nil {
		l.Info("client secret verification failed", "client_id", clientID)
		return nil, ErrInvalidClient
	}

	effective := requestedScopes
	if len(effective) == 0 {
		effective = c.Scopes
	} else {
		effective = intersectScopes(requestedScopes, c.Scopes)
	}
	if len(effective) == 0 {
		return nil, ErrInvalidScope
	}

	claims := jwtx.NewAccessClaims(
		c.ID,
		idx.New().String(),
		effective,
		[]string{jwtx.AMRClient},
		s.AccessTTL,
		s.Issuer,
		[]string{c.ID},
		"",     // no email for machine clients
		c.Name, // display name = client name, for visibility
		"",     // no platform role
		now,
	)

	accessToken, err := s.KeyManager.GetSigner().Sign(claims)
	if err != nil {
		l.Error("failed to sign access token", "error", err)
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   s.AccessTTL,
		Scope:       strings.Join(effective, " "),
	}, nil
}

// IssuePasskeyTokens mints a token pair for a login completed by WebAuthn
// assertion rather than the authorization code flow. The session already
// exists (created by the ceremony); scopes are what the client may grant
// intersected with the user's role.
func (s *TokenService) IssuePasskeyTokens(
	ctx context.Context,
	user domain.User,
	clientID, sessionID string,
	amr []string,
) (*domain.TokenPair, error) {
	now := time.Now()

	c, err := s.Store.Clients().GetClientByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidClient
		}
		return nil, err
	}

	role, err := s.Store.Roles().GetRoleByID(ctx, user.RoleID)
	if err != nil {
		return nil, err
	}

	effective := intersectScopes(c.Scopes, role.Scopes)
	if len(effective) == 0 {
		return nil, ErrInvalidScope
	}

	amr = dedupe(amr)
	accessToken, err := s.signAccess(user, role.Name, c.ID, sessionID, effective, amr, now)
	if err != nil {
		return nil, err
	}

	refreshOpaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}

	rt := domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    user.ID,
		ClientID:  c.ID,
		TokenHash: cryptox.FingerprintToken(refreshOpaque),
		SessionID: sessionID,
		Scopes:    effective,
		AMR:       amr,
		ExpiresAt: now.Add(s.RefreshTTL),
		Revoked:   false,
	}
	if err := s.Store.RefreshTokens().CreateRefreshToken(ctx, rt); err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshOpaque,
		TokenType:    "Bearer",
		ExpiresIn:    s.AccessTTL,
		Scope:        strings.Join(effective, " "),
	}, nil
}

// RevokeRefreshToken revokes a single refresh token (by its opaque value).
func (s *TokenService) RevokeRefreshToken(ctx context.Context, refreshOpaque string) error {
	fp := cryptox.FingerprintToken(refreshOpaque)
	return s.Store.RefreshTokens().RevokeRefreshToken(ctx, fp)
}

func (s *TokenService) signAccess(
	u domain.User,
	roleName string,
	clientID string,
	sessionID string,
	scopes []string,
	amr []string,
	now time.Time,
) (string, error) {
	claims := jwtx.NewAccessClaims(
		u.ID,
		sessionID,
		scopes,
		amr,
		s.AccessTTL,
		s.Issuer,
		[]string{clientID},
		u.Email,
		u.DisplayName,
		roleName,
		now,
	)
	return s.KeyManager.GetSigner().Sign(claims)
}

// intersectThreeWay performs a three-way intersection of scopes. This is
// the core guard against privilege escalation:
// - requested: what the caller is asking for
// - clientScopes: what the client is authorized to grant
// - roleScopes: what the user's role allows them to have.
func intersectThreeWay(requested, clientScopes, roleScopes []string) []string {
	step1 := intersectScopes(requested, clientScopes)
	return intersectScopes(step1, roleScopes)
}

func intersectScopes(a, b []string) []string {
	set := map[string]struct{}{}
	for _, s := range b {
		set[s] = struct{}{}
	}
	var out []string
	for _, s := range a {
		if _, ok := set[s]; ok {
			out = append(out, s)
		}
	}
	return dedupe(out)
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func verifyCodeVerifier(challenge, method, verifier string) bool {
	challenge = strings.TrimSpace(challenge)
	if challenge == "" {
		// No PKCE challenge stored; accept regardless of verifier.
		return true
	}

	verifier = strings.TrimSpace(verifier)
	if verifier == "" {
		return false
	}

	method = strings.TrimSpace(method)
	switch {
	case method == "" || strings.EqualFold(method, "plain"):
		return subtle.ConstantTimeCompare([]byte(challenge), []byte(verifier)) == 1
	case strings.EqualFold(method, "S256"):
		sum := sha256.Sum256([]byte(verifier))
		expected := base64.RawURLEncoding.EncodeToString(sum[:])
		return subtle.ConstantTimeCompare([]byte(challenge), []byte(expected)) == 1
	default:
		return false
	}
}

// normalizeBackupCode strips the formatting users paste in with their
// recovery codes (whitespace, hyphens, case).
func normalizeBackupCode(code string) string {
	code = strings.TrimSpace(code)
	code = strings.ReplaceAll(code, "-", "")
	code = strings.ReplaceAll(code, " ", "")
	return strings.ToLower(code)
}
