package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/lumilearn/lumiauth/internal/auth/domain"
)

type authorizationCodesRepo struct {
	db dbtx
}

func (r *authorizationCodesRepo) CreateAuthorizationCode(ctx context.Context, code domain.AuthorizationCode) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO authorization_codes
			(id, user_id, client_id, code_hash, redirect_uri, scopes, session_id, amr,
			 code_challenge, code_challenge_method, mfa_session_id, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		code.ID, code.UserID, code.ClientID, code.CodeHash, code.RedirectURI,
		joinFields(code.Scopes), code.SessionID, joinFields(code.AMR),
		code.CodeChallenge, code.CodeChallengeMethod, mapOptionalString(code.MFASessionID),
		code.ExpiresAt, code.CreatedAt,
	)
	return mapConstraint(err)
}

func (r *authorizationCodesRepo) GetAuthorizationCodeByHash(ctx context.Context, hash string) (domain.AuthorizationCode, error) {
	var c domain.AuthorizationCode
	var scopes, amr string
	var mfaSessionID sql.NullString
	var usedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, client_id, code_hash, redirect_uri, scopes, session_id, amr,
		       code_challenge, code_challenge_method, mfa_session_id, expires_at, used_at, created_at
		FROM authorization_codes WHERE code_hash = ?`, hash,
	).Scan(&c.ID, &c.UserID, &c.ClientID, &c.CodeHash, &c.RedirectURI,
		&scopes, &c.SessionID, &amr, &c.CodeChallenge, &c.CodeChallengeMethod,
		&mfaSessionID, &c.ExpiresAt, &usedAt, &c.CreatedAt)
	if err != nil {
		return domain.AuthorizationCode{}, mapNotFound(err)
	}

	c.Scopes = splitAndFilter(scopes)
	c.AMR = splitAndFilter(amr)
	c.MFASessionID = mapNullStringPtr(mfaSessionID)
	c.UsedAt = mapNullTimePtr(usedAt)
	return c, nil
}

func (r *authorizationCodesRepo) MarkAuthorizationCodeUsed(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE authorization_codes SET used_at = ? WHERE id = ? AND used_at IS NULL`,
		time.Now().UTC(), id,
	)
	return err
}

func (r *authorizationCodesRepo) DeleteExpiredAuthorizationCodes(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM authorization_codes WHERE expires_at < ?`, time.Now().UTC())
	return err
}
