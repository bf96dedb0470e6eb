package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/lumilearn/lumiauth/internal/auth/domain"
)

type credentialsRepo struct {
	db dbtx
}

const credentialColumns = `id, user_id, name, credential_id, credential_json, sign_count, created_at, last_used_at`

func (r *credentialsRepo) CreateCredential(ctx context.Context, c domain.WebAuthnCredential) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO webauthn_credentials (id, user_id, name, credential_id, credential_json, sign_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Name, c.CredentialID, c.CredentialJSON, c.SignCount, c.CreatedAt,
	)
	return mapConstraint(err)
}

func (r *credentialsRepo) ListUserCredentials(ctx context.Context, userID string) ([]domain.WebAuthnCredential, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+credentialColumns+` FROM webauthn_credentials
		 WHERE user_id = ? ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.WebAuthnCredential
	for rows.Next() {
		var c domain.WebAuthnCredential
		var lastUsedAt sql.NullTime
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.CredentialID,
			&c.CredentialJSON, &c.SignCount, &c.CreatedAt, &lastUsedAt); err != nil {
			return nil, err
		}
		c.LastUsedAt = mapNullTimePtr(lastUsedAt)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *credentialsRepo) GetCredentialByCredentialID(ctx context.Context, credentialID []byte) (domain.WebAuthnCredential, error) {
	var c domain.WebAuthnCredential
	var lastUsedAt sql.NullTime

	err := r.db.QueryRowContext(ctx,
		`SELECT `+credentialColumns+` FROM webauthn_credentials WHERE credential_id = ?`,
		credentialID,
	).Scan(&c.ID, &c.UserID, &c.Name, &c.CredentialID,
		&c.CredentialJSON, &c.SignCount, &c.CreatedAt, &lastUsedAt)
	if err != nil {
		return domain.WebAuthnCredential{}, mapNotFound(err)
	}

	c.LastUsedAt = mapNullTimePtr(lastUsedAt)
	return c, nil
}

func (r *credentialsRepo) UpdateCredentialSignCount(ctx context.Context, id string, signCount uint32) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE webauthn_credentials SET sign_count = ?, last_used_at = ? WHERE id = ?`,
		signCount, time.Now().UTC(), id,
	)
	return err
}

func (r *credentialsRepo) DeleteCredential(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM webauthn_credentials WHERE id = ?`, id)
	return err
}

func (r *credentialsRepo) DeleteAllUserCredentials(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM webauthn_credentials WHERE user_id = ?`, userID)
	return err
}
