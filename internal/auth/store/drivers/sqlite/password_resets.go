package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/lumilearn/lumiauth/internal/auth/domain"
)

type passwordResetsRepo struct {
	db dbtx
}

func (r *passwordResetsRepo) CreatePasswordReset(ctx context.Context, reset domain.PasswordReset) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO password_resets (id, user_id, token_hash, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		reset.ID, reset.UserID, reset.TokenHash, reset.ExpiresAt, reset.CreatedAt,
	)
	return mapConstraint(err)
}

func (r *passwordResetsRepo) GetActivePasswordResetByTokenHash(ctx context.Context, hash string) (domain.PasswordReset, error) {
	var reset domain.PasswordReset
	var usedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, token_hash, expires_at, used_at, created_at
		FROM password_resets
		WHERE token_hash = ? AND used_at IS NULL AND expires_at > ?`,
		hash, time.Now().UTC(),
	).Scan(&reset.ID, &reset.UserID, &reset.TokenHash, &reset.ExpiresAt, &usedAt, &reset.CreatedAt)
	if err != nil {
		return domain.PasswordReset{}, mapNotFound(err)
	}

	reset.UsedAt = mapNullTimePtr(usedAt)
	return reset, nil
}

func (r *passwordResetsRepo) MarkPasswordResetUsed(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE password_resets SET used_at = ? WHERE id = ? AND used_at IS NULL`,
		time.Now().UTC(), id,
	)
	return err
}

func (r *passwordResetsRepo) DeleteExpiredPasswordResets(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM password_resets WHERE expires_at < ?`, time.Now().UTC())
	return err
}
