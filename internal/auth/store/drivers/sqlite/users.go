package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/lumilearn/lumiauth/internal/auth/domain"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `id, email, display_name, password_hash, role_id, locale, mfa_enabled, mfa_secret, created_at, updated_at`

func scanUser(row *sql.Row) (domain.User, error) {
	var u domain.User
	var mfaEnabled sql.NullTime
	var mfaSecret sql.NullString

	err := row.Scan(
		&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.RoleID,
		&u.Locale, &mfaEnabled, &mfaSecret, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	u.MFAEnabled = mapNullTimePtr(mfaEnabled)
	u.MFASecret = mapNullStringPtr(mfaSecret)
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, display_name, password_hash, role_id, locale, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.DisplayName, u.PasswordHash, u.RoleID, u.Locale, now, now,
	)
	return mapConstraint(err)
}

func (r *usersRepo) UpdateProfile(ctx context.Context, userID, displayName, locale string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET display_name = ?, locale = ?, updated_at = ? WHERE id = ?`,
		displayName, locale, time.Now().UTC(), userID,
	)
	return err
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID string, newHash string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		newHash, time.Now().UTC(), userID,
	)
	return err
}

func (r *usersRepo) DeleteUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	return err
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return false, err
	}
	return count == 0, nil
}

func (r *usersRepo) UpdateMFASecret(ctx context.Context, userID string, secret string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET mfa_secret = ?, updated_at = ? WHERE id = ?`,
		mapStringNull(secret), time.Now().UTC(), userID,
	)
	return err
}

func (r *usersRepo) EnableMFA(ctx context.Context, userID string) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET mfa_enabled = ?, updated_at = ? WHERE id = ?`,
		now, now, userID,
	)
	return err
}

func (r *usersRepo) DisableMFA(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET mfa_enabled = NULL, mfa_secret = NULL, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), userID,
	)
	return err
}

func (r *usersRepo) GetMFAInfo(ctx context.Context, userID string) (*string, *string, error) {
	var mfaEnabled sql.NullTime
	var mfaSecret sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT mfa_enabled, mfa_secret FROM users WHERE id = ?`, userID,
	).Scan(&mfaEnabled, &mfaSecret)
	if err != nil {
		return nil, nil, mapNotFound(err)
	}

	var enabledStr *string
	if mfaEnabled.Valid {
		str := mfaEnabled.Time.Format(time.RFC3339)
		enabledStr = &str
	}
	return enabledStr, mapNullStringPtr(mfaSecret), nil
}
