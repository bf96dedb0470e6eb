package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/lumilearn/lumiauth/internal/auth/domain"
	"github.com/lumilearn/lumiauth/internal/auth/store"
)

type backupCodesRepo struct {
	db dbtx
}

func (r *backupCodesRepo) CreateBackupCode(ctx context.Context, c domain.BackupCode) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO backup_codes (id, user_id, code_hash, created_at)
		VALUES (?, ?, ?, ?)`,
		c.ID, c.UserID, c.CodeHash, c.CreatedAt,
	)
	return mapConstraint(err)
}

func (r *backupCodesRepo) GetActiveBackupCodeByHash(ctx context.Context, userID, codeHash string) (domain.BackupCode, error) {
	var c domain.BackupCode
	var usedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, code_hash, used_at, created_at
		FROM backup_codes WHERE user_id = ? AND code_hash = ? AND used_at IS NULL`,
		userID, codeHash,
	).Scan(&c.ID, &c.UserID, &c.CodeHash, &usedAt, &c.CreatedAt)
	if err != nil {
		return domain.BackupCode{}, mapNotFound(err)
	}

	c.UsedAt = mapNullTimePtr(usedAt)
	return c, nil
}

func (r *backupCodesRepo) MarkBackupCodeUsed(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE backup_codes SET used_at = ? WHERE id = ? AND used_at IS NULL`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	// Zero rows means the code was already consumed.
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *backupCodesRepo) DeleteAllBackupCodes(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM backup_codes WHERE user_id = ?`, userID)
	return err
}

func (r *backupCodesRepo) CountActiveBackupCodes(ctx context.Context, userID string) (int, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM backup_codes WHERE user_id = ? AND used_at IS NULL`, userID,
	).Scan(&count)
	if err != nil {
		return 0, err
	}
	return int(count), nil
}
