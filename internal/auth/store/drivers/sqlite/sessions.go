package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/lumilearn/lumiauth/internal/auth/domain"
)

type sessionsRepo struct {
	db dbtx
}

const sessionColumns = `id, user_id, client_id, ip_address, user_agent, created_at, last_activity_at, expires_at, revoked_at`

func scanSession(row *sql.Row) (domain.Session, error) {
	var s domain.Session
	var revokedAt sql.NullTime

	err := row.Scan(&s.ID, &s.UserID, &s.ClientID, &s.IPAddress, &s.UserAgent,
		&s.CreatedAt, &s.LastActivityAt, &s.ExpiresAt, &revokedAt)
	if err != nil {
		return domain.Session{}, mapNotFound(err)
	}

	s.RevokedAt = mapNullTimePtr(revokedAt)
	return s, nil
}

func (r *sessionsRepo) CreateSession(ctx context.Context, s domain.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, client_id, ip_address, user_agent, created_at, last_activity_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.ClientID, s.IPAddress, s.UserAgent,
		s.CreatedAt, s.LastActivityAt, s.ExpiresAt,
	)
	return mapConstraint(err)
}

func (r *sessionsRepo) GetSessionByID(ctx context.Context, id string) (domain.Session, error) {
	return scanSession(r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id))
}

func (r *sessionsRepo) ListUserSessions(ctx context.Context, userID string) ([]domain.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE user_id = ? AND revoked_at IS NULL
		 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Session
	for rows.Next() {
		var s domain.Session
		var revokedAt sql.NullTime
		if err := rows.Scan(&s.ID, &s.UserID, &s.ClientID, &s.IPAddress, &s.UserAgent,
			&s.CreatedAt, &s.LastActivityAt, &s.ExpiresAt, &revokedAt); err != nil {
			return nil, err
		}
		s.RevokedAt = mapNullTimePtr(revokedAt)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *sessionsRepo) TouchSession(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET last_activity_at = ? WHERE id = ? AND revoked_at IS NULL`,
		time.Now().UTC(), id,
	)
	return err
}

func (r *sessionsRepo) RevokeSession(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL`,
		time.Now().UTC(), id,
	)
	return err
}

func (r *sessionsRepo) RevokeAllUserSessions(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET revoked_at = ? WHERE user_id = ? AND revoked_at IS NULL`,
		time.Now().UTC(), userID,
	)
	return err
}

func (r *sessionsRepo) DeleteExpiredSessions(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at < ?`, time.Now().UTC())
	return err
}
