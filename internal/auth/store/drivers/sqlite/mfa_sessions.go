package sqlite

import (
	"context"
	"time"

	"github.com/lumilearn/lumiauth/internal/auth/domain"
)

type mfaSessionsRepo struct {
	db dbtx
}

func (r *mfaSessionsRepo) CreateMFASession(ctx context.Context, s domain.MFASession) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO mfa_sessions (id, user_id, client_id, scopes, amr, session_id, attempts, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.ClientID, joinFields(s.Scopes), joinFields(s.AMR),
		s.SessionID, s.Attempts, s.CreatedAt, s.ExpiresAt,
	)
	return mapConstraint(err)
}

func (r *mfaSessionsRepo) GetMFASession(ctx context.Context, mfaToken string) (domain.MFASession, error) {
	var s domain.MFASession
	var scopes, amr string

	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, client_id, scopes, amr, session_id, attempts, created_at, expires_at
		FROM mfa_sessions WHERE id = ? AND expires_at > ?`,
		mfaToken, time.Now().UTC(),
	).Scan(&s.ID, &s.UserID, &s.ClientID, &scopes, &amr,
		&s.SessionID, &s.Attempts, &s.CreatedAt, &s.ExpiresAt)
	if err != nil {
		return domain.MFASession{}, mapNotFound(err)
	}

	s.Scopes = splitAndFilter(scopes)
	s.AMR = splitAndFilter(amr)
	return s, nil
}

func (r *mfaSessionsRepo) IncrementMFASessionAttempts(ctx context.Context, mfaToken string) (domain.MFASession, error) {
	if _, err := r.db.ExecContext(ctx, `
		UPDATE mfa_sessions SET attempts = attempts + 1 WHERE id = ?`, mfaToken); err != nil {
		return domain.MFASession{}, err
	}
	return r.GetMFASession(ctx, mfaToken)
}

func (r *mfaSessionsRepo) DeleteMFASession(ctx context.Context, mfaToken string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM mfa_sessions WHERE id = ?`, mfaToken)
	return err
}

func (r *mfaSessionsRepo) DeleteExpiredMFASessions(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM mfa_sessions WHERE expires_at < ?`, time.Now().UTC())
	return err
}
