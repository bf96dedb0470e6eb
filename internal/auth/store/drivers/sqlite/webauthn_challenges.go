package sqlite

import (
	"context"
	"time"

	"github.com/lumilearn/lumiauth/internal/auth/domain"
)

type webauthnChallengesRepo struct {
	db dbtx
}

func (r *webauthnChallengesRepo) CreateWebAuthnChallenge(ctx context.Context, c domain.WebAuthnChallenge) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO webauthn_challenges (id, user_id, ceremony, session_json, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Ceremony, c.SessionJSON, c.ExpiresAt, c.CreatedAt,
	)
	return mapConstraint(err)
}

func (r *webauthnChallengesRepo) GetWebAuthnChallenge(ctx context.Context, id string) (domain.WebAuthnChallenge, error) {
	var c domain.WebAuthnChallenge

	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, ceremony, session_json, expires_at, created_at
		FROM webauthn_challenges WHERE id = ? AND expires_at > ?`,
		id, time.Now().UTC(),
	).Scan(&c.ID, &c.UserID, &c.Ceremony, &c.SessionJSON, &c.ExpiresAt, &c.CreatedAt)
	if err != nil {
		return domain.WebAuthnChallenge{}, mapNotFound(err)
	}
	return c, nil
}

func (r *webauthnChallengesRepo) DeleteWebAuthnChallenge(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM webauthn_challenges WHERE id = ?`, id)
	return err
}

func (r *webauthnChallengesRepo) DeleteExpiredWebAuthnChallenges(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM webauthn_challenges WHERE expires_at < ?`, time.Now().UTC())
	return err
}
