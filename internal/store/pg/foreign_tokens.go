package pg

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bremersee/authman/internal/domain/repository"
)

type foreignTokenRepo struct{ pool *pgxpool.Pool }

func (r *foreignTokenRepo) Find(ctx context.Context, provider, foreignUserName string) (*repository.ForeignToken, error) {
	const query = `
		SELECT provider, foreign_user_name, user_name, scopes, access_token, token_type, refresh_token, expires_at
		FROM foreign_token WHERE provider = $1 AND foreign_user_name = $2
	`
	var t repository.ForeignToken
	err := r.pool.QueryRow(ctx, query, provider, foreignUserName).Scan(
		&t.Provider, &t.ForeignUserName, &t.UserName, &t.Scopes, &t.AccessToken, &t.TokenType, &t.RefreshToken, &t.ExpiresAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Upsert updates the row in place; an existing local user link and refresh
// token survive when t carries none.
func (r *foreignTokenRepo) Upsert(ctx context.Context, t repository.ForeignToken) error {
	if t.Provider == "" || t.ForeignUserName == "" {
		return repository.ErrInvalidInput
	}
	const query = `
		INSERT INTO foreign_token (provider, foreign_user_name, user_name, scopes, access_token, token_type, refresh_token, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (provider, foreign_user_name) DO UPDATE SET
			user_name = COALESCE(EXCLUDED.user_name, foreign_token.user_name),
			scopes = EXCLUDED.scopes,
			access_token = EXCLUDED.access_token,
			token_type = EXCLUDED.token_type,
			refresh_token = COALESCE(EXCLUDED.refresh_token, foreign_token.refresh_token),
			expires_at = EXCLUDED.expires_at,
			updated_at = NOW()
	`
	_, err := r.pool.Exec(ctx, query,
		t.Provider, t.ForeignUserName, t.UserName, nonNil(t.Scopes), t.AccessToken, t.TokenType, t.RefreshToken, t.ExpiresAt,
	)
	return err
}
