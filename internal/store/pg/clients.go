package pg

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bremersee/authman/internal/domain/repository"
)

type clientRegistry struct{ pool *pgxpool.Pool }

func (r *clientRegistry) FindByClientID(ctx context.Context, clientID string) (*repository.ClientRecord, error) {
	const query = `
		SELECT client_id, secret, secret_encrypted, grant_types, scopes, auto_approve_scopes,
		       redirect_uris, resource_ids, access_token_validity, refresh_token_validity, additional
		FROM oauth_client WHERE client_id = $1
	`
	var c repository.ClientRecord
	err := r.pool.QueryRow(ctx, query, clientID).Scan(
		&c.ClientID, &c.Secret, &c.SecretEncrypted, &c.GrantTypes, &c.Scopes, &c.AutoApproveScopes,
		&c.RedirectURIs, &c.ResourceIDs, &c.AccessTokenValidity, &c.RefreshTokenValidity, &c.Additional,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *clientRegistry) FindGrantedAuthoritiesByUserName(ctx context.Context, name string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT authority FROM authority_grant WHERE name = $1 ORDER BY authority`, name)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// Save registers or replaces a client. Used by seeding and tests.
func (r *clientRegistry) Save(ctx context.Context, c repository.ClientRecord) error {
	const query = `
		INSERT INTO oauth_client (client_id, secret, secret_encrypted, grant_types, scopes, auto_approve_scopes,
		                          redirect_uris, resource_ids, access_token_validity, refresh_token_validity, additional)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (client_id) DO UPDATE SET
			secret = EXCLUDED.secret,
			secret_encrypted = EXCLUDED.secret_encrypted,
			grant_types = EXCLUDED.grant_types,
			scopes = EXCLUDED.scopes,
			auto_approve_scopes = EXCLUDED.auto_approve_scopes,
			redirect_uris = EXCLUDED.redirect_uris,
			resource_ids = EXCLUDED.resource_ids,
			access_token_validity = EXCLUDED.access_token_validity,
			refresh_token_validity = EXCLUDED.refresh_token_validity,
			additional = EXCLUDED.additional,
			updated_at = NOW()
	`
	additional := c.Additional
	if additional == nil {
		additional = map[string]any{}
	}
	_, err := r.pool.Exec(ctx, query,
		c.ClientID, c.Secret, c.SecretEncrypted, nonNil(c.GrantTypes), nonNil(c.Scopes), nonNil(c.AutoApproveScopes),
		nonNil(c.RedirectURIs), nonNil(c.ResourceIDs), c.AccessTokenValidity, c.RefreshTokenValidity, additional,
	)
	return err
}

// Grant adds authorities to name.
func (r *clientRegistry) Grant(ctx context.Context, name string, authorities ...string) error {
	if len(authorities) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, a := range authorities {
		batch.Queue(`INSERT INTO authority_grant (name, authority) VALUES ($1, $2) ON CONFLICT DO NOTHING`, name, a)
	}
	return r.pool.SendBatch(ctx, batch).Close()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
