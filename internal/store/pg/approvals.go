package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bremersee/authman/internal/domain/repository"
)

type approvalRepo struct{ pool *pgxpool.Pool }

func (r *approvalRepo) Upsert(ctx context.Context, a repository.Approval) error {
	if a.UserID == "" || a.ClientID == "" || a.Scope == "" {
		return repository.ErrInvalidInput
	}
	const query = `
		INSERT INTO oauth_approval (user_id, client_id, scope, status, expires_at, last_updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, client_id, scope) DO UPDATE SET
			status = EXCLUDED.status,
			expires_at = EXCLUDED.expires_at,
			last_updated_at = EXCLUDED.last_updated_at
	`
	_, err := r.pool.Exec(ctx, query, a.UserID, a.ClientID, a.Scope, string(a.Status), a.ExpiresAt, a.LastUpdatedAt)
	return err
}

func (r *approvalRepo) Delete(ctx context.Context, key repository.ApprovalKey) (int64, error) {
	const query = `DELETE FROM oauth_approval WHERE user_id = $1 AND client_id = $2 AND scope = $3`
	tag, err := r.pool.Exec(ctx, query, key.UserID, key.ClientID, key.Scope)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *approvalRepo) Expire(ctx context.Context, key repository.ApprovalKey, at time.Time) (int64, error) {
	const query = `
		UPDATE oauth_approval SET expires_at = $4
		WHERE user_id = $1 AND client_id = $2 AND scope = $3
	`
	tag, err := r.pool.Exec(ctx, query, key.UserID, key.ClientID, key.Scope, at)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *approvalRepo) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM oauth_approval WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired approvals: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *approvalRepo) Find(ctx context.Context, userID, clientID, scope string) ([]repository.Approval, error) {
	const query = `
		SELECT user_id, client_id, scope, status, expires_at, last_updated_at
		FROM oauth_approval
		WHERE user_id = $1 AND client_id = $2 AND ($3 = '' OR scope = $3)
		ORDER BY scope
	`
	rows, err := r.pool.Query(ctx, query, userID, clientID, scope)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.Approval
	for rows.Next() {
		var (
			a      repository.Approval
			status string
		)
		if err := rows.Scan(&a.UserID, &a.ClientID, &a.Scope, &status, &a.ExpiresAt, &a.LastUpdatedAt); err != nil {
			return nil, err
		}
		a.Status = repository.ApprovalStatus(status)
		out = append(out, a)
	}
	return out, rows.Err()
}
