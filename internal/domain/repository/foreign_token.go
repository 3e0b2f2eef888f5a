package repository

import (
	"context"
	"time"
)

// ForeignToken links a foreign provider account to a local user and keeps the
// last tokens obtained from the provider.
type ForeignToken struct {
	Provider        string
	UserName        *string // local user, nil until linked
	ForeignUserName string
	Scopes          []string
	AccessToken     string
	TokenType       string
	RefreshToken    *string
	ExpiresAt       *time.Time
}

// ForeignTokenRepository stores foreign tokens keyed by (provider, foreign user name).
type ForeignTokenRepository interface {
	// Find returns ErrNotFound when no token exists for the pair.
	Find(ctx context.Context, provider, foreignUserName string) (*ForeignToken, error)

	// Upsert inserts or updates in place the token with the same (provider, foreign user name).
	Upsert(ctx context.Context, t ForeignToken) error
}
