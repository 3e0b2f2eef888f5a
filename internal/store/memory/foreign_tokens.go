package memory

import (
	"context"
	"sync"

	"github.com/bremersee/authman/internal/domain/repository"
)

type tokenKey struct {
	provider        string
	foreignUserName string
}

type ForeignTokenRepo struct {
	mu   sync.RWMutex
	rows map[tokenKey]repository.ForeignToken
}

func NewForeignTokenRepo() *ForeignTokenRepo {
	return &ForeignTokenRepo{rows: make(map[tokenKey]repository.ForeignToken)}
}

func (r *ForeignTokenRepo) Find(_ context.Context, provider, foreignUserName string) (*repository.ForeignToken, error) {
	r.mu.RLock()
	t, ok := r.rows[tokenKey{provider, foreignUserName}]
	r.mu.RUnlock()
	if !ok {
		return nil, repository.ErrNotFound
	}
	t = cloneToken(t)
	return &t, nil
}

// Upsert keeps an existing local user link and refresh token when t carries
// none.
func (r *ForeignTokenRepo) Upsert(_ context.Context, t repository.ForeignToken) error {
	if t.Provider == "" || t.ForeignUserName == "" {
		return repository.ErrInvalidInput
	}
	k := tokenKey{t.Provider, t.ForeignUserName}
	t = cloneToken(t)

	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.rows[k]; ok {
		if t.UserName == nil {
			t.UserName = prev.UserName
		}
		if t.RefreshToken == nil {
			t.RefreshToken = prev.RefreshToken
		}
	}
	r.rows[k] = t
	return nil
}

// cloneToken detaches t from the caller's slices and pointers.
func cloneToken(t repository.ForeignToken) repository.ForeignToken {
	t.Scopes = cloneStrings(t.Scopes)
	if t.UserName != nil {
		v := *t.UserName
		t.UserName = &v
	}
	if t.RefreshToken != nil {
		v := *t.RefreshToken
		t.RefreshToken = &v
	}
	if t.ExpiresAt != nil {
		v := *t.ExpiresAt
		t.ExpiresAt = &v
	}
	return t
}
