package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bremersee/authman/internal/domain/repository"
)

type ApprovalRepo struct {
	mu   sync.RWMutex
	rows map[repository.ApprovalKey]repository.Approval
}

func NewApprovalRepo() *ApprovalRepo {
	return &ApprovalRepo{rows: make(map[repository.ApprovalKey]repository.Approval)}
}

func (r *ApprovalRepo) Upsert(_ context.Context, a repository.Approval) error {
	if a.UserID == "" || a.ClientID == "" || a.Scope == "" {
		return repository.ErrInvalidInput
	}
	r.mu.Lock()
	r.rows[a.Key()] = a
	r.mu.Unlock()
	return nil
}

func (r *ApprovalRepo) Delete(_ context.Context, key repository.ApprovalKey) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[key]; !ok {
		return 0, nil
	}
	delete(r.rows, key)
	return 1, nil
}

func (r *ApprovalRepo) Expire(_ context.Context, key repository.ApprovalKey, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.rows[key]
	if !ok {
		return 0, nil
	}
	a.ExpiresAt = at
	r.rows[key] = a
	return 1, nil
}

func (r *ApprovalRepo) DeleteExpiredBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, a := range r.rows {
		if a.ExpiresAt.Before(cutoff) {
			delete(r.rows, k)
			n++
		}
	}
	return n, nil
}

func (r *ApprovalRepo) Find(_ context.Context, userID, clientID, scope string) ([]repository.Approval, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []repository.Approval
	for k, a := range r.rows {
		if k.UserID != userID || k.ClientID != clientID {
			continue
		}
		if scope != "" && k.Scope != scope {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Scope < out[j].Scope })
	return out, nil
}
