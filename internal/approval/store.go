// Package approval stores user consent per (user, client, scope) and purges
// expired consent on a schedule.
package approval

import (
	"context"
	"fmt"
	"time"

	"github.com/bremersee/authman/internal/domain/repository"
	"github.com/bremersee/authman/internal/metrics"
	"github.com/bremersee/authman/internal/observability/logger"
)

// DefaultValidity is the expiry applied to approvals that carry none.
const DefaultValidity = 30 * 24 * time.Hour

// Approval is the representation handed to and returned from callers.
type Approval struct {
	UserID        string                    `json:"userId"`
	ClientID      string                    `json:"clientId"`
	Scope         string                    `json:"scope"`
	Status        repository.ApprovalStatus `json:"status"`
	ExpiresAt     time.Time                 `json:"expiresAt"`
	LastUpdatedAt time.Time                 `json:"lastUpdatedAt"`
}

// IsActive reports whether the approval grants the scope at now.
func (a Approval) IsActive(now time.Time) bool {
	return a.Status == repository.ApprovalApproved && now.Before(a.ExpiresAt)
}

func (a Approval) key() repository.ApprovalKey {
	return repository.ApprovalKey{UserID: a.UserID, ClientID: a.ClientID, Scope: a.Scope}
}

// Config tunes a Store.
type Config struct {
	// HandleRevocationsAsExpiry keeps revoked rows with expiry set to now
	// instead of deleting them.
	HandleRevocationsAsExpiry bool
	Validity                  time.Duration
}

type Store struct {
	repo repository.ApprovalRepository
	cfg  Config
	now  func() time.Time
}

type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(repo repository.ApprovalRepository, cfg Config, opts ...Option) *Store {
	if cfg.Validity <= 0 {
		cfg.Validity = DefaultValidity
	}
	s := &Store{repo: repo, cfg: cfg, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// AddApprovals upserts every approval by its natural key. Status defaults to
// APPROVED, last-updated to now and expiry to now plus the configured validity.
// A status other than APPROVED or DENIED is rejected with ErrInvalidInput.
// The first persistence error stops the batch; earlier rows stay written.
func (s *Store) AddApprovals(ctx context.Context, approvals []Approval) error {
	now := s.now()
	for _, a := range approvals {
		row := repository.Approval{
			UserID:        a.UserID,
			ClientID:      a.ClientID,
			Scope:         a.Scope,
			Status:        a.Status,
			ExpiresAt:     a.ExpiresAt,
			LastUpdatedAt: a.LastUpdatedAt,
		}
		switch row.Status {
		case "":
			row.Status = repository.ApprovalApproved
		case repository.ApprovalApproved, repository.ApprovalDenied:
		default:
			return fmt.Errorf("approval status %q: %w", row.Status, repository.ErrInvalidInput)
		}
		if row.LastUpdatedAt.IsZero() {
			row.LastUpdatedAt = now
		}
		if row.ExpiresAt.IsZero() {
			row.ExpiresAt = now.Add(s.cfg.Validity)
		}
		if err := s.repo.Upsert(ctx, row); err != nil {
			return err
		}
	}
	logger.From(ctx).Debug("approvals added", logger.Component("approval"), logger.Count(len(approvals)))
	return nil
}

// RevokeApprovals expires or deletes the matching rows. It reports whether at
// least one row was affected.
func (s *Store) RevokeApprovals(ctx context.Context, approvals []Approval) (bool, error) {
	now := s.now()
	var affected int64
	for _, a := range approvals {
		var (
			n   int64
			err error
		)
		if s.cfg.HandleRevocationsAsExpiry {
			n, err = s.repo.Expire(ctx, a.key(), now)
		} else {
			n, err = s.repo.Delete(ctx, a.key())
		}
		if err != nil {
			return affected > 0, err
		}
		affected += n
	}
	logger.From(ctx).Debug("approvals revoked",
		logger.Component("approval"),
		logger.Count(int(affected)),
		logger.Bool("as_expiry", s.cfg.HandleRevocationsAsExpiry),
	)
	return affected > 0, nil
}

// GetApprovals lists all approvals of userID for clientID.
func (s *Store) GetApprovals(ctx context.Context, userID, clientID string) ([]Approval, error) {
	return s.find(ctx, userID, clientID, "")
}

// GetApproval looks up a single approval, including revoked-as-expired rows
// that have not been purged yet.
func (s *Store) GetApproval(ctx context.Context, userID, clientID, scope string) (*Approval, error) {
	out, err := s.find(ctx, userID, clientID, scope)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, repository.ErrNotFound
	}
	return &out[0], nil
}

func (s *Store) find(ctx context.Context, userID, clientID, scope string) ([]Approval, error) {
	rows, err := s.repo.Find(ctx, userID, clientID, scope)
	if err != nil {
		return nil, err
	}
	out := make([]Approval, 0, len(rows))
	for _, r := range rows {
		out = append(out, Approval{
			UserID:        r.UserID,
			ClientID:      r.ClientID,
			Scope:         r.Scope,
			Status:        r.Status,
			ExpiresAt:     r.ExpiresAt,
			LastUpdatedAt: r.LastUpdatedAt,
		})
	}
	return out, nil
}

// PurgeExpiredApprovals deletes every approval whose expiry lies before now.
// Rows written after the cutoff are not touched, so it is safe to run while
// approvals are added or revoked.
func (s *Store) PurgeExpiredApprovals(ctx context.Context) (int64, error) {
	start := time.Now()
	n, err := s.repo.DeleteExpiredBefore(ctx, s.now())
	metrics.ApprovalPurgeDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return 0, err
	}
	metrics.ApprovalsPurged.Add(float64(n))
	return n, nil
}
