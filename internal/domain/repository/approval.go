package repository

import (
	"context"
	"time"
)

// ApprovalStatus is the user's decision for a scope.
type ApprovalStatus string

const (
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalDenied   ApprovalStatus = "DENIED"
)

// ApprovalKey is the natural key of an approval.
type ApprovalKey struct {
	UserID   string
	ClientID string
	Scope    string
}

// Approval is the persisted consent of a user for one scope of one client.
type Approval struct {
	UserID        string
	ClientID      string
	Scope         string
	Status        ApprovalStatus
	ExpiresAt     time.Time
	LastUpdatedAt time.Time
}

// Key returns the natural key.
func (a Approval) Key() ApprovalKey {
	return ApprovalKey{UserID: a.UserID, ClientID: a.ClientID, Scope: a.Scope}
}

// ApprovalRepository persists approvals keyed by (user, client, scope).
type ApprovalRepository interface {
	// Upsert inserts the approval or updates status, expiry and last-updated of
	// the row with the same natural key.
	Upsert(ctx context.Context, a Approval) error

	// Delete removes the row with the given key. Returns the number of rows removed.
	Delete(ctx context.Context, key ApprovalKey) (int64, error)

	// Expire sets expires_at of the row with the given key. Returns the number of rows updated.
	Expire(ctx context.Context, key ApprovalKey, at time.Time) (int64, error)

	// DeleteExpiredBefore removes every row whose expiry is before cutoff.
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Find lists approvals of a user for a client. An empty scope matches all scopes.
	Find(ctx context.Context, userID, clientID, scope string) ([]Approval, error)
}
