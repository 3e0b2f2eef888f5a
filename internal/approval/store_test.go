package approval

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bremersee/authman/internal/domain/repository"
	"github.com/bremersee/authman/internal/store/memory"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newStore(t *testing.T, asExpiry bool) (*Store, *clock) {
	t.Helper()
	clk := &clock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := NewStore(memory.NewApprovalRepo(), Config{
		HandleRevocationsAsExpiry: asExpiry,
		Validity:                  time.Hour,
	}, WithClock(clk.Now))
	return s, clk
}

func TestAddApprovals_DefaultsAndUpsert(t *testing.T) {
	ctx := context.Background()
	s, clk := newStore(t, false)

	require.NoError(t, s.AddApprovals(ctx, []Approval{{UserID: "u1", ClientID: "c1", Scope: "read"}}))

	got, err := s.GetApprovals(ctx, "u1", "c1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "read", got[0].Scope)
	require.Equal(t, repository.ApprovalApproved, got[0].Status)
	require.Equal(t, clk.Now(), got[0].LastUpdatedAt)
	require.Equal(t, clk.Now().Add(time.Hour), got[0].ExpiresAt)

	clk.Advance(time.Minute)
	require.NoError(t, s.AddApprovals(ctx, []Approval{{UserID: "u1", ClientID: "c1", Scope: "read", Status: repository.ApprovalDenied}}))

	got, err = s.GetApprovals(ctx, "u1", "c1")
	require.NoError(t, err)
	require.Len(t, got, 1, "same key must update, not duplicate")
	require.Equal(t, repository.ApprovalDenied, got[0].Status)
	require.Equal(t, clk.Now(), got[0].LastUpdatedAt)
}

func TestRevokeApprovals_AsExpiry(t *testing.T) {
	ctx := context.Background()
	s, clk := newStore(t, true)
	a := Approval{UserID: "u1", ClientID: "c1", Scope: "read"}
	require.NoError(t, s.AddApprovals(ctx, []Approval{a}))

	clk.Advance(time.Minute)
	ok, err := s.RevokeApprovals(ctx, []Approval{a})
	require.NoError(t, err)
	require.True(t, ok)

	got, err := s.GetApproval(ctx, "u1", "c1", "read")
	require.NoError(t, err)
	require.Equal(t, clk.Now(), got.ExpiresAt)
	require.False(t, got.IsActive(clk.Now()))

	clk.Advance(time.Millisecond)
	n, err := s.PurgeExpiredApprovals(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	_, err = s.GetApproval(ctx, "u1", "c1", "read")
	require.True(t, repository.IsNotFound(err))
}

func TestRevokeApprovals_HardDelete(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t, false)
	a := Approval{UserID: "u1", ClientID: "c1", Scope: "read"}
	require.NoError(t, s.AddApprovals(ctx, []Approval{a}))

	ok, err := s.RevokeApprovals(ctx, []Approval{a})
	require.NoError(t, err)
	require.True(t, ok)

	got, err := s.GetApprovals(ctx, "u1", "c1")
	require.NoError(t, err)
	require.Empty(t, got)

	ok, err = s.RevokeApprovals(ctx, []Approval{a})
	require.NoError(t, err)
	require.False(t, ok, "nothing left to revoke")
}

func TestPurgeExpiredApprovals_KeepsLiveRows(t *testing.T) {
	ctx := context.Background()
	s, clk := newStore(t, false)
	require.NoError(t, s.AddApprovals(ctx, []Approval{
		{UserID: "u1", ClientID: "c1", Scope: "old", ExpiresAt: clk.Now().Add(-time.Second)},
		{UserID: "u1", ClientID: "c1", Scope: "new"},
	}))

	n, err := s.PurgeExpiredApprovals(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	n, err = s.PurgeExpiredApprovals(ctx)
	require.NoError(t, err)
	require.Zero(t, n, "purge is idempotent")

	got, err := s.GetApprovals(ctx, "u1", "c1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "new", got[0].Scope)
}

func TestAddApprovals_RejectsUnknownStatus(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t, false)

	err := s.AddApprovals(ctx, []Approval{{UserID: "u1", ClientID: "c1", Scope: "read", Status: "MAYBE"}})
	require.ErrorIs(t, err, repository.ErrInvalidInput)

	got, err := s.GetApprovals(ctx, "u1", "c1")
	require.NoError(t, err)
	require.Empty(t, got)
}

type brokenRepo struct {
	repository.ApprovalRepository
	err error
}

func (b brokenRepo) Upsert(context.Context, repository.Approval) error { return b.err }

func TestAddApprovals_PropagatesStoreError(t *testing.T) {
	boom := errors.New("disk full")
	s := NewStore(brokenRepo{err: boom}, Config{})
	err := s.AddApprovals(context.Background(), []Approval{{UserID: "u", ClientID: "c", Scope: "s"}})
	require.Same(t, boom, err)
}

func TestPurger_RunsOnTickAndStops(t *testing.T) {
	repo := memory.NewApprovalRepo()
	s := NewStore(repo, Config{})
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, repo.Upsert(ctx, repository.Approval{
		UserID: "u1", ClientID: "c1", Scope: "read",
		Status: repository.ApprovalApproved, ExpiresAt: time.Now().Add(-time.Hour),
	}))

	p := NewPurger(s, 10*time.Millisecond)
	p.Start(ctx)

	require.Eventually(t, func() bool {
		got, err := s.GetApprovals(ctx, "u1", "c1")
		return err == nil && len(got) == 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-p.Done():
	case <-time.After(time.Second):
		t.Fatal("purger did not stop")
	}
}

func TestPurger_RunOnce(t *testing.T) {
	ctx := context.Background()
	s, clk := newStore(t, false)
	require.NoError(t, s.AddApprovals(ctx, []Approval{
		{UserID: "u1", ClientID: "c1", Scope: "read", ExpiresAt: clk.Now().Add(-time.Minute)},
	}))

	n, err := NewPurger(s, 0).RunOnce(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}
