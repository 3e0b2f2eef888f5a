package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bremersee/authman/internal/domain/repository"
)

func TestApprovalRepo_UpsertFindDelete(t *testing.T) {
	ctx := context.Background()
	r := NewApprovalRepo()
	now := time.Now()

	a := repository.Approval{UserID: "u1", ClientID: "c1", Scope: "read", Status: repository.ApprovalApproved, ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, r.Upsert(ctx, a))
	a.Status = repository.ApprovalDenied
	require.NoError(t, r.Upsert(ctx, a))
	require.NoError(t, r.Upsert(ctx, repository.Approval{UserID: "u1", ClientID: "c1", Scope: "write", ExpiresAt: now.Add(-time.Hour)}))

	all, err := r.Find(ctx, "u1", "c1", "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "read", all[0].Scope)
	require.Equal(t, repository.ApprovalDenied, all[0].Status)

	one, err := r.Find(ctx, "u1", "c1", "write")
	require.NoError(t, err)
	require.Len(t, one, 1)

	n, err := r.DeleteExpiredBefore(ctx, now)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	n, err = r.Delete(ctx, a.Key())
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
	n, err = r.Delete(ctx, a.Key())
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestApprovalRepo_RejectsEmptyKey(t *testing.T) {
	err := NewApprovalRepo().Upsert(context.Background(), repository.Approval{UserID: "u1"})
	require.ErrorIs(t, err, repository.ErrInvalidInput)
}

func TestClientRegistry_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	r := NewClientRegistry()
	r.Put(repository.ClientRecord{ClientID: "c1", Scopes: []string{"read"}})

	c, err := r.FindByClientID(ctx, "c1")
	require.NoError(t, err)
	c.Scopes[0] = "mutated"

	c2, err := r.FindByClientID(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, []string{"read"}, c2.Scopes)

	_, err = r.FindByClientID(ctx, "missing")
	require.True(t, repository.IsNotFound(err))
}

func TestForeignTokenRepo_UpsertKeepsLink(t *testing.T) {
	ctx := context.Background()
	r := NewForeignTokenRepo()
	alice := "alice"

	require.NoError(t, r.Upsert(ctx, repository.ForeignToken{Provider: "github", ForeignUserName: "al", UserName: &alice, AccessToken: "a"}))
	require.NoError(t, r.Upsert(ctx, repository.ForeignToken{Provider: "github", ForeignUserName: "al", AccessToken: "b"}))

	got, err := r.Find(ctx, "github", "al")
	require.NoError(t, err)
	require.Equal(t, "b", got.AccessToken)
	require.NotNil(t, got.UserName)
	require.Equal(t, "alice", *got.UserName)

	_, err = r.Find(ctx, "google", "al")
	require.True(t, repository.IsNotFound(err))
}

func TestForeignTokenRepo_KeepsRefreshTokenAndDetachesPointers(t *testing.T) {
	ctx := context.Background()
	r := NewForeignTokenRepo()
	refresh := "r1"
	exp := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	in := repository.ForeignToken{Provider: "google", ForeignUserName: "g1", AccessToken: "a", RefreshToken: &refresh, ExpiresAt: &exp}
	require.NoError(t, r.Upsert(ctx, in))
	refresh = "mutated"
	exp = exp.Add(time.Hour)

	got, err := r.Find(ctx, "google", "g1")
	require.NoError(t, err)
	require.Equal(t, "r1", *got.RefreshToken)
	require.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), *got.ExpiresAt)

	*got.RefreshToken = "changed by caller"
	require.NoError(t, r.Upsert(ctx, repository.ForeignToken{Provider: "google", ForeignUserName: "g1", AccessToken: "b"}))

	got, err = r.Find(ctx, "google", "g1")
	require.NoError(t, err)
	require.Equal(t, "b", got.AccessToken)
	require.NotNil(t, got.RefreshToken)
	require.Equal(t, "r1", *got.RefreshToken)
}
