package pg

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bremersee/authman/internal/domain/repository"
	migrations "github.com/bremersee/authman/migrations/postgres"
)

// openTestStore connects to AUTHMAN_TEST_PG_DSN and migrates it. Tests are
// skipped when the variable is unset.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("AUTHMAN_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("AUTHMAN_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	s, err := Open(ctx, Config{DSN: dsn, MaxConns: 4})
	require.NoError(t, err)
	t.Cleanup(s.Close)

	_, err = NewMigrator(migrations.FS, migrations.Dir).Run(ctx, s.Pool())
	require.NoError(t, err)
	_, err = s.Pool().Exec(ctx, `TRUNCATE oauth_approval, oauth_client, authority_grant, foreign_token`)
	require.NoError(t, err)
	return s
}

func TestApprovals_PG(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	r := s.Approvals()
	now := time.Now().UTC().Truncate(time.Microsecond)

	a := repository.Approval{UserID: "u1", ClientID: "c1", Scope: "read", Status: repository.ApprovalApproved, ExpiresAt: now.Add(time.Hour), LastUpdatedAt: now}
	require.NoError(t, r.Upsert(ctx, a))
	a.Status = repository.ApprovalDenied
	require.NoError(t, r.Upsert(ctx, a))

	got, err := r.Find(ctx, "u1", "c1", "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, repository.ApprovalDenied, got[0].Status)

	n, err := r.Expire(ctx, a.Key(), now.Add(-time.Second))
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	n, err = r.DeleteExpiredBefore(ctx, now)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestClients_PG(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveClient(ctx, repository.ClientRecord{
		ClientID:   "web",
		Secret:     "s",
		GrantTypes: []string{"client_credentials"},
		Additional: map[string]any{"tier": "gold"},
	}, "ROLE_CLIENT"))

	c, err := s.Clients().FindByClientID(ctx, "web")
	require.NoError(t, err)
	require.Equal(t, []string{"client_credentials"}, c.GrantTypes)
	require.Equal(t, "gold", c.Additional["tier"])

	auth, err := s.Clients().FindGrantedAuthoritiesByUserName(ctx, "web")
	require.NoError(t, err)
	require.Equal(t, []string{"ROLE_CLIENT"}, auth)

	_, err = s.Clients().FindByClientID(ctx, "missing")
	require.True(t, repository.IsNotFound(err))
}

func TestForeignTokens_PG(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	r := s.ForeignTokens()
	alice, refresh := "alice", "r1"

	require.NoError(t, r.Upsert(ctx, repository.ForeignToken{Provider: "github", ForeignUserName: "42", UserName: &alice, AccessToken: "a", TokenType: "bearer", RefreshToken: &refresh}))
	require.NoError(t, r.Upsert(ctx, repository.ForeignToken{Provider: "github", ForeignUserName: "42", AccessToken: "b", TokenType: "bearer", Scopes: []string{"read:user"}}))

	got, err := r.Find(ctx, "github", "42")
	require.NoError(t, err)
	require.Equal(t, "b", got.AccessToken)
	require.Equal(t, "alice", *got.UserName)
	require.Equal(t, "r1", *got.RefreshToken)
	require.Equal(t, []string{"read:user"}, got.Scopes)
	require.Nil(t, got.ExpiresAt)
}
