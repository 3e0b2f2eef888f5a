package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad_Defaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	require.Equal(t, ":8080", c.Server.Addr)
	require.Equal(t, "memory", c.Storage.Driver)
	require.Equal(t, "memory", c.Cache.Kind)
	require.Equal(t, 24*time.Hour, c.Approvals.PurgeInterval)
	require.Equal(t, 30*24*time.Hour, c.Approvals.Validity)
	require.False(t, c.Approvals.HandleRevocationsAsExpiry)
}

func TestLoad_YAMLAndEnvOverride(t *testing.T) {
	p := writeYAML(t, `
server:
  base_url: https://auth.example.com/
approvals:
  handle_revocations_as_expiry: true
  purge_interval: 6h
providers:
  github:
    enabled: true
    client_id: gh-client
`)
	t.Setenv("GITHUB_CLIENT_SECRET", "from-env")
	t.Setenv("APPROVALS_PURGE_INTERVAL", "2h")
	t.Setenv("PROVIDERS_ALLOWED_REDIRECT_URIS", "https://app.example/cb, https://admin.example/cb")

	c, err := Load(p)
	require.NoError(t, err)
	require.True(t, c.Approvals.HandleRevocationsAsExpiry)
	require.Equal(t, 2*time.Hour, c.Approvals.PurgeInterval)
	require.Equal(t, "gh-client", c.Providers.GitHub.ClientID)
	require.Equal(t, "from-env", c.Providers.GitHub.ClientSecret)
	require.Equal(t, "https://auth.example.com/login", c.Providers.RedirectBaseURL)
	require.Equal(t, []string{"https://app.example/cb", "https://admin.example/cb"}, c.Providers.AllowedRedirectURIs)
}

func TestLoad_ValidationErrors(t *testing.T) {
	p := writeYAML(t, `
app:
  env: prod
storage:
  driver: postgres
credentials:
  token_url: http://localhost/oauth/token
  username: svc
providers:
  google:
    enabled: true
`)
	_, err := Load(p)
	require.Error(t, err)
	msg := err.Error()
	require.Contains(t, msg, "storage.dsn")
	require.Contains(t, msg, "state_signing_key")
	require.Contains(t, msg, "credentials.client_id")
	require.Contains(t, msg, "credentials.username and credentials.password")
	require.Contains(t, msg, "providers.google.client_id")
}
