package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bremersee/authman/internal/config"
	"github.com/bremersee/authman/internal/store/memory"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "authman.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--env-file", ""}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestSeedClients(t *testing.T) {
	reg := memory.NewClientRegistry()
	seedClients(reg, []config.ClientSeed{{
		ClientID:    "web",
		Secret:      "s3cret",
		Scopes:      []string{"read"},
		Authorities: []string{"ROLE_CLIENT"},
	}})

	rec, err := reg.FindByClientID(context.Background(), "web")
	require.NoError(t, err)
	require.Equal(t, "s3cret", rec.Secret)
	require.Equal(t, []string{"read"}, rec.Scopes)

	auth, err := reg.FindGrantedAuthoritiesByUserName(context.Background(), "web")
	require.NoError(t, err)
	require.Equal(t, []string{"ROLE_CLIENT"}, auth)
}

func TestBuildProviders_OnlyEnabled(t *testing.T) {
	var cfg config.Config
	cfg.Providers.GitHub = config.ProviderConfig{Enabled: true, ClientID: "gh", ClientSecret: "x"}
	cfg.Providers.Google = config.ProviderConfig{Enabled: false, ClientID: "g"}

	reg, err := buildProviders(&cfg)
	require.NoError(t, err)
	require.Equal(t, []string{"github"}, reg.AvailableProviders())
}

func TestPurgeApprovalsCommand(t *testing.T) {
	path := writeConfig(t, "storage:\n  driver: memory\n")

	out, err := run(t, "--config", path, "purge-approvals")
	require.NoError(t, err)
	require.Equal(t, "purged=0\n", out)
}

func TestClientTokenCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, secret, ok := r.BasicAuth()
		if !ok || id != "svc" || secret != "from-registry" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-1","token_type":"bearer","expires_in":60}`))
	}))
	defer srv.Close()

	path := writeConfig(t, strings.Join([]string{
		"storage:",
		"  clients:",
		"    - client_id: svc",
		"      secret: from-registry",
		"credentials:",
		"  token_url: " + srv.URL,
		"  client_id: svc",
		"  secret_from_registry: true",
	}, "\n")+"\n")

	out, err := run(t, "--config", path, "client-token")
	require.NoError(t, err)
	require.Equal(t, "tok-1\n", out)
}

func TestClientTokenCommand_NotConfigured(t *testing.T) {
	path := writeConfig(t, "app:\n  env: dev\n")
	_, err := run(t, "--config", path, "client-token")
	require.ErrorContains(t, err, "token_url")
}
