package clientdetails

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bremersee/authman/internal/domain/repository"
	"github.com/bremersee/authman/internal/store/memory"
)

func TestLoadClientDetails(t *testing.T) {
	reg := memory.NewClientRegistry()
	reg.Put(repository.ClientRecord{
		ClientID:            "web",
		Secret:              "s",
		GrantTypes:          []string{"authorization_code", "refresh_token"},
		Scopes:              []string{"read", "write"},
		AutoApproveScopes:   []string{"read"},
		AccessTokenValidity: 3600,
	})
	reg.Grant("web", "ROLE_CLIENT")

	d, err := NewProvider(reg).LoadClientDetails(context.Background(), "web")
	require.NoError(t, err)
	require.Equal(t, "web", d.ClientID)
	require.Equal(t, []string{"ROLE_CLIENT"}, d.Authorities)
	require.Equal(t, 3600, d.AccessTokenValidity)
	require.True(t, d.IsAutoApprove("read"))
	require.False(t, d.IsAutoApprove("write"))
}

func TestLoadClientDetails_ReflectsCurrentRegistry(t *testing.T) {
	reg := memory.NewClientRegistry()
	reg.Put(repository.ClientRecord{ClientID: "web", Scopes: []string{"read"}})
	p := NewProvider(reg)

	d, err := p.LoadClientDetails(context.Background(), "web")
	require.NoError(t, err)
	require.Equal(t, []string{"read"}, d.Scopes)

	reg.Put(repository.ClientRecord{ClientID: "web", Scopes: []string{"read", "admin"}})
	d, err = p.LoadClientDetails(context.Background(), "web")
	require.NoError(t, err)
	require.Equal(t, []string{"read", "admin"}, d.Scopes)

	reg.Remove("web")
	_, err = p.LoadClientDetails(context.Background(), "web")
	require.True(t, IsClientNotFound(err))
}

func TestLoadClientDetails_NotFound(t *testing.T) {
	_, err := NewProvider(memory.NewClientRegistry()).LoadClientDetails(context.Background(), "nope")
	var nf *ClientNotFoundError
	require.ErrorAs(t, err, &nf)
	require.Equal(t, "nope", nf.ClientID)
}

type failingRegistry struct{ err error }

func (f failingRegistry) FindByClientID(context.Context, string) (*repository.ClientRecord, error) {
	return nil, f.err
}

func (f failingRegistry) FindGrantedAuthoritiesByUserName(context.Context, string) ([]string, error) {
	return nil, f.err
}

func TestLoadClientDetails_PropagatesStoreErrors(t *testing.T) {
	boom := errors.New("connection reset")
	_, err := NewProvider(failingRegistry{err: boom}).LoadClientDetails(context.Background(), "web")
	require.ErrorIs(t, err, boom)
	require.False(t, IsClientNotFound(err))
}
