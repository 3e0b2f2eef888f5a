package providers_test

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bremersee/authman/internal/providers"
	"github.com/bremersee/authman/internal/providers/facebook"
	"github.com/bremersee/authman/internal/providers/github"
	"github.com/bremersee/authman/internal/providers/google"
)

func TestExpand_SinglePass(t *testing.T) {
	got := providers.Expand("https://x/cb?code={code}&s={state}&keep={unknown}", map[string]string{
		"code":  "{state}",
		"state": "a b&c",
	})
	require.Equal(t, "https://x/cb?code=%7Bstate%7D&s=a+b%26c&keep={unknown}", got)
}

func TestLoginURL_RoundTripsEveryPlaceholder(t *testing.T) {
	settings := providers.Settings{ClientID: "cid with/odd&chars", ClientSecret: "s"}
	redirect := "https://app.example.com/login/callback?next=/home&x=1"
	state := "eyJhbGciOiJIUzI1NiJ9.e30.sig+/="

	for _, p := range []providers.Provider{
		facebook.New(settings),
		github.New(settings),
		google.New(settings),
	} {
		t.Run(p.Config.ID, func(t *testing.T) {
			raw, err := p.Config.LoginURL(redirect, state)
			require.NoError(t, err)

			u, err := url.Parse(raw)
			require.NoError(t, err)
			q := u.Query()
			require.Equal(t, settings.ClientID, q.Get("client_id"))
			require.Equal(t, redirect, q.Get("redirect_uri"))
			require.Equal(t, "code", q.Get("response_type"))
			require.Equal(t, p.Config.ScopeString(), q.Get("scope"))
			require.Equal(t, state, q.Get("state"))
			for k, v := range p.Config.Extra {
				require.Equal(t, v, q.Get(k))
			}
		})
	}
}

func TestScopeString_UsesSeparator(t *testing.T) {
	fb := facebook.New(providers.Settings{ClientID: "c"})
	require.Equal(t, "public_profile,email", fb.Config.ScopeString())

	gh := github.New(providers.Settings{ClientID: "c", Scope: []string{"a", "b"}})
	require.Equal(t, "a b", gh.Config.ScopeString())
}

func TestRegistry_RejectsEmptyAndDuplicateIDs(t *testing.T) {
	r := providers.NewRegistry()
	require.NoError(t, r.Register(github.New(providers.Settings{ClientID: "c"})))
	require.Error(t, r.Register(github.New(providers.Settings{ClientID: "c"})))

	bad := github.New(providers.Settings{ClientID: "c"})
	bad.Config.ID = ""
	require.Error(t, r.Register(bad))

	noClient := google.New(providers.Settings{})
	require.Error(t, r.Register(noClient))

	require.Equal(t, []string{"github"}, r.AvailableProviders())
}

func TestRegistry_GetReturnsCopies(t *testing.T) {
	r := providers.NewRegistry()
	require.NoError(t, r.Register(google.New(providers.Settings{ClientID: "c"})))

	p, ok := r.Get("google")
	require.True(t, ok)
	p.Config.Extra["access_type"] = "online"
	p.Config.Scope[0] = "changed"
	p.Config.TokenMethod = http.MethodGet

	again, _ := r.Get("google")
	require.Equal(t, "offline", again.Config.Extra["access_type"])
	require.Equal(t, "openid", again.Config.Scope[0])
	require.Equal(t, http.MethodPost, again.Config.TokenMethod)
}

func TestRegistry_ParseDispatchesByID(t *testing.T) {
	r := providers.NewRegistry()
	require.NoError(t, r.Register(github.New(providers.Settings{ClientID: "c"})))

	prof, err := r.Parse("github", []byte(`{"login":"alice","email":"a@example.com"}`))
	require.NoError(t, err)
	require.Equal(t, "alice", prof.Name)

	_, err = r.Parse("myspace", []byte(`{}`))
	var perr *providers.ProfileParseError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "myspace", perr.Provider)
}
