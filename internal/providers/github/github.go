// Package github implements the GitHub provider variant.
// GitHub has no ID token; the profile comes from the REST user endpoint.
package github

import (
	"encoding/json"
	"net/http"

	"github.com/bremersee/authman/internal/providers"
)

const ProviderName = "github"

var defaults = providers.Configuration{
	ID:                 ProviderName,
	LoginURLTemplate:   "https://github.com/login/oauth/authorize?client_id={clientId}&redirect_uri={redirectUri}&response_type={responseType}&scope={scope}&state={state}",
	TokenURLTemplate:   "https://github.com/login/oauth/access_token?client_id={clientId}&client_secret={clientSecret}&redirect_uri={redirectUri}&code={code}",
	TokenMethod:        http.MethodPost,
	ProfileURLTemplate: "https://api.github.com/user",
	ResponseType:       "code",
	Scope:              []string{"read:user", "user:email"},
	ScopeSeparator:     " ",
	Extra:              map[string]string{"allow_signup": "true"},
}

// New builds the GitHub provider from deployment settings.
func New(s providers.Settings) providers.Provider {
	return providers.Provider{Config: s.Apply(defaults), Parse: ParseProfile}
}

type user struct {
	ID    json.RawMessage `json:"id"`
	Login string          `json:"login"`
	Name  string          `json:"name"`
	Email string          `json:"email"`
}

// ParseProfile decodes a /user payload. login is mandatory and becomes the
// profile name; the id (numeric or string) is the stable id when present.
func ParseProfile(raw []byte) (*providers.Profile, error) {
	var u user
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, providers.Malformed(ProviderName, err)
	}
	if u.Login == "" {
		return nil, providers.MissingField(ProviderName, "login")
	}
	id := u.Login
	if v := providers.OptionalString(u.ID); v != nil {
		id = *v
	}
	return &providers.Profile{
		ID:    id,
		Name:  u.Login,
		Email: u.Email,
	}, nil
}
