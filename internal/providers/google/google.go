// Package google implements the Google provider variant.
//
// The default profile endpoint is the People API, whose payload is nested
// (names[], emailAddresses[], locales[]). The flat OpenID userinfo shape
// (sub, name, email, locale, zoneinfo) is accepted as well so the profile URL
// can point at either endpoint.
package google

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/bremersee/authman/internal/providers"
)

const ProviderName = "google"

var defaults = providers.Configuration{
	ID:                 ProviderName,
	LoginURLTemplate:   "https://accounts.google.com/o/oauth2/v2/auth?client_id={clientId}&redirect_uri={redirectUri}&response_type={responseType}&scope={scope}&state={state}",
	TokenURLTemplate:   "https://oauth2.googleapis.com/token?client_id={clientId}&client_secret={clientSecret}&redirect_uri={redirectUri}&code={code}&grant_type=authorization_code",
	TokenMethod:        http.MethodPost,
	ProfileURLTemplate: "https://people.googleapis.com/v1/people/me?personFields=names,emailAddresses,locales",
	ResponseType:       "code",
	Scope:              []string{"openid", "email", "profile"},
	ScopeSeparator:     " ",
	Extra:              map[string]string{"access_type": "offline", "include_granted_scopes": "true"},
}

// New builds the Google provider from deployment settings.
func New(s providers.Settings) providers.Provider {
	return providers.Provider{Config: s.Apply(defaults), Parse: ParseProfile}
}

type valueItem struct {
	Value    string `json:"value"`
	Metadata struct {
		Primary bool `json:"primary"`
	} `json:"metadata"`
}

type nameItem struct {
	DisplayName string `json:"displayName"`
	Metadata    struct {
		Primary bool `json:"primary"`
	} `json:"metadata"`
}

type person struct {
	// People API
	// The lists are optional; a list of unexpected shape is ignored.
	ResourceName   string          `json:"resourceName"`
	Names          json.RawMessage `json:"names"`
	EmailAddresses json.RawMessage `json:"emailAddresses"`
	Locales        json.RawMessage `json:"locales"`

	// OpenID userinfo
	Sub      string          `json:"sub"`
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Email    string          `json:"email"`
	Locale   json.RawMessage `json:"locale"`
	ZoneInfo json.RawMessage `json:"zoneinfo"`
}

// ParseProfile decodes a Google profile payload. A stable id (resourceName,
// sub or id) is mandatory.
func ParseProfile(raw []byte) (*providers.Profile, error) {
	var p person
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, providers.Malformed(ProviderName, err)
	}

	id := firstNonEmpty(p.Sub, p.ID, strings.TrimPrefix(p.ResourceName, "people/"))
	if id == "" {
		return nil, providers.MissingField(ProviderName, "id")
	}

	name := p.Name
	if name == "" {
		for i, n := range list[nameItem](p.Names) {
			if n.Metadata.Primary || i == 0 {
				name = n.DisplayName
			}
			if n.Metadata.Primary {
				break
			}
		}
	}

	return &providers.Profile{
		ID:       id,
		Name:     name,
		Email:    firstNonEmpty(p.Email, primary(list[valueItem](p.EmailAddresses))),
		Locale:   locale(p),
		TimeZone: providers.OptionalString(p.ZoneInfo),
	}, nil
}

func locale(p person) *string {
	if l := providers.OptionalString(p.Locale); l != nil {
		return l
	}
	return providers.StringPtr(primary(list[valueItem](p.Locales)))
}

// list decodes an optional People API list, nil when absent or malformed.
func list[T any](raw json.RawMessage) []T {
	if len(raw) == 0 {
		return nil
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	return items
}

func primary(items []valueItem) string {
	for _, it := range items {
		if it.Metadata.Primary {
			return it.Value
		}
	}
	if len(items) > 0 {
		return items[0].Value
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
