// Package facebook implements the Facebook provider variant.
// Facebook's token endpoint is called with GET and query parameters.
package facebook

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/bremersee/authman/internal/providers"
)

const ProviderName = "facebook"

var defaults = providers.Configuration{
	ID:                 ProviderName,
	LoginURLTemplate:   "https://www.facebook.com/v19.0/dialog/oauth?client_id={clientId}&redirect_uri={redirectUri}&response_type={responseType}&scope={scope}&state={state}",
	TokenURLTemplate:   "https://graph.facebook.com/v19.0/oauth/access_token?client_id={clientId}&client_secret={clientSecret}&redirect_uri={redirectUri}&code={code}",
	TokenMethod:        http.MethodGet,
	ProfileURLTemplate: "https://graph.facebook.com/me?fields=id,name,email,locale,timezone&access_token={accessToken}",
	ResponseType:       "code",
	Scope:              []string{"public_profile", "email"},
	ScopeSeparator:     ",",
}

// New builds the Facebook provider from deployment settings.
func New(s providers.Settings) providers.Provider {
	return providers.Provider{Config: s.Apply(defaults), Parse: ParseProfile}
}

type profile struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Email    string          `json:"email"`
	Locale   json.RawMessage `json:"locale"`
	Timezone json.RawMessage `json:"timezone"`
}

// ParseProfile decodes a Graph API /me payload. id is mandatory.
func ParseProfile(raw []byte) (*providers.Profile, error) {
	var p profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, providers.Malformed(ProviderName, err)
	}
	if p.ID == "" {
		return nil, providers.MissingField(ProviderName, "id")
	}
	return &providers.Profile{
		ID:       p.ID,
		Name:     p.Name,
		Email:    p.Email,
		Locale:   providers.OptionalString(p.Locale),
		TimeZone: offsetZone(p.Timezone),
	}, nil
}

// offsetZone renders Facebook's hour offset (2, -5.5) as UTC+2, UTC-5.5.
func offsetZone(raw json.RawMessage) *string {
	v := providers.OptionalString(raw)
	if v == nil {
		return nil
	}
	f, err := strconv.ParseFloat(*v, 64)
	if err != nil {
		return v
	}
	z := "UTC" + strconv.FormatFloat(f, 'f', -1, 64)
	if f >= 0 {
		z = "UTC+" + strconv.FormatFloat(f, 'f', -1, 64)
	}
	return &z
}
