// Package providers defines the foreign identity provider adapters.
//
// Each supported provider (Facebook, GitHub, Google) is one variant carrying
// its protocol template (Configuration) and a profile parser. Variants are
// looked up by provider id through a Registry; there is no per-provider
// subtype hierarchy.
//
//   - Configuration: login/token/profile URL templates, scope and separator,
//     response type, client credentials, static extra parameters.
//   - ProfileParser: decodes the provider's profile payload into Profile.
package providers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Placeholders understood by Expand.
const (
	PlaceholderClientID     = "clientId"
	PlaceholderClientSecret = "clientSecret"
	PlaceholderRedirectURI  = "redirectUri"
	PlaceholderResponseType = "responseType"
	PlaceholderScope        = "scope"
	PlaceholderState        = "state"
	PlaceholderCode         = "code"
	PlaceholderAccessToken  = "accessToken"
)

// Configuration is the protocol template of one provider.
// Treat it as immutable; Registry hands out copies.
type Configuration struct {
	ID                 string
	LoginURLTemplate   string
	TokenURLTemplate   string
	TokenMethod        string // http.MethodGet or http.MethodPost
	ProfileURLTemplate string
	ResponseType       string
	Scope              []string
	ScopeSeparator     string
	ClientID           string
	ClientSecret       string
	Extra              map[string]string // static query parameters of the login URL
}

// Clone returns a deep copy.
func (c Configuration) Clone() Configuration {
	out := c
	out.Scope = append([]string(nil), c.Scope...)
	if c.Extra != nil {
		out.Extra = make(map[string]string, len(c.Extra))
		for k, v := range c.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// ScopeString joins the scopes with the provider's separator.
func (c Configuration) ScopeString() string {
	sep := c.ScopeSeparator
	if sep == "" {
		sep = " "
	}
	return strings.Join(c.Scope, sep)
}

// Validate checks the fields the exchange flow cannot do without.
func (c Configuration) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("providers: empty provider id")
	}
	if c.LoginURLTemplate == "" || c.TokenURLTemplate == "" || c.ProfileURLTemplate == "" {
		return fmt.Errorf("providers: %s: login, token and profile url templates are required", c.ID)
	}
	switch c.TokenMethod {
	case http.MethodGet, http.MethodPost:
	default:
		return fmt.Errorf("providers: %s: unsupported token method %q", c.ID, c.TokenMethod)
	}
	if c.ClientID == "" {
		return fmt.Errorf("providers: %s: client id is required", c.ID)
	}
	return nil
}

// Profile is the normalized, read-only view of a foreign identity.
type Profile struct {
	ID       string
	Name     string
	Email    string
	Locale   *string
	TimeZone *string
}

// ProfileParser decodes a raw profile payload.
type ProfileParser func(raw []byte) (*Profile, error)

// Provider is one supported foreign identity provider.
type Provider struct {
	Config Configuration
	Parse  ProfileParser
}

// Settings are the deployment specific values a provider variant is built from.
// Empty URL fields keep the provider's public endpoints.
type Settings struct {
	ClientID     string
	ClientSecret string
	Scope        []string
	LoginURL     string
	TokenURL     string
	ProfileURL   string
}

// Apply overlays s onto a default configuration.
func (s Settings) Apply(c Configuration) Configuration {
	c = c.Clone()
	c.ClientID = s.ClientID
	c.ClientSecret = s.ClientSecret
	if len(s.Scope) > 0 {
		c.Scope = append([]string(nil), s.Scope...)
	}
	if s.LoginURL != "" {
		c.LoginURLTemplate = s.LoginURL
	}
	if s.TokenURL != "" {
		c.TokenURLTemplate = s.TokenURL
	}
	if s.ProfileURL != "" {
		c.ProfileURLTemplate = s.ProfileURL
	}
	return c
}

// StringPtr returns nil for an empty string.
func StringPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// OptionalString reads an optional JSON scalar. Strings and numbers are
// returned as text; anything else (absent, null, objects) yields nil.
func OptionalString(raw json.RawMessage) *string {
	if len(raw) == 0 {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return StringPtr(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return StringPtr(n.String())
	}
	return nil
}
