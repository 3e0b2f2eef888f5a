package providers

import (
	"net/url"
	"strings"
)

// Expand replaces {name} placeholders in tmpl with the query-escaped value of
// values[name]. Substitution is single pass: a substituted value is never
// expanded again. Unknown placeholders are left untouched.
func Expand(tmpl string, values map[string]string) string {
	var b strings.Builder
	b.Grow(len(tmpl))
	for {
		open := strings.IndexByte(tmpl, '{')
		if open < 0 {
			b.WriteString(tmpl)
			return b.String()
		}
		end := strings.IndexByte(tmpl[open:], '}')
		if end < 0 {
			b.WriteString(tmpl)
			return b.String()
		}
		end += open
		name := tmpl[open+1 : end]
		b.WriteString(tmpl[:open])
		if v, ok := values[name]; ok {
			b.WriteString(url.QueryEscape(v))
		} else {
			b.WriteString(tmpl[open : end+1])
		}
		tmpl = tmpl[end+1:]
	}
}

// LoginURL expands the login template and appends the static extra parameters
// that the template does not already carry.
func (c Configuration) LoginURL(redirectURI, state string) (string, error) {
	raw := Expand(c.LoginURLTemplate, map[string]string{
		PlaceholderClientID:     c.ClientID,
		PlaceholderRedirectURI:  redirectURI,
		PlaceholderResponseType: c.ResponseType,
		PlaceholderScope:        c.ScopeString(),
		PlaceholderState:        state,
	})
	if len(c.Extra) == 0 {
		return raw, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	q := u.Query()
	for k, v := range c.Extra {
		if !q.Has(k) {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
