// Package social runs the foreign login: it builds the provider login URL,
// exchanges the returned code for a token, reads the profile and links the
// result to a local account by upserting a ForeignToken.
//
// A login moves through three states. Redirecting ends with the login URL,
// Exchanging covers the token and profile requests, Linked is reached once the
// ForeignToken is stored. Any failure aborts the login with an
// *OAuth2AuthenticationError; nothing is retried.
package social

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bremersee/authman/internal/domain/repository"
	"github.com/bremersee/authman/internal/metrics"
	"github.com/bremersee/authman/internal/observability/logger"
	"github.com/bremersee/authman/internal/providers"
)

const maxBody = 1 << 20

// Flow is safe for concurrent use.
type Flow struct {
	registry *providers.Registry
	tokens   repository.ForeignTokenRepository
	state    *StateSigner
	http     *http.Client
	now      func() time.Time
}

type Option func(*Flow)

// WithHTTPClient sets the client used for provider requests. Timeouts belong
// on this client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Flow) { f.http = c }
}

// WithClock replaces time.Now for expiry computation.
func WithClock(now func() time.Time) Option {
	return func(f *Flow) { f.now = now }
}

func NewFlow(registry *providers.Registry, tokens repository.ForeignTokenRepository, state *StateSigner, opts ...Option) *Flow {
	f := &Flow{
		registry: registry,
		tokens:   tokens,
		state:    state,
		http:     &http.Client{Timeout: 10 * time.Second},
		now:      time.Now,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Providers lists the ids a login can be started for.
func (f *Flow) Providers() []string {
	return f.registry.AvailableProviders()
}

// LoginURL builds the provider login URL for redirectURI. userName, when not
// empty, is the local account the foreign identity gets linked to. The
// returned state is already embedded in the URL.
func (f *Flow) LoginURL(ctx context.Context, providerID, redirectURI, userName string) (string, string, error) {
	p, ok := f.registry.Get(providerID)
	if !ok {
		return "", "", authError(providerID, 0, ErrUnknownProvider)
	}
	state, err := f.state.Issue(ctx, StateClaims{
		Provider:    providerID,
		RedirectURI: redirectURI,
		UserName:    userName,
	})
	if err != nil {
		return "", "", authError(providerID, 0, err)
	}
	u, err := p.Config.LoginURL(redirectURI, state)
	if err != nil {
		return "", "", authError(providerID, 0, fmt.Errorf("build login url: %w", err))
	}
	logger.From(ctx).Debug("social login redirect", logger.Provider(providerID), logger.Op("login_url"))
	return u, state, nil
}

// Exchange completes a login started by LoginURL.
func (f *Flow) Exchange(ctx context.Context, providerID, code, state string) (*repository.ForeignToken, *providers.Profile, error) {
	tok, prof, err := f.exchange(ctx, providerID, code, state)
	metrics.SocialExchanges.WithLabelValues(providerID, metrics.Result(err)).Inc()
	if err != nil {
		logger.From(ctx).Warn("social exchange failed", logger.Provider(providerID), logger.Err(err))
		return nil, nil, err
	}
	return tok, prof, nil
}

func (f *Flow) exchange(ctx context.Context, providerID, code, state string) (*repository.ForeignToken, *providers.Profile, error) {
	log := logger.From(ctx).With(logger.Provider(providerID), logger.Component("social"))

	p, ok := f.registry.Get(providerID)
	if !ok {
		return nil, nil, authError(providerID, 0, ErrUnknownProvider)
	}
	claims, err := f.state.Consume(ctx, state)
	if err != nil {
		return nil, nil, authError(providerID, 0, err)
	}
	if claims.Provider != providerID {
		return nil, nil, authError(providerID, 0, ErrStateProvider)
	}
	if strings.TrimSpace(code) == "" {
		return nil, nil, authError(providerID, 0, errors.New("missing authorization code"))
	}

	tr, start, elapsed, err := f.requestToken(ctx, p.Config, code, claims.RedirectURI)
	if err != nil {
		return nil, nil, err
	}

	raw, err := f.fetchProfile(ctx, p.Config, tr.AccessToken)
	if err != nil {
		return nil, nil, err
	}
	prof, err := p.Parse(raw)
	if err != nil {
		return nil, nil, authError(providerID, 0, err)
	}

	prev, err := f.tokens.Find(ctx, providerID, prof.ID)
	if err != nil && !repository.IsNotFound(err) {
		return nil, nil, err
	}

	ft := repository.ForeignToken{
		Provider:        providerID,
		ForeignUserName: prof.ID,
		Scopes:          resolveScopes(tr.Scope, prev, p.Config.Scope),
		AccessToken:     tr.AccessToken,
		TokenType:       tr.TokenType,
		RefreshToken:    providers.StringPtr(tr.RefreshToken),
		ExpiresAt:       expiryOf(log, tr.ExpiresIn, start, elapsed),
	}
	if claims.UserName != "" {
		ft.UserName = &claims.UserName
	} else if prev != nil {
		ft.UserName = prev.UserName
	}
	// providers send a refresh token on first consent only
	if ft.RefreshToken == nil && prev != nil {
		ft.RefreshToken = prev.RefreshToken
	}
	if ft.TokenType == "" {
		ft.TokenType = "bearer"
	}

	if err := f.tokens.Upsert(ctx, ft); err != nil {
		return nil, nil, err
	}
	log.Info("foreign account linked", logger.String("foreign_user", prof.ID), logger.Bool("local_link", ft.UserName != nil))
	return &ft, prof, nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token"`
	// nil when the provider omitted scope
	Scope            *string         `json:"scope"`
	ExpiresIn        json.RawMessage `json:"expires_in"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
}

// requestToken posts the code to the token endpoint. For POST providers the
// query of the expanded template becomes the form body.
func (f *Flow) requestToken(ctx context.Context, cfg providers.Configuration, code, redirectURI string) (*tokenResponse, time.Time, time.Duration, error) {
	target := providers.Expand(cfg.TokenURLTemplate, map[string]string{
		providers.PlaceholderClientID:     cfg.ClientID,
		providers.PlaceholderClientSecret: cfg.ClientSecret,
		providers.PlaceholderRedirectURI:  redirectURI,
		providers.PlaceholderCode:         code,
	})

	var req *http.Request
	var err error
	switch cfg.TokenMethod {
	case http.MethodPost:
		u, perr := url.Parse(target)
		if perr != nil {
			return nil, time.Time{}, 0, authError(cfg.ID, 0, perr)
		}
		body := u.RawQuery
		u.RawQuery = ""
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, u.String(), strings.NewReader(body))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	default:
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	}
	if err != nil {
		return nil, time.Time{}, 0, authError(cfg.ID, 0, err)
	}
	req.Header.Set("Accept", "application/json")

	start := f.now()
	resp, err := f.http.Do(req)
	elapsed := f.now().Sub(start)
	if err != nil {
		return nil, start, elapsed, authError(cfg.ID, 0, fmt.Errorf("token request: %w", err))
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, start, elapsed, authError(cfg.ID, resp.StatusCode, fmt.Errorf("read token response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, start, elapsed, authError(cfg.ID, resp.StatusCode, errors.New("token endpoint rejected the code"))
	}

	var tr tokenResponse
	if err := json.Unmarshal(b, &tr); err != nil {
		return nil, start, elapsed, authError(cfg.ID, resp.StatusCode, fmt.Errorf("decode token response: %w", err))
	}
	if tr.Error != "" {
		return nil, start, elapsed, authError(cfg.ID, resp.StatusCode, fmt.Errorf("provider error: %s %s", tr.Error, tr.ErrorDescription))
	}
	if tr.AccessToken == "" {
		return nil, start, elapsed, authError(cfg.ID, resp.StatusCode, errors.New("no access_token in response"))
	}
	return &tr, start, elapsed, nil
}

func (f *Flow) fetchProfile(ctx context.Context, cfg providers.Configuration, accessToken string) ([]byte, error) {
	target := providers.Expand(cfg.ProfileURLTemplate, map[string]string{
		providers.PlaceholderAccessToken: accessToken,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, authError(cfg.ID, 0, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, authError(cfg.ID, 0, fmt.Errorf("profile request: %w", err))
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, authError(cfg.ID, resp.StatusCode, fmt.Errorf("read profile: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, authError(cfg.ID, resp.StatusCode, errors.New("profile request rejected"))
	}
	return b, nil
}

// expiryOf returns start + lifetime - elapsed. An absent expires_in means no
// forced expiry; an unparsable one is logged and treated the same way.
func expiryOf(log *zap.Logger, raw json.RawMessage, start time.Time, elapsed time.Duration) *time.Time {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	secs, err := parseExpiresIn(raw)
	if err != nil {
		log.Warn("ignoring unparsable expires_in", logger.String("expires_in", string(raw)), logger.Err(err))
		return nil
	}
	t := start.Add(time.Duration(secs) * time.Second).Add(-elapsed)
	return &t
}

func parseExpiresIn(raw json.RawMessage) (int64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, err
	}
	return n.Int64()
}

// resolveScopes applies the scope rule: an omitted scope keeps what was
// granted before (or what was requested on a first login), an explicit empty
// scope clears the set.
func resolveScopes(granted *string, prev *repository.ForeignToken, requested []string) []string {
	if granted == nil {
		if prev != nil {
			return append([]string(nil), prev.Scopes...)
		}
		return append([]string(nil), requested...)
	}
	return strings.FieldsFunc(*granted, func(r rune) bool {
		return r == ' ' || r == ','
	})
}
