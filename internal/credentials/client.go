// Package credentials acquires and caches the bearer token the broker uses
// for outbound service-to-service calls.
//
// One Client is one credential identity. The token is cached in a single slot
// that is replaced as a whole; an expired or empty slot triggers exactly one
// token request (concurrent callers share it through singleflight).
package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"

	"github.com/bremersee/authman/internal/metrics"
	"github.com/bremersee/authman/internal/observability/logger"
)

const (
	GrantPassword          = "password"
	GrantClientCredentials = "client_credentials"
)

// skew is subtracted from the declared lifetime so a token is never used at
// the very edge of its validity.
const skew = time.Second

// defaultFetchTimeout bounds a token request when the HTTP client has no timeout.
const defaultFetchTimeout = 30 * time.Second

// Config configures a Client.
type Config struct {
	TokenURL string
	ClientID string
	Scopes   []string

	// Username and Password select the resource owner password grant.
	// When empty the client credentials grant is used.
	Username string
	Password string

	// Secret resolves the client secret. Required.
	Secret SecretSource

	// HTTPClient performs the token request. Timeouts belong here.
	HTTPClient *http.Client
}

type cachedToken struct {
	value     string
	expiresAt time.Time
}

// Client is safe for concurrent use.
type Client struct {
	cfg    Config
	http   *http.Client
	now    func() time.Time
	cached atomic.Pointer[cachedToken]
	sf     singleflight.Group
}

// Option customizes a Client.
type Option func(*Client)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// New creates a Client.
func New(cfg Config, opts ...Option) *Client {
	base := cfg.HTTPClient
	if base == nil {
		base = &http.Client{Timeout: 10 * time.Second}
	}
	hc := *base
	hc.Transport = acceptJSON{base: base.Transport}

	c := &Client{cfg: cfg, http: &hc, now: time.Now}
	for _, o := range opts {
		o(c)
	}
	return c
}

// GrantType returns the grant the client uses.
func (c *Client) GrantType() string {
	if c.cfg.Username != "" && c.cfg.Password != "" {
		return GrantPassword
	}
	return GrantClientCredentials
}

// AccessToken returns the cached token, fetching a new one when the cache is
// empty or expired. The shared fetch is not cancelled with the caller that
// started it; a cancelled caller only stops waiting.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	if v, ok := c.valid(); ok {
		return v, nil
	}
	ch := c.sf.DoChan("token", func() (any, error) {
		if v, ok := c.valid(); ok {
			return v, nil
		}
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout())
		defer cancel()
		return c.fetch(fctx)
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (c *Client) fetchTimeout() time.Duration {
	if c.http.Timeout > 0 {
		return c.http.Timeout
	}
	return defaultFetchTimeout
}

// Invalidate empties the cache; the next AccessToken call fetches.
func (c *Client) Invalidate() {
	c.cached.Store(nil)
}

func (c *Client) valid() (string, bool) {
	t := c.cached.Load()
	if t == nil || !c.now().Before(t.expiresAt) {
		return "", false
	}
	return t.value, true
}

func (c *Client) fetch(ctx context.Context) (string, error) {
	log := logger.From(ctx).With(
		logger.Component("credentials"),
		logger.ClientID(c.cfg.ClientID),
		logger.GrantType(c.GrantType()),
	)

	tok, elapsed, err := c.request(ctx)
	metrics.CredentialTokenFetches.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		c.cached.Store(nil)
		uerr := &UnauthorizedClientError{ClientID: c.cfg.ClientID, Err: err}
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) && rerr.Response != nil {
			uerr.Status = rerr.Response.StatusCode
		}
		log.Warn("token request failed", logger.Status(uerr.Status), logger.Err(err))
		return "", uerr
	}

	lifetime, ok := declaredLifetime(tok)
	if !ok {
		// Nothing declared: hand the token out once, do not cache it.
		log.Debug("token response without expires_in; not caching")
		c.cached.Store(nil)
		return tok.AccessToken, nil
	}

	expiresAt := c.now().Add(lifetime - skew).Add(-elapsed)
	c.cached.Store(&cachedToken{value: tok.AccessToken, expiresAt: expiresAt})
	log.Debug("token cached", logger.Duration(elapsed), logger.String("expires_at", expiresAt.Format(time.RFC3339)))
	return tok.AccessToken, nil
}

func (c *Client) request(ctx context.Context) (*oauth2.Token, time.Duration, error) {
	if c.cfg.Secret == nil {
		return nil, 0, errors.New("no client secret source configured")
	}
	secret, err := c.cfg.Secret.Secret(ctx)
	if err != nil {
		return nil, 0, err
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	start := c.now()

	var tok *oauth2.Token
	if c.GrantType() == GrantPassword {
		conf := &oauth2.Config{
			ClientID:     c.cfg.ClientID,
			ClientSecret: secret,
			Scopes:       c.cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				TokenURL:  c.cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		}
		tok, err = conf.PasswordCredentialsToken(ctx, c.cfg.Username, c.cfg.Password)
	} else {
		conf := &clientcredentials.Config{
			ClientID:     c.cfg.ClientID,
			ClientSecret: secret,
			TokenURL:     c.cfg.TokenURL,
			Scopes:       c.cfg.Scopes,
			AuthStyle:    oauth2.AuthStyleInHeader,
		}
		tok, err = conf.Token(ctx)
	}
	return tok, c.now().Sub(start), err
}

// declaredLifetime reads expires_in from the raw token response. It may be a
// number or a numeric string.
func declaredLifetime(tok *oauth2.Token) (time.Duration, bool) {
	var secs int64
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		secs = int64(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		secs = n
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, false
		}
		secs = n
	default:
		return 0, false
	}
	if secs <= 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

type acceptJSON struct {
	base http.RoundTripper
}

func (t acceptJSON) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	r := req.Clone(req.Context())
	r.Header.Set("Accept", "application/json")
	return base.RoundTrip(r)
}
