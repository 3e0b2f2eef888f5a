package credentials

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
)

type tokenSource struct {
	ctx context.Context
	c   *Client
}

func (s tokenSource) Token() (*oauth2.Token, error) {
	v, err := s.c.AccessToken(s.ctx)
	if err != nil {
		return nil, err
	}
	// Expiry stays zero: the Client owns expiry and refresh.
	return &oauth2.Token{AccessToken: v, TokenType: "Bearer"}, nil
}

// TokenSource exposes the cached token as an oauth2.TokenSource.
func (c *Client) TokenSource(ctx context.Context) oauth2.TokenSource {
	return tokenSource{ctx: ctx, c: c}
}

// HTTPClient returns a client that attaches the bearer token to every request.
func (c *Client) HTTPClient(ctx context.Context, base http.RoundTripper) *http.Client {
	return &http.Client{Transport: &oauth2.Transport{Source: c.TokenSource(ctx), Base: base}}
}
