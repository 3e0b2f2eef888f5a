package controllers

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bremersee/authman/internal/domain/repository"
	httperrors "github.com/bremersee/authman/internal/http/errors"
	"github.com/bremersee/authman/internal/observability/logger"
	"github.com/bremersee/authman/internal/providers"
)

// SocialService is implemented by *social.Flow.
type SocialService interface {
	Providers() []string
	LoginURL(ctx context.Context, providerID, redirectURI, userName string) (string, string, error)
	Exchange(ctx context.Context, providerID, code, state string) (*repository.ForeignToken, *providers.Profile, error)
}

type SocialController struct {
	svc SocialService
	// callbackBase is used when a login request has no redirect_uri:
	// {callbackBase}/{provider}/callback
	callbackBase string
	// allowed holds the URL prefixes an explicit redirect_uri must match.
	allowed []*url.URL
}

// NewSocialController accepts explicit redirect URIs below callbackBase or
// below one of allowedRedirects; anything else is rejected before a state is
// issued.
func NewSocialController(svc SocialService, callbackBase string, allowedRedirects ...string) *SocialController {
	c := &SocialController{svc: svc, callbackBase: strings.TrimRight(callbackBase, "/")}
	for _, raw := range append([]string{c.callbackBase}, allowedRedirects...) {
		if u, err := url.Parse(strings.TrimSpace(raw)); err == nil && u.IsAbs() && u.Host != "" {
			c.allowed = append(c.allowed, u)
		}
	}
	return c
}

// redirectAllowed reports whether raw has the scheme and host of an allowed
// prefix and a path at or below the prefix path.
func (c *SocialController) redirectAllowed(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.User != nil || u.Fragment != "" {
		return false
	}
	if strings.Contains(u.Path, "..") {
		return false
	}
	for _, a := range c.allowed {
		if !strings.EqualFold(u.Scheme, a.Scheme) || !strings.EqualFold(u.Host, a.Host) {
			continue
		}
		base := strings.TrimRight(a.Path, "/")
		if base == "" || u.Path == base || strings.HasPrefix(u.Path, base+"/") {
			return true
		}
	}
	return false
}

type providerList struct {
	Providers []string `json:"providers"`
}

// List handles GET /login.
func (c *SocialController) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, providerList{Providers: c.svc.Providers()})
}

// Start handles GET /login/{provider}?redirect_uri=&user= and redirects to
// the provider. An explicit redirect_uri must pass redirectAllowed.
func (c *SocialController) Start(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	q := r.URL.Query()

	redirectURI := strings.TrimSpace(q.Get("redirect_uri"))
	if redirectURI == "" {
		if c.callbackBase == "" {
			writeError(w, r, httperrors.ErrMissingParameter.WithDetail("redirect_uri"))
			return
		}
		redirectURI = c.callbackBase + "/" + provider + "/callback"
	} else if !c.redirectAllowed(redirectURI) {
		writeError(w, r, httperrors.ErrInvalidRedirect)
		return
	}

	loginURL, _, err := c.svc.LoginURL(r.Context(), provider, redirectURI, strings.TrimSpace(q.Get("user")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, loginURL, http.StatusFound)
}

type profileResponse struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Email    string  `json:"email,omitempty"`
	Locale   *string `json:"locale,omitempty"`
	TimeZone *string `json:"timeZone,omitempty"`
}

type linkResponse struct {
	Provider        string          `json:"provider"`
	ForeignUserName string          `json:"foreignUserName"`
	UserName        *string         `json:"userName,omitempty"`
	Scopes          []string        `json:"scopes"`
	ExpiresAt       *time.Time      `json:"expiresAt,omitempty"`
	Profile         profileResponse `json:"profile"`
}

// Callback handles GET /login/{provider}/callback?code=&state=. Tokens are
// stored, never returned.
func (c *SocialController) Callback(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	q := r.URL.Query()
	log := logger.From(r.Context()).With(logger.Provider(provider), logger.Op("SocialController.Callback"))

	if e := q.Get("error"); e != "" {
		log.Info("provider denied login", logger.String("error", e))
		writeError(w, r, httperrors.ErrAuthenticationFailed.WithDetail(e))
		return
	}
	code, state := q.Get("code"), q.Get("state")
	if code == "" || state == "" {
		writeError(w, r, httperrors.ErrMissingParameter.WithDetail("code and state are required"))
		return
	}

	tok, prof, err := c.svc.Exchange(r.Context(), provider, code, state)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, linkResponse{
		Provider:        tok.Provider,
		ForeignUserName: tok.ForeignUserName,
		UserName:        tok.UserName,
		Scopes:          tok.Scopes,
		ExpiresAt:       tok.ExpiresAt,
		Profile: profileResponse{
			ID:       prof.ID,
			Name:     prof.Name,
			Email:    prof.Email,
			Locale:   prof.Locale,
			TimeZone: prof.TimeZone,
		},
	})
}
