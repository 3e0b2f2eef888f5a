// Package clientdetails assembles the trust information of a registered OAuth2
// client. Every call reads the registry; nothing is cached here.
package clientdetails

import (
	"context"
	"errors"
	"fmt"

	"github.com/bremersee/authman/internal/domain/repository"
	"github.com/bremersee/authman/internal/observability/logger"
)

// ClientDetails is a registered client together with its granted authorities.
type ClientDetails struct {
	ClientID             string         `json:"client_id"`
	Secret               string         `json:"-"`
	SecretEncrypted      bool           `json:"-"`
	GrantTypes           []string       `json:"authorized_grant_types"`
	Scopes               []string       `json:"scope"`
	AutoApproveScopes    []string       `json:"autoapprove,omitempty"`
	RedirectURIs         []string       `json:"redirect_uri,omitempty"`
	ResourceIDs          []string       `json:"resource_ids,omitempty"`
	AccessTokenValidity  int            `json:"access_token_validity,omitempty"`
	RefreshTokenValidity int            `json:"refresh_token_validity,omitempty"`
	Authorities          []string       `json:"authorities"`
	Additional           map[string]any `json:"additional_information,omitempty"`
}

// IsAutoApprove reports whether scope is approved without asking the user.
// The pseudo scope "true" approves everything.
func (d *ClientDetails) IsAutoApprove(scope string) bool {
	for _, s := range d.AutoApproveScopes {
		if s == "true" || s == scope {
			return true
		}
	}
	return false
}

// ClientNotFoundError reports an unregistered client id.
type ClientNotFoundError struct {
	ClientID string
}

func (e *ClientNotFoundError) Error() string {
	return fmt.Sprintf("no client with requested id: %s", e.ClientID)
}

// Provider loads client details from a registry.
type Provider struct {
	registry repository.ClientRegistry
}

func NewProvider(registry repository.ClientRegistry) *Provider {
	return &Provider{registry: registry}
}

// LoadClientDetails returns the client with its authorities. The authorities
// are resolved by the same lookup that serves users, keyed by the client id.
func (p *Provider) LoadClientDetails(ctx context.Context, clientID string) (*ClientDetails, error) {
	rec, err := p.registry.FindByClientID(ctx, clientID)
	if err != nil {
		if repository.IsNotFound(err) {
			logger.From(ctx).Debug("unknown client", logger.ClientID(clientID))
			return nil, &ClientNotFoundError{ClientID: clientID}
		}
		return nil, err
	}
	if rec == nil {
		return nil, &ClientNotFoundError{ClientID: clientID}
	}

	authorities, err := p.registry.FindGrantedAuthoritiesByUserName(ctx, clientID)
	if err != nil {
		return nil, err
	}

	return &ClientDetails{
		ClientID:             rec.ClientID,
		Secret:               rec.Secret,
		SecretEncrypted:      rec.SecretEncrypted,
		GrantTypes:           rec.GrantTypes,
		Scopes:               rec.Scopes,
		AutoApproveScopes:    rec.AutoApproveScopes,
		RedirectURIs:         rec.RedirectURIs,
		ResourceIDs:          rec.ResourceIDs,
		AccessTokenValidity:  rec.AccessTokenValidity,
		RefreshTokenValidity: rec.RefreshTokenValidity,
		Authorities:          authorities,
		Additional:           rec.Additional,
	}, nil
}

// IsClientNotFound reports whether err is a *ClientNotFoundError.
func IsClientNotFound(err error) bool {
	var e *ClientNotFoundError
	return errors.As(err, &e)
}
