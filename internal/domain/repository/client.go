package repository

import "context"

// ClientRecord is a registered OAuth2 client as stored in the registry.
type ClientRecord struct {
	ClientID string
	Secret   string
	// SecretEncrypted marks Secret as secretbox ciphertext; otherwise it is plain text.
	SecretEncrypted bool

	GrantTypes           []string
	Scopes               []string
	AutoApproveScopes    []string
	RedirectURIs         []string
	ResourceIDs          []string
	AccessTokenValidity  int // seconds, 0 = server default
	RefreshTokenValidity int // seconds, 0 = server default
	Additional           map[string]any
}

// ClientRegistry is the read side of the client registry.
// Clients and users share the authority lookup.
type ClientRegistry interface {
	// FindByClientID returns ErrNotFound when the client is not registered.
	FindByClientID(ctx context.Context, clientID string) (*ClientRecord, error)

	// FindGrantedAuthoritiesByUserName returns the authorities (roles) of a user or client.
	FindGrantedAuthoritiesByUserName(ctx context.Context, name string) ([]string, error)
}
