package memory

import (
	"context"
	"sync"

	"github.com/bremersee/authman/internal/domain/repository"
)

type ClientRegistry struct {
	mu          sync.RWMutex
	clients     map[string]repository.ClientRecord
	authorities map[string][]string
}

func NewClientRegistry() *ClientRegistry {
	return &ClientRegistry{
		clients:     make(map[string]repository.ClientRecord),
		authorities: make(map[string][]string),
	}
}

// Put registers or replaces a client.
func (r *ClientRegistry) Put(c repository.ClientRecord) {
	r.mu.Lock()
	r.clients[c.ClientID] = c
	r.mu.Unlock()
}

// Remove unregisters a client. Its authorities are kept.
func (r *ClientRegistry) Remove(clientID string) {
	r.mu.Lock()
	delete(r.clients, clientID)
	r.mu.Unlock()
}

// Grant sets the authorities of a user or client name.
func (r *ClientRegistry) Grant(name string, authorities ...string) {
	r.mu.Lock()
	r.authorities[name] = cloneStrings(authorities)
	r.mu.Unlock()
}

func (r *ClientRegistry) FindByClientID(_ context.Context, clientID string) (*repository.ClientRecord, error) {
	r.mu.RLock()
	c, ok := r.clients[clientID]
	r.mu.RUnlock()
	if !ok {
		return nil, repository.ErrNotFound
	}
	c.GrantTypes = cloneStrings(c.GrantTypes)
	c.Scopes = cloneStrings(c.Scopes)
	c.AutoApproveScopes = cloneStrings(c.AutoApproveScopes)
	c.RedirectURIs = cloneStrings(c.RedirectURIs)
	c.ResourceIDs = cloneStrings(c.ResourceIDs)
	if c.Additional != nil {
		add := make(map[string]any, len(c.Additional))
		for k, v := range c.Additional {
			add[k] = v
		}
		c.Additional = add
	}
	return &c, nil
}

func (r *ClientRegistry) FindGrantedAuthoritiesByUserName(_ context.Context, name string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneStrings(r.authorities[name]), nil
}
