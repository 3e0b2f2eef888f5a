package providers

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps provider ids to provider variants.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider. The id must be non-empty and unique.
func (r *Registry) Register(p Provider) error {
	if err := p.Config.Validate(); err != nil {
		return err
	}
	if p.Parse == nil {
		return fmt.Errorf("providers: %s: no profile parser", p.Config.ID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.providers[p.Config.ID]; dup {
		return fmt.Errorf("providers: duplicate provider id %q", p.Config.ID)
	}
	p.Config = p.Config.Clone()
	r.providers[p.Config.ID] = p
	return nil
}

// Get returns a copy of the provider registered under id.
func (r *Registry) Get(id string) (Provider, bool) {
	r.mu.RLock()
	p, ok := r.providers[id]
	r.mu.RUnlock()
	if !ok {
		return Provider{}, false
	}
	p.Config = p.Config.Clone()
	return p, true
}

// Parse decodes raw with the parser of provider id.
func (r *Registry) Parse(id string, raw []byte) (*Profile, error) {
	p, ok := r.Get(id)
	if !ok {
		return nil, &ProfileParseError{Provider: id, Reason: "unknown provider"}
	}
	return p.Parse(raw)
}

// AvailableProviders returns the registered ids, sorted.
func (r *Registry) AvailableProviders() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
