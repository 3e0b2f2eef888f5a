// Package runas executes an operation under a synthetic principal and restores
// the previous identity afterwards, whether the operation returns normally,
// fails or panics.
//
// Two forms are provided. Holder is an explicit identity slot owned by one
// execution context (a job, a worker); RunAs swaps its content with strict
// save and restore. The context form derives a child context carrying the
// principal, so the caller's context is never changed at all.
package runas

import (
	"context"
	"sync"
)

// Principal is a caller identity: a name plus its roles.
type Principal struct {
	Name  string
	Roles []string
}

// HasRole reports whether p carries role.
func (p *Principal) HasRole(role string) bool {
	if p == nil {
		return false
	}
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// System is the identity maintenance jobs run as.
var System = Principal{Name: "system", Roles: []string{"ROLE_SYSTEM", "ROLE_ADMIN"}}

// =================================================================================
// HOLDER
// =================================================================================

// Holder keeps the current identity of one execution context. The zero value
// holds no identity. Sharing one Holder between goroutines that run as
// different principals at the same time is a misuse: the slot is single.
type Holder struct {
	mu      sync.Mutex
	current *Principal
}

// Current returns a copy of the held identity, nil when anonymous.
func (h *Holder) Current() *Principal {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current == nil {
		return nil
	}
	p := *h.current
	p.Roles = append([]string(nil), h.current.Roles...)
	return &p
}

// Set replaces the held identity; nil clears it.
func (h *Holder) Set(p *Principal) {
	h.mu.Lock()
	h.current = p
	h.mu.Unlock()
}

func (h *Holder) swap(p *Principal) (prev *Principal) {
	h.mu.Lock()
	prev, h.current = h.current, p
	h.mu.Unlock()
	return prev
}

// RunAs runs fn with p installed in h. The previous identity is restored when
// fn returns or panics; nested calls restore the enclosing identity.
func RunAs(h *Holder, p Principal, fn func() error) error {
	p.Roles = append([]string(nil), p.Roles...)
	prev := h.swap(&p)
	defer h.swap(prev)
	return fn()
}

// Call is RunAs for operations that produce a value.
func Call[T any](h *Holder, p Principal, fn func() (T, error)) (T, error) {
	var out T
	err := RunAs(h, p, func() error {
		var err error
		out, err = fn()
		return err
	})
	return out, err
}

// =================================================================================
// CONTEXT
// =================================================================================

type ctxKey struct{}

// WithPrincipal returns a child of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	p.Roles = append([]string(nil), p.Roles...)
	return context.WithValue(ctx, ctxKey{}, &p)
}

// FromContext returns the principal carried by ctx.
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(*Principal)
	return p, ok && p != nil
}

// RunAsContext runs fn with a context carrying p. The caller's ctx keeps its
// own principal, so restoration is implicit.
func RunAsContext(ctx context.Context, p Principal, fn func(ctx context.Context) error) error {
	return fn(WithPrincipal(ctx, p))
}
