// Package memory implements the repository interfaces with maps guarded by
// RWMutexes. It backs the memory storage driver and the package tests; data
// does not survive a restart.
package memory

import "github.com/bremersee/authman/internal/domain/repository"

// Store bundles the in-memory repositories.
type Store struct {
	approvals *ApprovalRepo
	clients   *ClientRegistry
	tokens    *ForeignTokenRepo
}

func New() *Store {
	return &Store{
		approvals: NewApprovalRepo(),
		clients:   NewClientRegistry(),
		tokens:    NewForeignTokenRepo(),
	}
}

func (s *Store) Approvals() repository.ApprovalRepository         { return s.approvals }
func (s *Store) Clients() repository.ClientRegistry               { return s.clients }
func (s *Store) ForeignTokens() repository.ForeignTokenRepository { return s.tokens }

// ClientRegistry returns the concrete registry so callers can seed it.
func (s *Store) ClientRegistry() *ClientRegistry { return s.clients }

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}
