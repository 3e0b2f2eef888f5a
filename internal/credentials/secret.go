package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/bremersee/authman/internal/domain/repository"
	"github.com/bremersee/authman/internal/security/secretbox"
)

// SecretSource resolves the client secret used for HTTP Basic authentication.
type SecretSource interface {
	Secret(ctx context.Context) (string, error)
}

// StaticSecret is a secret taken from configuration.
type StaticSecret string

func (s StaticSecret) Secret(context.Context) (string, error) { return string(s), nil }

// RegistrySecret looks the secret up in the client registry on every token
// request, so rotated secrets are picked up without a restart.
type RegistrySecret struct {
	Registry repository.ClientRegistry
	ClientID string
	// Box decrypts secrets the registry marks as encrypted.
	Box *secretbox.Box
}

func (s RegistrySecret) Secret(ctx context.Context) (string, error) {
	rec, err := s.Registry.FindByClientID(ctx, s.ClientID)
	if err != nil {
		return "", fmt.Errorf("lookup client %s: %w", s.ClientID, err)
	}
	if !rec.SecretEncrypted {
		return rec.Secret, nil
	}
	if s.Box == nil {
		return "", errors.New("client secret is encrypted but no secretbox key is configured")
	}
	pt, err := s.Box.Decrypt(rec.Secret)
	if err != nil {
		return "", fmt.Errorf("decrypt secret of client %s: %w", s.ClientID, err)
	}
	return pt, nil
}
