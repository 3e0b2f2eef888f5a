package social

import (
	"errors"
	"fmt"
)

// ErrUnknownProvider reports a provider id without a registered variant.
var ErrUnknownProvider = errors.New("unknown provider")

// OAuth2AuthenticationError reports a failed step of the foreign login.
// Status is the provider's HTTP status when the failure came with one.
type OAuth2AuthenticationError struct {
	Provider string
	Status   int
	Err      error
}

func (e *OAuth2AuthenticationError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("oauth2 authentication with %s failed (status %d): %v", e.Provider, e.Status, e.Err)
	}
	return fmt.Sprintf("oauth2 authentication with %s failed: %v", e.Provider, e.Err)
}

func (e *OAuth2AuthenticationError) Unwrap() error { return e.Err }

func authError(provider string, status int, err error) error {
	return &OAuth2AuthenticationError{Provider: provider, Status: status, Err: err}
}
