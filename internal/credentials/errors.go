package credentials

import "fmt"

// UnauthorizedClientError reports a failed token acquisition. Status is the
// token endpoint's HTTP status, 0 when the request never got a response.
type UnauthorizedClientError struct {
	ClientID string
	Status   int
	Err      error
}

func (e *UnauthorizedClientError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("unauthorized client %s: token endpoint returned %d: %v", e.ClientID, e.Status, e.Err)
	}
	return fmt.Sprintf("unauthorized client %s: %v", e.ClientID, e.Err)
}

func (e *UnauthorizedClientError) Unwrap() error { return e.Err }
