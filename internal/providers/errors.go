package providers

import "fmt"

// ProfileParseError reports a profile payload that does not have the
// provider's expected shape.
type ProfileParseError struct {
	Provider string
	Reason   string
	Err      error
}

func (e *ProfileParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %s profile: %s: %v", e.Provider, e.Reason, e.Err)
	}
	return fmt.Sprintf("parse %s profile: %s", e.Provider, e.Reason)
}

func (e *ProfileParseError) Unwrap() error { return e.Err }

// Malformed builds a ProfileParseError for undecodable JSON.
func Malformed(provider string, err error) error {
	return &ProfileParseError{Provider: provider, Reason: "malformed payload", Err: err}
}

// MissingField builds a ProfileParseError for an absent mandatory field.
func MissingField(provider, field string) error {
	return &ProfileParseError{Provider: provider, Reason: "missing mandatory field " + field}
}
