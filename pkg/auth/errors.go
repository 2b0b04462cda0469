package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCredential is matched when a token request was sent without a
	// username or password and the provider rejected it.
	ErrMissingCredential = errors.New("auth: missing username or password")
	// ErrTransport covers failures to reach the provider or to read its
	// response.
	ErrTransport = errors.New("auth: identity provider request failed")
)

// ProviderError is returned when the identity provider answers with a
// non-success status.
type ProviderError struct {
	Status int
	Body   string
	// Anonymous is set when the request carried no credentials.
	Anonymous bool
}

func (e *ProviderError) Error() string {
	if e.Anonymous {
		return fmt.Sprintf("auth: identity provider rejected request without credentials (status %d): %s", e.Status, e.Body)
	}
	return fmt.Sprintf("auth: identity provider rejected request (status %d): %s", e.Status, e.Body)
}

func (e *ProviderError) Unwrap() error {
	if e.Anonymous {
		return ErrMissingCredential
	}
	return nil
}
