package client

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport is matched by network and body-read failures.
	ErrTransport = errors.New("client: transport failure")
	// ErrMalformedResponse is matched by responses that are not a usable
	// catalogue document.
	ErrMalformedResponse = errors.New("client: malformed response")
	// ErrResponseTooLarge is returned when a body exceeds the client's size
	// limit. Nothing of such a body is parsed.
	ErrResponseTooLarge = errors.New("client: response too large")
	// ErrPaginationLoop is returned when a "next" link leads back to a page
	// that was already fetched.
	ErrPaginationLoop = errors.New("client: pagination loop detected")
)

// ResponseError reports a catalogue response that could not be used. The raw
// body is kept because the upstream schema is not guaranteed.
type ResponseError struct {
	URL    string
	Status int
	Body   []byte
	Err    error
}

func (e *ResponseError) Error() string {
	const limit = 512
	body := string(e.Body)
	if len(body) > limit {
		body = body[:limit] + "..."
	}
	return fmt.Sprintf("client: malformed response from %s (status %d): %v: %s", e.URL, e.Status, e.Err, body)
}

func (e *ResponseError) Unwrap() []error {
	return []error{ErrMalformedResponse, e.Err}
}
