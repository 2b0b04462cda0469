package downloader

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
)

var (
	// ErrMissingID is returned when a feature has no string or numeric id.
	ErrMissingID = errors.New("downloader: feature has no usable id")
	// ErrMissingProductHref is returned when assets→PRODUCT→href is absent.
	ErrMissingProductHref = errors.New("downloader: feature has no product href")
	// ErrTimeout is matched by any download that ran past its deadline.
	ErrTimeout = errors.New("downloader: download timed out")
	// ErrWriteFailed is matched by a *WriteError that is not a timeout.
	ErrWriteFailed = errors.New("downloader: write failed")
	// ErrTransport covers requests that never produced a response.
	ErrTransport = errors.New("downloader: request failed")
)

// StatusError is returned when the download server answers with a
// non-success status.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("downloader: server rejected %s with status %d", e.URL, e.Status)
}

// WriteError reports a copy that stopped early. The partial file at Path is
// left on disk and holds BytesWritten bytes.
type WriteError struct {
	Path         string
	BytesWritten uint64
	Err          error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("downloader: %s: stopped after %d bytes: %v", e.Path, e.BytesWritten, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Is matches ErrWriteFailed unless the copy was cut short by a timeout.
func (e *WriteError) Is(target error) bool {
	return target == ErrWriteFailed && !errors.Is(e.Err, ErrTimeout)
}

// IsWriteFailed reports whether err is a write failure other than a timeout.
func IsWriteFailed(err error) bool {
	return errors.Is(err, ErrWriteFailed)
}

// BytesWritten returns the partial byte count carried by err, if any.
func BytesWritten(err error) (uint64, bool) {
	var we *WriteError
	if errors.As(err, &we) {
		return we.BytesWritten, true
	}
	return 0, false
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
