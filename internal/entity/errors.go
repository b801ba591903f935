package entity

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a static asset cannot be read
	ErrNotFound = errors.New("not found")

	// ErrBadRequest is returned when the fetch request body is invalid
	ErrBadRequest = errors.New("bad request")

	// ErrForbiddenTarget is returned when the fetch target is not in the catalog
	ErrForbiddenTarget = errors.New("feed source is not in the catalog")

	// ErrBodyTooLarge is returned when an upstream document exceeds the configured size
	ErrBodyTooLarge = errors.New("response body too large")
)

// UpstreamError describes a failed fetch of a feed source
type UpstreamError struct {
	URL string
	// HTTP status returned by the upstream, 0 when no response was received.
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream %s responded with status %d: %v", e.URL, e.StatusCode, e.Err)
	}

	return fmt.Sprintf("could not fetch upstream %s: %v", e.URL, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the fetch was aborted by a deadline
func (e *UpstreamError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}

	var te interface{ Timeout() bool }

	return errors.As(e.Err, &te) && te.Timeout()
}

// MalformedFeedError is returned when a document is not the expected RSS shape
type MalformedFeedError struct {
	Reason string
	Err    error
}

func (e *MalformedFeedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed feed: %s: %v", e.Reason, e.Err)
	}

	return "malformed feed: " + e.Reason
}

func (e *MalformedFeedError) Unwrap() error {
	return e.Err
}
