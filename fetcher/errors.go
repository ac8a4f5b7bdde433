package fetcher

import (
	"fmt"

	"golang.org/x/xerrors"
)

// TransientFetchError is returned when a page request fails in a way the
// caller may legitimately retry: transport errors, 5xx and rate-limit
// responses, undecodable bodies or an expired context. FetchAll returns it
// together with the records collected before the failure.
type TransientFetchError struct {
	// Page is the zero-based index of the failed page request.
	Page int
	// StatusCode is zero when no response was received.
	StatusCode int
	Err        error
}

func (e *TransientFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transient fetch error on page %d (status %d): %v", e.Page, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("transient fetch error on page %d: %v", e.Page, e.Err)
}

func (e *TransientFetchError) Unwrap() error { return e.Err }

// FatalFetchError is returned when the service rejects the query itself
// (4xx other than rate limiting). No records accompany it.
type FatalFetchError struct {
	Page       int
	StatusCode int
	Err        error
}

func (e *FatalFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fatal fetch error on page %d (status %d): %v", e.Page, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fatal fetch error on page %d: %v", e.Page, e.Err)
}

func (e *FatalFetchError) Unwrap() error { return e.Err }

// IsTransient reports whether err carries a TransientFetchError.
func IsTransient(err error) bool {
	var tErr *TransientFetchError
	return xerrors.As(err, &tErr)
}

// IsFatal reports whether err carries a FatalFetchError.
func IsFatal(err error) bool {
	var fErr *FatalFetchError
	return xerrors.As(err, &fErr)
}

// classifyStatus maps a non-200 response to the matching error type.
func classifyStatus(page, status int, body []byte) error {
	cause := xerrors.Errorf("unexpected response status %d: %s", status, body)
	if status >= 400 && status < 500 && status != 429 {
		return &FatalFetchError{Page: page, StatusCode: status, Err: cause}
	}
	return &TransientFetchError{Page: page, StatusCode: status, Err: cause}
}
