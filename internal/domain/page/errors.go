package page

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("page controller closed")
	// ErrNoResponseType means no option list has been loaded yet.
	ErrNoResponseType = errors.New("no response type selected")
	// ErrUnknownResponseType rejects a selection missing from the loaded list.
	ErrUnknownResponseType = errors.New("unknown response type")
	// ErrNoResponseTypes means the backend returned an empty option list.
	ErrNoResponseTypes = errors.New("backend returned no response types")
	// ErrSuperseded means a newer request owns the response container.
	ErrSuperseded = errors.New("request superseded by a newer one")
)

// StatusError is a non-2xx answer from the backend.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Server responded with %d: %s", e.StatusCode, e.Body)
}

// StatusCodeOf extracts the backend status code, 0 when err is not a StatusError.
func StatusCodeOf(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}
