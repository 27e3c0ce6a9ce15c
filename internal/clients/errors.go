package clients

import (
	"errors"
	"fmt"
)

var (
	// ErrRemoteUnavailable is returned when the catalog service cannot be reached.
	ErrRemoteUnavailable = errors.New("catalog service unavailable")

	// ErrRemoteRejected is returned when the catalog service answered with a
	// non-2xx status.
	ErrRemoteRejected = errors.New("catalog service rejected the request")

	// ErrDecode is returned when a catalog response cannot be parsed into coffees.
	ErrDecode = errors.New("failed to decode catalog response")
)

// RejectedError carries the status and body text of a declined request.
type RejectedError struct {
	Op         string
	StatusCode int
	Detail     string
}

func (e *RejectedError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %s: status %d", e.Op, ErrRemoteRejected, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s: status %d: %s", e.Op, ErrRemoteRejected, e.StatusCode, e.Detail)
}

func (e *RejectedError) Unwrap() error {
	return ErrRemoteRejected
}
