package jira

import (
	"errors"
	"fmt"
)

// Sentinel errors reported by the Jira operations.
var (
	// ErrTransport indicates the request never produced an HTTP response.
	ErrTransport = errors.New("error performing request")

	// ErrInvalidQuery indicates the server rejected a search query (HTTP 400).
	ErrInvalidQuery = errors.New("invalid JQL")

	// ErrRequestRejected indicates the server answered with a status the
	// operation does not accept.
	ErrRequestRejected = errors.New("request rejected")

	// ErrInvalidLocalRequest indicates an inbound message missed required
	// fields. It is raised before any network call.
	ErrInvalidLocalRequest = errors.New("invalid message received")
)

// OperationError describes a failed Jira operation.
type OperationError struct {
	// Op is the operation that failed (e.g., "search", "edit").
	Op Operation

	// StatusCode is the HTTP status, zero for transport failures.
	StatusCode int

	// Body is the response body, if any.
	Body []byte

	// Err is one of the sentinel errors, possibly wrapping a transport error.
	Err error
}

// Error implements the error interface.
func (e *OperationError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("jira %s failed: %v", e.Op, e.Err)
	}
	if len(e.Body) == 0 {
		return fmt.Sprintf("jira %s failed (%d): %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("jira %s failed (%d): %v: %s", e.Op, e.StatusCode, e.Err, e.Body)
}

// Unwrap returns the underlying error.
func (e *OperationError) Unwrap() error {
	return e.Err
}

// transportError wraps a transport failure so that it matches ErrTransport
// while keeping the original cause reachable.
type transportError struct {
	cause error
}

func (e *transportError) Error() string {
	return fmt.Sprintf("%v: %v", ErrTransport, e.cause)
}

func (e *transportError) Unwrap() []error {
	return []error{ErrTransport, e.cause}
}

// IsInvalidQuery reports whether err is a rejected search query.
func IsInvalidQuery(err error) bool {
	return errors.Is(err, ErrInvalidQuery)
}

// IsTransport reports whether err is a transport failure.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}

// IsRejected reports whether err is a non-accepted HTTP status.
func IsRejected(err error) bool {
	return errors.Is(err, ErrRequestRejected) || errors.Is(err, ErrInvalidQuery)
}

// StatusCode extracts the HTTP status from err, or zero.
func StatusCode(err error) int {
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr.StatusCode
	}
	return 0
}
