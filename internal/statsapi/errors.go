package statsapi

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the service answers 404, or
	// answers successfully without the requested data
	ErrNotFound = errors.New("stats api: not found")
	// ErrBadRequest is returned when the service answers 400
	ErrBadRequest = errors.New("stats api: bad request")
)

// UpstreamError covers every other failure: transport errors,
// unexpected status codes and undecodable payloads
type UpstreamError struct {
	Operation string
	Status    int
	Err       error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("stats api %s failed (status %d): %v", e.Operation, e.Status, e.Err)
	}
	return fmt.Sprintf("stats api %s failed with status %d", e.Operation, e.Status)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
