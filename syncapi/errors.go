package syncapi

import (
	"errors"
	"fmt"
)

// ErrInvalidToken is returned when the server answers 401 to a sync token.
var ErrInvalidToken = errors.New("syncapi: invalid sync token")

// ServerError is returned when the server answers with an unexpected status.
type ServerError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *ServerError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("syncapi: %s: server error %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("syncapi: %s: server error %d: %s", e.Op, e.StatusCode, e.Body)
}

// NetworkError is returned when the request never produced a response:
// DNS failure, refused connection, timeout.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("syncapi: %s: failed to connect: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }
