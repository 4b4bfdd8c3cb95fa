package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Error constants.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrBaseURL      = errors.New("invalid base url")
	ErrDecode       = errors.New("decode response")
	ErrToken        = errors.New("token source failed")
)

// ResponseError is returned when the API answers with a failure envelope or
// a non-2xx status.
type ResponseError struct {
	Status  int
	Code    int
	Kind    string
	Message string
}

func (e *ResponseError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Kind, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Unwrap lets callers test 401 responses with errors.Is(err, ErrUnauthorized).
func (e *ResponseError) Unwrap() error {
	if e.Status == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}
