package domain

import (
	"errors"
	"fmt"
)

// ErrEmptyBody is returned when an endpoint answers 2xx without a body
var ErrEmptyBody = errors.New("empty response body")

// Unreachable wraps transport level failures (DNS, connect, IO)
type Unreachable struct {
	Err error
}

func (u Unreachable) Error() string {
	return u.Err.Error()
}

func (u Unreachable) Unwrap() error {
	return u.Err
}

// HTTPError wraps a non-2xx answer from either endpoint
type HTTPError struct {
	Code int
}

func (h HTTPError) Error() string {
	return fmt.Sprintf("unexpected http status %d", h.Code)
}

// TransformError wraps a failure to rewrite the results document
type TransformError struct {
	Err error
}

func (t TransformError) Error() string {
	return t.Err.Error()
}

func (t TransformError) Unwrap() error {
	return t.Err
}
