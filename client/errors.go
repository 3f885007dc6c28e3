package client

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// The client surfaces exactly three error kinds, and they propagate unchanged
// through the cache and mutation layers:
//
//   - NetworkError:    transport failure, no HTTP response was received
//   - ServerError:     non-2xx response, carries status and server detail
//   - ValidationError: client-side schema rejection, never reaches the network

// NetworkError wraps a transport-level failure.
type NetworkError struct {
	Op  string // method + path, e.g. "GET /products/42"
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServerError is a non-2xx response from the backend.
type ServerError struct {
	Op        string
	Status    int
	Detail    string // server-reported message, may be empty
	RequestID string // X-Request-ID echoed for correlation
}

func (e *ServerError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("server error: %s: %d %s: %s", e.Op, e.Status, http.StatusText(e.Status), e.Detail)
	}
	return fmt.Sprintf("server error: %s: %d %s", e.Op, e.Status, http.StatusText(e.Status))
}

// ValidationError is a client-side rejection of an input payload. The request
// was never issued.
type ValidationError struct {
	Op     string
	Fields map[string]string // field name -> violated rule
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %v", e.Op, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// newValidationError flattens validator.v10 output into per-field rules.
func newValidationError(op string, err error) *ValidationError {
	ve := &ValidationError{Op: op, Fields: make(map[string]string), Err: err}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			ve.Fields[fe.Field()] = fe.Tag()
		}
	}
	return ve
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var se *ServerError
	return errors.As(err, &se) && se.Status == http.StatusNotFound
}
