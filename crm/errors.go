// ABOUTME: Error taxonomy for CRM calls
// ABOUTME: NetworkError and 5xx ServerError are retryable, ValidationError is terminal
package crm

import (
	"errors"
	"fmt"
)

// NetworkError covers connectivity failures and request timeouts.
// Always retryable.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("crm network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServerError is a non-2xx response with a server-generated body.
// Retryable when the status is 5xx.
type ServerError struct {
	Status int
	Body   string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("crm server error: status %d: %s", e.Status, e.Body)
}

// ValidationError is a 4xx indicating a malformed payload. Never
// retried; retrying the same payload cannot succeed.
type ValidationError struct {
	Status int
	Body   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("crm rejected payload: status %d: %s", e.Status, e.Body)
}

// IsRetryable reports whether the submission queue should retry after
// err.
func IsRetryable(err error) bool {
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return true
	}
	var srvErr *ServerError
	if errors.As(err, &srvErr) {
		return srvErr.Status >= 500
	}
	return false
}
