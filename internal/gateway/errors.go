package gateway

import (
	"errors"
	"net/http"

	"inventory_admin/internal/pkg/envelope"
)

// genericFailure replaces a backend error body that carries no recognisable message.
const genericFailure = "Request failed"

// NetworkError is a transport failure: no response was received.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "Network Error" }

func (e *NetworkError) Unwrap() error { return e.Err }

// BackendError is a non-2xx response. Data is the decoded body, if it was JSON.
type BackendError struct {
	Status int
	Data   any
}

// Error returns the backend's message or error field verbatim, or a generic text.
func (e *BackendError) Error() string {
	if msg := envelope.MessageFrom(e.Data); msg != "" {
		return msg
	}
	return genericFailure
}

// ResponseData exposes the decoded body to envelope.ErrorMessage.
func (e *BackendError) ResponseData() any { return e.Data }

// AuthError is a successful transport-level response to an auth flow that carries
// no usable token or credential.
type AuthError struct {
	Message string
	Data    any
}

func (e *AuthError) Error() string { return e.Message }

// ResponseData exposes the decoded body to envelope.ErrorMessage.
func (e *AuthError) ResponseData() any { return e.Data }

// IsUnauthorized reports whether err means the backend rejected the credentials.
func IsUnauthorized(err error) bool {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return true
	}
	var backendErr *BackendError
	return errors.As(err, &backendErr) && backendErr.Status == http.StatusUnauthorized
}
