package oauth

import (
	"errors"
	"fmt"
	"net/http"
)

// Errors returned by the authentication client and by authenticated calls
var (
	// ErrBadConfiguration indicates required credential fields are missing.
	// It is detected locally and never sent over the wire.
	ErrBadConfiguration = errors.New("bad configuration")

	// ErrInvalidCredentials indicates the username/password pair was rejected
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNotAuthorized indicates an authenticated call was rejected.
	// Callers receiving it should flag the current token as invalid.
	ErrNotAuthorized = errors.New("not authorized")
)

// RequestError is returned for any other non-success response
type RequestError struct {
	StatusCode int
	Status     string
}

func (e *RequestError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("request failed: %s", e.Status)
	}
	return fmt.Sprintf("request failed: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// StatusError maps an HTTP status code onto the error taxonomy.
// It returns nil for 2xx codes.
func StatusError(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusBadRequest:
		return ErrInvalidCredentials
	case code == http.StatusUnauthorized:
		return ErrNotAuthorized
	default:
		return &RequestError{StatusCode: code}
	}
}

// IsNotAuthorized reports whether err is an authorization rejection
func IsNotAuthorized(err error) bool {
	return errors.Is(err, ErrNotAuthorized)
}
