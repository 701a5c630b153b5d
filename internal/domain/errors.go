package domain

import (
	"errors"
	"fmt"
)

var (
	ErrConfig               = errors.New("configuration error")
	ErrRoutingAmbiguous     = errors.New("routing ambiguous")
	ErrEndpointFormat       = errors.New("endpoint completion format error")
	ErrAuthFailure          = errors.New("authentication failure")
	ErrTransport            = errors.New("transport error")
	ErrBackend              = errors.New("backend error")
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionManagerClosed = errors.New("session manager closed")
)

type AuthError struct {
	StatusCode int
	Body       string
	Reason     string
}

func (e *AuthError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("authentication failed: %s", e.Reason)
	}
	return fmt.Sprintf("authentication failed: status %d: %s", e.StatusCode, e.Body)
}

func (e *AuthError) Unwrap() error {
	return ErrAuthFailure
}

type BackendError struct {
	StatusCode int
	Body       string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Body)
}

func (e *BackendError) Unwrap() error {
	return ErrBackend
}

func ConfigError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}
