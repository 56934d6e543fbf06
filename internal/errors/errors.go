package errors

import (
	"errors"
	"fmt"
)

// Common error types for the ShareYourSales client
var (
	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingCredentials = errors.New("email and password are required")
	ErrSessionExpired     = errors.New("session expired")
	ErrNoSession          = errors.New("no active session")

	// Token errors
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Credential store errors
	ErrNoStoredCredentials = errors.New("no stored credentials")
	ErrCorruptCredentials  = errors.New("stored credentials are corrupt")

	// Transport errors
	ErrChannelClosed  = errors.New("live channel closed")
	ErrRequestFailed  = errors.New("request failed")
	ErrDecodeResponse = errors.New("malformed server response")

	// General errors
	ErrNotFound = errors.New("not found")
	ErrInternal = errors.New("internal error")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
