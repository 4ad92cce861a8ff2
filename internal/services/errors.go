package services

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation wraps every input error; handlers map it to 400.
	ErrValidation = errors.New("invalid request")
	// ErrMailerDisabled is returned when email delivery is not configured.
	ErrMailerDisabled = errors.New("email delivery is not configured")
	// ErrNoEmail is returned when a resident has no email address on file.
	ErrNoEmail = errors.New("resident has no email address")
	// ErrNoToken is returned when a resident has never been issued a token.
	ErrNoToken = errors.New("resident has no issued token")
	// ErrTokenActive is returned when a resident already holds a usable token.
	ErrTokenActive = errors.New("resident already has an active token")
	// ErrStorageDisabled is returned for uploads when no object storage is configured.
	ErrStorageDisabled = errors.New("object storage is not configured")
	// ErrInvalidCredentials is returned by login for an unknown email or wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("forbidden")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
