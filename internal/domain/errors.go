package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors surfaced to handlers. Authentication failures are kept
// generic so the API does not leak which part of a credential was wrong.
var (
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrAccountInactive       = errors.New("account is inactive")
	ErrInvalidCode           = errors.New("invalid MFA code")
	ErrInvalidSession        = errors.New("invalid or expired session")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired invitation token")
	ErrDuplicateInvitation   = errors.New("invitation already sent to this email")
	ErrEmailTaken            = errors.New("email already in use")
	ErrLastAdmin             = errors.New("cannot remove the last admin")
	ErrAdminExists           = errors.New("admin already exists")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrNotFound              = errors.New("not found")
	ErrCodeDelivery          = errors.New("failed to deliver MFA code")
	ErrPhoneMissing          = errors.New("no phone number on file")
)

// ValidationError carries field-level messages for 422 responses.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

func (e *ValidationError) Add(field, msg string) {
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

func (e *ValidationError) OrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
