// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 YoungCoder Contributors

package auth

import (
	"errors"

	"github.com/samber/oops"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrEmailTaken is returned by a UserRepository when the email is already registered.
var ErrEmailTaken = errors.New("email already registered")

// ErrInvalidToken is wrapped by every TokenCodec verification failure.
var ErrInvalidToken = errors.New("invalid session token")

// Error codes surfaced to callers. Anything else is an internal fault.
const (
	CodeValidation         = "AUTH_VALIDATION_FAILED"
	CodeUserExists         = "AUTH_USER_EXISTS"
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeNoToken            = "AUTH_NO_TOKEN"
	CodeUnauthenticated    = "AUTH_UNAUTHENTICATED"
	CodeInvalidToken       = "AUTH_INVALID_TOKEN"
)

// detailsKey is the oops context key holding []FieldError.
const detailsKey = "details"

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// NewValidationError reports invalid input with per-field details.
func NewValidationError(details ...FieldError) error {
	return oops.Code(CodeValidation).
		With(detailsKey, details).
		Errorf("invalid input data")
}

// PasswordTooLong is the field error for a password over MaxPasswordBytes.
func PasswordTooLong() FieldError {
	return FieldError{Field: "password", Message: "Password must be at most 72 bytes"}
}

// ValidationDetails returns the field errors carried by a validation error.
func ValidationDetails(err error) []FieldError {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}
	details, _ := oopsErr.Context()[detailsKey].([]FieldError)
	return details
}

func errUserExists(email string) error {
	return oops.Code(CodeUserExists).With("email", email).Errorf("user already exists")
}

func errInvalidCredentials() error {
	return oops.Code(CodeInvalidCredentials).Errorf("invalid email or password")
}

func errNoToken() error {
	return oops.Code(CodeNoToken).Errorf("no session token")
}

// errUnauthenticated is the single failure for every bad session. The reason
// is for logs only and never changes what the caller sees.
func errUnauthenticated(reason string) error {
	return oops.Code(CodeUnauthenticated).With("reason", reason).Errorf("invalid or expired session")
}
