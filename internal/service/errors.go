package service

import (
	"errors"
	"fmt"

	"github.com/geocoder89/workerhub/internal/validation"
)

type Kind string

const (
	KindValidation     Kind = "validation_error"
	KindPermission     Kind = "permission_denied"
	KindNotFound       Kind = "not_found"
	KindAuthentication Kind = "authentication_failed"
)

// FieldError points a validation failure at one input field.
type FieldError = validation.FieldError

// Error is returned for every outcome the caller is expected to handle. Anything else
// coming out of the service is an infrastructure failure.
type Error struct {
	Kind   Kind
	Detail string
	Fields []FieldError
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func validationError(detail string, fields ...FieldError) *Error {
	return &Error{Kind: KindValidation, Detail: detail, Fields: fields}
}

func permissionError(detail string) *Error {
	return &Error{Kind: KindPermission, Detail: detail}
}

func notFoundError(detail string) *Error {
	return &Error{Kind: KindNotFound, Detail: detail}
}

func authenticationError(detail string) *Error {
	return &Error{Kind: KindAuthentication, Detail: detail}
}

// KindOf reports the taxonomy kind of err, if it has one.
func KindOf(err error) (Kind, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return "", false
}

func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

const (
	detailBadCredentials   = "No active account found with the given credentials"
	detailBadRefreshToken  = "Token is invalid or expired"
	detailProjectNotFound  = "Project not found"
	detailNoProjectsByName = "No project found with that name"
	detailResetLinkInvalid = "Invalid or expired reset link"
	detailResetSent        = "If an account with that email exists, a password reset link has been sent."
	detailResetComplete    = "Password has been reset successfully."
)
