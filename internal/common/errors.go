package common

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies failures into the HTTP error taxonomy.
type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindPersistence
)

// Status maps a kind to its HTTP status code.
func (k ErrorKind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// AppError is a domain error carrying a stable code. Two AppErrors match under
// errors.Is when their codes are equal, so WithMessage keeps identity.
type AppError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

// WithMessage returns a copy of e with a more specific message.
func (e *AppError) WithMessage(msg string) *AppError {
	cp := *e
	cp.Message = msg
	return &cp
}

// Wrap returns a copy of e that records cause.
func (e *AppError) Wrap(cause error) *AppError {
	cp := *e
	cp.Err = cause
	return &cp
}

func New(kind ErrorKind, code, message string) *AppError {
	return &AppError{Kind: kind, Code: code, Message: message}
}

var (
	ErrInvalidToken         = New(KindAuthentication, "INVALID_TOKEN", "Invalid or expired token")
	ErrRevokedToken         = New(KindAuthentication, "REVOKED_TOKEN", "Token revoked")
	ErrMissingToken         = New(KindAuthentication, "MISSING_TOKEN", "Not authorized, no token")
	ErrInvalidCredentials   = New(KindAuthentication, "INVALID_CREDENTIALS", "Invalid email or password")
	ErrForbidden            = New(KindAuthorization, "FORBIDDEN", "Access denied")
	ErrNotFound             = New(KindNotFound, "NOT_FOUND", "Resource not found")
	ErrMunicipalityNotFound = New(KindValidation, "MUNICIPALITY_NOT_FOUND", "Municipality not found")
	ErrInvalidDecision      = New(KindValidation, "INVALID_DECISION", "Invalid validation status")
	ErrWeakPassword         = New(KindValidation, "WEAK_PASSWORD", "Password must be at least 8 characters long and contain at least one uppercase letter and one digit")
	ErrInvalidResetToken    = New(KindValidation, "INVALID_RESET_TOKEN", "Invalid or expired reset token")
	ErrValidation           = New(KindValidation, "VALIDATION_ERROR", "Validation failed")
	ErrPersistence          = New(KindPersistence, "SERVER_ERROR", "Server error")
)

// Validation builds a 400 error with a caller-facing message.
func Validation(msg string) *AppError {
	return ErrValidation.WithMessage(msg)
}

// NotFound builds a 404 error naming the missing resource.
func NotFound(resource string) *AppError {
	return ErrNotFound.WithMessage(fmt.Sprintf("%s not found", resource))
}

// Forbidden builds a 403 error with a caller-facing message.
func Forbidden(msg string) *AppError {
	return ErrForbidden.WithMessage(msg)
}

// Persistence wraps a storage failure. Nil in, nil out.
func Persistence(err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}
	return ErrPersistence.Wrap(err)
}

// KindOf reports the kind of err, defaulting to persistence for foreign errors.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindPersistence
}
