package models

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies an AppError for the transport layer
type ErrorKind string

const (
	KindNotFound        ErrorKind = "NOT_FOUND"
	KindConflict        ErrorKind = "CONFLICT"
	KindForbidden       ErrorKind = "FORBIDDEN"
	KindUnauthenticated ErrorKind = "UNAUTHENTICATED"
	KindValidation      ErrorKind = "VALIDATION_ERROR"
	KindInternal        ErrorKind = "INTERNAL_ERROR"
)

// HTTPStatus maps the kind to a response status code
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ResponseFor converts err into a status code and response body. Errors
// that carry no AppError are reported as internal without their details.
func ResponseFor(err error) (int, ErrorResponse) {
	var appErr *AppError
	if !errors.As(err, &appErr) || appErr.Kind == KindInternal {
		return http.StatusInternalServerError, ErrorResponse{
			Error: "Internal server error",
			Code:  string(KindInternal),
		}
	}
	return appErr.Kind.HTTPStatus(), ErrorResponse{
		Error: appErr.Message,
		Code:  string(appErr.Kind),
	}
}

// AppError represents a user-visible application error
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// Error returns the message, followed by the wrapped error when present
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped cause, if any
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches another AppError of the same kind and message, so sentinel
// AppErrors work with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// NewNotFoundError creates an error reported as 404
func NewNotFoundError(message string) *AppError {
	return &AppError{Kind: KindNotFound, Message: message}
}

// NewConflictError creates an error reported as 409
func NewConflictError(message string) *AppError {
	return &AppError{Kind: KindConflict, Message: message}
}

// NewForbiddenError creates an error reported as 403
func NewForbiddenError(message string) *AppError {
	return &AppError{Kind: KindForbidden, Message: message}
}

// NewUnauthenticatedError creates an error reported as 401
func NewUnauthenticatedError(message string) *AppError {
	return &AppError{Kind: KindUnauthenticated, Message: message}
}

// NewValidationError creates an error reported as 400
func NewValidationError(message string) *AppError {
	return &AppError{Kind: KindValidation, Message: message}
}

// NewInternalError wraps err behind a generic message reported as 500
func NewInternalError(err error) *AppError {
	return &AppError{Kind: KindInternal, Message: "Internal server error", Err: err}
}

// KindOf returns the kind of the first AppError in err's chain, or
// KindInternal when there is none.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

var (
	// ErrMatchNotFound is returned when a match id does not resolve
	ErrMatchNotFound = NewNotFoundError("Match not found")

	// ErrUserNotFound is returned when a user id does not resolve
	ErrUserNotFound = NewNotFoundError("User not found")

	// ErrNotParticipant is returned when a non-player validates or skips a match
	ErrNotParticipant = NewForbiddenError("Only participants can validate matches")

	// ErrAlreadyValidated is returned when a participant validates or skips twice
	ErrAlreadyValidated = NewConflictError("You have already validated this match")

	// ErrDuplicatePlayer is returned when a user joins a match they already play in
	ErrDuplicatePlayer = NewConflictError("You are already part of this match")

	// ErrNotRegistered is returned when a shadow user calls a route that needs a username
	ErrNotRegistered = NewForbiddenError("User not registered")

	// ErrUsernameTaken is returned when another user already holds the username
	ErrUsernameTaken = NewConflictError("Username already taken")

	// ErrAlreadyRegistered is returned when a registered user registers again
	ErrAlreadyRegistered = NewConflictError("User already registered")

	// ErrMatchChanged is returned when concurrent writers exhaust the match save retries
	ErrMatchChanged = NewConflictError("Match was modified concurrently, retry")
)
