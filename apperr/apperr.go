// Package apperr is the error taxonomy shared by services, repository and handlers.
package apperr

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeInternal        Code = "INTERNAL"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidation      Code = "VALIDATION"
	CodeConflict        Code = "CONFLICT"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	CodeForbidden       Code = "FORBIDDEN"
)

// HTTPStatus maps a code to the status returned by the API layer.
// Conflicts surface as 400 so clients treat a double submission like any other rejected request.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return fiber.StatusNotFound
	case CodeValidation, CodeConflict, CodeInvalidState:
		return fiber.StatusBadRequest
	case CodeUnauthenticated:
		return fiber.StatusUnauthorized
	case CodeForbidden:
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}

// Error is the domain error type.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error by code, so errors.Is(err, apperr.NotFound("")) works.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func NotFound(message string) *Error     { return New(CodeNotFound, message) }
func Validation(message string) *Error   { return New(CodeValidation, message) }
func Conflict(message string) *Error     { return New(CodeConflict, message) }
func InvalidState(message string) *Error { return New(CodeInvalidState, message) }
func Forbidden(message string) *Error    { return New(CodeForbidden, message) }

// CodeOf returns the code of the outermost *Error in err's chain, or CodeInternal for foreign errors.
// Wrap(CodeInternal, msg, NotFound(...)) therefore reports INTERNAL.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// HasCode reports whether any *Error in err's chain carries code.
// Foreign errors with no *Error in their chain count as CodeInternal.
func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, New(code, "")) {
		return true
	}
	var e *Error
	return code == CodeInternal && !errors.As(err, &e)
}
