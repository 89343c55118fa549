package service

import (
	"errors"
	"fmt"
)

const (
	// ErrInternalServerError means that an internal server error has occurred.
	ErrInternalServerError = "internal_server_error"
	// ErrEntityNotFound means that the requested record is absent.
	ErrEntityNotFound = "entity_not_found"
	// ErrBadParameter means that provided parameter does not match declared.
	ErrBadParameter = "bad_parameter"
	// ErrValidation means that a service descriptor payload is malformed or incomplete.
	ErrValidation = "validation_error"
	// ErrUnknownCommand means that a registry request started with an unrecognized discriminator byte.
	ErrUnknownCommand = "unknown_command"
	// ErrUpstreamFailure means that the upstream resolver returned an error.
	ErrUpstreamFailure = "upstream_failure"
	// ErrUpstreamTimeout means that the upstream resolver did not answer within the query timeout.
	ErrUpstreamTimeout = "upstream_timeout"
)

// ErrResolutionMiss is returned by a resolver in a chain that has no answer for a query.
// It is not a failure: the chain moves on to the next resolver.
var ErrResolutionMiss = errors.New("resolution miss")

// MyError represents an error within the context of rift services.
type MyError struct {
	// Code is a machine-readable code.
	Code string `json:"code,omitempty"`
	// Message is a human-readable message.
	Message string `json:"message"`
	// Inner is a wrapped error that is never shown to API consumers.
	Inner error `json:"-"`
}

// NewMyError creates a new MyError.
func NewMyError(code string, message string, inner error) *MyError {
	return &MyError{
		Code:    code,
		Message: message,
		Inner:   inner,
	}
}

// newOrInner keeps an already classified inner error instead of re-wrapping it.
func newOrInner(code, message string, inner error) *MyError {
	if myInner := ToMyError(inner); myInner != nil {
		return myInner
	}
	return NewMyError(code, message, inner)
}

func NewInternalServerError(message string, inner error) *MyError {
	return newOrInner(ErrInternalServerError, message, inner)
}

func NewEntityNotFoundError(message string, inner error) *MyError {
	return newOrInner(ErrEntityNotFound, message, inner)
}

func NewBadParameterError(message string, inner error) *MyError {
	return newOrInner(ErrBadParameter, message, inner)
}

func NewValidationError(message string, inner error) *MyError {
	return newOrInner(ErrValidation, message, inner)
}

func NewUnknownCommandError(command byte) *MyError {
	return NewMyError(ErrUnknownCommand, fmt.Sprintf("unknown command %q", command), nil)
}

func NewUpstreamFailureError(message string, inner error) *MyError {
	return newOrInner(ErrUpstreamFailure, message, inner)
}

func NewUpstreamTimeoutError(message string, inner error) *MyError {
	return newOrInner(ErrUpstreamTimeout, message, inner)
}

func (e MyError) Error() string {
	if e.Inner != nil {
		return fmt.Sprintf("%s %s: %v", e.Code, e.Message, e.Inner)
	}

	return fmt.Sprintf("%s %s", e.Code, e.Message)
}

// Unwrap the error returning the error's reason.
func (e MyError) Unwrap() error {
	return e.Inner
}

// ToMyError returns a pointer to a rift error, or nil if it is not a rift error.
func ToMyError(err error) *MyError {
	var e *MyError
	if errors.As(err, &e) {
		return e
	}

	return nil
}

// ToMyErrorCode returns the code of the error, if available.
func ToMyErrorCode(err error) string {
	myerror := ToMyError(err)
	if myerror != nil {
		return myerror.Code
	}
	return ""
}

func IsMyError(err error, code string) bool {
	myerror := ToMyError(err)
	if myerror != nil {
		return myerror.Code == code
	}
	return false
}

func IsInternalServerError(err error) bool {
	return IsMyError(err, ErrInternalServerError)
}

func IsEntityNotFoundError(err error) bool {
	return IsMyError(err, ErrEntityNotFound)
}

func IsBadParameterError(err error) bool {
	return IsMyError(err, ErrBadParameter)
}

func IsValidationError(err error) bool {
	return IsMyError(err, ErrValidation)
}

func IsUnknownCommandError(err error) bool {
	return IsMyError(err, ErrUnknownCommand)
}

// IsUpstreamError reports both upstream failures and upstream timeouts.
func IsUpstreamError(err error) bool {
	return IsMyError(err, ErrUpstreamFailure) || IsMyError(err, ErrUpstreamTimeout)
}

func IsUpstreamTimeoutError(err error) bool {
	return IsMyError(err, ErrUpstreamTimeout)
}
