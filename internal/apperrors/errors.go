package apperrors

import (
	"errors"
)

// Kinds of failure surfaced by the review core. Match with errors.Is.
var (
	ErrValidation         = errors.New("validation error")
	ErrConfiguration      = errors.New("configuration error")
	ErrResourceResolution = errors.New("resource resolution error")
	ErrModelResponse      = errors.New("model response error")
	ErrPersistenceRead    = errors.New("persistence read error")
	ErrPersistenceWrite   = errors.New("persistence write error")
	ErrNotFound           = errors.New("not found")
	ErrCancelled          = errors.New("cancelled")
)

const defaultUserMessage = "Analysis failed. Please try again."

// Error carries a kind, a short message fit for the user and an optional cause.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func New(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind error, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(message string) *Error {
	return New(ErrValidation, message)
}

func Configuration(message string) *Error {
	return New(ErrConfiguration, message)
}

// UserMessage returns the short human-readable text for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return defaultUserMessage
}

// Is reports whether err is of the given kind.
func Is(err error, kind error) bool {
	return errors.Is(err, kind)
}
