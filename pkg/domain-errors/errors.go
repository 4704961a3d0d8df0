// Package domainerrors carries coded errors from services to transport.
//
// Services translate store facts (pkg/platform/sentinel) into a Code; handlers
// map the Code to an HTTP status through pkg/platform/httputil.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies a class of failure visible to API callers.
type Code string

const (
	CodeNotFound          Code = "not_found"
	CodeForbidden         Code = "forbidden"
	CodeUnauthorized      Code = "unauthorized"
	CodeInvalidToken      Code = "invalid_token"
	CodeNotNotifiable     Code = "not_notifiable"
	CodeInvalidQuery      Code = "invalid_query"
	CodeDependencyFailure Code = "dependency_failure"
	CodeBadRequest        Code = "bad_request"
	CodeConflict          Code = "conflict"
	CodeRateLimited       Code = "rate_limited"
	CodeInternal          Code = "internal_error"
)

// Error is a coded domain error. Err is the optional underlying cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error without a cause.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode reports whether any error in the chain carries code.
func HasCode(err error, code Code) bool {
	var de *Error
	for err != nil {
		if errors.As(err, &de) {
			if de.Code == code {
				return true
			}
			err = de.Err
			continue
		}
		return false
	}
	return false
}

// CodeOf returns the outermost code in the chain, or CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the outermost domain message, or a generic one.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}
