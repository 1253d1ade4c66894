// Package apperr defines the domain error taxonomy shared by the lifecycle,
// review and advisory layers.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeUnknown              Code = "UNKNOWN"
	CodeValidation           Code = "VALIDATION"
	CodeNotFound             Code = "NOT_FOUND"
	CodeInsufficientFunds    Code = "INSUFFICIENT_FUNDS"
	CodeDuplicateApplication Code = "DUPLICATE_APPLICATION"
	CodeDuplicateReview      Code = "DUPLICATE_REVIEW"
	CodeInvalidTransition    Code = "INVALID_TRANSITION"
	CodeUnauthorized         Code = "UNAUTHORIZED"
	CodeNotEligible          Code = "NOT_ELIGIBLE"
	CodeContentRejected      Code = "CONTENT_REJECTED"
	CodeTaskNotOpen          Code = "TASK_NOT_OPEN"
)

// Error is a domain rule violation with structured context.
type Error struct {
	Code     Code
	Message  string
	Metadata map[string]string
	Cause    error
}

func (e *Error) Error() string {
	if len(e.Metadata) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Metadata))
	for k := range e.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+e.Metadata[k])
	}
	return fmt.Sprintf("%s (%s)", e.Message, strings.Join(parts, " "))
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error carrying the same code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func WithMetadata(code Code, message string, metadata map[string]string) *Error {
	return &Error{Code: code, Message: message, Metadata: metadata}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Validation reports malformed input rejected before any mutation.
func Validation(format string, args ...any) *Error {
	return New(CodeValidation, fmt.Sprintf(format, args...))
}

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

func HasCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// Meta returns the metadata value for key from the first *Error in err's chain.
func Meta(err error, key string) string {
	var e *Error
	if errors.As(err, &e) && e.Metadata != nil {
		return e.Metadata[key]
	}
	return ""
}
