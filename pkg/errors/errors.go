// SPDX-License-Identifier: Apache-2.0
// Package errors provides typed error handling with rich context for Activa.
package errors

import (
	"encoding/json"
	"fmt"
)

// ErrorCode classifies Activa errors for monitoring and recovery.
type ErrorCode string

const (
	// CodeInternal indicates an internal system error.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeInvalidInput indicates the input was invalid.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeUpstream indicates the profile source returned a non-success response.
	CodeUpstream ErrorCode = "UPSTREAM_ERROR"

	// CodeProtocol indicates a malformed payload from an external collaborator.
	CodeProtocol ErrorCode = "PROTOCOL_ERROR"

	// CodeNotOk indicates the profile source explicitly signaled failure.
	CodeNotOk ErrorCode = "NOT_OK"

	// CodeContractViolation indicates a stage broke the pipeline contract,
	// e.g. the classifier returned a label outside the allowed set.
	CodeContractViolation ErrorCode = "CONTRACT_VIOLATION"

	// CodeConfiguration indicates missing or malformed taxonomy configuration.
	CodeConfiguration ErrorCode = "CONFIGURATION_ERROR"

	// CodeContextLost indicates context was canceled mid-operation.
	CodeContextLost ErrorCode = "CONTEXT_LOST"

	// CodeTimeout indicates an operation exceeded its time limit.
	CodeTimeout ErrorCode = "TIMEOUT"

	// CodeClassifier indicates a classifier backend error.
	CodeClassifier ErrorCode = "CLASSIFIER_ERROR"
)

// Error is a typed error with rich context for observability.
// It implements the error interface and can be unwrapped with errors.As().
type Error struct {
	Code        ErrorCode
	Message     string
	Err         error
	Context     map[string]interface{}
	Recoverable bool
	StatusCode  int
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements errors.Unwrap for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Err
}

// MarshalJSON implements json.Marshaler for structured logging.
func (e *Error) MarshalJSON() ([]byte, error) {
	type Alias Error
	return json.Marshal(&struct {
		Message     string `json:"message"`
		Code        string `json:"code"`
		Err         string `json:"error,omitempty"`
		Recoverable bool   `json:"recoverable"`
		*Alias
	}{
		Message:     e.Error(),
		Code:        string(e.Code),
		Err:         fmt.Sprintf("%v", e.Err),
		Recoverable: e.Recoverable,
		Alias:       (*Alias)(e),
	})
}

// New creates a new Error with the given code, message, and cause.
func New(code ErrorCode, msg string, cause error) *Error {
	return &Error{
		Code:       code,
		Message:    msg,
		Err:        cause,
		Context:    make(map[string]interface{}),
		StatusCode: codeToStatusCode(code),
	}
}

// WithContext adds a key-value pair to the error context.
// Returns the error for method chaining.
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithRecoverable sets whether the error can be recovered from.
// Returns the error for method chaining.
func (e *Error) WithRecoverable(recoverable bool) *Error {
	e.Recoverable = recoverable
	return e
}

// AsError attempts to convert an error to an *Error.
// Returns the error as *Error if it is one, or wraps it otherwise.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	if ae, ok := err.(*Error); ok {
		return ae
	}
	return New(CodeInternal, "wrapped error", err)
}

// CodeOf returns the error code of err, or CodeInternal for untyped errors.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	if ae, ok := err.(*Error); ok {
		return ae.Code
	}
	return CodeInternal
}

// IsRecoverable reports whether err should be retried. Untyped errors are
// considered recoverable so callers keep retry semantics for plain network
// failures; typed errors carry an explicit flag.
func IsRecoverable(err error) bool {
	if err == nil {
		return false
	}
	if ae, ok := err.(*Error); ok {
		return ae.Recoverable
	}
	return true
}

// codeToStatusCode maps error codes to HTTP status codes.
func codeToStatusCode(code ErrorCode) int {
	switch code {
	case CodeInvalidInput:
		return 400
	case CodeTimeout:
		return 408
	case CodeUpstream, CodeNotOk:
		return 502
	default:
		return 500
	}
}
