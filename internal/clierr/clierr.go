// Package clierr defines structured error types for CLI commands.
// Errors carry a machine-readable code, a human-readable message,
// and optional details for agent consumption.
package clierr

import (
	"errors"
	"fmt"
	"strconv"
)

// Error code constants, uppercase and underscore-separated, stable across minor versions.
const (
	TaskNotFound           = "TASK_NOT_FOUND"
	TaskExists             = "TASK_EXISTS"
	ModuleNotFound         = "MODULE_NOT_FOUND"
	WorkspaceNotFound      = "WORKSPACE_NOT_FOUND"
	WorkspaceAlreadyExists = "WORKSPACE_ALREADY_EXISTS"
	InvalidInput           = "INVALID_INPUT"
	InvalidTaskName        = "INVALID_TASK_NAME"
	InvalidTaskFile        = "INVALID_TASK_FILE"
	FaultyMetadata         = "FAULTY_METADATA"
	InvalidStrictness      = "INVALID_STRICTNESS"
	InvalidGroupBy         = "INVALID_GROUP_BY"
	FieldNotFound          = "FIELD_NOT_FOUND"
	ConfirmationReq        = "CONFIRMATION_REQUIRED"
	NoChanges              = "NO_CHANGES"
	InternalError          = "INTERNAL_ERROR"
)

// Error represents a structured CLI error with a machine-readable code.
type Error struct {
	Code    string
	Message string
	Details map[string]any

	// Cause is the sentinel or underlying error, exposed through Unwrap.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string { return e.Message }

// Unwrap returns the underlying cause so errors.Is matches package sentinels.
func (e *Error) Unwrap() error { return e.Cause }

// New creates an Error with the given code and message.
func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithDetails returns the error with the given details map attached.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// WithCause returns the error with the given cause attached.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// ExitCode returns 2 for InternalError, 1 for all others.
func (e *Error) ExitCode() int {
	if e.Code == InternalError {
		return 2 //nolint:mnd // exit code 2 for internal errors
	}
	return 1
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) string {
	var cliErr *Error
	if errors.As(err, &cliErr) {
		return cliErr.Code
	}
	return ""
}

// SilentError signals an exit code without additional output.
// Used by batch operations where results are already written to stdout.
type SilentError struct {
	Code int
}

// Error implements the error interface.
func (e *SilentError) Error() string { return "exit " + strconv.Itoa(e.Code) }
