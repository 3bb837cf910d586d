package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError is a pipeline failure surfaced to the orchestrator.
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches any AppError carrying the same code, so callers can test
// errors.Is(err, ErrModelNotFound) regardless of message.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

const (
	CodeDataUnavailable = "DATA_UNAVAILABLE"
	CodeModelNotFound   = "MODEL_NOT_FOUND"
	CodeSchemaMismatch  = "SCHEMA_MISMATCH"
	CodeWriteFailure    = "WRITE_FAILURE"
	CodeConfigInvalid   = "CONFIG_INVALID"
	CodeInternalError   = "INTERNAL_ERROR"
)

var (
	ErrDataUnavailable = New(CodeDataUnavailable, "data unavailable")
	ErrModelNotFound   = New(CodeModelNotFound, "model not found")
	ErrSchemaMismatch  = New(CodeSchemaMismatch, "schema mismatch")
	ErrWriteFailure    = New(CodeWriteFailure, "write failure")
	ErrConfigInvalid   = New(CodeConfigInvalid, "config invalid")
)

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap wraps an error with additional context, keeping the code of a wrapped AppError.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return &AppError{Code: appErr.Code, Message: message, Cause: err}
	}
	return &AppError{Code: CodeInternalError, Message: message, Cause: err}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

func DataUnavailable(format string, args ...any) *AppError {
	return New(CodeDataUnavailable, fmt.Sprintf(format, args...))
}

func ModelNotFound(key string) *AppError {
	return New(CodeModelNotFound, fmt.Sprintf("no churn model stored for %q", key))
}

func SchemaMismatch(format string, args ...any) *AppError {
	return New(CodeSchemaMismatch, fmt.Sprintf(format, args...))
}

func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

// WriteFailure tags a destination write error; rows before the failing batch stay written.
func WriteFailure(table string, cause error) *AppError {
	return &AppError{Code: CodeWriteFailure, Message: fmt.Sprintf("write %s", table), Cause: cause}
}

// GetCode returns the code of the outermost AppError, or "UNKNOWN".
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN"
}
