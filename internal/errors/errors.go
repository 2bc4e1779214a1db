// Package errors provides structured error types for fluxload.
// All errors include a category, code, message, and retryable flag for
// consistent error handling across components.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors by system component.
type ErrorCategory string

const (
	ErrCategoryEncoding   ErrorCategory = "ENCODING"
	ErrCategoryOverflow   ErrorCategory = "OVERFLOW"
	ErrCategorySink       ErrorCategory = "SINK"
	ErrCategoryStorage    ErrorCategory = "STORAGE"
	ErrCategoryValidation ErrorCategory = "VALIDATION"
	ErrCategoryInternal   ErrorCategory = "INTERNAL"
)

// Error codes for each category.
const (
	// Encoding codes
	CodeNonFiniteValue  = "NON_FINITE_VALUE"
	CodeMalformedDigits = "MALFORMED_DIGITS"
	CodeBuilderFinished = "BUILDER_FINISHED"

	// Overflow codes
	CodeTimestampRange = "TIMESTAMP_RANGE"

	// Sink codes
	CodeCopyFailed      = "COPY_FAILED"
	CodeInsertFailed    = "INSERT_FAILED"
	CodeConnectFailed   = "CONNECT_FAILED"
	CodeUnsupportedPath = "UNSUPPORTED_PATH"

	// Storage codes
	CodeUploadFailed        = "UPLOAD_FAILED"
	CodeDownloadFailed      = "DOWNLOAD_FAILED"
	CodeObjectNotFound      = "OBJECT_NOT_FOUND"
	CodeFingerprintMismatch = "FINGERPRINT_MISMATCH"

	// Validation codes
	CodeInvalidConfig   = "INVALID_CONFIG"
	CodeInvalidStrategy = "INVALID_STRATEGY"
	CodeEmptyBatch      = "EMPTY_BATCH"

	// Internal codes
	CodeUnexpected = "UNEXPECTED"
)

// LoadError is the structured error type used throughout the system.
type LoadError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Cause     error
	Retryable bool
}

// Error returns a formatted error string.
func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *LoadError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *LoadError) Is(target error) bool {
	var t *LoadError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new LoadError.
func New(category ErrorCategory, code, message string) *LoadError {
	return &LoadError{
		Category:  category,
		Code:      code,
		Message:   message,
		Retryable: isRetryable(category, code),
	}
}

// Wrap creates a new LoadError wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *LoadError {
	return &LoadError{
		Category:  category,
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: isRetryable(category, code),
	}
}

// IsRetryable checks whether an error (or its chain) is retryable.
// Encoding and overflow errors are deterministic, so the harness never
// retries them; the flag only classifies transport-level failures.
func IsRetryable(err error) bool {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not a LoadError.
func GetCategory(err error) ErrorCategory {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not a LoadError.
func GetCode(err error) string {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}

// isRetryable determines if an error code is retryable.
func isRetryable(category ErrorCategory, code string) bool {
	switch {
	case category == ErrCategoryStorage && code == CodeUploadFailed:
		return true
	case category == ErrCategoryStorage && code == CodeDownloadFailed:
		return true
	case category == ErrCategorySink && code == CodeConnectFailed:
		return true
	default:
		return false
	}
}

// Convenience constructors for common errors.

func NewEncodingError(code, message string) *LoadError {
	return New(ErrCategoryEncoding, code, message)
}

func NewOverflowError(message string) *LoadError {
	return New(ErrCategoryOverflow, CodeTimestampRange, message)
}

func NewSinkError(code, message string, cause error) *LoadError {
	return Wrap(ErrCategorySink, code, message, cause)
}

func NewStorageError(code, message string, cause error) *LoadError {
	return Wrap(ErrCategoryStorage, code, message, cause)
}

func NewValidationError(code, message string) *LoadError {
	return New(ErrCategoryValidation, code, message)
}

func NewInternalError(message string, cause error) *LoadError {
	return Wrap(ErrCategoryInternal, CodeUnexpected, message, cause)
}
