// Package errors provides structured error types for the partition-key codec.
// All errors include a category, code, message, and retryable flag so callers
// can tell bad input apart from unsupported partitioning schemes and corrupted
// wire data.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors by the kind of fault.
type ErrorCategory string

const (
	ErrCategoryInvalidArgument ErrorCategory = "INVALID_ARGUMENT"
	ErrCategoryUnsupported     ErrorCategory = "UNSUPPORTED"
	ErrCategoryCorruption      ErrorCategory = "CORRUPTION"
	ErrCategoryStorage         ErrorCategory = "STORAGE"
	ErrCategoryInternal        ErrorCategory = "INTERNAL"
)

// Error codes for each category.
const (
	// Invalid argument codes
	CodeTooFewComponents  = "TOO_FEW_COMPONENTS"
	CodeTooManyComponents = "TOO_MANY_COMPONENTS"
	CodeSentinelMisuse    = "SENTINEL_MISUSE"
	CodeUnsupportedValue  = "UNSUPPORTED_VALUE"
	CodeOddHexLength      = "ODD_HEX_LENGTH"
	CodeInvalidSubRanges  = "INVALID_SUB_RANGES"
	CodeInsufficientRange = "INSUFFICIENT_RANGE"
	CodeInvalidRange      = "INVALID_RANGE"
	CodeRangeOverflow     = "RANGE_OVERFLOW"
	CodeNotSplittable     = "NOT_SPLITTABLE"
	CodeInvalidDefinition = "INVALID_DEFINITION"

	// Unsupported configuration codes
	CodeUnsupportedKind    = "UNSUPPORTED_KIND"
	CodeUnsupportedVersion = "UNSUPPORTED_VERSION"

	// Corruption codes
	CodeInvalidHex     = "INVALID_HEX"
	CodeTruncatedInput = "TRUNCATED_INPUT"
	CodeUnknownTag     = "UNKNOWN_TAG"
	CodeMalformedJSON  = "MALFORMED_JSON"

	// Storage codes
	CodeSnapshotWrite    = "SNAPSHOT_WRITE"
	CodeSnapshotRead     = "SNAPSHOT_READ"
	CodeSnapshotNotFound = "SNAPSHOT_NOT_FOUND"

	// Internal codes
	CodeUnexpected = "UNEXPECTED"
)

// PartitionKeyError is the structured error type used throughout the module.
type PartitionKeyError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Details   map[string]interface{}
	Cause     error
	Retryable bool
}

// Error returns a formatted error string.
func (e *PartitionKeyError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *PartitionKeyError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *PartitionKeyError) Is(target error) bool {
	var t *PartitionKeyError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new PartitionKeyError.
func New(category ErrorCategory, code, message string) *PartitionKeyError {
	return &PartitionKeyError{
		Category:  category,
		Code:      code,
		Message:   message,
		Retryable: isRetryable(category, code),
	}
}

// Wrap creates a new PartitionKeyError wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *PartitionKeyError {
	return &PartitionKeyError{
		Category:  category,
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: isRetryable(category, code),
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *PartitionKeyError) WithDetails(details map[string]interface{}) *PartitionKeyError {
	cp := *e
	cp.Details = details
	return &cp
}

// IsRetryable checks whether an error (or its chain) is retryable.
func IsRetryable(err error) bool {
	var pe *PartitionKeyError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not a PartitionKeyError.
func GetCategory(err error) ErrorCategory {
	var pe *PartitionKeyError
	if errors.As(err, &pe) {
		return pe.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not a PartitionKeyError.
func GetCode(err error) string {
	var pe *PartitionKeyError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// isRetryable reports whether a failure may succeed when repeated. The codec
// itself is deterministic, so only snapshot storage I/O qualifies.
func isRetryable(category ErrorCategory, code string) bool {
	switch {
	case category == ErrCategoryStorage && code == CodeSnapshotWrite:
		return true
	case category == ErrCategoryStorage && code == CodeSnapshotRead:
		return true
	default:
		return false
	}
}

// Convenience constructors for common errors.

func NewInvalidArgument(code, message string) *PartitionKeyError {
	return New(ErrCategoryInvalidArgument, code, message)
}

func NewUnsupported(code, message string) *PartitionKeyError {
	return New(ErrCategoryUnsupported, code, message)
}

func NewCorruption(code, message string, cause error) *PartitionKeyError {
	return Wrap(ErrCategoryCorruption, code, message, cause)
}

func NewStorageError(code, message string, cause error) *PartitionKeyError {
	return Wrap(ErrCategoryStorage, code, message, cause)
}

func NewInternalError(message string, cause error) *PartitionKeyError {
	return Wrap(ErrCategoryInternal, CodeUnexpected, message, cause)
}
