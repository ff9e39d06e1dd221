package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestPartitionKeyError_Error(t *testing.T) {
	err := New(ErrCategoryInvalidArgument, CodeTooFewComponents, "need 2 components, got 1")
	expected := "[INVALID_ARGUMENT:TOO_FEW_COMPONENTS] need 2 components, got 1"
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}
}

func TestPartitionKeyError_ErrorWithCause(t *testing.T) {
	cause := fmt.Errorf("encoding/hex: invalid byte: U+0067 'g'")
	err := Wrap(ErrCategoryCorruption, CodeInvalidHex, "bad effective key", cause)
	expected := "[CORRUPTION:INVALID_HEX] bad effective key: encoding/hex: invalid byte: U+0067 'g'"
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}
}

func TestPartitionKeyError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := Wrap(ErrCategoryStorage, CodeSnapshotWrite, "save failed", cause)
	if !errors.Is(err, cause) {
		t.Error("Unwrap should allow errors.Is to find the cause")
	}
}

func TestPartitionKeyError_Is(t *testing.T) {
	err1 := New(ErrCategoryInvalidArgument, CodeSentinelMisuse, "first")
	err2 := New(ErrCategoryInvalidArgument, CodeSentinelMisuse, "second")
	err3 := New(ErrCategoryInvalidArgument, CodeUnsupportedValue, "different code")

	if !errors.Is(err1, err2) {
		t.Error("errors with same category+code should match via Is")
	}
	if errors.Is(err1, err3) {
		t.Error("errors with different codes should not match via Is")
	}

	wrapped := fmt.Errorf("outer: %w", err1)
	if !errors.Is(wrapped, err2) {
		t.Error("Is should see through fmt wrapping")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		category  ErrorCategory
		code      string
		retryable bool
	}{
		{ErrCategoryInvalidArgument, CodeTooFewComponents, false},
		{ErrCategoryInvalidArgument, CodeInsufficientRange, false},
		{ErrCategoryUnsupported, CodeUnsupportedKind, false},
		{ErrCategoryCorruption, CodeInvalidHex, false},
		{ErrCategoryCorruption, CodeTruncatedInput, false},
		{ErrCategoryStorage, CodeSnapshotWrite, true},
		{ErrCategoryStorage, CodeSnapshotRead, true},
		{ErrCategoryStorage, CodeSnapshotNotFound, false},
		{ErrCategoryInternal, CodeUnexpected, false},
	}

	for _, tt := range tests {
		err := New(tt.category, tt.code, "test")
		if IsRetryable(err) != tt.retryable {
			t.Errorf("%s:%s retryable=%v, want %v", tt.category, tt.code, IsRetryable(err), tt.retryable)
		}
	}
}

func TestGetCategory(t *testing.T) {
	err := NewUnsupported(CodeUnsupportedKind, "cannot determine width for range partitioning")
	if GetCategory(err) != ErrCategoryUnsupported {
		t.Errorf("got %q, want %q", GetCategory(err), ErrCategoryUnsupported)
	}
	if GetCategory(fmt.Errorf("plain error")) != "" {
		t.Error("non-PartitionKeyError should return empty category")
	}
}

func TestGetCode(t *testing.T) {
	err := NewCorruption(CodeTruncatedInput, "string has no terminator", nil)
	if GetCode(err) != CodeTruncatedInput {
		t.Errorf("got %q, want %q", GetCode(err), CodeTruncatedInput)
	}
	if GetCode(fmt.Errorf("plain error")) != "" {
		t.Error("non-PartitionKeyError should return empty code")
	}
}

func TestWithDetails(t *testing.T) {
	err := NewInvalidArgument(CodeTooManyComponents, "too many components")
	detailed := err.WithDetails(map[string]interface{}{"paths": 2})

	if detailed.Details["paths"] != 2 {
		t.Error("WithDetails should set details")
	}
	if err.Details != nil {
		t.Error("WithDetails should not modify original")
	}
}

func TestConvenienceConstructors(t *testing.T) {
	cause := fmt.Errorf("io error")

	v := NewInvalidArgument(CodeOddHexLength, "odd")
	if v.Category != ErrCategoryInvalidArgument || v.Code != CodeOddHexLength {
		t.Error("NewInvalidArgument mismatch")
	}

	u := NewUnsupported(CodeUnsupportedVersion, "v3")
	if u.Category != ErrCategoryUnsupported {
		t.Error("NewUnsupported mismatch")
	}

	c := NewCorruption(CodeUnknownTag, "tag 0x42", cause)
	if c.Category != ErrCategoryCorruption || !errors.Is(c, cause) {
		t.Error("NewCorruption mismatch")
	}

	s := NewStorageError(CodeSnapshotRead, "sqlite locked", cause)
	if s.Category != ErrCategoryStorage || !s.Retryable {
		t.Error("NewStorageError mismatch")
	}

	i := NewInternalError("unexpected", cause)
	if i.Category != ErrCategoryInternal || i.Code != CodeUnexpected {
		t.Error("NewInternalError mismatch")
	}
}
