package types

import (
	"errors"
	"fmt"
	"testing"
)

func TestRefactorError_Error(t *testing.T) {
	testCases := []struct {
		name     string
		err      *RefactorError
		expected string
	}{
		{
			name: "With file location",
			err: &RefactorError{
				Type:    NotExtractable,
				Message: "selection is not an expression",
				File:    "file:///test/a.rb",
				Line:    3,
				Column:  7,
			},
			expected: "file:///test/a.rb:3:7: selection is not an expression",
		},
		{
			name: "Without file location",
			err: &RefactorError{
				Type:    FeatureDisabled,
				Message: "extract to variable is disabled",
			},
			expected: "extract to variable is disabled",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := tc.err.Error()
			if result != tc.expected {
				t.Errorf("Expected error message '%s', got '%s'", tc.expected, result)
			}
		})
	}
}

func TestRefactorError_Unwrap(t *testing.T) {
	cause := errors.New("original error")
	err := &RefactorError{
		Type:    FileSystemError,
		Message: "File operation failed",
		Cause:   cause,
	}

	if !errors.Is(err, cause) {
		t.Errorf("Expected errors.Is to find the cause")
	}

	errNoCause := &RefactorError{Type: ParseError, Message: "Parse failed"}
	if errNoCause.Unwrap() != nil {
		t.Errorf("Expected unwrapped error to be nil, got %v", errNoCause.Unwrap())
	}
}

func TestErrorTypeOf(t *testing.T) {
	wrapped := fmt.Errorf("code action: %w", Errorf(StaleDocument, "version %d is stale", 3))

	got, ok := ErrorTypeOf(wrapped)
	if !ok {
		t.Fatal("Expected a RefactorError in the chain")
	}
	if got != StaleDocument {
		t.Errorf("Expected StaleDocument, got %v", got)
	}
	if !IsErrorType(wrapped, StaleDocument) {
		t.Error("IsErrorType should report StaleDocument")
	}
	if IsErrorType(wrapped, NotExtractable) {
		t.Error("IsErrorType should not report NotExtractable")
	}
	if _, ok := ErrorTypeOf(errors.New("plain")); ok {
		t.Error("Plain errors carry no ErrorType")
	}
	if wrapped.Error() != "code action: version 3 is stale" {
		t.Errorf("Unexpected message %q", wrapped.Error())
	}
}

func TestErrorType_String(t *testing.T) {
	testCases := []struct {
		errType  ErrorType
		expected string
	}{
		{ParseError, "ParseError"},
		{FeatureDisabled, "FeatureDisabled"},
		{NotExtractable, "NotExtractable"},
		{NoEnclosingScope, "NoEnclosingScope"},
		{StaleDocument, "StaleDocument"},
		{InternalInconsistency, "InternalInconsistency"},
		{Cancelled, "Cancelled"},
		{ErrorType(99), "ErrorType(99)"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			if got := tc.errType.String(); got != tc.expected {
				t.Errorf("Expected %s, got %s", tc.expected, got)
			}
		})
	}
}
