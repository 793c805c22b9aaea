package types

import (
	"errors"
	"fmt"
)

// RefactorError represents errors in refactoring operations
type RefactorError struct {
	Type    ErrorType
	Message string
	File    string
	Line    int
	Column  int
	Cause   error
}

func (e *RefactorError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Message)
	}
	return e.Message
}

func (e *RefactorError) Unwrap() error {
	return e.Cause
}

type ErrorType int

const (
	ParseError ErrorType = iota
	InvalidOperation
	FileSystemError
	FeatureDisabled
	NotExtractable
	NoEnclosingScope
	StaleDocument
	InternalInconsistency
	Cancelled
)

func (t ErrorType) String() string {
	switch t {
	case ParseError:
		return "ParseError"
	case InvalidOperation:
		return "InvalidOperation"
	case FileSystemError:
		return "FileSystemError"
	case FeatureDisabled:
		return "FeatureDisabled"
	case NotExtractable:
		return "NotExtractable"
	case NoEnclosingScope:
		return "NoEnclosingScope"
	case StaleDocument:
		return "StaleDocument"
	case InternalInconsistency:
		return "InternalInconsistency"
	case Cancelled:
		return "Cancelled"
	default:
		return fmt.Sprintf("ErrorType(%d)", int(t))
	}
}

// Errorf builds a RefactorError without location information.
func Errorf(t ErrorType, format string, args ...any) *RefactorError {
	return &RefactorError{Type: t, Message: fmt.Sprintf(format, args...)}
}

// ErrorTypeOf reports the ErrorType of the first RefactorError in err's chain.
func ErrorTypeOf(err error) (ErrorType, bool) {
	var re *RefactorError
	if errors.As(err, &re) {
		return re.Type, true
	}
	return 0, false
}

// IsErrorType reports whether err carries a RefactorError of type t.
func IsErrorType(err error, t ErrorType) bool {
	got, ok := ErrorTypeOf(err)
	return ok && got == t
}
