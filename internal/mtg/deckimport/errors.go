package deckimport

import (
	"errors"
	"fmt"
)

// FormatError reports input that does not match the structural grammar of
// the selected dialect. Line is 1-based and zero when the error is not tied
// to a single line.
type FormatError struct {
	Dialect Dialect
	Line    int
	Reason  string
	Err     error
}

// Error implements the error interface for FormatError.
func (e *FormatError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Dialect, e.Reason)
	if e.Line > 0 {
		msg = fmt.Sprintf("%s: line %d: %s", e.Dialect, e.Line, e.Reason)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying decoding error, if any.
func (e *FormatError) Unwrap() error {
	return e.Err
}

// IsFormatError returns true if err is or wraps a FormatError.
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}

func lineError(d Dialect, line int, format string, args ...any) *FormatError {
	return &FormatError{Dialect: d, Line: line, Reason: fmt.Sprintf(format, args...)}
}
