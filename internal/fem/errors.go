package fem

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode categorizes failures of the core operations.
type ErrorCode string

const (
	// ErrCodeNotFound indicates the input path does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeFormat indicates an unsupported extension or dialect feature.
	ErrCodeFormat ErrorCode = "FORMAT"

	// ErrCodeParse indicates a malformed card or unexpected token in a deck.
	ErrCodeParse ErrorCode = "PARSE"

	// ErrCodeDecode indicates a corrupted or truncated binary archive, or a
	// required result category that is missing.
	ErrCodeDecode ErrorCode = "DECODE"
)

// Error is the error type returned by the readers and writers.
//
// Parse errors fill Line and Card. Decode errors fill Offset and Section.
// Offset is -1 when the failure has no byte position.
type Error struct {
	Code    ErrorCode
	Message string
	Path    string

	Line int
	Card string

	Offset  int64
	Section string

	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	if e.Path != "" {
		b.WriteString(e.Path)
		if e.Line > 0 {
			fmt.Fprintf(&b, ":%d", e.Line)
		}
		b.WriteString(": ")
	} else if e.Line > 0 {
		fmt.Fprintf(&b, "line %d: ", e.Line)
	}
	if e.Card != "" {
		fmt.Fprintf(&b, "%s: ", e.Card)
	}
	b.WriteString(e.Message)
	if e.Code == ErrCodeDecode && (e.Section != "" || e.Offset >= 0) {
		b.WriteString(" (")
		parts := make([]string, 0, 2)
		if e.Section != "" {
			parts = append(parts, "section="+e.Section)
		}
		if e.Offset >= 0 {
			parts = append(parts, fmt.Sprintf("offset=%d", e.Offset))
		}
		b.WriteString(strings.Join(parts, ", "))
		b.WriteString(")")
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NotFound creates a NOT_FOUND error for path.
func NotFound(path string, err error) *Error {
	return &Error{Code: ErrCodeNotFound, Path: path, Message: "no such file", Err: err}
}

// Unsupported creates a FORMAT error.
func Unsupported(path, format string, args ...any) *Error {
	return &Error{Code: ErrCodeFormat, Path: path, Message: fmt.Sprintf(format, args...)}
}

// ParseFailure creates a PARSE error at a deck line.
func ParseFailure(path string, line int, card, format string, args ...any) *Error {
	return &Error{Code: ErrCodeParse, Path: path, Line: line, Card: card, Message: fmt.Sprintf(format, args...)}
}

// DecodeFailure creates a DECODE error at a byte offset within a section.
func DecodeFailure(section string, offset int64, format string, args ...any) *Error {
	return &Error{Code: ErrCodeDecode, Section: section, Offset: offset, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the code of err, or "" when err is not an *Error.
func CodeOf(err error) ErrorCode {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return ""
}

// IsNotFound reports whether err is a NOT_FOUND error.
func IsNotFound(err error) bool { return CodeOf(err) == ErrCodeNotFound }

// IsFormat reports whether err is a FORMAT error.
func IsFormat(err error) bool { return CodeOf(err) == ErrCodeFormat }

// IsParse reports whether err is a PARSE error.
func IsParse(err error) bool { return CodeOf(err) == ErrCodeParse }

// IsDecode reports whether err is a DECODE error.
func IsDecode(err error) bool { return CodeOf(err) == ErrCodeDecode }
