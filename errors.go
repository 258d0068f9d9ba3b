package fastrow

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by [Reader] and [FixedWidthReader]. They are
// always wrapped in a [ParseError] carrying location information, so use
// [errors.Is] to test for them.
var (
	ErrTooManyColumns      = errors.New("row exceeds configured column limit")
	ErrTooManyRows         = errors.New("stream exceeds configured row limit")
	ErrInvalidDelimiter    = errors.New("delimiter must be a printable ASCII byte")
	ErrUnterminatedQuote   = errors.New("quoted field is not terminated")
	ErrRowTooLarge         = errors.New("row exceeds maximum buffer size")
	ErrUnsupportedEncoding = errors.New("input is not UTF-8 or ASCII encoded")
	ErrInvalidRecordLength = errors.New("truncated fixed-width record")
	ErrTooManyRecords      = errors.New("stream exceeds configured record limit")
	ErrFieldCount          = errors.New("wrong number of fields")
	ErrFieldTooLong        = errors.New("value does not fit fixed-width column")
	ErrReaderClosed        = errors.New("reader is closed")
)

// snippetLimit caps the amount of offending input echoed in error messages,
// so a megabyte-sized broken field does not flood logs.
const snippetLimit = 100

// ParseError describes a parsing failure with its location in the input.
type ParseError struct {
	Row     int    // 1-based row/record number, 0 if unknown
	Line    int    // 1-based physical source line, 0 if unknown
	Column  int    // 1-based byte offset within the row, 0 if unknown
	Snippet string // truncated excerpt of the offending data
	Err     error  // underlying sentinel error
}

// Error returns a formatted message with location information.
func (e *ParseError) Error() string {
	msg := fmt.Sprintf("fastrow: parse error on row %d", e.Row)
	if e.Line > 0 && e.Line != e.Row {
		msg += fmt.Sprintf(" (line %d)", e.Line)
	}
	if e.Column > 0 {
		msg += fmt.Sprintf(", column %d", e.Column)
	}
	msg += ": " + e.Err.Error()
	if e.Snippet != "" {
		msg += fmt.Sprintf(" near %q", e.Snippet)
	}
	return msg
}

// Unwrap returns the underlying error for use with [errors.Is] and [errors.As].
func (e *ParseError) Unwrap() error {
	return e.Err
}

// errSnippet truncates b to snippetLimit bytes, appending an ellipsis when
// anything was cut.
func errSnippet(b []byte) string {
	if len(b) <= snippetLimit {
		return string(b)
	}
	return string(b[:snippetLimit]) + "..."
}
