package fastrow

import (
	"bufio"
	"io"
	"strings"
)

// Writer emits records with basic CSV field quoting.
//
// As returned by NewWriter, a Writer terminates records with '\n' and uses
// ',' as the field delimiter. The exported fields can be changed before the
// first call to Write or WriteAll.
//
// Writes are buffered; call Flush after the last record and check Error.
type Writer struct {
	Comma   byte // field delimiter, ',' by default
	UseCRLF bool // terminate lines with \r\n instead of \n

	w   *bufio.Writer
	err error
}

// NewWriter returns a new Writer that writes to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{
		Comma: ',',
		w:     bufio.NewWriter(w),
	}
}

// Write writes a single record along with any necessary quoting.
func (w *Writer) Write(record []string) error {
	if w.err != nil {
		return w.err
	}
	for i, field := range record {
		if i > 0 {
			if w.err = w.w.WriteByte(w.Comma); w.err != nil {
				return w.err
			}
		}
		if w.err = w.writeField(field); w.err != nil {
			return w.err
		}
	}
	return w.writeLineEnding()
}

// WriteAll writes records using Write and then calls Flush, returning any
// error from the Flush.
func (w *Writer) WriteAll(records [][]string) error {
	for _, record := range records {
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return w.Flush()
}

// Flush writes buffered data to the underlying io.Writer.
func (w *Writer) Flush() error {
	w.err = w.w.Flush()
	return w.err
}

// Error reports any error that occurred during a previous Write or Flush.
func (w *Writer) Error() error {
	return w.err
}

func (w *Writer) writeField(field string) error {
	if !w.fieldNeedsQuotes(field) {
		_, err := w.w.WriteString(field)
		return err
	}
	if err := w.w.WriteByte('"'); err != nil {
		return err
	}
	// Escape embedded quotes by doubling them, copying quote-free spans
	// whole.
	for {
		i := strings.IndexByte(field, '"')
		if i < 0 {
			break
		}
		if _, err := w.w.WriteString(field[:i+1]); err != nil {
			return err
		}
		if err := w.w.WriteByte('"'); err != nil {
			return err
		}
		field = field[i+1:]
	}
	if _, err := w.w.WriteString(field); err != nil {
		return err
	}
	return w.w.WriteByte('"')
}

func (w *Writer) writeLineEnding() error {
	if w.UseCRLF {
		_, w.err = w.w.WriteString("\r\n")
	} else {
		w.err = w.w.WriteByte('\n')
	}
	return w.err
}

// fieldNeedsQuotes reports whether field must be quoted on output.
func (w *Writer) fieldNeedsQuotes(field string) bool {
	if len(field) == 0 {
		return false
	}
	if field[0] == ' ' || field[0] == '\t' {
		return true
	}
	for i := 0; i < len(field); i++ {
		c := field[i]
		if c == w.Comma || c == '"' || c == '\n' || c == '\r' {
			return true
		}
	}
	return false
}
