package fastrow

import (
	"bufio"
	"fmt"
	"io"
)

// FixedWidthWriter emits fixed-width records for a layout. Each record is
// built in a scratch buffer pre-filled with every column's pad byte, then
// values are placed according to their column's alignment.
//
// Writes are buffered; call Flush after the last record and check Error.
type FixedWidthWriter struct {
	// UseNewline appends '\n' after each record. Off by default: byte-block
	// consumers expect back-to-back records.
	UseNewline bool

	layout  *FixedWidthLayout
	w       *bufio.Writer
	scratch []byte
	err     error
}

// NewFixedWidthWriter returns a writer producing records shaped by layout.
func NewFixedWidthWriter(w io.Writer, layout *FixedWidthLayout) *FixedWidthWriter {
	return &FixedWidthWriter{
		layout:  layout,
		w:       bufio.NewWriter(w),
		scratch: make([]byte, layout.RecordLength()),
	}
}

// Write emits one record. values must have exactly one entry per layout
// column; a value longer than its column fails with ErrFieldTooLong.
func (w *FixedWidthWriter) Write(values []string) error {
	if w.err != nil {
		return w.err
	}
	if len(values) != w.layout.NumColumns() {
		w.err = fmt.Errorf("fastrow: %w: got %d values, layout has %d columns",
			ErrFieldCount, len(values), w.layout.NumColumns())
		return w.err
	}

	for i := range w.layout.cols {
		col := &w.layout.cols[i]
		for j := col.Start; j < col.Start+col.Length; j++ {
			w.scratch[j] = col.Pad
		}
	}
	for i, v := range values {
		if err := w.place(&w.layout.cols[i], v); err != nil {
			w.err = err
			return err
		}
	}

	if _, err := w.w.Write(w.scratch); err != nil {
		w.err = err
		return err
	}
	if w.UseNewline {
		if err := w.w.WriteByte('\n'); err != nil {
			w.err = err
			return err
		}
	}
	return nil
}

// WriteAll writes records using Write and then calls Flush, returning any
// error from the Flush.
func (w *FixedWidthWriter) WriteAll(records [][]string) error {
	for _, record := range records {
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return w.Flush()
}

// Flush writes buffered data to the underlying io.Writer.
func (w *FixedWidthWriter) Flush() error {
	w.err = w.w.Flush()
	return w.err
}

// Error reports any error that occurred during a previous Write or Flush.
func (w *FixedWidthWriter) Error() error {
	return w.err
}

// place copies v into the scratch record at col's position per its alignment.
func (w *FixedWidthWriter) place(col *FixedWidthColumn, v string) error {
	if len(v) > col.Length {
		return fmt.Errorf("fastrow: %w: column %q holds %d bytes, value has %d",
			ErrFieldTooLong, col.Name, col.Length, len(v))
	}
	slot := w.scratch[col.Start : col.Start+col.Length]
	switch col.Align {
	case AlignRight:
		copy(slot[col.Length-len(v):], v)
	case AlignCenter:
		copy(slot[(col.Length-len(v))/2:], v)
	default: // AlignNone, AlignLeft
		copy(slot, v)
	}
	return nil
}
