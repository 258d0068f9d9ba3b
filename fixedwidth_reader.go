package fastrow

import (
	"bytes"
	"context"
	"fmt"
	"io"
)

// FixedWidthReader reads fixed-width records from a byte stream. With
// RecordLength set it slices the stream into fixed-size byte blocks,
// ignoring line endings entirely; otherwise it reads one record per line.
// It shares the streaming buffer, refill and limit machinery of [Reader],
// swapping quote-aware scanning for the simpler boundary detection.
//
// Like Reader, a FixedWidthReader serves one consumer at a time.
type FixedWidthReader struct {
	// RecordLength, if positive, selects byte-block mode with records of
	// exactly this many bytes. Zero selects line-based mode.
	RecordLength int

	// Comment, if nonzero, skips lines starting with this byte.
	// Line-based mode only.
	Comment byte

	// SkipRecords discards this many leading records.
	SkipRecords int

	// AllowShortRecords accepts a truncated final record (byte-block
	// mode) and out-of-range field extraction instead of failing with
	// ErrInvalidRecordLength.
	AllowShortRecords bool

	// MaxRecords caps the number of records per stream. 0 = unlimited.
	MaxRecords int

	// MaxRecordBytes caps buffer growth in line-based mode. Default 128 MB.
	MaxRecordBytes int

	layout *FixedWidthLayout
	src    io.Reader
	ctx    context.Context

	rb  readBuffer
	cur *FixedRecord
	gen uint64

	recNum  int
	lineNum int

	started bool
	eof     bool
	closed  bool
	err     error
}

// NewFixedWidthReader returns a reader extracting fields from r per layout.
func NewFixedWidthReader(r io.Reader, layout *FixedWidthLayout) *FixedWidthReader {
	return &FixedWidthReader{layout: layout, src: r}
}

// NewFixedWidthReaderContext is like NewFixedWidthReader but checks ctx
// before every read from the underlying source.
func NewFixedWidthReaderContext(ctx context.Context, r io.Reader, layout *FixedWidthLayout) *FixedWidthReader {
	fr := NewFixedWidthReader(r, layout)
	fr.ctx = ctx
	return fr
}

// Layout returns the reader's column layout.
func (r *FixedWidthReader) Layout() *FixedWidthLayout {
	return r.layout
}

// RecordNumber returns the number of records surfaced so far.
func (r *FixedWidthReader) RecordNumber() int {
	return r.recNum
}

// Next advances to the next record and returns a borrowed view of it,
// invalidated by the following Next or Close call. Returns io.EOF when the
// stream is exhausted.
func (r *FixedWidthReader) Next() (*FixedRecord, error) {
	if r.closed {
		return nil, ErrReaderClosed
	}
	if r.err != nil {
		return nil, r.err
	}
	if !r.started {
		if err := r.start(); err != nil {
			r.err = err
			return nil, err
		}
	}

	recBytes, err := r.nextRecord()
	if err != nil {
		if err != io.EOF {
			r.err = err
		}
		return nil, err
	}

	if r.MaxRecords > 0 && r.recNum >= r.MaxRecords {
		err := r.recordErr(ErrTooManyRecords, recBytes)
		r.err = err
		return nil, err
	}
	r.recNum++

	// Fresh allocation per view, so a retained stale pointer trips the
	// generation check instead of silently reading the next record.
	r.gen++
	r.cur = &FixedRecord{
		rdr: r,
		gen: r.gen,
		buf: recBytes,
		num: r.recNum,
	}
	return r.cur, nil
}

// Close invalidates outstanding record views, returns pooled buffers and
// closes the underlying source if it implements io.Closer. Safe to call
// multiple times.
func (r *FixedWidthReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.gen++
	r.rb.release()
	if c, ok := r.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (r *FixedWidthReader) start() error {
	r.started = true
	if r.layout == nil {
		return fmt.Errorf("fastrow: fixed-width reader needs a layout")
	}
	if r.RecordLength < 0 {
		return fmt.Errorf("fastrow: %w: record length %d", ErrInvalidRecordLength, r.RecordLength)
	}
	if r.RecordLength > 0 && r.layout.RecordLength() > r.RecordLength {
		return fmt.Errorf("fastrow: %w: layout needs %d bytes, records have %d",
			ErrInvalidRecordLength, r.layout.RecordLength(), r.RecordLength)
	}

	max := r.MaxRecordBytes
	size := defaultBufSize
	if r.RecordLength > 0 {
		// Byte-block records have a known size; the buffer never needs to
		// grow past one record.
		if max <= 0 || max < r.RecordLength {
			max = r.RecordLength + defaultBufSize
		}
	}
	r.rb.init(size, max)
	r.lineNum = 1

	if r.RecordLength == 0 {
		if err := r.skipBOM(); err != nil {
			return err
		}
	}
	for i := 0; i < r.SkipRecords; i++ {
		if _, err := r.nextRecord(); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
	return nil
}

// skipBOM mirrors the CSV reader's first-fill handling: UTF-8 BOM skipped,
// UTF-16/32 rejected.
func (r *FixedWidthReader) skipBOM() error {
	for !r.eof && r.rb.buffered() < 4 {
		if err := r.fill(); err != nil {
			return err
		}
	}
	w := r.rb.window()
	switch {
	case len(w) >= 4 && w[0] == 0xff && w[1] == 0xfe && w[2] == 0x00 && w[3] == 0x00,
		len(w) >= 4 && w[0] == 0x00 && w[1] == 0x00 && w[2] == 0xfe && w[3] == 0xff:
		return fmt.Errorf("fastrow: %w: UTF-32 byte order mark", ErrUnsupportedEncoding)
	case len(w) >= 2 && (w[0] == 0xff && w[1] == 0xfe || w[0] == 0xfe && w[1] == 0xff):
		return fmt.Errorf("fastrow: %w: UTF-16 byte order mark", ErrUnsupportedEncoding)
	case len(w) >= 3 && w[0] == 0xef && w[1] == 0xbb && w[2] == 0xbf:
		r.rb.advance(3)
	}
	return nil
}

// nextRecord produces the raw bytes of the next record, refilling as needed.
func (r *FixedWidthReader) nextRecord() ([]byte, error) {
	if r.RecordLength > 0 {
		return r.nextBlock()
	}
	return r.nextLine()
}

// nextBlock accumulates exactly RecordLength bytes. A trailing partial block
// indicates truncated input and is fatal unless short records are allowed.
func (r *FixedWidthReader) nextBlock() ([]byte, error) {
	for r.rb.buffered() < r.RecordLength && !r.eof {
		if err := r.fill(); err != nil {
			return nil, err
		}
	}
	have := r.rb.buffered()
	if have == 0 {
		return nil, io.EOF
	}
	if have < r.RecordLength {
		if !r.AllowShortRecords {
			return nil, r.recordErr(ErrInvalidRecordLength, r.rb.window())
		}
		rec := r.rb.window()
		r.rb.advance(have)
		return rec, nil
	}
	rec := r.rb.window()[:r.RecordLength]
	r.rb.advance(r.RecordLength)
	return rec, nil
}

// nextLine produces the next non-blank, non-comment line, without its line
// ending.
func (r *FixedWidthReader) nextLine() ([]byte, error) {
	for {
		w := r.rb.window()
		nl := bytes.IndexByte(w, '\n')
		if nl < 0 && !r.eof {
			if err := r.fill(); err != nil {
				return nil, err
			}
			continue
		}

		var line []byte
		var consumed int
		if nl < 0 {
			if len(w) == 0 {
				return nil, io.EOF
			}
			line, consumed = w, len(w)
		} else {
			line, consumed = w[:nl], nl+1
		}
		if len(line) > 0 && line[len(line)-1] == '\r' {
			line = line[:len(line)-1]
		}
		r.rb.advance(consumed)
		r.lineNum++

		if len(line) == 0 {
			continue // blank line
		}
		if r.Comment != 0 && line[0] == r.Comment {
			continue
		}
		return line, nil
	}
}

// fill pulls more bytes from the source, checking for cancellation first.
func (r *FixedWidthReader) fill() error {
	if r.ctx != nil {
		if err := r.ctx.Err(); err != nil {
			return err
		}
	}
	for {
		n, err := r.rb.readMore(r.src)
		if err == ErrRowTooLarge {
			return r.recordErr(ErrRowTooLarge, r.rb.window())
		}
		if n > 0 {
			if err == io.EOF {
				r.eof = true
			} else if err != nil {
				return err
			}
			return nil
		}
		if err == io.EOF {
			r.eof = true
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (r *FixedWidthReader) recordErr(err error, data []byte) error {
	pe := &ParseError{
		Row:     r.recNum + 1,
		Snippet: errSnippet(data),
		Err:     err,
	}
	if r.RecordLength == 0 {
		pe.Line = r.lineNum
	}
	return pe
}

// FixedRecord is a non-owning view over one fixed-width record. It is valid
// until the next call to Next (or Close) on the reader that produced it.
type FixedRecord struct {
	rdr *FixedWidthReader
	gen uint64
	buf []byte
	num int
}

func (rec *FixedRecord) checkValid() {
	if rec.rdr != nil && rec.rdr.gen != rec.gen {
		panic("fastrow: fixed-width record view used after Next or Close")
	}
}

// RecordNumber returns the 1-based record number.
func (rec *FixedRecord) RecordNumber() int {
	return rec.num
}

// Bytes returns the raw record bytes, valid until the next advance.
func (rec *FixedRecord) Bytes() []byte {
	rec.checkValid()
	return rec.buf
}

// Len returns the number of declared columns.
func (rec *FixedRecord) Len() int {
	return rec.rdr.layout.NumColumns()
}

// Field extracts column i with alignment-aware pad trimming. A column
// extending past the end of the record is an error, or a truncated (possibly
// absent) field when short records are allowed.
func (rec *FixedRecord) Field(i int) (Field, error) {
	rec.checkValid()
	layout := rec.rdr.layout
	if i < 0 || i >= layout.NumColumns() {
		panic(fmt.Sprintf("fastrow: fixed-width column index %d out of range (%d columns)", i, layout.NumColumns()))
	}
	col := &layout.cols[i]

	end := col.Start + col.Length
	if end > len(rec.buf) {
		if !rec.rdr.AllowShortRecords {
			return Field{}, &ParseError{
				Row:     rec.num,
				Snippet: errSnippet(rec.buf),
				Err:     ErrInvalidRecordLength,
			}
		}
		if col.Start >= len(rec.buf) {
			return Field{absent: true}, nil
		}
		end = len(rec.buf)
	}
	return Field{data: trimPadded(rec.buf[col.Start:end], col)}, nil
}

// FieldByName extracts the named column.
func (rec *FixedRecord) FieldByName(name string) (Field, error) {
	i := rec.rdr.layout.ColumnIndex(name)
	if i < 0 {
		panic(fmt.Sprintf("fastrow: unknown fixed-width column %q", name))
	}
	return rec.Field(i)
}

// Strings materializes every column into owned strings.
func (rec *FixedRecord) Strings() ([]string, error) {
	rec.checkValid()
	out := make([]string, rec.Len())
	for i := range out {
		f, err := rec.Field(i)
		if err != nil {
			return nil, err
		}
		out[i] = f.String()
	}
	return out, nil
}
