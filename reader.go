// Package fastrow is a high-throughput, allocation-minimizing parser for
// delimiter-separated and fixed-width tabular text. Row and field boundaries
// are located with wide (SIMD-style) byte comparisons where the hardware
// supports them, with a scalar reference scanner as the single source of
// truth that every accelerated path must match byte for byte.
package fastrow

import (
	"context"
	"fmt"
	"io"
)

const defaultMaxColumns = 4096

// Limits bounds resource use against malformed or adversarial input. The
// zero value applies the defaults; limits are fixed once reading starts.
type Limits struct {
	// MaxColumns caps the number of columns per row. Default 4096.
	// Exceeding it fails the stream with ErrTooManyColumns.
	MaxColumns int

	// MaxRows caps the number of data rows per stream. 0 means unlimited.
	// Exceeding it fails the stream with ErrTooManyRows.
	MaxRows int

	// MaxRowBytes caps internal buffer growth, bounding memory against
	// rows with missing line endings. Default 128 MB. A single row larger
	// than this fails the stream with ErrRowTooLarge.
	MaxRowBytes int
}

// Reader reads rows from a delimiter-separated byte stream. The exported
// fields may be changed before the first call to Next, Read or ReadAll.
//
// A Reader is used by one consumer at a time; it is not safe for concurrent
// calls. For parallelism, give each goroutine its own Reader over its own
// byte range.
type Reader struct {
	// Comma is the field delimiter, ',' by default. It must be an ASCII
	// byte (<= 0x7f) and must differ from Quote, '\r' and '\n'.
	Comma byte

	// Quote is the quote character, '"' by default.
	Quote byte

	// Comment, if nonzero, skips rows whose first byte is this character.
	Comment byte

	// HasHeader consumes the first row as metadata, exposed via Header.
	HasHeader bool

	// TrimFields trims ASCII space and tab around each field value.
	TrimFields bool

	// AllowShortRows accepts rows with fewer columns than the established
	// width instead of failing with ErrFieldCount.
	AllowShortRows bool

	// AllowMissingColumns makes out-of-range Row.Field access return an
	// absent Field instead of panicking.
	AllowMissingColumns bool

	// SkipRows discards this many leading rows before the header (if any)
	// and the first data row.
	SkipRows int

	// TrackLineNumbers enables physical line-number bookkeeping across
	// multi-line quoted fields, at the cost of per-row counting.
	TrackLineNumbers bool

	// ReuseRecord lets Read return a slice sharing the backing array of
	// the previous call's result.
	ReuseRecord bool

	// FieldsPerRecord is the expected number of fields per row. Positive:
	// enforced exactly. Zero: set from the header or first row. Negative:
	// no check.
	FieldsPerRecord int

	// Limits bounds resource use. See Limits.
	Limits Limits

	src io.Reader
	ctx context.Context

	rb   readBuffer
	st   scanState
	ends *columnEnds
	cur  *Row
	gen  uint64

	lastRecord []string
	header     []string

	width   int // resolved expected field count, -1 = no check, 0 = pending
	rowNum  int
	lineNum int

	started bool
	eof     bool
	closed  bool
	err     error
}

// NewReader returns a Reader consuming r with default configuration.
func NewReader(r io.Reader) *Reader {
	return &Reader{Comma: ',', Quote: '"', src: r}
}

// NewReaderContext is like NewReader but checks ctx for cancellation before
// every read from the underlying source. Scanning an already-buffered row
// runs to completion; rows are bounded by Limits.MaxRowBytes, which keeps
// cancellation latency acceptable.
func NewReaderContext(ctx context.Context, r io.Reader) *Reader {
	rd := NewReader(r)
	rd.ctx = ctx
	return rd
}

// Next advances to the next row and returns a borrowed view of it. The view
// (and every Field derived from it) is invalidated by the following Next or
// Close call; use Row.Clone to keep it. Returns io.EOF when the stream is
// exhausted.
func (r *Reader) Next() (*Row, error) {
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

	for {
		res, err := r.scanNext()
		if err != nil {
			if fatal(err) {
				r.err = err
			}
			return nil, err
		}
		if res.bytesConsumed == 0 {
			return nil, io.EOF
		}

		rowBytes := r.rb.window()[:res.rowLength]
		r.rb.advance(res.bytesConsumed)

		if r.skippable(res, rowBytes) {
			r.bumpLine(res)
			continue
		}

		if r.Limits.MaxRows > 0 && r.rowNum >= r.Limits.MaxRows {
			err := r.streamErr(ErrTooManyRows, 0, rowBytes)
			r.err = err
			return nil, err
		}
		r.rowNum++
		lineStart := r.lineNum
		r.bumpLine(res)

		// Each view is a fresh allocation so the generation check catches
		// stale pointers; the unescape scratch is recycled from the view
		// being retired.
		var scratch []byte
		if r.cur != nil {
			scratch = r.cur.scratch[:0]
		}
		r.gen++
		r.cur = &Row{
			rdr:          r,
			gen:          r.gen,
			buf:          rowBytes,
			ends:         r.ends,
			rowNum:       r.rowNum,
			lineNum:      lineStart,
			quote:        r.Quote,
			trim:         r.TrimFields,
			allowMissing: r.AllowMissingColumns,
			scratch:      scratch,
		}

		if err := r.checkWidth(res.columnCount, rowBytes); err != nil {
			// Width mismatches do not poison the stream; the caller may
			// inspect the offending row and continue.
			return r.cur, err
		}
		return r.cur, nil
	}
}

// Read reads one row and materializes it as a []string, in the manner of
// encoding/csv. Returns io.EOF when no rows remain.
func (r *Reader) Read() ([]string, error) {
	row, err := r.Next()
	if row == nil {
		return nil, err
	}
	record := row.Strings()
	if r.ReuseRecord {
		if cap(r.lastRecord) >= len(record) {
			r.lastRecord = r.lastRecord[:len(record)]
			copy(r.lastRecord, record)
			return r.lastRecord, err
		}
		r.lastRecord = record
	}
	return record, err
}

// ReadAll reads the remaining rows. A successful call returns err == nil,
// not io.EOF.
func (r *Reader) ReadAll() ([][]string, error) {
	var records [][]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return records, err
		}
		records = append(records, record)
	}
}

// Header returns the header row, or nil if HasHeader is false or the input
// was empty. Valid after the first Next/Read call.
func (r *Reader) Header() []string {
	return r.header
}

// RowNumber returns the number of data rows surfaced so far.
func (r *Reader) RowNumber() int {
	return r.rowNum
}

// Close invalidates outstanding row views, returns pooled buffers and
// closes the underlying source if it implements io.Closer. Safe to call
// multiple times.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.gen++
	if r.ends != nil {
		returnColumnEnds(r.ends)
		r.ends = nil
	}
	r.rb.release()
	if c, ok := r.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// =============================================================================
// Startup
// =============================================================================

func (r *Reader) start() error {
	r.started = true

	if r.Comma == 0 {
		r.Comma = ','
	}
	if r.Quote == 0 {
		r.Quote = '"'
	}
	if r.Comma > 0x7f || r.Comma == '\r' || r.Comma == '\n' || r.Comma == r.Quote {
		return fmt.Errorf("fastrow: %w: delimiter 0x%02x", ErrInvalidDelimiter, r.Comma)
	}
	if r.Quote > 0x7f || r.Quote == '\r' || r.Quote == '\n' {
		return fmt.Errorf("fastrow: %w: quote 0x%02x", ErrInvalidDelimiter, r.Quote)
	}
	if r.Limits.MaxColumns <= 0 {
		r.Limits.MaxColumns = defaultMaxColumns
	}

	r.rb.init(defaultBufSize, r.Limits.MaxRowBytes)
	r.ends = rentColumnEnds(r.Limits.MaxColumns)
	r.lineNum = 1

	switch {
	case r.FieldsPerRecord > 0:
		r.width = r.FieldsPerRecord
	case r.FieldsPerRecord < 0:
		r.width = -1
	}

	if err := r.skipBOM(); err != nil {
		return err
	}
	for i := 0; i < r.SkipRows; i++ {
		res, err := r.scanNext()
		if err != nil {
			return err
		}
		if res.bytesConsumed == 0 {
			return nil
		}
		r.rb.advance(res.bytesConsumed)
		r.bumpLine(res)
	}
	if r.HasHeader {
		return r.readHeader()
	}
	return nil
}

// skipBOM handles a byte-order mark on the very first fill: a UTF-8 BOM is
// skipped, UTF-16 and UTF-32 BOMs are rejected outright since the engine is
// UTF-8/ASCII oriented.
func (r *Reader) skipBOM() error {
	for !r.eof && r.rb.buffered() < 4 {
		if err := r.fill(); err != nil {
			return err
		}
	}
	w := r.rb.window()
	switch {
	case len(w) >= 4 && w[0] == 0xff && w[1] == 0xfe && w[2] == 0x00 && w[3] == 0x00:
		return fmt.Errorf("fastrow: %w: UTF-32LE byte order mark", ErrUnsupportedEncoding)
	case len(w) >= 4 && w[0] == 0x00 && w[1] == 0x00 && w[2] == 0xfe && w[3] == 0xff:
		return fmt.Errorf("fastrow: %w: UTF-32BE byte order mark", ErrUnsupportedEncoding)
	case len(w) >= 2 && w[0] == 0xff && w[1] == 0xfe:
		return fmt.Errorf("fastrow: %w: UTF-16LE byte order mark", ErrUnsupportedEncoding)
	case len(w) >= 2 && w[0] == 0xfe && w[1] == 0xff:
		return fmt.Errorf("fastrow: %w: UTF-16BE byte order mark", ErrUnsupportedEncoding)
	case len(w) >= 3 && w[0] == 0xef && w[1] == 0xbb && w[2] == 0xbf:
		r.rb.advance(3)
	}
	return nil
}

// readHeader consumes rows until a non-blank, non-comment row is found and
// materializes it as the header.
func (r *Reader) readHeader() error {
	for {
		res, err := r.scanNext()
		if err != nil {
			return err
		}
		if res.bytesConsumed == 0 {
			return nil // empty input: no header, no rows
		}
		rowBytes := r.rb.window()[:res.rowLength]
		r.rb.advance(res.bytesConsumed)
		if r.skippable(res, rowBytes) {
			r.bumpLine(res)
			continue
		}
		head := Row{buf: rowBytes, ends: r.ends, quote: r.Quote, trim: r.TrimFields}
		r.header = head.Strings()
		r.bumpLine(res)
		if r.width == 0 {
			r.width = len(r.header)
		}
		return nil
	}
}

// =============================================================================
// Scan loop
// =============================================================================

// scanNext scans one row from the buffer, refilling from the source as
// needed. On return the row occupies window()[:rowLength]. A result with
// bytesConsumed == 0 means the stream is exhausted.
func (r *Reader) scanNext() (rowScanResult, error) {
	r.st.reset()
	r.ends.reset()
	for {
		res, status := scanRow(r.rb.window(), r.Comma, r.Quote, r.eof, &r.st, r.ends)
		switch status {
		case scanRowReady:
			return res, nil
		case scanNeedMore:
			if err := r.fill(); err != nil {
				return rowScanResult{}, err
			}
		case scanColumnOverflow:
			return rowScanResult{}, r.streamErr(ErrTooManyColumns, r.st.stall, r.rb.window())
		case scanQuoteOpen:
			return rowScanResult{}, r.streamErr(ErrUnterminatedQuote, r.st.stall, r.rb.window())
		}
	}
}

// fill pulls more bytes from the source, the sole suspension point. Checks
// for cancellation first, then reads until progress, end of stream or error.
func (r *Reader) fill() error {
	if r.ctx != nil {
		if err := r.ctx.Err(); err != nil {
			return err
		}
	}
	for {
		n, err := r.rb.readMore(r.src)
		if err == ErrRowTooLarge {
			return r.streamErr(ErrRowTooLarge, 0, r.rb.window())
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
		// Read returned (0, nil); permitted by io.Reader, try again.
	}
}

// skippable reports whether a scanned row is a blank line or a comment.
func (r *Reader) skippable(res rowScanResult, rowBytes []byte) bool {
	if res.rowLength == 0 && res.columnCount == 1 {
		return true
	}
	return r.Comment != 0 && len(rowBytes) > 0 && rowBytes[0] == r.Comment
}

// bumpLine advances physical line bookkeeping past a consumed row.
func (r *Reader) bumpLine(res rowScanResult) {
	r.lineNum++
	if r.TrackLineNumbers {
		r.lineNum += res.newlineCount
	}
}

// checkWidth enforces the expected field count once established.
func (r *Reader) checkWidth(count int, rowBytes []byte) error {
	switch {
	case r.width < 0:
		return nil
	case r.width == 0:
		r.width = count
		return nil
	case count == r.width:
		return nil
	case count < r.width && r.AllowShortRows:
		return nil
	}
	return &ParseError{
		Row:     r.rowNum,
		Line:    r.cur.lineNum,
		Snippet: errSnippet(rowBytes),
		Err:     ErrFieldCount,
	}
}

// streamErr builds a ParseError for the row currently being scanned.
func (r *Reader) streamErr(err error, col int, data []byte) error {
	pe := &ParseError{
		Row:     r.rowNum + 1,
		Line:    r.lineNum,
		Snippet: errSnippet(data),
		Err:     err,
	}
	if col > 0 || err == ErrUnterminatedQuote {
		pe.Column = col + 1
	}
	return pe
}

// fatal reports whether an error poisons the stream. Width mismatches are
// recoverable; everything else is not.
func fatal(err error) bool {
	pe, ok := err.(*ParseError)
	return !ok || pe.Err != ErrFieldCount
}
