package fastrow

import "fmt"

// Row is a non-owning view over one parsed row: a slice of the reader's
// buffer plus the column-offset buffer the scanner filled in. It is valid
// until the next call to Next (or Close) on the reader that produced it;
// reading a stale Row panics. Clone escapes the borrow.
type Row struct {
	rdr     *Reader
	gen     uint64
	buf     []byte
	ends    *columnEnds
	rowNum  int
	lineNum int

	quote        byte
	trim         bool
	allowMissing bool
	scratch      []byte // unescape scratch, append-only per row
}

// checkValid panics if the view has been invalidated by a later advance.
func (r *Row) checkValid() {
	if r.rdr != nil && r.rdr.gen != r.gen {
		panic("fastrow: row view used after Next or Close")
	}
}

// Len returns the number of columns in the row.
func (r *Row) Len() int {
	r.checkValid()
	return r.ends.count()
}

// RowNumber returns the 1-based row number within the stream (header and
// skipped rows not counted).
func (r *Row) RowNumber() int {
	return r.rowNum
}

// LineNumber returns the 1-based physical source line the row started on.
// Meaningful only when line tracking is enabled on the reader.
func (r *Row) LineNumber() int {
	return r.lineNum
}

// Field returns a view of column i. Out-of-range access panics with a clear
// message unless the reader allows missing columns, in which case an absent
// Field is returned.
func (r *Row) Field(i int) Field {
	r.checkValid()
	if i < 0 || i >= r.ends.count() {
		if r.allowMissing {
			return Field{absent: true}
		}
		panic(fmt.Sprintf("fastrow: column index %d out of range for row with %d columns", i, r.ends.count()))
	}
	start, end := r.ends.bounds(i)
	return Field{data: r.materialize(r.buf[start:end])}
}

// Strings materializes every column into a freshly allocated []string.
// Fields are accumulated into a single buffer and sliced after one string
// conversion, so the whole row costs two allocations.
func (r *Row) Strings() []string {
	r.checkValid()
	n := r.ends.count()
	fieldEnds := make([]int, n)
	var buf []byte
	for i := 0; i < n; i++ {
		start, end := r.ends.bounds(i)
		buf = r.appendMaterialized(buf, r.buf[start:end])
		fieldEnds[i] = len(buf)
	}

	str := string(buf)
	record := make([]string, n)
	prev := 0
	for i, end := range fieldEnds {
		record[i] = str[prev:end]
		prev = end
	}
	return record
}

// Clone copies the row into independently owned storage, breaking the borrow
// on the reader's buffer.
func (r *Row) Clone() OwnedRow {
	return OwnedRow{
		fields:  r.Strings(),
		rowNum:  r.rowNum,
		lineNum: r.lineNum,
	}
}

// materialize produces the content bytes for one raw column span, writing
// into the row scratch when unescaping is required.
func (r *Row) materialize(raw []byte) []byte {
	if r.trim {
		raw = trimSpan(raw)
	}
	if len(raw) == 0 || raw[0] != r.quote {
		return raw
	}
	inner := quotedContent(raw, r.quote)
	if !needsUnescape(inner, r.quote) {
		return inner
	}
	from := len(r.scratch)
	r.scratch = appendUnescaped(r.scratch, inner, r.quote)
	return r.scratch[from:]
}

// appendMaterialized appends the content bytes for one raw column span to
// dst.
func (r *Row) appendMaterialized(dst, raw []byte) []byte {
	if r.trim {
		raw = trimSpan(raw)
	}
	if len(raw) == 0 || raw[0] != r.quote {
		return append(dst, raw...)
	}
	inner := quotedContent(raw, r.quote)
	if !needsUnescape(inner, r.quote) {
		return append(dst, inner...)
	}
	return appendUnescaped(dst, inner, r.quote)
}

// quotedContent strips the surrounding quotes from a quoted span, leaving
// escaped quote pairs in place. raw[0] must be the quote character. Anything
// after the closing quote is not field content and is dropped.
func quotedContent(raw []byte, quote byte) []byte {
	for i := 1; i < len(raw); i++ {
		if raw[i] != quote {
			continue
		}
		if i+1 < len(raw) && raw[i+1] == quote {
			i++ // escaped pair, keep scanning
			continue
		}
		return raw[1:i]
	}
	// Closing quote at end of stream was consumed by the scanner, or the
	// input is lazily quoted; treat the rest as content.
	return raw[1:]
}

// needsUnescape reports whether inner contains escaped quotes or CRLF pairs
// that must be rewritten.
func needsUnescape(inner []byte, quote byte) bool {
	for i := 0; i < len(inner); i++ {
		if inner[i] == quote {
			return true
		}
		if inner[i] == '\r' && i+1 < len(inner) && inner[i+1] == '\n' {
			return true
		}
	}
	return false
}

// appendUnescaped appends inner to dst, collapsing "" to " and CRLF to LF.
func appendUnescaped(dst, inner []byte, quote byte) []byte {
	for i := 0; i < len(inner); i++ {
		b := inner[i]
		if b == quote && i+1 < len(inner) && inner[i+1] == quote {
			dst = append(dst, quote)
			i++
		} else if b == '\r' && i+1 < len(inner) && inner[i+1] == '\n' {
			dst = append(dst, '\n')
			i++
		} else {
			dst = append(dst, b)
		}
	}
	return dst
}

// trimSpan trims ASCII space and tab from both ends of a span.
func trimSpan(b []byte) []byte {
	for len(b) > 0 && (b[0] == ' ' || b[0] == '\t') {
		b = b[1:]
	}
	for len(b) > 0 && (b[len(b)-1] == ' ' || b[len(b)-1] == '\t') {
		b = b[:len(b)-1]
	}
	return b
}

// OwnedRow is a fully materialized row with no ties to reader storage.
type OwnedRow struct {
	fields  []string
	rowNum  int
	lineNum int
}

// Len returns the number of columns.
func (o OwnedRow) Len() int {
	return len(o.fields)
}

// Field returns column i. Unlike Row.Field, out-of-range access always
// panics; an owned row has no reader configuration to consult.
func (o OwnedRow) Field(i int) string {
	return o.fields[i]
}

// Strings returns the backing field slice.
func (o OwnedRow) Strings() []string {
	return o.fields
}

// RowNumber returns the 1-based row number the clone was taken from.
func (o OwnedRow) RowNumber() int {
	return o.rowNum
}

// LineNumber returns the 1-based source line the clone was taken from.
func (o OwnedRow) LineNumber() int {
	return o.lineNum
}
