package fastrow

// =============================================================================
// Scalar Row Scanner - the correctness oracle
// =============================================================================
//
// The scanner walks one row of delimiter-separated text and locates its
// column and row boundaries. Quote handling is pure parity: a quote byte
// toggles between unquoted and quoted state; while quoted, delimiters and
// newlines are field content, and a doubled quote ("") is an escaped quote.
//
// The scanner is resumable. When it runs off the end of the buffer without
// finding a row terminator it reports scanNeedMore and records how far it
// got in scanState; the caller refills the buffer (keeping the row start at
// offset 0) and calls again. The scanner itself never allocates and never
// enforces stream-level limits - those belong to the caller. The column cap
// is the single exception, because the scanner must detect offset-buffer
// overflow before writing past it.
//
// Every accelerated scanner variant must produce byte-identical results to
// this one for every input.
// =============================================================================

// scanStatus reports the outcome of a scan call.
type scanStatus int

const (
	scanRowReady scanStatus = iota // complete row located
	scanNeedMore                   // buffer exhausted mid-row, refill and resume
	scanColumnOverflow             // column cap exceeded at scanState.stall
	scanQuoteOpen                  // end of stream with quote parity still open
)

// rowScanResult describes one scanned row. bytesConsumed includes the line
// ending, rowLength excludes it. newlineCount is the number of line breaks
// embedded in quoted fields, for source-line bookkeeping.
type rowScanResult struct {
	columnCount   int
	rowLength     int
	bytesConsumed int
	newlineCount  int
}

// scanState carries per-row scanner state across buffer refills.
type scanState struct {
	quoted     bool // inside a quoted field
	quoteStart int  // row-relative offset of the opening quote, -1 if none
	scanned    int  // bytes of the current row already interpreted
	newlines   int  // line breaks seen inside quoted fields so far
	stall      int  // position of the byte that caused a non-ready status
}

func (s *scanState) reset() {
	s.quoted = false
	s.quoteStart = -1
	s.scanned = 0
	s.newlines = 0
	s.stall = 0
}

// scanRowScalar scans the next row starting at buf[0], resuming at
// state.scanned. buf must begin at the row start and keep doing so across
// refills; the streaming reader guarantees this by compacting unconsumed
// bytes to the front of its buffer.
func scanRowScalar(buf []byte, delim, quote byte, atEOF bool, st *scanState, ends *columnEnds) (rowScanResult, scanStatus) {
	i := st.scanned
	n := len(buf)

	for i < n {
		b := buf[i]

		if st.quoted {
			switch b {
			case quote:
				if i+1 < n {
					if buf[i+1] == quote {
						i += 2 // escaped quote, stays quoted
						continue
					}
					st.quoted = false
					i++
				} else if atEOF {
					st.quoted = false
					i++
				} else {
					// Cannot tell a closing quote from the first half of an
					// escaped pair without the next byte.
					st.scanned = i
					return rowScanResult{}, scanNeedMore
				}
			case '\n':
				st.newlines++
				i++
			case '\r':
				if i+1 < n {
					if buf[i+1] == '\n' {
						st.newlines++
						i += 2
					} else {
						st.newlines++
						i++
					}
				} else if atEOF {
					st.newlines++
					i++
				} else {
					st.scanned = i
					return rowScanResult{}, scanNeedMore
				}
			default:
				i++
			}
			continue
		}

		switch b {
		case quote:
			st.quoted = true
			st.quoteStart = i
			i++
		case delim:
			if !ends.pushDelim(i) {
				st.stall = i
				return rowScanResult{}, scanColumnOverflow
			}
			i++
		case '\n':
			return finishRow(st, ends, i, i+1), scanRowReady
		case '\r':
			if i+1 < n {
				consumed := i + 1
				if buf[i+1] == '\n' {
					consumed++
				}
				return finishRow(st, ends, i, consumed), scanRowReady
			}
			if atEOF {
				return finishRow(st, ends, i, i+1), scanRowReady
			}
			// A lone CR at the buffer end may be half of a CRLF.
			st.scanned = i
			return rowScanResult{}, scanNeedMore
		default:
			i++
		}
	}

	if !atEOF {
		st.scanned = n
		return rowScanResult{}, scanNeedMore
	}
	if st.quoted {
		st.stall = st.quoteStart
		return rowScanResult{}, scanQuoteOpen
	}
	// Final row without a trailing line ending. An empty buffer yields
	// bytesConsumed == 0, which the caller reads as "nothing more".
	return finishRow(st, ends, n, n), scanRowReady
}

// finishRow closes the last column and assembles the result.
func finishRow(st *scanState, ends *columnEnds, rowLen, consumed int) rowScanResult {
	ends.pushFinal(rowLen)
	return rowScanResult{
		columnCount:   ends.count(),
		rowLength:     rowLen,
		bytesConsumed: consumed,
		newlineCount:  st.newlines,
	}
}
