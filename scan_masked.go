package fastrow

import "math/bits"

// =============================================================================
// Masked Row Scanner
// =============================================================================
//
// The masked scanner walks the row in 64-byte chunks. A mask kernel flags
// every quote, delimiter, CR and LF position in the chunk as one bit each;
// the set bits are then interpreted in ascending order with exactly the
// semantics of scanRowScalar. Vectorization only finds candidate positions
// faster - chunks whose combined mask is zero are skipped outright, which is
// the fast path for long unquoted runs. Bytes adjacent to a candidate
// (escaped-quote pairs, CRLF) are classified by reading the buffer directly,
// so decisions never depend on chunk alignment.
//
// A partial tail chunk goes through maskTail, which pads into a stack buffer
// and masks with the scalar generator; the scanner never reads past the end
// of buf.

// maskedMinLen is the minimum unscanned length for the masked path to be
// worthwhile; shorter rows go straight to the scalar scanner.
const maskedMinLen = chunkSize

// scanRow scans the next row using the kernel chosen by the capability
// selector, falling back to the scalar scanner for short inputs.
func scanRow(buf []byte, delim, quote byte, atEOF bool, st *scanState, ends *columnEnds) (rowScanResult, scanStatus) {
	if len(buf)-st.scanned >= maskedMinLen {
		return scanRowMasked(buf, delim, quote, atEOF, st, ends, selectKernel().masks)
	}
	return scanRowScalar(buf, delim, quote, atEOF, st, ends)
}

// scanRowMasked is the chunked counterpart of scanRowScalar. Same contract,
// same results, for every input and every kernel.
func scanRowMasked(buf []byte, delim, quote byte, atEOF bool, st *scanState, ends *columnEnds, k maskKernel) (rowScanResult, scanStatus) {
	n := len(buf)
	next := st.scanned // next byte to interpret, absolute

	for chunkStart := (next / chunkSize) * chunkSize; chunkStart < n; chunkStart += chunkSize {
		var quoteMask, delimMask, crMask, lfMask uint64
		if n-chunkStart >= chunkSize {
			quoteMask, delimMask, crMask, lfMask = k(buf[chunkStart:], delim, quote)
		} else {
			quoteMask, delimMask, crMask, lfMask = maskTail(buf[chunkStart:], delim, quote)
		}

		combined := quoteMask | delimMask | crMask | lfMask
		if combined == 0 {
			continue
		}
		// Drop bits already consumed (resume point, escaped pairs and CRLF
		// sequences straddling the previous chunk).
		if next > chunkStart {
			combined &^= (uint64(1) << (next - chunkStart)) - 1
		}

		for combined != 0 {
			rel := bits.TrailingZeros64(combined)
			combined &= combined - 1
			pos := chunkStart + rel
			if pos < next {
				continue // consumed as part of an escaped pair or CRLF
			}
			b := buf[pos]

			if st.quoted {
				switch {
				case b == quote:
					if pos+1 < n {
						if buf[pos+1] == quote {
							next = pos + 2 // escaped quote
							continue
						}
						st.quoted = false
						next = pos + 1
					} else if atEOF {
						st.quoted = false
						next = pos + 1
					} else {
						st.scanned = pos
						return rowScanResult{}, scanNeedMore
					}
				case b == '\n':
					st.newlines++
					next = pos + 1
				default: // '\r'
					if pos+1 < n {
						st.newlines++
						if buf[pos+1] == '\n' {
							next = pos + 2
						} else {
							next = pos + 1
						}
					} else if atEOF {
						st.newlines++
						next = pos + 1
					} else {
						st.scanned = pos
						return rowScanResult{}, scanNeedMore
					}
				}
				continue
			}

			switch {
			case b == quote:
				st.quoted = true
				st.quoteStart = pos
				next = pos + 1
			case b == delim:
				if !ends.pushDelim(pos) {
					st.stall = pos
					return rowScanResult{}, scanColumnOverflow
				}
				next = pos + 1
			case b == '\n':
				return finishRow(st, ends, pos, pos+1), scanRowReady
			default: // '\r'
				if pos+1 < n {
					consumed := pos + 1
					if buf[pos+1] == '\n' {
						consumed++
					}
					return finishRow(st, ends, pos, consumed), scanRowReady
				}
				if atEOF {
					return finishRow(st, ends, pos, pos+1), scanRowReady
				}
				st.scanned = pos
				return rowScanResult{}, scanNeedMore
			}
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
	return finishRow(st, ends, n, n), scanRowReady
}
