package fastrow

import "fmt"

// =============================================================================
// Public API - Direct Parsing
// =============================================================================

// ParseBytes parses an in-memory byte slice directly, without streaming
// buffer management, and returns all records. The delimiter must be ASCII.
func ParseBytes(data []byte, comma byte) ([][]string, error) {
	var records [][]string
	err := ParseBytesStreaming(data, comma, func(record []string) error {
		records = append(records, record)
		return nil
	})
	return records, err
}

// ParseBytesStreaming parses data and invokes callback for each record. If
// the callback returns an error, parsing stops and that error is returned.
func ParseBytesStreaming(data []byte, comma byte, callback func([]string) error) error {
	if len(data) == 0 {
		return nil
	}
	if comma == 0 {
		comma = ','
	}
	if comma > 0x7f || comma == '\r' || comma == '\n' || comma == '"' {
		return fmt.Errorf("fastrow: %w: delimiter 0x%02x", ErrInvalidDelimiter, comma)
	}

	ends := rentColumnEnds(defaultMaxColumns)
	defer returnColumnEnds(ends)

	var st scanState
	offset := 0
	rowNum := 0
	lineNum := 1

	for offset < len(data) {
		st.reset()
		ends.reset()
		res, status := scanRow(data[offset:], comma, '"', true, &st, ends)
		switch status {
		case scanColumnOverflow:
			return &ParseError{Row: rowNum + 1, Line: lineNum, Column: st.stall + 1,
				Snippet: errSnippet(data[offset:]), Err: ErrTooManyColumns}
		case scanQuoteOpen:
			return &ParseError{Row: rowNum + 1, Line: lineNum, Column: st.stall + 1,
				Snippet: errSnippet(data[offset:]), Err: ErrUnterminatedQuote}
		}
		if res.bytesConsumed == 0 {
			break
		}

		rowBytes := data[offset : offset+res.rowLength]
		offset += res.bytesConsumed
		lineNum += 1 + res.newlineCount

		if res.rowLength == 0 && res.columnCount == 1 {
			continue // blank line
		}
		rowNum++

		row := Row{buf: rowBytes, ends: ends, rowNum: rowNum, quote: '"'}
		if err := callback(row.Strings()); err != nil {
			return err
		}
	}
	return nil
}
