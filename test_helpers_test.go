package fastrow

import (
	"bytes"
	"encoding/csv"
	"io"
	"reflect"
	"strings"
	"testing"
)

// =============================================================================
// Test Helper Functions
// =============================================================================

// readerOptions holds optional settings for reader comparison.
type readerOptions struct {
	comma      byte
	comment    byte
	trimFields bool
}

// compareWithStdlib compares fastrow output with encoding/csv output for
// inputs both parsers define the same way.
func compareWithStdlib(t *testing.T, input string, opts *readerOptions) {
	t.Helper()

	stdReader := csv.NewReader(strings.NewReader(input))
	stdReader.FieldsPerRecord = -1
	if opts != nil {
		if opts.comma != 0 {
			stdReader.Comma = rune(opts.comma)
		}
		if opts.comment != 0 {
			stdReader.Comment = rune(opts.comment)
		}
		stdReader.TrimLeadingSpace = false
	}

	fr := NewReader(strings.NewReader(input))
	fr.FieldsPerRecord = -1
	if opts != nil {
		if opts.comma != 0 {
			fr.Comma = opts.comma
		}
		if opts.comment != 0 {
			fr.Comment = opts.comment
		}
	}
	defer fr.Close()

	recordNum := 0
	for {
		stdRecord, stdErr := stdReader.Read()
		record, err := fr.Read()

		stdIsEOF := stdErr == io.EOF
		isEOF := err == io.EOF
		if stdIsEOF != isEOF {
			t.Errorf("EOF mismatch at record %d: encoding/csv EOF=%v, fastrow EOF=%v",
				recordNum, stdIsEOF, isEOF)
			return
		}
		if stdIsEOF {
			break
		}
		if (stdErr != nil) != (err != nil) {
			t.Errorf("error mismatch at record %d: encoding/csv err=%v, fastrow err=%v",
				recordNum, stdErr, err)
			return
		}
		if stdErr != nil {
			return
		}

		if !reflect.DeepEqual(stdRecord, record) {
			t.Errorf("record %d mismatch:\nencoding/csv=%q\nfastrow=%q",
				recordNum, stdRecord, record)
		}
		recordNum++
	}
}

// compareWriterWithStdlib compares fastrow Writer output with encoding/csv
// Writer output.
func compareWriterWithStdlib(t *testing.T, records [][]string, useCRLF bool) {
	t.Helper()

	var stdBuf bytes.Buffer
	stdWriter := csv.NewWriter(&stdBuf)
	stdWriter.UseCRLF = useCRLF
	if err := stdWriter.WriteAll(records); err != nil {
		t.Fatalf("encoding/csv WriteAll error: %v", err)
	}

	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.UseCRLF = useCRLF
	if err := w.WriteAll(records); err != nil {
		t.Fatalf("fastrow WriteAll error: %v", err)
	}

	if stdBuf.String() != buf.String() {
		t.Errorf("output mismatch:\nencoding/csv=%q\nfastrow=%q",
			stdBuf.String(), buf.String())
	}
}

// scanFn abstracts over the scalar scanner and kernel-bound masked scanners
// so the equivalence tests can drive them through one loop.
type scanFn func(buf []byte, delim, quote byte, atEOF bool, st *scanState, ends *columnEnds) (rowScanResult, scanStatus)

// maskedScanFn binds a mask kernel into a scanFn.
func maskedScanFn(k maskKernel) scanFn {
	return func(buf []byte, delim, quote byte, atEOF bool, st *scanState, ends *columnEnds) (rowScanResult, scanStatus) {
		return scanRowMasked(buf, delim, quote, atEOF, st, ends, k)
	}
}

// scanTrace captures everything a scanner decides about one row.
type scanTrace struct {
	res    rowScanResult
	status scanStatus
	ends   []int32
}

// traceScan runs scan over the whole input and records per-row results. The
// trace includes the terminal status, so disagreeing error positions fail the
// comparison too.
func traceScan(data []byte, delim byte, maxColumns int, scan scanFn) []scanTrace {
	ends := newColumnEnds(maxColumns)
	var st scanState
	var out []scanTrace

	offset := 0
	for offset <= len(data) {
		st.reset()
		ends.reset()
		res, status := scan(data[offset:], delim, '"', true, &st, ends)
		tr := scanTrace{res: res, status: status}
		tr.ends = append(tr.ends, ends.ends...)
		out = append(out, tr)
		if status != scanRowReady || res.bytesConsumed == 0 {
			break
		}
		offset += res.bytesConsumed
	}
	return out
}

// traceScanChunked is traceScan with the input revealed feed bytes at a time,
// exercising the needMore resume path.
func traceScanChunked(data []byte, delim byte, maxColumns, feed int, scan scanFn) []scanTrace {
	ends := newColumnEnds(maxColumns)
	var st scanState
	var out []scanTrace

	offset := 0
	revealed := feed
	if revealed > len(data) {
		revealed = len(data)
	}
	for offset <= len(data) {
		st.reset()
		ends.reset()
		for {
			atEOF := revealed == len(data)
			res, status := scan(data[offset:revealed], delim, '"', atEOF, &st, ends)
			if status == scanNeedMore {
				revealed += feed
				if revealed > len(data) {
					revealed = len(data)
				}
				continue
			}
			tr := scanTrace{res: res, status: status}
			tr.ends = append(tr.ends, ends.ends...)
			out = append(out, tr)
			if status != scanRowReady || res.bytesConsumed == 0 {
				return out
			}
			offset += res.bytesConsumed
			break
		}
	}
	return out
}
