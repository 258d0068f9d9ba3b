package fastrow

import (
	"context"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
	"testing/iotest"
)

// =============================================================================
// Reader Tests
// =============================================================================

func TestReader_Basic(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  [][]string
	}{
		{
			name:  "simple rows",
			input: "a,b,c\n1,2,3\n",
			want:  [][]string{{"a", "b", "c"}, {"1", "2", "3"}},
		},
		{
			name:  "empty fields",
			input: "a,,c\n",
			want:  [][]string{{"a", "", "c"}},
		},
		{
			name:  "quoted delimiter",
			input: "a,\"b,c\",d\n",
			want:  [][]string{{"a", "b,c", "d"}},
		},
		{
			name:  "escaped quote",
			input: "a,\"b\"\"c\",d\n",
			want:  [][]string{{"a", "b\"c", "d"}},
		},
		{
			name:  "multiline quoted field",
			input: "\"line1\nline2\",x\n",
			want:  [][]string{{"line1\nline2", "x"}},
		},
		{
			name:  "crlf in quoted field becomes lf",
			input: "\"line1\r\nline2\",x\r\n",
			want:  [][]string{{"line1\nline2", "x"}},
		},
		{
			name:  "no trailing newline",
			input: "a,b",
			want:  [][]string{{"a", "b"}},
		},
		{
			name:  "blank lines skipped",
			input: "a,b\n\n\nc,d\n",
			want:  [][]string{{"a", "b"}, {"c", "d"}},
		},
		{
			name:  "crlf line endings",
			input: "a,b\r\nc,d\r\n",
			want:  [][]string{{"a", "b"}, {"c", "d"}},
		},
		{
			name:  "empty input",
			input: "",
			want:  nil,
		},
		{
			name:  "utf8 content",
			input: "naïve,声,🚀\n",
			want:  [][]string{{"naïve", "声", "🚀"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(strings.NewReader(tt.input))
			r.FieldsPerRecord = -1
			defer r.Close()
			got, err := r.ReadAll()
			if err != nil {
				t.Fatalf("ReadAll error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("records mismatch:\ngot=%q\nwant=%q", got, tt.want)
			}
		})
	}
}

func TestReader_MatchesStdlib(t *testing.T) {
	inputs := []string{
		"a,b,c\n1,2,3\n",
		"a,,c\n,,\n",
		"\"a\",\"b,c\",\"d\"\"e\"\n",
		"\"multi\nline\",x\n\"more\r\nlines\",y\n",
		"single\n",
		"a,b,c",
		"x,y\n\n\nz,w\n",
		strings.Repeat("field1,field2,field3,field4\n", 500),
		strings.Repeat("\"quoted,value\",plain\n", 300),
	}
	for i, input := range inputs {
		compareWithStdlib(t, input, nil)
		_ = i
	}

	compareWithStdlib(t, "a;b;c\n1;2;3\n", &readerOptions{comma: ';'})
	compareWithStdlib(t, "a\tb\n1\t2\n", &readerOptions{comma: '\t'})
	compareWithStdlib(t, "#skip\na,b\n#also\nc,d\n", &readerOptions{comment: '#'})
}

func TestReader_Header(t *testing.T) {
	input := "Name,Age\nAlice,30\nBob,25\n"
	r := NewReader(strings.NewReader(input))
	r.HasHeader = true
	defer r.Close()

	row, err := r.Next()
	if err != nil {
		t.Fatalf("Next error: %v", err)
	}
	if got := r.Header(); !reflect.DeepEqual(got, []string{"Name", "Age"}) {
		t.Fatalf("Header = %q", got)
	}
	if got := row.Field(0).String(); got != "Alice" {
		t.Errorf("first data field = %q, want Alice", got)
	}
	if row.RowNumber() != 1 {
		t.Errorf("RowNumber = %d, want 1 (header not counted)", row.RowNumber())
	}

	row, err = r.Next()
	if err != nil {
		t.Fatalf("Next error: %v", err)
	}
	if got := row.Field(0).String(); got != "Bob" {
		t.Errorf("second data field = %q, want Bob", got)
	}
	if _, err := r.Next(); err != io.EOF {
		t.Fatalf("Next after last row = %v, want io.EOF", err)
	}
}

func TestReader_HeaderOnlyInput(t *testing.T) {
	// With and without a trailing newline: zero data rows, populated header.
	for _, input := range []string{"Name,Age", "Name,Age\n"} {
		r := NewReader(strings.NewReader(input))
		r.HasHeader = true
		if _, err := r.Next(); err != io.EOF {
			t.Fatalf("input %q: Next = %v, want io.EOF", input, err)
		}
		if got := r.Header(); !reflect.DeepEqual(got, []string{"Name", "Age"}) {
			t.Errorf("input %q: Header = %q", input, got)
		}
		r.Close()
	}
}

func TestReader_SkipRows(t *testing.T) {
	input := "garbage line\nmore garbage\nName,Age\nAlice,30\n"
	r := NewReader(strings.NewReader(input))
	r.SkipRows = 2
	r.HasHeader = true
	defer r.Close()

	row, err := r.Next()
	if err != nil {
		t.Fatalf("Next error: %v", err)
	}
	if got := r.Header(); !reflect.DeepEqual(got, []string{"Name", "Age"}) {
		t.Errorf("Header = %q", got)
	}
	if got := row.Field(0).String(); got != "Alice" {
		t.Errorf("field = %q, want Alice", got)
	}
}

func TestReader_Comment(t *testing.T) {
	input := "# a comment\na,b\n#another\nc,d\n"
	r := NewReader(strings.NewReader(input))
	r.Comment = '#'
	defer r.Close()

	got, err := r.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll error: %v", err)
	}
	want := [][]string{{"a", "b"}, {"c", "d"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("records = %q, want %q", got, want)
	}
}

func TestReader_TrimFields(t *testing.T) {
	r := NewReader(strings.NewReader("  a , b\t,\tc  \n"))
	r.TrimFields = true
	defer r.Close()

	got, err := r.Read()
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("record = %q, want %q", got, want)
	}
}

func TestReader_BOM(t *testing.T) {
	t.Run("utf8 bom skipped", func(t *testing.T) {
		r := NewReader(strings.NewReader("\xef\xbb\xbfName,Age\nAlice,30\n"))
		r.HasHeader = true
		defer r.Close()
		if _, err := r.Next(); err != nil {
			t.Fatalf("Next error: %v", err)
		}
		if got := r.Header(); !reflect.DeepEqual(got, []string{"Name", "Age"}) {
			t.Errorf("Header = %q, BOM leaked into first field", got)
		}
	})

	t.Run("utf16 bom rejected", func(t *testing.T) {
		r := NewReader(strings.NewReader("\xff\xfeN\x00a\x00m\x00e\x00"))
		defer r.Close()
		_, err := r.Next()
		if !errors.Is(err, ErrUnsupportedEncoding) {
			t.Fatalf("Next = %v, want ErrUnsupportedEncoding", err)
		}
	})

	t.Run("utf32 bom rejected", func(t *testing.T) {
		r := NewReader(strings.NewReader("\xff\xfe\x00\x00rest"))
		defer r.Close()
		_, err := r.Next()
		if !errors.Is(err, ErrUnsupportedEncoding) {
			t.Fatalf("Next = %v, want ErrUnsupportedEncoding", err)
		}
	})
}

// TestReader_SmallReads feeds input one byte at a time so every row crosses
// multiple refills, including inside quoted fields.
func TestReader_SmallReads(t *testing.T) {
	input := "Name,Comment\nAlice,\"line one\nline two\"\nBob,\"says \"\"hi\"\"\"\n"
	r := NewReader(iotest.OneByteReader(strings.NewReader(input)))
	defer r.Close()

	got, err := r.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll error: %v", err)
	}
	want := [][]string{
		{"Name", "Comment"},
		{"Alice", "line one\nline two"},
		{"Bob", `says "hi"`},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("records mismatch:\ngot=%q\nwant=%q", got, want)
	}
}

// TestReader_LargeRow pushes a row past the initial buffer size so the
// growth path runs under a real scan.
func TestReader_LargeRow(t *testing.T) {
	field := strings.Repeat("x", 200_000)
	input := field + ",\"" + field + "\"\n" + "a,b\n"

	r := NewReader(strings.NewReader(input))
	defer r.Close()
	records, err := r.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0][0] != field || records[0][1] != field {
		t.Error("large fields corrupted across buffer growth")
	}
	if !reflect.DeepEqual(records[1], []string{"a", "b"}) {
		t.Errorf("trailing record = %q", records[1])
	}
}

func TestReader_MaxColumns(t *testing.T) {
	r := NewReader(strings.NewReader("a,b,c,d\n"))
	r.Limits.MaxColumns = 3
	defer r.Close()

	_, err := r.Next()
	if !errors.Is(err, ErrTooManyColumns) {
		t.Fatalf("Next = %v, want ErrTooManyColumns", err)
	}
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error is not a *ParseError: %v", err)
	}
	if pe.Row != 1 {
		t.Errorf("Row = %d, want 1", pe.Row)
	}
	// The third delimiter at offset 5 opens the fourth column.
	if pe.Column != 6 {
		t.Errorf("Column = %d, want 6", pe.Column)
	}

	// The stream is poisoned; later calls repeat the error.
	if _, err2 := r.Next(); !errors.Is(err2, ErrTooManyColumns) {
		t.Errorf("second Next = %v, want ErrTooManyColumns", err2)
	}
}

func TestReader_MaxRows(t *testing.T) {
	r := NewReader(strings.NewReader("a\nb\nc\nd\n"))
	r.Limits.MaxRows = 2
	defer r.Close()

	for i := 0; i < 2; i++ {
		if _, err := r.Next(); err != nil {
			t.Fatalf("Next %d error: %v", i, err)
		}
	}
	_, err := r.Next()
	if !errors.Is(err, ErrTooManyRows) {
		t.Fatalf("Next = %v, want ErrTooManyRows", err)
	}
}

func TestReader_MaxRowBytes(t *testing.T) {
	// A 100-byte row against a 64-byte cap: buffer growth stops at the cap.
	input := strings.Repeat("x", 100)
	r := NewReader(strings.NewReader(input))
	r.Limits.MaxRowBytes = 64
	defer r.Close()

	_, err := r.Next()
	if !errors.Is(err, ErrRowTooLarge) {
		t.Fatalf("Next = %v, want ErrRowTooLarge", err)
	}
}

func TestReader_UnterminatedQuote(t *testing.T) {
	r := NewReader(strings.NewReader("a,\"never closed\nmore,data"))
	defer r.Close()

	_, err := r.Next()
	if !errors.Is(err, ErrUnterminatedQuote) {
		t.Fatalf("Next = %v, want ErrUnterminatedQuote", err)
	}
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error is not a *ParseError: %v", err)
	}
	if pe.Column != 3 {
		t.Errorf("Column = %d, want 3 (opening quote)", pe.Column)
	}
}

func TestReader_InvalidDelimiter(t *testing.T) {
	tests := []struct {
		name  string
		comma byte
		quote byte
	}{
		{name: "non-ascii comma", comma: 0xff},
		{name: "newline comma", comma: '\n'},
		{name: "cr comma", comma: '\r'},
		{name: "comma equals quote", comma: '"'},
		{name: "non-ascii quote", comma: ',', quote: 0xfe},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(strings.NewReader("a,b\n"))
			r.Comma = tt.comma
			if tt.quote != 0 {
				r.Quote = tt.quote
			}
			defer r.Close()
			if _, err := r.Next(); !errors.Is(err, ErrInvalidDelimiter) {
				t.Fatalf("Next = %v, want ErrInvalidDelimiter", err)
			}
		})
	}
}

func TestReader_FieldCount(t *testing.T) {
	t.Run("mismatch is recoverable", func(t *testing.T) {
		r := NewReader(strings.NewReader("a,b\nc\nd,e\n"))
		defer r.Close()

		if _, err := r.Next(); err != nil {
			t.Fatalf("row 1 error: %v", err)
		}
		row, err := r.Next()
		if !errors.Is(err, ErrFieldCount) {
			t.Fatalf("row 2 error = %v, want ErrFieldCount", err)
		}
		if row == nil || row.Len() != 1 {
			t.Fatal("offending row not returned alongside the error")
		}
		// The stream continues past the short row.
		row, err = r.Next()
		if err != nil {
			t.Fatalf("row 3 error: %v", err)
		}
		if got := row.Field(0).String(); got != "d" {
			t.Errorf("row 3 field = %q, want d", got)
		}
	})

	t.Run("short rows allowed", func(t *testing.T) {
		r := NewReader(strings.NewReader("a,b\nc\n"))
		r.AllowShortRows = true
		defer r.Close()
		records, err := r.ReadAll()
		if err != nil {
			t.Fatalf("ReadAll error: %v", err)
		}
		want := [][]string{{"a", "b"}, {"c"}}
		if !reflect.DeepEqual(records, want) {
			t.Errorf("records = %q, want %q", records, want)
		}
	})

	t.Run("long rows still fail", func(t *testing.T) {
		r := NewReader(strings.NewReader("a,b\nc,d,e\n"))
		r.AllowShortRows = true
		defer r.Close()
		if _, err := r.ReadAll(); !errors.Is(err, ErrFieldCount) {
			t.Fatalf("ReadAll = %v, want ErrFieldCount", err)
		}
	})

	t.Run("explicit width", func(t *testing.T) {
		r := NewReader(strings.NewReader("a,b,c\n"))
		r.FieldsPerRecord = 2
		defer r.Close()
		if _, err := r.Next(); !errors.Is(err, ErrFieldCount) {
			t.Fatalf("Next = %v, want ErrFieldCount", err)
		}
	})
}

func TestReader_TrackLineNumbers(t *testing.T) {
	input := "a,\"multi\nline\"\nb,c\n"
	r := NewReader(strings.NewReader(input))
	r.TrackLineNumbers = true
	r.FieldsPerRecord = -1
	defer r.Close()

	row, err := r.Next()
	if err != nil {
		t.Fatalf("Next error: %v", err)
	}
	if row.LineNumber() != 1 {
		t.Errorf("row 1 LineNumber = %d, want 1", row.LineNumber())
	}
	row, err = r.Next()
	if err != nil {
		t.Fatalf("Next error: %v", err)
	}
	// The first row spanned two physical lines.
	if row.LineNumber() != 3 {
		t.Errorf("row 2 LineNumber = %d, want 3", row.LineNumber())
	}
}

func TestReader_ReuseRecord(t *testing.T) {
	r := NewReader(strings.NewReader("a,b\nc,d\ne,f\n"))
	r.ReuseRecord = true
	defer r.Close()

	first, err := r.Read()
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if !reflect.DeepEqual(first, []string{"a", "b"}) {
		t.Fatalf("first = %q", first)
	}
	second, err := r.Read()
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if !reflect.DeepEqual(second, []string{"c", "d"}) {
		t.Fatalf("second = %q", second)
	}
	if &first[0] != &second[0] {
		t.Error("ReuseRecord did not reuse the record backing array")
	}
}

func TestReader_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewReaderContext(ctx, strings.NewReader("a,b\nc,d\n"))
	defer r.Close()

	if _, err := r.Next(); !errors.Is(err, context.Canceled) {
		t.Fatalf("Next = %v, want context.Canceled", err)
	}
}

func TestReader_Close(t *testing.T) {
	r := NewReader(strings.NewReader("a,b\n"))
	if _, err := r.Next(); err != nil {
		t.Fatalf("Next error: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("second Close error: %v", err)
	}
	if _, err := r.Next(); err != ErrReaderClosed {
		t.Fatalf("Next after Close = %v, want ErrReaderClosed", err)
	}
}

func TestReader_RowNumber(t *testing.T) {
	r := NewReader(strings.NewReader("# comment\na\n\nb\n"))
	r.Comment = '#'
	defer r.Close()

	row, err := r.Next()
	if err != nil {
		t.Fatalf("Next error: %v", err)
	}
	if row.RowNumber() != 1 {
		t.Errorf("RowNumber = %d, want 1 (comments and blanks not counted)", row.RowNumber())
	}
	row, err = r.Next()
	if err != nil {
		t.Fatalf("Next error: %v", err)
	}
	if row.RowNumber() != 2 {
		t.Errorf("RowNumber = %d, want 2", row.RowNumber())
	}
	if r.RowNumber() != 2 {
		t.Errorf("reader RowNumber = %d, want 2", r.RowNumber())
	}
}

func TestParseError_Message(t *testing.T) {
	err := &ParseError{Row: 3, Line: 7, Column: 12, Snippet: "bad,data", Err: ErrUnterminatedQuote}
	msg := err.Error()
	for _, want := range []string{"row 3", "line 7", "column 12", `"bad,data"`} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
	if !errors.Is(err, ErrUnterminatedQuote) {
		t.Error("errors.Is failed to unwrap the sentinel")
	}
}
