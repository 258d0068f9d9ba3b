package fastrow

import (
	"strconv"
	"unsafe"
)

// Field is a view over one column of a row. The underlying bytes belong to
// the reader's buffer (or the row's transform scratch) and are only valid
// for the lifetime of the Row that produced the Field.
type Field struct {
	data   []byte
	absent bool
}

// IsAbsent reports whether the field stands in for a missing column. Absent
// fields are only produced when missing columns are allowed; they behave
// like empty fields for all accessors.
func (f Field) IsAbsent() bool {
	return f.absent
}

// Len returns the field length in bytes.
func (f Field) Len() int {
	return len(f.data)
}

// Bytes returns the field content. Quoted fields are unescaped ("" becomes
// ", CRLF becomes LF) and have their quotes stripped. The slice must not be
// retained past the next reader advance.
func (f Field) Bytes() []byte {
	return f.data
}

// String returns the field content as an owned string.
func (f Field) String() string {
	return string(f.data)
}

// view returns the content as a string without copying. Safe to pass to
// strconv, which does not retain its argument.
func (f Field) view() string {
	if len(f.data) == 0 {
		return ""
	}
	return unsafe.String(unsafe.SliceData(f.data), len(f.data))
}

// Int parses the field as a decimal integer, straight off the byte span.
func (f Field) Int() (int, error) {
	return strconv.Atoi(f.view())
}

// Int64 parses the field as a 64-bit decimal integer.
func (f Field) Int64() (int64, error) {
	return strconv.ParseInt(f.view(), 10, 64)
}

// Float64 parses the field as a floating point number.
func (f Field) Float64() (float64, error) {
	return strconv.ParseFloat(f.view(), 64)
}

// Bool parses the field with [strconv.ParseBool] semantics.
func (f Field) Bool() (bool, error) {
	return strconv.ParseBool(f.view())
}

// EqualString reports whether the field content equals s, without
// materializing the field.
func (f Field) EqualString(s string) bool {
	return string(f.data) == s
}
