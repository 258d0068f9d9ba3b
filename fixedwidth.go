package fastrow

import "fmt"

// Alignment describes how a value sits inside its fixed-width column, which
// determines where pad characters go on write and which side is trimmed on
// read.
type Alignment int

const (
	// AlignNone leaves the field untrimmed on read and left-aligns on
	// write.
	AlignNone Alignment = iota
	// AlignLeft trims trailing pad characters on read.
	AlignLeft
	// AlignRight trims leading pad characters on read.
	AlignRight
	// AlignCenter centers on write but is not trimmed on read; without a
	// declared content length a center trim would be ambiguous.
	AlignCenter
)

func (a Alignment) String() string {
	switch a {
	case AlignLeft:
		return "left"
	case AlignRight:
		return "right"
	case AlignCenter:
		return "center"
	default:
		return "none"
	}
}

// FixedWidthColumn declares one column of a fixed-width record.
type FixedWidthColumn struct {
	Name   string
	Start  int  // byte offset within the record
	Length int  // byte length, > 0
	Pad    byte // pad character, ' ' when zero
	Align  Alignment
}

// FixedWidthLayout is a validated, immutable set of column definitions.
// Columns may overlap (REDEFINES-style reinterpretation of the same bytes is
// legal) but must have non-negative starts and positive lengths.
type FixedWidthLayout struct {
	cols      []FixedWidthColumn
	byName    map[string]int
	recordLen int
}

// NewFixedWidthLayout validates the column definitions once, up front.
func NewFixedWidthLayout(cols ...FixedWidthColumn) (*FixedWidthLayout, error) {
	if len(cols) == 0 {
		return nil, fmt.Errorf("fastrow: fixed-width layout needs at least one column")
	}
	l := &FixedWidthLayout{
		cols:   make([]FixedWidthColumn, len(cols)),
		byName: make(map[string]int, len(cols)),
	}
	copy(l.cols, cols)
	for i := range l.cols {
		c := &l.cols[i]
		if c.Start < 0 {
			return nil, fmt.Errorf("fastrow: fixed-width column %q: negative start %d", c.Name, c.Start)
		}
		if c.Length <= 0 {
			return nil, fmt.Errorf("fastrow: fixed-width column %q: length %d must be positive", c.Name, c.Length)
		}
		if c.Pad == 0 {
			c.Pad = ' '
		}
		if c.Name != "" {
			if _, dup := l.byName[c.Name]; dup {
				return nil, fmt.Errorf("fastrow: fixed-width column %q declared twice", c.Name)
			}
			l.byName[c.Name] = i
		}
		if end := c.Start + c.Length; end > l.recordLen {
			l.recordLen = end
		}
	}
	return l, nil
}

// NumColumns returns the number of declared columns.
func (l *FixedWidthLayout) NumColumns() int {
	return len(l.cols)
}

// Column returns the definition of column i.
func (l *FixedWidthLayout) Column(i int) FixedWidthColumn {
	return l.cols[i]
}

// ColumnIndex returns the index of the named column, or -1.
func (l *FixedWidthLayout) ColumnIndex(name string) int {
	if i, ok := l.byName[name]; ok {
		return i
	}
	return -1
}

// RecordLength returns the minimum record length covering every column.
func (l *FixedWidthLayout) RecordLength() int {
	return l.recordLen
}

// trimPadded applies alignment-aware pad trimming to a raw field value.
func trimPadded(raw []byte, col *FixedWidthColumn) []byte {
	switch col.Align {
	case AlignLeft:
		for len(raw) > 0 && raw[len(raw)-1] == col.Pad {
			raw = raw[:len(raw)-1]
		}
	case AlignRight:
		for len(raw) > 0 && raw[0] == col.Pad {
			raw = raw[1:]
		}
	}
	return raw
}
