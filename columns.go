package fastrow

// columnEnds is a reusable buffer of column end offsets for one row. It uses
// the compact "ends-only" encoding: entry 0 is a -1 sentinel, entry i is the
// byte offset (relative to the row start) just past the content of column
// i-1, so column i spans [ends[i]+1, ends[i+1]). The final entry is always
// the row length.
//
// The buffer is sized once for maxColumns and never grows; push reports
// overflow instead of writing past the cap so the scanner can abort the row
// cleanly.
type columnEnds struct {
	ends []int32
}

// newColumnEnds returns a buffer accepting at most maxColumns columns.
func newColumnEnds(maxColumns int) *columnEnds {
	c := &columnEnds{ends: make([]int32, 1, maxColumns+1)}
	c.ends[0] = -1
	return c
}

// reset prepares the buffer for the next row, keeping its capacity.
func (c *columnEnds) reset() {
	c.ends = c.ends[:1]
}

// pushDelim records the position of a field delimiter, which opens one more
// column. It returns false when the column limit would be exceeded; nothing
// is written in that case. One slot is always kept in reserve for pushFinal.
func (c *columnEnds) pushDelim(pos int) bool {
	if len(c.ends) >= cap(c.ends)-1 {
		return false
	}
	c.ends = append(c.ends, int32(pos))
	return true
}

// pushFinal records the row length, closing the last column. The reserve
// kept by pushDelim guarantees this cannot overflow.
func (c *columnEnds) pushFinal(rowLen int) {
	c.ends = append(c.ends, int32(rowLen))
}

// count returns the number of complete columns recorded so far.
func (c *columnEnds) count() int {
	return len(c.ends) - 1
}

// bounds returns the [start, end) byte range of column i relative to the
// row start. Offsets are monotonically increasing and non-overlapping.
func (c *columnEnds) bounds(i int) (start, end int) {
	return int(c.ends[i]) + 1, int(c.ends[i+1])
}

// clone copies the recorded offsets into independently owned storage.
func (c *columnEnds) clone() *columnEnds {
	dup := &columnEnds{ends: make([]int32, len(c.ends), cap(c.ends))}
	copy(dup.ends, c.ends)
	return dup
}
