package fastrow

import "io"

const (
	defaultBufSize = 64 * 1024
	// defaultMaxBufSize bounds buffer growth against input with missing line
	// endings (or adversarial input). A single row larger than this fails
	// with ErrRowTooLarge instead of exhausting memory.
	defaultMaxBufSize = 128 * 1024 * 1024
)

// readBuffer is a sliding window over an underlying byte source. Unconsumed
// bytes live in buf[start:end]; refills compact them to the front so the
// current row always begins at the window start, which keeps row-relative
// offsets stable across fills. Growth doubles the buffer up to max.
type readBuffer struct {
	buf        []byte
	start, end int
	max        int
}

func (rb *readBuffer) init(size, max int) {
	if size <= 0 {
		size = defaultBufSize
	}
	if max <= 0 {
		max = defaultMaxBufSize
	}
	if size > max {
		size = max
	}
	rb.buf = rentBuffer(size)
	if len(rb.buf) > max {
		// Pooled buffers can exceed a small max; narrow the usable window so
		// the growth cap is enforced exactly.
		rb.buf = rb.buf[:max]
	}
	rb.start, rb.end = 0, 0
	rb.max = max
}

// window returns the unconsumed bytes.
func (rb *readBuffer) window() []byte {
	return rb.buf[rb.start:rb.end]
}

func (rb *readBuffer) buffered() int {
	return rb.end - rb.start
}

// advance marks consumed bytes. The underlying storage is left untouched
// until the next compact, so views into the old window stay readable until
// the next refill.
func (rb *readBuffer) advance(consumed int) {
	if consumed <= 0 {
		return
	}
	rb.start += consumed
	if rb.start >= rb.end {
		rb.start, rb.end = 0, 0
	}
}

// compact slides unconsumed bytes to offset 0.
func (rb *readBuffer) compact() {
	if rb.start == 0 || rb.start == rb.end {
		return
	}
	copy(rb.buf, rb.buf[rb.start:rb.end])
	rb.end -= rb.start
	rb.start = 0
}

// ensureWriteSpace makes room for at least one more read, compacting first
// and doubling the buffer when compaction is not enough. Growth past max
// fails with ErrRowTooLarge.
func (rb *readBuffer) ensureWriteSpace() error {
	if rb.end < len(rb.buf) {
		return nil
	}
	if rb.start > 0 {
		rb.compact()
		if rb.end < len(rb.buf) {
			return nil
		}
	}

	cur := len(rb.buf)
	if cur == 0 {
		cur = defaultBufSize / 2
	}
	newLen := cur * 2
	if newLen > rb.max {
		newLen = rb.max
	}
	if newLen <= len(rb.buf) {
		return ErrRowTooLarge
	}

	nb := make([]byte, newLen)
	copy(nb, rb.window())
	rb.end -= rb.start
	rb.start = 0
	returnBuffer(rb.buf)
	rb.buf = nb
	return nil
}

// readMore appends bytes from r. A (0, io.EOF) return means the source is
// exhausted.
func (rb *readBuffer) readMore(r io.Reader) (int, error) {
	if err := rb.ensureWriteSpace(); err != nil {
		return 0, err
	}
	n, err := r.Read(rb.buf[rb.end:])
	if n > 0 {
		rb.end += n
	}
	return n, err
}

// release returns the storage to the pool. The buffer must not be used
// afterwards.
func (rb *readBuffer) release() {
	if rb.buf != nil {
		returnBuffer(rb.buf)
		rb.buf = nil
	}
	rb.start, rb.end = 0, 0
}
