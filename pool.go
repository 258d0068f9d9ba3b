package fastrow

import "sync"

// Buffer pooling. Pools are safe for concurrent rent/return across reader
// instances; a checked-out buffer is exclusively owned by its reader until
// returned on Close. Oversized buffers are dropped instead of pooled so one
// pathological row does not pin memory for the life of the process.

const (
	// poolMaxBufSize is the largest byte buffer worth keeping around.
	poolMaxBufSize = 4 * 1024 * 1024
	// poolMaxColumns is the largest column-offset buffer worth keeping.
	poolMaxColumns = 64 * 1024
)

var bytePool = sync.Pool{
	New: func() interface{} {
		return make([]byte, defaultBufSize)
	},
}

// rentBuffer returns a byte buffer with at least size bytes.
func rentBuffer(size int) []byte {
	b := bytePool.Get().([]byte)
	if cap(b) < size {
		returnBuffer(b)
		return make([]byte, size)
	}
	return b[:cap(b)]
}

func returnBuffer(b []byte) {
	if cap(b) == 0 || cap(b) > poolMaxBufSize {
		return
	}
	bytePool.Put(b[:cap(b)]) //nolint:staticcheck // SA6002: slice header churn is acceptable here
}

var endsPool = sync.Pool{
	New: func() interface{} {
		return newColumnEnds(defaultMaxColumns)
	},
}

// rentColumnEnds returns an offset buffer sized for maxColumns.
func rentColumnEnds(maxColumns int) *columnEnds {
	c := endsPool.Get().(*columnEnds)
	if cap(c.ends) < maxColumns+1 {
		returnColumnEnds(c)
		return newColumnEnds(maxColumns)
	}
	// Narrow the cap view so overflow detection matches the configuration.
	c.ends = c.ends[:1 : maxColumns+1]
	return c
}

func returnColumnEnds(c *columnEnds) {
	if c == nil || cap(c.ends) > poolMaxColumns+1 {
		return
	}
	c.reset()
	endsPool.Put(c)
}
