package fastrow

import "encoding/binary"

// Bytes processed per scan chunk. All kernels operate on chunks of this size
// and emit one bit per byte.
const chunkSize = 64

// maskKernel fills four structural-character bitmasks for one chunk: bit i is
// set when data[i] is the quote, the delimiter, '\r', or '\n' respectively.
// Precondition: len(data) >= chunkSize.
type maskKernel func(data []byte, delim, quote byte) (quoteMask, delimMask, crMask, lfMask uint64)

// maskScalar generates masks one byte at a time. It is the reference the
// wider kernels are tested against.
func maskScalar(data []byte, delim, quote byte) (quoteMask, delimMask, crMask, lfMask uint64) {
	for i := 0; i < chunkSize; i++ {
		b := data[i]
		bit := uint64(1) << i
		if b == quote {
			quoteMask |= bit
		}
		if b == delim {
			delimMask |= bit
		}
		if b == '\r' {
			crMask |= bit
		}
		if b == '\n' {
			lfMask |= bit
		}
	}
	return
}

// =============================================================================
// SWAR kernel - portable 64-bit wide comparisons
// =============================================================================
//
// Eight bytes are compared per step using the carry-free zero-byte test
// (mask to 7 bits, add 0x7F, invert): byte b yields 0x80 exactly when b is
// zero, with no carries between lanes. XOR against a broadcast pattern turns
// "equals pattern" into "is zero" first. The per-byte 0x80 flags are then
// packed into 8 bits with a multiply-shift movemask.

const (
	swarLow  = 0x7f7f7f7f7f7f7f7f
	swarPack = 0x0102040810204080
)

// broadcast replicates b into all eight lanes of a uint64.
func broadcast(b byte) uint64 {
	return uint64(b) * 0x0101010101010101
}

// swarEq returns an 8-bit mask of the lanes of w equal to the broadcast
// pattern pat.
func swarEq(w, pat uint64) uint64 {
	x := w ^ pat
	z := ^(((x & swarLow) + swarLow) | x | swarLow)
	return ((z >> 7) * swarPack) >> 56
}

// maskSWAR generates masks eight bytes at a time using word-parallel
// compares. Functionally identical to maskScalar.
func maskSWAR(data []byte, delim, quote byte) (quoteMask, delimMask, crMask, lfMask uint64) {
	quotePat := broadcast(quote)
	delimPat := broadcast(delim)
	crPat := broadcast('\r')
	lfPat := broadcast('\n')

	for i := 0; i < chunkSize; i += 8 {
		w := binary.LittleEndian.Uint64(data[i:])
		shift := uint(i)
		quoteMask |= swarEq(w, quotePat) << shift
		delimMask |= swarEq(w, delimPat) << shift
		crMask |= swarEq(w, crPat) << shift
		lfMask |= swarEq(w, lfPat) << shift
	}
	return
}

// maskTail handles a partial chunk of fewer than chunkSize bytes. The bytes
// are copied into a stack buffer padded with zeros, masks are generated with
// the scalar kernel, and bits beyond the valid length are cleared. Never
// reads past the end of data.
func maskTail(data []byte, delim, quote byte) (quoteMask, delimMask, crMask, lfMask uint64) {
	validBits := len(data)
	if validBits == 0 {
		return 0, 0, 0, 0
	}

	var padded [chunkSize]byte
	copy(padded[:], data)

	quoteMask, delimMask, crMask, lfMask = maskScalar(padded[:], delim, quote)

	if validBits < chunkSize {
		valid := (uint64(1) << validBits) - 1
		quoteMask &= valid
		delimMask &= valid
		crMask &= valid
		lfMask &= valid
	}
	return
}
