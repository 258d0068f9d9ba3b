//go:build goexperiment.simd && amd64

package fastrow

import (
	"simd/archsimd"
	"unsafe"

	"golang.org/x/sys/cpu"
)

// NOTE: The simd/archsimd package in Go 1.26 is an experimental feature
// enabled via GOEXPERIMENT=simd. The Int8x32.Equal().ToBits() method lowers
// to VPMOVB2M (AVX-512BW) and raises SIGILL on CPUs without AVX-512 support,
// so this kernel is only offered when all three feature flags are present:
//   - AVX512F:  foundation 512-bit vector operations
//   - AVX512BW: byte/word granularity operations (ToBits)
//   - AVX512VL: 128/256-bit vector support with AVX-512 instructions
//
// TODO: Switch to an official archsimd CPU-detection API once one exists;
// the package currently provides none (as of Go 1.26).

const halfChunk = 32

// maskAVX512 generates structural masks for one 64-byte chunk using two
// 256-bit vector compares per character class.
// Precondition: len(data) >= chunkSize.
func maskAVX512(data []byte, delim, quote byte) (quoteMask, delimMask, crMask, lfMask uint64) {
	quoteCmp := archsimd.BroadcastInt8x32(int8(quote))
	delimCmp := archsimd.BroadcastInt8x32(int8(delim))
	crCmp := archsimd.BroadcastInt8x32('\r')
	lfCmp := archsimd.BroadcastInt8x32('\n')

	low := archsimd.LoadInt8x32((*[halfChunk]int8)(unsafe.Pointer(&data[0])))
	quoteLow := low.Equal(quoteCmp).ToBits()
	delimLow := low.Equal(delimCmp).ToBits()
	crLow := low.Equal(crCmp).ToBits()
	lfLow := low.Equal(lfCmp).ToBits()

	high := archsimd.LoadInt8x32((*[halfChunk]int8)(unsafe.Pointer(&data[halfChunk])))
	quoteHigh := high.Equal(quoteCmp).ToBits()
	delimHigh := high.Equal(delimCmp).ToBits()
	crHigh := high.Equal(crCmp).ToBits()
	lfHigh := high.Equal(lfCmp).ToBits()

	quoteMask = uint64(quoteLow) | uint64(quoteHigh)<<32
	delimMask = uint64(delimLow) | uint64(delimHigh)<<32
	crMask = uint64(crLow) | uint64(crHigh)<<32
	lfMask = uint64(lfLow) | uint64(lfHigh)<<32
	return
}

// archKernels returns the hardware-specific kernels usable on this machine,
// widest first.
func archKernels() []scanKernel {
	if !cpu.X86.HasAVX512F || !cpu.X86.HasAVX512BW || !cpu.X86.HasAVX512VL {
		return nil
	}
	return []scanKernel{{name: "avx512", width: 512, masks: maskAVX512}}
}
