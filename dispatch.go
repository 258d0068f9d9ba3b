package fastrow

import "sync"

// =============================================================================
// Hardware Capability Selection
// =============================================================================
//
// Kernel selection is a pure function of the capabilities reported by the
// platform, computed once per process and cached. Kernels are plain function
// values rather than a type hierarchy, so row scanning pays no virtual
// dispatch cost.

// scanKernel describes one mask-generation implementation.
type scanKernel struct {
	name  string
	width int // vector width in bits
	masks maskKernel
}

// swarKernel is the universal wide fallback: plain 64-bit registers, eight
// bytes per compare, available on every platform.
var swarKernel = scanKernel{name: "swar64", width: 64, masks: maskSWAR}

// scalarKernel interprets one byte at a time. Kept selectable so the
// equivalence tests can pin it, and as the last-resort fallback.
var scalarKernel = scanKernel{name: "scalar", width: 8, masks: maskScalar}

var (
	kernelOnce sync.Once
	kernel     scanKernel
)

// selectKernel picks the widest kernel the hardware supports. The probe runs
// once; subsequent calls return the cached choice.
func selectKernel() scanKernel {
	kernelOnce.Do(func() {
		kernel = pickKernel(availableKernels())
	})
	return kernel
}

// availableKernels lists every kernel usable on this machine, widest first.
func availableKernels() []scanKernel {
	ks := archKernels()
	ks = append(ks, swarKernel, scalarKernel)
	return ks
}

// pickKernel returns the widest candidate. Deterministic and side-effect
// free; separated from selectKernel so tests can exercise the selection
// order directly.
func pickKernel(candidates []scanKernel) scanKernel {
	best := scalarKernel
	for _, k := range candidates {
		if k.width > best.width {
			best = k
		}
	}
	return best
}

// ScanKernel reports the name of the mask kernel in use ("avx512", "swar64"
// or "scalar").
func ScanKernel() string {
	return selectKernel().name
}
