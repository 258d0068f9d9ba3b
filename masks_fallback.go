//go:build !goexperiment.simd || !amd64

package fastrow

// archKernels returns the hardware-specific kernels usable on this machine.
// Without GOEXPERIMENT=simd on amd64 there are none; the portable SWAR
// kernel is selected instead.
func archKernels() []scanKernel {
	return nil
}
