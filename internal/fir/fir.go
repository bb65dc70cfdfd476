// Package fir evaluates the frequency response of FIR kernels as they are
// stored in SEED response blockettes.
//
// Symmetric kernels are stored as their first half; [New] mirrors them into
// the full causal kernel before evaluation.
package fir

import "math"

// Symmetry describes how a stored coefficient list relates to the full kernel.
type Symmetry int

const (
	// None: the list is the full kernel (SEED code A).
	None Symmetry = iota
	// Odd: odd-length symmetric kernel, centre tap stored once (SEED code B).
	Odd
	// Even: even-length symmetric kernel (SEED code C).
	Even
)

func (s Symmetry) String() string {
	switch s {
	case None:
		return "A"
	case Odd:
		return "B"
	case Even:
		return "C"
	default:
		return "?"
	}
}

// Expand returns the full kernel for a stored coefficient list.
// The input is never modified.
func Expand(stored []float64, sym Symmetry) []float64 {
	n := len(stored)
	switch {
	case n == 0:
		return nil
	case sym == Odd:
		full := make([]float64, 2*n-1)
		copy(full, stored)
		for i := 0; i < n-1; i++ {
			full[n+i] = stored[n-2-i]
		}
		return full
	case sym == Even:
		full := make([]float64, 2*n)
		copy(full, stored)
		for i := range n {
			full[n+i] = stored[n-1-i]
		}
		return full
	default:
		full := make([]float64, n)
		copy(full, stored)
		return full
	}
}

// Kernel is an expanded FIR kernel.
type Kernel struct {
	coeffs []float64
}

// New creates a kernel from stored coefficients and their symmetry.
// The coefficients are copied.
func New(stored []float64, sym Symmetry) *Kernel {
	return &Kernel{coeffs: Expand(stored, sym)}
}

// Len returns the number of taps of the expanded kernel.
func (k *Kernel) Len() int {
	return len(k.coeffs)
}

// Coefficients returns a copy of the expanded kernel.
func (k *Kernel) Coefficients() []float64 {
	c := make([]float64, len(k.coeffs))
	copy(c, k.coeffs)
	return c
}

// Sum returns the DC gain of the kernel.
func (k *Kernel) Sum() float64 {
	var s float64
	for _, c := range k.coeffs {
		s += c
	}
	return s
}

// Response computes the causal frequency response
//
//	H(f) = sum_{n=0}^{N-1} c[n] * exp(-j*2*pi*f*n/fs)
//
// at freqHz for a kernel running at sampleRate (Hz). The phase includes the
// full group delay of the kernel; callers remove applied corrections
// separately.
func (k *Kernel) Response(freqHz, sampleRate float64) complex128 {
	w := 2 * math.Pi * freqHz / sampleRate
	var re, im float64
	for n, c := range k.coeffs {
		s, co := math.Sincos(w * float64(n))
		re += c * co
		im -= c * s
	}
	return complex(re, im)
}
