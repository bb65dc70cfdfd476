package testutil

import (
	"math"
	"math/rand"
)

// RandomKernel returns n FIR coefficients drawn from a fixed seed and scaled
// so that they sum to 1 (unit DC gain).
func RandomKernel(seed int64, n int) []float64 {
	out := make([]float64, n)
	rng := rand.New(rand.NewSource(seed))
	sum := 0.0
	for i := range out {
		out[i] = rng.Float64()*2 - 1
		sum += out[i]
	}
	if sum != 0 {
		for i := range out {
			out[i] /= sum
		}
	}
	return out
}

// Lowpass returns an n-tap windowed-sinc lowpass with cutoff fc given as a
// fraction of the sample rate. The kernel is symmetric with unit DC gain.
func Lowpass(n int, fc float64) []float64 {
	out := make([]float64, n)
	mid := float64(n-1) / 2
	sum := 0.0
	for i := range out {
		x := float64(i) - mid
		v := 2 * fc
		if x != 0 {
			v = math.Sin(2*math.Pi*fc*x) / (math.Pi * x)
		}
		// Hann window.
		if n > 1 {
			v *= 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
		}
		out[i] = v
		sum += v
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// Impulse returns a unit impulse of the given length at pos.
func Impulse(length, pos int) []float64 {
	out := make([]float64, length)
	if pos >= 0 && pos < length {
		out[pos] = 1
	}
	return out
}
