package resp

import (
	"fmt"
	"math"
	"strings"
)

// Spacing selects how Frequencies distributes points.
type Spacing int

const (
	Logarithmic Spacing = iota
	Linear
)

func (s Spacing) String() string {
	if s == Linear {
		return "lin"
	}
	return "log"
}

// ParseSpacing accepts "log" and "lin" and their long forms.
func ParseSpacing(s string) (Spacing, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "log", "logarithmic":
		return Logarithmic, nil
	case "lin", "linear":
		return Linear, nil
	}
	return Logarithmic, fmt.Errorf("resp: unknown frequency spacing %q", s)
}

// Frequencies returns n frequencies from minFreq to maxFreq inclusive.
// A single frequency is minFreq itself.
func Frequencies(minFreq, maxFreq float64, n int, spacing Spacing) ([]float64, error) {
	if n < 1 || !(minFreq > 0) || maxFreq < minFreq || math.IsInf(maxFreq, 0) {
		return nil, fmt.Errorf("%w: [%g, %g] with %d points", ErrInvalidFrequencyRange, minFreq, maxFreq, n)
	}
	out := make([]float64, n)
	if n == 1 {
		out[0] = minFreq
		return out, nil
	}
	last := float64(n - 1)
	switch spacing {
	case Linear:
		step := (maxFreq - minFreq) / last
		for i := range out {
			out[i] = minFreq + float64(i)*step
		}
	default:
		lo, hi := math.Log10(minFreq), math.Log10(maxFreq)
		step := (hi - lo) / last
		for i := range out {
			out[i] = math.Pow(10, lo+float64(i)*step)
		}
	}
	out[0], out[n-1] = minFreq, maxFreq
	return out, nil
}
