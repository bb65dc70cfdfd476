package resp

import (
	"math"
	"sync"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-seisresp/resp/units"
)

// Result is the evaluated response of one channel epoch.
type Result struct {
	Epoch     Epoch
	Units     units.Target
	InputUnit units.Unit
	// Sensitivity is the overall gain the cascade was scaled to, or 0 when
	// the cascade was used as-is.
	Sensitivity float64
	Frequencies []float64
	Values      []complex128
}

// Len returns the number of evaluated frequencies.
func (r *Result) Len() int { return len(r.Values) }

type scratchBuf struct {
	data []float64
}

var scratchPool = sync.Pool{
	New: func() any { return &scratchBuf{} },
}

// Amplitudes returns |H(f)| for each value.
func (r *Result) Amplitudes() []float64 {
	n := len(r.Values)
	if n == 0 {
		return nil
	}
	buf := scratchPool.Get().(*scratchBuf)
	if cap(buf.data) < 2*n {
		buf.data = make([]float64, 2*n)
	}
	re, im := buf.data[:n], buf.data[n:2*n]
	for i, c := range r.Values {
		re[i] = real(c)
		im[i] = imag(c)
	}
	out := make([]float64, n)
	vecmath.Magnitude(out, re, im)
	scratchPool.Put(buf)
	return out
}

// Phases returns arg(H(f)) in degrees, in (-180, 180]. Phases are not
// unwrapped.
func (r *Result) Phases() []float64 {
	if len(r.Values) == 0 {
		return nil
	}
	out := make([]float64, len(r.Values))
	for i, c := range r.Values {
		out[i] = math.Atan2(imag(c), real(c)) * 180 / math.Pi
	}
	return out
}

// UnwrapPhase returns a copy of phase (degrees) with ±360 jumps removed.
func UnwrapPhase(phase []float64) []float64 {
	if len(phase) == 0 {
		return nil
	}
	out := make([]float64, len(phase))
	out[0] = phase[0]
	offset := 0.0
	for i := 1; i < len(phase); i++ {
		d := phase[i] - phase[i-1]
		switch {
		case d > 180:
			offset -= 360
		case d < -180:
			offset += 360
		}
		out[i] = phase[i] + offset
	}
	return out
}
