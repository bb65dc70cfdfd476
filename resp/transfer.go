package resp

import (
	"fmt"
	"math"
	"math/cmplx"
	"strings"

	"github.com/cwbudde/algo-seisresp/internal/fir"
)

// transfer evaluates a compiled stage or cascade at f Hz.
type transfer func(f float64) complex128

// compile builds the product of the given stages. Per-stage setup such as
// FIR kernel expansion happens once here, not per frequency.
func compile(stages []Stage, useDelay bool) (transfer, error) {
	parts := make([]transfer, 0, len(stages))
	for i := range stages {
		t, err := compileStage(&stages[i], useDelay)
		if err != nil {
			return nil, err
		}
		parts = append(parts, t)
	}
	return func(f float64) complex128 {
		h := complex(1, 0)
		for _, t := range parts {
			h *= t(f)
		}
		return h
	}, nil
}

// compileStage returns filter(f) * exp(jωτ) * gain for one stage, where τ is
// the applied decimation correction, or the estimated delay when useDelay
// is set.
func compileStage(s *Stage, useDelay bool) (transfer, error) {
	dt := s.Decimation.SampleInterval()
	if s.Digital() && dt == 0 {
		return nil, &stageError{seq: s.Sequence, err: ErrMissingSampleRate}
	}

	var filter transfer
	switch f := s.Filter.(type) {
	case nil:
	case *PolesZeros:
		filter = polesZeros(f, dt)
	case *FIR:
		if len(f.Coefficients) > 0 {
			k := fir.New(f.Coefficients, f.Symmetry)
			rate := s.Decimation.InputRate
			filter = func(freq float64) complex128 { return k.Response(freq, rate) }
		}
	case *Coefficients:
		filter = coefficients(f, dt)
	case *Polynomial:
		return nil, &UnsupportedStageError{Sequence: s.Sequence, What: "polynomial"}
	}

	gain := 1.0
	if s.Gain != nil {
		gain = s.Gain.Value
	}
	var tau float64
	if d := s.Decimation; d != nil {
		tau = d.Correction
		if useDelay {
			tau = d.Delay
		}
	}

	return func(freq float64) complex128 {
		h := complex(gain, 0)
		if filter != nil {
			h *= filter(freq)
		}
		if tau != 0 {
			h *= cmplx.Exp(complex(0, 2*math.Pi*freq*tau))
		}
		return h
	}, nil
}

// polesZeros evaluates A0 * prod(x - z) / prod(x - p) with x = jω, jf or
// exp(jωΔt) depending on the transfer type.
func polesZeros(pz *PolesZeros, dt float64) transfer {
	zeros := append([]complex128(nil), pz.Zeros...)
	poles := append([]complex128(nil), pz.Poles...)
	a0 := pz.A0
	tt := pz.Transfer
	return func(f float64) complex128 {
		x := laplaceVar(tt, f, dt)
		h := complex(a0, 0)
		for _, z := range zeros {
			h *= x - z
		}
		for _, p := range poles {
			h /= x - p
		}
		return h
	}
}

// coefficients evaluates sum(b_k x^k) / sum(a_k x^k). Digital filters use
// x = exp(-jωΔt), analog ones x = s. An empty numerator list is a unity
// filter.
func coefficients(c *Coefficients, dt float64) transfer {
	if len(c.Numerators) == 0 {
		return nil
	}
	num := append([]float64(nil), c.Numerators...)
	den := append([]float64(nil), c.Denominators...)
	tt := c.Transfer
	return func(f float64) complex128 {
		var x complex128
		if tt == Digital {
			x = cmplx.Exp(complex(0, -2*math.Pi*f*dt))
		} else {
			x = laplaceVar(tt, f, 0)
		}
		h := horner(num, x)
		if len(den) > 0 {
			h /= horner(den, x)
		}
		return h
	}
}

// pzGain returns |A0 * PZ(f)| for a standalone poles/zeros filter.
func pzGain(pz *PolesZeros, f, dt float64) float64 {
	return cmplx.Abs(polesZeros(pz, dt)(f))
}

func laplaceVar(tt TransferType, f, dt float64) complex128 {
	switch tt {
	case Analog:
		return complex(0, f)
	case Digital:
		return cmplx.Exp(complex(0, 2*math.Pi*f*dt))
	default:
		return complex(0, 2*math.Pi*f)
	}
}

// horner evaluates sum(c[k] * x^k).
func horner(c []float64, x complex128) complex128 {
	var h complex128
	for k := len(c) - 1; k >= 0; k-- {
		h = h*x + complex(c[k], 0)
	}
	return h
}

// stageError attaches a stage number to a sentinel.
type stageError struct {
	seq int
	err error
}

func (e *stageError) Error() string {
	return fmt.Sprintf("resp: stage %d: %s", e.seq, strings.TrimPrefix(e.err.Error(), "resp: "))
}

func (e *stageError) Unwrap() error { return e.err }
