package resp

import (
	"fmt"
	"math"
	"math/cmplx"

	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/algo-seisresp/resp/units"
)

// SensitivityMode selects the overall gain applied to a full cascade.
type SensitivityMode int

const (
	// SensitivityNominal scales the cascade to the declared stage-0
	// sensitivity at its frequency.
	SensitivityNominal SensitivityMode = iota
	// SensitivityCalculated keeps the product of the stage gains.
	SensitivityCalculated
)

func (m SensitivityMode) String() string {
	if m == SensitivityCalculated {
		return "calculated"
	}
	return "nominal"
}

// Request describes one evaluation.
type Request struct {
	Units       units.Target
	Frequencies []float64
	Sensitivity SensitivityMode
	// FirstStage and LastStage bound the evaluated stages by sequence
	// number; 0 leaves the respective end open.
	FirstStage int
	LastStage  int
	// UseEstimatedDelay applies the estimated decimation delay instead of
	// the correction recorded as applied.
	UseEstimatedDelay bool
}

// minParallel is the frequency count below which Evaluate stays on the
// calling goroutine.
const minParallel = 256

// Evaluate computes the complex response of r at every requested frequency.
//
// Each value is the product over the selected stages of filter, decimation
// phase correction and stage gain. For a full cascade with a declared
// sensitivity the product is rescaled so that its magnitude at the
// sensitivity frequency equals the declared value (SensitivityNominal).
// A restricted stage range is returned as-is. Finally the response is
// multiplied by (jω)^n and the unit scale, where n is the requested order
// minus the order of the cascade's input unit.
//
// Either every frequency is evaluated or an error is returned and no values.
func Evaluate(r *Response, req Request, opts ...Option) (*Result, error) {
	cfg := ApplyOptions(opts...)
	if r == nil || len(r.Stages) == 0 {
		return nil, ErrEmptyCascade
	}
	for i, f := range req.Frequencies {
		if !(f > 0) || math.IsInf(f, 0) {
			return nil, &NonPositiveFrequencyError{Index: i, Frequency: f}
		}
	}

	stages, full, err := selectStages(r.Stages, req.FirstStage, req.LastStage)
	if err != nil {
		return nil, err
	}
	cascade, err := compile(stages, req.UseEstimatedDelay)
	if err != nil {
		return nil, err
	}

	in := inputUnit(stages)
	order, scale, err := units.Conversion(in, req.Units)
	if err != nil {
		return nil, err
	}

	factor := 1.0
	applied := 0.0
	if full && r.Sensitivity != nil && req.Sensitivity == SensitivityNominal {
		ref := cfg.ReferenceFrequency
		if ref <= 0 {
			ref = r.Sensitivity.Frequency
		}
		if !(ref >= 0) || math.IsInf(ref, 0) {
			return nil, ErrNoReferenceFrequency
		}
		calc := cmplx.Abs(cascade(ref))
		if calc == 0 || math.IsInf(calc, 0) || math.IsNaN(calc) {
			return nil, fmt.Errorf("%w: |H(%g Hz)| = %g", ErrZeroSensitivity, ref, calc)
		}
		factor = math.Abs(r.Sensitivity.Value) / calc
		applied = math.Abs(r.Sensitivity.Value)
	}

	values := make([]complex128, len(req.Frequencies))
	eval := func(lo, hi int) {
		for i := lo; i < hi; i++ {
			f := req.Frequencies[i]
			values[i] = cascade(f) * complex(factor*scale, 0) * jomega(f, order)
		}
	}

	n := len(values)
	workers := min(cfg.Workers, n/minParallel)
	if workers <= 1 {
		eval(0, n)
	} else {
		chunk := (n + workers - 1) / workers
		var g errgroup.Group
		g.SetLimit(workers)
		for lo := 0; lo < n; lo += chunk {
			hi := min(lo+chunk, n)
			g.Go(func() error {
				eval(lo, hi)
				return nil
			})
		}
		_ = g.Wait()
	}

	return &Result{
		Epoch:       r.Epoch,
		Units:       req.Units,
		InputUnit:   in,
		Sensitivity: applied,
		Frequencies: append([]float64(nil), req.Frequencies...),
		Values:      values,
	}, nil
}

// selectStages returns the stages within [first, last] and whether that is
// the whole cascade.
func selectStages(stages []Stage, first, last int) ([]Stage, bool, error) {
	if first <= 0 && last <= 0 {
		return stages, true, nil
	}
	if last > 0 && first > last {
		return nil, false, fmt.Errorf("%w: [%d, %d]", ErrStageRange, first, last)
	}
	var out []Stage
	for _, s := range stages {
		if first > 0 && s.Sequence < first {
			continue
		}
		if last > 0 && s.Sequence > last {
			continue
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, false, fmt.Errorf("%w: [%d, %d]", ErrStageRange, first, last)
	}
	return out, len(out) == len(stages), nil
}

// jomega returns (j*2*pi*f)^n.
func jomega(f float64, n int) complex128 {
	if n == 0 {
		return 1
	}
	w := complex(0, 2*math.Pi*f)
	h := complex(1, 0)
	for range abs(n) {
		h *= w
	}
	if n < 0 {
		return 1 / h
	}
	return h
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
