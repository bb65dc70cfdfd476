package resp

import (
	"math"
	"math/cmplx"
)

// StageCheck is the A0 check of one poles/zeros stage: |A0 * PZ(f)| should
// be 1 at the stage's normalization frequency.
type StageCheck struct {
	Sequence   int
	Frequency  float64
	Gain       float64
	Discrepant bool
	Corrected  bool
	// A0 is the factor in effect after the check.
	A0 float64
}

// Normalization compares the computed cascade gain with the declared
// sensitivity at a reference frequency.
type Normalization struct {
	Frequency  float64
	Nominal    float64
	Calculated float64
	// Ratio is Calculated/|Nominal|, or 0 when no sensitivity is declared.
	Ratio      float64
	Tolerance  float64
	Discrepant bool
	Stages     []StageCheck
}

// Normalize evaluates the cascade of r, including every stage gain but no
// unit conversion, at refFreq and records the comparison with the declared
// sensitivity in r.Normalization.
//
// A refFreq of 0 selects the sensitivity frequency. Each poles/zeros stage
// is also checked at its own normalization frequency; with
// [WithA0Correction] discrepant A0 factors are rewritten in place before the
// cascade is evaluated.
func Normalize(r *Response, refFreq float64, opts ...Option) (Normalization, error) {
	cfg := ApplyOptions(opts...)
	if r == nil || len(r.Stages) == 0 {
		return Normalization{}, ErrEmptyCascade
	}

	f := refFreq
	if f <= 0 {
		f = cfg.ReferenceFrequency
	}
	if f <= 0 {
		if r.Sensitivity == nil {
			return Normalization{}, ErrNoReferenceFrequency
		}
		// A sensitivity declared at 0 Hz is normalized at DC.
		f = r.Sensitivity.Frequency
	}
	if !(f >= 0) || math.IsInf(f, 0) {
		return Normalization{}, ErrNoReferenceFrequency
	}

	n := Normalization{
		Frequency: f,
		Tolerance: cfg.Tolerance,
	}

	for i := range r.Stages {
		s := &r.Stages[i]
		pz, ok := s.Filter.(*PolesZeros)
		if !ok {
			continue
		}
		fs := pz.NormFrequency
		if fs <= 0 && s.Gain != nil {
			fs = s.Gain.Frequency
		}
		if fs <= 0 {
			continue
		}
		dt := s.Decimation.SampleInterval()
		if pz.Transfer == Digital && dt == 0 {
			continue
		}
		g := pzGain(pz, fs, dt)
		sc := StageCheck{
			Sequence:   s.Sequence,
			Frequency:  fs,
			Gain:       g,
			Discrepant: math.Abs(g-1) > cfg.Tolerance,
			A0:         pz.A0,
		}
		if sc.Discrepant && cfg.CorrectA0 && g > 0 && !math.IsInf(g, 0) {
			pz.A0 /= g
			sc.A0 = pz.A0
			sc.Corrected = true
		}
		n.Stages = append(n.Stages, sc)
	}

	cascade, err := compile(r.Stages, false)
	if err != nil {
		return Normalization{}, err
	}
	n.Calculated = cmplx.Abs(cascade(f))

	if r.Sensitivity != nil {
		n.Nominal = r.Sensitivity.Value
		if nominal := math.Abs(n.Nominal); nominal > 0 {
			n.Ratio = n.Calculated / nominal
			n.Discrepant = math.Abs(n.Ratio-1) > cfg.Tolerance
		}
	}

	r.Normalization = &n
	return n, nil
}
