package resp

import (
	"fmt"
	"math"
	"math/cmplx"
	"slices"
	"strings"

	"github.com/cwbudde/algo-seisresp/internal/polyroot"
	"github.com/cwbudde/algo-seisresp/resp/units"
)

// Severity of a Violation. Warnings do not make Violations.Err non-nil.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// ViolationKind classifies a structural problem.
type ViolationKind int

const (
	EmptyCascade ViolationKind = iota
	EmptyStage
	SequenceGap
	SequenceRepeat
	SequenceOrder
	UnitMismatch
	NegativeCount
	CountMismatch
	MissingDecimation
	BadDecimation
	RateMismatch
	UnstableFilter
	UnpairedRoot
)

var violationNames = [...]string{
	EmptyCascade:      "empty cascade",
	EmptyStage:        "empty stage",
	SequenceGap:       "sequence gap",
	SequenceRepeat:    "repeated sequence",
	SequenceOrder:     "sequence order",
	UnitMismatch:      "unit mismatch",
	NegativeCount:     "negative count",
	CountMismatch:     "count mismatch",
	MissingDecimation: "missing decimation",
	BadDecimation:     "bad decimation",
	RateMismatch:      "rate mismatch",
	UnstableFilter:    "unstable filter",
	UnpairedRoot:      "unpaired root",
}

func (k ViolationKind) String() string {
	if int(k) >= 0 && int(k) < len(violationNames) {
		return violationNames[k]
	}
	return fmt.Sprintf("ViolationKind(%d)", int(k))
}

// Violation is one structural problem. Stage is 0 when the problem concerns
// the response as a whole.
type Violation struct {
	Kind     ViolationKind
	Severity Severity
	Stage    int
	Message  string
}

func (v Violation) String() string {
	if v.Stage > 0 {
		return fmt.Sprintf("stage %d: %s: %s", v.Stage, v.Kind, v.Message)
	}
	return fmt.Sprintf("%s: %s", v.Kind, v.Message)
}

// Violations is the result of Check.
type Violations []Violation

// Errors returns the violations of error severity.
func (vs Violations) Errors() Violations {
	var out Violations
	for _, v := range vs {
		if v.Severity == SeverityError {
			out = append(out, v)
		}
	}
	return out
}

// Warnings returns the violations of warning severity.
func (vs Violations) Warnings() Violations {
	var out Violations
	for _, v := range vs {
		if v.Severity == SeverityWarning {
			out = append(out, v)
		}
	}
	return out
}

// Err returns a *StructuralError holding the error-severity violations, or
// nil when there are none.
func (vs Violations) Err() error {
	errs := vs.Errors()
	if len(errs) == 0 {
		return nil
	}
	return &StructuralError{Violations: errs}
}

// StructuralError reports a response that failed Check.
type StructuralError struct {
	Violations Violations
}

func (e *StructuralError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.String()
	}
	return fmt.Sprintf("resp: %d structural violation(s): %s", len(e.Violations), strings.Join(msgs, "; "))
}

func (e *StructuralError) Unwrap() error { return ErrStructural }

// rateTolerance is the relative difference between a stage's output rate and
// the next stage's input rate reported as a warning.
const rateTolerance = 1e-3

// Check lists every structural problem of r. It never stops at the first
// violation and does not modify r.
//
// Stage numbers must run 1..N without gaps or repeats, adjacent declared
// units must agree (undeclared units are skipped), declared coefficient
// counts must match the stored lists, and digital stages need a decimation
// with a positive input rate. Poles in the unstable half plane or outside the
// unit circle and complex roots without a conjugate partner are warnings.
func Check(r *Response) Violations {
	var vs Violations
	add := func(kind ViolationKind, sev Severity, stage int, format string, args ...any) {
		vs = append(vs, Violation{Kind: kind, Severity: sev, Stage: stage, Message: fmt.Sprintf(format, args...)})
	}

	if r == nil || len(r.Stages) == 0 {
		add(EmptyCascade, SeverityError, 0, "response has no stages")
		return vs
	}

	checkSequence(r.Stages, add)

	var (
		lastOut      units.Unit
		lastOutStage int
		prevRate     float64
	)
	for i := range r.Stages {
		s := &r.Stages[i]
		seq := s.Sequence

		if s.Kind() == KindEmpty {
			add(EmptyStage, SeverityError, seq, "stage has no filter, gain or decimation")
		}

		if s.Input.Declared() && lastOut.Declared() && !sameUnit(s.Input, lastOut) {
			add(UnitMismatch, SeverityError, seq, "input %s does not match output %s of stage %d",
				s.Input, lastOut, lastOutStage)
		}
		if s.Output.Declared() {
			lastOut = s.Output
			lastOutStage = seq
		}

		checkCounts(s, add)
		checkRoots(s, add)

		d := s.Decimation
		switch {
		case d == nil && s.Digital():
			add(MissingDecimation, SeverityError, seq, "digital %s stage has no decimation", s.Kind())
		case d != nil && d.InputRate <= 0:
			if s.Digital() {
				add(MissingDecimation, SeverityError, seq, "digital %s stage has input rate %g", s.Kind(), d.InputRate)
			} else {
				add(BadDecimation, SeverityError, seq, "input rate %g is not positive", d.InputRate)
			}
		}
		if d != nil && d.Factor < 1 {
			add(BadDecimation, SeverityError, seq, "decimation factor %d is less than 1", d.Factor)
		}
		if d != nil && d.InputRate > 0 {
			if prevRate > 0 && math.Abs(d.InputRate-prevRate) > rateTolerance*prevRate {
				add(RateMismatch, SeverityWarning, seq, "input rate %g, previous stage delivers %g", d.InputRate, prevRate)
			}
			prevRate = d.OutputRate()
		}
	}
	return vs
}

func checkSequence(stages []Stage, add func(ViolationKind, Severity, int, string, ...any)) {
	seen := make(map[int]bool, len(stages))
	maxSeq := 0
	for i := range stages {
		seq := stages[i].Sequence
		if seq < 1 {
			add(SequenceGap, SeverityError, 0, "invalid stage number %d at position %d", seq, i+1)
			continue
		}
		if seen[seq] {
			add(SequenceRepeat, SeverityError, seq, "stage number appears more than once")
		}
		if i > 0 && seq < stages[i-1].Sequence {
			add(SequenceOrder, SeverityError, seq, "follows stage %d", stages[i-1].Sequence)
		}
		seen[seq] = true
		maxSeq = max(maxSeq, seq)
	}
	for k := 1; k <= maxSeq; k++ {
		if !seen[k] {
			add(SequenceGap, SeverityError, 0, "stage %d is missing", k)
		}
	}
}

func checkCounts(s *Stage, add func(ViolationKind, Severity, int, string, ...any)) {
	count := func(what string, declared, stored int) {
		switch {
		case declared < 0:
			add(NegativeCount, SeverityError, s.Sequence, "declared %s count %d", what, declared)
		case declared != stored:
			add(CountMismatch, SeverityError, s.Sequence, "declared %d %s, found %d", declared, what, stored)
		}
	}
	switch f := s.Filter.(type) {
	case *PolesZeros:
		count("zeros", f.DeclaredZeros, len(f.Zeros))
		count("poles", f.DeclaredPoles, len(f.Poles))
	case *FIR:
		count("coefficients", f.DeclaredCount, len(f.Coefficients))
	case *Coefficients:
		count("numerators", f.DeclaredNumerators, len(f.Numerators))
		count("denominators", f.DeclaredDenominators, len(f.Denominators))
	case *Polynomial:
		count("polynomial coefficients", f.DeclaredCount, len(f.Coefficients))
	}
}

// stabilityTol is the margin by which a pole must cross the stability
// boundary before it is reported.
const stabilityTol = 1e-9

func checkRoots(s *Stage, add func(ViolationKind, Severity, int, string, ...any)) {
	var (
		tt    TransferType
		poles []complex128
	)
	switch f := s.Filter.(type) {
	case *PolesZeros:
		tt, poles = f.Transfer, f.Poles
		if u := polyroot.Unpaired(f.Zeros, polyroot.ConjugateTol); len(u) > 0 {
			add(UnpairedRoot, SeverityWarning, s.Sequence, "zeros %v have no conjugate", u)
		}
		if u := polyroot.Unpaired(f.Poles, polyroot.ConjugateTol); len(u) > 0 {
			add(UnpairedRoot, SeverityWarning, s.Sequence, "poles %v have no conjugate", u)
		}
	case *Coefficients:
		if len(f.Denominators) < 2 {
			return
		}
		// Digital denominators ascend in z^-1, which is z descending.
		den := f.Denominators
		if f.Transfer != Digital {
			den = slices.Clone(den)
			slices.Reverse(den)
		}
		roots, err := polyroot.Roots(den)
		if err != nil {
			add(UnstableFilter, SeverityWarning, s.Sequence, "denominator roots not found: %v", err)
			return
		}
		tt, poles = f.Transfer, roots
	default:
		return
	}
	for _, p := range poles {
		if unstable(tt, p) {
			add(UnstableFilter, SeverityWarning, s.Sequence, "pole %v is unstable", p)
		}
	}
}

func unstable(tt TransferType, p complex128) bool {
	if tt == Digital {
		return cmplx.Abs(p) > 1+stabilityTol
	}
	return real(p) > stabilityTol*math.Max(1, cmplx.Abs(p))
}

// sameUnit compares physical quantity and scale; names may differ between
// equivalent spellings.
func sameUnit(a, b units.Unit) bool {
	return a.SameAs(b) && a.Scale == b.Scale
}
