package resp

import (
	"fmt"
	"time"

	"github.com/cwbudde/algo-seisresp/internal/fir"
	"github.com/cwbudde/algo-seisresp/resp/units"
)

// Epoch identifies a channel and the time span its response is valid for.
// A zero End means the epoch is open-ended.
type Epoch struct {
	Network  string
	Station  string
	Location string
	Channel  string
	Start    time.Time
	End      time.Time
}

// Contains reports whether t lies in [Start, End).
func (e Epoch) Contains(t time.Time) bool {
	if t.Before(e.Start) {
		return false
	}
	return e.End.IsZero() || t.Before(e.End)
}

// ID returns NET.STA.LOC.CHA.
func (e Epoch) ID() string {
	return e.Network + "." + e.Station + "." + e.Location + "." + e.Channel
}

func (e Epoch) String() string {
	end := "open"
	if !e.End.IsZero() {
		end = e.End.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("%s [%s, %s)", e.ID(), e.Start.UTC().Format(time.RFC3339), end)
}

// TransferType is the domain a pole/zero or coefficient filter is written in.
type TransferType int

const (
	// Laplace: s = jω, ω in rad/s (SEED code A).
	Laplace TransferType = iota
	// Analog: s = jf, f in Hz (SEED code B).
	Analog
	// Digital: z = exp(jωΔt) (SEED code D).
	Digital
)

func (t TransferType) String() string {
	switch t {
	case Laplace:
		return "A"
	case Analog:
		return "B"
	case Digital:
		return "D"
	default:
		return fmt.Sprintf("TransferType(%d)", int(t))
	}
}

// Symmetry of stored FIR coefficients.
type Symmetry = fir.Symmetry

const (
	SymmetryNone = fir.None
	SymmetryOdd  = fir.Odd
	SymmetryEven = fir.Even
)

// Filter is the transfer function of a stage. The set of implementations is
// closed: *PolesZeros, *FIR, *Coefficients and *Polynomial.
type Filter interface {
	kind() Kind
}

// PolesZeros is a rational transfer function given by its roots
// (blockette 53):
//
//	H(s) = A0 * prod(s - zero_k) / prod(s - pole_k)
type PolesZeros struct {
	Transfer      TransferType
	A0            float64
	NormFrequency float64
	Zeros         []complex128
	Poles         []complex128
	DeclaredZeros int
	DeclaredPoles int
}

func (*PolesZeros) kind() Kind { return KindPolesZeros }

// FIR is a finite impulse response filter (blockette 61). Symmetric kernels
// store only their first half.
type FIR struct {
	Name          string
	Symmetry      Symmetry
	Coefficients  []float64
	DeclaredCount int
}

func (*FIR) kind() Kind { return KindFIR }

// Coefficients is a rational filter given by polynomial coefficients
// (blockette 54). Without denominators it is an asymmetric FIR.
type Coefficients struct {
	Transfer             TransferType
	Numerators           []float64
	Denominators         []float64
	DeclaredNumerators   int
	DeclaredDenominators int
}

func (*Coefficients) kind() Kind { return KindCoefficients }

// Polynomial is a non-linear calibration polynomial (blockette 62). It has
// no frequency response and is rejected by [Evaluate].
type Polynomial struct {
	Approximation  string
	FrequencyUnits string
	LowerFrequency float64
	UpperFrequency float64
	LowerBound     float64
	UpperBound     float64
	MaxError       float64
	Coefficients   []float64
	DeclaredCount  int
}

func (*Polynomial) kind() Kind { return KindPolynomial }

// Decimation describes the sample-rate change of a digital stage
// (blockette 57). Delay and Correction are in seconds.
type Decimation struct {
	InputRate  float64
	Factor     int
	Offset     int
	Delay      float64
	Correction float64
}

// SampleInterval returns 1/InputRate, or 0 when the rate is unset.
func (d *Decimation) SampleInterval() float64 {
	if d == nil || d.InputRate <= 0 {
		return 0
	}
	return 1 / d.InputRate
}

// OutputRate returns InputRate/Factor.
func (d *Decimation) OutputRate() float64 {
	if d.Factor <= 0 {
		return d.InputRate
	}
	return d.InputRate / float64(d.Factor)
}

// Gain is a scalar gain and the frequency it was measured at (blockette 58).
type Gain struct {
	Value     float64
	Frequency float64
}

// Kind classifies a stage.
type Kind int

const (
	KindEmpty Kind = iota
	KindPolesZeros
	KindFIR
	KindCoefficients
	KindPolynomial
	KindGain
	KindDecimation
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindPolesZeros:
		return "poles and zeros"
	case KindFIR:
		return "FIR"
	case KindCoefficients:
		return "coefficients"
	case KindPolynomial:
		return "polynomial"
	case KindGain:
		return "gain"
	case KindDecimation:
		return "decimation"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Stage is one numbered link of the cascade. A stage without a Filter is a
// gain stage (Gain set) or a pure decimation stage.
type Stage struct {
	Sequence   int
	Input      units.Unit
	Output     units.Unit
	Filter     Filter
	Decimation *Decimation
	Gain       *Gain
}

// Kind returns the stage classification.
func (s *Stage) Kind() Kind {
	switch {
	case s.Filter != nil:
		return s.Filter.kind()
	case s.Gain != nil:
		return KindGain
	case s.Decimation != nil:
		return KindDecimation
	default:
		return KindEmpty
	}
}

// Digital reports whether the stage filter operates on samples and so
// needs an input sample rate.
func (s *Stage) Digital() bool {
	switch f := s.Filter.(type) {
	case *FIR:
		return true
	case *PolesZeros:
		return f.Transfer == Digital
	case *Coefficients:
		return f.Transfer == Digital
	default:
		return false
	}
}

// Response is the instrument response of one channel epoch.
type Response struct {
	Epoch  Epoch
	Stages []Stage
	// Sensitivity is the declared overall sensitivity (stage 0), or nil.
	Sensitivity *Gain
	// Normalization is the last result of Normalize, or nil.
	Normalization *Normalization
}

// Stage returns the stage with the given sequence number, or nil.
func (r *Response) Stage(seq int) *Stage {
	for i := range r.Stages {
		if r.Stages[i].Sequence == seq {
			return &r.Stages[i]
		}
	}
	return nil
}

// InputUnit returns the first declared stage input unit.
func (r *Response) InputUnit() units.Unit {
	return inputUnit(r.Stages)
}

// OutputUnit returns the last declared stage output unit.
func (r *Response) OutputUnit() units.Unit {
	for i := len(r.Stages) - 1; i >= 0; i-- {
		if r.Stages[i].Output.Declared() {
			return r.Stages[i].Output
		}
	}
	return units.Unit{}
}

func inputUnit(stages []Stage) units.Unit {
	for i := range stages {
		if stages[i].Input.Declared() {
			return stages[i].Input
		}
	}
	return units.Unit{}
}
