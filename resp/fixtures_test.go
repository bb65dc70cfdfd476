package resp

import (
	"math"

	"github.com/cwbudde/algo-seisresp/resp/units"
)

// f0 is the frequency where ω = 1 rad/s.
const f0 = 1 / (2 * math.Pi)

// highPass is a one-zero one-pole analog stage followed by a gain of 2 and
// a declared sensitivity of 1 at f0. At f0 the first stage is j/(1+j).
func highPass() *Response {
	return &Response{
		Epoch: Epoch{Network: "XX", Station: "TEST", Channel: "BHZ"},
		Stages: []Stage{
			{
				Sequence: 1,
				Input:    units.MustLookup("M"),
				Output:   units.MustLookup("M/S"),
				Filter: &PolesZeros{
					Transfer:      Laplace,
					A0:            1,
					NormFrequency: f0,
					Zeros:         []complex128{0},
					Poles:         []complex128{-1},
					DeclaredZeros: 1,
					DeclaredPoles: 1,
				},
			},
			{
				Sequence: 2,
				Input:    units.MustLookup("M/S"),
				Output:   units.MustLookup("COUNTS"),
				Gain:     &Gain{Value: 2, Frequency: f0},
			},
		},
		Sensitivity: &Gain{Value: 1, Frequency: f0},
	}
}

// averager is a two-tap FIR at 100 Hz whose recorded correction removes its
// half-sample delay.
func averager() Stage {
	return Stage{
		Sequence: 1,
		Input:    units.MustLookup("COUNTS"),
		Output:   units.MustLookup("COUNTS"),
		Filter: &FIR{
			Symmetry:      SymmetryNone,
			Coefficients:  []float64{0.5, 0.5},
			DeclaredCount: 2,
		},
		Decimation: &Decimation{InputRate: 100, Factor: 1, Correction: 0.005},
		Gain:       &Gain{Value: 1},
	}
}

func logFrequencies(n int) []float64 {
	f, err := Frequencies(0.001, 50, n, Logarithmic)
	if err != nil {
		panic(err)
	}
	return f
}

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}
