package resp_test

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-seisresp/resp"
	"github.com/cwbudde/algo-seisresp/resp/units"
)

func ExampleEvaluate() {
	f0 := 1 / (2 * math.Pi)
	r := &resp.Response{
		Stages: []resp.Stage{
			{
				Sequence: 1,
				Input:    units.MustLookup("M"),
				Output:   units.MustLookup("M/S"),
				Filter: &resp.PolesZeros{
					Transfer: resp.Laplace, A0: 1,
					Zeros: []complex128{0}, Poles: []complex128{-1},
					DeclaredZeros: 1, DeclaredPoles: 1,
				},
			},
			{
				Sequence: 2,
				Input:    units.MustLookup("M/S"),
				Output:   units.MustLookup("COUNTS"),
				Gain:     &resp.Gain{Value: 2, Frequency: f0},
			},
		},
		Sensitivity: &resp.Gain{Value: 1, Frequency: f0},
	}

	res, err := resp.Evaluate(r, resp.Request{Frequencies: []float64{f0}})
	if err != nil {
		panic(err)
	}
	fmt.Printf("amplitude %.4f phase %.1f\n", res.Amplitudes()[0], res.Phases()[0])

	res, _ = resp.Evaluate(r, resp.Request{Frequencies: []float64{f0}, Sensitivity: resp.SensitivityCalculated})
	fmt.Printf("calculated amplitude %.4f\n", res.Amplitudes()[0])
	// Output:
	// amplitude 1.0000 phase 45.0
	// calculated amplitude 1.4142
}

func ExampleCheck() {
	r := &resp.Response{Stages: []resp.Stage{
		{Sequence: 1, Gain: &resp.Gain{Value: 1}},
		{Sequence: 3, Gain: &resp.Gain{Value: 2}},
	}}
	for _, v := range resp.Check(r) {
		fmt.Println(v)
	}
	// Output:
	// sequence gap: stage 2 is missing
}
