package resp

import (
	"errors"
	"testing"

	"github.com/cwbudde/algo-seisresp/resp/units"
)

func kinds(vs Violations) map[ViolationKind]int {
	m := map[ViolationKind]int{}
	for _, v := range vs {
		m[v.Kind]++
	}
	return m
}

func TestCheck_Valid(t *testing.T) {
	r := highPass()
	vs := Check(r)
	if len(vs) != 0 {
		t.Fatalf("unexpected violations: %v", vs)
	}
	if err := vs.Err(); err != nil {
		t.Fatalf("Err = %v", err)
	}
	for i, s := range r.Stages {
		if s.Sequence != i+1 {
			t.Errorf("stage %d has sequence %d", i, s.Sequence)
		}
	}
}

func TestCheck_Violations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *Response)
		want   ViolationKind
	}{
		{"empty", func(r *Response) { r.Stages = nil }, EmptyCascade},
		{"gap", func(r *Response) { r.Stages[1].Sequence = 3 }, SequenceGap},
		{"repeat", func(r *Response) { r.Stages[1].Sequence = 1 }, SequenceRepeat},
		{"order", func(r *Response) { r.Stages[0].Sequence, r.Stages[1].Sequence = 2, 1 }, SequenceOrder},
		{"zero sequence", func(r *Response) { r.Stages[0].Sequence = 0 }, SequenceGap},
		{"unit mismatch", func(r *Response) { r.Stages[1].Input = units.MustLookup("V") }, UnitMismatch},
		{"scale mismatch", func(r *Response) { r.Stages[1].Input = units.MustLookup("NM/S") }, UnitMismatch},
		{"negative poles", func(r *Response) { r.Stages[0].Filter.(*PolesZeros).DeclaredPoles = -1 }, NegativeCount},
		{"zero count", func(r *Response) { r.Stages[0].Filter.(*PolesZeros).DeclaredZeros = 2 }, CountMismatch},
		{"empty stage", func(r *Response) { r.Stages[1].Gain = nil }, EmptyStage},
		{"fir count", func(r *Response) {
			s := averager()
			s.Sequence = 3
			s.Input = units.MustLookup("COUNTS")
			s.Filter.(*FIR).DeclaredCount = 3
			r.Stages = append(r.Stages, s)
		}, CountMismatch},
		{"fir without decimation", func(r *Response) {
			s := averager()
			s.Sequence = 3
			s.Decimation = nil
			r.Stages = append(r.Stages, s)
		}, MissingDecimation},
		{"zero factor", func(r *Response) {
			s := averager()
			s.Sequence = 3
			s.Decimation.Factor = 0
			r.Stages = append(r.Stages, s)
		}, BadDecimation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := highPass()
			tt.mutate(r)
			vs := Check(r)
			if kinds(vs)[tt.want] == 0 {
				t.Fatalf("no %v in %v", tt.want, vs)
			}
			err := vs.Err()
			if !errors.Is(err, ErrStructural) {
				t.Fatalf("Err = %v, want ErrStructural", err)
			}
			var se *StructuralError
			if !errors.As(err, &se) || len(se.Violations) == 0 {
				t.Fatalf("Err = %v, want *StructuralError with violations", err)
			}
		})
	}
}

func TestCheck_CollectsAll(t *testing.T) {
	r := highPass()
	r.Stages[1].Sequence = 4
	r.Stages[1].Input = units.MustLookup("V")
	r.Stages[0].Filter.(*PolesZeros).DeclaredPoles = 3

	got := kinds(Check(r))
	if got[SequenceGap] != 2 {
		t.Errorf("SequenceGap count = %d, want 2 (stages 2 and 3)", got[SequenceGap])
	}
	if got[UnitMismatch] != 1 {
		t.Errorf("UnitMismatch count = %d, want 1", got[UnitMismatch])
	}
	if got[CountMismatch] != 1 {
		t.Errorf("CountMismatch count = %d, want 1", got[CountMismatch])
	}
}

func TestCheck_SkipsUndeclaredUnits(t *testing.T) {
	r := highPass()
	r.Stages[1].Input = units.Unit{}
	r.Stages = append(r.Stages, Stage{
		Sequence: 3,
		Input:    units.MustLookup("COUNTS"),
		Output:   units.MustLookup("COUNTS"),
		Gain:     &Gain{Value: 1},
	})
	r.Stages[1].Output = units.Unit{}
	// Stage 3 is compared with the last declared output, M/S of stage 1.
	vs := Check(r)
	if n := kinds(vs)[UnitMismatch]; n != 1 {
		t.Fatalf("UnitMismatch count = %d, want 1: %v", n, vs)
	}
	if vs[0].Stage != 3 {
		t.Errorf("mismatch reported at stage %d, want 3", vs[0].Stage)
	}
}

func TestCheck_RateMismatchIsWarning(t *testing.T) {
	first := averager()
	first.Decimation.Factor = 2
	second := averager()
	second.Sequence = 2
	second.Decimation.InputRate = 40

	r := &Response{Stages: []Stage{first, second}}
	vs := Check(r)
	if n := len(vs.Warnings()); n != 1 || vs[0].Kind != RateMismatch {
		t.Fatalf("warnings = %v, want one RateMismatch", vs)
	}
	if err := vs.Err(); err != nil {
		t.Errorf("Err = %v, want nil for warnings only", err)
	}

	second.Decimation.InputRate = 50
	r.Stages[1] = second
	if vs := Check(r); len(vs) != 0 {
		t.Errorf("matching rates: %v", vs)
	}
}

func TestCheck_RootWarnings(t *testing.T) {
	iir := func(den ...float64) Stage {
		s := averager()
		s.Filter = &Coefficients{
			Transfer:             Digital,
			Numerators:           []float64{1},
			Denominators:         den,
			DeclaredNumerators:   1,
			DeclaredDenominators: len(den),
		}
		return s
	}
	tests := []struct {
		name  string
		stage Stage
		want  map[ViolationKind]int
	}{
		{"stable iir", iir(1, -1.2, 0.52), map[ViolationKind]int{}},
		{"unstable iir", iir(1, -2.5, 1), map[ViolationKind]int{UnstableFilter: 1}},
		{"analog coefficients", Stage{
			Sequence: 1,
			Gain:     &Gain{Value: 1},
			Filter: &Coefficients{
				Transfer:             Laplace,
				Numerators:           []float64{1},
				Denominators:         []float64{-2, 1},
				DeclaredNumerators:   1,
				DeclaredDenominators: 2,
			},
		}, map[ViolationKind]int{UnstableFilter: 1}},
		{"unpaired poles", Stage{
			Sequence: 1,
			Filter: &PolesZeros{
				Transfer:      Laplace,
				A0:            1,
				Zeros:         []complex128{0},
				Poles:         []complex128{complex(-0.037, 0.037), complex(-0.2, 0.1)},
				DeclaredZeros: 1,
				DeclaredPoles: 2,
			},
		}, map[ViolationKind]int{UnpairedRoot: 1}},
		{"right half plane", Stage{
			Sequence: 1,
			Filter: &PolesZeros{
				Transfer:      Laplace,
				A0:            1,
				Poles:         []complex128{complex(0.5, 1), complex(0.5, -1)},
				DeclaredPoles: 2,
			},
		}, map[ViolationKind]int{UnstableFilter: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vs := Check(&Response{Stages: []Stage{tt.stage}})
			got := kinds(vs)
			for k, n := range tt.want {
				if got[k] != n {
					t.Errorf("%v count = %d, want %d: %v", k, got[k], n, vs)
				}
			}
			if len(vs) != len(vs.Warnings()) {
				t.Errorf("root problems must be warnings: %v", vs)
			}
			if len(tt.want) == 0 && len(vs) != 0 {
				t.Errorf("unexpected violations: %v", vs)
			}
		})
	}
}
