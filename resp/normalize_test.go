package resp

import (
	"errors"
	"math"
	"testing"
)

func TestNormalize_Discrepant(t *testing.T) {
	r := highPass()
	n, err := Normalize(r, 0)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if n.Frequency != f0 {
		t.Errorf("Frequency = %v, want %v", n.Frequency, f0)
	}
	if !almostEqual(n.Calculated, math.Sqrt2, 1e-12) {
		t.Errorf("Calculated = %v, want √2", n.Calculated)
	}
	if n.Nominal != 1 || !almostEqual(n.Ratio, math.Sqrt2, 1e-12) {
		t.Errorf("Nominal = %v, Ratio = %v", n.Nominal, n.Ratio)
	}
	if !n.Discrepant {
		t.Error("41% deviation not flagged")
	}
	if r.Normalization == nil || r.Normalization.Calculated != n.Calculated {
		t.Error("Normalization not recorded on response")
	}
	if len(n.Stages) != 1 || !n.Stages[0].Discrepant || n.Stages[0].Corrected {
		t.Errorf("stage checks = %+v", n.Stages)
	}
}

func TestNormalize_WithinTolerance(t *testing.T) {
	r := highPass()
	r.Sensitivity.Value = 1.40
	n, err := Normalize(r, 0)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if n.Discrepant {
		t.Errorf("ratio %v flagged with tolerance %v", n.Ratio, n.Tolerance)
	}

	r.Sensitivity.Value = 1
	n, err = Normalize(r, 0, WithTolerance(0.5))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if n.Discrepant {
		t.Errorf("ratio %v flagged with tolerance 0.5", n.Ratio)
	}
}

func TestNormalize_A0Correction(t *testing.T) {
	r := highPass()
	n, err := Normalize(r, 0, WithA0Correction())
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	pz := r.Stages[0].Filter.(*PolesZeros)
	if !almostEqual(pz.A0, math.Sqrt2, 1e-12) {
		t.Errorf("A0 = %v, want √2", pz.A0)
	}
	if sc := n.Stages[0]; !sc.Corrected || sc.A0 != pz.A0 {
		t.Errorf("stage check = %+v", sc)
	}
	if !almostEqual(n.Calculated, 2, 1e-12) {
		t.Errorf("Calculated after correction = %v, want 2", n.Calculated)
	}

	again, err := Normalize(r, 0)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if again.Stages[0].Discrepant {
		t.Errorf("corrected stage still discrepant: gain %v", again.Stages[0].Gain)
	}
}

func TestNormalize_ExplicitFrequency(t *testing.T) {
	r := highPass()
	n, err := Normalize(r, 100)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	// Far above the corner the high-pass is flat at the stage-2 gain.
	if !almostEqual(n.Calculated, 2, 1e-4) {
		t.Errorf("Calculated(100 Hz) = %v, want ≈2", n.Calculated)
	}
}

func TestNormalize_Errors(t *testing.T) {
	if _, err := Normalize(&Response{}, 1); !errors.Is(err, ErrEmptyCascade) {
		t.Errorf("empty: err = %v", err)
	}
	r := highPass()
	r.Sensitivity = nil
	if _, err := Normalize(r, 0); !errors.Is(err, ErrNoReferenceFrequency) {
		t.Errorf("no sensitivity: err = %v", err)
	}
	n, err := Normalize(r, f0)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if n.Ratio != 0 || n.Discrepant {
		t.Errorf("without nominal: Ratio = %v, Discrepant = %v", n.Ratio, n.Discrepant)
	}
}
