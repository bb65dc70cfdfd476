package parse

import (
	"errors"
	"io"
	"math"
	"os"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/cwbudde/algo-seisresp/resp"
	"github.com/cwbudde/algo-seisresp/resp/token"
	"github.com/cwbudde/algo-seisresp/resp/units"
)

func readSample(t *testing.T) string {
	t.Helper()
	b, err := os.ReadFile("testdata/RESP.IU.ANMO")
	if err != nil {
		t.Fatalf("read testdata: %v", err)
	}
	return string(b)
}

func parseSample(t *testing.T) []*resp.Response {
	t.Helper()
	rs, err := Parse(strings.NewReader(readSample(t)))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return rs
}

// lineIndex returns the 0-based index of the n-th line (1-based n) that
// starts with prefix.
func lineIndex(t *testing.T, lines []string, prefix string, n int) int {
	t.Helper()
	for i, l := range lines {
		if strings.HasPrefix(l, prefix) {
			n--
			if n == 0 {
				return i
			}
		}
	}
	t.Fatalf("no line %d starting with %q", n, prefix)
	return -1
}

func TestParse_Sample(t *testing.T) {
	rs := parseSample(t)
	if len(rs) != 3 {
		t.Fatalf("got %d responses, want 3", len(rs))
	}

	wantIDs := []string{"IU.ANMO.00.BHZ", "IU.ANMO.00.BHZ", "IU.ANMO..LHZ"}
	wantStages := []int{3, 2, 1}
	for i, r := range rs {
		if got := r.Epoch.ID(); got != wantIDs[i] {
			t.Errorf("response %d: ID = %q, want %q", i, got, wantIDs[i])
		}
		if len(r.Stages) != wantStages[i] {
			t.Errorf("response %d: %d stages, want %d", i, len(r.Stages), wantStages[i])
		}
		if vs := resp.Check(r); len(vs) != 0 {
			t.Errorf("response %d: violations %v", i, vs)
		}
	}

	first := rs[0]
	if want := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC); !first.Epoch.Start.Equal(want) {
		t.Errorf("start = %v, want %v", first.Epoch.Start, want)
	}
	if want := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC); !first.Epoch.End.Equal(want) {
		t.Errorf("end = %v, want %v", first.Epoch.End, want)
	}
	if !rs[1].Epoch.End.IsZero() {
		t.Errorf("open epoch has end %v", rs[1].Epoch.End)
	}
	if want := time.Date(1995, 4, 10, 12, 30, 0, 0, time.UTC); !rs[2].Epoch.Start.Equal(want) {
		t.Errorf("LHZ start = %v, want %v", rs[2].Epoch.Start, want)
	}

	if s := first.Sensitivity; s == nil || s.Value != 6.25e8 || s.Frequency != 1 {
		t.Errorf("sensitivity = %+v", s)
	}
	if in := first.InputUnit(); in.Name != "M/S" {
		t.Errorf("input unit = %v", in)
	}
	if out := first.OutputUnit(); out.Dimension != units.Counts {
		t.Errorf("output unit = %v", out)
	}

	pz, ok := first.Stages[0].Filter.(*resp.PolesZeros)
	if !ok {
		t.Fatalf("stage 1 filter = %T", first.Stages[0].Filter)
	}
	if pz.Transfer != resp.Laplace || len(pz.Zeros) != 2 || len(pz.Poles) != 2 {
		t.Errorf("poles/zeros = %+v", pz)
	}
	if pz.Poles[1] != complex(-0.037, -0.037) {
		t.Errorf("pole 1 = %v", pz.Poles[1])
	}
	if g := first.Stages[0].Gain; g == nil || g.Value != 1500 {
		t.Errorf("stage 1 gain = %+v", g)
	}

	cf, ok := first.Stages[1].Filter.(*resp.Coefficients)
	if !ok || cf.Transfer != resp.Digital || len(cf.Numerators) != 0 {
		t.Errorf("stage 2 filter = %+v", first.Stages[1].Filter)
	}

	st := first.Stages[2]
	fir, ok := st.Filter.(*resp.FIR)
	if !ok {
		t.Fatalf("stage 3 filter = %T", st.Filter)
	}
	if fir.Name != "FIR_3TAP" || fir.Symmetry != resp.SymmetryOdd || len(fir.Coefficients) != 2 {
		t.Errorf("FIR = %+v", fir)
	}
	if d := st.Decimation; d == nil || d.InputRate != 40 || d.Factor != 2 || d.Correction != 0.025 {
		t.Errorf("stage 3 decimation = %+v", d)
	}
	if st.Kind() != resp.KindFIR {
		t.Errorf("stage 3 kind = %v", st.Kind())
	}
}

func TestParse_SampleEvaluates(t *testing.T) {
	rs := parseSample(t)
	res, err := resp.Evaluate(rs[0], resp.Request{Units: units.Velocity, Frequencies: []float64{1}})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if amp := res.Amplitudes()[0]; math.Abs(amp-6.25e8) > 1 {
		t.Errorf("amplitude at sensitivity frequency = %v, want 6.25e8", amp)
	}

	n, err := resp.Normalize(rs[0], 0)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if n.Discrepant {
		t.Errorf("sample flagged discrepant: ratio %v", n.Ratio)
	}
}

func TestParse_MalformedLine(t *testing.T) {
	lines := strings.Split(readSample(t), "\n")
	at := lineIndex(t, lines, "B052F23", 2) + 1
	lines = append(lines[:at], append([]string{"this is not a field"}, lines[at:]...)...)

	rs, err := Parse(strings.NewReader(strings.Join(lines, "\n")))
	var mle *token.MalformedLineError
	if !errors.As(err, &mle) {
		t.Fatalf("err = %v, want *token.MalformedLineError", err)
	}
	if mle.Line != at+1 {
		t.Errorf("malformed line = %d, want %d", mle.Line, at+1)
	}
	if len(rs) != 2 {
		t.Fatalf("got %d responses, want 2", len(rs))
	}
	if rs[0].Epoch.End.IsZero() || rs[1].Epoch.Channel != "LHZ" {
		t.Errorf("kept %v and %v", rs[0].Epoch, rs[1].Epoch)
	}
	if len(rs[0].Stages) != 3 {
		t.Errorf("earlier candidate has %d stages, want 3", len(rs[0].Stages))
	}
}

func TestParse_StreamError(t *testing.T) {
	sample := readSample(t)
	lines := strings.SplitAfter(sample, "\n")
	cut := lineIndex(t, lines, "B053F03", 2)
	head := strings.Join(lines[:cut], "")

	boom := errors.New("connection reset")
	rs, err := Parse(io.MultiReader(strings.NewReader(head), iotest.ErrReader(boom)))
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if !errors.Is(err, token.ErrStream) {
		t.Errorf("err = %v, want token.ErrStream", err)
	}
	if len(rs) != 1 || len(rs[0].Stages) != 3 {
		t.Fatalf("got %d responses, want the first epoch only", len(rs))
	}
}

func TestParse_NumericField(t *testing.T) {
	sample := strings.Replace(readSample(t), "+1.50000E+03", "+1.5OOOOE+03", 1)
	rs, err := Parse(strings.NewReader(sample))
	var ne *NumericFieldError
	if !errors.As(err, &ne) {
		t.Fatalf("err = %v, want *NumericFieldError", err)
	}
	if ne.Code != "B058F04" || ne.Value != "+1.5OOOOE+03" {
		t.Errorf("error = %+v", ne)
	}
	lines := strings.Split(sample, "\n")
	if want := lineIndex(t, lines, "B058F04", 1) + 1; ne.Line != want {
		t.Errorf("line = %d, want %d", ne.Line, want)
	}
	if !errors.Is(err, ErrNumericField) {
		t.Error("errors.Is(err, ErrNumericField) = false")
	}
	if len(rs) != 2 {
		t.Errorf("got %d responses, want 2", len(rs))
	}
}

const header = `B050F03     Station:     TEST
B050F16     Network:     XX
B052F03     Location:    --
B052F04     Channel:     HHZ
B052F22     Start date:  2010,001
B052F23     End date:    No Ending Time
`

func TestParse_Errors(t *testing.T) {
	pz := `B053F03     Transfer function type:   A
B053F04     Stage sequence number:    1
B053F07     A0 normalization factor:  1
B053F08     Normalization frequency:  1
B053F09     Number of zeroes:         0
B053F14     Number of poles:          0
`
	tests := []struct {
		name string
		in   string
		want error
	}{
		{"response list", header + "B055F03     Stage sequence number: 1\n", resp.ErrUnsupportedStage},
		{"reference", header + "B060F03     Number of stages: 1\n", resp.ErrUnsupportedStage},
		{"outside channel", "B058F03     Stage sequence number: 1\nB058F04 Gain: 1\nB058F05 Frequency: 1\n", ErrOutsideChannel},
		{"duplicate filter", header + pz + pz, ErrDuplicate},
		{"missing field", header + "B057F03     Stage sequence number: 1\nB057F04 Input sample rate: 40\n", ErrMissingField},
		{"bad transfer type", header + strings.Replace(pz, "type:   A", "type:   Q", 1), ErrInvalidField},
		{"unknown unit", header + strings.Replace(pz, "B053F07", "B053F05 Response in units lookup: FURLONGS\nB053F07", 1), units.ErrUnknownUnit},
		{"bad date", strings.Replace(header, "2010,001", "2010-01-01", 1), ErrNumericField},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.in))
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParse_BlankLocation(t *testing.T) {
	rs, err := Parse(strings.NewReader(header))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(rs) != 1 || rs[0].Epoch.Location != "" {
		t.Fatalf("got %+v", rs)
	}
}

func TestParse_Polynomial(t *testing.T) {
	in := header + `B062F03     Transfer function type:                P
B062F04     Stage sequence number:                 1
B062F05     Response in units lookup:              C - Degrees Celsius
B062F06     Response out units lookup:             V - Volts
B062F07     Polynomial Approximation Type:         M
B062F08     Valid Frequency Units:                 B
B062F09     Lower Valid Frequency Bound:           0.0000E+00
B062F10     Upper Valid Frequency Bound:           1.0000E+00
B062F11     Lower Bound of Approximation:          -5.0000E+01
B062F12     Upper Bound of Approximation:          5.0000E+01
B062F13     Maximum Absolute Error:                1.0000E-03
B062F14     Number of coefficients:                2
B062F15-16     0  +1.00000E-01  +0.00000E+00
B062F15-16     1  +2.00000E-02  +0.00000E+00
`
	rs, err := Parse(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	st := rs[0].Stages[0]
	p, ok := st.Filter.(*resp.Polynomial)
	if !ok {
		t.Fatalf("filter = %T", st.Filter)
	}
	if p.Approximation != "M" || p.UpperBound != 50 || len(p.Coefficients) != 2 || p.Coefficients[1] != 0.02 {
		t.Errorf("polynomial = %+v", p)
	}
	if vs := resp.Check(rs[0]); len(vs) != 0 {
		t.Errorf("violations: %v", vs)
	}
	_, err = resp.Evaluate(rs[0], resp.Request{Frequencies: []float64{1}})
	if !errors.Is(err, resp.ErrUnsupportedStage) {
		t.Errorf("Evaluate err = %v, want ErrUnsupportedStage", err)
	}
}

func TestTime(t *testing.T) {
	got, err := Time(2000, 60, "12:00:30.5")
	if err != nil {
		t.Fatalf("Time: %v", err)
	}
	want := time.Date(2000, 2, 29, 12, 0, 30, 500_000_000, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Time = %v, want %v", got, want)
	}
	if _, err := Time(2000, 0, ""); !errors.Is(err, ErrInvalidField) {
		t.Errorf("day 0: err = %v", err)
	}
	if _, err := Time(2000, 1, "1:2:3:4"); !errors.Is(err, ErrInvalidField) {
		t.Errorf("bad clock: err = %v", err)
	}
}
