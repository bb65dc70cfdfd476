package parse

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cwbudde/algo-seisresp/resp/token"
)

// record is the token run of one blockette.
type record struct {
	blockette int
	toks      []token.Token
}

func (r *record) line() int {
	if len(r.toks) == 0 {
		return 0
	}
	return r.toks[0].Line
}

// field returns the single-field token f.
func (r *record) field(f int) (token.Token, error) {
	for _, t := range r.toks {
		if t.Field == f && t.FieldEnd == f {
			return t, nil
		}
	}
	return token.Token{}, fmt.Errorf("%w: B%03dF%02d in blockette at line %d", ErrMissingField, r.blockette, f, r.line())
}

// optional returns the value of field f, or "" when absent.
func (r *record) optional(f int) string {
	t, err := r.field(f)
	if err != nil {
		return ""
	}
	return t.Value
}

// rows returns the range tokens starting at field f, e.g. B053F10-13.
func (r *record) rows(f int) []token.Token {
	var out []token.Token
	for _, t := range r.toks {
		if t.Field == f && t.FieldEnd > f {
			out = append(out, t)
		}
	}
	return out
}

func (r *record) intField(f int) (int, error) {
	t, err := r.field(f)
	if err != nil {
		return 0, err
	}
	return atoi(t, firstWord(t.Value))
}

func (r *record) floatField(f int) (float64, error) {
	t, err := r.field(f)
	if err != nil {
		return 0, err
	}
	return atof(t, firstWord(t.Value))
}

func atoi(t token.Token, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, numericError(t, s, err)
	}
	return n, nil
}

func atof(t token.Token, s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, numericError(t, s, err)
	}
	return v, nil
}

func numericError(t token.Token, s string, err error) error {
	var ne *strconv.NumError
	if errors.As(err, &ne) {
		err = ne.Err
	}
	return &NumericFieldError{Line: t.Line, Code: t.Code(), Value: s, Err: err}
}

// rowValues parses columns [1, 1+n) of a range row, skipping the index in
// column 0.
func rowValues(t token.Token, n int) ([]float64, error) {
	f := t.Fields()
	if len(f) < n+1 {
		return nil, fmt.Errorf("%w: line %d: %s has %d columns, want %d", ErrInvalidField, t.Line, t.Code(), len(f), n+1)
	}
	out := make([]float64, n)
	for i := range out {
		v, err := atof(t, f[i+1])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func firstWord(s string) string {
	if f := strings.Fields(s); len(f) > 0 {
		return f[0]
	}
	return ""
}

var errDate = errors.New("want YYYY,DDD[,HH:MM[:SS[.ffff]]]")

// parseDate reads the RESP date form YYYY,DDD[,HH:MM[:SS[.ffff]]]. The
// text "No Ending Time" yields the zero time.
func parseDate(t token.Token) (time.Time, error) {
	s := strings.TrimSpace(t.Value)
	if s == "" || strings.EqualFold(s, "No Ending Time") {
		return time.Time{}, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) < 2 || len(parts) > 3 {
		return time.Time{}, numericError(t, s, errDate)
	}
	year, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	day, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil || day < 1 || day > 366 {
		return time.Time{}, numericError(t, s, errDate)
	}
	clock := ""
	if len(parts) == 3 {
		clock = parts[2]
	}
	ts, err := Time(year, day, clock)
	if err != nil {
		return time.Time{}, numericError(t, s, err)
	}
	return ts, nil
}

// Time builds a UTC time from a year, a day of year and an optional
// HH[:MM[:SS[.ffff]]] clock.
func Time(year, day int, clock string) (time.Time, error) {
	if day < 1 || day > 366 {
		return time.Time{}, fmt.Errorf("%w: day of year %d", ErrInvalidField, day)
	}
	var hms [3]float64
	clock = strings.TrimSpace(clock)
	if clock != "" {
		parts := strings.Split(clock, ":")
		if len(parts) > 3 {
			return time.Time{}, fmt.Errorf("%w: clock %q", ErrInvalidField, clock)
		}
		for i, p := range parts {
			v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil || v < 0 {
				return time.Time{}, fmt.Errorf("%w: clock %q", ErrInvalidField, clock)
			}
			hms[i] = v
		}
	}
	ts := time.Date(year, time.January, 1, int(hms[0]), int(hms[1]), 0, 0, time.UTC)
	ts = ts.AddDate(0, 0, day-1)
	return ts.Add(time.Duration(hms[2] * float64(time.Second))).Round(time.Microsecond), nil
}
