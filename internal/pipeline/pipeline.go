// Package pipeline runs the select, check, normalize and evaluate steps for
// one channel request against a set of parsed responses.
package pipeline

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cwbudde/algo-seisresp/resp"
	"github.com/cwbudde/algo-seisresp/resp/parse"
)

// Query is one channel request.
type Query struct {
	Filter  parse.Filter
	Request resp.Request
}

// Outcome is the processing of one selected channel epoch. Err is set when
// the epoch failed structural checks or evaluation; Result is nil then.
type Outcome struct {
	Response *resp.Response
	// Violations holds every structural finding, warnings included.
	Violations    resp.Violations
	Normalization *resp.Normalization
	Result        *resp.Result
	Err           error
}

// Run selects the epochs matching q and evaluates each of them. A selection
// failure is returned as the error; per-epoch failures are reported in the
// outcomes so that the other epochs are still served.
func Run(rs []*resp.Response, q Query, opts ...resp.Option) ([]Outcome, error) {
	sel, err := parse.Select(rs, q.Filter)
	if err != nil {
		return nil, err
	}
	out := make([]Outcome, len(sel))
	for i, r := range sel {
		out[i] = evaluate(r, q.Request, opts)
	}
	return out, nil
}

func evaluate(r *resp.Response, req resp.Request, opts []resp.Option) Outcome {
	o := Outcome{Response: r, Violations: resp.Check(r)}
	if err := o.Violations.Err(); err != nil {
		o.Err = fmt.Errorf("%s: %w", r.Epoch, err)
		return o
	}

	n, err := resp.Normalize(r, 0, opts...)
	switch {
	case err == nil:
		o.Normalization = &n
	case errors.Is(err, resp.ErrNoReferenceFrequency):
	default:
		o.Err = fmt.Errorf("%s: %w", r.Epoch, err)
		return o
	}

	res, err := resp.Evaluate(r, req, opts...)
	if err != nil {
		o.Err = fmt.Errorf("%s: %w", r.Epoch, err)
		return o
	}
	o.Result = res
	return o
}

// Results returns the successful results of outs in order.
func Results(outs []Outcome) []*resp.Result {
	var rs []*resp.Result
	for _, o := range outs {
		if o.Result != nil {
			rs = append(rs, o.Result)
		}
	}
	return rs
}

// Err joins the per-epoch errors of outs.
func Err(outs []Outcome) error {
	var errs []error
	for _, o := range outs {
		if o.Err != nil {
			errs = append(errs, o.Err)
		}
	}
	return errors.Join(errs...)
}

// StageRange reads a stage selection "N" or "N,M". An empty string selects
// the whole cascade.
func StageRange(v string) (first, last int, err error) {
	if strings.TrimSpace(v) == "" {
		return 0, 0, nil
	}
	parts := strings.Split(v, ",")
	first, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || first < 1 || len(parts) > 2 {
		return 0, 0, fmt.Errorf("invalid stage range %q", v)
	}
	last = first
	if len(parts) == 2 {
		if last, err = strconv.Atoi(strings.TrimSpace(parts[1])); err != nil || last < first {
			return 0, 0, fmt.Errorf("invalid stage range %q", v)
		}
	}
	return first, last, nil
}
