package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/golang/glog"

	"github.com/cwbudde/algo-seisresp/internal/export"
	"github.com/cwbudde/algo-seisresp/internal/pipeline"
	"github.com/cwbudde/algo-seisresp/internal/render"
	"github.com/cwbudde/algo-seisresp/internal/stream"
	"github.com/cwbudde/algo-seisresp/resp"
	"github.com/cwbudde/algo-seisresp/resp/output"
	"github.com/cwbudde/algo-seisresp/resp/parse"
	"github.com/cwbudde/algo-seisresp/resp/units"
)

type options struct {
	file        string
	units       string
	time        string
	spacing     string
	net         string
	loc         string
	format      string
	stage       string
	sensitivity string
	useDelay    bool
	unwrap      bool
	outDir      string
	stdio       bool
	converter   string
	batch       string

	exportKind   string
	exportTarget string
	plot         string

	tolerance float64
	a0        bool
	workers   int
	verbose   bool
}

// chanRequest is one STA CHA YYYY DAY MINFREQ MAXFREQ NFREQ request.
type chanRequest struct {
	sta, cha  string
	year, day int
	minFreq   float64
	maxFreq   float64
	n         int
}

func (r chanRequest) String() string {
	return fmt.Sprintf("%s %s %d,%03d", r.sta, r.cha, r.year, r.day)
}

// requests reads the positional request or, with a batch file, one request
// per non-blank, non-comment line.
func requests(args []string, batch string) ([]chanRequest, error) {
	if batch == "" {
		r, err := parseRequest(args)
		if err != nil {
			return nil, err
		}
		return []chanRequest{r}, nil
	}
	if len(args) > 0 {
		return nil, errors.New("positional arguments and -b are exclusive")
	}
	f, err := os.Open(batch)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []chanRequest
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		r, err := parseRequest(strings.Fields(text))
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", batch, line, err)
		}
		out = append(out, r)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: no requests", batch)
	}
	return out, nil
}

func parseRequest(args []string) (chanRequest, error) {
	var r chanRequest
	if len(args) != 7 {
		return r, fmt.Errorf("want STA CHA YYYY DAY MINFREQ MAXFREQ NFREQ, got %d arguments", len(args))
	}
	r.sta, r.cha = args[0], args[1]
	var err error
	if r.year, err = strconv.Atoi(args[2]); err != nil {
		return r, fmt.Errorf("invalid year %q", args[2])
	}
	if r.day, err = strconv.Atoi(args[3]); err != nil || r.day < 1 || r.day > 366 {
		return r, fmt.Errorf("invalid day of year %q", args[3])
	}
	if r.minFreq, err = strconv.ParseFloat(args[4], 64); err != nil {
		return r, fmt.Errorf("invalid minimum frequency %q", args[4])
	}
	if r.maxFreq, err = strconv.ParseFloat(args[5], 64); err != nil {
		return r, fmt.Errorf("invalid maximum frequency %q", args[5])
	}
	if r.n, err = strconv.Atoi(args[6]); err != nil || r.n < 1 {
		return r, fmt.Errorf("invalid frequency count %q", args[6])
	}
	return r, nil
}

// source supplies parsed responses: a single file or converter stream
// parsed once, or a directory whose files are parsed on demand.
type source struct {
	fixed []*resp.Response
	dir   string
	cache map[string][]*resp.Response
}

func openSource(ctx context.Context, o options) (*source, error) {
	if o.converter != "" {
		fields := strings.Fields(o.converter)
		if len(fields) == 0 {
			return nil, errors.New("empty converter command")
		}
		r := stream.Produce(ctx, stream.Command(fields[0], fields[1:]...))
		defer r.Close()
		rs, err := parse.Parse(r)
		if err != nil {
			if len(rs) == 0 {
				return nil, err
			}
			glog.Warningf("%s: %s", fields[0], err)
		}
		return &source{fixed: rs}, nil
	}

	path := o.file
	if path == "" {
		path = "."
	}
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		return &source{dir: path, cache: map[string][]*resp.Response{}}, nil
	}
	rs, err := parseFile(path)
	if err != nil {
		if len(rs) == 0 {
			return nil, err
		}
		glog.Warningf("%s", err)
	}
	return &source{fixed: rs}, nil
}

func parseFile(path string) ([]*resp.Response, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	rs, err := parse.Parse(f)
	if err != nil {
		err = fmt.Errorf("%s: %w", path, err)
	}
	return rs, err
}

func (s *source) responses(f parse.Filter) ([]*resp.Response, error) {
	if s.dir == "" {
		return s.fixed, nil
	}
	pattern, err := parse.FileGlob(f)
	if err != nil {
		return nil, err
	}
	paths, err := filepath.Glob(filepath.Join(s.dir, pattern))
	if err != nil {
		return nil, err
	}
	var out []*resp.Response
	for _, p := range paths {
		rs, ok := s.cache[p]
		if !ok {
			var err error
			if rs, err = parseFile(p); err != nil {
				glog.Warningf("%s", err)
			}
			s.cache[p] = rs
		}
		out = append(out, rs...)
	}
	return out, nil
}

// run evaluates every request. It keeps going after a failed request and
// returns the joined failures.
func run(ctx context.Context, o options, reqs []chanRequest, stdout io.Writer) error {
	format, err := output.ParseFormat(o.format)
	if err != nil {
		return err
	}
	target, err := units.ParseTarget(o.units)
	if err != nil {
		return err
	}
	spacing, err := resp.ParseSpacing(o.spacing)
	if err != nil {
		return err
	}
	base := resp.Request{Units: target, UseEstimatedDelay: o.useDelay}
	switch strings.ToLower(o.sensitivity) {
	case "", "nominal":
	case "calculated":
		base.Sensitivity = resp.SensitivityCalculated
	default:
		return fmt.Errorf("invalid sensitivity %q", o.sensitivity)
	}
	if base.FirstStage, base.LastStage, err = pipeline.StageRange(o.stage); err != nil {
		return err
	}

	ropts := []resp.Option{resp.WithTolerance(o.tolerance), resp.WithWorkers(o.workers)}
	if o.a0 {
		ropts = append(ropts, resp.WithA0Correction())
	}
	var wopts []output.Option
	if o.unwrap {
		wopts = append(wopts, output.WithUnwrappedPhase())
	}

	src, err := openSource(ctx, o)
	if err != nil {
		return err
	}

	var (
		all  []*resp.Result
		errs []error
	)
	summary := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	if o.verbose {
		fmt.Fprintln(summary, "EPOCH\tSTART\tEND\tSTAGES\tSENSITIVITY\tRATIO\tSTATUS")
	}
	for _, cr := range reqs {
		if err := ctx.Err(); err != nil {
			return err
		}
		q, err := query(cr, o, base, spacing)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", cr, err))
			continue
		}
		rs, err := src.responses(q.Filter)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", cr, err))
			continue
		}
		outs, err := pipeline.Run(rs, q, ropts...)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", cr, err))
			continue
		}
		report(outs)
		if o.verbose {
			summarize(summary, outs)
		}
		if err := pipeline.Err(outs); err != nil {
			errs = append(errs, err)
		}

		results := pipeline.Results(outs)
		if len(results) == 0 {
			continue
		}
		all = append(all, results...)
		if o.stdio {
			err = output.WriteTo(stdout, results, format, wopts...)
		} else {
			var paths []string
			paths, err = output.Write(o.outDir, results, format, wopts...)
			for _, p := range paths {
				glog.V(1).Infof("wrote %s", p)
			}
		}
		if err != nil {
			return err
		}
	}
	if o.verbose {
		summary.Flush()
	}

	if len(all) > 0 {
		if err := finish(ctx, o, all); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func query(cr chanRequest, o options, base resp.Request, spacing resp.Spacing) (pipeline.Query, error) {
	t, err := parse.Time(cr.year, cr.day, o.time)
	if err != nil {
		return pipeline.Query{}, err
	}
	freqs, err := resp.Frequencies(cr.minFreq, cr.maxFreq, cr.n, spacing)
	if err != nil {
		return pipeline.Query{}, err
	}
	req := base
	req.Frequencies = freqs
	return pipeline.Query{
		Filter: parse.Filter{
			Stations:  parse.SplitList(cr.sta),
			Channels:  parse.SplitList(cr.cha),
			Networks:  parse.SplitList(o.net),
			Locations: parse.SplitList(o.loc),
			Time:      t,
		},
		Request: req,
	}, nil
}

// report logs warnings, sensitivity discrepancies and A0 corrections.
func report(outs []pipeline.Outcome) {
	for _, o := range outs {
		id := o.Response.Epoch.ID()
		for _, v := range o.Violations.Warnings() {
			glog.Warningf("%s: %s", id, v)
		}
		if n := o.Normalization; n != nil {
			if n.Discrepant {
				glog.Warningf("%s: calculated sensitivity %g differs from declared %g at %g Hz (ratio %.4f)",
					id, n.Calculated, n.Nominal, n.Frequency, n.Ratio)
			}
			for _, sc := range n.Stages {
				switch {
				case sc.Corrected:
					glog.V(1).Infof("%s: stage %d A0 corrected to %g", id, sc.Sequence, sc.A0)
				case sc.Discrepant:
					glog.Warningf("%s: stage %d A0 gives gain %g at %g Hz", id, sc.Sequence, sc.Gain, sc.Frequency)
				}
			}
		}
		if o.Err != nil {
			glog.Errorf("%s", o.Err)
		}
	}
}

func summarize(w io.Writer, outs []pipeline.Outcome) {
	for _, o := range outs {
		e := o.Response.Epoch
		end := "open"
		if !e.End.IsZero() {
			end = e.End.Format("2006,002")
		}
		sens, ratio := "-", "-"
		if o.Response.Sensitivity != nil {
			sens = fmt.Sprintf("%.5E", o.Response.Sensitivity.Value)
		}
		if o.Normalization != nil && o.Normalization.Ratio > 0 {
			ratio = fmt.Sprintf("%.4f", o.Normalization.Ratio)
		}
		status := "ok"
		if o.Err != nil {
			status = "failed"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			e.ID(), e.Start.Format("2006,002"), end, len(o.Response.Stages), sens, ratio, status)
	}
}

// finish runs the export and plot steps over all results.
func finish(ctx context.Context, o options, results []*resp.Result) error {
	var errs []error
	if o.exportKind != "" {
		e, closer, err := export.Open(ctx, o.exportKind, o.exportTarget)
		if err != nil {
			errs = append(errs, err)
		} else {
			runID := export.NewRunID()
			if err := export.Results(ctx, e, results, runID); err != nil {
				errs = append(errs, err)
			} else {
				glog.V(1).Infof("exported %d results as run %s", len(results), runID)
			}
			if err := closer.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if o.plot != "" {
		var opts []render.Option
		if o.unwrap {
			opts = append(opts, render.WithUnwrappedPhase())
		}
		if err := render.WriteFile(o.plot, results, opts...); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
