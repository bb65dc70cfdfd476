package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang/glog"

	"github.com/cwbudde/algo-seisresp/internal/export"
	"github.com/cwbudde/algo-seisresp/internal/pipeline"
	"github.com/cwbudde/algo-seisresp/internal/render"
	"github.com/cwbudde/algo-seisresp/resp"
	"github.com/cwbudde/algo-seisresp/resp/output"
	"github.com/cwbudde/algo-seisresp/resp/parse"
	"github.com/cwbudde/algo-seisresp/resp/units"
)

// request is a parsed query string.
type request struct {
	query  pipeline.Query
	format output.Format
	unwrap bool
}

type epochJSON struct {
	ID       string     `json:"id"`
	Network  string     `json:"network"`
	Station  string     `json:"station"`
	Location string     `json:"location"`
	Channel  string     `json:"channel"`
	Start    time.Time  `json:"start"`
	End      *time.Time `json:"end,omitempty"`
}

type normalizationJSON struct {
	Frequency  float64 `json:"frequency"`
	Nominal    float64 `json:"nominal"`
	Calculated float64 `json:"calculated"`
	Ratio      float64 `json:"ratio"`
	Discrepant bool    `json:"discrepant"`
}

type responseJSON struct {
	Epoch         epochJSON          `json:"epoch"`
	Units         string             `json:"units,omitempty"`
	InputUnit     string             `json:"input_unit,omitempty"`
	Sensitivity   float64            `json:"sensitivity,omitempty"`
	Normalization *normalizationJSON `json:"normalization,omitempty"`
	Warnings      []string           `json:"warnings,omitempty"`
	Error         string             `json:"error,omitempty"`
	Frequencies   []float64          `json:"frequencies,omitempty"`
	Amplitude     []float64          `json:"amplitude,omitempty"`
	Phase         []float64          `json:"phase,omitempty"`
	Real          []float64          `json:"real,omitempty"`
	Imag          []float64          `json:"imag,omitempty"`
}

func (s *Server) handleEvaluate(c *gin.Context) {
	req, err := s.parseRequest(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rs, parseErrs, status, err := s.loadResponses(c)
	if err != nil {
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	outs, err := pipeline.Run(rs, req.query, resp.WithTolerance(s.cfg.Tolerance))
	if err != nil {
		c.JSON(statusOf(err), gin.H{"error": err.Error(), "parse_errors": parseErrs})
		return
	}

	runID := export.NewRunID()
	body := make([]responseJSON, len(outs))
	failed := 0
	for i, o := range outs {
		body[i] = encodeOutcome(o, req)
		if body[i].Error != "" {
			failed++
		}
	}
	s.persist(c.Request.Context(), pipeline.Results(outs), runID)

	status = http.StatusOK
	if failed == len(outs) {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, gin.H{
		"run_id":       runID,
		"count":        len(body),
		"responses":    body,
		"parse_errors": parseErrs,
	})
}

func (s *Server) handlePlot(c *gin.Context) {
	req, err := s.parseRequest(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rs, _, status, err := s.loadResponses(c)
	if err != nil {
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	outs, err := pipeline.Run(rs, req.query, resp.WithTolerance(s.cfg.Tolerance))
	if err != nil {
		c.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}
	results := pipeline.Results(outs)
	if len(results) == 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": pipeline.Err(outs).Error()})
		return
	}

	var opts []render.Option
	if req.unwrap {
		opts = append(opts, render.WithUnwrappedPhase())
	}
	var buf bytes.Buffer
	if err := render.WritePNG(&buf, results, opts...); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

func (s *Server) handleRun(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	rows, err := s.store.Run(ctx, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(rows) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": c.Param("id"), "count": len(rows), "rows": rows})
}

func (s *Server) persist(ctx context.Context, results []*resp.Result, runID string) {
	if s.store == nil || len(results) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := export.Results(ctx, s.store, results, runID); err != nil {
		glog.Warningf("run %s: export failed: %s", runID, err)
	}
}

func statusOf(err error) int {
	if errors.Is(err, parse.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusUnprocessableEntity
}

// loadResponses parses the request body (POST) or the RESP files of the
// configured directory (GET). Parse errors that left some responses are
// returned as messages.
func (s *Server) loadResponses(c *gin.Context) ([]*resp.Response, []string, int, error) {
	var (
		rs  []*resp.Response
		err error
	)
	if c.Request.Method == http.MethodPost {
		body := http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxBodyBytes)
		rs, err = parse.Parse(body)
	} else {
		rs, err = s.readDir(c)
	}

	var msgs []string
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, nil, http.StatusRequestEntityTooLarge, err
		}
		if len(rs) == 0 {
			return nil, nil, http.StatusBadRequest, err
		}
		msgs = strings.Split(err.Error(), "\n")
		glog.Warningf("partial parse: %s", err)
	}
	if len(rs) == 0 {
		return nil, nil, http.StatusBadRequest, errors.New("no channel epochs in input")
	}
	return rs, msgs, http.StatusOK, nil
}

// errUnreadable replaces parse errors of files in the response directory,
// whose line text must not reach clients.
var errUnreadable = errors.New("file could not be parsed")

// readDir parses the RESP.NET.STA.LOC.CHA files of the response directory
// that may hold the requested channels.
func (s *Server) readDir(c *gin.Context) ([]*resp.Response, error) {
	pattern, err := parse.FileGlob(parse.Filter{
		Networks:  parse.SplitList(c.Query("net")),
		Stations:  parse.SplitList(c.Query("sta")),
		Locations: parse.SplitList(c.Query("loc")),
		Channels:  parse.SplitList(c.Query("cha")),
	})
	if err != nil {
		return nil, err
	}
	root, err := filepath.Abs(s.cfg.RespDir)
	if err != nil {
		return nil, err
	}
	paths, err := filepath.Glob(filepath.Join(root, pattern))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no RESP file matches %s", pattern)
	}

	var (
		rs   []*resp.Response
		errs []error
	)
	for _, p := range paths {
		name := filepath.Base(p)
		if !within(root, p) {
			glog.Warningf("skipping %s outside %s", p, root)
			continue
		}
		f, err := os.Open(p)
		if err != nil {
			glog.Warningf("%s: %s", p, err)
			errs = append(errs, fmt.Errorf("%s: %w", name, errUnreadable))
			continue
		}
		got, err := parse.Parse(f)
		f.Close()
		rs = append(rs, got...)
		if err != nil {
			glog.Warningf("%s: %s", p, err)
			errs = append(errs, fmt.Errorf("%s: %w", name, errUnreadable))
		}
	}
	return rs, errors.Join(errs...)
}

// within reports whether path lies inside the directory root.
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

func (s *Server) parseRequest(c *gin.Context) (request, error) {
	var req request
	f := parse.Filter{
		Stations:  parse.SplitList(c.Query("sta")),
		Channels:  parse.SplitList(c.Query("cha")),
		Networks:  parse.SplitList(c.Query("net")),
		Locations: parse.SplitList(c.Query("loc")),
	}
	var err error
	if f.Time, err = parse.ParseTime(c.Query("time")); err != nil {
		return req, err
	}

	minFreq, err := floatQuery(c, "minfreq", 1)
	if err != nil {
		return req, err
	}
	maxFreq, err := floatQuery(c, "maxfreq", minFreq)
	if err != nil {
		return req, err
	}
	n := 1
	if maxFreq != minFreq {
		n = 100
	}
	if v := c.Query("nfreq"); v != "" {
		if n, err = strconv.Atoi(v); err != nil || n < 1 {
			return req, fmt.Errorf("invalid nfreq: %s", v)
		}
	}
	if n > s.cfg.MaxFrequencies {
		return req, fmt.Errorf("nfreq %d exceeds limit %d", n, s.cfg.MaxFrequencies)
	}
	spacing, err := resp.ParseSpacing(c.DefaultQuery("spacing", "log"))
	if err != nil {
		return req, err
	}
	freqs, err := resp.Frequencies(minFreq, maxFreq, n, spacing)
	if err != nil {
		return req, err
	}

	target, err := units.ParseTarget(c.Query("units"))
	if err != nil {
		return req, err
	}
	if req.format, err = output.ParseFormat(c.Query("type")); err != nil {
		return req, err
	}

	r := resp.Request{Units: target, Frequencies: freqs}
	switch strings.ToLower(c.Query("sensitivity")) {
	case "", "nominal":
	case "calculated":
		r.Sensitivity = resp.SensitivityCalculated
	default:
		return req, fmt.Errorf("invalid sensitivity: %s", c.Query("sensitivity"))
	}
	if r.FirstStage, r.LastStage, err = pipeline.StageRange(c.Query("stage")); err != nil {
		return req, err
	}
	if r.UseEstimatedDelay, err = boolQuery(c, "use_delay"); err != nil {
		return req, err
	}
	if req.unwrap, err = boolQuery(c, "unwrap"); err != nil {
		return req, err
	}

	req.query = pipeline.Query{Filter: f, Request: r}
	return req, nil
}

func floatQuery(c *gin.Context, key string, def float64) (float64, error) {
	v := c.Query(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", key, v)
	}
	return f, nil
}

func boolQuery(c *gin.Context, key string) (bool, error) {
	v := c.Query(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %s", key, v)
	}
	return b, nil
}

func encodeOutcome(o pipeline.Outcome, req request) responseJSON {
	e := o.Response.Epoch
	out := responseJSON{Epoch: epochJSON{
		ID:       e.ID(),
		Network:  e.Network,
		Station:  e.Station,
		Location: e.Location,
		Channel:  e.Channel,
		Start:    e.Start,
	}}
	if !e.End.IsZero() {
		end := e.End
		out.Epoch.End = &end
	}
	for _, v := range o.Violations.Warnings() {
		out.Warnings = append(out.Warnings, v.String())
	}
	if n := o.Normalization; n != nil {
		out.Normalization = &normalizationJSON{
			Frequency:  n.Frequency,
			Nominal:    n.Nominal,
			Calculated: n.Calculated,
			Ratio:      n.Ratio,
			Discrepant: n.Discrepant,
		}
		if n.Discrepant {
			glog.Warningf("%s: calculated sensitivity %g differs from declared %g at %g Hz",
				e.ID(), n.Calculated, n.Nominal, n.Frequency)
			out.Warnings = append(out.Warnings, fmt.Sprintf("sensitivity ratio %.4f exceeds tolerance %g", n.Ratio, n.Tolerance))
		}
	}
	if o.Err != nil {
		out.Error = o.Err.Error()
		return out
	}

	res := o.Result
	out.Units = res.Units.String()
	out.InputUnit = res.InputUnit.String()
	out.Sensitivity = res.Sensitivity
	out.Frequencies = res.Frequencies
	for _, v := range res.Values {
		if math.IsNaN(real(v)) || math.IsNaN(imag(v)) || math.IsInf(real(v), 0) || math.IsInf(imag(v), 0) {
			out.Frequencies = nil
			out.Error = "response is not finite over the requested band"
			return out
		}
	}
	if req.format == output.Spectrum {
		out.Real = make([]float64, len(res.Values))
		out.Imag = make([]float64, len(res.Values))
		for i, v := range res.Values {
			out.Real[i], out.Imag[i] = real(v), imag(v)
		}
		return out
	}
	out.Amplitude = res.Amplitudes()
	out.Phase = res.Phases()
	if req.unwrap {
		out.Phase = resp.UnwrapPhase(out.Phase)
	}
	return out
}
