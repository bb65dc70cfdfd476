// Package parse builds instrument responses from SEED RESP text and selects
// channel epochs from the result.
//
// A RESP stream holds one or more channel epochs, each introduced by a
// station header (blockette 50) and a channel header (blockette 52) and
// followed by the stage blockettes of its cascade:
//
//	53  poles and zeros           57  decimation
//	54  coefficients              58  gain (stage 0: sensitivity)
//	61  FIR                       62  polynomial
//
// Blockettes 55, 56 and 60 are recognised and rejected. The parser never
// logs; problems are returned as errors.
package parse

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/cwbudde/algo-seisresp/resp"
	"github.com/cwbudde/algo-seisresp/resp/token"
	"github.com/cwbudde/algo-seisresp/resp/units"
)

// Parse reads every channel epoch from r in file order.
//
// A candidate that fails to parse is dropped and parsing resumes at the next
// channel header; its error is part of the returned errors.Join. A read
// failure of r stops parsing. In both cases the completed candidates are
// returned alongside the error.
func Parse(r io.Reader) ([]*resp.Response, error) {
	p := &parser{sc: token.NewScanner(r)}
	p.run()
	return p.out, errors.Join(p.errs...)
}

type parser struct {
	sc   *token.Scanner
	out  []*resp.Response
	errs []error

	station string
	network string

	cur  *candidate
	rec  *record
	skip bool
}

// candidate is a channel epoch being assembled.
type candidate struct {
	r      *resp.Response
	stages map[int]*resp.Stage
	line   int
}

func (p *parser) run() {
	for {
		tok, err := p.sc.Next()
		switch {
		case errors.Is(err, io.EOF):
			p.flush()
			p.finish()
			return
		case errors.Is(err, token.ErrStream):
			p.cur = nil
			p.rec = nil
			p.errs = append(p.errs, fmt.Errorf("parse: %w", err))
			return
		case err != nil:
			// A complete header before the bad line still names the
			// channels that follow; a partial stage record is dropped.
			if p.rec != nil && (p.rec.blockette == 50 || p.rec.blockette == 52) {
				p.flush()
			}
			p.rec = nil
			p.fail(err)
			continue
		}

		if tok.Start {
			p.flush()
			p.rec = &record{blockette: tok.Blockette}
		}
		if p.rec != nil {
			p.rec.toks = append(p.rec.toks, tok)
		}
	}
}

// flush applies the pending record.
func (p *parser) flush() {
	rec := p.rec
	p.rec = nil
	if rec == nil || len(rec.toks) == 0 {
		return
	}

	switch rec.blockette {
	case 50:
		p.finish()
		p.skip = false
		p.station = strings.TrimSpace(rec.optional(3))
		p.network = strings.TrimSpace(rec.optional(16))
		return
	case 52:
		p.finish()
		p.skip = false
		if err := p.begin(rec); err != nil {
			p.fail(err)
		}
		return
	}

	if p.skip {
		return
	}
	if err := p.stage(rec); err != nil {
		p.fail(err)
	}
}

// fail drops the current candidate and skips records up to the next header.
func (p *parser) fail(err error) {
	if p.cur != nil {
		err = fmt.Errorf("parse: %s (line %d): %w", p.cur.r.Epoch.ID(), p.cur.line, err)
	}
	p.errs = append(p.errs, err)
	p.cur = nil
	p.skip = true
}

// finish completes the current candidate.
func (p *parser) finish() {
	c := p.cur
	p.cur = nil
	if c == nil {
		return
	}
	seqs := make([]int, 0, len(c.stages))
	for seq := range c.stages {
		seqs = append(seqs, seq)
	}
	slices.Sort(seqs)
	for _, seq := range seqs {
		c.r.Stages = append(c.r.Stages, *c.stages[seq])
	}
	p.out = append(p.out, c.r)
}

func (p *parser) begin(rec *record) error {
	e := resp.Epoch{
		Network:  p.network,
		Station:  p.station,
		Location: location(rec.optional(3)),
		Channel:  strings.TrimSpace(rec.optional(4)),
	}
	p.cur = &candidate{
		r:      &resp.Response{Epoch: e},
		stages: map[int]*resp.Stage{},
		line:   rec.line(),
	}
	start, err := rec.field(22)
	if err != nil {
		return err
	}
	if e.Start, err = parseDate(start); err != nil {
		return err
	}
	if end, err := rec.field(23); err == nil {
		if e.End, err = parseDate(end); err != nil {
			return err
		}
	}
	p.cur.r.Epoch = e
	return nil
}

func location(s string) string {
	s = strings.TrimSpace(s)
	if s == "??" || s == "--" {
		return ""
	}
	return s
}

// seqField is the stage sequence field of each stage blockette.
var seqField = map[int]int{53: 4, 54: 4, 57: 3, 58: 3, 61: 3, 62: 4}

func (p *parser) stage(rec *record) error {
	switch rec.blockette {
	case 55:
		return &resp.UnsupportedStageError{What: "response list (blockette 55)"}
	case 56:
		return &resp.UnsupportedStageError{What: "generic response (blockette 56)"}
	case 60:
		return &resp.UnsupportedStageError{What: "response reference (blockette 60)"}
	}
	sf, ok := seqField[rec.blockette]
	if !ok {
		return nil
	}
	if p.cur == nil {
		return fmt.Errorf("%w: blockette %d at line %d", ErrOutsideChannel, rec.blockette, rec.line())
	}
	seq, err := rec.intField(sf)
	if err != nil {
		return err
	}

	if seq == 0 {
		if rec.blockette != 58 {
			return fmt.Errorf("%w: blockette %d at line %d has stage 0", ErrInvalidField, rec.blockette, rec.line())
		}
		g, err := gain(rec)
		if err != nil {
			return err
		}
		p.cur.r.Sensitivity = g
		return nil
	}
	if seq < 0 {
		return fmt.Errorf("%w: stage %d at line %d", ErrInvalidField, seq, rec.line())
	}

	st := p.cur.stages[seq]
	if st == nil {
		st = &resp.Stage{Sequence: seq}
		p.cur.stages[seq] = st
	}

	switch rec.blockette {
	case 57:
		if st.Decimation != nil {
			return duplicate(rec, seq)
		}
		st.Decimation, err = decimation(rec)
		return err
	case 58:
		if st.Gain != nil {
			return duplicate(rec, seq)
		}
		st.Gain, err = gain(rec)
		return err
	}

	if st.Filter != nil {
		return duplicate(rec, seq)
	}
	var in, out int
	switch rec.blockette {
	case 53:
		st.Filter, err = polesZeros(rec)
		in, out = 5, 6
	case 54:
		st.Filter, err = coefficients(rec)
		in, out = 5, 6
	case 61:
		st.Filter, err = firFilter(rec)
		in, out = 6, 7
	case 62:
		st.Filter, err = polynomial(rec)
		in, out = 5, 6
	}
	if err != nil {
		return err
	}
	if st.Input, err = stageUnit(rec, in); err != nil {
		return err
	}
	st.Output, err = stageUnit(rec, out)
	return err
}

func duplicate(rec *record, seq int) error {
	return fmt.Errorf("%w: blockette %d for stage %d at line %d", ErrDuplicate, rec.blockette, seq, rec.line())
}

func stageUnit(rec *record, f int) (units.Unit, error) {
	t, err := rec.field(f)
	if err != nil {
		return units.Unit{}, nil
	}
	u, err := units.Lookup(t.Value)
	if err != nil {
		return units.Unit{}, fmt.Errorf("line %d: %s: %w", t.Line, t.Code(), err)
	}
	return u, nil
}

func transferType(rec *record, f int) (resp.TransferType, error) {
	t, err := rec.field(f)
	if err != nil {
		return 0, err
	}
	switch strings.ToUpper(firstWord(t.Value)) {
	case "A":
		return resp.Laplace, nil
	case "B":
		return resp.Analog, nil
	case "D":
		return resp.Digital, nil
	}
	return 0, fmt.Errorf("%w: line %d: %s: transfer type %q", ErrInvalidField, t.Line, t.Code(), t.Value)
}

func polesZeros(rec *record) (*resp.PolesZeros, error) {
	tt, err := transferType(rec, 3)
	if err != nil {
		return nil, err
	}
	pz := &resp.PolesZeros{Transfer: tt}
	if pz.A0, err = rec.floatField(7); err != nil {
		return nil, err
	}
	if pz.NormFrequency, err = rec.floatField(8); err != nil {
		return nil, err
	}
	if pz.DeclaredZeros, err = rec.intField(9); err != nil {
		return nil, err
	}
	if pz.DeclaredPoles, err = rec.intField(14); err != nil {
		return nil, err
	}
	if pz.Zeros, err = roots(rec.rows(10)); err != nil {
		return nil, err
	}
	if pz.Poles, err = roots(rec.rows(15)); err != nil {
		return nil, err
	}
	return pz, nil
}

func roots(rows []token.Token) ([]complex128, error) {
	var out []complex128
	for _, t := range rows {
		v, err := rowValues(t, 2)
		if err != nil {
			return nil, err
		}
		out = append(out, complex(v[0], v[1]))
	}
	return out, nil
}

func column(rows []token.Token) ([]float64, error) {
	var out []float64
	for _, t := range rows {
		v, err := rowValues(t, 1)
		if err != nil {
			return nil, err
		}
		out = append(out, v[0])
	}
	return out, nil
}

func coefficients(rec *record) (*resp.Coefficients, error) {
	tt, err := transferType(rec, 3)
	if err != nil {
		return nil, err
	}
	c := &resp.Coefficients{Transfer: tt}
	if c.DeclaredNumerators, err = rec.intField(7); err != nil {
		return nil, err
	}
	if c.DeclaredDenominators, err = rec.intField(10); err != nil {
		return nil, err
	}
	if c.Numerators, err = column(rec.rows(8)); err != nil {
		return nil, err
	}
	if c.Denominators, err = column(rec.rows(11)); err != nil {
		return nil, err
	}
	return c, nil
}

func firFilter(rec *record) (*resp.FIR, error) {
	f := &resp.FIR{Name: strings.TrimSpace(rec.optional(4))}
	t, err := rec.field(5)
	if err != nil {
		return nil, err
	}
	switch strings.ToUpper(firstWord(t.Value)) {
	case "A":
		f.Symmetry = resp.SymmetryNone
	case "B":
		f.Symmetry = resp.SymmetryOdd
	case "C":
		f.Symmetry = resp.SymmetryEven
	default:
		return nil, fmt.Errorf("%w: line %d: %s: symmetry %q", ErrInvalidField, t.Line, t.Code(), t.Value)
	}
	if f.DeclaredCount, err = rec.intField(8); err != nil {
		return nil, err
	}
	// FIR coefficient rows are single-field lines such as "B061F09 0 -1.0E-03".
	for _, t := range rec.toks {
		if t.Field != 9 {
			continue
		}
		v, err := rowValues(t, 1)
		if err != nil {
			return nil, err
		}
		f.Coefficients = append(f.Coefficients, v[0])
	}
	return f, nil
}

func polynomial(rec *record) (*resp.Polynomial, error) {
	p := &resp.Polynomial{
		Approximation:  strings.TrimSpace(rec.optional(7)),
		FrequencyUnits: strings.TrimSpace(rec.optional(8)),
	}
	for f, dst := range map[int]*float64{
		9:  &p.LowerFrequency,
		10: &p.UpperFrequency,
		11: &p.LowerBound,
		12: &p.UpperBound,
		13: &p.MaxError,
	} {
		if _, err := rec.field(f); err != nil {
			continue
		}
		v, err := rec.floatField(f)
		if err != nil {
			return nil, err
		}
		*dst = v
	}
	var err error
	if p.DeclaredCount, err = rec.intField(14); err != nil {
		return nil, err
	}
	if p.Coefficients, err = column(rec.rows(15)); err != nil {
		return nil, err
	}
	return p, nil
}

func decimation(rec *record) (*resp.Decimation, error) {
	d := &resp.Decimation{}
	var err error
	if d.InputRate, err = rec.floatField(4); err != nil {
		return nil, err
	}
	if d.Factor, err = rec.intField(5); err != nil {
		return nil, err
	}
	if d.Offset, err = rec.intField(6); err != nil {
		return nil, err
	}
	if d.Delay, err = rec.floatField(7); err != nil {
		return nil, err
	}
	if d.Correction, err = rec.floatField(8); err != nil {
		return nil, err
	}
	return d, nil
}

func gain(rec *record) (*resp.Gain, error) {
	g := &resp.Gain{}
	var err error
	if g.Value, err = rec.floatField(4); err != nil {
		return nil, err
	}
	if g.Frequency, err = rec.floatField(5); err != nil {
		return nil, err
	}
	return g, nil
}
