// Package output writes evaluated responses as whitespace-delimited text.
//
// Each series is one file named after its kind and channel, for example
// AMP.IU.ANMO.00.BHZ. Values use %.6E formatting:
//
//	AMP      freq  amplitude
//	PHASE    freq  phase (degrees)
//	SPECTRA  freq  real  imag
//	FAP      freq  amplitude  phase
package output

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cwbudde/algo-seisresp/resp"
)

// Series is one output column set.
type Series int

const (
	Amplitude Series = iota
	Phase
	Spectra
	FreqAmpPhase
)

func (s Series) String() string {
	switch s {
	case Amplitude:
		return "AMP"
	case Phase:
		return "PHASE"
	case Spectra:
		return "SPECTRA"
	case FreqAmpPhase:
		return "FAP"
	default:
		return fmt.Sprintf("Series(%d)", int(s))
	}
}

// Format selects the series written per result.
type Format int

const (
	// AmplitudePhase writes separate AMP and PHASE series.
	AmplitudePhase Format = iota
	// Spectrum writes the complex SPECTRA series.
	Spectrum
	// FAP writes frequency, amplitude and phase in one series.
	FAP
)

func (f Format) String() string {
	switch f {
	case AmplitudePhase:
		return "ap"
	case Spectrum:
		return "cs"
	case FAP:
		return "fap"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// Series returns the series f writes, in file order.
func (f Format) Series() []Series {
	switch f {
	case Spectrum:
		return []Series{Spectra}
	case FAP:
		return []Series{FreqAmpPhase}
	default:
		return []Series{Amplitude, Phase}
	}
}

// ErrUnknownFormat is returned by ParseFormat.
var ErrUnknownFormat = errors.New("output: unknown format")

// ParseFormat accepts ap, cs and fap.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ap":
		return AmplitudePhase, nil
	case "cs", "spectra":
		return Spectrum, nil
	case "fap":
		return FAP, nil
	}
	return AmplitudePhase, fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

type config struct {
	unwrap bool
}

// Option configures writing.
type Option func(*config)

// WithUnwrappedPhase removes ±360° jumps from phase columns.
func WithUnwrappedPhase() Option {
	return func(c *config) { c.unwrap = true }
}

func applyOptions(opts []Option) config {
	var c config
	for _, o := range opts {
		if o != nil {
			o(&c)
		}
	}
	return c
}

// WriteSeries writes one series of res to w.
func WriteSeries(w io.Writer, res *resp.Result, s Series, opts ...Option) error {
	cfg := applyOptions(opts)
	bw := bufio.NewWriter(w)

	var amp, phase []float64
	if s == Amplitude || s == FreqAmpPhase {
		amp = res.Amplitudes()
	}
	if s == Phase || s == FreqAmpPhase {
		phase = res.Phases()
		if cfg.unwrap {
			phase = resp.UnwrapPhase(phase)
		}
	}

	for i, f := range res.Frequencies {
		switch s {
		case Amplitude:
			fmt.Fprintf(bw, "%.6E %.6E\n", f, amp[i])
		case Phase:
			fmt.Fprintf(bw, "%.6E %.6E\n", f, phase[i])
		case Spectra:
			fmt.Fprintf(bw, "%.6E %.6E %.6E\n", f, real(res.Values[i]), imag(res.Values[i]))
		case FreqAmpPhase:
			fmt.Fprintf(bw, "%.6E %.6E %.6E\n", f, amp[i], phase[i])
		default:
			return fmt.Errorf("output: unknown series %v", s)
		}
	}
	return bw.Flush()
}

// WriteTo writes every series of every result to w, each preceded by a
// "# NAME" line carrying its file name.
func WriteTo(w io.Writer, results []*resp.Result, f Format, opts ...Option) error {
	names := FileNames(results, f)
	k := 0
	for _, res := range results {
		for _, s := range f.Series() {
			if _, err := fmt.Fprintf(w, "# %s\n", names[k]); err != nil {
				return err
			}
			k++
			if err := WriteSeries(w, res, s, opts...); err != nil {
				return err
			}
		}
	}
	return nil
}

// Write creates one file per series in dir and returns their paths.
func Write(dir string, results []*resp.Result, f Format, opts ...Option) ([]string, error) {
	names := FileNames(results, f)
	paths := make([]string, 0, len(names))
	k := 0
	for _, res := range results {
		for _, s := range f.Series() {
			p := filepath.Join(dir, names[k])
			k++
			if err := writeFile(p, res, s, opts); err != nil {
				return paths, err
			}
			paths = append(paths, p)
		}
	}
	return paths, nil
}

func writeFile(path string, res *resp.Result, s Series, opts []Option) error {
	fh, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("output: %w", err)
	}
	if err := WriteSeries(fh, res, s, opts...); err != nil {
		fh.Close()
		return fmt.Errorf("output: write %s: %w", path, err)
	}
	return fh.Close()
}

// FileNames returns the file name of every series f writes for results, in
// result then series order.
//
// Names are SERIES.NET.STA.LOC.CHA. When results hold several epochs of the
// same channel, each name gains .YYYY.DDD of the epoch start and, for starts
// off midnight, .HHMMSS.
func FileNames(results []*resp.Result, f Format) []string {
	count := map[string]int{}
	for _, r := range results {
		count[r.Epoch.ID()]++
	}
	var names []string
	for _, r := range results {
		base := r.Epoch.ID()
		if count[base] > 1 {
			base += epochSuffix(r.Epoch)
		}
		for _, s := range f.Series() {
			names = append(names, s.String()+"."+base)
		}
	}
	return names
}

func epochSuffix(e resp.Epoch) string {
	t := e.Start.UTC()
	s := fmt.Sprintf(".%04d.%03d", t.Year(), t.YearDay())
	if h, m, sec := t.Clock(); h != 0 || m != 0 || sec != 0 {
		s += fmt.Sprintf(".%02d%02d%02d", h, m, sec)
	}
	return s
}
