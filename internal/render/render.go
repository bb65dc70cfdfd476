// Package render draws Bode plots of evaluated responses.
//
// The image has two panels sharing a logarithmic frequency axis: amplitude
// on a logarithmic scale above, phase in degrees below. Several results are
// overlaid in distinct colours.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/cwbudde/algo-seisresp/resp"
)

// ErrNoData is returned when no result has a plottable point.
var ErrNoData = errors.New("render: nothing to plot")

var (
	backgroundColor = color.RGBA{255, 255, 255, 255}
	axisColor       = color.RGBA{0, 0, 0, 255}
	gridColor       = color.RGBA{215, 215, 215, 255}

	// Curve colours, cycled per result.
	palette = []color.RGBA{
		{0, 0, 255, 255},   // blue
		{255, 0, 0, 255},   // red
		{0, 150, 0, 255},   // green
		{255, 140, 0, 255}, // orange
		{128, 0, 128, 255}, // purple
	}
)

const (
	marginLeft   = 70 // pixels
	marginRight  = 20
	marginTop    = 24
	marginBottom = 24
	panelGap     = 28
	labelHeight  = 13
)

type config struct {
	width, height int
	unwrap        bool
}

// Option configures rendering.
type Option func(*config)

// WithSize sets the image size. Sizes below 200x200 are ignored.
func WithSize(width, height int) Option {
	return func(c *config) {
		if width >= 200 && height >= 200 {
			c.width, c.height = width, height
		}
	}
}

// WithUnwrappedPhase plots unwrapped phase and fits the phase axis to it.
func WithUnwrappedPhase() Option {
	return func(c *config) { c.unwrap = true }
}

type series struct {
	freq, amp, phase []float64
}

// axis maps data values to pixel coordinates, logarithmically when log is set.
type axis struct {
	lo, hi float64
	p0, p1 int
	log    bool
}

func (a axis) pixel(v float64) int {
	if a.log {
		v = math.Log10(v)
	}
	if a.hi == a.lo {
		return (a.p0 + a.p1) / 2
	}
	return a.p0 + int(math.Round((v-a.lo)/(a.hi-a.lo)*float64(a.p1-a.p0)))
}

// Bode renders results into a new image.
func Bode(results []*resp.Result, opts ...Option) (*image.RGBA, error) {
	cfg := config{width: 800, height: 600}
	for _, o := range opts {
		if o != nil {
			o(&cfg)
		}
	}

	data := make([]series, len(results))
	fmin, fmax := math.Inf(1), math.Inf(-1)
	amin, amax := math.Inf(1), math.Inf(-1)
	pmin, pmax := -180.0, 180.0
	for i, res := range results {
		s := series{freq: res.Frequencies, amp: res.Amplitudes(), phase: res.Phases()}
		if cfg.unwrap {
			s.phase = resp.UnwrapPhase(s.phase)
		}
		for k, f := range s.freq {
			if !(f > 0) || !(s.amp[k] > 0) || math.IsInf(s.amp[k], 0) {
				continue
			}
			fmin, fmax = math.Min(fmin, f), math.Max(fmax, f)
			amin, amax = math.Min(amin, s.amp[k]), math.Max(amax, s.amp[k])
			if cfg.unwrap {
				pmin, pmax = math.Min(pmin, s.phase[k]), math.Max(pmax, s.phase[k])
			}
		}
		data[i] = s
	}
	if math.IsInf(fmin, 1) {
		return nil, ErrNoData
	}

	canvas := image.NewRGBA(image.Rect(0, 0, cfg.width, cfg.height))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{backgroundColor}, image.Point{}, draw.Src)

	panelHeight := (cfg.height - marginTop - marginBottom - panelGap) / 2
	ampRect := image.Rect(marginLeft, marginTop, cfg.width-marginRight, marginTop+panelHeight)
	phaseRect := image.Rect(marginLeft, ampRect.Max.Y+panelGap, cfg.width-marginRight, ampRect.Max.Y+panelGap+panelHeight)

	x := axis{lo: math.Floor(math.Log10(fmin)), hi: math.Ceil(math.Log10(fmax)), p0: ampRect.Min.X, p1: ampRect.Max.X - 1, log: true}
	if x.lo == x.hi {
		x.hi++
	}
	ya := axis{lo: math.Floor(math.Log10(amin)), hi: math.Ceil(math.Log10(amax)), p0: ampRect.Max.Y - 1, p1: ampRect.Min.Y, log: true}
	if ya.lo == ya.hi {
		ya.hi++
	}
	yp := axis{lo: math.Floor(pmin/90) * 90, hi: math.Ceil(pmax/90) * 90, p0: phaseRect.Max.Y - 1, p1: phaseRect.Min.Y}

	drawGrid(canvas, ampRect, x, ya, decades(ya.lo, ya.hi), func(v float64) string { return fmt.Sprintf("%.0e", math.Pow(10, v)) })
	drawGrid(canvas, phaseRect, x, yp, steps(yp.lo, yp.hi, 90), func(v float64) string { return fmt.Sprintf("%.0f", v) })
	for _, d := range decades(x.lo, x.hi) {
		px := x.pixel(math.Pow(10, d))
		label(canvas, px-10, phaseRect.Max.Y+labelHeight+2, fmt.Sprintf("%g", math.Pow(10, d)), axisColor)
	}

	for i, s := range data {
		c := palette[i%len(palette)]
		plot(canvas, ampRect, s.freq, s.amp, s.amp, x, ya, c)
		plot(canvas, phaseRect, s.freq, s.phase, s.amp, x, yp, c)
		label(canvas, marginLeft+6+i*180, marginTop-8, results[i].Epoch.ID()+" "+unitLabel(results[i]), c)
	}
	label(canvas, 4, ampRect.Min.Y+labelHeight, "AMP", axisColor)
	label(canvas, 4, phaseRect.Min.Y+labelHeight, "PHASE", axisColor)
	return canvas, nil
}

func unitLabel(r *resp.Result) string {
	if r.Units.Order() < 0 {
		return r.InputUnit.String()
	}
	return r.Units.String()
}

// WritePNG renders results as PNG to w.
func WritePNG(w io.Writer, results []*resp.Result, opts ...Option) error {
	img, err := Bode(results, opts...)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}

// WriteFile renders results as a PNG file at path.
func WriteFile(path string, results []*resp.Result, opts ...Option) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if err := WritePNG(f, results, opts...); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func decades(lo, hi float64) []float64 {
	var out []float64
	for d := lo; d <= hi; d++ {
		out = append(out, d)
	}
	return out
}

func steps(lo, hi, step float64) []float64 {
	var out []float64
	for v := lo; v <= hi; v += step {
		out = append(out, v)
	}
	return out
}

// drawGrid draws the panel frame, horizontal lines at ys and vertical
// lines at every x decade.
func drawGrid(img *image.RGBA, r image.Rectangle, x, y axis, ys []float64, format func(float64) string) {
	for _, d := range decades(x.lo, x.hi) {
		px := x.pixel(math.Pow(10, d))
		line(img, px, r.Min.Y, px, r.Max.Y-1, gridColor)
	}
	for _, v := range ys {
		py := y.pixel(v)
		if y.log {
			py = y.pixel(math.Pow(10, v))
		}
		line(img, r.Min.X, py, r.Max.X-1, py, gridColor)
		label(img, 4, py+4, format(v), axisColor)
	}
	line(img, r.Min.X, r.Min.Y, r.Max.X-1, r.Min.Y, axisColor)
	line(img, r.Min.X, r.Max.Y-1, r.Max.X-1, r.Max.Y-1, axisColor)
	line(img, r.Min.X, r.Min.Y, r.Min.X, r.Max.Y-1, axisColor)
	line(img, r.Max.X-1, r.Min.Y, r.Max.X-1, r.Max.Y-1, axisColor)
}

// plot connects consecutive points whose amplitude is positive and finite.
func plot(img *image.RGBA, r image.Rectangle, freq, vals, amp []float64, x, y axis, c color.RGBA) {
	havePrev := false
	var px0, py0 int
	for k, f := range freq {
		if !(f > 0) || !(amp[k] > 0) || math.IsInf(amp[k], 0) {
			havePrev = false
			continue
		}
		px, py := x.pixel(f), y.pixel(vals[k])
		if havePrev {
			clipLine(img, r, px0, py0, px, py, c)
		} else if image.Pt(px, py).In(r) {
			img.SetRGBA(px, py, c)
		}
		px0, py0, havePrev = px, py, true
	}
}

func clipLine(img *image.RGBA, r image.Rectangle, x0, y0, x1, y1 int, c color.RGBA) {
	bresenham(x0, y0, x1, y1, func(x, y int) {
		if image.Pt(x, y).In(r) {
			img.SetRGBA(x, y, c)
		}
	})
}

func line(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	bresenham(x0, y0, x1, y1, func(x, y int) { img.SetRGBA(x, y, c) })
}

func bresenham(x0, y0, x1, y1 int, set func(x, y int)) {
	dx, sx := abs(x1-x0), 1
	if x0 > x1 {
		sx = -1
	}
	dy, sy := -abs(y1-y0), 1
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		set(x0, y0)
		e2 := 2 * e
		if e2 >= dy {
			if x0 == x1 {
				return
			}
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			if y0 == y1 {
				return
			}
			e += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func label(img *image.RGBA, x, y int, s string, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot: fixed.Point26_6{
			X: fixed.Int26_6(x * 64),
			Y: fixed.Int26_6(y * 64),
		},
	}
	d.DrawString(s)
}
