// Package render draws run results as PNG charts.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/branched-services/go-montecarlo/pkg/estimator"
	"github.com/branched-services/go-montecarlo/pkg/geom"
)

// ErrEmptyResult is returned when there is nothing to draw.
var ErrEmptyResult = errors.New("result has no samples")

var (
	insideColor    = color.RGBA{R: 0, G: 128, B: 0, A: 153}
	outsideColor   = color.RGBA{R: 220, G: 0, B: 0, A: 153}
	estimateColor  = color.RGBA{R: 0, G: 0, B: 255, A: 180}
	referenceColor = color.RGBA{R: 220, G: 0, B: 0, A: 255}
	bandColor      = color.RGBA{R: 255, G: 0, B: 0, A: 26}
)

// circleSegments is the number of segments in a drawn circle outline.
const circleSegments = 256

type config struct {
	width       vg.Length
	height      vg.Length
	pointRadius vg.Length
}

// Option configures a chart.
type Option func(*config)

// WithSize sets the image size.
func WithSize(w, h vg.Length) Option {
	return func(c *config) {
		c.width = w
		c.height = h
	}
}

// WithPointRadius sets the scatter glyph radius.
func WithPointRadius(r vg.Length) Option {
	return func(c *config) {
		c.pointRadius = r
	}
}

func newConfig(w, h vg.Length, opts []Option) config {
	c := config{width: w, height: h, pointRadius: vg.Points(1)}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Scatter draws inside points green and outside points red over the target
// outline and the sampling region.
func Scatter(res *estimator.RunResult, target estimator.Target, opts ...Option) ([]byte, error) {
	if res == nil || res.Samples == 0 {
		return nil, ErrEmptyResult
	}
	cfg := newConfig(8*vg.Inch, 8*vg.Inch, opts)

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Monte Carlo sampling of %s (%d points)", res.Target, res.Samples)
	p.X.Label.Text = "X"
	p.Y.Label.Text = "Y"
	p.Add(plotter.NewGrid())

	region := target.Region
	padX, padY := 0.05*region.Width(), 0.05*region.Height()
	p.X.Min, p.X.Max = region.MinX-padX, region.MaxX+padX
	p.Y.Min, p.Y.Max = region.MinY-padY, region.MaxY+padY

	for _, set := range []struct {
		label string
		pts   []geom.Point
		color color.Color
	}{
		{fmt.Sprintf("Inside (%d)", res.Inside), res.InsidePoints, insideColor},
		{fmt.Sprintf("Outside (%d)", res.Outside()), res.OutsidePoints, outsideColor},
	} {
		if len(set.pts) == 0 {
			continue
		}
		s, err := plotter.NewScatter(toXYs(set.pts))
		if err != nil {
			return nil, fmt.Errorf("scatter: %w", err)
		}
		s.GlyphStyle.Color = set.color
		s.GlyphStyle.Radius = cfg.pointRadius
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(s)
		p.Legend.Add(set.label, s)
	}

	box, err := plotter.NewLine(toXYs(closed([]geom.Point{
		{X: region.MinX, Y: region.MinY},
		{X: region.MaxX, Y: region.MinY},
		{X: region.MaxX, Y: region.MaxY},
		{X: region.MinX, Y: region.MaxY},
	})))
	if err != nil {
		return nil, fmt.Errorf("region outline: %w", err)
	}
	box.LineStyle.Width = vg.Points(1)
	box.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(box)

	if outline := Outline(target.Shape); len(outline) > 0 {
		l, err := plotter.NewLine(toXYs(outline))
		if err != nil {
			return nil, fmt.Errorf("shape outline: %w", err)
		}
		l.LineStyle.Width = vg.Points(2)
		p.Add(l)
	}

	p.Legend.Top = true

	return encode(p, cfg)
}

// Convergence draws the running estimate against the sample count on a log
// axis, with the reference value (when known) and the summary's error band.
func Convergence(res *estimator.RunResult, sum estimator.Summary, opts ...Option) ([]byte, error) {
	if res == nil || len(res.Convergence) == 0 {
		return nil, ErrEmptyResult
	}
	cfg := newConfig(12*vg.Inch, 6*vg.Inch, opts)

	conv := res.Convergence
	first, last := float64(conv[0].Samples), float64(conv[len(conv)-1].Samples)

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Monte Carlo convergence: %s", res.Target)
	p.X.Label.Text = "Number of points"
	p.Y.Label.Text = "Estimate"
	p.X.Scale = plot.LogScale{}
	p.X.Tick.Marker = plot.LogTicks{Prec: -1}
	p.Add(plotter.NewGrid())

	// Band around the curve: upper edge left to right, lower edge back.
	band := make(plotter.XYs, 0, 2*len(conv))
	for _, s := range conv {
		band = append(band, plotter.XY{X: float64(s.Samples), Y: s.Estimate + sum.Band})
	}
	for i := len(conv) - 1; i >= 0; i-- {
		band = append(band, plotter.XY{X: float64(conv[i].Samples), Y: conv[i].Estimate - sum.Band})
	}
	if len(conv) > 1 {
		poly, err := plotter.NewPolygon(band)
		if err != nil {
			return nil, fmt.Errorf("error band: %w", err)
		}
		poly.Color = bandColor
		poly.LineStyle.Width = 0
		p.Add(poly)
		p.Legend.Add(fmt.Sprintf("±%.4f error band", sum.Band), poly)
	}

	curve := make(plotter.XYs, len(conv))
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, s := range conv {
		curve[i] = plotter.XY{X: float64(s.Samples), Y: s.Estimate}
		lo, hi = math.Min(lo, s.Estimate), math.Max(hi, s.Estimate)
	}
	line, err := plotter.NewLine(curve)
	if err != nil {
		return nil, fmt.Errorf("estimate line: %w", err)
	}
	line.LineStyle.Width = vg.Points(2)
	line.LineStyle.Color = estimateColor
	p.Add(line)
	p.Legend.Add("Estimate", line)

	ref, label, pad := sum.Estimate, fmt.Sprintf("Final estimate = %.6f", sum.Estimate), 2*sum.Band
	if sum.Reference > 0 {
		ref, label, pad = sum.Reference, fmt.Sprintf("Reference = %.6f", sum.Reference), 0.2
	}
	refLine, err := plotter.NewLine(plotter.XYs{{X: first, Y: ref}, {X: math.Max(last, first+1), Y: ref}})
	if err != nil {
		return nil, fmt.Errorf("reference line: %w", err)
	}
	refLine.LineStyle.Width = vg.Points(2)
	refLine.LineStyle.Color = referenceColor
	refLine.LineStyle.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}
	p.Add(refLine)
	p.Legend.Add(label, refLine)

	p.Y.Min = math.Min(lo, ref) - pad
	p.Y.Max = math.Max(hi, ref) + pad
	p.Legend.Top = true

	return encode(p, cfg)
}

// Outline returns a closed outline of the shape, or nil for shapes it
// cannot trace.
func Outline(shape geom.Shape) []geom.Point {
	type unwrapper interface{ Unwrap() geom.Shape }
	for {
		u, ok := shape.(unwrapper)
		if !ok {
			break
		}
		shape = u.Unwrap()
	}

	switch s := shape.(type) {
	case geom.Circle:
		pts := make([]geom.Point, circleSegments)
		for i := range pts {
			a := 2 * math.Pi * float64(i) / circleSegments
			pts[i] = geom.Point{X: math.Cos(a), Y: math.Sin(a)}
		}
		return closed(pts)
	case *geom.Polygon:
		return closed(s.Vertices())
	default:
		return nil
	}
}

func closed(pts []geom.Point) []geom.Point {
	return append(pts, pts[0])
}

func toXYs(pts []geom.Point) plotter.XYs {
	xys := make(plotter.XYs, len(pts))
	for i, pt := range pts {
		xys[i] = plotter.XY{X: pt.X, Y: pt.Y}
	}
	return xys
}

func encode(p *plot.Plot, cfg config) ([]byte, error) {
	canvas := vgimg.PngCanvas{Canvas: vgimg.New(cfg.width, cfg.height)}
	p.Draw(draw.New(canvas))

	var buf bytes.Buffer
	if _, err := canvas.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}
