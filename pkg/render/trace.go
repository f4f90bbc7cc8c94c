// Package render turns sample blocks into screen geometry and paints
// them onto a raster display.
package render

import "math"

// Device and screen constants.
const (
	// SampleBits is the ADC resolution of the device.
	SampleBits = 12
	// SampleVRange is the ADC full-scale range in volts.
	SampleVRange = 3.3
	// YDivs is the number of vertical divisions on the screen.
	YDivs = 10
	// XDivs is the number of horizontal divisions on the screen.
	XDivs = 16
)

// Geometry is the size of the scope area in pixels.
type Geometry struct {
	Width  int
	Height int
}

// Params are the per-trace scaling inputs.
type Params struct {
	// VScale is volts per vertical division.
	VScale float64
	// Offset lifts the trace by this many pixels.
	Offset float64
}

// Point is one vertex of a trace polyline in scope-area pixels.
type Point struct {
	X, Y float64
}

// PixelsPerCount returns how many pixels one ADC count spans at vscale.
func PixelsPerCount(height int, vscale float64) float64 {
	return (SampleVRange / float64(int(1)<<SampleBits)) * (float64(height) / YDivs) / vscale
}

// Trace maps samples to a polyline. Sample i lands at x = i; samples past
// the display width are ignored and a short block yields a short trace.
// Trace is pure: equal inputs give equal output.
func Trace(samples []uint16, p Params, g Geometry) []Point {
	n := len(samples)
	if g.Width < n {
		n = g.Width
	}
	if n <= 0 || p.VScale <= 0 || math.IsNaN(p.VScale) {
		return nil
	}
	base := float64(g.Height) - p.Offset
	scale := PixelsPerCount(g.Height, p.VScale)

	pts := make([]Point, n)
	for i := 0; i < n; i++ {
		pts[i] = Point{X: float64(i), Y: base - float64(samples[i])*scale}
	}
	return pts
}
