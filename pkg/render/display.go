// Raster scope display
//
// The canvas is laid out as a bordered scope area with a footer of label
// boxes underneath:
//
//	+---------------------------------------------+
//	|  XOffset                                     |
//	|  +---------------------------------------+   |
//	|  | scope area: 16 x 10 dotted divisions  |   |
//	|  +---------------------------------------+   |
//	|  [CH1 500mV] [CH2 500mV]      [1mS]           |
//	+---------------------------------------------+
//
// Traces are stroked onto a layer the size of the scope area, so anything
// outside it is clipped; the layer is composed onto the canvas on demand.
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package render

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"sync"

	"github.com/wcharczuk/go-chart/v2/drawing"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	scopeerrors "oscope-go/pkg/errors"
)

// Canvas layout in pixels.
const (
	XOffset      = 20
	YOffset      = 20
	FooterHeight = 60

	dotsPerDiv   = 5
	dotLength    = 2
	labelHeight  = 30
	labelRadius  = 10
	labelPadding = 10
)

// Display colours.
var (
	BackgroundColor = color.RGBA{A: 0xff}
	BorderColor     = color.RGBA{R: 0xaa, G: 0xaa, B: 0xaa, A: 0xff}
	GridColor       = color.RGBA{R: 0x55, G: 0x55, B: 0x55, A: 0xff}
	HScaleColor     = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

// ChannelFooter describes one channel's footer label.
type ChannelFooter struct {
	VScale float64
	Color  color.RGBA
}

// Footer is the content of the label row below the scope area.
type Footer struct {
	Channels []ChannelFooter
	HScaleUS int
}

// Display is a raster oscilloscope screen. It is safe for concurrent use:
// the capture loop draws while HTTP handlers and viewers take snapshots.
type Display struct {
	mu     sync.Mutex
	width  int
	height int
	geom   Geometry
	scope  *image.RGBA
	footer Footer
}

// ScopeGeometry returns the scope area that fits a width x height canvas.
func ScopeGeometry(width, height int) Geometry {
	return Geometry{
		Width:  width - 2*XOffset,
		Height: height - YOffset - FooterHeight,
	}
}

// NewDisplay creates a cleared display for a width x height canvas.
func NewDisplay(width, height int) (*Display, error) {
	g := ScopeGeometry(width, height)
	if g.Width <= 0 || g.Height <= 0 {
		return nil, scopeerrors.Newf(scopeerrors.ErrRender,
			"canvas %dx%d leaves no scope area", width, height)
	}
	d := &Display{
		width:  width,
		height: height,
		geom:   g,
		scope:  image.NewRGBA(image.Rect(0, 0, g.Width, g.Height)),
	}
	d.clearLocked()
	return d, nil
}

// Geometry returns the size of the scope area.
func (d *Display) Geometry() Geometry {
	return d.geom
}

// Bounds returns the full canvas size.
func (d *Display) Bounds() image.Rectangle {
	return image.Rect(0, 0, d.width, d.height)
}

// Clear erases the scope area and redraws the dotted grid.
func (d *Display) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clearLocked()
}

func (d *Display) clearLocked() {
	draw.Draw(d.scope, d.scope.Bounds(), image.NewUniform(BackgroundColor), image.Point{}, draw.Src)

	gc, err := drawing.NewRasterGraphicContext(d.scope)
	if err != nil {
		return
	}
	w, h := float64(d.geom.Width), float64(d.geom.Height)
	gc.SetStrokeColor(GridColor)
	gc.SetLineWidth(1)

	xdiv := w / XDivs
	gc.SetLineDash([]float64{dotLength, dotGap(xdiv)}, 0)
	for x := xdiv; x < w; x += xdiv {
		gc.BeginPath()
		gc.MoveTo(x+0.5, -1)
		gc.LineTo(x+0.5, h+1)
		gc.Stroke()
	}

	ydiv := h / YDivs
	gc.SetLineDash([]float64{dotLength, dotGap(ydiv)}, 0)
	for y := ydiv; y < h; y += ydiv {
		gc.BeginPath()
		gc.MoveTo(-1, y+0.5)
		gc.LineTo(w+1, y+0.5)
		gc.Stroke()
	}
}

func dotGap(div float64) float64 {
	if gap := div/dotsPerDiv - dotLength; gap > 1 {
		return gap
	}
	return 1
}

// Plot strokes a trace in the given colour. Points outside the scope
// area are clipped.
func (d *Display) Plot(pts []Point, c color.Color) error {
	if len(pts) == 0 {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(pts) == 1 {
		d.scope.Set(int(pts[0].X), int(pts[0].Y), c)
		return nil
	}

	gc, err := drawing.NewRasterGraphicContext(d.scope)
	if err != nil {
		return scopeerrors.Wrap(err, scopeerrors.ErrRender, "trace context")
	}
	gc.SetStrokeColor(c)
	gc.SetLineWidth(1)
	gc.BeginPath()
	gc.MoveTo(pts[0].X+0.5, pts[0].Y+0.5)
	for _, p := range pts[1:] {
		gc.LineTo(p.X+0.5, p.Y+0.5)
	}
	gc.Stroke()
	return nil
}

// SetFooter replaces the footer labels.
func (d *Display) SetFooter(f Footer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	f.Channels = append([]ChannelFooter(nil), f.Channels...)
	d.footer = f
}

// Image composes the full canvas: border, scope area and footer.
func (d *Display) Image() *image.RGBA {
	d.mu.Lock()
	defer d.mu.Unlock()

	canvas := image.NewRGBA(d.Bounds())
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(BackgroundColor), image.Point{}, draw.Src)

	origin := image.Pt(XOffset, YOffset)
	draw.Draw(canvas, d.scope.Bounds().Add(origin), d.scope, image.Point{}, draw.Src)

	gc, err := drawing.NewRasterGraphicContext(canvas)
	if err != nil {
		return canvas
	}
	gc.SetStrokeColor(BorderColor)
	gc.SetLineWidth(1)
	strokeRect(gc, XOffset-0.5, YOffset-0.5, float64(d.geom.Width)+1, float64(d.geom.Height)+1)

	boxW := d.geom.Width / 4
	boxY := d.height - FooterHeight + 10
	for i, ch := range d.footer.Channels {
		x := XOffset + i*(boxW+XOffset)
		d.textBox(canvas, gc, x, boxY, boxW, ChannelLabel(i, ch.VScale), ch.Color)
	}
	if d.footer.HScaleUS > 0 {
		d.textBox(canvas, gc, XOffset+3*d.geom.Width/4, boxY, boxW, FormatHScale(d.footer.HScaleUS), HScaleColor)
	}
	return canvas
}

func (d *Display) textBox(dst *image.RGBA, gc *drawing.RasterGraphicContext, x, y, w int, text string, c color.RGBA) {
	gc.SetStrokeColor(BorderColor)
	gc.SetFillColor(BackgroundColor)
	roundedRect(gc, float64(x)+0.5, float64(y)+0.5, float64(w), labelHeight, labelRadius)
	gc.FillStroke()

	dr := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x+labelPadding, y+labelHeight/2+basicfont.Face7x13.Ascent/2),
	}
	dr.DrawString(text)
}

func strokeRect(gc *drawing.RasterGraphicContext, x, y, w, h float64) {
	gc.BeginPath()
	gc.MoveTo(x, y)
	gc.LineTo(x+w, y)
	gc.LineTo(x+w, y+h)
	gc.LineTo(x, y+h)
	gc.Close()
	gc.Stroke()
}

func roundedRect(gc *drawing.RasterGraphicContext, x, y, w, h, r float64) {
	gc.BeginPath()
	gc.MoveTo(x+r, y)
	gc.LineTo(x+w-r, y)
	gc.QuadCurveTo(x+w, y, x+w, y+r)
	gc.LineTo(x+w, y+h-r)
	gc.QuadCurveTo(x+w, y+h, x+w-r, y+h)
	gc.LineTo(x+r, y+h)
	gc.QuadCurveTo(x, y+h, x, y+h-r)
	gc.LineTo(x, y+r)
	gc.QuadCurveTo(x, y, x+r, y)
	gc.Close()
}

// WritePNG encodes the composed canvas as PNG.
func (d *Display) WritePNG(w io.Writer) error {
	if err := png.Encode(w, d.Image()); err != nil {
		return scopeerrors.Wrap(err, scopeerrors.ErrRender, "encode png")
	}
	return nil
}
