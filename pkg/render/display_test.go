package render

import (
	"bytes"
	"image/color"
	"image/png"
	"testing"

	scopeerrors "oscope-go/pkg/errors"
)

var yellow = color.RGBA{R: 0xff, G: 0xff, A: 0xff}

func TestNewDisplayGeometry(t *testing.T) {
	d, err := NewDisplay(680, 480)
	if err != nil {
		t.Fatal(err)
	}
	if g := d.Geometry(); g.Width != 640 || g.Height != 400 {
		t.Errorf("Geometry = %+v, want 640x400", g)
	}
	if b := d.Bounds(); b.Dx() != 680 || b.Dy() != 480 {
		t.Errorf("Bounds = %v", b)
	}
}

func TestNewDisplayTooSmall(t *testing.T) {
	_, err := NewDisplay(40, 80)
	if err == nil {
		t.Fatal("expected error")
	}
	if scopeerrors.CodeOf(err) != scopeerrors.ErrRender {
		t.Errorf("code = %q", scopeerrors.CodeOf(err))
	}
}

func hasTrace(c color.RGBA) bool {
	return c.R > 0x80 && c.G > 0x80 && c.B < 0x40
}

func traceNear(d *Display, x, y int) bool {
	img := d.Image()
	for dy := -1; dy <= 1; dy++ {
		if hasTrace(img.RGBAAt(XOffset+x, YOffset+y+dy)) {
			return true
		}
	}
	return false
}

func TestPlotAndClear(t *testing.T) {
	d, err := NewDisplay(680, 480)
	if err != nil {
		t.Fatal(err)
	}
	pts := []Point{{0, 150}, {639, 150}}

	if traceNear(d, 100, 150) {
		t.Fatal("fresh display already has a trace")
	}
	if err := d.Plot(pts, yellow); err != nil {
		t.Fatal(err)
	}
	if !traceNear(d, 100, 150) {
		t.Error("plotted trace not visible")
	}

	d.Clear()
	if traceNear(d, 100, 150) {
		t.Error("Clear left the trace behind")
	}
}

func TestPlotClipsToScopeArea(t *testing.T) {
	d, _ := NewDisplay(680, 480)
	// A trace far below the scope area must not bleed into the footer.
	if err := d.Plot([]Point{{0, 430}, {639, 430}}, yellow); err != nil {
		t.Fatal(err)
	}
	img := d.Image()
	for x := XOffset; x < XOffset+640; x += 37 {
		if hasTrace(img.RGBAAt(x, YOffset+430)) {
			t.Fatalf("trace drawn outside scope area at x=%d", x)
		}
	}
}

func TestPlotEmpty(t *testing.T) {
	d, _ := NewDisplay(680, 480)
	if err := d.Plot(nil, yellow); err != nil {
		t.Errorf("Plot(nil) = %v", err)
	}
}

func TestWritePNG(t *testing.T) {
	d, _ := NewDisplay(680, 480)
	d.SetFooter(Footer{
		Channels: []ChannelFooter{{VScale: 0.5, Color: yellow}, {VScale: 2, Color: yellow}},
		HScaleUS: 1000,
	})

	var buf bytes.Buffer
	if err := d.WritePNG(&buf); err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 680 || b.Dy() != 480 {
		t.Errorf("png bounds = %v", b)
	}
}

func TestFooterDrawsLabels(t *testing.T) {
	d, _ := NewDisplay(680, 480)
	bare := d.Image()

	d.SetFooter(Footer{Channels: []ChannelFooter{{VScale: 0.5, Color: yellow}}, HScaleUS: 1000})
	labelled := d.Image()

	changed := 0
	for y := 480 - FooterHeight; y < 480; y++ {
		for x := 0; x < 680; x++ {
			if bare.RGBAAt(x, y) != labelled.RGBAAt(x, y) {
				changed++
			}
		}
	}
	if changed == 0 {
		t.Error("footer labels did not change the canvas")
	}
}
