package scope

import (
	"math"
	"testing"

	"oscope-go/pkg/render"
)

func TestNewSessionClamps(t *testing.T) {
	st := DefaultSettings()
	st.HScaleIndex = 99
	st.Channels[0].VScaleIndex = -4
	st.Channels[1].OffsetPercent = 150

	s := NewSession(st, render.Geometry{Width: 640, Height: 400})
	if s.HScaleIndex != len(HScales)-1 || s.HScale() != 100000 {
		t.Errorf("hscale = %d (%dus)", s.HScaleIndex, s.HScale())
	}
	if s.Channels[0].VScaleIndex != 0 || s.Channels[0].VScale() != 5 {
		t.Errorf("ch0 vscale = %d", s.Channels[0].VScaleIndex)
	}
	if s.Channels[1].OffsetPercent != 100 || s.Channels[1].Offset != 400 {
		t.Errorf("ch1 offset = %v%% / %vpx", s.Channels[1].OffsetPercent, s.Channels[1].Offset)
	}
	if s.Mode != Running {
		t.Errorf("initial mode = %v", s.Mode)
	}
}

func TestSessionOffset(t *testing.T) {
	s := NewSession(DefaultSettings(), render.Geometry{Width: 640, Height: 400})
	tests := []struct {
		pct, wantPx float64
	}{
		{0, 0},
		{25, 100},
		{-10, 0},
		{100, 400},
	}
	for _, tt := range tests {
		s.SetOffsetPercent(1, tt.pct)
		if s.Channels[1].Offset != tt.wantPx {
			t.Errorf("SetOffsetPercent(%v) = %vpx, want %v", tt.pct, s.Channels[1].Offset, tt.wantPx)
		}
	}
	s.SetOffsetPercent(7, 50)
}

func TestSessionMaskAndParams(t *testing.T) {
	s := NewSession(DefaultSettings(), render.Geometry{Width: 640, Height: 400})
	if s.EnableMask() != [NumChannels]bool{true, true} || !s.AnyEnabled() {
		t.Error("defaults should enable both channels")
	}
	s.Channels[0].Enabled = false
	s.Channels[1].Enabled = false
	if s.AnyEnabled() {
		t.Error("AnyEnabled with all channels off")
	}

	s.SetOffsetPercent(0, 10)
	p := s.Params(0)
	if p.VScale != 0.5 || p.Offset != 40 {
		t.Errorf("Params = %+v", p)
	}

	f := s.Footer()
	if len(f.Channels) != NumChannels || f.HScaleUS != 1000 {
		t.Errorf("Footer = %+v", f)
	}
}

func TestScaleClamps(t *testing.T) {
	if ClampHScaleIndex(-1) != 0 || ClampHScaleIndex(3) != 3 || ClampHScaleIndex(10) != 9 {
		t.Error("ClampHScaleIndex")
	}
	if ClampVScaleIndex(9) != 8 {
		t.Error("ClampVScaleIndex")
	}
	if ClampOffsetPercent(math.NaN()) != 0 {
		t.Error("NaN offset should clamp to 0")
	}
}

// The timebase is applied by the device when sampling; one sample still
// maps to one pixel, so traces do not move with hscale.
func TestTraceIgnoresTimebase(t *testing.T) {
	s := NewSession(DefaultSettings(), render.Geometry{Width: 640, Height: 400})
	samples := []uint16{0, 1024, 2048, 4095}
	s.HScaleIndex = 0
	fast := render.Trace(samples, s.Params(0), s.Geometry)
	s.HScaleIndex = len(HScales) - 1
	slow := render.Trace(samples, s.Params(0), s.Geometry)
	if len(fast) != len(slow) {
		t.Fatalf("lengths %d vs %d", len(fast), len(slow))
	}
	for i := range fast {
		if fast[i] != slow[i] || fast[i].X != float64(i) {
			t.Errorf("point %d: %v at 100us, %v at 100ms", i, fast[i], slow[i])
		}
	}
}
