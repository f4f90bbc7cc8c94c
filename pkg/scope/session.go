package scope

import "oscope-go/pkg/render"

// Session is the whole mutable state of one scope client. It is owned by
// a single Controller and only touched from the reactor goroutine.
type Session struct {
	Channels    [NumChannels]Channel
	Active      uint8
	Mode        Mode
	HScaleIndex int
	Geometry    render.Geometry
}

// NewSession builds a running session from settings. Out-of-range
// indices and offsets are clamped.
func NewSession(st Settings, g render.Geometry) *Session {
	s := &Session{
		Mode:        Running,
		HScaleIndex: ClampHScaleIndex(st.HScaleIndex),
		Geometry:    g,
	}
	for i := range s.Channels {
		cs := st.Channels[i]
		s.Channels[i] = Channel{
			Index:       i,
			Enabled:     cs.Enabled,
			VScaleIndex: ClampVScaleIndex(cs.VScaleIndex),
			Color:       cs.Color,
		}
		s.SetOffsetPercent(i, cs.OffsetPercent)
	}
	return s
}

// HScale returns the timebase in microseconds per division.
func (s *Session) HScale() int {
	return HScales[ClampHScaleIndex(s.HScaleIndex)]
}

// EnableMask returns the per-channel enable flags.
func (s *Session) EnableMask() [NumChannels]bool {
	var mask [NumChannels]bool
	for i, ch := range s.Channels {
		mask[i] = ch.Enabled
	}
	return mask
}

// AnyEnabled reports whether at least one channel is on.
func (s *Session) AnyEnabled() bool {
	for _, ch := range s.Channels {
		if ch.Enabled {
			return true
		}
	}
	return false
}

// SetOffsetPercent moves a channel's zero line to pct percent of the
// scope height.
func (s *Session) SetOffsetPercent(ch int, pct float64) {
	if ch < 0 || ch >= NumChannels {
		return
	}
	pct = ClampOffsetPercent(pct)
	s.Channels[ch].OffsetPercent = pct
	s.Channels[ch].Offset = float64(s.Geometry.Height) * pct / 100
}

// Params returns the render inputs of ch.
func (s *Session) Params(ch int) render.Params {
	c := s.Channels[ch]
	return render.Params{
		VScale: c.VScale(),
		Offset: c.Offset,
	}
}

// Footer returns the label row for the current scales.
func (s *Session) Footer() render.Footer {
	f := render.Footer{HScaleUS: s.HScale()}
	for _, ch := range s.Channels {
		f.Channels = append(f.Channels, render.ChannelFooter{VScale: ch.VScale(), Color: ch.Color})
	}
	return f
}
