// Package scope holds the oscilloscope session: channel settings, the
// capture state machine, the per-channel sample buffer and the Controller
// that ties inbound frames and UI actions together.
package scope

import "image/color"

// NumChannels is the number of analog inputs on the device.
const NumChannels = 2

// ChannelSettings are the user-facing controls of one channel.
type ChannelSettings struct {
	Enabled       bool
	VScaleIndex   int
	OffsetPercent float64
	Color         color.RGBA
}

// Settings are the initial controls of a session.
type Settings struct {
	HScaleIndex int
	Channels    [NumChannels]ChannelSettings
}

// DefaultSettings matches the panel defaults: both channels on at 500mV
// per division, 1ms per division.
func DefaultSettings() Settings {
	return Settings{
		HScaleIndex: DefaultHScaleIndex,
		Channels: [NumChannels]ChannelSettings{
			{Enabled: true, VScaleIndex: DefaultVScaleIndex, Color: color.RGBA{R: 0xff, G: 0xff, A: 0xff}},
			{Enabled: true, VScaleIndex: DefaultVScaleIndex, Color: color.RGBA{G: 0xff, B: 0xff, A: 0xff}},
		},
	}
}

// Channel is the live state of one input.
type Channel struct {
	Index       int
	Enabled     bool
	VScaleIndex int
	// OffsetPercent is the control value; Offset is the same position in
	// scope-area pixels.
	OffsetPercent float64
	Offset        float64
	Color         color.RGBA
}

// VScale returns the channel's volts per division.
func (c Channel) VScale() float64 {
	return VScales[ClampVScaleIndex(c.VScaleIndex)]
}
