// Scope configuration parsing
//
// Parses scope.cfg into a ScopeConfig, matching the option names and
// defaults of the browser panel:
//
//	[scope]      endpoint, rpc, canvas_width, canvas_height, reconnect_delay, hscale
//	[channel0]   enable, vscale, offset, color
//	[channel1]   enable, vscale, offset, color
//	[panel]      addr
//	[metrics]    addr
//	[log]        level, format
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package config

import (
	"fmt"
	"image/color"
	"strings"
	"time"

	"github.com/wcharczuk/go-chart/v2/drawing"

	"oscope-go/pkg/scope"
)

// ChannelConfig holds one [channelN] section.
type ChannelConfig struct {
	Enable      bool
	VScaleIndex int
	Offset      float64 // percent of scope height
	Color       color.RGBA
}

// ScopeConfig is the parsed scope.cfg.
type ScopeConfig struct {
	Endpoint       string
	RPCURL         string
	CanvasWidth    int
	CanvasHeight   int
	ReconnectDelay time.Duration
	HScaleIndex    int
	Channels       [scope.NumChannels]ChannelConfig

	PanelAddr   string
	MetricsAddr string

	LogLevel  string
	LogFormat string
}

// Default canvas: 20px side margins, 20px top and a 60px footer around a
// 640x400 scope area (40px per horizontal and vertical division).
const (
	DefaultCanvasWidth  = 680
	DefaultCanvasHeight = 480
)

var defaultChannelColors = [scope.NumChannels]string{"#ff0", "#0ff"}

// DefaultScopeConfig returns the configuration used when no file exists.
func DefaultScopeConfig() ScopeConfig {
	sc := ScopeConfig{
		Endpoint:       "ws://esquilo.local/websocket",
		RPCURL:         "http://esquilo.local/erpc",
		CanvasWidth:    DefaultCanvasWidth,
		CanvasHeight:   DefaultCanvasHeight,
		ReconnectDelay: time.Second,
		HScaleIndex:    scope.DefaultHScaleIndex,
		PanelAddr:      ":8080",
		LogLevel:       "info",
		LogFormat:      "text",
	}
	for i := range sc.Channels {
		c, _ := ParseColor(defaultChannelColors[i])
		sc.Channels[i] = ChannelConfig{
			Enable:      true,
			VScaleIndex: scope.DefaultVScaleIndex,
			Color:       c,
		}
	}
	return sc
}

// LoadScopeConfig loads and parses path. An empty or missing path yields
// the defaults.
func LoadScopeConfig(path string) (ScopeConfig, error) {
	c, err := LoadOrDefault(path)
	if err != nil {
		return ScopeConfig{}, err
	}
	return ParseScopeConfig(c)
}

// ParseScopeConfig extracts a ScopeConfig from a loaded Config.
func ParseScopeConfig(c *Config) (ScopeConfig, error) {
	sc := DefaultScopeConfig()
	var err error

	s := c.GetSectionOptional("scope")
	if sc.Endpoint, err = s.Get("endpoint", sc.Endpoint); err != nil {
		return sc, err
	}
	if sc.RPCURL, err = s.Get("rpc", sc.RPCURL); err != nil {
		return sc, err
	}
	minCanvas := 100
	if sc.CanvasWidth, err = s.GetIntWithBounds("canvas_width", &minCanvas, nil, sc.CanvasWidth); err != nil {
		return sc, err
	}
	if sc.CanvasHeight, err = s.GetIntWithBounds("canvas_height", &minCanvas, nil, sc.CanvasHeight); err != nil {
		return sc, err
	}
	if sc.ReconnectDelay, err = s.GetDuration("reconnect_delay", sc.ReconnectDelay); err != nil {
		return sc, err
	}
	if sc.ReconnectDelay <= 0 {
		return sc, ErrOutOfRange("scope", "reconnect_delay", sc.ReconnectDelay.Seconds(), "must be above 0")
	}
	minIdx, maxH := 0, len(scope.HScales)-1
	if sc.HScaleIndex, err = s.GetIntWithBounds("hscale", &minIdx, &maxH, sc.HScaleIndex); err != nil {
		return sc, err
	}

	maxV := len(scope.VScales) - 1
	minOff, maxOff := 0.0, 100.0
	for i := range sc.Channels {
		ch := &sc.Channels[i]
		cs := c.GetSectionOptional(fmt.Sprintf("channel%d", i))
		if ch.Enable, err = cs.GetBool("enable", ch.Enable); err != nil {
			return sc, err
		}
		if ch.VScaleIndex, err = cs.GetIntWithBounds("vscale", &minIdx, &maxV, ch.VScaleIndex); err != nil {
			return sc, err
		}
		if ch.Offset, err = cs.GetFloatWithBounds("offset", FloatBounds{MinVal: &minOff, MaxVal: &maxOff}, ch.Offset); err != nil {
			return sc, err
		}
		raw, _ := cs.Get("color", defaultChannelColors[i])
		if ch.Color, err = ParseColor(raw); err != nil {
			return sc, ErrInvalidValue(cs.GetName(), "color", raw, "#rgb or #rrggbb")
		}
	}

	if sc.PanelAddr, err = c.GetSectionOptional("panel").Get("addr", sc.PanelAddr); err != nil {
		return sc, err
	}
	if sc.MetricsAddr, err = c.GetSectionOptional("metrics").Get("addr", sc.MetricsAddr); err != nil {
		return sc, err
	}

	ls := c.GetSectionOptional("log")
	if sc.LogLevel, err = ls.GetChoice("level", []string{"debug", "info", "warn", "error"}, sc.LogLevel); err != nil {
		return sc, err
	}
	if sc.LogFormat, err = ls.GetChoice("format", []string{"text", "json"}, sc.LogFormat); err != nil {
		return sc, err
	}
	return sc, nil
}

// Settings converts the channel and timebase options into the initial
// state of a scope session.
func (sc ScopeConfig) Settings() scope.Settings {
	st := scope.Settings{HScaleIndex: sc.HScaleIndex}
	for i, ch := range sc.Channels {
		st.Channels[i] = scope.ChannelSettings{
			Enabled:       ch.Enable,
			VScaleIndex:   ch.VScaleIndex,
			OffsetPercent: ch.Offset,
			Color:         ch.Color,
		}
	}
	return st
}

// ParseColor accepts CSS-style "#rgb" or "#rrggbb" (the '#' is optional).
func ParseColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 3 && len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("color %q: want 3 or 6 hex digits", s)
	}
	for _, r := range hex {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return color.RGBA{}, fmt.Errorf("color %q: invalid hex digit %q", s, r)
		}
	}
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	c := drawing.ColorFromHex(strings.ToLower(hex))
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff}, nil
}
