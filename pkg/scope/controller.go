// Scope controller
//
// The Controller owns a Session and its SampleBuffer. It consumes inbound
// stream messages (as a transport handler), applies UI actions and draws
// completed sweeps onto a Surface. Parameter changes go out through a
// Device; while the stream is closed they are dropped, not queued.
//
// None of the methods are safe for concurrent use. Every call must come
// from the reactor goroutine.
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package scope

import (
	"image/color"

	"oscope-go/pkg/log"
	"oscope-go/pkg/metrics"
	"oscope-go/pkg/pool"
	"oscope-go/pkg/protocol"
	"oscope-go/pkg/render"
)

// Device receives parameter pushes. Calls are fire-and-forget.
type Device interface {
	SetHscale(us int)
	SetChannels(mask [NumChannels]bool)
}

// Surface is where sweeps are drawn.
type Surface interface {
	Geometry() render.Geometry
	Clear()
	Plot(pts []render.Point, c color.Color) error
	SetFooter(f render.Footer)
}

// SweepResult describes one sweep boundary.
type SweepResult struct {
	From    Mode
	To      Mode
	Cleared bool
	Drawn   [NumChannels]bool
}

// Any reports whether at least one trace was drawn.
func (r SweepResult) Any() bool {
	for _, d := range r.Drawn {
		if d {
			return true
		}
	}
	return false
}

// ControllerConfig wires a Controller.
type ControllerConfig struct {
	Settings Settings
	Device   Device
	Surface  Surface
	Logger   *log.Logger
	Metrics  *metrics.ScopeMetrics

	// OnSweep, when set, is called after every sweep boundary.
	OnSweep func(SweepResult)
}

// Controller drives a scope session.
type Controller struct {
	session *Session
	buf     SampleBuffer
	device  Device
	surface Surface
	log     *log.Logger
	metrics *metrics.ScopeMetrics
	onSweep func(SweepResult)

	online bool
	frames uint64
	sweeps uint64
}

// NewController creates a controller and paints the empty screen.
func NewController(cfg ControllerConfig) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = log.GetLogger("scope")
	}
	c := &Controller{
		session: NewSession(cfg.Settings, cfg.Surface.Geometry()),
		device:  cfg.Device,
		surface: cfg.Surface,
		log:     logger,
		metrics: cfg.Metrics,
		onSweep: cfg.OnSweep,
	}
	c.surface.Clear()
	c.surface.SetFooter(c.session.Footer())
	c.metrics.SetMode(int(c.session.Mode))
	return c
}

// Session exposes the live session for read access on the reactor
// goroutine.
func (c *Controller) Session() *Session {
	return c.session
}

// Online reports whether the stream is open.
func (c *Controller) Online() bool {
	return c.online
}

// OnOpen pushes the timebase and enable mask; the device keeps no
// defaults of its own.
func (c *Controller) OnOpen() {
	c.online = true
	c.metrics.SetConnected(true)
	c.log.WithFields(log.Fields{
		"hscale_us": c.session.HScale(),
		"mask":      c.session.EnableMask(),
	}).Info("stream open, pushing parameters")
	c.pushHscale()
	c.pushChannels(c.session.EnableMask())
}

// OnClose marks the stream down. Pending blocks are kept.
func (c *Controller) OnClose(err error) {
	c.online = false
	c.metrics.SetConnected(false)
	c.log.WithError(err).Info("stream closed")
}

// OnMessage handles one inbound stream message.
func (c *Controller) OnMessage(msg []byte) {
	c.frames++
	f := protocol.Decode(msg)
	c.metrics.RecordFrame(f.Kind.String())
	switch f.Kind {
	case protocol.KindSelector:
		c.onSelector(f.Channel)
	case protocol.KindData:
		c.onData(f.Payload)
	}
}

func (c *Controller) onData(payload []byte) {
	ch := int(c.session.Active)
	if !c.buf.Store(ch, payload) {
		c.metrics.RecordDroppedBlock(ch)
		c.log.WithFields(log.Fields{"selector": ch, "bytes": len(payload)}).
			Debug("data block for unknown channel dropped")
		return
	}
	c.metrics.RecordBlock(ch, len(payload)/protocol.SampleSize)
}

func (c *Controller) onSelector(num uint8) {
	from := c.session.Mode
	to, act := Advance(from, c.session.Active, num)
	if act.Boundary {
		c.sweeps++
		c.metrics.RecordSweep(from.String())
		res := c.sweep(from, to, act)
		if to != from {
			c.log.WithFields(log.Fields{"from": from, "to": to}).Debug("capture mode change")
		}
		c.setMode(to)
		if act.DisableChannels {
			c.pushChannels([NumChannels]bool{})
		}
		if c.onSweep != nil {
			c.onSweep(res)
		}
	}
	c.session.Active = num
}

// sweep draws every enabled channel that has a non-empty block and
// consumes it. Disabled channels keep their pending block.
func (c *Controller) sweep(from, to Mode, act Actions) SweepResult {
	res := SweepResult{From: from, To: to, Cleared: act.Clear}
	if act.Clear {
		c.surface.Clear()
	}
	if !act.Render {
		return res
	}
	for ch := 0; ch < NumChannels; ch++ {
		if !c.session.Channels[ch].Enabled || c.buf.Len(ch) == 0 {
			continue
		}
		samples, _ := c.buf.Take(ch)
		pts := render.Trace(samples, c.session.Params(ch), c.session.Geometry)
		pool.PutSamples(samples)
		if err := c.surface.Plot(pts, c.session.Channels[ch].Color); err != nil {
			c.log.WithError(err).WithField("channel", ch).Warn("plot failed")
			continue
		}
		res.Drawn[ch] = true
		c.metrics.RecordTrace(ch)
	}
	return res
}

func (c *Controller) setMode(m Mode) {
	c.session.Mode = m
	c.metrics.SetMode(int(m))
}

func (c *Controller) pushHscale() {
	if !c.online {
		c.metrics.RecordPushDropped("setHscale")
		c.log.Debug("offline, setHscale dropped")
		return
	}
	c.device.SetHscale(c.session.HScale())
}

func (c *Controller) pushChannels(mask [NumChannels]bool) {
	if !c.online {
		c.metrics.RecordPushDropped("setChannels")
		c.log.Debug("offline, setChannels dropped")
		return
	}
	c.device.SetChannels(mask)
}

// SetRun starts or stops continuous capture. Starting pushes the channel
// flags; stopping disables every channel on the device at once.
func (c *Controller) SetRun(on bool) {
	if on {
		c.setMode(Running)
		c.pushChannels(c.session.EnableMask())
	} else {
		c.setMode(Stopped)
		c.pushChannels([NumChannels]bool{})
	}
	c.log.WithField("mode", c.session.Mode).Info("run state changed")
}

// Single arms a one-sweep capture. It only acts while Stopped with at
// least one channel enabled and reports whether it did.
func (c *Controller) Single() bool {
	if c.session.Mode != Stopped || !c.session.AnyEnabled() {
		return false
	}
	c.buf.Clear()
	c.setMode(ArmedSingle)
	c.pushChannels(c.session.EnableMask())
	c.log.Info("single capture armed")
	return true
}

// SetHScaleIndex selects a timebase step and pushes it.
func (c *Controller) SetHScaleIndex(i int) {
	c.session.HScaleIndex = ClampHScaleIndex(i)
	c.pushHscale()
	c.surface.SetFooter(c.session.Footer())
}

// SetChannelEnabled switches a channel and clears the screen. The new
// mask is pushed unless capture is stopped.
func (c *Controller) SetChannelEnabled(ch int, on bool) {
	if ch < 0 || ch >= NumChannels {
		return
	}
	c.session.Channels[ch].Enabled = on
	// Stopped keeps every device channel off. The changed flags go out
	// with the next SetRun(true) or Single.
	if c.session.Mode != Stopped {
		c.pushChannels(c.session.EnableMask())
	}
	c.surface.Clear()
}

// SetVScaleIndex selects a channel's volts-per-division step.
func (c *Controller) SetVScaleIndex(ch, i int) {
	if ch < 0 || ch >= NumChannels {
		return
	}
	c.session.Channels[ch].VScaleIndex = ClampVScaleIndex(i)
	c.surface.SetFooter(c.session.Footer())
}

// SetOffset moves a channel's zero line to pct percent of the screen.
func (c *Controller) SetOffset(ch int, pct float64) {
	c.session.SetOffsetPercent(ch, pct)
}

// Pending reports whether ch has a block waiting for the next sweep.
func (c *Controller) Pending(ch int) bool {
	return c.buf.Pending(ch)
}

// Status returns a copy of the session for display.
func (c *Controller) Status() Status {
	s := c.session
	st := Status{
		Mode:        s.Mode.String(),
		Online:      c.online,
		Active:      int(s.Active),
		HScaleIndex: s.HScaleIndex,
		HScaleUS:    s.HScale(),
		HScale:      render.FormatHScale(s.HScale()),
		Frames:      c.frames,
		Sweeps:      c.sweeps,
	}
	for i, ch := range s.Channels {
		st.Channels = append(st.Channels, ChannelStatus{
			Index:         i,
			Enabled:       ch.Enabled,
			VScaleIndex:   ch.VScaleIndex,
			VScale:        ch.VScale(),
			Label:         render.ChannelLabel(i, ch.VScale()),
			OffsetPercent: ch.OffsetPercent,
			Pending:       c.buf.Pending(i),
		})
	}
	return st
}
