// Cross-goroutine access to a Controller
//
// HTTP handlers, the terminal panel and the viewer run on their own
// goroutines. Remote marshals each of their actions onto the reactor and
// waits for it, so the session is still only touched by one goroutine.
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package scope

import (
	"time"

	"oscope-go/pkg/reactor"
)

// DefaultCallTimeout bounds one Remote call.
const DefaultCallTimeout = 2 * time.Second

// Remote is a goroutine-safe handle on a Controller.
type Remote struct {
	r       *reactor.Reactor
	c       *Controller
	timeout time.Duration
}

// NewRemote returns a handle that runs actions for c on r.
func NewRemote(r *reactor.Reactor, c *Controller) *Remote {
	return &Remote{r: r, c: c, timeout: DefaultCallTimeout}
}

func (h *Remote) do(fn func()) error {
	_, err := h.r.Call(func(float64) interface{} {
		fn()
		return nil
	}, h.timeout)
	return err
}

// Status returns a snapshot of the session.
func (h *Remote) Status() (Status, error) {
	var st Status
	err := h.do(func() { st = h.c.Status() })
	return st, err
}

// SetRun starts or stops continuous capture.
func (h *Remote) SetRun(on bool) error {
	return h.do(func() { h.c.SetRun(on) })
}

// ToggleRun flips between Running and Stopped. From a single-shot mode
// it stops.
func (h *Remote) ToggleRun() error {
	return h.do(func() { h.c.SetRun(h.c.session.Mode == Stopped) })
}

// Single arms a single-shot capture and reports whether it was accepted.
func (h *Remote) Single() (bool, error) {
	var ok bool
	err := h.do(func() { ok = h.c.Single() })
	return ok, err
}

// SetHScaleIndex selects a timebase step.
func (h *Remote) SetHScaleIndex(i int) error {
	return h.do(func() { h.c.SetHScaleIndex(i) })
}

// StepHScale moves the timebase by delta steps.
func (h *Remote) StepHScale(delta int) error {
	return h.do(func() { h.c.SetHScaleIndex(h.c.session.HScaleIndex + delta) })
}

// SetChannelEnabled switches one channel.
func (h *Remote) SetChannelEnabled(ch int, on bool) error {
	return h.do(func() { h.c.SetChannelEnabled(ch, on) })
}

// ToggleChannel flips one channel's enable flag.
func (h *Remote) ToggleChannel(ch int) error {
	return h.do(func() {
		if ch >= 0 && ch < NumChannels {
			h.c.SetChannelEnabled(ch, !h.c.session.Channels[ch].Enabled)
		}
	})
}

// SetVScaleIndex selects a channel's volts-per-division step.
func (h *Remote) SetVScaleIndex(ch, i int) error {
	return h.do(func() { h.c.SetVScaleIndex(ch, i) })
}

// StepVScale moves a channel's vertical scale by delta steps.
func (h *Remote) StepVScale(ch, delta int) error {
	return h.do(func() {
		if ch >= 0 && ch < NumChannels {
			h.c.SetVScaleIndex(ch, h.c.session.Channels[ch].VScaleIndex+delta)
		}
	})
}

// SetOffset moves a channel's zero line.
func (h *Remote) SetOffset(ch int, pct float64) error {
	return h.do(func() { h.c.SetOffset(ch, pct) })
}
