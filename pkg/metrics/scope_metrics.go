// Scope client metrics definitions
//
// Defines the metrics of the waveform client:
// - Stream frames and dropped blocks
// - Sweeps and rendered traces
// - Connection state and reconnects
// - Outbound parameter RPCs
//
// Every recording method is safe on a nil *ScopeMetrics, so components can
// run without a metrics set.
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package metrics

import (
	goruntime "runtime"
	"strconv"
	"time"
)

// ScopeMetrics holds all scope client metrics
type ScopeMetrics struct {
	// Stream metrics
	FramesTotal   *Counter
	BlocksDropped *Counter
	BlockSamples  *Histogram

	// Capture metrics
	SweepsTotal *Counter
	TracesTotal *Counter
	Mode        *Gauge

	// Connection metrics
	Connected      *Gauge
	ReconnectTotal *Counter
	DialErrors     *Counter
	PushesDropped  *Counter

	// RPC metrics
	RPCTotal   *Counter
	RPCLatency *Histogram

	// System metrics
	Uptime       *Gauge
	GoGoroutines *Gauge

	startTime time.Time
	registry  *Registry
}

// NewScopeMetrics creates and registers all scope metrics
func NewScopeMetrics() *ScopeMetrics {
	sm := &ScopeMetrics{
		startTime: time.Now(),
		registry:  NewRegistry(),
	}

	sm.FramesTotal = NewCounter("oscope_frames_total",
		"Inbound stream messages by kind")
	sm.BlocksDropped = NewCounter("oscope_blocks_dropped_total",
		"Data blocks discarded because no valid channel was selected")
	sm.BlockSamples = NewHistogram("oscope_block_samples",
		"Samples per received data block", ExponentialBuckets(16, 2, 8))

	sm.SweepsTotal = NewCounter("oscope_sweeps_total",
		"Sweep boundaries crossed, by mode before the boundary")
	sm.TracesTotal = NewCounter("oscope_traces_total",
		"Traces rendered per channel")
	sm.Mode = NewGauge("oscope_mode",
		"Capture mode: 0=running, 1=stopped, 2=armed_single, 3=captured_single")

	sm.Connected = NewGauge("oscope_connected",
		"Whether the stream socket is open")
	sm.ReconnectTotal = NewCounter("oscope_reconnects_total",
		"Reconnect attempts scheduled after a close or dial failure")
	sm.DialErrors = NewCounter("oscope_dial_errors_total",
		"Failed stream connection attempts")
	sm.PushesDropped = NewCounter("oscope_pushes_dropped_total",
		"Parameter pushes dropped while offline")

	sm.RPCTotal = NewCounter("oscope_rpc_total",
		"Parameter RPCs by method and result")
	sm.RPCLatency = NewHistogram("oscope_rpc_seconds",
		"Parameter RPC round trip time", DefaultBuckets())

	sm.Uptime = NewGauge("oscope_uptime_seconds",
		"Seconds since the client started")
	sm.GoGoroutines = NewGauge("oscope_go_goroutines",
		"Number of goroutines")

	for _, m := range []Metric{
		sm.FramesTotal, sm.BlocksDropped, sm.BlockSamples,
		sm.SweepsTotal, sm.TracesTotal, sm.Mode,
		sm.Connected, sm.ReconnectTotal, sm.DialErrors, sm.PushesDropped,
		sm.RPCTotal, sm.RPCLatency,
		sm.Uptime, sm.GoGoroutines,
	} {
		sm.registry.MustRegister(m)
	}
	return sm
}

func channelLabels(ch int) Labels {
	return Labels{"channel": strconv.Itoa(ch)}
}

// RecordFrame counts one inbound message of the given kind.
func (sm *ScopeMetrics) RecordFrame(kind string) {
	if sm == nil {
		return
	}
	sm.FramesTotal.Inc(Labels{"kind": kind})
}

// RecordBlock records the size of a data block stored for ch.
func (sm *ScopeMetrics) RecordBlock(ch, samples int) {
	if sm == nil {
		return
	}
	sm.BlockSamples.Observe(channelLabels(ch), float64(samples))
}

// RecordDroppedBlock counts a block that had no valid channel.
func (sm *ScopeMetrics) RecordDroppedBlock(selector int) {
	if sm == nil {
		return
	}
	sm.BlocksDropped.Inc(Labels{"selector": strconv.Itoa(selector)})
}

// RecordSweep counts a sweep boundary crossed in mode.
func (sm *ScopeMetrics) RecordSweep(mode string) {
	if sm == nil {
		return
	}
	sm.SweepsTotal.Inc(Labels{"mode": mode})
}

// RecordTrace counts one trace drawn for ch.
func (sm *ScopeMetrics) RecordTrace(ch int) {
	if sm == nil {
		return
	}
	sm.TracesTotal.Inc(channelLabels(ch))
}

// SetMode updates the capture mode gauge.
func (sm *ScopeMetrics) SetMode(mode int) {
	if sm == nil {
		return
	}
	sm.Mode.Set(nil, float64(mode))
}

// SetConnected updates the connection gauge.
func (sm *ScopeMetrics) SetConnected(connected bool) {
	if sm == nil {
		return
	}
	v := 0.0
	if connected {
		v = 1
	}
	sm.Connected.Set(nil, v)
}

// RecordReconnect counts a scheduled reconnect.
func (sm *ScopeMetrics) RecordReconnect() {
	if sm == nil {
		return
	}
	sm.ReconnectTotal.Inc(nil)
}

// RecordDialError counts a failed connection attempt.
func (sm *ScopeMetrics) RecordDialError() {
	if sm == nil {
		return
	}
	sm.DialErrors.Inc(nil)
}

// RecordPushDropped counts a parameter push skipped while offline.
func (sm *ScopeMetrics) RecordPushDropped(method string) {
	if sm == nil {
		return
	}
	sm.PushesDropped.Inc(Labels{"method": method})
}

// RecordRPC records a finished parameter RPC.
func (sm *ScopeMetrics) RecordRPC(method string, err error, latency time.Duration) {
	if sm == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	sm.RPCTotal.Inc(Labels{"method": method, "result": result})
	sm.RPCLatency.Observe(Labels{"method": method}, latency.Seconds())
}

// UpdateSystemMetrics updates Go runtime metrics
func (sm *ScopeMetrics) UpdateSystemMetrics() {
	sm.Uptime.Set(nil, time.Since(sm.startTime).Seconds())
	sm.GoGoroutines.Set(nil, float64(goruntime.NumGoroutine()))
}

// Gather returns all metrics in Prometheus text format
func (sm *ScopeMetrics) Gather() string {
	sm.UpdateSystemMetrics()
	return sm.registry.Gather()
}

// Registry returns the internal registry
func (sm *ScopeMetrics) Registry() *Registry {
	return sm.registry
}
