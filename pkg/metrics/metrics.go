// Prometheus text-format metrics
//
// Counter, Gauge and Histogram families keyed by label set, gathered by a
// Registry into the text exposition format. Series within a family are
// written in sorted label order so scrapes and tests are stable.
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package metrics

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MetricType represents the type of metric
type MetricType int

const (
	TypeCounter MetricType = iota
	TypeGauge
	TypeHistogram
)

func (t MetricType) String() string {
	switch t {
	case TypeCounter:
		return "counter"
	case TypeGauge:
		return "gauge"
	case TypeHistogram:
		return "histogram"
	default:
		return "unknown"
	}
}

// Labels represents metric labels as key-value pairs
type Labels map[string]string

// String returns labels in Prometheus format
func (l Labels) String() string {
	return formatLabels(l, "", "")
}

func sortedKeys(labels Labels) []string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func labelKey(labels Labels) string {
	var sb strings.Builder
	for i, k := range sortedKeys(labels) {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(labels[k])
	}
	return sb.String()
}

// formatLabels renders {k="v",...}; extraKey/extraVal append one more pair
// (the histogram "le").
func formatLabels(labels Labels, extraKey, extraVal string) string {
	if len(labels) == 0 && extraKey == "" {
		return ""
	}
	var sb strings.Builder
	sb.WriteByte('{')
	n := 0
	for _, k := range sortedKeys(labels) {
		if n > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "%s=\"%s\"", k, escapeLabel(labels[k]))
		n++
	}
	if extraKey != "" {
		if n > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "%s=\"%s\"", extraKey, extraVal)
	}
	sb.WriteByte('}')
	return sb.String()
}

func escapeLabel(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func copyLabels(labels Labels) Labels {
	out := make(Labels, len(labels))
	for k, v := range labels {
		out[k] = v
	}
	return out
}

// Metric is the interface for all metric types
type Metric interface {
	Name() string
	Help() string
	Type() MetricType
	Write(sb *strings.Builder)
}

func writeHeader(sb *strings.Builder, m Metric) {
	fmt.Fprintf(sb, "# HELP %s %s\n# TYPE %s %s\n", m.Name(), m.Help(), m.Name(), m.Type())
}

// family holds the per-label-set series of one metric.
type family[V any] struct {
	mu     sync.Mutex
	series map[string]*V
	labels map[string]Labels
}

func (f *family[V]) get(labels Labels, init func() *V) *V {
	key := labelKey(labels)
	if f.series == nil {
		f.series = make(map[string]*V)
		f.labels = make(map[string]Labels)
	}
	v, ok := f.series[key]
	if !ok {
		v = init()
		f.series[key] = v
		f.labels[key] = copyLabels(labels)
	}
	return v
}

func (f *family[V]) each(fn func(Labels, *V)) {
	keys := make([]string, 0, len(f.series))
	for k := range f.series {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fn(f.labels[k], f.series[k])
	}
}

// Counter is a monotonically increasing metric
type Counter struct {
	name, help string
	values     family[uint64]
}

// NewCounter creates a new counter metric
func NewCounter(name, help string) *Counter {
	return &Counter{name: name, help: help}
}

func (c *Counter) Name() string     { return c.name }
func (c *Counter) Help() string     { return c.help }
func (c *Counter) Type() MetricType { return TypeCounter }

// Inc increments the counter by 1
func (c *Counter) Inc(labels Labels) {
	c.Add(labels, 1)
}

// Add increments the counter by the given value
func (c *Counter) Add(labels Labels, delta uint64) {
	c.values.mu.Lock()
	*c.values.get(labels, func() *uint64 { return new(uint64) }) += delta
	c.values.mu.Unlock()
}

// Get returns the current counter value for labels
func (c *Counter) Get(labels Labels) uint64 {
	c.values.mu.Lock()
	defer c.values.mu.Unlock()
	if v, ok := c.values.series[labelKey(labels)]; ok {
		return *v
	}
	return 0
}

func (c *Counter) Write(sb *strings.Builder) {
	writeHeader(sb, c)
	c.values.mu.Lock()
	defer c.values.mu.Unlock()
	c.values.each(func(l Labels, v *uint64) {
		fmt.Fprintf(sb, "%s%s %d\n", c.name, formatLabels(l, "", ""), *v)
	})
}

// Gauge is a metric that can go up and down
type Gauge struct {
	name, help string
	values     family[float64]
}

// NewGauge creates a new gauge metric
func NewGauge(name, help string) *Gauge {
	return &Gauge{name: name, help: help}
}

func (g *Gauge) Name() string     { return g.name }
func (g *Gauge) Help() string     { return g.help }
func (g *Gauge) Type() MetricType { return TypeGauge }

// Set sets the gauge to the given value
func (g *Gauge) Set(labels Labels, value float64) {
	g.values.mu.Lock()
	*g.values.get(labels, func() *float64 { return new(float64) }) = value
	g.values.mu.Unlock()
}

// Add adds the given value to the gauge
func (g *Gauge) Add(labels Labels, delta float64) {
	g.values.mu.Lock()
	*g.values.get(labels, func() *float64 { return new(float64) }) += delta
	g.values.mu.Unlock()
}

// Get returns the current gauge value for labels
func (g *Gauge) Get(labels Labels) float64 {
	g.values.mu.Lock()
	defer g.values.mu.Unlock()
	if v, ok := g.values.series[labelKey(labels)]; ok {
		return *v
	}
	return 0
}

func (g *Gauge) Write(sb *strings.Builder) {
	writeHeader(sb, g)
	g.values.mu.Lock()
	defer g.values.mu.Unlock()
	g.values.each(func(l Labels, v *float64) {
		fmt.Fprintf(sb, "%s%s %s\n", g.name, formatLabels(l, "", ""), formatFloat(*v))
	})
}

// Histogram tracks the distribution of observations
type Histogram struct {
	name, help string
	buckets    []float64
	values     family[histogramValue]
}

type histogramValue struct {
	count   uint64
	sum     float64
	buckets []uint64 // not cumulative
}

// NewHistogram creates a new histogram metric with the given upper bounds.
func NewHistogram(name, help string, buckets []float64) *Histogram {
	sorted := append([]float64(nil), buckets...)
	sort.Float64s(sorted)
	return &Histogram{name: name, help: help, buckets: sorted}
}

// DefaultBuckets returns default histogram buckets for latency metrics
func DefaultBuckets() []float64 {
	return []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
}

// ExponentialBuckets creates count buckets starting at start with factor multiplier
func ExponentialBuckets(start, factor float64, count int) []float64 {
	buckets := make([]float64, count)
	for i := range buckets {
		buckets[i] = start
		start *= factor
	}
	return buckets
}

func (h *Histogram) Name() string     { return h.name }
func (h *Histogram) Help() string     { return h.help }
func (h *Histogram) Type() MetricType { return TypeHistogram }

// Observe records a value in the histogram
func (h *Histogram) Observe(labels Labels, value float64) {
	h.values.mu.Lock()
	defer h.values.mu.Unlock()
	hv := h.values.get(labels, func() *histogramValue {
		return &histogramValue{buckets: make([]uint64, len(h.buckets))}
	})
	hv.count++
	hv.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			hv.buckets[i]++
			break
		}
	}
}

// Timer returns a function that records the elapsed time when called
func (h *Histogram) Timer(labels Labels) func() {
	start := time.Now()
	return func() {
		h.Observe(labels, time.Since(start).Seconds())
	}
}

// HistogramSnapshot contains a point-in-time snapshot of histogram values.
// Buckets are cumulative, keyed by upper bound.
type HistogramSnapshot struct {
	Count   uint64
	Sum     float64
	Buckets map[float64]uint64
}

// GetSnapshot returns a snapshot of histogram values for the given labels
func (h *Histogram) GetSnapshot(labels Labels) HistogramSnapshot {
	h.values.mu.Lock()
	defer h.values.mu.Unlock()
	snap := HistogramSnapshot{Buckets: make(map[float64]uint64, len(h.buckets))}
	hv, ok := h.values.series[labelKey(labels)]
	if !ok {
		return snap
	}
	snap.Count, snap.Sum = hv.count, hv.sum
	var cumulative uint64
	for i, bound := range h.buckets {
		cumulative += hv.buckets[i]
		snap.Buckets[bound] = cumulative
	}
	return snap
}

func (h *Histogram) Write(sb *strings.Builder) {
	writeHeader(sb, h)
	h.values.mu.Lock()
	defer h.values.mu.Unlock()
	h.values.each(func(l Labels, hv *histogramValue) {
		var cumulative uint64
		for i, bound := range h.buckets {
			cumulative += hv.buckets[i]
			fmt.Fprintf(sb, "%s_bucket%s %d\n", h.name, formatLabels(l, "le", formatFloat(bound)), cumulative)
		}
		fmt.Fprintf(sb, "%s_bucket%s %d\n", h.name, formatLabels(l, "le", "+Inf"), hv.count)
		fmt.Fprintf(sb, "%s_sum%s %s\n", h.name, formatLabels(l, "", ""), formatFloat(hv.sum))
		fmt.Fprintf(sb, "%s_count%s %d\n", h.name, formatLabels(l, "", ""), hv.count)
	})
}

// Registry holds all registered metrics
type Registry struct {
	mu      sync.RWMutex
	metrics map[string]Metric
	order   []string // Preserve registration order
}

// NewRegistry creates a new metrics registry
func NewRegistry() *Registry {
	return &Registry{metrics: make(map[string]Metric)}
}

// Register adds a metric to the registry
func (r *Registry) Register(metric Metric) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := metric.Name()
	if _, exists := r.metrics[name]; exists {
		return fmt.Errorf("metric %q already registered", name)
	}
	r.metrics[name] = metric
	r.order = append(r.order, name)
	return nil
}

// MustRegister adds a metric and panics on error
func (r *Registry) MustRegister(metric Metric) {
	if err := r.Register(metric); err != nil {
		panic(err)
	}
}

// Get returns a metric by name
func (r *Registry) Get(name string) Metric {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.metrics[name]
}

// Gather collects all metrics in Prometheus text format
func (r *Registry) Gather() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sb strings.Builder
	for _, name := range r.order {
		r.metrics[name].Write(&sb)
	}
	return sb.String()
}
