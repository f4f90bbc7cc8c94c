// Signal generator
//
// The simulated DAC drives the scope inputs with one of eight waveforms.
// Output is bounded to the 0..3.0V DAC window; the ADC converts it to
// 12-bit codes against a 3.3V reference, as the real board does.
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package mockdevice

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"oscope-go/pkg/pool"
	"oscope-go/pkg/protocol"
)

// Waveform selects the generator output shape.
type Waveform int

const (
	Sine Waveform = iota
	RampUp
	RampDown
	Square
	Triangle
	Pulse
	DC
	Noise
)

var waveformNames = [...]string{"sine", "rampup", "rampdown", "square", "triangle", "pulse", "dc", "noise"}

func (w Waveform) String() string {
	if w < 0 || int(w) >= len(waveformNames) {
		return "unknown"
	}
	return waveformNames[w]
}

// ParseWaveform maps a waveform name to its value.
func ParseWaveform(s string) (Waveform, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range waveformNames {
		if name == s {
			return Waveform(i), nil
		}
	}
	return Sine, fmt.Errorf("unknown waveform %q", s)
}

// Generator limits.
const (
	MinFrequency = 100.0
	MaxFrequency = 10000.0
	DACMax       = 3.0
	ADCRef       = 3.3
	MinDuty      = 1.0
	MaxDuty      = 99.0
)

// GeneratorSettings is the parameter set accepted by the "set" call.
type GeneratorSettings struct {
	Waveform  string  `json:"waveform"`
	Frequency float64 `json:"frequency"`
	Amplitude float64 `json:"amplitude"`
	Offset    float64 `json:"offset"`
	Duty      float64 `json:"duty"`
}

// DefaultGeneratorSettings is a 1kHz 2Vpp sine centred at 1.6V.
func DefaultGeneratorSettings() GeneratorSettings {
	return GeneratorSettings{
		Waveform:  "sine",
		Frequency: 1000,
		Amplitude: 2.0,
		Offset:    1.6,
		Duty:      50,
	}
}

// Normalize clamps every field into range. The offset is bounded first,
// then the amplitude is shrunk until the swing fits the DAC window.
func (s GeneratorSettings) Normalize() GeneratorSettings {
	if _, err := ParseWaveform(s.Waveform); err != nil {
		s.Waveform = "sine"
	}
	s.Waveform = strings.ToLower(strings.TrimSpace(s.Waveform))
	s.Frequency = clamp(s.Frequency, MinFrequency, MaxFrequency)
	s.Offset = clamp(s.Offset, 0, DACMax)
	s.Amplitude = math.Max(0, s.Amplitude)
	if s.Amplitude/2+s.Offset > DACMax {
		s.Amplitude = 2 * (DACMax - s.Offset)
	}
	if s.Offset-s.Amplitude/2 < 0 {
		s.Amplitude = 2 * s.Offset
	}
	s.Duty = clamp(s.Duty, MinDuty, MaxDuty)
	return s
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// Generator produces the simulated input signal. It is not safe for
// concurrent use.
type Generator struct {
	settings GeneratorSettings
	waveform Waveform
	rng      *rand.Rand
}

// NewGenerator creates a generator with normalized settings.
func NewGenerator(s GeneratorSettings, seed int64) *Generator {
	g := &Generator{rng: rand.New(rand.NewSource(seed))}
	g.Set(s)
	return g
}

// Set replaces the settings.
func (g *Generator) Set(s GeneratorSettings) {
	g.settings = s.Normalize()
	g.waveform, _ = ParseWaveform(g.settings.Waveform)
}

// Settings returns the active, normalized settings.
func (g *Generator) Settings() GeneratorSettings {
	return g.settings
}

// Voltage returns the output at time t seconds.
func (g *Generator) Voltage(t float64) float64 {
	s := g.settings
	phase := math.Mod(t*s.Frequency, 1)
	if phase < 0 {
		phase++
	}
	half := s.Amplitude / 2

	var v float64 // in -1..1
	switch g.waveform {
	case Sine:
		v = math.Sin(2 * math.Pi * phase)
	case RampUp:
		v = 2*phase - 1
	case RampDown:
		v = 1 - 2*phase
	case Square:
		if phase < 0.5 {
			v = 1
		} else {
			v = -1
		}
	case Triangle:
		if phase < 0.5 {
			v = 4*phase - 1
		} else {
			v = 3 - 4*phase
		}
	case Pulse:
		if phase < s.Duty/100 {
			v = 1
		} else {
			v = -1
		}
	case DC:
		v = 0
	case Noise:
		v = 2*g.rng.Float64() - 1
	}
	return clamp(s.Offset+half*v, 0, DACMax)
}

// Code converts a voltage to a 12-bit ADC reading.
func Code(v float64) uint16 {
	c := math.Round(v / ADCRef * (1 << protocol.SampleBits))
	if c < 0 {
		return 0
	}
	if c > protocol.SampleMax {
		return protocol.SampleMax
	}
	return uint16(c)
}

// Block samples n points starting at t0, dt seconds apart. A non-zero
// phase shifts the signal by that fraction of a period. The slice comes
// from the sample pool.
func (g *Generator) Block(t0, dt float64, n int, phase float64) []uint16 {
	shift := phase / g.settings.Frequency
	out := pool.GetSamples(n)
	for i := 0; i < n; i++ {
		out = append(out, Code(g.Voltage(t0+float64(i)*dt+shift)))
	}
	return out
}
