package mockdevice

import (
	"math"
	"testing"
)

func TestParseWaveform(t *testing.T) {
	for i, name := range waveformNames {
		w, err := ParseWaveform(name)
		if err != nil || w != Waveform(i) {
			t.Errorf("ParseWaveform(%q) = %v, %v", name, w, err)
		}
		if w.String() != name {
			t.Errorf("%d.String() = %q, want %q", i, w.String(), name)
		}
	}
	if w, err := ParseWaveform(" Square "); err != nil || w != Square {
		t.Errorf("ParseWaveform with spaces = %v, %v", w, err)
	}
	if _, err := ParseWaveform("sawtooth"); err == nil {
		t.Error("expected error for unknown waveform")
	}
	if Waveform(42).String() != "unknown" {
		t.Error("out of range waveform should print unknown")
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   GeneratorSettings
		want GeneratorSettings
	}{
		{
			name: "defaults unchanged",
			in:   DefaultGeneratorSettings(),
			want: DefaultGeneratorSettings(),
		},
		{
			name: "frequency clamped",
			in:   GeneratorSettings{Waveform: "sine", Frequency: 50000, Amplitude: 1, Offset: 1.5, Duty: 50},
			want: GeneratorSettings{Waveform: "sine", Frequency: 10000, Amplitude: 1, Offset: 1.5, Duty: 50},
		},
		{
			name: "amplitude limited by top of window",
			in:   GeneratorSettings{Waveform: "sine", Frequency: 1000, Amplitude: 3, Offset: 2.5, Duty: 50},
			want: GeneratorSettings{Waveform: "sine", Frequency: 1000, Amplitude: 1, Offset: 2.5, Duty: 50},
		},
		{
			name: "amplitude limited by bottom of window",
			in:   GeneratorSettings{Waveform: "sine", Frequency: 1000, Amplitude: 2, Offset: 0.5, Duty: 50},
			want: GeneratorSettings{Waveform: "sine", Frequency: 1000, Amplitude: 1, Offset: 0.5, Duty: 50},
		},
		{
			name: "duty and waveform",
			in:   GeneratorSettings{Waveform: "bogus", Frequency: 10, Amplitude: 0, Offset: 5, Duty: 0},
			want: GeneratorSettings{Waveform: "sine", Frequency: 100, Amplitude: 0, Offset: 3, Duty: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Normalize()
			if got != tt.want {
				t.Errorf("Normalize() = %+v, want %+v", got, tt.want)
			}
			if got.Offset+got.Amplitude/2 > DACMax+1e-9 || got.Offset-got.Amplitude/2 < -1e-9 {
				t.Errorf("swing %+v leaves the DAC window", got)
			}
		})
	}
}

func TestVoltage(t *testing.T) {
	base := GeneratorSettings{Frequency: 1000, Amplitude: 2, Offset: 1.5, Duty: 25}
	tests := []struct {
		waveform string
		phase    float64
		want     float64
	}{
		{"sine", 0, 1.5},
		{"sine", 0.25, 2.5},
		{"sine", 0.75, 0.5},
		{"rampup", 0, 0.5},
		{"rampup", 0.5, 1.5},
		{"rampdown", 0, 2.5},
		{"square", 0.1, 2.5},
		{"square", 0.6, 0.5},
		{"triangle", 0, 0.5},
		{"triangle", 0.5, 2.5},
		{"pulse", 0.2, 2.5},
		{"pulse", 0.3, 0.5},
		{"dc", 0.4, 1.5},
	}
	for _, tt := range tests {
		s := base
		s.Waveform = tt.waveform
		g := NewGenerator(s, 1)
		got := g.Voltage(tt.phase / s.Frequency)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("%s at phase %v = %v, want %v", tt.waveform, tt.phase, got, tt.want)
		}
	}
}

func TestNoiseStaysInWindow(t *testing.T) {
	g := NewGenerator(GeneratorSettings{Waveform: "noise", Frequency: 1000, Amplitude: 3, Offset: 1.5, Duty: 50}, 7)
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := 0; i < 1000; i++ {
		v := g.Voltage(float64(i) * 1e-5)
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	if lo < 0 || hi > DACMax {
		t.Errorf("noise range [%v, %v] outside DAC window", lo, hi)
	}
	if hi-lo < 1 {
		t.Errorf("noise range [%v, %v] suspiciously narrow", lo, hi)
	}
}

func TestCode(t *testing.T) {
	tests := []struct {
		v    float64
		want uint16
	}{
		{0, 0},
		{-1, 0},
		{1.65, 2048},
		{3.3, 4095},
		{10, 4095},
	}
	for _, tt := range tests {
		if got := Code(tt.v); got != tt.want {
			t.Errorf("Code(%v) = %d, want %d", tt.v, got, tt.want)
		}
	}
}

func TestBlockPhaseShift(t *testing.T) {
	g := NewGenerator(GeneratorSettings{Waveform: "sine", Frequency: 1000, Amplitude: 2, Offset: 1.5, Duty: 50}, 1)
	a := g.Block(0, 1e-6, 4, 0)
	b := g.Block(0, 1e-6, 4, 0.25)
	if len(a) != 4 || len(b) != 4 {
		t.Fatalf("block lengths %d, %d", len(a), len(b))
	}
	if a[0] != Code(1.5) {
		t.Errorf("a[0] = %d, want %d", a[0], Code(1.5))
	}
	if b[0] != Code(2.5) {
		t.Errorf("b[0] = %d, want the crest %d", b[0], Code(2.5))
	}
}
