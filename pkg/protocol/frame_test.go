package protocol

import (
	"bytes"
	"testing"
)

func TestDecodeByLength(t *testing.T) {
	tests := []struct {
		name    string
		msg     []byte
		kind    FrameKind
		channel uint8
		payload int
	}{
		{"selector ch0", []byte{0}, KindSelector, 0, 0},
		{"selector ch1", []byte{1}, KindSelector, 1, 0},
		{"selector sentinel", []byte{0xff}, KindSelector, 0xff, 0},
		{"empty is data", []byte{}, KindData, 0, 0},
		{"two bytes is data", []byte{0x00, 0x08}, KindData, 0, 2},
		{"odd block is data", []byte{1, 2, 3}, KindData, 0, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Decode(tt.msg)
			if f.Kind != tt.kind {
				t.Fatalf("Kind = %v, want %v", f.Kind, tt.kind)
			}
			if f.Kind == KindSelector && f.Channel != tt.channel {
				t.Errorf("Channel = %d, want %d", f.Channel, tt.channel)
			}
			if len(f.Payload) != tt.payload {
				t.Errorf("len(Payload) = %d, want %d", len(f.Payload), tt.payload)
			}
		})
	}
}

func TestSamplesLittleEndian(t *testing.T) {
	got := Samples([]byte{0x00, 0x08, 0xff, 0x0f, 0x01, 0x00})
	want := []uint16{2048, 4095, 1}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestSamplesIgnoresTrailingByte(t *testing.T) {
	got := Samples([]byte{0x10, 0x00, 0x7f})
	if len(got) != 1 || got[0] != 0x10 {
		t.Errorf("Samples = %v", got)
	}
	if len(Samples(nil)) != 0 {
		t.Error("nil payload should decode to no samples")
	}
}

func TestEncodeSamples(t *testing.T) {
	samples := []uint16{0, 2048, SampleMax}
	msg := EncodeSamples(samples)
	if !bytes.Equal(msg, []byte{0, 0, 0x00, 0x08, 0xff, 0x0f}) {
		t.Errorf("EncodeSamples = % x", msg)
	}
	if f := Decode(msg); f.Kind != KindData {
		t.Error("encoded block must decode as data")
	}
	if f := Decode(EncodeSelector(1)); f.Kind != KindSelector || f.Channel != 1 {
		t.Errorf("EncodeSelector round trip = %+v", f)
	}
}

func TestOneByteDataIsMisread(t *testing.T) {
	// Known protocol hazard: nothing distinguishes a 1-byte data block.
	if f := Decode([]byte{0x42}); f.Kind != KindSelector {
		t.Error("a 1-byte message must always classify as a selector")
	}
}

func TestAppendKeepsPrefix(t *testing.T) {
	got := AppendSamples([]uint16{7}, []byte{0x01, 0x00, 0x02})
	if len(got) != 2 || got[0] != 7 || got[1] != 1 {
		t.Errorf("AppendSamples = %v", got)
	}
	msg := AppendEncoded([]byte{0xaa}, []uint16{0x0fff})
	if len(msg) != 3 || msg[0] != 0xaa || msg[1] != 0xff || msg[2] != 0x0f {
		t.Errorf("AppendEncoded = % x", msg)
	}
}
