package scope

import "testing"

func TestSampleBufferOverwrite(t *testing.T) {
	var b SampleBuffer
	if !b.Store(0, []byte{1, 0, 2, 0}) {
		t.Fatal("Store(0) failed")
	}
	b.Store(0, []byte{9, 0})

	got, ok := b.Take(0)
	if !ok || len(got) != 1 || got[0] != 9 {
		t.Errorf("Take = %v, %v; want the newest block only", got, ok)
	}
	if b.Pending(0) {
		t.Error("block still pending after Take")
	}
	if _, ok := b.Take(0); ok {
		t.Error("second Take should find nothing")
	}
}

func TestSampleBufferCopiesPayload(t *testing.T) {
	var b SampleBuffer
	payload := []byte{7, 0}
	b.Store(1, payload)
	payload[0] = 0xff

	got, _ := b.Take(1)
	if got[0] != 7 {
		t.Errorf("buffer aliased the caller's slice: %v", got)
	}
}

func TestSampleBufferRange(t *testing.T) {
	var b SampleBuffer
	for _, ch := range []int{-1, NumChannels, 255} {
		if b.Store(ch, []byte{0, 0}) {
			t.Errorf("Store(%d) accepted", ch)
		}
		if b.Pending(ch) || b.Len(ch) != 0 {
			t.Errorf("channel %d reports data", ch)
		}
		b.Drop(ch)
	}
}

func TestSampleBufferClear(t *testing.T) {
	var b SampleBuffer
	b.Store(0, []byte{1, 0})
	b.Store(1, []byte{})
	if !b.Pending(1) || b.Len(1) != 0 {
		t.Error("empty block should still be pending")
	}
	b.Clear()
	for ch := 0; ch < NumChannels; ch++ {
		if b.Pending(ch) {
			t.Errorf("channel %d pending after Clear", ch)
		}
	}
}
