package scope

import (
	"oscope-go/pkg/pool"
	"oscope-go/pkg/protocol"
)

// SampleBuffer holds the most recent raw block per channel until a sweep
// boundary renders it. A new block replaces the pending one; blocks are
// never appended.
type SampleBuffer struct {
	blocks  [NumChannels][]byte
	pending [NumChannels]bool
}

// Store replaces the pending block of ch. The payload is copied, so the
// transport may reuse its read buffer. Out-of-range channels are ignored
// and reported as false.
func (b *SampleBuffer) Store(ch int, payload []byte) bool {
	if ch < 0 || ch >= NumChannels {
		return false
	}
	b.blocks[ch] = append(b.blocks[ch][:0], payload...)
	b.pending[ch] = true
	return true
}

// Pending reports whether ch holds a block (possibly empty).
func (b *SampleBuffer) Pending(ch int) bool {
	if ch < 0 || ch >= NumChannels {
		return false
	}
	return b.pending[ch]
}

// Len returns the size in bytes of ch's pending block.
func (b *SampleBuffer) Len(ch int) int {
	if !b.Pending(ch) {
		return 0
	}
	return len(b.blocks[ch])
}

// Take decodes and clears ch's pending block. The slice comes from the
// sample pool; callers may hand it back with pool.PutSamples.
func (b *SampleBuffer) Take(ch int) ([]uint16, bool) {
	if !b.Pending(ch) {
		return nil, false
	}
	block := b.blocks[ch]
	samples := protocol.AppendSamples(pool.GetSamples(len(block)/protocol.SampleSize), block)
	b.Drop(ch)
	return samples, true
}

// Drop clears ch's pending block without decoding it.
func (b *SampleBuffer) Drop(ch int) {
	if ch < 0 || ch >= NumChannels {
		return
	}
	b.blocks[ch] = b.blocks[ch][:0]
	b.pending[ch] = false
}

// Clear drops every pending block.
func (b *SampleBuffer) Clear() {
	for ch := 0; ch < NumChannels; ch++ {
		b.Drop(ch)
	}
}
