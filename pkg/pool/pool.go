// Buffer pools for the frame hot path
//
// Every sweep decodes one sample block per channel and the mock device
// encodes one per channel, all of the same size. Reusing those slices
// keeps the garbage collector out of the sweep loop:
// - Sample slices (decoded 12-bit readings)
// - Byte slices (encoded data messages)
//
// Usage:
//
//	s := pool.GetSamples(n)
//	defer pool.PutSamples(s)
//	// fill s...
//
// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package pool

import (
	"sync"
	"sync/atomic"
)

// MaxPooledLen is the largest slice length kept for reuse; bigger ones are
// left to the collector.
const MaxPooledLen = 1 << 16

var (
	sampleGets   atomic.Uint64
	sampleAllocs atomic.Uint64
	byteGets     atomic.Uint64
	byteAllocs   atomic.Uint64
)

// Sample slice pool
var samplePool = sync.Pool{
	New: func() any {
		sampleAllocs.Add(1)
		return make([]uint16, 0, 1024)
	},
}

// GetSamples returns a zero-length slice with room for at least n samples.
func GetSamples(n int) []uint16 {
	sampleGets.Add(1)
	s := samplePool.Get().([]uint16)
	if cap(s) < n {
		s = make([]uint16, 0, n)
	}
	return s[:0]
}

// PutSamples returns s to the pool. The caller must not use s afterwards.
func PutSamples(s []uint16) {
	if s == nil || cap(s) > MaxPooledLen {
		return
	}
	samplePool.Put(s[:0])
}

// Byte slice pool
var bytePool = sync.Pool{
	New: func() any {
		byteAllocs.Add(1)
		return make([]byte, 0, 2048)
	},
}

// GetBytes returns a zero-length slice with room for at least n bytes.
func GetBytes(n int) []byte {
	byteGets.Add(1)
	b := bytePool.Get().([]byte)
	if cap(b) < n {
		b = make([]byte, 0, n)
	}
	return b[:0]
}

// PutBytes returns b to the pool. The caller must not use b afterwards.
func PutBytes(b []byte) {
	if b == nil || cap(b) > 2*MaxPooledLen {
		return
	}
	bytePool.Put(b[:0])
}

// Stats counts pool traffic. Gets minus Allocs is the number of reuses.
type Stats struct {
	SampleGets   uint64
	SampleAllocs uint64
	ByteGets     uint64
	ByteAllocs   uint64
}

// GetStats returns the counters since process start.
func GetStats() Stats {
	return Stats{
		SampleGets:   sampleGets.Load(),
		SampleAllocs: sampleAllocs.Load(),
		ByteGets:     byteGets.Load(),
		ByteAllocs:   byteAllocs.Load(),
	}
}
