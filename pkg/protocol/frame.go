// Scope stream wire format
//
// The device sends two kinds of binary WebSocket messages and nothing
// else tells them apart:
//
//	selector: exactly 1 byte, the channel whose data follows (0 doubles
//	          as the sweep-start sentinel)
//	data:     any other length, little-endian uint16 samples belonging to
//	          the channel named by the previous selector
//
// There is no type tag, length prefix or checksum. A data block of one
// byte is indistinguishable from a selector; the device is trusted never
// to send one. Decode is the only place that applies the length rule.
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package protocol

import (
	"encoding/binary"
	"fmt"
)

const (
	// SelectorSize is the length of a channel selector message.
	SelectorSize = 1

	// SampleSize is the width of one sample on the wire.
	SampleSize = 2

	// SampleBits is the device ADC resolution.
	SampleBits = 12

	// SampleMax is the largest code the ADC produces.
	SampleMax = 1<<SampleBits - 1
)

// FrameKind classifies an inbound message.
type FrameKind int

const (
	// KindData carries a sample block.
	KindData FrameKind = iota
	// KindSelector names the channel of the next data block.
	KindSelector
)

func (k FrameKind) String() string {
	switch k {
	case KindSelector:
		return "selector"
	case KindData:
		return "data"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Frame is one decoded inbound message.
type Frame struct {
	Kind FrameKind

	// Channel is set for selector frames.
	Channel uint8

	// Payload is the raw sample block for data frames. It aliases the
	// message buffer.
	Payload []byte
}

// Decode classifies a message purely by its length.
func Decode(msg []byte) Frame {
	if len(msg) == SelectorSize {
		return Frame{Kind: KindSelector, Channel: msg[0]}
	}
	return Frame{Kind: KindData, Payload: msg}
}

// Samples reinterprets a data payload as little-endian uint16 values. A
// trailing odd byte cannot form a sample and is ignored.
func Samples(payload []byte) []uint16 {
	return AppendSamples(make([]uint16, 0, len(payload)/SampleSize), payload)
}

// AppendSamples decodes payload like Samples, appending to dst.
func AppendSamples(dst []uint16, payload []byte) []uint16 {
	n := len(payload) / SampleSize
	for i := 0; i < n; i++ {
		dst = append(dst, binary.LittleEndian.Uint16(payload[i*SampleSize:]))
	}
	return dst
}

// EncodeSelector builds a selector message for ch.
func EncodeSelector(ch uint8) []byte {
	return []byte{ch}
}

// EncodeSamples builds a data message. Blocks that would encode to a
// single byte cannot exist, since every sample takes two.
func EncodeSamples(samples []uint16) []byte {
	return AppendEncoded(make([]byte, 0, len(samples)*SampleSize), samples)
}

// AppendEncoded appends the data message for samples to dst.
func AppendEncoded(dst []byte, samples []uint16) []byte {
	for _, s := range samples {
		dst = binary.LittleEndian.AppendUint16(dst, s)
	}
	return dst
}
