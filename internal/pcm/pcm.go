// SPDX-License-Identifier: MIT
/*
Package pcm holds the decoded audio representation shared by analysis and
playback: interleaved little-endian signed samples with their format.

A Buffer is produced once per track load and never mutated afterwards,
so it may be shared between the analysis task and any number of playback
streams without copying.
*/
package pcm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// Scale normalizes 16-bit samples into [-1, 1).
const Scale = 32768.0

var (
	ErrInvalidFormat = errors.New("pcm: invalid format")
	ErrShortBuffer   = errors.New("pcm: data is not a whole number of frames")
)

// Format describes the sample layout of a Buffer.
type Format struct {
	SampleRate int // Hz, as reported by the decoder
	Channels   int // 1 or 2
	BitDepth   int // bits per sample; every bundled decoder emits 16
}

// BytesPerFrame returns the size of one interleaved frame in bytes.
func (f Format) BytesPerFrame() int {
	return f.Channels * (f.BitDepth / 8)
}

// Validate checks the constraints the core relies on. Bit depths other
// than 16 are representable and valid here; consumers that only handle
// 16-bit data reject them themselves.
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidFormat, f.SampleRate)
	}
	if f.Channels < 1 || f.Channels > 2 {
		return fmt.Errorf("%w: %d channels", ErrInvalidFormat, f.Channels)
	}
	if f.BitDepth <= 0 || f.BitDepth%8 != 0 {
		return fmt.Errorf("%w: bit depth %d", ErrInvalidFormat, f.BitDepth)
	}
	return nil
}

// Buffer is a decoded track.
type Buffer struct {
	Format
	Data []byte
}

// New validates format and data and returns a Buffer.
func New(format Format, data []byte) (*Buffer, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	if len(data)%format.BytesPerFrame() != 0 {
		return nil, fmt.Errorf("%w: %d bytes, frame size %d", ErrShortBuffer, len(data), format.BytesPerFrame())
	}
	return &Buffer{Format: format, Data: data}, nil
}

// FromInt16 packs interleaved samples into a 16-bit Buffer.
func FromInt16(sampleRate, channels int, samples []int16) (*Buffer, error) {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
	}
	return New(Format{SampleRate: sampleRate, Channels: channels, BitDepth: 16}, data)
}

// Frames returns the number of interleaved frames.
func (b *Buffer) Frames() int {
	if b == nil || b.BytesPerFrame() == 0 {
		return 0
	}
	return len(b.Data) / b.BytesPerFrame()
}

// Samples returns the number of individual samples (frames × channels).
func (b *Buffer) Samples() int {
	return b.Frames() * b.Channels
}

// Duration returns the playing time of the buffer.
func (b *Buffer) Duration() time.Duration {
	if b == nil || b.SampleRate == 0 {
		return 0
	}
	return time.Duration(float64(b.Frames()) / float64(b.SampleRate) * float64(time.Second))
}

// Sample returns sample i (interleaved index) of a 16-bit buffer.
func (b *Buffer) Sample(i int) int16 {
	return int16(binary.LittleEndian.Uint16(b.Data[i*2:]))
}

// Mono downmixes a 16-bit buffer into floats in [-1, 1) by averaging
// channels.
func (b *Buffer) Mono() []float64 {
	frames := b.Frames()
	out := make([]float64, frames)
	ch := b.Channels
	for f := range frames {
		var sum float64
		for c := range ch {
			sum += float64(b.Sample(f*ch + c))
		}
		out[f] = sum / float64(ch) / Scale
	}
	return out
}

// SeekOffset converts a playback position into a frame-aligned byte
// offset, clamped to the buffer.
func (b *Buffer) SeekOffset(pos time.Duration) int {
	if pos <= 0 || b.Frames() == 0 {
		return 0
	}
	frame := int(pos.Seconds() * float64(b.SampleRate))
	if frame >= b.Frames() {
		frame = b.Frames()
	}
	return frame * b.BytesPerFrame()
}
