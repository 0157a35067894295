// Package utils provides deterministic test signals and a recording
// transport shared by the package tests.
package utils

import (
	"bandfx/internal/pcm"
	"math"
	"sync"
)

// MockTransport records every payload it is asked to send.
type MockTransport struct {
	mu       sync.Mutex
	Payloads []any
	Closed   bool
}

// Send stores the payload for later inspection instead of transmitting.
// Float slices are copied so callers may reuse their buffers.
func (m *MockTransport) Send(data any) error {
	if v, ok := data.([]float64); ok {
		data = append([]float64(nil), v...)
	}
	m.mu.Lock()
	m.Payloads = append(m.Payloads, data)
	m.mu.Unlock()
	return nil
}

// Close marks the transport closed.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	m.Closed = true
	m.mu.Unlock()
	return nil
}

// Sent returns a snapshot of the recorded payloads.
func (m *MockTransport) Sent() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]any(nil), m.Payloads...)
}

// GenerateSineWave returns frames of a mono sine at frequency Hz with
// the given peak amplitude in [0, 1].
func GenerateSineWave(frames int, sampleRate, frequency, amplitude float64) []float64 {
	buffer := make([]float64, frames)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = amplitude * math.Sin(2*math.Pi*frequency*t)
	}
	return buffer
}

// GenerateComplexWave returns a 440 Hz fundamental with two harmonics,
// peaking at 0.9.
func GenerateComplexWave(frames int, sampleRate float64) []float64 {
	buffer := make([]float64, frames)
	for i := range buffer {
		tm := float64(i) / sampleRate
		signal := math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2
		buffer[i] = signal * 0.9
	}
	return buffer
}

// ToInt16 quantizes float samples in [-1, 1] to 16-bit, interleaving them
// into channels identical copies.
func ToInt16(samples []float64, channels int) []int16 {
	out := make([]int16, len(samples)*channels)
	for i, s := range samples {
		v := math.Round(s * 32767)
		for c := range channels {
			out[i*channels+c] = int16(v)
		}
	}
	return out
}

// Buffer wraps mono float samples into a 16-bit pcm.Buffer with the
// requested channel count. It panics on invalid formats, which only
// happens on a broken test.
func Buffer(samples []float64, sampleRate, channels int) *pcm.Buffer {
	buf, err := pcm.FromInt16(sampleRate, channels, ToInt16(samples, channels))
	if err != nil {
		panic(err)
	}
	return buf
}

// SineBuffer is a convenience for Buffer(GenerateSineWave(...)).
func SineBuffer(seconds float64, sampleRate, channels int, frequency, amplitude float64) *pcm.Buffer {
	frames := int(seconds * float64(sampleRate))
	return Buffer(GenerateSineWave(frames, float64(sampleRate), frequency, amplitude), sampleRate, channels)
}

// SilentBuffer returns seconds of digital silence.
func SilentBuffer(seconds float64, sampleRate, channels int) *pcm.Buffer {
	return Buffer(make([]float64, int(seconds*float64(sampleRate))), sampleRate, channels)
}

// FindPeakIndex returns the index of the largest value, or 0 for an
// empty slice.
func FindPeakIndex(values []float64) int {
	peak := 0
	for i, v := range values {
		if v > values[peak] {
			peak = i
		}
	}
	return peak
}
