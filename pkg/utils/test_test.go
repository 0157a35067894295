// SPDX-License-Identifier: MIT
package utils

import (
	"math"
	"testing"
)

const (
	testSize       = 1024
	testSampleRate = 44100
	testFrequency  = 440.0 // A4 note
)

func TestMockTransport(t *testing.T) {
	mt := &MockTransport{}

	data := []float64{0.1, 0.2, 0.3}
	if err := mt.Send(data); err != nil {
		t.Fatalf("MockTransport.Send() error = %v", err)
	}
	data[0] = 999.999

	sent := mt.Sent()
	if len(sent) != 1 {
		t.Fatalf("recorded %d payloads, want 1", len(sent))
	}
	if got := sent[0].([]float64)[0]; got != 0.1 {
		t.Errorf("MockTransport.Send() stored reference instead of copy (got %v)", got)
	}

	if err := mt.Close(); err != nil || !mt.Closed {
		t.Errorf("Close() = %v, closed = %v", err, mt.Closed)
	}
}

func TestGenerateSineWave(t *testing.T) {
	wave := GenerateSineWave(testSize, testSampleRate, testFrequency, 0.5)

	if len(wave) != testSize {
		t.Fatalf("length = %d, want %d", len(wave), testSize)
	}
	if wave[0] != 0 {
		t.Errorf("sine should start at zero, got %v", wave[0])
	}
	for i, v := range wave {
		if math.Abs(v) > 0.5+1e-12 {
			t.Fatalf("sample %d = %v exceeds amplitude", i, v)
		}
	}
}

func TestGenerateComplexWave(t *testing.T) {
	tests := []struct {
		name       string
		size       int
		sampleRate float64
	}{
		{"Standard", 1024, 44100},
		{"Small", 16, 8000},
		{"Large", 8192, 96000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := GenerateComplexWave(tt.size, tt.sampleRate)
			if len(result) != tt.size {
				t.Errorf("buffer size = %d, want %d", len(result), tt.size)
			}
			for _, v := range result {
				if math.Abs(v) > 0.9+1e-9 {
					t.Fatalf("sample %v exceeds 0.9", v)
				}
			}
		})
	}
}

func TestBufferInterleavesChannels(t *testing.T) {
	buf := Buffer([]float64{0.5, -0.5}, 48000, 2)

	if buf.Frames() != 2 || buf.Channels != 2 {
		t.Fatalf("frames = %d channels = %d", buf.Frames(), buf.Channels)
	}
	if buf.Sample(0) != buf.Sample(1) || buf.Sample(2) != buf.Sample(3) {
		t.Errorf("channels should be identical copies")
	}
	if buf.Sample(0) != 16384 {
		t.Errorf("Sample(0) = %d, want 16384", buf.Sample(0))
	}
}

func TestFindPeakIndex(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   int
	}{
		{"Empty", nil, 0},
		{"Single", []float64{3}, 0},
		{"Middle", []float64{1, 5, 2}, 1},
		{"First of ties", []float64{4, 4, 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FindPeakIndex(tt.values); got != tt.want {
				t.Errorf("FindPeakIndex(%v) = %d, want %d", tt.values, got, tt.want)
			}
		})
	}
}
