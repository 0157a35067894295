// SPDX-License-Identifier: MIT
package pcm

import (
	"errors"
	"testing"
	"time"
)

func TestFormatValidate(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		ok     bool
	}{
		{"Stereo 16-bit", Format{44100, 2, 16}, true},
		{"Mono 24-bit", Format{48000, 1, 24}, true},
		{"No rate", Format{0, 2, 16}, false},
		{"Surround", Format{48000, 6, 16}, false},
		{"Odd depth", Format{48000, 2, 12}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.format.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidFormat) {
				t.Errorf("Validate() = %v, want ErrInvalidFormat", err)
			}
		})
	}
}

func TestNewRejectsPartialFrames(t *testing.T) {
	_, err := New(Format{44100, 2, 16}, make([]byte, 6))
	if !errors.Is(err, ErrShortBuffer) {
		t.Errorf("New() = %v, want ErrShortBuffer", err)
	}
}

func TestMonoAveragesChannels(t *testing.T) {
	buf, err := FromInt16(8000, 2, []int16{16384, 0, -32768, -32768})
	if err != nil {
		t.Fatal(err)
	}

	mono := buf.Mono()
	want := []float64{0.25, -1}
	for i := range want {
		if mono[i] != want[i] {
			t.Errorf("Mono()[%d] = %v, want %v", i, mono[i], want[i])
		}
	}
}

func TestSeekOffsetIsFrameAligned(t *testing.T) {
	buf, _ := FromInt16(10, 2, make([]int16, 2*10))

	tests := []struct {
		pos  time.Duration
		want int
	}{
		{-time.Second, 0},
		{0, 0},
		{350 * time.Millisecond, 3 * 4},
		{time.Minute, 10 * 4},
	}

	for _, tt := range tests {
		if got := buf.SeekOffset(tt.pos); got != tt.want {
			t.Errorf("SeekOffset(%v) = %d, want %d", tt.pos, got, tt.want)
		}
	}
}

func TestDuration(t *testing.T) {
	buf, _ := FromInt16(44100, 1, make([]int16, 22050))
	if got := buf.Duration(); got != 500*time.Millisecond {
		t.Errorf("Duration() = %v, want 500ms", got)
	}
}

func TestCacheBoundsAndSkipsEmpty(t *testing.T) {
	c := NewCache(2)
	a, _ := FromInt16(8000, 1, []int16{1})
	b, _ := FromInt16(8000, 1, []int16{2})
	d, _ := FromInt16(8000, 1, []int16{3})
	empty, _ := FromInt16(8000, 1, nil)

	c.Put("a", a)
	c.Put("b", b)
	c.Put("empty", empty)
	c.Put("d", d)

	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
	if _, ok := c.Get("a"); ok {
		t.Error("oldest entry should have been evicted")
	}
	if got, ok := c.Get("d"); !ok || got != d {
		t.Error("newest entry missing")
	}
	if _, ok := c.Get("empty"); ok {
		t.Error("empty buffer must not be cached")
	}
}
