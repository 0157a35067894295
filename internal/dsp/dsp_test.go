// SPDX-License-Identifier: MIT
package dsp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"math/cmplx"
	"math/rand"
	"sync"
	"testing"

	"bandfx/internal/pcm"
	"bandfx/internal/quality"
)

var stereo = pcm.Format{SampleRate: 44100, Channels: 2, BitDepth: 16}

func randomChunk(rng *rand.Rand, samples int, limit int) []byte {
	chunk := make([]byte, samples*2)
	for i := range samples {
		v := int16(rng.Intn(2*limit+1) - limit)
		binary.LittleEndian.PutUint16(chunk[i*2:], uint16(v))
	}
	return chunk
}

func sampleAt(chunk []byte, i int) int16 {
	return int16(binary.LittleEndian.Uint16(chunk[i*2:]))
}

func putSample(chunk []byte, i int, v int16) {
	binary.LittleEndian.PutUint16(chunk[i*2:], uint16(v))
}

func newTestSession(t *testing.T, format pcm.Format, profile *quality.Profile, opts Options) *Session {
	t.Helper()
	s, err := NewSession(format, profile, opts)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func response(c Coefficients, sampleRate, freq float64) float64 {
	z := cmplx.Exp(complex(0, -2*math.Pi*freq/sampleRate))
	num := complex(c.B0, 0) + complex(c.B1, 0)*z + complex(c.B2, 0)*z*z
	den := 1 + complex(c.A1, 0)*z + complex(c.A2, 0)*z*z
	return cmplx.Abs(num / den)
}

func TestPassThroughIsExact(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	s := newTestSession(t, stereo, quality.Neutral(), DefaultOptions())

	for range 20 {
		in := randomChunk(rng, 2048, 31000)
		out := bytes.Clone(in)
		s.Process(out, DefaultParams(), 1)
		if !bytes.Equal(in, out) {
			t.Fatal("chain altered samples with enhancements off and unity gains")
		}
	}
}

func TestLimiterBound(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	l := NewLimiter(44100)
	for i := range 100000 {
		x := (rng.Float64()*2 - 1) * 4
		if y := l.Process(x); math.Abs(y) > LimiterThreshold+1e-12 {
			t.Fatalf("sample %d: |%v| exceeds threshold", i, y)
		}
		if l.Gain() > 1 {
			t.Fatalf("gain %v above unity", l.Gain())
		}
	}
}

func TestLimiterRecovers(t *testing.T) {
	l := NewLimiter(44100)
	l.Process(2)
	if l.Gain() >= 1 {
		t.Fatalf("gain should drop after a loud sample, got %v", l.Gain())
	}
	reduced := l.Gain()
	for range 44100 {
		l.Process(0.1)
	}
	if l.Gain() <= reduced || l.Gain() < 0.99 {
		t.Errorf("gain did not recover: %v", l.Gain())
	}
}

func TestChainOutputStaysBelowThreshold(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	profile := &quality.Profile{RecommendedGain: 2}
	s := newTestSession(t, stereo, profile, DefaultOptions())
	p := DefaultParams()
	p.Enhancements = true
	p.MasterVolume = 2
	p.BassBoost = 1
	p.EQGains = [EQBands]float64{12, 12, 12, 12, 12, 12, 12, 12, 12, 12}
	p.SurroundLevel = 1
	p.StereoWidth = 2

	limit := int16(math.Round(LimiterThreshold*pcm.Scale)) + 1
	for range 10 {
		chunk := randomChunk(rng, 4096, 32767)
		s.Process(chunk, p, 1)
		for i := range 4096 {
			if v := sampleAt(chunk, i); v > limit || v < -limit {
				t.Fatalf("sample %d = %d exceeds %d", i, v, limit)
			}
		}
	}
}

func TestSoftClip(t *testing.T) {
	tests := []struct {
		in     float64
		lo, hi float64
	}{
		{0.5, 0.5, 0.5},
		{-0.95, -0.95, -0.95},
		{0.96, 0.95, 1},
		{1.2, 0.95, 1},
		{-1.5, -1, -0.95},
	}
	for _, tt := range tests {
		got := SoftClip(tt.in)
		if got < tt.lo || got > tt.hi {
			t.Errorf("SoftClip(%v) = %v, want within [%v, %v]", tt.in, got, tt.lo, tt.hi)
		}
		if math.Abs(tt.in) > LimiterThreshold && math.Abs(got) >= 1 {
			t.Errorf("SoftClip(%v) = %v reached full scale", tt.in, got)
		}
	}
	if SoftClip(1.0) <= SoftClip(0.97) {
		t.Error("soft clip must be monotonic")
	}
}

func TestPeakingResponse(t *testing.T) {
	for _, gain := range []float64{-12, -3, 6, 12} {
		c := PeakingEQ(44100, 1000, 1, gain)
		want := math.Pow(10, gain/20)
		if got := response(c, 44100, 1000); math.Abs(got-want) > 1e-9 {
			t.Errorf("gain %v dB: |H(f0)| = %v, want %v", gain, got, want)
		}
	}
}

func TestLowShelfDCGain(t *testing.T) {
	c := LowShelf(44100, 100, 0.7, 12)
	dc := (c.B0 + c.B1 + c.B2) / (1 + c.A1 + c.A2)
	if want := math.Pow(10, 12.0/20); math.Abs(dc-want) > 1e-9 {
		t.Errorf("DC gain = %v, want %v", dc, want)
	}
	if hf := response(c, 44100, 15000); math.Abs(hf-1) > 0.01 {
		t.Errorf("gain well above the shelf = %v, want ~1", hf)
	}
}

func TestFiltersNearNyquistAreUnity(t *testing.T) {
	if c := PeakingEQ(32000, 16000, 1, 6); c != Unity {
		t.Errorf("16 kHz peak at 32 kHz should be unity, got %+v", c)
	}
	if c := LowShelf(200, 100, 0.7, 6); c != Unity {
		t.Errorf("100 Hz shelf at 200 Hz should be unity, got %+v", c)
	}
}

func TestCoefficientChangeKeepsHistory(t *testing.T) {
	f := NewBiquad(PeakingEQ(44100, 250, 1, 6))
	for i := range 64 {
		f.Process(0, math.Sin(float64(i)*0.1))
	}
	before := f.state[0]
	if before == (history{}) {
		t.Fatal("filter should have history")
	}

	next := PeakingEQ(44100, 250, 1, -6)
	f.SetCoefficients(next)
	x := 0.25
	want := next.B0*x + next.B1*before.x1 + next.B2*before.x2 - next.A1*before.y1 - next.A2*before.y2
	if got := f.Process(0, x); got != want {
		t.Errorf("output %v after coefficient change, want %v from retained history", got, want)
	}
}

func TestAutoGainSmoothing(t *testing.T) {
	s := newTestSession(t, stereo, &quality.Profile{RecommendedGain: 2}, DefaultOptions())
	s.Process(make([]byte, 512), DefaultParams(), 1)
	if got := s.AutoGain(); math.Abs(got-1.001) > 1e-12 {
		t.Errorf("auto gain after one chunk = %v, want 1.001", got)
	}

	opts := DefaultOptions()
	opts.AutoGain = false
	off := newTestSession(t, stereo, &quality.Profile{RecommendedGain: 2}, opts)
	off.Process(make([]byte, 512), DefaultParams(), 1)
	if off.AutoGain() != 1 {
		t.Errorf("disabled auto gain moved to %v", off.AutoGain())
	}
}

func TestZeroWidthCollapsesToMono(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	s := newTestSession(t, stereo, quality.Neutral(), DefaultOptions())
	p := DefaultParams()
	p.Enhancements = true
	p.StereoWidth = 0

	chunk := randomChunk(rng, 2048, 10000)
	s.Process(chunk, p, 1)
	for f := range 1024 {
		if l, r := sampleAt(chunk, 2*f), sampleAt(chunk, 2*f+1); l != r {
			t.Fatalf("frame %d: L=%d R=%d, want equal", f, l, r)
		}
	}
}

func TestSurroundCrossFeedsDelayedChannel(t *testing.T) {
	opts := DefaultOptions()
	opts.SurroundDelay = 4
	opts.SurroundMix = 0.5
	s := newTestSession(t, stereo, quality.Neutral(), opts)
	p := DefaultParams()
	p.Enhancements = true
	p.SurroundLevel = 1

	chunk := make([]byte, 16*2*2)
	putSample(chunk, 0, 16384) // left impulse at frame 0
	s.Process(chunk, p, 1)

	for f := range 4 {
		if r := sampleAt(chunk, 2*f+1); r != 0 {
			t.Errorf("right frame %d = %d before the delay elapsed", f, r)
		}
	}
	if r := sampleAt(chunk, 2*4+1); math.Abs(float64(r)-8192) > 2 {
		t.Errorf("right frame 4 = %d, want ~8192", r)
	}
}

func TestSurroundZeroDelayFeedsSameFrame(t *testing.T) {
	opts := DefaultOptions()
	opts.SurroundDelay = 0
	opts.SurroundMix = 0.5
	s := newTestSession(t, stereo, quality.Neutral(), opts)
	p := DefaultParams()
	p.Enhancements = true
	p.SurroundLevel = 1

	chunk := make([]byte, 2*2*2)
	putSample(chunk, 0, 1000)
	s.Process(chunk, p, 1)

	want := []int16{1000, 500, 0, 0}
	for i, w := range want {
		if got := sampleAt(chunk, i); math.Abs(float64(got-w)) > 1 {
			t.Errorf("sample %d = %d, want %d", i, got, w)
		}
	}
}

func TestVolumeMultiplies(t *testing.T) {
	s := newTestSession(t, pcm.Format{SampleRate: 44100, Channels: 1, BitDepth: 16}, nil, DefaultOptions())
	p := DefaultParams()
	p.MasterVolume = 0.5
	p.SourceVolume = 0.5

	chunk := make([]byte, 2)
	putSample(chunk, 0, 16000)
	s.Process(chunk, p, 0.5)
	if got := sampleAt(chunk, 0); got != 2000 {
		t.Errorf("sample = %d, want 2000", got)
	}
}

func TestNewSessionRejectsWideSamples(t *testing.T) {
	_, err := NewSession(pcm.Format{SampleRate: 44100, Channels: 2, BitDepth: 24}, nil, DefaultOptions())
	if !errors.Is(err, pcm.ErrInvalidFormat) {
		t.Errorf("expected ErrInvalidFormat, got %v", err)
	}
}

func TestProcessDoesNotAllocate(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	s := newTestSession(t, stereo, &quality.Profile{RecommendedGain: 1.2}, DefaultOptions())
	p := DefaultParams()
	p.Enhancements = true
	p.BassBoost = 0.5
	p.SurroundLevel = 0.5
	chunk := randomChunk(rng, 2048, 20000)

	allocs := testing.AllocsPerRun(50, func() {
		s.Process(chunk, p, 1)
	})
	if allocs > 0 {
		t.Errorf("Process allocated %v times per chunk, want 0", allocs)
	}
}

func TestSettingsUpdateIsConsistent(t *testing.T) {
	s := NewSettings(Params{})
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Update(func(p *Params) { p.MasterVolume += 0.01 })
		}()
	}
	wg.Wait()

	if got := s.Snapshot().MasterVolume; math.Abs(got-0.5) > 1e-9 {
		t.Errorf("master volume = %v after 50 updates, want 0.5", got)
	}
}

func TestSettingsClamp(t *testing.T) {
	s := NewSettings(Params{MasterVolume: 5, BassBoost: -1, EQGains: [EQBands]float64{20, -20}})
	p := s.Snapshot()
	if p.MasterVolume != 2 || p.BassBoost != 0 || p.EQGains[0] != 12 || p.EQGains[1] != -12 {
		t.Errorf("settings were not clamped: %+v", p)
	}

	p.MasterVolume = 0.1
	if s.Snapshot().MasterVolume != 2 {
		t.Error("Snapshot must return a copy")
	}
}

func TestPeakLevel(t *testing.T) {
	chunk := make([]byte, 8)
	putSample(chunk, 0, 100)
	putSample(chunk, 1, -16384)
	putSample(chunk, 2, 8000)
	if got := PeakLevel(chunk); got != 0.5 {
		t.Errorf("PeakLevel = %v, want 0.5", got)
	}
	putSample(chunk, 3, math.MinInt16)
	if got := PeakLevel(chunk); got != 1 {
		t.Errorf("PeakLevel = %v, want 1", got)
	}
}

func BenchmarkProcess(b *testing.B) {
	rng := rand.New(rand.NewSource(6))
	s, err := NewSession(stereo, nil, DefaultOptions())
	if err != nil {
		b.Fatal(err)
	}
	p := DefaultParams()
	p.Enhancements = true
	chunk := randomChunk(rng, 4096, 20000)

	b.ReportAllocs()
	for b.Loop() {
		s.Process(chunk, p, 1)
	}
}
