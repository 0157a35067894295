// SPDX-License-Identifier: MIT
package dsp

import (
	"encoding/binary"
	"fmt"
	"math"

	"bandfx/internal/pcm"
	"bandfx/internal/quality"
	"bandfx/pkg/bitint"
)

const (
	MaxEQGainDB = 12.0

	DefaultEQQ           = 1.0
	DefaultSurroundDelay = 441 // samples
	DefaultSurroundMix   = 0.5

	autoGainSmoothing = 0.001 // per chunk

	bassShelfFreq  = 100.0
	bassShelfQ     = 0.7
	bassShelfMaxDB = 12.0
)

// Options fix the per-session parts of the chain that do not change
// while a stream plays.
type Options struct {
	EQQ           float64
	SurroundDelay int     // samples the cross-fed channel lags by
	SurroundMix   float64 // proportion of the delayed opposite channel
	AutoGain      bool
	AutoEQ        bool
}

// DefaultOptions returns the standard chain layout.
func DefaultOptions() Options {
	return Options{
		EQQ:           DefaultEQQ,
		SurroundDelay: DefaultSurroundDelay,
		SurroundMix:   DefaultSurroundMix,
		AutoGain:      true,
		AutoEQ:        true,
	}
}

// Session is the complete DSP state of one playback stream. It is owned
// by the stream goroutine and must not be shared.
type Session struct {
	format     pcm.Format
	sampleRate float64
	opts       Options

	eq        [EQBands]Biquad
	eqGains   [EQBands]float64 // combined dB the EQ coefficients were built for
	eqReady   bool
	bass      Biquad
	bassBoost float64
	limiter   *Limiter

	autoGain   float64
	gainTarget float64
	autoEQ     [EQBands]float64

	delay    [MaxChannels][]float64
	delayPos int
	delayMsk int
}

// NewSession builds the chain for format, starting from profile's
// recommendations. A nil profile means no automatic adjustment.
func NewSession(format pcm.Format, profile *quality.Profile, opts Options) (*Session, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	if format.BitDepth != 16 {
		return nil, fmt.Errorf("%w: dsp chain needs 16-bit samples, got %d", pcm.ErrInvalidFormat, format.BitDepth)
	}
	if opts.SurroundDelay < 0 {
		return nil, fmt.Errorf("%w: negative surround delay %d", pcm.ErrInvalidFormat, opts.SurroundDelay)
	}
	if profile == nil {
		profile = quality.Neutral()
	}

	s := &Session{
		format:     format,
		sampleRate: float64(format.SampleRate),
		opts:       opts,
		limiter:    NewLimiter(float64(format.SampleRate)),
		autoGain:   1,
		gainTarget: 1,
		bass:       Biquad{c: Unity},
	}
	if opts.AutoGain {
		s.gainTarget = profile.RecommendedGain
	}
	if opts.AutoEQ {
		s.autoEQ = profile.RecommendedEQ
	}

	ring := bitint.NextPowerOfTwo(opts.SurroundDelay + 1)
	s.delayMsk = bitint.Mask(ring)
	for ch := range s.delay {
		s.delay[ch] = make([]float64, ring)
	}
	return s, nil
}

// Format returns the PCM layout the session processes.
func (s *Session) Format() pcm.Format { return s.format }

// AutoGain returns the current smoothed auto-gain.
func (s *Session) AutoGain() float64 { return s.autoGain }

// LimiterGain returns the limiter's current gain.
func (s *Session) LimiterGain() float64 { return s.limiter.Gain() }

// updateFilters rebuilds coefficients whose inputs changed. History is
// kept.
func (s *Session) updateFilters(p *Params) {
	for i := range s.eq {
		gain := clamp(p.EQGains[i]+s.autoEQ[i], -MaxEQGainDB, MaxEQGainDB)
		if s.eqReady && gain == s.eqGains[i] {
			continue
		}
		s.eqGains[i] = gain
		s.eq[i].SetCoefficients(PeakingEQ(s.sampleRate, EQFrequencies[i], s.opts.EQQ, gain))
	}
	s.eqReady = true

	if p.BassBoost != s.bassBoost {
		s.bassBoost = p.BassBoost
		s.bass.SetCoefficients(LowShelf(s.sampleRate, bassShelfFreq, bassShelfQ, p.BassBoost*bassShelfMaxDB))
	}
}

// Process runs the chain in place over an interleaved 16-bit LE chunk.
// volume is the per-session (distance) volume; it multiplies the master
// and source volumes of p.
func (s *Session) Process(chunk []byte, p Params, volume float64) {
	s.autoGain += (s.gainTarget - s.autoGain) * autoGainSmoothing
	gain := s.autoGain
	masterVol := p.MasterVolume * p.SourceVolume * volume

	if p.Enhancements {
		s.updateFilters(&p)
	}

	ch := s.format.Channels
	frameBytes := ch * 2
	var frame [MaxChannels]float64

	for off := 0; off+frameBytes <= len(chunk); off += frameBytes {
		for c := range ch {
			frame[c] = float64(int16(binary.LittleEndian.Uint16(chunk[off+2*c:]))) / pcm.Scale * gain
		}

		if p.Enhancements {
			for c := range ch {
				x := frame[c]
				for i := range s.eq {
					x = s.eq[i].Process(c, x)
				}
				frame[c] = s.bass.Process(c, x)
			}
			if ch == 2 {
				s.widen(&frame, p.StereoWidth)
				s.surround(&frame, p.SurroundLevel)
			}
		}

		for c := range ch {
			y := s.limiter.Process(frame[c] * masterVol)
			y = SoftClip(y)
			binary.LittleEndian.PutUint16(chunk[off+2*c:], uint16(toInt16(y)))
		}
	}
}

func (s *Session) widen(frame *[MaxChannels]float64, width float64) {
	mid := (frame[0] + frame[1]) / 2
	side := (frame[0] - frame[1]) / 2 * width
	frame[0] = mid + side
	frame[1] = mid - side
}

// surround cross-feeds each channel with the opposite channel as it was
// SurroundDelay samples ago.
func (s *Session) surround(frame *[MaxChannels]float64, level float64) {
	l, r := frame[0], frame[1]
	// The current frame is stored first so a zero delay reads it back.
	s.delay[0][s.delayPos] = l
	s.delay[1][s.delayPos] = r
	read := (s.delayPos - s.opts.SurroundDelay) & s.delayMsk
	s.delayPos = (s.delayPos + 1) & s.delayMsk

	if k := level * s.opts.SurroundMix; k != 0 {
		frame[0] = l + k*s.delay[1][read]
		frame[1] = r + k*s.delay[0][read]
	}
}

func toInt16(x float64) int16 {
	v := math.Round(x * pcm.Scale)
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
