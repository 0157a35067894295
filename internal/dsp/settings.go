// SPDX-License-Identifier: MIT
package dsp

import (
	"math"
	"sync/atomic"
)

// EQBands is the number of peaking EQ bands.
const EQBands = 10

// EQFrequencies are the fixed centre frequencies of the EQ bands.
var EQFrequencies = [EQBands]float64{32, 64, 125, 250, 500, 1000, 2000, 4000, 8000, 16000}

// Params are the user-facing effect settings read once per chunk.
type Params struct {
	MasterVolume  float64
	SourceVolume  float64 // host output source volume
	EQGains       [EQBands]float64
	BassBoost     float64 // 0..1, mapped to 0..12 dB
	SurroundLevel float64 // 0..1
	StereoWidth   float64 // 1 is neutral
	Enhancements  bool
}

// DefaultParams is a neutral setting: unity volume, flat EQ, no
// enhancements.
func DefaultParams() Params {
	return Params{
		MasterVolume: 1,
		SourceVolume: 1,
		StereoWidth:  1,
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Clamped returns p with every field forced into its valid range.
func (p Params) Clamped() Params {
	p.MasterVolume = clamp(p.MasterVolume, 0, 2)
	p.SourceVolume = clamp(p.SourceVolume, 0, 1)
	for i := range p.EQGains {
		p.EQGains[i] = clamp(p.EQGains[i], -MaxEQGainDB, MaxEQGainDB)
	}
	p.BassBoost = clamp(p.BassBoost, 0, 1)
	p.SurroundLevel = clamp(p.SurroundLevel, 0, 1)
	p.StereoWidth = clamp(p.StereoWidth, 0, 2)
	return p
}

// Settings is the process-wide settings store. Writers replace the whole
// Params value, so every reader sees a consistent snapshot without
// locking.
type Settings struct {
	p atomic.Pointer[Params]
}

// NewSettings returns a store holding p.
func NewSettings(p Params) *Settings {
	s := &Settings{}
	s.Store(p)
	return s
}

// Snapshot returns the current settings.
func (s *Settings) Snapshot() Params {
	return *s.p.Load()
}

// Store replaces the settings.
func (s *Settings) Store(p Params) {
	p = p.Clamped()
	s.p.Store(&p)
}

// Update applies fn to a copy of the current settings and publishes it,
// retrying if another writer raced it.
func (s *Settings) Update(fn func(*Params)) {
	for {
		old := s.p.Load()
		next := *old
		fn(&next)
		next = next.Clamped()
		if s.p.CompareAndSwap(old, &next) {
			return
		}
	}
}
