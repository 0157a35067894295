// SPDX-License-Identifier: MIT
package dsp

import "math"

// MaxChannels is the widest layout a filter keeps history for.
const MaxChannels = 2

// nyquistGuard is the fraction of the sample rate at or above which a
// filter degrades to unity pass-through.
const nyquistGuard = 0.49

// Coefficients of a normalized second-order section (a0 == 1).
type Coefficients struct {
	B0, B1, B2 float64
	A1, A2     float64
}

// Unity passes the input through unchanged.
var Unity = Coefficients{B0: 1}

func normalize(b0, b1, b2, a0, a1, a2 float64) Coefficients {
	return Coefficients{
		B0: b0 / a0,
		B1: b1 / a0,
		B2: b2 / a0,
		A1: a1 / a0,
		A2: a2 / a0,
	}
}

// PeakingEQ designs an RBJ peaking filter.
func PeakingEQ(sampleRate, freq, q, gainDB float64) Coefficients {
	if freq <= 0 || freq >= nyquistGuard*sampleRate || q <= 0 {
		return Unity
	}
	a := math.Pow(10, gainDB/40)
	w0 := 2 * math.Pi * freq / sampleRate
	cosW, sinW := math.Cos(w0), math.Sin(w0)
	alpha := sinW / (2 * q)

	return normalize(
		1+alpha*a,
		-2*cosW,
		1-alpha*a,
		1+alpha/a,
		-2*cosW,
		1-alpha/a,
	)
}

// LowShelf designs an RBJ low-shelf filter.
func LowShelf(sampleRate, freq, q, gainDB float64) Coefficients {
	if freq <= 0 || freq >= nyquistGuard*sampleRate || q <= 0 {
		return Unity
	}
	a := math.Pow(10, gainDB/40)
	w0 := 2 * math.Pi * freq / sampleRate
	cosW, sinW := math.Cos(w0), math.Sin(w0)
	alpha := sinW / (2 * q)
	k := 2 * math.Sqrt(a) * alpha

	return normalize(
		a*((a+1)-(a-1)*cosW+k),
		2*a*((a-1)-(a+1)*cosW),
		a*((a+1)-(a-1)*cosW-k),
		(a+1)+(a-1)*cosW+k,
		-2*((a-1)+(a+1)*cosW),
		(a+1)+(a-1)*cosW-k,
	)
}

type history struct {
	x1, x2, y1, y2 float64
}

// Biquad is a direct-form I filter with independent history per channel.
type Biquad struct {
	c     Coefficients
	state [MaxChannels]history
}

// NewBiquad returns a filter with empty history.
func NewBiquad(c Coefficients) *Biquad {
	return &Biquad{c: c}
}

// SetCoefficients swaps the coefficients and keeps the history, so a
// live change produces a short transient instead of a reset.
func (f *Biquad) SetCoefficients(c Coefficients) { f.c = c }

// Coefficients returns the current coefficients.
func (f *Biquad) Coefficients() Coefficients { return f.c }

// Reset clears the history of every channel.
func (f *Biquad) Reset() { f.state = [MaxChannels]history{} }

// Process filters one sample of channel ch.
func (f *Biquad) Process(ch int, x float64) float64 {
	s := &f.state[ch]
	c := &f.c
	y := c.B0*x + c.B1*s.x1 + c.B2*s.x2 - c.A1*s.y1 - c.A2*s.y2
	s.x2, s.x1 = s.x1, x
	s.y2, s.y1 = s.y1, y
	return y
}
