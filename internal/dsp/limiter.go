// SPDX-License-Identifier: MIT
package dsp

import "math"

const (
	LimiterThreshold = 0.95
	limiterAttack    = 0.0001 // seconds
	limiterRelease   = 0.1    // seconds

	softClipKnee = 0.05
)

// Limiter is a per-sample peak limiter with one gain shared by all
// channels. Its gain never exceeds 1.
type Limiter struct {
	threshold float64
	attack    float64 // smoothing coefficient while reducing gain
	release   float64 // smoothing coefficient while recovering
	gain      float64
}

// NewLimiter returns a limiter at unity gain for sampleRate.
func NewLimiter(sampleRate float64) *Limiter {
	return &Limiter{
		threshold: LimiterThreshold,
		attack:    math.Exp(-1 / (limiterAttack * sampleRate)),
		release:   math.Exp(-1 / (limiterRelease * sampleRate)),
		gain:      1,
	}
}

// Gain returns the current gain reduction factor.
func (l *Limiter) Gain() float64 { return l.gain }

// Process limits one sample. The smoothed gain is snapped to the target
// whenever smoothing alone would let the sample pass the threshold.
func (l *Limiter) Process(x float64) float64 {
	abs := math.Abs(x)
	target := 1.0
	if abs > l.threshold {
		target = l.threshold / abs
	}

	if target < l.gain {
		l.gain += (target - l.gain) * (1 - l.attack)
	} else {
		l.gain += (target - l.gain) * (1 - l.release)
	}
	l.gain = math.Min(l.gain, 1)

	if abs*l.gain > l.threshold {
		l.gain = target
	}
	return x * l.gain
}

// SoftClip passes |x| <= 0.95 unchanged and bends anything beyond into a
// tanh knee that approaches full scale without reaching it.
func SoftClip(x float64) float64 {
	abs := math.Abs(x)
	if abs <= LimiterThreshold {
		return x
	}
	y := LimiterThreshold + softClipKnee*math.Tanh((abs-LimiterThreshold)/softClipKnee)
	return math.Copysign(y, x)
}
