// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"fmt"
	"math"

	"bandfx/internal/result"
)

// ErrDurationMismatch flags a tick count that strays from the track
// length by more than durationTolerance. It is diagnostic only.
var ErrDurationMismatch = errors.New("analysis: tick count does not match track duration")

const durationTolerance = 0.10

// FramesPerTick returns how many analysis frames make up one tick.
func FramesPerTick(sampleRate float64, hopSize int) float64 {
	return sampleRate / float64(hopSize) / result.TickRate
}

// TickCount returns ceil(frames / framesPerTick).
func TickCount(frames int, framesPerTick float64) int {
	if frames == 0 || framesPerTick <= 0 {
		return 0
	}
	return int(math.Ceil(float64(frames) / framesPerTick))
}

// Aggregate averages hop-rate frames onto the fixed tick grid. Tick t
// covers frames [floor(t·fpt), floor((t+1)·fpt)); ticks without frames
// stay zero.
func Aggregate(frames []Frame, sampleRate float64, hopSize int) Series {
	fpt := FramesPerTick(sampleRate, hopSize)
	ticks := TickCount(len(frames), fpt)

	var out Series
	for b := range out {
		out[b] = make([]float64, ticks)
	}

	for t := range ticks {
		lo := int(math.Floor(float64(t) * fpt))
		hi := min(int(math.Floor(float64(t+1)*fpt)), len(frames))
		if hi <= lo {
			continue
		}
		n := float64(hi - lo)
		for b := range BandCount {
			var sum float64
			for f := lo; f < hi; f++ {
				sum += frames[f][b]
			}
			out[b][t] = sum / n
		}
	}
	return out
}

// CheckDuration compares ticks against the tick count implied by the raw
// frame count of the track.
func CheckDuration(ticks, sampleFrames int, sampleRate float64) error {
	expected := float64(sampleFrames) / sampleRate * result.TickRate
	if expected <= 0 {
		return nil
	}
	if dev := math.Abs(float64(ticks)-expected) / expected; dev > durationTolerance {
		return fmt.Errorf("%w: %d ticks, expected %.1f (%.0f%% off)", ErrDurationMismatch, ticks, expected, dev*100)
	}
	return nil
}
