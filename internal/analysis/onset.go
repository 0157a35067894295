// SPDX-License-Identifier: MIT
package analysis

import "math"

const (
	minThreshold    = 0.2
	rangeFactor     = 0.02
	stdFactor       = 0.15
	silenceFloorDB  = -80.0
	relMarkRatio    = 0.03
	relPeakRatio    = 0.02
	relScale        = 15.0
	peakBonus       = 1.2
	fluxWeight      = 0.25
	accelWeight     = 0.15
	slopeMinDB      = 0.5
	coherenceWeight = 0.1
)

// Local windows (in ticks) and their weights for the multi-scale pass.
var (
	onsetWindows = [...]int{1, 2, 3, 5, 8}
	onsetWeights = [...]float64{0.35, 0.30, 0.20, 0.10, 0.05}
)

type seriesStats struct {
	mean, min, max, std float64
}

func describe(v []float64) seriesStats {
	st := seriesStats{min: v[0], max: v[0]}
	var sum float64
	for _, x := range v {
		sum += x
		st.min = math.Min(st.min, x)
		st.max = math.Max(st.max, x)
	}
	st.mean = sum / float64(len(v))

	var sq float64
	for _, x := range v {
		d := x - st.mean
		sq += d * d
	}
	st.std = math.Sqrt(sq / float64(len(v)))
	return st
}

// DetectOnsets turns a band's per-tick energy (dB) into a non-negative
// onset strength series of the same length. Every pass reads energy and
// adds into the returned series.
func DetectOnsets(energy []float64) []float64 {
	onset := make([]float64, len(energy))
	if len(energy) == 0 {
		return onset
	}

	st := describe(energy)
	threshold := math.Max(minThreshold, math.Min((st.max-st.min)*rangeFactor, st.std*stdFactor))

	multiScale(energy, st.mean, threshold, onset)
	spectralFlux(energy, onset)
	phaseCoherence(energy, onset)
	return onset
}

// isPeak reports whether i is a local maximum: not below its successor
// and strictly above its predecessor. Missing neighbours always qualify.
func isPeak(v []float64, i int) bool {
	return (i == len(v)-1 || v[i] >= v[i+1]) && (i == 0 || v[i] > v[i-1])
}

func multiScale(energy []float64, mean, threshold float64, onset []float64) {
	for wi, w := range onsetWindows {
		weight := onsetWeights[wi]
		for i, e := range energy {
			localAvg := mean
			if i > 0 {
				lo := max(0, i-w)
				var sum float64
				for _, x := range energy[lo:i] {
					sum += x
				}
				localAvg = sum / float64(i-lo)
			}

			increase := e - localAvg
			var rel float64
			if localAvg > silenceFloorDB {
				rel = increase / (math.Abs(localAvg) + 1)
			}

			peak := isPeak(energy, i)
			if increase > threshold || rel > relMarkRatio || (peak && rel > relPeakRatio) {
				contrib := math.Max(increase, rel*relScale) * weight
				if peak {
					contrib *= peakBonus
				}
				onset[i] += contrib
			}
		}
	}
}

func spectralFlux(energy, onset []float64) {
	var prevFlux float64
	for i := 1; i < len(energy); i++ {
		flux := math.Abs(energy[i] - energy[i-1])
		var accel float64
		if i >= 2 {
			accel = math.Abs(flux - prevFlux)
		}
		onset[i] += flux*fluxWeight + accel*accelWeight
		prevFlux = flux
	}
}

func phaseCoherence(energy, onset []float64) {
	for i := 2; i < len(energy)-2; i++ {
		in := energy[i] - energy[i-1]
		out := energy[i+1] - energy[i]
		if in*out < 0 && math.Abs(in) > slopeMinDB {
			onset[i] += math.Abs(in) * coherenceWeight
		}
	}
}

// Normalize rescales series in place to [0, 1] by min-max. A constant
// series is left unchanged.
func Normalize(series []float64) {
	if len(series) == 0 {
		return
	}
	lo, hi := series[0], series[0]
	for _, v := range series {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	span := hi - lo
	if span == 0 {
		return
	}
	for i, v := range series {
		series[i] = (v - lo) / span
	}
}
