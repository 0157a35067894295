// SPDX-License-Identifier: MIT
package analysis

import (
	"bandfx/internal/result"
	"math"
)

// BandCount is the number of fixed frequency bands.
const BandCount = result.BandCount

// FrequencyBand describes one fixed analysis band. A band covers
// (LowHz, HighHz]; band 0 starts at DC and the last band is open ended.
type FrequencyBand struct {
	Index  int
	Name   string
	LowHz  float64
	HighHz float64
}

// Bands is the fixed, exhaustive partition of the spectrum used by both
// analysis and effect consumers.
var Bands = [BandCount]FrequencyBand{
	{0, "sub", 0, 40},
	{1, "deep bass", 40, 80},
	{2, "bass", 80, 150},
	{3, "upper bass", 150, 300},
	{4, "low mid", 300, 500},
	{5, "mid", 500, 800},
	{6, "upper mid", 800, 1200},
	{7, "low presence", 1200, 2000},
	{8, "presence", 2000, 4000},
	{9, "brilliance", 4000, 8000},
	{10, "high", 8000, 12000},
	{11, "air", 12000, math.Inf(1)},
}

// BandForFrequency returns the index of the first band whose upper
// cutoff is >= hz. Frequencies above the last cutoff map to band 11.
func BandForFrequency(hz float64) int {
	for i := range BandCount - 1 {
		if hz <= Bands[i].HighHz {
			return i
		}
	}
	return BandCount - 1
}

// Frame holds the power of each band in dB for one analysis window.
type Frame [BandCount]float64

// Series is a per-band sequence of values, one per tick.
type Series [BandCount][]float64
