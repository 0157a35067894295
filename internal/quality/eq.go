// SPDX-License-Identifier: MIT
package quality

import "math"

// Correction curves in dB at full strength, 32 Hz .. 16 kHz.
var eqWeights = map[Tag][EQBands]float64{
	BassHeavy:   {-4, -3.5, -3, -2, -1, 0, 0.5, 1, 1.5, 1.5},
	MidHeavy:    {1, 1, 0.5, 0, -1.5, -2, -1.5, 0, 1, 1},
	TrebleHeavy: {1.5, 1.5, 1, 0.5, 0, 0, -1, -2, -3, -4},
}

// excess returns how far the dominant ratio of tag is past its
// classification threshold.
func excess(tag Tag, b Balance) float64 {
	switch tag {
	case BassHeavy:
		return b.Bass - bassThreshold
	case MidHeavy:
		return b.Mid - midThreshold
	case TrebleHeavy:
		return b.High - trebleThreshold
	default:
		return 0
	}
}

func recommendEQ(tag Tag, b Balance) [EQBands]float64 {
	var eq [EQBands]float64
	weights, ok := eqWeights[tag]
	if !ok {
		return eq
	}
	strength := math.Min(1, excess(tag, b)*excessScale)
	for i, w := range weights {
		eq[i] = math.Max(-maxEQAdjustDB, math.Min(maxEQAdjustDB, w*strength))
	}
	return eq
}
