// SPDX-License-Identifier: MIT
package dsp

import "encoding/binary"

// PeakLevel returns the largest absolute sample of a 16-bit LE chunk,
// normalized to [0, 1]. The absolute value and running maximum are
// computed without branches.
func PeakLevel(chunk []byte) float64 {
	var peak int32
	for i := 0; i+1 < len(chunk); i += 2 {
		sample := int32(int16(binary.LittleEndian.Uint16(chunk[i:])))
		mask := sample >> 31
		amplitude := (sample ^ mask) - mask
		diff := amplitude - peak
		peak += (diff & (diff >> 31)) ^ diff
	}
	return float64(peak) / 32768
}
