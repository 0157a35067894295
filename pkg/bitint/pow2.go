/*
Package bitint provides the power-of-two helpers used to size FFT windows
and delay lines.

Both helpers are O(1), allocation free and safe to call from the
playback hot path.

	// FFT window sizes must be powers of two.
	ok := bitint.IsPowerOfTwo(2048) // true

	// A 441-sample delay line is backed by a 512-slot ring so that
	// indices wrap with a mask instead of a modulo.
	size := bitint.NextPowerOfTwo(441) // 512
	mask := size - 1

NextPowerOfTwo subtracts one before taking the bit length so that exact
powers of two map onto themselves: 8-1 = 0b0111 has length 3 and 1<<3 is
8 again, whereas bits.Len(8) would be 4 and double the input.
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of two >= size. Non-positive
// sizes yield 1.
func NextPowerOfTwo(size int) int {
	if size <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of two. A power of
// two has a single bit set, so clearing its lowest set bit leaves zero.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// Mask returns size-1 for a power-of-two size, the wrap mask for a ring
// buffer of that capacity. It panics on other sizes since a wrong mask
// silently corrupts the ring.
func Mask(size int) int {
	if !IsPowerOfTwo(size) {
		panic("bitint: mask requested for non power-of-two size")
	}
	return size - 1
}
