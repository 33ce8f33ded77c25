// SPDX-License-Identifier: MIT
//
// Package bitint provides power-of-2 helpers used for FFT window and ring
// buffer sizing. All operations are O(1), allocation-free and real-time safe.
package bitint

import "math/bits"

// NextPowerOfTwo returns the next power of 2 >= size.
// For values that are already a power of 2 the same value is returned;
// the subtraction of 1 before bits.Len is what prevents those from being
// doubled. Non-positive input returns 1.
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}

	// 64-bit platforms (where int is 64-bit)
	if ^uint(0)>>63 == 0 {
		return int(1 << (bits.Len64(uint64(size - 1))))
	}

	// 32-bit platforms
	return int(1 << (bits.Len32(uint32(size - 1))))
}

// NextPowerOfTwo64 is NextPowerOfTwo for explicit 64-bit sizes, used when
// sizing ring buffers whose cursors are 64-bit monotonic counters.
func NextPowerOfTwo64(size int64) int64 {
	if size <= 0 {
		return 1
	}
	return int64(1 << (bits.Len64(uint64(size - 1))))
}

// IsPowerOfTwo reports whether n is a power of 2. Powers of 2 have exactly
// one bit set, so n&(n-1) clears it and leaves zero.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}
