// Package safeconv converts between integer types, panicking where a
// conversion would lose information.
package safeconv

import "math"

// MaxInt is the maximum value of int on this platform.
const MaxInt = int(^uint(0) >> 1)

// MustUintToInt converts uint to int, panics on overflow.
// Use only when overflow is logically impossible.
func MustUintToInt(v uint) int {
	if v > uint(MaxInt) {
		panic("safeconv: uint to int overflow")
	}

	return int(v)
}

// MustUintToInt64 converts a byte offset reported as uint to int64.
func MustUintToInt64(v uint) int64 {
	if uint64(v) > math.MaxInt64 {
		panic("safeconv: uint to int64 overflow")
	}

	return int64(v)
}

// MustIntToUint32 converts int to uint32, panics on bounds violation.
// Use only when bounds violations are logically impossible.
func MustIntToUint32(v int) uint32 {
	if v < 0 || uint64(v) > math.MaxUint32 {
		panic("safeconv: int to uint32 out of bounds")
	}

	return uint32(v)
}
