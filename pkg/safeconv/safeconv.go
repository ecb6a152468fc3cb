// Package safeconv provides checked numeric conversions.
package safeconv

import "math"

// MaxInt is the maximum value for int type (platform-dependent).
const MaxInt = int(^uint(0) >> 1)

// MustUintToInt converts uint to int, panics on overflow.
// Use only when overflow is logically impossible.
func MustUintToInt(v uint) int {
	if v > uint(MaxInt) {
		panic("safeconv: uint to int overflow")
	}

	return int(v)
}

// MustIntToUint converts int to uint, panics if negative.
func MustIntToUint(v int) uint {
	if v < 0 {
		panic("safeconv: negative int to uint conversion")
	}

	return uint(v)
}

// RoundToUint64 rounds half away from zero and clamps into [0, MaxUint64].
// NaN maps to 0.
func RoundToUint64(v float64) uint64 {
	r := math.Round(v)

	switch {
	case math.IsNaN(r) || r <= 0:
		return 0
	case r >= math.MaxUint64:
		return math.MaxUint64
	default:
		return uint64(r)
	}
}

// Uint64ToFloat64 widens a counter for metric recording.
func Uint64ToFloat64(v uint64) float64 {
	return float64(v)
}

// Uint64ToInt64 converts a counter for APIs that take int64, saturating at MaxInt64.
func Uint64ToInt64(v uint64) int64 {
	if v > math.MaxInt64 {
		return math.MaxInt64
	}

	return int64(v)
}
