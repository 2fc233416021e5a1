package util

import (
	"cmp"
	"math"
)

// Clamp clamps val to the range [min, max] for any ordered type.
func Clamp[T cmp.Ordered](val, min, max T) T {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// ClampByte rounds a float channel value and clamps it into [0, 255].
func ClampByte(val float64) uint8 {
	return uint8(Clamp(math.Round(val), 0, 255))
}

// Lerp interpolates linearly between from and to, t in [0, 1].
func Lerp(from, to, t float64) float64 {
	return from + (to-from)*t
}
