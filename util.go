package harmonia

import "golang.org/x/exp/constraints"

// Clamp limits value to the inclusive range [min, max].
func Clamp[T constraints.Ordered](value, min, max T) T {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
