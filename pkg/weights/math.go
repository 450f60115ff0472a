package weights

import "math"

// Tolerances used when comparing weights.
const (
	RelTolerance = 1e-9
	AbsTolerance = 1e-15
)

// IsClose reports whether a and b are equal within the relative and
// absolute weight tolerances.
func IsClose(a, b float64) bool {
	return math.Abs(a-b) <= math.Max(RelTolerance*math.Max(math.Abs(a), math.Abs(b)), AbsTolerance)
}

// Clamp limits value to [lo, hi].
func Clamp(lo, hi, value float64) float64 {
	return math.Max(lo, math.Min(value, hi))
}

// RemapRange converts value from one range to another.
func RemapRange(oldMin, oldMax, newMin, newMax, value float64) float64 {
	return (value-oldMin)*(newMax-newMin)/(oldMax-oldMin) + newMin
}

// PercentToMultiplier maps a scale percentage in [-100, 100] onto a
// multiplier in [0, 2], the way the scale field reads it.
func PercentToMultiplier(percent float64) float64 {
	return RemapRange(-100, 100, 0, 2, percent)
}
