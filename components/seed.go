package components

import "gonum.org/v1/gonum/spatial/r3"

// Seed injects material concentration near a fixed point.
type Seed struct {
	Position r3.Vec
	Radius   float64
	Material int     // channel index
	Strength float64 // peak concentration increase at the seed center
	Interval int     // 0 = apply once at initialization, k > 0 = every k iterations
}

// Repeats reports whether the seed is re-applied during the solve.
func (s Seed) Repeats() bool {
	return s.Interval > 0
}

// Due reports whether a repeating seed fires on the given iteration.
func (s Seed) Due(iteration int) bool {
	return s.Interval > 0 && iteration%s.Interval == 0
}
