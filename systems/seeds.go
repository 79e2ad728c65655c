package systems

import (
	"math"

	"github.com/pthm-cable/alloy/components"
)

// ApplySeeds injects material around each seed point. Every particle within
// the seed radius (inclusive) gains strength * (1 - d/radius)^2 of the seed
// material, clamped to 1, and is then renormalized. Seeds apply in order, so
// overlapping seeds are order-dependent. Seeds with a non-positive radius or
// an unknown material are skipped.
func (p *ParticlePool) ApplySeeds(seeds []components.Seed) {
	for _, s := range seeds {
		if !(s.Radius > 0) || s.Material < 0 || s.Material >= p.MaterialCount {
			continue
		}
		radiusSq := s.Radius * s.Radius
		channel := p.Materials[s.Material]

		for i := 0; i < p.Count; i++ {
			d2 := distanceSq(p.X[i], p.Y[i], p.Z[i], s.Position.X, s.Position.Y, s.Position.Z)
			if d2 > radiusSq {
				continue
			}
			falloff := 1 - math.Sqrt(d2)/s.Radius
			channel[i] = clamp01(channel[i] + s.Strength*falloff*falloff)
			p.Normalize(i)
		}
	}
}

// DueSeeds appends to dst the repeating seeds that fire on iteration.
func DueSeeds(seeds []components.Seed, iteration int, dst []components.Seed) []components.Seed {
	for _, s := range seeds {
		if s.Due(iteration) {
			dst = append(dst, s)
		}
	}
	return dst
}

// OneShotSeeds returns the seeds applied once at initialization.
func OneShotSeeds(seeds []components.Seed) []components.Seed {
	var out []components.Seed
	for _, s := range seeds {
		if !s.Repeats() {
			out = append(out, s)
		}
	}
	return out
}
