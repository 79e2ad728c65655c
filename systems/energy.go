package systems

import (
	"math"

	"github.com/pthm-cable/alloy/components"
)

// Energy is the multi-goal objective for one iteration. It is a monitoring
// signal for convergence, not a quantity the passes descend on.
type Energy struct {
	Total  float64
	ByKind [components.NumGoalKinds]float64
	Terms  []float64 // per goal, in goal order
}

// Kind returns the summed energy of all goals of kind k.
func (e Energy) Kind(k components.GoalKind) float64 {
	return e.ByKind[k]
}

// ComputeEnergy scores the pool against the goals. Per-goal means run over
// the particles inside the goal region; a region with no particles scores 0.
// Blend terms read the neighbor cache, so it must be current. Sums are
// sequential in index order so results are reproducible.
func ComputeEnergy(pool *ParticlePool, goals []components.Goal, table *components.MaterialTable) Energy {
	e := Energy{Terms: make([]float64, len(goals))}

	for gi := range goals {
		goal := &goals[gi]
		var term float64

		switch p := goal.Params.(type) {
		case components.StiffnessGoal:
			if mean, ok := meanWeightedRatio(pool, goal, table.StiffnessRatio); ok {
				term = goal.Weight * (1 - mean)
			}
		case components.MassGoal:
			if mean, ok := meanWeightedRatio(pool, goal, table.DensityRatio); ok {
				term = goal.Weight * math.Abs(mean-p.TargetFraction)
			}
		case components.TransparencyGoal:
			if mean, ok := meanWeightedRatio(pool, goal, table.OpticalRatio); ok {
				term = goal.Weight * (1 - mean)
			}
		case components.ThermalGoal:
			if mean, ok := meanWeightedRatio(pool, goal, table.ThermalRatio); ok {
				if p.Mode == components.ThermalInsulate {
					term = goal.Weight * mean
				} else {
					term = goal.Weight * (1 - mean)
				}
			}
		case components.BlendGoal:
			term = goal.Weight * meanNeighborDifference(pool, goal)
		}

		e.Terms[gi] = term
		if goal.Params != nil {
			e.ByKind[goal.Params.Kind()] += term
		}
		e.Total += term
	}

	return e
}

// meanWeightedRatio averages sum_m c[m][i] * ratio[m] over particles in the
// goal region. ok is false when the region holds no particles.
func meanWeightedRatio(pool *ParticlePool, goal *components.Goal, ratio []float64) (float64, bool) {
	var sum float64
	n := 0
	for i := 0; i < pool.Count; i++ {
		if !goal.Applies(pool.Position(i)) {
			continue
		}
		var v float64
		for m := range pool.Materials {
			v += pool.Materials[m][i] * ratio[m]
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// meanNeighborDifference averages, over particles in the goal region that
// have at least one other neighbor, the mean absolute concentration
// difference to those neighbors across all materials.
func meanNeighborDifference(pool *ParticlePool, goal *components.Goal) float64 {
	var sum float64
	n := 0
	mc := float64(pool.MaterialCount)
	for i := 0; i < pool.Count; i++ {
		if !goal.Applies(pool.Position(i)) {
			continue
		}
		var diff float64
		others := 0
		for _, nj := range pool.NeighborsOf(i) {
			j := int(nj)
			if j == i {
				continue
			}
			for m := range pool.Materials {
				diff += math.Abs(pool.Materials[m][j] - pool.Materials[m][i])
			}
			others++
		}
		if others == 0 {
			continue
		}
		sum += diff / (float64(others) * mc)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
