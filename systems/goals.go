package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/alloy/components"
)

// GoalForces biases particle composition toward the active goals.
// Like Diffuser it computes all deltas before committing any.
type GoalForces struct {
	// Workers parallelizes both passes. Nil runs inline.
	Workers *WorkerPool

	delta [][]float64
}

// NewGoalForces creates a goal-force step that runs its passes on workers.
func NewGoalForces(workers *WorkerPool) *GoalForces {
	return &GoalForces{Workers: workers}
}

// Apply accumulates per-material bias from every goal acting on each
// particle, then commits c += delta * strength * dt with clamping and
// renormalization. table must describe at least pool.MaterialCount channels.
//
// Each particle's bias vector is centered on its mean across materials, so a
// goal moves composition from low-bias to high-bias materials. A uniform
// shift of every channel would otherwise vanish in renormalization.
func (g *GoalForces) Apply(pool *ParticlePool, goals []components.Goal, table *components.MaterialTable, strength, dt float64) {
	mc := pool.MaterialCount
	g.delta = newDeltaBuffer(g.delta, mc, pool.Capacity)
	delta := g.delta

	// Pass 1: accumulate.
	g.Workers.Run(pool.Count, func(start, end int) {
		for i := start; i < end; i++ {
			for m := 0; m < mc; m++ {
				delta[m][i] = 0
			}
			pos := pool.Position(i)
			for gi := range goals {
				goal := &goals[gi]
				if goal.Weight == 0 || !goal.Applies(pos) {
					continue
				}
				accumulateGoalBias(delta, i, mc, pos, goal, table)
			}

			var mean float64
			for m := 0; m < mc; m++ {
				mean += delta[m][i]
			}
			mean /= float64(mc)
			for m := 0; m < mc; m++ {
				delta[m][i] -= mean
			}
		}
	})

	// Pass 2: commit.
	scale := strength * dt
	g.Workers.Run(pool.Count, func(start, end int) {
		pool.applyDeltas(delta, scale, start, end)
	})
}

// accumulateGoalBias adds one goal's per-material bias for particle i.
func accumulateGoalBias(delta [][]float64, i, mc int, pos r3.Vec, goal *components.Goal, table *components.MaterialTable) {
	w := goal.Weight

	switch p := goal.Params.(type) {
	case components.StiffnessGoal:
		align := loadAlignment(r3.Sub(pos, p.LoadPoint), p.Load)
		if align == 0 {
			return
		}
		coef := w * p.Penalty * align
		for m := 0; m < mc; m++ {
			delta[m][i] += coef * table.StiffnessRatio[m]
		}

	case components.MassGoal:
		coef := -w * (1 - p.TargetFraction) * p.DensityPenalty
		for m := 0; m < mc; m++ {
			delta[m][i] += coef * table.DensityRatio[m]
		}

	case components.TransparencyGoal:
		coef := w * p.OpticalWeight
		for m := 0; m < mc; m++ {
			delta[m][i] += coef * table.OpticalRatio[m]
		}

	case components.ThermalGoal:
		coef := w * p.ThermalWeight
		for m := 0; m < mc; m++ {
			r := table.ThermalRatio[m]
			if p.Mode == components.ThermalInsulate {
				r = 1 - r
			}
			delta[m][i] += coef * r
		}

	case components.BlendGoal:
		// Diffusion already blends; blend goals only score energy.
	}
}

// loadAlignment maps the angle between rel and load to [0, 1]:
// 1 along the load, 0 against it. Zero-length inputs give 0.
func loadAlignment(rel, load r3.Vec) float64 {
	rn := r3.Norm(rel)
	ln := r3.Norm(load)
	if rn == 0 || ln == 0 || math.IsNaN(rn) || math.IsNaN(ln) {
		return 0
	}
	cos := r3.Dot(rel, load) / (rn * ln)
	return (cos + 1) / 2
}
