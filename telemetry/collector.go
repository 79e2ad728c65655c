package telemetry

import (
	"math"

	"github.com/pthm-cable/alloy/components"
	"github.com/pthm-cable/alloy/systems"
)

// Collector accumulates per-iteration events and produces IterationStats.
type Collector struct {
	prevEnergy float64
	hasPrev    bool

	// Event counters for the current iteration
	seedsApplied int
	neighbors    systems.NeighborStats

	// Scratch reused across Collect calls
	density []float64
	purity  []float64
}

// NewCollector creates a new stats collector.
func NewCollector() *Collector {
	return &Collector{}
}

// RecordSeeds records n seed applications.
func (c *Collector) RecordSeeds(n int) {
	c.seedsApplied += n
}

// RecordNeighbors records the outcome of the neighbor pass.
func (c *Collector) RecordNeighbors(ns systems.NeighborStats) {
	c.neighbors.Total += ns.Total
	c.neighbors.Dropped += ns.Dropped
	c.neighbors.Saturated += ns.Saturated
}

// Collect produces the stats of one iteration from the current pool and
// energy, then resets the event counters.
func (c *Collector) Collect(iteration int, energy systems.Energy, pool *systems.ParticlePool) IterationStats {
	var delta float64
	if c.hasPrev {
		delta = math.Abs(energy.Total - c.prevEnergy)
	}
	c.prevEnergy = energy.Total
	c.hasPrev = true

	n := pool.Count
	c.density = append(c.density[:0], pool.Pressure[:n]...)
	c.purity = c.purity[:0]
	for i := 0; i < n; i++ {
		c.purity = append(c.purity, pool.Materials[pool.Dominant(i)][i])
	}

	densityMean, densityStd := MeanStd(c.density)
	purityMean, p10, p50, p90 := ComputeDistribution(c.purity)

	var neighborsMean float64
	if n > 0 {
		neighborsMean = float64(c.neighbors.Total) / float64(n)
	}

	stats := IterationStats{
		Iteration: iteration,
		Energy:    energy.Total,
		Delta:     delta,

		StiffnessEnergy:    energy.Kind(components.GoalStiffness),
		MassEnergy:         energy.Kind(components.GoalMass),
		TransparencyEnergy: energy.Kind(components.GoalTransparency),
		ThermalEnergy:      energy.Kind(components.GoalThermal),
		BlendEnergy:        energy.Kind(components.GoalBlend),

		DensityMean: densityMean,
		DensityStd:  densityStd,

		NeighborsMean:      neighborsMean,
		NeighborsDropped:   c.neighbors.Dropped,
		NeighborsSaturated: c.neighbors.Saturated,

		PurityMean: purityMean,
		PurityP10:  p10,
		PurityP50:  p50,
		PurityP90:  p90,

		SeedsApplied: c.seedsApplied,
	}

	// Reset for next iteration
	c.seedsApplied = 0
	c.neighbors = systems.NeighborStats{}

	return stats
}
