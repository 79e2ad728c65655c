// Package telemetry provides per-iteration solver statistics, phase timing,
// and CSV/YAML export of runs and results.
package telemetry

import (
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// IterationStats holds the recorded state of one solver iteration.
type IterationStats struct {
	Iteration int     `csv:"iteration"`
	Energy    float64 `csv:"energy"`
	Delta     float64 `csv:"delta"` // |E_k - E_k-1|, 0 on the first iteration

	// Energy breakdown by goal kind
	StiffnessEnergy    float64 `csv:"stiffness_energy"`
	MassEnergy         float64 `csv:"mass_energy"`
	TransparencyEnergy float64 `csv:"transparency_energy"`
	ThermalEnergy      float64 `csv:"thermal_energy"`
	BlendEnergy        float64 `csv:"blend_energy"`

	// Kernel density accumulator
	DensityMean float64 `csv:"density_mean"`
	DensityStd  float64 `csv:"density_std"`

	// Neighbor cache
	NeighborsMean      float64 `csv:"neighbors_mean"`
	NeighborsDropped   int     `csv:"neighbors_dropped"`
	NeighborsSaturated int     `csv:"neighbors_saturated"`

	// Purity is each particle's largest concentration; 1 means a single material.
	PurityMean float64 `csv:"purity_mean"`
	PurityP10  float64 `csv:"purity_p10"`
	PurityP50  float64 `csv:"purity_p50"`
	PurityP90  float64 `csv:"purity_p90"`

	SeedsApplied int `csv:"seeds_applied"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ComputeDistribution calculates mean and percentiles of values.
// values is sorted in place.
func ComputeDistribution(values []float64) (mean, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0
	}
	mean = stat.Mean(values, nil)

	sort.Float64s(values)
	p10 = Percentile(values, 0.10)
	p50 = Percentile(values, 0.50)
	p90 = Percentile(values, 0.90)

	return mean, p10, p50, p90
}

// MeanStd returns the mean and population standard deviation of values.
func MeanStd(values []float64) (mean, std float64) {
	switch len(values) {
	case 0:
		return 0, 0
	case 1:
		return values[0], 0
	}
	mean, variance := stat.PopMeanVariance(values, nil)
	if variance < 0 {
		variance = 0
	}
	return mean, math.Sqrt(variance)
}

// LogValue implements slog.LogValuer for structured logging.
func (s IterationStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("iteration", s.Iteration),
		slog.Float64("energy", s.Energy),
		slog.Float64("delta", s.Delta),
		slog.Float64("stiffness", s.StiffnessEnergy),
		slog.Float64("mass", s.MassEnergy),
		slog.Float64("transparency", s.TransparencyEnergy),
		slog.Float64("thermal", s.ThermalEnergy),
		slog.Float64("blend", s.BlendEnergy),
		slog.Float64("density_mean", s.DensityMean),
		slog.Float64("neighbors_mean", s.NeighborsMean),
		slog.Int("neighbors_dropped", s.NeighborsDropped),
		slog.Float64("purity_mean", s.PurityMean),
		slog.Float64("purity_p50", s.PurityP50),
		slog.Int("seeds_applied", s.SeedsApplied),
	)
}

// LogStats logs the iteration stats using slog.
func (s IterationStats) LogStats() {
	slog.Info("iteration", "stats", s)
}
