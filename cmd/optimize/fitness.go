package main

import (
	"math"
	"sync"

	"github.com/pthm-cable/alloy/config"
	"github.com/pthm-cable/alloy/solver"
)

// Fitness penalty weights.
const (
	notConvergedPenalty = 0.1  // per fraction of seeds that hit the iteration cap
	truncationPenalty   = 0.05 // per fraction of neighbor candidates dropped
)

// FitnessEvaluator runs headless solves and computes fitness.
type FitnessEvaluator struct {
	params     *ParamVector
	seeds      []int64
	baseConfig *config.Config

	mu          sync.Mutex
	bestFitness float64
	lastStats   runSummary // from the most recent Evaluate call
}

// runSummary aggregates one evaluation across seeds.
type runSummary struct {
	MeanEnergy     float64
	ConvergedRatio float64
	MeanIterations float64
}

// seedResult holds the result from one seed.
type seedResult struct {
	energy     float64
	converged  bool
	iterations int
	dropRatio  float64
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		seeds:       seeds,
		baseConfig:  baseCfg,
		bestFitness: math.Inf(1),
	}
}

// LastSummary returns the aggregate of the most recent evaluation.
func (fe *FitnessEvaluator) LastSummary() runSummary {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastStats
}

// Evaluate computes fitness for a parameter vector (lower = better):
// mean final energy over seeds plus penalties for not converging and for
// neighbor truncation.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	results := make([]seedResult, len(fe.seeds))
	var wg sync.WaitGroup

	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			results[idx] = fe.runSolve(x, s)
		}(i, seed)
	}
	wg.Wait()

	var energySum, dropSum, iterSum float64
	converged := 0
	for _, r := range results {
		energySum += r.energy
		dropSum += r.dropRatio
		iterSum += float64(r.iterations)
		if r.converged {
			converged++
		}
	}

	n := float64(len(fe.seeds))
	summary := runSummary{
		MeanEnergy:     energySum / n,
		ConvergedRatio: float64(converged) / n,
		MeanIterations: iterSum / n,
	}
	fitness := summary.MeanEnergy +
		notConvergedPenalty*(1-summary.ConvergedRatio) +
		truncationPenalty*dropSum/n

	if math.IsNaN(fitness) {
		fitness = math.Inf(1)
	}

	fe.mu.Lock()
	if fitness < fe.bestFitness {
		fe.bestFitness = fitness
	}
	fe.lastStats = summary
	fe.mu.Unlock()

	return fitness
}

// runSolve executes a single sequential solve. Seeds already run in
// parallel, so each solve uses one worker.
func (fe *FitnessEvaluator) runSolve(x []float64, seed int64) seedResult {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)

	problem, opts, err := solver.FromConfig(cfg)
	if err != nil {
		return seedResult{energy: math.Inf(1)}
	}
	opts.Seed = seed
	opts.Workers = 1
	opts.LogInterval = 0
	opts.FieldResolution = 0

	s, err := solver.New(problem, opts)
	if err != nil {
		return seedResult{energy: math.Inf(1)}
	}
	res := s.Run()

	var dropRatio float64
	if candidates := res.NeighborsTotal + res.NeighborsDropped; candidates > 0 {
		dropRatio = float64(res.NeighborsDropped) / float64(candidates)
	}

	return seedResult{
		energy:     res.Energy.Total,
		converged:  res.Converged,
		iterations: res.Iterations,
		dropRatio:  dropRatio,
	}
}

// copyConfig creates a copy of the base config that ApplyToConfig can edit.
// Slices are shared; the solver only reads them.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	return &cfg
}
