// Package solver drives the particle passes toward a material distribution
// that satisfies the configured goals.
package solver

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"golang.org/x/exp/rand"

	"github.com/pthm-cable/alloy/components"
	"github.com/pthm-cable/alloy/systems"
	"github.com/pthm-cable/alloy/telemetry"
)

// ErrNoMaterials is returned when a problem has an empty material table.
var ErrNoMaterials = errors.New("no materials")

// Problem describes what to solve.
type Problem struct {
	Bounds    components.Bounds
	Materials *components.MaterialTable
	Goals     []components.Goal
	Seeds     []components.Seed

	Count    int // live particles
	Capacity int // 0 = Count

	ParticleRadius float64
	BaseMass       float64
	Temperature    float64
}

// Options controls how the solve runs.
type Options struct {
	Iterations int
	Tolerance  float64 // converged when |E_k - E_k-1| < Tolerance

	DT            float64
	BlendStrength float64
	GoalStrength  float64

	SmoothingRadius float64 // kernel support and neighbor radius
	CellSize        float64 // 0 = SmoothingRadius
	MaxNeighbors    int     // 0 = systems.DefaultMaxNeighbors
	Workers         int     // 0 = GOMAXPROCS, 1 = sequential

	FieldResolution int // cells per axis of the result field, 0 = no field

	Seed   int64
	Random systems.RandomSource // overrides Seed when set

	LogInterval int // iterations between progress logs, 0 = off
	Perf        *telemetry.PerfCollector
	Output      *telemetry.OutputManager
	OnIteration func(telemetry.IterationStats)
}

// Result is the outcome of a solve.
type Result struct {
	Converged     bool
	Iterations    int
	EnergyHistory []float64
	Energy        systems.Energy // final iteration
	Field         *systems.VoxelField
	Pool          *systems.ParticlePool

	// Neighbor cache totals summed over all iterations
	NeighborsTotal     int
	NeighborsDropped   int
	NeighborsSaturated int

	Duration time.Duration
}

// Solver owns the particle pool and the passes that mutate it.
type Solver struct {
	problem Problem
	opts    Options

	pool       *systems.ParticlePool
	hash       *systems.SpatialHash
	kernel     systems.Kernel
	diffuser   *systems.Diffuser
	goalForces *systems.GoalForces
	workers    *systems.WorkerPool
	rates      []float64

	repeating []components.Seed
	due       []components.Seed

	collector *telemetry.Collector
	perf      *telemetry.PerfCollector

	neighbors, dropped, saturated int
	warnedTruncation   bool
}

// New allocates the pool, scatters the particles and applies one-shot seeds.
func New(problem Problem, opts Options) (*Solver, error) {
	if problem.Materials == nil || problem.Materials.Len() == 0 {
		return nil, fmt.Errorf("solver: %w", ErrNoMaterials)
	}

	capacity := problem.Capacity
	if capacity < problem.Count {
		capacity = problem.Count
	}
	maxNeighbors := opts.MaxNeighbors
	if maxNeighbors == 0 {
		maxNeighbors = systems.DefaultMaxNeighbors
	}

	pool, err := systems.NewParticlePool(capacity, problem.Materials.Len(), maxNeighbors)
	if err != nil {
		return nil, fmt.Errorf("solver: %w", err)
	}

	rng := opts.Random
	if rng == nil {
		rng = rand.New(rand.NewSource(uint64(opts.Seed)))
	}
	pool.Initialize(problem.Count, problem.Bounds, problem.ParticleRadius, problem.BaseMass, problem.Temperature, rng)
	pool.ApplySeeds(systems.OneShotSeeds(problem.Seeds))

	if opts.CellSize <= 0 {
		opts.CellSize = opts.SmoothingRadius
	}
	if opts.Perf == nil {
		opts.Perf = telemetry.NewPerfCollector(10)
	}

	var workers *systems.WorkerPool
	if opts.Workers != 1 {
		workers = systems.NewWorkerPool(opts.Workers)
	}
	hash := systems.NewSpatialHash()
	hash.Workers = workers

	s := &Solver{
		problem:    problem,
		opts:       opts,
		pool:       pool,
		hash:       hash,
		kernel:     systems.NewKernel(opts.SmoothingRadius),
		diffuser:   systems.NewDiffuser(workers),
		goalForces: systems.NewGoalForces(workers),
		workers:    workers,
		rates:      problem.Materials.Diffusivities(),
		collector:  telemetry.NewCollector(),
		perf:       opts.Perf,
	}
	for _, seed := range problem.Seeds {
		if seed.Repeats() {
			s.repeating = append(s.repeating, seed)
		}
	}

	return s, nil
}

// Pool returns the particle pool.
func (s *Solver) Pool() *systems.ParticlePool {
	return s.pool
}

// Run iterates until the energy change drops below the tolerance or the
// iteration budget is spent, then rasterizes the result.
func (s *Solver) Run() Result {
	defer s.workers.Close()

	start := time.Now()
	res := Result{
		Pool:          s.pool,
		EnergyHistory: make([]float64, 0, s.opts.Iterations),
	}

	slog.Info("solve started",
		"particles", s.pool.Count,
		"materials", s.pool.MaterialCount,
		"goals", len(s.problem.Goals),
		"seeds", len(s.problem.Seeds),
		"smoothing_radius", s.opts.SmoothingRadius,
		"workers", s.workers.Workers(),
		"iterations", s.opts.Iterations,
	)

	for k := 1; k <= s.opts.Iterations; k++ {
		e := s.Step(k)
		res.Energy = e
		res.Iterations = k
		res.EnergyHistory = append(res.EnergyHistory, e.Total)

		if k >= 2 && math.Abs(e.Total-res.EnergyHistory[k-2]) < s.opts.Tolerance {
			res.Converged = true
			break
		}
	}

	if s.opts.FieldResolution > 0 {
		s.hash.Build(s.pool, s.opts.CellSize)
		res.Field = systems.Rasterize(s.pool, s.hash, s.kernel, s.problem.Bounds, s.opts.FieldResolution, s.workers)
	}

	res.NeighborsTotal = s.neighbors
	res.NeighborsDropped = s.dropped
	res.NeighborsSaturated = s.saturated
	res.Duration = time.Since(start)

	slog.Info("solve finished",
		"converged", res.Converged,
		"iterations", res.Iterations,
		"energy", res.Energy.Total,
		"neighbors_dropped", res.NeighborsDropped,
		"duration_ms", res.Duration.Milliseconds(),
	)

	return res
}

// Step runs one iteration and returns its energy. iteration is 1-based and
// selects which repeating seeds fire.
func (s *Solver) Step(iteration int) systems.Energy {
	pool := s.pool
	s.perf.StartIteration()

	s.perf.StartPhase(telemetry.PhaseSpatialHash)
	s.hash.Build(pool, s.opts.CellSize)

	s.perf.StartPhase(telemetry.PhaseNeighbors)
	ns := s.hash.FindNeighbors(pool, s.opts.SmoothingRadius)
	s.recordNeighbors(iteration, ns)

	s.perf.StartPhase(telemetry.PhaseDensity)
	systems.ComputeDensity(pool, s.kernel, s.workers)

	s.perf.StartPhase(telemetry.PhaseSeeds)
	s.due = systems.DueSeeds(s.repeating, iteration, s.due[:0])
	if len(s.due) > 0 {
		pool.ApplySeeds(s.due)
		s.collector.RecordSeeds(len(s.due))
	}

	s.perf.StartPhase(telemetry.PhaseDiffusion)
	s.diffuser.Step(pool, s.kernel, s.rates, s.opts.BlendStrength, s.opts.DT)

	s.perf.StartPhase(telemetry.PhaseGoalForces)
	s.goalForces.Apply(pool, s.problem.Goals, s.problem.Materials, s.opts.GoalStrength, s.opts.DT)

	s.perf.StartPhase(telemetry.PhaseEnergy)
	e := systems.ComputeEnergy(pool, s.problem.Goals, s.problem.Materials)

	s.perf.EndIteration()
	s.recordIteration(iteration, e)

	return e
}

// recordNeighbors tracks truncation and warns the first time it happens.
func (s *Solver) recordNeighbors(iteration int, ns systems.NeighborStats) {
	s.collector.RecordNeighbors(ns)
	s.neighbors += ns.Total
	s.dropped += ns.Dropped
	s.saturated += ns.Saturated

	if ns.Dropped > 0 && !s.warnedTruncation {
		s.warnedTruncation = true
		slog.Warn("neighbor cache truncated",
			"iteration", iteration,
			"max_neighbors", s.pool.MaxNeighbors,
			"dropped", ns.Dropped,
			"saturated_particles", ns.Saturated,
		)
	}
}
