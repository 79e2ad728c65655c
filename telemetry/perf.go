package telemetry

import (
	"log/slog"
	"time"
)

// Phase names for one solver iteration.
const (
	PhaseSpatialHash = "spatial_hash"
	PhaseNeighbors   = "neighbors"
	PhaseDensity     = "density"
	PhaseSeeds       = "seeds"
	PhaseDiffusion   = "diffusion"
	PhaseGoalForces  = "goal_forces"
	PhaseEnergy      = "energy"
)

// Phases lists the iteration phases in execution order.
var Phases = []string{
	PhaseSpatialHash, PhaseNeighbors, PhaseDensity, PhaseSeeds,
	PhaseDiffusion, PhaseGoalForces, PhaseEnergy,
}

// PerfSample holds timing data for a single iteration.
type PerfSample struct {
	IterationDuration time.Duration
	Phases            map[string]time.Duration
}

// PerfCollector tracks performance metrics over a rolling window.
type PerfCollector struct {
	windowSize     int
	samples        []PerfSample
	writeIndex     int
	sampleCount    int
	currentPhases  map[string]time.Duration
	iterationStart time.Time
	phaseStart     time.Time
	lastPhase      string
}

// NewPerfCollector creates a new performance collector.
// windowSize: number of iterations to average over.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 10
	}
	return &PerfCollector{
		windowSize:    windowSize,
		samples:       make([]PerfSample, windowSize),
		currentPhases: make(map[string]time.Duration),
	}
}

// WindowSize returns the number of iterations in the rolling window.
func (p *PerfCollector) WindowSize() int {
	return p.windowSize
}

// StartIteration begins timing a new solver iteration.
func (p *PerfCollector) StartIteration() {
	p.iterationStart = time.Now()
	p.currentPhases = make(map[string]time.Duration)
	p.lastPhase = ""
}

// StartPhase begins timing a specific phase, ending the previous one.
func (p *PerfCollector) StartPhase(phase string) {
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}
	p.phaseStart = now
	p.lastPhase = phase
}

// EndIteration finishes timing the current iteration and records the sample.
func (p *PerfCollector) EndIteration() {
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}

	p.samples[p.writeIndex] = PerfSample{
		IterationDuration: now.Sub(p.iterationStart),
		Phases:            p.currentPhases,
	}
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
}

// PerfStats holds aggregated performance statistics.
type PerfStats struct {
	AvgIteration time.Duration
	MinIteration time.Duration
	MaxIteration time.Duration

	// Phase breakdown (average durations)
	PhaseAvg map[string]time.Duration

	// Phase percentages of total iteration time
	PhasePct map[string]float64

	IterationsPerSecond float64
}

// Stats computes aggregated statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	if p.sampleCount == 0 {
		return PerfStats{
			PhaseAvg: make(map[string]time.Duration),
			PhasePct: make(map[string]float64),
		}
	}

	var total, minIter, maxIter time.Duration
	phaseSum := make(map[string]time.Duration)

	for i := 0; i < p.sampleCount; i++ {
		s := p.samples[i]
		total += s.IterationDuration

		if i == 0 || s.IterationDuration < minIter {
			minIter = s.IterationDuration
		}
		if s.IterationDuration > maxIter {
			maxIter = s.IterationDuration
		}
		for phase, dur := range s.Phases {
			phaseSum[phase] += dur
		}
	}

	avg := total / time.Duration(p.sampleCount)

	phaseAvg := make(map[string]time.Duration)
	phasePct := make(map[string]float64)
	for phase, sum := range phaseSum {
		phaseAvg[phase] = sum / time.Duration(p.sampleCount)
		if avg > 0 {
			phasePct[phase] = float64(phaseAvg[phase]) / float64(avg) * 100
		}
	}

	var perSec float64
	if avg > 0 {
		perSec = float64(time.Second) / float64(avg)
	}

	return PerfStats{
		AvgIteration:        avg,
		MinIteration:        minIter,
		MaxIteration:        maxIter,
		PhaseAvg:            phaseAvg,
		PhasePct:            phasePct,
		IterationsPerSecond: perSec,
	}
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_iter_us", s.AvgIteration.Microseconds()),
		slog.Int64("min_iter_us", s.MinIteration.Microseconds()),
		slog.Int64("max_iter_us", s.MaxIteration.Microseconds()),
		slog.Float64("iters_per_sec", s.IterationsPerSecond),
	}
	for _, phase := range Phases {
		if pct, ok := s.PhasePct[phase]; ok && pct > 0.1 {
			attrs = append(attrs, slog.Float64(phase+"_pct", float64(int(pct*10))/10))
		}
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is a flat struct for CSV export of performance stats.
type PerfStatsCSV struct {
	WindowEnd      int     `csv:"window_end"`
	AvgIterUS      int64   `csv:"avg_iter_us"`
	MinIterUS      int64   `csv:"min_iter_us"`
	MaxIterUS      int64   `csv:"max_iter_us"`
	ItersPerSec    float64 `csv:"iters_per_sec"`
	SpatialHashPct float64 `csv:"spatial_hash_pct"`
	NeighborsPct   float64 `csv:"neighbors_pct"`
	DensityPct     float64 `csv:"density_pct"`
	SeedsPct       float64 `csv:"seeds_pct"`
	DiffusionPct   float64 `csv:"diffusion_pct"`
	GoalForcesPct  float64 `csv:"goal_forces_pct"`
	EnergyPct      float64 `csv:"energy_pct"`
}

// ToCSV converts PerfStats to a flat CSV-friendly struct.
func (s PerfStats) ToCSV(windowEnd int) PerfStatsCSV {
	return PerfStatsCSV{
		WindowEnd:      windowEnd,
		AvgIterUS:      s.AvgIteration.Microseconds(),
		MinIterUS:      s.MinIteration.Microseconds(),
		MaxIterUS:      s.MaxIteration.Microseconds(),
		ItersPerSec:    s.IterationsPerSecond,
		SpatialHashPct: s.PhasePct[PhaseSpatialHash],
		NeighborsPct:   s.PhasePct[PhaseNeighbors],
		DensityPct:     s.PhasePct[PhaseDensity],
		SeedsPct:       s.PhasePct[PhaseSeeds],
		DiffusionPct:   s.PhasePct[PhaseDiffusion],
		GoalForcesPct:  s.PhasePct[PhaseGoalForces],
		EnergyPct:      s.PhasePct[PhaseEnergy],
	}
}
