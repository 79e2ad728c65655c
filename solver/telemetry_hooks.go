package solver

import (
	"log/slog"

	"github.com/pthm-cable/alloy/systems"
)

// recordIteration collects stats for the iteration and hands them to the
// callback, the log and the output files.
func (s *Solver) recordIteration(iteration int, e systems.Energy) {
	stats := s.collector.Collect(iteration, e, s.pool)

	if s.opts.OnIteration != nil {
		s.opts.OnIteration(stats)
	}

	if s.opts.LogInterval > 0 && iteration%s.opts.LogInterval == 0 {
		stats.LogStats()
		slog.Info("perf", "stats", s.perf.Stats())
	}

	if s.opts.Output != nil {
		if err := s.opts.Output.WriteIteration(stats); err != nil {
			slog.Error("failed to write iteration", "error", err)
		}
		if iteration%s.perf.WindowSize() == 0 {
			if err := s.opts.Output.WritePerf(s.perf.Stats(), iteration); err != nil {
				slog.Error("failed to write perf", "error", err)
			}
		}
	}
}
