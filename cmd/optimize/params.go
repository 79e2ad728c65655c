// Package main provides CMA-ES tuning of the solver hyperparameters.
package main

import (
	"github.com/pthm-cable/alloy/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of optimizable parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			{Name: "blend_strength", Path: "solver.blend_strength", Min: 0.05, Max: 2.0, Default: 0.5},
			{Name: "goal_strength", Path: "solver.goal_strength", Min: 0.1, Max: 5.0, Default: 1.0},
			{Name: "dt", Path: "solver.dt", Min: 0.001, Max: 0.05, Default: 0.01},
			// Smoothing radius in units of mean particle spacing
			{Name: "smoothing_scale", Path: "solver.smoothing_radius", Min: 1.2, Max: 3.0, Default: 2.0},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		val := v[i]
		if val < spec.Min {
			val = spec.Min
		}
		if val > spec.Max {
			val = spec.Max
		}
		clamped[i] = val
	}
	return clamped
}

// ApplyToConfig applies parameter values to a Config struct and refreshes
// its derived values. Order must match Specs order.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)

	cfg.Solver.BlendStrength = clamped[0]
	cfg.Solver.GoalStrength = clamped[1]
	cfg.Solver.DT = clamped[2]

	// Explicit radius so the result file is self-contained
	cfg.Solver.SmoothingRadius = 0
	cfg.Recompute()
	cfg.Solver.SmoothingRadius = clamped[3] * cfg.Derived.MeanSpacing
	cfg.Recompute()
}

// ExtractFromConfig extracts current parameter values from a Config struct.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	scale := pv.Specs[3].Default
	if cfg.Derived.MeanSpacing > 0 {
		scale = cfg.Derived.SmoothingRadius / cfg.Derived.MeanSpacing
	}
	return []float64{
		cfg.Solver.BlendStrength,
		cfg.Solver.GoalStrength,
		cfg.Solver.DT,
		scale,
	}
}
