package solver

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/alloy/components"
	"github.com/pthm-cable/alloy/config"
)

// ErrUnknownMaterial is returned when a seed names a material not in the table.
var ErrUnknownMaterial = errors.New("unknown material")

// FromConfig builds a problem and run options from a loaded configuration.
// Telemetry hooks in the returned options are left unset.
func FromConfig(cfg *config.Config) (Problem, Options, error) {
	if len(cfg.Materials) == 0 {
		return Problem{}, Options{}, fmt.Errorf("config: %w", ErrNoMaterials)
	}

	materials := make([]components.Material, len(cfg.Materials))
	for i, m := range cfg.Materials {
		materials[i] = components.Material{
			Name:                m.Name,
			Density:             m.Density,
			Stiffness:           m.Stiffness,
			ThermalConductivity: m.ThermalConductivity,
			OpticalTransmission: m.OpticalTransmission,
			Diffusivity:         m.Diffusivity,
			Color:               m.Color,
		}
	}
	table := components.NewMaterialTable(materials)

	goals := make([]components.Goal, 0, len(cfg.Goals))
	for i, gc := range cfg.Goals {
		goal, err := goalFromConfig(gc)
		if err != nil {
			return Problem{}, Options{}, fmt.Errorf("goal %d: %w", i, err)
		}
		goals = append(goals, goal)
	}

	seeds := make([]components.Seed, 0, len(cfg.Seeds))
	for i, sc := range cfg.Seeds {
		m := table.Index(sc.Material)
		if m < 0 {
			return Problem{}, Options{}, fmt.Errorf("seed %d: %w %q", i, ErrUnknownMaterial, sc.Material)
		}
		seeds = append(seeds, components.Seed{
			Position: vec(sc.Position),
			Radius:   sc.Radius,
			Material: m,
			Strength: sc.Strength,
			Interval: sc.Interval,
		})
	}

	problem := Problem{
		Bounds:         components.NewBounds(vec(cfg.Domain.Min), vec(cfg.Domain.Max)),
		Materials:      table,
		Goals:          goals,
		Seeds:          seeds,
		Count:          cfg.Particles.Count,
		Capacity:       cfg.Derived.Capacity,
		ParticleRadius: cfg.Particles.Radius,
		BaseMass:       cfg.Derived.BaseMass,
		Temperature:    cfg.Particles.Temperature,
	}

	opts := Options{
		Iterations:      cfg.Solver.Iterations,
		Tolerance:       cfg.Solver.Tolerance,
		DT:              cfg.Solver.DT,
		BlendStrength:   cfg.Solver.BlendStrength,
		GoalStrength:    cfg.Solver.GoalStrength,
		SmoothingRadius: cfg.Derived.SmoothingRadius,
		CellSize:        cfg.Derived.CellSize,
		MaxNeighbors:    cfg.Solver.MaxNeighbors,
		Workers:         cfg.Solver.Workers,
		FieldResolution: cfg.Field.Resolution,
		Seed:            cfg.Solver.Seed,
		LogInterval:     cfg.Telemetry.LogInterval,
	}

	return problem, opts, nil
}

// goalFromConfig decodes one goal. Only the fields of its type are read.
func goalFromConfig(gc config.GoalConfig) (components.Goal, error) {
	kind, err := components.ParseGoalKind(gc.Type)
	if err != nil {
		return components.Goal{}, err
	}

	goal := components.Goal{Weight: gc.Weight}
	if gc.Region != nil {
		region := components.NewBounds(vec(gc.Region.Min), vec(gc.Region.Max))
		goal.Region = &region
	}

	switch kind {
	case components.GoalStiffness:
		goal.Params = components.StiffnessGoal{
			Penalty:   gc.Penalty,
			Load:      vec(gc.Load),
			LoadPoint: vec(gc.LoadPoint),
		}
	case components.GoalMass:
		goal.Params = components.MassGoal{
			TargetFraction: gc.TargetFraction,
			DensityPenalty: gc.DensityPenalty,
		}
	case components.GoalTransparency:
		goal.Params = components.TransparencyGoal{OpticalWeight: gc.OpticalWeight}
	case components.GoalThermal:
		mode, err := components.ParseThermalMode(gc.Mode)
		if err != nil {
			return components.Goal{}, err
		}
		goal.Params = components.ThermalGoal{ThermalWeight: gc.ThermalWeight, Mode: mode}
	case components.GoalBlend:
		goal.Params = components.BlendGoal{}
	}

	return goal, nil
}

func vec(v [3]float64) r3.Vec {
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}
}
