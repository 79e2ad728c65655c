// Package config provides configuration loading and access for the solver.
package config

import (
	_ "embed"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all solver configuration parameters.
type Config struct {
	Solver    SolverConfig     `yaml:"solver"`
	Domain    DomainConfig     `yaml:"domain"`
	Particles ParticlesConfig  `yaml:"particles"`
	Field     FieldConfig      `yaml:"field"`
	Materials []MaterialConfig `yaml:"materials"`
	Goals     []GoalConfig     `yaml:"goals"`
	Seeds     []SeedConfig     `yaml:"seeds"`
	Telemetry TelemetryConfig  `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// SolverConfig holds iteration and step parameters.
type SolverConfig struct {
	Iterations      int     `yaml:"iterations"`
	Tolerance       float64 `yaml:"tolerance"`        // Converged when |E_k - E_k-1| < this
	DT              float64 `yaml:"dt"`
	BlendStrength   float64 `yaml:"blend_strength"`   // Diffusion commit scale
	GoalStrength    float64 `yaml:"goal_strength"`    // Goal force commit scale
	SmoothingRadius float64 `yaml:"smoothing_radius"` // Kernel support h (0 = 2x mean spacing)
	MaxNeighbors    int     `yaml:"max_neighbors"`
	Workers         int     `yaml:"workers"` // 0 = GOMAXPROCS, 1 = sequential
	Seed            int64   `yaml:"seed"`
}

// DomainConfig holds the axis-aligned design domain in millimeters.
type DomainConfig struct {
	Min [3]float64 `yaml:"min"`
	Max [3]float64 `yaml:"max"`
}

// ParticlesConfig holds particle creation parameters.
type ParticlesConfig struct {
	Count       int     `yaml:"count"`
	Capacity    int     `yaml:"capacity"`  // 0 = count
	Radius      float64 `yaml:"radius"`
	BaseMass    float64 `yaml:"base_mass"` // 0 = domain volume / count
	Temperature float64 `yaml:"temperature"`
}

// FieldConfig holds output field parameters.
type FieldConfig struct {
	Resolution int `yaml:"resolution"`
}

// MaterialConfig describes one candidate material.
type MaterialConfig struct {
	Name                string  `yaml:"name"`
	Density             float64 `yaml:"density"`
	Stiffness           float64 `yaml:"stiffness"`
	ThermalConductivity float64 `yaml:"thermal_conductivity"`
	OpticalTransmission float64 `yaml:"optical_transmission"`
	Diffusivity         float64 `yaml:"diffusivity"`
	Color               string  `yaml:"color"`
}

// RegionConfig is an axis-aligned box restricting a goal.
type RegionConfig struct {
	Min [3]float64 `yaml:"min"`
	Max [3]float64 `yaml:"max"`
}

// GoalConfig holds one weighted goal. Only the fields of its type are read.
type GoalConfig struct {
	Type   string        `yaml:"type"` // stiffness, mass, transparency, thermal, blend
	Weight float64       `yaml:"weight"`
	Region *RegionConfig `yaml:"region,omitempty"`

	// stiffness
	Penalty   float64    `yaml:"penalty,omitempty"`
	Load      [3]float64 `yaml:"load,omitempty"`
	LoadPoint [3]float64 `yaml:"load_point,omitempty"`

	// mass
	TargetFraction float64 `yaml:"target_fraction,omitempty"`
	DensityPenalty float64 `yaml:"density_penalty,omitempty"`

	// transparency
	OpticalWeight float64 `yaml:"optical_weight,omitempty"`

	// thermal
	ThermalWeight float64 `yaml:"thermal_weight,omitempty"`
	Mode          string  `yaml:"mode,omitempty"` // conduct (default) or insulate
}

// SeedConfig holds one material seed.
type SeedConfig struct {
	Position [3]float64 `yaml:"position"`
	Radius   float64    `yaml:"radius"`
	Material string     `yaml:"material"`
	Strength float64    `yaml:"strength"`
	Interval int        `yaml:"interval"` // 0 = once at init, k = every k iterations
}

// TelemetryConfig holds logging and output parameters.
type TelemetryConfig struct {
	LogInterval int `yaml:"log_interval"` // Iterations between progress logs (0 = off)
	PerfWindow  int `yaml:"perf_window"`  // Iterations per perf.csv row
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	DomainVolume    float64
	MeanSpacing     float64 // cbrt(volume / count)
	SmoothingRadius float64
	CellSize        float64
	BaseMass        float64
	Capacity        int
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(err)
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config not initialized: call config.Init() first")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// List sections (materials, goals, seeds) in the file replace the defaults
// wholesale. If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.computeDerived()

	return cfg, nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	d := &c.Derived

	d.DomainVolume = 1
	for axis := 0; axis < 3; axis++ {
		d.DomainVolume *= math.Max(0, c.Domain.Max[axis]-c.Domain.Min[axis])
	}

	d.Capacity = c.Particles.Capacity
	if d.Capacity < c.Particles.Count {
		d.Capacity = c.Particles.Count
	}

	if c.Particles.Count > 0 && d.DomainVolume > 0 {
		d.MeanSpacing = math.Cbrt(d.DomainVolume / float64(c.Particles.Count))
	}

	// Two spacings puts roughly 30 particles inside the support.
	d.SmoothingRadius = c.Solver.SmoothingRadius
	if d.SmoothingRadius <= 0 {
		d.SmoothingRadius = 2 * d.MeanSpacing
	}
	d.CellSize = d.SmoothingRadius

	d.BaseMass = c.Particles.BaseMass
	if d.BaseMass <= 0 && c.Particles.Count > 0 {
		d.BaseMass = d.DomainVolume / float64(c.Particles.Count)
	}
}

// Recompute refreshes derived values after fields were changed in code.
func (c *Config) Recompute() {
	c.computeDerived()
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
