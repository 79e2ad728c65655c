package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/alloy/components"
	"github.com/pthm-cable/alloy/config"
	"github.com/pthm-cable/alloy/systems"
)

// OutputManager handles structured run output. Streaming records go to
// iterations.csv and perf.csv; final results are written once at the end.
type OutputManager struct {
	dir            string
	iterationsFile *os.File
	perfFile       *os.File

	// Track if headers have been written
	iterationsHeaderWritten bool
	perfHeaderWritten       bool
}

// NewOutputManager creates a new output manager and initializes the output directory.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}

	f, err := os.Create(filepath.Join(dir, "iterations.csv"))
	if err != nil {
		return nil, fmt.Errorf("creating iterations.csv: %w", err)
	}
	om.iterationsFile = f

	f, err = os.Create(filepath.Join(dir, "perf.csv"))
	if err != nil {
		om.iterationsFile.Close()
		return nil, fmt.Errorf("creating perf.csv: %w", err)
	}
	om.perfFile = f

	return om, nil
}

// WriteConfig saves the current configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteIteration appends an iteration record to iterations.csv.
func (om *OutputManager) WriteIteration(stats IterationStats) error {
	if om == nil {
		return nil
	}

	records := []IterationStats{stats}

	if !om.iterationsHeaderWritten {
		// First write includes headers
		if err := gocsv.Marshal(records, om.iterationsFile); err != nil {
			return fmt.Errorf("writing iteration: %w", err)
		}
		om.iterationsHeaderWritten = true
	} else {
		if err := gocsv.MarshalWithoutHeaders(records, om.iterationsFile); err != nil {
			return fmt.Errorf("writing iteration: %w", err)
		}
	}

	return nil
}

// WritePerf appends a performance record to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, windowEnd int) error {
	if om == nil {
		return nil
	}

	records := []PerfStatsCSV{stats.ToCSV(windowEnd)}

	if !om.perfHeaderWritten {
		if err := gocsv.Marshal(records, om.perfFile); err != nil {
			return fmt.Errorf("writing perf: %w", err)
		}
		om.perfHeaderWritten = true
	} else {
		if err := gocsv.MarshalWithoutHeaders(records, om.perfFile); err != nil {
			return fmt.Errorf("writing perf: %w", err)
		}
	}

	return nil
}

// WriteParticles saves the final particle state to particles.csv.
func (om *OutputManager) WriteParticles(pool *systems.ParticlePool, table *components.MaterialTable) error {
	if om == nil || pool == nil {
		return nil
	}
	return om.writeFile("particles.csv", func(f *os.File) error {
		return WriteParticlesCSV(f, pool, table)
	})
}

// WriteField saves the rasterized field to field.csv and its metadata to field.yaml.
func (om *OutputManager) WriteField(field *systems.VoxelField, names []string) error {
	if om == nil || field == nil {
		return nil
	}
	if err := om.writeFile("field.csv", func(f *os.File) error {
		return WriteFieldCSV(f, field, names)
	}); err != nil {
		return err
	}

	data, err := yaml.Marshal(NewFieldMeta(field, names))
	if err != nil {
		return fmt.Errorf("marshaling field metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(om.dir, "field.yaml"), data, 0644); err != nil {
		return fmt.Errorf("writing field.yaml: %w", err)
	}
	return nil
}

// writeFile creates name in the output directory and hands it to write.
func (om *OutputManager) writeFile(name string, write func(*os.File) error) error {
	f, err := os.Create(filepath.Join(om.dir, name))
	if err != nil {
		return fmt.Errorf("creating %s: %w", name, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", name, err)
	}
	return nil
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}

	var firstErr error

	if om.iterationsFile != nil {
		if err := om.iterationsFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if om.perfFile != nil {
		if err := om.perfFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
