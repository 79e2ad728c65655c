package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Solver.Iterations <= 0 {
		t.Errorf("expected positive iterations, got %d", cfg.Solver.Iterations)
	}
	if len(cfg.Materials) == 0 {
		t.Error("expected default materials")
	}
	if len(cfg.Goals) == 0 {
		t.Error("expected default goals")
	}
	if cfg.Derived.Capacity != cfg.Particles.Count {
		t.Errorf("expected capacity %d, got %d", cfg.Particles.Count, cfg.Derived.Capacity)
	}
}

func TestDerivedValues(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	wantVolume := 120.0 * 120.0 * 180.0
	if math.Abs(cfg.Derived.DomainVolume-wantVolume) > 1e-9 {
		t.Errorf("expected volume %f, got %f", wantVolume, cfg.Derived.DomainVolume)
	}
	wantSpacing := math.Cbrt(wantVolume / float64(cfg.Particles.Count))
	if math.Abs(cfg.Derived.SmoothingRadius-2*wantSpacing) > 1e-9 {
		t.Errorf("expected smoothing radius %f, got %f", 2*wantSpacing, cfg.Derived.SmoothingRadius)
	}
	if cfg.Derived.CellSize != cfg.Derived.SmoothingRadius {
		t.Errorf("expected cell size to match smoothing radius")
	}
	if math.Abs(cfg.Derived.BaseMass-wantVolume/float64(cfg.Particles.Count)) > 1e-9 {
		t.Errorf("unexpected base mass %f", cfg.Derived.BaseMass)
	}
}

func TestLoadOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.yaml")
	data := []byte(`
solver:
  iterations: 7
  smoothing_radius: 5
materials:
  - name: glass
    density: 2.5
`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Solver.Iterations != 7 {
		t.Errorf("expected overlay iterations 7, got %d", cfg.Solver.Iterations)
	}
	if cfg.Solver.Tolerance == 0 {
		t.Error("expected tolerance to keep its default")
	}
	if len(cfg.Materials) != 1 || cfg.Materials[0].Name != "glass" {
		t.Errorf("expected materials replaced by overlay, got %+v", cfg.Materials)
	}
	if cfg.Derived.SmoothingRadius != 5 {
		t.Errorf("expected explicit smoothing radius 5, got %f", cfg.Derived.SmoothingRadius)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}

	back, err := Load(path)
	if err != nil {
		t.Fatalf("Load written config: %v", err)
	}
	if back.Solver != cfg.Solver || len(back.Goals) != len(cfg.Goals) {
		t.Error("expected written config to load back unchanged")
	}
}
