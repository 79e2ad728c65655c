package telemetry

import (
	"math"
	"testing"

	"github.com/pthm-cable/alloy/systems"
)

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		p      float64
		want   float64
	}{
		{"empty slice", []float64{}, 0.5, 0},
		{"single element", []float64{5.0}, 0.5, 5.0},
		{"p0", []float64{1, 2, 3, 4, 5}, 0.0, 1.0},
		{"p100", []float64{1, 2, 3, 4, 5}, 1.0, 5.0},
		{"p50 odd", []float64{1, 2, 3, 4, 5}, 0.5, 3.0},
		{"p50 even", []float64{1, 2, 3, 4}, 0.5, 2.5},
		{"p10", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.1, 1.9},
		{"p90", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.9, 9.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Percentile(tt.sorted, tt.p)
			if math.Abs(got-tt.want) > 0.001 {
				t.Errorf("Percentile(%v, %v) = %v, want %v", tt.sorted, tt.p, got, tt.want)
			}
		})
	}
}

func TestComputeDistribution(t *testing.T) {
	values := []float64{1.0, 0.9, 0.8, 0.7, 0.6, 0.5, 0.4, 0.3, 0.2, 0.1}
	mean, p10, p50, p90 := ComputeDistribution(values)

	if math.Abs(mean-0.55) > 0.001 {
		t.Errorf("mean = %v, want 0.55", mean)
	}
	if math.Abs(p10-0.19) > 0.01 {
		t.Errorf("p10 = %v, want ~0.19", p10)
	}
	if math.Abs(p50-0.55) > 0.01 {
		t.Errorf("p50 = %v, want ~0.55", p50)
	}
	if math.Abs(p90-0.91) > 0.01 {
		t.Errorf("p90 = %v, want ~0.91", p90)
	}
}

func TestComputeDistributionEmpty(t *testing.T) {
	mean, p10, p50, p90 := ComputeDistribution(nil)
	if mean != 0 || p10 != 0 || p50 != 0 || p90 != 0 {
		t.Error("empty slice should return all zeros")
	}
}

func TestMeanStd(t *testing.T) {
	mean, std := MeanStd([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if mean != 5 || math.Abs(std-2) > 1e-12 {
		t.Errorf("expected mean 5 std 2, got %v %v", mean, std)
	}
	if m, s := MeanStd([]float64{3}); m != 3 || s != 0 {
		t.Errorf("expected single value mean 3 std 0, got %v %v", m, s)
	}
}

func TestCollectorCollect(t *testing.T) {
	pool, err := systems.NewParticlePool(4, 2, 4)
	if err != nil {
		t.Fatal(err)
	}
	pool.Count = 4
	for i, a := range []float64{1, 0.75, 0.5, 0.25} {
		pool.Materials[0][i], pool.Materials[1][i] = a, 1-a
		pool.Pressure[i] = 2
	}

	c := NewCollector()
	c.RecordSeeds(3)
	c.RecordNeighbors(systems.NeighborStats{Total: 12, Dropped: 5, Saturated: 1})

	first := c.Collect(1, systems.Energy{Total: 0.8}, pool)
	if first.Delta != 0 {
		t.Errorf("expected zero delta on first iteration, got %v", first.Delta)
	}
	if first.SeedsApplied != 3 || first.NeighborsDropped != 5 || first.NeighborsMean != 3 {
		t.Errorf("unexpected counters %+v", first)
	}
	if first.DensityMean != 2 || first.DensityStd != 0 {
		t.Errorf("expected density mean 2 std 0, got %v %v", first.DensityMean, first.DensityStd)
	}
	// Purities: 1, 0.75, 0.5, 0.75
	if math.Abs(first.PurityMean-0.75) > 1e-12 {
		t.Errorf("expected purity mean 0.75, got %v", first.PurityMean)
	}

	second := c.Collect(2, systems.Energy{Total: 0.5}, pool)
	if math.Abs(second.Delta-0.3) > 1e-12 {
		t.Errorf("expected delta 0.3, got %v", second.Delta)
	}
	if second.SeedsApplied != 0 || second.NeighborsDropped != 0 {
		t.Errorf("expected counters reset, got %+v", second)
	}
}
