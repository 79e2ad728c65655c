package systems

import (
	"sort"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

// bruteNeighbors returns all particles within radius of i, self included.
func bruteNeighbors(pool *ParticlePool, i int, radius float64) []int {
	var out []int
	for j := 0; j < pool.Count; j++ {
		if distanceSq(pool.X[i], pool.Y[i], pool.Z[i], pool.X[j], pool.Y[j], pool.Z[j]) <= radius*radius {
			out = append(out, j)
		}
	}
	return out
}

func sortedNeighbors(pool *ParticlePool, i int) []int {
	out := make([]int, 0, pool.NeighborCount[i])
	for _, j := range pool.NeighborsOf(i) {
		out = append(out, int(j))
	}
	sort.Ints(out)
	return out
}

func TestSpatialHashTableSize(t *testing.T) {
	h := NewSpatialHash()

	pool := newTestPool(t, 100, 2, 8)
	h.Build(pool, 0.1)
	if h.TableSize() != 1024 {
		t.Errorf("expected minimum table size 1024, got %d", h.TableSize())
	}

	big := newTestPool(t, 3000, 2, 8)
	h.Build(big, 0.1)
	if h.TableSize() != 8192 {
		t.Errorf("expected table size 8192 for 3000 particles, got %d", h.TableSize())
	}
}

func TestFindNeighborsMatchesBruteForce(t *testing.T) {
	tests := []struct {
		name     string
		n        int
		radius   float64
		cellSize float64
	}{
		{"cell equals radius", 200, 0.2, 0.2},
		{"cell smaller than radius", 150, 0.25, 0.1},
		{"cell larger than radius", 120, 0.1, 0.3},
		{"tiny radius", 200, 0.01, 0.05},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := newTestPool(t, tt.n, 2, tt.n+1)
			h := NewSpatialHash()
			h.Build(pool, tt.cellSize)
			stats := h.FindNeighbors(pool, tt.radius)

			if stats.Dropped != 0 || stats.Saturated != 0 {
				t.Errorf("expected no truncation with cap above N, got %+v", stats)
			}
			for i := 0; i < pool.Count; i++ {
				want := bruteNeighbors(pool, i, tt.radius)
				got := sortedNeighbors(pool, i)
				if len(got) != len(want) {
					t.Fatalf("particle %d: expected %d neighbors, got %d", i, len(want), len(got))
				}
				for k := range want {
					if got[k] != want[k] {
						t.Fatalf("particle %d: neighbor sets differ: want %v, got %v", i, want, got)
					}
				}
			}
		})
	}
}

func TestFindNeighborsIncludesSelf(t *testing.T) {
	pool := newTestPool(t, 50, 2, 64)
	h := NewSpatialHash()
	h.Build(pool, 0.1)
	h.FindNeighbors(pool, 0.1)

	for i := 0; i < pool.Count; i++ {
		found := false
		for _, j := range pool.NeighborsOf(i) {
			if int(j) == i {
				found = true
			}
		}
		if !found {
			t.Errorf("particle %d: expected self in neighbor list", i)
		}
	}
}

func TestFindNeighborsTruncatesAtCap(t *testing.T) {
	// 40 particles stacked at one point: everyone neighbors everyone.
	pool, _ := NewParticlePool(40, 2, 8)
	pool.Count = 40
	for i := 0; i < 40; i++ {
		pool.SetPosition(i, r3.Vec{X: 0.5, Y: 0.5, Z: 0.5})
	}

	h := NewSpatialHash()
	h.Build(pool, 0.1)
	stats := h.FindNeighbors(pool, 0.1)

	for i := 0; i < pool.Count; i++ {
		if pool.NeighborCount[i] != 8 {
			t.Errorf("particle %d: expected neighbor count capped at 8, got %d", i, pool.NeighborCount[i])
		}
	}
	if stats.Saturated != 40 {
		t.Errorf("expected 40 saturated particles, got %d", stats.Saturated)
	}
	if stats.Dropped != 40*(40-8) {
		t.Errorf("expected %d dropped candidates, got %d", 40*32, stats.Dropped)
	}
	if stats.Total != 40*8 {
		t.Errorf("expected %d stored neighbors, got %d", 40*8, stats.Total)
	}
}

func TestFindNeighborsParallelMatchesSequential(t *testing.T) {
	seq := newTestPool(t, 1000, 2, 64)
	par := newTestPool(t, 1000, 2, 64)

	hs := NewSpatialHash()
	hs.Build(seq, 0.08)
	hs.FindNeighbors(seq, 0.08)

	workers := NewWorkerPool(4)
	defer workers.Close()
	hp := NewSpatialHash()
	hp.Workers = workers
	hp.Build(par, 0.08)
	hp.FindNeighbors(par, 0.08)

	for i := 0; i < seq.Count; i++ {
		a, b := seq.NeighborsOf(i), par.NeighborsOf(i)
		if len(a) != len(b) {
			t.Fatalf("particle %d: neighbor counts differ %d vs %d", i, len(a), len(b))
		}
		for k := range a {
			if a[k] != b[k] {
				t.Fatalf("particle %d: neighbor order differs", i)
			}
		}
	}
}

func TestQueryNegativeCoordinates(t *testing.T) {
	pool, _ := NewParticlePool(3, 1, 4)
	pool.Count = 3
	pool.SetPosition(0, r3.Vec{X: -1.05, Y: -2.2, Z: -0.01})
	pool.SetPosition(1, r3.Vec{X: -0.95, Y: -2.2, Z: 0.01})
	pool.SetPosition(2, r3.Vec{X: 5, Y: 5, Z: 5})

	h := NewSpatialHash()
	h.Build(pool, 0.1)
	got := h.Query(pool, r3.Vec{X: -1, Y: -2.2, Z: 0}, 0.1, nil)

	sort.Slice(got, func(a, b int) bool { return got[a] < got[b] })
	if len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Errorf("expected particles [0 1] across the origin cell boundary, got %v", got)
	}
}

func BenchmarkFindNeighbors(b *testing.B) {
	pool := newTestPool(b, 4000, 3, DefaultMaxNeighbors)
	h := NewSpatialHash()

	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		h.Build(pool, 0.05)
		h.FindNeighbors(pool, 0.05)
	}
}
