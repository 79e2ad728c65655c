package systems

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/alloy/components"
)

var unitCube = components.Bounds{Max: r3.Vec{X: 1, Y: 1, Z: 1}}

// newTestPool returns a pool of n particles scattered in the unit cube.
func newTestPool(t testing.TB, n, materials, maxNeighbors int) *ParticlePool {
	t.Helper()
	pool, err := NewParticlePool(n, materials, maxNeighbors)
	if err != nil {
		t.Fatalf("NewParticlePool: %v", err)
	}
	pool.Initialize(n, unitCube, 0.01, 1.0/float64(n), 20, rand.New(rand.NewSource(42)))
	return pool
}

// assertNormalized fails if any particle's concentrations do not sum to 1.
func assertNormalized(t *testing.T, pool *ParticlePool) {
	t.Helper()
	for i := 0; i < pool.Count; i++ {
		if sum := pool.MaterialSum(i); math.Abs(sum-1) >= 1e-5 {
			t.Fatalf("particle %d: expected concentrations to sum to 1, got %.9f", i, sum)
		}
		for m := 0; m < pool.MaterialCount; m++ {
			if c := pool.Materials[m][i]; c < 0 || c > 1 {
				t.Fatalf("particle %d material %d: concentration %f outside [0,1]", i, m, c)
			}
		}
	}
}

func TestNewParticlePoolValidation(t *testing.T) {
	tests := []struct {
		name                        string
		capacity, materials, maxNbr int
		want                        error
	}{
		{"zero capacity", 0, 2, 64, ErrInvalidCapacity},
		{"negative capacity", -5, 2, 64, ErrInvalidCapacity},
		{"zero materials", 10, 0, 64, ErrInvalidMaterialCount},
		{"zero neighbor cap", 10, 2, 0, ErrInvalidNeighborCap},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParticlePool(tt.capacity, tt.materials, tt.maxNbr)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	pool, err := NewParticlePool(16, 3, 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pool.Count != 0 || len(pool.X) != 16 || len(pool.Neighbors) != 16*8 || len(pool.Materials) != 3 {
		t.Errorf("unexpected allocation: count=%d len(X)=%d len(Neighbors)=%d", pool.Count, len(pool.X), len(pool.Neighbors))
	}
}

func TestInitializeScattersInsideBounds(t *testing.T) {
	pool, _ := NewParticlePool(100, 4, 16)
	bounds := components.Bounds{Min: r3.Vec{X: -2, Y: 3, Z: 0}, Max: r3.Vec{X: 2, Y: 4, Z: 10}}
	pool.Initialize(150, bounds, 0.5, 2, 20, rand.New(rand.NewSource(1)))

	if pool.Count != 100 {
		t.Fatalf("expected count clamped to capacity 100, got %d", pool.Count)
	}
	for i := 0; i < pool.Count; i++ {
		if !bounds.Contains(pool.Position(i)) {
			t.Errorf("particle %d at %v outside bounds", i, pool.Position(i))
		}
		if pool.Radius[i] != 0.5 || pool.Mass[i] != 2 || pool.Temperature[i] != 20 {
			t.Errorf("particle %d: unexpected scalars r=%f m=%f T=%f", i, pool.Radius[i], pool.Mass[i], pool.Temperature[i])
		}
		for m := 0; m < 4; m++ {
			if pool.Materials[m][i] != 0.25 {
				t.Errorf("particle %d: expected uniform 0.25, got %f", i, pool.Materials[m][i])
			}
		}
	}
}

func TestInitializeLeavesTailRowsUntouched(t *testing.T) {
	pool, _ := NewParticlePool(10, 2, 4)
	pool.X[7] = 123
	pool.Initialize(5, unitCube, 0.1, 1, 20, rand.New(rand.NewSource(1)))

	if pool.X[7] != 123 {
		t.Errorf("expected row beyond count untouched, got %f", pool.X[7])
	}
}

func TestNormalizeResetsCollapsedParticle(t *testing.T) {
	pool := newTestPool(t, 4, 3, 8)
	for m := 0; m < 3; m++ {
		pool.Materials[m][2] = 0
	}
	pool.Normalize(2)

	for m := 0; m < 3; m++ {
		if got := pool.Materials[m][2]; math.Abs(got-1.0/3) > 1e-12 {
			t.Errorf("expected uniform reset, got %f for material %d", got, m)
		}
	}

	pool.Materials[0][1], pool.Materials[1][1], pool.Materials[2][1] = 2, 1, 1
	pool.Normalize(1)
	if pool.Materials[0][1] != 0.5 {
		t.Errorf("expected 0.5 after normalization, got %f", pool.Materials[0][1])
	}
}

func TestDominant(t *testing.T) {
	pool := newTestPool(t, 2, 3, 8)
	pool.Materials[0][0], pool.Materials[1][0], pool.Materials[2][0] = 0.2, 0.5, 0.3

	if got := pool.Dominant(0); got != 1 {
		t.Errorf("expected dominant material 1, got %d", got)
	}
	if got := pool.Dominant(1); got != 0 {
		t.Errorf("expected tie to resolve to material 0, got %d", got)
	}
}
