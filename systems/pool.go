// Package systems implements the particle solver passes: the particle pool,
// spatial hashing, kernel estimation, diffusion, goal forces, energy and
// field rasterization.
package systems

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/alloy/components"
)

// DefaultMaxNeighbors caps the per-particle neighbor cache.
const DefaultMaxNeighbors = 64

// Pool construction errors.
var (
	ErrInvalidCapacity      = errors.New("capacity must be positive")
	ErrInvalidMaterialCount = errors.New("material count must be positive")
	ErrInvalidNeighborCap   = errors.New("max neighbors must be positive")
)

// RandomSource is a deterministic stream of values in [0, 1).
// *rand.Rand from math/rand and golang.org/x/exp/rand both satisfy it.
type RandomSource interface {
	Float64() float64
}

// ParticlePool stores particle state in structure-of-arrays layout.
// All slices have length Capacity; only indices < Count are meaningful.
type ParticlePool struct {
	// Kinematics
	X, Y, Z    []float64 // positions
	VX, VY, VZ []float64 // velocities (carried, not integrated)

	// Scalars
	Radius      []float64
	Mass        []float64
	Pressure    []float64 // density accumulator, recomputed every step
	Temperature []float64

	// Materials[m][i] is the concentration of material m in particle i.
	Materials [][]float64

	// Neighbor cache: Neighbors[i*MaxNeighbors : i*MaxNeighbors+NeighborCount[i]]
	Neighbors     []int32
	NeighborCount []int32

	Count         int
	Capacity      int
	MaterialCount int
	MaxNeighbors  int
}

// NewParticlePool allocates a zero-filled pool with Count = 0.
func NewParticlePool(capacity, materialCount, maxNeighbors int) (*ParticlePool, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("particle pool: %w (got %d)", ErrInvalidCapacity, capacity)
	}
	if materialCount <= 0 {
		return nil, fmt.Errorf("particle pool: %w (got %d)", ErrInvalidMaterialCount, materialCount)
	}
	if maxNeighbors <= 0 {
		return nil, fmt.Errorf("particle pool: %w (got %d)", ErrInvalidNeighborCap, maxNeighbors)
	}

	materials := make([][]float64, materialCount)
	for m := range materials {
		materials[m] = make([]float64, capacity)
	}

	return &ParticlePool{
		X:             make([]float64, capacity),
		Y:             make([]float64, capacity),
		Z:             make([]float64, capacity),
		VX:            make([]float64, capacity),
		VY:            make([]float64, capacity),
		VZ:            make([]float64, capacity),
		Radius:        make([]float64, capacity),
		Mass:          make([]float64, capacity),
		Pressure:      make([]float64, capacity),
		Temperature:   make([]float64, capacity),
		Materials:     materials,
		Neighbors:     make([]int32, capacity*maxNeighbors),
		NeighborCount: make([]int32, capacity),
		Capacity:      capacity,
		MaterialCount: materialCount,
		MaxNeighbors:  maxNeighbors,
	}, nil
}

// Initialize scatters count particles uniformly inside bounds and resets
// their state. Positions are drawn x, y, z per particle in index order from
// rng. Rows at or beyond count are left untouched.
func (p *ParticlePool) Initialize(count int, bounds components.Bounds, particleRadius, baseMass, temperature float64, rng RandomSource) {
	if count < 0 {
		count = 0
	}
	if count > p.Capacity {
		count = p.Capacity
	}
	p.Count = count

	size := bounds.Size()
	radius := finiteNonNeg(particleRadius, math.MaxFloat64)
	mass := finiteNonNeg(baseMass, math.MaxFloat64)
	temp := finiteNonNeg(temperature, math.MaxFloat64)
	uniform := 1.0 / float64(p.MaterialCount)

	for i := 0; i < count; i++ {
		p.X[i] = bounds.Min.X + rng.Float64()*size.X
		p.Y[i] = bounds.Min.Y + rng.Float64()*size.Y
		p.Z[i] = bounds.Min.Z + rng.Float64()*size.Z
		p.VX[i], p.VY[i], p.VZ[i] = 0, 0, 0

		p.Radius[i] = radius
		p.Mass[i] = mass
		p.Pressure[i] = 0
		p.Temperature[i] = temp

		for m := range p.Materials {
			p.Materials[m][i] = uniform
		}
		p.NeighborCount[i] = 0
	}
}

// Position returns the position of particle i.
func (p *ParticlePool) Position(i int) r3.Vec {
	return r3.Vec{X: p.X[i], Y: p.Y[i], Z: p.Z[i]}
}

// SetPosition moves particle i. Any spatial hash built earlier is stale afterwards.
func (p *ParticlePool) SetPosition(i int, v r3.Vec) {
	p.X[i], p.Y[i], p.Z[i] = v.X, v.Y, v.Z
}

// Composition copies the concentration vector of particle i into dst and returns it.
func (p *ParticlePool) Composition(i int, dst []float64) []float64 {
	dst = dst[:0]
	for m := range p.Materials {
		dst = append(dst, p.Materials[m][i])
	}
	return dst
}

// MaterialSum returns the sum of concentrations of particle i.
func (p *ParticlePool) MaterialSum(i int) float64 {
	var sum float64
	for m := range p.Materials {
		sum += p.Materials[m][i]
	}
	return sum
}

// Dominant returns the channel with the highest concentration in particle i.
// Ties resolve to the lowest channel.
func (p *ParticlePool) Dominant(i int) int {
	best := 0
	for m := 1; m < p.MaterialCount; m++ {
		if p.Materials[m][i] > p.Materials[best][i] {
			best = m
		}
	}
	return best
}

// NeighborsOf returns the cached neighbor indices of particle i.
// The slice aliases pool storage and is valid until the next neighbor pass.
func (p *ParticlePool) NeighborsOf(i int) []int32 {
	base := i * p.MaxNeighbors
	return p.Neighbors[base : base+int(p.NeighborCount[i])]
}

// Normalize rescales particle i's concentrations to sum to 1.
// A sum near zero resets the particle to a uniform distribution.
func (p *ParticlePool) Normalize(i int) {
	sum := p.MaterialSum(i)
	if !(sum > sumEpsilon) || math.IsInf(sum, 0) {
		uniform := 1.0 / float64(p.MaterialCount)
		for m := range p.Materials {
			p.Materials[m][i] = uniform
		}
		return
	}
	for m := range p.Materials {
		p.Materials[m][i] /= sum
	}
}

// applyDeltas commits c += delta*scale for particles in [start, end),
// clamps at zero and renormalizes.
func (p *ParticlePool) applyDeltas(delta [][]float64, scale float64, start, end int) {
	for i := start; i < end; i++ {
		for m := range p.Materials {
			v := p.Materials[m][i] + delta[m][i]*scale
			if !(v > 0) {
				v = 0
			}
			p.Materials[m][i] = v
		}
		p.Normalize(i)
	}
}

// newDeltaBuffer grows buf to materialCount x capacity.
func newDeltaBuffer(buf [][]float64, materialCount, capacity int) [][]float64 {
	if len(buf) != materialCount {
		buf = make([][]float64, materialCount)
	}
	for m := range buf {
		if len(buf[m]) < capacity {
			buf[m] = make([]float64, capacity)
		}
	}
	return buf
}
