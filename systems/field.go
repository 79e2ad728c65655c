package systems

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/alloy/components"
)

// VoxelField is the particle pool resampled onto a uniform grid.
// Cell (x, y, z) lives at flat index x + y*Resolution + z*Resolution^2.
type VoxelField struct {
	Resolution int
	Bounds     components.Bounds
	CellSize   r3.Vec
	Density    []float64
	Fractions  [][]float64 // [material][cell]
}

// Len returns the number of cells.
func (f *VoxelField) Len() int {
	return f.Resolution * f.Resolution * f.Resolution
}

// Index returns the flat index of cell (x, y, z).
func (f *VoxelField) Index(x, y, z int) int {
	return x + y*f.Resolution + z*f.Resolution*f.Resolution
}

// Coords is the inverse of Index.
func (f *VoxelField) Coords(idx int) (x, y, z int) {
	r := f.Resolution
	return idx % r, (idx / r) % r, idx / (r * r)
}

// At returns the density of cell (x, y, z) and appends its per-material
// fractions to dst.
func (f *VoxelField) At(x, y, z int, dst []float64) (float64, []float64) {
	idx := f.Index(x, y, z)
	for m := range f.Fractions {
		dst = append(dst, f.Fractions[m][idx])
	}
	return f.Density[idx], dst
}

// CellCenter returns the world position of a cell center.
func (f *VoxelField) CellCenter(x, y, z int) r3.Vec {
	return r3.Vec{
		X: f.Bounds.Min.X + (float64(x)+0.5)*f.CellSize.X,
		Y: f.Bounds.Min.Y + (float64(y)+0.5)*f.CellSize.Y,
		Z: f.Bounds.Min.Z + (float64(z)+0.5)*f.CellSize.Z,
	}
}

// FieldSummary holds aggregate statistics of a field.
type FieldSummary struct {
	OccupiedCells int       // cells with density above zero
	MaxDensity    float64
	MeanDensity   float64   // over occupied cells
	MaterialShare []float64 // density-weighted share of each material
}

// Summary computes aggregate statistics of the field.
func (f *VoxelField) Summary() FieldSummary {
	s := FieldSummary{MaterialShare: make([]float64, len(f.Fractions))}
	var total float64
	for c, d := range f.Density {
		if !(d > sumEpsilon) {
			continue
		}
		s.OccupiedCells++
		total += d
		if d > s.MaxDensity {
			s.MaxDensity = d
		}
		for m := range f.Fractions {
			s.MaterialShare[m] += d * f.Fractions[m][c]
		}
	}
	if s.OccupiedCells > 0 {
		s.MeanDensity = total / float64(s.OccupiedCells)
	}
	if total > 0 {
		floats.Scale(1/total, s.MaterialShare)
	}
	return s
}

// Rasterize resamples the pool onto a resolution^3 grid inside bounds. The
// hash must be built from the current positions. Each cell accumulates
// weight = Mass[j] * Wdensity(r) over particles within the kernel support;
// fractions are weight-averaged concentrations, 0 where the weight vanishes.
// The pool is not modified.
func Rasterize(pool *ParticlePool, hash *SpatialHash, kernel Kernel, bounds components.Bounds, resolution int, workers *WorkerPool) *VoxelField {
	if resolution < 1 {
		resolution = 1
	}
	size := bounds.Size()
	res := float64(resolution)
	f := &VoxelField{
		Resolution: resolution,
		Bounds:     bounds,
		CellSize:   r3.Vec{X: size.X / res, Y: size.Y / res, Z: size.Z / res},
	}
	cells := f.Len()
	f.Density = make([]float64, cells)
	f.Fractions = make([][]float64, pool.MaterialCount)
	for m := range f.Fractions {
		f.Fractions[m] = make([]float64, cells)
	}

	xs := cellCenters(bounds.Min.X, f.CellSize.X, resolution)
	ys := cellCenters(bounds.Min.Y, f.CellSize.Y, resolution)
	zs := cellCenters(bounds.Min.Z, f.CellSize.Z, resolution)

	workers.Run(cells, func(start, end int) {
		var found []int32
		acc := make([]float64, pool.MaterialCount)

		for c := start; c < end; c++ {
			x, y, z := f.Coords(c)
			center := r3.Vec{X: xs[x], Y: ys[y], Z: zs[z]}

			found = hash.Query(pool, center, kernel.H, found[:0])
			var sum float64
			for m := range acc {
				acc[m] = 0
			}
			for _, nj := range found {
				j := int(nj)
				r2 := distanceSq(center.X, center.Y, center.Z, pool.X[j], pool.Y[j], pool.Z[j])
				w := pool.Mass[j] * kernel.DensitySq(r2)
				if w == 0 {
					continue
				}
				sum += w
				for m := range acc {
					acc[m] += w * pool.Materials[m][j]
				}
			}

			f.Density[c] = sum
			if sum > sumEpsilon {
				for m := range acc {
					f.Fractions[m][c] = acc[m] / sum
				}
			}
		}
	})

	return f
}

// cellCenters returns the n cell-center coordinates along one axis.
func cellCenters(min, cell float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = min + 0.5*cell
		return out
	}
	floats.Span(out, min+0.5*cell, min+(float64(n)-0.5)*cell)
	return out
}
