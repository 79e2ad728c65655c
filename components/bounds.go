// Package components defines the plain data types shared by the solver systems.
package components

import "gonum.org/v1/gonum/spatial/r3"

// Bounds is an axis-aligned box in world units.
type Bounds struct {
	Min, Max r3.Vec
}

// NewBounds returns a canonical box spanning a and b.
func NewBounds(a, b r3.Vec) Bounds {
	return Bounds{
		Min: r3.Vec{X: minf(a.X, b.X), Y: minf(a.Y, b.Y), Z: minf(a.Z, b.Z)},
		Max: r3.Vec{X: maxf(a.X, b.X), Y: maxf(a.Y, b.Y), Z: maxf(a.Z, b.Z)},
	}
}

// Size returns the edge lengths of the box.
func (b Bounds) Size() r3.Vec {
	return r3.Sub(b.Max, b.Min)
}

// Center returns the midpoint of the box.
func (b Bounds) Center() r3.Vec {
	return r3.Scale(0.5, r3.Add(b.Min, b.Max))
}

// Volume returns the box volume (0 for degenerate boxes).
func (b Bounds) Volume() float64 {
	s := b.Size()
	if s.X <= 0 || s.Y <= 0 || s.Z <= 0 {
		return 0
	}
	return s.X * s.Y * s.Z
}

// Contains reports whether p lies inside the box, faces inclusive.
func (b Bounds) Contains(p r3.Vec) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
