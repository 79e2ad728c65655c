package systems

import "math"

// Kernel holds the smoothing kernels for a support radius H.
// Powers of H are precomputed once.
type Kernel struct {
	H  float64
	H2 float64

	poly6 float64 // 315 / (64 pi h^9)
	visc  float64 // 45 / (pi h^6)
}

// NewKernel creates kernels with support radius h. A non-positive h yields
// kernels that are zero everywhere.
func NewKernel(h float64) Kernel {
	if !(h > 0) || math.IsInf(h, 0) {
		return Kernel{}
	}
	h2 := h * h
	h3 := h2 * h
	h6 := h3 * h3
	h9 := h6 * h3
	return Kernel{
		H:     h,
		H2:    h2,
		poly6: 315.0 / (64.0 * math.Pi * h9),
		visc:  45.0 / (math.Pi * h6),
	}
}

// Density is the poly6 kernel: k6 * (h^2 - r^2)^3 for r < h, else 0.
func (k Kernel) Density(r float64) float64 {
	if r < 0 {
		r = -r
	}
	if !(r < k.H) {
		return 0
	}
	return k.DensitySq(r * r)
}

// DensitySq evaluates the density kernel from a squared distance.
func (k Kernel) DensitySq(r2 float64) float64 {
	if !(r2 < k.H2) {
		return 0
	}
	d := k.H2 - r2
	return k.poly6 * d * d * d
}

// Diffusion is the viscosity-Laplacian kernel: kv * (h - r) for r < h, else 0.
func (k Kernel) Diffusion(r float64) float64 {
	if r < 0 {
		r = -r
	}
	if !(r < k.H) {
		return 0
	}
	return k.visc * (k.H - r)
}
