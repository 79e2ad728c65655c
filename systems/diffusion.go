package systems

// Diffuser exchanges material concentration between neighboring particles.
//
// Step runs in two passes: every particle's delta is computed against the
// committed state first, then all deltas are committed. Committing in place
// would make the result depend on particle order.
type Diffuser struct {
	// Workers parallelizes both passes. Nil runs inline.
	Workers *WorkerPool

	delta [][]float64
	rates []float64
}

// NewDiffuser creates a diffuser that runs its passes on workers.
func NewDiffuser(workers *WorkerPool) *Diffuser {
	return &Diffuser{Workers: workers}
}

// Step applies one diffusion step:
//
//	delta[m][i] = sum_j Mass[j] * (c[m][j] - c[m][i]) * Wvisc(r_ij) * rates[m]
//	c[m][i]    += delta[m][i] * blendStrength * dt
//
// followed by clamping at zero and renormalization. Channels without a rate
// in rates do not diffuse.
func (d *Diffuser) Step(pool *ParticlePool, kernel Kernel, rates []float64, blendStrength, dt float64) {
	mc := pool.MaterialCount
	d.delta = newDeltaBuffer(d.delta, mc, pool.Capacity)

	if cap(d.rates) < mc {
		d.rates = make([]float64, mc)
	}
	d.rates = d.rates[:mc]
	for m := range d.rates {
		d.rates[m] = 0
		if m < len(rates) {
			d.rates[m] = rates[m]
		}
	}

	delta := d.delta
	rate := d.rates
	mat := pool.Materials

	// Pass 1: accumulate.
	d.Workers.Run(pool.Count, func(start, end int) {
		for i := start; i < end; i++ {
			for m := 0; m < mc; m++ {
				delta[m][i] = 0
			}
			for _, nj := range pool.NeighborsOf(i) {
				j := int(nj)
				if j == i {
					continue
				}
				w := kernel.Diffusion(distance(pool, i, j))
				if w == 0 {
					continue
				}
				mw := pool.Mass[j] * w
				for m := 0; m < mc; m++ {
					delta[m][i] += mw * (mat[m][j] - mat[m][i]) * rate[m]
				}
			}
		}
	})

	// Pass 2: commit.
	scale := blendStrength * dt
	d.Workers.Run(pool.Count, func(start, end int) {
		pool.applyDeltas(delta, scale, start, end)
	})
}
