package systems

import "math"

// ComputeDensity recomputes Pressure[i] = sum over cached neighbors j of
// Mass[j] * W(|x_i - x_j|), self included.
func ComputeDensity(pool *ParticlePool, kernel Kernel, workers *WorkerPool) {
	workers.Run(pool.Count, func(start, end int) {
		for i := start; i < end; i++ {
			var rho float64
			xi, yi, zi := pool.X[i], pool.Y[i], pool.Z[i]
			for _, j := range pool.NeighborsOf(i) {
				r2 := distanceSq(xi, yi, zi, pool.X[j], pool.Y[j], pool.Z[j])
				rho += pool.Mass[j] * kernel.DensitySq(r2)
			}
			pool.Pressure[i] = rho
		}
	})
}

// MeanDensity returns the average of the density accumulator over live particles.
func MeanDensity(pool *ParticlePool) float64 {
	if pool.Count == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < pool.Count; i++ {
		sum += pool.Pressure[i]
	}
	return sum / float64(pool.Count)
}

// distance returns the Euclidean distance between particles i and j.
func distance(pool *ParticlePool, i, j int) float64 {
	return math.Sqrt(distanceSq(pool.X[i], pool.Y[i], pool.Z[i], pool.X[j], pool.Y[j], pool.Z[j]))
}
