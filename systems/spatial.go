package systems

import (
	"math"
	"sync/atomic"

	"gonum.org/v1/gonum/spatial/r3"
)

// Spatial hash primes.
const (
	hashP1 = 73856093
	hashP2 = 19349663
	hashP3 = 83492791
)

// minHashTableSize is the smallest bucket table allocated by Build.
const minHashTableSize = 1024

// minCellSize guards against zero or negative cell sizes.
const minCellSize = 1e-9

// NeighborStats reports the outcome of a neighbor pass.
type NeighborStats struct {
	Total     int // neighbors stored across all particles
	Dropped   int // in-radius candidates discarded by the neighbor cap
	Saturated int // particles whose cache hit the cap
}

// SpatialHash maps particle positions to buckets for radius queries.
//
// Each bucket is a singly linked list threaded through next, newest first.
// The structure is built in one pass from a pool snapshot and is read-only
// afterwards, so concurrent queries are safe. Any position change requires a
// fresh Build.
type SpatialHash struct {
	// Workers parallelizes FindNeighbors. Nil runs inline.
	Workers *WorkerPool

	cellSize float64
	invCell  float64
	mask     int
	count    int

	heads []int32 // bucket -> first particle, -1 when empty
	next  []int32 // particle -> next particle in the same bucket

	// Integer cell of every particle. Walking a bucket filters on these so
	// that cells colliding in the same bucket never yield duplicates.
	cellX, cellY, cellZ []int32
}

// NewSpatialHash creates an empty hash.
func NewSpatialHash() *SpatialHash {
	return &SpatialHash{}
}

// CellSize returns the cell size of the last Build.
func (h *SpatialHash) CellSize() float64 {
	return h.cellSize
}

// TableSize returns the number of buckets.
func (h *SpatialHash) TableSize() int {
	return len(h.heads)
}

// Build rebuilds the hash from the current pool positions.
func (h *SpatialHash) Build(pool *ParticlePool, cellSize float64) {
	if !(cellSize > minCellSize) {
		cellSize = minCellSize
	}
	n := pool.Count
	size := nextPowerOfTwo(max(minHashTableSize, 2*n))

	h.cellSize = cellSize
	h.invCell = 1 / cellSize
	h.mask = size - 1
	h.count = n

	if cap(h.heads) < size {
		h.heads = make([]int32, size)
	}
	h.heads = h.heads[:size]
	for b := range h.heads {
		h.heads[b] = -1
	}

	if cap(h.next) < n {
		h.next = make([]int32, n)
		h.cellX = make([]int32, n)
		h.cellY = make([]int32, n)
		h.cellZ = make([]int32, n)
	}
	h.next = h.next[:n]
	h.cellX = h.cellX[:n]
	h.cellY = h.cellY[:n]
	h.cellZ = h.cellZ[:n]

	for i := 0; i < n; i++ {
		cx, cy, cz := h.cellOf(pool.X[i], pool.Y[i], pool.Z[i])
		h.cellX[i], h.cellY[i], h.cellZ[i] = cx, cy, cz

		b := h.bucket(cx, cy, cz)
		h.next[i] = h.heads[b]
		h.heads[b] = int32(i)
	}
}

// FindNeighbors fills the pool neighbor cache with every particle within
// radius of each particle, self included, up to pool.MaxNeighbors. Candidates
// beyond the cap are dropped and counted in the returned stats; which ones are
// kept is unspecified.
func (h *SpatialHash) FindNeighbors(pool *ParticlePool, radius float64) NeighborStats {
	n := h.count
	if n > pool.Count {
		n = pool.Count
	}
	if radius < 0 {
		radius = 0
	}
	cellRadius := int32(math.Ceil(radius * h.invCell))
	radiusSq := radius * radius
	maxN := pool.MaxNeighbors

	var total, dropped, saturated atomic.Int64

	h.Workers.Run(n, func(start, end int) {
		var localTotal, localDropped, localSaturated int64

		for i := start; i < end; i++ {
			base := i * maxN
			xi, yi, zi := pool.X[i], pool.Y[i], pool.Z[i]
			ci, cj, ck := h.cellX[i], h.cellY[i], h.cellZ[i]
			count := 0
			over := 0

			for dz := -cellRadius; dz <= cellRadius; dz++ {
				for dy := -cellRadius; dy <= cellRadius; dy++ {
					for dx := -cellRadius; dx <= cellRadius; dx++ {
						cx, cy, cz := ci+dx, cj+dy, ck+dz
						for j := h.heads[h.bucket(cx, cy, cz)]; j >= 0; j = h.next[j] {
							if h.cellX[j] != cx || h.cellY[j] != cy || h.cellZ[j] != cz {
								continue
							}
							if distanceSq(xi, yi, zi, pool.X[j], pool.Y[j], pool.Z[j]) > radiusSq {
								continue
							}
							if count < maxN {
								pool.Neighbors[base+count] = j
								count++
							} else {
								over++
							}
						}
					}
				}
			}

			pool.NeighborCount[i] = int32(count)
			localTotal += int64(count)
			if over > 0 {
				localDropped += int64(over)
				localSaturated++
			}
		}

		total.Add(localTotal)
		dropped.Add(localDropped)
		saturated.Add(localSaturated)
	})

	for i := n; i < pool.Count; i++ {
		pool.NeighborCount[i] = 0
	}

	return NeighborStats{
		Total:     int(total.Load()),
		Dropped:   int(dropped.Load()),
		Saturated: int(saturated.Load()),
	}
}

// Query appends to dst the indices of all particles within radius of point.
// There is no cap. Reuse dst across calls to avoid allocations.
func (h *SpatialHash) Query(pool *ParticlePool, point r3.Vec, radius float64, dst []int32) []int32 {
	if h.count == 0 || radius < 0 {
		return dst
	}
	cellRadius := int32(math.Ceil(radius * h.invCell))
	radiusSq := radius * radius
	ci, cj, ck := h.cellOf(point.X, point.Y, point.Z)

	for dz := -cellRadius; dz <= cellRadius; dz++ {
		for dy := -cellRadius; dy <= cellRadius; dy++ {
			for dx := -cellRadius; dx <= cellRadius; dx++ {
				cx, cy, cz := ci+dx, cj+dy, ck+dz
				for j := h.heads[h.bucket(cx, cy, cz)]; j >= 0; j = h.next[j] {
					if h.cellX[j] != cx || h.cellY[j] != cy || h.cellZ[j] != cz {
						continue
					}
					if distanceSq(point.X, point.Y, point.Z, pool.X[j], pool.Y[j], pool.Z[j]) <= radiusSq {
						dst = append(dst, j)
					}
				}
			}
		}
	}
	return dst
}

// cellOf returns the integer cell containing a position.
func (h *SpatialHash) cellOf(x, y, z float64) (int32, int32, int32) {
	return int32(math.Floor(x * h.invCell)), int32(math.Floor(y * h.invCell)), int32(math.Floor(z * h.invCell))
}

// bucket hashes a cell into the table.
func (h *SpatialHash) bucket(cx, cy, cz int32) int {
	v := uint32(cx)*hashP1 ^ uint32(cy)*hashP2 ^ uint32(cz)*hashP3
	return int(v) & h.mask
}
