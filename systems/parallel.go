package systems

import (
	"runtime"
	"sync"
)

// parallelThreshold is the minimum item count to split work across workers.
// Below this, running inline is faster than the channel round trips.
const parallelThreshold = 256

// workChunk is a half-open index range handed to a worker.
type workChunk struct {
	start, end int
	fn         func(start, end int)
}

// WorkerPool runs index-range work on persistent goroutines.
//
// Every pass handed to Run must write only to slots owned by its own
// indices; Run returns after all chunks finish, so a commit pass that follows
// sees every result. A nil *WorkerPool runs everything inline.
type WorkerPool struct {
	numWorkers int

	workChan chan workChunk // sends work to workers
	doneChan chan struct{}  // workers signal completion
	stopChan chan struct{}  // signals workers to exit
	wg       sync.WaitGroup // tracks active workers
	running  bool
}

// NewWorkerPool creates a pool. workers <= 0 uses GOMAXPROCS.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &WorkerPool{numWorkers: workers}
}

// Workers returns the number of workers (1 for a nil pool).
func (p *WorkerPool) Workers() int {
	if p == nil {
		return 1
	}
	return p.numWorkers
}

// startWorkers launches the worker goroutines on first use.
func (p *WorkerPool) startWorkers() {
	if p.running {
		return
	}

	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// worker processes chunks until stopped.
func (p *WorkerPool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			chunk.fn(chunk.start, chunk.end)
			p.doneChan <- struct{}{}
		}
	}
}

// Run calls fn over [0, n) split into at most Workers() contiguous chunks
// and blocks until all of them return.
func (p *WorkerPool) Run(n int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	if p == nil || p.numWorkers <= 1 || n < parallelThreshold {
		fn(0, n)
		return
	}

	p.startWorkers()

	chunk := (n + p.numWorkers - 1) / p.numWorkers
	sent := 0
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		p.workChan <- workChunk{start: start, end: end, fn: fn}
		sent++
	}
	for i := 0; i < sent; i++ {
		<-p.doneChan
	}
}

// Close stops the workers. The pool may be reused; it restarts on the next Run.
func (p *WorkerPool) Close() {
	if p == nil || !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}
