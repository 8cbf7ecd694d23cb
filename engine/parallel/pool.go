// Package parallel provides fork-join dispatch over a shared worker pool for per-frame traversal work.
package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"golang.org/x/sync/semaphore"
)

// DefaultThreshold is the collection size at or below which ForEach runs inline on the caller.
const DefaultThreshold = 3

// Pool runs index-based fork-join loops on a bounded set of reusable goroutines.
type Pool interface {
	// ForEach calls fn once for every index in [0, n) and returns only after every call has completed.
	// When n is at or below the pool's threshold the calls run inline, in order, on the calling goroutine.
	// Otherwise the caller works alongside helper tasks submitted to the worker pool. ForEach may be called
	// from inside fn without risk of deadlock.
	//
	// Parameters:
	//   - n: the number of items
	//   - fn: the work for a single item
	ForEach(n int, fn func(i int))

	// Threshold returns the inline cutoff used by ForEach.
	//
	// Returns:
	//   - int: the threshold
	Threshold() int

	// Workers returns the number of helper goroutines available to the pool.
	//
	// Returns:
	//   - int: the worker count
	Workers() int

	// Stop shuts down the underlying worker goroutines. ForEach keeps working afterwards, inline only.
	Stop()
}

type poolImpl struct {
	workers   int
	threshold int
	queueSize int

	// inflight bounds the helper tasks that may sit in the queue or run at once. Because it never exceeds
	// the queue capacity, SubmitTask never blocks, so a nested ForEach can always make progress itself.
	inflight *semaphore.Weighted
	pool     worker.DynamicWorkerPool
	stopped  atomic.Bool
	taskID   atomic.Int64
}

var _ Pool = &poolImpl{}

// NewPool creates a new fork-join pool with the given options.
//
// Parameters:
//   - options: functional options for configuring the pool
//
// Returns:
//   - Pool: the new pool
func NewPool(options ...PoolBuilderOption) Pool {
	p := &poolImpl{
		workers:   max(runtime.NumCPU()-1, 1),
		threshold: DefaultThreshold,
		queueSize: 1024,
	}
	for _, opt := range options {
		opt(p)
	}

	p.inflight = semaphore.NewWeighted(int64(p.queueSize))
	p.pool = worker.NewDynamicWorkerPool(p.workers, p.queueSize, 1*time.Second)
	return p
}

func (p *poolImpl) ForEach(n int, fn func(i int)) {
	if n <= 0 {
		return
	}
	if n <= p.threshold || p.stopped.Load() {
		for i := range n {
			fn(i)
		}
		return
	}

	var next atomic.Int64
	var wg sync.WaitGroup
	wg.Add(n)

	run := func() {
		for {
			i := int(next.Add(1)) - 1
			if i >= n {
				return
			}
			fn(i)
			wg.Done()
		}
	}

	helpers := min(n-1, p.workers)
	for range helpers {
		if !p.inflight.TryAcquire(1) {
			break
		}
		p.pool.SubmitTask(worker.Task{
			ID: int(p.taskID.Add(1)),
			Do: func() (any, error) {
				defer p.inflight.Release(1)
				run()
				return nil, nil
			},
		})
	}

	run()
	wg.Wait()
}

func (p *poolImpl) Threshold() int {
	return p.threshold
}

func (p *poolImpl) Workers() int {
	return p.workers
}

func (p *poolImpl) Stop() {
	if p.stopped.Swap(true) {
		return
	}
	p.pool.Stop()
}
