package parallel

import "github.com/Carmen-Shannon/oxy-scene/engine/config"

// PoolBuilderOption is a functional option for configuring a Pool.
type PoolBuilderOption func(*poolImpl)

// WithWorkers sets the number of helper goroutines. Values below 1 are ignored.
//
// Parameters:
//   - n: the worker count
//
// Returns:
//   - PoolBuilderOption: a function that applies the worker count option to a poolImpl
func WithWorkers(n int) PoolBuilderOption {
	return func(p *poolImpl) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithThreshold sets the collection size at or below which ForEach runs inline. Negative values are ignored.
//
// Parameters:
//   - n: the inline threshold
//
// Returns:
//   - PoolBuilderOption: a function that applies the threshold option to a poolImpl
func WithThreshold(n int) PoolBuilderOption {
	return func(p *poolImpl) {
		if n >= 0 {
			p.threshold = n
		}
	}
}

// WithQueueSize sets the capacity of the task queue. Values below 1 are ignored.
//
// Parameters:
//   - n: the queue capacity
//
// Returns:
//   - PoolBuilderOption: a function that applies the queue size option to a poolImpl
func WithQueueSize(n int) PoolBuilderOption {
	return func(p *poolImpl) {
		if n > 0 {
			p.queueSize = n
		}
	}
}

// WithConfig applies the updater section of a runtime configuration.
//
// Parameters:
//   - cfg: the updater configuration
//
// Returns:
//   - PoolBuilderOption: a function that applies all three settings to a poolImpl
func WithConfig(cfg config.UpdaterConfig) PoolBuilderOption {
	return func(p *poolImpl) {
		WithWorkers(cfg.Workers)(p)
		WithThreshold(cfg.ParallelThreshold)(p)
		WithQueueSize(cfg.QueueSize)(p)
	}
}
