package profiler

import (
	"time"

	"github.com/Carmen-Shannon/oxy-scene/engine/config"
	"go.uber.org/zap"
)

// ProfilerBuilderOption is a functional option for configuring a Profiler via NewProfiler.
type ProfilerBuilderOption func(*Profiler)

// WithConfig is an option builder that sets whether the profiler logs and how often.
//
// Parameters:
//   - cfg: the profiler configuration
//
// Returns:
//   - ProfilerBuilderOption: a function that applies the config option to a profiler
func WithConfig(cfg config.ProfilerConfig) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.cfg = cfg
	}
}

// WithLogger is an option builder that sets the Profiler's logger.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - ProfilerBuilderOption: a function that applies the logger option to a profiler
func WithLogger(logger *zap.Logger) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.logger = logger
	}
}

// WithClock is an option builder that replaces time.Now.
//
// Parameters:
//   - now: the clock
//
// Returns:
//   - ProfilerBuilderOption: a function that applies the clock option to a profiler
func WithClock(now func() time.Time) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.now = now
	}
}
