package updater

import (
	"github.com/Carmen-Shannon/oxy-scene/engine/config"
	"github.com/Carmen-Shannon/oxy-scene/engine/parallel"
	"go.uber.org/zap"
)

// UpdaterBuilderOption is a functional option for configuring an Updater.
type UpdaterBuilderOption func(*updaterImpl)

// WithPool shares an existing pool with the Updater. The Updater does not stop a pool it was given.
//
// Parameters:
//   - p: the fork-join pool
//
// Returns:
//   - UpdaterBuilderOption: a function that applies the pool option to an updaterImpl
func WithPool(p parallel.Pool) UpdaterBuilderOption {
	return func(u *updaterImpl) {
		u.pool = p
	}
}

// WithConfig sets the threshold, worker count and queue size of the pool the Updater creates.
//
// Parameters:
//   - cfg: the updater configuration
//
// Returns:
//   - UpdaterBuilderOption: a function that applies the config option to an updaterImpl
func WithConfig(cfg config.UpdaterConfig) UpdaterBuilderOption {
	return func(u *updaterImpl) {
		u.cfg = cfg
	}
}

// WithLogger sets the Updater's logger.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - UpdaterBuilderOption: a function that applies the logger option to an updaterImpl
func WithLogger(logger *zap.Logger) UpdaterBuilderOption {
	return func(u *updaterImpl) {
		u.logger = logger
	}
}
