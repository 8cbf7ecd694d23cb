package loader

import (
	"github.com/Carmen-Shannon/oxy-scene/engine/config"
	"github.com/Carmen-Shannon/oxy-scene/engine/gpu"
	"go.uber.org/zap"
)

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithDevice is an option builder that sets the device assets are uploaded to.
//
// Parameters:
//   - d: the GPU device
//
// Returns:
//   - LoaderBuilderOption: a function that applies the device option to a loader
func WithDevice(d gpu.Device) LoaderBuilderOption {
	return func(l *loader) {
		l.device = d
	}
}

// WithTextureCache is an option builder that shares an existing texture cache with the Loader. The
// Loader does not close a cache it was given.
//
// Parameters:
//   - c: the texture cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the cache option to a loader
func WithTextureCache(c gpu.TextureCache) LoaderBuilderOption {
	return func(l *loader) {
		l.textures = c
	}
}

// WithLogger is an option builder that sets the Loader's logger.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - LoaderBuilderOption: a function that applies the logger option to a loader
func WithLogger(logger *zap.Logger) LoaderBuilderOption {
	return func(l *loader) {
		l.logger = logger
	}
}

// WithConfig is an option builder that sets the asset root, load parallelism and mipmap generation.
//
// Parameters:
//   - cfg: the loader configuration
//
// Returns:
//   - LoaderBuilderOption: a function that applies the config option to a loader
func WithConfig(cfg config.LoaderConfig) LoaderBuilderOption {
	return func(l *loader) {
		l.cfg = cfg
	}
}
