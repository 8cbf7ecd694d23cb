package engine

import (
	"github.com/Carmen-Shannon/oxy-scene/engine/config"
	"github.com/Carmen-Shannon/oxy-scene/engine/gpu"
	"github.com/Carmen-Shannon/oxy-scene/engine/loader"
	"github.com/Carmen-Shannon/oxy-scene/engine/profiler"
	"github.com/Carmen-Shannon/oxy-scene/engine/scene"
	"github.com/Carmen-Shannon/oxy-scene/engine/updater"
	"go.uber.org/zap"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithConfig sets the configuration the default loader, updater and profiler are built from.
//
// Parameters:
//   - cfg: the runtime configuration
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithConfig(cfg *config.Config) EngineBuilderOption {
	return func(e *engine) {
		e.cfg = cfg
	}
}

// WithDevice sets the GPU device assets are uploaded to. Without a device the loader cannot load.
//
// Parameters:
//   - d: the GPU device
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithDevice(d gpu.Device) EngineBuilderOption {
	return func(e *engine) {
		e.device = d
	}
}

// WithTextureCache shares an existing texture cache with the default loader.
//
// Parameters:
//   - c: the texture cache
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTextureCache(c gpu.TextureCache) EngineBuilderOption {
	return func(e *engine) {
		e.textures = c
	}
}

// WithLoader replaces the default loader.
//
// Parameters:
//   - l: the loader
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithLoader(l loader.Loader) EngineBuilderOption {
	return func(e *engine) {
		e.loader = l
	}
}

// WithUpdater replaces the default updater. The engine closes it on Close.
//
// Parameters:
//   - u: the updater
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithUpdater(u updater.Updater) EngineBuilderOption {
	return func(e *engine) {
		e.updater = u
	}
}

// WithProfiler replaces the default profiler.
//
// Parameters:
//   - p: the profiler
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiler(p *profiler.Profiler) EngineBuilderOption {
	return func(e *engine) {
		e.profiler = p
	}
}

// WithFrameTarget sets where each frame is drawn. Without a target Frame only updates.
//
// Parameters:
//   - t: the frame target
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithFrameTarget(t FrameTarget) EngineBuilderOption {
	return func(e *engine) {
		e.target = t
	}
}

// WithLogger sets the engine's logger. Components built by the engine log through named children of it.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithLogger(logger *zap.Logger) EngineBuilderOption {
	return func(e *engine) {
		e.logger = logger
	}
}

// WithTickRate sets the engine tick rate in frames per second.
// Values <= 0 and NaN are rejected in favour of the default (60Hz). Fractional rates are kept.
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if !(fps > 0) {
			fps = 60.0
		}
		e.engineTickRate = frameDuration(fps)
	}
}

// WithScene registers a scene at the given z-index key during engine construction.
// Scenes are updated and drawn in ascending key order.
//
// Parameters:
//   - key: the z-index determining draw order
//   - s: the Scene to register
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithScene(key int, s scene.Scene) EngineBuilderOption {
	return func(e *engine) {
		e.scenes[key] = s
	}
}
