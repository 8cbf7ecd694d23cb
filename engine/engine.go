package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-scene/engine/config"
	"github.com/Carmen-Shannon/oxy-scene/engine/emitter"
	"github.com/Carmen-Shannon/oxy-scene/engine/gpu"
	"github.com/Carmen-Shannon/oxy-scene/engine/loader"
	"github.com/Carmen-Shannon/oxy-scene/engine/logger"
	"github.com/Carmen-Shannon/oxy-scene/engine/profiler"
	"github.com/Carmen-Shannon/oxy-scene/engine/scene"
	"github.com/Carmen-Shannon/oxy-scene/engine/updater"
	"go.uber.org/zap"
)

// FrameTarget supplies the render pass each frame records into.
type FrameTarget interface {
	// BeginFrame opens the frame's render pass.
	//
	// Returns:
	//   - gpu.RenderPass: the pass to record into
	//   - gpu.Pipeline: the pipeline models are drawn with
	//   - error: error if the frame cannot be started; the frame is skipped
	BeginFrame() (gpu.RenderPass, gpu.Pipeline, error)

	// EndFrame closes and submits the pass opened by BeginFrame.
	EndFrame()
}

// engine implements the Engine interface.
// Coordinates the tick and render loops over the registered scenes.
type engine struct {
	mu sync.Mutex

	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	cfg      *config.Config
	logger   *zap.Logger
	device   gpu.Device
	textures gpu.TextureCache
	loader   loader.Loader
	updater  updater.Updater
	emitter  emitter.Emitter
	profiler *profiler.Profiler
	target   FrameTarget

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)

	scenes map[int]scene.Scene

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
}

// Engine is the composition root of the scene runtime.
// It owns the loader, updater, emitter and profiler, and drives them over its scenes.
type Engine interface {
	// Config returns the configuration the engine was built with.
	Config() *config.Config

	// Device returns the GPU device assets are uploaded to.
	Device() gpu.Device

	// Loader returns the asset loader.
	Loader() loader.Loader

	// Updater returns the frame updater.
	Updater() updater.Updater

	// Emitter returns the draw emitter.
	Emitter() emitter.Emitter

	// Profiler returns the frame profiler.
	Profiler() *profiler.Profiler

	// SetTickRate sets the engine tick rate in frames per second.
	// The tick callback will be called at this rate for game logic updates.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick.
	// Use this for game logic and input processing.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called after each render frame.
	//
	// Parameters:
	//   - callback: function to call each render frame, receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// AddScene registers a scene at the given z-index key.
	// Scenes are updated and drawn in ascending key order.
	//
	// Parameters:
	//   - key: the z-index determining draw order (lower draws first)
	//   - s: the Scene to register
	AddScene(key int, s scene.Scene)

	// RemoveScene removes the scene at the given z-index key.
	//
	// Parameters:
	//   - key: the z-index of the scene to remove
	RemoveScene(key int)

	// Scene retrieves the scene registered at the given z-index key.
	// Returns nil if no scene exists at that key.
	//
	// Parameters:
	//   - key: the z-index of the scene to retrieve
	//
	// Returns:
	//   - scene.Scene: the scene at the key, or nil if not found
	Scene(key int) scene.Scene

	// Scenes returns a copy of all registered scenes keyed by z-index.
	//
	// Returns:
	//   - map[int]scene.Scene: a copy of the scenes map
	Scenes() map[int]scene.Scene

	// Update advances every active scene by delta seconds.
	//
	// Parameters:
	//   - delta: elapsed time in seconds
	//
	// Returns:
	//   - error: the joined scene errors
	Update(delta float32) error

	// Draw records every active scene into pass.
	//
	// Parameters:
	//   - pass: the render pass
	//   - pipeline: the pipeline models are drawn with
	//
	// Returns:
	//   - emitter.PassCounts: the draws recorded per alpha pass
	Draw(pass gpu.RenderPass, pipeline gpu.Pipeline) emitter.PassCounts

	// Frame runs one full frame: Update, then Draw into the frame target when one is set, then the
	// render callback and the profiler tick.
	//
	// Parameters:
	//   - delta: elapsed time in seconds
	//
	// Returns:
	//   - emitter.PassCounts: the draws recorded per alpha pass
	//   - error: update or frame target errors
	Frame(delta float32) (emitter.PassCounts, error)

	// Run starts the tick and render loops and blocks until ctx is done or Quit is called.
	//
	// Parameters:
	//   - ctx: the run context
	Run(ctx context.Context)

	// Quit signals all engine goroutines to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()

	// Close stops the updater's pool and unloads every asset the loader holds. Models still referenced by
	// scenes stay valid until they are destroyed.
	Close()
}

// NewEngine creates a new Engine instance with the provided options.
// Components that are not supplied are built from the engine config.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		scenes:          make(map[int]scene.Scene),
		engineTickRate:  time.Second / 60,
	}

	for _, opt := range options {
		opt(e)
	}

	if e.cfg == nil {
		e.cfg = config.Default()
	}
	if e.logger == nil {
		e.logger = logger.Named("engine")
	}
	if e.loader == nil {
		opts := []loader.LoaderBuilderOption{
			loader.WithConfig(e.cfg.Loader),
			loader.WithLogger(e.logger.Named("loader")),
		}
		if e.device != nil {
			opts = append(opts, loader.WithDevice(e.device))
		}
		if e.textures != nil {
			opts = append(opts, loader.WithTextureCache(e.textures))
		}
		e.loader = loader.NewLoader(loader.BackendTypeGLTF, opts...)
	}
	if e.updater == nil {
		e.updater = updater.NewUpdater(updater.WithConfig(e.cfg.Updater), updater.WithLogger(e.logger.Named("updater")))
	}
	if e.emitter == nil {
		e.emitter = emitter.NewEmitter(emitter.WithLogger(e.logger.Named("emitter")))
	}
	if e.profiler == nil {
		e.profiler = profiler.NewProfiler(profiler.WithConfig(e.cfg.Profiler), profiler.WithLogger(e.logger.Named("profiler")))
	}

	return e
}

func (e *engine) Config() *config.Config       { return e.cfg }
func (e *engine) Device() gpu.Device           { return e.device }
func (e *engine) Loader() loader.Loader        { return e.loader }
func (e *engine) Updater() updater.Updater     { return e.updater }
func (e *engine) Emitter() emitter.Emitter     { return e.emitter }
func (e *engine) Profiler() *profiler.Profiler { return e.profiler }

// activeScenes returns the active scenes in ascending z-index order.
func (e *engine) activeScenes() []scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	keys := make([]int, 0, len(e.scenes))
	for k := range e.scenes {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	var active []scene.Scene
	for _, k := range keys {
		if s := e.scenes[k]; s.Active() {
			active = append(active, s)
		}
	}
	return active
}

func (e *engine) Update(delta float32) error {
	start := time.Now()
	var errs []error
	for _, s := range e.activeScenes() {
		errs = append(errs, s.Update(e.updater, delta))
	}
	e.profiler.RecordUpdate(time.Since(start))
	return errors.Join(errs...)
}

func (e *engine) Draw(pass gpu.RenderPass, pipeline gpu.Pipeline) emitter.PassCounts {
	start := time.Now()
	var counts emitter.PassCounts
	for _, s := range e.activeScenes() {
		counts = counts.Add(s.Draw(e.emitter, pass, pipeline))
	}
	e.profiler.RecordDraw(time.Since(start), counts.Total())
	return counts
}

func (e *engine) Frame(delta float32) (emitter.PassCounts, error) {
	var counts emitter.PassCounts
	err := e.Update(delta)

	if e.target != nil {
		pass, pipeline, ferr := e.target.BeginFrame()
		if ferr != nil {
			err = errors.Join(err, fmt.Errorf("failed to begin frame: %w", ferr))
		} else {
			counts = e.Draw(pass, pipeline)
			e.target.EndFrame()
		}
	}

	if e.renderCallback != nil {
		e.renderCallback(delta)
	}
	e.profiler.Tick()
	return counts, err
}

func (e *engine) Run(ctx context.Context) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.mu.Unlock()

	e.wg.Add(2)
	go e.handleEngine()
	go e.handleRender()

	select {
	case <-ctx.Done():
		e.signalQuit()
	case <-e.quitChannel:
	}
	e.wg.Wait()
}

// Quit signals all engine goroutines to stop.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
		close(e.quitChannel)
	})
}

func (e *engine) Close() {
	e.signalQuit()
	e.wg.Wait()
	e.updater.Close()
	e.loader.Close()
}

// handleEngine runs the fixed-rate engine tick loop in its own goroutine.
// Fires the tick callback at the configured tick rate and listens for dynamic rate changes
// via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleRender runs the uncapped (or frame-limited) render loop in its own goroutine.
// Recovers from panics to avoid crashing the process and signals quit on recovery.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("render goroutine recovered from panic", zap.Any("panic", r))
			e.signalQuit()
		}
	}()

	lastRender := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
			now := time.Now()
			dt := float32(now.Sub(lastRender).Seconds())
			lastRender = now

			if _, err := e.Frame(dt); err != nil {
				e.logger.Warn("frame failed", zap.Error(err))
			}

			// Frame rate limiting
			if e.renderFrameLimit > 0 {
				elapsed := time.Since(lastRender)
				if remaining := e.renderFrameLimit - elapsed; remaining > 0 {
					time.Sleep(remaining)
				}
			}
		}
	}
}

// SetTickRate sets the engine tick rate in frames per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if !(fps > 0) {
		fps = 60
	}
	newRate := frameDuration(fps)

	e.mu.Lock()
	running := e.running
	e.mu.Unlock()

	if !running {
		e.engineTickRate = newRate
		return
	}
	// Non-blocking send - if a change is pending, replace it
	select {
	case e.tickRateChannel <- newRate:
	default:
		select {
		case <-e.tickRateChannel:
		default:
		}
		e.tickRateChannel <- newRate
	}
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	if !(fps > 0) {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = frameDuration(fps)
}

// frameDuration converts a positive rate into a period. Fractional rates give periods longer than a
// second, and the result is never below one nanosecond.
func frameDuration(fps float64) time.Duration {
	return max(time.Duration(float64(time.Second)/fps), time.Nanosecond)
}

func (e *engine) AddScene(key int, s scene.Scene) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scenes[key] = s
}

func (e *engine) RemoveScene(key int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.scenes, key)
}

func (e *engine) Scene(key int) scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scenes[key]
}

func (e *engine) Scenes() map[int]scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := make(map[int]scene.Scene, len(e.scenes))
	for k, v := range e.scenes {
		cp[k] = v
	}
	return cp
}
