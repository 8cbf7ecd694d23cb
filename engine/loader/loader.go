package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-scene/engine/config"
	"github.com/Carmen-Shannon/oxy-scene/engine/gpu"
	"github.com/Carmen-Shannon/oxy-scene/engine/logger"
	"github.com/Carmen-Shannon/oxy-scene/engine/model"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrUnsupportedFormat is returned for files that are neither .gltf nor .glb.
	ErrUnsupportedFormat = errors.New("unsupported model format")
	// ErrUnsupportedComponentType is returned for accessors whose component type cannot serve their use,
	// such as float indices or integer animation inputs.
	ErrUnsupportedComponentType = errors.New("unsupported accessor component type")
	// ErrUnsupportedAccessorType is returned for accessors of the wrong element type.
	ErrUnsupportedAccessorType = errors.New("unsupported accessor type")
	// ErrInvalidNodeTransform is returned for a node carrying both a matrix and TRS properties.
	ErrInvalidNodeTransform = errors.New("node has both matrix and TRS transform")
	// ErrMalformedDocument is returned for documents that fail to decode or reference missing objects.
	ErrMalformedDocument = errors.New("malformed glTF document")
	// ErrNoDevice is returned when a load is attempted on a loader built without a device.
	ErrNoDevice = errors.New("loader has no device")
)

// LoaderBackendType identifies the model file format backend to use.
type LoaderBackendType int

const (
	// BackendTypeGLTF selects the glTF/GLB loader backend.
	BackendTypeGLTF LoaderBackendType = iota
)

// Request names one model for LoadMany.
type Request struct {
	Folder   string
	Filename string
	Show     bool
}

// registryEntry is a loaded asset and its canonical model. The registry holds its own asset reference.
type registryEntry struct {
	asset     *model.Asset
	canonical model.Model
}

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	device      gpu.Device
	textures    gpu.TextureCache
	ownTextures bool
	cfg         config.LoaderConfig
	logger      *zap.Logger

	registry map[string]*registryEntry
	group    singleflight.Group

	backendType LoaderBackendType
	backend     loaderBackend
}

// Loader loads glTF assets onto a device and aliases repeated loads. The first load of a key builds the
// shared asset and returns its canonical model; every later load of the key returns a new instance that
// shares the asset's geometry and textures and owns its own pose and uniforms.
type Loader interface {
	// Load imports folder/filename, or returns a new instance when the key is already loaded. Concurrent
	// first loads of one key build the asset once.
	//
	// Parameters:
	//   - ctx: cancels the load before it starts building
	//   - folder: the directory of the model, joined onto the configured asset root when relative
	//   - filename: the .gltf or .glb file name
	//   - show: the initial render flag of the returned model
	//
	// Returns:
	//   - model.Model: the canonical model on first load, an instance afterwards
	//   - error: ErrUnsupportedFormat, a wrapped parser error, or a device error; no model is returned
	Load(ctx context.Context, folder, filename string, show bool) (model.Model, error)

	// LoadReader imports a document from r under key, or returns a new instance when key is loaded.
	//
	// Parameters:
	//   - ctx: cancels the load before it starts building
	//   - key: the registry key
	//   - r: the reader providing the document
	//   - isGLB: true for GLB data
	//   - baseDir: directory external resources resolve against
	//   - show: the initial render flag
	//
	// Returns:
	//   - model.Model: the loaded model
	//   - error: error if loading fails
	LoadReader(ctx context.Context, key string, r io.Reader, isGLB bool, baseDir string, show bool) (model.Model, error)

	// LoadMany loads several models concurrently, bounded by the configured parallelism. On any failure the
	// models already loaded by the call are destroyed and the first error is returned.
	//
	// Parameters:
	//   - ctx: cancels loads that have not started
	//   - requests: the models to load
	//
	// Returns:
	//   - []model.Model: the models, index-aligned with requests
	//   - error: the first load error
	LoadMany(ctx context.Context, requests []Request) ([]model.Model, error)

	// Get returns the canonical model of a loaded key. It returns nil for unknown keys and once the canonical
	// model has been destroyed; the asset stays registered, so Load still hands out instances.
	//
	// Parameters:
	//   - key: the registry key, folder and filename joined
	//
	// Returns:
	//   - model.Model: the canonical model or nil
	Get(key string) model.Model

	// Assets returns the sorted keys of every loaded asset.
	Assets() []string

	// Unload drops the loader's reference to an asset. Models already handed out keep working; the next
	// Load of the key builds a new asset.
	//
	// Parameters:
	//   - key: the registry key
	//
	// Returns:
	//   - bool: false if the key was not loaded
	Unload(key string) bool

	// Close unloads every asset and closes the texture cache if the loader created it.
	Close()
}

var _ Loader = &loader{}

// NewLoader creates a new Loader instance with the specified backend type and options applied.
// A texture cache is created on the device when none is supplied.
//
// Parameters:
//   - backendType: the type of loader backend to use (e.g., BackendTypeGLTF)
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader configured with the provided backend and options
func NewLoader(backendType LoaderBackendType, options ...LoaderBuilderOption) Loader {
	l := &loader{
		cfg:         config.Default().Loader,
		registry:    make(map[string]*registryEntry),
		backendType: backendType,
	}
	for _, option := range options {
		option(l)
	}

	if l.logger == nil {
		l.logger = logger.Named("loader")
	}
	if l.textures == nil && l.device != nil {
		l.textures = gpu.NewTextureCache(l.device, l.cfg.GenerateMipmaps, l.logger.Named("textures"))
		l.ownTextures = true
	}

	switch backendType {
	case BackendTypeGLTF:
		l.backend = newGLTFLoaderBackend(l.textures, l.logger)
	}
	return l
}

func (l *loader) Load(ctx context.Context, folder, filename string, show bool) (model.Model, error) {
	if err := checkFormat(filename); err != nil {
		return nil, err
	}
	key := filepath.ToSlash(filepath.Join(folder, filename))

	dir := folder
	if l.cfg.AssetRoot != "" && !filepath.IsAbs(dir) {
		dir = filepath.Join(l.cfg.AssetRoot, dir)
	}
	path := filepath.Join(dir, filename)

	return l.load(ctx, key, show, func() (*model.Asset, error) {
		return l.backend.Load(path, key)
	})
}

func (l *loader) LoadReader(ctx context.Context, key string, r io.Reader, isGLB bool, baseDir string, show bool) (model.Model, error) {
	return l.load(ctx, key, show, func() (*model.Asset, error) {
		return l.backend.LoadReader(r, isGLB, baseDir, key)
	})
}

// load returns an instance of a registered key or builds the asset through importFn exactly once.
func (l *loader) load(ctx context.Context, key string, show bool, importFn func() (*model.Asset, error)) (model.Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if l.device == nil || l.backend == nil {
		return nil, ErrNoDevice
	}

	if entry := l.entry(key); entry != nil {
		return l.instance(entry, show)
	}

	var built bool
	v, err, _ := l.group.Do(key, func() (any, error) {
		if entry := l.entry(key); entry != nil {
			return entry, nil
		}
		entry, err := l.build(key, show, importFn)
		if err != nil {
			return nil, err
		}
		built = true
		return entry, nil
	})
	if err != nil {
		return nil, err
	}

	entry := v.(*registryEntry)
	if built {
		return entry.canonical, nil
	}
	return l.instance(entry, show)
}

// build imports, uploads and registers an asset. Every GPU object of a failed build is released.
func (l *loader) build(key string, show bool, importFn func() (*model.Asset, error)) (*registryEntry, error) {
	asset, err := importFn()
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", key, err)
	}
	if err := asset.Upload(l.device); err != nil {
		asset.Free()
		return nil, fmt.Errorf("failed to upload %s: %w", key, err)
	}

	// The registry reference keeps the asset alive for later instances.
	if err := asset.Acquire(); err != nil {
		asset.Free()
		return nil, err
	}
	canonical, err := model.NewModel(asset, l.device, model.WithRender(show))
	if err != nil {
		asset.Free()
		return nil, fmt.Errorf("failed to create model %s: %w", key, err)
	}

	entry := &registryEntry{asset: asset, canonical: canonical}
	l.mu.Lock()
	l.registry[key] = entry
	l.mu.Unlock()

	l.logger.Info("loaded model",
		zap.String("key", key),
		zap.Int("nodes", asset.Nodes.Len()),
		zap.Int("meshes", len(asset.Meshes)),
		zap.Int("primitives", asset.PrimitiveCount()),
		zap.Uint32("vertices", asset.VertexCount),
		zap.Uint32("indices", asset.IndexCount))
	return entry, nil
}

func (l *loader) instance(entry *registryEntry, show bool) (model.Model, error) {
	m, err := model.NewModel(entry.asset, l.device, model.WithCopy(true), model.WithRender(show))
	if err != nil {
		return nil, fmt.Errorf("failed to instance %s: %w", entry.asset.Key, err)
	}
	l.logger.Debug("instanced model", zap.String("key", entry.asset.Key), zap.String("id", m.ID().String()))
	return m, nil
}

func (l *loader) entry(key string) *registryEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.registry[key]
}

func (l *loader) LoadMany(ctx context.Context, requests []Request) ([]model.Model, error) {
	models := make([]model.Model, len(requests))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(l.cfg.MaxParallelLoads, 1))
	for i, req := range requests {
		g.Go(func() error {
			m, err := l.Load(gctx, req.Folder, req.Filename, req.Show)
			if err != nil {
				return err
			}
			models[i] = m
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		for _, m := range models {
			if m != nil {
				m.Destroy()
			}
		}
		return nil, err
	}
	return models, nil
}

func (l *loader) Get(key string) model.Model {
	if entry := l.entry(key); entry != nil && !entry.canonical.Destroyed() {
		return entry.canonical
	}
	return nil
}

func (l *loader) Assets() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	keys := make([]string, 0, len(l.registry))
	for k := range l.registry {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (l *loader) Unload(key string) bool {
	l.mu.Lock()
	entry, ok := l.registry[key]
	delete(l.registry, key)
	l.mu.Unlock()

	if !ok {
		return false
	}
	entry.asset.Release()
	l.logger.Debug("unloaded asset", zap.String("key", key), zap.Int("refs", entry.asset.Refs()))
	return true
}

func (l *loader) Close() {
	for _, key := range l.Assets() {
		l.Unload(key)
	}
	if l.ownTextures && l.textures != nil {
		l.textures.Close()
	}
}

// checkFormat accepts .gltf and .glb files. The parser tells the two apart by content.
func checkFormat(filename string) error {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".gltf", ".glb":
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}
