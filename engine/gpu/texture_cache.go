package gpu

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultTexture names one of the built-in 1x1 fallback textures.
type DefaultTexture uint8

const (
	DefaultBlack DefaultTexture = iota
	DefaultWhite
	DefaultNormal
)

var defaultPixels = map[DefaultTexture][4]byte{
	DefaultBlack:  {0, 0, 0, 255},
	DefaultWhite:  {255, 255, 255, 255},
	DefaultNormal: {128, 128, 255, 255},
}

func (d DefaultTexture) String() string {
	switch d {
	case DefaultBlack:
		return "black"
	case DefaultWhite:
		return "white"
	case DefaultNormal:
		return "normal"
	default:
		return "unknown"
	}
}

// TextureLoadFunc produces the decoded level 0 image for a cache key.
type TextureLoadFunc func() (common.TextureStagingData, error)

// TextureCache shares uploaded textures between every model, keyed by resolved path.
type TextureCache interface {
	// Acquire returns the texture for key, calling load and uploading the result the first time the key is
	// seen. Concurrent first requests for one key share a single load. Each successful Acquire must be
	// paired with a Release of the same key.
	//
	// Parameters:
	//   - key: the resolved texture path
	//   - load: decodes the image when the key is not cached
	//
	// Returns:
	//   - Texture: the shared texture
	//   - error: error if decoding or upload fails
	Acquire(key string, load TextureLoadFunc) (Texture, error)

	// Release drops one reference to key. The texture is freed when the last reference is dropped.
	//
	// Parameters:
	//   - key: the key passed to Acquire
	Release(key string)

	// Default returns a built-in 1x1 texture. Default textures live until Close.
	//
	// Parameters:
	//   - kind: which fallback texture
	//
	// Returns:
	//   - Texture: the fallback texture
	//   - error: error if upload fails
	Default(kind DefaultTexture) (Texture, error)

	// Len returns the number of cached keyed textures, excluding defaults.
	//
	// Returns:
	//   - int: the number of entries
	Len() int

	// Close frees every cached and default texture.
	Close()
}

type textureEntry struct {
	tex  Texture
	refs int
}

type textureCacheImpl struct {
	device  Device
	logger  *zap.Logger
	mipmaps bool

	mu       sync.Mutex
	entries  map[string]*textureEntry
	defaults map[DefaultTexture]Texture
	group    singleflight.Group
}

var _ TextureCache = &textureCacheImpl{}

// NewTextureCache creates a cache that uploads through device. When mipmaps is set a full mip chain is
// generated for every keyed texture.
//
// Parameters:
//   - device: the upload device
//   - mipmaps: whether to generate mip chains
//   - logger: logger for cache events; nil disables logging
//
// Returns:
//   - TextureCache: the new cache
func NewTextureCache(device Device, mipmaps bool, logger *zap.Logger) TextureCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &textureCacheImpl{
		device:   device,
		logger:   logger,
		mipmaps:  mipmaps,
		entries:  make(map[string]*textureEntry),
		defaults: make(map[DefaultTexture]Texture),
	}
}

func (c *textureCacheImpl) Acquire(key string, load TextureLoadFunc) (Texture, error) {
	for {
		c.mu.Lock()
		if e, ok := c.entries[key]; ok {
			e.refs++
			c.mu.Unlock()
			return e.tex, nil
		}
		c.mu.Unlock()

		v, err, _ := c.group.Do(key, func() (any, error) {
			c.mu.Lock()
			if e, ok := c.entries[key]; ok {
				c.mu.Unlock()
				return e.tex, nil
			}
			c.mu.Unlock()

			img, err := load()
			if err != nil {
				return nil, err
			}
			mips := []common.TextureStagingData{img}
			if c.mipmaps {
				mips = common.BuildMipChain(img)
			}

			tex, err := c.upload(key, mips)
			if err != nil {
				return nil, err
			}
			c.logger.Debug("texture uploaded",
				zap.String("key", key),
				zap.Uint32("width", img.Width),
				zap.Uint32("height", img.Height),
				zap.Int("mips", len(mips)),
			)

			c.mu.Lock()
			c.entries[key] = &textureEntry{tex: tex}
			c.mu.Unlock()
			return tex, nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to load texture %q: %w", key, err)
		}

		// The entry may have been dropped between the flight finishing and this point; load it again if so.
		c.mu.Lock()
		if e, ok := c.entries[key]; ok && e.tex == v.(Texture) {
			e.refs++
			c.mu.Unlock()
			return e.tex, nil
		}
		c.mu.Unlock()
	}
}

func (c *textureCacheImpl) Release(key string) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return
	}
	e.refs--
	if e.refs > 0 {
		c.mu.Unlock()
		return
	}
	delete(c.entries, key)
	c.mu.Unlock()

	e.tex.Release()
	c.logger.Debug("texture released", zap.String("key", key))
}

func (c *textureCacheImpl) Default(kind DefaultTexture) (Texture, error) {
	c.mu.Lock()
	if tex, ok := c.defaults[kind]; ok {
		c.mu.Unlock()
		return tex, nil
	}
	c.mu.Unlock()

	pixel, ok := defaultPixels[kind]
	if !ok {
		return nil, fmt.Errorf("unknown default texture %d", kind)
	}

	v, err, _ := c.group.Do("default:"+kind.String(), func() (any, error) {
		c.mu.Lock()
		if tex, ok := c.defaults[kind]; ok {
			c.mu.Unlock()
			return tex, nil
		}
		c.mu.Unlock()

		tex, err := c.upload("Default "+kind.String(), []common.TextureStagingData{common.SolidTexture(pixel)})
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.defaults[kind] = tex
		c.mu.Unlock()
		return tex, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s default texture: %w", kind, err)
	}
	return v.(Texture), nil
}

func (c *textureCacheImpl) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *textureCacheImpl) Close() {
	c.mu.Lock()
	entries := c.entries
	defaults := c.defaults
	c.entries = make(map[string]*textureEntry)
	c.defaults = make(map[DefaultTexture]Texture)
	c.mu.Unlock()

	for _, e := range entries {
		e.tex.Release()
	}
	for _, tex := range defaults {
		tex.Release()
	}
}

// upload creates the texture while holding the device submit lock for the whole upload.
func (c *textureCacheImpl) upload(label string, mips []common.TextureStagingData) (Texture, error) {
	c.device.LockSubmits()
	defer c.device.UnlockSubmits()
	return c.device.CreateTexture(label, mips)
}
