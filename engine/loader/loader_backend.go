package loader

import (
	"io"

	"github.com/Carmen-Shannon/oxy-scene/engine/model"
)

// loaderBackend defines the generic interface for building assets from files or streams.
// Concrete implementations (e.g., gltfLoaderBackend) handle format-specific details.
type loaderBackend interface {
	// Load builds an asset from the given file path. The asset is not uploaded.
	//
	// Parameters:
	//   - path: the file path to load
	//   - key: the registry key of the asset
	//
	// Returns:
	//   - *model.Asset: the asset with resolved geometry, skins, animations and textures
	//   - error: error if loading fails
	Load(path, key string) (*model.Asset, error)

	// LoadReader builds an asset from a reader stream.
	//
	// Parameters:
	//   - r: the reader providing model data
	//   - isGLB: true if the reader provides GLB binary data, false for text-based formats
	//   - baseDir: directory external resources are resolved against
	//   - key: the registry key of the asset
	//
	// Returns:
	//   - *model.Asset: the asset
	//   - error: error if loading fails
	LoadReader(r io.Reader, isGLB bool, baseDir, key string) (*model.Asset, error)
}
