package loader

import (
	"io"

	"github.com/Carmen-Shannon/oxy-scene/engine/gpu"
	"github.com/Carmen-Shannon/oxy-scene/engine/model"
	"go.uber.org/zap"
)

// gltfLoaderBackendImpl is the implementation of gltfLoaderBackend.
type gltfLoaderBackendImpl struct {
	importer gltfImporter
}

// gltfLoaderBackend is a loaderBackend implementation for glTF/GLB files.
// It delegates to the gltfImporter for parsing and extraction.
type gltfLoaderBackend interface {
	loaderBackend
}

var _ gltfLoaderBackend = &gltfLoaderBackendImpl{}

// newGLTFLoaderBackend creates a new glTF loader backend.
//
// Parameters:
//   - textures: the shared texture cache
//   - logger: the loader logger
//
// Returns:
//   - gltfLoaderBackend: the loader backend for glTF/GLB files
func newGLTFLoaderBackend(textures gpu.TextureCache, logger *zap.Logger) gltfLoaderBackend {
	return &gltfLoaderBackendImpl{
		importer: newGLTFImporter(textures, logger),
	}
}

func (b *gltfLoaderBackendImpl) Load(path, key string) (*model.Asset, error) {
	return b.importer.Import(path, key)
}

func (b *gltfLoaderBackendImpl) LoadReader(r io.Reader, isGLB bool, baseDir, key string) (*model.Asset, error) {
	return b.importer.ImportReader(r, isGLB, baseDir, key)
}
