package loader

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/gpu"
	"github.com/Carmen-Shannon/oxy-scene/engine/model"
)

// gltfMaterialExtractorImpl is the implementation of the gltfMaterialExtractor interface.
type gltfMaterialExtractorImpl struct {
	parser   gltfParser
	asset    *model.Asset
	textures gpu.TextureCache

	// images maps an image index to its acquired texture so each image is acquired once per asset.
	images map[int]gpu.Texture
}

// gltfMaterialExtractor resolves glTF materials into primitive materials and acquires their textures from
// the shared cache. Every acquired key is tracked on the asset so the last asset release returns it.
type gltfMaterialExtractor interface {
	// Resolve fills the material and texture slots of prim from a document material.
	//
	// Parameters:
	//   - materialIndex: the index of the material in the document
	//   - prim: the primitive to fill
	//
	// Returns:
	//   - error: error if the material is out of range or a texture fails to load
	Resolve(materialIndex int, prim *model.Primitive) error
}

var _ gltfMaterialExtractor = &gltfMaterialExtractorImpl{}

// newGLTFMaterialExtractor creates a new material extractor for a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//   - asset: the asset acquired textures are tracked on
//   - textures: the shared texture cache
//
// Returns:
//   - gltfMaterialExtractor: the material extractor
func newGLTFMaterialExtractor(parser gltfParser, asset *model.Asset, textures gpu.TextureCache) gltfMaterialExtractor {
	return &gltfMaterialExtractorImpl{
		parser:   parser,
		asset:    asset,
		textures: textures,
		images:   make(map[int]gpu.Texture),
	}
}

func (e *gltfMaterialExtractorImpl) Resolve(materialIndex int, prim *model.Primitive) error {
	doc := e.parser.Document()
	if materialIndex < 0 || materialIndex >= len(doc.Materials) {
		return fmt.Errorf("%w: material %d out of range", ErrMalformedDocument, materialIndex)
	}
	src := &doc.Materials[materialIndex]

	mat := model.DefaultMaterial()
	mat.Name = src.Name
	mat.DoubleSided = src.DoubleSided

	slots := map[model.TextureSlot]*gltfTextureInfo{
		model.SlotNormal:    src.NormalTexture,
		model.SlotOcclusion: src.OcclusionTexture,
		model.SlotEmissive:  src.EmissiveTexture,
	}
	if pbr := src.PbrMetallicRoughness; pbr != nil {
		if pbr.BaseColorFactor != nil {
			mat.BaseColorFactor = *pbr.BaseColorFactor
		}
		if pbr.MetallicFactor != nil {
			mat.MetallicFactor = *pbr.MetallicFactor
		}
		if pbr.RoughnessFactor != nil {
			mat.RoughnessFactor = *pbr.RoughnessFactor
		}
		slots[model.SlotBaseColor] = pbr.BaseColorTexture
		slots[model.SlotMetallicRoughness] = pbr.MetallicRoughnessTexture
	}
	if src.EmissiveFactor != nil {
		mat.EmissiveFactor = *src.EmissiveFactor
	}
	if src.AlphaCutoff != nil {
		mat.AlphaCutoff = *src.AlphaCutoff
	}
	switch src.AlphaMode {
	case "", gltfAlphaModeOpaque:
		mat.AlphaMode = model.AlphaOpaque
	case gltfAlphaModeMask:
		mat.AlphaMode = model.AlphaMask
	case gltfAlphaModeBlend:
		mat.AlphaMode = model.AlphaBlend
	default:
		return fmt.Errorf("%w: unknown alpha mode %q", ErrMalformedDocument, src.AlphaMode)
	}

	for _, slot := range model.TextureSlots {
		info := slots[slot]
		if info == nil {
			continue
		}
		key, tex, err := e.texture(info.Index)
		if err != nil {
			return fmt.Errorf("%s texture: %w", slot, err)
		}
		if tex == nil {
			continue
		}
		mat.Textures[slot] = key
		prim.Textures[slot] = tex
	}

	prim.Material = mat
	return nil
}

// texture returns the cache key and texture behind a document texture. A texture without an image source
// returns a nil texture and falls back to the slot default.
func (e *gltfMaterialExtractorImpl) texture(textureIndex int) (string, gpu.Texture, error) {
	doc := e.parser.Document()
	if textureIndex < 0 || textureIndex >= len(doc.Textures) {
		return "", nil, fmt.Errorf("%w: texture %d out of range", ErrMalformedDocument, textureIndex)
	}
	source := doc.Textures[textureIndex].Source
	if source == nil {
		return "", nil, nil
	}
	imageIndex := *source
	if imageIndex < 0 || imageIndex >= len(doc.Images) {
		return "", nil, fmt.Errorf("%w: image %d out of range", ErrMalformedDocument, imageIndex)
	}

	key := e.imageKey(imageIndex)
	if tex, ok := e.images[imageIndex]; ok {
		return key, tex, nil
	}

	tex, err := e.textures.Acquire(key, func() (common.TextureStagingData, error) {
		data, err := e.parser.ReadImage(imageIndex)
		if err != nil {
			return common.TextureStagingData{}, err
		}
		return common.DecodeRGBA(bytes.NewReader(data))
	})
	if err != nil {
		return "", nil, fmt.Errorf("image %d: %w", imageIndex, err)
	}
	e.asset.TrackTexture(key)
	e.images[imageIndex] = tex
	return key, tex, nil
}

// imageKey resolves an image to its cache key: the file path for external images and the asset key plus
// the image index for embedded ones.
func (e *gltfMaterialExtractorImpl) imageKey(imageIndex int) string {
	img := &e.parser.Document().Images[imageIndex]
	if img.BufferView == nil && img.URI != "" && !strings.HasPrefix(img.URI, "data:") {
		return filepath.ToSlash(filepath.Join(e.parser.BaseDir(), filepath.FromSlash(img.URI)))
	}
	return fmt.Sprintf("%s#image%d", e.asset.Key, imageIndex)
}
