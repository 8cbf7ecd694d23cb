package loader

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-scene/engine/gpu"
	"github.com/Carmen-Shannon/oxy-scene/engine/model"
	"github.com/Carmen-Shannon/oxy-scene/engine/node"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// gltfImporterImpl is the implementation of the gltfImporter interface.
type gltfImporterImpl struct {
	textures gpu.TextureCache
	logger   *zap.Logger
}

// gltfImporter orchestrates a full glTF/GLB import. It combines the parser and the extractors to produce
// an asset whose node graph, meshes, skins, animations and textures are resolved but not yet uploaded.
type gltfImporter interface {
	// Import loads a glTF/GLB file and builds an asset from it.
	//
	// Parameters:
	//   - path: the file path to the glTF or GLB file
	//   - key: the registry key of the asset
	//
	// Returns:
	//   - *model.Asset: the asset, holding its texture references
	//   - error: error if import fails; textures acquired so far are released
	Import(path, key string) (*model.Asset, error)

	// ImportReader builds an asset from a document read from r.
	//
	// Parameters:
	//   - r: the reader providing glTF/GLB data
	//   - isGLB: true if the reader provides GLB binary data
	//   - baseDir: directory external buffers and images are resolved against
	//   - key: the registry key of the asset
	//
	// Returns:
	//   - *model.Asset: the asset
	//   - error: error if import fails
	ImportReader(r io.Reader, isGLB bool, baseDir, key string) (*model.Asset, error)
}

var _ gltfImporter = &gltfImporterImpl{}

// newGLTFImporter creates a new glTF importer.
//
// Parameters:
//   - textures: the shared texture cache
//   - logger: the importer logger
//
// Returns:
//   - gltfImporter: the importer
func newGLTFImporter(textures gpu.TextureCache, logger *zap.Logger) gltfImporter {
	return &gltfImporterImpl{textures: textures, logger: logger}
}

func (imp *gltfImporterImpl) Import(path, key string) (*model.Asset, error) {
	parser := newGLTFParser()
	if err := parser.Parse(path); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return imp.importFromParser(parser, key, path)
}

func (imp *gltfImporterImpl) ImportReader(r io.Reader, isGLB bool, baseDir, key string) (*model.Asset, error) {
	parser := newGLTFParser()
	if err := parser.ParseReader(r, isGLB, baseDir); err != nil {
		return nil, fmt.Errorf("failed to parse from reader: %w", err)
	}
	return imp.importFromParser(parser, key, key)
}

// importFromParser builds the asset from a parser that has already loaded a document.
func (imp *gltfImporterImpl) importFromParser(parser gltfParser, key, fallbackPath string) (*model.Asset, error) {
	doc := parser.Document()
	if doc == nil {
		return nil, fmt.Errorf("no document after parsing")
	}

	asset := model.NewAsset(key, gltfExtractModelName(doc, fallbackPath), imp.textures)
	b := &gltfGraphBuilder{
		doc:       doc,
		asset:     asset,
		meshes:    newGLTFMeshExtractor(parser, newGLTFMaterialExtractor(parser, asset, imp.textures)),
		nodeArena: node.NewArena(len(doc.Nodes)),
		meshMap:   make(map[int]int),
		onStack:   make(map[int]bool),
		visited:   make(map[int]bool),
	}
	if err := b.build(); err != nil {
		asset.Free()
		return nil, err
	}
	asset.Nodes = b.nodeArena
	asset.LinearNodes = b.nodeArena.Handles()

	skins, err := newGLTFSkeletonExtractor(parser).ExtractAllSkins(asset.Nodes)
	if err != nil {
		asset.Free()
		return nil, fmt.Errorf("skin extraction failed: %w", err)
	}
	asset.Skins = skins

	animations, err := newGLTFAnimationExtractor(parser, imp.logger).ExtractAllAnimations(asset.Nodes)
	if err != nil {
		asset.Free()
		return nil, fmt.Errorf("animation extraction failed: %w", err)
	}
	asset.Animations = animations

	imp.logger.Debug("imported document",
		zap.String("key", key),
		zap.Int("nodes", asset.Nodes.Len()),
		zap.Int("meshes", len(asset.Meshes)),
		zap.Int("skins", len(asset.Skins)),
		zap.Int("animations", len(asset.Animations)))
	return asset, nil
}

// gltfGraphBuilder walks the document hierarchy depth first. A node's handle is allocated before its
// children are visited, so arena order is pre-order; its mesh is resolved after the children.
type gltfGraphBuilder struct {
	doc       *gltfDocument
	asset     *model.Asset
	meshes    gltfMeshExtractor
	nodeArena *node.Arena

	// meshMap maps a document mesh index to its index in asset.Meshes.
	meshMap map[int]int
	onStack map[int]bool
	visited map[int]bool
}

func (b *gltfGraphBuilder) build() error {
	for _, root := range b.roots() {
		if err := b.visit(root, node.NoHandle); err != nil {
			return err
		}
	}
	return nil
}

// roots returns the default scene's root nodes, or every parentless node when the document has no scenes.
func (b *gltfGraphBuilder) roots() []int {
	if len(b.doc.Scenes) > 0 {
		scene := 0
		if b.doc.Scene != nil && *b.doc.Scene >= 0 && *b.doc.Scene < len(b.doc.Scenes) {
			scene = *b.doc.Scene
		}
		return b.doc.Scenes[scene].Nodes
	}

	hasParent := make([]bool, len(b.doc.Nodes))
	for _, n := range b.doc.Nodes {
		for _, c := range n.Children {
			if c >= 0 && c < len(hasParent) {
				hasParent[c] = true
			}
		}
	}
	var roots []int
	for i, p := range hasParent {
		if !p {
			roots = append(roots, i)
		}
	}
	return roots
}

func (b *gltfGraphBuilder) visit(index int, parent node.Handle) error {
	if index < 0 || index >= len(b.doc.Nodes) {
		return fmt.Errorf("%w: node %d out of range", ErrMalformedDocument, index)
	}
	if b.onStack[index] {
		return fmt.Errorf("%w: node %d is its own ancestor", ErrMalformedDocument, index)
	}
	if b.visited[index] {
		return fmt.Errorf("%w: node %d has more than one parent", ErrMalformedDocument, index)
	}
	b.visited[index] = true
	b.onStack[index] = true
	defer delete(b.onStack, index)

	src := &b.doc.Nodes[index]
	n := node.New(src.Name, index)
	n.Parent = parent
	if err := gltfApplyNodeTransform(&n, src); err != nil {
		return fmt.Errorf("node %d: %w", index, err)
	}
	h := b.nodeArena.Add(n)

	for _, child := range src.Children {
		if err := b.visit(child, h); err != nil {
			return err
		}
	}

	if src.Mesh != nil {
		mi, err := b.mesh(*src.Mesh)
		if err != nil {
			return fmt.Errorf("node %d: %w", index, err)
		}
		b.nodeArena.Node(h).Mesh = mi
	}
	if src.Skin != nil {
		if *src.Skin < 0 || *src.Skin >= len(b.doc.Skins) {
			return fmt.Errorf("%w: node %d references skin %d", ErrMalformedDocument, index, *src.Skin)
		}
		b.nodeArena.Node(h).Skin = *src.Skin
	}
	return nil
}

// mesh extracts a document mesh the first time a node references it.
func (b *gltfGraphBuilder) mesh(index int) (int, error) {
	if mi, ok := b.meshMap[index]; ok {
		return mi, nil
	}
	mesh, err := b.meshes.ExtractMesh(index)
	if err != nil {
		return 0, err
	}
	mi := len(b.asset.Meshes)
	b.asset.Meshes = append(b.asset.Meshes, mesh)
	b.meshMap[index] = mi
	return mi, nil
}

// gltfApplyNodeTransform sets the node's transform mode and fields. glTF forbids a node carrying both a
// matrix and TRS properties.
func gltfApplyNodeTransform(n *node.Node, src *gltfNode) error {
	hasTRS := src.Translation != nil || src.Rotation != nil || src.Scale != nil
	if src.Matrix != nil && hasTRS {
		return ErrInvalidNodeTransform
	}

	switch {
	case src.Matrix != nil:
		n.Mode = node.TransformMatrix
		n.Matrix = mgl32.Mat4(*src.Matrix)
	case hasTRS:
		n.Mode = node.TransformTRS
		if src.Translation != nil {
			n.Translation = mgl32.Vec3(*src.Translation)
		}
		if src.Rotation != nil {
			r := *src.Rotation
			n.Rotation = mgl32.Quat{W: r[3], V: mgl32.Vec3{r[0], r[1], r[2]}}
		}
		if src.Scale != nil {
			n.Scale = mgl32.Vec3(*src.Scale)
		}
	default:
		n.Mode = node.TransformIdentity
	}
	return nil
}

// gltfExtractModelName derives a model name from the default scene or the file name.
func gltfExtractModelName(doc *gltfDocument, fallbackPath string) string {
	if doc.Scene != nil && *doc.Scene >= 0 && *doc.Scene < len(doc.Scenes) {
		if name := doc.Scenes[*doc.Scene].Name; name != "" {
			return name
		}
	}
	if fallbackPath != "" {
		base := filepath.Base(fallbackPath)
		return strings.TrimSuffix(base, filepath.Ext(base))
	}
	return "unnamed_model"
}
