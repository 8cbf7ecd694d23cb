package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-scene/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// gltfMeshExtractorImpl is the implementation of the gltfMeshExtractor interface.
type gltfMeshExtractorImpl struct {
	parser    gltfParser
	materials gltfMaterialExtractor
}

// gltfMeshExtractor converts glTF meshes into engine meshes. Every primitive of a glTF mesh becomes a
// model.Primitive addressing a range of the mesh's own vertex and index arrays.
type gltfMeshExtractor interface {
	// ExtractMesh extracts a single mesh by index.
	//
	// Parameters:
	//   - meshIndex: the index of the mesh in the document
	//
	// Returns:
	//   - *model.Mesh: the mesh with its primitives, vertices and indices
	//   - error: error if an accessor is malformed or a primitive is not a triangle list
	ExtractMesh(meshIndex int) (*model.Mesh, error)
}

var _ gltfMeshExtractor = &gltfMeshExtractorImpl{}

// newGLTFMeshExtractor creates a new mesh extractor for a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//   - materials: resolves primitive materials and textures
//
// Returns:
//   - gltfMeshExtractor: the mesh extractor
func newGLTFMeshExtractor(parser gltfParser, materials gltfMaterialExtractor) gltfMeshExtractor {
	return &gltfMeshExtractorImpl{parser: parser, materials: materials}
}

func (e *gltfMeshExtractorImpl) ExtractMesh(meshIndex int) (*model.Mesh, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}
	if meshIndex < 0 || meshIndex >= len(doc.Meshes) {
		return nil, fmt.Errorf("%w: mesh %d out of range", ErrMalformedDocument, meshIndex)
	}

	src := &doc.Meshes[meshIndex]
	mesh := &model.Mesh{Name: src.Name}
	if mesh.Name == "" {
		mesh.Name = fmt.Sprintf("mesh_%d", meshIndex)
	}

	for primIdx := range src.Primitives {
		prim, err := e.extractPrimitive(mesh, &src.Primitives[primIdx])
		if err != nil {
			return nil, fmt.Errorf("mesh %d primitive %d: %w", meshIndex, primIdx, err)
		}
		mesh.Primitives = append(mesh.Primitives, prim)
	}
	return mesh, nil
}

// extractPrimitive appends the primitive's vertices and indices to mesh and returns the primitive
// describing that range.
func (e *gltfMeshExtractorImpl) extractPrimitive(mesh *model.Mesh, src *gltfPrimitive) (*model.Primitive, error) {
	if src.Mode != nil && *src.Mode != gltfPrimitiveModeTriangles {
		return nil, fmt.Errorf("unsupported primitive mode %d: only triangles are supported", *src.Mode)
	}

	var positions [][4]float32
	var err error
	if idx, ok := src.Attributes["POSITION"]; ok {
		if positions, err = e.parser.ReadFloatAccessor(idx, gltfAccessorTypeVec3); err != nil {
			return nil, fmt.Errorf("failed to read positions: %w", err)
		}
	}

	vertices := make([]model.Vertex, len(positions))
	for i, p := range positions {
		vertices[i].Position = [3]float32{p[0], p[1], p[2]}
		vertices[i].Color = [4]float32{1, 1, 1, 1}
	}

	if err := e.readAttribute(src, "NORMAL", gltfAccessorTypeVec3, vertices, func(v *model.Vertex, d [4]float32) {
		v.Normal = [3]float32{d[0], d[1], d[2]}
	}); err != nil {
		return nil, err
	}
	if err := e.readAttribute(src, "TEXCOORD_0", gltfAccessorTypeVec2, vertices, func(v *model.Vertex, d [4]float32) {
		v.TexCoord = [2]float32{d[0], d[1]}
	}); err != nil {
		return nil, err
	}
	if err := e.readAttribute(src, "TANGENT", gltfAccessorTypeVec4, vertices, func(v *model.Vertex, d [4]float32) {
		v.Tangent = d
	}); err != nil {
		return nil, err
	}
	if err := e.readColors(src, vertices); err != nil {
		return nil, err
	}
	if err := e.readAttribute(src, "WEIGHTS_0", gltfAccessorTypeVec4, vertices, func(v *model.Vertex, d [4]float32) {
		v.Weights = d
	}); err != nil {
		return nil, err
	}

	hasJoints := false
	if idx, ok := src.Attributes["JOINTS_0"]; ok {
		joints, err := e.parser.ReadJointsAccessor(idx)
		if err != nil {
			return nil, fmt.Errorf("failed to read JOINTS_0: %w", err)
		}
		for i := range vertices {
			if i < len(joints) {
				vertices[i].Joints = joints[i]
			}
		}
		hasJoints = len(joints) > 0
	}
	_, hasWeights := src.Attributes["WEIGHTS_0"]

	var indices []uint32
	if src.Indices != nil {
		if indices, err = e.parser.ReadIndicesAccessor(*src.Indices); err != nil {
			return nil, fmt.Errorf("failed to read indices: %w", err)
		}
	} else {
		indices = make([]uint32, len(vertices))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}

	prim := &model.Primitive{
		VertexOffset: uint32(len(mesh.Vertices)),
		VerticesSize: uint32(len(vertices)),
		IndexOffset:  uint32(len(mesh.Indices)),
		IndicesSize:  uint32(len(indices)),
		HasBones:     hasJoints && hasWeights && len(vertices) > 0,
		Render:       true,
	}
	mesh.Vertices = append(mesh.Vertices, vertices...)
	mesh.Indices = append(mesh.Indices, indices...)

	if idx, ok := src.Attributes["POSITION"]; ok {
		prim.BoundingSphere = e.boundingSphere(idx, positions)
	}

	if src.Material != nil {
		if err := e.materials.Resolve(*src.Material, prim); err != nil {
			return nil, fmt.Errorf("material %d: %w", *src.Material, err)
		}
	} else {
		prim.Material = model.DefaultMaterial()
	}
	return prim, nil
}

// readAttribute reads an optional float attribute and hands each element to set. Vertices beyond the
// accessor's count keep their zero value.
func (e *gltfMeshExtractorImpl) readAttribute(src *gltfPrimitive, name, accessorType string, vertices []model.Vertex, set func(*model.Vertex, [4]float32)) error {
	idx, ok := src.Attributes[name]
	if !ok {
		return nil
	}
	data, err := e.parser.ReadFloatAccessor(idx, accessorType)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	for i := range vertices {
		if i < len(data) {
			set(&vertices[i], data[i])
		}
	}
	return nil
}

// readColors reads COLOR_0 as VEC3 or VEC4. A VEC3 color gets an alpha of 1.
func (e *gltfMeshExtractorImpl) readColors(src *gltfPrimitive, vertices []model.Vertex) error {
	idx, ok := src.Attributes["COLOR_0"]
	if !ok {
		return nil
	}
	acc, err := e.parser.Accessor(idx)
	if err != nil {
		return err
	}
	data, err := e.parser.ReadFloatAccessor(idx, acc.Type)
	if err != nil {
		return fmt.Errorf("failed to read COLOR_0: %w", err)
	}
	switch acc.Type {
	case gltfAccessorTypeVec3:
		for i := range data {
			data[i][3] = 1
		}
	case gltfAccessorTypeVec4:
	default:
		return fmt.Errorf("%w: COLOR_0 is %s", ErrUnsupportedAccessorType, acc.Type)
	}
	for i := range vertices {
		if i < len(data) {
			vertices[i].Color = data[i]
		}
	}
	return nil
}

// boundingSphere derives the primitive sphere from the POSITION accessor bounds, which glTF requires.
// Documents that omit them fall back to the bounds of the decoded positions.
func (e *gltfMeshExtractorImpl) boundingSphere(accessorIndex int, positions [][4]float32) mgl32.Vec4 {
	acc, err := e.parser.Accessor(accessorIndex)
	if err == nil && len(acc.Min) >= 3 && len(acc.Max) >= 3 {
		return model.BoundingSphereFromExtent(
			mgl32.Vec3{acc.Min[0], acc.Min[1], acc.Min[2]},
			mgl32.Vec3{acc.Max[0], acc.Max[1], acc.Max[2]},
		)
	}
	if len(positions) == 0 {
		return mgl32.Vec4{}
	}

	lo := mgl32.Vec3{positions[0][0], positions[0][1], positions[0][2]}
	hi := lo
	for _, p := range positions[1:] {
		for c := 0; c < 3; c++ {
			lo[c] = min(lo[c], p[c])
			hi[c] = max(hi[c], p[c])
		}
	}
	return model.BoundingSphereFromExtent(lo, hi)
}
