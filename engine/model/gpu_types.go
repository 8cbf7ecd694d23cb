package model

import (
	"bytes"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/go-gl/mathgl/mgl32"
)

// MaxJoints is the number of joint matrices a mesh pose uniform carries.
const MaxJoints = 128

// Vertex is the GPU-aligned representation of a single vertex. Static and skinned primitives share the
// layout; static vertices leave the joint data zeroed.
// Size: 96 bytes (std430 aligned, no padding required).
type Vertex struct {
	Position [3]float32 // offset  0: position in mesh space (12 bytes)
	Normal   [3]float32 // offset 12: vertex normal (12 bytes)
	TexCoord [2]float32 // offset 24: first UV set (8 bytes)
	Color    [4]float32 // offset 32: RGBA color, white when the source has none (16 bytes)
	Tangent  [4]float32 // offset 48: tangent (xyz) and handedness (w) (16 bytes)
	Joints   [4]uint32  // offset 64: joint indices into the skin (16 bytes)
	Weights  [4]float32 // offset 80: joint weights (16 bytes)
}

// VertexSize is the stride of a Vertex in the shared vertex buffer.
const VertexSize = 96

// Size returns the size of the Vertex struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (v *Vertex) Size() int {
	return int(unsafe.Sizeof(*v))
}

// Marshal serializes the vertex into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 96-byte buffer ready for GPU upload.
func (v *Vertex) Marshal() []byte {
	return bytes.Clone(common.StructToBytes(v))
}

// MarshalVertices serializes vertices back to back.
//
// Parameters:
//   - vertices: the vertices to serialize
//
// Returns:
//   - []byte: len(vertices)*VertexSize bytes
func MarshalVertices(vertices []Vertex) []byte {
	return bytes.Clone(common.SliceToBytes(vertices))
}

// MarshalIndices serializes 32-bit indices for the shared index buffer.
func MarshalIndices(indices []uint32) []byte {
	return bytes.Clone(common.SliceToBytes(indices))
}

// GPUModelUniform is the per-instance model uniform.
// Size: 256 bytes (4 × mat4x4<f32>).
type GPUModelUniform struct {
	Matrix         mgl32.Mat4 // offset   0: model-to-world transform
	View           mgl32.Mat4 // offset  64: camera view
	Projection     mgl32.Mat4 // offset 128: camera projection
	PreviousMatrix mgl32.Mat4 // offset 192: last frame's model transform
}

// Size returns the size of the GPUModelUniform struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUModelUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUModelUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 256-byte buffer ready for GPU upload.
func (g *GPUModelUniform) Marshal() []byte {
	return bytes.Clone(common.StructToBytes(g))
}

// GPUMeshUniform is the per-instance pose of one mesh node.
// Size: 64 + MaxJoints*64 + 16 bytes. The joint count is padded to a vec4.
type GPUMeshUniform struct {
	Matrix     mgl32.Mat4            // offset 0: node world transform
	Joints     [MaxJoints]mgl32.Mat4 // offset 64: joint matrices in node space
	JointCount float32               // offset 64+MaxJoints*64
	_          [3]float32
}

// MeshUniformSize is the byte size of a marshalled GPUMeshUniform.
const MeshUniformSize = 64 + MaxJoints*64 + 16

// Size returns the size of the GPUMeshUniform struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUMeshUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUMeshUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: MeshUniformSize bytes ready for GPU upload.
func (g *GPUMeshUniform) Marshal() []byte {
	return bytes.Clone(common.StructToBytes(g))
}

// GPUPrimitiveFactors packs a primitive's material factors into one mat4:
//
//	col0: base color factor
//	col1: emissive factor, 1
//	col2: metallic, roughness, alpha cutoff, 0
//	col3: has bones, 0, 0, 0
type GPUPrimitiveFactors struct {
	Factors mgl32.Mat4
}

// PrimitiveFactorsSize is the byte size of a marshalled GPUPrimitiveFactors.
const PrimitiveFactorsSize = 64

// NewPrimitiveFactors builds the factor block of a primitive. A zero base color factor is uploaded as white.
//
// Parameters:
//   - mat: the primitive material
//   - hasBones: whether the primitive is skinned
//
// Returns:
//   - GPUPrimitiveFactors: the packed factors
func NewPrimitiveFactors(mat Material, hasBones bool) GPUPrimitiveFactors {
	base := mat.BaseColorFactor
	if base == (mgl32.Vec4{}) {
		base = mgl32.Vec4{1, 1, 1, 1}
	}
	var bones float32
	if hasBones {
		bones = 1
	}
	return GPUPrimitiveFactors{Factors: mgl32.Mat4FromCols(
		base,
		mat.EmissiveFactor.Vec4(1),
		mgl32.Vec4{mat.MetallicFactor, mat.RoughnessFactor, mat.AlphaCutoff, 0},
		mgl32.Vec4{bones, 0, 0, 0},
	)}
}

// Marshal serializes the factors into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 64-byte buffer ready for GPU upload.
func (g *GPUPrimitiveFactors) Marshal() []byte {
	return bytes.Clone(common.StructToBytes(g))
}
