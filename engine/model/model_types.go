package model

import (
	"github.com/Carmen-Shannon/oxy-scene/engine/gpu"
	"github.com/Carmen-Shannon/oxy-scene/engine/node"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// AlphaMode selects the draw pass a primitive is emitted in.
type AlphaMode uint8

const (
	AlphaOpaque AlphaMode = iota
	AlphaMask
	AlphaBlend
)

func (a AlphaMode) String() string {
	switch a {
	case AlphaOpaque:
		return "opaque"
	case AlphaMask:
		return "mask"
	case AlphaBlend:
		return "blend"
	default:
		return "unknown"
	}
}

// TextureSlot indexes the material textures of a primitive. Slot n is bound at descriptor binding n+1.
type TextureSlot uint8

const (
	SlotBaseColor TextureSlot = iota
	SlotMetallicRoughness
	SlotNormal
	SlotOcclusion
	SlotEmissive
	textureSlotCount
)

// TextureSlots lists every material texture slot in binding order.
var TextureSlots = [...]TextureSlot{SlotBaseColor, SlotMetallicRoughness, SlotNormal, SlotOcclusion, SlotEmissive}

// Default returns the built-in texture bound when the slot has no image.
func (s TextureSlot) Default() gpu.DefaultTexture {
	switch s {
	case SlotNormal:
		return gpu.DefaultNormal
	case SlotOcclusion:
		return gpu.DefaultWhite
	default:
		return gpu.DefaultBlack
	}
}

func (s TextureSlot) String() string {
	switch s {
	case SlotBaseColor:
		return "base_color"
	case SlotMetallicRoughness:
		return "metallic_roughness"
	case SlotNormal:
		return "normal"
	case SlotOcclusion:
		return "occlusion"
	case SlotEmissive:
		return "emissive"
	default:
		return "unknown"
	}
}

// Material holds the PBR inputs of a primitive. Textures holds texture cache keys, empty when the slot
// falls back to a built-in default.
type Material struct {
	Name            string
	Textures        [textureSlotCount]string
	BaseColorFactor mgl32.Vec4
	EmissiveFactor  mgl32.Vec3
	MetallicFactor  float32
	RoughnessFactor float32
	AlphaCutoff     float32
	AlphaMode       AlphaMode
	DoubleSided     bool
}

// DefaultMaterial returns a material with the glTF default factors.
func DefaultMaterial() Material {
	return Material{
		BaseColorFactor: mgl32.Vec4{1, 1, 1, 1},
		MetallicFactor:  1,
		RoughnessFactor: 1,
		AlphaCutoff:     0.5,
		AlphaMode:       AlphaOpaque,
	}
}

// Primitive is a drawable range of a mesh with a single material.
type Primitive struct {
	// VertexOffset and IndexOffset are relative to the owning mesh.
	VertexOffset uint32
	VerticesSize uint32
	IndexOffset  uint32
	IndicesSize  uint32

	Material Material
	// BoundingSphere holds the mesh-space center in xyz and the radius in w.
	BoundingSphere mgl32.Vec4
	HasBones       bool
	Render         bool

	// Textures are borrowed from the texture cache; a nil slot is bound to its built-in default.
	Textures [textureSlotCount]gpu.Texture
	// FactorBuffer and DescriptorSet are created once per asset.
	FactorBuffer  gpu.Buffer
	DescriptorSet gpu.DescriptorSet
}

// BoundingSphereFromExtent returns the sphere enclosing the axis-aligned box [lo, hi].
//
// Parameters:
//   - lo: the minimum corner
//   - hi: the maximum corner
//
// Returns:
//   - mgl32.Vec4: center in xyz, radius in w
func BoundingSphereFromExtent(lo, hi mgl32.Vec3) mgl32.Vec4 {
	center := lo.Add(hi).Mul(0.5)
	return center.Vec4(hi.Sub(center).Len())
}

// Mesh owns the geometry of its primitives until it is uploaded into the shared asset buffers.
type Mesh struct {
	Name       string
	Primitives []*Primitive
	Vertices   []Vertex
	Indices    []uint32

	// VertexOffset and IndexOffset locate the mesh inside the shared buffers.
	VertexOffset uint32
	IndexOffset  uint32
}

// Skin binds a mesh to a set of joint nodes.
type Skin struct {
	Name                string
	SkeletonRoot        node.Handle
	InverseBindMatrices []mgl32.Mat4
	Joints              []node.Handle
}

// Interpolation is the keyframe interpolation of an animation sampler.
type Interpolation uint8

const (
	InterpolationLinear Interpolation = iota
	InterpolationStep
	InterpolationCubicSpline
)

// Path is the node property an animation channel drives.
type Path uint8

const (
	PathTranslation Path = iota
	PathRotation
	PathScale
)

func (p Path) String() string {
	switch p {
	case PathTranslation:
		return "translation"
	case PathRotation:
		return "rotation"
	case PathScale:
		return "scale"
	default:
		return "unknown"
	}
}

// AnimationSampler maps keyframe times to output values. Vec3 outputs are stored with w = 0. Cubic spline
// samplers hold three outputs per input: in-tangent, value and out-tangent.
type AnimationSampler struct {
	Interpolation Interpolation
	Inputs        []float32
	Outputs       []mgl32.Vec4
}

// AnimationChannel applies a sampler to one property of a node.
type AnimationChannel struct {
	Path    Path
	Sampler int
	Node    node.Handle
}

// Animation is a named set of channels played over [Start, End].
type Animation struct {
	Name     string
	Samplers []AnimationSampler
	Channels []AnimationChannel
	Start    float32
	End      float32
}

// UpdateRange recomputes Start and End from the sampler inputs.
func (a *Animation) UpdateRange() {
	a.Start, a.End = math32.MaxFloat32, -math32.MaxFloat32
	found := false
	for _, s := range a.Samplers {
		for _, in := range s.Inputs {
			a.Start = min(a.Start, in)
			a.End = max(a.End, in)
			found = true
		}
	}
	if !found {
		a.Start, a.End = 0, 0
	}
}

// PrimitiveState is the per-frame cull state of a primitive within one instance.
type PrimitiveState struct {
	WorldSphere mgl32.Vec4
	Cull        bool
}

// MeshState is the per-instance GPU state of one mesh node.
type MeshState struct {
	Mesh          int
	UniformBuffer gpu.Buffer
	DescriptorSet gpu.DescriptorSet
	Primitives    []PrimitiveState
}
