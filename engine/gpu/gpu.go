// Package gpu defines the narrow device surface the scene runtime needs: buffers, textures, descriptor sets,
// a submit lock and a render pass. A cogentcore/webgpu adapter backs it at runtime and a headless
// implementation backs tools and tests.
package gpu

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-scene/common"
)

// ErrReleased is returned when a released resource is written to or bound.
var ErrReleased = errors.New("gpu resource released")

// BufferUsage describes how a buffer is bound. Every buffer is also a copy destination.
type BufferUsage uint32

const (
	BufferUsageVertex BufferUsage = 1 << iota
	BufferUsageIndex
	BufferUsageUniform
)

// LayoutKind names one of the fixed descriptor set layouts used by models.
type LayoutKind uint8

const (
	// LayoutModel holds the per-instance model uniform at binding 0.
	LayoutModel LayoutKind = iota
	// LayoutMesh holds the per-instance mesh pose uniform at binding 0.
	LayoutMesh
	// LayoutPrimitive holds the material factor uniform at binding 0 and the material textures at
	// bindings 1 through PrimitiveTextureSlots.
	LayoutPrimitive
)

// PrimitiveTextureSlots is the number of material textures bound in a primitive descriptor set.
const PrimitiveTextureSlots = 5

func (k LayoutKind) String() string {
	switch k {
	case LayoutModel:
		return "model"
	case LayoutMesh:
		return "mesh"
	case LayoutPrimitive:
		return "primitive"
	default:
		return "unknown"
	}
}

// Buffer is a GPU buffer.
type Buffer interface {
	// Label returns the debug label of the buffer.
	Label() string

	// Size returns the size of the buffer in bytes.
	Size() uint64

	// Release frees the buffer. Calling Release more than once has no effect.
	Release()
}

// Texture is a sampled GPU texture together with its view and sampler.
type Texture interface {
	// Label returns the debug label of the texture.
	Label() string

	// Width returns the width of mip level 0 in pixels.
	Width() uint32

	// Height returns the height of mip level 0 in pixels.
	Height() uint32

	// MipLevels returns the number of mip levels.
	MipLevels() uint32

	// Release frees the texture, its view and its sampler. Calling Release more than once has no effect.
	Release()
}

// DescriptorSet is a bound group of resources matching one LayoutKind.
type DescriptorSet interface {
	// Label returns the debug label of the set.
	Label() string

	// Layout returns the layout the set was created against.
	Layout() LayoutKind

	// Release frees the set. The bound resources are not released.
	Release()
}

// Pipeline is an opaque render pipeline handle.
type Pipeline interface {
	// Label returns the debug label of the pipeline.
	Label() string
}

// Binding attaches a buffer or a texture to a binding slot of a descriptor set. Exactly one of Buffer and
// Texture is set.
type Binding struct {
	Slot    uint32
	Buffer  Buffer
	Texture Texture
}

// Device is the allocation and upload surface used by the scene runtime.
type Device interface {
	// CreateBuffer allocates a buffer.
	//
	// Parameters:
	//   - label: debug label
	//   - size: size in bytes
	//   - usage: binding usage flags
	//
	// Returns:
	//   - Buffer: the new buffer
	//   - error: error if allocation fails
	CreateBuffer(label string, size uint64, usage BufferUsage) (Buffer, error)

	// WriteBuffer uploads data into buf at offset.
	//
	// Parameters:
	//   - buf: the destination buffer
	//   - offset: byte offset into buf
	//   - data: the bytes to upload
	//
	// Returns:
	//   - error: ErrReleased if buf was released, or an error if the write is out of range
	WriteBuffer(buf Buffer, offset uint64, data []byte) error

	// CreateTexture allocates an RGBA8 sRGB texture and uploads every level of the mip chain.
	//
	// Parameters:
	//   - label: debug label
	//   - mips: mip levels, largest first; must not be empty
	//
	// Returns:
	//   - Texture: the new texture
	//   - error: error if allocation or upload fails
	CreateTexture(label string, mips []common.TextureStagingData) (Texture, error)

	// CreateDescriptorSet creates a descriptor set for one of the fixed layouts.
	//
	// Parameters:
	//   - label: debug label
	//   - layout: the layout kind
	//   - bindings: the resources to bind
	//
	// Returns:
	//   - DescriptorSet: the new set
	//   - error: error if a binding is invalid or released
	CreateDescriptorSet(label string, layout LayoutKind, bindings []Binding) (DescriptorSet, error)

	// LockSubmits blocks other submitters until UnlockSubmits is called. Texture uploads hold it for
	// their whole duration.
	LockSubmits()

	// UnlockSubmits releases the submit lock.
	UnlockSubmits()
}

// RenderPass records draw commands.
type RenderPass interface {
	// SetPipeline binds the render pipeline for subsequent draws.
	SetPipeline(p Pipeline)

	// SetVertexBuffer binds buf to the given vertex buffer slot.
	SetVertexBuffer(slot uint32, buf Buffer)

	// SetIndexBuffer binds buf as a 32-bit index buffer.
	SetIndexBuffer(buf Buffer)

	// SetDescriptorSets binds sets to consecutive group indices starting at first.
	SetDescriptorSets(first uint32, sets ...DescriptorSet)

	// DrawIndexed issues an indexed draw.
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32)
}
