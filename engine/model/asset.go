package model

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-scene/engine/gpu"
	"github.com/Carmen-Shannon/oxy-scene/engine/node"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// ErrDestroyed is returned when a destroyed model or a freed asset is used.
var ErrDestroyed = errors.New("model destroyed")

// Asset is the immutable part of a loaded model shared by the canonical model and all of its instances:
// the template hierarchy, geometry, skins, animations and per-primitive GPU state. It is reference counted;
// the last Release frees its GPU resources and returns its textures to the cache.
type Asset struct {
	Key  string
	Name string

	// Nodes is the template pose. Instances clone it and never write to it.
	Nodes       *node.Arena
	LinearNodes []node.Handle
	Meshes      []*Mesh
	Skins       []*Skin
	Animations  []*Animation

	VertexBuffer gpu.Buffer
	IndexBuffer  gpu.Buffer
	VertexCount  uint32
	IndexCount   uint32

	textures    gpu.TextureCache
	textureKeys []string

	mu    sync.Mutex
	refs  int
	freed bool
}

// NewAsset creates an empty asset with no references.
//
// Parameters:
//   - key: the registry key of the asset, usually folder and filename
//   - name: the display name
//   - textures: the cache the asset's textures were acquired from, may be nil
//
// Returns:
//   - *Asset: the new asset
func NewAsset(key, name string, textures gpu.TextureCache) *Asset {
	return &Asset{
		Key:      key,
		Name:     name,
		Nodes:    node.NewArena(0),
		textures: textures,
	}
}

// TrackTexture records a texture cache key the asset holds a reference to.
func (a *Asset) TrackTexture(key string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.textureKeys = append(a.textureKeys, key)
}

// Acquire adds a reference.
//
// Returns:
//   - error: ErrDestroyed if the asset has already been freed
func (a *Asset) Acquire() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.freed {
		return ErrDestroyed
	}
	a.refs++
	return nil
}

// Release drops a reference and frees the asset when it was the last one.
func (a *Asset) Release() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.freed || a.refs == 0 {
		return
	}
	a.refs--
	if a.refs == 0 {
		a.free()
	}
}

// Free releases the asset's GPU resources regardless of outstanding references. The loader uses it to
// discard a partially built asset.
func (a *Asset) Free() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.free()
}

// Refs returns the current reference count.
func (a *Asset) Refs() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.refs
}

// Freed reports whether the asset's GPU resources have been released.
func (a *Asset) Freed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.freed
}

func (a *Asset) free() {
	if a.freed {
		return
	}
	a.freed = true

	for _, mesh := range a.Meshes {
		for _, prim := range mesh.Primitives {
			if prim.DescriptorSet != nil {
				prim.DescriptorSet.Release()
			}
			if prim.FactorBuffer != nil {
				prim.FactorBuffer.Release()
			}
		}
	}
	if a.VertexBuffer != nil {
		a.VertexBuffer.Release()
	}
	if a.IndexBuffer != nil {
		a.IndexBuffer.Release()
	}
	if a.textures != nil {
		for _, key := range a.textureKeys {
			a.textures.Release(key)
		}
	}
	a.textureKeys = nil
}

// Upload concatenates every mesh into the shared vertex and index buffers in linear node order, records
// each mesh's offsets and creates the primitive factor uniforms and descriptor sets. Meshes referenced by
// several nodes are uploaded once.
//
// Parameters:
//   - device: the device to allocate on
//
// Returns:
//   - error: error if an allocation or write fails
func (a *Asset) Upload(device gpu.Device) error {
	order := make([]int, 0, len(a.Meshes))
	seen := make([]bool, len(a.Meshes))
	for _, h := range a.LinearNodes {
		if n := a.Nodes.Node(h); n != nil && n.Mesh >= 0 && n.Mesh < len(a.Meshes) && !seen[n.Mesh] {
			seen[n.Mesh] = true
			order = append(order, n.Mesh)
		}
	}
	for i := range a.Meshes {
		if !seen[i] {
			order = append(order, i)
		}
	}

	var vertices []Vertex
	var indices []uint32
	for _, i := range order {
		mesh := a.Meshes[i]
		mesh.VertexOffset = uint32(len(vertices))
		mesh.IndexOffset = uint32(len(indices))
		vertices = append(vertices, mesh.Vertices...)
		indices = append(indices, mesh.Indices...)
	}
	a.VertexCount = uint32(len(vertices))
	a.IndexCount = uint32(len(indices))

	if len(vertices) > 0 {
		buf, err := uploadBuffer(device, a.Key+"/vertices", MarshalVertices(vertices), gpu.BufferUsageVertex)
		if err != nil {
			return err
		}
		a.VertexBuffer = buf
	}
	if len(indices) > 0 {
		buf, err := uploadBuffer(device, a.Key+"/indices", MarshalIndices(indices), gpu.BufferUsageIndex)
		if err != nil {
			return err
		}
		a.IndexBuffer = buf
	}

	for mi, mesh := range a.Meshes {
		for pi, prim := range mesh.Primitives {
			if err := a.uploadPrimitive(device, fmt.Sprintf("%s/mesh-%d/prim-%d", a.Key, mi, pi), prim); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a *Asset) uploadPrimitive(device gpu.Device, label string, prim *Primitive) error {
	factors := NewPrimitiveFactors(prim.Material, prim.HasBones)
	buf, err := uploadBuffer(device, label, factors.Marshal(), gpu.BufferUsageUniform)
	if err != nil {
		return err
	}
	prim.FactorBuffer = buf

	bindings := make([]gpu.Binding, 0, 1+len(TextureSlots))
	bindings = append(bindings, gpu.Binding{Slot: 0, Buffer: buf})
	for _, slot := range TextureSlots {
		tex := prim.Textures[slot]
		if tex == nil {
			if a.textures == nil {
				return fmt.Errorf("primitive %s has no %s texture and no texture cache", label, slot)
			}
			if tex, err = a.textures.Default(slot.Default()); err != nil {
				return fmt.Errorf("failed to bind default %s texture: %w", slot, err)
			}
		}
		bindings = append(bindings, gpu.Binding{Slot: uint32(slot) + 1, Texture: tex})
	}

	set, err := device.CreateDescriptorSet(label, gpu.LayoutPrimitive, bindings)
	if err != nil {
		return fmt.Errorf("failed to create primitive descriptor set %s: %w", label, err)
	}
	prim.DescriptorSet = set
	return nil
}

func uploadBuffer(device gpu.Device, label string, data []byte, usage gpu.BufferUsage) (gpu.Buffer, error) {
	buf, err := device.CreateBuffer(label, uint64(len(data)), usage)
	if err != nil {
		return nil, fmt.Errorf("failed to create buffer %s: %w", label, err)
	}
	if err := device.WriteBuffer(buf, 0, data); err != nil {
		buf.Release()
		return nil, fmt.Errorf("failed to write buffer %s: %w", label, err)
	}
	return buf, nil
}

// PrimitiveCount returns the number of primitives across all meshes.
func (a *Asset) PrimitiveCount() int {
	n := 0
	for _, mesh := range a.Meshes {
		n += len(mesh.Primitives)
	}
	return n
}

// BoundingSphere aggregates the primitive spheres of every mesh node into one sphere. The primitives
// reaching furthest from and closest to the origin span the result.
//
// Returns:
//   - mgl32.Vec4: center in xyz, radius in w
func (a *Asset) BoundingSphere() mgl32.Vec4 {
	far := mgl32.Vec4{}
	near := mgl32.Vec4{0, 0, 0, math32.MaxFloat32}

	for _, h := range a.LinearNodes {
		n := a.Nodes.Node(h)
		if n == nil || n.Mesh < 0 || n.Mesh >= len(a.Meshes) {
			continue
		}
		for _, prim := range a.Meshes[n.Mesh].Primitives {
			center := prim.BoundingSphere.Vec3()
			extent := center.Len() + prim.BoundingSphere.W()
			if extent > far.W() {
				far = center.Vec4(extent)
			}
			if inner := extent - 2*prim.BoundingSphere.W(); inner < near.W() {
				near = center.Vec4(inner)
			}
		}
	}
	if near.W() == math32.MaxFloat32 {
		return mgl32.Vec4{}
	}

	center := far.Vec3().Add(near.Vec3()).Mul(0.5)
	return center.Vec4(far.Vec3().Sub(center).Len())
}
