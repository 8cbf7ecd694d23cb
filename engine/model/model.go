// Package model holds loaded models: the shared, reference-counted Asset and the per-instance Model state
// the frame updater and draw emitter operate on.
package model

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-scene/engine/gpu"
	"github.com/Carmen-Shannon/oxy-scene/engine/node"
	"github.com/Carmen-Shannon/oxy-scene/engine/script"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// Model is one renderable instance of an Asset. Every instance owns its pose, its uniforms and its cull
// state; the geometry, materials and animations belong to the shared asset.
type Model interface {
	// ID returns the unique identity of the instance.
	//
	// Returns:
	//   - uuid.UUID: the instance id
	ID() uuid.UUID

	// Name returns the model name.
	//
	// Returns:
	//   - string: the model name
	Name() string

	// Asset returns the shared asset backing the model.
	//
	// Returns:
	//   - *Asset: the asset
	Asset() *Asset

	// IsCopy reports whether the model is an instance of an already loaded asset.
	//
	// Returns:
	//   - bool: true for instances, false for the canonical model
	IsCopy() bool

	// Device returns the device the instance's uniforms live on.
	//
	// Returns:
	//   - gpu.Device: the device
	Device() gpu.Device

	// Nodes returns the instance's pose arena. Animation writes into it.
	//
	// Returns:
	//   - *node.Arena: the pose arena
	Nodes() *node.Arena

	// LinearNodes returns every node handle in traversal order.
	//
	// Returns:
	//   - []node.Handle: the linear node list
	LinearNodes() []node.Handle

	// MeshState returns the per-instance state of a mesh node.
	//
	// Parameters:
	//   - h: the node handle
	//
	// Returns:
	//   - *MeshState: the mesh state, nil if the node has no mesh
	MeshState(h node.Handle) *MeshState

	// Position returns the instance translation.
	Position() mgl32.Vec3

	// SetPosition sets the instance translation.
	SetPosition(p mgl32.Vec3)

	// Rotation returns the instance rotation as Euler angles in degrees.
	Rotation() mgl32.Vec3

	// SetRotation sets the instance rotation as Euler angles in degrees.
	SetRotation(r mgl32.Vec3)

	// Scale returns the instance scale.
	Scale() mgl32.Vec3

	// SetScale sets the instance scale.
	SetScale(s mgl32.Vec3)

	// Transform returns the base transform applied beneath position, rotation and scale.
	Transform() mgl32.Mat4

	// SetTransform sets the base transform.
	SetTransform(m mgl32.Mat4)

	// Script returns the bound script, or nil.
	Script() script.Script

	// SetScript binds a script to the instance. Pass nil to unbind.
	SetScript(s script.Script)

	// Render reports whether the instance is updated and drawn.
	Render() bool

	// SetRender toggles updating and drawing of the instance.
	SetRender(render bool)

	// AnimationIndex returns the active animation.
	AnimationIndex() int

	// SetAnimationIndex selects the active animation.
	SetAnimationIndex(i int)

	// AnimationTimer returns the playback position of the active animation in seconds.
	AnimationTimer() float32

	// SetAnimationTimer sets the playback position in seconds.
	SetAnimationTimer(t float32)

	// Uniform returns the last model uniform written by the updater.
	//
	// Returns:
	//   - GPUModelUniform: the model uniform
	Uniform() GPUModelUniform

	// SetUniform stores the model uniform. It does not upload it.
	//
	// Parameters:
	//   - u: the model uniform
	SetUniform(u GPUModelUniform)

	// UniformBuffer returns the GPU buffer holding the model uniform.
	//
	// Returns:
	//   - gpu.Buffer: the model uniform buffer
	UniformBuffer() gpu.Buffer

	// DescriptorSet returns the model descriptor set.
	//
	// Returns:
	//   - gpu.DescriptorSet: the model descriptor set
	DescriptorSet() gpu.DescriptorSet

	// BoundingSphere returns the model-space bounding sphere of the asset.
	//
	// Returns:
	//   - mgl32.Vec4: center in xyz, radius in w
	BoundingSphere() mgl32.Vec4

	// Destroy releases the instance's uniforms and descriptor sets and drops its reference to the asset.
	// Calling Destroy more than once has no effect.
	Destroy()

	// Destroyed reports whether Destroy has been called.
	//
	// Returns:
	//   - bool: true once destroyed
	Destroyed() bool
}

// modelImpl is the implementation of the Model interface.
type modelImpl struct {
	mu sync.RWMutex

	id     uuid.UUID
	name   string
	asset  *Asset
	isCopy bool
	device gpu.Device

	pose   *node.Arena
	meshes []*MeshState

	position  mgl32.Vec3
	rotation  mgl32.Vec3
	scale     mgl32.Vec3
	transform mgl32.Mat4
	script    script.Script
	render    bool

	animationIndex int
	animationTimer float32

	uniform       GPUModelUniform
	uniformBuffer gpu.Buffer
	descriptorSet gpu.DescriptorSet

	destroyed bool
}

var _ Model = &modelImpl{}

// NewModel creates an instance of asset with its own pose and uniforms on device. The instance holds a
// reference to asset until it is destroyed.
//
// Parameters:
//   - asset: the shared asset
//   - device: the device to allocate the instance uniforms on
//   - options: builder options
//
// Returns:
//   - Model: the new instance
//   - error: ErrDestroyed if the asset has been freed, or an allocation error
func NewModel(asset *Asset, device gpu.Device, options ...ModelBuilderOption) (Model, error) {
	if err := asset.Acquire(); err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}

	m := &modelImpl{
		id:        id,
		name:      asset.Name,
		asset:     asset,
		device:    device,
		scale:     mgl32.Vec3{1, 1, 1},
		transform: mgl32.Ident4(),
		render:    true,
		uniform: GPUModelUniform{
			Matrix:         mgl32.Ident4(),
			View:           mgl32.Ident4(),
			Projection:     mgl32.Ident4(),
			PreviousMatrix: mgl32.Ident4(),
		},
	}
	for _, option := range options {
		option(m)
	}

	if err := m.allocate(); err != nil {
		m.releaseInstance()
		asset.Release()
		return nil, err
	}
	return m, nil
}

// allocate clones the template pose and creates the instance uniforms and descriptor sets.
func (m *modelImpl) allocate() error {
	m.pose = m.asset.Nodes.Clone()
	m.meshes = make([]*MeshState, m.pose.Len())

	buf, err := m.device.CreateBuffer(m.label("model"), uint64(m.uniform.Size()), gpu.BufferUsageUniform)
	if err != nil {
		return fmt.Errorf("failed to create model uniform: %w", err)
	}
	m.uniformBuffer = buf
	if err := m.device.WriteBuffer(buf, 0, m.uniform.Marshal()); err != nil {
		return fmt.Errorf("failed to write model uniform: %w", err)
	}
	set, err := m.device.CreateDescriptorSet(m.label("model"), gpu.LayoutModel, []gpu.Binding{{Slot: 0, Buffer: buf}})
	if err != nil {
		return fmt.Errorf("failed to create model descriptor set: %w", err)
	}
	m.descriptorSet = set

	for _, h := range m.asset.LinearNodes {
		n := m.pose.Node(h)
		if n == nil || n.Mesh < 0 || n.Mesh >= len(m.asset.Meshes) {
			continue
		}
		mesh := m.asset.Meshes[n.Mesh]
		state := &MeshState{Mesh: n.Mesh, Primitives: make([]PrimitiveState, len(mesh.Primitives))}
		m.meshes[h] = state

		label := m.label(fmt.Sprintf("mesh-%d", h))
		state.UniformBuffer, err = m.device.CreateBuffer(label, MeshUniformSize, gpu.BufferUsageUniform)
		if err != nil {
			return fmt.Errorf("failed to create mesh uniform for node %q: %w", n.Name, err)
		}
		pose := GPUMeshUniform{Matrix: m.pose.WorldMatrix(h)}
		if err := m.device.WriteBuffer(state.UniformBuffer, 0, pose.Marshal()); err != nil {
			return fmt.Errorf("failed to write mesh uniform for node %q: %w", n.Name, err)
		}
		state.DescriptorSet, err = m.device.CreateDescriptorSet(label, gpu.LayoutMesh, []gpu.Binding{{Slot: 0, Buffer: state.UniformBuffer}})
		if err != nil {
			return fmt.Errorf("failed to create mesh descriptor set for node %q: %w", n.Name, err)
		}
	}
	return nil
}

func (m *modelImpl) label(part string) string {
	return fmt.Sprintf("%s/%s/%s", m.name, m.id.String()[:8], part)
}

func (m *modelImpl) ID() uuid.UUID { return m.id }

func (m *modelImpl) Name() string { return m.name }

func (m *modelImpl) Asset() *Asset { return m.asset }

func (m *modelImpl) IsCopy() bool { return m.isCopy }

func (m *modelImpl) Device() gpu.Device { return m.device }

func (m *modelImpl) Nodes() *node.Arena { return m.pose }

func (m *modelImpl) LinearNodes() []node.Handle { return m.asset.LinearNodes }

func (m *modelImpl) MeshState(h node.Handle) *MeshState {
	if h < 0 || int(h) >= len(m.meshes) {
		return nil
	}
	return m.meshes[h]
}

func (m *modelImpl) Position() mgl32.Vec3 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.position
}

func (m *modelImpl) SetPosition(p mgl32.Vec3) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.position = p
}

func (m *modelImpl) Rotation() mgl32.Vec3 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rotation
}

func (m *modelImpl) SetRotation(r mgl32.Vec3) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rotation = r
}

func (m *modelImpl) Scale() mgl32.Vec3 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.scale
}

func (m *modelImpl) SetScale(s mgl32.Vec3) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scale = s
}

func (m *modelImpl) Transform() mgl32.Mat4 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.transform
}

func (m *modelImpl) SetTransform(t mgl32.Mat4) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transform = t
}

func (m *modelImpl) Script() script.Script {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.script
}

func (m *modelImpl) SetScript(s script.Script) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = s
}

func (m *modelImpl) Render() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.render && !m.destroyed
}

func (m *modelImpl) SetRender(render bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.render = render
}

func (m *modelImpl) AnimationIndex() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.animationIndex
}

func (m *modelImpl) SetAnimationIndex(i int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.animationIndex = i
}

func (m *modelImpl) AnimationTimer() float32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.animationTimer
}

func (m *modelImpl) SetAnimationTimer(t float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.animationTimer = t
}

func (m *modelImpl) Uniform() GPUModelUniform {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.uniform
}

func (m *modelImpl) SetUniform(u GPUModelUniform) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uniform = u
}

func (m *modelImpl) UniformBuffer() gpu.Buffer { return m.uniformBuffer }

func (m *modelImpl) DescriptorSet() gpu.DescriptorSet { return m.descriptorSet }

func (m *modelImpl) BoundingSphere() mgl32.Vec4 { return m.asset.BoundingSphere() }

func (m *modelImpl) Destroy() {
	m.mu.Lock()
	if m.destroyed {
		m.mu.Unlock()
		return
	}
	m.destroyed = true
	m.mu.Unlock()

	m.releaseInstance()
	m.asset.Release()
}

func (m *modelImpl) Destroyed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.destroyed
}

// releaseInstance frees only what the instance allocated. The asset's geometry, primitive uniforms and
// textures are left to the asset's reference count.
func (m *modelImpl) releaseInstance() {
	for _, state := range m.meshes {
		if state == nil {
			continue
		}
		if state.DescriptorSet != nil {
			state.DescriptorSet.Release()
		}
		if state.UniformBuffer != nil {
			state.UniformBuffer.Release()
		}
	}
	if m.descriptorSet != nil {
		m.descriptorSet.Release()
	}
	if m.uniformBuffer != nil {
		m.uniformBuffer.Release()
	}
}
