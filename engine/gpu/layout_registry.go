package gpu

import (
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// LayoutRegistry creates the bind group layouts for each LayoutKind once and hands out the cached
// layouts afterwards.
type LayoutRegistry interface {
	// Layout returns the bind group layout for kind, creating it on first use.
	//
	// Parameters:
	//   - kind: the layout kind
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the layout
	//   - error: error if creation fails
	Layout(kind LayoutKind) (*wgpu.BindGroupLayout, error)

	// Layouts returns every layout in group order (mesh, primitive, model) for pipeline layout creation. The
	// order matches the descriptor sets the draw emitter binds.
	//
	// Returns:
	//   - []*wgpu.BindGroupLayout: the layouts
	//   - error: error if creation fails
	Layouts() ([]*wgpu.BindGroupLayout, error)

	// Release frees every created layout.
	Release()
}

type layoutRegistryImpl struct {
	mu      sync.Mutex
	device  *wgpu.Device
	layouts map[LayoutKind]*wgpu.BindGroupLayout
}

var _ LayoutRegistry = &layoutRegistryImpl{}

// NewLayoutRegistry creates a registry bound to device.
//
// Parameters:
//   - device: the wgpu device used to create layouts
//
// Returns:
//   - LayoutRegistry: the new registry
func NewLayoutRegistry(device *wgpu.Device) LayoutRegistry {
	return &layoutRegistryImpl{
		device:  device,
		layouts: make(map[LayoutKind]*wgpu.BindGroupLayout),
	}
}

func (r *layoutRegistryImpl) Layout(kind LayoutKind) (*wgpu.BindGroupLayout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.layouts[kind]; ok {
		return l, nil
	}

	desc, err := LayoutDescriptor(kind)
	if err != nil {
		return nil, err
	}
	l, err := r.device.CreateBindGroupLayout(&desc)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s bind group layout: %w", kind, err)
	}
	r.layouts[kind] = l
	return l, nil
}

func (r *layoutRegistryImpl) Layouts() ([]*wgpu.BindGroupLayout, error) {
	out := make([]*wgpu.BindGroupLayout, 0, 3)
	for _, k := range []LayoutKind{LayoutMesh, LayoutPrimitive, LayoutModel} {
		l, err := r.Layout(k)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

func (r *layoutRegistryImpl) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, l := range r.layouts {
		l.Release()
		delete(r.layouts, k)
	}
}

// LayoutDescriptor returns the bind group layout description for kind. Primitive texture slot i is bound
// at 1+i with its sampler at 1+PrimitiveTextureSlots+i.
//
// Parameters:
//   - kind: the layout kind
//
// Returns:
//   - wgpu.BindGroupLayoutDescriptor: the layout description
//   - error: error if kind is unknown
func LayoutDescriptor(kind LayoutKind) (wgpu.BindGroupLayoutDescriptor, error) {
	uniform := func(binding uint32, visibility wgpu.ShaderStage) wgpu.BindGroupLayoutEntry {
		entry := wgpu.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: visibility,
		}
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
		return entry
	}

	switch kind {
	case LayoutModel:
		return wgpu.BindGroupLayoutDescriptor{
			Label:   "Model Layout",
			Entries: []wgpu.BindGroupLayoutEntry{uniform(0, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment)},
		}, nil
	case LayoutMesh:
		return wgpu.BindGroupLayoutDescriptor{
			Label:   "Mesh Layout",
			Entries: []wgpu.BindGroupLayoutEntry{uniform(0, wgpu.ShaderStageVertex)},
		}, nil
	case LayoutPrimitive:
		entries := []wgpu.BindGroupLayoutEntry{uniform(0, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment)}
		for i := range uint32(PrimitiveTextureSlots) {
			tex := wgpu.BindGroupLayoutEntry{
				Binding:    1 + i,
				Visibility: wgpu.ShaderStageFragment,
			}
			tex.Texture.SampleType = wgpu.TextureSampleTypeFloat
			tex.Texture.ViewDimension = wgpu.TextureViewDimension2D
			entries = append(entries, tex)
		}
		for i := range uint32(PrimitiveTextureSlots) {
			samp := wgpu.BindGroupLayoutEntry{
				Binding:    1 + PrimitiveTextureSlots + i,
				Visibility: wgpu.ShaderStageFragment,
			}
			samp.Sampler.Type = wgpu.SamplerBindingTypeFiltering
			entries = append(entries, samp)
		}
		return wgpu.BindGroupLayoutDescriptor{
			Label:   "Primitive Layout",
			Entries: entries,
		}, nil
	default:
		return wgpu.BindGroupLayoutDescriptor{}, fmt.Errorf("unknown layout kind %d", kind)
	}
}
