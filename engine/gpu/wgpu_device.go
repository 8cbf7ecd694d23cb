package gpu

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// wgpuDeviceImpl adapts a cogentcore/webgpu device and queue to Device.
type wgpuDeviceImpl struct {
	device  *wgpu.Device
	queue   *wgpu.Queue
	layouts LayoutRegistry
	sampler common.SamplerStagingData

	// submitMu serializes queue submissions. Texture uploads hold it across every mip write.
	submitMu sync.Mutex
}

type wgpuBuffer struct {
	label    string
	size     uint64
	buf      *wgpu.Buffer
	released atomic.Bool
}

type wgpuTexture struct {
	label    string
	width    uint32
	height   uint32
	mips     uint32
	tex      *wgpu.Texture
	view     *wgpu.TextureView
	sampler  *wgpu.Sampler
	released atomic.Bool
}

type wgpuDescriptorSet struct {
	label    string
	layout   LayoutKind
	group    *wgpu.BindGroup
	released atomic.Bool
}

type wgpuPipeline struct {
	label    string
	pipeline *wgpu.RenderPipeline
}

var _ Device = &wgpuDeviceImpl{}

// NewWGPUDevice wraps a webgpu device and queue. Bind group layouts are created through layouts, and
// every texture gets a sampler built from sampler with linear filtering and repeat addressing as defaults.
//
// Parameters:
//   - device: the webgpu device
//   - queue: the device queue
//   - layouts: the shared layout registry
//   - sampler: sampler overrides; zero fields take defaults
//
// Returns:
//   - Device: the adapter
func NewWGPUDevice(device *wgpu.Device, queue *wgpu.Queue, layouts LayoutRegistry, sampler common.SamplerStagingData) Device {
	return &wgpuDeviceImpl{
		device:  device,
		queue:   queue,
		layouts: layouts,
		sampler: sampler,
	}
}

// NewWGPUPipeline wraps a webgpu render pipeline so it can be handed to a RenderPass.
//
// Parameters:
//   - label: debug label
//   - pipeline: the render pipeline
//
// Returns:
//   - Pipeline: the wrapped pipeline
func NewWGPUPipeline(label string, pipeline *wgpu.RenderPipeline) Pipeline {
	return &wgpuPipeline{label: label, pipeline: pipeline}
}

func (d *wgpuDeviceImpl) CreateBuffer(label string, size uint64, usage BufferUsage) (Buffer, error) {
	flags := wgpu.BufferUsageCopyDst
	if usage&BufferUsageVertex != 0 {
		flags |= wgpu.BufferUsageVertex
	}
	if usage&BufferUsageIndex != 0 {
		flags |= wgpu.BufferUsageIndex
	}
	if usage&BufferUsageUniform != 0 {
		flags |= wgpu.BufferUsageUniform
	}

	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            label,
		Size:             size,
		Usage:            flags,
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create buffer %q: %w", label, err)
	}
	return &wgpuBuffer{label: label, size: size, buf: buf}, nil
}

func (d *wgpuDeviceImpl) WriteBuffer(buf Buffer, offset uint64, data []byte) error {
	b, ok := buf.(*wgpuBuffer)
	if !ok {
		return fmt.Errorf("buffer %q was not created by this device", buf.Label())
	}
	if b.released.Load() {
		return ErrReleased
	}
	if offset+uint64(len(data)) > b.size {
		return fmt.Errorf("write of %d bytes at offset %d overflows buffer %q of size %d", len(data), offset, b.label, b.size)
	}

	d.submitMu.Lock()
	defer d.submitMu.Unlock()
	return d.queue.WriteBuffer(b.buf, offset, data)
}

func (d *wgpuDeviceImpl) CreateTexture(label string, mips []common.TextureStagingData) (Texture, error) {
	if len(mips) == 0 {
		return nil, errors.New("texture requires at least one mip level")
	}
	base := mips[0]

	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     label,
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              base.Width,
			Height:             base.Height,
			DepthOrArrayLayers: 1,
		},
		Format:        wgpu.TextureFormatRGBA8UnormSrgb,
		MipLevelCount: uint32(len(mips)),
		SampleCount:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create texture %q: %w", label, err)
	}

	for level, mip := range mips {
		d.queue.WriteTexture(
			&wgpu.ImageCopyTexture{
				Texture:  tex,
				MipLevel: uint32(level),
				Origin:   wgpu.Origin3D{},
				Aspect:   wgpu.TextureAspectAll,
			},
			mip.Pixels,
			&wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  mip.Width * 4,
				RowsPerImage: mip.Height,
			},
			&wgpu.Extent3D{
				Width:              mip.Width,
				Height:             mip.Height,
				DepthOrArrayLayers: 1,
			},
		)
	}

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("failed to create view for texture %q: %w", label, err)
	}

	samp, err := d.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         label + " Sampler",
		AddressModeU:  common.Coalesce(d.sampler.AddressModeU, wgpu.AddressModeRepeat),
		AddressModeV:  common.Coalesce(d.sampler.AddressModeV, wgpu.AddressModeRepeat),
		AddressModeW:  common.Coalesce(d.sampler.AddressModeW, wgpu.AddressModeRepeat),
		MagFilter:     common.Coalesce(d.sampler.MagFilter, wgpu.FilterModeLinear),
		MinFilter:     common.Coalesce(d.sampler.MinFilter, wgpu.FilterModeLinear),
		MipmapFilter:  common.Coalesce(d.sampler.MipmapFilter, wgpu.MipmapFilterModeLinear),
		LodMinClamp:   d.sampler.LodMinClamp,
		LodMaxClamp:   common.Coalesce(d.sampler.LodMaxClamp, float32(len(mips))),
		MaxAnisotropy: common.Coalesce(d.sampler.MaxAnisotropy, 1),
	})
	if err != nil {
		view.Release()
		tex.Release()
		return nil, fmt.Errorf("failed to create sampler for texture %q: %w", label, err)
	}

	return &wgpuTexture{
		label:   label,
		width:   base.Width,
		height:  base.Height,
		mips:    uint32(len(mips)),
		tex:     tex,
		view:    view,
		sampler: samp,
	}, nil
}

func (d *wgpuDeviceImpl) CreateDescriptorSet(label string, layout LayoutKind, bindings []Binding) (DescriptorSet, error) {
	bgl, err := d.layouts.Layout(layout)
	if err != nil {
		return nil, err
	}

	entries := make([]wgpu.BindGroupEntry, 0, len(bindings)*2)
	for _, b := range bindings {
		switch {
		case b.Buffer != nil:
			buf, ok := b.Buffer.(*wgpuBuffer)
			if !ok {
				return nil, fmt.Errorf("binding %d: buffer %q was not created by this device", b.Slot, b.Buffer.Label())
			}
			if buf.released.Load() {
				return nil, fmt.Errorf("binding %d: %w", b.Slot, ErrReleased)
			}
			entries = append(entries, wgpu.BindGroupEntry{
				Binding: b.Slot,
				Buffer:  buf.buf,
				Offset:  0,
				Size:    wgpu.WholeSize,
			})
		case b.Texture != nil:
			tex, ok := b.Texture.(*wgpuTexture)
			if !ok {
				return nil, fmt.Errorf("binding %d: texture %q was not created by this device", b.Slot, b.Texture.Label())
			}
			if tex.released.Load() {
				return nil, fmt.Errorf("binding %d: %w", b.Slot, ErrReleased)
			}
			entries = append(entries,
				wgpu.BindGroupEntry{Binding: b.Slot, TextureView: tex.view},
				wgpu.BindGroupEntry{Binding: b.Slot + PrimitiveTextureSlots, Sampler: tex.sampler},
			)
		default:
			return nil, fmt.Errorf("binding %d has neither buffer nor texture", b.Slot)
		}
	}

	group, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   label,
		Layout:  bgl,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bind group %q: %w", label, err)
	}
	return &wgpuDescriptorSet{label: label, layout: layout, group: group}, nil
}

func (d *wgpuDeviceImpl) LockSubmits() {
	d.submitMu.Lock()
}

func (d *wgpuDeviceImpl) UnlockSubmits() {
	d.submitMu.Unlock()
}

func (b *wgpuBuffer) Label() string { return b.label }
func (b *wgpuBuffer) Size() uint64  { return b.size }
func (b *wgpuBuffer) Release() {
	if b.released.Swap(true) {
		return
	}
	b.buf.Release()
}

func (t *wgpuTexture) Label() string     { return t.label }
func (t *wgpuTexture) Width() uint32     { return t.width }
func (t *wgpuTexture) Height() uint32    { return t.height }
func (t *wgpuTexture) MipLevels() uint32 { return t.mips }
func (t *wgpuTexture) Release() {
	if t.released.Swap(true) {
		return
	}
	t.sampler.Release()
	t.view.Release()
	t.tex.Release()
}

func (s *wgpuDescriptorSet) Label() string      { return s.label }
func (s *wgpuDescriptorSet) Layout() LayoutKind { return s.layout }
func (s *wgpuDescriptorSet) Release() {
	if s.released.Swap(true) {
		return
	}
	s.group.Release()
}

func (p *wgpuPipeline) Label() string { return p.label }
