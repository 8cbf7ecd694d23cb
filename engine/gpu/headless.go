package gpu

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-scene/common"
)

// HeadlessStats is a snapshot of the allocations made through a HeadlessDevice.
type HeadlessStats struct {
	BuffersCreated        int
	BuffersLive           int
	TexturesCreated       int
	TexturesLive          int
	DescriptorSetsCreated int
	DescriptorSetsLive    int
	BufferWrites          int
	BytesWritten          uint64
}

// HeadlessDevice is an in-memory Device. Buffer contents are kept on the CPU so uploads can be inspected.
type HeadlessDevice struct {
	mu       sync.Mutex
	submitMu sync.Mutex
	stats    HeadlessStats
}

// HeadlessBuffer is the Buffer type created by a HeadlessDevice.
type HeadlessBuffer struct {
	device   *HeadlessDevice
	label    string
	usage    BufferUsage
	mu       sync.Mutex
	data     []byte
	released atomic.Bool
}

// HeadlessTexture is the Texture type created by a HeadlessDevice.
type HeadlessTexture struct {
	device   *HeadlessDevice
	label    string
	width    uint32
	height   uint32
	mips     uint32
	pixels   []byte
	released atomic.Bool
}

// HeadlessDescriptorSet is the DescriptorSet type created by a HeadlessDevice.
type HeadlessDescriptorSet struct {
	device   *HeadlessDevice
	label    string
	layout   LayoutKind
	bindings []Binding
	released atomic.Bool
}

// HeadlessPipeline is a Pipeline with nothing behind it.
type HeadlessPipeline struct {
	label string
}

var (
	_ Device        = &HeadlessDevice{}
	_ Buffer        = &HeadlessBuffer{}
	_ Texture       = &HeadlessTexture{}
	_ DescriptorSet = &HeadlessDescriptorSet{}
	_ Pipeline      = &HeadlessPipeline{}
)

// NewHeadlessDevice creates an empty headless device.
func NewHeadlessDevice() *HeadlessDevice {
	return &HeadlessDevice{}
}

// NewHeadlessPipeline creates a named pipeline placeholder.
func NewHeadlessPipeline(label string) *HeadlessPipeline {
	return &HeadlessPipeline{label: label}
}

// Stats returns a snapshot of the device's allocation counters.
func (d *HeadlessDevice) Stats() HeadlessStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

func (d *HeadlessDevice) CreateBuffer(label string, size uint64, usage BufferUsage) (Buffer, error) {
	if size == 0 {
		return nil, fmt.Errorf("buffer %q has zero size", label)
	}
	d.mu.Lock()
	d.stats.BuffersCreated++
	d.stats.BuffersLive++
	d.mu.Unlock()
	return &HeadlessBuffer{device: d, label: label, usage: usage, data: make([]byte, size)}, nil
}

func (d *HeadlessDevice) WriteBuffer(buf Buffer, offset uint64, data []byte) error {
	b, ok := buf.(*HeadlessBuffer)
	if !ok {
		return fmt.Errorf("buffer %q was not created by this device", buf.Label())
	}
	if b.released.Load() {
		return ErrReleased
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if offset+uint64(len(data)) > uint64(len(b.data)) {
		return fmt.Errorf("write of %d bytes at offset %d overflows buffer %q of size %d", len(data), offset, b.label, len(b.data))
	}
	copy(b.data[offset:], data)

	d.mu.Lock()
	d.stats.BufferWrites++
	d.stats.BytesWritten += uint64(len(data))
	d.mu.Unlock()
	return nil
}

func (d *HeadlessDevice) CreateTexture(label string, mips []common.TextureStagingData) (Texture, error) {
	if len(mips) == 0 {
		return nil, errors.New("texture requires at least one mip level")
	}
	base := mips[0]
	if uint32(len(base.Pixels)) != base.Width*base.Height*4 {
		return nil, fmt.Errorf("texture %q: expected %d bytes of RGBA data, got %d", label, base.Width*base.Height*4, len(base.Pixels))
	}

	d.mu.Lock()
	d.stats.TexturesCreated++
	d.stats.TexturesLive++
	d.mu.Unlock()
	return &HeadlessTexture{
		device: d,
		label:  label,
		width:  base.Width,
		height: base.Height,
		mips:   uint32(len(mips)),
		pixels: append([]byte(nil), base.Pixels...),
	}, nil
}

func (d *HeadlessDevice) CreateDescriptorSet(label string, layout LayoutKind, bindings []Binding) (DescriptorSet, error) {
	for _, b := range bindings {
		switch {
		case b.Buffer != nil:
			hb, ok := b.Buffer.(*HeadlessBuffer)
			if !ok {
				return nil, fmt.Errorf("binding %d: buffer %q was not created by this device", b.Slot, b.Buffer.Label())
			}
			if hb.released.Load() {
				return nil, fmt.Errorf("binding %d: %w", b.Slot, ErrReleased)
			}
		case b.Texture != nil:
			ht, ok := b.Texture.(*HeadlessTexture)
			if !ok {
				return nil, fmt.Errorf("binding %d: texture %q was not created by this device", b.Slot, b.Texture.Label())
			}
			if ht.released.Load() {
				return nil, fmt.Errorf("binding %d: %w", b.Slot, ErrReleased)
			}
		default:
			return nil, fmt.Errorf("binding %d has neither buffer nor texture", b.Slot)
		}
	}

	d.mu.Lock()
	d.stats.DescriptorSetsCreated++
	d.stats.DescriptorSetsLive++
	d.mu.Unlock()
	return &HeadlessDescriptorSet{
		device:   d,
		label:    label,
		layout:   layout,
		bindings: append([]Binding(nil), bindings...),
	}, nil
}

func (d *HeadlessDevice) LockSubmits() {
	d.submitMu.Lock()
}

func (d *HeadlessDevice) UnlockSubmits() {
	d.submitMu.Unlock()
}

func (b *HeadlessBuffer) Label() string { return b.label }

func (b *HeadlessBuffer) Size() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return uint64(len(b.data))
}

// Usage returns the usage flags the buffer was created with.
func (b *HeadlessBuffer) Usage() BufferUsage { return b.usage }

// Bytes returns a copy of the buffer contents.
func (b *HeadlessBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.data...)
}

// Released reports whether Release has been called.
func (b *HeadlessBuffer) Released() bool { return b.released.Load() }

func (b *HeadlessBuffer) Release() {
	if b.released.Swap(true) {
		return
	}
	b.device.mu.Lock()
	b.device.stats.BuffersLive--
	b.device.mu.Unlock()
}

func (t *HeadlessTexture) Label() string     { return t.label }
func (t *HeadlessTexture) Width() uint32     { return t.width }
func (t *HeadlessTexture) Height() uint32    { return t.height }
func (t *HeadlessTexture) MipLevels() uint32 { return t.mips }

// Pixels returns the RGBA contents of mip level 0.
func (t *HeadlessTexture) Pixels() []byte { return t.pixels }

// Released reports whether Release has been called.
func (t *HeadlessTexture) Released() bool { return t.released.Load() }

func (t *HeadlessTexture) Release() {
	if t.released.Swap(true) {
		return
	}
	t.device.mu.Lock()
	t.device.stats.TexturesLive--
	t.device.mu.Unlock()
}

func (s *HeadlessDescriptorSet) Label() string      { return s.label }
func (s *HeadlessDescriptorSet) Layout() LayoutKind { return s.layout }

// Bindings returns the resources bound in the set.
func (s *HeadlessDescriptorSet) Bindings() []Binding { return s.bindings }

// Released reports whether Release has been called.
func (s *HeadlessDescriptorSet) Released() bool { return s.released.Load() }

func (s *HeadlessDescriptorSet) Release() {
	if s.released.Swap(true) {
		return
	}
	s.device.mu.Lock()
	s.device.stats.DescriptorSetsLive--
	s.device.mu.Unlock()
}

func (p *HeadlessPipeline) Label() string { return p.label }
