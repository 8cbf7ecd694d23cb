package gpu

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// wgpuRenderPassImpl adapts a webgpu render pass encoder to RenderPass. Resources that were not created by
// the webgpu device, or that have been released, are skipped.
type wgpuRenderPassImpl struct {
	pass *wgpu.RenderPassEncoder
}

var _ RenderPass = &wgpuRenderPassImpl{}

// NewWGPURenderPass wraps an open render pass encoder. The caller still owns the encoder and ends it.
//
// Parameters:
//   - pass: the render pass encoder
//
// Returns:
//   - RenderPass: the adapter
func NewWGPURenderPass(pass *wgpu.RenderPassEncoder) RenderPass {
	return &wgpuRenderPassImpl{pass: pass}
}

func (r *wgpuRenderPassImpl) SetPipeline(p Pipeline) {
	if wp, ok := p.(*wgpuPipeline); ok {
		r.pass.SetPipeline(wp.pipeline)
	}
}

func (r *wgpuRenderPassImpl) SetVertexBuffer(slot uint32, buf Buffer) {
	if b, ok := buf.(*wgpuBuffer); ok && !b.released.Load() {
		r.pass.SetVertexBuffer(slot, b.buf, 0, wgpu.WholeSize)
	}
}

func (r *wgpuRenderPassImpl) SetIndexBuffer(buf Buffer) {
	if b, ok := buf.(*wgpuBuffer); ok && !b.released.Load() {
		r.pass.SetIndexBuffer(b.buf, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	}
}

func (r *wgpuRenderPassImpl) SetDescriptorSets(first uint32, sets ...DescriptorSet) {
	for i, s := range sets {
		if ds, ok := s.(*wgpuDescriptorSet); ok && !ds.released.Load() {
			r.pass.SetBindGroup(first+uint32(i), ds.group, nil)
		}
	}
}

func (r *wgpuRenderPassImpl) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	r.pass.DrawIndexed(indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
}
