// Package emitter records the draw calls of updated models into a render pass.
package emitter

import (
	"github.com/Carmen-Shannon/oxy-scene/engine/gpu"
	"github.com/Carmen-Shannon/oxy-scene/engine/logger"
	"github.com/Carmen-Shannon/oxy-scene/engine/model"
	"go.uber.org/zap"
)

// Passes lists the alpha modes in emission order. Blended primitives are drawn last and are not sorted by
// depth.
var Passes = [...]model.AlphaMode{model.AlphaOpaque, model.AlphaMask, model.AlphaBlend}

// PassCounts holds a draw count per alpha mode, indexed by model.AlphaMode.
type PassCounts [len(Passes)]int

// Total returns the sum over every pass.
func (c PassCounts) Total() int {
	return c[model.AlphaOpaque] + c[model.AlphaMask] + c[model.AlphaBlend]
}

// Add returns the element-wise sum of c and o.
func (c PassCounts) Add(o PassCounts) PassCounts {
	for i := range c {
		c[i] += o[i]
	}
	return c
}

// Emitter issues the draws of a model's visible primitives.
type Emitter interface {
	// Draw binds the model's shared buffers once and records one indexed draw per visible primitive,
	// opaque primitives first, then masked, then blended. Nothing is recorded for a hidden model or a nil
	// pipeline.
	//
	// Parameters:
	//   - m: the model to draw, updated for the current frame
	//   - pass: the pass to record into
	//   - pipeline: the pipeline to bind
	//
	// Returns:
	//   - int: the number of draws recorded
	Draw(m model.Model, pass gpu.RenderPass, pipeline gpu.Pipeline) int

	// DrawAll draws each model in order.
	//
	// Parameters:
	//   - models: the models to draw
	//   - pass: the pass to record into
	//   - pipeline: the pipeline to bind
	//
	// Returns:
	//   - PassCounts: the draws recorded per alpha pass
	DrawAll(models []model.Model, pass gpu.RenderPass, pipeline gpu.Pipeline) PassCounts

	// Count returns how many draws Draw would record for m in each pass without recording anything.
	//
	// Parameters:
	//   - m: the model to inspect
	//
	// Returns:
	//   - PassCounts: the draws per alpha pass
	Count(m model.Model) PassCounts
}

type emitterImpl struct {
	logger *zap.Logger
}

var _ Emitter = &emitterImpl{}

// NewEmitter creates an Emitter.
//
// Parameters:
//   - options: functional options for configuring the emitter
//
// Returns:
//   - Emitter: the new emitter
func NewEmitter(options ...EmitterBuilderOption) Emitter {
	e := &emitterImpl{}
	for _, opt := range options {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logger.Named("emitter")
	}
	return e
}

func (e *emitterImpl) Draw(m model.Model, pass gpu.RenderPass, pipeline gpu.Pipeline) int {
	counts := e.draw(m, pass, pipeline)
	return counts.Total()
}

func (e *emitterImpl) DrawAll(models []model.Model, pass gpu.RenderPass, pipeline gpu.Pipeline) PassCounts {
	var total PassCounts
	for _, m := range models {
		total = total.Add(e.draw(m, pass, pipeline))
	}
	return total
}

func (e *emitterImpl) Count(m model.Model) PassCounts {
	var counts PassCounts
	if !m.Render() {
		return counts
	}
	for _, mode := range Passes {
		visit(m, mode, func(*model.MeshState, *model.Mesh, *model.Primitive) {
			counts[mode]++
		})
	}
	return counts
}

func (e *emitterImpl) draw(m model.Model, pass gpu.RenderPass, pipeline gpu.Pipeline) PassCounts {
	var counts PassCounts
	if pipeline == nil || !m.Render() {
		return counts
	}
	asset := m.Asset()
	if asset.VertexBuffer == nil || asset.IndexBuffer == nil {
		e.logger.Warn("model has no uploaded geometry", zap.String("model", m.Name()))
		return counts
	}

	pass.SetPipeline(pipeline)
	pass.SetVertexBuffer(0, asset.VertexBuffer)
	pass.SetIndexBuffer(asset.IndexBuffer)

	modelSet := m.DescriptorSet()
	for _, mode := range Passes {
		visit(m, mode, func(state *model.MeshState, mesh *model.Mesh, prim *model.Primitive) {
			pass.SetDescriptorSets(0, state.DescriptorSet, prim.DescriptorSet, modelSet)
			pass.DrawIndexed(
				prim.IndicesSize,
				1,
				mesh.IndexOffset+prim.IndexOffset,
				int32(mesh.VertexOffset+prim.VertexOffset),
				0,
			)
			counts[mode]++
		})
	}
	e.logger.Debug("model drawn",
		zap.String("model", m.Name()),
		zap.Int("opaque", counts[model.AlphaOpaque]),
		zap.Int("mask", counts[model.AlphaMask]),
		zap.Int("blend", counts[model.AlphaBlend]),
	)
	return counts
}

// visit calls fn for every primitive of m in linear node order that is rendered, not culled and uses mode.
func visit(m model.Model, mode model.AlphaMode, fn func(*model.MeshState, *model.Mesh, *model.Primitive)) {
	meshes := m.Asset().Meshes
	for _, h := range m.LinearNodes() {
		state := m.MeshState(h)
		if state == nil {
			continue
		}
		mesh := meshes[state.Mesh]
		for j, prim := range mesh.Primitives {
			if !prim.Render || state.Primitives[j].Cull || prim.Material.AlphaMode != mode {
				continue
			}
			fn(state, mesh, prim)
		}
	}
}
