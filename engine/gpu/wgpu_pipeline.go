package gpu

import (
	_ "embed"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// SceneShader is the built-in WGSL source for drawing models. Its bind groups follow the layout order of
// LayoutRegistry.Layouts and its vertex input matches VertexLayout.
//
//go:embed shaders/scene.wgsl
var SceneShader string

// VertexStride is the byte size of one vertex in the shared vertex buffer.
const VertexStride = 96

// vertexAttributes lists the shared vertex buffer attributes in shader location order.
var vertexAttributes = []struct {
	format wgpu.VertexFormat
	size   uint64
}{
	{wgpu.VertexFormatFloat32x3, 12}, // position
	{wgpu.VertexFormatFloat32x3, 12}, // normal
	{wgpu.VertexFormatFloat32x2, 8},  // uv
	{wgpu.VertexFormatFloat32x4, 16}, // color
	{wgpu.VertexFormatFloat32x4, 16}, // tangent
	{wgpu.VertexFormatUint32x4, 16},  // joints
	{wgpu.VertexFormatFloat32x4, 16}, // weights
}

// VertexLayout returns the layout of the shared vertex buffer bound at slot 0.
//
// Returns:
//   - wgpu.VertexBufferLayout: the layout, VertexStride bytes per vertex
func VertexLayout() wgpu.VertexBufferLayout {
	attrs := make([]wgpu.VertexAttribute, 0, len(vertexAttributes))
	var offset uint64
	for i, a := range vertexAttributes {
		attrs = append(attrs, wgpu.VertexAttribute{
			Format:         a.format,
			Offset:         offset,
			ShaderLocation: uint32(i),
		})
		offset += a.size
	}
	return wgpu.VertexBufferLayout{
		ArrayStride: offset,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes:  attrs,
	}
}

// pipelineConfig holds the render state a scene pipeline is created with. The builder options toggle it.
type pipelineConfig struct {
	label         string
	source        string
	vertexEntry   string
	fragmentEntry string
	colorFormat   wgpu.TextureFormat
	depthFormat   wgpu.TextureFormat
	sampleCount   uint32
	depthTest     bool
	depthWrite    bool
	blendEnabled  bool
	cullMode      wgpu.CullMode
	frontFace     wgpu.FrontFace
	topology      wgpu.PrimitiveTopology
	writeMask     wgpu.ColorWriteMask
	blendState    wgpu.BlendState
}

func newPipelineConfig(options ...PipelineBuilderOption) *pipelineConfig {
	c := &pipelineConfig{
		label:         "Scene",
		source:        SceneShader,
		vertexEntry:   "vs_main",
		fragmentEntry: "fs_main",
		colorFormat:   wgpu.TextureFormatBGRA8UnormSrgb,
		depthFormat:   wgpu.TextureFormatDepth24Plus,
		sampleCount:   1,
		depthTest:     true,
		depthWrite:    true,
		cullMode:      wgpu.CullModeBack,
		frontFace:     wgpu.FrontFaceCCW,
		topology:      wgpu.PrimitiveTopologyTriangleList,
		writeMask:     wgpu.ColorWriteMaskAll,
		blendState: wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
		},
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *pipelineConfig) colorTarget() wgpu.ColorTargetState {
	state := wgpu.ColorTargetState{
		Format:    c.colorFormat,
		WriteMask: c.writeMask,
	}
	if c.blendEnabled {
		blend := c.blendState
		state.Blend = &blend
	}
	return state
}

func (c *pipelineConfig) depthStencil() *wgpu.DepthStencilState {
	depthCompare := wgpu.CompareFunctionLess
	if !c.depthTest {
		depthCompare = wgpu.CompareFunctionAlways
	}
	return &wgpu.DepthStencilState{
		Format:            c.depthFormat,
		DepthWriteEnabled: c.depthWrite,
		DepthCompare:      depthCompare,
		StencilFront: wgpu.StencilFaceState{
			Compare: wgpu.CompareFunctionAlways,
		},
		StencilBack: wgpu.StencilFaceState{
			Compare: wgpu.CompareFunctionAlways,
		},
	}
}

// NewWGPUScenePipeline compiles a render pipeline for drawing models. The pipeline layout is built from
// layouts in mesh, primitive, model group order and the vertex input from VertexLayout.
//
// Parameters:
//   - device: the webgpu device
//   - layouts: the shared layout registry
//   - options: functional options for the render state
//
// Returns:
//   - Pipeline: the pipeline, ready for RenderPass.SetPipeline
//   - error: error if shader compilation or pipeline creation fails
func NewWGPUScenePipeline(device *wgpu.Device, layouts LayoutRegistry, options ...PipelineBuilderOption) (Pipeline, error) {
	c := newPipelineConfig(options...)

	module, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: c.label + " Shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: c.source,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to compile %s shader: %w", c.label, err)
	}
	defer module.Release()

	groups, err := layouts.Layouts()
	if err != nil {
		return nil, err
	}
	pipelineLayout, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            c.label,
		BindGroupLayouts: groups,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s pipeline layout: %w", c.label, err)
	}
	defer pipelineLayout.Release()

	created, err := device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  c.label + " Render Pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: c.vertexEntry,
			Buffers:    []wgpu.VertexBufferLayout{VertexLayout()},
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: c.fragmentEntry,
			Targets:    []wgpu.ColorTargetState{c.colorTarget()},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  c.topology,
			FrontFace: c.frontFace,
			CullMode:  c.cullMode,
		},
		Multisample: wgpu.MultisampleState{
			Count: c.sampleCount,
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: c.depthStencil(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s render pipeline: %w", c.label, err)
	}
	return NewWGPUPipeline(c.label, created), nil
}
