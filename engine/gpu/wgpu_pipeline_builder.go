package gpu

import "github.com/cogentcore/webgpu/wgpu"

// PipelineBuilderOption is a functional option used to configure a scene pipeline during construction.
type PipelineBuilderOption func(*pipelineConfig)

// WithPipelineLabel sets the debug label of the pipeline and its shader module.
//
// Parameters:
//   - label: the label
//
// Returns:
//   - PipelineBuilderOption: a function that sets the label
func WithPipelineLabel(label string) PipelineBuilderOption {
	return func(c *pipelineConfig) {
		c.label = label
	}
}

// WithShaderSource replaces the built-in scene shader. The source must declare the same bind groups and
// vertex input as SceneShader.
//
// Parameters:
//   - source: WGSL source
//   - vertexEntry: the vertex entry point
//   - fragmentEntry: the fragment entry point
//
// Returns:
//   - PipelineBuilderOption: a function that sets the shader source
func WithShaderSource(source, vertexEntry, fragmentEntry string) PipelineBuilderOption {
	return func(c *pipelineConfig) {
		c.source = source
		c.vertexEntry = vertexEntry
		c.fragmentEntry = fragmentEntry
	}
}

// WithAlphaCutoff selects the fragment entry point that discards fragments below the material cutoff.
//
// Returns:
//   - PipelineBuilderOption: a function that selects the masking entry point
func WithAlphaCutoff() PipelineBuilderOption {
	return func(c *pipelineConfig) {
		c.fragmentEntry = "fs_mask"
	}
}

// WithColorFormat sets the format of the color target.
//
// Parameters:
//   - format: the surface or render target format
//
// Returns:
//   - PipelineBuilderOption: a function that sets the color format
func WithColorFormat(format wgpu.TextureFormat) PipelineBuilderOption {
	return func(c *pipelineConfig) {
		c.colorFormat = format
	}
}

// WithDepthFormat sets the format of the depth target.
//
// Parameters:
//   - format: the depth format
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth format
func WithDepthFormat(format wgpu.TextureFormat) PipelineBuilderOption {
	return func(c *pipelineConfig) {
		c.depthFormat = format
	}
}

// WithSampleCount sets the multisample count.
//
// Parameters:
//   - count: samples per pixel
//
// Returns:
//   - PipelineBuilderOption: a function that sets the sample count
func WithSampleCount(count uint32) PipelineBuilderOption {
	return func(c *pipelineConfig) {
		c.sampleCount = max(count, 1)
	}
}

// WithDepthTestEnabled sets whether depth testing is enabled for this pipeline.
//
// Parameters:
//   - enabled: a boolean indicating whether depth testing should be enabled
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth test enabled state for this pipeline
func WithDepthTestEnabled(enabled bool) PipelineBuilderOption {
	return func(c *pipelineConfig) {
		c.depthTest = enabled
	}
}

// WithDepthWriteEnabled sets whether depth writing is enabled for this pipeline.
//
// Parameters:
//   - enabled: a boolean indicating whether depth writing should be enabled
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth write enabled state for this pipeline
func WithDepthWriteEnabled(enabled bool) PipelineBuilderOption {
	return func(c *pipelineConfig) {
		c.depthWrite = enabled
	}
}

// WithBlendEnabled enables alpha blending. Blended pipelines do not write depth.
//
// Parameters:
//   - enabled: a boolean indicating whether blending should be enabled
//
// Returns:
//   - PipelineBuilderOption: a function that sets the blend enabled state for this pipeline
func WithBlendEnabled(enabled bool) PipelineBuilderOption {
	return func(c *pipelineConfig) {
		c.blendEnabled = enabled
		if enabled {
			c.depthWrite = false
		}
	}
}

// WithBlendState replaces the default source-over blend state.
//
// Parameters:
//   - state: the blend state
//
// Returns:
//   - PipelineBuilderOption: a function that sets the blend state for this pipeline
func WithBlendState(state wgpu.BlendState) PipelineBuilderOption {
	return func(c *pipelineConfig) {
		c.blendState = state
	}
}

// WithCullMode sets the face culling mode for this pipeline.
//
// Parameters:
//   - mode: the cull mode
//
// Returns:
//   - PipelineBuilderOption: a function that sets the cull mode for this pipeline
func WithCullMode(mode wgpu.CullMode) PipelineBuilderOption {
	return func(c *pipelineConfig) {
		c.cullMode = mode
	}
}

// WithFrontFace sets the front face winding order for this pipeline.
//
// Parameters:
//   - face: the winding order
//
// Returns:
//   - PipelineBuilderOption: a function that sets the front face for this pipeline
func WithFrontFace(face wgpu.FrontFace) PipelineBuilderOption {
	return func(c *pipelineConfig) {
		c.frontFace = face
	}
}
