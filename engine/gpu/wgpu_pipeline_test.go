package gpu

import (
	"strings"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
)

func TestVertexLayout(t *testing.T) {
	layout := VertexLayout()
	if layout.ArrayStride != VertexStride {
		t.Fatalf("expected stride %d, got %d", VertexStride, layout.ArrayStride)
	}
	want := []uint64{0, 12, 24, 32, 48, 64, 80}
	if len(layout.Attributes) != len(want) {
		t.Fatalf("expected %d attributes, got %d", len(want), len(layout.Attributes))
	}
	for i, a := range layout.Attributes {
		if a.Offset != want[i] || a.ShaderLocation != uint32(i) {
			t.Errorf("attribute %d: offset %d location %d", i, a.Offset, a.ShaderLocation)
		}
	}
	if layout.Attributes[5].Format != wgpu.VertexFormatUint32x4 {
		t.Error("joints must be unsigned integers")
	}
}

func TestPipelineConfigDefaults(t *testing.T) {
	c := newPipelineConfig()
	if c.source != SceneShader || c.vertexEntry != "vs_main" || c.fragmentEntry != "fs_main" {
		t.Error("unexpected shader defaults")
	}
	if c.colorTarget().Blend != nil {
		t.Error("blending should be off by default")
	}
	ds := c.depthStencil()
	if !ds.DepthWriteEnabled || ds.DepthCompare != wgpu.CompareFunctionLess {
		t.Errorf("unexpected depth state %+v", ds)
	}
}

func TestPipelineConfigOptions(t *testing.T) {
	c := newPipelineConfig(
		WithPipelineLabel("Blend"),
		WithBlendEnabled(true),
		WithDepthTestEnabled(false),
		WithAlphaCutoff(),
		WithSampleCount(0),
		WithCullMode(wgpu.CullModeNone),
	)
	if c.label != "Blend" || c.fragmentEntry != "fs_mask" || c.sampleCount != 1 || c.cullMode != wgpu.CullModeNone {
		t.Errorf("options not applied: %+v", c)
	}
	if c.colorTarget().Blend == nil {
		t.Error("blend state missing")
	}
	ds := c.depthStencil()
	if ds.DepthWriteEnabled || ds.DepthCompare != wgpu.CompareFunctionAlways {
		t.Errorf("blended pipeline without depth test should neither write nor test depth: %+v", ds)
	}
}

func TestSceneShaderBindings(t *testing.T) {
	for _, decl := range []string{
		"@group(0) @binding(0) var<uniform> mesh",
		"@group(1) @binding(0) var<uniform> primitive",
		"@group(1) @binding(10) var emissive_sampler",
		"@group(2) @binding(0) var<uniform> model",
		"array<mat4x4<f32>, 128>",
		"fn vs_main",
		"fn fs_main",
		"fn fs_mask",
	} {
		if !strings.Contains(SceneShader, decl) {
			t.Errorf("scene shader is missing %q", decl)
		}
	}
}
