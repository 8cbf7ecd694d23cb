package model_test

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-scene/engine/gpu"
	"github.com/Carmen-Shannon/oxy-scene/engine/model"
	"github.com/Carmen-Shannon/oxy-scene/engine/model/modeltest"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

func floatAt(b []byte, i int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
}

func TestUploadRecordsOffsets(t *testing.T) {
	d := gpu.NewHeadlessDevice()
	asset := modeltest.NewAsset(t, d,
		[]modeltest.Prim{{}, {}},
		[]modeltest.Prim{{}},
	)

	if asset.VertexCount != 9 || asset.IndexCount != 9 {
		t.Fatalf("expected 9 vertices and indices, got %d/%d", asset.VertexCount, asset.IndexCount)
	}
	if asset.Meshes[0].VertexOffset != 0 || asset.Meshes[1].VertexOffset != 6 || asset.Meshes[1].IndexOffset != 6 {
		t.Errorf("unexpected mesh offsets: %+v %+v", asset.Meshes[0], asset.Meshes[1])
	}
	if got := asset.VertexBuffer.Size(); got != 9*model.VertexSize {
		t.Errorf("expected vertex buffer of %d bytes, got %d", 9*model.VertexSize, got)
	}

	set := asset.Meshes[0].Primitives[0].DescriptorSet.(*gpu.HeadlessDescriptorSet)
	if len(set.Bindings()) != 1+gpu.PrimitiveTextureSlots {
		t.Errorf("expected factor uniform plus %d textures, got %d bindings", gpu.PrimitiveTextureSlots, len(set.Bindings()))
	}
	normal := set.Bindings()[1+int(model.SlotNormal)].Texture.(*gpu.HeadlessTexture)
	if px := normal.Pixels(); px[0] != 128 || px[2] != 255 {
		t.Errorf("normal slot should default to a flat normal, got %v", px)
	}
}

func TestInstancesShareGeometry(t *testing.T) {
	d := gpu.NewHeadlessDevice()
	asset := modeltest.NewAsset(t, d, []modeltest.Prim{{}})

	canonical, err := model.NewModel(asset, d)
	if err != nil {
		t.Fatalf("NewModel failed: %v", err)
	}
	instance, err := model.NewModel(asset, d, model.WithCopy(true))
	if err != nil {
		t.Fatalf("NewModel failed: %v", err)
	}

	if !instance.IsCopy() || canonical.IsCopy() {
		t.Error("unexpected IsCopy flags")
	}
	if canonical.Asset() != instance.Asset() {
		t.Error("instances must share the asset")
	}
	if canonical.UniformBuffer() == instance.UniformBuffer() || canonical.DescriptorSet() == instance.DescriptorSet() {
		t.Error("instances must own their model uniforms")
	}
	h := asset.LinearNodes[1]
	if canonical.MeshState(h).UniformBuffer == instance.MeshState(h).UniformBuffer {
		t.Error("instances must own their mesh pose uniforms")
	}
	if canonical.Nodes() == instance.Nodes() || canonical.Nodes() == asset.Nodes {
		t.Error("instances must own their pose arena")
	}
	if canonical.ID() == instance.ID() {
		t.Error("instances must have distinct ids")
	}
	if asset.Refs() != 2 {
		t.Errorf("expected 2 asset references, got %d", asset.Refs())
	}
}

func TestDestroyOrder(t *testing.T) {
	d := gpu.NewHeadlessDevice()
	asset := modeltest.NewAsset(t, d, []modeltest.Prim{{}})

	canonical, _ := model.NewModel(asset, d)
	instance, _ := model.NewModel(asset, d, model.WithCopy(true))
	vertices := asset.VertexBuffer.(*gpu.HeadlessBuffer)
	ownUniform := canonical.UniformBuffer().(*gpu.HeadlessBuffer)

	canonical.Destroy()
	canonical.Destroy()

	if !canonical.Destroyed() || canonical.Render() {
		t.Error("destroyed model should report destroyed and not render")
	}
	if !ownUniform.Released() {
		t.Error("canonical model uniform should be released")
	}
	if vertices.Released() || asset.Freed() {
		t.Fatal("asset must outlive the canonical model while instances exist")
	}
	if instance.Destroyed() || !instance.Render() {
		t.Error("instance should be unaffected")
	}

	instance.Destroy()
	if !vertices.Released() || !asset.Freed() {
		t.Error("asset should be freed after the last holder is destroyed")
	}
	if !asset.Meshes[0].Primitives[0].FactorBuffer.(*gpu.HeadlessBuffer).Released() {
		t.Error("primitive uniforms should be freed with the asset")
	}

	if _, err := model.NewModel(asset, d, model.WithCopy(true)); !errors.Is(err, model.ErrDestroyed) {
		t.Errorf("expected ErrDestroyed, got %v", err)
	}

	s := d.Stats()
	if s.BuffersLive != 0 || s.DescriptorSetsLive != 0 {
		t.Errorf("expected every buffer and set released, got %+v", s)
	}
}

func TestBuilderOptions(t *testing.T) {
	d := gpu.NewHeadlessDevice()
	m, err := model.NewModel(modeltest.NewAsset(t, d, []modeltest.Prim{{}}), d,
		model.WithName("hero"),
		model.WithPosition(mgl32.Vec3{1, 2, 3}),
		model.WithRotation(mgl32.Vec3{0, 90, 0}),
		model.WithScale(mgl32.Vec3{2, 2, 2}),
		model.WithRender(false),
		model.WithAnimationIndex(2),
	)
	if err != nil {
		t.Fatalf("NewModel failed: %v", err)
	}
	if m.Name() != "hero" || m.Position() != (mgl32.Vec3{1, 2, 3}) || m.Scale() != (mgl32.Vec3{2, 2, 2}) {
		t.Errorf("options not applied: %s %v %v", m.Name(), m.Position(), m.Scale())
	}
	if m.Render() || m.AnimationIndex() != 2 || m.AnimationTimer() != 0 {
		t.Error("render or animation options not applied")
	}
	if m.Transform() != mgl32.Ident4() {
		t.Error("expected identity base transform")
	}
}

func TestPrimitiveFactors(t *testing.T) {
	mat := model.DefaultMaterial()
	mat.BaseColorFactor = mgl32.Vec4{}
	mat.EmissiveFactor = mgl32.Vec3{0.5, 0.25, 0}
	mat.MetallicFactor = 0.2
	mat.RoughnessFactor = 0.7
	mat.AlphaCutoff = 0.3

	f := model.NewPrimitiveFactors(mat, true)
	b := f.Marshal()
	if len(b) != model.PrimitiveFactorsSize {
		t.Fatalf("expected %d bytes, got %d", model.PrimitiveFactorsSize, len(b))
	}

	want := []float32{
		1, 1, 1, 1,
		0.5, 0.25, 0, 1,
		0.2, 0.7, 0.3, 0,
		1, 0, 0, 0,
	}
	for i, w := range want {
		if got := floatAt(b, i); math32.Abs(got-w) > 1e-6 {
			t.Errorf("factor %d: expected %f, got %f", i, w, got)
		}
	}
}

func TestUniformLayouts(t *testing.T) {
	u := model.GPUModelUniform{Matrix: mgl32.Translate3D(1, 2, 3), PreviousMatrix: mgl32.Ident4()}
	b := u.Marshal()
	if len(b) != 256 || u.Size() != 256 {
		t.Fatalf("expected 256 byte model uniform, got %d", len(b))
	}
	if floatAt(b, 12) != 1 || floatAt(b, 13) != 2 || floatAt(b, 48) != 1 {
		t.Error("model uniform columns out of place")
	}

	var mu model.GPUMeshUniform
	mu.JointCount = 3
	mb := mu.Marshal()
	if len(mb) != model.MeshUniformSize || mu.Size() != model.MeshUniformSize {
		t.Fatalf("expected %d byte mesh uniform, got %d", model.MeshUniformSize, len(mb))
	}
	if floatAt(mb, 16+model.MaxJoints*16) != 3 {
		t.Error("joint count out of place")
	}

	v := model.Vertex{Joints: [4]uint32{7, 0, 0, 0}}
	if v.Size() != model.VertexSize || len(v.Marshal()) != model.VertexSize {
		t.Errorf("expected %d byte vertex", model.VertexSize)
	}
	if binary.LittleEndian.Uint32(v.Marshal()[64:]) != 7 {
		t.Error("joint indices out of place")
	}
}

func TestMarshalBuffers(t *testing.T) {
	indices := []uint32{0, 2, 70000}
	ib := model.MarshalIndices(indices)
	if len(ib) != 12 || binary.LittleEndian.Uint32(ib[8:]) != 70000 {
		t.Errorf("unexpected index bytes %v", ib)
	}
	indices[0] = 9
	if binary.LittleEndian.Uint32(ib) != 0 {
		t.Error("marshalled indices should not alias the source slice")
	}

	vertices := []model.Vertex{
		{Position: [3]float32{1, 2, 3}},
		{Position: [3]float32{4, 5, 6}, Weights: [4]float32{0.25, 0.75, 0, 0}},
	}
	vb := model.MarshalVertices(vertices)
	if len(vb) != 2*model.VertexSize {
		t.Fatalf("expected %d bytes, got %d", 2*model.VertexSize, len(vb))
	}
	if floatAt(vb, 24) != 4 || floatAt(vb, 24+21) != 0.75 {
		t.Error("second vertex out of place")
	}
	if model.MarshalVertices(nil) != nil || model.MarshalIndices(nil) != nil {
		t.Error("empty input should marshal to nil")
	}
}

func TestBoundingSphere(t *testing.T) {
	d := gpu.NewHeadlessDevice()
	m := modeltest.NewModel(t, d, []modeltest.Prim{
		{Center: mgl32.Vec3{4, 0, 0}, Radius: 1},
		{Center: mgl32.Vec3{-1, 0, 0}, Radius: 1},
	})

	// The first sphere reaches furthest (5), the second comes closest (0); the result spans both centers.
	s := m.BoundingSphere()
	if math32.Abs(s.W()-2.5) > 1e-5 || math32.Abs(s.X()-1.5) > 1e-5 {
		t.Errorf("unexpected bounding sphere %v", s)
	}

	got := model.BoundingSphereFromExtent(mgl32.Vec3{-1, -1, -1}, mgl32.Vec3{1, 1, 1})
	if math32.Abs(got.W()-math32.Sqrt(3)) > 1e-5 || got.Vec3() != (mgl32.Vec3{}) {
		t.Errorf("unexpected extent sphere %v", got)
	}
}

func TestAnimationRange(t *testing.T) {
	a := model.Animation{Samplers: []model.AnimationSampler{
		{Inputs: []float32{0.5, 1, 2}},
		{Inputs: []float32{0.25, 1.5}},
	}}
	a.UpdateRange()
	if a.Start != 0.25 || a.End != 2 {
		t.Errorf("expected [0.25, 2], got [%f, %f]", a.Start, a.End)
	}

	empty := model.Animation{}
	empty.UpdateRange()
	if empty.Start != 0 || empty.End != 0 {
		t.Error("empty animation should span [0, 0]")
	}
}
