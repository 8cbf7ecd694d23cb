package loader

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Carmen-Shannon/oxy-scene/engine/config"
	"github.com/Carmen-Shannon/oxy-scene/engine/gpu"
	"github.com/Carmen-Shannon/oxy-scene/engine/model"
	"github.com/Carmen-Shannon/oxy-scene/engine/node"
	"github.com/chewxy/math32"
	"go.uber.org/zap"
)

func newTestLoader(d gpu.Device, options ...LoaderBuilderOption) Loader {
	opts := append([]LoaderBuilderOption{WithDevice(d), WithLogger(zap.NewNop())}, options...)
	return NewLoader(BackendTypeGLTF, opts...)
}

// singleTriangle is a scene with one node drawing one triangle.
func singleTriangle() *gltfFixture {
	f := newFixture()
	mesh := f.triangle("tri")
	f.scene(f.node(gltfNode{Name: "root", Mesh: intp(mesh)}))
	return f
}

func TestLoadBuildsPreOrderGraph(t *testing.T) {
	f := newFixture()
	mesh := f.triangle("shared")
	f.node(gltfNode{Name: "root", Children: []int{3, 1}, Translation: &[3]float32{1, 0, 0}})
	f.node(gltfNode{Name: "a", Children: []int{2}, Mesh: intp(mesh)})
	f.node(gltfNode{Name: "a-child"})
	f.node(gltfNode{Name: "b", Mesh: intp(mesh)})
	f.scene(0)

	dir := t.TempDir()
	f.write(t, dir, "graph.gltf")

	d := gpu.NewHeadlessDevice()
	l := newTestLoader(d)
	defer l.Close()

	m, err := l.Load(context.Background(), dir, "graph.gltf", true)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	asset := m.Asset()

	var order []int
	for _, h := range asset.LinearNodes {
		order = append(order, asset.Nodes.Node(h).Index)
	}
	want := []int{0, 3, 1, 2}
	for i := range want {
		if i >= len(order) || order[i] != want[i] {
			t.Fatalf("expected pre-order %v, got %v", want, order)
		}
	}

	root := asset.Nodes.Node(asset.LinearNodes[0])
	if root.Mode != node.TransformTRS || root.Mesh != -1 {
		t.Errorf("unexpected root node %+v", root)
	}
	child := asset.Nodes.Node(asset.LinearNodes[3])
	if child.Parent != asset.LinearNodes[2] {
		t.Errorf("a-child should hang off a, got parent %d", child.Parent)
	}

	if len(asset.Meshes) != 1 {
		t.Fatalf("shared mesh should be extracted once, got %d meshes", len(asset.Meshes))
	}
	if asset.VertexCount != 3 || asset.IndexCount != 3 {
		t.Errorf("expected 3 vertices and indices, got %d/%d", asset.VertexCount, asset.IndexCount)
	}
	if m.Name() != "scene" {
		t.Errorf("expected the scene name, got %q", m.Name())
	}

	v := asset.Meshes[0].Vertices[1]
	if v.Color != [4]float32{1, 1, 1, 1} || v.Normal != [3]float32{} {
		t.Errorf("missing attributes should default, got color %v normal %v", v.Color, v.Normal)
	}

	s := asset.Meshes[0].Primitives[0].BoundingSphere
	if math32.Abs(s.X()-0.5) > 1e-5 || math32.Abs(s.Y()-0.5) > 1e-5 || math32.Abs(s.W()-math32.Sqrt(0.5)) > 1e-5 {
		t.Errorf("unexpected bounding sphere %v", s)
	}
	if !asset.Meshes[0].Primitives[0].Render {
		t.Error("primitives render by default")
	}
}

func TestLoadAliasesInstances(t *testing.T) {
	dir := t.TempDir()
	singleTriangle().write(t, dir, "tri.gltf")

	d := gpu.NewHeadlessDevice()
	l := newTestLoader(d)
	defer l.Close()

	canonical, err := l.Load(context.Background(), dir, "tri.gltf", true)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	before := d.Stats()

	instance, err := l.Load(context.Background(), dir, "tri.gltf", false)
	if err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	after := d.Stats()

	if canonical.IsCopy() || !instance.IsCopy() {
		t.Error("second load should be an instance")
	}
	if canonical.Asset() != instance.Asset() || canonical.Asset().VertexBuffer != instance.Asset().VertexBuffer {
		t.Error("instances must share geometry")
	}
	if canonical.UniformBuffer() == instance.UniformBuffer() {
		t.Error("instances must own their model uniform")
	}
	if instance.Render() || instance.AnimationTimer() != 0 {
		t.Error("instance should honor show and start at time zero")
	}
	// An instance allocates its model uniform and one mesh pose uniform.
	if got := after.BuffersCreated - before.BuffersCreated; got != 2 {
		t.Errorf("expected an instance to create 2 buffers, got %d", got)
	}

	key := filepath.ToSlash(filepath.Join(dir, "tri.gltf"))
	if l.Get(key) != canonical {
		t.Error("Get should return the canonical model")
	}
	if keys := l.Assets(); len(keys) != 1 || keys[0] != key {
		t.Errorf("unexpected asset keys %v", keys)
	}
}

func TestConcurrentLoadsBuildOnce(t *testing.T) {
	dir := t.TempDir()
	singleTriangle().write(t, dir, "tri.gltf")

	d := gpu.NewHeadlessDevice()
	l := newTestLoader(d)
	defer l.Close()

	const n = 8
	models := make([]model.Model, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			models[i], errs[i] = l.Load(context.Background(), dir, "tri.gltf", true)
		}()
	}
	wg.Wait()

	canonicals := 0
	for i, m := range models {
		if errs[i] != nil {
			t.Fatalf("load %d failed: %v", i, errs[i])
		}
		if !m.IsCopy() {
			canonicals++
		}
		if m.Asset() != models[0].Asset() {
			t.Fatal("every load must share one asset")
		}
	}
	if canonicals != 1 {
		t.Errorf("expected exactly one canonical model, got %d", canonicals)
	}
	if refs := models[0].Asset().Refs(); refs != n+1 {
		t.Errorf("expected %d asset references, got %d", n+1, refs)
	}
}

func TestGetSkipsDestroyedCanonical(t *testing.T) {
	dir := t.TempDir()
	singleTriangle().write(t, dir, "tri.gltf")
	key := filepath.ToSlash(filepath.Join(dir, "tri.gltf"))

	l := newTestLoader(gpu.NewHeadlessDevice())
	defer l.Close()

	canonical, err := l.Load(context.Background(), dir, "tri.gltf", true)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if l.Get(key) != canonical {
		t.Fatal("Get should return the canonical model")
	}

	canonical.Destroy()
	if l.Get(key) != nil {
		t.Error("Get should not return a destroyed model")
	}
	instance, err := l.Load(context.Background(), dir, "tri.gltf", true)
	if err != nil {
		t.Fatalf("Load after destroy failed: %v", err)
	}
	if !instance.IsCopy() || instance.Destroyed() {
		t.Error("the registered asset should still hand out instances")
	}
	if l.Get("missing") != nil {
		t.Error("unknown keys should return nil")
	}
}

func TestUnloadKeepsModelsAlive(t *testing.T) {
	dir := t.TempDir()
	singleTriangle().write(t, dir, "tri.gltf")

	d := gpu.NewHeadlessDevice()
	l := newTestLoader(d)
	defer l.Close()

	canonical, _ := l.Load(context.Background(), dir, "tri.gltf", true)
	instance, _ := l.Load(context.Background(), dir, "tri.gltf", true)
	asset := canonical.Asset()

	if !l.Unload(filepath.ToSlash(filepath.Join(dir, "tri.gltf"))) {
		t.Fatal("Unload should report the loaded key")
	}
	if len(l.Assets()) != 0 || asset.Freed() || !instance.Render() {
		t.Fatal("unloading must not free an asset still in use")
	}

	canonical.Destroy()
	instance.Destroy()
	if !asset.Freed() {
		t.Error("asset should be freed with its last model")
	}

	again, err := l.Load(context.Background(), dir, "tri.gltf", true)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if again.IsCopy() || again.Asset() == asset {
		t.Error("reload after unload should build a new canonical asset")
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name  string
		build func() *gltfFixture
		want  error
	}{
		{
			name: "matrix and TRS",
			build: func() *gltfFixture {
				f := newFixture()
				mesh := f.triangle("tri")
				m := [16]float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}
				f.scene(f.node(gltfNode{Mesh: intp(mesh), Matrix: &m, Translation: &[3]float32{1, 2, 3}}))
				return f
			},
			want: ErrInvalidNodeTransform,
		},
		{
			name: "float indices",
			build: func() *gltfFixture {
				f := newFixture()
				pos := f.positions(0, 0, 0, 1, 0, 0, 0, 1, 0)
				idx := f.floats(gltfAccessorTypeScalar, 0, 1, 2)
				f.doc.Meshes = []gltfMesh{{Primitives: []gltfPrimitive{{
					Attributes: map[string]int{"POSITION": pos},
					Indices:    intp(idx),
				}}}}
				f.scene(f.node(gltfNode{Mesh: intp(0)}))
				return f
			},
			want: ErrUnsupportedComponentType,
		},
		{
			name: "integer animation input",
			build: func() *gltfFixture {
				f := singleTriangle()
				in := f.u16(0, 1)
				out := f.floats(gltfAccessorTypeVec3, 0, 0, 0, 1, 1, 1)
				ch := gltfAnimChannel{Sampler: 0}
				ch.Target.Node = intp(0)
				ch.Target.Path = gltfAnimPathTranslation
				f.doc.Animations = []gltfAnimation{{Samplers: []gltfAnimSampler{{Input: in, Output: out}}, Channels: []gltfAnimChannel{ch}}}
				return f
			},
			want: ErrUnsupportedComponentType,
		},
		{
			name: "scalar animation output",
			build: func() *gltfFixture {
				f := singleTriangle()
				in := f.floats(gltfAccessorTypeScalar, 0, 1)
				out := f.floats(gltfAccessorTypeScalar, 0, 1)
				ch := gltfAnimChannel{Sampler: 0}
				ch.Target.Node = intp(0)
				ch.Target.Path = gltfAnimPathScale
				f.doc.Animations = []gltfAnimation{{Samplers: []gltfAnimSampler{{Input: in, Output: out}}, Channels: []gltfAnimChannel{ch}}}
				return f
			},
			want: ErrUnsupportedAccessorType,
		},
		{
			name: "node cycle",
			build: func() *gltfFixture {
				f := newFixture()
				f.node(gltfNode{Children: []int{1}})
				f.node(gltfNode{Children: []int{0}})
				f.scene(0)
				return f
			},
			want: ErrMalformedDocument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			tt.build().write(t, dir, "bad.gltf")

			d := gpu.NewHeadlessDevice()
			l := newTestLoader(d)
			defer l.Close()

			m, err := l.Load(context.Background(), dir, "bad.gltf", true)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if m != nil {
				t.Error("a failed load must not return a model")
			}
			if len(l.Assets()) != 0 {
				t.Error("a failed load must not register an asset")
			}
			if s := d.Stats(); s.BuffersLive != 0 || s.DescriptorSetsLive != 0 {
				t.Errorf("a failed load must release its GPU objects, got %+v", s)
			}
		})
	}
}

func TestUnsupportedFormat(t *testing.T) {
	l := newTestLoader(gpu.NewHeadlessDevice())
	defer l.Close()

	if _, err := l.Load(context.Background(), t.TempDir(), "model.obj", true); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestMalformedDocument(t *testing.T) {
	l := newTestLoader(gpu.NewHeadlessDevice())
	defer l.Close()

	_, err := l.LoadReader(context.Background(), "broken.gltf", bytes.NewReader([]byte("{not json")), false, "", true)
	if !errors.Is(err, ErrMalformedDocument) {
		t.Errorf("expected ErrMalformedDocument, got %v", err)
	}
}

func TestLoadGLB(t *testing.T) {
	l := newTestLoader(gpu.NewHeadlessDevice())
	defer l.Close()

	m, err := l.LoadReader(context.Background(), "tri.glb", bytes.NewReader(singleTriangle().glb(t)), true, "", true)
	if err != nil {
		t.Fatalf("LoadReader failed: %v", err)
	}
	if m.Asset().VertexCount != 3 {
		t.Errorf("expected 3 vertices, got %d", m.Asset().VertexCount)
	}
}

func TestSequentialIndicesWhenAbsent(t *testing.T) {
	f := newFixture()
	pos := f.positions(0, 0, 0, 1, 0, 0, 0, 1, 0)
	f.doc.Meshes = []gltfMesh{{Primitives: []gltfPrimitive{{Attributes: map[string]int{"POSITION": pos}}}}}
	f.scene(f.node(gltfNode{Mesh: intp(0)}))

	l := newTestLoader(gpu.NewHeadlessDevice())
	defer l.Close()

	m, err := l.LoadReader(context.Background(), "noindex.gltf", bytes.NewReader(f.json(t)), false, "", true)
	if err != nil {
		t.Fatalf("LoadReader failed: %v", err)
	}
	indices := m.Asset().Meshes[0].Indices
	if len(indices) != 3 || indices[0] != 0 || indices[1] != 1 || indices[2] != 2 {
		t.Errorf("expected sequential indices, got %v", indices)
	}
	if mat := m.Asset().Meshes[0].Primitives[0].Material; mat.AlphaMode != model.AlphaOpaque || mat.RoughnessFactor != 1 {
		t.Errorf("primitive without material should use the default, got %+v", mat)
	}
}

// packIndices encodes values with the byte width of componentType.
func packIndices(componentType int, values []uint32) []byte {
	size := gltfComponentTypeSize(componentType)
	out := make([]byte, size*len(values))
	for i, v := range values {
		switch size {
		case 1:
			out[i] = byte(v)
		case 2:
			binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
		default:
			binary.LittleEndian.PutUint32(out[i*4:], v)
		}
	}
	return out
}

func TestIndexWidening(t *testing.T) {
	tests := []struct {
		name          string
		componentType int
		values        []uint32
	}{
		{"unsigned byte", gltfComponentTypeUnsignedByte, []uint32{2, 0, 1, 255}},
		{"byte", gltfComponentTypeByte, []uint32{2, 0, 1, 127}},
		{"unsigned short", gltfComponentTypeUnsignedShort, []uint32{2, 0, 1, 65535}},
		{"short", gltfComponentTypeShort, []uint32{2, 0, 1, 32767}},
		{"unsigned int", gltfComponentTypeUnsignedInt, []uint32{2, 0, 1, 70000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			pos := f.positions(0, 0, 0, 1, 0, 0, 0, 1, 0)
			wide := f.accessor(tt.componentType, gltfAccessorTypeScalar, len(tt.values), packIndices(tt.componentType, tt.values))
			tri := f.accessor(tt.componentType, gltfAccessorTypeScalar, 3, packIndices(tt.componentType, tt.values[:3]))
			f.doc.Meshes = []gltfMesh{{Primitives: []gltfPrimitive{{
				Attributes: map[string]int{"POSITION": pos},
				Indices:    intp(tri),
			}}}}
			f.scene(f.node(gltfNode{Mesh: intp(0)}))

			got, err := f.parser(t).ReadIndicesAccessor(wide)
			if err != nil {
				t.Fatalf("ReadIndicesAccessor failed: %v", err)
			}
			if len(got) != len(tt.values) {
				t.Fatalf("expected %d indices, got %d", len(tt.values), len(got))
			}
			for i, want := range tt.values {
				if got[i] != want {
					t.Errorf("index %d: expected %d, got %d", i, want, got[i])
				}
			}

			l := newTestLoader(gpu.NewHeadlessDevice())
			defer l.Close()
			m, err := l.LoadReader(context.Background(), tt.name+".gltf", bytes.NewReader(f.json(t)), false, "", true)
			if err != nil {
				t.Fatalf("LoadReader failed: %v", err)
			}
			if indices := m.Asset().Meshes[0].Indices; len(indices) != 3 || indices[0] != 2 || indices[1] != 0 || indices[2] != 1 {
				t.Errorf("expected widened mesh indices [2 0 1], got %v", indices)
			}
		})
	}
}

func TestOversizedAccessorCountRejected(t *testing.T) {
	f := newFixture()
	idx := f.u16(0, 1, 2)
	f.doc.Accessors[idx].Count = 1 << 30

	if _, err := f.parser(t).ReadIndicesAccessor(idx); !errors.Is(err, ErrMalformedDocument) {
		t.Errorf("expected ErrMalformedDocument, got %v", err)
	}
}

func TestAnimationChannels(t *testing.T) {
	f := newFixture()
	mesh := f.triangle("tri")
	f.node(gltfNode{Name: "root", Children: []int{1}})
	f.node(gltfNode{Name: "spinner", Mesh: intp(mesh)})
	f.node(gltfNode{Name: "orphan"})
	f.scene(0)

	in := f.floats(gltfAccessorTypeScalar, 0, 1.5)
	rot := f.floats(gltfAccessorTypeVec4, 0, 0, 0, 1, 0, 0.7071, 0, 0.7071)
	weights := f.floats(gltfAccessorTypeScalar, 0, 1)

	spin := gltfAnimChannel{Sampler: 0}
	spin.Target.Node = intp(1)
	spin.Target.Path = gltfAnimPathRotation
	morph := gltfAnimChannel{Sampler: 1}
	morph.Target.Node = intp(1)
	morph.Target.Path = gltfAnimPathWeights
	lost := gltfAnimChannel{Sampler: 0}
	lost.Target.Node = intp(2)
	lost.Target.Path = gltfAnimPathRotation

	f.doc.Animations = []gltfAnimation{{
		Samplers: []gltfAnimSampler{
			{Input: in, Output: rot},
			{Input: in, Output: weights, Interpolation: gltfAnimInterpolationStep},
		},
		Channels: []gltfAnimChannel{spin, morph, lost},
	}}

	l := newTestLoader(gpu.NewHeadlessDevice())
	defer l.Close()

	m, err := l.LoadReader(context.Background(), "anim.gltf", bytes.NewReader(f.json(t)), false, "", true)
	if err != nil {
		t.Fatalf("LoadReader failed: %v", err)
	}
	anims := m.Asset().Animations
	if len(anims) != 1 {
		t.Fatalf("expected 1 animation, got %d", len(anims))
	}
	a := anims[0]
	if a.Name != "0" || a.Start != 0 || a.End != 1.5 {
		t.Errorf("unexpected animation header %q [%f, %f]", a.Name, a.Start, a.End)
	}
	if len(a.Channels) != 1 || a.Channels[0].Path != model.PathRotation {
		t.Fatalf("expected only the rotation channel, got %+v", a.Channels)
	}
	if got := m.Asset().Nodes.Node(a.Channels[0].Node).Name; got != "spinner" {
		t.Errorf("channel should target spinner, got %q", got)
	}
	if out := a.Samplers[0].Outputs; len(out) != 2 || out[1].W() != 0.7071 {
		t.Errorf("unexpected rotation outputs %v", out)
	}
}

func TestSkinResolvesJoints(t *testing.T) {
	f := newFixture()
	pos := f.positions(0, 0, 0, 1, 0, 0, 0, 1, 0)
	joints := f.accessor(gltfComponentTypeUnsignedByte, gltfAccessorTypeVec4, 3, []byte{
		0, 0, 0, 0,
		0, 0, 0, 0,
		0, 0, 0, 0,
	})
	weights := f.floats(gltfAccessorTypeVec4, 1, 0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0)
	f.doc.Meshes = []gltfMesh{{Primitives: []gltfPrimitive{{
		Attributes: map[string]int{"POSITION": pos, "JOINTS_0": joints, "WEIGHTS_0": weights},
	}}}}
	ibm := f.floats(gltfAccessorTypeMat4,
		1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, -2, 0, 1,
		1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1,
	)

	f.node(gltfNode{Name: "body", Mesh: intp(0), Skin: intp(0), Children: []int{1}})
	f.node(gltfNode{Name: "bone", Translation: &[3]float32{0, 2, 0}})
	f.node(gltfNode{Name: "detached"})
	f.scene(0)
	f.doc.Skins = []gltfSkin{{Joints: []int{1, 2}, InverseBindMatrices: intp(ibm), Skeleton: intp(1)}}

	l := newTestLoader(gpu.NewHeadlessDevice())
	defer l.Close()

	m, err := l.LoadReader(context.Background(), "skin.gltf", bytes.NewReader(f.json(t)), false, "", true)
	if err != nil {
		t.Fatalf("LoadReader failed: %v", err)
	}
	asset := m.Asset()
	if len(asset.Skins) != 1 {
		t.Fatalf("expected 1 skin, got %d", len(asset.Skins))
	}
	skin := asset.Skins[0]
	if len(skin.Joints) != 1 || asset.Nodes.Node(skin.Joints[0]).Name != "bone" {
		t.Fatalf("expected only the resolvable joint, got %v", skin.Joints)
	}
	if skin.SkeletonRoot != skin.Joints[0] {
		t.Error("skeleton root should resolve to the bone")
	}
	if skin.InverseBindMatrices[0].At(1, 3) != -2 {
		t.Errorf("unexpected inverse bind matrix %v", skin.InverseBindMatrices[0])
	}
	if body := asset.Nodes.Node(asset.LinearNodes[0]); body.Skin != 0 {
		t.Errorf("body should reference skin 0, got %d", body.Skin)
	}
	if !asset.Meshes[0].Primitives[0].HasBones {
		t.Error("primitive with joints and weights should have bones")
	}
}

func TestEmbeddedTextureSharedThroughCache(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var encoded bytes.Buffer
	if err := png.Encode(&encoded, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}

	f := singleTriangle()
	f.doc.Images = []gltfImage{{BufferView: intp(f.view(encoded.Bytes())), MimeType: "image/png"}}
	f.doc.Textures = []gltfTexture{{Source: intp(0)}}
	f.doc.Materials = []gltfMaterial{{
		Name:                 "painted",
		PbrMetallicRoughness: &gltfPbrMetallicRoughness{BaseColorTexture: &gltfTextureInfo{Index: 0}},
		EmissiveTexture:      &gltfTextureInfo{Index: 0},
		AlphaMode:            gltfAlphaModeBlend,
	}}
	f.doc.Meshes[0].Primitives[0].Material = intp(0)
	data := f.json(t)

	d := gpu.NewHeadlessDevice()
	cache := gpu.NewTextureCache(d, false, zap.NewNop())
	defer cache.Close()
	l := newTestLoader(d, WithTextureCache(cache), WithConfig(config.Default().Loader))
	defer l.Close()

	canonical, err := l.LoadReader(context.Background(), "painted.gltf", bytes.NewReader(data), false, "", true)
	if err != nil {
		t.Fatalf("LoadReader failed: %v", err)
	}
	instance, err := l.LoadReader(context.Background(), "painted.gltf", bytes.NewReader(data), false, "", true)
	if err != nil {
		t.Fatalf("second LoadReader failed: %v", err)
	}

	prim := canonical.Asset().Meshes[0].Primitives[0]
	if prim.Material.Textures[model.SlotBaseColor] != "painted.gltf#image0" {
		t.Errorf("unexpected texture key %q", prim.Material.Textures[model.SlotBaseColor])
	}
	if prim.Material.AlphaMode != model.AlphaBlend {
		t.Errorf("expected blend, got %s", prim.Material.AlphaMode)
	}
	tex, ok := prim.Textures[model.SlotBaseColor].(*gpu.HeadlessTexture)
	if !ok || tex.Width() != 2 || tex.Pixels()[0] != 255 {
		t.Fatalf("base color texture not decoded: %v", prim.Textures[model.SlotBaseColor])
	}
	if prim.Textures[model.SlotEmissive] != prim.Textures[model.SlotBaseColor] {
		t.Error("slots using one image should share its texture")
	}
	if cache.Len() != 1 {
		t.Errorf("expected 1 cached texture, got %d", cache.Len())
	}

	canonical.Destroy()
	instance.Destroy()
	l.Unload("painted.gltf")
	if cache.Len() != 0 || !tex.Released() {
		t.Error("texture should be released with the asset")
	}
}

func TestLoadMany(t *testing.T) {
	dir := t.TempDir()
	singleTriangle().write(t, dir, "a.gltf")
	singleTriangle().write(t, dir, "b.gltf")

	cfg := config.Default().Loader
	cfg.MaxParallelLoads = 2
	l := newTestLoader(gpu.NewHeadlessDevice(), WithConfig(cfg))
	defer l.Close()

	models, err := l.LoadMany(context.Background(), []Request{
		{Folder: dir, Filename: "a.gltf", Show: true},
		{Folder: dir, Filename: "a.gltf", Show: true},
		{Folder: dir, Filename: "b.gltf", Show: true},
	})
	if err != nil {
		t.Fatalf("LoadMany failed: %v", err)
	}
	canonicals := 0
	for _, m := range models {
		if !m.IsCopy() {
			canonicals++
		}
	}
	if canonicals != 2 || len(l.Assets()) != 2 {
		t.Errorf("expected one canonical per key, got %d canonicals and %v", canonicals, l.Assets())
	}

	_, err = l.LoadMany(context.Background(), []Request{
		{Folder: dir, Filename: "b.gltf", Show: true},
		{Folder: dir, Filename: "c.fbx", Show: true},
	})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestLoadWithoutDevice(t *testing.T) {
	l := NewLoader(BackendTypeGLTF, WithLogger(zap.NewNop()))
	if _, err := l.Load(context.Background(), "", "tri.gltf", true); !errors.Is(err, ErrNoDevice) {
		t.Errorf("expected ErrNoDevice, got %v", err)
	}
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	l := newTestLoader(gpu.NewHeadlessDevice())
	defer l.Close()
	if _, err := l.Load(ctx, t.TempDir(), "tri.gltf", true); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
