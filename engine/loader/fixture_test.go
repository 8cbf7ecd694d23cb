package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// gltfFixture assembles small glTF documents in tests. Accessor data is appended to a single buffer that
// is embedded as a data URI or as the GLB binary chunk.
type gltfFixture struct {
	doc gltfDocument
	buf []byte
}

func newFixture() *gltfFixture {
	return &gltfFixture{doc: gltfDocument{Asset: gltfAsset{Version: "2.0", Generator: "fixture"}}}
}

func intp(v int) *int { return &v }

func (f *gltfFixture) view(data []byte) int {
	for len(f.buf)%4 != 0 {
		f.buf = append(f.buf, 0)
	}
	f.doc.BufferViews = append(f.doc.BufferViews, gltfBufferView{
		Buffer:     0,
		ByteOffset: len(f.buf),
		ByteLength: len(data),
	})
	f.buf = append(f.buf, data...)
	return len(f.doc.BufferViews) - 1
}

func (f *gltfFixture) accessor(componentType int, accessorType string, count int, data []byte) int {
	f.doc.Accessors = append(f.doc.Accessors, gltfAccessor{
		BufferView:    intp(f.view(data)),
		ComponentType: componentType,
		Count:         count,
		Type:          accessorType,
	})
	return len(f.doc.Accessors) - 1
}

func (f *gltfFixture) floats(accessorType string, values ...float32) int {
	data := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(v))
	}
	return f.accessor(gltfComponentTypeFloat, accessorType, len(values)/gltfAccessorTypeComponentCount(accessorType), data)
}

// positions adds a VEC3 accessor with the min/max bounds glTF requires for POSITION.
func (f *gltfFixture) positions(values ...float32) int {
	idx := f.floats(gltfAccessorTypeVec3, values...)
	lo := []float32{values[0], values[1], values[2]}
	hi := []float32{values[0], values[1], values[2]}
	for i := 3; i < len(values); i++ {
		lo[i%3] = min(lo[i%3], values[i])
		hi[i%3] = max(hi[i%3], values[i])
	}
	f.doc.Accessors[idx].Min = lo
	f.doc.Accessors[idx].Max = hi
	return idx
}

func (f *gltfFixture) u16(values ...uint16) int {
	data := make([]byte, 2*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint16(data[i*2:], v)
	}
	return f.accessor(gltfComponentTypeUnsignedShort, gltfAccessorTypeScalar, len(values), data)
}

// triangle adds a mesh with one triangle primitive and returns its index.
func (f *gltfFixture) triangle(name string) int {
	pos := f.positions(0, 0, 0, 1, 0, 0, 0, 1, 0)
	f.doc.Meshes = append(f.doc.Meshes, gltfMesh{
		Name: name,
		Primitives: []gltfPrimitive{{
			Attributes: map[string]int{"POSITION": pos},
			Indices:    intp(f.u16(0, 1, 2)),
		}},
	})
	return len(f.doc.Meshes) - 1
}

func (f *gltfFixture) node(n gltfNode) int {
	f.doc.Nodes = append(f.doc.Nodes, n)
	return len(f.doc.Nodes) - 1
}

func (f *gltfFixture) scene(roots ...int) {
	f.doc.Scenes = append(f.doc.Scenes, gltfScene{Name: "scene", Nodes: roots})
	f.doc.Scene = intp(len(f.doc.Scenes) - 1)
}

func (f *gltfFixture) json(t testing.TB) []byte {
	t.Helper()
	doc := f.doc
	if len(f.buf) > 0 {
		doc.Buffers = []gltfBuffer{{
			URI:        "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(f.buf),
			ByteLength: len(f.buf),
		}}
	}
	out, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("failed to marshal fixture: %v", err)
	}
	return out
}

func (f *gltfFixture) glb(t testing.TB) []byte {
	t.Helper()
	doc := f.doc
	doc.Buffers = []gltfBuffer{{ByteLength: len(f.buf)}}
	js, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("failed to marshal fixture: %v", err)
	}
	for len(js)%4 != 0 {
		js = append(js, ' ')
	}
	bin := append([]byte(nil), f.buf...)
	for len(bin)%4 != 0 {
		bin = append(bin, 0)
	}

	var out bytes.Buffer
	total := 12 + 8 + len(js) + 8 + len(bin)
	binary.Write(&out, binary.LittleEndian, gltfGLBHeader{Magic: gltfGLBMagic, Version: gltfGLBVersion, Length: uint32(total)})
	binary.Write(&out, binary.LittleEndian, gltfGLBChunkHeader{ChunkLength: uint32(len(js)), ChunkType: gltfGLBChunkJSON})
	out.Write(js)
	binary.Write(&out, binary.LittleEndian, gltfGLBChunkHeader{ChunkLength: uint32(len(bin)), ChunkType: gltfGLBChunkBIN})
	out.Write(bin)
	return out.Bytes()
}

func (f *gltfFixture) write(t testing.TB, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), f.json(t), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
}

func (f *gltfFixture) parser(t testing.TB) gltfParser {
	t.Helper()
	p := newGLTFParser()
	if err := p.ParseReader(bytes.NewReader(f.json(t)), false, ""); err != nil {
		t.Fatalf("failed to parse fixture: %v", err)
	}
	return p
}
