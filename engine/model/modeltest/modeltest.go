// Package modeltest builds small in-memory assets for tests of packages that consume models.
package modeltest

import (
	"fmt"
	"testing"

	"github.com/Carmen-Shannon/oxy-scene/engine/gpu"
	"github.com/Carmen-Shannon/oxy-scene/engine/model"
	"github.com/Carmen-Shannon/oxy-scene/engine/node"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// Prim describes one triangle primitive of a test mesh. Indices are local to the primitive.
type Prim struct {
	Alpha  model.AlphaMode
	Hidden bool
	// Center and Radius set the mesh-space bounding sphere. A zero radius yields a unit sphere.
	Center mgl32.Vec3
	Radius float32
}

// NewAsset builds and uploads an asset whose root node has one child per entry of meshes. Each child carries
// a mesh made of one triangle per Prim. The asset has no references; pass it to model.NewModel.
//
// Parameters:
//   - t: the test
//   - device: the device to upload to
//   - meshes: the primitives of each child mesh
//
// Returns:
//   - *model.Asset: the uploaded asset
func NewAsset(t testing.TB, device gpu.Device, meshes ...[]Prim) *model.Asset {
	t.Helper()

	cache := gpu.NewTextureCache(device, false, zap.NewNop())
	asset := model.NewAsset(fmt.Sprintf("test/%s", t.Name()), "test", cache)

	root := asset.Nodes.Add(node.New("root", 0))
	asset.LinearNodes = append(asset.LinearNodes, root)

	for mi, prims := range meshes {
		n := node.New(fmt.Sprintf("mesh-node-%d", mi), mi+1)
		n.Parent = root
		n.Mesh = mi
		h := asset.Nodes.Add(n)
		asset.LinearNodes = append(asset.LinearNodes, h)

		mesh := &model.Mesh{Name: fmt.Sprintf("mesh-%d", mi)}
		for _, p := range prims {
			radius := p.Radius
			if radius == 0 {
				radius = 1
			}
			prim := &model.Primitive{
				VertexOffset:   uint32(len(mesh.Vertices)),
				VerticesSize:   3,
				IndexOffset:    uint32(len(mesh.Indices)),
				IndicesSize:    3,
				Material:       model.DefaultMaterial(),
				BoundingSphere: p.Center.Vec4(radius),
				Render:         !p.Hidden,
			}
			prim.Material.AlphaMode = p.Alpha
			mesh.Vertices = append(mesh.Vertices,
				model.Vertex{Position: [3]float32{0, 0, 0}, Color: [4]float32{1, 1, 1, 1}},
				model.Vertex{Position: [3]float32{1, 0, 0}, Color: [4]float32{1, 1, 1, 1}},
				model.Vertex{Position: [3]float32{0, 1, 0}, Color: [4]float32{1, 1, 1, 1}},
			)
			mesh.Indices = append(mesh.Indices, 0, 1, 2)
			mesh.Primitives = append(mesh.Primitives, prim)
		}
		asset.Meshes = append(asset.Meshes, mesh)
	}

	if err := asset.Upload(device); err != nil {
		t.Fatalf("failed to upload test asset: %v", err)
	}
	return asset
}

// NewModel builds an asset with NewAsset and returns its canonical model.
func NewModel(t testing.TB, device gpu.Device, meshes ...[]Prim) model.Model {
	t.Helper()
	m, err := model.NewModel(NewAsset(t, device, meshes...), device)
	if err != nil {
		t.Fatalf("failed to create test model: %v", err)
	}
	return m
}
