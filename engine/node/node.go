// Package node holds the transform hierarchy of a model as an arena of nodes addressed by stable handles.
package node

import (
	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/go-gl/mathgl/mgl32"
)

// Handle addresses a node inside an Arena. Handles stay valid for the lifetime of the arena.
type Handle int

// NoHandle marks an absent parent, skeleton root or joint.
const NoHandle Handle = -1

// TransformMode selects which of a node's transform fields is authoritative.
type TransformMode uint8

const (
	TransformIdentity TransformMode = iota
	TransformMatrix
	TransformTRS
)

// Node is a single entry of the transform hierarchy.
type Node struct {
	Name string
	// Index is the node's position in the source document, or -1 for synthetic nodes.
	Index    int
	Parent   Handle
	Children []Handle
	// Mesh and Skin index into the owning asset, -1 when absent.
	Mesh int
	Skin int

	Mode        TransformMode
	Matrix      mgl32.Mat4
	Translation mgl32.Vec3
	Rotation    mgl32.Quat
	Scale       mgl32.Vec3
}

// New returns a parentless identity node with no mesh or skin.
//
// Parameters:
//   - name: the node name
//   - index: the source document index, or -1
//
// Returns:
//   - Node: the initialized node
func New(name string, index int) Node {
	return Node{
		Name:     name,
		Index:    index,
		Parent:   NoHandle,
		Mesh:     -1,
		Skin:     -1,
		Mode:     TransformIdentity,
		Matrix:   mgl32.Ident4(),
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

// Arena stores nodes contiguously. The insertion order is the linear traversal order of the hierarchy.
type Arena struct {
	nodes []Node
}

// NewArena creates an empty arena with room for capacity nodes.
func NewArena(capacity int) *Arena {
	return &Arena{nodes: make([]Node, 0, capacity)}
}

// Add appends n and links it into its parent's child list when n.Parent is set.
//
// Parameters:
//   - n: the node to append
//
// Returns:
//   - Handle: the handle of the new node
func (a *Arena) Add(n Node) Handle {
	h := Handle(len(a.nodes))
	a.nodes = append(a.nodes, n)
	if n.Parent != NoHandle && a.Valid(n.Parent) {
		p := &a.nodes[n.Parent]
		p.Children = append(p.Children, h)
	}
	return h
}

// Node returns a pointer to the node at h, or nil if h is out of range.
// The pointer is invalidated by the next Add.
func (a *Arena) Node(h Handle) *Node {
	if !a.Valid(h) {
		return nil
	}
	return &a.nodes[h]
}

// Valid reports whether h addresses a node in this arena.
func (a *Arena) Valid(h Handle) bool {
	return h >= 0 && int(h) < len(a.nodes)
}

// Len returns the number of nodes.
func (a *Arena) Len() int {
	return len(a.nodes)
}

// Handles returns every handle in linear order.
func (a *Arena) Handles() []Handle {
	out := make([]Handle, len(a.nodes))
	for i := range out {
		out[i] = Handle(i)
	}
	return out
}

// Roots returns the handles of parentless nodes in linear order.
func (a *Arena) Roots() []Handle {
	var out []Handle
	for i := range a.nodes {
		if a.nodes[i].Parent == NoHandle {
			out = append(out, Handle(i))
		}
	}
	return out
}

// LocalMatrix returns the node's transform relative to its parent.
//
// Parameters:
//   - h: the node handle
//
// Returns:
//   - mgl32.Mat4: identity, the stored matrix, or T * R * S depending on the node's mode
func (a *Arena) LocalMatrix(h Handle) mgl32.Mat4 {
	n := a.Node(h)
	if n == nil {
		return mgl32.Ident4()
	}
	switch n.Mode {
	case TransformMatrix:
		return n.Matrix
	case TransformTRS:
		return common.ComposeTRS(n.Translation, n.Rotation, n.Scale)
	default:
		return mgl32.Ident4()
	}
}

// WorldMatrix returns the product of the local matrices from the root down to h.
//
// Parameters:
//   - h: the node handle
//
// Returns:
//   - mgl32.Mat4: the model-space transform of the node
func (a *Arena) WorldMatrix(h Handle) mgl32.Mat4 {
	m := a.LocalMatrix(h)
	for p := a.parentOf(h); p != NoHandle; p = a.parentOf(p) {
		m = a.LocalMatrix(p).Mul4(m)
	}
	return m
}

// FindByIndex returns the handle of the node loaded from the given document index, or NoHandle.
// The scan is linear and meant for load-time resolution only.
func (a *Arena) FindByIndex(index int) Handle {
	for i := range a.nodes {
		if a.nodes[i].Index == index {
			return Handle(i)
		}
	}
	return NoHandle
}

// Clone returns a deep copy of the arena. Handles are identical between the copy and the original.
func (a *Arena) Clone() *Arena {
	out := &Arena{nodes: make([]Node, len(a.nodes))}
	copy(out.nodes, a.nodes)
	for i := range out.nodes {
		if kids := a.nodes[i].Children; kids != nil {
			out.nodes[i].Children = append([]Handle(nil), kids...)
		}
	}
	return out
}

func (a *Arena) parentOf(h Handle) Handle {
	if !a.Valid(h) {
		return NoHandle
	}
	return a.nodes[h].Parent
}
