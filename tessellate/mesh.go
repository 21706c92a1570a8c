// Package tessellate turns decoded feature paths into triangle meshes.
package tessellate

import (
	"seehuhn.de/go/geom/vec"
)

// Vertex is a mesh vertex in normalized tile space ([0, 1] across the extent).
//
// Normal is the extrusion direction used to widen lines and polygon outlines at
// draw time; it is expressed in units of half the stroke width. Scale is 2^-zoom
// for stroke vertices so that widths stay constant in screen space across levels,
// and 1 for fill vertices.
type Vertex struct {
	Position vec.Vec2
	Normal   vec.Vec2
	Scale    float32
}

// Mesh is a triangle list.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
}

// IndexCount returns the number of indices in the mesh.
func (m *Mesh) IndexCount() int {
	return len(m.Indices)
}

// Triangle returns the positions of the triangle starting at index i.
func (m *Mesh) Triangle(i uint32) [3]vec.Vec2 {
	return [3]vec.Vec2{
		m.Vertices[m.Indices[i]].Position,
		m.Vertices[m.Indices[i+1]].Position,
		m.Vertices[m.Indices[i+2]].Position,
	}
}

// Range is a half-open range of mesh indices.
type Range struct {
	Start uint32
	End   uint32
}

func (r Range) Len() uint32 {
	return r.End - r.Start
}

func (r Range) Empty() bool {
	return r.End <= r.Start
}
