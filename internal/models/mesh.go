package models

import (
	"image/color"

	"gonum.org/v1/gonum/spatial/r3"
)

// RefinedMesh is a smoothed, triangulated, decimated region surface with
// normals, ready to be rendered or exported.
type RefinedMesh struct {
	// Index is the zero-based position of the region in partition order
	Index int

	// RegionID is the connectivity id the patch was selected with
	RegionID int

	// Vertices are the vertex positions
	Vertices []r3.Vec

	// Triangles index into Vertices
	Triangles [][3]int

	// VertexNormals has one unit normal per vertex
	VertexNormals []r3.Vec

	// FaceNormals has one unit normal per triangle
	FaceNormals []r3.Vec

	// SourceTriangles is the triangle count before decimation
	SourceTriangles int

	// Color is the display color assigned by the pipeline
	Color color.NRGBA
}

// NumTriangles returns the number of triangles.
func (m *RefinedMesh) NumTriangles() int {
	return len(m.Triangles)
}

// Empty reports whether the mesh has nothing to draw or export.
func (m *RefinedMesh) Empty() bool {
	return m == nil || len(m.Triangles) == 0
}

// Bounds returns the axis aligned bounding box of the vertices.
func (m *RefinedMesh) Bounds() r3.Box {
	if len(m.Vertices) == 0 {
		return r3.Box{}
	}
	box := r3.Box{Min: m.Vertices[0], Max: m.Vertices[0]}
	for _, v := range m.Vertices[1:] {
		box.Min = r3.Vec{X: min(box.Min.X, v.X), Y: min(box.Min.Y, v.Y), Z: min(box.Min.Z, v.Z)}
		box.Max = r3.Vec{X: max(box.Max.X, v.X), Y: max(box.Max.Y, v.Y), Z: max(box.Max.Z, v.Z)}
	}
	return box
}
