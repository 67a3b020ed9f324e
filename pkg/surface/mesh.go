// Package surface extracts boundary surfaces from scalar volumes and holds
// them as polygonal meshes with named per-face and per-vertex fields.
package surface

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
)

// Field names written by the extractors and the partitioner.
const (
	LabelField    = "Label"
	RegionIDField = "RegionId"
)

// Mesh is a polygonal surface. Faces are lists of vertex indices with outward
// winding. CellData fields have one value per face and PointData fields one
// value per vertex.
type Mesh struct {
	Vertices  []r3.Vec
	Faces     [][]int
	CellData  map[string][]float64
	PointData map[string][]float64
}

// NewMesh returns an empty mesh.
func NewMesh() *Mesh {
	return &Mesh{
		CellData:  map[string][]float64{},
		PointData: map[string][]float64{},
	}
}

// NumVertices returns the number of vertices.
func (m *Mesh) NumVertices() int {
	return len(m.Vertices)
}

// NumFaces returns the number of faces.
func (m *Mesh) NumFaces() int {
	return len(m.Faces)
}

// IsEmpty reports whether the mesh has no faces.
func (m *Mesh) IsEmpty() bool {
	return m == nil || len(m.Faces) == 0
}

// Copy returns a deep copy of the mesh.
func (m *Mesh) Copy() *Mesh {
	out := &Mesh{
		Vertices:  append([]r3.Vec(nil), m.Vertices...),
		Faces:     make([][]int, len(m.Faces)),
		CellData:  make(map[string][]float64, len(m.CellData)),
		PointData: make(map[string][]float64, len(m.PointData)),
	}
	for i, f := range m.Faces {
		out.Faces[i] = append([]int(nil), f...)
	}
	for k, v := range m.CellData {
		out.CellData[k] = append([]float64(nil), v...)
	}
	for k, v := range m.PointData {
		out.PointData[k] = append([]float64(nil), v...)
	}
	return out
}

// Validate checks face indices and field lengths.
func (m *Mesh) Validate() error {
	for i, f := range m.Faces {
		if len(f) < 3 {
			return fmt.Errorf("face %d has %d vertices", i, len(f))
		}
		for _, idx := range f {
			if idx < 0 || idx >= len(m.Vertices) {
				return fmt.Errorf("face %d references vertex %d of %d", i, idx, len(m.Vertices))
			}
		}
	}
	for name, v := range m.CellData {
		if len(v) != len(m.Faces) {
			return fmt.Errorf("cell field %q has %d values for %d faces", name, len(v), len(m.Faces))
		}
	}
	for name, v := range m.PointData {
		if len(v) != len(m.Vertices) {
			return fmt.Errorf("point field %q has %d values for %d vertices", name, len(v), len(m.Vertices))
		}
	}
	return nil
}

// Threshold returns the faces whose cell field value lies in [lo, hi], with
// unused vertices removed. Kept vertices and faces stay in their original
// relative order and carry every field along.
func (m *Mesh) Threshold(field string, lo, hi float64) (*Mesh, error) {
	values, ok := m.CellData[field]
	if !ok {
		return nil, fmt.Errorf("no cell field %q", field)
	}

	var keep []int
	used := make([]bool, len(m.Vertices))
	for i, v := range values {
		if v >= lo && v <= hi {
			keep = append(keep, i)
			for _, idx := range m.Faces[i] {
				used[idx] = true
			}
		}
	}

	remap := make([]int, len(m.Vertices))
	out := NewMesh()
	for i, u := range used {
		if u {
			remap[i] = len(out.Vertices)
			out.Vertices = append(out.Vertices, m.Vertices[i])
		}
	}
	for name, pv := range m.PointData {
		vals := make([]float64, 0, len(out.Vertices))
		for i, u := range used {
			if u {
				vals = append(vals, pv[i])
			}
		}
		out.PointData[name] = vals
	}

	out.Faces = make([][]int, len(keep))
	for name := range m.CellData {
		out.CellData[name] = make([]float64, len(keep))
	}
	for j, i := range keep {
		face := make([]int, len(m.Faces[i]))
		for k, idx := range m.Faces[i] {
			face[k] = remap[idx]
		}
		out.Faces[j] = face
		for name, cv := range m.CellData {
			out.CellData[name][j] = cv[i]
		}
	}
	return out, nil
}

// FieldValues returns the distinct values of a cell field in ascending order.
func (m *Mesh) FieldValues(field string) []float64 {
	seen := map[float64]bool{}
	var out []float64
	for _, v := range m.CellData[field] {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Float64s(out)
	return out
}

// maxIncident sets a point field to the largest cell value of the faces
// touching each vertex.
func (m *Mesh) maxIncident(field string) {
	cells := m.CellData[field]
	points := make([]float64, len(m.Vertices))
	for i, f := range m.Faces {
		for _, idx := range f {
			if cells[i] > points[idx] {
				points[idx] = cells[i]
			}
		}
	}
	m.PointData[field] = points
}
