package refine

import (
	"fmt"
	"sort"

	"github.com/fogleman/simplify"
	"gonum.org/v1/gonum/spatial/r3"

	"voxmesh/pkg/surface"
)

// DefaultRelaxation is the fraction of the distance to the neighbour average
// a vertex moves per smoothing iteration.
const DefaultRelaxation = 0.01

// TriMesh is an indexed triangle mesh.
type TriMesh struct {
	Vertices  []r3.Vec
	Triangles [][3]int
}

// Kernel provides the geometry primitives of the refinement sequence.
type Kernel interface {
	// Smooth returns a copy of mesh with vertices relaxed toward their
	// neighbours. Topology and vertex order are unchanged.
	Smooth(mesh *surface.Mesh, iterations int) (*surface.Mesh, error)

	// Triangulate splits every polygon into triangles.
	Triangulate(mesh *surface.Mesh) (*TriMesh, error)

	// Decimate removes about reduction of the triangles.
	Decimate(mesh *TriMesh, reduction float64) (*TriMesh, error)

	// Normals returns unit vertex and face normals.
	Normals(mesh *TriMesh) (vertex, face []r3.Vec, err error)
}

// GeometryKernel is the production Kernel.
type GeometryKernel struct {
	// Relaxation scales each smoothing step, DefaultRelaxation when zero
	Relaxation float64
}

// Smooth implements Kernel with Laplacian smoothing over polygon edges.
func (g GeometryKernel) Smooth(mesh *surface.Mesh, iterations int) (*surface.Mesh, error) {
	out := mesh.Copy()
	if iterations <= 0 || len(out.Vertices) == 0 {
		return out, nil
	}
	relax := g.Relaxation
	if relax == 0 {
		relax = DefaultRelaxation
	}

	neighbors := make([]map[int]struct{}, len(out.Vertices))
	link := func(a, b int) {
		if a == b {
			return
		}
		if neighbors[a] == nil {
			neighbors[a] = map[int]struct{}{}
		}
		neighbors[a][b] = struct{}{}
	}
	for _, f := range out.Faces {
		for i := range f {
			a, b := f[i], f[(i+1)%len(f)]
			link(a, b)
			link(b, a)
		}
	}
	adj := make([][]int, len(neighbors))
	for i, n := range neighbors {
		for j := range n {
			adj[i] = append(adj[i], j)
		}
		sort.Ints(adj[i])
	}

	next := make([]r3.Vec, len(out.Vertices))
	for it := 0; it < iterations; it++ {
		for i, p := range out.Vertices {
			if len(adj[i]) == 0 {
				next[i] = p
				continue
			}
			var sum r3.Vec
			for _, j := range adj[i] {
				sum = r3.Add(sum, out.Vertices[j])
			}
			avg := r3.Scale(1/float64(len(adj[i])), sum)
			next[i] = r3.Add(p, r3.Scale(relax, r3.Sub(avg, p)))
		}
		out.Vertices, next = next, out.Vertices
	}
	return out, nil
}

// Triangulate implements Kernel with fan triangulation from the first corner
// of each polygon. Polygons with repeated corners lose their collapsed
// triangles.
func (GeometryKernel) Triangulate(mesh *surface.Mesh) (*TriMesh, error) {
	out := &TriMesh{Vertices: append([]r3.Vec(nil), mesh.Vertices...)}
	for i, f := range mesh.Faces {
		if len(f) < 3 {
			return nil, fmt.Errorf("face %d has %d corners", i, len(f))
		}
		for k := 1; k+1 < len(f); k++ {
			t := [3]int{f[0], f[k], f[k+1]}
			if t[0] == t[1] || t[1] == t[2] || t[0] == t[2] {
				continue
			}
			out.Triangles = append(out.Triangles, t)
		}
	}
	return out, nil
}

// Decimate implements Kernel with quadric edge collapse. A reduction of 0
// returns the mesh unchanged.
func (GeometryKernel) Decimate(mesh *TriMesh, reduction float64) (*TriMesh, error) {
	if reduction < 0 || reduction > 1 {
		return nil, fmt.Errorf("reduction %g outside [0, 1]", reduction)
	}
	if reduction == 0 || len(mesh.Triangles) == 0 {
		return &TriMesh{
			Vertices:  append([]r3.Vec(nil), mesh.Vertices...),
			Triangles: append([][3]int(nil), mesh.Triangles...),
		}, nil
	}

	tris := make([]*simplify.Triangle, len(mesh.Triangles))
	for i, t := range mesh.Triangles {
		tris[i] = simplify.NewTriangle(
			toSimplify(mesh.Vertices[t[0]]),
			toSimplify(mesh.Vertices[t[1]]),
			toSimplify(mesh.Vertices[t[2]]),
		)
	}
	simplified := simplify.NewMesh(tris).Simplify(1 - reduction)

	out := &TriMesh{}
	index := map[simplify.Vector]int{}
	weld := func(v simplify.Vector) int {
		if i, ok := index[v]; ok {
			return i
		}
		i := len(out.Vertices)
		index[v] = i
		out.Vertices = append(out.Vertices, r3.Vec{X: v.X, Y: v.Y, Z: v.Z})
		return i
	}
	for _, t := range simplified.Triangles {
		tri := [3]int{weld(t.V1), weld(t.V2), weld(t.V3)}
		if tri[0] == tri[1] || tri[1] == tri[2] || tri[0] == tri[2] {
			continue
		}
		out.Triangles = append(out.Triangles, tri)
	}
	if len(out.Triangles) > len(mesh.Triangles) {
		return nil, fmt.Errorf("decimation grew mesh from %d to %d triangles",
			len(mesh.Triangles), len(out.Triangles))
	}
	return out, nil
}

func toSimplify(v r3.Vec) simplify.Vector {
	return simplify.Vector{X: v.X, Y: v.Y, Z: v.Z}
}

// Normals implements Kernel. Vertex normals are the area weighted average of
// the normals of the incident triangles. Zero area triangles get a zero
// normal.
func (GeometryKernel) Normals(mesh *TriMesh) ([]r3.Vec, []r3.Vec, error) {
	vertex := make([]r3.Vec, len(mesh.Vertices))
	face := make([]r3.Vec, len(mesh.Triangles))
	for i, t := range mesh.Triangles {
		for _, idx := range t {
			if idx < 0 || idx >= len(mesh.Vertices) {
				return nil, nil, fmt.Errorf("triangle %d references vertex %d of %d", i, idx, len(mesh.Vertices))
			}
		}
		a, b, c := mesh.Vertices[t[0]], mesh.Vertices[t[1]], mesh.Vertices[t[2]]
		// the cross product length is twice the area
		n := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
		face[i] = unitOrZero(n)
		for _, idx := range t {
			vertex[idx] = r3.Add(vertex[idx], n)
		}
	}
	for i := range vertex {
		vertex[i] = unitOrZero(vertex[i])
	}
	return vertex, face, nil
}

func unitOrZero(v r3.Vec) r3.Vec {
	if r3.Norm(v) == 0 {
		return r3.Vec{}
	}
	return r3.Unit(v)
}
