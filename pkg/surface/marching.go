package surface

import (
	"math"
	"sort"

	"github.com/unixpickle/model3d/model3d"
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"

	"voxmesh/internal/models"
)

// MarchingCubesExtractor triangulates the selected voxels with marching
// cubes. The label of each triangle is the value of the nearest selected
// voxel centre.
type MarchingCubesExtractor struct {
	// SearchIterations refines vertex positions along cube edges
	SearchIterations int
}

// fieldSolid adapts a thresholded field to a model3d solid. Voxel (x, y, z)
// covers [x, x+1) * spacing on each axis.
type fieldSolid struct {
	field     ScalarField
	threshold float64
	w, h, d   int
	spacing   models.Spacing
}

func (f *fieldSolid) Min() model3d.Coord3D {
	return model3d.Coord3D{X: -f.spacing.X, Y: -f.spacing.Y, Z: -f.spacing.Z}
}

func (f *fieldSolid) Max() model3d.Coord3D {
	return model3d.Coord3D{
		X: float64(f.w+1) * f.spacing.X,
		Y: float64(f.h+1) * f.spacing.Y,
		Z: float64(f.d+1) * f.spacing.Z,
	}
}

func (f *fieldSolid) Contains(c model3d.Coord3D) bool {
	x := int(math.Floor(c.X / f.spacing.X))
	y := int(math.Floor(c.Y / f.spacing.Y))
	z := int(math.Floor(c.Z / f.spacing.Z))
	if x < 0 || y < 0 || z < 0 || x >= f.w || y >= f.h || z >= f.d {
		return false
	}
	return f.field.Value(x, y, z) > f.threshold
}

// Extract implements Extractor.
func (m MarchingCubesExtractor) Extract(field ScalarField, threshold float64) (*Mesh, error) {
	w, h, d := field.Dims()
	sp := field.Spacing()
	out := NewMesh()
	out.CellData[LabelField] = []float64{}

	centers := kdtree.Points{}
	labelAt := map[[3]float64]float64{}
	for z := 0; z < d; z++ {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				v := field.Value(x, y, z)
				if v <= threshold {
					continue
				}
				c := [3]float64{(float64(x) + 0.5) * sp.X, (float64(y) + 0.5) * sp.Y, (float64(z) + 0.5) * sp.Z}
				centers = append(centers, kdtree.Point{c[0], c[1], c[2]})
				labelAt[c] = v
			}
		}
	}
	if len(centers) == 0 {
		out.PointData[LabelField] = []float64{}
		return out, nil
	}

	iters := m.SearchIterations
	if iters <= 0 {
		iters = 8
	}
	solid := &fieldSolid{field: field, threshold: threshold, w: w, h: h, d: d, spacing: sp}
	delta := math.Min(sp.X, math.Min(sp.Y, sp.Z)) / 2
	tris := model3d.MarchingCubesSearch(solid, delta, iters).TriangleSlice()

	sort.SliceStable(tris, func(i, j int) bool {
		a, b := centroid(tris[i]), centroid(tris[j])
		if a.X != b.X {
			return a.X < b.X
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.Z < b.Z
	})

	tree := kdtree.New(centers, false)
	index := map[model3d.Coord3D]int{}
	for _, t := range tris {
		face := make([]int, 3)
		for i, c := range t {
			idx, ok := index[c]
			if !ok {
				idx = len(out.Vertices)
				index[c] = idx
				out.Vertices = append(out.Vertices, r3.Vec{X: c.X, Y: c.Y, Z: c.Z})
			}
			face[i] = idx
		}
		if face[0] == face[1] || face[1] == face[2] || face[0] == face[2] {
			continue
		}
		c := centroid(t)
		nearest, _ := tree.Nearest(kdtree.Point{c.X, c.Y, c.Z})
		p := nearest.(kdtree.Point)
		out.Faces = append(out.Faces, face)
		out.CellData[LabelField] = append(out.CellData[LabelField], labelAt[[3]float64{p[0], p[1], p[2]}])
	}
	out.maxIncident(LabelField)
	return out, nil
}

func centroid(t *model3d.Triangle) model3d.Coord3D {
	return t[0].Add(t[1]).Add(t[2]).Scale(1.0 / 3)
}
