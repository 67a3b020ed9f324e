package surface

import (
	"gonum.org/v1/gonum/spatial/r3"

	"voxmesh/internal/models"
)

// DefaultThreshold separates absent from present voxels in binary and
// labeled volumes.
const DefaultThreshold = 0.5

// ScalarField is a dense 3D grid of values. Both raw and labeled volumes
// implement it.
type ScalarField interface {
	Dims() (width, height, depth int)
	Value(x, y, z int) float64
	Spacing() models.Spacing
}

// Extractor derives a boundary surface from the voxels of a field whose value
// exceeds threshold. Each face carries the value of its voxel in LabelField.
// An empty selection yields an empty mesh.
type Extractor interface {
	Extract(field ScalarField, threshold float64) (*Mesh, error)
}

type voxelFace struct {
	normal  [3]int
	corners [4][3]int
}

// voxelFaces lists the six faces of a unit voxel with corners wound
// counter-clockwise seen from outside.
var voxelFaces = [6]voxelFace{
	{[3]int{1, 0, 0}, [4][3]int{{1, 0, 0}, {1, 1, 0}, {1, 1, 1}, {1, 0, 1}}},
	{[3]int{-1, 0, 0}, [4][3]int{{0, 0, 0}, {0, 0, 1}, {0, 1, 1}, {0, 1, 0}}},
	{[3]int{0, 1, 0}, [4][3]int{{0, 1, 0}, {0, 1, 1}, {1, 1, 1}, {1, 1, 0}}},
	{[3]int{0, -1, 0}, [4][3]int{{0, 0, 0}, {1, 0, 0}, {1, 0, 1}, {0, 0, 1}}},
	{[3]int{0, 0, 1}, [4][3]int{{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1}}},
	{[3]int{0, 0, -1}, [4][3]int{{0, 0, 0}, {0, 1, 0}, {1, 1, 0}, {1, 0, 0}}},
}

// VoxelExtractor emits one quad for every face of a selected voxel that
// borders an unselected voxel or the outside of the grid. Corner vertices are
// shared between quads, so the surface of a connected solid is one connected
// mesh.
type VoxelExtractor struct{}

// Extract implements Extractor.
func (VoxelExtractor) Extract(field ScalarField, threshold float64) (*Mesh, error) {
	w, h, d := field.Dims()
	sp := field.Spacing()
	mesh := NewMesh()

	selected := func(x, y, z int) bool {
		if x < 0 || y < 0 || z < 0 || x >= w || y >= h || z >= d {
			return false
		}
		return field.Value(x, y, z) > threshold
	}

	index := map[int]int{}
	corner := func(cx, cy, cz int) int {
		key := cz*(w+1)*(h+1) + cy*(w+1) + cx
		if i, ok := index[key]; ok {
			return i
		}
		i := len(mesh.Vertices)
		mesh.Vertices = append(mesh.Vertices, r3.Vec{
			X: float64(cx) * sp.X,
			Y: float64(cy) * sp.Y,
			Z: float64(cz) * sp.Z,
		})
		index[key] = i
		return i
	}

	var labels []float64
	for z := 0; z < d; z++ {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				if !selected(x, y, z) {
					continue
				}
				value := field.Value(x, y, z)
				for _, f := range voxelFaces {
					if selected(x+f.normal[0], y+f.normal[1], z+f.normal[2]) {
						continue
					}
					face := make([]int, 4)
					for i, c := range f.corners {
						face[i] = corner(x+c[0], y+c[1], z+c[2])
					}
					mesh.Faces = append(mesh.Faces, face)
					labels = append(labels, value)
				}
			}
		}
	}

	if labels == nil {
		labels = []float64{}
	}
	mesh.CellData[LabelField] = labels
	mesh.maxIncident(LabelField)
	return mesh, nil
}
