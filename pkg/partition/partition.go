// Package partition splits a boundary surface into its connected regions.
package partition

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"voxmesh/pkg/surface"
)

// WindowHalfWidth is the tolerance used to select the faces of one region id
// from the RegionId cell field.
const WindowHalfWidth = 0.1

// Region is one connected patch of a surface.
type Region struct {
	// ID is the connectivity id, 0..n-1
	ID int

	// Window is the inclusive RegionId range the patch was selected with
	Window [2]float64

	// Patch holds the faces of this region only
	Patch *surface.Mesh
}

// Partitioner computes surface connectivity.
type Partitioner struct {
	logger zerolog.Logger
}

// NewPartitioner creates a partitioner.
func NewPartitioner(logger zerolog.Logger) *Partitioner {
	return &Partitioner{logger: logger.With().Str("component", "partition").Logger()}
}

// Label returns a copy of mesh with the RegionId point and cell fields set,
// and the number of regions. Two faces are in the same region when a chain of
// shared vertices joins them. Regions are numbered by their lowest vertex
// index.
func Label(mesh *surface.Mesh) (*surface.Mesh, int) {
	g := simple.NewUndirectedGraph()
	for i := range mesh.Vertices {
		g.AddNode(simple.Node(i))
	}
	for _, f := range mesh.Faces {
		for i := range f {
			a, b := f[i], f[(i+1)%len(f)]
			if a == b {
				continue
			}
			g.SetEdge(simple.Edge{F: simple.Node(a), T: simple.Node(b)})
		}
	}

	hasFace := make([]bool, len(mesh.Vertices))
	for _, f := range mesh.Faces {
		for _, idx := range f {
			hasFace[idx] = true
		}
	}

	var seeds [][]graph.Node
	for _, cc := range topo.ConnectedComponents(g) {
		if hasFace[int(lowest(cc))] {
			seeds = append(seeds, cc)
		}
	}
	sort.Slice(seeds, func(i, j int) bool {
		return lowest(seeds[i]) < lowest(seeds[j])
	})

	out := mesh.Copy()
	points := make([]float64, len(mesh.Vertices))
	for i := range points {
		points[i] = -1
	}
	for id, cc := range seeds {
		for _, n := range cc {
			points[n.ID()] = float64(id)
		}
	}
	cells := make([]float64, len(mesh.Faces))
	for i, f := range mesh.Faces {
		cells[i] = points[f[0]]
	}
	out.PointData[surface.RegionIDField] = points
	out.CellData[surface.RegionIDField] = cells
	return out, len(seeds)
}

func lowest(nodes []graph.Node) int64 {
	low := nodes[0].ID()
	for _, n := range nodes[1:] {
		if n.ID() < low {
			low = n.ID()
		}
	}
	return low
}

// Partition returns one region per connected patch of mesh in ascending id
// order. An empty mesh has no regions.
func (p *Partitioner) Partition(mesh *surface.Mesh) ([]Region, error) {
	if mesh.IsEmpty() {
		p.logger.Info().Msg("empty surface, no regions")
		return nil, nil
	}
	if err := mesh.Validate(); err != nil {
		return nil, fmt.Errorf("partition: %w", err)
	}

	labeled, n := Label(mesh)
	p.logger.Info().Int("regions", n).Int("faces", mesh.NumFaces()).Msg("surface partitioned")

	regions := make([]Region, 0, n)
	for id := 0; id < n; id++ {
		lo, hi := float64(id)-WindowHalfWidth, float64(id)+WindowHalfWidth
		patch, err := labeled.Threshold(surface.RegionIDField, lo, hi)
		if err != nil {
			return nil, fmt.Errorf("select region %d: %w", id, err)
		}
		p.logger.Debug().
			Int("region", id).
			Int("faces", patch.NumFaces()).
			Int("vertices", patch.NumVertices()).
			Msg("region selected")
		regions = append(regions, Region{ID: id, Window: [2]float64{lo, hi}, Patch: patch})
	}
	return regions, nil
}
