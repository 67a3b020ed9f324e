package pipeline

import (
	"fmt"
	"io"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"

	"voxmesh/internal/models"
)

// Metrics describes one refined mesh.
type Metrics struct {
	Vertices        int
	Triangles       int
	SourceTriangles int

	// Area is the total surface area
	Area float64

	// MeanEdge and StdDevEdge describe the lengths of unique edges
	MeanEdge   float64
	StdDevEdge float64
}

// Reduction returns the fraction of triangles removed by decimation.
func (m Metrics) Reduction() float64 {
	if m.SourceTriangles == 0 {
		return 0
	}
	return 1 - float64(m.Triangles)/float64(m.SourceTriangles)
}

// ComputeMetrics measures mesh.
func ComputeMetrics(mesh *models.RefinedMesh) Metrics {
	m := Metrics{
		Vertices:        len(mesh.Vertices),
		Triangles:       len(mesh.Triangles),
		SourceTriangles: mesh.SourceTriangles,
	}
	if len(mesh.Triangles) == 0 {
		return m
	}

	areas := make([]float64, len(mesh.Triangles))
	seen := map[[2]int]bool{}
	var lengths []float64
	for i, t := range mesh.Triangles {
		a, b, c := mesh.Vertices[t[0]], mesh.Vertices[t[1]], mesh.Vertices[t[2]]
		areas[i] = 0.5 * r3.Norm(r3.Cross(r3.Sub(b, a), r3.Sub(c, a)))
		for k := 0; k < 3; k++ {
			u, v := t[k], t[(k+1)%3]
			if u > v {
				u, v = v, u
			}
			if seen[[2]int{u, v}] {
				continue
			}
			seen[[2]int{u, v}] = true
			lengths = append(lengths, r3.Norm(r3.Sub(mesh.Vertices[u], mesh.Vertices[v])))
		}
	}
	m.Area = floats.Sum(areas)
	if len(lengths) > 1 {
		m.MeanEdge, m.StdDevEdge = stat.MeanStdDev(lengths, nil)
	} else {
		m.MeanEdge = stat.Mean(lengths, nil)
	}
	return m
}

// WriteSummary prints one line per region followed by totals.
func WriteSummary(w io.Writer, res *Result) {
	fmt.Fprintf(w, "\nMode: %s, components: %d, regions: %d, color seed: %d\n",
		res.Mode, res.Components, len(res.Regions), res.Seed)
	if len(res.Regions) == 0 {
		fmt.Fprintln(w, "No regions found.")
		return
	}
	fmt.Fprintf(w, "%-6s %-10s %-10s %-9s %-12s %-10s %s\n",
		"region", "triangles", "source", "reduced", "area", "edge", "output")

	var triangles, skipped int
	for _, r := range res.Regions {
		if r.Skipped() {
			skipped++
			fmt.Fprintf(w, "%-6d skipped: %v\n", r.Index, r.Err)
			continue
		}
		out := r.Path
		if r.ExportErr != nil {
			out = "export failed: " + r.ExportErr.Error()
		}
		m := r.Metrics
		triangles += m.Triangles
		fmt.Fprintf(w, "%-6d %-10d %-10d %-9s %-12.3f %-10s %s\n",
			r.Index, m.Triangles, m.SourceTriangles,
			fmt.Sprintf("%.1f%%", 100*m.Reduction()),
			m.Area,
			fmt.Sprintf("%.3f±%.3f", m.MeanEdge, m.StdDevEdge),
			out)
	}
	fmt.Fprintf(w, "Total: %d triangles in %d regions, %d skipped, %v\n",
		triangles, len(res.Regions)-skipped, skipped, res.Elapsed.Round(time.Millisecond))
}
