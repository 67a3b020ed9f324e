// Package refine turns a surface patch into a render-ready triangle mesh by
// smoothing, triangulating, decimating and computing normals, in that order.
package refine

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"voxmesh/internal/models"
	"voxmesh/pkg/surface"
)

// ErrDegenerate is returned for patches that cannot form a surface: fewer
// than three vertices, all vertices coincident, or no triangle left.
var ErrDegenerate = errors.New("degenerate region geometry")

// Refiner applies a Kernel to surface patches.
type Refiner struct {
	kernel Kernel
	logger zerolog.Logger
}

// NewRefiner creates a refiner.
func NewRefiner(kernel Kernel, logger zerolog.Logger) *Refiner {
	return &Refiner{
		kernel: kernel,
		logger: logger.With().Str("component", "refine").Logger(),
	}
}

// Refine smooths patch with the given number of iterations, triangulates it,
// decimates away reduction of the triangles when reduction is positive and
// computes normals. The result never has more triangles than the
// triangulated patch.
func (r *Refiner) Refine(patch *surface.Mesh, iterations int, reduction float64) (*models.RefinedMesh, error) {
	if reduction < 0 || reduction > 1 {
		return nil, fmt.Errorf("reduction %g outside [0, 1]", reduction)
	}
	if err := checkPatch(patch); err != nil {
		return nil, err
	}

	smoothed, err := r.kernel.Smooth(patch, iterations)
	if err != nil {
		return nil, fmt.Errorf("smooth: %w", err)
	}

	tri, err := r.kernel.Triangulate(smoothed)
	if err != nil {
		return nil, fmt.Errorf("triangulate: %w", err)
	}
	if len(tri.Triangles) == 0 {
		return nil, ErrDegenerate
	}
	source := len(tri.Triangles)

	if reduction > 0 {
		dec, err := r.kernel.Decimate(tri, reduction)
		if err != nil {
			return nil, fmt.Errorf("decimate: %w", err)
		}
		if len(dec.Triangles) > source {
			return nil, fmt.Errorf("decimate: output has %d triangles, input had %d", len(dec.Triangles), source)
		}
		if len(dec.Triangles) == 0 {
			return nil, ErrDegenerate
		}
		tri = dec
	}

	vn, fn, err := r.kernel.Normals(tri)
	if err != nil {
		return nil, fmt.Errorf("normals: %w", err)
	}

	r.logger.Debug().
		Int("iterations", iterations).
		Float64("reduction", reduction).
		Int("source_triangles", source).
		Int("triangles", len(tri.Triangles)).
		Msg("patch refined")

	return &models.RefinedMesh{
		Vertices:        tri.Vertices,
		Triangles:       tri.Triangles,
		VertexNormals:   vn,
		FaceNormals:     fn,
		SourceTriangles: source,
	}, nil
}

func checkPatch(patch *surface.Mesh) error {
	if patch == nil || len(patch.Vertices) < 3 || len(patch.Faces) == 0 {
		return ErrDegenerate
	}
	first := patch.Vertices[0]
	for _, v := range patch.Vertices[1:] {
		if v != first {
			return nil
		}
	}
	return ErrDegenerate
}
