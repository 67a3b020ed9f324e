// Package export writes refined meshes to disk as Wavefront OBJ or binary STL.
package export

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chewxy/math32"
	"github.com/hschendel/stl"

	"voxmesh/internal/models"
	"voxmesh/pkg/surface"
)

// PathFor inserts _<index> before the extension of base, so shape.obj becomes
// shape_0.obj, shape_1.obj and so on.
func PathFor(base string, index int) string {
	ext := filepath.Ext(base)
	return fmt.Sprintf("%s_%d%s", strings.TrimSuffix(base, ext), index, ext)
}

// Exporter writes meshes to files, choosing the format from the extension.
type Exporter struct{}

// Export implements the pipeline's mesh sink.
func (Exporter) Export(path string, mesh *models.RefinedMesh) error {
	return Write(path, mesh)
}

// Write saves mesh to path. The format is chosen by the extension.
func Write(path string, mesh *models.RefinedMesh) error {
	if mesh.Empty() {
		return fmt.Errorf("export %s: empty mesh", path)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("export %s: %w", path, err)
		}
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".stl":
		return WriteSTL(path, mesh)
	case ".obj":
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("export %s: %w", path, err)
		}
		if err := WriteOBJ(f, mesh); err != nil {
			f.Close()
			return fmt.Errorf("export %s: %w", path, err)
		}
		return f.Close()
	}
	return fmt.Errorf("export %s: unsupported format", path)
}

// WriteSTL saves mesh as a binary STL file with per-face normals.
func WriteSTL(path string, mesh *models.RefinedMesh) error {
	// a binary header starting with "solid" would read back as ASCII
	header := make([]byte, 80)
	copy(header, "voxmesh region mesh")
	solid := &stl.Solid{
		Name:         strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		BinaryHeader: header,
		Triangles:    make([]stl.Triangle, 0, len(mesh.Triangles)),
	}
	for i, t := range mesh.Triangles {
		var tri stl.Triangle
		if i < len(mesh.FaceNormals) {
			n := mesh.FaceNormals[i]
			tri.Normal = stl.Vec3{float32(n.X), float32(n.Y), float32(n.Z)}
		}
		for k, idx := range t {
			v := mesh.Vertices[idx]
			tri.Vertices[k] = stl.Vec3{float32(v.X), float32(v.Y), float32(v.Z)}
		}
		if !finite(tri) {
			return fmt.Errorf("export %s: triangle %d has non-finite coordinates", path, i)
		}
		solid.Triangles = append(solid.Triangles, tri)
	}
	if err := solid.WriteFile(path); err != nil {
		return fmt.Errorf("export %s: %w", path, err)
	}
	return nil
}

func finite(t stl.Triangle) bool {
	vecs := append([]stl.Vec3{t.Normal}, t.Vertices[:]...)
	for _, v := range vecs {
		for _, c := range v {
			if math32.IsNaN(c) || math32.IsInf(c, 0) {
				return false
			}
		}
	}
	return true
}

// WriteOBJ encodes mesh as OBJ with positions, vertex normals and faces that
// reference both by the same index.
func WriteOBJ(w io.Writer, mesh *models.RefinedMesh) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# %d vertices, %d triangles\n", len(mesh.Vertices), len(mesh.Triangles))
	for _, v := range mesh.Vertices {
		fmt.Fprintf(bw, "v %g %g %g\n", v.X, v.Y, v.Z)
	}
	withNormals := len(mesh.VertexNormals) == len(mesh.Vertices)
	if withNormals {
		for _, n := range mesh.VertexNormals {
			fmt.Fprintf(bw, "vn %g %g %g\n", n.X, n.Y, n.Z)
		}
	}
	for _, t := range mesh.Triangles {
		if withNormals {
			fmt.Fprintf(bw, "f %d//%d %d//%d %d//%d\n", t[0]+1, t[0]+1, t[1]+1, t[1]+1, t[2]+1, t[2]+1)
		} else {
			fmt.Fprintf(bw, "f %d %d %d\n", t[0]+1, t[1]+1, t[2]+1)
		}
	}
	return bw.Flush()
}

// WritePatch saves a polygonal surface patch as OBJ. Used for intermediary
// results, before the patch is triangulated.
func WritePatch(path string, patch *surface.Mesh) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(f)
	for _, v := range patch.Vertices {
		fmt.Fprintf(bw, "v %g %g %g\n", v.X, v.Y, v.Z)
	}
	for _, face := range patch.Faces {
		bw.WriteString("f")
		for _, idx := range face {
			fmt.Fprintf(bw, " %d", idx+1)
		}
		bw.WriteString("\n")
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
