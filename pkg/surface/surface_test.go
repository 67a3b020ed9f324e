package surface

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"voxmesh/internal/models"
	"voxmesh/pkg/volume"
)

// faceNormal returns the unnormalized normal of the first three corners.
func faceNormal(m *Mesh, f []int) r3.Vec {
	a, b, c := m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]
	return r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
}

func faceCenter(m *Mesh, f []int) r3.Vec {
	var s r3.Vec
	for _, idx := range f {
		s = r3.Add(s, m.Vertices[idx])
	}
	return r3.Scale(1/float64(len(f)), s)
}

// TestVoxelExtractorSingleVoxel verifies the six outward quads of one voxel
func TestVoxelExtractorSingleVoxel(t *testing.T) {
	vol := models.NewVolume(3, 3, 3)
	vol.Set(1, 1, 1, 7)

	mesh, err := VoxelExtractor{}.Extract(vol, DefaultThreshold)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if mesh.NumFaces() != 6 {
		t.Fatalf("Expected 6 faces, got %d", mesh.NumFaces())
	}
	if mesh.NumVertices() != 8 {
		t.Errorf("Expected 8 welded corners, got %d", mesh.NumVertices())
	}
	if err := mesh.Validate(); err != nil {
		t.Fatalf("Invalid mesh: %v", err)
	}

	center := r3.Vec{X: 1.5, Y: 1.5, Z: 1.5}
	for i, f := range mesh.Faces {
		out := r3.Sub(faceCenter(mesh, f), center)
		if r3.Dot(out, faceNormal(mesh, f)) <= 0 {
			t.Errorf("Face %d points inward", i)
		}
		if mesh.CellData[LabelField][i] != 7 {
			t.Errorf("Face %d: expected label 7, got %g", i, mesh.CellData[LabelField][i])
		}
	}
	for i, v := range mesh.PointData[LabelField] {
		if v != 7 {
			t.Errorf("Vertex %d: expected label 7, got %g", i, v)
		}
	}
}

// TestVoxelExtractorSharedFacesRemoved verifies that faces between selected
// voxels are not emitted even when their labels differ
func TestVoxelExtractorSharedFacesRemoved(t *testing.T) {
	vol := models.NewVolume(2, 1, 1)
	vol.Set(0, 0, 0, 1)
	vol.Set(1, 0, 0, 2)

	mesh, err := VoxelExtractor{}.Extract(vol, DefaultThreshold)
	if err != nil {
		t.Fatal(err)
	}
	if mesh.NumFaces() != 10 {
		t.Errorf("Expected 10 faces, got %d", mesh.NumFaces())
	}
	if mesh.NumVertices() != 12 {
		t.Errorf("Expected 12 vertices, got %d", mesh.NumVertices())
	}
	values := mesh.FieldValues(LabelField)
	if len(values) != 2 || values[0] != 1 || values[1] != 2 {
		t.Errorf("Expected labels [1 2], got %v", values)
	}
}

// TestVoxelExtractorSpacing verifies that vertex positions are scaled
func TestVoxelExtractorSpacing(t *testing.T) {
	vol := models.NewVolume(1, 1, 1)
	vol.VoxelSize = models.Spacing{X: 0.5, Y: 1, Z: 2}
	vol.Set(0, 0, 0, 1)

	mesh, err := VoxelExtractor{}.Extract(vol, DefaultThreshold)
	if err != nil {
		t.Fatal(err)
	}
	var maxV r3.Vec
	for _, v := range mesh.Vertices {
		maxV = r3.Vec{X: max(maxV.X, v.X), Y: max(maxV.Y, v.Y), Z: max(maxV.Z, v.Z)}
	}
	if maxV != (r3.Vec{X: 0.5, Y: 1, Z: 2}) {
		t.Errorf("Unexpected extent %v", maxV)
	}
}

// TestExtractEmpty verifies that an empty selection yields an empty mesh
func TestExtractEmpty(t *testing.T) {
	vol := models.NewVolume(4, 4, 4)
	for _, ex := range []Extractor{VoxelExtractor{}, MarchingCubesExtractor{}} {
		mesh, err := ex.Extract(vol, DefaultThreshold)
		if err != nil {
			t.Fatalf("%T: unexpected error: %v", ex, err)
		}
		if !mesh.IsEmpty() {
			t.Errorf("%T: expected empty mesh, got %d faces", ex, mesh.NumFaces())
		}
		if err := mesh.Validate(); err != nil {
			t.Errorf("%T: invalid empty mesh: %v", ex, err)
		}
	}
}

// TestMarchingCubesSphere verifies that marching cubes produces a labeled,
// outward facing surface around a sphere
func TestMarchingCubesSphere(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping marching cubes in short mode")
	}
	vol := volume.Sphere(16)
	mesh, err := MarchingCubesExtractor{}.Extract(vol, DefaultThreshold)
	if err != nil {
		t.Fatal(err)
	}
	if mesh.NumFaces() < 100 {
		t.Fatalf("Expected at least 100 triangles, got %d", mesh.NumFaces())
	}
	if err := mesh.Validate(); err != nil {
		t.Fatalf("Invalid mesh: %v", err)
	}

	center := r3.Vec{X: 8.5, Y: 8.5, Z: 8.5}
	inward := 0
	for i, f := range mesh.Faces {
		if r3.Dot(r3.Sub(faceCenter(mesh, f), center), faceNormal(mesh, f)) < 0 {
			inward++
		}
		if mesh.CellData[LabelField][i] != 1 {
			t.Fatalf("Face %d: expected label 1, got %g", i, mesh.CellData[LabelField][i])
		}
	}
	if inward > mesh.NumFaces()/20 {
		t.Errorf("%d of %d triangles point inward", inward, mesh.NumFaces())
	}

	again, err := MarchingCubesExtractor{}.Extract(vol, DefaultThreshold)
	if err != nil {
		t.Fatal(err)
	}
	if again.NumFaces() != mesh.NumFaces() || again.NumVertices() != mesh.NumVertices() {
		t.Fatal("Expected deterministic output")
	}
	for i := range mesh.Vertices {
		if mesh.Vertices[i] != again.Vertices[i] {
			t.Fatalf("Vertex %d differs between runs", i)
		}
	}
}

// TestMarchingCubesNearestLabel verifies that each blob keeps its own label
func TestMarchingCubesNearestLabel(t *testing.T) {
	vol := models.NewVolume(12, 6, 6)
	for z := 1; z < 5; z++ {
		for y := 1; y < 5; y++ {
			for x := 1; x < 4; x++ {
				vol.Set(x, y, z, 3)
				vol.Set(x+7, y, z, 9)
			}
		}
	}
	mesh, err := MarchingCubesExtractor{}.Extract(vol, DefaultThreshold)
	if err != nil {
		t.Fatal(err)
	}
	for i, f := range mesh.Faces {
		c := faceCenter(mesh, f)
		want := 3.0
		if c.X > 6 {
			want = 9
		}
		if got := mesh.CellData[LabelField][i]; got != want {
			t.Fatalf("Face %d at %v: expected label %g, got %g", i, c, want, got)
		}
	}
}

// TestThreshold verifies window selection and vertex compaction
func TestThreshold(t *testing.T) {
	vol := models.NewVolume(5, 1, 1)
	vol.Set(0, 0, 0, 1)
	vol.Set(4, 0, 0, 2)
	mesh, err := VoxelExtractor{}.Extract(vol, DefaultThreshold)
	if err != nil {
		t.Fatal(err)
	}

	patch, err := mesh.Threshold(LabelField, 1.9, 2.1)
	if err != nil {
		t.Fatal(err)
	}
	if patch.NumFaces() != 6 || patch.NumVertices() != 8 {
		t.Errorf("Expected 6 faces and 8 vertices, got %d and %d", patch.NumFaces(), patch.NumVertices())
	}
	if err := patch.Validate(); err != nil {
		t.Errorf("Invalid patch: %v", err)
	}
	for _, v := range patch.Vertices {
		if v.X < 4 {
			t.Fatalf("Vertex %v from the other voxel was kept", v)
		}
	}

	all, err := mesh.Threshold(LabelField, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if all.NumFaces() != mesh.NumFaces() {
		t.Errorf("Expected inclusive bounds to keep %d faces, got %d", mesh.NumFaces(), all.NumFaces())
	}

	if _, err := mesh.Threshold("missing", 0, 1); err == nil {
		t.Error("Expected error for missing field")
	}
}

// TestCopyIsDeep verifies that a copy does not alias the original
func TestCopyIsDeep(t *testing.T) {
	vol := models.NewVolume(1, 1, 1)
	vol.Set(0, 0, 0, 1)
	mesh, _ := VoxelExtractor{}.Extract(vol, DefaultThreshold)
	cp := mesh.Copy()
	cp.Vertices[0].X = 100
	cp.Faces[0][0] = 5
	cp.CellData[LabelField][0] = 42
	if mesh.Vertices[0].X == 100 || mesh.Faces[0][0] == 5 || mesh.CellData[LabelField][0] == 42 {
		t.Error("Copy aliases the original mesh")
	}
}

func BenchmarkVoxelExtractor(b *testing.B) {
	vol := volume.Sphere(64)
	for i := 0; i < b.N; i++ {
		if _, err := (VoxelExtractor{}).Extract(vol, DefaultThreshold); err != nil {
			b.Fatal(err)
		}
	}
}
