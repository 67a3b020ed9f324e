package partition

import (
	"testing"

	"github.com/rs/zerolog"

	"voxmesh/internal/models"
	"voxmesh/pkg/labeling"
	"voxmesh/pkg/surface"
	"voxmesh/pkg/volume"
)

// labeledSurface runs labeling and voxel extraction on vol.
func labeledSurface(t *testing.T, vol *models.Volume) (*surface.Mesh, int) {
	t.Helper()
	l := labeling.NewLabeler(&labeling.FloodFill{Connectivity: 8}, 0, zerolog.Nop())
	labeled, count, err := l.Label(vol)
	if err != nil {
		t.Fatalf("Labeling failed: %v", err)
	}
	mesh, err := surface.VoxelExtractor{}.Extract(labeled, surface.DefaultThreshold)
	if err != nil {
		t.Fatalf("Extraction failed: %v", err)
	}
	return mesh, count
}

// TestPartitionEmpty verifies that an empty surface has no regions
func TestPartitionEmpty(t *testing.T) {
	regions, err := NewPartitioner(zerolog.Nop()).Partition(surface.NewMesh())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(regions) != 0 {
		t.Errorf("Expected 0 regions, got %d", len(regions))
	}
}

// TestPartitionSphere verifies that a sphere is one region although the
// labeler gives every slice its own label
func TestPartitionSphere(t *testing.T) {
	mesh, count := labeledSurface(t, volume.Sphere(20))
	if count < 2 {
		t.Fatalf("Expected one label per slice, got %d", count)
	}
	regions, err := NewPartitioner(zerolog.Nop()).Partition(mesh)
	if err != nil {
		t.Fatal(err)
	}
	if len(regions) != 1 {
		t.Fatalf("Expected 1 region, got %d", len(regions))
	}
	if regions[0].Patch.NumFaces() != mesh.NumFaces() {
		t.Errorf("Expected patch with %d faces, got %d", mesh.NumFaces(), regions[0].Patch.NumFaces())
	}
}

// TestPartitionSeparatedBlobs verifies two regions with disjoint patches that
// cover the surface
func TestPartitionSeparatedBlobs(t *testing.T) {
	vol := volume.Blobs(24, 12, 12,
		volume.Blob{Center: [3]int{5, 6, 6}, Radius: 4},
		volume.Blob{Center: [3]int{17, 6, 6}, Radius: 3},
	)
	mesh, _ := labeledSurface(t, vol)
	regions, err := NewPartitioner(zerolog.Nop()).Partition(mesh)
	if err != nil {
		t.Fatal(err)
	}
	if len(regions) != 2 {
		t.Fatalf("Expected 2 regions, got %d", len(regions))
	}

	total := 0
	for i, r := range regions {
		if r.ID != i {
			t.Errorf("Expected id %d, got %d", i, r.ID)
		}
		if r.Window != [2]float64{float64(i) - 0.1, float64(i) + 0.1} {
			t.Errorf("Unexpected window %v", r.Window)
		}
		for _, v := range r.Patch.CellData[surface.RegionIDField] {
			if v != float64(i) {
				t.Fatalf("Region %d contains face of region %g", i, v)
			}
		}
		total += r.Patch.NumFaces()
	}
	if total != mesh.NumFaces() {
		t.Errorf("Expected patches to cover %d faces, got %d", mesh.NumFaces(), total)
	}

	// seed order: the blob holding vertex 0 comes first
	if regions[0].Patch.Vertices[0].X > 12 {
		t.Error("Expected the low-x blob to be region 0")
	}
}

// TestPartitionCrossSliceContact verifies that stacked components touching
// across z merge into one region, while a gap keeps them apart
func TestPartitionCrossSliceContact(t *testing.T) {
	touching := volume.Boxes(6, 6, 4,
		volume.Box{Min: [3]int{1, 1, 0}, Max: [3]int{4, 4, 2}},
		volume.Box{Min: [3]int{2, 2, 2}, Max: [3]int{5, 5, 4}},
	)
	separated := volume.Boxes(6, 6, 5,
		volume.Box{Min: [3]int{1, 1, 0}, Max: [3]int{4, 4, 2}},
		volume.Box{Min: [3]int{2, 2, 3}, Max: [3]int{5, 5, 5}},
	)

	for _, tt := range []struct {
		name string
		vol  *models.Volume
		want int
	}{
		{"touching", touching, 1},
		{"separated", separated, 2},
	} {
		t.Run(tt.name, func(t *testing.T) {
			mesh, _ := labeledSurface(t, tt.vol)
			regions, err := NewPartitioner(zerolog.Nop()).Partition(mesh)
			if err != nil {
				t.Fatal(err)
			}
			if len(regions) != tt.want {
				t.Errorf("Expected %d regions, got %d", tt.want, len(regions))
			}
		})
	}
}

// TestLabelIgnoresLabelField verifies that region ids depend on geometry only
func TestLabelIgnoresLabelField(t *testing.T) {
	vol := volume.Boxes(8, 3, 3,
		volume.Box{Min: [3]int{0, 0, 0}, Max: [3]int{2, 2, 2}},
		volume.Box{Min: [3]int{5, 0, 0}, Max: [3]int{7, 2, 2}},
	)
	mesh, err := surface.VoxelExtractor{}.Extract(vol, surface.DefaultThreshold)
	if err != nil {
		t.Fatal(err)
	}
	labeled, n := Label(mesh)
	if n != 2 {
		t.Fatalf("Expected 2 regions, got %d", n)
	}
	if got := len(labeled.PointData[surface.RegionIDField]); got != mesh.NumVertices() {
		t.Errorf("Expected %d point values, got %d", mesh.NumVertices(), got)
	}
	if _, ok := mesh.CellData[surface.RegionIDField]; ok {
		t.Error("Label modified its input")
	}
}
