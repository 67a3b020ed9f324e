package visualization

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/plot/cmpimg"

	"voxmesh/internal/models"
)

// testLabels returns a labeled volume where every z slice holds its own label
// in the left half.
func testLabels(width, height, depth int) *models.LabeledVolume {
	l := models.NewLabeledVolume(models.NewVolume(width, height, depth))
	for z := 0; z < depth; z++ {
		for y := 0; y < height; y++ {
			for x := 0; x < width/2; x++ {
				l.Labels[l.Index(x, y, z)] = uint32(z + 1)
			}
		}
	}
	return l
}

// TestExtractSlice verifies that slices are correctly extracted from the volume
func TestExtractSlice(t *testing.T) {
	width, height, depth := 10, 8, 5
	viewer := NewViewer(testLabels(width, height, depth))

	for z := 0; z < depth; z++ {
		img, err := viewer.ExtractSlice("z", z)
		if err != nil {
			t.Fatalf("Failed to extract Z slice at position %d: %v", z, err)
		}
		bounds := img.Bounds()
		if bounds.Dx() != width || bounds.Dy() != height {
			t.Errorf("Expected Z slice dimensions %dx%d, got %dx%d", width, height, bounds.Dx(), bounds.Dy())
		}
		if got := color.NRGBAModel.Convert(img.At(0, 0)); got != LabelColor(uint32(z+1)) {
			t.Errorf("Expected label color at z=%d, got %v", z, got)
		}
		if got := color.NRGBAModel.Convert(img.At(width-1, 0)); got != LabelColor(0) {
			t.Errorf("Expected background at z=%d, got %v", z, got)
		}
	}

	img, err := viewer.ExtractSlice("x", 0)
	if err != nil {
		t.Fatalf("Failed to extract X slice: %v", err)
	}
	if img.Bounds().Dx() != depth || img.Bounds().Dy() != height {
		t.Errorf("Expected X slice dimensions %dx%d, got %v", depth, height, img.Bounds())
	}

	img, err = viewer.ExtractSlice("y", 0)
	if err != nil {
		t.Fatalf("Failed to extract Y slice: %v", err)
	}
	if img.Bounds().Dx() != width || img.Bounds().Dy() != depth {
		t.Errorf("Expected Y slice dimensions %dx%d, got %v", width, depth, img.Bounds())
	}

	for _, tc := range []struct {
		axis string
		pos  int
	}{{"z", depth}, {"x", -1}, {"w", 0}} {
		if _, err := viewer.ExtractSlice(tc.axis, tc.pos); err == nil {
			t.Errorf("Expected error for axis %s position %d", tc.axis, tc.pos)
		}
	}
}

// TestLabelColorDistinct verifies that neighbouring labels get different colors
func TestLabelColorDistinct(t *testing.T) {
	if LabelColor(0) != (color.NRGBA{A: 255}) {
		t.Errorf("Expected black background, got %v", LabelColor(0))
	}
	for l := uint32(1); l < 64; l++ {
		if LabelColor(l) == LabelColor(l+1) {
			t.Errorf("Labels %d and %d share a color", l, l+1)
		}
	}
}

// TestSaveSliceSequence verifies that one PNG per slice is written
func TestSaveSliceSequence(t *testing.T) {
	viewer := NewViewer(testLabels(6, 4, 3))
	outputDir := filepath.Join(t.TempDir(), "slices")

	if err := viewer.SaveSliceSequence("z", outputDir); err != nil {
		t.Fatalf("Failed to save slice sequence: %v", err)
	}
	for z := 0; z < 3; z++ {
		filename := filepath.Join(outputDir, fmt.Sprintf("slice_z_%03d.png", z))
		f, err := os.Open(filename)
		if err != nil {
			t.Fatalf("Expected file %s: %v", filename, err)
		}
		img, err := png.Decode(f)
		f.Close()
		if err != nil {
			t.Fatalf("Failed to decode %s: %v", filename, err)
		}
		if img.Bounds() != image.Rect(0, 0, 6, 4) {
			t.Errorf("Unexpected bounds %v", img.Bounds())
		}
	}

	if err := viewer.SaveSliceSequence("q", outputDir); err == nil {
		t.Error("Expected error for invalid axis")
	}
}

func cube(index int, at r3.Vec, c color.NRGBA) *models.RefinedMesh {
	m := &models.RefinedMesh{Index: index, Color: c}
	for i := 0; i < 8; i++ {
		m.Vertices = append(m.Vertices, r3.Add(at, r3.Vec{
			X: float64(i & 1), Y: float64(i >> 1 & 1), Z: float64(i >> 2 & 1),
		}))
	}
	m.Triangles = [][3]int{
		{0, 2, 1}, {1, 2, 3}, {4, 5, 6}, {5, 7, 6},
		{0, 1, 4}, {1, 5, 4}, {2, 6, 3}, {3, 6, 7},
		{0, 4, 2}, {2, 4, 6}, {1, 3, 5}, {3, 7, 5},
	}
	return m
}

// TestSceneRender verifies that meshes are drawn in their colors and that
// rendering is repeatable
func TestSceneRender(t *testing.T) {
	scene := NewScene()
	scene.Add(cube(1, r3.Vec{X: 3}, color.NRGBA{R: 255, A: 255}))
	scene.Add(cube(0, r3.Vec{}, color.NRGBA{G: 255, A: 255}))
	scene.Add(&models.RefinedMesh{Index: 5})
	if scene.Len() != 2 {
		t.Fatalf("Expected 2 meshes, got %d", scene.Len())
	}
	if idx := scene.Indices(); idx[0] != 0 || idx[1] != 1 {
		t.Errorf("Expected ascending indices, got %v", idx)
	}

	opts := RenderOptions{Width: 160, Height: 120, Supersample: 2, Camera: DefaultCamera}
	img := scene.Render(opts)
	if img.Bounds().Dx() != 160 || img.Bounds().Dy() != 120 {
		t.Fatalf("Unexpected image size %v", img.Bounds())
	}

	var reddish, greenish int
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			if r > 2*g && r > 2*bl && r > 0x4000 {
				reddish++
			}
			if g > 2*r && g > 2*bl && g > 0x4000 {
				greenish++
			}
		}
	}
	if reddish == 0 || greenish == 0 {
		t.Errorf("Expected both region colors, got %d red and %d green pixels", reddish, greenish)
	}

	var b1, b2 bytes.Buffer
	if err := png.Encode(&b1, img); err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(&b2, scene.Render(opts)); err != nil {
		t.Fatal(err)
	}
	equal, err := cmpimg.EqualApprox("png", b1.Bytes(), b2.Bytes(), 0.01)
	if err != nil {
		t.Fatal(err)
	}
	if !equal {
		t.Error("Expected repeated renders to match")
	}
}

// TestSceneEmpty verifies that an empty scene renders the background
func TestSceneEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.png")
	bg := color.NRGBA{R: 10, G: 20, B: 30, A: 255}
	if err := NewScene().SavePNG(path, RenderOptions{Width: 32, Height: 16, Background: bg}); err != nil {
		t.Fatalf("Failed to save render: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	got := color.NRGBAModel.Convert(img.At(5, 5)).(color.NRGBA)
	near := func(a, b uint8) bool { return a+1 >= b && b+1 >= a }
	if !near(got.R, bg.R) || !near(got.G, bg.G) || !near(got.B, bg.B) {
		t.Errorf("Expected background %v, got %v", bg, got)
	}
}
