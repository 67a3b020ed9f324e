// Package volume acquires dense voxel grids from slice images, multi-page
// TIFF stacks and JSON grids, or synthesizes them for tests and demos.
package volume

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	_ "golang.org/x/image/tiff"

	"voxmesh/internal/models"
)

var (
	// ErrNoSlices is returned when a source holds no decodable page.
	ErrNoSlices = errors.New("no slices found")

	// ErrShapeMismatch is returned when pages of one stack differ in size.
	ErrShapeMismatch = errors.New("slice dimensions differ")
)

var sliceExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".tif":  true,
	".tiff": true,
}

// Load reads a volume from path. Directories are read as one slice per
// image file, .tif/.tiff files as multi-page stacks, .json files as voxel
// grids and any other image file as a single slice.
func Load(path string) (*models.Volume, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, "load volume")
	}
	if info.IsDir() {
		return LoadSliceDir(path)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tif", ".tiff":
		return LoadTIFFStack(path)
	case ".json":
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrap(err, "load volume")
		}
		defer f.Close()
		return ReadGrid(f)
	}
	img, err := loadImage(path)
	if err != nil {
		return nil, err
	}
	return FromSlices([]models.Slice{{Image: img, Filename: filepath.Base(path)}})
}

// LoadSliceDir loads every slice image in dir, ordered by the number embedded
// in the file name. The ordering keeps the stack in acquisition order for
// names like slice_2.png and slice_10.png.
func LoadSliceDir(dir string) (*models.Volume, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "read slice directory")
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if sliceExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%s: %w", dir, ErrNoSlices)
	}

	sort.Slice(names, func(i, j int) bool {
		ni, nj := extractNumber(names[i]), extractNumber(names[j])
		if ni != nj {
			return ni < nj
		}
		return names[i] < names[j]
	})

	slices := make([]models.Slice, 0, len(names))
	for i, name := range names {
		img, err := loadImage(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		slices = append(slices, models.Slice{Image: img, Index: i, Filename: name})
	}
	return FromSlices(slices)
}

// FromSlices stacks decoded pages along z. Color pages are reduced to
// luminosity.
func FromSlices(slices []models.Slice) (*models.Volume, error) {
	if len(slices) == 0 {
		return nil, ErrNoSlices
	}
	bounds := slices[0].Image.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	vol := models.NewVolume(width, height, len(slices))
	n := width * height
	for z, s := range slices {
		b := s.Image.Bounds()
		if b.Dx() != width || b.Dy() != height {
			return nil, fmt.Errorf("slice %d (%s) is %dx%d, want %dx%d: %w",
				z, s.Filename, b.Dx(), b.Dy(), width, height, ErrShapeMismatch)
		}
		copy(vol.Data[z*n:(z+1)*n], imageToGray(s.Image))
	}
	return vol, nil
}

// extractNumber extracts the numeric part from a filename
func extractNumber(filename string) int {
	base := filepath.Base(filename)
	numStr := ""
	for _, c := range base {
		if c >= '0' && c <= '9' {
			numStr += string(c)
		}
	}

	if numStr != "" {
		num, err := strconv.Atoi(numStr)
		if err == nil {
			return num
		}
	}
	return 0
}

func loadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open slice")
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, errors.Wrapf(err, "decode slice %s", filepath.Base(path))
	}
	return img, nil
}

// imageToGray returns the intensities of img in its native range: 0-255 for
// 8-bit pages, 0-65535 for 16-bit grayscale.
func imageToGray(img image.Image) []float64 {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	out := make([]float64, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			px := img.At(b.Min.X+x, b.Min.Y+y)
			var v float64
			switch c := px.(type) {
			case color.Gray:
				v = float64(c.Y)
			case color.Gray16:
				v = float64(c.Y)
			default:
				r, g, bl, _ := px.RGBA()
				v = 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(bl>>8)
			}
			out[y*width+x] = v
		}
	}
	return out
}
