// Package visualization renders pipeline artefacts: color-coded slices of a
// labeled volume and offscreen snapshots of the refined region meshes.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"voxmesh/internal/models"
)

// Viewer extracts 2D slices from a labeled volume. Every label gets a stable
// color, background stays black.
type Viewer struct {
	labels *models.LabeledVolume
}

// NewViewer creates a new slice viewer
func NewViewer(labels *models.LabeledVolume) *Viewer {
	return &Viewer{labels: labels}
}

// LabelColor returns the display color of a component label.
func LabelColor(label uint32) color.NRGBA {
	if label == 0 {
		return color.NRGBA{A: 255}
	}
	// Knuth multiplicative hash spreads neighbouring labels apart
	h := label * 2654435761
	return color.NRGBA{
		R: 64 + uint8(h>>24)%192,
		G: 64 + uint8(h>>16)%192,
		B: 64 + uint8(h>>8)%192,
		A: 255,
	}
}

// ExtractSlice extracts a 2D slice from the labeled volume along the
// specified axis
func (v *Viewer) ExtractSlice(axis string, position int) (image.Image, error) {
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}
	l := v.labels

	var img *image.NRGBA
	switch axis {
	case "x", "X":
		// YZ plane
		if position >= l.Width {
			return nil, fmt.Errorf("position %d exceeds width %d", position, l.Width)
		}
		img = image.NewNRGBA(image.Rect(0, 0, l.Depth, l.Height))
		for y := 0; y < l.Height; y++ {
			for z := 0; z < l.Depth; z++ {
				img.SetNRGBA(z, y, LabelColor(l.At(position, y, z)))
			}
		}

	case "y", "Y":
		// XZ plane
		if position >= l.Height {
			return nil, fmt.Errorf("position %d exceeds height %d", position, l.Height)
		}
		img = image.NewNRGBA(image.Rect(0, 0, l.Width, l.Depth))
		for z := 0; z < l.Depth; z++ {
			for x := 0; x < l.Width; x++ {
				img.SetNRGBA(x, z, LabelColor(l.At(x, position, z)))
			}
		}

	case "z", "Z":
		// XY plane
		if position >= l.Depth {
			return nil, fmt.Errorf("position %d exceeds depth %d", position, l.Depth)
		}
		img = image.NewNRGBA(image.Rect(0, 0, l.Width, l.Height))
		for y := 0; y < l.Height; y++ {
			for x := 0; x < l.Width; x++ {
				img.SetNRGBA(x, y, LabelColor(l.At(x, y, position)))
			}
		}

	default:
		return nil, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	return img, nil
}

// SaveSlice saves an extracted slice as a PNG image
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := png.Encode(file, img); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// SaveSliceSequence extracts and saves a sequence of slices along the specified axis
func (v *Viewer) SaveSliceSequence(axis string, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	var maxPos int
	switch axis {
	case "x", "X":
		maxPos = v.labels.Width
	case "y", "Y":
		maxPos = v.labels.Height
	case "z", "Z":
		maxPos = v.labels.Depth
	default:
		return fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	for pos := 0; pos < maxPos; pos++ {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.png", axis, pos))
		if err := v.SaveSlice(img, filename); err != nil {
			return err
		}
	}

	return nil
}
