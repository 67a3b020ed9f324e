package models

import (
	"fmt"
	"image"
)

// Spacing is the physical size of a voxel along each axis.
type Spacing struct {
	X, Y, Z float64
}

// UnitSpacing is the spacing used when the source carries no physical size.
var UnitSpacing = Spacing{X: 1, Y: 1, Z: 1}

// Slice represents a single 2D page of an acquired stack with metadata
type Slice struct {
	// Image is the decoded page
	Image image.Image

	// Index is the position of this slice in the sequence
	Index int

	// Filename is the file the page came from
	Filename string
}

// Volume is a dense 3D scalar grid, immutable once acquired.
type Volume struct {
	// Data holds intensities in row-major order, index z*W*H + y*W + x
	Data []float64

	// Width is the number of voxels along x
	Width int

	// Height is the number of voxels along y
	Height int

	// Depth is the number of slices along z
	Depth int

	// VoxelSize is the physical size of each voxel
	VoxelSize Spacing
}

// NewVolume allocates a zeroed volume of the given shape with unit spacing.
func NewVolume(width, height, depth int) *Volume {
	return &Volume{
		Data:      make([]float64, width*height*depth),
		Width:     width,
		Height:    height,
		Depth:     depth,
		VoxelSize: UnitSpacing,
	}
}

// Index returns the flat offset of voxel (x, y, z).
func (v *Volume) Index(x, y, z int) int {
	return z*v.Width*v.Height + y*v.Width + x
}

// At returns the value of voxel (x, y, z).
func (v *Volume) At(x, y, z int) float64 {
	return v.Data[v.Index(x, y, z)]
}

// Set writes the value of voxel (x, y, z).
func (v *Volume) Set(x, y, z int, value float64) {
	v.Data[v.Index(x, y, z)] = value
}

// Dims returns width, height and depth.
func (v *Volume) Dims() (int, int, int) {
	return v.Width, v.Height, v.Depth
}

// Value implements the scalar field used by surface extraction.
func (v *Volume) Value(x, y, z int) float64 {
	return v.At(x, y, z)
}

// Spacing returns the voxel size.
func (v *Volume) Spacing() Spacing {
	return v.VoxelSize
}

// Validate checks that the shape and the data length agree.
func (v *Volume) Validate() error {
	if v.Width < 0 || v.Height < 0 || v.Depth < 0 {
		return fmt.Errorf("negative volume shape %dx%dx%d", v.Width, v.Height, v.Depth)
	}
	if len(v.Data) != v.Width*v.Height*v.Depth {
		return fmt.Errorf("volume data length %d does not match shape %dx%dx%d",
			len(v.Data), v.Width, v.Height, v.Depth)
	}
	return nil
}

// LabeledVolume has the shape of a Volume and stores a component label per
// voxel. Zero is background. Positive labels are unique across the whole
// volume and compacted from 1.
type LabeledVolume struct {
	// Labels in the same row-major order as Volume.Data
	Labels []uint32

	Width, Height, Depth int

	VoxelSize Spacing
}

// NewLabeledVolume allocates an all-background labeled volume shaped like v.
func NewLabeledVolume(v *Volume) *LabeledVolume {
	return &LabeledVolume{
		Labels:    make([]uint32, len(v.Data)),
		Width:     v.Width,
		Height:    v.Height,
		Depth:     v.Depth,
		VoxelSize: v.VoxelSize,
	}
}

// Index returns the flat offset of voxel (x, y, z).
func (l *LabeledVolume) Index(x, y, z int) int {
	return z*l.Width*l.Height + y*l.Width + x
}

// At returns the label of voxel (x, y, z).
func (l *LabeledVolume) At(x, y, z int) uint32 {
	return l.Labels[l.Index(x, y, z)]
}

// Dims returns width, height and depth.
func (l *LabeledVolume) Dims() (int, int, int) {
	return l.Width, l.Height, l.Depth
}

// Value implements the scalar field used by surface extraction.
func (l *LabeledVolume) Value(x, y, z int) float64 {
	return float64(l.At(x, y, z))
}

// Spacing returns the voxel size.
func (l *LabeledVolume) Spacing() Spacing {
	return l.VoxelSize
}

// SliceLabels returns the labels of slice z without copying.
func (l *LabeledVolume) SliceLabels(z int) []uint32 {
	n := l.Width * l.Height
	return l.Labels[z*n : (z+1)*n]
}

// MaxLabel returns the largest label present, 0 for an empty volume.
func (l *LabeledVolume) MaxLabel() uint32 {
	var max uint32
	for _, lbl := range l.Labels {
		if lbl > max {
			max = lbl
		}
	}
	return max
}

// Binary returns a volume with 1 wherever a voxel is labeled.
func (l *LabeledVolume) Binary() *Volume {
	v := &Volume{
		Data:      make([]float64, len(l.Labels)),
		Width:     l.Width,
		Height:    l.Height,
		Depth:     l.Depth,
		VoxelSize: l.VoxelSize,
	}
	for i, lbl := range l.Labels {
		if lbl > 0 {
			v.Data[i] = 1
		}
	}
	return v
}
