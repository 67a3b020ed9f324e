// Package labeling assigns connected-component labels to the foreground
// voxels of a volume. Each z-slice is labeled on its own in 2D and the local
// labels are shifted by a running offset so every label is unique across the
// whole volume.
package labeling

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"voxmesh/internal/models"
)

// ErrBackendUnavailable is returned when a labeling backend was not compiled
// into the binary.
var ErrBackendUnavailable = errors.New("labeling backend unavailable")

// SliceLabeler labels the foreground pixels of one 2D mask. The mask is row
// major with width*height entries. Returned labels are 0 for background and
// 1..k for foreground, where k is the returned component count.
type SliceLabeler interface {
	LabelSlice(mask []bool, width, height int) ([]uint32, int, error)
}

// NewSliceLabeler returns the backend registered under name.
func NewSliceLabeler(backend string, connectivity int) (SliceLabeler, error) {
	if connectivity != 4 && connectivity != 8 {
		return nil, fmt.Errorf("connectivity must be 4 or 8, got %d", connectivity)
	}
	switch backend {
	case "", "floodfill":
		return &FloodFill{Connectivity: connectivity}, nil
	case "opencv":
		return newOpenCV(connectivity)
	}
	return nil, fmt.Errorf("unknown labeling backend %q", backend)
}

// Labeler labels whole volumes slice by slice.
type Labeler struct {
	slices     SliceLabeler
	foreground float64
	logger     zerolog.Logger
}

// NewLabeler creates a labeler. Voxels with a value above foreground are
// labeled.
func NewLabeler(slices SliceLabeler, foreground float64, logger zerolog.Logger) *Labeler {
	return &Labeler{
		slices:     slices,
		foreground: foreground,
		logger:     logger.With().Str("component", "labeling").Logger(),
	}
}

// Label returns the labeled volume and the number of components. Labels of
// slice z start right after the last label of slice z-1; connectivity is
// never computed across slices.
func (l *Labeler) Label(vol *models.Volume) (*models.LabeledVolume, int, error) {
	if err := vol.Validate(); err != nil {
		return nil, 0, err
	}
	start := time.Now()
	out := models.NewLabeledVolume(vol)

	n := vol.Width * vol.Height
	mask := make([]bool, n)
	offset := 0
	for z := 0; z < vol.Depth; z++ {
		plane := vol.Data[z*n : (z+1)*n]
		for i, v := range plane {
			mask[i] = v > l.foreground
		}

		local, k, err := l.slices.LabelSlice(mask, vol.Width, vol.Height)
		if err != nil {
			return nil, 0, fmt.Errorf("label slice %d: %w", z, err)
		}
		dst := out.SliceLabels(z)
		for i, lbl := range local {
			if lbl > 0 {
				dst[i] = lbl + uint32(offset)
			}
		}
		if k > 0 {
			l.logger.Debug().Int("slice", z).Int("components", k).Msg("labeled slice")
		}
		offset += k
	}

	l.logger.Info().
		Int("slices", vol.Depth).
		Int("components", offset).
		Dur("elapsed", time.Since(start)).
		Msg("labeling complete")
	return out, offset, nil
}

// FloodFill is a breadth-first 2D labeler.
type FloodFill struct {
	// Connectivity is 4 or 8
	Connectivity int
}

var (
	dx8 = []int{-1, 0, 1, -1, 1, -1, 0, 1}
	dy8 = []int{-1, -1, -1, 0, 0, 1, 1, 1}
	dx4 = []int{0, -1, 1, 0}
	dy4 = []int{-1, 0, 0, 1}
)

// LabelSlice implements SliceLabeler. Components are numbered in raster order
// of their first pixel.
func (f *FloodFill) LabelSlice(mask []bool, w, h int) ([]uint32, int, error) {
	if len(mask) != w*h {
		return nil, 0, fmt.Errorf("mask has %d pixels, want %d", len(mask), w*h)
	}
	dx, dy := dx8, dy8
	if f.Connectivity == 4 {
		dx, dy = dx4, dy4
	}

	labels := make([]uint32, w*h)
	queue := make([]int, 0, 1024)
	var next uint32

	for idx, set := range mask {
		if !set || labels[idx] != 0 {
			continue
		}
		next++
		labels[idx] = next
		queue = append(queue[:0], idx)
		for len(queue) > 0 {
			curr := queue[0]
			queue = queue[1:]
			cy, cx := curr/w, curr%w
			for d := range dx {
				nx, ny := cx+dx[d], cy+dy[d]
				if nx < 0 || nx >= w || ny < 0 || ny >= h {
					continue
				}
				ni := ny*w + nx
				if mask[ni] && labels[ni] == 0 {
					labels[ni] = next
					queue = append(queue, ni)
				}
			}
		}
	}
	return labels, int(next), nil
}
