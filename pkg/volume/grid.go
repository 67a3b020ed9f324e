package volume

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"

	"voxmesh/internal/models"
)

// ReadGrid reads a volume encoded as a JSON array with z on the outer
// dimension, then y, then x. Every row and plane must have the same length.
func ReadGrid(r io.Reader) (*models.Volume, error) {
	var object [][][]float64
	dec := json.NewDecoder(r)
	if err := dec.Decode(&object); err != nil {
		return nil, errors.Wrap(err, "read voxel grid")
	}
	depth := len(object)
	if depth == 0 || len(object[0]) == 0 || len(object[0][0]) == 0 {
		return nil, errors.Wrap(ErrNoSlices, "read voxel grid")
	}
	height, width := len(object[0]), len(object[0][0])

	vol := models.NewVolume(width, height, depth)
	for z, plane := range object {
		if len(plane) != height {
			return nil, errors.New("read voxel grid: invalid dimensions")
		}
		for y, row := range plane {
			if len(row) != width {
				return nil, errors.New("read voxel grid: invalid dimensions")
			}
			copy(vol.Data[vol.Index(0, y, z):], row)
		}
	}
	return vol, nil
}

// WriteGrid encodes vol in the format read by ReadGrid.
func WriteGrid(w io.Writer, vol *models.Volume) error {
	object := make([][][]float64, vol.Depth)
	for z := range object {
		object[z] = make([][]float64, vol.Height)
		for y := range object[z] {
			start := vol.Index(0, y, z)
			object[z][y] = vol.Data[start : start+vol.Width]
		}
	}
	return errors.Wrap(json.NewEncoder(w).Encode(object), "write voxel grid")
}
