//go:build opencv

package labeling

import (
	"fmt"

	"gocv.io/x/gocv"
)

// OpenCV labels slices with cv::connectedComponentsWithAlgorithm.
type OpenCV struct {
	Connectivity int
}

func newOpenCV(connectivity int) (SliceLabeler, error) {
	return &OpenCV{Connectivity: connectivity}, nil
}

// LabelSlice implements SliceLabeler.
func (o *OpenCV) LabelSlice(mask []bool, w, h int) ([]uint32, int, error) {
	if len(mask) != w*h {
		return nil, 0, fmt.Errorf("mask has %d pixels, want %d", len(mask), w*h)
	}
	data := make([]byte, w*h)
	for i, set := range mask {
		if set {
			data[i] = 255
		}
	}
	src, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC1, data)
	if err != nil {
		return nil, 0, fmt.Errorf("create mask mat: %w", err)
	}
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()

	n := gocv.ConnectedComponentsWithParams(src, &dst, o.Connectivity, gocv.MatTypeCV32S, gocv.CCL_DEFAULT)

	// OpenCV numbers components in scan order, background included in n.
	labels := make([]uint32, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if v := dst.GetIntAt(y, x); v > 0 {
				labels[y*w+x] = uint32(v)
			}
		}
	}
	return labels, max(n-1, 0), nil
}
