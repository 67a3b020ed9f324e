package volume

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"golang.org/x/image/tiff"

	"voxmesh/internal/models"
)

// LoadTIFFStack reads every page of a multi-page TIFF file as one z-slice.
func LoadTIFFStack(path string) (*models.Volume, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read tiff stack")
	}
	vol, err := DecodeTIFFStack(data)
	if err != nil {
		return nil, errors.Wrap(err, filepath.Base(path))
	}
	return vol, nil
}

// DecodeTIFFStack decodes all pages of an in-memory TIFF file.
//
// The tiff decoder only reads the first image file directory, so each page is
// decoded by pointing the header's first-IFD offset at that page's directory.
func DecodeTIFFStack(data []byte) (*models.Volume, error) {
	offsets, err := tiffPageOffsets(data)
	if err != nil {
		return nil, err
	}
	if len(offsets) == 0 {
		return nil, ErrNoSlices
	}

	order := tiffByteOrder(data)
	buf := make([]byte, len(data))
	copy(buf, data)

	slices := make([]models.Slice, 0, len(offsets))
	for i, off := range offsets {
		order.PutUint32(buf[4:8], off)
		img, err := tiff.Decode(bytes.NewReader(buf))
		if err != nil {
			return nil, errors.Wrapf(err, "decode tiff page %d", i)
		}
		slices = append(slices, models.Slice{Image: img, Index: i, Filename: fmt.Sprintf("page %d", i)})
	}
	return FromSlices(slices)
}

func tiffByteOrder(data []byte) binary.ByteOrder {
	if len(data) >= 2 && data[0] == 'M' && data[1] == 'M' {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// tiffPageOffsets walks the chain of image file directories.
func tiffPageOffsets(data []byte) ([]uint32, error) {
	if len(data) < 8 {
		return nil, errors.New("tiff: file too short")
	}
	if !(data[0] == 'I' && data[1] == 'I') && !(data[0] == 'M' && data[1] == 'M') {
		return nil, errors.New("tiff: bad byte order marker")
	}
	order := tiffByteOrder(data)
	if magic := order.Uint16(data[2:4]); magic != 42 {
		return nil, errors.Errorf("tiff: unsupported magic %d", magic)
	}

	var offsets []uint32
	seen := make(map[uint32]bool)
	off := order.Uint32(data[4:8])
	for off != 0 {
		if seen[off] {
			return nil, errors.New("tiff: directory chain loops")
		}
		seen[off] = true
		start := int(off)
		if start+2 > len(data) {
			return nil, errors.Errorf("tiff: directory offset %d out of range", off)
		}
		entries := int(order.Uint16(data[start : start+2]))
		next := start + 2 + 12*entries
		if next+4 > len(data) {
			return nil, errors.Errorf("tiff: truncated directory at %d", off)
		}
		offsets = append(offsets, off)
		off = order.Uint32(data[next : next+4])
	}
	return offsets, nil
}
