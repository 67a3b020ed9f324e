package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"voxmesh/internal/models"
	"voxmesh/pkg/export"
	"voxmesh/pkg/partition"
	"voxmesh/pkg/visualization"
)

// Intermediary result stages.
const (
	StageLabeledSlices = "01_labeled_slices"
	StageRegionPatches = "02_region_patches"
)

// saveLabeledSlices writes one color-coded PNG per z slice.
func (d *Driver) saveLabeledSlices(labeled *models.LabeledVolume) error {
	dir := filepath.Join(d.params.IntermediaryDir, StageLabeledSlices)
	d.logger.Debug().Str("dir", dir).Msg("saving labeled slices")
	return visualization.NewViewer(labeled).SaveSliceSequence("z", dir)
}

// saveRegionPatches writes the untriangulated patch of every region as OBJ.
func (d *Driver) saveRegionPatches(regions []partition.Region) error {
	dir := filepath.Join(d.params.IntermediaryDir, StageRegionPatches)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create intermediary directory: %w", err)
	}
	d.logger.Debug().Str("dir", dir).Int("regions", len(regions)).Msg("saving region patches")
	for _, r := range regions {
		path := filepath.Join(dir, fmt.Sprintf("region_%03d.obj", r.ID))
		if err := export.WritePatch(path, r.Patch); err != nil {
			return fmt.Errorf("region %d: %w", r.ID, err)
		}
	}
	return nil
}
