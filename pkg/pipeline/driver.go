// Package pipeline turns a voxel volume into one refined mesh per connected
// region: label slices, extract the boundary surface, partition it, refine
// every region, then color, render and export the results in partition order.
package pipeline

import (
	"errors"
	"fmt"
	"image/color"
	"math/rand"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"voxmesh/internal/models"
	"voxmesh/pkg/config"
	"voxmesh/pkg/export"
	"voxmesh/pkg/labeling"
	"voxmesh/pkg/partition"
	"voxmesh/pkg/refine"
	"voxmesh/pkg/surface"
	"voxmesh/pkg/visualization"
)

// Labeler assigns component labels to a volume.
type Labeler interface {
	Label(vol *models.Volume) (*models.LabeledVolume, int, error)
}

// Partitioner splits a surface into connected regions.
type Partitioner interface {
	Partition(mesh *surface.Mesh) ([]partition.Region, error)
}

// Refiner turns one surface patch into a refined mesh.
type Refiner interface {
	Refine(patch *surface.Mesh, iterations int, reduction float64) (*models.RefinedMesh, error)
}

// Exporter persists a refined mesh.
type Exporter interface {
	Export(path string, mesh *models.RefinedMesh) error
}

// Scene receives the refined meshes for rendering.
type Scene interface {
	Add(mesh *models.RefinedMesh)
}

// White is the color of the single-region mesh.
var White = color.NRGBA{R: 255, G: 255, B: 255, A: 255}

// Params holds the pipeline configuration.
type Params struct {
	// Mode is config.ModeMulti or config.ModeSingle
	Mode string

	// NumWorkers bounds concurrent region refinement
	NumWorkers int

	// Labeling backend and connectivity
	LabelBackend string
	Connectivity int
	Foreground   float64

	// Extractor is config.ExtractorVoxel or config.ExtractorMarchingCubes
	Extractor string
	Threshold float64

	SmoothIterations             int
	SingleRegionSmoothIterations int
	Reduction                    float64
	RelaxationFactor             float64

	// OutputPath is the export template, empty disables export
	OutputPath string

	// Seed drives region colors, 0 picks one from the clock
	Seed int64

	SaveIntermediaryResults bool
	IntermediaryDir         string
}

// ParamsFromConfig copies the pipeline settings out of cfg.
func ParamsFromConfig(cfg *config.Config) *Params {
	return &Params{
		Mode:                         cfg.Processing.Mode,
		NumWorkers:                   cfg.Processing.NumWorkers,
		LabelBackend:                 cfg.Labeling.Backend,
		Connectivity:                 cfg.Labeling.Connectivity,
		Foreground:                   cfg.Labeling.Foreground,
		Extractor:                    cfg.Surface.Extractor,
		Threshold:                    cfg.Surface.Threshold,
		SmoothIterations:             cfg.Refinement.SmoothIterations,
		SingleRegionSmoothIterations: cfg.Refinement.SingleRegionSmoothIterations,
		Reduction:                    cfg.Refinement.Reduction,
		RelaxationFactor:             cfg.Refinement.RelaxationFactor,
		OutputPath:                   cfg.Output.Path,
		Seed:                         cfg.Render.Seed,
		SaveIntermediaryResults:      cfg.Output.SaveIntermediaryResults,
		IntermediaryDir:              cfg.Output.IntermediaryDir,
	}
}

// RegionResult reports what happened to one region.
type RegionResult struct {
	// Index is the zero-based partition ordinal
	Index int

	// RegionID is the connectivity id
	RegionID int

	Color color.NRGBA

	// Mesh is nil when the region was skipped
	Mesh *models.RefinedMesh

	// Err is the refinement error of a skipped region
	Err error

	// Path is the exported file, empty when nothing was written
	Path string

	// ExportErr is set when writing Path failed
	ExportErr error

	Metrics Metrics
}

// Skipped reports whether refinement produced no mesh.
func (r *RegionResult) Skipped() bool {
	return r.Mesh == nil
}

// Result summarizes a pipeline run.
type Result struct {
	Mode string

	// Components is the number of labels found by slice labeling
	Components int

	// Regions in partition order, including skipped ones
	Regions []RegionResult

	// Seed is the color seed actually used
	Seed int64

	Elapsed time.Duration
}

// Exported returns the paths written in partition order.
func (r *Result) Exported() []string {
	var paths []string
	for _, reg := range r.Regions {
		if reg.Path != "" && reg.ExportErr == nil {
			paths = append(paths, reg.Path)
		}
	}
	return paths
}

// Meshes returns the refined meshes in partition order.
func (r *Result) Meshes() []*models.RefinedMesh {
	var meshes []*models.RefinedMesh
	for _, reg := range r.Regions {
		if reg.Mesh != nil {
			meshes = append(meshes, reg.Mesh)
		}
	}
	return meshes
}

// Option replaces a collaborator of the driver.
type Option func(d *Driver)

// WithLabeler replaces the slice labeler.
func WithLabeler(l Labeler) Option { return func(d *Driver) { d.labeler = l } }

// WithExtractor replaces the surface extractor.
func WithExtractor(e surface.Extractor) Option { return func(d *Driver) { d.extractor = e } }

// WithPartitioner replaces the region partitioner.
func WithPartitioner(p Partitioner) Option { return func(d *Driver) { d.partitioner = p } }

// WithRefiner replaces the region refiner.
func WithRefiner(r Refiner) Option { return func(d *Driver) { d.refiner = r } }

// WithExporter replaces the mesh exporter.
func WithExporter(e Exporter) Option { return func(d *Driver) { d.exporter = e } }

// WithScene sets the scene meshes are added to.
func WithScene(s Scene) Option { return func(d *Driver) { d.scene = s } }

// Driver runs the pipeline.
type Driver struct {
	params *Params
	logger zerolog.Logger

	labeler     Labeler
	extractor   surface.Extractor
	partitioner Partitioner
	refiner     Refiner
	exporter    Exporter
	scene       Scene
}

// NewDriver creates a driver with the production collaborators selected by
// params, then applies opts.
func NewDriver(params *Params, logger zerolog.Logger, opts ...Option) (*Driver, error) {
	if params.Reduction < 0 || params.Reduction > 1 {
		return nil, fmt.Errorf("%w: reduction %g outside [0, 1]", config.ErrInvalid, params.Reduction)
	}
	d := &Driver{
		params: params,
		logger: logger.With().Str("component", "pipeline").Logger(),
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.labeler == nil {
		sl, err := labeling.NewSliceLabeler(params.LabelBackend, params.Connectivity)
		if err != nil {
			return nil, err
		}
		d.labeler = labeling.NewLabeler(sl, params.Foreground, logger)
	}
	if d.extractor == nil {
		switch params.Extractor {
		case "", config.ExtractorVoxel:
			d.extractor = surface.VoxelExtractor{}
		case config.ExtractorMarchingCubes:
			d.extractor = surface.MarchingCubesExtractor{}
		default:
			return nil, fmt.Errorf("%w: unknown surface extractor %q", config.ErrInvalid, params.Extractor)
		}
	}
	if d.partitioner == nil {
		d.partitioner = partition.NewPartitioner(logger)
	}
	if d.refiner == nil {
		d.refiner = refine.NewRefiner(refine.GeometryKernel{Relaxation: params.RelaxationFactor}, logger)
	}
	if d.exporter == nil {
		d.exporter = export.Exporter{}
	}
	if d.scene == nil {
		d.scene = visualization.NewScene()
	}
	return d, nil
}

// Scene returns the scene meshes were added to.
func (d *Driver) Scene() Scene {
	return d.scene
}

// Process runs the pipeline on vol. It fails only on errors that occur
// before region processing; per-region failures are reported in the result.
func (d *Driver) Process(vol *models.Volume) (*Result, error) {
	start := time.Now()
	if err := vol.Validate(); err != nil {
		return nil, fmt.Errorf("invalid volume: %w", err)
	}
	if d.params.SaveIntermediaryResults {
		if err := os.MkdirAll(d.params.IntermediaryDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create intermediary directory: %w", err)
		}
	}

	var (
		res *Result
		err error
	)
	if d.params.Mode == config.ModeSingle {
		res, err = d.processSingle(vol)
	} else {
		res, err = d.processMulti(vol)
	}
	if err != nil {
		return nil, err
	}
	res.Elapsed = time.Since(start)
	d.logger.Info().
		Str("mode", res.Mode).
		Int("regions", len(res.Regions)).
		Int("exported", len(res.Exported())).
		Dur("elapsed", res.Elapsed).
		Msg("pipeline complete")
	return res, nil
}

func (d *Driver) processMulti(vol *models.Volume) (*Result, error) {
	res := &Result{Mode: config.ModeMulti}

	d.logger.Info().Msg("Step 1: Labeling slices")
	labeled, count, err := d.labeler.Label(vol)
	if err != nil {
		return nil, fmt.Errorf("failed to label volume: %w", err)
	}
	res.Components = count
	if d.params.SaveIntermediaryResults {
		if err := d.saveLabeledSlices(labeled); err != nil {
			d.logger.Warn().Err(err).Msg("failed to save labeled slices")
		}
	}

	d.logger.Info().Int("components", count).Msg("Step 2: Extracting boundary surface")
	mesh, err := d.extractor.Extract(labeled, d.params.Threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to extract surface: %w", err)
	}

	d.logger.Info().Int("faces", mesh.NumFaces()).Msg("Step 3: Partitioning surface into regions")
	regions, err := d.partitioner.Partition(mesh)
	if err != nil {
		return nil, fmt.Errorf("failed to partition surface: %w", err)
	}
	if d.params.SaveIntermediaryResults {
		if err := d.saveRegionPatches(regions); err != nil {
			d.logger.Warn().Err(err).Msg("failed to save region patches")
		}
	}

	// colors are drawn before refinement so they do not depend on scheduling
	res.Seed = d.seed()
	rng := rand.New(rand.NewSource(res.Seed))
	colors := make([]color.NRGBA, len(regions))
	for i := range colors {
		colors[i] = randomColor(rng)
	}

	d.logger.Info().
		Int("regions", len(regions)).
		Int("workers", max(d.params.NumWorkers, 1)).
		Msg("Step 4: Refining regions")
	outcomes := d.refineAll(regions, d.params.SmoothIterations)

	d.logger.Info().Msg("Step 5: Rendering and exporting regions")
	res.Regions = make([]RegionResult, len(regions))
	for i, region := range regions {
		rr := RegionResult{Index: i, RegionID: region.ID, Color: colors[i]}
		out := outcomes[i]
		if out.err != nil {
			rr.Err = out.err
			if errors.Is(out.err, refine.ErrDegenerate) {
				d.logger.Warn().Int("region", i).Msg("skipping degenerate region")
			} else {
				d.logger.Error().Err(out.err).Int("region", i).Msg("region refinement failed, skipping")
			}
			res.Regions[i] = rr
			continue
		}

		m := out.mesh
		m.Index, m.RegionID, m.Color = i, region.ID, colors[i]
		rr.Mesh = m
		rr.Metrics = ComputeMetrics(m)
		d.scene.Add(m)

		if d.params.OutputPath != "" {
			path := export.PathFor(d.params.OutputPath, i)
			if err := d.exporter.Export(path, m); err != nil {
				rr.ExportErr = err
				d.logger.Error().Err(err).Int("region", i).Str("path", path).Msg("export failed")
			} else {
				rr.Path = path
				d.logger.Info().Int("region", i).Str("path", path).Int("triangles", m.NumTriangles()).Msg("region exported")
			}
		}
		res.Regions[i] = rr
	}
	return res, nil
}

func (d *Driver) processSingle(vol *models.Volume) (*Result, error) {
	res := &Result{Mode: config.ModeSingle}

	d.logger.Info().Msg("Step 1: Extracting boundary surface")
	mesh, err := d.extractor.Extract(vol, d.params.Threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to extract surface: %w", err)
	}
	if mesh.IsEmpty() {
		d.logger.Info().Msg("empty surface, nothing to refine")
		return res, nil
	}
	res.Components = 1

	d.logger.Info().
		Int("faces", mesh.NumFaces()).
		Int("iterations", d.params.SingleRegionSmoothIterations).
		Msg("Step 2: Refining surface")
	m, err := d.refiner.Refine(mesh, d.params.SingleRegionSmoothIterations, d.params.Reduction)
	if err != nil {
		return nil, fmt.Errorf("failed to refine surface: %w", err)
	}
	m.Index, m.RegionID, m.Color = 0, 0, White
	rr := RegionResult{Color: White, Mesh: m, Metrics: ComputeMetrics(m)}

	d.logger.Info().Msg("Step 3: Rendering and exporting surface")
	d.scene.Add(m)
	if d.params.OutputPath != "" {
		if err := d.exporter.Export(d.params.OutputPath, m); err != nil {
			return nil, fmt.Errorf("failed to export %s: %w", d.params.OutputPath, err)
		}
		rr.Path = d.params.OutputPath
	}
	res.Regions = []RegionResult{rr}
	return res, nil
}

type refineOutcome struct {
	mesh *models.RefinedMesh
	err  error
}

// refineAll refines every region on at most NumWorkers goroutines. Outcomes
// are stored by region index and a failing region never stops the others.
func (d *Driver) refineAll(regions []partition.Region, iterations int) []refineOutcome {
	out := make([]refineOutcome, len(regions))
	var g errgroup.Group
	g.SetLimit(max(d.params.NumWorkers, 1))
	for i, region := range regions {
		i, region := i, region
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					out[i] = refineOutcome{err: fmt.Errorf("region %d: panic: %v", i, r)}
				}
			}()
			m, err := d.refiner.Refine(region.Patch, iterations, d.params.Reduction)
			out[i] = refineOutcome{mesh: m, err: err}
			return nil
		})
	}
	g.Wait()
	return out
}

func (d *Driver) seed() int64 {
	if d.params.Seed != 0 {
		return d.params.Seed
	}
	return time.Now().UnixNano()
}

func randomColor(rng *rand.Rand) color.NRGBA {
	return color.NRGBA{
		R: uint8(rng.Intn(256)),
		G: uint8(rng.Intn(256)),
		B: uint8(rng.Intn(256)),
		A: 255,
	}
}
