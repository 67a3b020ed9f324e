package config

import (
	"flag"
	"runtime"
)

// Flags holds the command-line overrides of a Config. Only flags that were
// set on the command line replace configuration values.
type Flags struct {
	fs *flag.FlagSet

	output           string
	mode             string
	extractor        string
	workers          int
	reduction        float64
	seed             int64
	render           string
	show             bool
	saveIntermediary bool
}

// RegisterFlags defines the override flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	fs.StringVar(&f.output, "output", "", "Output mesh path, .stl or .obj; regions are written as <base>_<idx><ext> (default: no export)")
	fs.StringVar(&f.mode, "mode", ModeMulti, "Pipeline mode: multi or single")
	fs.StringVar(&f.extractor, "extractor", ExtractorVoxel, "Surface extractor: voxel or marching-cubes")
	fs.IntVar(&f.workers, "workers", runtime.NumCPU(), "Number of regions refined concurrently")
	fs.Float64Var(&f.reduction, "reduction", 0.9, "Fraction of triangles removed by decimation")
	fs.Int64Var(&f.seed, "seed", 0, "Region color seed, 0 picks a fresh one")
	fs.StringVar(&f.render, "render", "", "Save a PNG snapshot of the scene")
	fs.BoolVar(&f.show, "show", false, "Open the interactive viewer")
	fs.BoolVar(&f.saveIntermediary, "save-intermediary", false, "Save labeled slices and region patches")
	return f
}

// Apply copies the explicitly set flags into cfg.
func (f *Flags) Apply(cfg *Config) {
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "output":
			cfg.Output.Path = f.output
		case "mode":
			cfg.Processing.Mode = f.mode
		case "extractor":
			cfg.Surface.Extractor = f.extractor
		case "workers":
			cfg.Processing.NumWorkers = f.workers
		case "reduction":
			cfg.Refinement.Reduction = f.reduction
		case "seed":
			cfg.Render.Seed = f.seed
		case "render":
			cfg.Render.Path = f.render
		case "show":
			cfg.Render.Show = f.show
		case "save-intermediary":
			cfg.Output.SaveIntermediaryResults = f.saveIntermediary
		}
	})
}
