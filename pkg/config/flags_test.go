package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
)

func parseFlags(t *testing.T, cfg *Config, args ...string) {
	t.Helper()
	fs := flag.NewFlagSet("voxmesh", flag.ContinueOnError)
	f := RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Failed to parse %v: %v", args, err)
	}
	f.Apply(cfg)
}

// TestFlagsWithoutOutputDisableExport verifies that no export path is
// invented when -output is not given
func TestFlagsWithoutOutputDisableExport(t *testing.T) {
	cfg := DefaultConfig()
	parseFlags(t, cfg)
	if cfg.Output.Path != "" {
		t.Errorf("Expected empty output path, got %q", cfg.Output.Path)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected empty output path to be valid: %v", err)
	}
	if cfg.Render.Show {
		t.Error("Expected headless default")
	}
}

// TestFlagsEmptyOutputInFile verifies that output.path: "" in a file survives
// flag application
func TestFlagsEmptyOutputInFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voxmesh.yaml")
	if err := os.WriteFile(path, []byte("output:\n  path: \"\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	parseFlags(t, cfg, "-workers", "3")
	if cfg.Output.Path != "" {
		t.Errorf("Expected empty output path, got %q", cfg.Output.Path)
	}
	if cfg.Processing.NumWorkers != 3 {
		t.Errorf("Expected 3 workers, got %d", cfg.Processing.NumWorkers)
	}
}

// TestFlagsOverrideOnlyWhenSet verifies that unset flags keep file values
func TestFlagsOverrideOnlyWhenSet(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Output.Path = "from_file.obj"
	cfg.Refinement.Reduction = 0.5
	cfg.Processing.NumWorkers = 2

	parseFlags(t, cfg, "-output", "cli.stl", "-mode", ModeSingle, "-show")
	if cfg.Output.Path != "cli.stl" {
		t.Errorf("Expected cli.stl, got %q", cfg.Output.Path)
	}
	if cfg.Processing.Mode != ModeSingle || !cfg.Render.Show {
		t.Errorf("Expected single mode with viewer, got %q/%v", cfg.Processing.Mode, cfg.Render.Show)
	}
	if cfg.Refinement.Reduction != 0.5 || cfg.Processing.NumWorkers != 2 {
		t.Errorf("Unset flags replaced file values: reduction %g, workers %d",
			cfg.Refinement.Reduction, cfg.Processing.NumWorkers)
	}
}
