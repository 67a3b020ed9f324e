package config

import (
	"errors"
	"path/filepath"
	"testing"
)

// TestDefaultConfigIsValid verifies that the defaults pass validation
func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config failed validation: %v", err)
	}
	if cfg.Refinement.Reduction != 0.9 {
		t.Errorf("Expected default reduction 0.9, got %g", cfg.Refinement.Reduction)
	}
	if cfg.Refinement.SmoothIterations != 5 || cfg.Refinement.SingleRegionSmoothIterations != 10 {
		t.Errorf("Unexpected smoothing defaults %d/%d",
			cfg.Refinement.SmoothIterations, cfg.Refinement.SingleRegionSmoothIterations)
	}
}

// TestValidateRejects verifies that out of range settings are reported
func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"reduction above one", func(c *Config) { c.Refinement.Reduction = 1.5 }},
		{"negative reduction", func(c *Config) { c.Refinement.Reduction = -0.1 }},
		{"bad mode", func(c *Config) { c.Processing.Mode = "both" }},
		{"zero workers", func(c *Config) { c.Processing.NumWorkers = 0 }},
		{"connectivity 6", func(c *Config) { c.Labeling.Connectivity = 6 }},
		{"unknown backend", func(c *Config) { c.Labeling.Backend = "magic" }},
		{"unknown extractor", func(c *Config) { c.Surface.Extractor = "dual-contouring" }},
		{"unsupported export", func(c *Config) { c.Output.Path = "mesh.fbx" }},
		{"zero render width", func(c *Config) { c.Render.Width = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("Expected ErrInvalid, got %v", err)
			}
		})
	}
}

// TestValidateAcceptsBoundaries verifies the closed reduction interval
func TestValidateAcceptsBoundaries(t *testing.T) {
	for _, r := range []float64{0, 1} {
		cfg := DefaultConfig()
		cfg.Refinement.Reduction = r
		cfg.Output.Path = "out/Shape.STL"
		if err := cfg.Validate(); err != nil {
			t.Errorf("Reduction %g rejected: %v", r, err)
		}
	}
}

// TestSaveLoadConfig verifies that a saved configuration is read back
func TestSaveLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "voxmesh.yaml")

	cfg := DefaultConfig()
	cfg.Processing.Mode = ModeSingle
	cfg.Refinement.Reduction = 0.5
	cfg.Render.Seed = 42
	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if loaded.Processing.Mode != ModeSingle {
		t.Errorf("Expected mode %q, got %q", ModeSingle, loaded.Processing.Mode)
	}
	if loaded.Refinement.Reduction != 0.5 {
		t.Errorf("Expected reduction 0.5, got %g", loaded.Refinement.Reduction)
	}
	if loaded.Render.Seed != 42 {
		t.Errorf("Expected seed 42, got %d", loaded.Render.Seed)
	}
}

// TestLoadMissingConfig verifies that a missing file yields defaults
func TestLoadMissingConfig(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.Surface.Threshold != 0.5 {
		t.Errorf("Expected default threshold 0.5, got %g", cfg.Surface.Threshold)
	}
}
