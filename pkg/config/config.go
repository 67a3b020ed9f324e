// Package config provides configuration loading and management for voxmesh.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Pipeline modes.
const (
	ModeMulti  = "multi"
	ModeSingle = "single"
)

// Surface extractors.
const (
	ExtractorVoxel         = "voxel"
	ExtractorMarchingCubes = "marching-cubes"
)

// Labeling backends.
const (
	BackendFloodFill = "floodfill"
	BackendOpenCV    = "opencv"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// Mode selects the multi-region or the single-region pipeline
		Mode string `yaml:"mode"`

		// NumWorkers bounds concurrent region refinement, 1 is sequential
		NumWorkers int `yaml:"numWorkers"`
	} `yaml:"processing"`

	// Labeling parameters
	Labeling struct {
		// Backend is the 2D connected-component implementation
		Backend string `yaml:"backend"`

		// Connectivity is 4 or 8
		Connectivity int `yaml:"connectivity"`

		// Foreground is the intensity a voxel must exceed to be labeled
		Foreground float64 `yaml:"foreground"`
	} `yaml:"labeling"`

	// Surface extraction parameters
	Surface struct {
		// Extractor is voxel or marching-cubes
		Extractor string `yaml:"extractor"`

		// Threshold separates absent from present voxels
		Threshold float64 `yaml:"threshold"`
	} `yaml:"surface"`

	// Refinement parameters
	Refinement struct {
		// SmoothIterations is used per region in multi-region mode
		SmoothIterations int `yaml:"smoothIterations"`

		// SingleRegionSmoothIterations is used in single-region mode
		SingleRegionSmoothIterations int `yaml:"singleRegionSmoothIterations"`

		// Reduction is the fraction of triangles decimation removes
		Reduction float64 `yaml:"reduction"`

		// RelaxationFactor scales each Laplacian smoothing step
		RelaxationFactor float64 `yaml:"relaxationFactor"`
	} `yaml:"refinement"`

	// Output parameters
	Output struct {
		// Path is the mesh export template, empty disables export
		Path string `yaml:"path"`

		// SaveIntermediaryResults saves labeled slices and region patches
		SaveIntermediaryResults bool `yaml:"saveIntermediaryResults"`

		// IntermediaryDir receives the intermediary results
		IntermediaryDir string `yaml:"intermediaryDir"`

		// Verbose enables the per-region summary table
		Verbose bool `yaml:"verbose"`

		// LogLevel is a zerolog level name
		LogLevel string `yaml:"logLevel"`
	} `yaml:"output"`

	// Render parameters
	Render struct {
		// Path is the PNG snapshot destination, empty disables it
		Path string `yaml:"path"`

		Width  int `yaml:"width"`
		Height int `yaml:"height"`

		// Supersample renders larger and downscales for antialiasing
		Supersample int `yaml:"supersample"`

		// Seed drives region colors, 0 picks a fresh seed every run
		Seed int64 `yaml:"seed"`

		// Show opens the interactive viewer
		Show bool `yaml:"show"`
	} `yaml:"render"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.Mode = ModeMulti
	cfg.Processing.NumWorkers = 1

	cfg.Labeling.Backend = BackendFloodFill
	cfg.Labeling.Connectivity = 8
	cfg.Labeling.Foreground = 0

	cfg.Surface.Extractor = ExtractorVoxel
	cfg.Surface.Threshold = 0.5

	cfg.Refinement.SmoothIterations = 5
	cfg.Refinement.SingleRegionSmoothIterations = 10
	cfg.Refinement.Reduction = 0.9
	cfg.Refinement.RelaxationFactor = 0.01

	cfg.Output.SaveIntermediaryResults = false
	cfg.Output.IntermediaryDir = "intermediary_results"
	cfg.Output.Verbose = true
	cfg.Output.LogLevel = "info"

	cfg.Render.Width = 1024
	cfg.Render.Height = 768
	cfg.Render.Supersample = 2
	cfg.Render.Show = false

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}

// SupportedExportExtensions lists the mesh formats the exporter can write.
var SupportedExportExtensions = []string{".obj", ".stl"}

// Validate rejects configurations the pipeline cannot run with. It is called
// before any volume is loaded.
func (c *Config) Validate() error {
	if c.Refinement.Reduction < 0 || c.Refinement.Reduction > 1 {
		return fmt.Errorf("%w: reduction %g outside [0, 1]", ErrInvalid, c.Refinement.Reduction)
	}
	switch c.Processing.Mode {
	case ModeMulti, ModeSingle:
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalid, c.Processing.Mode)
	}
	if c.Processing.NumWorkers < 1 {
		return fmt.Errorf("%w: numWorkers must be at least 1", ErrInvalid)
	}
	if c.Labeling.Connectivity != 4 && c.Labeling.Connectivity != 8 {
		return fmt.Errorf("%w: connectivity must be 4 or 8, got %d", ErrInvalid, c.Labeling.Connectivity)
	}
	switch c.Labeling.Backend {
	case BackendFloodFill, BackendOpenCV:
	default:
		return fmt.Errorf("%w: unknown labeling backend %q", ErrInvalid, c.Labeling.Backend)
	}
	switch c.Surface.Extractor {
	case ExtractorVoxel, ExtractorMarchingCubes:
	default:
		return fmt.Errorf("%w: unknown surface extractor %q", ErrInvalid, c.Surface.Extractor)
	}
	if c.Refinement.SmoothIterations < 0 || c.Refinement.SingleRegionSmoothIterations < 0 {
		return fmt.Errorf("%w: smoothing iterations must not be negative", ErrInvalid)
	}
	if c.Output.Path != "" {
		ext := strings.ToLower(filepath.Ext(c.Output.Path))
		supported := false
		for _, e := range SupportedExportExtensions {
			if ext == e {
				supported = true
			}
		}
		if !supported {
			return fmt.Errorf("%w: unsupported export format %q", ErrInvalid, ext)
		}
	}
	if c.Render.Width <= 0 || c.Render.Height <= 0 || c.Render.Supersample < 1 {
		return fmt.Errorf("%w: render size must be positive", ErrInvalid)
	}
	return nil
}
