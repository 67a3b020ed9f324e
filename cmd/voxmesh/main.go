package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/rs/zerolog"
	"github.com/unixpickle/essentials"

	"voxmesh/pkg/config"
	"voxmesh/pkg/pipeline"
	"voxmesh/pkg/viewer"
	"voxmesh/pkg/visualization"
	"voxmesh/pkg/volume"
)

func main() {
	// Parse command line arguments
	inputPath := flag.String("input", "", "Slice directory, TIFF stack or JSON voxel grid (default: synthetic sphere)")
	configPath := flag.String("config", "", "YAML configuration file")
	writeConfig := flag.String("write-config", "", "Write the default configuration to this path and exit")
	overrides := config.RegisterFlags(flag.CommandLine)
	flag.Parse()

	if *writeConfig != "" {
		essentials.Must(config.CreateDefaultConfigFile(*writeConfig))
		fmt.Printf("Default configuration written to %s\n", *writeConfig)
		return
	}

	cfg := config.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}

	// Explicit flags win over the configuration file
	overrides.Apply(cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := newLogger(cfg.Output.LogLevel)

	fmt.Println("================================")
	fmt.Println("VOXMESH: PER-REGION SURFACE MESHES FROM VOXEL VOLUMES")
	fmt.Println("================================")

	vol := volume.Sphere(volume.DefaultSphereSize)
	if *inputPath != "" {
		var err error
		vol, err = volume.Load(*inputPath)
		if err != nil {
			log.Fatalf("Failed to load volume: %v", err)
		}
	} else {
		logger.Info().Int("size", volume.DefaultSphereSize).Msg("no input given, using synthetic sphere")
	}

	scene := visualization.NewScene()
	driver, err := pipeline.NewDriver(pipeline.ParamsFromConfig(cfg), logger, pipeline.WithScene(scene))
	if err != nil {
		log.Fatalf("Failed to create pipeline: %v", err)
	}
	res, err := driver.Process(vol)
	if err != nil {
		log.Fatalf("Processing failed: %v", err)
	}

	if cfg.Output.Verbose {
		pipeline.WriteSummary(os.Stdout, res)
	}

	opts := visualization.RenderOptions{
		Width:       cfg.Render.Width,
		Height:      cfg.Render.Height,
		Supersample: cfg.Render.Supersample,
		Camera:      visualization.DefaultCamera,
	}
	if cfg.Render.Path != "" {
		if err := scene.SavePNG(cfg.Render.Path, opts); err != nil {
			log.Fatalf("Failed to render scene: %v", err)
		}
		fmt.Printf("Scene snapshot saved to: %s\n", cfg.Render.Path)
	}
	if cfg.Render.Show {
		viewer.Show(scene, opts)
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}
