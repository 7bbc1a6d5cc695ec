package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image/png"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/df07/go-scanline-raytracer/pkg/core"
	"github.com/df07/go-scanline-raytracer/pkg/geometry"
	"github.com/df07/go-scanline-raytracer/pkg/renderer"
	"github.com/df07/go-scanline-raytracer/pkg/scene"
)

// options holds everything the command line controls
type options struct {
	sceneName string
	loadPath  string
	dumpPath  string
	output    string
	camera    geometry.CameraConfig // Non-zero fields override the scene's camera
	config    renderer.Config
}

func main() {
	// Parse command line flags
	sceneType := flag.String("scene", "default", "Built-in scene: "+strings.Join(scene.Names(), ", "))
	load := flag.String("load", "", "Load the scene from a JSON file instead of a built-in scene")
	dump := flag.String("dump", "", "Write the scene as JSON to this file and exit")
	width := flag.Int("width", 0, "Image width (0 = scene default)")
	height := flag.Int("height", 0, "Image height (0 = scene default)")
	samples := flag.Int("samples", 0, "Samples per pixel (0 = scene default)")
	depth := flag.Int("depth", 0, "Maximum ray bounce depth (0 = scene default)")
	workers := flag.Int("workers", 0, "Number of parallel workers (0 = auto-detect CPU count)")
	seed := flag.Int64("seed", renderer.DefaultConfig().Seed, "Base random seed")
	iterative := flag.Bool("iterative", false, "Use the iterative color estimator")
	output := flag.String("output", "", "Output PNG path (default output/<scene>/render_<timestamp>.png)")
	help := flag.Bool("help", false, "Show help information")
	flag.Parse()

	// Show help if requested
	if *help {
		showHelp()
		return
	}

	opts := options{
		sceneName: *sceneType,
		loadPath:  *load,
		dumpPath:  *dump,
		output:    *output,
		camera: geometry.CameraConfig{
			Width:           *width,
			Height:          *height,
			SamplesPerPixel: *samples,
			MaxDepth:        *depth,
		},
		config: renderer.Config{
			NumWorkers: *workers,
			Seed:       *seed,
			Iterative:  *iterative,
		},
	}

	// Ctrl-C stops the render at the next row boundary
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, opts, renderer.NewDefaultLogger()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func showHelp() {
	fmt.Println("Scanline Raytracer")
	fmt.Println("Usage: raytracer [options]")
	fmt.Println()
	fmt.Println("Options:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("Available scenes:")
	fmt.Println("  default       - Random small spheres, some in motion, around three large spheres")
	fmt.Println("  three-spheres - Hollow glass, diffuse and fuzzy metal spheres with depth of field")
	fmt.Println()
	fmt.Println("Output will be saved to output/<scene>/render_<timestamp>.png")
}

// createScene builds a built-in scene or loads one from a file, then applies
// the camera overrides
func createScene(sceneType, loadPath string, overrides geometry.CameraConfig) (*scene.Scene, error) {
	if loadPath != "" {
		sc, err := scene.Load(loadPath)
		if err != nil {
			return nil, err
		}
		sc.Camera = geometry.MergeCameraConfig(sc.Camera, overrides)
		return sc, nil
	}
	return scene.New(sceneType, overrides)
}

// outputPath returns the PNG path for a render of sceneName started at now
func outputPath(explicit, sceneName string, now time.Time) string {
	if explicit != "" {
		return explicit
	}
	if sceneName == "" {
		sceneName = "scene"
	}
	timestamp := now.Format("20060102_150405")
	return filepath.Join("output", sceneName, fmt.Sprintf("render_%s.png", timestamp))
}

func run(ctx context.Context, opts options, logger core.Logger) error {
	logger.Printf("Starting Scanline Raytracer...\n")

	sc, err := createScene(opts.sceneName, opts.loadPath, opts.camera)
	if err != nil {
		return err
	}
	sc.LogSummary(logger)

	if opts.dumpPath != "" {
		if err := scene.Save(opts.dumpPath, sc); err != nil {
			return err
		}
		logger.Printf("Scene saved as %s\n", opts.dumpPath)
		return nil
	}

	rs, err := renderer.NewRowScheduler(sc, opts.config, logger)
	if err != nil {
		return err
	}

	stats, renderErr := rs.Render(ctx, nil)
	if renderErr != nil && stats.RowsCompleted == 0 {
		return renderErr
	}
	if renderErr != nil {
		// Keep what was rendered; missing rows stay transparent
		logger.Printf("Warning: render incomplete: %v\n", renderErr)
	}

	img := rs.Buffer().Image()
	logger.Printf("Average luminance: %.4f\n", renderer.CalculateAverageLuminance(img))

	filename := outputPath(opts.output, sc.Name, time.Now())
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return fmt.Errorf("saving PNG: %w", err)
	}

	logger.Printf("Render saved as %s\n", filename)

	if renderErr != nil && errors.Is(renderErr, renderer.ErrRowFailed) {
		return renderErr
	}
	return nil
}
