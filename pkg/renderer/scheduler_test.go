package renderer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/df07/go-scanline-raytracer/pkg/core"
	"github.com/df07/go-scanline-raytracer/pkg/geometry"
	"github.com/df07/go-scanline-raytracer/pkg/integrator"
	"github.com/df07/go-scanline-raytracer/pkg/scene"
)

// quietLogger discards output
type quietLogger struct{}

func (quietLogger) Printf(string, ...interface{}) {}

// smallScene returns the three-spheres scene at a size quick enough for tests
func smallScene() *scene.Scene {
	return scene.NewThreeSpheresScene(geometry.CameraConfig{
		Width:           16,
		Height:          9,
		SamplesPerPixel: 2,
		MaxDepth:        5,
	})
}

// emptyScene is an 8x8 pinhole view of an empty world. Primary ray
// directions in row y have a Y component in [0.75-0.25y, 1-0.25y).
func emptyScene() *scene.Scene {
	return scene.NewScene("empty", geometry.CameraConfig{
		Width:           8,
		Height:          8,
		LookFrom:        core.NewVec3(0, 0, 0),
		LookAt:          core.NewVec3(0, 0, -1),
		Up:              core.NewVec3(0, 1, 0),
		VFov:            90,
		SamplesPerPixel: 4,
		MaxDepth:        3,
	}, nil, core.NewSeededSampler(1))
}

// panicBelow wraps an integrator and panics for rays pointing below threshold
type panicBelow struct {
	inner     integrator.Integrator
	threshold float64
}

func (p panicBelow) RayColor(ray core.Ray, world geometry.Surface, sampler core.Sampler) core.Vec3 {
	if ray.Direction.Y < p.threshold {
		panic(fmt.Sprintf("ray direction %v", ray.Direction))
	}
	return p.inner.RayColor(ray, world, sampler)
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	if config.NumWorkers != 0 {
		t.Errorf("Expected auto-detected worker count, got %d", config.NumWorkers)
	}
	if config.Iterative {
		t.Error("Expected recursive estimator by default")
	}
}

func TestNewRowSchedulerInvalidCamera(t *testing.T) {
	sc := smallScene()
	sc.Camera.SamplesPerPixel = 0

	if _, err := NewRowScheduler(sc, DefaultConfig(), quietLogger{}); err == nil {
		t.Error("Expected an error for an invalid camera")
	}
}

func TestNewRowSchedulerWorkerCount(t *testing.T) {
	rs, err := NewRowScheduler(smallScene(), Config{NumWorkers: 3}, quietLogger{})
	if err != nil {
		t.Fatalf("NewRowScheduler: %v", err)
	}
	if rs.NumWorkers() != 3 {
		t.Errorf("Expected 3 workers, got %d", rs.NumWorkers())
	}

	// Each worker holds its own copy of the world
	if rs.workers[0].world == rs.workers[1].world {
		t.Error("Expected workers not to share a world")
	}

	rs, err = NewRowScheduler(smallScene(), Config{}, quietLogger{})
	if err != nil {
		t.Fatalf("NewRowScheduler: %v", err)
	}
	if rs.NumWorkers() < 1 {
		t.Errorf("Expected at least one worker, got %d", rs.NumWorkers())
	}
}

func TestRenderCompletesEveryRowOnce(t *testing.T) {
	sc := smallScene()
	rs, err := NewRowScheduler(sc, Config{NumWorkers: 4, Seed: 7}, quietLogger{})
	if err != nil {
		t.Fatalf("NewRowScheduler: %v", err)
	}

	seen := make(map[int]int)
	lastCompleted := 0
	stats, err := rs.Render(context.Background(), func(event RowEvent) {
		seen[event.Row]++
		if event.RowsCompleted != lastCompleted+1 {
			t.Errorf("Expected RowsCompleted %d, got %d", lastCompleted+1, event.RowsCompleted)
		}
		lastCompleted = event.RowsCompleted
		if event.TotalRows != sc.Camera.Height {
			t.Errorf("Expected TotalRows %d, got %d", sc.Camera.Height, event.TotalRows)
		}
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	if !stats.Complete() || stats.RowsFailed != 0 {
		t.Errorf("Expected a complete render, got %+v", stats)
	}
	if len(seen) != sc.Camera.Height {
		t.Errorf("Expected %d distinct rows, got %d", sc.Camera.Height, len(seen))
	}
	for row, count := range seen {
		if count != 1 {
			t.Errorf("Row %d reported %d times", row, count)
		}
	}

	wantSamples := sc.Camera.Width * sc.Camera.Height * sc.Camera.SamplesPerPixel
	if stats.TotalSamples != wantSamples {
		t.Errorf("Expected %d samples, got %d", wantSamples, stats.TotalSamples)
	}

	// Every pixel was written, so every alpha byte is opaque
	pix := rs.Buffer().Image().Pix
	for i := 3; i < len(pix); i += 4 {
		if pix[i] != 255 {
			t.Fatalf("Pixel %d was not written", i/4)
		}
	}
}

func TestRenderIsIndependentOfWorkerCount(t *testing.T) {
	render := func(workers int, iterative bool) []byte {
		rs, err := NewRowScheduler(smallScene(), Config{NumWorkers: workers, Seed: 11, Iterative: iterative}, quietLogger{})
		if err != nil {
			t.Fatalf("NewRowScheduler: %v", err)
		}
		if _, err := rs.Render(context.Background(), nil); err != nil {
			t.Fatalf("Render: %v", err)
		}
		return rs.Buffer().Image().Pix
	}

	single := render(1, false)
	if !bytes.Equal(single, render(4, false)) {
		t.Error("Expected identical images from 1 and 4 workers")
	}

	iterative := render(1, true)
	if !bytes.Equal(iterative, render(3, true)) {
		t.Error("Expected identical iterative images from 1 and 3 workers")
	}

	// The estimators multiply attenuations in a different order, so a channel
	// may land one step away after quantization
	for i := range single {
		if diff := int(single[i]) - int(iterative[i]); diff < -1 || diff > 1 {
			t.Fatalf("Byte %d differs between estimators: %d vs %d", i, single[i], iterative[i])
		}
	}
}

func TestRenderFailedRowIsNotCompleted(t *testing.T) {
	rs, err := NewRowScheduler(emptyScene(), Config{NumWorkers: 2}, quietLogger{})
	if err != nil {
		t.Fatalf("NewRowScheduler: %v", err)
	}
	// Only primary rays of the last row point below -0.875
	for _, w := range rs.workers {
		w.integrator = panicBelow{inner: w.integrator, threshold: -0.875}
	}

	reported := make(map[int]bool)
	stats, err := rs.Render(context.Background(), func(event RowEvent) {
		reported[event.Row] = true
	})

	if !errors.Is(err, ErrRowFailed) {
		t.Fatalf("Expected ErrRowFailed, got %v", err)
	}
	var rowErr *RowError
	if !errors.As(err, &rowErr) || rowErr.Row != 7 {
		t.Fatalf("Expected a RowError for row 7, got %v", err)
	}

	if stats.RowsCompleted != 7 || stats.RowsFailed != 1 || stats.Complete() {
		t.Errorf("Unexpected stats %+v", stats)
	}
	if reported[7] {
		t.Error("Failed row was reported as complete")
	}
	if len(reported) != 7 {
		t.Errorf("Expected 7 reported rows, got %d", len(reported))
	}
}

func TestRenderCancelledBeforeStart(t *testing.T) {
	rs, err := NewRowScheduler(smallScene(), Config{NumWorkers: 2}, quietLogger{})
	if err != nil {
		t.Fatalf("NewRowScheduler: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats, err := rs.Render(ctx, func(RowEvent) {
		t.Error("Expected no rows to be rendered")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if stats.RowsCompleted != 0 {
		t.Errorf("Expected 0 rows, got %d", stats.RowsCompleted)
	}
}

func TestRenderCancelledBetweenRows(t *testing.T) {
	sc := scene.NewThreeSpheresScene(geometry.CameraConfig{
		Width:           8,
		Height:          64,
		SamplesPerPixel: 1,
		MaxDepth:        3,
	})
	rs, err := NewRowScheduler(sc, Config{NumWorkers: 1}, quietLogger{})
	if err != nil {
		t.Fatalf("NewRowScheduler: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stats, err := rs.Render(ctx, func(RowEvent) {
		cancel()
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if errors.Is(err, ErrRowFailed) {
		t.Errorf("Cancellation should not fail rows: %v", err)
	}
	if stats.RowsCompleted == 0 || stats.RowsCompleted >= sc.Camera.Height {
		t.Errorf("Expected a partial render, got %d of %d rows", stats.RowsCompleted, sc.Camera.Height)
	}
}

func TestRowError(t *testing.T) {
	inner := errors.New("boom")
	var err error = &RowError{Row: 3, Err: inner}

	if err.Error() != "row 3: boom" {
		t.Errorf("Unexpected message %q", err.Error())
	}
	if !errors.Is(err, ErrRowFailed) || !errors.Is(err, inner) {
		t.Error("Expected RowError to match ErrRowFailed and its cause")
	}
}
