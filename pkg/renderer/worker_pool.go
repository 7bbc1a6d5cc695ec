package renderer

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/df07/go-scanline-raytracer/pkg/core"
	"github.com/df07/go-scanline-raytracer/pkg/geometry"
	"github.com/df07/go-scanline-raytracer/pkg/integrator"
	"github.com/df07/go-scanline-raytracer/pkg/scene"
)

// RowResult is sent back to the coordinator once a worker is done with a row
type RowResult struct {
	Row      int
	WorkerID int
	Samples  int   // Camera rays traced for the row
	Err      error // Non-nil when the row was not fully written
}

// Worker renders whole rows from its own copy of the scene
type Worker struct {
	ID         int
	camera     *geometry.Camera
	world      geometry.Surface
	integrator integrator.Integrator
	seed       int64
}

// NewWorker decodes a private copy of the serialized scene and prepares a
// camera and path tracer for it
func NewWorker(id int, sceneData []byte, config Config) (*Worker, error) {
	sc, err := scene.Decode(sceneData)
	if err != nil {
		return nil, fmt.Errorf("worker %d: %w", id, err)
	}

	camera, err := geometry.NewCamera(sc.Camera)
	if err != nil {
		return nil, fmt.Errorf("worker %d: %w", id, err)
	}

	return &Worker{
		ID:     id,
		camera: camera,
		world:  sc.World,
		integrator: integrator.NewPathTracingIntegrator(integrator.Config{
			MaxDepth:   sc.Camera.MaxDepth,
			Iterative:  config.Iterative,
			Background: integrator.DefaultBackground(),
		}),
		seed: config.Seed,
	}, nil
}

// RenderRow traces every pixel of row y and writes the encoded colors into
// buf. The row's random stream depends only on the seed and y, so the output
// does not depend on which worker renders the row. A panic while tracing is
// returned as an error.
func (w *Worker) RenderRow(y int, buf *FrameBuffer) (samples int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	cfg := w.camera.Config()
	if y < 0 || y >= buf.Height() {
		return 0, fmt.Errorf("row %d out of range [0, %d)", y, buf.Height())
	}
	if buf.Width() != cfg.Width {
		return 0, fmt.Errorf("buffer width %d does not match camera width %d", buf.Width(), cfg.Width)
	}

	sampler := core.NewRandomSampler(rand.New(rand.NewSource(w.seed + int64(y))))
	row := buf.Row(y)

	for x := 0; x < cfg.Width; x++ {
		var pixel PixelStats
		for s := 0; s < cfg.SamplesPerPixel; s++ {
			ray := w.camera.GetRay(x, y, sampler)
			pixel.AddSample(w.integrator.RayColor(ray, w.world, sampler))
		}
		WritePixel(row, x, pixel.GetColor())
		samples += pixel.SampleCount
	}

	return samples, nil
}

// run pulls rows until the queue is drained or ctx is cancelled. Cancellation
// is only noticed between rows; a row in progress always finishes.
func (w *Worker) run(ctx context.Context, rows <-chan int, results chan<- RowResult, buf *FrameBuffer) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		y, ok := <-rows
		if !ok {
			return nil
		}

		samples, err := w.RenderRow(y, buf)
		results <- RowResult{Row: y, WorkerID: w.ID, Samples: samples, Err: err}
	}
}
