package renderer

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/df07/go-scanline-raytracer/pkg/core"
	"github.com/df07/go-scanline-raytracer/pkg/scene"
)

// DefaultLogger implements core.Logger by writing to stdout
type DefaultLogger struct{}

func (dl *DefaultLogger) Printf(format string, args ...interface{}) {
	fmt.Printf(format, args...)
}

// NewDefaultLogger creates a new default logger
func NewDefaultLogger() core.Logger {
	return &DefaultLogger{}
}

// ErrRowFailed matches every *RowError
var ErrRowFailed = errors.New("row failed")

// RowError reports a row that was not rendered. The row is never counted as
// complete.
type RowError struct {
	Row int
	Err error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrRowFailed) true for any row failure
func (e *RowError) Is(target error) bool { return target == ErrRowFailed }

// Config contains configuration for row-scheduled rendering
type Config struct {
	NumWorkers int   // Number of parallel workers (0 = use CPU count)
	Seed       int64 // Base seed; row y samples from Seed+y
	Iterative  bool  // Use the loop form of the color estimator
}

// DefaultConfig returns sensible default values
func DefaultConfig() Config {
	return Config{
		NumWorkers: 0, // Auto-detect CPU count
		Seed:       42,
		Iterative:  false,
	}
}

// RowEvent is delivered to the caller after a row has been written
type RowEvent struct {
	Row           int
	WorkerID      int
	RowsCompleted int // Including this one
	TotalRows     int
}

// RowScheduler hands image rows to a fixed pool of workers that share one
// output buffer
type RowScheduler struct {
	buffer  *FrameBuffer
	workers []*Worker
	config  Config
	logger  core.Logger
}

// NewRowScheduler serializes the scene once and gives every worker its own
// decoded copy. Any decoding or camera error is returned before rendering
// starts.
func NewRowScheduler(sc *scene.Scene, config Config, logger core.Logger) (*RowScheduler, error) {
	if logger == nil {
		logger = NewDefaultLogger()
	}
	if err := sc.Camera.Validate(); err != nil {
		return nil, fmt.Errorf("invalid camera: %w", err)
	}

	numWorkers := config.NumWorkers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	data, err := scene.Encode(sc)
	if err != nil {
		return nil, fmt.Errorf("serialize scene: %w", err)
	}

	workers := make([]*Worker, 0, numWorkers)
	for i := 0; i < numWorkers; i++ {
		worker, err := NewWorker(i, data, config)
		if err != nil {
			return nil, err
		}
		workers = append(workers, worker)
	}

	logger.Printf("Prepared %d workers (%d bytes of scene data each)\n", numWorkers, len(data))

	return &RowScheduler{
		buffer:  NewFrameBuffer(sc.Camera.Width, sc.Camera.Height),
		workers: workers,
		config:  config,
		logger:  logger,
	}, nil
}

// Buffer returns the shared output buffer
func (rs *RowScheduler) Buffer() *FrameBuffer { return rs.buffer }

// NumWorkers returns the size of the worker pool
func (rs *RowScheduler) NumWorkers() int { return len(rs.workers) }

// Render renders every row once. onRow, if non-nil, is called from the
// calling goroutine after each row is written. The returned error joins every
// *RowError, plus ctx's error if the render was cancelled; rows that were
// not written are left as they were.
func (rs *RowScheduler) Render(ctx context.Context, onRow func(RowEvent)) (RenderStats, error) {
	start := time.Now()
	width, height := rs.buffer.Width(), rs.buffer.Height()

	rs.logger.Printf("Rendering %dx%d using %d workers...\n", width, height, len(rs.workers))

	// Rows are queued in increasing order; each is taken by exactly one worker
	rows := make(chan int, height)
	for y := 0; y < height; y++ {
		rows <- y
	}
	close(rows)

	results := make(chan RowResult, len(rs.workers))

	var g errgroup.Group
	for _, worker := range rs.workers {
		g.Go(func() error {
			return worker.run(ctx, rows, results, rs.buffer)
		})
	}

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
		close(results)
	}()

	stats := RenderStats{Width: width, Height: height, Workers: len(rs.workers)}
	completed := make([]bool, height)
	var errs []error

	for result := range results {
		if result.Err != nil {
			stats.RowsFailed++
			errs = append(errs, &RowError{Row: result.Row, Err: result.Err})
			rs.logger.Printf("Row %d failed on worker %d: %v\n", result.Row, result.WorkerID, result.Err)
			continue
		}

		if completed[result.Row] {
			continue
		}
		completed[result.Row] = true
		stats.RowsCompleted++
		stats.TotalSamples += result.Samples

		if onRow != nil {
			onRow(RowEvent{
				Row:           result.Row,
				WorkerID:      result.WorkerID,
				RowsCompleted: stats.RowsCompleted,
				TotalRows:     height,
			})
		}
	}

	if err := <-done; err != nil {
		rs.logger.Printf("Rendering cancelled after %d of %d rows\n", stats.RowsCompleted, height)
		errs = append(errs, err)
	}

	stats.Elapsed = time.Since(start)
	rs.logger.Printf("Rendered %d/%d rows (%d failed, %d samples) in %v\n",
		stats.RowsCompleted, height, stats.RowsFailed, stats.TotalSamples, stats.Elapsed)

	return stats, errors.Join(errs...)
}
