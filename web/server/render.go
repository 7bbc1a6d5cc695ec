package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/df07/go-scanline-raytracer/pkg/core"
	"github.com/df07/go-scanline-raytracer/pkg/renderer"
	"github.com/df07/go-scanline-raytracer/pkg/scene"
)

// RowUpdate represents a single finished row sent via SSE
type RowUpdate struct {
	Row           int    `json:"row"`
	ImageData     string `json:"imageData"` // Base64 encoded PNG of just this row
	WorkerID      int    `json:"workerId"`
	RowsCompleted int    `json:"rowsCompleted"`
	TotalRows     int    `json:"totalRows"`
}

// CompleteUpdate is the final event of a successful render
type CompleteUpdate struct {
	Width          int   `json:"width"`
	Height         int   `json:"height"`
	Workers        int   `json:"workers"`
	RowsCompleted  int   `json:"rowsCompleted"`
	TotalSamples   int   `json:"totalSamples"`
	ElapsedMs      int64 `json:"elapsedMs"`
	PrimitiveCount int   `json:"primitiveCount"`
}

// SSEEvent represents a unified SSE event for thread-safe writing
type SSEEvent struct {
	Type string `json:"type"` // "console", "row", "complete", "error"
	Data string `json:"data"` // JSON-encoded data
}

// handleRender renders a scene with rows streamed to the client via SSE as
// they finish
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	// Set SSE headers
	s.setSSEHeaders(w)

	ctx := r.Context()

	// Create unified SSE event channel; only writeSSEEvents touches w
	sseEventChan := make(chan SSEEvent, 100)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeSSEEvents(w, ctx, sseEventChan)
	}()
	defer func() {
		close(sseEventChan)
		<-writerDone
	}()

	// Parse and validate request
	req, err := s.parseRenderRequest(r)
	if err != nil {
		s.handleError(ctx, sseEventChan, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	sceneObj, err := s.createScene(req)
	if err != nil {
		s.handleError(ctx, sseEventChan, err.Error())
		return
	}

	// Setup console logging and streaming
	consoleChan, webLogger := s.setupConsoleLogging()
	var consoleDone sync.WaitGroup
	consoleDone.Add(1)
	go func() {
		defer consoleDone.Done()
		s.streamConsoleMessages(ctx, consoleChan, sseEventChan)
	}()

	stats, err := s.render(ctx, sceneObj, req, webLogger, sseEventChan)

	// Nothing logs after the render, so the console stream can be drained
	close(consoleChan)
	consoleDone.Wait()

	if err != nil {
		s.handleError(ctx, sseEventChan, fmt.Sprintf("Rendering failed: %v", err))
		return
	}
	s.sendEvent(ctx, sseEventChan, "complete", stats)
}

// render runs the row scheduler over sceneObj, streaming each finished row
func (s *Server) render(ctx context.Context, sceneObj *scene.Scene, req *RenderRequest, logger core.Logger, sseEventChan chan SSEEvent) (CompleteUpdate, error) {
	sceneObj.LogSummary(logger)

	rs, err := renderer.NewRowScheduler(sceneObj, renderer.Config{
		NumWorkers: req.Workers,
		Seed:       req.Seed,
		Iterative:  req.Iterative,
	}, logger)
	if err != nil {
		return CompleteUpdate{}, err
	}

	stats, err := rs.Render(ctx, func(event renderer.RowEvent) {
		s.handleRowUpdate(ctx, sseEventChan, rs.Buffer(), event)
	})
	if err != nil {
		return CompleteUpdate{}, err
	}

	return CompleteUpdate{
		Width:          stats.Width,
		Height:         stats.Height,
		Workers:        stats.Workers,
		RowsCompleted:  stats.RowsCompleted,
		TotalSamples:   stats.TotalSamples,
		ElapsedMs:      stats.Elapsed.Milliseconds(),
		PrimitiveCount: sceneObj.GetPrimitiveCount(),
	}, nil
}

// setSSEHeaders sets the required headers for Server-Sent Events
func (s *Server) setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
}

// setupConsoleLogging creates console channel and web logger for a render
func (s *Server) setupConsoleLogging() (chan ConsoleMessage, core.Logger) {
	consoleChan := make(chan ConsoleMessage, 50)
	renderID := fmt.Sprintf("render-%d", time.Now().UnixNano())
	webLogger := NewWebLogger(renderID, consoleChan)
	return consoleChan, webLogger
}

// writeSSEEvents handles writing all SSE events in a single goroutine (thread-safe)
func (s *Server) writeSSEEvents(w http.ResponseWriter, ctx context.Context, sseEventChan chan SSEEvent) {
	for {
		select {
		case event, ok := <-sseEventChan:
			if !ok {
				// Channel closed
				return
			}

			// Write SSE event
			if err := writeSSEEvent(w, event); err != nil {
				// Client disconnected during write
				return
			}
			if flusher, ok := w.(http.Flusher); ok {
				flusher.Flush()
			}

		case <-ctx.Done():
			// Client disconnected
			return
		}
	}
}

// writeSSEEvent writes one event. Each line of the payload gets its own data
// field; clients rejoin them with newlines.
func writeSSEEvent(w io.Writer, event SSEEvent) error {
	var b strings.Builder
	fmt.Fprintf(&b, "event: %s\n", event.Type)
	for _, line := range strings.Split(event.Data, "\n") {
		fmt.Fprintf(&b, "data: %s\n", line)
	}
	b.WriteString("\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// streamConsoleMessages forwards console messages until consoleChan is closed
func (s *Server) streamConsoleMessages(ctx context.Context, consoleChan chan ConsoleMessage, sseEventChan chan SSEEvent) {
	for {
		select {
		case consoleMsg, ok := <-consoleChan:
			if !ok {
				// Channel closed
				return
			}

			// Send console message as SSE event
			data, err := json.Marshal(consoleMsg)
			if err != nil {
				log.Printf("Error marshaling console message: %v", err)
				continue
			}

			select {
			case sseEventChan <- SSEEvent{Type: "console", Data: string(data)}:
			case <-ctx.Done():
				return
			}

		case <-ctx.Done():
			// Client disconnected
			return
		}
	}
}

// handleRowUpdate encodes a finished row and queues it for the client
func (s *Server) handleRowUpdate(ctx context.Context, sseEventChan chan SSEEvent, buffer *renderer.FrameBuffer, event renderer.RowEvent) {
	// Check if client is still connected
	if ctx.Err() != nil {
		return
	}

	rowData, err := s.imageToBase64PNG(buffer.RowImage(event.Row))
	if err != nil {
		log.Printf("Error encoding row %d: %v", event.Row, err)
		return
	}

	s.sendEvent(ctx, sseEventChan, "row", RowUpdate{
		Row:           event.Row,
		ImageData:     rowData,
		WorkerID:      event.WorkerID,
		RowsCompleted: event.RowsCompleted,
		TotalRows:     event.TotalRows,
	})
}

// sendEvent marshals payload and queues it as an SSE event
func (s *Server) sendEvent(ctx context.Context, sseEventChan chan SSEEvent, eventType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Error marshaling %s event: %v", eventType, err)
		return
	}

	select {
	case sseEventChan <- SSEEvent{Type: eventType, Data: string(data)}:
	case <-ctx.Done():
	}
}

// parseRenderRequest parses request parameters
func (s *Server) parseRenderRequest(r *http.Request) (*RenderRequest, error) {
	// Initialize request
	req := &RenderRequest{}

	// Parse common scene parameters using shared function
	if err := s.parseCommonSceneParams(r, req); err != nil {
		return nil, err
	}

	// Parse and validate render-specific parameters using helper functions
	query := r.URL.Query()
	var err error
	if req.Samples, err = parseIntParam(query, "samples", 0, 1, 10000); err != nil {
		return nil, err
	}
	if req.MaxDepth, err = parseIntParam(query, "maxDepth", 0, 1, 500); err != nil {
		return nil, err
	}
	if req.Workers, err = parseIntParam(query, "workers", 0, 0, 256); err != nil {
		return nil, err
	}
	seed, err := parseIntParam(query, "seed", int(renderer.DefaultConfig().Seed), 0, 1<<31-1)
	if err != nil {
		return nil, err
	}
	req.Seed = int64(seed)
	if req.Iterative, err = parseBoolParam(query, "iterative", false); err != nil {
		return nil, err
	}

	// Performance warning
	if req.Width*req.Height > 800*600 && req.Samples > 100 {
		log.Printf("Render warning: Large image with high samples may render slowly")
	}

	return req, nil
}

// imageToBase64PNG converts an image to base64-encoded PNG
func (s *Server) imageToBase64PNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// handleError sends an error event to the SSE channel
func (s *Server) handleError(ctx context.Context, sseEventChan chan SSEEvent, message string) {
	select {
	case sseEventChan <- SSEEvent{Type: "error", Data: message}:
	case <-ctx.Done():
		// Client disconnected, don't block
	}
}
