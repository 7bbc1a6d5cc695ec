package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/df07/go-scanline-raytracer/pkg/geometry"
	"github.com/df07/go-scanline-raytracer/pkg/scene"
)

// Server handles web requests for the scanline raytracer
type Server struct {
	port      int
	scenesDir string // Directory searched for JSON scene files
}

// NewServer creates a new web server
func NewServer(port int) *Server {
	return &Server{port: port, scenesDir: "scenes"}
}

// RenderRequest represents a render request from the client
type RenderRequest struct {
	Scene     string `json:"scene"`     // Built-in scene name or "file:<name>"
	Width     int    `json:"width"`     // Image width
	Height    int    `json:"height"`    // Image height
	Samples   int    `json:"samples"`   // Samples per pixel (0 = scene default)
	MaxDepth  int    `json:"maxDepth"`  // Maximum bounce depth (0 = scene default)
	Workers   int    `json:"workers"`   // Worker count (0 = CPU count)
	Seed      int64  `json:"seed"`      // Base random seed
	Iterative bool   `json:"iterative"` // Use the iterative color estimator
}

// Handler returns the server's routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Serve static files
	mux.Handle("/", http.FileServer(http.Dir("static/")))

	// API endpoints
	mux.HandleFunc("/api/render", s.handleRender)
	mux.HandleFunc("/api/inspect", s.handleInspect)
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/scenes", s.handleScenes)
	mux.HandleFunc("/api/scene-config", s.handleSceneConfig)

	return mux
}

// Start starts the web server
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	log.Printf("Starting web server on http://localhost%s", addr)
	return http.ListenAndServe(addr, s.Handler())
}

// handleHealth provides a simple health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleScenes lists built-in scenes and scene files
func (s *Server) handleScenes(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	response, err := scene.ListAllScenes(s.scenesDir)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// parseCommonSceneParams parses the parameters shared by rendering and inspection
func (s *Server) parseCommonSceneParams(r *http.Request, req *RenderRequest) error {
	req.Scene = r.URL.Query().Get("scene")
	if req.Scene == "" {
		req.Scene = "default" // Default scene
	}

	var err error
	if req.Width, err = parseIntParam(r.URL.Query(), "width", 400, 16, 2000); err != nil {
		return err
	}
	if req.Height, err = parseIntParam(r.URL.Query(), "height", 225, 16, 2000); err != nil {
		return err
	}
	return nil
}

// parseIntParam parses an integer parameter from URL query with validation
func parseIntParam(values url.Values, key string, defaultValue, min, max int) (int, error) {
	if value := values.Get(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %s", key, value)
		}
		if parsed < min || parsed > max {
			return 0, fmt.Errorf("%s must be between %d and %d, got: %d", key, min, max, parsed)
		}
		return parsed, nil
	}
	return defaultValue, nil
}

// parseBoolParam parses a boolean parameter from URL query
func parseBoolParam(values url.Values, key string, defaultValue bool) (bool, error) {
	if value := values.Get(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return false, fmt.Errorf("invalid %s: %s", key, value)
		}
		return parsed, nil
	}
	return defaultValue, nil
}

// createScene creates the requested scene with the request's camera overrides
func (s *Server) createScene(req *RenderRequest) (*scene.Scene, error) {
	overrides := geometry.CameraConfig{
		Width:           req.Width,
		Height:          req.Height,
		SamplesPerPixel: req.Samples,
		MaxDepth:        req.MaxDepth,
	}

	if name, ok := strings.CutPrefix(req.Scene, "file:"); ok {
		// Scene files are addressed by base name only
		if name == "" || name != filepath.Base(name) {
			return nil, fmt.Errorf("invalid scene file name: %q", name)
		}
		sc, err := scene.Load(filepath.Join(s.scenesDir, name+".json"))
		if err != nil {
			return nil, err
		}
		sc.Camera = geometry.MergeCameraConfig(sc.Camera, overrides)
		return sc, nil
	}

	return scene.New(req.Scene, overrides)
}

// handleSceneConfig returns the default configuration for a scene
func (s *Server) handleSceneConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	sceneName := r.URL.Query().Get("scene")
	if sceneName == "" {
		sceneName = "default" // Default scene
	}

	sceneObj, err := s.createScene(&RenderRequest{Scene: sceneName})
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	// Return the scene's camera configuration with validation limits
	config := sceneObj.Camera
	response := map[string]interface{}{
		"scene": sceneName,
		"defaults": map[string]interface{}{
			"width":           config.Width,
			"height":          config.Height,
			"samplesPerPixel": config.SamplesPerPixel,
			"maxDepth":        config.MaxDepth,
			"vfov":            config.VFov,
			"defocusAngle":    config.DefocusAngle,
			"focusDistance":   config.FocusDistance,
		},
		"limits": map[string]interface{}{
			"width": map[string]int{
				"min": 16,
				"max": 2000,
			},
			"height": map[string]int{
				"min": 16,
				"max": 2000,
			},
			"samples": map[string]int{
				"min": 1,
				"max": 10000,
			},
			"maxDepth": map[string]int{
				"min": 1,
				"max": 500,
			},
			"workers": map[string]int{
				"min": 0,
				"max": 256,
			},
		},
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}
