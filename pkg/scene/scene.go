package scene

import (
	"github.com/df07/go-scanline-raytracer/pkg/core"
	"github.com/df07/go-scanline-raytracer/pkg/geometry"
)

// Scene contains all the elements needed for rendering. A Scene is built once
// and treated as read-only afterwards; workers render from their own decoded
// copies.
type Scene struct {
	Name   string
	Camera geometry.CameraConfig
	World  geometry.Surface
}

// NewScene builds a scene whose world is a BVH over objects. The sampler only
// drives the choice of split axes.
func NewScene(name string, camera geometry.CameraConfig, objects []geometry.Surface, sampler core.Sampler) *Scene {
	return &Scene{
		Name:   name,
		Camera: camera,
		World:  geometry.NewBVHNode(objects, sampler),
	}
}

// GetPrimitiveCount returns the number of spheres reachable from the world
func (s *Scene) GetPrimitiveCount() int {
	return countPrimitives(s.World)
}

// countPrimitives counts leaves, looking through lists and BVH nodes. A surface
// duplicated into both children of a single-object node counts once.
func countPrimitives(surface geometry.Surface) int {
	switch obj := surface.(type) {
	case nil:
		return 0
	case *geometry.BVHNode:
		if obj == nil {
			return 0
		}
		if obj.Left == obj.Right {
			return countPrimitives(obj.Left)
		}
		return countPrimitives(obj.Left) + countPrimitives(obj.Right)
	case *geometry.List:
		count := 0
		for _, child := range obj.Objects {
			count += countPrimitives(child)
		}
		return count
	default:
		return 1
	}
}

// LogSummary reports the scene's size and, when the world is a BVH, its shape
func (s *Scene) LogSummary(logger core.Logger) {
	cfg := s.Camera
	logger.Printf("Scene %q: %dx%d, %d spp, depth %d, %d primitives\n",
		s.Name, cfg.Width, cfg.Height, cfg.SamplesPerPixel, cfg.MaxDepth, s.GetPrimitiveCount())

	if bvh, ok := s.World.(*geometry.BVHNode); ok && bvh != nil {
		stats := bvh.Stats()
		logger.Printf("BVH: %d nodes, %d leaves, max depth %d\n", stats.TotalNodes, stats.Leaves, stats.MaxDepth)
	}
}
