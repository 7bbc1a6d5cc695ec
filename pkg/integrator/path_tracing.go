package integrator

import (
	"math"

	"github.com/df07/go-scanline-raytracer/pkg/core"
	"github.com/df07/go-scanline-raytracer/pkg/geometry"
)

// hitEpsilon keeps scattered rays from re-hitting the surface they leave
const hitEpsilon = 0.001

// Config contains path tracing configuration
type Config struct {
	MaxDepth   int  // Maximum number of bounces
	Iterative  bool // Use the loop form instead of recursion
	Background Background
}

// PathTracingIntegrator implements unidirectional path tracing with material scattering
type PathTracingIntegrator struct {
	config Config
}

// NewPathTracingIntegrator creates a new path tracing integrator
func NewPathTracingIntegrator(config Config) *PathTracingIntegrator {
	return &PathTracingIntegrator{config: config}
}

// RayColor computes the color for a single ray, using either the recursive
// or the iterative estimator. Both consume the sampler identically.
func (pt *PathTracingIntegrator) RayColor(ray core.Ray, world geometry.Surface, sampler core.Sampler) core.Vec3 {
	if pt.config.Iterative {
		return pt.RayColorIterative(ray, world, sampler)
	}
	return pt.RayColorRecursive(ray, world, sampler, pt.config.MaxDepth)
}

// RayColorRecursive returns the color for a ray with depth bounces left
func (pt *PathTracingIntegrator) RayColorRecursive(ray core.Ray, world geometry.Surface, sampler core.Sampler, depth int) core.Vec3 {
	// If we've exceeded the ray bounce limit, no more light is gathered
	if depth <= 0 {
		return core.Vec3{}
	}

	hit, isHit := world.Hit(ray, core.NewInterval(hitEpsilon, math.Inf(1)))
	if !isHit {
		return pt.config.Background.Color(ray)
	}

	scatter, didScatter := hit.Material.Scatter(ray, *hit, sampler)
	if !didScatter {
		return core.Vec3{}
	}

	return scatter.Attenuation.MultiplyVec(
		pt.RayColorRecursive(scatter.Scattered, world, sampler, depth-1))
}

// RayColorIterative is the loop form of RayColorRecursive. It carries the
// product of attenuations forward instead of multiplying on the way back, so
// stack usage is constant in MaxDepth.
func (pt *PathTracingIntegrator) RayColorIterative(ray core.Ray, world geometry.Surface, sampler core.Sampler) core.Vec3 {
	throughput := core.NewVec3(1, 1, 1)

	for depth := pt.config.MaxDepth; depth > 0; depth-- {
		hit, isHit := world.Hit(ray, core.NewInterval(hitEpsilon, math.Inf(1)))
		if !isHit {
			return throughput.MultiplyVec(pt.config.Background.Color(ray))
		}

		scatter, didScatter := hit.Material.Scatter(ray, *hit, sampler)
		if !didScatter {
			return core.Vec3{}
		}

		throughput.MultiplyVecAssign(scatter.Attenuation)
		ray = scatter.Scattered
	}

	return core.Vec3{}
}
