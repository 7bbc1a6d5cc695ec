package integrator

import (
	"math"
	"math/rand"
	"testing"

	"github.com/df07/go-scanline-raytracer/pkg/core"
	"github.com/df07/go-scanline-raytracer/pkg/geometry"
	"github.com/df07/go-scanline-raytracer/pkg/material"
)

// absorber never scatters
type absorber struct{}

func (absorber) Scatter(core.Ray, material.HitRecord, core.Sampler) (material.ScatterResult, bool) {
	return material.ScatterResult{}, false
}

// skyMirror sends every ray straight up with a fixed attenuation
type skyMirror struct {
	attenuation core.Vec3
}

func (m skyMirror) Scatter(rayIn core.Ray, hit material.HitRecord, _ core.Sampler) (material.ScatterResult, bool) {
	return material.ScatterResult{
		Scattered:   core.NewRayAtTime(hit.Point, core.NewVec3(0, 1, 0), rayIn.Time),
		Attenuation: m.attenuation,
	}, true
}

// createTestWorld creates a diffuse sphere on a diffuse ground
func createTestWorld() geometry.Surface {
	lambertian := material.NewLambertian(core.NewVec3(0.7, 0.3, 0.3))
	ground := material.NewLambertian(core.NewVec3(0.5, 0.5, 0.5))
	return geometry.NewList(
		geometry.NewSphere(core.NewVec3(0, 0, -1), 0.5, lambertian),
		geometry.NewSphere(core.NewVec3(0, -100.5, -1), 100, ground),
	)
}

func vecNear(a, b core.Vec3, tolerance float64) bool {
	return math.Abs(a.X-b.X) < tolerance &&
		math.Abs(a.Y-b.Y) < tolerance &&
		math.Abs(a.Z-b.Z) < tolerance
}

// TestPathTracingDepthTermination tests that ray depth is properly limited
func TestPathTracingDepthTermination(t *testing.T) {
	world := createTestWorld()
	sampler := core.NewRandomSampler(rand.New(rand.NewSource(42)))

	// Ray pointing at the sphere
	ray := core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, -1))

	for _, iterative := range []bool{false, true} {
		integrator := NewPathTracingIntegrator(Config{MaxDepth: 0, Iterative: iterative, Background: DefaultBackground()})
		if color := integrator.RayColor(ray, world, sampler); color != (core.Vec3{}) {
			t.Errorf("iterative=%v: expected black color for depth 0, got %v", iterative, color)
		}

		// A ray that misses everything still needs one bounce of budget to see the sky
		miss := core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(0, 1, 0))
		if color := integrator.RayColor(miss, world, sampler); color != (core.Vec3{}) {
			t.Errorf("iterative=%v: expected black for a miss at depth 0, got %v", iterative, color)
		}

		integrator = NewPathTracingIntegrator(Config{MaxDepth: 3, Iterative: iterative, Background: DefaultBackground()})
		if color := integrator.RayColor(ray, world, sampler); color == (core.Vec3{}) {
			t.Errorf("iterative=%v: expected non-black color for positive depth", iterative)
		}
	}
}

func TestBackgroundGradient(t *testing.T) {
	bg := DefaultBackground()
	tests := []struct {
		name      string
		direction core.Vec3
		expected  core.Vec3
	}{
		{"straight up", core.NewVec3(0, 1, 0), core.NewVec3(0.5, 0.7, 1.0)},
		{"straight down", core.NewVec3(0, -1, 0), core.NewVec3(1, 1, 1)},
		{"horizon", core.NewVec3(0, 0, -1), core.NewVec3(0.75, 0.85, 1.0)},
		{"unnormalized up", core.NewVec3(0, 7, 0), core.NewVec3(0.5, 0.7, 1.0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := bg.Color(core.NewRay(core.Vec3{}, tt.direction))
			if !vecNear(got, tt.expected, 1e-9) {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestPathTracingMissReturnsBackground(t *testing.T) {
	world := geometry.NewList()
	ray := core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, -1))
	sampler := core.NewSeededSampler(1)

	for _, iterative := range []bool{false, true} {
		integrator := NewPathTracingIntegrator(Config{MaxDepth: 5, Iterative: iterative, Background: DefaultBackground()})
		got := integrator.RayColor(ray, world, sampler)
		if !vecNear(got, core.NewVec3(0.75, 0.85, 1.0), 1e-9) {
			t.Errorf("iterative=%v: expected horizon color, got %v", iterative, got)
		}
	}
}

func TestPathTracingAbsorbedIsBlack(t *testing.T) {
	world := geometry.NewSphere(core.NewVec3(0, 0, -2), 0.5, absorber{})
	ray := core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, -1))

	for _, iterative := range []bool{false, true} {
		integrator := NewPathTracingIntegrator(Config{MaxDepth: 10, Iterative: iterative, Background: DefaultBackground()})
		if got := integrator.RayColor(ray, world, core.NewSeededSampler(1)); got != (core.Vec3{}) {
			t.Errorf("iterative=%v: expected black, got %v", iterative, got)
		}
	}
}

func TestPathTracingDegenerateSceneStaysFinite(t *testing.T) {
	// A zero-radius sphere in front of glass with an unusable index
	world := geometry.NewList(
		geometry.NewSphere(core.NewVec3(0, 0, -1), 0, material.NewLambertian(core.NewVec3(0.5, 0.5, 0.5))),
		geometry.NewSphere(core.NewVec3(0, 0, -3), 0.5, material.NewDielectric(0)),
	)
	ray := core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, -1))

	for _, iterative := range []bool{false, true} {
		integrator := NewPathTracingIntegrator(Config{MaxDepth: 10, Iterative: iterative, Background: DefaultBackground()})
		got := integrator.RayColor(ray, world, core.NewSeededSampler(3))
		if !got.IsFinite() {
			t.Fatalf("iterative=%v: expected a finite color, got %v", iterative, got)
		}
		if got != (core.Vec3{}) {
			t.Errorf("iterative=%v: expected the glass to absorb, got %v", iterative, got)
		}
	}
}

func TestPathTracingAttenuationMultipliesBackground(t *testing.T) {
	// The sphere reflects the ray upward, where nothing else is in the way
	world := geometry.NewSphere(core.NewVec3(0, 0, -2), 0.5, skyMirror{attenuation: core.NewVec3(0.5, 0.25, 1)})
	ray := core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, -1))
	expected := core.NewVec3(0.25, 0.175, 1.0)

	for _, iterative := range []bool{false, true} {
		integrator := NewPathTracingIntegrator(Config{MaxDepth: 2, Iterative: iterative, Background: DefaultBackground()})
		got := integrator.RayColor(ray, world, core.NewSeededSampler(1))
		if !vecNear(got, expected, 1e-9) {
			t.Errorf("iterative=%v: expected %v, got %v", iterative, expected, got)
		}

		// One bounce is spent on the sphere; nothing is left for the sky
		integrator = NewPathTracingIntegrator(Config{MaxDepth: 1, Iterative: iterative, Background: DefaultBackground()})
		if got := integrator.RayColor(ray, world, core.NewSeededSampler(1)); got != (core.Vec3{}) {
			t.Errorf("iterative=%v: expected black with depth 1, got %v", iterative, got)
		}
	}
}

func TestRecursiveAndIterativeAgree(t *testing.T) {
	world := geometry.NewList(
		geometry.NewSphere(core.NewVec3(0, 0, -1), 0.5, material.NewLambertian(core.NewVec3(0.1, 0.2, 0.5))),
		geometry.NewSphere(core.NewVec3(-1, 0, -1), 0.5, material.NewDielectric(1.5)),
		geometry.NewSphere(core.NewVec3(1, 0, -1), 0.5, material.NewMetal(core.NewVec3(0.8, 0.6, 0.2), 0.3)),
		geometry.NewSphere(core.NewVec3(0, -100.5, -1), 100, material.NewLambertian(core.NewVec3(0.8, 0.8, 0))),
	)

	recursive := NewPathTracingIntegrator(Config{MaxDepth: 50, Background: DefaultBackground()})
	iterative := NewPathTracingIntegrator(Config{MaxDepth: 50, Iterative: true, Background: DefaultBackground()})

	directions := []core.Vec3{
		core.NewVec3(0, 0, -1),
		core.NewVec3(-1, 0, -1),
		core.NewVec3(1, 0.1, -1),
		core.NewVec3(0, -1, -1),
		core.NewVec3(0.3, 0.5, -1),
	}

	for i, dir := range directions {
		ray := core.NewRay(core.Vec3{}, dir)
		for seed := int64(0); seed < 20; seed++ {
			a := recursive.RayColor(ray, world, core.NewSeededSampler(seed))
			b := iterative.RayColor(ray, world, core.NewSeededSampler(seed))
			if !vecNear(a, b, 1e-12) {
				t.Fatalf("direction %d seed %d: recursive %v != iterative %v", i, seed, a, b)
			}
		}
	}
}
