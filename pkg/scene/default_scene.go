package scene

import (
	"github.com/df07/go-scanline-raytracer/pkg/core"
	"github.com/df07/go-scanline-raytracer/pkg/geometry"
	"github.com/df07/go-scanline-raytracer/pkg/material"
)

// defaultSceneSeed fixes the layout of the small spheres so that every run of
// the default scene looks the same
const defaultSceneSeed = 42

// NewDefaultScene creates the classic field of random small spheres around
// three large ones. Diffuse small spheres bounce upward during the exposure.
func NewDefaultScene(cameraOverrides ...geometry.CameraConfig) *Scene {
	defaultCameraConfig := geometry.CameraConfig{
		Width:           400,
		Height:          225, // 16:9
		LookFrom:        core.NewVec3(13, 2, 3),
		LookAt:          core.NewVec3(0, 0, 0),
		Up:              core.NewVec3(0, 1, 0),
		VFov:            20,
		SamplesPerPixel: 100,
		MaxDepth:        50,
		DefocusAngle:    0.6,
		FocusDistance:   10,
	}

	// Apply any overrides using the reusable merge function
	cameraConfig := defaultCameraConfig
	if len(cameraOverrides) > 0 {
		cameraConfig = geometry.MergeCameraConfig(defaultCameraConfig, cameraOverrides[0])
	}

	sampler := core.NewSeededSampler(defaultSceneSeed)
	objects := make([]geometry.Surface, 0, 500)

	ground := material.NewLambertian(core.NewVec3(0.5, 0.5, 0.5))
	objects = append(objects, geometry.NewSphere(core.NewVec3(0, -1000, 0), 1000, ground))

	// Small spheres share one glass material
	glass := material.NewDielectric(1.5)
	clearance := core.NewVec3(4, 0.2, 0)

	for a := -11; a < 11; a++ {
		for b := -11; b < 11; b++ {
			chooseMat := sampler.Get1D()
			offset := sampler.Get2D()
			center := core.NewVec3(float64(a)+0.9*offset.X, 0.2, float64(b)+0.9*offset.Y)

			if center.Subtract(clearance).Length() <= 0.9 {
				continue
			}

			switch {
			case chooseMat < 0.8:
				// Diffuse, bouncing upward during the exposure
				albedo := sampler.Get3D().MultiplyVec(sampler.Get3D())
				bounce := core.NewVec3(0, 0.5*sampler.Get1D(), 0)
				objects = append(objects, geometry.NewMovingSphere(center, center.Add(bounce), 0.2, material.NewLambertian(albedo)))
			case chooseMat < 0.95:
				// Metal
				c := sampler.Get3D()
				albedo := core.NewVec3(0.5+0.5*c.X, 0.5+0.5*c.Y, 0.5+0.5*c.Z)
				fuzz := 0.5 * sampler.Get1D()
				objects = append(objects, geometry.NewSphere(center, 0.2, material.NewMetal(albedo, fuzz)))
			default:
				objects = append(objects, geometry.NewSphere(center, 0.2, glass))
			}
		}
	}

	objects = append(objects,
		geometry.NewSphere(core.NewVec3(0, 1, 0), 1.0, glass),
		geometry.NewSphere(core.NewVec3(-4, 1, 0), 1.0, material.NewLambertian(core.NewVec3(0.4, 0.2, 0.1))),
		geometry.NewSphere(core.NewVec3(4, 1, 0), 1.0, material.NewMetal(core.NewVec3(0.7, 0.6, 0.5), 0.0)),
	)

	return NewScene("default", cameraConfig, objects, sampler)
}

// NewThreeSpheresScene creates a diffuse sphere between a hollow glass sphere
// and a fuzzy metal one, resting on a large ground sphere
func NewThreeSpheresScene(cameraOverrides ...geometry.CameraConfig) *Scene {
	defaultCameraConfig := geometry.CameraConfig{
		Width:           400,
		Height:          225,
		LookFrom:        core.NewVec3(-2, 2, 1),
		LookAt:          core.NewVec3(0, 0, -1),
		Up:              core.NewVec3(0, 1, 0),
		VFov:            20,
		SamplesPerPixel: 100,
		MaxDepth:        50,
		DefocusAngle:    10,
		FocusDistance:   3.4,
	}

	cameraConfig := defaultCameraConfig
	if len(cameraOverrides) > 0 {
		cameraConfig = geometry.MergeCameraConfig(defaultCameraConfig, cameraOverrides[0])
	}

	ground := material.NewLambertian(core.NewVec3(0.8, 0.8, 0.0))
	center := material.NewLambertian(core.NewVec3(0.1, 0.2, 0.5))
	left := material.NewDielectric(1.5)
	right := material.NewMetal(core.NewVec3(0.8, 0.6, 0.2), 0.3)

	objects := []geometry.Surface{
		geometry.NewSphere(core.NewVec3(0, -100.5, -1), 100, ground),
		geometry.NewSphere(core.NewVec3(0, 0, -1), 0.5, center),
		geometry.NewSphere(core.NewVec3(-1, 0, -1), 0.5, left),
		// Air bubble inside the glass
		geometry.NewSphere(core.NewVec3(-1, 0, -1), -0.4, left),
		geometry.NewSphere(core.NewVec3(1, 0, -1), 0.5, right),
	}

	return NewScene("three-spheres", cameraConfig, objects, core.NewSeededSampler(1))
}
