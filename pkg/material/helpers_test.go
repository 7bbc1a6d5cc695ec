package material

import (
	"github.com/df07/go-scanline-raytracer/pkg/core"
)

// fixedSampler replays the same values on every call
type fixedSampler struct {
	value1D float64
	value3D core.Vec3
}

func (f fixedSampler) Get1D() float64 { return f.value1D }
func (f fixedSampler) Get2D() core.Vec2 {
	return core.NewVec2(f.value3D.X, f.value3D.Y)
}
func (f fixedSampler) Get3D() core.Vec3 { return f.value3D }

// samplerForUnitVector returns a sampler whose RandomUnitVector draw is exactly v.
// v must have unit length.
func samplerForUnitVector(v core.Vec3) fixedSampler {
	return fixedSampler{
		value3D: core.NewVec3((v.X+1)/2, (v.Y+1)/2, (v.Z+1)/2),
	}
}
