package geometry

import (
	"math"

	"github.com/df07/go-scanline-raytracer/pkg/core"
	"github.com/df07/go-scanline-raytracer/pkg/material"
)

// Sphere represents a sphere shape. A moving sphere travels from Center0 at
// time 0 to Center0+Velocity at time 1. A negative radius flips the normals,
// which models the inside surface of a hollow glass shell.
type Sphere struct {
	Center0     core.Vec3
	Velocity    core.Vec3
	Radius      float64
	Material    material.Material
	boundingBox core.AABB
}

// NewSphere creates a new stationary sphere
func NewSphere(center core.Vec3, radius float64, mat material.Material) *Sphere {
	return NewMovingSphere(center, center, radius, mat)
}

// NewMovingSphere creates a sphere whose center moves linearly from center0 (time 0) to center1 (time 1)
func NewMovingSphere(center0, center1 core.Vec3, radius float64, mat material.Material) *Sphere {
	return NewSphereWithVelocity(center0, center1.Subtract(center0), radius, mat)
}

// NewSphereWithVelocity creates a sphere centered at center0 at time 0 that
// moves by velocity over the unit time interval
func NewSphereWithVelocity(center0, velocity core.Vec3, radius float64, mat material.Material) *Sphere {
	s := &Sphere{
		Center0:  center0,
		Velocity: velocity,
		Radius:   radius,
		Material: mat,
	}

	r := math.Abs(radius)
	rvec := core.NewVec3(r, r, r)
	center1 := center0.Add(velocity)
	box0 := core.NewAABBFromPoints(center0.Subtract(rvec), center0.Add(rvec))
	box1 := core.NewAABBFromPoints(center1.Subtract(rvec), center1.Add(rvec))
	s.boundingBox = box0.Union(box1)

	return s
}

// IsMoving reports whether the sphere has a non-zero velocity
func (s *Sphere) IsMoving() bool {
	return s.Velocity != (core.Vec3{})
}

// CenterAt returns the sphere center at the given time
func (s *Sphere) CenterAt(time float64) core.Vec3 {
	return s.Center0.Add(s.Velocity.Multiply(time))
}

// Hit tests if a ray intersects with the sphere. A zero-radius sphere has no
// surface normal and is never hit.
func (s *Sphere) Hit(ray core.Ray, rayT core.Interval) (*material.HitRecord, bool) {
	if s.Radius == 0 {
		return nil, false
	}
	center := s.CenterAt(ray.Time)
	oc := ray.Origin.Subtract(center)

	// Quadratic equation coefficients: at² + 2(halfB)t + c = 0
	a := ray.Direction.LengthSquared()
	if a == 0 {
		return nil, false
	}
	halfB := oc.Dot(ray.Direction)
	c := oc.LengthSquared() - s.Radius*s.Radius

	discriminant := halfB*halfB - a*c
	if discriminant < 0 {
		return nil, false
	}
	sqrtD := math.Sqrt(discriminant)

	// Find the nearest root that lies in the acceptable range
	root := (-halfB - sqrtD) / a
	if !rayT.Surrounds(root) {
		root = (-halfB + sqrtD) / a
		if !rayT.Surrounds(root) {
			return nil, false
		}
	}

	hitRecord := &material.HitRecord{
		T:        root,
		Point:    ray.At(root),
		Material: s.Material,
	}

	outwardNormal := hitRecord.Point.Subtract(center).Divide(s.Radius)
	hitRecord.SetFaceNormal(ray, outwardNormal)

	return hitRecord, true
}

// BoundingBox returns the box swept by the sphere over the time interval [0,1]
func (s *Sphere) BoundingBox() core.AABB {
	return s.boundingBox
}
