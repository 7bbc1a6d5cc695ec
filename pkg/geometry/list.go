package geometry

import (
	"github.com/df07/go-scanline-raytracer/pkg/core"
	"github.com/df07/go-scanline-raytracer/pkg/material"
)

// List is an ordered collection of surfaces tested by linear scan
type List struct {
	Objects     []Surface
	boundingBox core.AABB
}

// NewList creates a list containing the given surfaces
func NewList(objects ...Surface) *List {
	l := &List{boundingBox: core.EmptyAABB}
	for _, object := range objects {
		l.Add(object)
	}
	return l
}

// Add appends a surface and grows the list's bounding box
func (l *List) Add(object Surface) {
	l.Objects = append(l.Objects, object)
	l.boundingBox = l.boundingBox.Union(object.BoundingBox())
}

// Clear removes every surface
func (l *List) Clear() {
	l.Objects = nil
	l.boundingBox = core.EmptyAABB
}

// Hit returns the closest hit among all surfaces in the list
func (l *List) Hit(ray core.Ray, rayT core.Interval) (*material.HitRecord, bool) {
	var closestHit *material.HitRecord
	closestSoFar := rayT.Max

	for _, object := range l.Objects {
		if hit, isHit := object.Hit(ray, core.NewInterval(rayT.Min, closestSoFar)); isHit {
			closestSoFar = hit.T
			closestHit = hit
		}
	}

	return closestHit, closestHit != nil
}

// BoundingBox returns the union of the members' boxes
func (l *List) BoundingBox() core.AABB {
	return l.boundingBox
}
