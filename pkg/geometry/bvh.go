package geometry

import (
	"sort"

	"github.com/df07/go-scanline-raytracer/pkg/core"
	"github.com/df07/go-scanline-raytracer/pkg/material"
)

// BVHNode is a node in the Bounding Volume Hierarchy. Every node has exactly
// two children; a single surface is stored as both children.
type BVHNode struct {
	Left        Surface
	Right       Surface
	boundingBox core.AABB
}

// NewBVHNode builds a hierarchy over objects, splitting on a randomly chosen
// axis at every level. It returns nil for an empty slice; a nil node never
// reports a hit. The input slice is not modified.
func NewBVHNode(objects []Surface, sampler core.Sampler) *BVHNode {
	if len(objects) == 0 {
		return nil
	}

	// Sorting happens in place, so work on a copy
	objectsCopy := make([]Surface, len(objects))
	copy(objectsCopy, objects)

	return buildBVH(objectsCopy, sampler)
}

// NewBVHNodeFromChildren creates a node with the given children as-is
func NewBVHNodeFromChildren(left, right Surface) *BVHNode {
	return &BVHNode{
		Left:        left,
		Right:       right,
		boundingBox: left.BoundingBox().Union(right.BoundingBox()),
	}
}

// buildBVH recursively splits objects at the median of a random axis
func buildBVH(objects []Surface, sampler core.Sampler) *BVHNode {
	axis := core.RandomInt(sampler, 0, 2)
	less := func(a, b Surface) bool {
		return a.BoundingBox().Axis(axis).Min < b.BoundingBox().Axis(axis).Min
	}

	switch len(objects) {
	case 1:
		return NewBVHNodeFromChildren(objects[0], objects[0])
	case 2:
		if less(objects[0], objects[1]) {
			return NewBVHNodeFromChildren(objects[0], objects[1])
		}
		return NewBVHNodeFromChildren(objects[1], objects[0])
	}

	sort.Slice(objects, func(i, j int) bool {
		return less(objects[i], objects[j])
	})

	mid := len(objects) / 2
	return NewBVHNodeFromChildren(
		buildBVH(objects[:mid], sampler),
		buildBVH(objects[mid:], sampler),
	)
}

// Hit tests the node's box, then both children. The right child is searched
// only up to the left child's hit, so whichever child reports a hit last is
// the nearer one.
func (n *BVHNode) Hit(ray core.Ray, rayT core.Interval) (*material.HitRecord, bool) {
	if n == nil {
		return nil, false
	}
	if _, hit := n.boundingBox.Hit(ray, rayT); !hit {
		return nil, false
	}

	hitLeft, isHitLeft := n.Left.Hit(ray, rayT)

	rightMax := rayT.Max
	if isHitLeft {
		rightMax = hitLeft.T
	}
	hitRight, isHitRight := n.Right.Hit(ray, core.NewInterval(rayT.Min, rightMax))

	if isHitRight {
		return hitRight, true
	}
	return hitLeft, isHitLeft
}

// BoundingBox returns the union of the children's boxes
func (n *BVHNode) BoundingBox() core.AABB {
	if n == nil {
		return core.EmptyAABB
	}
	return n.boundingBox
}

// BVHStats contains statistics about a BVH's structure
type BVHStats struct {
	TotalNodes int // Internal BVH nodes
	Leaves     int // Non-BVH children (spheres, lists)
	MaxDepth   int
}

// Stats walks the hierarchy and collects structural statistics
func (n *BVHNode) Stats() BVHStats {
	stats := BVHStats{}
	if n != nil {
		n.collectStats(1, &stats)
	}
	return stats
}

// collectStats recursively collects statistics about the BVH
func (n *BVHNode) collectStats(depth int, stats *BVHStats) {
	stats.TotalNodes++
	if depth > stats.MaxDepth {
		stats.MaxDepth = depth
	}

	for _, child := range []Surface{n.Left, n.Right} {
		if node, ok := child.(*BVHNode); ok {
			node.collectStats(depth+1, stats)
		} else {
			stats.Leaves++
		}
	}
}
