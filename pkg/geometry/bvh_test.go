package geometry

import (
	"math"
	"math/rand"
	"testing"

	"github.com/df07/go-scanline-raytracer/pkg/core"
	"github.com/df07/go-scanline-raytracer/pkg/material"
)

// MockShape for testing
type MockShape struct {
	boundingBox core.AABB
	hitFn       func(ray core.Ray, rayT core.Interval) (*material.HitRecord, bool)
}

func (m MockShape) Hit(ray core.Ray, rayT core.Interval) (*material.HitRecord, bool) {
	return m.hitFn(ray, rayT)
}

func (m MockShape) BoundingBox() core.AABB {
	return m.boundingBox
}

// randomSpheres returns n spheres on a grid so that none of them overlap
func randomSpheres(n int, random *rand.Rand) []Surface {
	mat := material.NewLambertian(core.NewVec3(0.5, 0.5, 0.5))
	spheres := make([]Surface, 0, n)
	for i := 0; i < n; i++ {
		center := core.NewVec3(float64(i%5)*2.5, float64((i/5)%5)*2.5, -float64(i/25)*2.5-3)
		radius := 0.3 + random.Float64()*0.8
		spheres = append(spheres, NewSphere(center, radius, mat))
	}
	return spheres
}

func TestBVH_EquivalentToList(t *testing.T) {
	random := rand.New(rand.NewSource(42))
	sampler := core.NewRandomSampler(random)

	for _, n := range []int{1, 2, 3, 7, 50} {
		spheres := randomSpheres(n, random)
		bvh := NewBVHNode(spheres, sampler)
		list := NewList(spheres...)

		for i := 0; i < 500; i++ {
			origin := core.NewVec3(random.Float64()*20-5, random.Float64()*20-5, 10)
			target := core.NewVec3(random.Float64()*12, random.Float64()*12, -random.Float64()*10)
			ray := core.NewRay(origin, target.Subtract(origin))

			bvhHit, bvhIsHit := bvh.Hit(ray, testRange)
			listHit, listIsHit := list.Hit(ray, testRange)

			if bvhIsHit != listIsHit {
				t.Fatalf("n=%d ray %d: BVH hit=%v, list hit=%v", n, i, bvhIsHit, listIsHit)
			}
			if !bvhIsHit {
				continue
			}
			if bvhHit.T != listHit.T || bvhHit.Point != listHit.Point {
				t.Fatalf("n=%d ray %d: BVH hit t=%f at %v, list hit t=%f at %v",
					n, i, bvhHit.T, bvhHit.Point, listHit.T, listHit.Point)
			}
			if bvhHit.Material != listHit.Material {
				t.Fatalf("n=%d ray %d: material identity differs", n, i)
			}
		}
	}
}

func TestBVH_SingleObjectDuplicated(t *testing.T) {
	sphere := NewSphere(core.NewVec3(0, 0, -1), 0.5, nil)
	node := NewBVHNode([]Surface{sphere}, core.NewSeededSampler(1))

	if node.Left != sphere || node.Right != sphere {
		t.Error("Expected the sole object to be used as both children")
	}
	if node.BoundingBox() != sphere.BoundingBox() {
		t.Errorf("Expected node box %v, got %v", sphere.BoundingBox(), node.BoundingBox())
	}
}

func TestBVH_Empty(t *testing.T) {
	node := NewBVHNode(nil, core.NewSeededSampler(1))
	if node != nil {
		t.Fatal("Expected nil node for empty input")
	}
	if _, isHit := node.Hit(core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(1, 0, 0)), testRange); isHit {
		t.Error("Expected nil node to miss")
	}
	if node.BoundingBox() != core.EmptyAABB {
		t.Error("Expected nil node to have an empty box")
	}
}

func TestBVH_DoesNotReorderInput(t *testing.T) {
	spheres := randomSpheres(20, rand.New(rand.NewSource(3)))
	original := make([]Surface, len(spheres))
	copy(original, spheres)

	NewBVHNode(spheres, core.NewSeededSampler(3))

	for i := range spheres {
		if spheres[i] != original[i] {
			t.Fatalf("Input slice was reordered at index %d", i)
		}
	}
}

func TestBVH_SkipsChildrenWhenBoxMisses(t *testing.T) {
	called := false
	shape := MockShape{
		boundingBox: core.NewAABBFromPoints(core.NewVec3(0, 0, 0), core.NewVec3(1, 1, 1)),
		hitFn: func(ray core.Ray, rayT core.Interval) (*material.HitRecord, bool) {
			called = true
			return nil, false
		},
	}
	node := NewBVHNode([]Surface{shape, shape}, core.NewSeededSampler(1))

	node.Hit(core.NewRay(core.NewVec3(5, 5, 5), core.NewVec3(1, 0, 0)), testRange)
	if called {
		t.Error("Expected children not to be tested when the node's box is missed")
	}
}

func TestBVH_RightChildSearchesUpToLeftHit(t *testing.T) {
	box := core.NewAABBFromPoints(core.NewVec3(-1, -1, -1), core.NewVec3(1, 1, 1))
	var rightMax float64
	left := MockShape{
		boundingBox: box,
		hitFn: func(ray core.Ray, rayT core.Interval) (*material.HitRecord, bool) {
			return &material.HitRecord{T: 2}, true
		},
	}
	right := MockShape{
		boundingBox: box,
		hitFn: func(ray core.Ray, rayT core.Interval) (*material.HitRecord, bool) {
			rightMax = rayT.Max
			return nil, false
		},
	}

	node := NewBVHNodeFromChildren(left, right)
	hit, isHit := node.Hit(core.NewRay(core.NewVec3(0, 0, 5), core.NewVec3(0, 0, -1)), testRange)
	if !isHit || hit.T != 2 {
		t.Fatalf("Expected the left hit at t=2, got %v", hit)
	}
	if rightMax != 2 {
		t.Errorf("Expected right child to be searched up to t=2, got %f", rightMax)
	}
}

func TestBVH_Stats(t *testing.T) {
	spheres := randomSpheres(16, rand.New(rand.NewSource(5)))
	stats := NewBVHNode(spheres, core.NewSeededSampler(5)).Stats()

	// 16 leaves split by halves: 15 internal nodes, depth log2(16)
	if stats.TotalNodes != 15 {
		t.Errorf("Expected 15 nodes, got %d", stats.TotalNodes)
	}
	if stats.Leaves != 16 {
		t.Errorf("Expected 16 leaves, got %d", stats.Leaves)
	}
	if stats.MaxDepth != int(math.Log2(16)) {
		t.Errorf("Expected depth 4, got %d", stats.MaxDepth)
	}
}
