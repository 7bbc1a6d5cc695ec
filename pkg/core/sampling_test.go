package core

import (
	"math"
	"testing"
)

func TestRandomUnitVector_IsUnit(t *testing.T) {
	sampler := NewSeededSampler(42)
	for i := 0; i < 1000; i++ {
		v := RandomUnitVector(sampler)
		if math.Abs(v.Length()-1) > 1e-9 {
			t.Fatalf("Sample %d: expected unit length, got %f", i, v.Length())
		}
	}
}

func TestRandomInUnitDisk_InsideDisk(t *testing.T) {
	sampler := NewSeededSampler(7)
	for i := 0; i < 1000; i++ {
		p := RandomInUnitDisk(sampler)
		if p.Z != 0 || p.LengthSquared() >= 1 {
			t.Fatalf("Sample %d outside unit disk: %v", i, p)
		}
	}
}

func TestRandomInt_Range(t *testing.T) {
	sampler := NewSeededSampler(1)
	seen := map[int]bool{}
	for i := 0; i < 1000; i++ {
		n := RandomInt(sampler, 0, 2)
		if n < 0 || n > 2 {
			t.Fatalf("RandomInt out of range: %d", n)
		}
		seen[n] = true
	}
	if len(seen) != 3 {
		t.Errorf("Expected all three axes to be drawn, got %v", seen)
	}
}
