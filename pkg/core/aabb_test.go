package core

import (
	"math"
	"math/rand"
	"testing"
)

func randomBox(random *rand.Rand) AABB {
	a := NewVec3(random.Float64()*10-5, random.Float64()*10-5, random.Float64()*10-5)
	b := NewVec3(random.Float64()*10-5, random.Float64()*10-5, random.Float64()*10-5)
	return NewAABB(MinVec(a, b), MaxVec(a, b))
}

func TestAABB_UnionProperties(t *testing.T) {
	random := rand.New(rand.NewSource(1))

	for i := 0; i < 200; i++ {
		a, b, c := randomBox(random), randomBox(random), randomBox(random)

		if a.Union(a) != a {
			t.Fatalf("union(b,b) != b for %v", a)
		}
		if a.Union(b) != b.Union(a) {
			t.Fatalf("union is not commutative for %v, %v", a, b)
		}
		if a.Union(b).Union(c) != a.Union(b.Union(c)) {
			t.Fatalf("union is not associative for %v, %v, %v", a, b, c)
		}
		if a.Union(EmptyAABB()) != a {
			t.Fatalf("empty box is not the union identity for %v", a)
		}
	}
}

func TestAABB_EmptyBox(t *testing.T) {
	empty := EmptyAABB()
	if empty.IsValid() {
		t.Error("Expected empty box to be invalid")
	}
	if !math.IsInf(empty.Min.X, 1) || !math.IsInf(empty.Max.X, -1) {
		t.Errorf("Unexpected empty box %v", empty)
	}

	ray := NewRay(NewVec3(0, 0, -5), NewVec3(0, 0, 1))
	if empty.Hit(ray) {
		t.Error("Expected ray to miss the empty box")
	}
}

func TestAABB_FromPointsContainsPoints(t *testing.T) {
	random := rand.New(rand.NewSource(2))
	for i := 0; i < 100; i++ {
		v0 := NewVec3(random.NormFloat64(), random.NormFloat64(), random.NormFloat64())
		v1 := NewVec3(random.NormFloat64(), random.NormFloat64(), random.NormFloat64())
		v2 := NewVec3(random.NormFloat64(), random.NormFloat64(), random.NormFloat64())

		box := NewAABBFromPoints(v0, v1, v2)
		for _, v := range []Vec3{v0, v1, v2} {
			if !box.Contains(v) {
				t.Fatalf("Box %v does not contain vertex %v", box, v)
			}
		}
	}
}

func TestAABB_IntersectionAndOverlap(t *testing.T) {
	tests := []struct {
		name     string
		a, b     AABB
		overlaps bool
	}{
		{
			name:     "Overlapping",
			a:        NewAABB(NewVec3(0, 0, 0), NewVec3(2, 2, 2)),
			b:        NewAABB(NewVec3(1, 1, 1), NewVec3(3, 3, 3)),
			overlaps: true,
		},
		{
			name:     "Disjoint",
			a:        NewAABB(NewVec3(0, 0, 0), NewVec3(1, 1, 1)),
			b:        NewAABB(NewVec3(2, 2, 2), NewVec3(3, 3, 3)),
			overlaps: false,
		},
		{
			name:     "Touching face has zero volume",
			a:        NewAABB(NewVec3(0, 0, 0), NewVec3(1, 1, 1)),
			b:        NewAABB(NewVec3(1, 0, 0), NewVec3(2, 1, 1)),
			overlaps: false,
		},
		{
			name:     "Nested",
			a:        NewAABB(NewVec3(-5, -5, -5), NewVec3(5, 5, 5)),
			b:        NewAABB(NewVec3(-1, -1, -1), NewVec3(1, 1, 1)),
			overlaps: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Overlaps(tt.b); got != tt.overlaps {
				t.Errorf("Overlaps: expected %t, got %t", tt.overlaps, got)
			}
			if tt.a.Overlaps(tt.b) != tt.b.Overlaps(tt.a) {
				t.Error("Overlaps is not symmetric")
			}
		})
	}

	common := NewAABB(NewVec3(0, 0, 0), NewVec3(2, 2, 2)).Intersection(NewAABB(NewVec3(1, 1, 1), NewVec3(3, 3, 3)))
	if common != NewAABB(NewVec3(1, 1, 1), NewVec3(2, 2, 2)) {
		t.Errorf("Unexpected intersection %v", common)
	}
}

func TestAABB_AreaAndVolume(t *testing.T) {
	box := NewAABB(NewVec3(0, 0, 0), NewVec3(1, 2, 3))
	if box.Area() != 22 {
		t.Errorf("Expected area 22, got %f", box.Area())
	}
	if box.Volume() != 6 {
		t.Errorf("Expected volume 6, got %f", box.Volume())
	}
	if box.LongestAxis() != 2 {
		t.Errorf("Expected longest axis Z, got %d", box.LongestAxis())
	}
}

func TestAABB_Hit(t *testing.T) {
	box := NewAABB(NewVec3(-1, -1, -1), NewVec3(1, 1, 1))

	tests := []struct {
		name     string
		ray      Ray
		expected bool
	}{
		{"Straight through", NewRay(NewVec3(0, 0, -5), NewVec3(0, 0, 1)), true},
		{"Pointing away", NewRay(NewVec3(0, 0, -5), NewVec3(0, 0, -1)), false},
		{"Miss to the side", NewRay(NewVec3(3, 0, -5), NewVec3(0, 0, 1)), false},
		{"Origin inside", NewRay(NewVec3(0, 0, 0), NewVec3(1, 2, 3)), true},
		{"Diagonal", NewRay(NewVec3(-5, -5, -5), NewVec3(1, 1, 1)), true},
		{"Axis aligned on face plane", NewRay(NewVec3(1, 0, -5), NewVec3(0, 0, 1)), true},
		{"Bounded short of box", NewBoundedRay(NewVec3(0, 0, -5), NewVec3(0, 0, 1), 3), false},
		{"Bounded reaching box", NewBoundedRay(NewVec3(0, 0, -5), NewVec3(0, 0, 1), 4.5), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := box.Hit(tt.ray); got != tt.expected {
				t.Errorf("Expected hit=%t, got %t", tt.expected, got)
			}
		})
	}
}

func TestAABB_HitFarSlabWidening(t *testing.T) {
	flat := NewAABB(NewVec3(-1, -1, 0), NewVec3(1, 1, 0))
	box := NewAABB(NewVec3(-1, -1, -1), NewVec3(1, 1, 1))

	tests := []struct {
		name     string
		box      AABB
		ray      Ray
		expected bool
	}{
		{"Zero thickness box in front", flat, NewRay(NewVec3(0, 0, -5), NewVec3(0, 0, 1)), true},
		{"Zero thickness box behind", flat, NewRay(NewVec3(0, 0, 5), NewVec3(0, 0, 1)), false},
		{"Box just behind origin", box, NewRay(NewVec3(0, 0, 1.0000001), NewVec3(0, 0, 1)), false},
		{"Box behind along negative axis", box, NewRay(NewVec3(0, 0, -1.0000001), NewVec3(0, 0, -1)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.box.Hit(tt.ray); got != tt.expected {
				t.Errorf("Expected hit=%t, got %t", tt.expected, got)
			}
		})
	}
}
