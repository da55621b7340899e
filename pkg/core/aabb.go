package core

import "math"

// slabEpsilon widens a positive far slab distance by a few ULPs so rays grazing a face
// shared by two adjacent boxes are not rejected by rounding.
const slabEpsilon = 1 + 2*0x1p-52

// AABB represents an axis-aligned bounding box.
// An empty box has Min = +Inf and Max = -Inf; it is the identity for Union.
type AABB struct {
	Min Vec3 // Minimum corner
	Max Vec3 // Maximum corner
}

// NewAABB creates a new AABB from min and max points
func NewAABB(min, max Vec3) AABB {
	return AABB{Min: min, Max: max}
}

// EmptyAABB returns a box that contains nothing
func EmptyAABB() AABB {
	return AABB{Min: Splat(math.Inf(1)), Max: Splat(math.Inf(-1))}
}

// NewAABBFromPoints creates an AABB that bounds all given points
func NewAABBFromPoints(points ...Vec3) AABB {
	box := EmptyAABB()
	for _, point := range points {
		box.Min = MinVec(box.Min, point)
		box.Max = MaxVec(box.Max, point)
	}
	return box
}

// Hit tests the ray against the box using the slab method.
// The interval starts at [0, ray.MaxT]; the box is hit when it stays non-empty.
func (aabb AABB) Hit(ray Ray) bool {
	minT := 0.0
	maxT := ray.MaxT

	for axis := 0; axis < 3; axis++ {
		origin := ray.Origin.Axis(axis)
		inv := ray.InvDirection.Axis(axis)

		t1 := (aabb.Min.Axis(axis) - origin) * inv
		t2 := (aabb.Max.Axis(axis) - origin) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		// Only a positive far distance grows when scaled
		if t2 > 0 {
			t2 *= slabEpsilon
		}

		// Comparisons instead of min/max so a NaN slab (origin on the plane of a
		// face with a zero direction component) leaves the interval unchanged.
		if t1 > minT {
			minT = t1
		}
		if t2 < maxT {
			maxT = t2
		}
	}

	return minT < maxT
}

// Union returns an AABB that bounds both this AABB and another
func (aabb AABB) Union(other AABB) AABB {
	return AABB{Min: MinVec(aabb.Min, other.Min), Max: MaxVec(aabb.Max, other.Max)}
}

// Intersection returns the region common to both boxes. The result is invalid
// when the boxes are disjoint.
func (aabb AABB) Intersection(other AABB) AABB {
	return AABB{Min: MaxVec(aabb.Min, other.Min), Max: MinVec(aabb.Max, other.Max)}
}

// Overlaps reports whether the boxes share a region of non-zero volume
func (aabb AABB) Overlaps(other AABB) bool {
	common := aabb.Intersection(other)
	return common.IsValid() && common.Volume() > 0
}

// Contains reports whether the point lies inside or on the box
func (aabb AABB) Contains(p Vec3) bool {
	return p.X >= aabb.Min.X && p.X <= aabb.Max.X &&
		p.Y >= aabb.Min.Y && p.Y <= aabb.Max.Y &&
		p.Z >= aabb.Min.Z && p.Z <= aabb.Max.Z
}

// Center returns the center point of the AABB
func (aabb AABB) Center() Vec3 {
	return aabb.Min.Add(aabb.Max).Multiply(0.5)
}

// Size returns the size (extent) of the AABB along each axis
func (aabb AABB) Size() Vec3 {
	return aabb.Max.Subtract(aabb.Min)
}

// Area returns the surface area of the AABB
func (aabb AABB) Area() float64 {
	size := aabb.Size()
	return 2.0 * (size.X*size.Y + size.Y*size.Z + size.Z*size.X)
}

// Volume returns the volume of the AABB
func (aabb AABB) Volume() float64 {
	size := aabb.Size()
	return size.X * size.Y * size.Z
}

// LongestAxis returns the axis (0=X, 1=Y, 2=Z) with the longest extent
func (aabb AABB) LongestAxis() int {
	size := aabb.Size()
	if size.X >= size.Y && size.X >= size.Z {
		return 0 // X axis
	}
	if size.Y >= size.Z {
		return 1 // Y axis
	}
	return 2 // Z axis
}

// IsValid returns true if this is a valid AABB (min <= max for all axes)
func (aabb AABB) IsValid() bool {
	return aabb.Min.X <= aabb.Max.X &&
		aabb.Min.Y <= aabb.Max.Y &&
		aabb.Min.Z <= aabb.Max.Z
}
