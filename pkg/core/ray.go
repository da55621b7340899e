package core

import "math"

// Ray is a half-line with a normalized direction and a shrinking upper bound.
// InvDirection is cached for the box slab test.
type Ray struct {
	Origin       Vec3
	Direction    Vec3
	InvDirection Vec3
	MaxT         float64
}

// NewRay creates an unbounded ray. The direction is normalized.
func NewRay(origin, direction Vec3) Ray {
	return NewBoundedRay(origin, direction, math.Inf(1))
}

// NewBoundedRay creates a ray whose hits are limited to t <= maxT
func NewBoundedRay(origin, direction Vec3, maxT float64) Ray {
	d := direction.Normalize()
	return Ray{
		Origin:       origin,
		Direction:    d,
		InvDirection: Vec3{1 / d.X, 1 / d.Y, 1 / d.Z},
		MaxT:         maxT,
	}
}

// At returns the point at parameter t along the ray
func (r Ray) At(t float64) Vec3 {
	return r.Origin.Add(r.Direction.Multiply(t))
}
