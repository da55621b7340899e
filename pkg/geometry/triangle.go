package geometry

import (
	"math"

	"github.com/df07/go-tile-pathtracer/pkg/core"
)

// parallelEpsilon rejects rays that run (nearly) inside the triangle plane
const parallelEpsilon = 1e-12

// Vertex is a mesh corner with its shading normal and texture coordinate
type Vertex struct {
	Position core.Vec3
	Normal   core.Vec3
	UV       core.Vec2
}

// Triangle represents a single triangle defined by three vertices.
// Barycentrics (x, y) weight V1 and V2; V0 receives 1-x-y.
type Triangle struct {
	V0, V1, V2    Vertex
	MaterialIndex int
	EmissiveIndex int // Index into the emissive list, -1 when not emissive
	ID            int // Position in the original triangle list, stable across BVH reordering

	normal   core.Vec3 // Cached unit face normal
	centroid core.Vec3 // Cached centroid
	bbox     core.AABB // Cached bounding box
}

// HitRecord describes the closest intersection found so far.
// T is +Inf while nothing has been hit.
type HitRecord struct {
	Hit           bool
	T             float64
	Point         core.Vec3
	Normal        core.Vec3 // Geometric (face) normal
	Barycentrics  core.Vec2
	MaterialIndex int
	TriangleIndex int // Index into the BVH-ordered triangle slice
}

// NoHit returns an empty hit record
func NoHit() HitRecord {
	return HitRecord{T: math.Inf(1), TriangleIndex: -1, MaterialIndex: -1}
}

// NewTriangle creates a triangle and caches its face normal, centroid and bounds
func NewTriangle(v0, v1, v2 Vertex, materialIndex int) Triangle {
	t := Triangle{
		V0:            v0,
		V1:            v1,
		V2:            v2,
		MaterialIndex: materialIndex,
		EmissiveIndex: -1,
	}
	t.normal = v1.Position.Subtract(v0.Position).Cross(v2.Position.Subtract(v0.Position)).Normalize()
	t.centroid = v0.Position.Add(v1.Position).Add(v2.Position).Multiply(1.0 / 3.0)
	t.bbox = core.NewAABBFromPoints(v0.Position, v1.Position, v2.Position)
	return t
}

// NewFlatTriangle creates a triangle whose vertex normals all equal the face normal
func NewFlatTriangle(p0, p1, p2 core.Vec3, materialIndex int) Triangle {
	n := p1.Subtract(p0).Cross(p2.Subtract(p0)).Normalize()
	return NewTriangle(
		Vertex{Position: p0, Normal: n},
		Vertex{Position: p1, Normal: n, UV: core.NewVec2(1, 0)},
		Vertex{Position: p2, Normal: n, UV: core.NewVec2(0, 1)},
		materialIndex,
	)
}

// Normal returns the unit face normal, oriented by the winding V0 -> V1 -> V2
func (t *Triangle) Normal() core.Vec3 {
	return t.normal
}

// Centroid returns the average of the three vertex positions
func (t *Triangle) Centroid() core.Vec3 {
	return t.centroid
}

// BoundingBox returns the bounding box of the triangle
func (t *Triangle) BoundingBox() core.AABB {
	return t.bbox
}

// Area returns the surface area of the triangle
func (t *Triangle) Area() float64 {
	return 0.5 * t.V1.Position.Subtract(t.V0.Position).Cross(t.V2.Position.Subtract(t.V0.Position)).Length()
}

// InterpolatedNormal blends the vertex normals with the given barycentrics
func (t *Triangle) InterpolatedNormal(bary core.Vec2) core.Vec3 {
	w := 1 - bary.X - bary.Y
	return t.V1.Normal.Multiply(bary.X).
		Add(t.V2.Normal.Multiply(bary.Y)).
		Add(t.V0.Normal.Multiply(w)).
		Normalize()
}

// InterpolatedUV blends the vertex texture coordinates with the given barycentrics
func (t *Triangle) InterpolatedUV(bary core.Vec2) core.Vec2 {
	w := 1 - bary.X - bary.Y
	return t.V1.UV.Multiply(bary.X).
		Add(t.V2.UV.Multiply(bary.Y)).
		Add(t.V0.UV.Multiply(w))
}

// Hit tests the ray against the triangle plane and its three edges.
// With cullBackFace set, rays arriving from behind the face normal are ignored.
// On success rec is filled except for TriangleIndex, which the caller owns.
func (t *Triangle) Hit(ray core.Ray, cullBackFace bool, rec *HitRecord) bool {
	d := ray.Direction.Dot(t.normal)
	if cullBackFace && d >= 0 {
		return false
	}
	// Degenerate triangles have a zero normal and are rejected here too
	if !(math.Abs(d) >= parallelEpsilon) {
		return false
	}

	a := t.V0.Position
	b := t.V1.Position
	c := t.V2.Position

	dist := a.Subtract(ray.Origin).Dot(t.normal) / d
	if dist < 0 || dist > ray.MaxT {
		return false
	}

	p := ray.At(dist)

	// The hit point must lie on the inner side of every edge
	if t.normal.Dot(b.Subtract(a).Cross(p.Subtract(a))) < 0 ||
		t.normal.Dot(c.Subtract(b).Cross(p.Subtract(b))) < 0 ||
		t.normal.Dot(a.Subtract(c).Cross(p.Subtract(c))) < 0 {
		return false
	}

	ab := b.Subtract(a)
	ac := c.Subtract(a)
	ap := p.Subtract(a)
	area2 := ab.Cross(ac).Length()

	rec.Hit = true
	rec.T = dist
	rec.Point = p
	rec.Normal = t.normal
	rec.Barycentrics = core.NewVec2(
		ap.Cross(ac).Length()/area2,
		ab.Cross(ap).Length()/area2,
	)
	rec.MaterialIndex = t.MaterialIndex
	return true
}
