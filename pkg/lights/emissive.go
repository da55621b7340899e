package lights

import (
	"github.com/df07/go-tile-pathtracer/pkg/core"
)

// minDistanceSquared floors the squared light distance to keep densities finite
const minDistanceSquared = 1e-10

// EmissiveTriangle is one entry of the emissive table: the triangle's corners
// and face normal copied at scene assembly, plus its emission color.
type EmissiveTriangle struct {
	V0, V1, V2 core.Vec3
	Normal     core.Vec3
	Area       float64
	Emission   core.Vec3
}

// NewEmissiveTriangle creates a table entry from three corners wound like the source triangle
func NewEmissiveTriangle(v0, v1, v2, emission core.Vec3) EmissiveTriangle {
	cross := v1.Subtract(v0).Cross(v2.Subtract(v0))
	return EmissiveTriangle{
		V0:       v0,
		V1:       v1,
		V2:       v2,
		Normal:   cross.Normalize(),
		Area:     0.5 * cross.Length(),
		Emission: emission,
	}
}

// EmissiveSampler picks emissive triangles uniformly and points on them uniformly by area.
// The table is append-only while the scene is assembled and read-only while rendering.
type EmissiveSampler struct {
	triangles []EmissiveTriangle
}

// NewEmissiveSampler creates a sampler over the given table
func NewEmissiveSampler(triangles ...EmissiveTriangle) *EmissiveSampler {
	return &EmissiveSampler{triangles: triangles}
}

// Add appends a triangle and returns its table index
func (s *EmissiveSampler) Add(tri EmissiveTriangle) int {
	s.triangles = append(s.triangles, tri)
	return len(s.triangles) - 1
}

// Len returns the number of emissive triangles
func (s *EmissiveSampler) Len() int {
	return len(s.triangles)
}

// Triangle returns the table entry at index
func (s *EmissiveSampler) Triangle(index int) EmissiveTriangle {
	return s.triangles[index]
}

// Sample draws a point on an emissive triangle as seen from point.
// random.X selects the triangle, random.Y and random.Z place the point on it.
// It reports false when the table is empty or the sample carries no density.
func (s *EmissiveSampler) Sample(point core.Vec3, random core.Vec3) (LightSample, bool) {
	n := len(s.triangles)
	if n == 0 {
		return LightSample{}, false
	}

	index := min(int(random.X*float64(n)), n-1)
	tri := &s.triangles[index]

	u, v := random.Y, random.Z
	if u+v > 1 {
		u, v = 1-u, 1-v
	}
	w := 1 - u - v
	pos := tri.V0.Multiply(u).Add(tri.V1.Multiply(v)).Add(tri.V2.Multiply(w))

	pdf := s.solidAnglePDF(tri, point, pos)
	if pdf <= 0 {
		return LightSample{}, false
	}

	toLight := pos.Subtract(point)
	distance := toLight.Length()
	return LightSample{
		Point:     pos,
		Normal:    tri.Normal,
		Direction: toLight.Multiply(1 / distance),
		Distance:  distance,
		Emission:  tri.Emission,
		PDF:       pdf,
		Index:     index,
	}, true
}

// EvalPDF returns the density with which Sample would have produced point on
// triangle index when sampling from from. Used to weight emission found by bounced rays.
func (s *EmissiveSampler) EvalPDF(index int, from, point core.Vec3) float64 {
	if index < 0 || index >= len(s.triangles) {
		return 0
	}
	return s.solidAnglePDF(&s.triangles[index], from, point)
}

// solidAnglePDF converts the uniform area density 1/area into solid angle as
// seen from from, then applies the uniform selection probability 1/N.
// Points on the back side of the triangle have zero density.
func (s *EmissiveSampler) solidAnglePDF(tri *EmissiveTriangle, from, point core.Vec3) float64 {
	toFrom := from.Subtract(point)
	distSq := max(toFrom.LengthSquared(), minDistanceSquared)

	cosTheta := tri.Normal.Dot(toFrom.Normalize())
	if cosTheta <= 0 || tri.Area <= 0 {
		return 0
	}

	return distSq / (cosTheta * tri.Area) / float64(len(s.triangles))
}
