package integrator

import (
	"math"

	"github.com/df07/go-tile-pathtracer/pkg/core"
	"github.com/df07/go-tile-pathtracer/pkg/geometry"
	"github.com/df07/go-tile-pathtracer/pkg/material"
	"github.com/df07/go-tile-pathtracer/pkg/scene"
)

// minDistanceSquared floors squared light distances
const minDistanceSquared = 1e-10

// bounceState is carried by value into the next recursion level
type bounceState struct {
	sampledLights bool    // The previous vertex performed next-event estimation
	bsdfPDF       float64 // Density of the direction chosen at the previous vertex
}

// PathTracingIntegrator implements recursive unidirectional path tracing with
// explicit point lights, next-event estimation on emissive triangles and
// power-heuristic MIS between light and BSDF sampling.
type PathTracingIntegrator struct {
	traceDepth int
	background core.Vec3
}

// NewPathTracingIntegrator creates a new path tracing integrator
func NewPathTracingIntegrator(settings scene.Settings) *PathTracingIntegrator {
	return &PathTracingIntegrator{
		traceDepth: settings.TraceDepth,
		background: settings.Background,
	}
}

// RayColor computes the radiance along a camera ray
func (pt *PathTracingIntegrator) RayColor(ray core.Ray, s *scene.Scene, sampler core.Sampler) core.Vec3 {
	return pt.trace(ray, s, bounceState{}, sampler, 0)
}

func (pt *PathTracingIntegrator) trace(ray core.Ray, s *scene.Scene, prev bounceState, sampler core.Sampler, depth int) core.Vec3 {
	if depth > pt.traceDepth {
		return core.Vec3{}
	}

	hit := s.NearestHit(&ray)
	if !hit.Hit {
		return pt.background
	}

	mat := &s.Materials[hit.MaterialIndex]
	tri := &s.BVH.Triangles[hit.TriangleIndex]

	normal := hit.Normal
	if mat.SmoothShading {
		normal = tri.InterpolatedNormal(hit.Barycentrics)
	}

	switch mat.Type {
	case material.Emissive:
		return pt.emitted(ray, s, prev, tri, hit)
	case material.Reflective:
		return pt.reflect(ray, s, mat, tri, hit, normal, sampler, depth)
	case material.Refractive:
		return pt.refract(ray, s, mat, tri, hit, normal, sampler, depth)
	default:
		return pt.diffuse(s, mat, tri, hit, normal, sampler, depth)
	}
}

// diffuse shades a Lambertian vertex: point lights, one emissive sample and one indirect bounce
func (pt *PathTracingIntegrator) diffuse(s *scene.Scene, mat *material.Material, tri *geometry.Triangle, hit geometry.HitRecord, normal core.Vec3, sampler core.Sampler, depth int) core.Vec3 {
	albedo := mat.AlbedoAt(hit.Barycentrics, tri.InterpolatedUV(hit.Barycentrics))
	bsdf := albedo.Multiply(1 / math.Pi)
	origin := hit.Point.Add(hit.Normal.Multiply(rayOffset))

	color := pt.pointLighting(s, origin, normal, bsdf)
	color = color.Add(pt.emissiveLighting(s, origin, hit.Normal, normal, bsdf, sampler))

	// Indirect bounce, sampled around the geometric normal
	dir := core.SampleCosineHemisphere(hit.Normal, sampler.Get2D())
	pdf := core.CosineHemispherePDF(hit.Normal, dir)
	cosine := normal.Dot(dir)
	if pdf <= 0 || cosine <= 0 {
		return color
	}

	incoming := pt.trace(core.NewRay(origin, dir), s, bounceState{sampledLights: true, bsdfPDF: pdf}, sampler, depth+1)
	return color.Add(bsdf.MultiplyVec(incoming).Multiply(cosine / pdf))
}

// pointLighting sums the unoccluded contribution of every explicit point light
func (pt *PathTracingIntegrator) pointLighting(s *scene.Scene, origin, normal, bsdf core.Vec3) core.Vec3 {
	var color core.Vec3
	for _, light := range s.PointLights {
		toLight := light.Position.Subtract(origin)
		distSq := toLight.LengthSquared()
		dist := math.Sqrt(distSq)
		dir := toLight.Multiply(1 / dist)

		cosine := normal.Dot(dir)
		if cosine <= 0 {
			continue
		}
		if s.AnyHit(core.NewBoundedRay(origin, dir, dist)) {
			continue
		}

		color = color.Add(bsdf.MultiplyVec(light.Intensity).Multiply(cosine / max(distSq, minDistanceSquared)))
	}
	return color
}

// emissiveLighting draws one sample from the emissive table and weights it
// against the chance of the indirect bounce finding the same point.
func (pt *PathTracingIntegrator) emissiveLighting(s *scene.Scene, origin, geometricNormal, normal, bsdf core.Vec3, sampler core.Sampler) core.Vec3 {
	sample, ok := s.Emissives.Sample(origin, sampler.Get3D())
	if !ok {
		return core.Vec3{}
	}

	cosine := normal.Dot(sample.Direction)
	if cosine <= 0 {
		return core.Vec3{}
	}

	// Stop short of the sampled point so the light does not shadow itself
	if s.AnyHit(core.NewBoundedRay(origin, sample.Direction, sample.Distance-rayOffset)) {
		return core.Vec3{}
	}

	bsdfPDF := core.CosineHemispherePDF(geometricNormal, sample.Direction)
	weight := core.PowerHeuristic(sample.PDF, bsdfPDF)
	return bsdf.MultiplyVec(sample.Emission).Multiply(weight * cosine / sample.PDF)
}

// emitted returns the emission of a light that was reached by a bounced ray.
// After a vertex that also sampled the lights directly, the emission is MIS weighted.
func (pt *PathTracingIntegrator) emitted(ray core.Ray, s *scene.Scene, prev bounceState, tri *geometry.Triangle, hit geometry.HitRecord) core.Vec3 {
	emission := s.Materials[hit.MaterialIndex].Emission
	if !prev.sampledLights {
		return emission
	}

	lightPDF := s.Emissives.EvalPDF(tri.EmissiveIndex, ray.Origin, hit.Point)
	return emission.Multiply(core.PowerHeuristic(prev.bsdfPDF, lightPDF))
}

// reflect follows the mirror direction
func (pt *PathTracingIntegrator) reflect(ray core.Ray, s *scene.Scene, mat *material.Material, tri *geometry.Triangle, hit geometry.HitRecord, normal core.Vec3, sampler core.Sampler, depth int) core.Vec3 {
	albedo := mat.AlbedoAt(hit.Barycentrics, tri.InterpolatedUV(hit.Barycentrics))
	origin := hit.Point.Add(hit.Normal.Multiply(rayOffset))
	reflected := core.NewRay(origin, reflectDirection(ray.Direction, normal))
	return albedo.MultiplyVec(pt.trace(reflected, s, bounceState{}, sampler, depth+1))
}

// refract splits the path at a dielectric boundary into a reflected and a
// transmitted branch blended by the Fresnel weight
func (pt *PathTracingIntegrator) refract(ray core.Ray, s *scene.Scene, mat *material.Material, tri *geometry.Triangle, hit geometry.HitRecord, normal core.Vec3, sampler core.Sampler, depth int) core.Vec3 {
	albedo := mat.AlbedoAt(hit.Barycentrics, tri.InterpolatedUV(hit.Barycentrics))
	split := scatterDielectric(ray.Direction, hit.Point, hit.Normal, normal, mat.IOR)

	reflected := pt.trace(split.Reflected, s, bounceState{}, sampler, depth+1)
	if split.TotalInternalReflection {
		return albedo.MultiplyVec(reflected)
	}

	refracted := pt.trace(split.Refracted, s, bounceState{}, sampler, depth+1)
	return albedo.MultiplyVec(
		reflected.Multiply(split.Fresnel).Add(refracted.Multiply(1 - split.Fresnel)),
	)
}
