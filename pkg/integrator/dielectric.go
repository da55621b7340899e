package integrator

import (
	"math"

	"github.com/df07/go-tile-pathtracer/pkg/core"
)

// dielectricScatter holds the two branches leaving a dielectric boundary.
// Refracted and Fresnel are unset under total internal reflection.
type dielectricScatter struct {
	Reflected               core.Ray
	Refracted               core.Ray
	Fresnel                 float64 // Fraction of radiance carried by the reflected branch
	TotalInternalReflection bool
}

// reflectDirection mirrors dir about normal
func reflectDirection(dir, normal core.Vec3) core.Vec3 {
	return dir.Subtract(normal.Multiply(2 * dir.Dot(normal))).Normalize()
}

// scatterDielectric splits a ray travelling along dir at point. geometricNormal
// decides which side each branch leaves from; shadingNormal orients the
// directions. ior is the index inside the medium relative to outside.
func scatterDielectric(dir, point, geometricNormal, shadingNormal core.Vec3, ior float64) dielectricScatter {
	eta := ior
	n := shadingNormal
	cosI := -dir.Dot(n)
	if cosI < 0 {
		// Leaving the medium
		eta = 1 / ior
		cosI = -cosI
		n = n.Negate()
	}

	// Offsets follow the geometric normal of the side the ray arrived from
	front := geometricNormal
	if dir.Dot(front) > 0 {
		front = front.Negate()
	}
	offset := front.Multiply(rayOffset)

	split := dielectricScatter{
		Reflected: core.NewRay(point.Add(offset), reflectDirection(dir, n)),
	}

	sin2I := max(0, 1-cosI*cosI)
	sin2T := sin2I / (eta * eta)
	if sin2T >= 1 {
		split.TotalInternalReflection = true
		return split
	}

	cosT := math.Sqrt(1 - sin2T)
	wi := dir.Negate()
	transmitted := wi.Multiply(-1 / eta).Add(n.Multiply(cosI/eta - cosT))

	split.Refracted = core.NewRay(point.Subtract(offset), transmitted)
	split.Fresnel = 0.5 * math.Pow(1+dir.Dot(n), 5)
	return split
}
