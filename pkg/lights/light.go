package lights

import "github.com/df07/go-tile-pathtracer/pkg/core"

// PointLight is an explicit light with no area; it can only be reached by
// direct lighting and never by a bounced ray.
type PointLight struct {
	Position  core.Vec3
	Intensity core.Vec3
}

// NewPointLight creates a point light
func NewPointLight(position, intensity core.Vec3) PointLight {
	return PointLight{Position: position, Intensity: intensity}
}

// LightSample contains information about a sampled point on a light
type LightSample struct {
	Point     core.Vec3 // Point on the light source
	Normal    core.Vec3 // Normal at the light sample point
	Direction core.Vec3 // Direction from shading point to light
	Distance  float64   // Distance to light
	Emission  core.Vec3 // Emitted radiance
	PDF       float64   // Solid-angle density, including the light selection probability
	Index     int       // Index of the sampled emissive triangle
}
