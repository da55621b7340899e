package material

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/df07/go-tile-pathtracer/pkg/core"
)

// MaterialType is the closed set of surface behaviors the integrator switches on
type MaterialType int

const (
	Constant MaterialType = iota
	Diffuse
	Reflective
	Refractive
	Emissive
)

var materialTypeNames = map[MaterialType]string{
	Constant:   "constant",
	Diffuse:    "diffuse",
	Reflective: "reflective",
	Refractive: "refractive",
	Emissive:   "emissive",
}

func (t MaterialType) String() string {
	if name, ok := materialTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("MaterialType(%d)", int(t))
}

// ParseMaterialType maps a scene-file type name to a MaterialType
func ParseMaterialType(name string) (MaterialType, error) {
	for t, n := range materialTypeNames {
		if n == name {
			return t, nil
		}
	}
	return 0, errors.Errorf("unknown material type %q", name)
}

// Material is a tagged variant over the supported surface kinds.
// Only the fields relevant to Type are meaningful.
type Material struct {
	Type MaterialType

	// Albedo is used when Texture is nil
	Albedo  core.Vec3
	Texture ColorSource

	IOR           float64   // Refractive only
	Emission      core.Vec3 // Emissive only
	SmoothShading bool
}

// NewDiffuse creates a Lambertian material with a constant albedo
func NewDiffuse(albedo core.Vec3) Material {
	return Material{Type: Diffuse, Albedo: albedo}
}

// NewTexturedDiffuse creates a Lambertian material whose albedo comes from a color source
func NewTexturedDiffuse(texture ColorSource) Material {
	return Material{Type: Diffuse, Albedo: core.Splat(1), Texture: texture}
}

// NewReflective creates a perfect mirror tinted by albedo
func NewReflective(albedo core.Vec3) Material {
	return Material{Type: Reflective, Albedo: albedo}
}

// NewRefractive creates a dielectric with the given index of refraction
func NewRefractive(albedo core.Vec3, ior float64) Material {
	return Material{Type: Refractive, Albedo: albedo, IOR: ior}
}

// NewEmissive creates a light-emitting material
func NewEmissive(emission core.Vec3) Material {
	return Material{Type: Emissive, Emission: emission}
}

// AlbedoAt returns the surface color at the given barycentrics and uv
func (m *Material) AlbedoAt(barycentrics, uv core.Vec2) core.Vec3 {
	if m.Texture != nil {
		return m.Texture.Evaluate(barycentrics, uv)
	}
	return m.Albedo
}

// CullBackFace reports whether rays arriving from behind the surface are ignored.
// Transmissive surfaces must be hit from both sides.
func (m *Material) CullBackFace() bool {
	return m.Type != Refractive
}

// Occludes reports whether the surface blocks shadow rays
func (m *Material) Occludes() bool {
	return m.Type != Refractive
}
