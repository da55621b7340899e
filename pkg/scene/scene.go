package scene

import (
	"time"

	"github.com/pkg/errors"

	"github.com/df07/go-tile-pathtracer/pkg/core"
	"github.com/df07/go-tile-pathtracer/pkg/geometry"
	"github.com/df07/go-tile-pathtracer/pkg/lights"
	"github.com/df07/go-tile-pathtracer/pkg/log"
	"github.com/df07/go-tile-pathtracer/pkg/material"
)

// Settings contains the render configuration stored with a scene
type Settings struct {
	Width       int       // Image width
	Height      int       // Image height
	BucketSize  int       // Tile side length in pixels
	SampleCount int       // Samples per pixel
	TraceDepth  int       // Maximum recursion depth
	Background  core.Vec3 // Radiance returned by rays that escape the scene
}

// DefaultSettings returns the settings used when a scene does not specify them
func DefaultSettings() Settings {
	return Settings{
		Width:       512,
		Height:      512,
		BucketSize:  24,
		SampleCount: 16,
		TraceDepth:  5,
	}
}

// Scene contains all the elements needed for rendering. Geometry is added
// while the scene is assembled; after Preprocess the scene is read-only.
type Scene struct {
	Name        string
	Camera      *geometry.Camera
	Settings    Settings
	Materials   []material.Material
	Textures    map[string]material.ColorSource // Shared color sources referenced by materials
	Triangles   []geometry.Triangle             // Owned by BVH after Preprocess
	PointLights []lights.PointLight
	Emissives   *lights.EmissiveSampler
	BVH         *geometry.BVH
}

// New creates an empty scene with default settings and a camera at the origin looking down -Z
func New(name string) *Scene {
	return &Scene{
		Name:      name,
		Camera:    geometry.NewLookAtCamera(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, -1), core.NewVec3(0, 1, 0)),
		Settings:  DefaultSettings(),
		Textures:  make(map[string]material.ColorSource),
		Emissives: lights.NewEmissiveSampler(),
	}
}

// AddMaterial appends a material and returns its index
func (s *Scene) AddMaterial(mat material.Material) int {
	s.Materials = append(s.Materials, mat)
	return len(s.Materials) - 1
}

// AddPointLight adds an explicit point light
func (s *Scene) AddPointLight(position, intensity core.Vec3) {
	s.PointLights = append(s.PointLights, lights.NewPointLight(position, intensity))
}

// AddTriangle appends a triangle, assigning its ID and registering it with the
// emissive table when its material emits. The material must already exist.
func (s *Scene) AddTriangle(tri geometry.Triangle) error {
	if tri.MaterialIndex < 0 || tri.MaterialIndex >= len(s.Materials) {
		return errors.Errorf("material index %d out of range (have %d materials)", tri.MaterialIndex, len(s.Materials))
	}

	tri.ID = len(s.Triangles)
	tri.EmissiveIndex = -1
	if mat := &s.Materials[tri.MaterialIndex]; mat.Type == material.Emissive {
		tri.EmissiveIndex = s.Emissives.Add(lights.NewEmissiveTriangle(
			tri.V0.Position, tri.V1.Position, tri.V2.Position, mat.Emission,
		))
	}

	s.Triangles = append(s.Triangles, tri)
	return nil
}

// AddQuad adds the parallelogram corner, corner+u, corner+u+v, corner+v as two
// triangles facing u x v.
func (s *Scene) AddQuad(corner, u, v core.Vec3, materialIndex int) error {
	p0 := corner
	p1 := corner.Add(u)
	p2 := corner.Add(u).Add(v)
	p3 := corner.Add(v)

	first := geometry.NewFlatTriangle(p0, p1, p2, materialIndex)
	second := geometry.NewFlatTriangle(p0, p2, p3, materialIndex)
	second.V1.UV = core.NewVec2(1, 1)
	second.V2.UV = core.NewVec2(0, 1)
	first.V2.UV = core.NewVec2(1, 1)

	if err := s.AddTriangle(first); err != nil {
		return err
	}
	return s.AddTriangle(second)
}

// AddBox adds the six outward-facing faces of an axis-aligned box
func (s *Scene) AddBox(min, max core.Vec3, materialIndex int) error {
	dx := core.NewVec3(max.X-min.X, 0, 0)
	dy := core.NewVec3(0, max.Y-min.Y, 0)
	dz := core.NewVec3(0, 0, max.Z-min.Z)

	faces := []struct{ corner, u, v core.Vec3 }{
		{min, dx, dz},         // bottom (-Y)
		{min.Add(dy), dz, dx}, // top (+Y)
		{min, dy, dx},         // front (-Z)
		{min.Add(dz), dx, dy}, // back (+Z)
		{min, dz, dy},         // left (-X)
		{min.Add(dx), dy, dz}, // right (+X)
	}
	for _, f := range faces {
		if err := s.AddQuad(f.corner, f.u, f.v, materialIndex); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks that the scene can be rendered
func (s *Scene) Validate() error {
	if s.Camera == nil {
		return errors.Errorf("scene %q has no camera", s.Name)
	}
	st := s.Settings
	if st.Width <= 0 || st.Height <= 0 {
		return errors.Errorf("invalid image size %dx%d", st.Width, st.Height)
	}
	if st.BucketSize <= 0 {
		return errors.Errorf("invalid bucket size %d", st.BucketSize)
	}
	if st.SampleCount <= 0 {
		return errors.Errorf("invalid sample count %d", st.SampleCount)
	}
	if st.TraceDepth < 0 {
		return errors.Errorf("invalid trace depth %d", st.TraceDepth)
	}

	for i, mat := range s.Materials {
		if mat.Type == material.Refractive && mat.IOR <= 0 {
			return errors.Errorf("material %d: refractive material needs a positive ior, got %f", i, mat.IOR)
		}
	}
	for i := range s.Triangles {
		if idx := s.Triangles[i].MaterialIndex; idx < 0 || idx >= len(s.Materials) {
			return errors.Errorf("triangle %d: material index %d out of range", i, idx)
		}
	}
	return nil
}

// Preprocess validates the scene and builds the BVH. The triangle slice is
// reordered by the build and must not be modified afterwards.
func (s *Scene) Preprocess(heuristic geometry.SplitHeuristic, logger log.Logger) error {
	if err := s.Validate(); err != nil {
		return errors.Wrapf(err, "scene %q", s.Name)
	}

	start := time.Now()
	s.BVH = geometry.BuildBVH(s.Triangles, s.Materials, heuristic)
	stats := s.BVH.Stats()
	logger.Infof("built %s BVH over %d triangles in %v", heuristic, len(s.Triangles), time.Since(start))
	logger.Debugf("BVH: %d nodes, %d leaves, max depth %d, avg leaf size %.2f",
		stats.Nodes, stats.Leaves, stats.MaxDepth, stats.AvgLeafSize)
	return nil
}

// NearestHit returns the closest intersection along the ray, shrinking ray.MaxT
func (s *Scene) NearestHit(ray *core.Ray) geometry.HitRecord {
	return s.BVH.NearestHit(ray)
}

// AnyHit reports whether an occluder lies on the ray within ray.MaxT
func (s *Scene) AnyHit(ray core.Ray) bool {
	return s.BVH.AnyHit(ray)
}
