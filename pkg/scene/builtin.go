package scene

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/df07/go-tile-pathtracer/pkg/core"
	"github.com/df07/go-tile-pathtracer/pkg/geometry"
	"github.com/df07/go-tile-pathtracer/pkg/material"
)

// Builtin describes a scene that is assembled in code
type Builtin struct {
	Name        string
	Description string
	build       func() (*Scene, error)
}

var builtins = map[string]Builtin{
	"cornell": {
		Name:        "cornell",
		Description: "Cornell box lit by an emissive ceiling panel, with a mirror block and a glass prism",
		build:       NewCornellScene,
	},
	"plane": {
		Name:        "plane",
		Description: "Checkered ground plane lit by a single point light",
		build:       NewPlaneScene,
	},
}

// Builtins returns the built-in scenes sorted by name
func Builtins() []Builtin {
	list := make([]Builtin, 0, len(builtins))
	for _, b := range builtins {
		list = append(list, b)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// NewBuiltin assembles the named built-in scene
func NewBuiltin(name string) (*Scene, error) {
	b, ok := builtins[name]
	if !ok {
		return nil, errors.Errorf("unknown built-in scene %q", name)
	}
	return b.build()
}

// NewCornellScene creates a triangle Cornell box with quad walls and an emissive ceiling panel
func NewCornellScene() (*Scene, error) {
	s := New("cornell")
	s.Settings.Width = 256
	s.Settings.Height = 256
	s.Settings.SampleCount = 64
	s.Settings.TraceDepth = 5

	// Cornell box dimensions (standard 555x555x555 units)
	const boxSize = 555.0
	half := boxSize / 2
	s.Camera = geometry.NewLookAtCamera(
		core.NewVec3(half, half, -half), // Front opening fills the view
		core.NewVec3(half, half, 0),
		core.NewVec3(0, 1, 0),
	)

	white := s.AddMaterial(material.NewDiffuse(core.NewVec3(0.73, 0.73, 0.73)))
	red := s.AddMaterial(material.NewDiffuse(core.NewVec3(0.65, 0.05, 0.05)))
	green := s.AddMaterial(material.NewDiffuse(core.NewVec3(0.12, 0.45, 0.15)))
	light := s.AddMaterial(material.NewEmissive(core.NewVec3(15, 15, 15)))
	mirror := s.AddMaterial(material.NewReflective(core.NewVec3(0.8, 0.8, 0.9)))
	glass := s.AddMaterial(material.NewRefractive(core.NewVec3(1, 1, 1), 1.5))

	dx := core.NewVec3(boxSize, 0, 0)
	dy := core.NewVec3(0, boxSize, 0)
	dz := core.NewVec3(0, 0, boxSize)

	// Walls face into the box
	walls := []struct {
		corner, u, v core.Vec3
		mat          int
	}{
		{core.NewVec3(0, 0, 0), dz, dx, white}, // floor
		{dy, dx, dz, white},                    // ceiling
		{dz, dy, dx, white},                    // back wall
		{core.NewVec3(0, 0, 0), dy, dz, red},   // left wall
		{dx, dz, dy, green},                    // right wall
	}
	for _, w := range walls {
		if err := s.AddQuad(w.corner, w.u, w.v, w.mat); err != nil {
			return nil, err
		}
	}

	// Ceiling light, slightly below the ceiling and facing down
	lightSize := 130.0
	lightOffset := (boxSize - lightSize) / 2
	if err := s.AddQuad(
		core.NewVec3(lightOffset, boxSize-1, lightOffset),
		core.NewVec3(lightSize, 0, 0),
		core.NewVec3(0, 0, lightSize),
		light,
	); err != nil {
		return nil, err
	}

	if err := s.AddBox(core.NewVec3(130, 0, 65), core.NewVec3(295, 330, 230), mirror); err != nil {
		return nil, err
	}

	prism := []core.Vec3{
		core.NewVec3(320, 1, 280),
		core.NewVec3(480, 1, 280),
		core.NewVec3(400, 1, 420),
	}
	if err := s.addPrism(prism, 165, glass); err != nil {
		return nil, err
	}

	return s, nil
}

// NewPlaneScene creates a checkered ground plane lit by one point light
func NewPlaneScene() (*Scene, error) {
	s := New("plane")
	s.Settings.Width = 320
	s.Settings.Height = 240
	s.Settings.SampleCount = 16
	s.Settings.TraceDepth = 3
	s.Settings.Background = core.NewVec3(0.05, 0.05, 0.08)

	s.Camera = geometry.NewLookAtCamera(
		core.NewVec3(0, 2, 6),
		core.NewVec3(0, 0, 0),
		core.NewVec3(0, 1, 0),
	)

	checker := material.NewCheckerTexture(core.NewVec3(0.8, 0.8, 0.8), core.NewVec3(0.2, 0.3, 0.6), 0.1)
	s.Textures["checker"] = checker
	ground := s.AddMaterial(material.NewTexturedDiffuse(checker))

	if err := s.AddQuad(core.NewVec3(-5, 0, -5), core.NewVec3(0, 0, 10), core.NewVec3(10, 0, 0), ground); err != nil {
		return nil, err
	}
	s.AddPointLight(core.NewVec3(0, 3, 0), core.NewVec3(20, 20, 20))
	return s, nil
}

// addPrism extrudes a convex polygon lying in the y=base plane upwards by height.
// Every face is wound so its normal points away from the prism center.
func (s *Scene) addPrism(base []core.Vec3, height float64, materialIndex int) error {
	up := core.NewVec3(0, height, 0)
	top := make([]core.Vec3, len(base))
	center := core.Vec3{}
	for i, p := range base {
		top[i] = p.Add(up)
		center = center.Add(p)
	}
	center = center.Multiply(1 / float64(len(base))).Add(up.Multiply(0.5))

	add := func(p0, p1, p2 core.Vec3) error {
		tri := geometry.NewFlatTriangle(p0, p1, p2, materialIndex)
		if tri.Normal().Dot(tri.Centroid().Subtract(center)) < 0 {
			tri = geometry.NewFlatTriangle(p0, p2, p1, materialIndex)
		}
		return s.AddTriangle(tri)
	}

	for i := 1; i+1 < len(base); i++ {
		if err := add(base[0], base[i], base[i+1]); err != nil {
			return err
		}
		if err := add(top[0], top[i], top[i+1]); err != nil {
			return err
		}
	}
	for i := range base {
		j := (i + 1) % len(base)
		if err := add(base[i], base[j], top[j]); err != nil {
			return err
		}
		if err := add(base[i], top[j], top[i]); err != nil {
			return err
		}
	}
	return nil
}
