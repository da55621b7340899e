package scene

import (
	"github.com/pkg/errors"

	"github.com/df07/go-tile-pathtracer/pkg/core"
	"github.com/df07/go-tile-pathtracer/pkg/geometry"
)

// Mesh is an indexed triangle list sharing one material
type Mesh struct {
	Positions     []core.Vec3
	UVs           []core.Vec2 // Optional, one per position
	Indices       []int       // Three per triangle
	MaterialIndex int
}

// AddMesh appends the mesh triangles to the scene. Vertex normals are the
// normalized sum of the unit normals of the faces sharing the vertex.
func (s *Scene) AddMesh(mesh Mesh) error {
	if len(mesh.Indices)%3 != 0 {
		return errors.Errorf("mesh index count %d is not a multiple of 3", len(mesh.Indices))
	}
	if len(mesh.UVs) != 0 && len(mesh.UVs) != len(mesh.Positions) {
		return errors.Errorf("mesh has %d uvs for %d vertices", len(mesh.UVs), len(mesh.Positions))
	}
	for i, idx := range mesh.Indices {
		if idx < 0 || idx >= len(mesh.Positions) {
			return errors.Errorf("mesh index %d at position %d out of range (have %d vertices)", idx, i, len(mesh.Positions))
		}
	}

	normals := make([]core.Vec3, len(mesh.Positions))
	for i := 0; i < len(mesh.Indices); i += 3 {
		a, b, c := mesh.Indices[i], mesh.Indices[i+1], mesh.Indices[i+2]
		pa, pb, pc := mesh.Positions[a], mesh.Positions[b], mesh.Positions[c]
		n := pb.Subtract(pa).Cross(pc.Subtract(pa)).Normalize()
		normals[a] = normals[a].Add(n)
		normals[b] = normals[b].Add(n)
		normals[c] = normals[c].Add(n)
	}

	vertex := func(idx int) geometry.Vertex {
		v := geometry.Vertex{Position: mesh.Positions[idx], Normal: normals[idx].Normalize()}
		if len(mesh.UVs) != 0 {
			v.UV = mesh.UVs[idx]
		}
		return v
	}

	for i := 0; i < len(mesh.Indices); i += 3 {
		tri := geometry.NewTriangle(
			vertex(mesh.Indices[i]),
			vertex(mesh.Indices[i+1]),
			vertex(mesh.Indices[i+2]),
			mesh.MaterialIndex,
		)
		if err := s.AddTriangle(tri); err != nil {
			return errors.Wrapf(err, "mesh triangle %d", i/3)
		}
	}
	return nil
}
