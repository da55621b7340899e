package geometry

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/df07/go-tile-pathtracer/pkg/core"
)

func TestCamera_GetRayIdentity(t *testing.T) {
	camera := NewCamera(core.NewVec3(0, 1, 3), mgl64.Ident3())
	width, height := 200, 100

	tests := []struct {
		name     string
		px, py   float64
		expected core.Vec3
	}{
		{"Image center", 100, 50, core.NewVec3(0, 0, -1)},
		{"Top left corner", 0, 0, core.NewVec3(-2, 1, -1).Normalize()},
		{"Bottom right corner", 200, 100, core.NewVec3(2, -1, -1).Normalize()},
		{"Right edge middle", 200, 50, core.NewVec3(2, 0, -1).Normalize()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ray := camera.GetRay(tt.px, tt.py, width, height)
			if ray.Origin != camera.Position {
				t.Errorf("Expected origin %v, got %v", camera.Position, ray.Origin)
			}
			if ray.Direction.Subtract(tt.expected).Length() > 1e-12 {
				t.Errorf("Expected direction %v, got %v", tt.expected, ray.Direction)
			}
			if !math.IsInf(ray.MaxT, 1) {
				t.Errorf("Primary rays should be unbounded, got MaxT=%v", ray.MaxT)
			}
		})
	}
}

func TestCamera_LookAt(t *testing.T) {
	position := core.NewVec3(0, 0, 5)
	target := core.NewVec3(3, 0, 1)
	camera := NewLookAtCamera(position, target, core.NewVec3(0, 1, 0))

	expected := target.Subtract(position).Normalize()
	if camera.Forward().Subtract(expected).Length() > 1e-12 {
		t.Errorf("Expected forward %v, got %v", expected, camera.Forward())
	}
	if math.Abs(camera.Up().Dot(camera.Forward())) > 1e-12 {
		t.Errorf("Up %v should be perpendicular to forward %v", camera.Up(), camera.Forward())
	}

	ray := camera.GetRay(50, 50, 100, 100)
	if ray.Direction.Subtract(expected).Length() > 1e-12 {
		t.Errorf("Center ray should look at the target: got %v, expected %v", ray.Direction, expected)
	}
}
