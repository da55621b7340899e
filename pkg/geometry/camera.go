package geometry

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/df07/go-tile-pathtracer/pkg/core"
)

// Camera is a pinhole camera. Orientation maps camera space to world space:
// its columns are the right, up and backward axes, so the view looks down -Z.
type Camera struct {
	Position    core.Vec3
	Orientation mgl64.Mat3
}

// NewCamera creates a camera from a position and a column-major orientation matrix
func NewCamera(position core.Vec3, orientation mgl64.Mat3) *Camera {
	return &Camera{Position: position, Orientation: orientation}
}

// NewLookAtCamera creates a camera at position looking towards target
func NewLookAtCamera(position, target, up core.Vec3) *Camera {
	forward := toMgl(target.Subtract(position)).Normalize()
	right := forward.Cross(toMgl(up)).Normalize()
	trueUp := right.Cross(forward)
	return NewCamera(position, mgl64.Mat3FromCols(right, trueUp, forward.Mul(-1)))
}

// Forward returns the world-space viewing direction
func (c *Camera) Forward() core.Vec3 {
	return fromMgl(c.Orientation.Mul3x1(mgl64.Vec3{0, 0, -1}))
}

// Up returns the world-space up direction
func (c *Camera) Up() core.Vec3 {
	return fromMgl(c.Orientation.Mul3x1(mgl64.Vec3{0, 1, 0}))
}

// GetRay returns the primary ray through image position (px, py), measured in
// pixels from the top-left corner; the fractional part selects the point inside the pixel.
// The horizontal extent is scaled by the aspect ratio, the vertical spans [-1, 1].
func (c *Camera) GetRay(px, py float64, width, height int) core.Ray {
	aspect := float64(width) / float64(height)
	x := (2*px/float64(width) - 1) * aspect
	y := 1 - 2*py/float64(height)

	forward := c.Forward()
	up := c.Up()
	right := forward.Cross(up)

	dir := forward.Add(right.Multiply(x)).Add(up.Multiply(y))
	return core.NewRay(c.Position, dir)
}

func toMgl(v core.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{v.X, v.Y, v.Z}
}

func fromMgl(v mgl64.Vec3) core.Vec3 {
	return core.NewVec3(v[0], v[1], v[2])
}
