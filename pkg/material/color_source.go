package material

import (
	"github.com/df07/go-tile-pathtracer/pkg/core"
)

// ColorSource provides spatially-varying colors for materials.
// Implementations are immutable and may be shared by any number of materials
// and read concurrently by every render worker.
type ColorSource interface {
	// Evaluate returns the color at the given triangle barycentrics and
	// interpolated texture coordinates
	Evaluate(barycentrics, uv core.Vec2) core.Vec3
}

// SolidColor provides uniform color
type SolidColor struct {
	Color core.Vec3
}

// NewSolidColor creates a new solid color source
func NewSolidColor(color core.Vec3) *SolidColor {
	return &SolidColor{Color: color}
}

// Evaluate returns the solid color regardless of barycentrics or UV
func (s *SolidColor) Evaluate(barycentrics, uv core.Vec2) core.Vec3 {
	return s.Color
}

// EdgesTexture outlines every triangle: points within EdgeWidth (in barycentric
// units) of any edge get EdgeColor, the interior gets InnerColor.
type EdgesTexture struct {
	EdgeColor  core.Vec3
	InnerColor core.Vec3
	EdgeWidth  float64
}

// NewEdgesTexture creates a triangle outline texture
func NewEdgesTexture(edgeColor, innerColor core.Vec3, edgeWidth float64) *EdgesTexture {
	return &EdgesTexture{EdgeColor: edgeColor, InnerColor: innerColor, EdgeWidth: edgeWidth}
}

// Evaluate returns the edge color near any of the three edges
func (e *EdgesTexture) Evaluate(barycentrics, uv core.Vec2) core.Vec3 {
	w := 1 - barycentrics.X - barycentrics.Y
	if barycentrics.X < e.EdgeWidth || barycentrics.Y < e.EdgeWidth || w < e.EdgeWidth {
		return e.EdgeColor
	}
	return e.InnerColor
}

// CheckerTexture alternates two colors over a uv grid of SquareSize cells
type CheckerTexture struct {
	ColorA     core.Vec3
	ColorB     core.Vec3
	SquareSize float64
	numSquares float64
}

// NewCheckerTexture creates a uv checkerboard. squareSize is the side of one
// cell in uv units, so 1/squareSize cells span the unit square.
func NewCheckerTexture(colorA, colorB core.Vec3, squareSize float64) *CheckerTexture {
	return &CheckerTexture{
		ColorA:     colorA,
		ColorB:     colorB,
		SquareSize: squareSize,
		numSquares: 1 / squareSize,
	}
}

// Evaluate picks ColorA when the cell row and column have the same parity
func (c *CheckerTexture) Evaluate(barycentrics, uv core.Vec2) core.Vec3 {
	uIndex := int(uv.X * c.numSquares)
	vIndex := int(uv.Y * c.numSquares)
	if uIndex%2 == vIndex%2 {
		return c.ColorA
	}
	return c.ColorB
}
