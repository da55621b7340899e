package renderer

import (
	"time"

	"github.com/df07/go-tile-pathtracer/pkg/core"
	"github.com/df07/go-tile-pathtracer/pkg/integrator"
	"github.com/df07/go-tile-pathtracer/pkg/scene"
)

// TileStats describes the work done for a single tile
type TileStats struct {
	TileID   int
	Pixels   int
	Samples  int
	Duration time.Duration
}

// TileRenderer handles the actual rendering of individual tiles using an integrator
type TileRenderer struct {
	scene      *scene.Scene
	integrator integrator.Integrator
}

// NewTileRenderer creates a new tile renderer with the given scene and integrator
func NewTileRenderer(s *scene.Scene, integratorInst integrator.Integrator) *TileRenderer {
	return &TileRenderer{
		scene:      s,
		integrator: integratorInst,
	}
}

// RenderTile renders every pixel inside tile.Bounds with sampleCount jittered
// samples each and writes the averages into buffer
func (tr *TileRenderer) RenderTile(tile Tile, buffer *PixelBuffer, sampler core.Sampler, sampleCount int) TileStats {
	start := time.Now()
	camera := tr.scene.Camera
	width, height := buffer.Width, buffer.Height

	for y := tile.Bounds.Min.Y; y < tile.Bounds.Max.Y; y++ {
		for x := tile.Bounds.Min.X; x < tile.Bounds.Max.X; x++ {
			var accum core.Vec3
			for i := 0; i < sampleCount; i++ {
				jitter := sampler.Get2D()
				ray := camera.GetRay(float64(x)+jitter.X, float64(y)+jitter.Y, width, height)
				accum = accum.Add(tr.integrator.RayColor(ray, tr.scene, sampler))
			}
			buffer.Set(x, y, accum.Multiply(1.0/float64(sampleCount)))
		}
	}

	pixels := tile.Bounds.Dx() * tile.Bounds.Dy()
	return TileStats{
		TileID:   tile.ID,
		Pixels:   pixels,
		Samples:  pixels * sampleCount,
		Duration: time.Since(start),
	}
}
