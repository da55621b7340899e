package renderer

import (
	"time"

	"github.com/pkg/errors"

	"github.com/df07/go-tile-pathtracer/pkg/core"
	"github.com/df07/go-tile-pathtracer/pkg/geometry"
	"github.com/df07/go-tile-pathtracer/pkg/integrator"
	"github.com/df07/go-tile-pathtracer/pkg/log"
	"github.com/df07/go-tile-pathtracer/pkg/scene"
)

// Options contains configuration that is not stored with the scene
type Options struct {
	Workers   int                     // Number of pool workers (0 = use CPU count)
	Seed      int64                   // Tile i uses Seed+i
	Heuristic geometry.SplitHeuristic // BVH split heuristic, used if the scene is not yet preprocessed
}

// DefaultOptions returns sensible default values
func DefaultOptions() Options {
	return Options{
		Workers:   0,
		Seed:      42,
		Heuristic: geometry.SplitMiddle,
	}
}

// Renderer partitions the image into tiles and renders them on a worker pool
type Renderer struct {
	scene      *scene.Scene
	options    Options
	integrator integrator.Integrator
	logger     log.Logger
}

// NewRenderer creates a renderer for s using the path tracing integrator
func NewRenderer(s *scene.Scene, options Options, logger log.Logger) *Renderer {
	return &Renderer{
		scene:      s,
		options:    options,
		integrator: integrator.NewPathTracingIntegrator(s.Settings),
		logger:     logger,
	}
}

// SetIntegrator replaces the light transport algorithm
func (r *Renderer) SetIntegrator(integratorInst integrator.Integrator) {
	r.integrator = integratorInst
}

// RenderImage renders the whole image. All tiles are submitted before any is
// awaited; the call returns once every tile has finished. If any tile fails the
// first error is returned and no buffer is produced.
func (r *Renderer) RenderImage() (*PixelBuffer, RenderStats, error) {
	s := r.scene
	if s.BVH == nil {
		if err := s.Preprocess(r.options.Heuristic, r.logger); err != nil {
			return nil, RenderStats{}, errors.Wrap(err, "preprocess failed")
		}
	}

	settings := s.Settings
	buffer := NewPixelBuffer(settings.Width, settings.Height)
	tiles := NewTileGrid(settings.Width, settings.Height, settings.BucketSize)
	tileRenderer := NewTileRenderer(s, r.integrator)

	pool := NewWorkerPool(r.options.Workers)
	defer pool.Shutdown()

	r.logger.Infof("rendering %q at %dx%d: %d tiles of %d px, %d spp, depth %d, %d workers",
		s.Name, settings.Width, settings.Height, len(tiles), settings.BucketSize,
		settings.SampleCount, settings.TraceDepth, pool.NumWorkers())

	start := time.Now()
	tileStats := make([]TileStats, len(tiles))
	futures := make([]*Future, 0, len(tiles))
	for i := range tiles {
		tile := tiles[i]
		future, err := pool.Submit(func() error {
			sampler := core.NewSeededSampler(r.options.Seed + int64(tile.ID))
			tileStats[tile.ID] = tileRenderer.RenderTile(tile, buffer, sampler, settings.SampleCount)
			return nil
		})
		if err != nil {
			return nil, RenderStats{}, errors.Wrapf(err, "submit tile %d", tile.ID)
		}
		futures = append(futures, future)
	}

	var firstErr error
	for i, future := range futures {
		if err := future.Wait(); err != nil {
			if firstErr == nil {
				firstErr = errors.Wrapf(err, "tile %d", tiles[i].ID)
			}
			continue
		}
		r.logger.Debugf("tile %d/%d done in %v", i+1, len(futures), tileStats[i].Duration)
	}
	if firstErr != nil {
		return nil, RenderStats{}, firstErr
	}

	stats := RenderStats{
		Width:           settings.Width,
		Height:          settings.Height,
		Workers:         pool.NumWorkers(),
		SamplesPerPixel: settings.SampleCount,
		TotalTime:       time.Since(start),
	}
	for _, ts := range tileStats {
		stats.addTile(ts)
	}
	stats.finalize()

	r.logger.Noticef("rendered %q in %v (%.0f samples/sec)", s.Name, stats.TotalTime.Round(time.Millisecond), stats.SamplesPerSecond())
	return buffer, stats, nil
}
