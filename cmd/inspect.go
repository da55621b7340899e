package cmd

import (
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/df07/go-tile-pathtracer/pkg/geometry"
)

var inspectHeuristics = []geometry.SplitHeuristic{geometry.SplitEqual, geometry.SplitMiddle, geometry.SplitSAH}

// InspectScene builds the BVH with every split heuristic and prints the tree statistics.
func InspectScene(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() != 1 {
		return errors.New("missing scene argument")
	}

	s, err := loadScene(ctx.Args().First())
	if err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return err
	}

	logger.Noticef("scene %q: %d triangles, %d materials, %d point lights, %d emissive triangles",
		s.Name, len(s.Triangles), len(s.Materials), len(s.PointLights), s.Emissives.Len())

	for _, heuristic := range inspectHeuristics {
		// The build reorders its input
		triangles := make([]geometry.Triangle, len(s.Triangles))
		copy(triangles, s.Triangles)

		start := time.Now()
		bvh := geometry.BuildBVH(triangles, s.Materials, heuristic)
		logger.Noticef("%s build took %v\n%s", heuristic, time.Since(start), bvh.Stats().Table())
	}
	return nil
}
