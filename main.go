package main

import (
	"os"

	"github.com/urfave/cli"

	"github.com/df07/go-tile-pathtracer/cmd"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "go-tile-pathtracer"
	app.Usage = "render triangle scenes using tiled path tracing"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "render",
			Usage: "render a scene to an image",
			Description: `
Render a JSON scene document or a built-in scene. The image is split into
square tiles that are traced in parallel on a worker pool.

Flags override the settings stored with the scene. The output format is
chosen by the extension of the output file (.ppm or .png).`,
			ArgsUsage: "scene.json|builtin",
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "width",
					Usage: "frame width",
				},
				cli.IntFlag{
					Name:  "height",
					Usage: "frame height",
				},
				cli.IntFlag{
					Name:  "spp",
					Usage: "samples per pixel",
				},
				cli.IntFlag{
					Name:  "depth",
					Usage: "maximum trace depth",
				},
				cli.IntFlag{
					Name:  "bucket",
					Usage: "tile size in pixels",
				},
				cli.IntFlag{
					Name:  "workers, w",
					Value: 0,
					Usage: "number of render workers (0 = logical CPU count)",
				},
				cli.Int64Flag{
					Name:  "seed",
					Value: 42,
					Usage: "base seed for the per-tile random generators",
				},
				cli.StringFlag{
					Name:  "heuristic",
					Value: "middle",
					Usage: "BVH split heuristic: equal, middle or sah",
				},
				cli.StringFlag{
					Name:  "out, o",
					Value: "frame.ppm",
					Usage: "image filename for the rendered frame",
				},
			},
			Action: cmd.RenderFrame,
		},
		{
			Name:        "inspect",
			Usage:       "print BVH statistics for every split heuristic",
			Description: `Load a scene, build its BVH with each heuristic and display the tree statistics.`,
			ArgsUsage:   "scene.json|builtin",
			Action:      cmd.InspectScene,
		},
		{
			Name:  "scenes",
			Usage: "list built-in scenes and scene documents",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "dir, d",
					Value: "scenes",
					Usage: "directory to scan for scene documents",
				},
			},
			Action: cmd.ListScenes,
		},
	}

	if err := app.Run(os.Args); err != nil {
		os.Exit(1)
	}
}
