package cmd

import (
	"runtime"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"
	"github.com/urfave/cli"

	"github.com/df07/go-tile-pathtracer/pkg/geometry"
	"github.com/df07/go-tile-pathtracer/pkg/loaders"
	"github.com/df07/go-tile-pathtracer/pkg/renderer"
	"github.com/df07/go-tile-pathtracer/pkg/scene"
)

// RenderFrame renders a scene file or built-in scene and writes the image.
func RenderFrame(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() != 1 {
		return errors.New("missing scene argument")
	}

	s, err := loadScene(ctx.Args().First())
	if err != nil {
		return err
	}
	applySettingOverrides(ctx, &s.Settings)

	heuristic, err := geometry.ParseSplitHeuristic(ctx.String("heuristic"))
	if err != nil {
		return err
	}

	opts := renderer.DefaultOptions()
	opts.Workers = workerCount(ctx.Int("workers"))
	opts.Seed = ctx.Int64("seed")
	opts.Heuristic = heuristic
	logHostInfo()

	if err := s.Preprocess(opts.Heuristic, logger); err != nil {
		return err
	}

	r := renderer.NewRenderer(s, opts, logger)
	buffer, stats, err := r.RenderImage()
	if err != nil {
		return err
	}

	logger.Noticef("render statistics\n%s", stats.Table())

	out := ctx.String("out")
	if err := loaders.WriteImage(out, buffer.ToImage()); err != nil {
		return err
	}
	logger.Noticef("image saved to %s", out)
	return nil
}

// applySettingOverrides copies every explicitly set flag over the scene settings
func applySettingOverrides(ctx *cli.Context, settings *scene.Settings) {
	overrides := []struct {
		flag  string
		value *int
	}{
		{"width", &settings.Width},
		{"height", &settings.Height},
		{"spp", &settings.SampleCount},
		{"depth", &settings.TraceDepth},
		{"bucket", &settings.BucketSize},
	}
	for _, o := range overrides {
		if ctx.IsSet(o.flag) {
			*o.value = ctx.Int(o.flag)
		}
	}
}

// workerCount returns the requested worker count, or the number of logical CPUs when requested is not positive
func workerCount(requested int) int {
	if requested > 0 {
		return requested
	}
	count, err := cpu.Counts(true)
	if err != nil || count <= 0 {
		logger.Warningf("could not detect logical CPU count, using runtime.NumCPU: %v", err)
		return runtime.NumCPU()
	}
	return count
}

func logHostInfo() {
	if info, err := cpu.Info(); err == nil && len(info) > 0 {
		logger.Infof("cpu: %s @ %.2f GHz", info[0].ModelName, info[0].Mhz/1000)
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		logger.Infof("memory: %d MB total, %d MB available", vm.Total>>20, vm.Available>>20)
	}
}
