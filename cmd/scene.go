package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/df07/go-tile-pathtracer/pkg/loaders"
	"github.com/df07/go-tile-pathtracer/pkg/scene"
)

// loadScene resolves a scene argument: a path to a JSON document or the name
// of a built-in scene.
func loadScene(arg string) (*scene.Scene, error) {
	if arg == "" {
		return nil, errors.New("empty scene name")
	}

	if strings.EqualFold(filepath.Ext(arg), ".json") {
		return loaders.LoadScene(arg, logger)
	}
	if info, err := os.Stat(arg); err == nil && !info.IsDir() {
		return loaders.LoadScene(arg, logger)
	}

	s, err := scene.NewBuiltin(arg)
	if err != nil {
		return nil, errors.Wrapf(err, "%q is neither a scene file nor a built-in scene", arg)
	}
	return s, nil
}

// ListScenes prints the built-in scenes and the scene documents found in the scenes directory.
func ListScenes(ctx *cli.Context) error {
	setupLogging(ctx)

	scenes, err := scene.ListAllScenes(ctx.String("dir"))
	if err != nil {
		return err
	}

	logger.Noticef("available scenes\n%s", scenesTable(scenes))
	return nil
}

func scenesTable(scenes []scene.SceneInfo) string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Scene", "Name", "Type", "Description"})
	for _, info := range scenes {
		id := info.ID
		if info.Type == "file" {
			id = info.FilePath
		}
		table.Append([]string{id, info.Name, info.Type, info.Description})
	}
	table.Render()
	return buf.String()
}
