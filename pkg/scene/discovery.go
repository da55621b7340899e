package scene

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// SceneInfo represents a discovered scene with its metadata
type SceneInfo struct {
	ID          string // Unique identifier: the builtin name or "file:<base name>"
	Name        string // Display name
	Description string // Optional description
	Type        string // "builtin" or "file"
	FilePath    string // Path to the scene document (file type only)
}

// sceneHeader is the subset of a scene document read during discovery
type sceneHeader struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ListSceneFiles scans dir for *.json scene documents. A missing directory yields an empty list.
func ListSceneFiles(dir string) ([]SceneInfo, error) {
	if _, err := os.Stat(dir); err != nil {
		return []SceneInfo{}, nil
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to scan scenes directory")
	}

	scenes := make([]SceneInfo, 0, len(files))
	for _, path := range files {
		scenes = append(scenes, ReadSceneInfo(path))
	}

	sort.Slice(scenes, func(i, j int) bool {
		return scenes[i].Name < scenes[j].Name
	})
	return scenes, nil
}

// ReadSceneInfo extracts name and description from a scene document. Unreadable
// documents fall back to a name derived from the file name.
func ReadSceneInfo(path string) SceneInfo {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	info := SceneInfo{
		ID:       "file:" + base,
		Name:     titleCase(base),
		Type:     "file",
		FilePath: path,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return info
	}
	var header sceneHeader
	if err := json.Unmarshal(data, &header); err != nil {
		return info
	}
	if header.Name != "" {
		info.Name = header.Name
	}
	info.Description = header.Description
	return info
}

// ListAllScenes returns the built-in scenes followed by the documents found in dir
func ListAllScenes(dir string) ([]SceneInfo, error) {
	var all []SceneInfo
	for _, b := range Builtins() {
		all = append(all, SceneInfo{
			ID:          b.Name,
			Name:        titleCase(b.Name),
			Description: b.Description,
			Type:        "builtin",
		})
	}

	files, err := ListSceneFiles(dir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list scene files")
	}
	return append(all, files...), nil
}

// titleCase converts a filename-style string to title case
// e.g., "cornell-empty" -> "Cornell Empty"
func titleCase(s string) string {
	s = strings.ReplaceAll(s, "-", " ")
	s = strings.ReplaceAll(s, "_", " ")

	words := strings.Fields(s)
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
	}
	return strings.Join(words, " ")
}
