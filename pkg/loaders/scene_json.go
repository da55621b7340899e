package loaders

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"github.com/df07/go-tile-pathtracer/pkg/core"
	"github.com/df07/go-tile-pathtracer/pkg/geometry"
	"github.com/df07/go-tile-pathtracer/pkg/log"
	"github.com/df07/go-tile-pathtracer/pkg/material"
	"github.com/df07/go-tile-pathtracer/pkg/scene"
)

// lightIntensityScale converts scene-file light intensities to radiant intensity
const lightIntensityScale = 0.1

// sceneFile mirrors the JSON scene document
type sceneFile struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Settings    *settingsFile  `json:"settings"`
	Camera      *cameraFile    `json:"camera"`
	Lights      []lightFile    `json:"lights"`
	Textures    []textureFile  `json:"textures"`
	Materials   []materialFile `json:"materials"`
	Objects     []objectFile   `json:"objects"`
}

type settingsFile struct {
	BackgroundColor []float64          `json:"background_color"`
	ImageSettings   *imageSettingsFile `json:"image_settings"`
}

type imageSettingsFile struct {
	Width       int  `json:"width"`
	Height      int  `json:"height"`
	BucketSize  *int `json:"bucket_size"`
	SampleCount *int `json:"sample_count"`
	TraceDepth  *int `json:"trace_depth"`
}

type cameraFile struct {
	Matrix   []float64 `json:"matrix"` // 3x3 rotation, column-major
	Position []float64 `json:"position"`
}

type lightFile struct {
	Intensity float64   `json:"intensity"`
	Position  []float64 `json:"position"`
}

type textureFile struct {
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	Albedo     []float64 `json:"albedo"`
	EdgeColor  []float64 `json:"edge_color"`
	InnerColor []float64 `json:"inner_color"`
	EdgeWidth  float64   `json:"edge_width"`
	ColorA     []float64 `json:"color_A"`
	ColorB     []float64 `json:"color_B"`
	SquareSize float64   `json:"square_size"`
	FilePath   string    `json:"file_path"`
}

type materialFile struct {
	Type          string          `json:"type"`
	Albedo        json.RawMessage `json:"albedo"` // RGB triple or texture name
	Emission      []float64       `json:"emission"`
	IOR           float64         `json:"ior"`
	SmoothShading bool            `json:"smooth_shading"`
}

type objectFile struct {
	Vertices      []float64 `json:"vertices"`
	UVs           []float64 `json:"uvs"` // Three components per vertex, the third is ignored
	Triangles     []int     `json:"triangles"`
	File          string    `json:"file"` // PLY mesh used instead of inline geometry
	MaterialIndex int       `json:"material_index"`
}

// LoadScene reads a JSON scene document. Relative texture and mesh paths are
// resolved against the directory of the document.
func LoadScene(path string, logger log.Logger) (*scene.Scene, error) {
	startTime := time.Now()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read scene file")
	}

	var doc sceneFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(err, "failed to parse scene file %s", path)
	}

	name := doc.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	b := &sceneBuilder{
		scene:  scene.New(name),
		dir:    filepath.Dir(path),
		logger: logger,
	}
	if err := b.build(&doc); err != nil {
		return nil, errors.Wrapf(err, "scene %s", path)
	}

	s := b.scene
	logger.Infof("loaded scene %q: %d triangles, %d materials, %d point lights, %d emissive triangles in %v",
		s.Name, len(s.Triangles), len(s.Materials), len(s.PointLights), s.Emissives.Len(), time.Since(startTime))
	return s, nil
}

type sceneBuilder struct {
	scene  *scene.Scene
	dir    string
	logger log.Logger
}

func (b *sceneBuilder) build(doc *sceneFile) error {
	if err := b.settings(doc.Settings); err != nil {
		return errors.Wrap(err, "settings")
	}
	if err := b.camera(doc.Camera); err != nil {
		return errors.Wrap(err, "camera")
	}
	for i, l := range doc.Lights {
		if err := b.light(l); err != nil {
			return errors.Wrapf(err, "light %d", i)
		}
	}
	for i, t := range doc.Textures {
		if err := b.texture(t); err != nil {
			return errors.Wrapf(err, "texture %d (%s)", i, t.Name)
		}
	}
	for i, m := range doc.Materials {
		if err := b.material(m); err != nil {
			return errors.Wrapf(err, "material %d", i)
		}
	}
	for i, o := range doc.Objects {
		if err := b.object(o); err != nil {
			return errors.Wrapf(err, "object %d", i)
		}
	}
	return nil
}

func (b *sceneBuilder) settings(sf *settingsFile) error {
	if sf == nil {
		return nil
	}
	st := &b.scene.Settings

	if sf.BackgroundColor != nil {
		bg, err := toVec3(sf.BackgroundColor)
		if err != nil {
			return errors.Wrap(err, "background_color")
		}
		st.Background = bg
	}

	img := sf.ImageSettings
	if img == nil {
		return nil
	}
	st.Width = img.Width
	st.Height = img.Height
	if img.BucketSize != nil {
		st.BucketSize = *img.BucketSize
	}
	if img.SampleCount != nil {
		st.SampleCount = *img.SampleCount
	}
	if img.TraceDepth != nil {
		st.TraceDepth = *img.TraceDepth
	}
	return nil
}

func (b *sceneBuilder) camera(cf *cameraFile) error {
	if cf == nil {
		return nil
	}
	if len(cf.Matrix) != 9 {
		return errors.Errorf("matrix needs 9 values, got %d", len(cf.Matrix))
	}
	position, err := toVec3(cf.Position)
	if err != nil {
		return errors.Wrap(err, "position")
	}

	var orientation mgl64.Mat3
	copy(orientation[:], cf.Matrix)
	b.scene.Camera = geometry.NewCamera(position, orientation)
	return nil
}

func (b *sceneBuilder) light(lf lightFile) error {
	intensity := lf.Intensity * lightIntensityScale
	if intensity == 0 {
		return nil
	}
	position, err := toVec3(lf.Position)
	if err != nil {
		return errors.Wrap(err, "position")
	}
	b.scene.AddPointLight(position, core.Splat(intensity))
	return nil
}

func (b *sceneBuilder) texture(tf textureFile) error {
	if tf.Name == "" {
		return errors.New("texture has no name")
	}

	var source material.ColorSource
	switch tf.Type {
	case "albedo":
		albedo, err := toVec3(tf.Albedo)
		if err != nil {
			return errors.Wrap(err, "albedo")
		}
		source = material.NewSolidColor(albedo)
	case "edges":
		edge, err := toVec3(tf.EdgeColor)
		if err != nil {
			return errors.Wrap(err, "edge_color")
		}
		inner, err := toVec3(tf.InnerColor)
		if err != nil {
			return errors.Wrap(err, "inner_color")
		}
		source = material.NewEdgesTexture(edge, inner, tf.EdgeWidth)
	case "checker":
		a, err := toVec3(tf.ColorA)
		if err != nil {
			return errors.Wrap(err, "color_A")
		}
		c, err := toVec3(tf.ColorB)
		if err != nil {
			return errors.Wrap(err, "color_B")
		}
		if tf.SquareSize <= 0 {
			return errors.Errorf("square_size must be positive, got %v", tf.SquareSize)
		}
		source = material.NewCheckerTexture(a, c, tf.SquareSize)
	case "bitmap":
		bitmap, err := LoadImage(b.resolve(tf.FilePath))
		if err != nil {
			return err
		}
		source = bitmap
	default:
		return errors.Errorf("unknown texture type %q", tf.Type)
	}

	b.scene.Textures[tf.Name] = source
	return nil
}

func (b *sceneBuilder) material(mf materialFile) error {
	matType, err := material.ParseMaterialType(mf.Type)
	if err != nil {
		return err
	}

	var mat material.Material
	switch matType {
	case material.Emissive:
		emission, err := toVec3(mf.Emission)
		if err != nil {
			return errors.Wrap(err, "emission")
		}
		mat = material.NewEmissive(emission)
	case material.Refractive:
		albedo := core.Splat(1)
		if len(mf.Albedo) != 0 {
			var rgb []float64
			if err := json.Unmarshal(mf.Albedo, &rgb); err != nil {
				return errors.Wrap(err, "refractive albedo must be an RGB triple")
			}
			if albedo, err = toVec3(rgb); err != nil {
				return errors.Wrap(err, "albedo")
			}
		}
		mat = material.NewRefractive(albedo, mf.IOR)
	default:
		mat = material.Material{Type: matType}
		if err := b.albedo(&mat, mf.Albedo); err != nil {
			return err
		}
	}

	mat.SmoothShading = mf.SmoothShading
	b.scene.AddMaterial(mat)
	return nil
}

// albedo resolves an albedo given either as an RGB triple or as a texture name
func (b *sceneBuilder) albedo(mat *material.Material, raw json.RawMessage) error {
	if len(raw) == 0 {
		return errors.New("missing albedo")
	}

	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		texture, ok := b.scene.Textures[name]
		if !ok {
			return errors.Errorf("unknown texture %q", name)
		}
		mat.Texture = texture
		return nil
	}

	var rgb []float64
	if err := json.Unmarshal(raw, &rgb); err != nil {
		return errors.Wrap(err, "albedo must be an RGB triple or a texture name")
	}
	albedo, err := toVec3(rgb)
	if err != nil {
		return errors.Wrap(err, "albedo")
	}
	mat.Albedo = albedo
	return nil
}

func (b *sceneBuilder) object(of objectFile) error {
	if of.MaterialIndex < 0 || of.MaterialIndex >= len(b.scene.Materials) {
		return errors.Errorf("material index %d out of range (have %d materials)", of.MaterialIndex, len(b.scene.Materials))
	}

	if of.File != "" {
		mesh, err := LoadPLY(b.resolve(of.File), of.MaterialIndex, b.logger)
		if err != nil {
			return err
		}
		return b.scene.AddMesh(mesh)
	}

	if len(of.Vertices)%3 != 0 {
		return errors.Errorf("vertex component count %d is not a multiple of 3", len(of.Vertices))
	}
	mesh := scene.Mesh{
		Positions:     make([]core.Vec3, 0, len(of.Vertices)/3),
		Indices:       of.Triangles,
		MaterialIndex: of.MaterialIndex,
	}
	for i := 0; i < len(of.Vertices); i += 3 {
		mesh.Positions = append(mesh.Positions, core.NewVec3(of.Vertices[i], of.Vertices[i+1], of.Vertices[i+2]))
	}

	if len(of.UVs) != 0 {
		if len(of.UVs)%3 != 0 {
			return errors.Errorf("uv component count %d is not a multiple of 3", len(of.UVs))
		}
		for i := 0; i < len(of.UVs); i += 3 {
			mesh.UVs = append(mesh.UVs, core.NewVec2(of.UVs[i], of.UVs[i+1]))
		}
	}

	return b.scene.AddMesh(mesh)
}

// resolve interprets a document path relative to the document directory.
// A leading slash is treated as relative too.
func (b *sceneBuilder) resolve(path string) string {
	path = strings.TrimPrefix(path, "/")
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(b.dir, path)
}

func toVec3(values []float64) (core.Vec3, error) {
	if len(values) != 3 {
		return core.Vec3{}, errors.Errorf("expected 3 components, got %d", len(values))
	}
	return core.NewVec3(values[0], values[1], values[2]), nil
}
