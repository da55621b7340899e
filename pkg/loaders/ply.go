package loaders

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/df07/go-tile-pathtracer/pkg/core"
	"github.com/df07/go-tile-pathtracer/pkg/log"
	"github.com/df07/go-tile-pathtracer/pkg/scene"
)

// PLYProperty represents a property definition in the PLY header
type PLYProperty struct {
	Name     string
	Type     string
	IsList   bool
	ListType string // For list properties, the type of the count
	DataType string // For list properties, the type of the data
}

// PLYElement is one element block ("vertex", "face", ...) declared by the header
type PLYElement struct {
	Name       string
	Count      int
	Properties []PLYProperty
}

// PLYHeader represents the parsed header information from a PLY file
type PLYHeader struct {
	Format   string // "binary_little_endian", "binary_big_endian", or "ascii"
	Version  string // Usually "1.0"
	Elements []PLYElement
}

// LoadPLY reads a triangle mesh from a PLY file. Polygons with more than three
// vertices are fan triangulated. Vertex texture coordinates are kept when present.
func LoadPLY(filename string, materialIndex int, logger log.Logger) (scene.Mesh, error) {
	startTime := time.Now()

	file, err := os.Open(filename)
	if err != nil {
		return scene.Mesh{}, errors.Wrap(err, "failed to open PLY file")
	}
	defer file.Close()

	mesh, err := ReadPLY(file, materialIndex)
	if err != nil {
		return scene.Mesh{}, errors.Wrapf(err, "failed to read %s", filename)
	}

	logger.Debugf("loaded PLY %s: %d vertices, %d triangles in %v",
		filename, len(mesh.Positions), len(mesh.Indices)/3, time.Since(startTime))
	return mesh, nil
}

// ReadPLY parses PLY data from r
func ReadPLY(r io.Reader, materialIndex int) (scene.Mesh, error) {
	reader := bufio.NewReader(r)
	header, err := parsePLYHeader(reader)
	if err != nil {
		return scene.Mesh{}, errors.Wrap(err, "failed to parse PLY header")
	}

	var values plyValueReader
	switch header.Format {
	case "ascii":
		values = newASCIIValueReader(reader)
	case "binary_little_endian":
		values = &binaryValueReader{reader: reader, order: binary.LittleEndian}
	case "binary_big_endian":
		values = &binaryValueReader{reader: reader, order: binary.BigEndian}
	default:
		return scene.Mesh{}, errors.Errorf("unsupported PLY format: %s", header.Format)
	}

	mesh := scene.Mesh{MaterialIndex: materialIndex}
	for _, element := range header.Elements {
		switch element.Name {
		case "vertex":
			err = readVertices(values, element, &mesh)
		case "face":
			err = readFaces(values, element, &mesh)
		default:
			err = skipElement(values, element)
		}
		if err != nil {
			return scene.Mesh{}, errors.Wrapf(err, "element %s", element.Name)
		}
	}

	if len(mesh.Positions) == 0 {
		return scene.Mesh{}, errors.New("PLY file has no vertices")
	}
	return mesh, nil
}

// parsePLYHeader consumes the header lines up to and including end_header
func parsePLYHeader(reader *bufio.Reader) (*PLYHeader, error) {
	header := &PLYHeader{}
	first := true

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil, errors.Wrap(err, "error reading header")
		}
		line = strings.TrimSpace(line)

		if first {
			if line != "ply" {
				return nil, errors.Errorf("missing ply magic, got %q", line)
			}
			first = false
			continue
		}
		if line == "end_header" {
			break
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "format":
			if len(parts) < 3 {
				return nil, errors.Errorf("invalid format line: %q", line)
			}
			header.Format = parts[1]
			header.Version = parts[2]
		case "comment", "obj_info":
			// Ignore comments
		case "element":
			if len(parts) < 3 {
				return nil, errors.Errorf("invalid element line: %q", line)
			}
			count, err := strconv.Atoi(parts[2])
			if err != nil || count < 0 {
				return nil, errors.Errorf("invalid element count: %s", parts[2])
			}
			header.Elements = append(header.Elements, PLYElement{Name: parts[1], Count: count})
		case "property":
			if len(header.Elements) == 0 {
				return nil, errors.New("property declared before any element")
			}
			prop, err := parsePLYProperty(parts[1:])
			if err != nil {
				return nil, errors.Wrap(err, "failed to parse property")
			}
			current := &header.Elements[len(header.Elements)-1]
			current.Properties = append(current.Properties, prop)
		}
	}

	if header.Format == "" {
		return nil, errors.New("header has no format line")
	}
	return header, nil
}

// parsePLYProperty parses a property line from the PLY header
func parsePLYProperty(parts []string) (PLYProperty, error) {
	if len(parts) < 2 {
		return PLYProperty{}, errors.New("invalid property definition")
	}

	if parts[0] == "list" {
		if len(parts) < 4 {
			return PLYProperty{}, errors.New("invalid list property definition")
		}
		return PLYProperty{IsList: true, ListType: parts[1], DataType: parts[2], Name: parts[3]}, nil
	}
	return PLYProperty{Type: parts[0], Name: parts[1]}, nil
}

func readVertices(values plyValueReader, element PLYElement, mesh *scene.Mesh) error {
	hasU, hasV := false, false
	for _, prop := range element.Properties {
		switch prop.Name {
		case "u", "s", "texture_u":
			hasU = true
		case "v", "t", "texture_v":
			hasV = true
		}
	}
	withUV := hasU && hasV

	mesh.Positions = make([]core.Vec3, 0, element.Count)
	if withUV {
		mesh.UVs = make([]core.Vec2, 0, element.Count)
	}

	for i := 0; i < element.Count; i++ {
		var p core.Vec3
		var uv core.Vec2
		for _, prop := range element.Properties {
			if prop.IsList {
				if err := skipList(values, prop); err != nil {
					return errors.Wrapf(err, "vertex %d", i)
				}
				continue
			}
			value, err := values.read(prop.Type)
			if err != nil {
				return errors.Wrapf(err, "vertex %d property %s", i, prop.Name)
			}
			switch prop.Name {
			case "x":
				p.X = value
			case "y":
				p.Y = value
			case "z":
				p.Z = value
			case "u", "s", "texture_u":
				uv.X = value
			case "v", "t", "texture_v":
				uv.Y = value
			}
		}
		mesh.Positions = append(mesh.Positions, p)
		if withUV {
			mesh.UVs = append(mesh.UVs, uv)
		}
	}
	return nil
}

func readFaces(values plyValueReader, element PLYElement, mesh *scene.Mesh) error {
	for i := 0; i < element.Count; i++ {
		for _, prop := range element.Properties {
			if !prop.IsList {
				if _, err := values.read(prop.Type); err != nil {
					return errors.Wrapf(err, "face %d property %s", i, prop.Name)
				}
				continue
			}
			if prop.Name != "vertex_indices" && prop.Name != "vertex_index" {
				if err := skipList(values, prop); err != nil {
					return errors.Wrapf(err, "face %d property %s", i, prop.Name)
				}
				continue
			}

			count, err := values.read(prop.ListType)
			if err != nil {
				return errors.Wrapf(err, "face %d vertex count", i)
			}
			if count < 3 {
				return errors.Errorf("face %d has %v vertices", i, count)
			}
			polygon := make([]int, int(count))
			for j := range polygon {
				index, err := values.read(prop.DataType)
				if err != nil {
					return errors.Wrapf(err, "face %d index %d", i, j)
				}
				polygon[j] = int(index)
			}

			// Fan triangulation
			for j := 1; j+1 < len(polygon); j++ {
				mesh.Indices = append(mesh.Indices, polygon[0], polygon[j], polygon[j+1])
			}
		}
	}
	return nil
}

func skipElement(values plyValueReader, element PLYElement) error {
	for i := 0; i < element.Count; i++ {
		for _, prop := range element.Properties {
			var err error
			if prop.IsList {
				err = skipList(values, prop)
			} else {
				_, err = values.read(prop.Type)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func skipList(values plyValueReader, prop PLYProperty) error {
	count, err := values.read(prop.ListType)
	if err != nil {
		return err
	}
	for j := 0; j < int(count); j++ {
		if _, err := values.read(prop.DataType); err != nil {
			return err
		}
	}
	return nil
}

// plyValueReader yields successive scalar values of the body
type plyValueReader interface {
	read(dataType string) (float64, error)
}

// asciiValueReader reads whitespace separated tokens
type asciiValueReader struct {
	scanner *bufio.Scanner
}

func newASCIIValueReader(reader io.Reader) *asciiValueReader {
	scanner := bufio.NewScanner(reader)
	scanner.Split(bufio.ScanWords)
	return &asciiValueReader{scanner: scanner}
}

func (a *asciiValueReader) read(dataType string) (float64, error) {
	if getTypeSize(dataType) == 0 {
		return 0, errors.Errorf("unsupported data type: %s", dataType)
	}
	if !a.scanner.Scan() {
		if err := a.scanner.Err(); err != nil {
			return 0, err
		}
		return 0, io.ErrUnexpectedEOF
	}
	value, err := strconv.ParseFloat(a.scanner.Text(), 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s value", dataType)
	}
	return value, nil
}

// binaryValueReader decodes fixed-size scalars in the given byte order
type binaryValueReader struct {
	reader *bufio.Reader
	order  binary.ByteOrder
	buf    [8]byte
}

func (b *binaryValueReader) read(dataType string) (float64, error) {
	size := getTypeSize(dataType)
	if size == 0 {
		return 0, errors.Errorf("unsupported data type: %s", dataType)
	}
	data := b.buf[:size]
	if _, err := io.ReadFull(b.reader, data); err != nil {
		return 0, err
	}

	switch dataType {
	case "char", "int8":
		return float64(int8(data[0])), nil
	case "uchar", "uint8":
		return float64(data[0]), nil
	case "short", "int16":
		return float64(int16(b.order.Uint16(data))), nil
	case "ushort", "uint16":
		return float64(b.order.Uint16(data)), nil
	case "int", "int32":
		return float64(int32(b.order.Uint32(data))), nil
	case "uint", "uint32":
		return float64(b.order.Uint32(data)), nil
	case "float", "float32":
		return float64(math.Float32frombits(b.order.Uint32(data))), nil
	default:
		return math.Float64frombits(b.order.Uint64(data)), nil
	}
}

// getTypeSize returns the size in bytes of a PLY data type, or 0 if unknown
func getTypeSize(dataType string) int {
	switch dataType {
	case "float", "float32", "int", "int32", "uint", "uint32":
		return 4
	case "double", "float64":
		return 8
	case "short", "int16", "ushort", "uint16":
		return 2
	case "char", "int8", "uchar", "uint8":
		return 1
	default:
		return 0
	}
}
