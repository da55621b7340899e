package loaders

import (
	"bufio"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// ppmMaxColor is the maximum channel value written to PPM files
const ppmMaxColor = 255

// WritePPM writes img as a plain-text (P3) PPM, one pixel row per line
func WritePPM(w io.Writer, img image.Image) error {
	bounds := img.Bounds()
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "P3\n%d %d\n%d\n", bounds.Dx(), bounds.Dy(), ppmMaxColor)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			if x > bounds.Min.X {
				bw.WriteByte('\t')
			}
			fmt.Fprintf(bw, "%d %d %d", r>>8, g>>8, b>>8)
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// WriteImage saves img to filename, choosing PPM or PNG by extension.
// Missing parent directories are created.
func WriteImage(filename string, img image.Image) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".ppm" && ext != ".png" {
		return errors.Errorf("unsupported output format %q (use .ppm or .png)", ext)
	}

	if dir := filepath.Dir(filename); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrap(err, "failed to create output directory")
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "failed to create output file")
	}

	if ext == ".ppm" {
		err = WritePPM(file, img)
	} else {
		err = png.Encode(file, img)
	}
	if err != nil {
		file.Close()
		return errors.Wrapf(err, "failed to write %s", filename)
	}
	return errors.Wrap(file.Close(), "failed to close output file")
}
