package mandelbrot

import (
	"bufio"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"vkplayground/internal/vkutil"
)

// Format is an output raster encoding.
type Format int

const (
	PNG Format = iota
	BMP
	TIFF
	PPM
)

func (f Format) String() string {
	switch f {
	case BMP:
		return "bmp"
	case TIFF:
		return "tiff"
	case PPM:
		return "ppm"
	default:
		return "png"
	}
}

// FormatFor picks the encoding from the file extension, PNG when unknown.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".bmp":
		return BMP
	case ".tif", ".tiff":
		return TIFF
	case ".ppm":
		return PPM
	default:
		return PNG
	}
}

// Image wraps pix without copying. pix must hold exactly dim.X*dim.Y RGBA
// texels.
func Image(pix []byte, dim vkutil.UVec2) (*image.RGBA, error) {
	if want := dim.Area() * 4; uint64(len(pix)) != want {
		return nil, errors.Errorf("pixel data is %d bytes, want %d for %s", len(pix), want, dim)
	}
	return &image.RGBA{
		Pix:    pix,
		Stride: int(dim.X) * 4,
		Rect:   image.Rect(0, 0, int(dim.X), int(dim.Y)),
	}, nil
}

func Encode(w io.Writer, f Format, img *image.RGBA) error {
	switch f {
	case BMP:
		return bmp.Encode(w, img)
	case TIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	case PPM:
		return encodePPM(w, img)
	default:
		return png.Encode(w, img)
	}
}

// Save encodes pix into path, choosing the format from its extension.
func Save(path string, pix []byte, dim vkutil.UVec2) error {
	img, err := Image(pix, dim)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create output")
	}
	format := FormatFor(path)
	if err := Encode(f, format, img); err != nil {
		f.Close()
		return errors.Wrapf(err, "encode %s", format)
	}
	return errors.Wrap(f.Close(), "close output")
}

// encodePPM writes a binary P6 file. Alpha is dropped.
func encodePPM(w io.Writer, img *image.RGBA) error {
	b := img.Bounds()
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "P6\n%d %d\n255\n", b.Dx(), b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):img.PixOffset(b.Max.X, y)]
		for x := 0; x < len(row); x += 4 {
			if _, err := bw.Write(row[x : x+3]); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// DecodePPM parses a binary P6 file with a max value of 255 and returns its
// RGB payload.
func DecodePPM(data []byte) (uint32, uint32, []byte, error) {
	if len(data) < 3 || data[0] != 'P' || data[1] != '6' {
		return 0, 0, nil, errors.New("not a P6 ppm")
	}
	idx := 2
	var tokens []string
	for len(tokens) < 3 && idx < len(data) {
		for idx < len(data) && isSpace(data[idx]) {
			idx++
		}
		start := idx
		for idx < len(data) && !isSpace(data[idx]) {
			idx++
		}
		if start < idx {
			tokens = append(tokens, string(data[start:idx]))
		}
	}
	if len(tokens) < 3 {
		return 0, 0, nil, errors.New("ppm header incomplete")
	}
	width, err := parseDim(tokens[0], "width")
	if err != nil {
		return 0, 0, nil, err
	}
	height, err := parseDim(tokens[1], "height")
	if err != nil {
		return 0, 0, nil, err
	}
	maxVal, err := strconv.Atoi(tokens[2])
	if err != nil {
		return 0, 0, nil, errors.Wrap(err, "ppm max value")
	}
	if maxVal != 255 {
		return 0, 0, nil, errors.Errorf("unsupported max value %d", maxVal)
	}
	// Exactly one whitespace byte separates the header from the raster.
	idx++
	if idx > len(data) {
		idx = len(data)
	}
	pixels := data[idx:]
	// width*height fits in uint64 for 32-bit dimensions; times 3 may not.
	texels := uint64(width) * uint64(height)
	if texels > uint64(len(pixels))/3 {
		return 0, 0, nil, errors.Errorf("ppm data truncated: got %d bytes for %dx%d", len(pixels), width, height)
	}
	return width, height, pixels[:texels*3], nil
}

func parseDim(tok, name string) (uint32, error) {
	v, err := strconv.ParseUint(tok, 10, 32)
	if err != nil {
		return 0, errors.Wrapf(err, "ppm %s", name)
	}
	if v == 0 {
		return 0, errors.Errorf("ppm %s is zero", name)
	}
	return uint32(v), nil
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\r' || b == '\t'
}
