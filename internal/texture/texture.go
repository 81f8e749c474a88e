// Package texture loads the images used as weight maps and depth snapshots.
package texture

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
)

// Decode decodes an image, picking the decoder from the file extension.
// TGA has no magic number, so it cannot go through image.Decode sniffing.
func Decode(r io.Reader, ext string) (image.Image, error) {
	switch strings.ToLower(ext) {
	case ".tga":
		return tga.Decode(r)
	case ".bmp":
		return bmp.Decode(r)
	case ".tif", ".tiff":
		return tiff.Decode(r)
	default:
		img, _, err := image.Decode(r)
		return img, err
	}
}

// Load reads an image file and returns it as 16-bit straight-alpha RGBA.
func Load(path string) (*image.NRGBA64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("texture: open %s: %w", path, err)
	}
	defer f.Close()

	img, err := Decode(f, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("texture: decode %s: %w", path, err)
	}
	return ToNRGBA64(img), nil
}

// ToNRGBA64 converts any image to NRGBA64 with bounds starting at (0, 0).
func ToNRGBA64(src image.Image) *image.NRGBA64 {
	if n, ok := src.(*image.NRGBA64); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	b := src.Bounds()
	dst := image.NewNRGBA64(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

// Channels returns the pixel at (x, y) as RGBA floats in [0, 1].
func Channels(img *image.NRGBA64, x, y int) [4]float64 {
	c := img.NRGBA64At(x, y)
	return [4]float64{
		float64(c.R) / 0xFFFF,
		float64(c.G) / 0xFFFF,
		float64(c.B) / 0xFFFF,
		float64(c.A) / 0xFFFF,
	}
}
