package bake

import (
	"errors"
	"fmt"
	"image"
	"math"
)

// ErrSampleRadius is returned for radii below 1 or windows larger than the
// image.
var ErrSampleRadius = errors.New("invalid sample radius")

// Sampler averages the pixels around a UV coordinate.
type Sampler struct {
	// Radius 1 samples a single pixel. Larger radii average a window of
	// 2*Radius-1 pixels on each side.
	Radius int
	// Circle restricts the window to a disc instead of the full square.
	Circle bool
}

// Diameter returns the window size in pixels.
func (s Sampler) Diameter() int {
	return 2*s.Radius - 1
}

// Validate checks the sampler against an image of the given size.
func (s Sampler) Validate(width, height int) error {
	if s.Radius < 1 {
		return fmt.Errorf("%w: %d", ErrSampleRadius, s.Radius)
	}
	d := s.Diameter()
	if d-1 > width || d-1 > height {
		return fmt.Errorf("%w: radius %d too large for %dx%d image", ErrSampleRadius, s.Radius, width, height)
	}
	return nil
}

// Mask returns the window mask, row-major, Diameter() on each side. The
// circle keeps the full center row and every other cell strictly inside
// r*r - r, which rounds better than r*r for small radii.
func (s Sampler) Mask() []bool {
	d := s.Diameter()
	r := s.Radius
	mask := make([]bool, d*d)
	for row := 0; row < d; row++ {
		for col := 0; col < d; col++ {
			i := absInt(row - (r - 1))
			j := absInt(col - (r - 1))
			on := true
			if s.Circle && i != 0 {
				on = i*i+j*j < r*r-r
			}
			mask[row*d+col] = on
		}
	}
	return mask
}

// Pixel returns the (row, col) a UV coordinate lands on. UVs follow the glTF
// convention: origin at the top-left, v growing downwards. Coordinates
// outside [0, 1) wrap.
func Pixel(uv [2]float32, width, height int) (row, col int) {
	row = floorMod(int(math.Floor(float64(uv[1])*float64(height))), height)
	col = floorMod(int(math.Floor(float64(uv[0])*float64(width))), width)
	return row, col
}

// Sample averages the RGBA of img around (row, col) under the sampler's mask.
// The window wraps around the image edges. channels reads one pixel as RGBA
// floats.
func (s Sampler) Sample(img image.Image, row, col int, channels func(x, y int) [4]float64) [4]float64 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if s.Radius <= 1 {
		return channels(b.Min.X+col, b.Min.Y+row)
	}

	d := s.Diameter()
	mask := s.Mask()
	top := row + 1 - s.Radius
	left := col + 1 - s.Radius

	var sum [4]float64
	n := 0
	for dy := 0; dy < d; dy++ {
		y := floorMod(top+dy, h)
		for dx := 0; dx < d; dx++ {
			if !mask[dy*d+dx] {
				continue
			}
			x := floorMod(left+dx, w)
			c := channels(b.Min.X+x, b.Min.Y+y)
			for k := range sum {
				sum[k] += c[k]
			}
			n++
		}
	}
	for k := range sum {
		sum[k] /= float64(n)
	}
	return sum
}

func floorMod(a, n int) int {
	m := a % n
	if m < 0 {
		m += n
	}
	return m
}

func absInt(a int) int {
	if a < 0 {
		return -a
	}
	return a
}
