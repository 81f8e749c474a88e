// Package bake derives vertex weights from a monochrome texture: each vertex
// takes the brightness of the texture under its UV, optionally split into
// several overlapping gradient bands so it can be rigged to multiple groups.
package bake

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/SaladDais/sl-creation-utils/internal/meshio"
	"github.com/SaladDais/sl-creation-utils/internal/texture"
)

// ErrBandCount is returned when fewer than one band is requested.
var ErrBandCount = errors.New("band count must be at least 1")

// Options configures a bake.
type Options struct {
	Sampler Sampler
	Bands   int
	// Invert swaps dark and bright, making the topmost group the backmost.
	Invert bool
	// GroupNames names the bands; missing names default to "band<i>".
	GroupNames []string
}

// DefaultOptions samples a single pixel into a single band.
func DefaultOptions() Options {
	return Options{Sampler: Sampler{Radius: 1}, Bands: 1}
}

// ToBands spreads a weight in [0, 1] over n bands. Adjacent bands overlap
// linearly, so at most two bands are non-zero and they sum to 1 for n > 1.
func ToBands(w float64, n int) []float64 {
	if n == 1 {
		return []float64{w}
	}
	f := w * float64(n-1)
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = 1 - math.Min(1, math.Max(0, math.Abs(f-float64(i))))
	}
	return vals
}

// Weight returns the vertex weight for a sampled color: the mean of R, G and
// B.
func Weight(c [4]float64) float64 {
	return (c[0] + c[1] + c[2]) / 3
}

// Bake samples img at every UV and returns one weight slice per band.
func Bake(uvs [][2]float32, img *image.NRGBA64, opts Options) ([][]float32, error) {
	if opts.Bands < 1 {
		return nil, fmt.Errorf("%w: %d", ErrBandCount, opts.Bands)
	}
	b := img.Bounds()
	if err := opts.Sampler.Validate(b.Dx(), b.Dy()); err != nil {
		return nil, err
	}

	channels := func(x, y int) [4]float64 { return texture.Channels(img, x, y) }
	bands := make([][]float32, opts.Bands)
	for i := range bands {
		bands[i] = make([]float32, len(uvs))
	}

	for v, uv := range uvs {
		row, col := Pixel(uv, b.Dx(), b.Dy())
		w := Weight(opts.Sampler.Sample(img, row, col, channels))
		if opts.Invert {
			w = 1 - w
		}
		for i, bw := range ToBands(w, opts.Bands) {
			bands[i][v] = float32(bw)
		}
	}
	return bands, nil
}

// Groups pairs baked bands with their vertex group names.
func Groups(bands [][]float32, opts Options) []meshio.Group {
	groups := make([]meshio.Group, len(bands))
	for i, w := range bands {
		name := fmt.Sprintf("band%d", i)
		if i < len(opts.GroupNames) && opts.GroupNames[i] != "" {
			name = opts.GroupNames[i]
		}
		groups[i] = meshio.Group{Name: name, Weights: w}
	}
	return groups
}
