// Package depth converts Second Life snapshot depth maps, which pack a 24-bit
// depth value into the R, G and B channels, to 16-bit grayscale images that
// ordinary image tools can open.
package depth

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

const max24 = 0xFFFFFF

// ErrInvalidRange is returned when the requested depth window is empty or
// outside [0, 1].
var ErrInvalidRange = errors.New("invalid depth range")

// Window selects the part of the 24-bit depth range that is stretched over
// the 16-bit output. Lower and Upper are fractions of the full range.
type Window struct {
	Lower float64
	Upper float64
}

// bounds returns the window in 24-bit units and the integer stretch factor.
func (w Window) bounds() (lower, multiplier int64, err error) {
	if w.Lower < 0 || w.Upper > 1 {
		return 0, 0, fmt.Errorf("%w: [%v, %v] not within [0, 1]", ErrInvalidRange, w.Lower, w.Upper)
	}
	lower = int64(max24 * w.Lower)
	upper := int64(max24 * w.Upper)
	if upper <= lower {
		return 0, 0, fmt.Errorf("%w: upper %v must exceed lower %v", ErrInvalidRange, w.Upper, w.Lower)
	}
	return lower, max24 / (upper - lower), nil
}

// Pack24 merges 8-bit channels into one 24-bit depth value, R most
// significant.
func Pack24(r, g, b uint8) int64 {
	return int64(r)<<16 | int64(g)<<8 | int64(b)
}

// To16 maps a 24-bit value into the 16-bit output range, clamping.
func To16(v int64) uint16 {
	v /= 256
	if v < 0 {
		return 0
	}
	if v > 0xFFFF {
		return 0xFFFF
	}
	return uint16(v)
}

// Convert returns a 16-bit grayscale image of src's packed depth, stretched
// so the window covers the full output range.
func Convert(src image.Image, w Window) (*image.Gray16, error) {
	lower, multiplier, err := w.bounds()
	if err != nil {
		return nil, err
	}

	b := src.Bounds()
	dst := image.NewGray16(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
			mono := Pack24(c.R, c.G, c.B)
			dst.SetGray16(x-b.Min.X, y-b.Min.Y, color.Gray16{Y: To16((mono - lower) * multiplier)})
		}
	}
	return dst, nil
}
