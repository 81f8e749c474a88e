package depth

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

func TestPack24(t *testing.T) {
	if got := Pack24(0x12, 0x34, 0x56); got != 0x123456 {
		t.Errorf("Pack24() = %#x, want 0x123456", got)
	}
}

func TestTo16(t *testing.T) {
	tests := []struct {
		in   int64
		want uint16
	}{
		{-500, 0},
		{0, 0},
		{255, 0},
		{256, 1},
		{0xFFFFFF, 0xFFFF},
		{0xFFFFFF * 4, 0xFFFF},
	}
	for _, tt := range tests {
		if got := To16(tt.in); got != tt.want {
			t.Errorf("To16(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestConvert_FullRange(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 3, 1))
	src.SetNRGBA(0, 0, color.NRGBA{A: 255})
	src.SetNRGBA(1, 0, color.NRGBA{R: 0x80, A: 255})
	src.SetNRGBA(2, 0, color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 255})

	got, err := Convert(src, Window{Lower: 0, Upper: 1})
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}

	want := []uint16{0, 0x8000, 0xFFFF}
	for x, w := range want {
		if v := got.Gray16At(x, 0).Y; v != w {
			t.Errorf("pixel %d = %#x, want %#x", x, v, w)
		}
	}
}

func TestConvert_WindowStretchesAndClamps(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 3, 1))
	// Below, inside and above the [0.5, 0.75] window.
	src.SetNRGBA(0, 0, color.NRGBA{R: 0x10, A: 255})
	src.SetNRGBA(1, 0, color.NRGBA{R: 0xA0, A: 255})
	src.SetNRGBA(2, 0, color.NRGBA{R: 0xF0, A: 255})

	got, err := Convert(src, Window{Lower: 0.5, Upper: 0.75})
	if err != nil {
		t.Fatal(err)
	}
	if v := got.Gray16At(0, 0).Y; v != 0 {
		t.Errorf("below window = %#x, want 0", v)
	}
	if v := got.Gray16At(2, 0).Y; v != 0xFFFF {
		t.Errorf("above window = %#x, want 0xFFFF", v)
	}
	mid := got.Gray16At(1, 0).Y
	if mid == 0 || mid == 0xFFFF {
		t.Errorf("inside window should be stretched, got %#x", mid)
	}
}

func TestConvert_OffsetBounds(t *testing.T) {
	src := image.NewNRGBA(image.Rect(10, 10, 12, 11))
	src.SetNRGBA(11, 10, color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 255})

	got, err := Convert(src, Window{Lower: 0, Upper: 1})
	if err != nil {
		t.Fatal(err)
	}
	if got.Bounds() != image.Rect(0, 0, 2, 1) {
		t.Fatalf("bounds = %v", got.Bounds())
	}
	if got.Gray16At(1, 0).Y != 0xFFFF {
		t.Errorf("expected white at (1,0)")
	}
}

func TestConvert_InvalidRange(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	tests := []Window{
		{Lower: 0.5, Upper: 0.5},
		{Lower: 0.8, Upper: 0.2},
		{Lower: -0.1, Upper: 0.5},
		{Lower: 0, Upper: 1.5},
	}
	for _, w := range tests {
		if _, err := Convert(src, w); !errors.Is(err, ErrInvalidRange) {
			t.Errorf("Convert(%+v) error = %v, want ErrInvalidRange", w, err)
		}
	}
}
