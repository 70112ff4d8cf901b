package encoder

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func testImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 16, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 16; x++ {
			img.SetRGBA(x, y, color.RGBA{uint8(x * 16), uint8(y * 32), 99, 255})
		}
	}
	return img
}

func TestJPEGEncoder_QualityClamp(t *testing.T) {
	if e := NewJPEGEncoder(0); e.quality != 1 {
		t.Errorf("quality = %d, want 1", e.quality)
	}
	if e := NewJPEGEncoder(150); e.quality != 100 {
		t.Errorf("quality = %d, want 100", e.quality)
	}
}

func TestJPEGEncoder_Decodes(t *testing.T) {
	e := NewJPEGEncoder(80)
	data, err := e.Encode(testImage())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 16 || b.Dy() != 8 {
		t.Errorf("size = %dx%d, want 16x8", b.Dx(), b.Dy())
	}
	if e.ContentType() != "image/jpeg" {
		t.Errorf("ContentType = %q", e.ContentType())
	}
}

func TestPNGEncoder_Lossless(t *testing.T) {
	for _, fast := range []bool{false, true} {
		src := testImage()
		data, err := NewPNGEncoder(fast).Encode(src)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		for _, p := range []image.Point{{0, 0}, {15, 7}, {7, 3}} {
			r1, g1, b1, a1 := src.At(p.X, p.Y).RGBA()
			r2, g2, b2, a2 := img.At(p.X, p.Y).RGBA()
			if r1 != r2 || g1 != g2 || b1 != b2 || a1 != a2 {
				t.Errorf("fast=%v pixel %v differs after round trip", fast, p)
			}
		}
	}
}
