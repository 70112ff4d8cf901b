package overlay

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"
	"testing"

	"golang.org/x/image/bmp"
)

var (
	red   = color.RGBA{255, 0, 0, 255}
	green = color.RGBA{0, 255, 0, 255}
	blue  = color.RGBA{0, 0, 255, 255}
)

// pngHeader returns the start of a PNG stream declaring w x h pixels, with no
// pixel data behind it.
func pngHeader(w, h uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	chunk := make([]byte, 4+13)
	copy(chunk, "IHDR")
	binary.BigEndian.PutUint32(chunk[4:], w)
	binary.BigEndian.PutUint32(chunk[8:], h)
	chunk[12], chunk[13] = 8, 6 // 8-bit RGBA
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], 13)
	buf.Write(n[:])
	buf.Write(chunk)
	binary.BigEndian.PutUint32(n[:], crc32.ChecksumIEEE(chunk))
	buf.Write(n[:])
	return buf.Bytes()
}

func filled(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

// hollowFrame is opaque blue with a transparent centre square.
func hollowFrame() *image.RGBA {
	img := filled(20, 20, blue)
	draw.Draw(img, image.Rect(5, 5, 15, 15), image.Transparent, image.Point{}, draw.Src)
	return img
}

func TestRender_EmptyClearsRegion(t *testing.T) {
	dst := filled(40, 30, red)
	New().Render(dst, 40, 30)
	if got := dst.RGBAAt(20, 15); got.A != 0 {
		t.Errorf("pixel = %v, want transparent", got)
	}
}

func TestRender_FrameStretched(t *testing.T) {
	r := New()
	r.SetFrame(filled(10, 10, blue))
	dst := image.NewRGBA(image.Rect(0, 0, 100, 50))
	r.Render(dst, 100, 50)
	for _, p := range []image.Point{{0, 0}, {99, 49}, {50, 25}} {
		if got := dst.RGBAAt(p.X, p.Y); got != blue {
			t.Errorf("pixel %v = %v, want %v", p, got, blue)
		}
	}
}

func TestDraw_KeepsUnderlyingPixels(t *testing.T) {
	r := New()
	r.SetFrame(hollowFrame())
	dst := filled(200, 200, red)
	r.Draw(dst, 200, 200)
	if got := dst.RGBAAt(100, 100); got != red {
		t.Errorf("centre = %v, want video pixel %v", got, red)
	}
	if got := dst.RGBAAt(0, 0); got != blue {
		t.Errorf("corner = %v, want frame pixel %v", got, blue)
	}
}

func TestRender_StickerPlacement(t *testing.T) {
	r := New()
	r.SetSticker(filled(100, 100, green))
	dst := image.NewRGBA(image.Rect(0, 0, 1000, 1000))
	r.Render(dst, 1000, 1000)

	// never upscaled: 100x100 centred, bottom at 1000-30
	if got := dst.RGBAAt(500, 920); got != green {
		t.Errorf("sticker centre = %v, want %v", got, green)
	}
	for _, p := range []image.Point{{500, 100}, {500, 990}, {300, 920}} {
		if got := dst.RGBAAt(p.X, p.Y); got.A != 0 {
			t.Errorf("pixel %v = %v, want transparent", p, got)
		}
	}
}

func TestRender_Idempotent(t *testing.T) {
	r := New()
	r.SetFrame(hollowFrame())
	r.SetSticker(filled(30, 10, green))
	a := r.Preview(320, 180)
	b := image.NewRGBA(image.Rect(0, 0, 320, 180))
	r.Render(b, 320, 180)
	r.Render(b, 320, 180)
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Error("rendering twice should give the same pixels as rendering once")
	}
}

func TestSetReplacesAndClearEmptiesBoth(t *testing.T) {
	r := New()
	if !r.Empty() {
		t.Fatal("new renderer should be empty")
	}
	r.SetFrame(filled(4, 4, red))
	r.SetFrame(filled(4, 4, blue))
	if got := r.Preview(8, 8).RGBAAt(4, 4); got != blue {
		t.Errorf("replaced frame = %v, want %v", got, blue)
	}
	r.SetSticker(filled(4, 4, green))
	r.Clear()
	if !r.Empty() {
		t.Error("Clear should empty both slots")
	}
	img := r.Preview(8, 8)
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0 {
			t.Fatal("cleared renderer should draw nothing")
		}
	}
}

func TestPreview_InvalidSize(t *testing.T) {
	r := New()
	r.SetFrame(filled(4, 4, red))
	if img := r.Preview(0, 10); !img.Bounds().Empty() {
		t.Errorf("bounds = %v, want empty", img.Bounds())
	}
}

func TestDecode(t *testing.T) {
	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, filled(7, 3, red)); err != nil {
		t.Fatal(err)
	}
	var bmpBuf bytes.Buffer
	if err := bmp.Encode(&bmpBuf, filled(5, 2, green)); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		data  []byte
		wantW int
		wantH int
	}{
		{"png", pngBuf.Bytes(), 7, 3},
		{"bmp", bmpBuf.Bytes(), 5, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := Decode(bytes.NewReader(tt.data))
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if b := img.Bounds(); b.Dx() != tt.wantW || b.Dy() != tt.wantH {
				t.Errorf("size = %dx%d, want %dx%d", b.Dx(), b.Dy(), tt.wantW, tt.wantH)
			}
		})
	}

	if _, err := Decode(strings.NewReader("not an image")); !errors.Is(err, ErrDecode) {
		t.Errorf("err = %v, want ErrDecode", err)
	}
}

func TestDecode_RejectsHugeDimensions(t *testing.T) {
	_, err := Decode(bytes.NewReader(pngHeader(30000, 30000)))
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("err = %v, want ErrTooLarge", err)
	}

	// the budget is checked on width*height, not on either side alone
	_, err = Decode(bytes.NewReader(pngHeader(MaxPixels+1, 1)))
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("wide strip: err = %v, want ErrTooLarge", err)
	}
}

func TestDecode_TruncatedWithinBudget(t *testing.T) {
	// header is fine, pixel data is missing
	_, err := Decode(bytes.NewReader(pngHeader(64, 64)))
	if !errors.Is(err, ErrDecode) {
		t.Errorf("err = %v, want ErrDecode", err)
	}
}
