package capture

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/cjeanneret/PhotoBooth/internal/hw/camera"
	"github.com/cjeanneret/PhotoBooth/internal/logic/overlay"
)

var (
	red   = color.RGBA{255, 0, 0, 255}
	green = color.RGBA{0, 255, 0, 255}
	blue  = color.RGBA{0, 0, 255, 255}
)

func acquiredMock(t *testing.T, w, h int, fill color.Color) *camera.Mock {
	t.Helper()
	m := camera.NewMock(w, h)
	m.SetFill(fill)
	if err := m.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	return m
}

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

func TestStill_NativeSize(t *testing.T) {
	src := acquiredMock(t, 64, 48, red)
	still, err := Still(src, nil, "none", 10, 10)
	if err != nil {
		t.Fatalf("Still: %v", err)
	}
	if b := still.Bounds(); b.Dx() != 64 || b.Dy() != 48 {
		t.Errorf("size = %dx%d, want native 64x48", b.Dx(), b.Dy())
	}
	if got := still.RGBAAt(32, 24); got != red {
		t.Errorf("pixel = %v, want %v", got, red)
	}
}

func TestStill_FallsBackToViewport(t *testing.T) {
	src := acquiredMock(t, 64, 48, red)
	src.HideNativeSize(true)
	still, err := Still(src, nil, "none", 32, 40)
	if err != nil {
		t.Fatalf("Still: %v", err)
	}
	// frame is stretched, not cropped
	if b := still.Bounds(); b.Dx() != 32 || b.Dy() != 40 {
		t.Errorf("size = %dx%d, want viewport 32x40", b.Dx(), b.Dy())
	}
	if got := still.RGBAAt(31, 39); got != red {
		t.Errorf("corner = %v, want stretched frame %v", got, red)
	}
}

func TestStill_NoSize(t *testing.T) {
	src := acquiredMock(t, 64, 48, red)
	src.HideNativeSize(true)
	if _, err := Still(src, nil, "none", 0, 0); !errors.Is(err, ErrNoSize) {
		t.Errorf("err = %v, want ErrNoSize", err)
	}
}

func TestStill_FrameError(t *testing.T) {
	src := camera.NewMock(64, 48)
	if _, err := Still(src, nil, "none", 64, 48); !errors.Is(err, camera.ErrNotAcquired) {
		t.Errorf("err = %v, want ErrNotAcquired", err)
	}
}

func TestStill_AppliesFilter(t *testing.T) {
	src := acquiredMock(t, 16, 16, color.RGBA{200, 80, 20, 255})
	still, err := Still(src, nil, "grayscale", 0, 0)
	if err != nil {
		t.Fatalf("Still: %v", err)
	}
	p := still.RGBAAt(8, 8)
	if d := int(p.R) - int(p.B); d < -1 || d > 1 {
		t.Errorf("pixel %v should be gray", p)
	}
}

func TestStill_UnknownFilterCapturesUnfiltered(t *testing.T) {
	src := acquiredMock(t, 16, 16, red)
	still, err := Still(src, nil, "polaroid", 0, 0)
	if err != nil {
		t.Fatalf("Still: %v", err)
	}
	if got := still.RGBAAt(8, 8); got != red {
		t.Errorf("pixel = %v, want %v", got, red)
	}
}

func TestStill_OverlaysScaledToStill(t *testing.T) {
	src := acquiredMock(t, 1000, 1000, red)
	ov := overlay.New()
	ov.SetSticker(solid(100, 100, green))

	// viewport is smaller than the still; placement follows the still size
	still, err := Still(src, ov, "none", 500, 500)
	if err != nil {
		t.Fatalf("Still: %v", err)
	}
	if got := still.RGBAAt(500, 920); got != green {
		t.Errorf("sticker pixel = %v, want %v", got, green)
	}
	if got := still.RGBAAt(500, 100); got != red {
		t.Errorf("video pixel = %v, want %v", got, red)
	}
}

func TestStill_ClearedOverlaysAbsent(t *testing.T) {
	src := acquiredMock(t, 200, 100, red)
	ov := overlay.New()
	ov.SetFrame(solid(10, 10, blue))
	ov.SetSticker(solid(20, 20, green))
	ov.Clear()

	still, err := Still(src, ov, "none", 0, 0)
	if err != nil {
		t.Fatalf("Still: %v", err)
	}
	b := still.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if got := still.RGBAAt(x, y); got != red {
				t.Fatalf("pixel (%d,%d) = %v, want only video %v", x, y, got, red)
			}
		}
	}
}

func TestCapturer_ReadsFilterPerShot(t *testing.T) {
	src := acquiredMock(t, 8, 8, color.RGBA{10, 20, 30, 255})
	name := "none"
	c := &Capturer{Source: src, Filter: func() string { return name }}

	first, err := c.Shoot()
	if err != nil {
		t.Fatalf("Shoot: %v", err)
	}
	name = "invert(1)"
	second, err := c.Shoot()
	if err != nil {
		t.Fatalf("Shoot: %v", err)
	}
	if first.RGBAAt(0, 0).R != 10 {
		t.Errorf("first shot should be unfiltered, got %v", first.RGBAAt(0, 0))
	}
	if second.RGBAAt(0, 0).R != 245 {
		t.Errorf("second shot should be inverted, got %v", second.RGBAAt(0, 0))
	}
}

func TestCapturer_UsesViewport(t *testing.T) {
	src := acquiredMock(t, 8, 8, red)
	src.HideNativeSize(true)
	c := &Capturer{Source: src, Viewport: func() (int, int) { return 12, 9 }}
	still, err := c.Shoot()
	if err != nil {
		t.Fatalf("Shoot: %v", err)
	}
	if b := still.Bounds(); b.Dx() != 12 || b.Dy() != 9 {
		t.Errorf("size = %dx%d, want 12x9", b.Dx(), b.Dy())
	}
}

func TestThumbnail(t *testing.T) {
	tests := []struct {
		w, h         int
		wantW, wantH int
	}{
		{1280, 720, 320, 180},
		{720, 1280, 180, 320},
		{100, 80, 100, 80},
	}
	for _, tt := range tests {
		th := Thumbnail(solid(tt.w, tt.h, red), 320)
		if b := th.Bounds(); b.Dx() != tt.wantW || b.Dy() != tt.wantH {
			t.Errorf("Thumbnail(%dx%d) = %dx%d, want %dx%d", tt.w, tt.h, b.Dx(), b.Dy(), tt.wantW, tt.wantH)
		}
	}
}
