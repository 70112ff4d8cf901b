package geometry

import (
	"image"
	"math"
	"testing"
)

const epsilon = 1e-9

func TestStickerScale_NeverAboveBounds(t *testing.T) {
	cases := []struct {
		name           string
		tw, th, sw, sh int
	}{
		{"small_sticker", 1280, 720, 100, 100},
		{"wide_sticker", 1280, 720, 2000, 200},
		{"tall_sticker", 1280, 720, 200, 2000},
		{"huge_sticker", 640, 480, 5000, 5000},
		{"tiny_target", 10, 10, 300, 300},
		{"portrait_target", 480, 640, 400, 300},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := StickerScale(tc.tw, tc.th, tc.sw, tc.sh)
			bound := math.Min(0.4*float64(tc.tw)/float64(tc.sw), 0.3*float64(tc.th)/float64(tc.sh))
			if s > 1+epsilon {
				t.Errorf("scale %v exceeds 1", s)
			}
			if s > bound+epsilon {
				t.Errorf("scale %v exceeds bound %v", s, bound)
			}
			if s <= 0 {
				t.Errorf("scale %v should be positive", s)
			}
		})
	}
}

func TestStickerScale_NoUpscale(t *testing.T) {
	if s := StickerScale(4000, 3000, 10, 10); s != 1 {
		t.Errorf("small sticker on large target: scale = %v, want 1", s)
	}
}

func TestStickerScale_Exact(t *testing.T) {
	// 0.4*1000/800 = 0.5, 0.3*1000/200 = 1.5 -> 0.5
	if s := StickerScale(1000, 1000, 800, 200); math.Abs(s-0.5) > epsilon {
		t.Errorf("scale = %v, want 0.5", s)
	}
}

func TestStickerScale_InvalidDimensions(t *testing.T) {
	cases := [][4]int{{0, 10, 10, 10}, {10, 0, 10, 10}, {10, 10, 0, 10}, {10, 10, 10, -1}}
	for _, c := range cases {
		if s := StickerScale(c[0], c[1], c[2], c[3]); s != 0 {
			t.Errorf("StickerScale(%v) = %v, want 0", c, s)
		}
	}
}

func TestPlaceSticker_CentredNearBottom(t *testing.T) {
	p := PlaceSticker(1000, 1000, 800, 200)
	// 400x100 sticker, x = 300, margin = 30, y = 1000-100-30 = 870
	want := image.Rect(300, 870, 700, 970)
	if p.Rect != want {
		t.Errorf("Rect = %v, want %v", p.Rect, want)
	}
	if math.Abs(p.Scale-0.5) > epsilon {
		t.Errorf("Scale = %v, want 0.5", p.Scale)
	}
}

func TestPlaceSticker_ScalesWithTarget(t *testing.T) {
	// Same sticker on a preview and on a still twice its size keeps proportions
	small := PlaceSticker(640, 360, 1000, 1000)
	large := PlaceSticker(1280, 720, 1000, 1000)
	if large.Rect.Dx() != 2*small.Rect.Dx() || large.Rect.Dy() != 2*small.Rect.Dy() {
		t.Errorf("sticker should scale with target: %v vs %v", small.Rect, large.Rect)
	}
	if (large.Rect.Min.X+large.Rect.Max.X)/2 != 640 {
		t.Errorf("sticker not centred: %v", large.Rect)
	}
	if large.Rect.Max.Y != 720-StickerMargin(720) {
		t.Errorf("sticker bottom = %d, want %d", large.Rect.Max.Y, 720-StickerMargin(720))
	}
}

func TestPlaceSticker_Invalid(t *testing.T) {
	if p := PlaceSticker(0, 0, 10, 10); !p.Rect.Empty() || p.Scale != 0 {
		t.Errorf("expected empty placement, got %+v", p)
	}
}

func TestBorderWidth(t *testing.T) {
	cases := []struct {
		w    int
		want int
	}{
		{100, 6},
		{600, 6},
		{640, 6},
		{1280, 13},
		{1920, 19},
		{4000, 40},
	}
	for _, tc := range cases {
		if got := BorderWidth(tc.w, 6, 0.01); got != tc.want {
			t.Errorf("BorderWidth(%d) = %d, want %d", tc.w, got, tc.want)
		}
	}
}

func TestPreviewSize(t *testing.T) {
	cases := []struct {
		name         string
		w, h, maxW   int
		wantW, wantH int
	}{
		{"downscale", 1280, 2880, 240, 240, 540},
		{"no_upscale", 200, 600, 240, 200, 600},
		{"exact", 240, 960, 240, 240, 960},
		{"rounding", 1000, 3333, 240, 240, 800},
		{"invalid", 0, 100, 240, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, h := PreviewSize(tc.w, tc.h, tc.maxW)
			if w != tc.wantW || h != tc.wantH {
				t.Errorf("PreviewSize = %dx%d, want %dx%d", w, h, tc.wantW, tc.wantH)
			}
		})
	}
}

func TestFitLongest(t *testing.T) {
	if w, h := FitLongest(1280, 720, 320); w != 320 || h != 180 {
		t.Errorf("landscape = %dx%d, want 320x180", w, h)
	}
	if w, h := FitLongest(720, 1280, 320); w != 180 || h != 320 {
		t.Errorf("portrait = %dx%d, want 180x320", w, h)
	}
	if w, h := FitLongest(100, 50, 320); w != 100 || h != 50 {
		t.Errorf("no upscale = %dx%d, want 100x50", w, h)
	}
	if w, h := FitLongest(10000, 1, 100); w != 100 || h != 1 {
		t.Errorf("thin = %dx%d, want 100x1", w, h)
	}
}

func TestCaptureSize(t *testing.T) {
	if w, h, ok := CaptureSize(1280, 720, 640, 360); !ok || w != 1280 || h != 720 {
		t.Errorf("native known: %dx%d ok=%v", w, h, ok)
	}
	if w, h, ok := CaptureSize(0, 0, 640, 360); !ok || w != 640 || h != 360 {
		t.Errorf("fallback: %dx%d ok=%v", w, h, ok)
	}
	if _, _, ok := CaptureSize(0, 0, 0, 0); ok {
		t.Error("nothing known should not be ok")
	}
}
