package geometry

import (
	"image"
	"math"
)

// Sticker placement rule: the sticker fits within 40% of the target width
// and 30% of its height, is never upscaled, is horizontally centred, and sits
// above the bottom edge by 3% of the target height.
const (
	StickerMaxWidthRatio  = 0.4
	StickerMaxHeightRatio = 0.3
	StickerMarginRatio    = 0.03
)

// StickerPlacement is the scaled sticker and where it lands on the target.
type StickerPlacement struct {
	Scale float64         // applied to the sticker's native size, in (0, 1]
	Rect  image.Rectangle // destination rectangle on the target
}

// StickerScale returns min(0.4*tw/sw, 0.3*th/sh, 1), or 0 if any
// dimension is not positive.
func StickerScale(targetW, targetH, stickerW, stickerH int) float64 {
	if targetW <= 0 || targetH <= 0 || stickerW <= 0 || stickerH <= 0 {
		return 0
	}
	sx := float64(targetW) * StickerMaxWidthRatio / float64(stickerW)
	sy := float64(targetH) * StickerMaxHeightRatio / float64(stickerH)
	return math.Min(math.Min(sx, sy), 1)
}

// StickerMargin returns the gap between the sticker and the bottom edge.
func StickerMargin(targetH int) int {
	return int(math.Round(float64(targetH) * StickerMarginRatio))
}

// PlaceSticker computes the sticker rectangle on a targetW x targetH surface.
// The same rule serves the on-screen overlay and every captured still.
func PlaceSticker(targetW, targetH, stickerW, stickerH int) StickerPlacement {
	scale := StickerScale(targetW, targetH, stickerW, stickerH)
	if scale == 0 {
		return StickerPlacement{}
	}

	w := float64(stickerW) * scale
	h := float64(stickerH) * scale
	x := (float64(targetW) - w) / 2
	y := float64(targetH) - h - float64(StickerMargin(targetH))

	return StickerPlacement{
		Scale: scale,
		Rect: image.Rect(
			int(math.Round(x)),
			int(math.Round(y)),
			int(math.Round(x+w)),
			int(math.Round(y+h)),
		),
	}
}

// BorderWidth returns max(minPx, round(ratio*stripW)).
func BorderWidth(stripW, minPx int, ratio float64) int {
	w := int(math.Round(float64(stripW) * ratio))
	if w < minPx {
		return minPx
	}
	return w
}

// PreviewSize scales (w, h) so the width does not exceed maxW. Never upscales.
func PreviewSize(w, h, maxW int) (int, int) {
	if w <= 0 || h <= 0 || maxW <= 0 {
		return 0, 0
	}
	scale := math.Min(float64(maxW)/float64(w), 1)
	return roundAtLeastOne(float64(w) * scale), roundAtLeastOne(float64(h) * scale)
}

// FitLongest scales (w, h) so the longest side does not exceed maxSide.
// Never upscales.
func FitLongest(w, h, maxSide int) (int, int) {
	if w <= 0 || h <= 0 || maxSide <= 0 {
		return 0, 0
	}
	longest := max(w, h)
	scale := math.Min(float64(maxSide)/float64(longest), 1)
	return roundAtLeastOne(float64(w) * scale), roundAtLeastOne(float64(h) * scale)
}

// CaptureSize picks the still resolution: the camera's native size when
// known, otherwise the displayed viewport. ok is false when neither is known.
func CaptureSize(nativeW, nativeH, viewW, viewH int) (w, h int, ok bool) {
	if nativeW > 0 && nativeH > 0 {
		return nativeW, nativeH, true
	}
	if viewW > 0 && viewH > 0 {
		return viewW, viewH, true
	}
	return 0, 0, false
}

func roundAtLeastOne(v float64) int {
	r := int(math.Round(v))
	if r < 1 {
		return 1
	}
	return r
}
