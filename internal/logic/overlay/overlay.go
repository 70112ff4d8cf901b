// Package overlay holds the optional frame and sticker images and draws
// them onto the live preview and onto every captured still.
package overlay

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"sync"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/cjeanneret/PhotoBooth/internal/debug"
	"github.com/cjeanneret/PhotoBooth/internal/logic/geometry"
)

// MaxPixels is the largest width*height an overlay may declare.
const MaxPixels = 32 << 20

var (
	// ErrDecode is returned when an uploaded file is not a supported image.
	ErrDecode = errors.New("overlay: cannot decode image")
	// ErrTooLarge is returned for an image declaring more than MaxPixels.
	ErrTooLarge = errors.New("overlay: image dimensions too large")
)

// Renderer keeps zero or one frame image and zero or one sticker image.
// The two slots are independent. It is safe for concurrent use.
type Renderer struct {
	mu      sync.RWMutex
	frame   image.Image
	sticker image.Image
}

// New returns a renderer with both slots empty.
func New() *Renderer {
	return &Renderer{}
}

// Decode reads a PNG, JPEG, GIF, WebP or BMP image. The header is checked
// against MaxPixels before any pixel data is decoded.
func Decode(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: empty %s image", ErrDecode, format)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, fmt.Errorf("%w: %s %dx%d", ErrTooLarge, format, cfg.Width, cfg.Height)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("%w: empty %s image", ErrDecode, format)
	}
	debug.Verbose("Overlay: decoded %s %dx%d", format, b.Dx(), b.Dy())
	return img, nil
}

// SetFrame replaces the frame image. nil empties the slot.
func (r *Renderer) SetFrame(img image.Image) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frame = img
}

// SetSticker replaces the sticker image. nil empties the slot.
func (r *Renderer) SetSticker(img image.Image) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sticker = img
}

// Clear empties both slots at once.
func (r *Renderer) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frame, r.sticker = nil, nil
	debug.Verbose("Overlay: cleared")
}

// Empty reports whether neither slot is set.
func (r *Renderer) Empty() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frame == nil && r.sticker == nil
}

func (r *Renderer) layers() (frame, sticker image.Image) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frame, r.sticker
}

// Render clears the (0,0)-(w,h) region of dst to transparent and draws the
// overlays into it.
func (r *Renderer) Render(dst draw.Image, w, h int) {
	area := image.Rect(0, 0, w, h).Intersect(dst.Bounds())
	draw.Draw(dst, area, image.Transparent, image.Point{}, draw.Src)
	r.Draw(dst, w, h)
}

// Draw composites the overlays over whatever dst already holds in the
// (0,0)-(w,h) region. The frame is stretched to exactly w x h. The sticker
// keeps its aspect ratio and is placed by geometry.PlaceSticker.
func (r *Renderer) Draw(dst draw.Image, w, h int) {
	if w <= 0 || h <= 0 {
		return
	}
	frame, sticker := r.layers()

	if frame != nil {
		xdraw.BiLinear.Scale(dst, image.Rect(0, 0, w, h), frame, frame.Bounds(), xdraw.Over, nil)
	}
	if sticker != nil {
		sb := sticker.Bounds()
		p := geometry.PlaceSticker(w, h, sb.Dx(), sb.Dy())
		if !p.Rect.Empty() {
			xdraw.BiLinear.Scale(dst, p.Rect, sticker, sb, xdraw.Over, nil)
		}
	}
}

// Preview renders the overlays alone on a transparent w x h image.
func (r *Renderer) Preview(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, max(w, 0), max(h, 0)))
	r.Draw(img, w, h)
	return img
}
