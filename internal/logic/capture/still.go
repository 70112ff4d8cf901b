package capture

import (
	"errors"
	"fmt"
	"image"
	"image/draw"

	xdraw "golang.org/x/image/draw"

	"github.com/cjeanneret/PhotoBooth/internal/debug"
	"github.com/cjeanneret/PhotoBooth/internal/hw/camera"
	"github.com/cjeanneret/PhotoBooth/internal/logic/filter"
	"github.com/cjeanneret/PhotoBooth/internal/logic/geometry"
	"github.com/cjeanneret/PhotoBooth/internal/logic/overlay"
)

// ErrNoSize is returned when neither the camera nor the viewport reports a size.
var ErrNoSize = errors.New("capture: still size unknown")

// Capturer produces stills from the live feed. Filter and Viewport are read
// on every shot so that changes made during a run apply to the next still.
type Capturer struct {
	Source   camera.Source
	Overlay  *overlay.Renderer // nil draws no overlays
	Filter   func() string     // current filter name, nil means "none"
	Viewport func() (w, h int) // displayed size, used when the native size is unknown
}

// Shoot captures one still with the current filter and overlays.
func (c *Capturer) Shoot() (*image.RGBA, error) {
	name := filter.None
	if c.Filter != nil {
		name = c.Filter()
	}
	var vw, vh int
	if c.Viewport != nil {
		vw, vh = c.Viewport()
	}
	return Still(c.Source, c.Overlay, name, vw, vh)
}

// Still draws the current frame stretched to the camera's native size (or
// the viewport size when the native size is unknown), draws the overlays
// with the same placement rule as the preview, then runs the named filter
// over the result.
func Still(src camera.Source, ov *overlay.Renderer, filterName string, viewW, viewH int) (*image.RGBA, error) {
	frame, err := src.Frame()
	if err != nil {
		return nil, fmt.Errorf("read frame: %w", err)
	}
	nw, nh := src.NativeSize()
	w, h, ok := geometry.CaptureSize(nw, nh, viewW, viewH)
	if !ok {
		return nil, ErrNoSize
	}

	still := image.NewRGBA(image.Rect(0, 0, w, h))
	fb := frame.Bounds()
	if fb.Dx() == w && fb.Dy() == h {
		draw.Draw(still, still.Bounds(), frame, fb.Min, draw.Src)
	} else {
		debug.Trace("Still: stretching %dx%d frame to %dx%d", fb.Dx(), fb.Dy(), w, h)
		xdraw.ApproxBiLinear.Scale(still, still.Bounds(), frame, fb, xdraw.Src, nil)
	}
	if ov != nil {
		ov.Draw(still, w, h)
	}

	f, err := filter.Lookup(filterName)
	if err != nil {
		debug.Info("Unknown filter %q, capturing without filter", filterName)
		return still, nil
	}
	f.Apply(still)
	return still, nil
}

// Thumbnail returns a copy of img whose longest side is at most maxSide.
func Thumbnail(img image.Image, maxSide int) *image.RGBA {
	b := img.Bounds()
	w, h := geometry.FitLongest(b.Dx(), b.Dy(), maxSide)
	thumb := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(thumb, thumb.Bounds(), img, b, xdraw.Src, nil)
	return thumb
}
