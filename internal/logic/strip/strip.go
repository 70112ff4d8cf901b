// Package strip stacks the stills of a run into one framed vertical image.
package strip

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	xdraw "golang.org/x/image/draw"

	"github.com/cjeanneret/PhotoBooth/internal/debug"
	"github.com/cjeanneret/PhotoBooth/internal/encoder"
	"github.com/cjeanneret/PhotoBooth/internal/logic/geometry"
)

var (
	// ErrEmpty is returned when there is nothing to compose.
	ErrEmpty = errors.New("strip: no stills")
	// ErrSizeMismatch is returned when the stills do not share one size.
	ErrSizeMismatch = errors.New("strip: stills differ in size")
)

// Style is the strip decoration.
type Style struct {
	Background   color.RGBA
	Border       color.RGBA
	MinBorderPx  int
	BorderRatio  float64 // border width as a fraction of the strip width
	PreviewWidth int     // preview width cap, never upscaled
}

// DefaultStyle returns a dark background with a white border of
// max(6, 1% of the width) and a 240 px wide preview.
func DefaultStyle() Style {
	return Style{
		Background:   color.RGBA{0x07, 0x10, 0x21, 0xff},
		Border:       color.RGBA{0xff, 0xff, 0xff, 0xff},
		MinBorderPx:  6,
		BorderRatio:  0.01,
		PreviewWidth: 240,
	}
}

// Strip is a composed strip with its preview and export encoding.
type Strip struct {
	Image       *image.RGBA
	Preview     *image.RGBA
	PNG         []byte
	BorderWidth int
}

// Build composes stills top to bottom in order. Every call produces a new
// Strip; nothing is shared with a previous one.
func Build(stills []*image.RGBA, st Style) (*Strip, error) {
	if len(stills) == 0 {
		return nil, ErrEmpty
	}
	size := stills[0].Bounds().Size()
	for i, s := range stills {
		if s.Bounds().Size() != size {
			return nil, fmt.Errorf("%w: still %d is %v, want %v", ErrSizeMismatch, i, s.Bounds().Size(), size)
		}
	}
	w, h := size.X, size.Y
	if w == 0 || h == 0 {
		return nil, ErrEmpty
	}

	canvas := image.NewRGBA(image.Rect(0, 0, w, h*len(stills)))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(st.Background), image.Point{}, draw.Src)
	for i, s := range stills {
		dr := image.Rect(0, i*h, w, (i+1)*h)
		draw.Draw(canvas, dr, s, s.Bounds().Min, draw.Over)
	}

	bw := geometry.BorderWidth(w, st.MinBorderPx, st.BorderRatio)
	stroke(canvas, bw, st.Border)

	pw, ph := geometry.PreviewSize(canvas.Bounds().Dx(), canvas.Bounds().Dy(), st.PreviewWidth)
	preview := image.NewRGBA(image.Rect(0, 0, pw, ph))
	xdraw.CatmullRom.Scale(preview, preview.Bounds(), canvas, canvas.Bounds(), xdraw.Src, nil)

	data, err := encoder.NewPNGEncoder(false).Encode(canvas)
	if err != nil {
		return nil, fmt.Errorf("encode strip: %w", err)
	}

	debug.Strip(w, h*len(stills), len(stills))
	debug.Verbose("Strip: border %dpx, preview %dx%d, %d bytes", bw, pw, ph, len(data))
	return &Strip{
		Image:       canvas,
		Preview:     preview,
		PNG:         data,
		BorderWidth: bw,
	}, nil
}

// stroke paints a band of width bw along every edge, which is what a
// centred stroke of width bw along the rectangle inset by bw/2 covers.
func stroke(img *image.RGBA, bw int, c color.RGBA) {
	b := img.Bounds()
	u := image.NewUniform(c)
	for _, r := range []image.Rectangle{
		image.Rect(b.Min.X, b.Min.Y, b.Max.X, b.Min.Y+bw),
		image.Rect(b.Min.X, b.Max.Y-bw, b.Max.X, b.Max.Y),
		image.Rect(b.Min.X, b.Min.Y, b.Min.X+bw, b.Max.Y),
		image.Rect(b.Max.X-bw, b.Min.Y, b.Max.X, b.Max.Y),
	} {
		draw.Draw(img, r.Intersect(b), u, image.Point{}, draw.Src)
	}
}
