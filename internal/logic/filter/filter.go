// Package filter implements the colour effects applied to each still.
//
// A filter is either a preset name ("sepia", "vintage", ...) or a CSS
// filter-function list such as "contrast(1.2) brightness(1.1)". Supported
// functions: grayscale, sepia, saturate, hue-rotate, brightness, contrast,
// invert, blur. Colour functions work on unpremultiplied values and leave
// alpha untouched. The chain runs on gift.
package filter

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"math"
	"strconv"
	"strings"

	"github.com/disintegration/gift"
)

// None is the identity filter name.
const None = "none"

// ErrUnknown is returned for a name that is neither a preset nor a valid
// filter expression.
var ErrUnknown = errors.New("filter: unknown filter")

// presets in display order.
var presets = []struct {
	name string
	expr string
}{
	{None, ""},
	{"grayscale", "grayscale(1)"},
	{"sepia", "sepia(1)"},
	{"vintage", "sepia(0.6) contrast(1.1) brightness(0.95) saturate(0.8)"},
	{"bright", "brightness(1.2) saturate(1.2)"},
	{"contrast", "contrast(1.4)"},
	{"invert", "invert(1)"},
	{"cool", "saturate(1.1) hue-rotate(-20deg)"},
	{"warm", "sepia(0.3) saturate(1.3)"},
	{"blur", "blur(2px)"},
}

// Presets returns the preset names in display order.
func Presets() []string {
	names := make([]string, len(presets))
	for i, p := range presets {
		names[i] = p.name
	}
	return names
}

// Filter is a parsed, ready-to-apply chain of filter functions.
type Filter struct {
	name string
	ops  []op
}

// Lookup resolves a preset name or a filter expression.
func Lookup(name string) (*Filter, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = None
	}
	for _, p := range presets {
		if strings.EqualFold(p.name, name) {
			f, err := Parse(p.expr)
			if err != nil {
				return nil, err
			}
			f.name = p.name
			return f, nil
		}
	}
	f, err := Parse(name)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Valid reports whether name resolves to a filter.
func Valid(name string) bool {
	_, err := Lookup(name)
	return err == nil
}

// String returns the preset name or the source expression.
func (f *Filter) String() string {
	return f.name
}

// Identity reports whether the filter leaves pixels unchanged.
func (f *Filter) Identity() bool {
	return len(f.ops) == 0
}

// Apply runs the chain in place, left to right.
func (f *Filter) Apply(img *image.RGBA) {
	b := img.Bounds()
	if f.Identity() || b.Empty() {
		return
	}
	filters := make([]gift.Filter, len(f.ops))
	for i, o := range f.ops {
		filters[i] = o(b.Size())
	}
	g := gift.New(filters...)
	dst := image.NewRGBA(g.Bounds(b))
	g.Draw(dst, img)
	draw.Draw(img, b, dst, dst.Bounds().Min, draw.Src)
}

// Parse parses a CSS filter-function list. An empty string or "none" gives
// the identity filter.
func Parse(expr string) (*Filter, error) {
	src := strings.TrimSpace(expr)
	f := &Filter{name: src}
	if src == "" || strings.EqualFold(src, None) {
		f.name = None
		return f, nil
	}

	rest := src
	for rest != "" {
		open := strings.IndexByte(rest, '(')
		closing := strings.IndexByte(rest, ')')
		if open <= 0 || closing < open {
			return nil, fmt.Errorf("%w: %q", ErrUnknown, expr)
		}
		fn := strings.ToLower(strings.TrimSpace(rest[:open]))
		arg := strings.TrimSpace(rest[open+1 : closing])
		o, err := newOp(fn, arg)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrUnknown, expr, err)
		}
		f.ops = append(f.ops, o)
		rest = strings.TrimSpace(rest[closing+1:])
	}
	return f, nil
}

func newOp(fn, arg string) (op, error) {
	switch fn {
	case "grayscale", "sepia", "invert":
		a, err := amount(arg, 1)
		if err != nil {
			return nil, err
		}
		a = math.Min(a, 1)
		switch fn {
		case "grayscale":
			return grayscaleMatrix(a), nil
		case "sepia":
			return sepiaMatrix(a), nil
		default:
			return invert(a), nil
		}
	case "saturate":
		a, err := amount(arg, 1)
		if err != nil {
			return nil, err
		}
		return saturateMatrix(a), nil
	case "brightness":
		a, err := amount(arg, 1)
		if err != nil {
			return nil, err
		}
		return brightness(a), nil
	case "contrast":
		a, err := amount(arg, 1)
		if err != nil {
			return nil, err
		}
		return contrast(a), nil
	case "hue-rotate":
		deg, err := angle(arg)
		if err != nil {
			return nil, err
		}
		return hueRotateMatrix(deg), nil
	case "blur":
		px, err := length(arg)
		if err != nil {
			return nil, err
		}
		if px > MaxBlurPx {
			return nil, fmt.Errorf("blur radius %gpx exceeds %dpx", px, MaxBlurPx)
		}
		return blur(px), nil
	default:
		return nil, fmt.Errorf("unsupported function %q", fn)
	}
}

// amount parses "<number>" or "<percentage>"; empty means def. Negative is invalid.
func amount(arg string, def float64) (float64, error) {
	if arg == "" {
		return def, nil
	}
	div := 1.0
	if strings.HasSuffix(arg, "%") {
		arg = strings.TrimSuffix(arg, "%")
		div = 100
	}
	v, err := strconv.ParseFloat(arg, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid amount %q", arg)
	}
	if v < 0 {
		return 0, fmt.Errorf("negative amount %q", arg)
	}
	return v / div, nil
}

// angle parses deg, rad, grad, turn (or a bare 0) into degrees.
func angle(arg string) (float64, error) {
	if arg == "" || arg == "0" {
		return 0, nil
	}
	units := []struct {
		suffix string
		toDeg  float64
	}{
		{"deg", 1},
		{"grad", 0.9},
		{"rad", 180 / math.Pi},
		{"turn", 360},
	}
	for _, u := range units {
		if strings.HasSuffix(arg, u.suffix) {
			v, err := strconv.ParseFloat(strings.TrimSuffix(arg, u.suffix), 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				return 0, fmt.Errorf("invalid angle %q", arg)
			}
			return v * u.toDeg, nil
		}
	}
	return 0, fmt.Errorf("angle %q needs a unit", arg)
}

// length parses "<n>px" (or a bare 0).
func length(arg string) (float64, error) {
	if arg == "" || arg == "0" {
		return 0, nil
	}
	if !strings.HasSuffix(arg, "px") {
		return 0, fmt.Errorf("length %q needs px", arg)
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(arg, "px"), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, fmt.Errorf("invalid length %q", arg)
	}
	return v, nil
}
