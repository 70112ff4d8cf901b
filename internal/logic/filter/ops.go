package filter

import (
	"image"
	"math"

	"github.com/disintegration/gift"
)

// MaxBlurPx is the largest accepted blur radius.
const MaxBlurPx = 50

// op builds the gift filter for one function of the chain. size is the
// image the chain runs on.
type op func(size image.Point) gift.Filter

// matrix is a 3x3 colour matrix on 0..1 channel values (row major).
type matrix [9]float32

func (m matrix) op() op {
	f := gift.ColorFunc(func(r, g, b, a float32) (float32, float32, float32, float32) {
		return m[0]*r + m[1]*g + m[2]*b,
			m[3]*r + m[4]*g + m[5]*b,
			m[6]*r + m[7]*g + m[8]*b,
			a
	})
	return func(image.Point) gift.Filter { return f }
}

func grayscaleMatrix(a float64) op {
	s := float32(1 - a)
	return matrix{
		0.2126 + 0.7874*s, 0.7152 - 0.7152*s, 0.0722 - 0.0722*s,
		0.2126 - 0.2126*s, 0.7152 + 0.2848*s, 0.0722 - 0.0722*s,
		0.2126 - 0.2126*s, 0.7152 - 0.7152*s, 0.0722 + 0.9278*s,
	}.op()
}

func sepiaMatrix(a float64) op {
	s := float32(1 - a)
	return matrix{
		0.393 + 0.607*s, 0.769 - 0.769*s, 0.189 - 0.189*s,
		0.349 - 0.349*s, 0.686 + 0.314*s, 0.168 - 0.168*s,
		0.272 - 0.272*s, 0.534 - 0.534*s, 0.131 + 0.869*s,
	}.op()
}

func saturateMatrix(a float64) op {
	s := float32(a)
	return matrix{
		0.213 + 0.787*s, 0.715 - 0.715*s, 0.072 - 0.072*s,
		0.213 - 0.213*s, 0.715 + 0.285*s, 0.072 - 0.072*s,
		0.213 - 0.213*s, 0.715 - 0.715*s, 0.072 + 0.928*s,
	}.op()
}

func hueRotateMatrix(deg float64) op {
	rad := deg * math.Pi / 180
	c, s := float32(math.Cos(rad)), float32(math.Sin(rad))
	return matrix{
		0.213 + c*0.787 - s*0.213, 0.715 - c*0.715 - s*0.715, 0.072 - c*0.072 + s*0.928,
		0.213 - c*0.213 + s*0.143, 0.715 + c*0.285 + s*0.140, 0.072 - c*0.072 - s*0.283,
		0.213 - c*0.213 - s*0.787, 0.715 - c*0.715 + s*0.715, 0.072 + c*0.928 + s*0.072,
	}.op()
}

// transfer applies fn to R, G and B alike.
func transfer(fn func(v float32) float32) op {
	f := gift.ColorFunc(func(r, g, b, a float32) (float32, float32, float32, float32) {
		return fn(r), fn(g), fn(b), a
	})
	return func(image.Point) gift.Filter { return f }
}

func brightness(a float64) op {
	k := float32(a)
	return transfer(func(v float32) float32 { return v * k })
}

func contrast(a float64) op {
	k := float32(a)
	return transfer(func(v float32) float32 { return (v-0.5)*k + 0.5 })
}

func invert(a float64) op {
	if a == 1 {
		f := gift.Invert()
		return func(image.Point) gift.Filter { return f }
	}
	k := float32(a)
	return transfer(func(v float32) float32 { return v*(1-k) + (1-v)*k })
}

// blur is a gaussian of standard deviation sigma. A kernel wider than the
// image adds nothing, so sigma is capped to a third of its longest side.
func blur(sigma float64) op {
	return func(size image.Point) gift.Filter {
		s := float32(sigma)
		if limit := float32(max(size.X, size.Y)) / 3; s > limit {
			s = limit
		}
		return gift.GaussianBlur(s)
	}
}
