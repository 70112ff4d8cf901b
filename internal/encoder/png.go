package encoder

import (
	"bytes"
	"image"
	"image/png"
)

// PNGEncoder encodes lossless images: the exported strip, its preview, the
// overlay layer and QR codes.
type PNGEncoder struct {
	enc png.Encoder
}

// NewPNGEncoder creates a PNG encoder. fast trades size for speed, which
// suits images that are re-rendered often (overlay previews).
func NewPNGEncoder(fast bool) *PNGEncoder {
	level := png.DefaultCompression
	if fast {
		level = png.BestSpeed
	}
	return &PNGEncoder{enc: png.Encoder{CompressionLevel: level}}
}

func (e *PNGEncoder) Encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := e.enc.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *PNGEncoder) ContentType() string {
	return "image/png"
}
