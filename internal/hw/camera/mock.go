package camera

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/cjeanneret/PhotoBooth/internal/debug"
)

// Mock is a synthetic Source for development without a camera and for
// tests. By default every frame is a colour gradient with a moving bar; a
// fixed fill colour can be set for pixel-exact assertions.
type Mock struct {
	mu       sync.Mutex
	width    int
	height   int
	fill     color.Color
	failWith error
	lost     error
	hideSize bool
	acquired bool
	frames   int
}

// NewMock creates a mock camera delivering width x height frames.
func NewMock(width, height int) *Mock {
	return &Mock{width: width, height: height}
}

// NewFailingMock creates a mock whose Acquire always fails with err.
func NewFailingMock(err error) *Mock {
	return &Mock{width: 640, height: 480, failWith: err}
}

// SetFill makes every subsequent frame a uniform colour (nil restores the pattern).
func (m *Mock) SetFill(c color.Color) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fill = c
}

// HideNativeSize makes NativeSize report 0,0, as a device without metadata would.
func (m *Mock) HideNativeSize(hide bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hideSize = hide
}

// Disconnect makes every subsequent Frame fail with err.
func (m *Mock) Disconnect(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lost = err
}

// Frames returns how many frames were delivered.
func (m *Mock) Frames() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frames
}

func (m *Mock) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return &AcquisitionError{Device: "mock", Err: m.failWith}
	}
	debug.Info("Using MOCK camera (%dx%d)", m.width, m.height)
	m.acquired = true
	return nil
}

func (m *Mock) Frame() (image.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.acquired {
		return nil, ErrNotAcquired
	}
	if m.lost != nil {
		return nil, m.lost
	}

	img := image.NewRGBA(image.Rect(0, 0, m.width, m.height))
	if m.fill != nil {
		draw.Draw(img, img.Bounds(), image.NewUniform(m.fill), image.Point{}, draw.Src)
	} else {
		m.drawPattern(img)
	}
	m.frames++
	debug.Trace("Mock camera: frame %d", m.frames)
	return img, nil
}

func (m *Mock) drawPattern(img *image.RGBA) {
	barX := (m.frames * 8) % max(m.width, 1)
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			c := color.RGBA{
				R: uint8(x * 255 / max(m.width-1, 1)),
				G: uint8(y * 255 / max(m.height-1, 1)),
				B: 0x80,
				A: 0xff,
			}
			if x >= barX && x < barX+8 {
				c = color.RGBA{0xff, 0xff, 0xff, 0xff}
			}
			img.SetRGBA(x, y, c)
		}
	}
}

func (m *Mock) NativeSize() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.acquired || m.hideSize {
		return 0, 0
	}
	return m.width, m.height
}

func (m *Mock) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	debug.Trace("Mock camera: stop")
	m.acquired = false
	return nil
}
