// Package webcam implements camera.Source on top of OpenCV (gocv).
// It is kept apart from package camera so that only the binary needs cgo.
package webcam

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/cjeanneret/PhotoBooth/internal/debug"
	"github.com/cjeanneret/PhotoBooth/internal/hw/camera"
)

// maxReadFailures is the number of consecutive failed reads after which the
// device is considered lost.
const maxReadFailures = 30

// Camera manages the webcam connection. A reader goroutine keeps the most
// recent frame so that Frame never waits on the device.
type Camera struct {
	deviceID int
	width    int
	height   int
	mirror   bool

	mu      sync.RWMutex
	webcam  *gocv.VideoCapture
	latest  *image.RGBA
	readErr error

	done chan struct{}
	wg   sync.WaitGroup
}

// New returns a camera for the given device index and requested resolution.
// The device reports the resolution it actually delivers through NativeSize.
func New(deviceID, width, height int, mirror bool) *Camera {
	return &Camera{
		deviceID: deviceID,
		width:    width,
		height:   height,
		mirror:   mirror,
	}
}

func (c *Camera) device() string {
	return fmt.Sprintf("#%d", c.deviceID)
}

// Acquire opens the device, reads a first frame to make sure it delivers,
// then starts the reader goroutine.
func (c *Camera) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	debug.Info("Opening video device %s (%dx%d requested)", c.device(), c.width, c.height)
	webcam, err := gocv.OpenVideoCapture(c.deviceID)
	if err != nil {
		return &camera.AcquisitionError{Device: c.device(), Err: err}
	}
	if !webcam.IsOpened() {
		webcam.Close()
		return &camera.AcquisitionError{Device: c.device(), Err: errors.New("device unavailable or permission denied")}
	}

	webcam.Set(gocv.VideoCaptureFrameWidth, float64(c.width))
	webcam.Set(gocv.VideoCaptureFrameHeight, float64(c.height))

	mat := gocv.NewMat()
	img, err := c.read(webcam, &mat)
	if err != nil {
		mat.Close()
		webcam.Close()
		return &camera.AcquisitionError{Device: c.device(), Err: err}
	}
	debug.Info("Video device %s delivering %dx%d", c.device(), img.Bounds().Dx(), img.Bounds().Dy())

	c.mu.Lock()
	c.webcam = webcam
	c.latest = img
	c.readErr = nil
	c.done = make(chan struct{})
	c.mu.Unlock()

	c.wg.Add(1)
	go c.readLoop(webcam, mat, c.done)
	return nil
}

// read grabs one frame into mat and converts it to RGBA.
func (c *Camera) read(webcam *gocv.VideoCapture, mat *gocv.Mat) (*image.RGBA, error) {
	if ok := webcam.Read(mat); !ok {
		return nil, fmt.Errorf("cannot read device %s", c.device())
	}
	if mat.Empty() {
		return nil, fmt.Errorf("no image on device %s", c.device())
	}
	if c.mirror {
		gocv.Flip(*mat, mat, 1)
	}

	img, err := mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba, nil
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba, nil
}

func (c *Camera) readLoop(webcam *gocv.VideoCapture, mat gocv.Mat, done <-chan struct{}) {
	defer c.wg.Done()
	defer mat.Close()

	failures := 0
	for {
		select {
		case <-done:
			return
		default:
		}

		img, err := c.read(webcam, &mat)
		if err != nil {
			failures++
			debug.Trace("Webcam: %v (%d consecutive)", err, failures)
			if failures >= maxReadFailures {
				c.mu.Lock()
				c.readErr = fmt.Errorf("video device %s lost: %w", c.device(), err)
				c.mu.Unlock()
			}
			time.Sleep(10 * time.Millisecond)
			continue
		}

		failures = 0
		c.mu.Lock()
		c.latest = img
		c.readErr = nil
		c.mu.Unlock()
	}
}

// Frame returns the most recent frame.
func (c *Camera) Frame() (image.Image, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.webcam == nil {
		return nil, camera.ErrNotAcquired
	}
	if c.readErr != nil {
		return nil, c.readErr
	}
	if c.latest == nil {
		return nil, camera.ErrNoFrame
	}
	return c.latest, nil
}

// NativeSize returns the size of the frames the device actually delivers.
func (c *Camera) NativeSize() (int, int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.latest == nil {
		return 0, 0
	}
	b := c.latest.Bounds()
	return b.Dx(), b.Dy()
}

// Stop ends playback and releases the device.
func (c *Camera) Stop() error {
	c.mu.Lock()
	webcam, done := c.webcam, c.done
	c.webcam, c.done, c.latest = nil, nil, nil
	c.mu.Unlock()

	if webcam == nil {
		return nil
	}
	close(done)
	c.wg.Wait()
	debug.Info("Video device %s released", c.device())
	return webcam.Close()
}
