package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
)

// Source is the high-level interface used by the rest of the application.
// It represents a live video feed, regardless of how the device is reached
// (V4L2/AVFoundation through OpenCV, a synthetic pattern, ...).
type Source interface {
	// Acquire opens the device (video only) and starts continuous playback.
	// Failures are reported as *AcquisitionError.
	Acquire(ctx context.Context) error
	// Frame returns the most recent frame. The returned image must not be
	// modified by the caller.
	Frame() (image.Image, error)
	// NativeSize returns the frame resolution, or 0,0 while unknown.
	NativeSize() (width, height int)
	// Stop releases the device.
	Stop() error
}

var (
	// ErrNotAcquired is returned by Frame before a successful Acquire or after Stop.
	ErrNotAcquired = errors.New("camera: stream not acquired")
	// ErrNoFrame is returned while the device has not delivered a frame.
	ErrNoFrame = errors.New("camera: no frame available")
)

// AcquisitionError reports that the device was denied or unavailable.
// Its message is shown to the user as is.
type AcquisitionError struct {
	Device string
	Err    error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("cannot access camera %s: %v", e.Device, e.Err)
}

func (e *AcquisitionError) Unwrap() error {
	return e.Err
}
