// Package booth holds the state of one photobooth session: the live camera,
// the overlays, the selected filter, and the results of the last run.
package booth

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"
	"time"

	"github.com/cjeanneret/PhotoBooth/internal/debug"
	"github.com/cjeanneret/PhotoBooth/internal/encoder"
	"github.com/cjeanneret/PhotoBooth/internal/hw/camera"
	"github.com/cjeanneret/PhotoBooth/internal/hw/lamp"
	"github.com/cjeanneret/PhotoBooth/internal/logic/capture"
	"github.com/cjeanneret/PhotoBooth/internal/logic/filter"
	"github.com/cjeanneret/PhotoBooth/internal/logic/overlay"
	"github.com/cjeanneret/PhotoBooth/internal/logic/strip"
	"github.com/cjeanneret/PhotoBooth/internal/share"
)

// ErrBusy is returned by operations that are refused while a run is in progress.
var ErrBusy = capture.ErrBusy

// MaxViewportSide bounds each side of a reported viewport.
const MaxViewportSide = 8192

var (
	// ErrBadViewport is returned for a viewport side outside 1..MaxViewportSide.
	ErrBadViewport = fmt.Errorf("booth: viewport sides must be between 1 and %d", MaxViewportSide)
	// ErrClosed is returned by Start and Run once Close has been called.
	ErrClosed = errors.New("booth: session closed")
)

// Options configures a session.
type Options struct {
	Params        capture.Params
	Style         strip.Style
	DefaultFilter string
	ThumbnailPx   int // longest side of a thumbnail
	QRSizePx      int
	Notify        func(msg string) // receives every status change, may be nil
}

// DefaultOptions returns the standard four-photo session.
func DefaultOptions() Options {
	return Options{
		Params:        capture.DefaultParams(),
		Style:         strip.DefaultStyle(),
		DefaultFilter: filter.None,
		ThumbnailPx:   320,
		QRSizePx:      160,
	}
}

// Snapshot is the externally visible session state.
type Snapshot struct {
	Busy        bool   `json:"busy"`
	Photos      int    `json:"photos"`     // stills of the last completed run: 0 or Count
	Thumbnails  int    `json:"thumbnails"` // thumbnails shown, grows during a run
	HasStrip    bool   `json:"has_strip"`
	Status      string `json:"status"`
	Filter      string `json:"filter"`
	CameraError string `json:"camera_error,omitempty"`
}

// Session owns every piece of mutable booth state. All methods are safe for
// concurrent use; state changes are serialised by one mutex.
type Session struct {
	cam      camera.Source
	overlay  *overlay.Renderer
	seq      *capture.Sequence
	registry *share.Registry
	sharer   *share.Sharer
	thumbEnc encoder.Encoder
	opts     Options

	mu     sync.Mutex
	acqErr error
	closed bool
	busy   bool
	stills []*image.RGBA
	thumbs [][]byte
	strip  *strip.Strip
	filter string
	viewW  int
	viewH  int
	status string

	runs sync.WaitGroup
}

// New creates a session around cam. l may be nil when no lamp is wired.
func New(cam camera.Source, l lamp.Lamp, opts Options) *Session {
	if opts.Params.Count <= 0 {
		opts.Params = capture.DefaultParams()
	}
	if opts.ThumbnailPx <= 0 {
		opts.ThumbnailPx = 320
	}
	if opts.DefaultFilter == "" || !filter.Valid(opts.DefaultFilter) {
		opts.DefaultFilter = filter.None
	}

	s := &Session{
		cam:      cam,
		overlay:  overlay.New(),
		registry: share.NewRegistry(),
		thumbEnc: encoder.NewJPEGEncoder(85),
		opts:     opts,
		filter:   opts.DefaultFilter,
		status:   "—",
	}
	s.sharer = share.NewSharer(s.registry, opts.QRSizePx)
	s.seq = capture.NewSequence(&capture.Capturer{
		Source:   cam,
		Overlay:  s.overlay,
		Filter:   s.Filter,
		Viewport: s.Viewport,
	}, l)
	return s
}

// Open acquires the camera. A failure is kept for the whole session: every
// later Start returns it and no retry is made.
func (s *Session) Open(ctx context.Context) error {
	err := s.cam.Acquire(ctx)
	if err != nil {
		s.mu.Lock()
		s.acqErr = err
		s.mu.Unlock()
		s.setStatus(err.Error())
		return err
	}
	w, h := s.cam.NativeSize()
	debug.Info("Camera ready (%dx%d)", w, h)
	return nil
}

// Close refuses new runs, waits for a run in progress to end and releases
// the camera.
func (s *Session) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.runs.Wait()
	return s.cam.Stop()
}

// CameraError returns the acquisition failure, if any.
func (s *Session) CameraError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acqErr
}

// Start begins a run in the background. It returns ErrBusy if a run is in
// progress and the acquisition error if the camera never opened. ctx bounds
// the run; it should live as long as the process, not a request.
func (s *Session) Start(ctx context.Context) error {
	if err := s.begin(); err != nil {
		return err
	}
	go func() {
		defer s.runs.Done()
		if err := s.run(ctx); err != nil {
			debug.Error(err)
		}
	}()
	return nil
}

// Run performs a run and returns once the strip is built.
func (s *Session) Run(ctx context.Context) error {
	if err := s.begin(); err != nil {
		return err
	}
	defer s.runs.Done()
	return s.run(ctx)
}

// Wait blocks until no run is in progress.
func (s *Session) Wait() {
	s.runs.Wait()
}

// begin marks the session busy, registers the run and clears the previous
// run's results. The caller must call s.runs.Done when the run ends.
func (s *Session) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.acqErr != nil {
		return s.acqErr
	}
	if s.busy {
		return ErrBusy
	}
	s.runs.Add(1)
	s.busy = true
	s.stills = nil
	s.thumbs = nil
	s.strip = nil
	return nil
}

func (s *Session) run(ctx context.Context) error {
	stills, err := s.seq.Run(ctx, s.opts.Params, s.onStatus, s.onStill)
	if err != nil {
		s.abort()
		return fmt.Errorf("capture run: %w", err)
	}

	st, err := strip.Build(stills, s.opts.Style)
	if err != nil {
		s.abort()
		s.setStatus("Cannot build strip: " + err.Error())
		return err
	}

	s.mu.Lock()
	s.stills = stills
	s.strip = st
	s.busy = false
	s.mu.Unlock()
	s.setStatus(capture.Status{State: capture.Complete}.Message())
	debug.Info("Run complete: %d photos", len(stills))
	return nil
}

// abort discards a partial run.
func (s *Session) abort() {
	s.mu.Lock()
	s.stills = nil
	s.thumbs = nil
	s.strip = nil
	s.busy = false
	s.mu.Unlock()
}

func (s *Session) onStatus(st capture.Status) {
	s.setStatus(st.Message())
}

func (s *Session) onStill(i int, still *image.RGBA) {
	data, err := s.thumbEnc.Encode(capture.Thumbnail(still, s.opts.ThumbnailPx))
	if err != nil {
		debug.Error(fmt.Errorf("thumbnail %d: %w", i+1, err))
		return
	}
	s.mu.Lock()
	s.thumbs = append(s.thumbs, data)
	s.mu.Unlock()
}

func (s *Session) setStatus(msg string) {
	s.mu.Lock()
	s.status = msg
	notify := s.opts.Notify
	s.mu.Unlock()
	if notify != nil {
		notify(msg)
	}
}

// Retake clears the last run. It is refused with ErrBusy during a run.
func (s *Session) Retake() error {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return ErrBusy
	}
	s.stills = nil
	s.thumbs = nil
	s.strip = nil
	s.mu.Unlock()
	s.setStatus("—")
	debug.Verbose("Retake: session cleared")
	return nil
}

// SetFilter selects the filter for the next still. It may change during a run.
func (s *Session) SetFilter(name string) error {
	f, err := filter.Lookup(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.filter = f.String()
	s.mu.Unlock()
	debug.Verbose("Filter: %s", f)
	return nil
}

// Filter returns the selected filter name.
func (s *Session) Filter() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// SetViewport records the displayed size of the live video.
func (s *Session) SetViewport(w, h int) error {
	if w <= 0 || h <= 0 || w > MaxViewportSide || h > MaxViewportSide {
		return ErrBadViewport
	}
	s.mu.Lock()
	s.viewW, s.viewH = w, h
	s.mu.Unlock()
	debug.Trace("Viewport: %dx%d", w, h)
	return nil
}

// Viewport returns the last reported displayed size, 0,0 if none.
func (s *Session) Viewport() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewW, s.viewH
}

// SetFrame decodes r and makes it the frame overlay.
func (s *Session) SetFrame(r io.Reader) error {
	img, err := overlay.Decode(r)
	if err != nil {
		return err
	}
	s.overlay.SetFrame(img)
	return nil
}

// SetSticker decodes r and makes it the sticker overlay.
func (s *Session) SetSticker(r io.Reader) error {
	img, err := overlay.Decode(r)
	if err != nil {
		return err
	}
	s.overlay.SetSticker(img)
	return nil
}

// ClearOverlays removes both overlays.
func (s *Session) ClearOverlays() {
	s.overlay.Clear()
}

// OverlayPreview renders the overlays for the current viewport, or for the
// camera size before the page reported one.
func (s *Session) OverlayPreview() *image.RGBA {
	w, h := s.Viewport()
	if w == 0 || h == 0 {
		w, h = s.cam.NativeSize()
	}
	return s.overlay.Preview(w, h)
}

// LiveFrame returns the current camera frame.
func (s *Session) LiveFrame() (image.Image, error) {
	return s.cam.Frame()
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Busy:       s.busy,
		Photos:     len(s.stills),
		Thumbnails: len(s.thumbs),
		HasStrip:   s.strip != nil,
		Status:     s.status,
		Filter:     s.filter,
	}
	if s.acqErr != nil {
		snap.CameraError = s.acqErr.Error()
	}
	return snap
}

// Stills returns the stills of the last completed run.
func (s *Session) Stills() []*image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*image.RGBA(nil), s.stills...)
}

// Thumbnail returns the JPEG thumbnail of still i.
func (s *Session) Thumbnail(i int) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.thumbs) {
		return nil, false
	}
	return s.thumbs[i], true
}

// StripPreview returns the on-screen preview of the strip.
func (s *Session) StripPreview() (*image.RGBA, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.strip == nil {
		return nil, false
	}
	return s.strip.Preview, true
}

// Download returns the export file name for now and the PNG bytes, or
// share.ErrNoArtifact when no run has completed since start or retake.
func (s *Session) Download(now time.Time) (string, []byte, error) {
	s.mu.Lock()
	st := s.strip
	s.mu.Unlock()
	if st == nil {
		return "", nil, share.ErrNoArtifact
	}
	return share.Filename(now), st.PNG, nil
}

// Share publishes the strip and returns its link and QR code.
func (s *Session) Share(baseURL string) (share.Link, error) {
	s.mu.Lock()
	st := s.strip
	s.mu.Unlock()
	if st == nil {
		return share.Link{}, share.ErrNoArtifact
	}
	return s.sharer.Share(st.PNG, baseURL)
}

// Blob returns a published artifact.
func (s *Session) Blob(id string) (share.Blob, bool) {
	return s.registry.Get(id)
}
