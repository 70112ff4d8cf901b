package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/cjeanneret/PhotoBooth/internal/booth"
	"github.com/cjeanneret/PhotoBooth/internal/debug"
	"github.com/cjeanneret/PhotoBooth/internal/encoder"
	"github.com/cjeanneret/PhotoBooth/internal/logic/filter"
	"github.com/cjeanneret/PhotoBooth/internal/logic/overlay"
	"github.com/cjeanneret/PhotoBooth/internal/share"
)

// maxJSONBytes bounds JSON request bodies.
const maxJSONBytes = 1 << 20

// Booth is the session state the handlers drive.
type Booth interface {
	Start(ctx context.Context) error
	Retake() error
	SetFilter(name string) error
	SetViewport(w, h int) error
	SetFrame(r io.Reader) error
	SetSticker(r io.Reader) error
	ClearOverlays()
	OverlayPreview() *image.RGBA
	LiveFrame() (image.Image, error)
	Snapshot() booth.Snapshot
	CameraError() error
	Thumbnail(i int) ([]byte, bool)
	StripPreview() (*image.RGBA, bool)
	Download(now time.Time) (string, []byte, error)
	Share(baseURL string) (share.Link, error)
	Blob(id string) (share.Blob, bool)
}

// FormConfig holds the page defaults (from config).
type FormConfig struct {
	Filters          []string `json:"filters"`
	DefaultFilter    string   `json:"default_filter"`
	PhotoCount       int      `json:"photo_count"`
	CountdownSeconds int      `json:"countdown_seconds"`
	LiveFPS          int      `json:"live_fps"`
	CameraError      string   `json:"camera_error,omitempty"`
}

// Limits bounds the live feed rate and upload sizes.
type Limits struct {
	LiveInterval   time.Duration
	MaxUploadBytes int64
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Broadcaster  *StatusBroadcaster
	Booth        Booth
	FormDefaults FormConfig
	limits       Limits
	staticFS     fs.FS
	runCtx       context.Context
	png          *encoder.PNGEncoder
	jpeg         *encoder.JPEGEncoder
	upgrader     websocket.Upgrader
	now          func() time.Time
}

// NewHandlers creates handlers with the given dependencies.
func NewHandlers(broadcaster *StatusBroadcaster, b Booth, formDefaults FormConfig, limits Limits, staticFS fs.FS) *Handlers {
	if limits.LiveInterval <= 0 {
		limits.LiveInterval = time.Second / 15
	}
	if limits.MaxUploadBytes <= 0 {
		limits.MaxUploadBytes = 10 << 20
	}
	return &Handlers{
		Broadcaster:  broadcaster,
		Booth:        b,
		FormDefaults: formDefaults,
		limits:       limits,
		staticFS:     staticFS,
		runCtx:       context.Background(),
		png:          encoder.NewPNGEncoder(true),
		jpeg:         encoder.NewJPEGEncoder(75),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 * 1024,
		},
		now: time.Now,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		debug.Trace("write JSON: %v", err)
	}
}

func (h *Handlers) writeImage(w http.ResponseWriter, enc encoder.Encoder, img image.Image) {
	data, err := enc.Encode(img)
	if err != nil {
		http.Error(w, "encode image", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", enc.ContentType())
	w.Header().Set("Cache-Control", "no-store")
	w.Write(data)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return false
	}
	return true
}

// ServeIndex serves the main HTML page (root path only).
func (h *Handlers) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.staticFS, "index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// HandleConfig returns the page defaults and the camera error, if any.
func (h *Handlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	cfg := h.FormDefaults
	if err := h.Booth.CameraError(); err != nil {
		cfg.CameraError = err.Error()
	}
	writeJSON(w, http.StatusOK, cfg)
}

// HandleState returns the session snapshot.
func (h *Handlers) HandleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Booth.Snapshot())
}

// HandleRun handles POST /run to start a capture run.
func (h *Handlers) HandleRun(w http.ResponseWriter, r *http.Request) {
	err := h.Booth.Start(h.runCtx)
	switch {
	case err == nil:
	case errors.Is(err, booth.ErrBusy):
		http.Error(w, "capture already in progress", http.StatusConflict)
		return
	case errors.Is(err, booth.ErrClosed):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	case h.Booth.CameraError() != nil:
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

// HandleRetake clears the last run unless one is in progress.
func (h *Handlers) HandleRetake(w http.ResponseWriter, r *http.Request) {
	if err := h.Booth.Retake(); err != nil {
		http.Error(w, "capture in progress", http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleFilter selects the filter applied to the next still.
func (h *Handlers) HandleFilter(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.Booth.SetFilter(req.Name); err != nil {
		if errors.Is(err, filter.ErrUnknown) {
			http.Error(w, fmt.Sprintf("unknown filter %q", req.Name), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleViewport records the displayed video size.
func (h *Handlers) HandleViewport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.Booth.SetViewport(req.Width, req.Height); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleUpload reads the multipart "file" field and passes it to set.
func (h *Handlers) handleUpload(set func(io.Reader) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, h.limits.MaxUploadBytes)
		file, _, err := r.FormFile("file")
		if err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				http.Error(w, "file too large", http.StatusRequestEntityTooLarge)
				return
			}
			http.Error(w, "missing file", http.StatusBadRequest)
			return
		}
		defer file.Close()

		if err := set(file); err != nil {
			if errors.Is(err, overlay.ErrTooLarge) {
				http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
				return
			}
			if errors.Is(err, overlay.ErrDecode) {
				http.Error(w, "unsupported image", http.StatusBadRequest)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleFrame sets the frame overlay.
func (h *Handlers) HandleFrame(w http.ResponseWriter, r *http.Request) {
	h.handleUpload(h.Booth.SetFrame)(w, r)
}

// HandleSticker sets the sticker overlay.
func (h *Handlers) HandleSticker(w http.ResponseWriter, r *http.Request) {
	h.handleUpload(h.Booth.SetSticker)(w, r)
}

// HandleClearOverlays removes both overlays.
func (h *Handlers) HandleClearOverlays(w http.ResponseWriter, r *http.Request) {
	h.Booth.ClearOverlays()
	w.WriteHeader(http.StatusNoContent)
}

// HandleOverlayImage serves the overlay layer for the current viewport.
func (h *Handlers) HandleOverlayImage(w http.ResponseWriter, r *http.Request) {
	img := h.Booth.OverlayPreview()
	if img.Bounds().Empty() {
		http.Error(w, "viewport unknown", http.StatusNotFound)
		return
	}
	h.writeImage(w, h.png, img)
}

// HandleThumbnail serves the JPEG thumbnail of still {i}.
func (h *Handlers) HandleThumbnail(w http.ResponseWriter, r *http.Request) {
	i, err := strconv.Atoi(chi.URLParam(r, "i"))
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	data, ok := h.Booth.Thumbnail(i)
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(data)
}

// HandleStripPreview serves the scaled strip.
func (h *Handlers) HandleStripPreview(w http.ResponseWriter, r *http.Request) {
	img, ok := h.Booth.StripPreview()
	if !ok {
		http.Error(w, "no strip", http.StatusNotFound)
		return
	}
	h.writeImage(w, h.png, img)
}

// HandleDownload serves the strip as an attachment. Without a strip it
// answers 204 and no body.
func (h *Handlers) HandleDownload(w http.ResponseWriter, r *http.Request) {
	name, data, err := h.Booth.Download(h.now())
	if err != nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

// HandleShare publishes the strip and returns its link and QR code.
// Without a strip it answers 204 and no body.
func (h *Handlers) HandleShare(w http.ResponseWriter, r *http.Request) {
	link, err := h.Booth.Share(baseURL(r))
	if err != nil {
		if !errors.Is(err, share.ErrNoArtifact) {
			debug.Error(err)
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

// HandleBlob serves a published strip.
func (h *Handlers) HandleBlob(w http.ResponseWriter, r *http.Request) {
	blob, ok := h.Booth.Blob(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", blob.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(blob.Data)))
	w.Write(blob.Data)
}

func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

// HandleLive streams the camera as binary JPEG websocket messages.
func (h *Handlers) HandleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		debug.Trace("live: upgrade: %v", err)
		return
	}
	defer conn.Close()
	debug.Verbose("Live feed: client %s connected", r.RemoteAddr)

	// the client never sends; reading only detects the close
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.limits.LiveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			debug.Verbose("Live feed: client %s gone", r.RemoteAddr)
			return
		case <-ticker.C:
			frame, err := h.Booth.LiveFrame()
			if err != nil {
				debug.Trace("live: %v", err)
				continue
			}
			data, err := h.jpeg.Encode(frame)
			if err != nil {
				debug.Trace("live: encode: %v", err)
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
			if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
				return
			}
		}
	}
}

// HandleStatusStream handles GET /status/stream for SSE.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()

	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	// Heartbeat while idle
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("data: " + msg + "\n\n"))
			flusher.Flush()

		case <-ticker.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
