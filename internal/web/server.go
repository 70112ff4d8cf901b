package web

import (
	"context"
	"io/fs"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server wraps the HTTP server and handlers.
type Server struct {
	addr     string
	handlers *Handlers
}

// NewServer creates a server configured for the given address and dependencies.
func NewServer(addr string, broadcaster *StatusBroadcaster, b Booth, formDefaults FormConfig, limits Limits) *Server {
	subFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		log.Fatalf("web: failed to sub static fs: %v", err)
	}

	return &Server{
		addr:     addr,
		handlers: NewHandlers(broadcaster, b, formDefaults, limits, subFS),
	}
}

// Router returns an http.Handler with all routes registered.
func (s *Server) Router() http.Handler {
	return newRouter(s.handlers)
}

func newRouter(h *Handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/", h.ServeIndex)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(h.staticFS))))

	r.Get("/config", h.HandleConfig)
	r.Get("/state", h.HandleState)
	r.Get("/status/stream", h.HandleStatusStream)
	r.Get("/live", h.HandleLive)

	r.Post("/run", h.HandleRun)
	r.Post("/retake", h.HandleRetake)
	r.Put("/filter", h.HandleFilter)
	r.Post("/viewport", h.HandleViewport)

	r.Put("/overlay/frame", h.HandleFrame)
	r.Put("/overlay/sticker", h.HandleSticker)
	r.Delete("/overlay", h.HandleClearOverlays)
	r.Get("/overlay.png", h.HandleOverlayImage)

	r.Get("/thumbs/{i}", h.HandleThumbnail)
	r.Get("/strip/preview.png", h.HandleStripPreview)
	r.Get("/download", h.HandleDownload)
	r.Post("/share", h.HandleShare)
	r.Get("/blob/{id}", h.HandleBlob)

	return r
}

// Run starts the server and blocks until ctx is cancelled, then shuts down
// gracefully. Capture runs started over HTTP live as long as ctx.
func (s *Server) Run(ctx context.Context) error {
	s.handlers.runCtx = ctx
	srv := &http.Server{Addr: s.addr, Handler: s.Router()}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("web server listening on %s", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
