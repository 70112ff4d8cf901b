// Package share exports a finished strip: as a named PNG download and as a
// transient link rendered into a QR code.
package share

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/cjeanneret/PhotoBooth/internal/debug"
)

// BlobPrefix is the path under which published artifacts are served.
const BlobPrefix = "/blob/"

// ErrNoArtifact is returned when there is no finished strip to export.
var ErrNoArtifact = errors.New("share: no strip to export")

// Filename names a download taken at t.
func Filename(t time.Time) string {
	return fmt.Sprintf("photobooth_strip_%d.png", t.UnixMilli())
}

// Blob is one published artifact.
type Blob struct {
	Data        []byte
	ContentType string
	Created     time.Time
}

// Registry holds published artifacts for the lifetime of the process.
// References are never revoked.
type Registry struct {
	mu    sync.RWMutex
	blobs map[string]Blob
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{blobs: make(map[string]Blob)}
}

// Publish stores data under a new random id and returns the id.
func (r *Registry) Publish(data []byte, contentType string) string {
	id := uuid.NewString()
	r.mu.Lock()
	r.blobs[id] = Blob{Data: data, ContentType: contentType, Created: time.Now()}
	r.mu.Unlock()
	debug.Verbose("Share: published %s (%d bytes)", id, len(data))
	return id
}

// Get returns the artifact published under id.
func (r *Registry) Get(id string) (Blob, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.blobs[id]
	return b, ok
}

// Len returns the number of published artifacts.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.blobs)
}

// Link is the share panel content. QR is a PNG data URL, empty when the
// code could not be generated.
type Link struct {
	URL string `json:"url"`
	QR  string `json:"qr,omitempty"`
}

// Sharer publishes artifacts and renders their QR codes.
type Sharer struct {
	registry *Registry
	qrSize   int
	encodeQR func(content string, size int) ([]byte, error)
}

// NewSharer creates a sharer drawing QR codes of qrSize x qrSize pixels.
func NewSharer(reg *Registry, qrSize int) *Sharer {
	if qrSize <= 0 {
		qrSize = 160
	}
	return &Sharer{
		registry: reg,
		qrSize:   qrSize,
		encodeQR: QRCode,
	}
}

// Share publishes artifact and returns the link to it, resolved against
// baseURL (e.g. "http://192.168.1.20:8080"). A QR failure is logged and
// leaves Link.QR empty.
func (s *Sharer) Share(artifact []byte, baseURL string) (Link, error) {
	if len(artifact) == 0 {
		return Link{}, ErrNoArtifact
	}
	id := s.registry.Publish(artifact, "image/png")
	link := Link{URL: strings.TrimSuffix(baseURL, "/") + BlobPrefix + id}

	code, err := s.encodeQR(link.URL, s.qrSize)
	if err != nil {
		debug.Info("Share: QR generation failed: %v", err)
		return link, nil
	}
	link.QR = DataURL("image/png", code)
	return link, nil
}

// QRCode renders content as a size x size PNG QR code.
func QRCode(content string, size int) ([]byte, error) {
	return qrcode.Encode(content, qrcode.Medium, size)
}

// DataURL embeds data in a data: URL.
func DataURL(contentType string, data []byte) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
