package web

import (
	"encoding/json"
	"strings"
	"sync"
	"time"
)

// Event levels. The page shows "status" events in the countdown banner and
// the others in the log panel.
const (
	LevelStatus = "status"
	LevelLog    = "log"
	LevelError  = "error"
)

// StatusEvent represents a single status message for SSE.
type StatusEvent struct {
	Time  string `json:"t"`
	Level string `json:"l,omitempty"`
	Msg   string `json:"msg"`
}

// StatusBroadcaster distributes status messages to multiple SSE clients.
// It keeps the last "status" event and replays it to new subscribers, so a
// page opened mid-run shows the current countdown step at once.
type StatusBroadcaster struct {
	mu         sync.RWMutex
	clients    map[chan string]struct{}
	lastStatus string
}

// NewStatusBroadcaster creates a new broadcaster.
func NewStatusBroadcaster() *StatusBroadcaster {
	return &StatusBroadcaster{
		clients: make(map[chan string]struct{}),
	}
}

// Subscribe returns a channel that receives broadcast messages and a cleanup function.
// The caller must call the returned cleanup when done (e.g. on client disconnect).
func (b *StatusBroadcaster) Subscribe() (<-chan string, func()) {
	ch := make(chan string, 64)
	b.mu.Lock()
	b.clients[ch] = struct{}{}
	if b.lastStatus != "" {
		ch <- b.lastStatus
	}
	b.mu.Unlock()

	unsub := func() {
		b.mu.Lock()
		delete(b.clients, ch)
		b.mu.Unlock()
		close(ch)
	}
	return ch, unsub
}

// Broadcast sends a message to all subscribed clients.
// Messages are sent as JSON: {"t":"...","l":"status","msg":"..."}
// Slow clients may miss messages (non-blocking, buffered).
func (b *StatusBroadcaster) Broadcast(level, msg string) {
	evt := StatusEvent{
		Time:  time.Now().Format(time.RFC3339),
		Level: level,
		Msg:   msg,
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	payload := string(data)

	if level == LevelStatus {
		b.mu.Lock()
		b.lastStatus = payload
		b.mu.Unlock()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.clients {
		select {
		case ch <- payload:
		default:
			// channel full, skip
		}
	}
}

// BroadcastStatus publishes a capture status line.
func (b *StatusBroadcaster) BroadcastStatus(msg string) {
	b.Broadcast(LevelStatus, msg)
}

// BroadcastWriter implements io.Writer; each Write broadcasts the content to
// SSE clients as a log line.
func BroadcastWriter(b *StatusBroadcaster) *broadcastWriter {
	return &broadcastWriter{b: b}
}

// broadcastWriter wraps StatusBroadcaster as io.Writer for use with debug.SetOutput.
type broadcastWriter struct {
	b *StatusBroadcaster
}

func (w *broadcastWriter) Write(p []byte) (n int, err error) {
	msg := strings.TrimSpace(string(p))
	if msg == "" {
		return len(p), nil
	}
	level := LevelLog
	if strings.Contains(msg, "[ERROR]") {
		level = LevelError
	}
	w.b.Broadcast(level, msg)
	return len(p), nil
}
