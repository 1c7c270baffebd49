package devserver

import (
	"bufio"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/assetbuilder/internal/metrics"
)

const heartbeatInterval = 30 * time.Second

// Hub manages SSE clients waiting for reload signals.
type Hub struct {
	mu       sync.RWMutex
	nextID   int
	clients  map[int]*lrClient
	recorder metrics.Recorder
	logger   *slog.Logger
	closed   bool
	lastTag  string
}

type lrClient struct {
	id   int
	ch   chan string
	done chan struct{}
}

// NewHub creates a hub; rec may be nil.
func NewHub(rec metrics.Recorder, logger *slog.Logger) *Hub {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	// Clients treat the first tag they receive as their baseline.
	return &Hub{clients: map[int]*lrClient{}, recorder: rec, logger: logger, lastTag: uuid.NewString()}
}

// ServeHTTP implements the SSE endpoint at /livereload.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		http.Error(w, "livereload shutting down", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}

	client := &lrClient{ch: make(chan string, 8), done: make(chan struct{})}
	h.mu.Lock()
	client.id = h.nextID
	h.nextID++
	h.clients[client.id] = client
	current := h.lastTag
	h.mu.Unlock()

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(": connected\n\n"); err != nil {
		h.removeClient(client.id)
		return
	}
	if current != "" {
		if _, err := bw.WriteString(event(current)); err != nil {
			h.removeClient(client.id)
			return
		}
	}
	if err := bw.Flush(); err == nil {
		flusher.Flush()
	}

	hb := time.NewTicker(heartbeatInterval)
	defer hb.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			h.removeClient(client.id)
			return
		case <-client.done:
			return
		case <-hb.C:
			if _, err := bw.WriteString(": ping\n\n"); err == nil && bw.Flush() == nil {
				flusher.Flush()
			}
		case tag := <-client.ch:
			if _, err := bw.WriteString(event(tag)); err == nil && bw.Flush() == nil {
				flusher.Flush()
			} else {
				h.logger.Debug("livereload write failed", "error", err)
			}
		}
	}
}

func event(tag string) string {
	return "data: {\"hash\":\"" + tag + "\"}\n\n"
}

func (h *Hub) removeClient(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[id]; ok {
		delete(h.clients, id)
		close(c.done)
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Reload sends a fresh tag to every client. Clients whose buffers are full are dropped.
func (h *Hub) Reload() {
	h.broadcast(uuid.NewString())
}

func (h *Hub) broadcast(tag string) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.lastTag = tag
	snapshot := make([]*lrClient, 0, len(h.clients))
	for _, c := range h.clients {
		snapshot = append(snapshot, c)
	}
	h.mu.Unlock()

	dropped := 0
	for _, c := range snapshot {
		select {
		case c.ch <- tag:
		default:
			dropped++
			h.removeClient(c.id)
		}
	}
	h.recorder.IncReload()
	h.logger.Debug("livereload broadcast", "clients", len(snapshot), "dropped", dropped)
}

// Shutdown closes all clients and ignores later reloads.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	clients := h.clients
	h.clients = map[int]*lrClient{}
	h.mu.Unlock()
	for _, c := range clients {
		close(c.done)
	}
}

// Script is the client snippet served at /livereload.js.
const Script = `(() => {
  if (window.__ASSETBUILDER_LR__) return;
  window.__ASSETBUILDER_LR__ = true;
  function connect() {
    const es = new EventSource('/livereload');
    let first = true; let current = null;
    es.onmessage = (e) => { try { const p = JSON.parse(e.data); if (first) { current = p.hash; first = false; return; } if (p.hash && p.hash !== current) { location.reload(); } } catch (_) {} };
    es.onerror = () => { es.close(); setTimeout(connect, 2000); };
  }
  connect();
})();`
