package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/shahar-caura/relay/internal/intent"
)

// Event is one finished classification as streamed to /api/events clients.
type Event struct {
	Input     string          `json:"input"`
	Result    *intent.Result  `json:"result,omitempty"`
	Failure   *intent.Failure `json:"failure,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Hub fans out classification events to connected SSE clients.
type Hub struct {
	logger *slog.Logger

	mu      sync.Mutex
	clients map[chan []byte]struct{}
}

// NewHub creates an empty Hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Hub{
		logger:  logger,
		clients: make(map[chan []byte]struct{}),
	}
}

// Publish broadcasts a finished classification. Its signature matches agent.Hook.
func (h *Hub) Publish(_ context.Context, input string, res *intent.Result, err error) error {
	ev := Event{Input: input, Result: res, Timestamp: time.Now().UTC()}
	if err != nil {
		f := intent.Describe(err)
		ev.Failure = &f
	}

	data, merr := json.Marshal(ev)
	if merr != nil {
		return fmt.Errorf("events: encoding event: %w", merr)
	}
	h.broadcast(data)
	return nil
}

func (h *Hub) broadcast(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- data:
		default:
			// Slow client; drop this event.
		}
	}
}

func (h *Hub) addClient(ch chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[ch] = struct{}{}
}

func (h *Hub) removeClient(ch chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, ch)
	close(ch)
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP implements http.Handler for SSE connections.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	ch := make(chan []byte, 32)
	h.addClient(ch)
	defer h.removeClient(ch)

	h.logger.Debug("events client connected", "remote", r.RemoteAddr)

	keepalive := time.NewTicker(20 * time.Second)
	defer keepalive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-keepalive.C:
			_, _ = fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case data := <-ch:
			_, _ = fmt.Fprintf(w, "event: classification\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}
