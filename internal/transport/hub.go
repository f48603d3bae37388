package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/synheart/wardwatch/internal/models"
)

const (
	PathSSE    = "/api/vitals/stream"
	PathSocket = "/ws"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local development only
	},
}

// Hub serves recorded or synthetic frames to monitoring clients over both
// transports. It stands in for the dashboard backend during development.
type Hub struct {
	logger   *zap.Logger
	mu       sync.RWMutex
	sse      map[chan []byte]struct{}
	sockets  map[*websocket.Conn]struct{}
	writeMu  sync.Mutex
	server   *http.Server
	listener net.Listener
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:  logger,
		sse:     make(map[chan []byte]struct{}),
		sockets: make(map[*websocket.Conn]struct{}),
	}
}

// Handler returns the HTTP routes of the hub, including stub alert endpoints so a
// client can run end to end.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(PathSSE, h.handleSSE)
	mux.HandleFunc(PathSocket, h.handleSocket)
	mux.HandleFunc("/api/alerts/active", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("[]"))
	})
	mux.HandleFunc("/alert/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok": true}`))
	})
	return mux
}

// Start listens on addr and serves until ctx is cancelled.
func (h *Hub) Start(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	h.mu.Lock()
	h.listener = ln
	h.server = &http.Server{Handler: h.Handler()}
	h.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		h.logger.Info("hub listening", zap.String("addr", ln.Addr().String()))
		if err := h.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		return h.Shutdown()
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("hub server failed: %w", err)
		}
		return nil
	}
}

// Addr returns the bound address once Start is listening.
func (h *Hub) Addr() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.listener == nil {
		return ""
	}
	return h.listener.Addr().String()
}

func (h *Hub) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := make(chan []byte, 100)
	h.mu.Lock()
	h.sse[ch] = struct{}{}
	h.mu.Unlock()
	defer h.removeSSE(ch)

	h.logger.Debug("SSE client connected", zap.Int("clients", h.ClientCount()))

	for {
		select {
		case <-r.Context().Done():
			return
		case data, ok := <-ch:
			if !ok {
				return
			}
			w.Write(data)
			flusher.Flush()
		}
	}
}

func (h *Hub) removeSSE(ch chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sse[ch]; ok {
		delete(h.sse, ch)
		close(ch)
	}
}

func (h *Hub) handleSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("failed to upgrade connection", zap.Error(err))
		return
	}

	h.mu.Lock()
	h.sockets[conn] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.sockets, conn)
		h.mu.Unlock()
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Broadcast sends a frame to every connected client. Plain snapshot frames go to
// SSE clients; named events go to socket clients. Slow SSE clients drop frames.
func (h *Hub) Broadcast(f models.Frame) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if f.Event == "" || f.Event == string(models.KindSnapshot) {
		payload := encodeSSE(f)
		for ch := range h.sse {
			select {
			case ch <- payload:
			default:
			}
		}
		return nil
	}

	data, err := json.Marshal(socketMessage{Event: f.Event, Data: f.Data})
	if err != nil {
		return fmt.Errorf("failed to marshal frame: %w", err)
	}
	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	for conn := range h.sockets {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.logger.Debug("failed to send to socket client", zap.Error(err))
		}
	}
	return nil
}

// BroadcastFromChannel relays frames until ctx is cancelled or frames closes.
func (h *Hub) BroadcastFromChannel(ctx context.Context, frames <-chan models.Frame) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f, ok := <-frames:
			if !ok {
				return nil
			}
			if err := h.Broadcast(f); err != nil {
				h.logger.Warn("broadcast failed", zap.Error(err))
			}
		}
	}
}

// ClientCount returns the number of connected clients across both transports.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sse) + len(h.sockets)
}

// Shutdown disconnects every client and stops the server.
func (h *Hub) Shutdown() error {
	h.mu.Lock()
	for ch := range h.sse {
		close(ch)
	}
	h.sse = make(map[chan []byte]struct{})
	for conn := range h.sockets {
		conn.Close()
	}
	h.sockets = make(map[*websocket.Conn]struct{})
	server := h.server
	h.mu.Unlock()

	if server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}

func encodeSSE(f models.Frame) []byte {
	var b bytes.Buffer
	if f.Event != "" {
		fmt.Fprintf(&b, "event: %s\n", f.Event)
	}
	for _, line := range bytes.Split(f.Data, []byte("\n")) {
		b.WriteString("data: ")
		b.Write(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	return b.Bytes()
}
