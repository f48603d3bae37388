package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/synheart/wardwatch/internal/models"
)

// socketMessage is the framing used on the WebSocket transport.
type socketMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// WebSocketDialer connects to the socket endpoint that pushes vital_update and
// new_alert events one entity at a time.
type WebSocketDialer struct {
	url    string
	header http.Header
	dialer *websocket.Dialer
	now    func() time.Time
}

func NewWebSocketDialer(url string, header http.Header) *WebSocketDialer {
	return &WebSocketDialer{
		url:    url,
		header: header,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
		now: time.Now,
	}
}

func (d *WebSocketDialer) Name() string {
	return "websocket"
}

func (d *WebSocketDialer) Dial(ctx context.Context) (Conn, error) {
	conn, resp, err := d.dialer.DialContext(ctx, d.url, d.header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", d.url, err)
	}
	return &WebSocketConn{conn: conn, now: d.now}, nil
}

// WebSocketConn reads framed events from a socket.
type WebSocketConn struct {
	conn   *websocket.Conn
	now    func() time.Time
	closed atomic.Bool
	once   sync.Once
}

func (c *WebSocketConn) Next() (models.Frame, error) {
	_, msg, err := c.conn.ReadMessage()
	if err != nil {
		if c.closed.Load() {
			return models.Frame{}, ErrClosed
		}
		return models.Frame{}, fmt.Errorf("failed to read socket message: %w", err)
	}

	var m socketMessage
	if err := json.Unmarshal(msg, &m); err != nil || m.Event == "" {
		return models.Frame{Data: msg, ReceivedAt: c.now()}, fmt.Errorf("%w: %s", ErrMalformedFrame, truncate(msg, 64))
	}
	return models.Frame{Event: m.Event, Data: m.Data, ReceivedAt: c.now()}, nil
}

func (c *WebSocketConn) Close() error {
	var err error
	c.once.Do(func() {
		c.closed.Store(true)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = c.conn.Close()
	})
	return err
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
