package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/synheart/wardwatch/internal/models"
)

// StreamOpener opens the raw server-push response body.
type StreamOpener interface {
	OpenStream(ctx context.Context) (io.ReadCloser, error)
}

// SSEDialer connects to the server-sent events endpoint.
type SSEDialer struct {
	opener StreamOpener
	now    func() time.Time
}

func NewSSEDialer(opener StreamOpener) *SSEDialer {
	return &SSEDialer{opener: opener, now: time.Now}
}

func (d *SSEDialer) Name() string {
	return "sse"
}

func (d *SSEDialer) Dial(ctx context.Context) (Conn, error) {
	body, err := d.opener.OpenStream(ctx)
	if err != nil {
		return nil, err
	}
	return NewSSEConn(body, d.now), nil
}

// SSEConn reads the text/event-stream wire format from a response body.
type SSEConn struct {
	body   io.ReadCloser
	reader *bufio.Reader
	now    func() time.Time
	closed atomic.Bool
	once   sync.Once
}

// NewSSEConn wraps body. A nil clock defaults to time.Now.
func NewSSEConn(body io.ReadCloser, now func() time.Time) *SSEConn {
	if now == nil {
		now = time.Now
	}
	return &SSEConn{body: body, reader: bufio.NewReader(body), now: now}
}

// Next returns the next dispatched event. Comments, ids and retry hints are skipped.
func (c *SSEConn) Next() (models.Frame, error) {
	var (
		event string
		data  []string
	)
	for {
		line, err := c.reader.ReadString('\n')
		if err != nil {
			if c.closed.Load() {
				return models.Frame{}, ErrClosed
			}
			if errors.Is(err, io.EOF) {
				return models.Frame{}, io.EOF
			}
			return models.Frame{}, fmt.Errorf("failed to read event stream: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")

		if line == "" {
			if len(data) == 0 {
				event = ""
				continue
			}
			return models.Frame{
				Event:      event,
				Data:       []byte(strings.Join(data, "\n")),
				ReceivedAt: c.now(),
			}, nil
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			event = value
		case "data":
			data = append(data, value)
		}
	}
}

func (c *SSEConn) Close() error {
	var err error
	c.once.Do(func() {
		c.closed.Store(true)
		err = c.body.Close()
	})
	return err
}
