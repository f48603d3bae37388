package transport

import (
	"context"
	"io"
	"sync"

	"github.com/synheart/wardwatch/internal/models"
)

// ChannelDialer serves frames from a channel, such as a replayed recording. It
// yields a single connection; later dials fail with ErrClosed.
type ChannelDialer struct {
	frames <-chan models.Frame
	mu     sync.Mutex
	used   bool
}

func NewChannelDialer(frames <-chan models.Frame) *ChannelDialer {
	return &ChannelDialer{frames: frames}
}

func (d *ChannelDialer) Name() string {
	return "replay"
}

func (d *ChannelDialer) Dial(ctx context.Context) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.used {
		return nil, ErrClosed
	}
	d.used = true
	return &channelConn{frames: d.frames, done: make(chan struct{})}, nil
}

type channelConn struct {
	frames <-chan models.Frame
	done   chan struct{}
	once   sync.Once
}

// Next returns io.EOF once the channel is closed and drained.
func (c *channelConn) Next() (models.Frame, error) {
	select {
	case <-c.done:
		return models.Frame{}, ErrClosed
	case f, ok := <-c.frames:
		if !ok {
			return models.Frame{}, io.EOF
		}
		return f, nil
	}
}

func (c *channelConn) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}
