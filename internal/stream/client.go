// Package stream keeps the realtime connection alive and routes every decoded
// message to the display components.
package stream

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/synheart/wardwatch/internal/eventloop"
	"github.com/synheart/wardwatch/internal/models"
	"github.com/synheart/wardwatch/internal/transport"
)

// Handler consumes decoded messages on the event loop.
type Handler interface {
	Handle(env models.Envelope)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(models.Envelope)

func (f HandlerFunc) Handle(env models.Envelope) { f(env) }

// Option configures a Client.
type Option func(*Client)

// WithBackoff replaces the reconnect policy.
func WithBackoff(b Backoff) Option {
	return func(c *Client) { c.backoff = b }
}

// WithObserver reports connection and message events.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithStateListener is called on the loop on every state change.
func WithStateListener(fn func(models.ConnectionState)) Option {
	return func(c *Client) { c.onState = append(c.onState, fn) }
}

// WithTap copies every raw frame to ch without blocking. Frames are dropped when
// ch is full.
func WithTap(ch chan<- models.Frame) Option {
	return func(c *Client) { c.tap = ch }
}

// Client is the realtime stream connection. It holds at most one open connection,
// reconnects with bounded backoff and gives up in StateClosed. All state is owned by
// the event loop; reader goroutines only post.
type Client struct {
	sched    eventloop.Scheduler
	dialer   transport.Dialer
	handler  Handler
	logger   *zap.Logger
	backoff  Backoff
	observer Observer
	onState  []func(models.ConnectionState)
	tap      chan<- models.Frame

	ctx       context.Context
	state     models.ConnectionState
	attempts  int
	gen       uint64
	conn      transport.Conn
	cancel    context.CancelFunc
	reconnect eventloop.Task
	stopped   bool
}

func NewClient(sched eventloop.Scheduler, dialer transport.Dialer, handler Handler, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		sched:    sched,
		dialer:   dialer,
		handler:  handler,
		logger:   logger,
		backoff:  DefaultBackoff,
		observer: nopObserver{},
		ctx:      context.Background(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) State() models.ConnectionState {
	return c.state
}

// Attempts returns the number of consecutive reconnects made since the last open.
func (c *Client) Attempts() int {
	return c.attempts
}

// Start opens the first connection. ctx bounds every dial; cancelling it does not
// close an established connection, Close does. Call on the loop.
func (c *Client) Start(ctx context.Context) {
	if c.stopped || c.state != "" {
		return
	}
	c.ctx = ctx
	c.connect()
}

// Close tears the connection down and cancels any pending reconnect. The client
// cannot be restarted. Call on the loop.
func (c *Client) Close() {
	if c.stopped {
		return
	}
	c.stopped = true
	c.gen++
	c.cancelReconnect()
	c.closeConn()
	c.setState(models.StateClosed)
	c.logger.Info("stream closed", zap.String("transport", c.dialer.Name()))
}

func (c *Client) connect() {
	c.reconnect = nil
	c.closeConn()
	c.gen++
	gen := c.gen

	if c.attempts == 0 {
		c.setState(models.StateConnecting)
	} else {
		c.setState(models.StateReconnecting)
	}

	ctx, cancel := context.WithCancel(c.ctx)
	c.cancel = cancel
	go func() {
		conn, err := c.dialer.Dial(ctx)
		c.sched.Post(func() { c.dialed(gen, conn, err) })
	}()
}

func (c *Client) dialed(gen uint64, conn transport.Conn, err error) {
	if gen != c.gen || c.stopped {
		if conn != nil {
			conn.Close()
		}
		return
	}
	if err != nil {
		c.fail(gen, err)
		return
	}

	c.conn = conn
	c.attempts = 0
	c.setState(models.StateConnected)
	c.logger.Info("stream connected", zap.String("transport", c.dialer.Name()))
	go c.read(gen, conn)
}

func (c *Client) read(gen uint64, conn transport.Conn) {
	for {
		frame, err := conn.Next()
		if errors.Is(err, transport.ErrMalformedFrame) {
			c.sched.Post(func() { c.malformed(gen, err) })
			continue
		}
		if err != nil {
			c.sched.Post(func() { c.fail(gen, err) })
			return
		}
		if c.tap != nil {
			select {
			case c.tap <- frame:
			default:
			}
		}
		c.sched.Post(func() { c.receive(gen, frame) })
	}
}

func (c *Client) receive(gen uint64, frame models.Frame) {
	if gen != c.gen {
		return
	}
	env, err := models.Decode(frame)
	if err != nil {
		c.malformed(gen, err)
		return
	}
	c.observer.FrameReceived(env.Kind)
	c.handler.Handle(env)
}

func (c *Client) malformed(gen uint64, err error) {
	if gen != c.gen {
		return
	}
	c.observer.FrameDropped("malformed")
	c.logger.Warn("dropping malformed message", zap.Error(err))
}

func (c *Client) fail(gen uint64, err error) {
	if gen != c.gen || c.stopped {
		return
	}
	c.logger.Warn("stream error", zap.String("transport", c.dialer.Name()), zap.Error(err))

	c.setState(models.StateReconnecting)
	c.closeConn()
	c.cancelReconnect()

	if c.attempts >= c.backoff.MaxAttempts {
		c.gen++
		c.setState(models.StateClosed)
		if c.backoff.MaxAttempts == 0 {
			c.logger.Info("stream ended", zap.String("transport", c.dialer.Name()))
			return
		}
		c.logger.Error("giving up on stream", zap.Int("attempts", c.attempts))
		return
	}
	c.attempts++
	delay := c.backoff.Delay(c.attempts)
	c.observer.ReconnectScheduled(c.attempts, delay)
	c.logger.Info("reconnect scheduled", zap.Int("attempt", c.attempts), zap.Duration("delay", delay))
	c.reconnect = c.sched.After(delay, c.connect)
}

func (c *Client) closeConn() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			c.logger.Debug("close stream", zap.Error(err))
		}
		c.conn = nil
	}
}

func (c *Client) cancelReconnect() {
	if c.reconnect != nil {
		c.reconnect.Cancel()
		c.reconnect = nil
	}
}

func (c *Client) setState(s models.ConnectionState) {
	if c.state == s {
		return
	}
	c.state = s
	c.observer.StateChanged(s)
	for _, fn := range c.onState {
		fn(s)
	}
}
