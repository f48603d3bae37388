// Package transport carries stream frames between the dashboard backend and the
// monitoring client, over server-sent events or WebSocket.
package transport

import (
	"context"
	"errors"

	"github.com/synheart/wardwatch/internal/models"
)

var (
	// ErrClosed is returned by Next after the connection was closed locally.
	ErrClosed = errors.New("connection closed")
	// ErrMalformedFrame marks a single unreadable message. The connection stays usable.
	ErrMalformedFrame = errors.New("malformed frame")
)

// Conn is one open stream connection.
type Conn interface {
	// Next blocks until the next frame arrives. Close unblocks it.
	Next() (models.Frame, error)
	Close() error
}

// Dialer opens stream connections.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
	// Name identifies the transport in logs and metrics.
	Name() string
}
