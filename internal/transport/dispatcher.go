package transport

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/synheart/wardwatch/internal/models"
)

// Dispatcher copies received frames to multiple subscribers such as the recorder.
// When a subscriber's buffer is full the frame is dropped for that subscriber so
// the stream reader never blocks.
type Dispatcher struct {
	source       <-chan models.Frame
	subscribers  []chan models.Frame
	bufferSize   int
	logger       *zap.Logger
	mu           sync.Mutex
	droppedTotal int64
}

func NewDispatcher(source <-chan models.Frame, bufferSize int, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		source:      source,
		subscribers: make([]chan models.Frame, 0),
		bufferSize:  bufferSize,
		logger:      logger,
	}
}

// Subscribe returns a channel that receives copies of all source frames.
// Subscribers should be added before calling Run.
func (d *Dispatcher) Subscribe() <-chan models.Frame {
	ch := make(chan models.Frame, d.bufferSize)
	d.mu.Lock()
	d.subscribers = append(d.subscribers, ch)
	d.mu.Unlock()
	return ch
}

func (d *Dispatcher) SubscriberCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.subscribers)
}

// DroppedCount returns the total number of frames dropped on full buffers.
func (d *Dispatcher) DroppedCount() int64 {
	return atomic.LoadInt64(&d.droppedTotal)
}

// Run blocks until ctx is cancelled or source closes, then closes every subscriber.
func (d *Dispatcher) Run(ctx context.Context) {
	defer d.closeSubscribers()

	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-d.source:
			if !ok {
				return
			}
			d.dispatch(ctx, frame)
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, frame models.Frame) {
	d.mu.Lock()
	subs := d.subscribers
	d.mu.Unlock()

	dropped := 0
	for _, sub := range subs {
		select {
		case sub <- frame:
		case <-ctx.Done():
			return
		default:
			dropped++
			atomic.AddInt64(&d.droppedTotal, 1)
		}
	}

	if dropped > 0 {
		d.logger.Warn("dispatcher dropped frame (buffer full)",
			zap.String("event", frame.Event), zap.Int("subscribers", dropped))
	}
}

func (d *Dispatcher) closeSubscribers() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, sub := range d.subscribers {
		close(sub)
	}
}
