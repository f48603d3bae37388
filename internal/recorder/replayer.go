package recorder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/synheart/wardwatch/internal/encoding"
	"github.com/synheart/wardwatch/internal/models"
)

// Replayer reads frames from a recording and replays them paced by the time
// they were originally received
type Replayer struct {
	filename   string
	format     encoding.Format
	speed      float64
	loop       bool
	frameCount int
	firstFrame *models.Frame
	loaded     bool
}

// NewReplayer creates a new replayer. A speed of 0 replays without delays.
func NewReplayer(filename string, format encoding.Format, speed float64, loop bool) *Replayer {
	return &Replayer{
		filename: filename,
		format:   format,
		speed:    speed,
		loop:     loop,
	}
}

// loadMetadata reads the file once to cache count and first frame
func (r *Replayer) loadMetadata() error {
	if r.loaded {
		return nil
	}

	file, err := os.Open(r.filename)
	if err != nil {
		return fmt.Errorf("failed to open recording file: %w", err)
	}
	defer file.Close()

	reader := encoding.NewReader(file, r.format)
	r.frameCount = 0
	for {
		frame, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		r.frameCount++
		if r.frameCount == 1 {
			r.firstFrame = &frame
		}
	}

	r.loaded = true
	return nil
}

// Replay reads frames and sends them to the output channel with timing
func (r *Replayer) Replay(ctx context.Context, output chan<- models.Frame) error {
	for {
		if err := r.replayOnce(ctx, output); err != nil {
			return err
		}

		if !r.loop {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			// Continue looping
		}
	}

	return nil
}

func (r *Replayer) replayOnce(ctx context.Context, output chan<- models.Frame) error {
	file, err := os.Open(r.filename)
	if err != nil {
		return fmt.Errorf("failed to open recording file: %w", err)
	}
	defer file.Close()

	reader := encoding.NewReader(file, r.format)
	var last time.Time

	for n := 0; ; n++ {
		frame, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if n > 0 {
			if delay := r.delay(last, frame.ReceivedAt); delay > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(delay):
				}
			}
		}
		last = frame.ReceivedAt

		select {
		case <-ctx.Done():
			return ctx.Err()
		case output <- frame:
		}
	}
}

func (r *Replayer) delay(prev, next time.Time) time.Duration {
	if r.speed <= 0 || prev.IsZero() || next.IsZero() {
		return 0
	}
	d := next.Sub(prev)
	if r.speed != 1.0 {
		d = time.Duration(float64(d) / r.speed)
	}
	return d
}

// CountFrames returns the number of frames in the recording
func (r *Replayer) CountFrames() (int, error) {
	if err := r.loadMetadata(); err != nil {
		return 0, err
	}
	return r.frameCount, nil
}

// FirstFrame returns the first frame in the recording
func (r *Replayer) FirstFrame() (*models.Frame, error) {
	if err := r.loadMetadata(); err != nil {
		return nil, err
	}
	if r.firstFrame == nil {
		return nil, fmt.Errorf("recording file is empty")
	}
	return r.firstFrame, nil
}
