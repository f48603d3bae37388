package recorder

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/synheart/wardwatch/internal/encoding"
	"github.com/synheart/wardwatch/internal/models"
)

// Recorder writes received frames to a file, one record per frame
type Recorder struct {
	file   *os.File
	writer *bufio.Writer
	frames encoding.FrameWriter
	count  int
	mu     sync.Mutex
}

// NewRecorder creates a new recorder
func NewRecorder(filename string, format encoding.Format) (*Recorder, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create recording file: %w", err)
	}

	w := bufio.NewWriter(file)
	return &Recorder{
		file:   file,
		writer: w,
		frames: encoding.NewWriter(w, format),
	}, nil
}

// Record appends one frame
func (r *Recorder) Record(frame models.Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.frames.Write(frame); err != nil {
		return fmt.Errorf("failed to record frame: %w", err)
	}
	r.count++
	return nil
}

// Count returns the number of frames recorded
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// RecordFromChannel records frames until the channel closes or ctx is done
func (r *Recorder) RecordFromChannel(ctx context.Context, frames <-chan models.Frame, onEntry func()) error {
	for {
		select {
		case <-ctx.Done():
			return r.Close()
		case frame, ok := <-frames:
			if !ok {
				return r.Close() // Channel closed
			}
			if err := r.Record(frame); err != nil {
				return err
			}
			if onEntry != nil {
				onEntry()
			}
		}
	}
}

// Flush flushes the buffer to disk
func (r *Recorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writer.Flush()
}

// Close flushes and closes the recorder
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.writer.Flush(); err != nil {
		r.file.Close()
		return fmt.Errorf("failed to flush buffer: %w", err)
	}

	if err := r.file.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}

	return nil
}
