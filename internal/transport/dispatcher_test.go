package transport

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/synheart/wardwatch/internal/models"
)

func frame(event string) models.Frame {
	return models.Frame{Event: event, Data: []byte(`{}`)}
}

func TestDispatcher_MultipleSubscribers(t *testing.T) {
	source := make(chan models.Frame, 10)
	dispatcher := NewDispatcher(source, 10, zap.NewNop())

	sub1 := dispatcher.Subscribe()
	sub2 := dispatcher.Subscribe()
	assert.Equal(t, 2, dispatcher.SubscriberCount())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go dispatcher.Run(ctx)

	names := []string{"vital_update", "new_alert", ""}
	for _, n := range names {
		source <- frame(n)
	}
	close(source)

	var wg sync.WaitGroup
	var got1, got2 []string
	wg.Add(2)
	go func() {
		defer wg.Done()
		for f := range sub1 {
			got1 = append(got1, f.Event)
		}
	}()
	go func() {
		defer wg.Done()
		for f := range sub2 {
			got2 = append(got2, f.Event)
		}
	}()
	wg.Wait()

	assert.Equal(t, names, got1)
	assert.Equal(t, names, got2)
}

func TestDispatcher_ContextCancellation(t *testing.T) {
	source := make(chan models.Frame, 10)
	dispatcher := NewDispatcher(source, 10, zap.NewNop())
	sub := dispatcher.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		dispatcher.Run(ctx)
		close(done)
	}()

	source <- frame("before-cancel")
	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("dispatcher did not stop after context cancellation")
	}

	for range sub {
	}
}

func TestDispatcher_SlowSubscriberDrops(t *testing.T) {
	source := make(chan models.Frame, 20)
	dispatcher := NewDispatcher(source, 2, zap.NewNop())

	fast := dispatcher.Subscribe()
	slow := dispatcher.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fastCount := 0
	fastDone := make(chan struct{})
	go func() {
		defer close(fastDone)
		for range fast {
			fastCount++
		}
	}()

	for i := 0; i < 10; i++ {
		source <- frame("vital_update")
	}
	close(source)
	dispatcher.Run(ctx)

	<-fastDone
	slowCount := 0
	for range slow {
		slowCount++
	}

	assert.Equal(t, 2, slowCount)
	assert.Equal(t, int64(10-fastCount+10-slowCount), dispatcher.DroppedCount())
	assert.GreaterOrEqual(t, dispatcher.DroppedCount(), int64(8))
}
