package eventloop

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func startLoop(t *testing.T) *Loop {
	t.Helper()
	l := New(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = l.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return l
}

func TestLoop_RunsPostsInOrder(t *testing.T) {
	l := startLoop(t)

	var got []int
	for i := 0; i < 5; i++ {
		i := i
		l.Post(func() { got = append(got, i) })
	}
	require.NoError(t, l.Do(context.Background(), func() {}))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestLoop_CancelledTaskNeverRuns(t *testing.T) {
	l := startLoop(t)

	var fired atomic.Bool
	var task Task
	require.NoError(t, l.Do(context.Background(), func() {
		task = l.After(20*time.Millisecond, func() { fired.Store(true) })
	}))
	require.NoError(t, l.Do(context.Background(), func() { task.Cancel() }))

	time.Sleep(60 * time.Millisecond)
	assert.False(t, fired.Load())
}

func TestLoop_EveryRepeatsUntilCancelled(t *testing.T) {
	l := startLoop(t)

	var ticks atomic.Int32
	task := l.Every(5*time.Millisecond, func() { ticks.Add(1) })
	assert.Eventually(t, func() bool { return ticks.Load() >= 3 }, time.Second, time.Millisecond)

	require.NoError(t, l.Do(context.Background(), func() { task.Cancel() }))
	seen := ticks.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, seen, ticks.Load())
}

func TestLoop_RecoversPanics(t *testing.T) {
	l := startLoop(t)

	l.Post(func() { panic("boom") })
	ran := false
	require.NoError(t, l.Do(context.Background(), func() { ran = true }))
	assert.True(t, ran)
	assert.Equal(t, int64(1), l.PanicCount())
}

func TestLoop_DoAfterStop(t *testing.T) {
	l := New(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, l.Run(ctx), context.Canceled)

	err := l.Do(context.Background(), func() {})
	assert.Error(t, err)
}

func TestManual_AdvanceFiresInOrder(t *testing.T) {
	m := NewManual(time.Unix(0, 0))

	var got []string
	m.After(3*time.Second, func() { got = append(got, "c") })
	m.After(time.Second, func() { got = append(got, "a") })
	tick := m.Every(2*time.Second, func() { got = append(got, "tick") })
	m.Post(func() { got = append(got, "post") })

	m.Advance(4 * time.Second)
	assert.Equal(t, []string{"post", "a", "tick", "c", "tick"}, got)
	assert.Equal(t, time.Unix(4, 0), m.Now())

	tick.Cancel()
	m.Advance(10 * time.Second)
	assert.Len(t, got, 5)
	assert.Equal(t, 0, m.Pending())
}

func TestManual_CancelFromCallback(t *testing.T) {
	m := NewManual(time.Unix(0, 0))

	count := 0
	var task Task
	task = m.Every(time.Second, func() {
		count++
		if count == 3 {
			task.Cancel()
		}
	})
	m.Advance(time.Minute)
	assert.Equal(t, 3, count)
}

func TestManual_NextDelay(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	_, ok := m.NextDelay()
	assert.False(t, ok)

	m.After(1500*time.Millisecond, func() {})
	m.Advance(500 * time.Millisecond)
	d, ok := m.NextDelay()
	require.True(t, ok)
	assert.Equal(t, time.Second, d)
}
