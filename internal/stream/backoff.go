package stream

import "time"

const (
	DefaultMaxAttempts = 5
	DefaultBaseDelay   = time.Second
	DefaultMaxDelay    = 30 * time.Second
)

// Backoff is the reconnect policy: attempt n waits Base*2^n, capped at Max, and
// no more than MaxAttempts reconnects are made in a row.
type Backoff struct {
	MaxAttempts int
	Base        time.Duration
	Max         time.Duration
}

// DefaultBackoff waits 2s, 4s, 8s, 16s, 30s.
var DefaultBackoff = Backoff{MaxAttempts: DefaultMaxAttempts, Base: DefaultBaseDelay, Max: DefaultMaxDelay}

// Delay returns the wait before reconnect attempt n, counting from 1.
func (b Backoff) Delay(attempt int) time.Duration {
	d := b.Base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= b.Max {
			return b.Max
		}
	}
	return d
}

// Schedule lists the delay of every attempt the policy allows.
func (b Backoff) Schedule() []time.Duration {
	out := make([]time.Duration, 0, b.MaxAttempts)
	for n := 1; n <= b.MaxAttempts; n++ {
		out = append(out, b.Delay(n))
	}
	return out
}
