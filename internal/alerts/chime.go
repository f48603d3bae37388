package alerts

import (
	"io"
	"sync"
	"time"
)

// Cue describes the audible emergency signal: Count pulses of Frequency, each
// fading from StartGain to EndGain, separated by Gap.
type Cue struct {
	Frequency float64
	Pulse     time.Duration
	Gap       time.Duration
	Count     int
	StartGain float64
	EndGain   float64
}

// EmergencyCue is the two-tone 880 Hz alert.
var EmergencyCue = Cue{
	Frequency: 880,
	Pulse:     500 * time.Millisecond,
	Gap:       200 * time.Millisecond,
	Count:     2,
	StartGain: 0.3,
	EndGain:   0.01,
}

// Duration is the total length of the cue.
func (c Cue) Duration() time.Duration {
	if c.Count <= 0 {
		return 0
	}
	return time.Duration(c.Count)*c.Pulse + time.Duration(c.Count-1)*c.Gap
}

// Chime plays a cue. Implementations must not block the caller for the length
// of the cue.
type Chime interface {
	Play(c Cue) error
}

// ChimeFunc adapts a function to Chime.
type ChimeFunc func(c Cue) error

func (f ChimeFunc) Play(c Cue) error {
	return f(c)
}

// NopChime is used when audio is disabled.
type NopChime struct{}

func (NopChime) Play(Cue) error {
	return nil
}

// BellChime rings the terminal bell once per pulse. The first bell rings
// immediately; later ones are spaced Pulse+Gap apart on timers.
type BellChime struct {
	mu sync.Mutex
	w  io.Writer
}

func NewBellChime(w io.Writer) *BellChime {
	return &BellChime{w: w}
}

func (b *BellChime) Play(c Cue) error {
	if c.Count <= 0 {
		return nil
	}
	for i := 1; i < c.Count; i++ {
		time.AfterFunc(time.Duration(i)*(c.Pulse+c.Gap), func() { b.ring() })
	}
	return b.ring()
}

func (b *BellChime) ring() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := io.WriteString(b.w, "\a")
	return err
}
