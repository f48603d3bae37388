package display

import (
	"strconv"
	"time"

	"github.com/synheart/wardwatch/internal/eventloop"
	"github.com/synheart/wardwatch/internal/models"
)

const ClassPulse = "pulse"

// Badge shows the unacknowledged alert count. It is hidden at zero.
type Badge struct {
	sched eventloop.Scheduler
	count int
	pulse eventloop.Task
	el    *Element
}

func NewBadge(sched eventloop.Scheduler) *Badge {
	return &Badge{sched: sched, el: newElement("alertCount")}
}

// SetCount renders n.
func (b *Badge) SetCount(n int) {
	b.count = n
	b.el.SetText(strconv.Itoa(n))
}

func (b *Badge) Count() int {
	return b.count
}

func (b *Badge) Hidden() bool {
	return b.count == 0
}

// Pulse highlights the badge for d. A new pulse restarts the highlight.
func (b *Badge) Pulse(d time.Duration) {
	if b.pulse != nil {
		b.pulse.Cancel()
	}
	b.el.AddClass(ClassPulse)
	b.pulse = b.sched.After(d, func() {
		b.el.RemoveClass(ClassPulse)
		b.pulse = nil
	})
}

func (b *Badge) Pulsing() bool {
	return b.el.HasClass(ClassPulse)
}

var stateText = map[models.ConnectionState]string{
	models.StateConnecting:   "Connecting...",
	models.StateConnected:    "Live",
	models.StateReconnecting: "Reconnecting...",
	models.StateClosed:       "Offline",
}

// StatusIndicator mirrors the stream connection state.
type StatusIndicator struct {
	state models.ConnectionState
	el    *Element
}

func NewStatusIndicator() *StatusIndicator {
	s := &StatusIndicator{el: newElement("connectionStatus")}
	s.Set(models.StateConnecting)
	return s
}

func (s *StatusIndicator) Set(state models.ConnectionState) {
	s.state = state
	s.el.ReplaceClass(stateClasses, "status-"+string(state))
	s.el.SetText(stateText[state])
}

func (s *StatusIndicator) State() models.ConnectionState {
	return s.state
}

func (s *StatusIndicator) Text() string {
	return s.el.Text()
}

var stateClasses = []string{"status-connecting", "status-connected", "status-reconnecting", "status-closed"}
