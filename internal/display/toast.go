package display

import (
	"time"

	"github.com/google/uuid"

	"github.com/synheart/wardwatch/internal/eventloop"
)

const (
	DefaultToastTTL  = 10 * time.Second
	DefaultToastFade = 150 * time.Millisecond
)

// Toast is a transient notification.
type Toast struct {
	ID      string
	Level   string
	Message string
	Showing bool
}

// Toaster shows fire-and-forget notifications that dismiss themselves: the
// "show" state is dropped after the TTL and the toast removed after the fade.
type Toaster struct {
	sched  eventloop.Scheduler
	ttl    time.Duration
	fade   time.Duration
	active []*Toast
	shown  int
}

func NewToaster(sched eventloop.Scheduler, ttl time.Duration) *Toaster {
	if ttl <= 0 {
		ttl = DefaultToastTTL
	}
	return &Toaster{sched: sched, ttl: ttl, fade: DefaultToastFade}
}

// Show displays a notification and returns its id.
func (t *Toaster) Show(level, message string) string {
	toast := &Toast{ID: uuid.NewString(), Level: level, Message: message, Showing: true}
	t.active = append(t.active, toast)
	t.shown++

	t.sched.After(t.ttl, func() {
		toast.Showing = false
		t.sched.After(t.fade, func() { t.remove(toast.ID) })
	})
	return toast.ID
}

func (t *Toaster) remove(id string) {
	for i, toast := range t.active {
		if toast.ID == id {
			t.active = append(t.active[:i], t.active[i+1:]...)
			return
		}
	}
}

// Active returns the toasts still attached, including fading ones.
func (t *Toaster) Active() []Toast {
	out := make([]Toast, 0, len(t.active))
	for _, toast := range t.active {
		out = append(out, *toast)
	}
	return out
}

// Shown returns the total number of toasts displayed.
func (t *Toaster) Shown() int {
	return t.shown
}
