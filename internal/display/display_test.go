package display

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synheart/wardwatch/internal/eventloop"
	"github.com/synheart/wardwatch/internal/models"
)

func TestDocument_CardSlots(t *testing.T) {
	doc := NewDocument()
	card := doc.AddCard(7, "Ada (101/B)")

	for _, name := range StandardCardSlots {
		slot, ok := card.Slot(name)
		require.True(t, ok, name)
		if name == SlotTimestamp {
			assert.Nil(t, slot.Closest(ClassVitalItem))
		} else {
			assert.NotNil(t, slot.Closest(ClassVitalItem))
		}
		assert.Same(t, card, slot.Closest(ClassPatientCard))
	}

	partial := doc.AddCard(8, "Bo", SlotHeartRate)
	_, ok := partial.Slot(SlotBP)
	assert.False(t, ok)

	_, ok = doc.Card(9)
	assert.False(t, ok)
	assert.Len(t, doc.Cards(), 2)
}

func TestElement_ReplaceClass(t *testing.T) {
	el := newElement("x", "vital-warning", "keep")
	el.ReplaceClass([]string{"vital-normal", "vital-warning", "vital-critical"}, "vital-critical")
	assert.Equal(t, []string{"keep", "vital-critical"}, el.Classes())
}

func TestDocument_DetailView(t *testing.T) {
	doc := NewDocument()
	doc.AddDetailView()

	hr, ok := doc.ByID(IDHeartRate)
	require.True(t, ok)
	assert.NotNil(t, hr.Closest(ClassVitalCard))

	last, ok := doc.ByID(IDLastUpdated)
	require.True(t, ok)
	assert.Nil(t, last.Closest(ClassVitalCard))
}

func TestModal_HiddenHookRunsOncePerShow(t *testing.T) {
	m := NewModal()
	hidden := 0
	m.SetOnHidden(func() { hidden++ })

	m.Hide()
	assert.Equal(t, 0, hidden)

	m.Show()
	m.Hide()
	m.Hide()
	assert.Equal(t, 1, hidden)
	assert.Equal(t, 1, m.Shows())
	assert.False(t, m.Visible())
}

func TestToaster_AutoDismiss(t *testing.T) {
	sched := eventloop.NewManual(time.Unix(0, 0))
	toasts := NewToaster(sched, 10*time.Second)

	id := toasts.Show("warning", "SpO2 low: Ada")
	require.Len(t, toasts.Active(), 1)
	assert.Equal(t, id, toasts.Active()[0].ID)

	sched.Advance(9 * time.Second)
	assert.True(t, toasts.Active()[0].Showing)

	sched.Advance(time.Second)
	require.Len(t, toasts.Active(), 1)
	assert.False(t, toasts.Active()[0].Showing)

	sched.Advance(150 * time.Millisecond)
	assert.Empty(t, toasts.Active())
	assert.Equal(t, 1, toasts.Shown())
}

func TestBadge_PulseRestarts(t *testing.T) {
	sched := eventloop.NewManual(time.Unix(0, 0))
	b := NewBadge(sched)
	assert.True(t, b.Hidden())

	b.SetCount(2)
	assert.False(t, b.Hidden())

	b.Pulse(time.Second)
	sched.Advance(600 * time.Millisecond)
	b.Pulse(time.Second)
	sched.Advance(600 * time.Millisecond)
	assert.True(t, b.Pulsing())

	sched.Advance(400 * time.Millisecond)
	assert.False(t, b.Pulsing())
}

func TestStatusIndicator(t *testing.T) {
	s := NewStatusIndicator()
	assert.Equal(t, models.StateConnecting, s.State())

	s.Set(models.StateClosed)
	assert.Equal(t, "Offline", s.Text())
	assert.Equal(t, []string{"status-closed"}, s.el.Classes())
}

func TestBoard_Render(t *testing.T) {
	sched := eventloop.NewManual(time.Unix(0, 0))
	board := &Board{
		Doc:    NewDocument(),
		Modal:  NewModal(),
		Toasts: NewToaster(sched, 0),
		Badge:  NewBadge(sched),
		Status: NewStatusIndicator(),
	}
	card := board.Doc.AddCard(1, "Ada")
	card.AddClass("patient-critical")
	hr, _ := card.Slot(SlotHeartRate)
	hr.SetText("45")
	hr.Closest(ClassVitalItem).AddClass("vital-critical")

	board.Badge.SetCount(1)
	board.Modal.Title = "CRITICAL ALERT"
	board.Modal.Countdown = "60"
	board.Modal.Progress = 1
	board.Modal.Show()

	var buf bytes.Buffer
	board.Render(&buf)
	out := buf.String()
	assert.Contains(t, out, "alerts: 1")
	assert.Contains(t, out, "heart_rate=45!!")
	assert.Contains(t, out, "critical")
	assert.Contains(t, out, "CRITICAL ALERT")
}

func TestRenderBar(t *testing.T) {
	assert.Equal(t, "█████░░░░░", renderBar(0.5, 10))
	assert.Equal(t, "░░░░", renderBar(-1, 4))
	assert.Equal(t, "████", renderBar(2, 4))
}
