// Package cards keeps patient cards and the patient detail view in step with the
// latest vital readings.
package cards

import (
	"fmt"
	"time"

	"github.com/synheart/wardwatch/internal/display"
	"github.com/synheart/wardwatch/internal/eventloop"
	"github.com/synheart/wardwatch/internal/models"
	"github.com/synheart/wardwatch/internal/vitals"
)

const (
	ClassFlash        = "vital-update-flash"
	DefaultFlashDelay = time.Second
)

var (
	vitalClasses   = []string{"vital-normal", "vital-warning", "vital-critical"}
	patientClasses = []string{"patient-normal", "patient-warning", "patient-critical"}
)

// Reconciler applies readings to the patient cards of a document. Applying the
// same reading twice leaves the cards as applying it once.
type Reconciler struct {
	doc        *display.Document
	sched      eventloop.Scheduler
	flash      time.Duration
	autoCreate bool
	flashes    map[*display.Element]eventloop.Task
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithAutoCreate adds a card for patients first seen in the stream instead of
// skipping them.
func WithAutoCreate() Option {
	return func(r *Reconciler) { r.autoCreate = true }
}

// WithFlash sets how long updated values stay highlighted.
func WithFlash(d time.Duration) Option {
	return func(r *Reconciler) { r.flash = d }
}

func NewReconciler(doc *display.Document, sched eventloop.Scheduler, opts ...Option) *Reconciler {
	r := &Reconciler{
		doc:     doc,
		sched:   sched,
		flash:   DefaultFlashDelay,
		flashes: make(map[*display.Element]eventloop.Task),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Apply updates the card of reading.PatientID. Unknown patients and missing slots
// are skipped.
func (r *Reconciler) Apply(reading models.VitalReading) {
	card, ok := r.doc.Card(reading.PatientID)
	if !ok {
		if !r.autoCreate {
			return
		}
		card = r.doc.AddCard(reading.PatientID, cardLabel(reading))
	}

	if slot, ok := card.Slot(display.SlotHeartRate); ok {
		r.setValue(slot, models.FormatValue(reading.HeartRate, 0))
		classify(slot.Closest(display.ClassVitalItem), reading.HeartRate, vitals.HeartRate)
	}

	if slot, ok := card.Slot(display.SlotBP); ok && present(reading.BPSystolic) && present(reading.BPDiastolic) {
		r.setValue(slot, fmt.Sprintf("%.0f/%.0f", *reading.BPSystolic, *reading.BPDiastolic))
		classify(slot.Closest(display.ClassVitalItem), reading.BPSystolic, vitals.BPSystolic)
	}

	if slot, ok := card.Slot(display.SlotOxygen); ok {
		r.setValue(slot, models.FormatValue(reading.OxygenSaturation, 0))
		classify(slot.Closest(display.ClassVitalItem), reading.OxygenSaturation, vitals.OxygenSaturation)
	}

	if slot, ok := card.Slot(display.SlotTemperature); ok {
		r.setValue(slot, models.FormatValue(reading.Temperature, 1))
		classify(slot.Closest(display.ClassVitalItem), reading.Temperature, vitals.Temperature)
	}

	if slot, ok := card.Slot(display.SlotTimestamp); ok {
		slot.SetText(reading.ClockLabel())
	}

	status := reading.VitalStatus
	if status == "" {
		status = models.StatusNormal
	}
	card.ReplaceClass(patientClasses, "patient-"+string(status))
}

// setValue writes text and restarts the flash highlight of the slot.
func (r *Reconciler) setValue(slot *display.Element, text string) {
	slot.SetText(text)
	if r.sched == nil || r.flash <= 0 {
		return
	}
	if pending, ok := r.flashes[slot]; ok {
		pending.Cancel()
	}
	slot.AddClass(ClassFlash)
	r.flashes[slot] = r.sched.After(r.flash, func() {
		slot.RemoveClass(ClassFlash)
		delete(r.flashes, slot)
	})
}

// PendingFlashes returns the number of highlights waiting to clear.
func (r *Reconciler) PendingFlashes() int {
	return len(r.flashes)
}

func classify(container *display.Element, v *float64, vital vitals.Vital) {
	if container == nil {
		return
	}
	status, ok := vitals.ClassifyOptional(v, vitals.BandFor(vital))
	if !ok {
		return
	}
	container.ReplaceClass(vitalClasses, "vital-"+string(status))
}

func present(v *float64) bool {
	return v != nil && *v != 0
}

func cardLabel(r models.VitalReading) string {
	name := r.PatientName
	if name == "" {
		name = fmt.Sprintf("Patient %d", r.PatientID)
	}
	if r.Room == "" && r.Bed == "" {
		return name
	}
	return fmt.Sprintf("%s (%s/%s)", name, r.Room.OrDash(), r.Bed.OrDash())
}
