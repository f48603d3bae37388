// Package display holds the named slots the monitoring client renders into.
// Everything here is owned by the event loop and is not safe for concurrent use.
package display

import (
	"sort"
	"strconv"
)

// Card slot names, matching the data-vital attribute of the ward board.
const (
	SlotHeartRate   = "heart_rate"
	SlotBP          = "bp"
	SlotOxygen      = "oxygen"
	SlotTemperature = "temperature"
	SlotTimestamp   = "timestamp"
)

// Detail view element ids.
const (
	IDHeartRate     = "heartRate"
	IDBloodPressure = "bloodPressure"
	IDOxygenSat     = "oxygenSat"
	IDTemperature   = "temperature"
	IDRespRate      = "respRate"
	IDLastUpdated   = "lastUpdated"
)

// Container classes used by the reconcilers.
const (
	ClassPatientCard = "patient-card"
	ClassVitalItem   = "vital-item"
	ClassVitalCard   = "vital-card"
	ClassAlertItem   = "alert-item"
)

// StandardCardSlots are the slots of a fully populated patient card.
var StandardCardSlots = []string{SlotHeartRate, SlotBP, SlotOxygen, SlotTemperature, SlotTimestamp}

// Element is one node of the document: text, a class set and child slots.
type Element struct {
	ID       string
	Label    string
	text     string
	classes  map[string]struct{}
	parent   *Element
	children []*Element
	slots    map[string]*Element
}

func newElement(id string, classes ...string) *Element {
	e := &Element{ID: id, classes: make(map[string]struct{}), slots: make(map[string]*Element)}
	e.AddClass(classes...)
	return e
}

func (e *Element) Text() string {
	return e.text
}

func (e *Element) SetText(s string) {
	e.text = s
}

func (e *Element) AddClass(names ...string) {
	for _, n := range names {
		e.classes[n] = struct{}{}
	}
}

func (e *Element) RemoveClass(names ...string) {
	for _, n := range names {
		delete(e.classes, n)
	}
}

// ReplaceClass removes every class in group and adds name.
func (e *Element) ReplaceClass(group []string, name string) {
	e.RemoveClass(group...)
	e.AddClass(name)
}

func (e *Element) HasClass(name string) bool {
	_, ok := e.classes[name]
	return ok
}

// Classes returns the class list sorted.
func (e *Element) Classes() []string {
	out := make([]string, 0, len(e.classes))
	for c := range e.classes {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Slot returns the descendant registered under name.
func (e *Element) Slot(name string) (*Element, bool) {
	s, ok := e.slots[name]
	return s, ok
}

// Closest returns the nearest ancestor-or-self carrying class, or nil.
func (e *Element) Closest(class string) *Element {
	for n := e; n != nil; n = n.parent {
		if n.HasClass(class) {
			return n
		}
	}
	return nil
}

// Children returns the direct children in insertion order.
func (e *Element) Children() []*Element {
	return e.children
}

func (e *Element) appendChild(c *Element) {
	c.parent = e
	e.children = append(e.children, c)
}

// Document is the set of slots the client writes into: patient cards keyed by
// patient id, the detail view keyed by element id and the alert list.
type Document struct {
	cards      map[int64]*Element
	cardOrder  []int64
	byID       map[string]*Element
	alertItems map[int64]*Element
}

func NewDocument() *Document {
	return &Document{
		cards:      make(map[int64]*Element),
		byID:       make(map[string]*Element),
		alertItems: make(map[int64]*Element),
	}
}

// AddCard registers a patient card with the given slots, each wrapped in a
// vital-item container. With no slots the standard set is used.
func (d *Document) AddCard(patientID int64, label string, slots ...string) *Element {
	if len(slots) == 0 {
		slots = StandardCardSlots
	}
	card := newElement("patient-"+strconv.FormatInt(patientID, 10), ClassPatientCard)
	card.Label = label
	for _, name := range slots {
		slot := newElement(name)
		if name != SlotTimestamp {
			item := newElement("", ClassVitalItem)
			card.appendChild(item)
			item.appendChild(slot)
		} else {
			card.appendChild(slot)
		}
		card.slots[name] = slot
	}
	if _, exists := d.cards[patientID]; !exists {
		d.cardOrder = append(d.cardOrder, patientID)
	}
	d.cards[patientID] = card
	return card
}

// Card returns the card of a patient.
func (d *Document) Card(patientID int64) (*Element, bool) {
	c, ok := d.cards[patientID]
	return c, ok
}

// Cards returns the cards in registration order.
func (d *Document) Cards() []*Element {
	out := make([]*Element, 0, len(d.cardOrder))
	for _, id := range d.cardOrder {
		out = append(out, d.cards[id])
	}
	return out
}

// AddDetailView registers the patient detail elements. Each vital sits in a
// vital-card container; the timestamp does not. A subset of ids may be given.
func (d *Document) AddDetailView(ids ...string) {
	if len(ids) == 0 {
		ids = []string{IDHeartRate, IDBloodPressure, IDOxygenSat, IDTemperature, IDRespRate, IDLastUpdated}
	}
	for _, id := range ids {
		el := newElement(id)
		if id != IDLastUpdated {
			container := newElement("", ClassVitalCard)
			container.appendChild(el)
		}
		d.byID[id] = el
	}
}

// ByID returns the element registered under id.
func (d *Document) ByID(id string) (*Element, bool) {
	el, ok := d.byID[id]
	return el, ok
}

// AddAlertItem registers an entry of the active-alert list.
func (d *Document) AddAlertItem(alertID int64, label string) *Element {
	el := newElement("alert-"+strconv.FormatInt(alertID, 10), ClassAlertItem)
	el.Label = label
	d.alertItems[alertID] = el
	return el
}

// AlertItem returns the alert-list entry for an alert id.
func (d *Document) AlertItem(alertID int64) (*Element, bool) {
	el, ok := d.alertItems[alertID]
	return el, ok
}

// AlertItems returns the alert-list entries ordered by id.
func (d *Document) AlertItems() []*Element {
	ids := make([]int64, 0, len(d.alertItems))
	for id := range d.alertItems {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]*Element, 0, len(ids))
	for _, id := range ids {
		out = append(out, d.alertItems[id])
	}
	return out
}
