package display

import (
	"fmt"
	"io"
	"strings"
)

// ChartView renders the vitals chart as text.
type ChartView interface {
	Render(w io.Writer)
}

// Board groups every slot of the monitoring screen.
type Board struct {
	Doc    *Document
	Modal  *Modal
	Toasts *Toaster
	Badge  *Badge
	Status *StatusIndicator
	Chart  ChartView
}

// Render writes a plain-text frame of the board.
func (b *Board) Render(w io.Writer) {
	badge := ""
	if !b.Badge.Hidden() {
		badge = fmt.Sprintf("  alerts: %d", b.Badge.Count())
		if b.Badge.Pulsing() {
			badge += " *"
		}
	}
	fmt.Fprintf(w, "[%s]%s\n", b.Status.Text(), badge)

	for _, card := range b.Doc.Cards() {
		status := "normal"
		for _, c := range card.Classes() {
			if strings.HasPrefix(c, "patient-") && c != ClassPatientCard {
				status = strings.TrimPrefix(c, "patient-")
			}
		}
		fmt.Fprintf(w, "  %-24s %-8s", card.Label, status)
		for _, name := range StandardCardSlots {
			slot, ok := card.Slot(name)
			if !ok {
				continue
			}
			fmt.Fprintf(w, " %s=%s%s", name, slot.Text(), tierMark(slot))
		}
		fmt.Fprintln(w)
	}

	for _, item := range b.Doc.AlertItems() {
		state := "open"
		if item.HasClass("acknowledged") {
			state = "acknowledged"
		}
		fmt.Fprintf(w, "  alert %-20s %s\n", item.Label, state)
	}

	if b.Modal.Visible() {
		fmt.Fprintf(w, "\n  !! %s: %s (%s)\n", b.Modal.Title, b.Modal.Patient, b.Modal.Location)
		fmt.Fprintf(w, "     %s\n", b.Modal.Message)
		fmt.Fprintf(w, "     %s %ss\n", renderBar(b.Modal.Progress, 30), b.Modal.Countdown)
	}

	for _, t := range b.Toasts.Active() {
		if t.Showing {
			fmt.Fprintf(w, "  (%s) %s\n", t.Level, t.Message)
		}
	}

	if b.Chart != nil {
		b.Chart.Render(w)
	}
}

func tierMark(slot *Element) string {
	item := slot.Closest(ClassVitalItem)
	if item == nil {
		return ""
	}
	switch {
	case item.HasClass("vital-critical"):
		return "!!"
	case item.HasClass("vital-warning"):
		return "!"
	}
	return ""
}

func renderBar(score float64, width int) string {
	filled := int(score * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
