package models

import "fmt"

// Severity of an emergency alert.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

const (
	DefaultPatientName  = "Unknown Patient"
	DefaultAlertMessage = "Patient requires immediate attention"
)

// Alert is an emergency notification. Alerts without an id are display-only.
type Alert struct {
	ID          int64    `json:"id,omitempty"`
	PatientID   int64    `json:"patient_id,omitempty"`
	PatientName string   `json:"patient_name,omitempty"`
	Room        Label    `json:"room,omitempty"`
	Bed         Label    `json:"bed,omitempty"`
	Type        string   `json:"type,omitempty"`
	Severity    Severity `json:"severity"`
	Title       string   `json:"title,omitempty"`
	Message     string   `json:"message,omitempty"`
	CreatedAt   string   `json:"created_at,omitempty"`
}

// HasID reports whether the alert can be acknowledged.
func (a Alert) HasID() bool {
	return a.ID > 0
}

// IsCritical reports whether the alert escalates to the emergency modal.
func (a Alert) IsCritical() bool {
	return a.Severity == SeverityCritical
}

// Heading is the modal title for the alert.
func (a Alert) Heading() string {
	if a.IsCritical() {
		return "CRITICAL ALERT"
	}
	return "Emergency Alert"
}

// DisplayName returns the patient name or the placeholder for unnamed patients.
func (a Alert) DisplayName() string {
	if a.PatientName == "" {
		return DefaultPatientName
	}
	return a.PatientName
}

// Location renders "Room {room}, Bed {bed}" with "-" for missing parts.
func (a Alert) Location() string {
	return fmt.Sprintf("Room %s, Bed %s", a.Room.OrDash(), a.Bed.OrDash())
}

// Body returns the alert message or the default text.
func (a Alert) Body() string {
	if a.Message == "" {
		return DefaultAlertMessage
	}
	return a.Message
}

// Summary is the one-line notification text for non-critical alerts.
func (a Alert) Summary() string {
	title := a.Title
	if title == "" {
		title = string(a.Severity)
	}
	return fmt.Sprintf("%s: %s", title, a.DisplayName())
}

// CountCritical returns how many alerts in the list are critical.
func CountCritical(alerts []Alert) int {
	n := 0
	for _, a := range alerts {
		if a.IsCritical() {
			n++
		}
	}
	return n
}
