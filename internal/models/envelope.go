package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Kind tags the payload carried by an Envelope.
type Kind string

const (
	KindSnapshot    Kind = "snapshot"
	KindVitalUpdate Kind = "vital_update"
	KindNewAlert    Kind = "new_alert"
)

// ErrUnknownEvent is returned for frames whose event name has no decoder.
var ErrUnknownEvent = errors.New("unknown event")

// Snapshot is the server-push payload of the stream endpoint.
type Snapshot struct {
	Vitals    []VitalReading `json:"vitals"`
	Alerts    []Alert        `json:"alerts"`
	Timestamp string         `json:"timestamp,omitempty"`
}

// Frame is one undecoded message as received from a transport. Event is empty for
// plain server-sent messages.
type Frame struct {
	Event      string          `json:"event,omitempty"`
	Data       json.RawMessage `json:"data"`
	ReceivedAt time.Time       `json:"received_at"`
}

// Envelope is a decoded message. Exactly one of Snapshot, Vital or Alert is set,
// according to Kind.
type Envelope struct {
	Kind       Kind
	Snapshot   *Snapshot
	Vital      *VitalReading
	Alert      *Alert
	ReceivedAt time.Time
}

// Vitals returns the readings carried by the envelope, in delivery order.
func (e Envelope) Vitals() []VitalReading {
	switch e.Kind {
	case KindSnapshot:
		return e.Snapshot.Vitals
	case KindVitalUpdate:
		return []VitalReading{*e.Vital}
	}
	return nil
}

// Alerts returns the alert batch carried by the envelope.
func (e Envelope) Alerts() []Alert {
	switch e.Kind {
	case KindSnapshot:
		return e.Snapshot.Alerts
	case KindNewAlert:
		return []Alert{*e.Alert}
	}
	return nil
}

// ValidationError describes a payload that parsed but cannot be used.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Decode turns a raw frame into an Envelope. Any error means the frame must be dropped.
func Decode(f Frame) (Envelope, error) {
	data := bytes.TrimSpace(f.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return Envelope{}, &ValidationError{Field: "data", Message: "is empty"}
	}

	env := Envelope{ReceivedAt: f.ReceivedAt}
	switch f.Event {
	case "", "message", string(KindSnapshot):
		var s Snapshot
		if err := json.Unmarshal(data, &s); err != nil {
			return Envelope{}, fmt.Errorf("failed to parse snapshot: %w", err)
		}
		env.Kind = KindSnapshot
		env.Snapshot = &s

	case string(KindVitalUpdate):
		var sv SocketVital
		if err := json.Unmarshal(data, &sv); err != nil {
			return Envelope{}, fmt.Errorf("failed to parse vital update: %w", err)
		}
		if sv.PatientID == 0 {
			return Envelope{}, &ValidationError{Field: "patient_id", Message: "is required"}
		}
		r := sv.Reading()
		env.Kind = KindVitalUpdate
		env.Vital = &r

	case string(KindNewAlert):
		var a Alert
		if err := json.Unmarshal(data, &a); err != nil {
			return Envelope{}, fmt.Errorf("failed to parse alert: %w", err)
		}
		env.Kind = KindNewAlert
		env.Alert = &a

	default:
		return Envelope{}, fmt.Errorf("%w: %q", ErrUnknownEvent, f.Event)
	}
	return env, nil
}
