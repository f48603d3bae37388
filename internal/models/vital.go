package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Status is the severity tier of a single vital or of a patient's aggregate reading.
type Status string

const (
	StatusNormal   Status = "normal"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
)

// Label is a room or bed designation. The backend sends either strings or numbers.
type Label string

func (l *Label) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = Label(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*l = Label(n.String())
	return nil
}

// OrDash returns the label or "-" when it is empty.
func (l Label) OrDash() string {
	if l == "" {
		return "-"
	}
	return string(l)
}

// VitalReading is one vital-sign sample for one patient. Nil fields were not measured.
type VitalReading struct {
	ID               int64    `json:"id,omitempty"`
	PatientID        int64    `json:"patient_id"`
	PatientName      string   `json:"patient_name,omitempty"`
	Room             Label    `json:"room,omitempty"`
	Bed              Label    `json:"bed,omitempty"`
	PatientStatus    string   `json:"status,omitempty"`
	HeartRate        *float64 `json:"heart_rate"`
	BPSystolic       *float64 `json:"bp_systolic"`
	BPDiastolic      *float64 `json:"bp_diastolic"`
	OxygenSaturation *float64 `json:"oxygen_saturation"`
	Temperature      *float64 `json:"temperature"`
	RespiratoryRate  *float64 `json:"respiratory_rate"`
	RecordedAt       string   `json:"recorded_at"`
	VitalStatus      Status   `json:"vital_status,omitempty"`
}

type vitalReadingJSON VitalReading

// UnmarshalJSON accepts the legacy "oxygen" key when "oxygen_saturation" is absent.
func (v *VitalReading) UnmarshalJSON(data []byte) error {
	var aux struct {
		vitalReadingJSON
		Oxygen *float64 `json:"oxygen"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*v = VitalReading(aux.vitalReadingJSON)
	if v.OxygenSaturation == nil {
		v.OxygenSaturation = aux.Oxygen
	}
	return nil
}

// SocketVital is the vital_update payload of the socket transport. Its status is the
// vital status and its timestamp is a wall-clock label.
type SocketVital struct {
	PatientID   int64    `json:"patient_id"`
	HeartRate   *float64 `json:"heart_rate"`
	BPSystolic  *float64 `json:"bp_systolic"`
	BPDiastolic *float64 `json:"bp_diastolic"`
	Oxygen      *float64 `json:"oxygen"`
	Temperature *float64 `json:"temperature"`
	Status      Status   `json:"status"`
	Timestamp   string   `json:"timestamp"`
}

// Reading converts the socket payload to a VitalReading.
func (s SocketVital) Reading() VitalReading {
	return VitalReading{
		PatientID:        s.PatientID,
		HeartRate:        s.HeartRate,
		BPSystolic:       s.BPSystolic,
		BPDiastolic:      s.BPDiastolic,
		OxygenSaturation: s.Oxygen,
		Temperature:      s.Temperature,
		RecordedAt:       s.Timestamp,
		VitalStatus:      s.Status,
	}
}

var recordedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// RecordedTime parses RecordedAt. Naive timestamps are read as local time.
func (v VitalReading) RecordedTime() (time.Time, bool) {
	s := strings.TrimSpace(v.RecordedAt)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range recordedLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ClockLabel renders RecordedAt as a local wall-clock time. Unparseable values are
// returned unchanged so wall-clock labels from the socket pass through.
func (v VitalReading) ClockLabel() string {
	if t, ok := v.RecordedTime(); ok {
		return t.Local().Format("15:04:05")
	}
	return v.RecordedAt
}

// Float returns a pointer to f, for building readings in code.
func Float(f float64) *float64 {
	return &f
}

// FormatValue renders an optional measurement with the given number of decimals.
// Missing and zero values render as "--".
func FormatValue(v *float64, decimals int) string {
	if v == nil || *v == 0 {
		return "--"
	}
	return strconv.FormatFloat(*v, 'f', decimals, 64)
}
