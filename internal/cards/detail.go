package cards

import (
	"github.com/synheart/wardwatch/internal/display"
	"github.com/synheart/wardwatch/internal/models"
	"github.com/synheart/wardwatch/internal/vitals"
)

// Detail applies the latest reading to the single-patient detail view.
type Detail struct {
	doc *display.Document
}

func NewDetail(doc *display.Document) *Detail {
	return &Detail{doc: doc}
}

// Apply writes the reading into whichever detail elements exist.
func (d *Detail) Apply(reading models.VitalReading) {
	if el, ok := d.doc.ByID(display.IDHeartRate); ok {
		el.SetText(models.FormatValue(reading.HeartRate, 0))
		classify(el.Closest(display.ClassVitalCard), reading.HeartRate, vitals.HeartRate)
	}

	if el, ok := d.doc.ByID(display.IDBloodPressure); ok {
		el.SetText(models.FormatValue(reading.BPSystolic, 0) + "/" + models.FormatValue(reading.BPDiastolic, 0))
		classify(el.Closest(display.ClassVitalCard), reading.BPSystolic, vitals.BPSystolic)
	}

	if el, ok := d.doc.ByID(display.IDOxygenSat); ok {
		el.SetText(models.FormatValue(reading.OxygenSaturation, 0))
		classify(el.Closest(display.ClassVitalCard), reading.OxygenSaturation, vitals.OxygenSaturation)
	}

	if el, ok := d.doc.ByID(display.IDTemperature); ok {
		el.SetText(models.FormatValue(reading.Temperature, 1))
		classify(el.Closest(display.ClassVitalCard), reading.Temperature, vitals.Temperature)
	}

	if el, ok := d.doc.ByID(display.IDRespRate); ok {
		el.SetText(models.FormatValue(reading.RespiratoryRate, 0))
	}

	if el, ok := d.doc.ByID(display.IDLastUpdated); ok {
		if t, ok := reading.RecordedTime(); ok {
			el.SetText(t.Local().Format("2006-01-02 15:04:05"))
		} else {
			el.SetText(reading.RecordedAt)
		}
	}
}
