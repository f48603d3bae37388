// Package vitals classifies vital-sign values into normal, warning and critical tiers.
package vitals

import (
	"fmt"
	"sort"
	"strings"

	"github.com/synheart/wardwatch/internal/models"
)

// Band holds the thresholds for one vital. When Inverted is set only the lower
// bounds apply, for vitals where high values are never a concern.
type Band struct {
	CritLow  float64
	CritHigh float64
	WarnLow  float64
	WarnHigh float64
	Inverted bool
}

// Classify returns the tier of value within the band. Bounds are exclusive: a value
// equal to a threshold stays in the better tier.
func Classify(value float64, b Band) models.Status {
	if b.Inverted {
		switch {
		case value < b.CritLow:
			return models.StatusCritical
		case value < b.WarnLow:
			return models.StatusWarning
		}
		return models.StatusNormal
	}

	switch {
	case value < b.CritLow || value > b.CritHigh:
		return models.StatusCritical
	case value < b.WarnLow || value > b.WarnHigh:
		return models.StatusWarning
	}
	return models.StatusNormal
}

// ClassifyOptional classifies v when present. ok is false for missing values so the
// caller leaves the prior class in place.
func ClassifyOptional(v *float64, b Band) (status models.Status, ok bool) {
	if v == nil {
		return "", false
	}
	return Classify(*v, b), true
}

// Vital names a classified vital sign.
type Vital string

const (
	HeartRate        Vital = "heart_rate"
	BPSystolic       Vital = "bp_systolic"
	OxygenSaturation Vital = "oxygen_saturation"
	Temperature      Vital = "temperature"
)

var bands = map[Vital]Band{
	HeartRate:        {CritLow: 50, CritHigh: 130, WarnLow: 60, WarnHigh: 100},
	BPSystolic:       {CritLow: 90, CritHigh: 160, WarnLow: 100, WarnHigh: 140},
	OxygenSaturation: {CritLow: 90, CritHigh: 100, WarnLow: 95, WarnHigh: 100, Inverted: true},
	Temperature:      {CritLow: 96, CritHigh: 102, WarnLow: 97, WarnHigh: 100},
}

var aliases = map[string]Vital{
	"hr":          HeartRate,
	"heartrate":   HeartRate,
	"bp":          BPSystolic,
	"systolic":    BPSystolic,
	"spo2":        OxygenSaturation,
	"oxygen":      OxygenSaturation,
	"o2":          OxygenSaturation,
	"temp":        Temperature,
	"temperature": Temperature,
}

// BandFor returns the thresholds for a vital.
func BandFor(v Vital) Band {
	return bands[v]
}

// ParseVital resolves a vital name or common abbreviation.
func ParseVital(name string) (Vital, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.ReplaceAll(key, "-", "_")
	if _, ok := bands[Vital(key)]; ok {
		return Vital(key), nil
	}
	if v, ok := aliases[strings.ReplaceAll(key, "_", "")]; ok {
		return v, nil
	}
	return "", fmt.Errorf("unknown vital %q (known: %s)", name, strings.Join(Names(), ", "))
}

// Names lists the classified vitals in stable order.
func Names() []string {
	names := make([]string, 0, len(bands))
	for v := range bands {
		names = append(names, string(v))
	}
	sort.Strings(names)
	return names
}
