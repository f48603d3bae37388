// Package chart feeds vital history into a dual-axis chart renderer.
package chart

import (
	"github.com/synheart/wardwatch/internal/models"
)

// DefaultCapacity matches the history page size of the vitals endpoint.
const DefaultCapacity = 20

// Axis is one y axis of the chart.
type Axis struct {
	ID       string
	Title    string
	Min      float64
	Max      float64
	Position string
}

// Dataset binds a series to an axis.
type Dataset struct {
	Label string
	Axis  string
	Color string
}

// Layout is fixed for the lifetime of a chart.
type Layout struct {
	Primary   Axis
	Secondary Axis
	Datasets  [3]Dataset
}

// DualAxis is the vitals chart layout: heart rate and SpO2 share the primary axis,
// temperature uses its own.
var DualAxis = Layout{
	Primary:   Axis{ID: "y", Title: "Heart Rate / SpO2", Min: 0, Max: 150, Position: "left"},
	Secondary: Axis{ID: "y1", Title: "Temperature (°F)", Min: 95, Max: 105, Position: "right"},
	Datasets: [3]Dataset{
		{Label: "Heart Rate", Axis: "y", Color: "rgb(255, 99, 132)"},
		{Label: "SpO2", Axis: "y", Color: "rgb(54, 162, 235)"},
		{Label: "Temperature", Axis: "y1", Color: "rgb(255, 159, 64)"},
	},
}

// Series is the chart data in chronological order. Nil points are gaps.
type Series struct {
	Labels      []string
	HeartRate   []*float64
	SpO2        []*float64
	Temperature []*float64
}

// Len returns the number of points.
func (s Series) Len() int {
	return len(s.Labels)
}

// Renderer is the charting collaborator. Init builds the chart once; Update
// replaces its data in place.
type Renderer interface {
	Init(layout Layout, data Series)
	Update(data Series)
}

// Adapter owns the chart data for one patient.
type Adapter struct {
	renderer    Renderer
	capacity    int
	initialized bool
	points      []models.VitalReading
}

func NewAdapter(r Renderer, capacity int) *Adapter {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Adapter{renderer: r, capacity: capacity}
}

// Sync replaces the chart data with history, which arrives newest first.
func (a *Adapter) Sync(history []models.VitalReading) {
	n := len(history)
	if n > a.capacity {
		n = a.capacity
	}
	points := make([]models.VitalReading, 0, n)
	for i := n - 1; i >= 0; i-- {
		points = append(points, history[i])
	}
	a.points = points
	a.push()
}

// Append adds one reading at the end, dropping the oldest beyond capacity.
func (a *Adapter) Append(r models.VitalReading) {
	a.points = append(a.points, r)
	if over := len(a.points) - a.capacity; over > 0 {
		a.points = append([]models.VitalReading(nil), a.points[over:]...)
	}
	a.push()
}

// Series returns the current chart data.
func (a *Adapter) Series() Series {
	return build(a.points)
}

func (a *Adapter) push() {
	data := build(a.points)
	if !a.initialized {
		a.renderer.Init(DualAxis, data)
		a.initialized = true
		return
	}
	a.renderer.Update(data)
}

func build(points []models.VitalReading) Series {
	s := Series{
		Labels:      make([]string, 0, len(points)),
		HeartRate:   make([]*float64, 0, len(points)),
		SpO2:        make([]*float64, 0, len(points)),
		Temperature: make([]*float64, 0, len(points)),
	}
	for _, p := range points {
		s.Labels = append(s.Labels, p.RecordedAt)
		s.HeartRate = append(s.HeartRate, p.HeartRate)
		s.SpO2 = append(s.SpO2, p.OxygenSaturation)
		s.Temperature = append(s.Temperature, p.Temperature)
	}
	return s
}
