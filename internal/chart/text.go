package chart

import (
	"fmt"
	"io"
	"strings"
)

var sparks = []rune("▁▂▃▄▅▆▇█")

// TextRenderer draws the chart as sparklines scaled to the layout axes.
type TextRenderer struct {
	layout  Layout
	data    Series
	inits   int
	updates int
}

func NewTextRenderer() *TextRenderer {
	return &TextRenderer{}
}

func (t *TextRenderer) Init(layout Layout, data Series) {
	t.layout = layout
	t.data = data
	t.inits++
}

func (t *TextRenderer) Update(data Series) {
	t.data = data
	t.updates++
}

// Builds returns how many times the chart was constructed.
func (t *TextRenderer) Builds() int {
	return t.inits
}

// Updates returns how many in-place updates were applied.
func (t *TextRenderer) Updates() int {
	return t.updates
}

// Data returns the last series handed to the renderer.
func (t *TextRenderer) Data() Series {
	return t.data
}

func (t *TextRenderer) Render(w io.Writer) {
	if t.inits == 0 || t.data.Len() == 0 {
		return
	}
	rows := []struct {
		set    Dataset
		values []*float64
	}{
		{t.layout.Datasets[0], t.data.HeartRate},
		{t.layout.Datasets[1], t.data.SpO2},
		{t.layout.Datasets[2], t.data.Temperature},
	}
	fmt.Fprintf(w, "\n  vitals %s .. %s\n", t.data.Labels[0], t.data.Labels[t.data.Len()-1])
	for _, row := range rows {
		axis := t.layout.Primary
		if row.set.Axis == t.layout.Secondary.ID {
			axis = t.layout.Secondary
		}
		fmt.Fprintf(w, "  %-12s %s\n", row.set.Label, sparkline(row.values, axis.Min, axis.Max))
	}
}

func sparkline(values []*float64, min, max float64) string {
	var b strings.Builder
	span := max - min
	for _, v := range values {
		if v == nil || span <= 0 {
			b.WriteRune(' ')
			continue
		}
		idx := int((*v - min) / span * float64(len(sparks)-1))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparks) {
			idx = len(sparks) - 1
		}
		b.WriteRune(sparks[idx])
	}
	return b.String()
}
