package present

import (
	"github.com/shopspring/decimal"

	"bilancio/internal/analytics"
)

// Point is one labelled value of a chart. Value is nil where a series
// has no data.
type Point struct {
	Label     string   `json:"label"`
	Value     *float64 `json:"value"`
	Formatted string   `json:"formatted,omitempty"`
}

type Series struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

// Slice is a pie or bar entry with its share of the total.
type Slice struct {
	Label     string  `json:"label"`
	Value     float64 `json:"value"`
	Formatted string  `json:"formatted"`
	Share     float64 `json:"share"`
	Percent   string  `json:"percent"`
	// Width is the share relative to the largest slice, for bar rendering.
	Width float64 `json:"width"`
}

func point(label string, d decimal.Decimal) Point {
	v := d.InexactFloat64()
	return Point{Label: label, Value: &v, Formatted: Money(d)}
}

// CategorySlices converts category totals into pie slices, keeping their
// order.
func CategorySlices(items []analytics.CategoryAmount) []Slice {
	total := decimal.Zero
	largest := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Amount)
		if it.Amount.Abs().GreaterThan(largest) {
			largest = it.Amount.Abs()
		}
	}
	out := make([]Slice, 0, len(items))
	for _, it := range items {
		share := Share(it.Amount, total)
		out = append(out, Slice{
			Label:     it.Category,
			Value:     it.Amount.InexactFloat64(),
			Formatted: Money(it.Amount),
			Share:     share.Round(1).InexactFloat64(),
			Percent:   Percent(share),
			Width:     Share(it.Amount.Abs(), largest).Round(1).InexactFloat64(),
		})
	}
	return out
}

// MonthSeries converts monthly totals into a line series keyed by month
// label in calendar order.
func MonthSeries(name string, items []analytics.MonthAmount) Series {
	s := Series{Name: name, Points: make([]Point, 0, len(items))}
	for _, it := range items {
		s.Points = append(s.Points, point(it.Month.String(), it.Amount))
	}
	return s
}

// TrendSeries returns one series per year over the months of the pivot.
// Months a year has no data for become nil points.
func TrendSeries(p analytics.Pivot) []Series {
	out := make([]Series, 0, len(p.Years))
	for _, y := range p.Years {
		s := Series{Name: Label(y, "Totale"), Points: make([]Point, 0, len(p.Months))}
		for _, m := range p.Months {
			if v, ok := p.Value(y, m); ok {
				s.Points = append(s.Points, point(m.String(), v))
				continue
			}
			s.Points = append(s.Points, Point{Label: m.String()})
		}
		out = append(out, s)
	}
	return out
}
