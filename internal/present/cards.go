package present

import (
	"strconv"

	"github.com/shopspring/decimal"

	"bilancio/internal/analytics"
)

// Trend directions of a metric delta.
const (
	TrendUp   = "up"
	TrendDown = "down"
	TrendFlat = "flat"
)

type Metric struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Delta string `json:"delta,omitempty"`
	Trend string `json:"trend,omitempty"`
	// Good tells whether the delta moves in the desirable direction.
	Good bool `json:"good"`
	// Note explains a missing baseline.
	Note string `json:"note,omitempty"`
}

type Cards struct {
	Period       string   `json:"period"`
	HasPeriod    bool     `json:"has_period"`
	Metrics      []Metric `json:"metrics"`
	ExpenseCount int      `json:"expense_count"`
	IncomeCount  int      `json:"income_count"`
}

const noBaseline = "nessun mese precedente"

func trend(d decimal.Decimal) string {
	switch d.Sign() {
	case 1:
		return TrendUp
	case -1:
		return TrendDown
	default:
		return TrendFlat
	}
}

func deltaMetric(label string, value, delta decimal.Decimal, higherIsGood, hasBaseline bool) Metric {
	m := Metric{
		Label: label,
		Value: Money(value),
		Delta: SignedMoney(delta),
		Trend: trend(delta),
	}
	m.Good = delta.IsZero() || (delta.Sign() > 0) == higherIsGood
	if !hasBaseline {
		m.Note = noBaseline
	}
	return m
}

// MetricCards builds the current-period cards: expense, income, savings
// and transaction count.
func MetricCards(c analytics.CurrentMetrics) Cards {
	cards := Cards{
		Period:       "Nessun periodo",
		HasPeriod:    c.HasPeriod,
		ExpenseCount: c.ExpenseCount,
		IncomeCount:  c.IncomeCount,
	}
	if c.HasPeriod {
		cards.Period = c.Period.String()
	}
	b := c.Baseline
	cards.Metrics = []Metric{
		deltaMetric("Spese del mese", c.Expense, c.ExpenseDelta, false, b.HasExpense),
		deltaMetric("Entrate del mese", c.Income, c.IncomeDelta, true, b.HasIncome),
		deltaMetric("Risparmio del mese", c.Savings(), c.SavingsDelta, true, b.HasExpense || b.HasIncome),
		{
			Label: "Transazioni",
			Value: strconv.Itoa(c.ExpenseCount + c.IncomeCount),
			Trend: TrendFlat,
			Good:  true,
		},
	}
	return cards
}

// SummaryCards renders the multi-year summary statistics.
func SummaryCards(s analytics.Summary) []Metric {
	return []Metric{
		{Label: "Totale", Value: Money(s.Total), Good: true},
		{Label: "Media per transazione", Value: Money(s.MeanPerTransaction), Good: true},
		{Label: "Numero di transazioni", Value: strconv.Itoa(s.Count), Good: true},
	}
}
