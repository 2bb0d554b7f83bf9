package present

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bilancio/internal/analytics"
	"bilancio/internal/core"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestMoney(t *testing.T) {
	cases := map[string]string{
		"12.5":    "12.50 €",
		"0":       "0.00 €",
		"-3.256":  "-3.26 €",
		"1020":    "1020.00 €",
		"33.3333": "33.33 €",
	}
	for in, want := range cases {
		if got := Money(d(in)); got != want {
			t.Fatalf("Money(%s) = %q, want %q", in, got, want)
		}
	}
	assert.Equal(t, "+5.00 €", SignedMoney(d("5")))
	assert.Equal(t, "-5.00 €", SignedMoney(d("-5")))
}

func TestShareOfZeroTotal(t *testing.T) {
	assert.True(t, Share(d("10"), decimal.Zero).IsZero())
	assert.Equal(t, "25.0%", Percent(Share(d("1"), d("4"))))
}

func TestCategorySlices(t *testing.T) {
	slices := CategorySlices([]analytics.CategoryAmount{
		{Category: "Affitto", Amount: d("750")},
		{Category: "Spesa", Amount: d("250")},
	})
	require.Len(t, slices, 2)
	assert.Equal(t, "Affitto", slices[0].Label)
	assert.Equal(t, 75.0, slices[0].Share)
	assert.Equal(t, "75.0%", slices[0].Percent)
	assert.Equal(t, 100.0, slices[0].Width)
	assert.InDelta(t, 33.3, slices[1].Width, 0.001)
	assert.Empty(t, CategorySlices(nil))
}

func TestTrendSeriesKeepsGaps(t *testing.T) {
	p := analytics.Pivot{
		Years:  []string{"2022", "2023"},
		Months: []core.Month{core.Gennaio, core.Febbraio},
		Cells: map[string]map[core.Month]decimal.Decimal{
			"2022": {core.Febbraio: d("10")},
			"2023": {core.Gennaio: d("5"), core.Febbraio: d("7")},
		},
	}
	series := TrendSeries(p)
	require.Len(t, series, 2)
	assert.Equal(t, "2022", series[0].Name)
	require.Len(t, series[0].Points, 2)
	assert.Equal(t, "Gennaio", series[0].Points[0].Label)
	assert.Nil(t, series[0].Points[0].Value)
	require.NotNil(t, series[0].Points[1].Value)
	assert.Equal(t, 10.0, *series[0].Points[1].Value)
}

func TestMonthSeriesOrder(t *testing.T) {
	s := MonthSeries("Entrate", []analytics.MonthAmount{
		{Month: core.Gennaio, Amount: d("1500")},
		{Month: core.Marzo, Amount: d("1600")},
	})
	require.Len(t, s.Points, 2)
	assert.Equal(t, "Gennaio", s.Points[0].Label)
	assert.Equal(t, "1500.00 €", s.Points[0].Formatted)
	assert.Equal(t, "Marzo", s.Points[1].Label)
}

func TestMetricCards(t *testing.T) {
	c := analytics.NewCurrentMetrics(
		analytics.Period{Year: "2023", Month: core.Febbraio},
		analytics.Totals{ExpenseSum: d("520"), ExpenseCount: 1, IncomeSum: decimal.Zero},
		analytics.Totals{ExpenseSum: d("500"), ExpenseCount: 1, IncomeSum: d("1500"), IncomeCount: 1},
	)
	cards := MetricCards(c)
	assert.Equal(t, "Febbraio 2023", cards.Period)
	require.Len(t, cards.Metrics, 4)

	expense := cards.Metrics[0]
	assert.Equal(t, "520.00 €", expense.Value)
	assert.Equal(t, "+20.00 €", expense.Delta)
	assert.Equal(t, TrendUp, expense.Trend)
	assert.False(t, expense.Good)

	income := cards.Metrics[1]
	assert.Equal(t, "-1500.00 €", income.Delta)
	assert.False(t, income.Good)

	assert.Equal(t, "1", cards.Metrics[3].Value)
}

func TestMetricCardsWithoutBaseline(t *testing.T) {
	c := analytics.Current(nil)
	cards := MetricCards(c)
	assert.False(t, cards.HasPeriod)
	assert.Equal(t, noBaseline, cards.Metrics[0].Note)
	assert.Equal(t, "0.00 €", cards.Metrics[0].Value)
}

func TestNewDashboard(t *testing.T) {
	rows := []core.Transaction{
		{Year: "2023", Month: core.Gennaio, MonthLabel: "Gennaio", Category: "Spesa", Amount: d("10"), Extra: map[string]string{"note": "pane"}},
		{Year: "2023", Month: core.Gennaio, MonthLabel: "Gennaio", Category: "Stipendio", Amount: d("100")},
	}
	report := analytics.BuildReport(rows)
	dash := NewDashboard(report, Options{ExtraColumns: []string{"note"}, MultiYear: true, MaxRows: 1})

	assert.Equal(t, []string{"anno", "mese", "categoria", "importo", "note"}, dash.Columns)
	assert.Equal(t, 2, dash.RowCount)
	assert.True(t, dash.Truncated)
	require.Len(t, dash.Rows, 1)
	assert.Equal(t, []string{"pane"}, dash.Rows[0].Extra)
	assert.False(t, dash.Empty)

	chart, ok := dash.Chart(ChartIncomeByMonth)
	require.True(t, ok)
	assert.Equal(t, "Entrate", chart.(Series).Name)
	_, ok = dash.Chart("radar")
	assert.False(t, ok)
}
