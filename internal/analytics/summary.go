package analytics

import (
	"github.com/shopspring/decimal"

	"bilancio/internal/core"
)

// Summary covers every filtered row, income included.
type Summary struct {
	Total              decimal.Decimal
	MeanPerTransaction decimal.Decimal
	Count              int
}

func NewSummary(sum decimal.Decimal, count int) Summary {
	mean, _ := meanOf(sum, count)
	return Summary{Total: sum, MeanPerTransaction: mean, Count: count}
}

func Summarize(rows []core.Transaction) Summary {
	return NewSummary(Sum(rows), len(rows))
}
