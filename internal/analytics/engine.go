package analytics

import (
	"context"

	"bilancio/internal/core"
)

// Engine turns a normalized table into an Analyzer that answers
// selections.
type Engine interface {
	Name() string
	Prepare(ctx context.Context, table *core.Table) (Analyzer, error)
}

// Analyzer produces reports for one prepared table. Close releases any
// resources held by the engine.
type Analyzer interface {
	Analyze(ctx context.Context, sel Selection) (Report, error)
	Close() error
}

// MemoryEngine filters and aggregates in process.
type MemoryEngine struct{}

func (MemoryEngine) Name() string { return "memory" }

func (MemoryEngine) Prepare(_ context.Context, table *core.Table) (Analyzer, error) {
	return &memoryAnalyzer{table: table}, nil
}

type memoryAnalyzer struct {
	table *core.Table
}

func (a *memoryAnalyzer) Analyze(ctx context.Context, sel Selection) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	return BuildReport(Where(a.table.Rows, sel.Predicate())), nil
}

func (a *memoryAnalyzer) Close() error { return nil }
