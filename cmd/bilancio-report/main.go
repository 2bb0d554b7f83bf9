// Command bilancio-report prints the dashboard figures for a year folder
// or a single CSV file.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"bilancio/internal/analytics"
	"bilancio/internal/cli"
	"bilancio/internal/core"
	"bilancio/internal/loader"
	"bilancio/internal/log"
	"bilancio/internal/present"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))

	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: bilancio-report <folder|file.csv>")
		os.Exit(2)
	}
	if err := run(context.Background(), os.Args[1], os.Stdout, logger); err != nil {
		if errors.Is(err, loader.ErrNoData) {
			fmt.Fprintln(os.Stderr, "Nessun dato trovato")
			os.Exit(1)
		}
		logger.Error("Report failed", log.FieldError, err, log.FieldFile, os.Args[1])
		os.Exit(1)
	}
}

func run(ctx context.Context, path string, out io.Writer, logger *log.Logger) error {
	raw, err := load(ctx, path, logger)
	if err != nil {
		return err
	}
	table, err := core.Normalize(raw)
	if err != nil {
		return err
	}
	if table.Len() == 0 {
		return fmt.Errorf("%s: %w", path, loader.ErrNoData)
	}

	analyzer, err := analytics.MemoryEngine{}.Prepare(ctx, table)
	if err != nil {
		return err
	}
	defer analyzer.Close()
	report, err := analyzer.Analyze(ctx, analytics.Selection{})
	if err != nil {
		return err
	}

	printDashboard(out, present.NewDashboard(report, present.Options{MultiYear: table.HasYears()}))
	return nil
}

func load(ctx context.Context, path string, logger *log.Logger) (core.RawTable, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return core.RawTable{}, fmt.Errorf("%s: %w", path, loader.ErrNoData)
		}
		return core.RawTable{}, err
	}
	if info.IsDir() {
		return loader.NewFolder(path, logger).Load(ctx)
	}
	return loader.LoadFile(path)
}

func printDashboard(out io.Writer, d present.Dashboard) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintf(tw, "Mese corrente\t%s\n", d.Cards.Period)
	for _, m := range d.Cards.Metrics {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", m.Label, m.Value, m.Delta)
	}

	section(tw, "Spese per categoria")
	for _, s := range d.Categories {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Label, s.Formatted, s.Percent)
	}

	for _, series := range []present.Series{d.ExpenseByMonth, d.IncomeByMonth} {
		section(tw, series.Name+" per mese")
		for _, p := range series.Points {
			fmt.Fprintf(tw, "%s\t%s\n", p.Label, p.Formatted)
		}
	}

	if d.MultiYear && len(d.Trend) > 0 {
		section(tw, "Andamento per anno")
		labels := make([]string, 0, len(d.Trend[0].Points))
		for _, p := range d.Trend[0].Points {
			labels = append(labels, p.Label)
		}
		fmt.Fprintf(tw, "Anno\t%s\n", strings.Join(labels, "\t"))
		for _, s := range d.Trend {
			cells := make([]string, 0, len(s.Points))
			for _, p := range s.Points {
				if p.Value == nil {
					cells = append(cells, "-")
				} else {
					cells = append(cells, p.Formatted)
				}
			}
			fmt.Fprintf(tw, "%s\t%s\n", s.Name, strings.Join(cells, "\t"))
		}
	}

	section(tw, "Riepilogo")
	for _, m := range d.Summary {
		fmt.Fprintf(tw, "%s\t%s\n", m.Label, m.Value)
	}
}

func section(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s\n", title)
}
