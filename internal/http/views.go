package http

import (
	"html/template"
	"net/url"
	"slices"
	"strconv"
	"time"

	"bilancio/internal/analytics"
	"bilancio/internal/core"
	"bilancio/internal/present"
	"bilancio/internal/session"
)

var templateFuncs = template.FuncMap{
	// width renders a 0..100 share as a CSS percentage.
	"width": func(v float64) string {
		v = max(0, min(100, v))
		return strconv.FormatFloat(v, 'f', 1, 64) + "%"
	},
	"colname": columnLabel,
}

var columnLabels = map[string]string{
	core.ColumnYear:     "Anno",
	core.ColumnMonth:    "Mese",
	core.ColumnCategory: "Categoria",
	core.ColumnAmount:   "Importo",
}

func columnLabel(c string) string {
	if l, ok := columnLabels[c]; ok {
		return l
	}
	return c
}

var sourceLabels = map[string]string{
	session.SourceFolder: "Cartella",
	session.SourceUpload: "File caricato",
	session.SourceSheets: "Google Sheets",
}

type datasetView struct {
	ID        string
	Label     string
	Source    string
	LoadedAt  string
	Engine    string
	Rows      int
	MultiYear bool
}

type filterOption struct {
	Value   string
	Checked bool
}

type filterGroup struct {
	Key     string
	Label   string
	Options []filterOption
}

// links are already escaped; template.URL keeps the query intact.
type links struct {
	Page    template.URL
	Metrics template.URL
	Rows    template.URL
	CSV     template.URL
	XLSX    template.URL
	Report  template.URL
	Delete  template.URL
}

type dashboardPage struct {
	Dataset   datasetView
	Filters   []filterGroup
	Links     links
	Dashboard present.Dashboard
}

type indexPage struct {
	SheetsEnabled bool
	Engine        string
	Error         string
}

func newDatasetView(d *session.Dataset, engine string) datasetView {
	source := sourceLabels[d.Source]
	if source == "" {
		source = d.Source
	}
	return datasetView{
		ID:        d.ID,
		Label:     d.Label,
		Source:    source,
		LoadedAt:  d.LoadedAt.Format(time.DateTime),
		Engine:    engine,
		Rows:      d.Table.Len(),
		MultiYear: d.MultiYear(),
	}
}

// filterGroups lists every value present in the dataset with its checked
// state under sel. The year group only exists for multi-year data.
func filterGroups(table *core.Table, sel analytics.Selection, multiYear bool) []filterGroup {
	group := func(key, label string, values []string, f analytics.Filter) filterGroup {
		g := filterGroup{Key: key, Label: label}
		for _, v := range values {
			g.Options = append(g.Options, filterOption{Value: v, Checked: f.Contains(v)})
		}
		return g
	}

	var groups []filterGroup
	if multiYear {
		groups = append(groups, group(paramYear, "Anno", table.Years(), sel.Years))
	}
	categories := table.Categories()
	slices.Sort(categories)
	return append(groups,
		group(paramMonth, "Mese", table.MonthLabels(), sel.Months),
		group(paramCategory, "Categoria", categories, sel.Categories),
	)
}

func datasetLinks(id string, sel analytics.Selection) links {
	base := "/datasets/" + url.PathEscape(id)
	q := EncodeSelection(sel).Encode()
	with := func(path string) template.URL {
		if q == "" {
			return template.URL(path)
		}
		return template.URL(path + "?" + q)
	}
	return links{
		Page:    with(base),
		Metrics: with(base + "/metrics"),
		Rows:    with(base + "/rows"),
		CSV:     with(base + "/export.csv"),
		XLSX:    with(base + "/export.xlsx"),
		Report:  with("/api" + base + "/report"),
		Delete:  template.URL(base + "/delete"),
	}
}

func (s *Server) newDashboardPage(d *session.Dataset, sel analytics.Selection, report analytics.Report) dashboardPage {
	multiYear := d.MultiYear()
	return dashboardPage{
		Dataset: newDatasetView(d, s.datasets.EngineName()),
		Filters: filterGroups(d.Table, sel, multiYear),
		Links:   datasetLinks(d.ID, sel),
		Dashboard: present.NewDashboard(report, present.Options{
			ExtraColumns: d.Table.ExtraColumns,
			MultiYear:    multiYear,
			MaxRows:      s.maxRows,
		}),
	}
}
