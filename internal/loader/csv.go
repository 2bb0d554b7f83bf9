// Package loader reads transaction CSV files from a single upload or from
// a folder of per-year subfolders.
package loader

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"bilancio/internal/core"
)

var ErrNoData = errors.New("no data found")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var candidateDelimiters = []rune{',', ';', '\t'}

// ReadCSV parses one CSV stream. year is stamped on every record and may
// be empty; source is used for error positions.
func ReadCSV(r io.Reader, year, source string) (core.RawTable, error) {
	br := bufio.NewReaderSize(r, 64*1024)
	if head, _ := br.Peek(len(utf8BOM)); bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	// A short read still returns what is buffered
	head, _ := br.Peek(br.Size())

	reader := csv.NewReader(br)
	reader.Comma = sniffDelimiter(firstLine(head))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var (
		records [][]string
		lines   []int
	)
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return core.RawTable{}, fmt.Errorf("read %s: %w", source, err)
		}
		line, _ := reader.FieldPos(0)
		records = append(records, rec)
		lines = append(lines, line)
	}
	return fromRows(records, lines, year, source)
}

// FromRecords maps a header row plus data rows into raw records. It is
// used for sources that already deliver cells, such as spreadsheets.
func FromRecords(records [][]string, year, source string) (core.RawTable, error) {
	lines := make([]int, len(records))
	for i := range lines {
		lines[i] = i + 1
	}
	return fromRows(records, lines, year, source)
}

type columnMap struct {
	year, month, category, amount int
	extra                         []int
	extraNames                    []string
}

func mapHeader(header []string) (columnMap, error) {
	m := columnMap{year: -1, month: -1, category: -1, amount: -1}
	for i, h := range header {
		name := strings.TrimSpace(h)
		switch strings.ToLower(name) {
		case core.ColumnYear:
			m.year = i
		case core.ColumnMonth:
			m.month = i
		case core.ColumnCategory:
			m.category = i
		case core.ColumnAmount:
			m.amount = i
		default:
			if name == "" {
				continue
			}
			m.extra = append(m.extra, i)
			m.extraNames = append(m.extraNames, name)
		}
	}
	var missing []string
	if m.month < 0 {
		missing = append(missing, core.ColumnMonth)
	}
	if m.category < 0 {
		missing = append(missing, core.ColumnCategory)
	}
	if m.amount < 0 {
		missing = append(missing, core.ColumnAmount)
	}
	if len(missing) > 0 {
		return m, fmt.Errorf("%w: %s", core.ErrMissingColumn, strings.Join(missing, ", "))
	}
	return m, nil
}

func fromRows(records [][]string, lines []int, year, source string) (core.RawTable, error) {
	if len(records) == 0 {
		return core.RawTable{}, fmt.Errorf("%s: %w: empty file", source, core.ErrMissingColumn)
	}
	cols, err := mapHeader(records[0])
	if err != nil {
		return core.RawTable{}, fmt.Errorf("%s: %w", source, err)
	}

	out := core.RawTable{ExtraColumns: cols.extraNames}
	for i, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		raw := core.RawRecord{
			Year:     year,
			Month:    cell(rec, cols.month),
			Category: strings.TrimSpace(cell(rec, cols.category)),
			Amount:   cell(rec, cols.amount),
			Source:   source,
			Line:     lines[i+1],
		}
		// The folder name wins over an in-file year column
		if raw.Year == "" && cols.year >= 0 {
			raw.Year = strings.TrimSpace(cell(rec, cols.year))
		}
		if len(cols.extra) > 0 {
			raw.Extra = make(map[string]string, len(cols.extra))
			for j, idx := range cols.extra {
				raw.Extra[cols.extraNames[j]] = cell(rec, idx)
			}
		}
		out.Records = append(out.Records, raw)
	}
	return out, nil
}

func cell(rec []string, idx int) string {
	if idx < 0 || idx >= len(rec) {
		return ""
	}
	return rec[idx]
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func firstLine(b []byte) string {
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// sniffDelimiter picks the candidate occurring most often in the header,
// defaulting to a comma.
func sniffDelimiter(header string) rune {
	best, bestCount := ',', 0
	for _, d := range candidateDelimiters {
		if c := strings.Count(header, string(d)); c > bestCount {
			best, bestCount = d, c
		}
	}
	return best
}
