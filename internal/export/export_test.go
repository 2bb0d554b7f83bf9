package export

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"bilancio/internal/analytics"
	"bilancio/internal/core"
	"bilancio/internal/loader"
)

func sampleTable(t *testing.T) *core.Table {
	t.Helper()
	tbl, err := core.Normalize(core.RawTable{
		ExtraColumns: []string{"note"},
		Records: []core.RawRecord{
			{Year: "2023", Month: "Gennaio", Category: "Stipendio", Amount: "1500,00"},
			{Year: "2023", Month: "Gennaio", Category: "Affitto", Amount: "500,00", Extra: map[string]string{"note": "gen"}},
			{Year: "2023", Month: "Febbraio", Category: "Affitto", Amount: "520,00"},
		},
	})
	require.NoError(t, err)
	return tbl
}

func TestWriteCSVRoundTrip(t *testing.T) {
	tbl := sampleTable(t)
	layout := Layout{ExtraColumns: tbl.ExtraColumns}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, layout, tbl.Rows))
	assert.True(t, strings.HasPrefix(buf.String(), "mese,categoria,importo,note\n"))

	raw, err := loader.ReadCSV(&buf, "2023", "export.csv")
	require.NoError(t, err)
	back, err := core.Normalize(raw)
	require.NoError(t, err)
	require.Equal(t, tbl.Len(), back.Len())
	for i := range tbl.Rows {
		assert.True(t, tbl.Rows[i].Amount.Equal(back.Rows[i].Amount))
		assert.Equal(t, tbl.Rows[i].Month, back.Rows[i].Month)
		assert.Equal(t, tbl.Rows[i].Extra["note"], back.Rows[i].Extra["note"])
	}
}

func TestWriteCSVMultiYear(t *testing.T) {
	tbl := sampleTable(t)
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, Layout{MultiYear: true}, tbl.Rows[:1]))
	assert.Equal(t, "anno,mese,categoria,importo\n2023,Gennaio,Stipendio,1500\n", buf.String())
}

func TestWriteXLSX(t *testing.T) {
	tbl := sampleTable(t)
	a, err := analytics.MemoryEngine{}.Prepare(context.Background(), tbl)
	require.NoError(t, err)
	report, err := a.Analyze(context.Background(), analytics.Selection{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, Layout{MultiYear: true, ExtraColumns: tbl.ExtraColumns}, report))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetRows)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"anno", "mese", "categoria", "importo", "note"}, rows[0])
	assert.Equal(t, "Affitto", rows[2][2])

	cats, err := f.GetRows(sheetCategories)
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "Affitto", cats[1][0])
	assert.Equal(t, "100.0%", cats[1][2])
}
