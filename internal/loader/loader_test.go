package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bilancio/internal/core"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestReadCSVComma(t *testing.T) {
	in := "mese,categoria,importo\nGennaio,Stipendio,\"2000,00\"\nGennaio,Spesa,45.5\n"
	tbl, err := ReadCSV(strings.NewReader(in), "", "upload.csv")
	require.NoError(t, err)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, "2000,00", tbl.Records[0].Amount)
	assert.Equal(t, "Spesa", tbl.Records[1].Category)
	assert.Equal(t, 3, tbl.Records[1].Line)
	assert.Empty(t, tbl.ExtraColumns)
}

func TestReadCSVSemicolonWithBOMAndExtras(t *testing.T) {
	in := "\xEF\xBB\xBFMese;Categoria;Importo;Note\nMarzo;Casa;12,30;luce\n\nAprile;Casa;8;\n"
	tbl, err := ReadCSV(strings.NewReader(in), "2023", "2023/casa.csv")
	require.NoError(t, err)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, []string{"Note"}, tbl.ExtraColumns)
	assert.Equal(t, "luce", tbl.Records[0].Extra["Note"])
	assert.Equal(t, "12,30", tbl.Records[0].Amount)
	assert.Equal(t, "2023", tbl.Records[1].Year)
}

func TestReadCSVMissingColumn(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("mese,importo\nGennaio,1\n"), "", "x.csv")
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrMissingColumn))
	assert.Contains(t, err.Error(), "categoria")

	_, err = ReadCSV(strings.NewReader(""), "", "empty.csv")
	assert.True(t, errors.Is(err, core.ErrMissingColumn))
}

func TestReadCSVHeaderOnly(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("mese,categoria,importo\n"), "", "h.csv")
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Len())
}

func TestSniffDelimiter(t *testing.T) {
	assert.Equal(t, ',', sniffDelimiter("mese,categoria,importo"))
	assert.Equal(t, ';', sniffDelimiter("mese;categoria;importo"))
	assert.Equal(t, '\t', sniffDelimiter("mese\tcategoria\timporto"))
	assert.Equal(t, ',', sniffDelimiter("mese"))
}

func TestFolderLoad(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "2022", "a.csv"), "mese,categoria,importo\nDicembre,Spesa,10\n")
	writeFile(t, filepath.Join(root, "2023", "a.csv"), "mese,categoria,importo,note\nGennaio,Stipendio,1000,gen\n")
	writeFile(t, filepath.Join(root, "2023", "b.csv"), "mese,categoria,importo\nGennaio,Spesa,5\n")
	writeFile(t, filepath.Join(root, "2023", "readme.txt"), "ignored")
	writeFile(t, filepath.Join(root, "stray.csv"), "mese,categoria,importo\nGennaio,Spesa,999\n")

	tbl, err := NewFolder(root, nil).Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, tbl.Len())

	years := map[string]int{}
	for _, r := range tbl.Records {
		years[r.Year]++
		assert.NotEqual(t, "999", r.Amount, "root-level files must be ignored")
	}
	assert.Equal(t, map[string]int{"2022": 1, "2023": 2}, years)
	assert.Equal(t, []string{"note"}, tbl.ExtraColumns)
}

func TestFolderLoadMissingRoot(t *testing.T) {
	_, err := NewFolder(filepath.Join(t.TempDir(), "nope"), nil).Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoData))
}

func TestFolderLoadEmptyRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "2024"), 0o755))
	tbl, err := NewFolder(root, nil).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Len())
}

func TestFolderLoadPropagatesBadFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "2023", "bad.csv"), "mese,importo\nGennaio,1\n")
	_, err := NewFolder(root, nil).Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrMissingColumn))
	assert.Contains(t, err.Error(), "bad.csv")
}

func TestFromRecords(t *testing.T) {
	tbl, err := FromRecords([][]string{
		{"mese", "categoria", "importo"},
		{"Maggio", "Spesa", "3"},
		{"Giugno", "Spesa"},
	}, "2024", "2024")
	require.NoError(t, err)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, "", tbl.Records[1].Amount)
	assert.Equal(t, 3, tbl.Records[1].Line)
}
