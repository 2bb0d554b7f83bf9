package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"bilancio/internal/core"
	"bilancio/internal/log"
)

// Folder loads every "*.csv" file found one level below root. Each
// subfolder name becomes the year label of its rows; files sitting
// directly in root are ignored.
type Folder struct {
	root   string
	logger *log.Logger
}

func NewFolder(root string, logger *log.Logger) *Folder {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Folder{root: root, logger: logger.WithComponent(log.ComponentLoader)}
}

// Load returns the concatenation of all year files. A missing root is
// ErrNoData; a root without CSV files yields an empty table.
func (f *Folder) Load(ctx context.Context) (core.RawTable, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return core.RawTable{}, fmt.Errorf("%w: %s does not exist", ErrNoData, f.root)
		}
		return core.RawTable{}, fmt.Errorf("read %s: %w", f.root, err)
	}

	var tables []core.RawTable
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		year := entry.Name()
		files, err := os.ReadDir(filepath.Join(f.root, year))
		if err != nil {
			return core.RawTable{}, fmt.Errorf("read %s: %w", year, err)
		}
		for _, file := range files {
			if file.IsDir() || !strings.HasSuffix(file.Name(), ".csv") {
				continue
			}
			if err := ctx.Err(); err != nil {
				return core.RawTable{}, err
			}
			rel := filepath.Join(year, file.Name())
			t, err := f.readFile(filepath.Join(f.root, rel), year, rel)
			if err != nil {
				return core.RawTable{}, err
			}
			f.logger.DebugContext(ctx, "file loaded", log.FieldFile, rel, log.FieldRows, t.Len())
			tables = append(tables, t)
		}
	}
	return core.Concat(tables...), nil
}

func (f *Folder) readFile(path, year, source string) (core.RawTable, error) {
	fh, err := os.Open(path)
	if err != nil {
		return core.RawTable{}, fmt.Errorf("open %s: %w", source, err)
	}
	defer fh.Close()
	return ReadCSV(fh, year, source)
}

// LoadFile reads a single CSV without a year label.
func LoadFile(path string) (core.RawTable, error) {
	fh, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return core.RawTable{}, fmt.Errorf("%w: %s does not exist", ErrNoData, path)
		}
		return core.RawTable{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer fh.Close()
	return ReadCSV(fh, "", filepath.Base(path))
}
