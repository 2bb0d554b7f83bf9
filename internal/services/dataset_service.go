// Package services orchestrates a dataset load: read, normalize, prepare
// the analytics engine, store the result and announce it.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"bilancio/internal/analytics"
	"bilancio/internal/core"
	"bilancio/internal/events"
	"bilancio/internal/loader"
	"bilancio/internal/log"
	"bilancio/internal/metrics"
	"bilancio/internal/session"
	"bilancio/internal/sheets"
)

var (
	ErrOutsideRoot    = errors.New("path is outside the data root")
	ErrSheetsDisabled = errors.New("google sheets source is not configured")
)

// Options configures a DatasetService. Publisher and Sheets are optional.
type Options struct {
	DataRoot   string // empty disables the folder restriction
	Engine     analytics.Engine
	Publisher  events.Publisher
	Sheets     sheets.Reader
	SessionMax int
	SessionTTL time.Duration
	Logger     *log.Logger
}

// DatasetService loads datasets into the session store and answers
// analysis requests against them.
type DatasetService struct {
	dataRoot   string
	engine     analytics.Engine
	publisher  events.Publisher
	sheets     sheets.Reader
	store      *session.Store
	logger     *log.Logger
	structured *log.StructuredLogger
	loads      singleflight.Group
}

func NewDatasetService(opts Options) *DatasetService {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	engine := opts.Engine
	if engine == nil {
		engine = analytics.MemoryEngine{}
	}
	publisher := opts.Publisher
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	maxSize := opts.SessionMax
	if maxSize <= 0 {
		maxSize = 32
	}
	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}

	s := &DatasetService{
		dataRoot:  opts.DataRoot,
		engine:    engine,
		publisher: publisher,
		sheets:    opts.Sheets,
		logger:    logger.WithComponent(log.ComponentSession),
	}
	s.structured = log.NewStructuredLogger(s.logger)
	s.store = session.NewStore(maxSize, ttl, session.WithCloseHook(s.released))
	return s
}

// released runs when a dataset leaves the store, whichever way: delete,
// eviction, idle expiry or shutdown.
func (s *DatasetService) released(d *session.Dataset, err error) {
	metrics.ActiveDatasets.Set(float64(s.store.Len()))
	if err != nil {
		s.logger.Warn("closing analyzer failed", log.FieldDatasetID, d.ID, log.FieldError, err)
	} else {
		s.logger.Debug("dataset released", log.FieldDatasetID, d.ID)
	}
	if err := s.publisher.Publish(context.Background(), events.NewDatasetDeleted(d.ID)); err != nil {
		s.logger.Warn("publish dataset event failed", log.FieldDatasetID, d.ID, log.FieldError, err)
	}
}

// Store exposes the session store for periodic expiry sweeps.
func (s *DatasetService) Store() *session.Store { return s.store }

// EngineName names the analytics engine in use.
func (s *DatasetService) EngineName() string { return s.engine.Name() }

// SheetsEnabled reports whether LoadSheets can be used.
func (s *DatasetService) SheetsEnabled() bool { return s.sheets != nil }

// ResolveFolder maps a user supplied path onto the data root. An empty
// path means the root itself; relative paths are taken from the root.
func (s *DatasetService) ResolveFolder(path string) (string, error) {
	path = strings.TrimSpace(path)
	if s.dataRoot == "" {
		if path == "" {
			return "", fmt.Errorf("%w: no folder given", loader.ErrNoData)
		}
		return filepath.Clean(path), nil
	}

	root, err := filepath.Abs(s.dataRoot)
	if err != nil {
		return "", fmt.Errorf("resolve data root: %w", err)
	}
	target := path
	if target == "" {
		target = root
	} else if !filepath.IsAbs(target) {
		target = filepath.Join(root, target)
	}
	target = filepath.Clean(target)

	rel, err := filepath.Rel(root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	return target, nil
}

// LoadFolder reads a root of year folders. Concurrent loads of the same
// folder share a single read.
func (s *DatasetService) LoadFolder(ctx context.Context, path string) (*session.Dataset, error) {
	started := time.Now()
	dir, err := s.ResolveFolder(path)
	if err != nil {
		metrics.ObserveLoad(session.SourceFolder, metrics.OutcomeFailed, 0, started)
		return nil, err
	}

	v, err, shared := s.loads.Do("folder:"+dir, func() (any, error) {
		raw, err := loader.NewFolder(dir, s.logger).Load(ctx)
		if err != nil {
			return nil, err
		}
		return core.Normalize(raw)
	})
	if shared {
		s.logger.DebugContext(ctx, "folder load shared", log.FieldFile, dir)
	}
	if err != nil {
		return nil, s.failed(ctx, session.SourceFolder, started, err)
	}
	return s.ingest(ctx, session.SourceFolder, dir, v.(*core.Table), started)
}

// LoadUpload reads a single CSV. The file has no year label unless it
// carries an anno column.
func (s *DatasetService) LoadUpload(ctx context.Context, filename string, r io.Reader) (*session.Dataset, error) {
	started := time.Now()
	raw, err := loader.ReadCSV(r, "", filename)
	if err != nil {
		return nil, s.failed(ctx, session.SourceUpload, started, err)
	}
	table, err := core.Normalize(raw)
	if err != nil {
		return nil, s.failed(ctx, session.SourceUpload, started, err)
	}
	return s.ingest(ctx, session.SourceUpload, filename, table, started)
}

// LoadSheets reads the configured spreadsheet.
func (s *DatasetService) LoadSheets(ctx context.Context) (*session.Dataset, error) {
	started := time.Now()
	if s.sheets == nil {
		return nil, ErrSheetsDisabled
	}
	ref := s.sheets.Ref()
	v, err, _ := s.loads.Do("sheets:"+ref, func() (any, error) {
		raw, err := s.sheets.Load(ctx)
		if err != nil {
			return nil, err
		}
		return core.Normalize(raw)
	})
	if err != nil {
		return nil, s.failed(ctx, session.SourceSheets, started, err)
	}
	return s.ingest(ctx, session.SourceSheets, ref, v.(*core.Table), started)
}

func (s *DatasetService) failed(ctx context.Context, source string, started time.Time, err error) error {
	outcome := metrics.OutcomeFailed
	if errors.Is(err, loader.ErrNoData) {
		outcome = metrics.OutcomeEmpty
	}
	metrics.ObserveLoad(source, outcome, 0, started)
	s.structured.LogError(ctx, "dataset load failed", err, log.ComponentLoader, log.OpLoad,
		log.LogFields{log.FieldSource: source})
	return err
}

// ingest prepares the engine over an already normalized table. The table
// is shared between concurrent loads of the same source and is never
// mutated afterwards.
func (s *DatasetService) ingest(ctx context.Context, source, label string, table *core.Table, started time.Time) (*session.Dataset, error) {
	if table.Len() == 0 {
		metrics.ObserveLoad(source, metrics.OutcomeEmpty, 0, started)
		return nil, fmt.Errorf("%w: %s", loader.ErrNoData, label)
	}

	analyzer, err := s.engine.Prepare(ctx, table)
	if err != nil {
		return nil, s.failed(ctx, source, started, fmt.Errorf("prepare %s engine: %w", s.engine.Name(), err))
	}

	d := &session.Dataset{
		Source:   source,
		Label:    label,
		Table:    table,
		Analyzer: analyzer,
		LoadedAt: time.Now(),
	}
	s.store.Put(d)
	metrics.ActiveDatasets.Set(float64(s.store.Len()))
	metrics.ObserveLoad(source, metrics.OutcomeOK, table.Len(), started)
	years := table.Years()
	s.structured.LogDatasetLoaded(ctx, d.ID, source, table.Len(), years)

	event := events.NewDatasetLoaded(d.ID, source, label, table.Len(), years)
	if err := s.publisher.Publish(ctx, event); err != nil {
		// the dataset is usable without the notification
		s.logger.WarnContext(ctx, "publish dataset event failed", log.FieldDatasetID, d.ID, log.FieldError, err)
	}
	return d, nil
}

func (s *DatasetService) Get(id string) (*session.Dataset, error) {
	return s.store.Get(id)
}

// Analyze runs the selection against a stored dataset.
func (s *DatasetService) Analyze(ctx context.Context, id string, sel analytics.Selection) (*session.Dataset, analytics.Report, error) {
	d, done, err := s.store.Acquire(id)
	if err != nil {
		return nil, analytics.Report{}, err
	}
	defer done()
	report, err := d.Analyzer.Analyze(ctx, sel)
	if err != nil {
		return d, analytics.Report{}, fmt.Errorf("analyze %s: %w", id, err)
	}
	return d, report, nil
}

// Delete discards a dataset. The deletion is announced once its analyzer
// is closed.
func (s *DatasetService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "dataset deleted", log.FieldDatasetID, id, log.FieldOperation, log.OpDelete)
	return nil
}

// Close releases every stored dataset.
func (s *DatasetService) Close() {
	s.store.Close()
}
