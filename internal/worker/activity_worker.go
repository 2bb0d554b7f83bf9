// Package worker turns consumed dataset events into an activity journal.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"bilancio/internal/events"
	"bilancio/internal/log"
	"bilancio/internal/metrics"
)

// Event results for metrics.
const (
	ResultRecorded = "recorded"
	ResultIgnored  = "ignored"
	ResultFailed   = "failed"
)

// Entry is one journal line.
type Entry struct {
	ReceivedAt time.Time            `json:"received_at"`
	Event      *events.DatasetEvent `json:"event"`
}

// Stats summarizes what the worker has seen since it started.
type Stats struct {
	Loaded     int
	Deleted    int
	Active     int
	ActiveRows int
}

// ActivityWorker appends every dataset event to a JSON-lines journal and
// tracks which datasets are still open.
type ActivityWorker struct {
	mu      sync.Mutex
	journal *json.Encoder
	active  map[string]int // dataset id -> rows
	loaded  int
	deleted int

	logger *log.Logger
	now    func() time.Time
}

func NewActivityWorker(journal io.Writer, logger *log.Logger) *ActivityWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ActivityWorker{
		journal: json.NewEncoder(journal),
		active:  make(map[string]int),
		logger:  logger.WithComponent(log.ComponentWorker),
		now:     time.Now,
	}
}

// Handle satisfies events.Handler. Events without a dataset id or with an
// unknown type are acknowledged and skipped.
func (w *ActivityWorker) Handle(ctx context.Context, e *events.DatasetEvent) error {
	if e.DatasetID == "" || (e.Type != events.TypeDatasetLoaded && e.Type != events.TypeDatasetDeleted) {
		metrics.EventsConsumed.WithLabelValues("unknown", ResultIgnored).Inc()
		w.logger.WarnContext(ctx, "event ignored", "type", e.Type, log.FieldDatasetID, e.DatasetID)
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.journal.Encode(Entry{ReceivedAt: w.now(), Event: e}); err != nil {
		metrics.EventsConsumed.WithLabelValues(e.Type, ResultFailed).Inc()
		return fmt.Errorf("write journal: %w", err)
	}

	switch e.Type {
	case events.TypeDatasetLoaded:
		w.loaded++
		w.active[e.DatasetID] = e.Rows
		w.logger.InfoContext(ctx, "dataset loaded",
			log.FieldDatasetID, e.DatasetID,
			log.FieldSource, e.Source,
			log.FieldRows, e.Rows)
	case events.TypeDatasetDeleted:
		w.deleted++
		delete(w.active, e.DatasetID)
		w.logger.InfoContext(ctx, "dataset deleted", log.FieldDatasetID, e.DatasetID)
	}
	metrics.EventsConsumed.WithLabelValues(e.Type, ResultRecorded).Inc()
	return nil
}

func (w *ActivityWorker) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	s := Stats{Loaded: w.loaded, Deleted: w.deleted, Active: len(w.active)}
	for _, rows := range w.active {
		s.ActiveRows += rows
	}
	return s
}

// ReportEvery logs Stats on each tick until ctx ends.
func (w *ActivityWorker) ReportEvery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := w.Stats()
			w.logger.InfoContext(ctx, "activity summary",
				"loaded", s.Loaded,
				"deleted", s.Deleted,
				"active", s.Active,
				"active_rows", s.ActiveRows)
		}
	}
}
