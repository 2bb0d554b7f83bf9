// Package session keeps loaded datasets addressable by id between
// requests.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"bilancio/internal/analytics"
	"bilancio/internal/cache"
	"bilancio/internal/core"
)

var ErrNotFound = errors.New("dataset not found")

// Source kinds.
const (
	SourceFolder = "folder"
	SourceUpload = "upload"
	SourceSheets = "sheets"
)

// Dataset is a normalized table together with the analyzer prepared for
// it.
type Dataset struct {
	ID       string
	Source   string
	Label    string // folder path, file name or spreadsheet id
	Table    *core.Table
	Analyzer analytics.Analyzer
	LoadedAt time.Time

	mu      sync.Mutex
	users   int
	evicted bool
}

// acquire registers a user of the analyzer. It fails once the dataset has
// left the store.
func (d *Dataset) acquire() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.evicted {
		return false
	}
	d.users++
	return true
}

// MultiYear reports whether the dataset came from year folders.
func (d *Dataset) MultiYear() bool {
	return d.Table.HasYears()
}

// Store holds datasets with an idle expiry and a size bound. A dataset
// leaving the store has its analyzer closed once no Acquire holds it.
type Store struct {
	cache   *cache.LRUCache[*Dataset]
	onClose func(*Dataset, error)
}

type StoreOption func(*storeConfig)

type storeConfig struct {
	clock   func() time.Time
	onClose func(*Dataset, error)
}

func WithClock(now func() time.Time) StoreOption {
	return func(c *storeConfig) { c.clock = now }
}

// WithCloseHook is called once per dataset, after its analyzer is closed.
func WithCloseHook(fn func(*Dataset, error)) StoreOption {
	return func(c *storeConfig) { c.onClose = fn }
}

func NewStore(maxSize int, ttl time.Duration, opts ...StoreOption) *Store {
	cfg := storeConfig{clock: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	s := &Store{onClose: cfg.onClose}
	s.cache = cache.NewLRUCache[*Dataset](maxSize, ttl,
		cache.WithClock[*Dataset](cfg.clock),
		cache.WithSlidingTTL[*Dataset](),
		cache.WithEvictHandler(s.evict),
	)
	return s
}

func (s *Store) evict(_ string, d *Dataset) {
	d.mu.Lock()
	d.evicted = true
	idle := d.users == 0
	d.mu.Unlock()
	if idle {
		s.close(d)
	}
}

func (s *Store) done(d *Dataset) {
	d.mu.Lock()
	d.users--
	last := d.evicted && d.users == 0
	d.mu.Unlock()
	if last {
		s.close(d)
	}
}

func (s *Store) close(d *Dataset) {
	var err error
	if d.Analyzer != nil {
		err = d.Analyzer.Close()
	}
	if s.onClose != nil {
		s.onClose(d, err)
	}
}

// Put stores d, assigning a fresh id when it has none, and returns the id.
func (s *Store) Put(d *Dataset) string {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	s.cache.Set(d.ID, d)
	return d.ID
}

func (s *Store) Get(id string) (*Dataset, error) {
	d, ok := s.cache.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return d, nil
}

// Acquire returns the dataset and keeps its analyzer open until done is
// called, even if the dataset is evicted meanwhile.
func (s *Store) Acquire(id string) (d *Dataset, done func(), err error) {
	d, err = s.Get(id)
	if err != nil {
		return nil, nil, err
	}
	if !d.acquire() {
		return nil, nil, ErrNotFound
	}
	var once sync.Once
	return d, func() { once.Do(func() { s.done(d) }) }, nil
}

func (s *Store) Delete(id string) error {
	if !s.cache.Delete(id) {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Len() int { return s.cache.Size() }

// CleanExpired satisfies cache.Cleaner.
func (s *Store) CleanExpired() int { return s.cache.CleanExpired() }

// Close releases every dataset.
func (s *Store) Close() {
	s.cache.Clear()
}
