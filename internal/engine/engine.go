// Package engine orchestrates bundle analysis: it memoizes readers per file
// path, runs the multi-stage precache pipeline, tracks initialization
// status, and evicts idle state on a time-to-live.
package engine

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"bundlescan/internal/bundle"
	"bundlescan/internal/config"
	"bundlescan/internal/scanindex"
)

// Reader is the engine's view of a loaded bundle file.
type Reader interface {
	Index() (*scanindex.Index, error)
	ReadSectionByOffset(offset int64, size int) (string, error)
	Size() int64
	Close() error
}

// Engine owns all per-path state: the reader holder, the processing cache,
// the initialization status record, and the last-access timestamp. It is an
// explicit instance rather than ambient package state so tests and embedders
// construct isolated engines.
type Engine struct {
	cfg    config.Settings
	logger *slog.Logger

	// loadReader builds a Reader for a path; replaced by tests.
	loadReader func(path string) (Reader, error)

	mu         sync.Mutex
	readers    map[string]Reader
	caches     map[string]*ProcessingCache
	statuses   map[string]*InitStatus
	lastAccess map[string]time.Time

	loadGroup  singleflight.Group
	initGroup  singleflight.Group
	evictGroup singleflight.Group

	watchMu sync.Mutex
	watcher watcher

	done chan struct{}
}

// New constructs an engine from resolved settings.
func New(cfg config.Settings, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		cfg:        cfg,
		logger:     logger,
		readers:    make(map[string]Reader),
		caches:     make(map[string]*ProcessingCache),
		statuses:   make(map[string]*InitStatus),
		lastAccess: make(map[string]time.Time),
	}
	e.loadReader = func(path string) (Reader, error) {
		return bundle.LoadFile(path, bundle.Options{
			Encoding: cfg.Encoding,
			Logger:   logger,
			Scan: scanindex.Options{
				ChunkSize: cfg.ChunkSize,
				Encoding:  cfg.Encoding,
				Logger:    logger,
			},
		})
	}
	return e
}

// touch records an access to path and kicks an opportunistic eviction check.
func (e *Engine) touch(path string) {
	e.mu.Lock()
	e.lastAccess[path] = time.Now()
	e.mu.Unlock()
	go e.EvictStale()
}

// GetReader returns the memoized reader for path, loading it on first use.
// Concurrent callers for the same path share one in-flight load; a failed
// load leaves no cache entry, so a later call retries cleanly.
func (e *Engine) GetReader(path string) (Reader, error) {
	e.touch(path)

	e.mu.Lock()
	if r, ok := e.readers[path]; ok {
		e.mu.Unlock()
		return r, nil
	}
	e.mu.Unlock()

	v, err, _ := e.loadGroup.Do(path, func() (any, error) {
		// Re-check: a previous flight may have stored the reader
		// between our map check and joining the group.
		e.mu.Lock()
		if r, ok := e.readers[path]; ok {
			e.mu.Unlock()
			return r, nil
		}
		e.mu.Unlock()

		r, err := e.loadReader(path)
		if err != nil {
			return nil, err
		}
		e.mu.Lock()
		e.readers[path] = r
		e.mu.Unlock()
		e.watchPath(path)
		return r, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Reader), nil
}

// cache returns the ProcessingCache for path, creating it on first access.
func (e *Engine) cache(path string) *ProcessingCache {
	e.mu.Lock()
	defer e.mu.Unlock()
	pc, ok := e.caches[path]
	if !ok {
		pc = newProcessingCache()
		e.caches[path] = pc
	}
	return pc
}

func (e *Engine) statusState(path string) State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok := e.statuses[path]; ok {
		return st.State
	}
	return StateNotStarted
}

// SearchSections serves a paginated section search through the per-path
// search cache. Results are keyed by the canonicalized query signature.
func (e *Engine) SearchSections(path, query string, cat *scanindex.Category, page, pageSize int) (scanindex.SearchResult, error) {
	e.touch(path)
	pc := e.cache(path)

	key := searchKey(query, cat, page, pageSize)
	if res, ok := pc.cachedSearch(key); ok {
		return res, nil
	}

	r, err := e.GetReader(path)
	if err != nil {
		return scanindex.SearchResult{}, err
	}
	ix, err := r.Index()
	if err != nil {
		return scanindex.SearchResult{}, err
	}

	res := ix.SearchSections(query, cat, page, pageSize)
	pc.storeSearch(key, res)
	return res, nil
}

// SectionContent returns the full decoded content of the named section,
// cached under the lowercased name.
func (e *Engine) SectionContent(path, name string) (string, error) {
	e.touch(path)
	pc := e.cache(path)

	if text, ok := pc.cachedContent(name); ok {
		return text, nil
	}

	r, err := e.GetReader(path)
	if err != nil {
		return "", err
	}
	ix, err := r.Index()
	if err != nil {
		return "", err
	}

	var target *scanindex.Section
	for _, s := range ix.FindSectionsContaining(name, false) {
		if strings.EqualFold(s.Name, name) {
			target = s
			break
		}
	}
	if target == nil {
		return "", fmt.Errorf("no section named %q in %s", name, path)
	}

	text, err := r.ReadSectionByOffset(target.StartOffset, int(target.Size()))
	if err != nil {
		return "", err
	}
	pc.storeContent(name, text)
	return text, nil
}

// ReclassifySection moves a section to a new category and drops the derived
// sub-caches, since cached search pages and category counts are now stale.
func (e *Engine) ReclassifySection(path, name string, to scanindex.Category) (bool, error) {
	e.touch(path)
	r, err := e.GetReader(path)
	if err != nil {
		return false, err
	}
	ix, err := r.Index()
	if err != nil {
		return false, err
	}

	ok := ix.ReclassifySection(name, to)
	if ok {
		e.cache(path).clearDerived()
		if _, err := e.RecomputeSemanticSummary(path); err != nil {
			return ok, err
		}
	}
	return ok, nil
}

// BulkReclassifyUnknown applies pattern mappings to every unknown section
// and refreshes the derived caches when anything moved.
func (e *Engine) BulkReclassifyUnknown(path string, mappings []scanindex.PatternMapping) (scanindex.BulkResult, error) {
	e.touch(path)
	r, err := e.GetReader(path)
	if err != nil {
		return scanindex.BulkResult{}, err
	}
	ix, err := r.Index()
	if err != nil {
		return scanindex.BulkResult{}, err
	}

	res := ix.BulkReclassifyUnknown(mappings)
	if res.Reclassified > 0 {
		e.cache(path).clearDerived()
		if _, err := e.RecomputeSemanticSummary(path); err != nil {
			return res, err
		}
	}
	return res, nil
}

// RecomputeSemanticSummary refreshes only the aggregate counts without
// rerunning the precache pipeline.
func (e *Engine) RecomputeSemanticSummary(path string) (Snapshot, error) {
	e.touch(path)
	r, err := e.GetReader(path)
	if err != nil {
		return Snapshot{}, err
	}
	ix, err := r.Index()
	if err != nil {
		return Snapshot{}, err
	}

	pc := e.cache(path)
	pc.setSemantic(semanticSummaryFrom(ix, r.Size()))
	return pc.snapshot(), nil
}

func semanticSummaryFrom(ix *scanindex.Index, fileSize int64) *SemanticSummary {
	stats := ix.Stats()
	return &SemanticSummary{
		TotalSections: stats.TotalSections,
		PerCategory:   stats.PerCategory,
		FileSize:      fileSize,
		BuildDuration: stats.BuildDuration,
	}
}
