package scanindex

import (
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Stats are the aggregate figures for one built index.
type Stats struct {
	TotalSections int
	PerCategory   map[Category]int
	BuildDuration time.Duration
}

// Index owns the ordered section list for one file plus the derived
// per-category view. Built once per load; mutable afterward only through
// reclassification, which is why every accessor takes the lock.
type Index struct {
	mu         sync.RWMutex
	path       string
	fileSize   int64
	sections   []*Section
	byCategory map[Category][]*Section
	stats      Stats
	logger     *slog.Logger
}

func newIndex(path string, fileSize int64, sections []*Section, logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.Default()
	}
	ix := &Index{
		path:     path,
		fileSize: fileSize,
		sections: sections,
		logger:   logger,
	}
	ix.rebuildCategoriesLocked()
	return ix
}

// rebuildCategoriesLocked rebuilds the category view and counts from the
// section list. Callers must hold mu (or own the index exclusively).
func (ix *Index) rebuildCategoriesLocked() {
	byCat := make(map[Category][]*Section)
	counts := make(map[Category]int)
	for _, s := range ix.sections {
		byCat[s.Type] = append(byCat[s.Type], s)
		counts[s.Type]++
	}
	ix.byCategory = byCat
	ix.stats.PerCategory = counts
	ix.stats.TotalSections = len(ix.sections)
}

// Path returns the indexed file's path.
func (ix *Index) Path() string { return ix.path }

// FileSize returns the indexed file's total byte size.
func (ix *Index) FileSize() int64 { return ix.fileSize }

// Stats returns a copy of the aggregate statistics.
func (ix *Index) Stats() Stats {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := ix.stats
	out.PerCategory = make(map[Category]int, len(ix.stats.PerCategory))
	for c, n := range ix.stats.PerCategory {
		out.PerCategory[c] = n
	}
	return out
}

// AllSections returns every section in ascending start-offset order.
func (ix *Index) AllSections() []*Section {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return append([]*Section(nil), ix.sections...)
}

// SectionsByType returns the sections of one category in offset order.
func (ix *Index) SectionsByType(cat Category) []*Section {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return append([]*Section(nil), ix.byCategory[cat]...)
}

// UnknownSections returns the sections classification could not place.
func (ix *Index) UnknownSections() []*Section {
	return ix.SectionsByType(Unknown)
}

// FindSectionsContaining returns sections whose name contains keyword.
func (ix *Index) FindSectionsContaining(keyword string, caseSensitive bool) []*Section {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if !caseSensitive {
		keyword = strings.ToLower(keyword)
	}
	var out []*Section
	for _, s := range ix.sections {
		name := s.Name
		if !caseSensitive {
			name = strings.ToLower(name)
		}
		if strings.Contains(name, keyword) {
			out = append(out, s)
		}
	}
	return out
}

// SearchResult is one page of section search hits.
type SearchResult struct {
	Sections   []*Section
	Page       int
	PageSize   int
	TotalCount int
	TotalPages int
	HasNext    bool
	HasPrev    bool
}

// DefaultPageSize applies when a search request passes a page size of zero.
const DefaultPageSize = 20

// SearchSections finds sections whose name contains query, case-insensitive,
// optionally restricted to one category, and returns the requested page.
// A nil cat means all categories; page numbering starts at 1.
func (ix *Index) SearchSections(query string, cat *Category, page, pageSize int) SearchResult {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	q := strings.ToLower(query)
	var hits []*Section
	for _, s := range ix.sections {
		if cat != nil && s.Type != *cat {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(s.Name), q) {
			continue
		}
		hits = append(hits, s)
	}

	total := len(hits)
	totalPages := (total + pageSize - 1) / pageSize
	startIdx := (page - 1) * pageSize
	endIdx := startIdx + pageSize
	if startIdx > total {
		startIdx = total
	}
	if endIdx > total {
		endIdx = total
	}

	return SearchResult{
		Sections:   append([]*Section(nil), hits[startIdx:endIdx]...),
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1 && total > 0,
	}
}

// SemanticCategories returns the section names grouped by category, in
// offset order within each category. Empty categories are omitted.
func (ix *Index) SemanticCategories() map[Category][]string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	out := make(map[Category][]string, len(ix.byCategory))
	for cat, secs := range ix.byCategory {
		names := make([]string, len(secs))
		for i, s := range secs {
			names[i] = s.Name
		}
		out[cat] = names
	}
	return out
}
