package engine

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"bundlescan/internal/scanindex"
)

// SystemInfoSummary collects identity lines from system-info sections.
type SystemInfoSummary struct {
	Scanned  int
	KeyLines []string
}

// PerformanceSummary carries load signals from performance sections.
type PerformanceSummary struct {
	Scanned       int
	CPUSpike      bool
	HighLoadLines []string
}

// LicensingSummary flags expired entitlements.
type LicensingSummary struct {
	Scanned     int
	Expired     bool
	ExpiryLines []string
}

// SecuritySummary collects alert lines from security sections.
type SecuritySummary struct {
	Scanned    int
	AlertLines []string
}

// CoreDumpSummary collects crash evidence from core-dump sections.
type CoreDumpSummary struct {
	Scanned       int
	CrashDetected bool
	CrashLines    []string
}

// NetworkSummary collects config-issue lines from network sections.
type NetworkSummary struct {
	Scanned    int
	IssueLines []string
}

// SemanticSummary is the aggregate view of one indexed file.
type SemanticSummary struct {
	TotalSections int
	PerCategory   map[scanindex.Category]int
	FileSize      int64
	BuildDuration time.Duration
}

// ProcessingCache bundles the pre-computed category summaries for one path
// together with the search-result and section-content sub-caches.
type ProcessingCache struct {
	mu          sync.RWMutex
	initialized bool
	cachedAt    time.Time

	systemInfo  *SystemInfoSummary
	performance *PerformanceSummary
	licensing   *LicensingSummary
	security    *SecuritySummary
	coreDump    *CoreDumpSummary
	network     *NetworkSummary
	semantic    *SemanticSummary

	searchCache  map[uint64]scanindex.SearchResult
	contentCache map[string]string
}

func newProcessingCache() *ProcessingCache {
	return &ProcessingCache{
		searchCache:  make(map[uint64]scanindex.SearchResult),
		contentCache: make(map[string]string),
	}
}

// Snapshot is the read-only view of a ProcessingCache handed to callers.
// The summary pointers are shared; callers must not mutate them.
type Snapshot struct {
	Initialized bool
	CachedAt    time.Time
	SystemInfo  *SystemInfoSummary
	Performance *PerformanceSummary
	Licensing   *LicensingSummary
	Security    *SecuritySummary
	CoreDump    *CoreDumpSummary
	Network     *NetworkSummary
	Semantic    *SemanticSummary
}

func (pc *ProcessingCache) snapshot() Snapshot {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return Snapshot{
		Initialized: pc.initialized,
		CachedAt:    pc.cachedAt,
		SystemInfo:  pc.systemInfo,
		Performance: pc.performance,
		Licensing:   pc.licensing,
		Security:    pc.security,
		CoreDump:    pc.coreDump,
		Network:     pc.network,
		Semantic:    pc.semantic,
	}
}

func (pc *ProcessingCache) isInitialized() bool {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.initialized
}

func (pc *ProcessingCache) setSemantic(s *SemanticSummary) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.semantic = s
}

// clearDerived resets the search and content sub-caches. Called whenever a
// reclassification changes categorization, since cached results may now
// disagree with the index.
func (pc *ProcessingCache) clearDerived() {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.searchCache = make(map[uint64]scanindex.SearchResult)
	pc.contentCache = make(map[string]string)
}

func (pc *ProcessingCache) cachedSearch(key uint64) (scanindex.SearchResult, bool) {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	res, ok := pc.searchCache[key]
	return res, ok
}

func (pc *ProcessingCache) storeSearch(key uint64, res scanindex.SearchResult) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.searchCache[key] = res
}

func (pc *ProcessingCache) cachedContent(name string) (string, bool) {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	text, ok := pc.contentCache[strings.ToLower(name)]
	return text, ok
}

func (pc *ProcessingCache) storeContent(name, text string) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.contentCache[strings.ToLower(name)] = text
}

// searchKey hashes the canonicalized query signature: lowercased query,
// category, and paging parameters.
func searchKey(query string, cat *scanindex.Category, page, pageSize int) uint64 {
	h := xxhash.New()
	h.WriteString(strings.ToLower(query))
	h.WriteString("|")
	if cat != nil {
		h.WriteString(cat.String())
	}
	fmt.Fprintf(h, "|%d|%d", page, pageSize)
	return h.Sum64()
}
