package engine

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"golang.org/x/text/encoding/unicode"

	"bundlescan/internal/bundle"
	"bundlescan/internal/config"
	"bundlescan/internal/scanindex"
)

// countingReader wraps a real bundle reader and counts section reads and
// closes so tests can observe pipeline work.
type countingReader struct {
	inner  *bundle.Reader
	mu     sync.Mutex
	reads  int
	closes int
}

func (c *countingReader) Index() (*scanindex.Index, error) { return c.inner.Index() }
func (c *countingReader) Size() int64                      { return c.inner.Size() }

func (c *countingReader) ReadSectionByOffset(offset int64, size int) (string, error) {
	c.mu.Lock()
	c.reads++
	c.mu.Unlock()
	return c.inner.ReadSectionByOffset(offset, size)
}

func (c *countingReader) Close() error {
	c.mu.Lock()
	c.closes++
	c.mu.Unlock()
	return c.inner.Close()
}

func (c *countingReader) readCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}

func (c *countingReader) closeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes
}

func pad(b *bytes.Buffer, line string, n int) {
	for i := 0; i < n; i++ {
		fmt.Fprintln(b, line)
	}
}

// writeBundleFixture lays out one section per category of interest, each
// comfortably above the minimum section size.
func writeBundleFixture(t *testing.T) string {
	t.Helper()
	var b bytes.Buffer
	b.WriteString("==== uname -a ====\n")
	b.WriteString("appliance hostname gw-lab-01 version 4.2.1\n")
	pad(&b, "hardware inventory row", 10)
	b.WriteString("==== cpu utilization ====\n")
	b.WriteString("cpu0 usage high for 300s\n")
	pad(&b, "idle 12%", 15)
	b.WriteString("==== license summary ====\n")
	b.WriteString("bundle feature pack expired on 2025-12-01\n")
	pad(&b, "entitlement row", 10)
	b.WriteString("==== security audit ====\n")
	b.WriteString("login denied for admin from 10.1.1.9\n")
	pad(&b, "audit row", 10)
	b.WriteString("==== crash report ====\n")
	b.WriteString("segfault in fwd at 0x00007f\n")
	pad(&b, "stack frame", 10)
	b.WriteString("==== interface counters ====\n")
	b.WriteString("eth1 link down, 42 errors\n")
	pad(&b, "eth0 ok", 10)
	b.WriteString("==== zzz mystery blob ====\n")
	pad(&b, "opaque payload", 10)

	path := filepath.Join(t.TempDir(), "bundle.txt")
	if err := os.WriteFile(path, b.Bytes(), 0644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

// newTestEngine wires an engine whose loads go through countingReader.
func newTestEngine(t *testing.T, ttl time.Duration) (*Engine, *sync.Map) {
	t.Helper()
	cfg := config.Settings{
		ChunkSize:        1024,
		EncodingName:     "utf-8",
		Encoding:         unicode.UTF8,
		CacheTTL:         ttl,
		EvictionInterval: time.Hour,
	}
	e := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	readers := &sync.Map{} // path -> *countingReader
	e.loadReader = func(path string) (Reader, error) {
		r, err := bundle.LoadFile(path, bundle.Options{
			Encoding: cfg.Encoding,
			Logger:   e.logger,
			Scan: scanindex.Options{
				ChunkSize: cfg.ChunkSize,
				Logger:    e.logger,
			},
		})
		if err != nil {
			return nil, err
		}
		cr := &countingReader{inner: r}
		readers.Store(path, cr)
		return cr, nil
	}
	return e, readers
}

func trackedReader(t *testing.T, readers *sync.Map, path string) *countingReader {
	t.Helper()
	v, ok := readers.Load(path)
	if !ok {
		t.Fatal("no reader was loaded")
	}
	return v.(*countingReader)
}

func TestEnsureFileInitialized(t *testing.T) {
	path := writeBundleFixture(t)
	e, _ := newTestEngine(t, time.Hour)

	r, snap, err := e.EnsureFileInitialized(path)
	if err != nil {
		t.Fatalf("EnsureFileInitialized: %v", err)
	}
	if r == nil {
		t.Fatal("expected a reader handle")
	}
	if !snap.Initialized {
		t.Error("snapshot not marked initialized")
	}
	if snap.Semantic == nil || snap.Semantic.TotalSections != 7 {
		t.Fatalf("semantic summary: %+v", snap.Semantic)
	}
	if snap.Performance == nil || !snap.Performance.CPUSpike {
		t.Errorf("cpu spike flag not derived: %+v", snap.Performance)
	}
	if snap.Licensing == nil || !snap.Licensing.Expired {
		t.Errorf("expired license flag not derived: %+v", snap.Licensing)
	}
	if snap.CoreDump == nil || !snap.CoreDump.CrashDetected {
		t.Errorf("crash detection missing: %+v", snap.CoreDump)
	}
	if snap.Network == nil || len(snap.Network.IssueLines) == 0 {
		t.Errorf("network issue lines missing: %+v", snap.Network)
	}
	if snap.Security == nil || len(snap.Security.AlertLines) == 0 {
		t.Errorf("security alert lines missing: %+v", snap.Security)
	}

	st := e.GetInitializationStatus(path)
	if st.State != StateComplete || st.Progress != 100 {
		t.Errorf("status %v at %d%%, want complete/100", st.State, st.Progress)
	}
	if st.Total != 7 {
		t.Errorf("status total %d, want 7", st.Total)
	}
}

func TestEnsureFileInitializedIdempotent(t *testing.T) {
	path := writeBundleFixture(t)
	e, readers := newTestEngine(t, time.Hour)

	_, first, err := e.EnsureFileInitialized(path)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	cr := trackedReader(t, readers, path)
	after := cr.readCount()
	if after == 0 {
		t.Fatal("pipeline performed no reads; fixture broken")
	}

	_, second, err := e.EnsureFileInitialized(path)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if cr.readCount() != after {
		t.Errorf("second call performed %d extra reads", cr.readCount()-after)
	}
	if second.Semantic.TotalSections != first.Semantic.TotalSections {
		t.Error("snapshots differ between idempotent calls")
	}
	if !second.Initialized {
		t.Error("second snapshot lost the initialized flag")
	}
}

func TestConcurrentInitializersShareOnePipeline(t *testing.T) {
	path := writeBundleFixture(t)
	e, readers := newTestEngine(t, time.Hour)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := e.EnsureFileInitialized(path); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent init: %v", err)
	}

	loaded := 0
	readers.Range(func(_, _ any) bool { loaded++; return true })
	if loaded != 1 {
		t.Errorf("%d readers loaded, want 1", loaded)
	}
}

func TestGetReaderRetriesAfterFailedLoad(t *testing.T) {
	path := writeBundleFixture(t)
	e, _ := newTestEngine(t, time.Hour)

	orig := e.loadReader
	failures := 1
	e.loadReader = func(p string) (Reader, error) {
		if failures > 0 {
			failures--
			return nil, fmt.Errorf("transient open failure")
		}
		return orig(p)
	}

	if _, err := e.GetReader(path); err == nil {
		t.Fatal("expected first load to fail")
	}
	if _, err := e.GetReader(path); err != nil {
		t.Fatalf("retry after failed load: %v", err)
	}
}

func TestEviction(t *testing.T) {
	path := writeBundleFixture(t)
	e, readers := newTestEngine(t, 10*time.Millisecond)

	if _, _, err := e.EnsureFileInitialized(path); err != nil {
		t.Fatalf("init: %v", err)
	}
	cr := trackedReader(t, readers, path)

	time.Sleep(30 * time.Millisecond)
	e.EvictStale()

	e.mu.Lock()
	_, hasReader := e.readers[path]
	_, hasCache := e.caches[path]
	_, hasStatus := e.statuses[path]
	_, hasAccess := e.lastAccess[path]
	e.mu.Unlock()
	if hasReader || hasCache || hasStatus || hasAccess {
		t.Errorf("per-path state survived eviction: reader=%v cache=%v status=%v access=%v",
			hasReader, hasCache, hasStatus, hasAccess)
	}

	deadline := time.Now().Add(2 * time.Second)
	for cr.closeCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := cr.closeCount(); got != 1 {
		t.Errorf("reader closed %d times, want exactly 1", got)
	}

	if st := e.GetInitializationStatus(path); st.State != StateNotStarted {
		t.Errorf("status after eviction %v, want not_started", st.State)
	}
}

func TestSearchCacheClearedOnReclassify(t *testing.T) {
	path := writeBundleFixture(t)
	e, _ := newTestEngine(t, time.Hour)

	if _, _, err := e.EnsureFileInitialized(path); err != nil {
		t.Fatalf("init: %v", err)
	}

	cat := scanindex.Performance
	res, err := e.SearchSections(path, "", &cat, 1, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.TotalCount != 1 {
		t.Fatalf("performance hits %d, want 1", res.TotalCount)
	}

	ok, err := e.ReclassifySection(path, "zzz mystery blob", scanindex.Performance)
	if err != nil || !ok {
		t.Fatalf("reclassify: ok=%v err=%v", ok, err)
	}

	res, err = e.SearchSections(path, "", &cat, 1, 10)
	if err != nil {
		t.Fatalf("search after reclassify: %v", err)
	}
	if res.TotalCount != 2 {
		t.Errorf("stale search served after reclassify: hits %d, want 2", res.TotalCount)
	}

	snap, err := e.RecomputeSemanticSummary(path)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if snap.Semantic.PerCategory[scanindex.Performance] != 2 {
		t.Errorf("semantic counts not refreshed: %v", snap.Semantic.PerCategory)
	}
}

func TestSectionContentCached(t *testing.T) {
	path := writeBundleFixture(t)
	e, readers := newTestEngine(t, time.Hour)

	if _, _, err := e.EnsureFileInitialized(path); err != nil {
		t.Fatalf("init: %v", err)
	}
	cr := trackedReader(t, readers, path)
	base := cr.readCount()

	first, err := e.SectionContent(path, "Security Audit")
	if err != nil {
		t.Fatalf("content: %v", err)
	}
	if cr.readCount() != base+1 {
		t.Errorf("expected one read, got %d", cr.readCount()-base)
	}

	second, err := e.SectionContent(path, "security audit")
	if err != nil {
		t.Fatalf("cached content: %v", err)
	}
	if cr.readCount() != base+1 {
		t.Error("cache miss on case-insensitive content lookup")
	}
	if first != second {
		t.Error("cached content differs")
	}
}

func TestInvalidate(t *testing.T) {
	path := writeBundleFixture(t)
	e, readers := newTestEngine(t, time.Hour)

	if _, _, err := e.EnsureFileInitialized(path); err != nil {
		t.Fatalf("init: %v", err)
	}
	cr := trackedReader(t, readers, path)

	e.Invalidate(path)

	e.mu.Lock()
	_, hasReader := e.readers[path]
	e.mu.Unlock()
	if hasReader {
		t.Error("reader survived invalidation")
	}
	deadline := time.Now().Add(2 * time.Second)
	for cr.closeCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if cr.closeCount() != 1 {
		t.Errorf("reader closed %d times, want 1", cr.closeCount())
	}
}

func TestSweepDropsOrphanStatusRecords(t *testing.T) {
	analyzed := writeBundleFixture(t)
	e, _ := newTestEngine(t, time.Hour)

	if _, _, err := e.EnsureFileInitialized(analyzed); err != nil {
		t.Fatalf("init: %v", err)
	}

	// A path that is only ever status-queried has no access timestamp.
	ghost := filepath.Join(t.TempDir(), "never-analyzed.txt")
	if st := e.GetInitializationStatus(ghost); st.State != StateNotStarted {
		t.Fatalf("fresh status %v, want not_started", st.State)
	}

	e.EvictStale()

	e.mu.Lock()
	_, hasGhost := e.statuses[ghost]
	_, hasAnalyzed := e.statuses[analyzed]
	e.mu.Unlock()
	if hasGhost {
		t.Error("status record for a never-analyzed path survived the sweep")
	}
	if !hasAnalyzed {
		t.Error("sweep dropped the status record of an active path")
	}
}

func TestStatusQueryDoesNotTriggerWork(t *testing.T) {
	path := writeBundleFixture(t)
	e, _ := newTestEngine(t, time.Hour)

	st := e.GetInitializationStatus(path)
	if st.State != StateNotStarted {
		t.Errorf("fresh status %v, want not_started", st.State)
	}
	e.mu.Lock()
	loaded := len(e.readers)
	e.mu.Unlock()
	if loaded != 0 {
		t.Error("status query must not load readers")
	}
}
