package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"bundlescan/internal/scanindex"
)

// Per-stage read caps: bytes per section and section count (0 = unbounded).
const (
	systemInfoCap     = 8 * 1024
	systemInfoMax     = 10
	performanceCap    = 4 * 1024
	performanceMax    = 5
	securityCap       = 6 * 1024
	securityMax       = 8
	coreDumpCap       = 4 * 1024
	networkCap        = 6 * 1024
	networkMax        = 10
	maxSummaryLines   = 20
	maxSummaryLineLen = 200
)

type initResult struct {
	reader Reader
	snap   Snapshot
}

// EnsureFileInitialized is the orchestration entry point: it runs the full
// analysis pipeline for path, or returns the cached result when the path is
// already complete. Concurrent callers for the same path share one pipeline
// run through a per-path single-flight group, so initialization is mutually
// exclusive rather than advisory.
func (e *Engine) EnsureFileInitialized(path string) (Reader, Snapshot, error) {
	v, err, _ := e.initGroup.Do(path, func() (any, error) {
		return e.runPipeline(path)
	})
	if err != nil {
		return nil, Snapshot{}, err
	}
	res := v.(*initResult)
	return res.reader, res.snap, nil
}

func (e *Engine) runPipeline(path string) (*initResult, error) {
	e.touch(path)
	pc := e.cache(path)

	// Fast path: nothing to redo for an already-analyzed file.
	if pc.isInitialized() && e.statusState(path) == StateComplete {
		r, err := e.GetReader(path)
		if err != nil {
			return nil, err
		}
		return &initResult{reader: r, snap: pc.snapshot()}, nil
	}

	runID := uuid.NewString()
	log := e.logger.With("path", path, "run_id", runID)
	log.Info("starting analysis pipeline")
	startedAt := time.Now()

	e.setStatus(path, func(st *InitStatus) {
		*st = InitStatus{
			State:     StateIndexing,
			Progress:  5,
			Stage:     "indexing",
			Activity:  "building section index",
			StartedAt: startedAt,
		}
	})

	r, err := e.GetReader(path)
	if err != nil {
		e.failStatus(path, err)
		return nil, err
	}
	ix, err := r.Index()
	if err != nil {
		e.failStatus(path, err)
		return nil, err
	}

	stats := ix.Stats()
	e.setStatus(path, func(st *InitStatus) {
		st.State = StateCategorizing
		st.Progress = 30
		st.Stage = "categorizing"
		st.Activity = fmt.Sprintf("counted %d sections across %d categories",
			stats.TotalSections, len(stats.PerCategory))
		st.Total = stats.TotalSections
	})

	stages := []struct {
		name string
		run  func() int
	}{
		{"system info", func() int {
			v := e.precacheSystemInfo(r, ix, log)
			pc.mu.Lock()
			pc.systemInfo = v
			pc.mu.Unlock()
			return v.Scanned
		}},
		{"performance", func() int {
			v := e.precachePerformance(r, ix, log)
			pc.mu.Lock()
			pc.performance = v
			pc.mu.Unlock()
			return v.Scanned
		}},
		{"licensing", func() int {
			v := e.precacheLicensing(r, ix, log)
			pc.mu.Lock()
			pc.licensing = v
			pc.mu.Unlock()
			return v.Scanned
		}},
		{"security", func() int {
			v := e.precacheSecurity(r, ix, log)
			pc.mu.Lock()
			pc.security = v
			pc.mu.Unlock()
			return v.Scanned
		}},
		{"core dumps", func() int {
			v := e.precacheCoreDumps(r, ix, log)
			pc.mu.Lock()
			pc.coreDump = v
			pc.mu.Unlock()
			return v.Scanned
		}},
		{"network", func() int {
			v := e.precacheNetwork(r, ix, log)
			pc.mu.Lock()
			pc.network = v
			pc.mu.Unlock()
			return v.Scanned
		}},
	}
	progress := 40
	processed := 0
	for _, stage := range stages {
		e.setStatus(path, func(st *InitStatus) {
			st.State = StateAnalyzing
			st.Progress = progress
			st.Stage = "analyzing"
			st.Activity = "precaching " + stage.name
		})
		processed += stage.run()
		scanned := processed
		e.setStatus(path, func(st *InitStatus) {
			st.Processed = scanned
		})
		progress += 8
	}

	e.setStatus(path, func(st *InitStatus) {
		st.Progress = 95
		st.Activity = "computing semantic summary"
	})
	pc.setSemantic(semanticSummaryFrom(ix, r.Size()))

	pc.mu.Lock()
	pc.initialized = true
	pc.cachedAt = time.Now()
	pc.mu.Unlock()

	e.setStatus(path, func(st *InitStatus) {
		st.State = StateComplete
		st.Progress = 100
		st.Stage = "complete"
		st.Activity = "analysis complete"
		st.Processed = stats.TotalSections
	})

	log.Info("analysis pipeline complete",
		"sections", stats.TotalSections,
		"duration", time.Since(startedAt))
	return &initResult{reader: r, snap: pc.snapshot()}, nil
}

// readPrefix reads up to capBytes of one section (the whole section when
// capBytes is 0). A failed read is logged and skipped so one unreadable
// section never aborts a stage.
func (e *Engine) readPrefix(r Reader, s *scanindex.Section, capBytes int, log logSink) (string, bool) {
	size := s.Size()
	if capBytes > 0 && int64(capBytes) < size {
		size = int64(capBytes)
	}
	text, err := r.ReadSectionByOffset(s.StartOffset, int(size))
	if err != nil {
		log.Warn("skipping unreadable section", "section", s.Name, "error", err)
		return "", false
	}
	return text, true
}

// logSink is the subset of *slog.Logger the precache helpers need.
type logSink interface {
	Warn(msg string, args ...any)
}

// matchingLines returns up to maxSummaryLines trimmed lines for which pred
// holds on the lowercased line.
func matchingLines(text string, pred func(lower string) bool) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if !pred(strings.ToLower(trimmed)) {
			continue
		}
		if len(trimmed) > maxSummaryLineLen {
			trimmed = trimmed[:maxSummaryLineLen]
		}
		out = append(out, trimmed)
		if len(out) >= maxSummaryLines {
			break
		}
	}
	return out
}

func capSections(secs []*scanindex.Section, max int) []*scanindex.Section {
	if max > 0 && len(secs) > max {
		return secs[:max]
	}
	return secs
}

func (e *Engine) precacheSystemInfo(r Reader, ix *scanindex.Index, log logSink) *SystemInfoSummary {
	sum := &SystemInfoSummary{}
	for _, s := range capSections(ix.SectionsByType(scanindex.SystemInfo), systemInfoMax) {
		text, ok := e.readPrefix(r, s, systemInfoCap, log)
		if !ok {
			continue
		}
		sum.Scanned++
		sum.KeyLines = append(sum.KeyLines, matchingLines(text, func(l string) bool {
			return strings.Contains(l, "version") || strings.Contains(l, "hostname") ||
				strings.Contains(l, "uptime") || strings.Contains(l, "serial")
		})...)
	}
	return sum
}

func (e *Engine) precachePerformance(r Reader, ix *scanindex.Index, log logSink) *PerformanceSummary {
	sum := &PerformanceSummary{}
	for _, s := range capSections(ix.SectionsByType(scanindex.Performance), performanceMax) {
		text, ok := e.readPrefix(r, s, performanceCap, log)
		if !ok {
			continue
		}
		sum.Scanned++
		lower := strings.ToLower(text)
		if strings.Contains(lower, "cpu") &&
			(strings.Contains(lower, "spike") || strings.Contains(lower, "high")) {
			sum.CPUSpike = true
		}
		sum.HighLoadLines = append(sum.HighLoadLines, matchingLines(text, func(l string) bool {
			return strings.Contains(l, "load average") || strings.Contains(l, "high")
		})...)
	}
	return sum
}

func (e *Engine) precacheLicensing(r Reader, ix *scanindex.Index, log logSink) *LicensingSummary {
	sum := &LicensingSummary{}
	for _, s := range ix.SectionsByType(scanindex.Licensing) {
		text, ok := e.readPrefix(r, s, 0, log)
		if !ok {
			continue
		}
		sum.Scanned++
		if strings.Contains(strings.ToLower(text), "expir") {
			sum.Expired = true
		}
		sum.ExpiryLines = append(sum.ExpiryLines, matchingLines(text, func(l string) bool {
			return strings.Contains(l, "expir")
		})...)
	}
	return sum
}

func (e *Engine) precacheSecurity(r Reader, ix *scanindex.Index, log logSink) *SecuritySummary {
	sum := &SecuritySummary{}
	for _, s := range capSections(ix.SectionsByType(scanindex.Security), securityMax) {
		text, ok := e.readPrefix(r, s, securityCap, log)
		if !ok {
			continue
		}
		sum.Scanned++
		sum.AlertLines = append(sum.AlertLines, matchingLines(text, func(l string) bool {
			return strings.Contains(l, "denied") || strings.Contains(l, "unauthorized") ||
				strings.Contains(l, "attack") || strings.Contains(l, "alert")
		})...)
	}
	return sum
}

func (e *Engine) precacheCoreDumps(r Reader, ix *scanindex.Index, log logSink) *CoreDumpSummary {
	sum := &CoreDumpSummary{}
	for _, s := range ix.SectionsByType(scanindex.CoreDump) {
		text, ok := e.readPrefix(r, s, coreDumpCap, log)
		if !ok {
			continue
		}
		sum.Scanned++
		sum.CrashLines = append(sum.CrashLines, matchingLines(text, func(l string) bool {
			return strings.Contains(l, "crash") || strings.Contains(l, "core") ||
				strings.Contains(l, "signal") || strings.Contains(l, "segfault")
		})...)
	}
	sum.CrashDetected = len(sum.CrashLines) > 0
	return sum
}

func (e *Engine) precacheNetwork(r Reader, ix *scanindex.Index, log logSink) *NetworkSummary {
	sum := &NetworkSummary{}
	for _, s := range capSections(ix.SectionsByType(scanindex.Network), networkMax) {
		text, ok := e.readPrefix(r, s, networkCap, log)
		if !ok {
			continue
		}
		sum.Scanned++
		sum.IssueLines = append(sum.IssueLines, matchingLines(text, func(l string) bool {
			return strings.Contains(l, "down") || strings.Contains(l, "error") ||
				strings.Contains(l, "fail")
		})...)
	}
	return sum
}
