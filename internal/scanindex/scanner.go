package scanindex

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

const (
	// DefaultChunkSize is the streaming read size.
	DefaultChunkSize = 2 * 1024 * 1024

	// DefaultMinSectionSize drops bare headers with no real content.
	DefaultMinSectionSize = 100

	// minCarry is the floor for the chunk-boundary overlap carry.
	minCarry = 512
)

// Options configures an index build.
type Options struct {
	// ChunkSize is the streaming read size; 0 means DefaultChunkSize.
	ChunkSize int

	// MinSectionSize filters out sections smaller than this many bytes
	// after boundary resolution; 0 means DefaultMinSectionSize.
	MinSectionSize int64

	// Encoding decodes section names; nil means UTF-8.
	Encoding encoding.Encoding

	// Patterns override the built-in header matchers.
	Patterns []HeaderPattern

	Logger *slog.Logger
}

func (o *Options) defaults() {
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.MinSectionSize <= 0 {
		o.MinSectionSize = DefaultMinSectionSize
	}
	if o.Encoding == nil {
		o.Encoding = unicode.UTF8
	}
	if o.Patterns == nil {
		o.Patterns = DefaultPatterns()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// BuildError wraps any failure during the chunked scan.
type BuildError struct {
	Path string
	Err  error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("building index for %s: %v", e.Path, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// BuildIndex streams the file in chunks and returns the resolved section
// index. Each read window keeps a trailing remainder of the previous chunk
// (half the chunk size, at least 512 bytes) so a header straddling a chunk
// boundary is still seen whole; reported offsets are always absolute.
func BuildIndex(path string, opts Options) (*Index, error) {
	opts.defaults()
	start := time.Now()

	f, err := os.Open(path)
	if err != nil {
		return nil, &BuildError{Path: path, Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, &BuildError{Path: path, Err: err}
	}
	fileSize := info.Size()

	carryLen := opts.ChunkSize / 2
	if carryLen < minCarry {
		carryLen = minCarry
	}

	var (
		candidates []*Section
		carry      []byte
		carryPrev  byte
		havePrev   bool
		pos        int64
	)
	buf := make([]byte, opts.ChunkSize)

	for {
		n, readErr := io.ReadFull(f, buf)
		if n > 0 {
			window := make([]byte, 0, len(carry)+n)
			window = append(window, carry...)
			window = append(window, buf[:n]...)
			base := pos - int64(len(carry))

			atLineStart := base == 0 || (havePrev && carryPrev == '\n')
			candidates = append(candidates, scanWindow(window, base, atLineStart, opts)...)

			if len(window) > carryLen {
				carryPrev = window[len(window)-carryLen-1]
				havePrev = true
				carry = append(carry[:0], window[len(window)-carryLen:]...)
			} else {
				carry = append(carry[:0], window...)
			}
			pos += int64(n)
		}
		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			break
		}
		if readErr != nil {
			return nil, &BuildError{Path: path, Err: readErr}
		}
	}

	sections := finalize(candidates, fileSize, opts.MinSectionSize)

	ix := newIndex(path, fileSize, sections, opts.Logger)
	ix.stats.BuildDuration = time.Since(start)
	opts.Logger.Debug("index built",
		"path", path,
		"sections", len(sections),
		"duration", ix.stats.BuildDuration)
	return ix, nil
}

// scanWindow applies every pattern to one read window. A given in-window
// offset is claimed by the first pattern that matches it. atLineStart says
// whether the window's first byte begins a line; a (?m)^ anchor firing at
// offset zero of a mid-line window is a fragment, not a header.
func scanWindow(window []byte, base int64, atLineStart bool, opts Options) []*Section {
	var found []*Section
	claimed := make(map[int]struct{})

	for _, p := range opts.Patterns {
		for _, m := range p.Re.FindAllSubmatchIndex(window, -1) {
			off := m[0]
			if off == 0 && !atLineStart {
				continue
			}
			if _, dup := claimed[off]; dup {
				continue
			}
			claimed[off] = struct{}{}

			name := DecodeText(opts.Encoding, window[m[2]:m[3]])
			found = append(found, &Section{
				Name:        name,
				Type:        DetermineSectionType(name),
				StartOffset: base + int64(off),
				EndOffset:   -1,
				Priority:    p.closingClass(),
				Metadata:    map[string]string{MetaPatternType: p.Name},
			})
		}
	}

	sort.Slice(found, func(i, j int) bool {
		return found[i].StartOffset < found[j].StartOffset
	})
	return found
}

// finalize dedups candidates by (StartOffset, Name), resolves boundaries in
// one pass over the sorted list, and drops sections below the size floor.
func finalize(candidates []*Section, fileSize int64, minSize int64) []*Section {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].StartOffset != candidates[j].StartOffset {
			return candidates[i].StartOffset < candidates[j].StartOffset
		}
		return candidates[i].Name < candidates[j].Name
	})

	sections := candidates[:0:0]
	type key struct {
		off  int64
		name string
	}
	seen := make(map[key]struct{}, len(candidates))
	for _, c := range candidates {
		k := key{c.StartOffset, c.Name}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		sections = append(sections, c)
	}

	resolveBoundaries(sections, fileSize)

	kept := sections[:0:0]
	for _, s := range sections {
		if s.Size() < minSize {
			continue
		}
		kept = append(kept, s)
	}
	return kept
}

// resolveBoundaries assigns end offsets in a single pass with an explicit
// open-section list. An open top-level or fine-grained section closes on any
// later header; an open typed sub-section absorbs fine-grained subsections
// and closes only on priority 1 or 2.
func resolveBoundaries(sections []*Section, fileSize int64) {
	var open []*Section
	for _, s := range sections {
		next := open[:0:0]
		for _, o := range open {
			if o.StartOffset >= s.StartOffset {
				next = append(next, o)
				continue
			}
			if o.Priority == PriorityTyped && s.Priority == PriorityFine {
				next = append(next, o)
				continue
			}
			o.EndOffset = s.StartOffset
			o.Metadata[MetaBoundary] = BoundaryNextHeader
		}
		open = append(next, s)
	}
	for _, o := range open {
		o.EndOffset = fileSize
		o.Metadata[MetaBoundary] = BoundaryFileEnd
	}
}
