// Package bundle provides random-access reading of a support-bundle file on
// top of its section index.
package bundle

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"

	"bundlescan/internal/scanindex"
)

// IOError wraps a file open or read failure, identifying the offset for
// reads.
type IOError struct {
	Op     string
	Path   string
	Offset int64
	Err    error
}

func (e *IOError) Error() string {
	if e.Op == "read" {
		return fmt.Sprintf("%s %s at offset %d: %v", e.Op, e.Path, e.Offset, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ErrClosed is returned for operations on a closed reader.
var ErrClosed = fmt.Errorf("bundle reader is closed")

// ErrNoIndex is returned by query methods when the load skipped indexing.
var ErrNoIndex = fmt.Errorf("bundle has no section index")

// Options configures a load.
type Options struct {
	// SkipIndex loads the file without building a section index. Query
	// methods then fail with ErrNoIndex until the file is reloaded.
	SkipIndex bool

	// Encoding decodes section content and names; nil means UTF-8.
	Encoding encoding.Encoding

	// Scan passes through to the index build.
	Scan scanindex.Options

	Logger *slog.Logger
}

// Reader owns one open file handle and one section index. Create with
// LoadFile, release with Close.
type Reader struct {
	path   string
	size   int64
	enc    encoding.Encoding
	logger *slog.Logger

	mu     sync.Mutex
	file   *os.File
	index  *scanindex.Index
	closed bool
}

// LoadFile opens the diagnostic file, records its size, and builds the
// section index unless opts.SkipIndex is set.
func LoadFile(path string, opts Options) (*Reader, error) {
	if opts.Encoding == nil {
		opts.Encoding = unicode.UTF8
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, &IOError{Op: "stat", Path: path, Err: err}
	}

	r := &Reader{
		path:   path,
		size:   info.Size(),
		enc:    opts.Encoding,
		logger: opts.Logger,
		file:   f,
	}

	if !opts.SkipIndex {
		scan := opts.Scan
		if scan.Encoding == nil {
			scan.Encoding = opts.Encoding
		}
		if scan.Logger == nil {
			scan.Logger = opts.Logger
		}
		ix, err := scanindex.BuildIndex(path, scan)
		if err != nil {
			f.Close()
			return nil, err
		}
		r.index = ix
	}

	return r, nil
}

// Path returns the loaded file's path.
func (r *Reader) Path() string { return r.path }

// Size returns the file's total byte size as recorded at load time.
func (r *Reader) Size() int64 { return r.size }

// Index returns the section index, or ErrNoIndex when the load skipped it.
func (r *Reader) Index() (*scanindex.Index, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.index == nil {
		return nil, ErrNoIndex
	}
	return r.index, nil
}

// ReadSectionByOffset performs a bounded positional read and returns the
// decoded text. The handle is reopened lazily if it was released; after
// Close the reader must be reloaded instead.
func (r *Reader) ReadSectionByOffset(offset int64, size int) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return "", ErrClosed
	}
	if offset < 0 || size < 0 {
		return "", &IOError{Op: "read", Path: r.path, Offset: offset,
			Err: fmt.Errorf("negative offset or size")}
	}

	if r.file == nil {
		f, err := os.Open(r.path)
		if err != nil {
			return "", &IOError{Op: "open", Path: r.path, Err: err}
		}
		r.file = f
	}

	buf := make([]byte, size)
	n, err := r.file.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return "", &IOError{Op: "read", Path: r.path, Offset: offset, Err: err}
	}

	return scanindex.DecodeText(r.enc, buf[:n]), nil
}

// Close releases the file handle and discards the index. Further reads and
// queries fail until the file is loaded again.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	r.index = nil
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	if err != nil {
		return &IOError{Op: "close", Path: r.path, Err: err}
	}
	return nil
}

// SectionsByType delegates to the held index.
func (r *Reader) SectionsByType(cat scanindex.Category) ([]*scanindex.Section, error) {
	ix, err := r.Index()
	if err != nil {
		return nil, err
	}
	return ix.SectionsByType(cat), nil
}

// FindSectionsContaining delegates to the held index.
func (r *Reader) FindSectionsContaining(keyword string, caseSensitive bool) ([]*scanindex.Section, error) {
	ix, err := r.Index()
	if err != nil {
		return nil, err
	}
	return ix.FindSectionsContaining(keyword, caseSensitive), nil
}

// SemanticCategories delegates to the held index.
func (r *Reader) SemanticCategories() (map[scanindex.Category][]string, error) {
	ix, err := r.Index()
	if err != nil {
		return nil, err
	}
	return ix.SemanticCategories(), nil
}
