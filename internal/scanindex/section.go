package scanindex

import "fmt"

// Metadata keys recorded on every section.
const (
	MetaPatternType     = "pattern_type"
	MetaBoundary        = "boundary"
	MetaReclassified    = "reclassified"
	MetaPreviousType    = "previous_type"
	MetaReclassifyCause = "reclassify_reason"
)

// Boundary resolution methods recorded under MetaBoundary.
const (
	BoundaryNextHeader = "next_header"
	BoundaryFileEnd    = "file_end"
)

// Section is one contiguous byte range of the bundle, logically a single
// command's or file's output. Sections are keyed by (StartOffset, Name);
// StartOffset never changes, Type may change through reclassification.
type Section struct {
	Name        string
	Type        Category
	StartOffset int64

	// EndOffset is exclusive and -1 until boundary resolution assigns it.
	EndOffset int64

	// Priority is the closing class of the pattern that produced the
	// section: 1 top-level, 2 typed sub-section, 3 fine-grained.
	Priority int

	Metadata map[string]string
}

// Size returns the resolved byte length, or 0 while unresolved.
func (s *Section) Size() int64 {
	if !s.resolved() {
		return 0
	}
	return s.EndOffset - s.StartOffset
}

func (s *Section) resolved() bool { return s.EndOffset >= 0 }

func (s *Section) String() string {
	return fmt.Sprintf("%s [%d:%d] %s", s.Name, s.StartOffset, s.EndOffset, s.Type)
}
