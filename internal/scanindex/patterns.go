package scanindex

import "regexp"

// Priority classes for boundary resolution.
const (
	// PriorityTop marks top-level sections, closed by any later header.
	PriorityTop = 1
	// PriorityTyped marks typed sub-sections, closed only by priority 1 or 2.
	PriorityTyped = 2
	// PriorityFine marks fine-grained subsections, closed by any later header.
	PriorityFine = 3
)

// HeaderPattern is one named matcher for ad-hoc section header lines.
// Patterns run against raw chunk bytes so match offsets are exact file
// offsets; only the captured name is decoded.
type HeaderPattern struct {
	Name     string
	Re       *regexp.Regexp
	Priority int
}

// DefaultPatterns returns the built-in matchers in application order
// (first matcher wins for a given offset). The shapes cover the common
// separator styles found in appliance support-bundle exports.
func DefaultPatterns() []HeaderPattern {
	return []HeaderPattern{
		{
			Name:     "banner",
			Re:       regexp.MustCompile(`(?m)^={4,}[ \t]*([^=\r\n][^\r\n]*?)[ \t]*={4,}[ \t]*$`),
			Priority: PriorityTop,
		},
		{
			Name:     "file_dump",
			Re:       regexp.MustCompile(`(?m)^#{4,}[ \t]*([^#\r\n][^\r\n]*?)[ \t]*#{4,}[ \t]*$`),
			Priority: PriorityTop,
		},
		{
			Name:     "command",
			Re:       regexp.MustCompile(`(?m)^-{3,}[ \t]*([^-\r\n][^\r\n]*?)[ \t]*-{3,}[ \t]*$`),
			Priority: PriorityTyped,
		},
		{
			Name:     "proc_entry",
			Re:       regexp.MustCompile(`(?m)^\[[ \t]*(/[^\]\r\n]+?)[ \t]*\][ \t]*$`),
			Priority: PriorityTyped,
		},
		{
			Name:     "subsection",
			Re:       regexp.MustCompile(`(?m)^\*{3,}[ \t]*([^*\r\n][^\r\n]*?)[ \t]*\*{3,}[ \t]*$`),
			Priority: PriorityFine,
		},
	}
}

// closingClass returns the pattern's boundary class. A zero or out-of-range
// Priority defaults to the typed sub-section class.
func (p HeaderPattern) closingClass() int {
	if p.Priority < PriorityTop || p.Priority > PriorityFine {
		return PriorityTyped
	}
	return p.Priority
}
