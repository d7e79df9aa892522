package scanindex

import (
	"fmt"
	"strings"
)

// Category is the semantic classification of a section.
type Category int

// The sixteen section categories. Unknown is the zero value so an
// unclassified section is never mistaken for a real category.
const (
	Unknown Category = iota
	SystemInfo
	Performance
	Security
	Licensing
	Network
	Logs
	CommandOutput
	CoreDump
	Configuration
	VPN
	Firewall
	Monitoring
	Database
	Processes
	Diagnostics
)

var categoryNames = map[Category]string{
	Unknown:       "unknown",
	SystemInfo:    "system_info",
	Performance:   "performance",
	Security:      "security",
	Licensing:     "licensing",
	Network:       "network",
	Logs:          "logs",
	CommandOutput: "command_output",
	CoreDump:      "core_dump",
	Configuration: "configuration",
	VPN:           "vpn",
	Firewall:      "firewall",
	Monitoring:    "monitoring",
	Database:      "database",
	Processes:     "processes",
	Diagnostics:   "diagnostics",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// Categories returns every category in declaration order.
func Categories() []Category {
	return []Category{
		Unknown, SystemInfo, Performance, Security, Licensing, Network,
		Logs, CommandOutput, CoreDump, Configuration, VPN, Firewall,
		Monitoring, Database, Processes, Diagnostics,
	}
}

// UnknownCategoryError reports a category name that maps to no category.
type UnknownCategoryError struct {
	Name string
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("unknown category name %q", e.Name)
}

// ParseCategory maps a free-text category name to its Category. Matching is
// case-insensitive and tolerates spaces and dashes in place of underscores.
// Unrecognized names fail with *UnknownCategoryError.
func ParseCategory(name string) (Category, error) {
	canon := strings.ToLower(strings.TrimSpace(name))
	canon = strings.NewReplacer(" ", "_", "-", "_").Replace(canon)
	for cat, n := range categoryNames {
		if n == canon {
			return cat, nil
		}
	}
	return Unknown, &UnknownCategoryError{Name: name}
}
