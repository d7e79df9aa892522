package scanindex

import (
	"regexp"
	"sort"
	"strings"
)

// Classification runs in strict precedence order: special-case overrides on
// the raw name, extension mapping on the lowercased name, the two /proc
// rules, ordered direct substring mappings, keyword fallback, Unknown.

type specialCaseRule struct {
	re  *regexp.Regexp
	cat Category
}

var specialCases = []specialCaseRule{
	{regexp.MustCompile(`(?i)^(uname|hostname|uptime|show\s+version)\b`), SystemInfo},
	{regexp.MustCompile(`(?i)^show\s+license\b`), Licensing},
	{regexp.MustCompile(`(?i)^(iptables|ipfw)\b`), Firewall},
	{regexp.MustCompile(`(?i)^vpn\s+(tun|status|stat)`), VPN},
	{regexp.MustCompile(`(?i)^(ps|top)\b`), Processes},
}

type extensionRule struct {
	re  *regexp.Regexp
	cat Category
}

// Extension-style rules applied to the lowercased name.
var extensionRules = []extensionRule{
	{regexp.MustCompile(`\.log(\.\d+)?(\.gz)?$`), Logs},
	{regexp.MustCompile(`\.elg(\.\d+)?$`), Logs},
	{regexp.MustCompile(`\.(conf|cfg|ini)$`), Configuration},
	{regexp.MustCompile(`(^|/)core(\.\d+)?$`), CoreDump},
	{regexp.MustCompile(`\.(db|sqlite3?)$`), Database},
}

type directMapping struct {
	substr string
	cat    Category
}

// Ordered substring mappings. Order matters: the first hit wins, so the more
// specific entries sit above the generic ones.
var directMappings = []directMapping{
	{"license", Licensing},
	{"contract", Licensing},
	{"vpn", VPN},
	{"ipsec", VPN},
	{"firewall", Firewall},
	{"access-list", Firewall},
	{"core dump", CoreDump},
	{"coredump", CoreDump},
	{"crash", CoreDump},
	{"performance", Performance},
	{"cpu", Performance},
	{"memory", Performance},
	{"security", Security},
	{"vmstat", Performance},
	{"iostat", Performance},
	{"interface", Network},
	{"netstat", Network},
	{"route", Network},
	{"arp", Network},
	{"ifconfig", Network},
	{"syslog", Logs},
	{"messages", Logs},
	{"dmesg", Logs},
	{"audit", Security},
	{"authentication", Security},
	{"certificate", Security},
	{"snmp", Monitoring},
	{"monitor", Monitoring},
	{"database", Database},
	{"sql", Database},
	{"process", Processes},
	{"config", Configuration},
	{"diagnostic", Diagnostics},
	{"sysinfo", SystemInfo},
	{"version", SystemInfo},
	{"hardware", SystemInfo},
	{"command", CommandOutput},
	{"output of", CommandOutput},
}

// Keyword fallback lists per category, consulted only when no direct
// mapping matched. Also the weight-1 signal for suggestions.
var categoryKeywords = map[Category][]string{
	SystemInfo:    {"bios", "serial", "model", "kernel", "release", "hostname"},
	Performance:   {"load", "swap", "throughput", "latency", "utilization"},
	Security:      {"denied", "attack", "intrusion", "acl", "policy"},
	Licensing:     {"entitlement", "subscription", "activation"},
	Network:       {"bgp", "ospf", "vlan", "bond", "tcp", "udp", "dns"},
	Logs:          {"journal", "trace", "history"},
	CommandOutput: {"stdout", "exit code"},
	CoreDump:      {"segfault", "backtrace", "signal"},
	Configuration: {"settings", "parameters", "registry"},
	VPN:           {"tunnel", "ike", "phase1", "phase2"},
	Firewall:      {"nat", "filter", "chain", "drop rule"},
	Monitoring:    {"health", "sensor", "threshold", "watchdog"},
	Database:      {"table", "query", "postgres", "schema"},
	Processes:     {"pid", "thread", "daemon", "zombie"},
	Diagnostics:   {"debug", "verifier", "selftest", "troubleshoot"},
}

// DetermineSectionType classifies a section name.
func DetermineSectionType(name string) Category {
	for _, rule := range specialCases {
		if rule.re.MatchString(name) {
			return rule.cat
		}
	}

	lower := strings.ToLower(name)

	for _, rule := range extensionRules {
		if rule.re.MatchString(lower) {
			return rule.cat
		}
	}

	if strings.Contains(lower, "/proc/net") {
		return Network
	}
	if strings.Contains(lower, "/proc/stat") {
		return Monitoring
	}

	for _, m := range directMappings {
		if strings.Contains(lower, m.substr) {
			return m.cat
		}
	}

	for _, cat := range Categories() {
		for _, kw := range categoryKeywords[cat] {
			if strings.Contains(lower, kw) {
				return cat
			}
		}
	}

	return Unknown
}

// Suggestion is a candidate category for an unclassified section. Confidence
// accumulates 2 per direct-mapping hit and 1 per keyword hit.
type Suggestion struct {
	Category   Category
	Confidence int
	Matches    []string
}

// CategorizationSuggestions aggregates direct-mapping and keyword signals
// against the lowercased section name. Results are sorted by descending
// confidence so the first entry is the auto-apply candidate.
func CategorizationSuggestions(sec *Section) []Suggestion {
	lower := strings.ToLower(sec.Name)

	byCat := make(map[Category]*Suggestion)
	add := func(cat Category, weight int, match string) {
		s, ok := byCat[cat]
		if !ok {
			s = &Suggestion{Category: cat}
			byCat[cat] = s
		}
		s.Confidence += weight
		s.Matches = append(s.Matches, match)
	}

	for _, m := range directMappings {
		if strings.Contains(lower, m.substr) {
			add(m.cat, 2, m.substr)
		}
	}
	for _, cat := range Categories() {
		for _, kw := range categoryKeywords[cat] {
			if strings.Contains(lower, kw) {
				add(cat, 1, kw)
			}
		}
	}

	out := make([]Suggestion, 0, len(byCat))
	for _, s := range byCat {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].Category < out[j].Category
	})
	return out
}
