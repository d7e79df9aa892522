// Package render formats engine results for the terminal.
package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"bundlescan/internal/engine"
	"bundlescan/internal/scanindex"
)

var (
	// titleStyle for bold headers
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	// dimStyle for muted metadata text
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	// successStyle for healthy indicators
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	// warnStyle for findings that need attention
	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220"))

	// errorStyle for error indicators
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	// boxStyle for summary boxes with rounded borders
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("39")).
			Padding(0, 1)

	// categoryStyle for section category tags
	categoryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("81")).
			Bold(true)
)

// FormatAnalysisSummary renders the post-pipeline summary box for one bundle.
func FormatAnalysisSummary(w io.Writer, path string, snap engine.Snapshot) {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Bundle Analysis") + "\n")
	b.WriteString(fmt.Sprintf("%s %s\n", dimStyle.Render("File:"), path))

	if sem := snap.Semantic; sem != nil {
		b.WriteString(fmt.Sprintf("%s %s  %s %d sections  %s %s\n",
			dimStyle.Render("Size:"), humanize.Bytes(uint64(sem.FileSize)),
			dimStyle.Render("Indexed:"), sem.TotalSections,
			dimStyle.Render("Build:"), sem.BuildDuration.Round(time.Millisecond),
		))
	}

	b.WriteString(findingLine("CPU spike", snap.Performance != nil && snap.Performance.CPUSpike))
	b.WriteString(findingLine("Expired license", snap.Licensing != nil && snap.Licensing.Expired))
	b.WriteString(findingLine("Crash evidence", snap.CoreDump != nil && snap.CoreDump.CrashDetected))
	if snap.Network != nil && len(snap.Network.IssueLines) > 0 {
		b.WriteString(fmt.Sprintf("%s %d flagged lines\n",
			warnStyle.Render("Network issues:"), len(snap.Network.IssueLines)))
	}
	if snap.Security != nil && len(snap.Security.AlertLines) > 0 {
		b.WriteString(fmt.Sprintf("%s %d flagged lines\n",
			warnStyle.Render("Security alerts:"), len(snap.Security.AlertLines)))
	}

	fmt.Fprintln(w, boxStyle.Render(strings.TrimRight(b.String(), "\n")))
}

func findingLine(label string, hit bool) string {
	if hit {
		return fmt.Sprintf("%s %s\n", warnStyle.Render("!"), label)
	}
	return fmt.Sprintf("%s no %s\n", successStyle.Render("✓"), strings.ToLower(label))
}

// FormatStatus renders the initialization status for one bundle.
func FormatStatus(w io.Writer, path string, st engine.InitStatus) {
	fmt.Fprintf(w, "%s %s\n", dimStyle.Render("File:"), path)

	var state string
	switch st.State {
	case engine.StateComplete:
		state = successStyle.Render(st.State.String())
	case engine.StateError:
		state = errorStyle.Render(st.State.String())
	default:
		state = warnStyle.Render(st.State.String())
	}
	fmt.Fprintf(w, "%s %s  %s\n", dimStyle.Render("State:"), state, progressBar(st.Progress))

	if st.Stage != "" {
		fmt.Fprintf(w, "%s %s", dimStyle.Render("Stage:"), st.Stage)
		if st.Activity != "" {
			fmt.Fprintf(w, " %s", dimStyle.Render("("+st.Activity+")"))
		}
		fmt.Fprintln(w)
	}
	if st.Total > 0 {
		fmt.Fprintf(w, "%s %d/%d sections\n", dimStyle.Render("Processed:"), st.Processed, st.Total)
	}
	if !st.EstimatedDone.IsZero() && st.State != engine.StateComplete {
		fmt.Fprintf(w, "%s %s\n", dimStyle.Render("ETA:"), humanize.Time(st.EstimatedDone))
	}
	if st.Error != "" {
		fmt.Fprintf(w, "%s %s\n", errorStyle.Render("Error:"), st.Error)
	}
}

func progressBar(percent int) string {
	const width = 20
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	fill := width * percent / 100
	bar := strings.Repeat("█", fill) + strings.Repeat("░", width-fill)
	return fmt.Sprintf("%s %3d%%", dimStyle.Render(bar), percent)
}

// FormatSectionTable renders one search page of sections with offsets.
func FormatSectionTable(w io.Writer, res scanindex.SearchResult) {
	if res.TotalCount == 0 {
		fmt.Fprintln(w, dimStyle.Render("no matching sections"))
		return
	}
	for _, s := range res.Sections {
		size := "?"
		if s.EndOffset >= 0 {
			size = humanize.Bytes(uint64(s.Size()))
		}
		fmt.Fprintf(w, "%s  %s  %s\n",
			categoryStyle.Render(fmt.Sprintf("%-14s", s.Type)),
			dimStyle.Render(fmt.Sprintf("@%-10d %-8s", s.StartOffset, size)),
			s.Name,
		)
	}
	fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("page %d/%d, %d total",
		res.Page, res.TotalPages, res.TotalCount)))
}

// FormatCategories renders every category with its section count.
func FormatCategories(w io.Writer, counts map[scanindex.Category]int) {
	for _, cat := range scanindex.Categories() {
		n := counts[cat]
		line := fmt.Sprintf("%-14s %d", cat, n)
		if n == 0 {
			fmt.Fprintln(w, dimStyle.Render(line))
		} else {
			fmt.Fprintln(w, line)
		}
	}
}

// FormatBulkResult renders the outcome of a bulk reclassification run.
func FormatBulkResult(w io.Writer, res scanindex.BulkResult) {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Reclassification") + "\n")
	b.WriteString(fmt.Sprintf("%s %d  %s %s  %s %s",
		dimStyle.Render("Unknown:"), res.Total,
		dimStyle.Render("Moved:"), successStyle.Render(fmt.Sprintf("%d", res.Reclassified)),
		dimStyle.Render("Failed:"), errorStyle.Render(fmt.Sprintf("%d", res.Failed)),
	))
	for _, d := range res.Details {
		if d.Applied {
			b.WriteString(fmt.Sprintf("\n%s %s %s %s",
				dimStyle.Render("•"), d.Name, dimStyle.Render("->"), categoryStyle.Render(d.Target.String())))
		} else {
			b.WriteString(fmt.Sprintf("\n%s %s %s",
				dimStyle.Render("•"), d.Name, errorStyle.Render(d.ErrorMsg)))
		}
	}
	fmt.Fprintln(w, boxStyle.Render(b.String()))
}

// FormatError renders a command failure.
func FormatError(w io.Writer, err error) {
	fmt.Fprintf(w, "%s %v\n", errorStyle.Render("Error:"), err)
}
