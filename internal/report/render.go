package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"
	"github.com/repowatch/repowatch/internal/types"
	"golang.org/x/term"
)

type PrintOptions struct {
	NoColor      bool
	Duration     time.Duration
	FilesScanned int
	FilesSkipped int
}

var (
	sevCriticalStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	sevHighStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	sevMedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	sevLowStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	categoryStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	hintStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// ColorEnabled reports whether colored output should be written to f.
func ColorEnabled(noColor bool, f *os.File) bool {
	if noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	return f != nil && term.IsTerminal(int(f.Fd()))
}

// PrintText writes findings grouped by category. Categories appear in the
// order of their first finding; within a category the scan order is kept.
func PrintText(w io.Writer, findings []types.Finding, opts PrintOptions) {
	if len(findings) == 0 {
		fmt.Fprintln(w, "No issues found ✅")
	} else {
		fmt.Fprintf(w, "Findings: %d\n", len(findings))
		for _, g := range groupByCategory(findings) {
			fmt.Fprintln(w)
			fmt.Fprintln(w, paint(!opts.NoColor, categoryStyle, fmt.Sprintf("%s (%d)", g.category, len(g.findings))))
			for _, f := range g.findings {
				sev := fmt.Sprintf("%-8s", f.Severity.Title())
				if !opts.NoColor {
					sev = colorSeverity(f.Severity, sev)
				}
				fmt.Fprintf(w, "  %s %s  %s\n", sev, location(f), f.Message)
				if f.Hint != "" {
					fmt.Fprintf(w, "           %s\n", paint(!opts.NoColor, hintStyle, "→ "+f.Hint))
				}
			}
		}
	}
	printFooter(w, findings, opts)
}

// PrintTable writes findings as a bordered table in scan order.
func PrintTable(w io.Writer, findings []types.Finding, opts PrintOptions) {
	if len(findings) == 0 {
		fmt.Fprintln(w, "No issues found ✅")
	} else {
		table := tablewriter.NewWriter(w)
		table.Header("Severity", "Category", "Rule", "Location", "Message")
		for _, f := range findings {
			sev := f.Severity.Title()
			if !opts.NoColor {
				sev = colorSeverity(f.Severity, sev)
			}
			_ = table.Append(sev, string(f.Category), f.Rule, location(f), f.Message)
		}
		_ = table.Render()
	}
	printFooter(w, findings, opts)
}

// WriteJSON writes findings as an indented JSON array. A nil slice is written
// as [] so consumers never see null.
func WriteJSON(w io.Writer, findings []types.Finding) error {
	if findings == nil {
		findings = []types.Finding{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(findings)
}

// CountBySeverity tallies findings per severity level.
func CountBySeverity(findings []types.Finding) map[types.Severity]int {
	out := make(map[types.Severity]int, 4)
	for _, f := range findings {
		out[f.Severity]++
	}
	return out
}

func printFooter(w io.Writer, findings []types.Finding, opts PrintOptions) {
	if opts.Duration <= 0 && opts.FilesScanned <= 0 {
		return
	}
	c := CountBySeverity(findings)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Findings: %d (critical: %d, high: %d, medium: %d, low: %d)\n",
		len(findings), c[types.SevCritical], c[types.SevHigh], c[types.SevMed], c[types.SevLow])
	if opts.Duration > 0 {
		fmt.Fprintf(w, "Scan duration: %.2fs\n", opts.Duration.Seconds())
	}
	if opts.FilesScanned > 0 {
		fmt.Fprintf(w, "Files scanned: %d\n", opts.FilesScanned)
	}
	if opts.FilesSkipped > 0 {
		fmt.Fprintf(w, "Files skipped: %d\n", opts.FilesSkipped)
	}
}

type categoryGroup struct {
	category types.Category
	findings []types.Finding
}

func groupByCategory(findings []types.Finding) []categoryGroup {
	var groups []categoryGroup
	idx := map[types.Category]int{}
	for _, f := range findings {
		i, ok := idx[f.Category]
		if !ok {
			i = len(groups)
			idx[f.Category] = i
			groups = append(groups, categoryGroup{category: f.Category})
		}
		groups[i].findings = append(groups[i].findings, f)
	}
	return groups
}

func location(f types.Finding) string {
	if f.Line > 0 {
		return f.Path + ":" + strconv.Itoa(f.Line)
	}
	return f.Path
}

func paint(color bool, st lipgloss.Style, s string) string {
	if !color {
		return s
	}
	return st.Render(s)
}

func colorSeverity(s types.Severity, text string) string {
	switch s {
	case types.SevCritical:
		return sevCriticalStyle.Render(text)
	case types.SevHigh:
		return sevHighStyle.Render(text)
	case types.SevMed:
		return sevMedStyle.Render(text)
	default:
		return sevLowStyle.Render(text)
	}
}
