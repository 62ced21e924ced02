// Package tui is the interactive findings browser behind `scan --tui` and
// `view`.
package tui

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/repowatch/repowatch/internal/report"
	"github.com/repowatch/repowatch/internal/types"
)

var (
	paneBorderStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("6")).
			Bold(true).
			Padding(0, 1)

	keyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("7")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	statusStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("7"))

	emptyTextStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).
			Align(lipgloss.Center)

	popupStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("12")).
			Background(lipgloss.Color("235")).
			Padding(1, 4)

	sevCriticalStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	sevHighStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	sevMedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	sevLowStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

const defaultHelp = "q: quit | ?: help | /: search | enter: open | r: rescan | b: baseline | i: ignore"

// severityText returns plain text for severity (ANSI codes break table truncation).
func severityText(s types.Severity) string {
	switch s {
	case types.SevCritical:
		return "CRIT"
	case types.SevHigh:
		return "HIGH"
	case types.SevMed:
		return "MED"
	case types.SevLow:
		return "LOW"
	default:
		return string(s)
	}
}

func location(f types.Finding) string {
	if f.Line > 0 {
		return fmt.Sprintf("%s:%d", f.Path, f.Line)
	}
	return f.Path
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}

// Options configures a Model.
type Options struct {
	// Root is the scanned directory. Ignore entries are written relative to it.
	Root string
	// Rescan re-runs the scan for the 'r' key. Nil disables rescanning.
	Rescan func() ([]types.Finding, error)
	// Baseline marks accepted findings; BaselinePath is where 'b' saves it.
	Baseline     report.Baseline
	BaselinePath string
	// IgnorePath is the ignore file 'i' appends to.
	IgnorePath string
	// Cached is set when findings come from a previous run; ScannedAt is
	// when that run happened.
	Cached    bool
	ScannedAt time.Time
}

// Model represents the main state of the TUI application.
type Model struct {
	opts Options

	table       table.Model
	viewport    viewport.Model
	spinner     spinner.Model
	searchInput textinput.Model

	findings         []types.Finding
	filteredFindings []types.Finding // nil = no filter
	filteredIndices  []int           // maps filtered index to findings index
	baseline         report.Baseline

	quitting      bool
	ready         bool
	scanning      bool
	showHelp      bool
	searchMode    bool
	width         int
	height        int
	lastScanTime  time.Time
	statusMessage string
	statusTimeout *time.Time

	searchQuery    string
	severityFilter types.Severity
	contextLines   int
}

// New initializes a model over findings.
func New(findings []types.Finding, opts Options) Model {
	columns := []table.Column{
		{Title: "Sev", Width: 8},
		{Title: "Category", Width: 12},
		{Title: "Rule", Width: 22},
		{Title: "Location", Width: 40},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		Foreground(lipgloss.Color("15")).
		Bold(true).
		Padding(0, 1).
		Align(lipgloss.Left)
	s.Selected = lipgloss.NewStyle().
		Foreground(lipgloss.Color("232")).
		Background(lipgloss.Color("208")).
		Bold(true).
		Padding(0, 1)
	s.Cell = lipgloss.NewStyle().Padding(0, 1)
	t.SetStyles(s)

	// Line spinner avoids Braille characters that render poorly on some terminals
	sp := spinner.New()
	sp.Spinner = spinner.Line
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	ti := textinput.New()
	ti.Placeholder = "Search path, rule, or message..."
	ti.CharLimit = 100
	ti.Width = 50
	ti.Prompt = "/ "
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	ti.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))

	base := opts.Baseline
	if base.Items == nil {
		base.Items = map[string]bool{}
	}
	scannedAt := opts.ScannedAt
	if scannedAt.IsZero() {
		scannedAt = time.Now()
	}

	m := Model{
		opts:          opts,
		table:         t,
		spinner:       sp,
		searchInput:   ti,
		findings:      findings,
		baseline:      base,
		lastScanTime:  scannedAt,
		contextLines:  3,
		statusMessage: defaultHelp,
	}
	m.rebuildTableRows()

	if n := m.baselinedCount(); n > 0 {
		m.statusMessage = fmt.Sprintf("%d new, %d baselined | %s", len(findings)-n, n, defaultHelp)
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

type findingsMsg []types.Finding

type statusMsg string

func (m Model) rescan() tea.Cmd {
	rescan := m.opts.Rescan
	return func() tea.Msg {
		if rescan == nil {
			return statusMsg("Rescan not available")
		}
		fs, err := rescan()
		if err != nil {
			return statusMsg(fmt.Sprintf("Scan error: %v", err))
		}
		return findingsMsg(fs)
	}
}

func (m *Model) setStatus(msg string, d time.Duration) {
	timeout := time.Now().Add(d)
	m.statusTimeout = &timeout
	m.statusMessage = msg
}

func (m *Model) baselinedCount() int {
	n := 0
	for _, f := range m.findings {
		if m.baseline.Contains(f) {
			n++
		}
	}
	return n
}

func (m *Model) applyFilters() {
	if m.searchQuery == "" && m.severityFilter == "" {
		m.filteredFindings = nil
		m.filteredIndices = nil
		m.rebuildTableRows()
		return
	}

	filtered := []types.Finding{}
	indices := []int{}
	query := strings.ToLower(m.searchQuery)
	for i, f := range m.findings {
		if m.severityFilter != "" && f.Severity != m.severityFilter {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(f.Path), query) &&
			!strings.Contains(strings.ToLower(f.Rule), query) &&
			!strings.Contains(strings.ToLower(f.Message), query) {
			continue
		}
		filtered = append(filtered, f)
		indices = append(indices, i)
	}
	m.filteredFindings = filtered
	m.filteredIndices = indices
	m.rebuildTableRows()
}

func (m *Model) clearFilters() {
	m.searchQuery = ""
	m.severityFilter = ""
	m.searchInput.SetValue("")
	m.applyFilters()
}

func (m *Model) rebuildTableRows() {
	findings := m.displayFindings()
	rows := make([]table.Row, len(findings))
	for i, f := range findings {
		sev := severityText(f.Severity)
		if m.baseline.Contains(f) {
			sev = "(b) " + sev
		}
		rows[i] = table.Row{sev, string(f.Category), f.Rule, location(f)}
	}
	m.table.SetRows(rows)
	if m.table.Cursor() >= len(findings) {
		m.table.SetCursor(0)
	}
	m.updateViewportContent()
}

func (m *Model) displayFindings() []types.Finding {
	if m.filteredFindings != nil {
		return m.filteredFindings
	}
	return m.findings
}

// selected returns the finding under the cursor, or nil when the list is empty.
func (m *Model) selected() *types.Finding {
	fs := m.displayFindings()
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(fs) {
		return nil
	}
	f := fs[idx]
	return &f
}

// jumpToSevere moves to the next critical or high finding (direction 1 or -1).
func (m *Model) jumpToSevere(direction int) bool {
	fs := m.displayFindings()
	n := len(fs)
	if n == 0 {
		return false
	}
	cur := m.table.Cursor()
	for i := 1; i <= n; i++ {
		idx := ((cur+direction*i)%n + n) % n
		if fs[idx].Severity.Rank() >= types.SevHigh.Rank() {
			m.table.SetCursor(idx)
			return true
		}
	}
	return false
}

func (m *Model) updateViewportContent() {
	if !m.ready {
		return
	}
	f := m.selected()
	if f == nil {
		m.viewport.SetContent("")
		return
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Finding Details") + "\n\n")
	if m.baseline.Contains(*f) {
		b.WriteString(dimStyle.Italic(true).Render("BASELINED: accepted in " + m.opts.BaselinePath))
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "%s %s\n", keyStyle.Render("Rule:"), f.Rule)
	fmt.Fprintf(&b, "%s %s\n", keyStyle.Render("Category:"), f.Category)
	fmt.Fprintf(&b, "%s %s\n", keyStyle.Render("Severity:"), f.Severity.Title())
	fmt.Fprintf(&b, "%s %s\n", keyStyle.Render("Path:"), f.Path)
	if f.Line > 0 {
		fmt.Fprintf(&b, "%s %d\n", keyStyle.Render("Line:"), f.Line)
	}
	fmt.Fprintf(&b, "%s %s\n", keyStyle.Render("Message:"), f.Message)
	if f.Hint != "" {
		fmt.Fprintf(&b, "%s %s\n", keyStyle.Render("Hint:"), f.Hint)
	}

	if f.Line > 0 {
		hint := fmt.Sprintf(" (+/- to expand/contract, showing %d lines)", m.contextLines*2+1)
		fmt.Fprintf(&b, "\n%s%s\n", keyStyle.Render("Context:"), dimStyle.Render(hint))
		lines, start, err := readFileContext(f.Path, f.Line, m.contextLines)
		if err != nil || len(lines) == 0 {
			b.WriteString(dimStyle.Render("  (file no longer readable)") + "\n")
		} else {
			current := lipgloss.NewStyle().Background(lipgloss.Color("236"))
			for i, line := range lines {
				n := start + i
				num := dimStyle.Render(fmt.Sprintf("%4d ", n))
				text := highlightLine(line, f.Path)
				if n == f.Line {
					text = current.Render(text)
				}
				b.WriteString(num + text + "\n")
			}
		}
	}
	m.viewport.SetContent(b.String())
}

func (m *Model) expandContext() {
	if m.contextLines < 20 {
		m.contextLines += 2
		m.updateViewportContent()
	}
}

func (m *Model) contractContext() {
	if m.contextLines > 1 {
		m.contextLines -= 2
		if m.contextLines < 1 {
			m.contextLines = 1
		}
		m.updateViewportContent()
	}
}

func readFileContext(path string, targetLine int, contextLines int) ([]string, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	startLine := targetLine - contextLines
	if startLine < 1 {
		startLine = 1
	}
	endLine := targetLine + contextLines

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		if lineNum > endLine {
			break
		}
		if lineNum >= startLine {
			lines = append(lines, scanner.Text())
		}
	}
	return lines, startLine, scanner.Err()
}

func highlightLine(line string, filename string) string {
	lexer := lexers.Match(filepath.Base(filename))
	if lexer == nil {
		return line
	}
	lexer = chroma.Coalesce(lexer)

	style := styles.Get("monokai")
	if style == nil {
		style = styles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		return line
	}
	iterator, err := lexer.Tokenise(nil, line)
	if err != nil {
		return line
	}
	var buf bytes.Buffer
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return line
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
