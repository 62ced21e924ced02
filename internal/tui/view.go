package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/repowatch/repowatch/internal/types"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Initializing..."
	}

	if m.scanning {
		msg := fmt.Sprintf("%s  Rescanning...\n\nPlease wait", m.spinner.View())
		box := popupStyle.Width(55).Align(lipgloss.Center).Render(msg)
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
	}
	if m.showHelp {
		return m.helpView()
	}

	display := m.displayFindings()
	header := lipgloss.NewStyle().
		Width(m.width).
		Padding(0, 2).
		Foreground(lipgloss.Color("15")).
		Background(lipgloss.Color("237")).
		Render(m.statsLine(display))

	tableRender := paneBorderStyle.
		Width(m.width - 2).
		Height(m.table.Height()).
		Render(m.table.View())

	var detail string
	if len(display) == 0 {
		msg := "No issues found.\n\nPress 'r' to rescan\nPress '?' for help"
		if len(m.findings) > 0 {
			msg = "No findings match filter.\n\nPress 'Esc' to clear filter"
		}
		detail = lipgloss.Place(m.width-2, m.viewport.Height, lipgloss.Center, lipgloss.Center, emptyTextStyle.Render(msg))
	} else {
		detail = m.viewport.View()
	}
	detailRender := paneBorderStyle.
		Width(m.width - 2).
		Height(m.viewport.Height).
		Render(detail)

	var bottom string
	if m.searchMode {
		bottom = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("15")).
			Width(m.width).
			Padding(0, 1).
			Render(m.searchInput.View() + fmt.Sprintf(" (%d matches)", len(display)))
	} else {
		bottom = statusStyle.Width(m.width).Padding(0, 2).Render(m.statusBar())
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, tableRender, detailRender, bottom)
}

func (m Model) statsLine(display []types.Finding) string {
	if len(m.findings) == 0 {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render("[OK] No issues found")
	}
	counts := map[types.Severity]int{}
	for _, f := range display {
		counts[f.Severity]++
	}
	total := fmt.Sprintf("Total: %-4d", len(m.findings))
	if m.filteredFindings != nil {
		total = fmt.Sprintf("Showing: %d/%d", len(display), len(m.findings))
	}
	line := fmt.Sprintf("%s  |  %s %-4d  |  %s %-4d  |  %s %-4d  |  %s %-4d",
		total,
		sevCriticalStyle.Render("Critical:"), counts[types.SevCritical],
		sevHighStyle.Render("High:"), counts[types.SevHigh],
		sevMedStyle.Render("Med:"), counts[types.SevMed],
		sevLowStyle.Render("Low:"), counts[types.SevLow],
	)
	var filters []string
	if m.searchQuery != "" {
		filters = append(filters, fmt.Sprintf("search:'%s'", m.searchQuery))
	}
	if m.severityFilter != "" {
		filters = append(filters, "sev:"+severityText(m.severityFilter))
	}
	if len(filters) > 0 {
		line += fmt.Sprintf("  [FILTER: %s]", strings.Join(filters, ", "))
	}
	return line
}

func (m Model) statusBar() string {
	var timeInfo string
	if m.opts.Cached {
		timeInfo = fmt.Sprintf("Cached: %s", m.lastScanTime.Local().Format("Jan 2, 15:04"))
	} else if !m.lastScanTime.IsZero() {
		timeInfo = fmt.Sprintf("Scanned: %s ago", formatDuration(time.Since(m.lastScanTime)))
	}
	spacer := m.width - 4 - lipgloss.Width(m.statusMessage) - lipgloss.Width(timeInfo)
	if spacer < 1 {
		spacer = 1
	}
	return m.statusMessage + strings.Repeat(" ", spacer) + timeInfo
}

func (m Model) helpView() string {
	section := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	row := func(key, desc string) string {
		pad := 12 - len(key)
		if pad < 1 {
			pad = 1
		}
		return "  " + lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(key) +
			strings.Repeat(" ", pad) +
			lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Render(desc)
	}
	lines := []string{
		lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Render("Keyboard Shortcuts"),
		"",
		section.Render("Navigation"),
		row("j / k", "Move down / up"),
		row("n / N", "Next / prev critical or high"),
		row("+ / -", "Expand / contract context"),
		"",
		section.Render("Search & Filter"),
		row("/", "Search findings"),
		row("1-4", "Critical / high / medium / low"),
		row("Esc", "Clear filters"),
		"",
		section.Render("Actions"),
		row("Enter", "Open in $EDITOR"),
		row("y / Y", "Copy path / full finding"),
		row("b", "Toggle baseline"),
		row("i", "Add path to ignore file"),
		row("r", "Rescan"),
		row("q", "Quit"),
		"",
		dimStyle.Italic(true).Render("Press any key to close"),
	}
	box := popupStyle.Width(48).Padding(1, 3).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
