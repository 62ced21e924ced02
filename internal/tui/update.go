package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/repowatch/repowatch/internal/types"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.showHelp {
			m.showHelp = false
			return m, nil
		}
		if m.scanning {
			if msg.String() == "ctrl+c" {
				m.quitting = true
				return m, tea.Quit
			}
			return m, nil
		}
		if m.searchMode {
			switch msg.String() {
			case "enter":
				m.searchMode = false
				m.searchInput.Blur()
				return m, nil
			case "esc":
				m.searchMode = false
				m.searchInput.Blur()
				m.clearFilters()
				return m, nil
			default:
				m.searchInput, cmd = m.searchInput.Update(msg)
				m.searchQuery = m.searchInput.Value()
				m.applyFilters()
				return m, cmd
			}
		}

		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "?":
			m.showHelp = true
			return m, nil
		case "/":
			m.searchMode = true
			m.searchInput.SetValue(m.searchQuery)
			m.searchInput.Focus()
			return m, textinput.Blink
		case "1", "2", "3", "4":
			sev := map[string]types.Severity{
				"1": types.SevCritical,
				"2": types.SevHigh,
				"3": types.SevMed,
				"4": types.SevLow,
			}[msg.String()]
			m.severityFilter = sev
			m.applyFilters()
			m.setStatus(fmt.Sprintf("Showing %s severity only (Esc to clear)", severityText(sev)), 3*time.Second)
			return m, nil
		case "esc":
			if m.searchQuery != "" || m.severityFilter != "" {
				m.clearFilters()
				m.setStatus("Filters cleared", 3*time.Second)
			}
			return m, nil
		case "n", "N":
			dir := 1
			if msg.String() == "N" {
				dir = -1
			}
			if m.jumpToSevere(dir) {
				m.updateViewportContent()
			} else {
				m.setStatus("No critical or high findings", 2*time.Second)
			}
			return m, nil
		case "+", "=":
			m.expandContext()
			return m, nil
		case "-", "_":
			m.contractContext()
			return m, nil
		case "r":
			if m.opts.Rescan == nil {
				m.setStatus("Rescan not available", 3*time.Second)
				return m, nil
			}
			m.scanning = true
			return m, tea.Batch(m.spinner.Tick, m.rescan())
		case "enter", "o":
			return m, m.openEditor()
		case "y":
			return m, m.copyPath()
		case "Y":
			return m, m.copyFinding()
		case "b":
			return m, m.toggleBaseline()
		case "i":
			return m, m.ignorePath()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		usable := m.width - 10
		cols := m.table.Columns()
		locWidth := usable - cols[0].Width - cols[1].Width - cols[2].Width
		if locWidth < 25 {
			locWidth = 25
		}
		cols[3].Width = locWidth
		m.table.SetColumns(cols)

		// stats header, status bar and two pane borders
		chrome := 1 + 1 + 4
		tableHeight := (m.height - chrome) / 2
		if tableHeight < 3 {
			tableHeight = 3
		}
		m.table.SetHeight(tableHeight)
		detailHeight := m.height - chrome - tableHeight
		if detailHeight < 3 {
			detailHeight = 3
		}
		if !m.ready {
			m.viewport = viewport.New(m.width-2, detailHeight)
			m.ready = true
		} else {
			m.viewport.Width = m.width - 2
			m.viewport.Height = detailHeight
		}
		m.updateViewportContent()
		return m, nil

	case findingsMsg:
		m.findings = msg
		m.scanning = false
		m.opts.Cached = false
		m.lastScanTime = time.Now()
		m.applyFilters()
		m.setStatus(fmt.Sprintf("Rescan complete: %d findings", len(m.findings)), 5*time.Second)
		return m, nil

	case statusMsg:
		m.scanning = false
		m.setStatus(string(msg), 3*time.Second)
		return m, nil

	case spinner.TickMsg:
		var spinCmd tea.Cmd
		m.spinner, spinCmd = m.spinner.Update(msg)
		if m.statusTimeout != nil && time.Now().After(*m.statusTimeout) {
			m.statusTimeout = nil
			m.statusMessage = defaultHelp
		}
		return m, spinCmd
	}

	if m.quitting {
		return m, nil
	}
	prev := m.table.Cursor()
	m.table, cmd = m.table.Update(msg)
	if m.table.Cursor() != prev {
		m.updateViewportContent()
	}
	return m, cmd
}
