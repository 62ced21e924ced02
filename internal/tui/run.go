package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/repowatch/repowatch/internal/types"
)

// Run opens the findings browser on the alternate screen and blocks until
// the user quits.
func Run(findings []types.Finding, opts Options) error {
	if _, err := tea.NewProgram(New(findings, opts), tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
