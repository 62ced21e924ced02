package tui

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/repowatch/repowatch/internal/ignore"
	"github.com/repowatch/repowatch/internal/report"
	"github.com/repowatch/repowatch/internal/types"
)

// editorArgs builds the argument list that opens path at line in editor.
func editorArgs(editor, path string, line int) []string {
	if line <= 0 {
		return []string{path}
	}
	switch filepath.Base(editor) {
	case "code", "code-insiders":
		return []string{"-g", fmt.Sprintf("%s:%d", path, line)}
	case "subl", "sublime_text":
		return []string{fmt.Sprintf("%s:%d", path, line)}
	default:
		return []string{fmt.Sprintf("+%d", line), path}
	}
}

func (m Model) openEditor() tea.Cmd {
	f := m.selected()
	if f == nil {
		return nil
	}
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}
	c := exec.Command(editor, editorArgs(editor, f.Path, f.Line)...)
	return tea.ExecProcess(c, func(err error) tea.Msg {
		if err != nil {
			return statusMsg(fmt.Sprintf("Error opening editor: %v", err))
		}
		return statusMsg("Editor closed")
	})
}

func (m Model) copyPath() tea.Cmd {
	f := m.selected()
	if f == nil {
		return func() tea.Msg { return statusMsg("No finding selected") }
	}
	if err := clipboard.WriteAll(f.Path); err != nil {
		return func() tea.Msg { return statusMsg(fmt.Sprintf("Clipboard error: %v", err)) }
	}
	return func() tea.Msg { return statusMsg("Copied: " + f.Path) }
}

func findingText(f types.Finding) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Rule: %s\n", f.Rule)
	fmt.Fprintf(&sb, "Severity: %s\n", f.Severity.Title())
	fmt.Fprintf(&sb, "Category: %s\n", f.Category)
	fmt.Fprintf(&sb, "Path: %s\n", f.Path)
	if f.Line > 0 {
		fmt.Fprintf(&sb, "Line: %d\n", f.Line)
	}
	fmt.Fprintf(&sb, "Message: %s\n", f.Message)
	if f.Hint != "" {
		fmt.Fprintf(&sb, "Hint: %s\n", f.Hint)
	}
	return sb.String()
}

func (m Model) copyFinding() tea.Cmd {
	f := m.selected()
	if f == nil {
		return func() tea.Msg { return statusMsg("No finding selected") }
	}
	if err := clipboard.WriteAll(findingText(*f)); err != nil {
		return func() tea.Msg { return statusMsg(fmt.Sprintf("Clipboard error: %v", err)) }
	}
	return func() tea.Msg { return statusMsg("Copied finding details to clipboard") }
}

// toggleBaseline adds or removes the selected finding and saves the baseline.
func (m *Model) toggleBaseline() tea.Cmd {
	f := m.selected()
	if f == nil {
		return nil
	}
	path := m.opts.BaselinePath
	if path == "" {
		path = report.DefaultBaselineFile
	}
	// Reload so entries written by another process are kept.
	if base, err := report.LoadBaseline(path); err == nil {
		for k := range base.Items {
			m.baseline.Items[k] = true
		}
	}
	key := f.Fingerprint()
	msg := "Added finding to baseline"
	if m.baseline.Items[key] {
		delete(m.baseline.Items, key)
		msg = "Removed finding from baseline"
	} else {
		m.baseline.Items[key] = true
	}
	if err := m.baseline.Save(path); err != nil {
		return func() tea.Msg { return statusMsg(fmt.Sprintf("Error writing baseline: %v", err)) }
	}
	cursor := m.table.Cursor()
	m.rebuildTableRows()
	m.table.SetCursor(cursor)
	return func() tea.Msg { return statusMsg(msg) }
}

// ignorePath appends the selected finding's root-relative path to the ignore
// file so the next scan skips it.
func (m Model) ignorePath() tea.Cmd {
	f := m.selected()
	if f == nil || m.opts.IgnorePath == "" {
		return func() tea.Msg { return statusMsg("Ignore file not configured") }
	}
	entry := f.Path
	if m.opts.Root != "" {
		if rel, err := filepath.Rel(m.opts.Root, f.Path); err == nil && !strings.HasPrefix(rel, "..") {
			entry = rel
		}
	}
	entry = filepath.ToSlash(entry)

	added, err := ignore.Append(m.opts.IgnorePath, entry)
	if err != nil {
		return func() tea.Msg { return statusMsg(fmt.Sprintf("Error writing %s: %v", m.opts.IgnorePath, err)) }
	}
	if !added {
		return func() tea.Msg { return statusMsg(entry + " is already ignored") }
	}
	return func() tea.Msg { return statusMsg(fmt.Sprintf("Added %s to %s", entry, filepath.Base(m.opts.IgnorePath))) }
}
