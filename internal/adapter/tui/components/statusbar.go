// Package components holds reusable Bubble Tea view pieces.
package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"aisetup/internal/adapter/tui/theme"
)

// KeyHint represents a single keybinding hint shown in the status bar.
type KeyHint struct {
	Key  string // e.g. "Space"
	Desc string // e.g. "Toggle"
}

// StatusBarModel renders a bottom line with key hints on the left and
// session details on the right.
type StatusBarModel struct {
	Hints   []KeyHint
	Session string
	Extra   string // e.g. "2 saved"
	width   int
}

// NewStatusBar creates a status bar with the given hints.
func NewStatusBar(hints ...KeyHint) StatusBarModel {
	return StatusBarModel{Hints: hints}
}

// SetWidth updates the available width.
func (m *StatusBarModel) SetWidth(w int) {
	m.width = w
}

// View renders the status bar as a single line.
func (m StatusBarModel) View() string {
	var hints []string
	for _, h := range m.Hints {
		hints = append(hints, theme.StatusKey.Render(h.Key)+": "+h.Desc)
	}
	left := strings.Join(hints, "  "+theme.Dim.Render("|")+"  ")

	var right []string
	if m.Extra != "" {
		right = append(right, theme.TextInfo.Render(m.Extra))
	}
	if m.Session != "" {
		right = append(right, theme.TextMuted.Render("session "+shortID(m.Session)))
	}
	rightStr := strings.Join(right, "  ")

	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(rightStr), 1)
	bar := left + strings.Repeat(" ", gap) + rightStr
	if m.width <= 0 {
		return theme.StatusBar.Render(bar)
	}
	return theme.StatusBar.Width(m.width).Render(bar)
}

// shortID keeps the random tail of a ULID, which is what differs between runs.
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[len(id)-8:]
}
