package wizard

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"aisetup/internal/adapter/tui/theme"
)

// PendingModel shows a spinner while background work drains, then its outcome.
type PendingModel struct {
	Spinner spinner.Model
	Label   string
	Active  bool
	Done    bool
	ErrMsg  string
}

// NewPending creates an idle pending indicator.
func NewPending(label string) PendingModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(theme.ColorInfo)

	return PendingModel{Spinner: s, Label: label}
}

// Start begins the animation and returns the first tick.
func (m *PendingModel) Start() tea.Cmd {
	m.Active = true
	m.Done = false
	m.ErrMsg = ""
	return m.Spinner.Tick
}

// Finish records the outcome. A nil err means success.
func (m *PendingModel) Finish(err error) {
	m.Active = false
	m.Done = true
	if err != nil {
		m.ErrMsg = err.Error()
	}
}

// Update handles spinner ticks while active.
func (m PendingModel) Update(msg tea.Msg) (PendingModel, tea.Cmd) {
	if !m.Active {
		return m, nil
	}
	var cmd tea.Cmd
	m.Spinner, cmd = m.Spinner.Update(msg)
	return m, cmd
}

// View renders the current state.
func (m PendingModel) View() string {
	switch {
	case m.Active:
		return m.Spinner.View() + " " + m.Label + "..."
	case m.Done && m.ErrMsg != "":
		return theme.TextWarning.Render(fmt.Sprintf("%s %s: %s", theme.SymbolWarning, m.Label, m.ErrMsg))
	case m.Done:
		return theme.TextSuccess.Render(theme.SymbolSuccess + " " + m.Label + " done")
	}
	return ""
}
