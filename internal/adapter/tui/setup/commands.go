package setup

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"aisetup/internal/domain"
)

// Drainer waits for fire-and-forget writes to finish.
type Drainer interface {
	WaitTimeout(timeout time.Duration) bool
}

// drainCmd waits for pending writes off the UI goroutine.
func drainCmd(d Drainer, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		if d == nil || d.WaitTimeout(timeout) {
			return SavedMsg{}
		}
		return SavedMsg{Err: domain.NewDomainError("setup.drain", domain.ErrTimeout,
			fmt.Sprintf("settings writes still pending after %s", timeout))}
	}
}

// renderMarkdown renders md for the terminal, falling back to the source
// text when glamour cannot build a renderer.
func renderMarkdown(md string, width int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}
