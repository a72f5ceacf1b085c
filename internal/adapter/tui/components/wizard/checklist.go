package wizard

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"aisetup/internal/adapter/tui/theme"
)

// ChecklistItem is one row of a ChecklistModel.
type ChecklistItem struct {
	ID      string
	Label   string
	Desc    string
	Checked bool
}

// ToggleMsg is emitted when the user toggles the row under the cursor. The
// owner decides what toggling means and feeds the result back via SetChecked.
type ToggleMsg struct {
	Index int
	ID    string
}

// ChecklistModel is a vertical multi-select list.
type ChecklistModel struct {
	Items  []ChecklistItem
	Cursor int
}

// NewChecklist creates a checklist with the cursor on the first row.
func NewChecklist(items []ChecklistItem) ChecklistModel {
	return ChecklistModel{Items: items}
}

// SetChecked updates the state of the row with id.
func (m *ChecklistModel) SetChecked(id string, checked bool) {
	for i := range m.Items {
		if m.Items[i].ID == id {
			m.Items[i].Checked = checked
			return
		}
	}
}

// Checked returns the ids of checked rows in display order.
func (m ChecklistModel) Checked() []string {
	var ids []string
	for _, it := range m.Items {
		if it.Checked {
			ids = append(ids, it.ID)
		}
	}
	return ids
}

// Update moves the cursor on arrow keys (and j/k) and emits ToggleMsg on space.
func (m ChecklistModel) Update(msg tea.Msg) (ChecklistModel, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok || len(m.Items) == 0 {
		return m, nil
	}
	switch key.String() {
	case "up", "k":
		if m.Cursor > 0 {
			m.Cursor--
		}
	case "down", "j":
		if m.Cursor < len(m.Items)-1 {
			m.Cursor++
		}
	case " ", "space", "x":
		idx, id := m.Cursor, m.Items[m.Cursor].ID
		return m, func() tea.Msg { return ToggleMsg{Index: idx, ID: id} }
	}
	return m, nil
}

// View renders one line per item.
func (m ChecklistModel) View() string {
	var b strings.Builder
	for i, it := range m.Items {
		cursor := "  "
		if i == m.Cursor {
			cursor = theme.ChecklistCursor.Render(theme.SymbolCursor) + " "
		}
		box := theme.TextMuted.Render(theme.SymbolUnchecked)
		if it.Checked {
			box = theme.TextSuccess.Render(theme.SymbolChecked)
		}
		label := it.Label
		if i == m.Cursor {
			label = theme.Bold.Render(label)
		}
		b.WriteString(cursor + box + " " + label)
		if it.Desc != "" {
			b.WriteString("  " + theme.TextMuted.Render(it.Desc))
		}
		if i < len(m.Items)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
