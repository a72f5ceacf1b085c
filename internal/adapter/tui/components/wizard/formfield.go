package wizard

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"aisetup/internal/adapter/tui/theme"
)

// FormFieldModel wraps a textinput with a label and description.
type FormFieldModel struct {
	Input       textinput.Model
	Label       string
	Description string
	IsSecret    bool
}

// NewTextField creates a text input field.
func NewTextField(label, placeholder string) FormFieldModel {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Width = 50
	ti.PromptStyle = theme.InputPrompt
	ti.PlaceholderStyle = theme.InputPlaceholder

	return FormFieldModel{
		Input: ti,
		Label: label,
	}
}

// NewSecretField creates a masked input field for credentials.
func NewSecretField(label, placeholder string) FormFieldModel {
	f := NewTextField(label, placeholder)
	f.Input.EchoMode = textinput.EchoPassword
	f.Input.EchoCharacter = '•'
	f.IsSecret = true
	return f
}

// Focus gives the field keyboard focus.
func (m *FormFieldModel) Focus() {
	m.Input.Focus()
}

// Blur removes keyboard focus.
func (m *FormFieldModel) Blur() {
	m.Input.Blur()
}

// Focused reports whether the field has focus.
func (m FormFieldModel) Focused() bool {
	return m.Input.Focused()
}

// SetValue replaces the input text.
func (m *FormFieldModel) SetValue(v string) {
	m.Input.SetValue(v)
}

// Value returns the raw input. Credentials are stored verbatim, so no trimming.
func (m FormFieldModel) Value() string {
	return m.Input.Value()
}

// Update handles input events. Enter is left to the owning model.
func (m FormFieldModel) Update(msg tea.Msg) (FormFieldModel, tea.Cmd) {
	var cmd tea.Cmd
	m.Input, cmd = m.Input.Update(msg)
	return m, cmd
}

// View renders the form field.
func (m FormFieldModel) View() string {
	label := theme.Bold.Render(m.Label)
	if m.Focused() {
		label = theme.TextAccent.Render(theme.SymbolCursor+" ") + label
	} else {
		label = "  " + label
	}

	parts := []string{label}
	if m.Description != "" {
		parts = append(parts, "  "+theme.TextMuted.Render(m.Description))
	}
	parts = append(parts, "  "+m.Input.View())

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
