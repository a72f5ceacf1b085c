// Package wizard provides TUI components for the setup wizard.
package wizard

import (
	"fmt"
	"strings"

	"aisetup/internal/adapter/tui/theme"
)

// Step is one entry of the step indicator.
type Step struct {
	Name string
}

// StepIndicatorModel displays progress as "Step 3/5: Model (OpenAI)" over a
// progress bar. The step list may change while the wizard runs, since the
// route depends on which platforms are selected.
type StepIndicatorModel struct {
	Steps   []Step
	Current int
	width   int
}

// NewStepIndicator creates a step indicator.
func NewStepIndicator(steps []Step) StepIndicatorModel {
	return StepIndicatorModel{Steps: steps}
}

// SetWidth sets the rendering width.
func (m *StepIndicatorModel) SetWidth(w int) {
	m.width = w
}

// SetSteps replaces the step list, keeping Current in range.
func (m *StepIndicatorModel) SetSteps(steps []Step) {
	m.Steps = steps
	if m.Current >= len(steps) {
		m.Current = max(len(steps)-1, 0)
	}
}

// SetCurrent sets the active step index.
func (m *StepIndicatorModel) SetCurrent(i int) {
	if i >= 0 && i < len(m.Steps) {
		m.Current = i
	}
}

// Header returns the "Step n/N: name" line.
func (m StepIndicatorModel) Header() string {
	if len(m.Steps) == 0 {
		return ""
	}
	return fmt.Sprintf("Step %d/%d: %s", m.Current+1, len(m.Steps), m.Steps[m.Current].Name)
}

// View renders the step indicator.
func (m StepIndicatorModel) View() string {
	if len(m.Steps) == 0 || m.width < 20 {
		return ""
	}

	header := theme.WizardStepActive.Render(m.Header())

	barWidth := max(m.width-10, 10)
	pct := float64(m.Current+1) / float64(len(m.Steps))
	filled := min(int(pct*float64(barWidth)), barWidth)

	bar := theme.ProgressFull.Render(strings.Repeat("█", filled)) +
		theme.ProgressEmpty.Render(strings.Repeat("░", barWidth-filled))
	pctStr := theme.TextMuted.Render(fmt.Sprintf(" %d%%", int(pct*100)))

	return header + "\n" + bar + pctStr
}
