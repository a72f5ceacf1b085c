package setup

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"aisetup/internal/adapter/tui/components"
	"aisetup/internal/adapter/tui/components/wizard"
	"aisetup/internal/adapter/tui/theme"
	"aisetup/internal/domain"
	"aisetup/internal/usecase/onboarding"
)

const defaultDrainTimeout = 5 * time.Second

// listItem implements list.Item for the bubbles list component.
type listItem struct {
	title string
	desc  string
	id    string
}

func (i listItem) Title() string       { return i.title }
func (i listItem) Description() string { return i.desc }
func (i listItem) FilterValue() string { return i.title }

// Options wires the wizard to the onboarding flow.
type Options struct {
	Flow *onboarding.Flow
	// Drainer is waited on once the exit step is reached.
	Drainer      Drainer
	DrainTimeout time.Duration
}

// WizardModel is the root Bubble Tea model for the setup wizard. User input
// is captured into the flow's store when a step is left (forward or back);
// the flow decides what to persist.
type WizardModel struct {
	flow         *onboarding.Flow
	drainer      Drainer
	drainTimeout time.Duration

	steps     wizard.StepIndicatorModel
	checklist wizard.ChecklistModel
	fields    []wizard.FormFieldModel
	tokenFor  []domain.PlatformType
	focus     int
	list      list.Model
	saving    wizard.PendingModel
	summary   string

	width     int
	height    int
	cancelled bool
	done      bool
	saveErr   error
}

// NewWizardModel starts the flow and builds the first screen.
func NewWizardModel(opts Options) WizardModel {
	timeout := opts.DrainTimeout
	if timeout <= 0 {
		timeout = defaultDrainTimeout
	}
	m := WizardModel{
		flow:         opts.Flow,
		drainer:      opts.Drainer,
		drainTimeout: timeout,
		saving:       wizard.NewPending("Saving settings"),
		width:        80,
		height:       24,
	}
	m.steps.SetWidth(m.width - 4)
	m.flow.Start()
	m, _ = m.sync()
	return m
}

// Cancelled reports whether the user left before finishing.
func (m WizardModel) Cancelled() bool { return m.cancelled }

// Done reports whether the wizard reached the exit step and drained writes.
func (m WizardModel) Done() bool { return m.done }

// SaveErr returns the drain outcome once Done is true.
func (m WizardModel) SaveErr() error { return m.saveErr }

// Step returns the step on screen.
func (m WizardModel) Step() domain.Step { return m.flow.Current() }

// Init implements tea.Model.
func (m WizardModel) Init() tea.Cmd {
	return nil
}

// Update handles messages.
func (m WizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.steps.SetWidth(m.width - 4)
		if m.flow.Current().IsModelSelect() {
			m.list.SetSize(m.contentWidth(), m.listHeight())
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m.cancel()
		case tea.KeyEsc:
			if m.flow.Done() {
				return m, nil
			}
			if !m.flow.CanGoBack() {
				return m.cancel()
			}
			m.capture()
			m.flow.Back()
			return m.sync()
		case tea.KeyEnter:
			if m.flow.Done() {
				return m, nil
			}
			if m.flow.Current() == domain.StepTokenInput && m.focus < len(m.fields)-1 {
				m.setFocus(m.focus + 1)
				return m, nil
			}
			m.capture()
			m.flow.Advance()
			return m.sync()
		}

	case wizard.ToggleMsg:
		return m.toggle(domain.PlatformType(msg.ID)), nil

	case SavedMsg:
		m.saving.Finish(msg.Err)
		m.saveErr = msg.Err
		m.done = true
		return m, tea.Quit
	}

	return m.updateStep(msg)
}

func (m WizardModel) cancel() (tea.Model, tea.Cmd) {
	m.cancelled = true
	m.flow.Cancel()
	return m, tea.Quit
}

func (m WizardModel) updateStep(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	step := m.flow.Current()
	switch {
	case step == domain.StepSelectPlatform:
		m.checklist, cmd = m.checklist.Update(msg)
	case step == domain.StepTokenInput:
		if key, ok := msg.(tea.KeyMsg); ok && len(m.fields) > 0 {
			switch key.String() {
			case "tab", "down":
				m.setFocus((m.focus + 1) % len(m.fields))
				return m, nil
			case "shift+tab", "up":
				m.setFocus((m.focus + len(m.fields) - 1) % len(m.fields))
				return m, nil
			}
		}
		if m.focus < len(m.fields) {
			m.fields[m.focus], cmd = m.fields[m.focus].Update(msg)
		}
	case step.IsModelSelect():
		m.list, cmd = m.list.Update(msg)
	case step == domain.StepExitToMainApp:
		m.saving, cmd = m.saving.Update(msg)
	}
	return m, cmd
}

func (m WizardModel) toggle(p domain.PlatformType) WizardModel {
	store := m.flow.Store()
	cfg, ok := store.Platform(p)
	if !ok {
		return m
	}
	store.ToggleSelected(cfg)
	cfg, _ = store.Platform(p)
	m.checklist.SetChecked(string(p), cfg.Selected)
	m.steps.SetSteps(indicatorSteps(m.flow.Route()))
	return m
}

// capture copies on-screen input of the current step into the store.
func (m WizardModel) capture() {
	store := m.flow.Store()
	step := m.flow.Current()
	switch {
	case step == domain.StepTokenInput:
		for i, p := range m.tokenFor {
			if cfg, ok := store.Platform(p); ok {
				store.SetToken(cfg, m.fields[i].Value())
			}
		}
	case step.IsModelSelect():
		p, _ := step.Platform()
		if item, ok := m.list.SelectedItem().(listItem); ok {
			store.SetModel(p, item.id)
		}
	}
}

// sync rebuilds the view state for the flow's current step.
func (m WizardModel) sync() (WizardModel, tea.Cmd) {
	step := m.flow.Current()
	m.steps.SetSteps(indicatorSteps(m.flow.Route()))
	if pos := m.flow.Position(); pos >= 0 {
		m.steps.SetCurrent(pos)
	}

	switch {
	case step == domain.StepSelectPlatform:
		m.checklist = m.buildChecklist()
	case step == domain.StepTokenInput:
		m.buildTokenFields()
	case step.IsModelSelect():
		p, _ := step.Platform()
		m.list = m.buildModelList(p)
	case step == domain.StepSetupComplete:
		md := onboarding.SummaryMarkdown(m.flow.Store().Snapshot())
		m.summary = renderMarkdown(md, m.contentWidth())
	case step == domain.StepExitToMainApp:
		return m, tea.Batch(m.saving.Start(), drainCmd(m.drainer, m.drainTimeout))
	}
	return m, nil
}

func (m *WizardModel) setFocus(i int) {
	if i < 0 || i >= len(m.fields) {
		return
	}
	m.fields[m.focus].Blur()
	m.focus = i
	m.fields[m.focus].Focus()
}

func (m WizardModel) contentWidth() int {
	return theme.Clamp(m.width-4, 20, theme.MaxContentWidth)
}

func (m WizardModel) listHeight() int {
	return max(m.height-12, 6)
}

// --- Builders ---

func (m WizardModel) buildChecklist() wizard.ChecklistModel {
	var items []wizard.ChecklistItem
	for _, cfg := range m.flow.Store().Snapshot().Platforms() {
		items = append(items, wizard.ChecklistItem{
			ID:      string(cfg.Name),
			Label:   cfg.Name.DisplayName(),
			Desc:    platformBlurb[cfg.Name],
			Checked: cfg.Selected,
		})
	}
	return wizard.NewChecklist(items)
}

func (m *WizardModel) buildTokenFields() {
	m.fields = nil
	m.tokenFor = nil
	m.focus = 0
	for _, p := range m.flow.SelectedPlatforms() {
		f := wizard.NewSecretField(p.DisplayName()+" API key", tokenPlaceholder[p])
		if cfg, ok := m.flow.Store().Platform(p); ok && cfg.Token != nil {
			f.SetValue(*cfg.Token)
		}
		m.fields = append(m.fields, f)
		m.tokenFor = append(m.tokenFor, p)
	}
	if len(m.fields) > 0 {
		m.fields[0].Focus()
	}
}

func (m WizardModel) buildModelList(p domain.PlatformType) list.Model {
	catalog := m.flow.Store().Catalog()
	defaultIdx := m.flow.DefaultIndex(p)

	var items []list.Item
	for i, model := range catalog.Models(p) {
		desc := ""
		if i == defaultIdx {
			desc = "Default"
		}
		items = append(items, listItem{title: model, desc: desc, id: model})
	}

	l := list.New(items, list.NewDefaultDelegate(), m.contentWidth(), m.listHeight())
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.KeyMap.Quit.SetEnabled(false)
	l.KeyMap.ForceQuit.SetEnabled(false)

	if cfg, ok := m.flow.Store().Platform(p); ok && cfg.Model != nil {
		if i := catalog.IndexOf(p, *cfg.Model); i >= 0 {
			l.Select(i)
		}
	}
	return l
}

// --- Views ---

// View renders the current step.
func (m WizardModel) View() string {
	title := theme.WizardTitle.Render("AI platform setup")

	var content string
	step := m.flow.Current()
	switch {
	case step == domain.StepSelectPlatform:
		content = m.viewSelect()
	case step == domain.StepTokenInput:
		content = m.viewTokens()
	case step.IsModelSelect():
		content = m.viewModel(step)
	case step == domain.StepSetupComplete:
		content = m.viewSummary()
	case step == domain.StepExitToMainApp:
		content = m.saving.View()
	}

	sb := components.NewStatusBar(m.hints()...)
	sb.Session = m.flow.Store().SessionID()
	sb.SetWidth(m.width)

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		m.steps.View(),
		"",
		content,
		"",
		sb.View(),
	)
}

func (m WizardModel) hints() []components.KeyHint {
	back := components.KeyHint{Key: "Esc", Desc: "Back"}
	if !m.flow.CanGoBack() {
		back.Desc = "Quit"
	}
	switch step := m.flow.Current(); {
	case step == domain.StepSelectPlatform:
		return []components.KeyHint{{Key: "Space", Desc: "Toggle"}, {Key: "Enter", Desc: "Continue"}, back}
	case step == domain.StepTokenInput:
		return []components.KeyHint{{Key: "Tab", Desc: "Next field"}, {Key: "Enter", Desc: "Continue"}, back}
	case step.IsModelSelect():
		return []components.KeyHint{{Key: "Up/Down", Desc: "Choose"}, {Key: "Enter", Desc: "Select"}, back}
	case step == domain.StepSetupComplete:
		return []components.KeyHint{{Key: "Enter", Desc: "Finish"}, back}
	}
	return []components.KeyHint{{Key: "Ctrl+C", Desc: "Quit"}}
}

func (m WizardModel) viewSelect() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		theme.Bold.Render(StepHeading(domain.StepSelectPlatform)),
		"",
		m.checklist.View(),
		"",
		theme.TextMuted.Render("Selected platforms will be enabled in the app."),
	)
}

func (m WizardModel) viewTokens() string {
	parts := []string{theme.Bold.Render(StepHeading(domain.StepTokenInput)), ""}
	if len(m.fields) == 0 {
		parts = append(parts, theme.TextMuted.Render("No platform selected. Press Enter to continue."))
		return lipgloss.JoinVertical(lipgloss.Left, parts...)
	}
	for i, f := range m.fields {
		if i > 0 {
			parts = append(parts, "")
		}
		parts = append(parts, f.View())
	}
	parts = append(parts, "", theme.TextMuted.Render("Leave a key blank to skip that platform for now."))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m WizardModel) viewModel(step domain.Step) string {
	p, _ := step.Platform()
	parts := []string{theme.Bold.Render(StepHeading(step)), "", m.list.View()}
	if cfg, ok := m.flow.Store().Platform(p); ok && cfg.Token == nil {
		parts = append(parts, theme.TextWarning.Render(fmt.Sprintf(
			"%s No %s key was entered; the model will not be saved.", theme.SymbolWarning, p.DisplayName())))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m WizardModel) viewSummary() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		theme.TextSuccess.Render(theme.SymbolSuccess+" "+StepHeading(domain.StepSetupComplete)),
		m.summary,
		theme.TextInfo.Render("Press Enter to save and start the app"),
	)
}
