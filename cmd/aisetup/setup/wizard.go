// Package setup implements the line-oriented onboarding wizard used when no
// terminal UI is available.
package setup

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"aisetup/internal/domain"
	"aisetup/internal/usecase/onboarding"
)

// Commands accepted at any prompt. API keys never start with a colon.
const (
	cmdBack = ":back"
	cmdQuit = ":quit"
)

// ErrCancelled is returned by Run when the user quits or input ends early.
var ErrCancelled = errors.New("setup cancelled")

// errBack unwinds a step handler when the user asks to go back.
var errBack = errors.New("back")

// Option configures a Wizard.
type Option func(*Wizard)

// WithSecretReader reads API keys with fn instead of the line reader, e.g.
// to disable terminal echo.
func WithSecretReader(fn func() (string, error)) Option {
	return func(w *Wizard) { w.readSecret = fn }
}

// Wizard guides the user through platform onboarding one prompt at a time.
type Wizard struct {
	reader     *bufio.Reader
	writer     io.Writer
	flow       *onboarding.Flow
	readSecret func() (string, error)
}

// NewWizard creates a Wizard that drives flow with the given I/O.
func NewWizard(r io.Reader, w io.Writer, flow *onboarding.Flow, opts ...Option) *Wizard {
	wiz := &Wizard{
		reader: bufio.NewReader(r),
		writer: w,
		flow:   flow,
	}
	wiz.readSecret = wiz.readLine
	for _, opt := range opts {
		opt(wiz)
	}
	return wiz
}

// Run executes the wizard until the flow hands off to the main app. It
// returns ErrCancelled when the user quits.
func (w *Wizard) Run() error {
	w.printHeader()
	w.flow.Start()

	for !w.flow.Done() {
		step := w.flow.Current()
		w.printStep(step)

		var err error
		switch {
		case step == domain.StepSelectPlatform:
			err = w.selectPlatforms()
		case step == domain.StepTokenInput:
			err = w.enterTokens()
		case step.IsModelSelect():
			p, _ := step.Platform()
			err = w.chooseModel(p)
		case step == domain.StepSetupComplete:
			err = w.confirmSummary()
		default:
			return fmt.Errorf("wizard: no handler for step %q", step)
		}

		switch {
		case err == nil:
			w.flow.Advance()
		case errors.Is(err, errBack):
			if _, ok := w.flow.Back(); !ok {
				fmt.Fprintln(w.writer, "Already at the first step.")
			}
		case errors.Is(err, ErrCancelled), errors.Is(err, io.EOF):
			w.flow.Cancel()
			return ErrCancelled
		default:
			return err
		}
	}
	return nil
}

func (w *Wizard) printHeader() {
	fmt.Fprintln(w.writer, "=== AI platform setup ===")
	fmt.Fprintf(w.writer, "Type %s to return to the previous step or %s to stop.\n", cmdBack, cmdQuit)
	fmt.Fprintln(w.writer)
}

func (w *Wizard) printStep(step domain.Step) {
	route := w.flow.Route()
	pos := w.flow.Position()
	fmt.Fprintf(w.writer, "\nStep %d/%d: %s\n", pos+1, len(route), stepTitle(step))
	fmt.Fprintln(w.writer, strings.Repeat("-", 40))
}

func (w *Wizard) selectPlatforms() error {
	store := w.flow.Store()
	for {
		platforms := store.Snapshot().Platforms()
		for i, cfg := range platforms {
			box := "[ ]"
			if cfg.Selected {
				box = "[x]"
			}
			fmt.Fprintf(w.writer, "  %d) %s %s\n", i+1, box, cfg.Name.DisplayName())
		}

		line, err := w.ask("Toggle platforms (e.g. 1,3), empty line to continue")
		if err != nil {
			return err
		}
		if line == "" {
			return nil
		}

		for _, part := range strings.Split(line, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil || n < 1 || n > len(platforms) {
				fmt.Fprintf(w.writer, "Ignoring %q: enter numbers between 1 and %d.\n", strings.TrimSpace(part), len(platforms))
				continue
			}
			if cfg, ok := store.Platform(platforms[n-1].Name); ok {
				store.ToggleSelected(cfg)
			}
		}
	}
}

func (w *Wizard) enterTokens() error {
	selected := w.flow.SelectedPlatforms()
	if len(selected) == 0 {
		fmt.Fprintln(w.writer, "No platform selected, nothing to enter.")
		_, err := w.ask("Press Enter to continue")
		return err
	}

	store := w.flow.Store()
	for _, p := range selected {
		cfg, _ := store.Platform(p)
		prompt := p.DisplayName() + " API key"
		if cfg.Token != nil {
			prompt += " [keep " + domain.MaskSecret(*cfg.Token) + "]"
		}
		fmt.Fprintf(w.writer, "%s: ", prompt)

		raw, err := w.readSecret()
		if err != nil {
			return err
		}
		switch strings.TrimSpace(raw) {
		case cmdBack:
			return errBack
		case cmdQuit:
			return ErrCancelled
		case "":
			if cfg.Token == nil {
				fmt.Fprintf(w.writer, "No key for %s; its model will not be saved.\n", p.DisplayName())
			}
			continue
		}
		store.SetToken(cfg, raw)
	}
	return nil
}

func (w *Wizard) chooseModel(p domain.PlatformType) error {
	store := w.flow.Store()
	models := store.Catalog().Models(p)
	current := ""
	if cfg, ok := store.Platform(p); ok && cfg.Model != nil {
		current = *cfg.Model
	}
	defaultIdx := w.flow.DefaultIndex(p)

	for i, m := range models {
		var marks []string
		if i == defaultIdx {
			marks = append(marks, "default")
		}
		if m == current {
			marks = append(marks, "current")
		}
		suffix := ""
		if len(marks) > 0 {
			suffix = " (" + strings.Join(marks, ", ") + ")"
		}
		fmt.Fprintf(w.writer, "  %d) %s%s\n", i+1, m, suffix)
	}

	for {
		line, err := w.ask(fmt.Sprintf("Choice [1-%d], empty keeps %s", len(models), current))
		if err != nil {
			return err
		}
		if line == "" {
			return nil
		}
		n, err := strconv.Atoi(line)
		if err != nil || n < 1 || n > len(models) {
			fmt.Fprintf(w.writer, "Please enter a number between 1 and %d.\n", len(models))
			continue
		}
		store.SetModel(p, models[n-1])
		return nil
	}
}

func (w *Wizard) confirmSummary() error {
	rows := onboarding.SummaryRows(w.flow.Store().Snapshot())
	fmt.Fprintf(w.writer, "  %-10s %-8s %-20s %s\n", "Platform", "Enabled", "Token", "Model")
	for _, r := range rows {
		enabled := "no"
		if r.Enabled {
			enabled = "yes"
		}
		fmt.Fprintf(w.writer, "  %-10s %-8s %-20s %s\n", r.Platform, enabled, r.Token, r.Model)
	}
	_, err := w.ask("Press Enter to save and finish")
	return err
}

// ask prints prompt and reads one trimmed line, translating navigation
// commands into errBack and ErrCancelled.
func (w *Wizard) ask(prompt string) (string, error) {
	fmt.Fprintf(w.writer, "%s: ", prompt)
	line, err := w.readLine()
	if err != nil {
		return "", err
	}
	line = strings.TrimSpace(line)
	switch line {
	case cmdBack:
		return "", errBack
	case cmdQuit:
		return "", ErrCancelled
	}
	return line, nil
}

// readLine returns the next input line without its terminator. A final line
// without newline is still returned; io.EOF is reported only when nothing
// was read.
func (w *Wizard) readLine() (string, error) {
	line, err := w.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func stepTitle(s domain.Step) string {
	switch s {
	case domain.StepSelectPlatform:
		return "Choose platforms"
	case domain.StepTokenInput:
		return "API keys"
	case domain.StepSetupComplete:
		return "Summary"
	}
	if p, ok := s.Platform(); ok {
		return p.DisplayName() + " model"
	}
	return string(s)
}
