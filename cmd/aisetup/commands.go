package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/term"

	"aisetup/cmd/aisetup/setup"
	tuisetup "aisetup/internal/adapter/tui/setup"
	"aisetup/internal/adapter/tui/theme"
	"aisetup/internal/domain"
	"aisetup/internal/usecase/onboarding"
)

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func runSetup(args []string) error {
	dryRun := hasFlag(args, "--dry-run")
	plain := hasFlag(args, "--plain") || !isTerminal(os.Stdin) || !isTerminal(os.Stdout)

	ctx := context.Background()
	a, err := newApp(ctx, args, appOptions{terminalUI: !plain, dryRun: dryRun})
	if err != nil {
		return err
	}
	defer a.close()

	s := a.newSession(ctx)
	s.log.Info("setup started", "plain", plain, "dry_run", dryRun, "settings", a.cfg.Settings.Path)

	timeout := drainBudget(a.cfg.Sink, runWrites())
	var cancelled bool
	if plain {
		cancelled, err = runPlainWizard(s, timeout)
	} else {
		cancelled, err = runTUIWizard(s, timeout)
	}
	if err != nil {
		s.drain(timeout)
		return err
	}
	if cancelled {
		s.drain(timeout)
		fmt.Println("Setup cancelled. Answers confirmed so far were kept.")
		return nil
	}

	if n := s.tally.Failed(); n > 0 {
		fmt.Println(theme.TextWarning.Render(fmt.Sprintf(
			"%s %d settings write(s) failed; run 'aisetup status' to check what was saved.", theme.SymbolWarning, n)))
	}
	if dryRun {
		fmt.Println("Dry run: nothing was written.")
	}
	fmt.Println(a.cfg.Setup.ExitMessage)
	return nil
}

func runPlainWizard(s *session, timeout time.Duration) (bool, error) {
	var opts []setup.Option
	if isTerminal(os.Stdin) {
		fd := int(os.Stdin.Fd())
		opts = append(opts, setup.WithSecretReader(func() (string, error) {
			b, err := term.ReadPassword(fd)
			fmt.Println()
			return string(b), err
		}))
	}

	err := setup.NewWizard(os.Stdin, os.Stdout, s.flow, opts...).Run()
	if errors.Is(err, setup.ErrCancelled) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	if !s.drain(timeout) {
		return false, domain.NewDomainError("setup.drain", domain.ErrTimeout,
			fmt.Sprintf("settings writes still pending after %s", timeout))
	}
	return false, nil
}

func runTUIWizard(s *session, timeout time.Duration) (bool, error) {
	model := tuisetup.NewWizardModel(tuisetup.Options{
		Flow:         s.flow,
		Drainer:      s,
		DrainTimeout: timeout,
	})
	p := tea.NewProgram(model, tea.WithAltScreen())
	result, err := p.Run()
	if err != nil {
		return false, fmt.Errorf("setup wizard: %w", err)
	}

	res, ok := result.(tuisetup.WizardModel)
	if !ok {
		return false, fmt.Errorf("unexpected wizard result type %T", result)
	}
	if res.Cancelled() {
		return true, nil
	}
	if err := res.SaveErr(); err != nil {
		return false, err
	}
	s.log.Info("setup finished", "written", s.tally.Written(), "failed", s.tally.Failed())
	return false, nil
}

func runStatus(args []string, out io.Writer) error {
	ctx := context.Background()
	a, err := newApp(ctx, args, appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	rows, err := a.store.LoadSettings(ctx)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Fprintln(out, "Nothing saved yet. Run 'aisetup setup' first.")
		return nil
	}

	fmt.Fprintln(out, statusTable(rows))
	fmt.Fprintf(out, "Settings: %s\n", a.cfg.Settings.Path)
	return nil
}

func statusTable(rows []domain.PlatformSetting) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("PLATFORM", "ENABLED", "TOKEN", "MODEL", "UPDATED")
	for _, r := range rows {
		token, model := "-", "-"
		if r.Token != "" {
			token = domain.MaskSecret(r.Token)
		}
		if r.Model != "" {
			model = r.Model
		}
		t.Row(r.Platform.DisplayName(), yesNo(r.Enabled), token, model, r.UpdatedAt.Local().Format(time.DateTime))
	}
	return t.String()
}

func runModels(args []string, out io.Writer) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	catalog, err := buildCatalog(cfg)
	if err != nil {
		return err
	}
	fmt.Fprint(out, modelsListing(catalog, func(p domain.PlatformType) int {
		return cfg.DefaultIndex(string(p))
	}))
	return nil
}

func modelsListing(catalog onboarding.Catalog, defaults onboarding.DefaultIndexFunc) string {
	var b strings.Builder
	for _, p := range domain.AllPlatformTypes() {
		fmt.Fprintf(&b, "%s (%s)\n", p.DisplayName(), p)
		for i, m := range catalog.Models(p) {
			mark := " "
			if i == defaults(p) {
				mark = "*"
			}
			fmt.Fprintf(&b, "  %s %d. %s\n", mark, i+1, m)
		}
	}
	b.WriteString("\n* default choice on the model step\n")
	return b.String()
}

func runReset(args []string, out io.Writer) error {
	ctx := context.Background()
	a, err := newApp(ctx, args, appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	if !hasFlag(args, "--yes") {
		ok, err := confirm(os.Stdin, out, "Delete all saved platform settings?")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(out, "Nothing deleted.")
			return nil
		}
	}
	if err := a.store.Reset(ctx); err != nil {
		return err
	}
	a.log.Info("settings reset", "path", a.cfg.Settings.Path)
	fmt.Fprintln(out, "Saved settings deleted.")
	return nil
}

// confirm asks a yes/no question defaulting to no.
func confirm(r io.Reader, w io.Writer, prompt string) (bool, error) {
	fmt.Fprintf(w, "%s [y/N]: ", prompt)
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	line = strings.ToLower(strings.TrimSpace(line))
	return line == "y" || line == "yes", nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
