package onboarding

import (
	"fmt"

	"aisetup/internal/domain"
)

// Sequence returns the fixed order of setup steps: platform selection, token
// input, one model step per platform in declaration order, then completion.
func Sequence() []domain.Step {
	steps := []domain.Step{domain.StepSelectPlatform, domain.StepTokenInput}
	for _, p := range domain.AllPlatformTypes() {
		steps = append(steps, domain.ModelSelectStep(p))
	}
	return append(steps, domain.StepSetupComplete)
}

// IsCommonStep reports whether s is shown regardless of which platforms are
// enabled.
func IsCommonStep(s domain.Step) bool {
	switch s {
	case domain.StepSelectPlatform, domain.StepTokenInput, domain.StepSetupComplete:
		return true
	}
	return false
}

// NextStep returns the step that follows current given the enabled
// platforms. Model steps for disabled platforms are skipped; once the
// sequence is exhausted the result is StepExitToMainApp.
//
// current must be StepStart or a member of Sequence(); anything else is a
// caller bug and panics.
func NextStep(current domain.Step, enabled map[domain.PlatformType]bool) domain.Step {
	steps := Sequence()

	pos := -1
	if current != domain.StepStart {
		for i, s := range steps {
			if s == current {
				pos = i
				break
			}
		}
		if pos < 0 {
			panic(fmt.Sprintf("onboarding: NextStep(%q): %v", string(current), domain.ErrUnknownStep))
		}
	}

	for _, s := range steps[pos+1:] {
		if IsCommonStep(s) {
			return s
		}
		if p, ok := s.Platform(); ok && enabled[p] {
			return s
		}
	}
	return domain.StepExitToMainApp
}

// Visit walks the router from StepStart until it leaves the flow and returns
// every step shown, ending with StepExitToMainApp.
func Visit(enabled map[domain.PlatformType]bool) []domain.Step {
	var path []domain.Step
	for s := NextStep(domain.StepStart, enabled); ; s = NextStep(s, enabled) {
		path = append(path, s)
		if s == domain.StepExitToMainApp {
			return path
		}
	}
}
