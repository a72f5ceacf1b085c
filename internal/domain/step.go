package domain

import "strings"

// Step identifies one screen of the onboarding flow. Values are opaque route
// tokens; only uniqueness and stability are guaranteed.
type Step string

const (
	// StepStart is the sentinel used before the first screen has been shown.
	StepStart          Step = ""
	StepSelectPlatform Step = "select_platform"
	StepTokenInput     Step = "token_input"
	StepSetupComplete  Step = "setup_complete"
	// StepExitToMainApp leaves the onboarding flow entirely.
	StepExitToMainApp Step = "exit_to_main_app"

	modelSelectPrefix = "model_select/"
)

// ModelSelectStep returns the model selection step for p.
func ModelSelectStep(p PlatformType) Step {
	return Step(modelSelectPrefix + string(p))
}

// Platform returns the platform a model selection step belongs to.
func (s Step) Platform() (PlatformType, bool) {
	rest, ok := strings.CutPrefix(string(s), modelSelectPrefix)
	if !ok || rest == "" {
		return "", false
	}
	return PlatformType(rest), true
}

// IsModelSelect reports whether s is a per-platform model selection step.
func (s Step) IsModelSelect() bool {
	_, ok := s.Platform()
	return ok
}

func (s Step) String() string {
	if s == StepStart {
		return "<start>"
	}
	return string(s)
}
