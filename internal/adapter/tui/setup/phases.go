package setup

import (
	"aisetup/internal/adapter/tui/components/wizard"
	"aisetup/internal/domain"
)

// StepTitle is the short label shown in the step indicator.
func StepTitle(s domain.Step) string {
	switch s {
	case domain.StepSelectPlatform:
		return "Platforms"
	case domain.StepTokenInput:
		return "API keys"
	case domain.StepSetupComplete:
		return "Summary"
	case domain.StepExitToMainApp:
		return "Done"
	}
	if p, ok := s.Platform(); ok {
		return "Model (" + p.DisplayName() + ")"
	}
	return string(s)
}

// StepHeading is the question asked on a step.
func StepHeading(s domain.Step) string {
	switch s {
	case domain.StepSelectPlatform:
		return "Which AI platforms do you want to use?"
	case domain.StepTokenInput:
		return "Enter an API key for each selected platform"
	case domain.StepSetupComplete:
		return "Review your setup"
	}
	if p, ok := s.Platform(); ok {
		return "Choose the default " + p.DisplayName() + " model"
	}
	return ""
}

func indicatorSteps(route []domain.Step) []wizard.Step {
	steps := make([]wizard.Step, 0, len(route))
	for _, s := range route {
		steps = append(steps, wizard.Step{Name: StepTitle(s)})
	}
	return steps
}

var platformBlurb = map[domain.PlatformType]string{
	domain.PlatformOpenAI:    "GPT-4o, GPT-4, GPT-3.5",
	domain.PlatformAnthropic: "Claude 3 Opus, Sonnet, Haiku",
	domain.PlatformGoogle:    "Gemini 1.5 Pro, Flash",
}

var tokenPlaceholder = map[domain.PlatformType]string{
	domain.PlatformOpenAI:    "sk-...",
	domain.PlatformAnthropic: "sk-ant-...",
	domain.PlatformGoogle:    "AIza...",
}
