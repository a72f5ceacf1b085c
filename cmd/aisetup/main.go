package main

import (
	"fmt"
	"os"
	"strings"

	"aisetup/internal/adapter/tui/theme"
	"aisetup/internal/adapter/tui/uxerror"
	"aisetup/internal/infra/config"
)

func main() {
	theme.InitSymbols()

	args := os.Args[1:]
	if len(args) >= 1 {
		switch args[0] {
		case "--help", "-h", "help":
			showUsage()
			return
		}
	}

	cmd, args := splitCommand(args)

	var err error
	switch cmd {
	case "setup":
		err = runSetup(args)
	case "status":
		err = runStatus(args, os.Stdout)
	case "models":
		err = runModels(args, os.Stdout)
	case "reset":
		err = runReset(args, os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\nRun 'aisetup --help' for usage information.\n", cmd)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %s\n", cmd, uxerror.Humanize(err).Render())
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println(`aisetup - connect AI platforms and pick default models

USAGE:
    aisetup [COMMAND] [FLAGS]

COMMANDS:
    setup       Run the onboarding wizard (default)
    status      Show saved platform settings
    models      List the models offered for each platform
    reset       Delete saved platform settings

FLAGS:
    -h, --help         Show this help message
    --config PATH      Config file path (default: ./aisetup.yaml)
    --plain            setup: line prompts instead of the terminal UI
    --dry-run          setup: keep answers in memory, write nothing
    --yes              reset: skip the confirmation prompt

CONFIGURATION:
    Environment: AISETUP_* variables override the config file
    ` + config.EnvSettingsKey + ` holds the passphrase when settings.encrypt is on

EXAMPLES:
    aisetup                       # Interactive setup
    aisetup setup --plain         # Setup over a plain terminal or pipe
    aisetup status                # What was saved
    aisetup --config ./dev.yaml models`)
}

// configPath resolves --config, then AISETUP_CONFIG, then ./aisetup.yaml.
func configPath(args []string) string {
	for i, arg := range args {
		if arg == "--config" && i+1 < len(args) {
			return args[i+1]
		}
		if strings.HasPrefix(arg, "--config=") {
			return strings.TrimPrefix(arg, "--config=")
		}
	}
	if p := os.Getenv(config.EnvConfigPath); p != "" {
		return p
	}
	return "aisetup.yaml"
}

// splitCommand returns the first positional argument as the command, setup
// when there is none, and the remaining arguments.
func splitCommand(args []string) (string, []string) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--config" {
			i++
			continue
		}
		if strings.HasPrefix(arg, "-") {
			continue
		}
		rest := append(append([]string(nil), args[:i]...), args[i+1:]...)
		return arg, rest
	}
	return "setup", args
}

func hasFlag(args []string, name string) bool {
	for _, arg := range args {
		if arg == name {
			return true
		}
	}
	return false
}
