// Package detector provides environment detection for output and prompt mode selection.
package detector

import (
	"os"

	"golang.org/x/term"
)

// OutputMode represents how a build talks to the operator.
type OutputMode int

const (
	// ModeAuto automatically detects the appropriate mode.
	ModeAuto OutputMode = iota
	// ModeInteractive renders the live resource view and asks for missing agreements on stdin.
	ModeInteractive
	// ModeLinear prints plain prefixed lines and never prompts.
	ModeLinear
)

func (m OutputMode) String() string {
	switch m {
	case ModeInteractive:
		return "interactive"
	case ModeLinear:
		return "linear"
	default:
		return "auto"
	}
}

// DetectEnvironment returns the recommended output mode based on the environment.
// Both stdin and stdout must be terminals and CI must be unset for interactive mode.
func DetectEnvironment() OutputMode {
	return detect(
		term.IsTerminal(int(os.Stdin.Fd())),
		term.IsTerminal(int(os.Stdout.Fd())),
		os.Getenv("CI"),
	)
}

func detect(stdinTTY, stdoutTTY bool, ci string) OutputMode {
	isCI := ci == "true" || ci == "1"
	if !stdinTTY || !stdoutTTY || isCI {
		return ModeLinear
	}
	return ModeInteractive
}

// ResolveMode applies user override flag to auto-detection.
// userFlag should be one of: "auto", "interactive", "linear", "ci", or empty.
func ResolveMode(autoDetected OutputMode, userFlag string) OutputMode {
	switch userFlag {
	case "interactive":
		return ModeInteractive
	case "linear", "ci":
		return ModeLinear
	default:
		return autoDetected
	}
}
