package tui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
)

// Prompt represents a simple interactive prompt configuration
type Prompt struct {
	Message     string
	Description string
	Default     string
	Placeholder string
	Required    bool
	// Multiline uses a text area instead of a single-line input
	Multiline bool
}

// PromptForString displays an interactive prompt and returns the user's input
func PromptForString(p Prompt) (string, error) {
	value := p.Default

	validate := func(s string) error {
		if p.Required && strings.TrimSpace(s) == "" {
			return fmt.Errorf("value is required")
		}
		return nil
	}

	var field huh.Field
	if p.Multiline {
		field = huh.NewText().
			Title(p.Message).
			Description(p.Description).
			Placeholder(p.Placeholder).
			Validate(validate).
			Value(&value)
	} else {
		field = huh.NewInput().
			Title(p.Message).
			Description(p.Description).
			Placeholder(p.Placeholder).
			Validate(validate).
			Value(&value)
	}

	form := huh.NewForm(huh.NewGroup(field))
	if err := form.Run(); err != nil {
		return "", fmt.Errorf("prompt failed: %w", err)
	}

	if err := validate(value); err != nil {
		return "", err
	}
	return strings.TrimSpace(value), nil
}

// PromptForConfirmation displays a yes/no confirmation prompt
func PromptForConfirmation(message string, defaultValue bool) (bool, error) {
	confirmed := defaultValue

	confirm := huh.NewConfirm().
		Title(message).
		Value(&confirmed)

	form := huh.NewForm(huh.NewGroup(confirm))

	if err := form.Run(); err != nil {
		return false, fmt.Errorf("prompt failed: %w", err)
	}

	return confirmed, nil
}

// IsInteractive returns true if stdin is a terminal (not piped)
func IsInteractive() bool {
	fileInfo, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

var ciEnvVars = []string{
	"CI",
	"GITHUB_ACTIONS",
	"GITLAB_CI",
	"JENKINS_URL",
	"TRAVIS",
	"CIRCLECI",
	"BUILDKITE",
}

// IsCI reports whether a common CI environment variable is set
func IsCI() bool {
	for _, envVar := range ciEnvVars {
		if os.Getenv(envVar) != "" {
			return true
		}
	}
	return false
}

// ShouldPrompt returns true if prompts should be shown based on environment.
// Prompts are disabled in CI environments or when stdin is not a terminal.
func ShouldPrompt() bool {
	return !IsCI() && IsInteractive()
}
