package tui

import (
	"testing"
)

func TestIsInteractive(t *testing.T) {
	// Depends on how tests are run; only ensure it does not panic
	_ = IsInteractive()
}

func clearCI(t *testing.T) {
	t.Helper()
	for _, name := range ciEnvVars {
		t.Setenv(name, "")
	}
}

func TestIsCI(t *testing.T) {
	tests := []struct {
		name   string
		envVar string
		value  string
		want   bool
	}{
		{"no CI environment", "", "", false},
		{"GitHub Actions", "GITHUB_ACTIONS", "true", true},
		{"GitLab CI", "GITLAB_CI", "true", true},
		{"Jenkins", "JENKINS_URL", "http://jenkins.local", true},
		{"Generic CI", "CI", "1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearCI(t)
			if tt.envVar != "" {
				t.Setenv(tt.envVar, tt.value)
			}

			if got := IsCI(); got != tt.want {
				t.Errorf("IsCI() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestShouldPromptDisabledInCI(t *testing.T) {
	clearCI(t)
	t.Setenv("CI", "true")

	if ShouldPrompt() {
		t.Error("ShouldPrompt() should be false in CI")
	}
}
