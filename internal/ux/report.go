package ux

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/felixgeelhaar/pipectl/internal/poller"
	"github.com/felixgeelhaar/pipectl/pkg/pipeline/types"
)

// EmptyResultText is shown when no task snapshot has been fetched yet
const EmptyResultText = "No result yet. Submit a task to see the plan, execution and review."

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// TaskReport is the printable form of a task as seen by the control panel
type TaskReport struct {
	TaskID    string                 `json:"task_id" yaml:"task_id"`
	Status    types.Status           `json:"status" yaml:"status"`
	Error     string                 `json:"error,omitempty" yaml:"error,omitempty"`
	Goal      string                 `json:"goal,omitempty" yaml:"goal,omitempty"`
	Plan      []types.Step           `json:"plan,omitempty" yaml:"plan,omitempty"`
	Execution []types.ExecutionTrace `json:"execution,omitempty" yaml:"execution,omitempty"`
	Review    *types.Review          `json:"review,omitempty" yaml:"review,omitempty"`
	Passed    string                 `json:"passed" yaml:"passed"`

	hasResult bool
}

// NewTaskReport builds a report from a controller snapshot
func NewTaskReport(v poller.ViewState) *TaskReport {
	r := &TaskReport{
		TaskID: v.TaskID,
		Status: v.Phase(),
		Error:  v.ErrorMessage(),
		Passed: v.Task.Passed(),
	}
	if v.Task != nil {
		r.hasResult = true
		r.Goal = v.Task.Goal
		r.Plan = v.Task.Plan
		r.Execution = v.Task.Execution
		r.Review = v.Task.Review
	}
	return r
}

// String renders the report without color
func (r *TaskReport) String() string {
	return r.Styled(false)
}

// Styled renders the report, with lipgloss colors when color is set
func (r *TaskReport) Styled(color bool) string {
	style := styler(color)

	var b strings.Builder

	fmt.Fprintf(&b, "Task:    %s\n", r.TaskID)
	fmt.Fprintf(&b, "Status:  %s\n", style(statusStyle(r.Status), string(r.Status)))
	if r.Error != "" {
		fmt.Fprintf(&b, "Error:   %s\n", style(errorStyle, r.Error))
	}
	b.WriteString("\n")

	if !r.hasResult {
		b.WriteString(style(mutedStyle, EmptyResultText))
		return b.String()
	}
	b.WriteString(r.Body(color))
	return b.String()
}

// Body renders the goal, plan, execution and review sections
func (r *TaskReport) Body(color bool) string {
	style := styler(color)

	var b strings.Builder

	b.WriteString(style(headingStyle, "Goal") + "\n")
	fmt.Fprintf(&b, "  %s\n", r.Goal)

	b.WriteString("\n" + style(headingStyle, "Plan") + "\n")
	for i, step := range r.Plan {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, step.Instruction)
	}

	b.WriteString("\n" + style(headingStyle, "Execution") + "\n")
	for i, trace := range r.Execution {
		fmt.Fprintf(&b, "  Step %d\n", i+1)
		fmt.Fprintf(&b, "    %s\n", trace.Instruction)
		fmt.Fprintf(&b, "    %s\n", indent(trace.Result, "    "))
	}

	b.WriteString("\n" + style(headingStyle, "Review") + "\n")
	if r.Review != nil {
		fmt.Fprintf(&b, "  %s\n", indent(r.Review.Review, "  "))
	}
	fmt.Fprintf(&b, "  %s", style(mutedStyle, "Passed: "+r.Passed))

	return b.String()
}

func styler(color bool) func(lipgloss.Style, string) string {
	return func(s lipgloss.Style, text string) string {
		if !color {
			return text
		}
		return s.Render(text)
	}
}

// SubmitResult is printed by submit when it does not watch the task
type SubmitResult struct {
	TaskID string       `json:"task_id" yaml:"task_id"`
	Status types.Status `json:"status" yaml:"status"`
	APIURL string       `json:"api_url" yaml:"api_url"`
}

// String renders the result as a single line
func (r *SubmitResult) String() string {
	return fmt.Sprintf("Task %s submitted [%s]\n  Follow it with: pipectl watch %s", r.TaskID, r.Status, r.TaskID)
}

func statusStyle(s types.Status) lipgloss.Style {
	switch s {
	case types.StatusDone:
		return okStyle
	case types.StatusError:
		return errorStyle
	default:
		return lipgloss.NewStyle().Bold(true)
	}
}

func indent(text, prefix string) string {
	return strings.ReplaceAll(strings.TrimRight(text, "\n"), "\n", "\n"+prefix)
}
