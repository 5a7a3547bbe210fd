package cmd

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/felixgeelhaar/pipectl/internal/errors"
	"github.com/felixgeelhaar/pipectl/internal/poller"
	"github.com/felixgeelhaar/pipectl/pkg/pipeline/types"
)

var errorLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))

// PrintError writes err with its suggestions, the way main reports failures
func PrintError(w io.Writer, err error, color bool) {
	if err == nil {
		return
	}
	label := "Error:"
	if color {
		label = errorLabelStyle.Render(label)
	}
	fmt.Fprintf(w, "%s %v\n", label, err)
}

// outcomeError turns the final snapshot of a task into the command's
// error: the recorded failure, a task the backend marked as errored, or a
// review that did not pass.
func outcomeError(v poller.ViewState) error {
	if v.Err != nil {
		return v.Err
	}
	if v.Phase() == types.StatusError {
		return errors.NewTaskFailedError(v.TaskID, "")
	}
	if v.Task != nil && v.Task.Review != nil && !v.Task.Review.Passed {
		return errors.NewReviewNotPassedError(v.TaskID)
	}
	return nil
}
