package cmd

import (
	stderrors "errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/pipectl/internal/errors"
	"github.com/felixgeelhaar/pipectl/internal/poller"
	"github.com/felixgeelhaar/pipectl/internal/tui"
	"github.com/felixgeelhaar/pipectl/internal/ux"
	"github.com/felixgeelhaar/pipectl/pkg/pipeline/client"
)

var submitCmd = &cobra.Command{
	Use:   "submit [goal...]",
	Short: "Submit a goal to the pipeline",
	Long: `Submit a goal and print the task id the backend assigned.

Without a goal argument pipectl asks for one when stdin is a terminal.
With --watch the task is polled until it is done, exactly like
'pipectl watch'.`,
	Example: `  pipectl submit "Summarize the Q3 sales report"
  pipectl submit --watch "Draft a release announcement"`,
	RunE: runSubmit,
}

func init() {
	submitCmd.Flags().BoolP("watch", "w", false, "poll the task until it is done")
	submitCmd.Flags().String("metrics-addr", "", "with --watch, serve Prometheus metrics and health probes on this address")
	rootCmd.AddCommand(submitCmd)
}

func runSubmit(cmd *cobra.Command, args []string) error {
	goal := strings.TrimSpace(strings.Join(args, " "))
	if goal == "" && tui.ShouldPrompt() {
		var err error
		goal, err = tui.PromptForString(tui.Prompt{
			Message:     "Goal",
			Description: "What should the pipeline accomplish?",
			Placeholder: "Summarize the Q3 sales report",
			Required:    true,
			Multiline:   true,
		})
		if err != nil {
			return err
		}
	}

	rt, err := newRuntime(cmd, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	watch, _ := cmd.Flags().GetBool("watch")
	if watch {
		addr, _ := cmd.Flags().GetString("metrics-addr")
		return watchTask(cmd.Context(), rt, addr, func(ctrl *poller.Controller) error {
			return ctrl.Submit(cmd.Context(), goal)
		})
	}

	resp, err := rt.Client.CreateTask(cmd.Context(), goal)
	if err != nil {
		if stderrors.Is(err, client.ErrEmptyGoal) {
			return errors.NewEmptyGoalError()
		}
		return errors.NewSubmitFailedError(rt.Client.BaseURL(), err)
	}
	rt.Logger.WithTask(resp.TaskID).Info("task submitted", "status", resp.Status.String())

	f, err := rt.Formatter()
	if err != nil {
		return err
	}
	return f.Format(&ux.SubmitResult{
		TaskID: resp.TaskID,
		Status: resp.Status,
		APIURL: rt.Client.BaseURL(),
	})
}
