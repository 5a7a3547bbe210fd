package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/pipectl/internal/poller"
	"github.com/felixgeelhaar/pipectl/internal/tui"
)

var uiCmd = &cobra.Command{
	Use:   "ui [task-id]",
	Short: "Open the interactive control panel",
	Long: `Open a terminal control panel: type a goal and submit it, paste a task
id to fetch or poll it, and follow the plan, execution and review as the
pipeline works. Starting with a task id begins polling it right away.

Logs are discarded while the panel is open unless --log-file is set.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runUI,
}

func init() {
	rootCmd.AddCommand(uiCmd)
}

func runUI(cmd *cobra.Command, args []string) error {
	if !tui.IsInteractive() {
		return fmt.Errorf("invalid argument: ui requires an interactive terminal; use 'pipectl watch' instead")
	}

	rt, err := newRuntime(cmd, true)
	if err != nil {
		return err
	}
	defer rt.Close()

	adapter := tui.NewAdapter()
	ctrl := rt.NewController(nil, poller.WithObserver(adapter.Observe))
	defer ctrl.Close()

	opts := []tui.ModelOption{tui.WithColor(!rt.Config.Output.NoColor)}
	if len(args) == 1 {
		opts = append(opts, tui.WithStartTaskID(args[0]))
	}

	model := tui.NewModel(cmd.Context(), ctrl, opts...)
	return tui.Run(cmd.Context(), model, adapter)
}
