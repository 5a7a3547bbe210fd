package cmd

import (
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/pipectl/internal/ux"
)

var getCmd = &cobra.Command{
	Use:   "get <task-id>",
	Short: "Fetch a task once and print it",
	Long: `Fetch the current snapshot of a task and print its plan, execution
traces and review. The task is fetched exactly once; use 'pipectl watch'
to follow it until it is done.`,
	Example: `  pipectl get 3f0c9a8e-5d1b-4c52-9a8e-0d6f1b2c3d4e
  pipectl get 3f0c9a8e-5d1b-4c52-9a8e-0d6f1b2c3d4e --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

func init() {
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctrl := rt.NewController(nil)
	defer ctrl.Close()

	ctrl.SetTaskID(args[0])
	if err := ctrl.FetchOnce(cmd.Context()); err != nil {
		return err
	}

	f, err := rt.Formatter()
	if err != nil {
		return err
	}
	return f.Format(ux.NewTaskReport(ctrl.Snapshot()))
}
