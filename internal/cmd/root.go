package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pipectl",
	Short: "Control panel for a Planner → Executor → Reviewer task pipeline",
	Long: `pipectl submits goals to a pipeline backend and follows the resulting task
while a Planner breaks it into steps, an Executor runs them, and a Reviewer
judges the outcome.

The backend address comes from --api-url, PIPECTL_API_URL, the config file,
or defaults to http://127.0.0.1:8000.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with ctx, which commands use for
// cancellation on SIGINT/SIGTERM
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("api-url", "", "backend base URL (overrides PIPECTL_API_URL and the config file)")
	flags.String("config", "", "config file (default $PIPECTL_HOME/config.yaml)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: text, json")
	flags.String("log-file", "", "write logs to this file instead of stderr")
	flags.StringP("format", "f", "", "output format: text, json, yaml")
	flags.Duration("poll-interval", 0, "polling period (default 1s)")
	flags.Bool("no-color", false, "disable colored output")
	flags.BoolP("quiet", "q", false, "print only results")
}
