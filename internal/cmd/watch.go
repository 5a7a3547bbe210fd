package cmd

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/pipectl/internal/health"
	"github.com/felixgeelhaar/pipectl/internal/metrics"
	"github.com/felixgeelhaar/pipectl/internal/poller"
	"github.com/felixgeelhaar/pipectl/internal/progress"
	"github.com/felixgeelhaar/pipectl/internal/server"
	"github.com/felixgeelhaar/pipectl/internal/tui"
	"github.com/felixgeelhaar/pipectl/internal/ux"
	"github.com/felixgeelhaar/pipectl/internal/version"
)

var watchCmd = &cobra.Command{
	Use:   "watch <task-id>",
	Short: "Poll a task until it is done",
	Long: `Poll a task at the configured interval until the backend reports it
done or a fetch fails, printing every status change. The final task is
printed once polling ends.

Exit status is 0 when the review passed, 3 when the task failed or the
review did not pass, and 130 when interrupted.`,
	Example: `  pipectl watch 3f0c9a8e-5d1b-4c52-9a8e-0d6f1b2c3d4e
  pipectl watch 3f0c9a8e-5d1b-4c52-9a8e-0d6f1b2c3d4e --metrics-addr :9090`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics and health probes on this address while watching")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	addr, _ := cmd.Flags().GetString("metrics-addr")
	taskID := args[0]

	return watchTask(cmd.Context(), rt, addr, func(ctrl *poller.Controller) error {
		return ctrl.StartPolling(taskID)
	})
}

// watchTask runs start, which begins a polling session, and blocks until
// the session ends. The final task is printed and mapped to an error.
func watchTask(ctx context.Context, rt *Runtime, metricsAddr string, start func(*poller.Controller) error) error {
	reg, m := metrics.NewRegistry()

	reporter := progress.NewReporter(progress.Config{
		Writer:      rt.ErrOut,
		ShowSpinner: tui.ShouldPrompt(),
		IsCI:        tui.IsCI(),
		Quiet:       rt.Quiet,
	})
	ctrl := rt.NewController(m, poller.WithObserver(reporter.Observe))
	defer ctrl.Close()

	if metricsAddr != "" {
		srv, err := startMetricsServer(rt, ctrl, reg, metricsAddr)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				rt.Logger.WithError(err).Warn("metrics server shutdown failed")
			}
		}()
	}

	reporter.Start()
	defer reporter.Stop()

	if err := start(ctrl); err != nil {
		return err
	}

	if err := ctrl.Wait(ctx); err != nil {
		ctrl.Stop()
		return err
	}
	reporter.Stop()

	snap := ctrl.Snapshot()
	if !rt.Quiet {
		reporter.PrintSummary(snap)
	}

	f, err := rt.Formatter()
	if err != nil {
		return err
	}
	if err := f.Format(ux.NewTaskReport(snap)); err != nil {
		return err
	}
	return outcomeError(snap)
}

func startMetricsServer(rt *Runtime, ctrl *poller.Controller, reg *prometheus.Registry, addr string) (*server.Server, error) {
	probe := health.NewProbeManager(version.GetInfo().Version)
	probe.AddChecker(health.NewBackendChecker(rt.Client))
	probe.AddChecker(health.NewSessionChecker(ctrl.Snapshot))

	srv := server.NewServer(probe, server.Config{
		Address:  addr,
		Gatherer: reg,
		Task: func() interface{} {
			return ux.NewTaskReport(ctrl.Snapshot())
		},
	})
	if err := srv.Listen(); err != nil {
		return nil, err
	}

	go func() {
		if err := srv.Serve(); err != nil {
			rt.Logger.WithError(err).Error("metrics server failed")
		}
	}()
	rt.Logger.Info("serving metrics and health probes", "addr", srv.Addr())
	return srv, nil
}
