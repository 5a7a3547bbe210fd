package cmd

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/pipectl/internal/errors"
	"github.com/felixgeelhaar/pipectl/internal/health"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the backend and its API contract",
	Long: `Run diagnostics against the configured backend.

Checks include:
  • Backend health (GET /health)
  • API contract: the backend's OpenAPI document declares POST /tasks
    and GET /tasks/{task_id}

Examples:
  # Check the default backend
  pipectl doctor

  # Output as JSON for CI/CD
  pipectl doctor --format json --api-url http://backend:8000
`,
	RunE: runDoctor,
}

func init() {
	doctorCmd.Flags().Duration("timeout", 10*time.Second, "timeout for each check")
	rootCmd.AddCommand(doctorCmd)
}

// DoctorReport represents the complete health check report
type DoctorReport struct {
	APIURL     string                    `json:"api_url" yaml:"api_url"`
	ConfigFile string                    `json:"config_file,omitempty" yaml:"config_file,omitempty"`
	Status     health.Status             `json:"status" yaml:"status"`
	Checks     map[string]*health.Result `json:"checks" yaml:"checks"`
}

// Healthy reports whether no check failed
func (r *DoctorReport) Healthy() bool {
	return r.Status != health.StatusUnhealthy
}

// String renders the report for the text format
func (r *DoctorReport) String() string {
	var b strings.Builder

	b.WriteString("Backend Diagnostics\n")
	fmt.Fprintf(&b, "  API URL: %s\n", r.APIURL)
	if r.ConfigFile != "" {
		fmt.Fprintf(&b, "  Config:  %s\n", r.ConfigFile)
	}
	b.WriteString("\n")

	for _, name := range health.SortedNames(r.Checks) {
		check := r.Checks[name]
		fmt.Fprintf(&b, "  %s %s: %s\n", check.Status.Icon(), name, check.Message)
		if msg := check.ErrorDetail(); msg != "" && check.Status != health.StatusHealthy {
			fmt.Fprintf(&b, "      %s\n", msg)
		}
	}
	b.WriteString("\n")

	switch r.Status {
	case health.StatusHealthy:
		b.WriteString("✓ Backend is healthy and ready to use")
	case health.StatusDegraded:
		b.WriteString("⚠ Backend is usable, with warnings")
	default:
		b.WriteString("✗ Backend has issues that need attention")
	}
	return b.String()
}

func runDoctor(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	timeout, _ := cmd.Flags().GetDuration("timeout")

	mgr := health.NewManager().WithTimeout(timeout)
	mgr.AddChecker(health.NewBackendChecker(rt.Client))
	mgr.AddChecker(health.NewContractChecker(rt.Client), "backend")

	results := mgr.Check(cmd.Context())
	report := &DoctorReport{
		APIURL:     rt.Config.APIURL,
		ConfigFile: rt.Config.Source,
		Status:     health.OverallStatus(results),
		Checks:     results,
	}

	f, err := rt.Formatter()
	if err != nil {
		return err
	}
	if err := f.Format(report); err != nil {
		return err
	}

	return doctorError(report)
}

// doctorError picks the error that decides the exit code of a failed run
func doctorError(r *DoctorReport) error {
	if r.Healthy() {
		return nil
	}
	if check := r.Checks["backend"]; check != nil && check.Status == health.StatusUnhealthy {
		return errors.NewBackendUnreachableError(r.APIURL, stderrors.New(check.ErrorDetail()))
	}
	if check := r.Checks["api-contract"]; check != nil && check.Status == health.StatusUnhealthy {
		summary, _ := check.Details["summary"].(string)
		return errors.NewContractMismatchError(summary)
	}
	return fmt.Errorf("backend health check failed")
}
