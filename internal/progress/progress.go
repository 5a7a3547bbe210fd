package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/pipectl/internal/poller"
	"github.com/felixgeelhaar/pipectl/pkg/pipeline/types"
)

// Reporter prints task status transitions while a task is being watched.
// Pass Observe to poller.WithObserver.
type Reporter struct {
	writer      io.Writer
	startTime   time.Time
	mu          sync.Mutex
	last        poller.ViewState
	transitions int
	showSpinner bool
	spinnerIdx  int
	stopChan    chan struct{}
	stopOnce    sync.Once
	isCI        bool
	quiet       bool
}

// Config holds configuration for the reporter
type Config struct {
	Writer      io.Writer
	ShowSpinner bool
	IsCI        bool // Set to true in CI/CD environments to disable fancy output
	Quiet       bool // Only the summary is printed
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// NewReporter creates a new reporter
func NewReporter(cfg Config) *Reporter {
	if cfg.Writer == nil {
		cfg.Writer = os.Stderr
	}

	// Auto-detect CI environment
	if !cfg.IsCI {
		cfg.IsCI = os.Getenv("CI") == "true" || os.Getenv("GITHUB_ACTIONS") == "true"
	}

	return &Reporter{
		writer:      cfg.Writer,
		startTime:   time.Now(),
		showSpinner: cfg.ShowSpinner && !cfg.IsCI && !cfg.Quiet,
		stopChan:    make(chan struct{}),
		isCI:        cfg.IsCI,
		quiet:       cfg.Quiet,
	}
}

// Start begins the spinner, if enabled
func (r *Reporter) Start() {
	if r.showSpinner {
		go r.spinnerLoop()
	}
}

// Stop stops the spinner
func (r *Reporter) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopChan)
		if r.showSpinner {
			r.mu.Lock()
			r.clearLine()
			r.mu.Unlock()
		}
	})
}

func (r *Reporter) spinnerLoop() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopChan:
			return
		case <-ticker.C:
			r.mu.Lock()
			r.renderSpinner()
			r.spinnerIdx = (r.spinnerIdx + 1) % len(spinnerFrames)
			r.mu.Unlock()
		}
	}
}

func (r *Reporter) renderSpinner() {
	if r.last.TaskID == "" {
		return
	}
	fmt.Fprintf(r.writer, "\r%s %s [%s] | %d fetches | %s",
		spinnerFrames[r.spinnerIdx],
		r.last.TaskID,
		r.last.Phase(),
		r.last.Fetches,
		formatDuration(time.Since(r.startTime)),
	)
}

func (r *Reporter) clearLine() {
	fmt.Fprintf(r.writer, "\r%s\r", strings.Repeat(" ", 80))
}

// Observe records a controller snapshot and prints a line when the
// status changes or an error appears. Older snapshots are ignored.
func (r *Reporter) Observe(v poller.ViewState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.last.Version != 0 && !v.Newer(r.last) {
		return
	}
	prev := r.last
	r.last = v

	statusChanged := v.Phase() != prev.Phase() && v.TaskID != ""
	errorAppeared := v.Err != nil && prev.Err == nil
	if !statusChanged && !errorAppeared {
		return
	}
	r.transitions++

	if r.quiet {
		return
	}
	if r.showSpinner {
		r.clearLine()
	}
	r.printTaskStatus(v)
}

// printTaskStatus prints task status in CI-friendly format
func (r *Reporter) printTaskStatus(v poller.ViewState) {
	msg := fmt.Sprintf("%s %s [%s]", statusSymbol(v.Phase()), v.TaskID, v.Phase())
	if v.Task != nil && len(v.Task.Plan) > 0 {
		msg += fmt.Sprintf(" %d steps planned", len(v.Task.Plan))
	}
	if v.Err != nil {
		msg += fmt.Sprintf(" - %s", v.ErrorMessage())
	}

	fmt.Fprintln(r.writer, msg)
}

// Transitions returns how many status lines were recorded
func (r *Reporter) Transitions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transitions
}

// PrintSummary prints the final watch summary
func (r *Reporter) PrintSummary(v poller.ViewState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	elapsed := time.Since(r.startTime)

	fmt.Fprintln(r.writer)
	fmt.Fprintln(r.writer, "═══════════════════════════════════════════════════════════")
	fmt.Fprintln(r.writer, "Watch Summary")
	fmt.Fprintln(r.writer, "═══════════════════════════════════════════════════════════")

	fmt.Fprintf(r.writer, "Task:            %s\n", v.TaskID)
	fmt.Fprintf(r.writer, "Status:          %s %s\n", v.Phase(), statusSymbol(v.Phase()))
	fmt.Fprintf(r.writer, "Fetches:         %d\n", v.Fetches)
	fmt.Fprintf(r.writer, "Total Time:      %s\n", formatDuration(elapsed))

	if v.Task != nil {
		fmt.Fprintf(r.writer, "Plan Steps:      %d\n", len(v.Task.Plan))
		fmt.Fprintf(r.writer, "Executed:        %d\n", len(v.Task.Execution))
		fmt.Fprintf(r.writer, "Review Passed:   %s\n", v.Task.Passed())
	}

	fmt.Fprintln(r.writer, "═══════════════════════════════════════════════════════════")

	if v.Err != nil {
		fmt.Fprintln(r.writer)
		fmt.Fprintf(r.writer, "  ✗ %s\n", v.ErrorMessage())
	}
}

func statusSymbol(s types.Status) string {
	switch s {
	case types.StatusDone:
		return "✓"
	case types.StatusError:
		return "✗"
	case types.StatusRunning, types.StatusPlanning, types.StatusExecuting, types.StatusReviewing:
		return "▶"
	default:
		return "⟲"
	}
}

// formatDuration formats a duration for display
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%dm%ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
