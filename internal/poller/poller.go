// Package poller drives a pipeline task from submission to completion.
//
// A Controller owns the view state of one control panel: it submits goals,
// polls the held task on a fixed interval until the backend reports done
// or a fetch fails, and performs manual one-off fetches. At most one
// polling session is active at a time; starting another cancels it.
package poller

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/pipectl/internal/errors"
	"github.com/felixgeelhaar/pipectl/internal/log"
	"github.com/felixgeelhaar/pipectl/internal/metrics"
	"github.com/felixgeelhaar/pipectl/pkg/pipeline/client"
	"github.com/felixgeelhaar/pipectl/pkg/pipeline/types"
)

// DefaultInterval is the polling period
const DefaultInterval = time.Second

var (
	// ErrClosed is returned by operations on a closed Controller
	ErrClosed = stderrors.New("poller: controller closed")
	// ErrSuperseded is returned by a Submit or FetchOnce whose result was
	// dropped because a later action changed the task
	ErrSuperseded = stderrors.New("poller: superseded by a later action")
)

// TaskAPI is the part of the backend client the controller needs.
// *client.Client satisfies it.
type TaskAPI interface {
	CreateTask(ctx context.Context, goal string) (*types.CreateTaskResponse, error)
	GetTask(ctx context.Context, taskID string) (*types.Task, error)
}

// Observer receives a snapshot after every state change.
// It is called outside the controller's lock and may be called from
// several goroutines; use ViewState.Newer to discard stale snapshots.
type Observer func(ViewState)

// Option configures a Controller
type Option func(*Controller)

// WithInterval sets the polling period
func WithInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics records submissions, fetches and sessions
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// WithObserver registers a callback for state changes
func WithObserver(fn Observer) Option {
	return func(c *Controller) {
		c.observer = fn
	}
}

// Controller holds the view state and the active polling session
type Controller struct {
	api      TaskAPI
	baseURL  string
	interval time.Duration
	logger   *log.Logger
	metrics  *metrics.Metrics
	observer Observer

	mu        sync.Mutex
	state     ViewState
	session   *session
	submitSeq uint64
	closed    bool

	wg       sync.WaitGroup
	notifyMu sync.RWMutex
}

// New creates a controller backed by api
func New(api TaskAPI, opts ...Option) *Controller {
	c := &Controller{
		api:      api,
		interval: DefaultInterval,
		logger:   log.Discard(),
	}
	if b, ok := api.(interface{ BaseURL() string }); ok {
		c.baseURL = b.BaseURL()
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Interval returns the polling period
func (c *Controller) Interval() time.Duration {
	return c.interval
}

// Snapshot returns a copy of the current view state
func (c *Controller) Snapshot() ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetGoal updates the goal text without submitting it
func (c *Controller) SetGoal(goal string) {
	c.mu.Lock()
	if c.closed || c.state.Goal == goal {
		c.mu.Unlock()
		return
	}
	c.state.Goal = goal
	snap := c.changedLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// SetTaskID replaces the held task id, as when a user pastes one.
// An active polling session keeps polling the id it was started with.
func (c *Controller) SetTaskID(taskID string) {
	taskID = strings.TrimSpace(taskID)

	c.mu.Lock()
	if c.closed || c.state.TaskID == taskID {
		c.mu.Unlock()
		return
	}
	c.state.TaskID = taskID
	snap := c.changedLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// Submit creates a task for goal and starts polling it.
// Any active session is cancelled first. On failure the error is
// recorded in the view state and returned; no polling starts.
func (c *Controller) Submit(ctx context.Context, goal string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.endSessionLocked(c.session, endCancelled)
	c.submitSeq++
	seq := c.submitSeq
	c.state.Goal = goal
	c.state.Err = nil
	c.state.Task = nil
	c.state.Status = types.StatusCreating
	snap := c.changedLocked()
	c.mu.Unlock()
	c.notify(snap)

	c.logger.Info("submitting task", "goal_length", len(goal))
	resp, err := c.api.CreateTask(ctx, goal)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if seq != c.submitSeq {
		c.mu.Unlock()
		c.logger.Debug("dropping superseded submission")
		return ErrSuperseded
	}

	if err != nil {
		var pErr *errors.PipelineError
		if stderrors.Is(err, client.ErrEmptyGoal) {
			pErr = errors.NewEmptyGoalError()
		} else {
			pErr = errors.NewSubmitFailedError(c.baseURL, err)
		}
		c.state.Err = pErr
		c.state.Status = types.StatusError
		snap = c.changedLocked()
		c.mu.Unlock()

		c.recordSubmission(false)
		c.recordError(pErr)
		c.logger.WithError(pErr).Warn("task submission failed")
		c.notify(snap)
		return pErr
	}

	status := resp.Status
	if status.IsEmpty() {
		status = types.StatusQueued
	}
	c.state.TaskID = resp.TaskID
	c.state.Status = status
	snap = c.changedLocked()
	c.mu.Unlock()

	c.recordSubmission(true)
	c.recordStatus(status)
	c.logger.WithTask(resp.TaskID).Info("task submitted", "status", status.String())
	c.notify(snap)

	return c.StartPolling(resp.TaskID)
}

// StartPolling begins a polling session for taskID, replacing the active
// one if any. The first fetch happens one interval after the call.
func (c *Controller) StartPolling(taskID string) error {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return errors.NewMissingTaskIDError()
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.endSessionLocked(c.session, endCancelled)

	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		id:     uuid.NewString(),
		taskID: taskID,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	c.session = s
	c.state.TaskID = taskID
	c.state.Polling = true
	snap := c.changedLocked()
	c.wg.Add(1)
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.SessionStarted()
	}
	c.logger.Info("polling started", "task_id", taskID, "session", s.id, "interval", c.interval.String())

	go c.run(ctx, s)
	c.notify(snap)
	return nil
}

// FetchOnce fetches the held task once and replaces the snapshot,
// independent of any polling session. With no task id held it fails
// without touching the network.
func (c *Controller) FetchOnce(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	taskID := c.state.TaskID
	c.state.Err = nil
	if taskID == "" {
		pErr := errors.NewMissingTaskIDError()
		c.state.Err = pErr
		c.state.Status = types.StatusError
		snap := c.changedLocked()
		c.mu.Unlock()

		c.recordError(pErr)
		c.notify(snap)
		return pErr
	}
	snap := c.changedLocked()
	c.mu.Unlock()
	c.notify(snap)

	start := time.Now()
	task, err := c.api.GetTask(ctx, taskID)
	elapsed := time.Since(start)

	c.mu.Lock()
	if c.closed || c.state.TaskID != taskID {
		closed := c.closed
		c.mu.Unlock()
		c.recordFetch("manual", metrics.OutcomeCancelled, elapsed)
		if closed {
			return ErrClosed
		}
		return ErrSuperseded
	}

	c.state.Fetches++
	c.state.LastFetch = time.Now()

	if err != nil {
		pErr := errors.NewFetchFailedError(c.baseURL, taskID, err)
		c.state.Err = pErr
		c.state.Status = types.StatusError
		snap = c.changedLocked()
		c.mu.Unlock()

		c.recordFetch("manual", metrics.OutcomeError, elapsed)
		c.recordError(pErr)
		c.logger.WithError(pErr).Warn("manual fetch failed")
		c.notify(snap)
		return pErr
	}

	prev := c.state.Status
	c.applyTaskLocked(task)
	snap = c.changedLocked()
	c.mu.Unlock()

	c.recordFetch("manual", metrics.OutcomeOK, elapsed)
	if snap.Status != prev {
		c.recordStatus(snap.Status)
	}
	c.notify(snap)
	return nil
}

// Stop cancels the active polling session, if any
func (c *Controller) Stop() {
	c.mu.Lock()
	ended := c.endSessionLocked(c.session, endCancelled)
	var snap ViewState
	if ended {
		snap = c.changedLocked()
	}
	c.mu.Unlock()

	if ended {
		c.notify(snap)
	}
}

// Polling reports whether a session is active
func (c *Controller) Polling() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session != nil
}

// Wait blocks until the active session ends or ctx is done.
// It returns immediately when nothing is polling.
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()

	if s == nil {
		return nil
	}
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops polling and waits for the session goroutine to exit.
// No state change is applied or observed after Close returns.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.endSessionLocked(c.session, endCancelled)
	c.mu.Unlock()

	c.wg.Wait()

	// Wait out observers that were already running
	c.notifyMu.Lock()
	c.notifyMu.Unlock() //nolint:staticcheck // SA2001: barrier for observers already running
	return nil
}

func (c *Controller) applyTaskLocked(task *types.Task) {
	c.state.Task = task
	if !task.Status.IsEmpty() {
		c.state.Status = task.Status
	}
}

// changedLocked bumps the version and returns a snapshot. c.mu must be held.
func (c *Controller) changedLocked() ViewState {
	c.state.Version++
	return c.state
}

func (c *Controller) notify(snap ViewState) {
	if c.observer == nil {
		return
	}
	c.notifyMu.RLock()
	defer c.notifyMu.RUnlock()

	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return
	}
	c.observer(snap)
}

func (c *Controller) recordSubmission(success bool) {
	if c.metrics != nil {
		c.metrics.RecordSubmission(success)
	}
}

func (c *Controller) recordFetch(trigger, outcome string, elapsed time.Duration) {
	if c.metrics != nil {
		c.metrics.RecordFetch(trigger, outcome, elapsed)
	}
}

func (c *Controller) recordStatus(status types.Status) {
	if c.metrics != nil {
		c.metrics.RecordStatus(status.String())
	}
}

func (c *Controller) recordError(err error) {
	if c.metrics != nil {
		c.metrics.RecordError(string(errors.Code(err)))
	}
}
