package poller

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/pipectl/internal/errors"
	"github.com/felixgeelhaar/pipectl/internal/metrics"
	"github.com/felixgeelhaar/pipectl/internal/telemetry"
	"github.com/felixgeelhaar/pipectl/pkg/pipeline/types"
)

// Session end reasons, also used as metric labels
const (
	endDone      = "done"
	endError     = "error"
	endCancelled = "cancelled"
)

// session is one polling run for one task id. Only the controller's
// current session may change state; results from a replaced session are
// dropped.
type session struct {
	id     string
	taskID string
	cancel context.CancelFunc
	done   chan struct{}
}

// run ticks every interval and fetches once per tick until the task is
// done, a fetch fails, or the session is cancelled.
func (c *Controller) run(ctx context.Context, s *session) {
	defer c.wg.Done()
	defer close(s.done)

	ctx, span := telemetry.StartSessionSpan(ctx, s.taskID, s.id)
	defer span.End()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !c.tick(ctx, s) {
				return
			}
			// Drop a tick that fired while the fetch was outstanding
			select {
			case <-ticker.C:
			default:
			}
		}
	}
}

// tick performs one fetch and applies it. It reports whether polling continues.
func (c *Controller) tick(ctx context.Context, s *session) bool {
	start := time.Now()
	task, err := c.api.GetTask(ctx, s.taskID)
	elapsed := time.Since(start)

	c.mu.Lock()
	if c.session != s || ctx.Err() != nil {
		c.mu.Unlock()
		c.recordFetch("poll", metrics.OutcomeCancelled, elapsed)
		c.logger.Debug("dropping result of replaced session", "session", s.id, "task_id", s.taskID)
		return false
	}

	c.state.Fetches++
	c.state.LastFetch = time.Now()

	if err != nil {
		pErr := errors.NewFetchFailedError(c.baseURL, s.taskID, err)
		c.state.Err = pErr
		c.state.Status = types.StatusError
		c.endSessionLocked(s, endError)
		snap := c.changedLocked()
		c.mu.Unlock()

		c.recordFetch("poll", metrics.OutcomeError, elapsed)
		c.recordError(pErr)
		telemetry.RecordOutcome(trace.SpanFromContext(ctx), pErr)
		c.logger.WithError(pErr).Warn("polling stopped after failed fetch", "session", s.id)
		c.notify(snap)
		return false
	}

	prev := c.state.Status
	c.applyTaskLocked(task)

	more := true
	if c.state.Status.IsTerminal() {
		c.endSessionLocked(s, endDone)
		more = false
	}
	snap := c.changedLocked()
	c.mu.Unlock()

	c.recordFetch("poll", metrics.OutcomeOK, elapsed)
	if snap.Status != prev {
		c.recordStatus(snap.Status)
		c.logger.Info("task status changed", "task_id", s.taskID, "from", prev.String(), "to", snap.Status.String())
	}
	if !more {
		telemetry.RecordOutcome(trace.SpanFromContext(ctx), nil)
		c.logger.Info("polling finished", "task_id", s.taskID, "session", s.id, "fetches", snap.Fetches)
	}
	c.notify(snap)
	return more
}

// endSessionLocked retires s if it is still current. Each session ends
// exactly once. c.mu must be held.
func (c *Controller) endSessionLocked(s *session, reason string) bool {
	if s == nil || c.session != s {
		return false
	}
	c.session = nil
	c.state.Polling = false
	s.cancel()

	if c.metrics != nil {
		c.metrics.SessionEnded(reason)
	}
	c.logger.Debug("polling session ended", "session", s.id, "task_id", s.taskID, "reason", reason)
	return true
}
