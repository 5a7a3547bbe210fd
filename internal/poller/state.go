package poller

import (
	"time"

	"github.com/felixgeelhaar/pipectl/internal/errors"
	"github.com/felixgeelhaar/pipectl/pkg/pipeline/types"
)

// ViewState is everything a front end needs to render the control panel.
// Controllers hand out copies; mutating one has no effect on the controller.
type ViewState struct {
	Goal   string
	TaskID string
	// Task is the latest fetched snapshot, nil until the first fetch succeeds
	Task   *types.Task
	Status types.Status
	Err    error

	// Polling is true while a polling session is active
	Polling   bool
	LastFetch time.Time
	Fetches   int

	// Version increases with every change
	Version uint64
}

// Phase returns the status to display, idle before anything happened
func (v ViewState) Phase() types.Status {
	if v.Status.IsEmpty() {
		return types.StatusIdle
	}
	return v.Status
}

// ErrorMessage returns a one-line description of Err, or ""
func (v ViewState) ErrorMessage() string {
	return errors.Message(v.Err)
}

// HasResult reports whether a task snapshot is available to render
func (v ViewState) HasResult() bool {
	return v.Task != nil
}

// Newer reports whether v is a later snapshot than other
func (v ViewState) Newer(other ViewState) bool {
	return v.Version > other.Version
}
