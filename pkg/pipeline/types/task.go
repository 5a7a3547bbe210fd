package types

import "strings"

// Status is the lifecycle state of a task as reported by the backend.
// Backends may emit values outside the constants below; they are kept verbatim.
type Status string

const (
	// StatusIdle is the client-side state before anything was submitted
	StatusIdle Status = "idle"
	// StatusCreating is the client-side state while a submission is in flight
	StatusCreating Status = "creating"

	// StatusQueued is the initial backend state after submission
	StatusQueued Status = "queued"
	// StatusRunning is a generic in-progress state
	StatusRunning Status = "running"
	// StatusPlanning means the Planner agent is producing steps
	StatusPlanning Status = "planning"
	// StatusExecuting means the Executor agent is working through the plan
	StatusExecuting Status = "executing"
	// StatusReviewing means the Reviewer agent is judging the execution
	StatusReviewing Status = "reviewing"
	// StatusDone is the only terminal status
	StatusDone Status = "done"
	// StatusError marks a failed submission or fetch on the client side
	StatusError Status = "error"
)

// String returns the string representation
func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no further state changes are expected.
func (s Status) IsTerminal() bool {
	return s == StatusDone
}

// IsEmpty reports whether the status carries no value.
func (s Status) IsEmpty() bool {
	return strings.TrimSpace(string(s)) == ""
}

// Step is a single instruction produced by the Planner.
type Step struct {
	Instruction string `json:"instruction" yaml:"instruction"`
}

// ExecutionTrace records what the Executor did for one step.
type ExecutionTrace struct {
	Instruction string `json:"instruction" yaml:"instruction"`
	Result      string `json:"result" yaml:"result"`
}

// Review is the Reviewer's verdict over the execution traces.
type Review struct {
	Review string `json:"review" yaml:"review"`
	Passed bool   `json:"passed" yaml:"passed"`
}

// Result is the consolidated output the backend stores once a task is done.
type Result struct {
	Plan      []Step           `json:"plan,omitempty" yaml:"plan,omitempty"`
	Execution []ExecutionTrace `json:"execution,omitempty" yaml:"execution,omitempty"`
	Review    *Review          `json:"review,omitempty" yaml:"review,omitempty"`
}

// Task is a snapshot of a unit of work tracked through the
// Planner, Executor and Reviewer stages.
type Task struct {
	ID        string           `json:"id,omitempty" yaml:"id,omitempty"`
	Goal      string           `json:"goal" yaml:"goal"`
	Status    Status           `json:"status" yaml:"status"`
	Plan      []Step           `json:"plan,omitempty" yaml:"plan,omitempty"`
	Execution []ExecutionTrace `json:"execution,omitempty" yaml:"execution,omitempty"`
	Review    *Review          `json:"review,omitempty" yaml:"review,omitempty"`
	Result    *Result          `json:"result,omitempty" yaml:"result,omitempty"`
}

// Passed renders the review verdict the way the control panel shows it:
// "true", "false", or "undefined" while no review exists yet.
func (t *Task) Passed() string {
	if t == nil || t.Review == nil {
		return "undefined"
	}
	if t.Review.Passed {
		return "true"
	}
	return "false"
}

// CreateTaskRequest is the body of POST /tasks
type CreateTaskRequest struct {
	Goal string `json:"goal"`
}

// CreateTaskResponse is the body returned by POST /tasks
type CreateTaskResponse struct {
	TaskID string `json:"task_id" yaml:"task_id"`
	Status Status `json:"status,omitempty" yaml:"status,omitempty"`
}
