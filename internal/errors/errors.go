package errors

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/pipectl/pkg/pipeline/client"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error categories
const (
	// Task errors (TASK-001 to TASK-099)
	ErrCodeSubmitFailed    ErrorCode = "TASK-001"
	ErrCodeFetchFailed     ErrorCode = "TASK-002"
	ErrCodeMissingTaskID   ErrorCode = "TASK-003"
	ErrCodeEmptyGoal       ErrorCode = "TASK-004"
	ErrCodeReviewNotPassed ErrorCode = "TASK-005"
	ErrCodeTaskNotFound    ErrorCode = "TASK-006"
	ErrCodeTaskFailed      ErrorCode = "TASK-007"

	// Network errors (NET-001 to NET-099)
	ErrCodeBackendUnreachable ErrorCode = "NET-001"

	// Config errors (CONFIG-001 to CONFIG-099)
	ErrCodeConfigRead    ErrorCode = "CONFIG-001"
	ErrCodeConfigInvalid ErrorCode = "CONFIG-002"

	// Contract errors (CONTRACT-001 to CONTRACT-099)
	ErrCodeContractMismatch ErrorCode = "CONTRACT-001"
)

const docsBase = "https://github.com/felixgeelhaar/pipectl#"

// PipelineError represents an enhanced error with code, suggestions, and documentation
type PipelineError struct {
	Code        ErrorCode
	Message     string
	Suggestions []string
	DocsURL     string
	Cause       error
}

// Error implements the error interface
func (e *PipelineError) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  • %s", suggestion))
		}
	}

	if e.DocsURL != "" {
		b.WriteString(fmt.Sprintf("\n\nDocumentation: %s", e.DocsURL))
	}

	return b.String()
}

// Short returns the code, message and cause without suggestions or docs.
// Used where only one line fits, such as the TUI status bar.
func (e *PipelineError) Short() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// Is matches another PipelineError by code, so sentinel comparisons work
// across separately constructed values.
func (e *PipelineError) Is(target error) bool {
	t, ok := target.(*PipelineError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// New creates a new PipelineError
func New(code ErrorCode, message string) *PipelineError {
	return &PipelineError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new PipelineError wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *PipelineError {
	return &PipelineError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithSuggestion adds a suggestion to the error
func (e *PipelineError) WithSuggestion(suggestion string) *PipelineError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple suggestions to the error
func (e *PipelineError) WithSuggestions(suggestions ...string) *PipelineError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// WithDocs adds a documentation URL to the error
func (e *PipelineError) WithDocs(url string) *PipelineError {
	e.DocsURL = url
	return e
}

// Code returns the first error code found in the chain, or "" if none
func Code(err error) ErrorCode {
	var pErr *PipelineError
	if stderrors.As(err, &pErr) {
		return pErr.Code
	}
	return ""
}

// IsCode reports whether any error in the chain carries the given code
func IsCode(err error, code ErrorCode) bool {
	for err != nil {
		if pErr, ok := err.(*PipelineError); ok && pErr.Code == code {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// Message returns a single-line description suitable for a status line
func Message(err error) string {
	if err == nil {
		return ""
	}
	var pErr *PipelineError
	if stderrors.As(err, &pErr) {
		return pErr.Short()
	}
	return err.Error()
}

// Common error constructors for frequently used errors

// NewMissingTaskIDError is returned when a fetch is attempted with no task id held
func NewMissingTaskIDError() *PipelineError {
	return Wrap(ErrCodeMissingTaskID, "cannot fetch task", client.ErrMissingTaskID).
		WithSuggestion("Submit a goal first, or paste a task id").
		WithSuggestion("Run 'pipectl get <task-id>' with an id returned by 'pipectl submit'")
}

// NewEmptyGoalError is returned when a submission carries no goal text
func NewEmptyGoalError() *PipelineError {
	return Wrap(ErrCodeEmptyGoal, "cannot submit task", client.ErrEmptyGoal).
		WithSuggestion("Describe what the pipeline should accomplish, e.g. pipectl submit \"Summarize Q3 sales\"")
}

// NewSubmitFailedError wraps a failed task submission
func NewSubmitFailedError(apiURL string, cause error) *PipelineError {
	if _, ok := client.AsRequestError(cause); !ok {
		return NewBackendUnreachableError(apiURL, cause)
	}
	return Wrap(ErrCodeSubmitFailed, "task submission rejected by backend", cause).
		WithSuggestion("Check the backend logs for the failing request").
		WithSuggestion("Run 'pipectl doctor' to verify the backend contract").
		WithDocs(docsBase + "submitting-tasks")
}

// NewFetchFailedError wraps a failed task fetch
func NewFetchFailedError(apiURL, taskID string, cause error) *PipelineError {
	reqErr, ok := client.AsRequestError(cause)
	if !ok {
		return NewBackendUnreachableError(apiURL, cause)
	}
	if reqErr.NotFound() {
		return Wrap(ErrCodeTaskNotFound, fmt.Sprintf("task %s not found", taskID), cause).
			WithSuggestion("Check the task id for typos").
			WithSuggestion("The backend keeps tasks in memory; a restart forgets them")
	}
	return Wrap(ErrCodeFetchFailed, fmt.Sprintf("fetching task %s failed", taskID), cause).
		WithSuggestion("Retry with 'pipectl get " + taskID + "'").
		WithDocs(docsBase + "watching-tasks")
}

// NewBackendUnreachableError wraps a transport-level failure
func NewBackendUnreachableError(apiURL string, cause error) *PipelineError {
	return Wrap(ErrCodeBackendUnreachable, fmt.Sprintf("backend unreachable at %s", apiURL), cause).
		WithSuggestion("Start the backend or point --api-url / PIPECTL_API_URL at it").
		WithSuggestion("Run 'pipectl doctor' to diagnose connectivity")
}

// NewReviewNotPassedError reports a finished task whose review failed
func NewReviewNotPassedError(taskID string) *PipelineError {
	return New(ErrCodeReviewNotPassed, fmt.Sprintf("task %s finished but the review did not pass", taskID)).
		WithSuggestion("Inspect the review with 'pipectl get " + taskID + "'")
}

// NewTaskFailedError reports a task the backend marked as errored
func NewTaskFailedError(taskID, detail string) *PipelineError {
	msg := fmt.Sprintf("task %s failed", taskID)
	if detail != "" {
		msg += ": " + detail
	}
	return New(ErrCodeTaskFailed, msg).
		WithSuggestion("Inspect the task with 'pipectl get " + taskID + "'").
		WithSuggestion("Check the backend logs for the failing agent")
}

// NewConfigReadError wraps a config file that could not be read or parsed
func NewConfigReadError(path string, cause error) *PipelineError {
	return Wrap(ErrCodeConfigRead, fmt.Sprintf("failed to load config file: %s", path), cause).
		WithSuggestion("Check the file syntax and format").
		WithSuggestion("Regenerate a default file with 'pipectl config init --force'")
}

// NewConfigInvalidError reports an invalid configuration value
func NewConfigInvalidError(key, details string) *PipelineError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid config value for %s: %s", key, details)).
		WithSuggestion("Run 'pipectl config view' to inspect the effective configuration")
}

// NewContractMismatchError reports a backend whose API differs from what the client expects
func NewContractMismatchError(details string) *PipelineError {
	return New(ErrCodeContractMismatch, fmt.Sprintf("backend API contract mismatch: %s", details)).
		WithSuggestion("Upgrade the backend or pipectl so both speak the same task API").
		WithDocs(docsBase + "backend-contract")
}
