package exitcode

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"

	perrors "github.com/felixgeelhaar/pipectl/internal/errors"
	"github.com/felixgeelhaar/pipectl/pkg/pipeline/client"
)

// Exit codes for consistent error handling across the CLI
const (
	// Success indicates successful execution
	Success = 0

	// GeneralError indicates a general error condition
	GeneralError = 1

	// UsageError indicates invalid command usage (bad flags, missing args, empty goal)
	UsageError = 2

	// TaskFailed indicates the task ended in error or its review did not pass
	TaskFailed = 3

	// ConfigError indicates an unreadable or invalid configuration
	ConfigError = 4

	// ContractMismatch indicates the backend API differs from what pipectl expects
	ContractMismatch = 5

	// NetworkError indicates the backend could not be reached
	NetworkError = 6

	// Interrupted indicates the command was cancelled by a signal
	Interrupted = 130
)

// Exit terminates the program with the given exit code
func Exit(code int) {
	os.Exit(code)
}

// DetermineExitCode maps an error chain to an exit code
func DetermineExitCode(err error) int {
	if err == nil {
		return Success
	}

	if errors.Is(err, context.Canceled) {
		return Interrupted
	}

	switch perrors.Code(err) {
	case perrors.ErrCodeTaskFailed, perrors.ErrCodeReviewNotPassed:
		return TaskFailed
	case perrors.ErrCodeMissingTaskID, perrors.ErrCodeEmptyGoal:
		return UsageError
	case perrors.ErrCodeConfigRead, perrors.ErrCodeConfigInvalid:
		return ConfigError
	case perrors.ErrCodeContractMismatch:
		return ContractMismatch
	case perrors.ErrCodeBackendUnreachable:
		return NetworkError
	case perrors.ErrCodeSubmitFailed, perrors.ErrCodeFetchFailed, perrors.ErrCodeTaskNotFound:
		return GeneralError
	}

	if errors.Is(err, client.ErrEmptyGoal) || errors.Is(err, client.ErrMissingTaskID) {
		return UsageError
	}
	if _, ok := client.AsRequestError(err); ok {
		return GeneralError
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return NetworkError
	}

	// cobra reports usage problems as plain errors
	errMsg := strings.ToLower(err.Error())
	for _, marker := range []string{"unknown command", "unknown flag", "unknown shorthand flag", "required flag", "invalid argument", "accepts "} {
		if strings.Contains(errMsg, marker) {
			return UsageError
		}
	}

	return GeneralError
}

// GetExitCodeDescription returns a human-readable description of an exit code
func GetExitCodeDescription(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case UsageError:
		return "Usage error (invalid flags or arguments)"
	case TaskFailed:
		return "Task failed"
	case ConfigError:
		return "Configuration error"
	case ContractMismatch:
		return "Backend contract mismatch"
	case NetworkError:
		return "Network error"
	case Interrupted:
		return "Interrupted"
	default:
		return "Unknown error"
	}
}
