package exitcode

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	perrors "github.com/felixgeelhaar/pipectl/internal/errors"
	"github.com/felixgeelhaar/pipectl/pkg/pipeline/client"
)

func TestExitCodes(t *testing.T) {
	tests := []struct {
		name     string
		code     int
		expected int
	}{
		{"Success", Success, 0},
		{"GeneralError", GeneralError, 1},
		{"UsageError", UsageError, 2},
		{"TaskFailed", TaskFailed, 3},
		{"ConfigError", ConfigError, 4},
		{"ContractMismatch", ContractMismatch, 5},
		{"NetworkError", NetworkError, 6},
		{"Interrupted", Interrupted, 130},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.code != tt.expected {
				t.Errorf("Exit code %s = %d, want %d", tt.name, tt.code, tt.expected)
			}
		})
	}
}

func TestDetermineExitCode(t *testing.T) {
	const api = "http://127.0.0.1:8000"

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error returns success", nil, Success},
		{"task failed", perrors.NewTaskFailedError("t1", "boom"), TaskFailed},
		{"review not passed", perrors.NewReviewNotPassedError("t1"), TaskFailed},
		{"wrapped task failure", fmt.Errorf("watch: %w", perrors.NewTaskFailedError("t1", "")), TaskFailed},
		{"missing task id", perrors.NewMissingTaskIDError(), UsageError},
		{"empty goal", perrors.NewEmptyGoalError(), UsageError},
		{"bare empty goal", client.ErrEmptyGoal, UsageError},
		{"config read", perrors.NewConfigReadError("/x.yaml", errors.New("bad")), ConfigError},
		{"config invalid", perrors.NewConfigInvalidError("api_url", "bad"), ConfigError},
		{"contract", perrors.NewContractMismatchError("missing route"), ContractMismatch},
		{"unreachable", perrors.NewBackendUnreachableError(api, errors.New("refused")), NetworkError},
		{"submit rejected", perrors.NewSubmitFailedError(api, &client.RequestError{Op: "create task", StatusCode: 500}), GeneralError},
		{"not found", perrors.NewFetchFailedError(api, "t1", &client.RequestError{Op: "get task", StatusCode: 404}), GeneralError},
		{"bare request error", &client.RequestError{Op: "get task", StatusCode: 502}, GeneralError},
		{"net error", &net.OpError{Op: "dial", Err: errors.New("refused")}, NetworkError},
		{"deadline", fmt.Errorf("get task: %w", context.DeadlineExceeded), NetworkError},
		{"interrupted", fmt.Errorf("watch: %w", context.Canceled), Interrupted},
		{"unknown command", errors.New(`unknown command "foo" for "pipectl"`), UsageError},
		{"unknown flag", errors.New("unknown flag: --bogus"), UsageError},
		{"arg count", errors.New("accepts 1 arg(s), received 0"), UsageError},
		{"generic", errors.New("something went wrong"), GeneralError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetermineExitCode(tt.err); got != tt.expected {
				t.Errorf("DetermineExitCode(%v) = %d, want %d", tt.err, got, tt.expected)
			}
		})
	}
}

func TestGetExitCodeDescription(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{Success, "Success"},
		{GeneralError, "General error"},
		{UsageError, "Usage error (invalid flags or arguments)"},
		{TaskFailed, "Task failed"},
		{ConfigError, "Configuration error"},
		{ContractMismatch, "Backend contract mismatch"},
		{NetworkError, "Network error"},
		{Interrupted, "Interrupted"},
		{99, "Unknown error"},
	}

	for _, tt := range tests {
		if got := GetExitCodeDescription(tt.code); got != tt.want {
			t.Errorf("GetExitCodeDescription(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}
