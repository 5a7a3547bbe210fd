package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/pipectl/internal/errors"
	"github.com/felixgeelhaar/pipectl/internal/exitcode"
	"github.com/felixgeelhaar/pipectl/internal/ux"
)

func TestSubmit(t *testing.T) {
	isolate(t)
	backend := &fakeBackend{}
	url := backend.start(t)

	stdout, _, err := executeCommand(t, "submit", "--api-url", url, "Summarize", "the", "report")

	require.NoError(t, err)
	assert.Contains(t, stdout, "Task t1 submitted [queued]")
	assert.Contains(t, stdout, "pipectl watch t1")
	assert.Equal(t, []string{"Summarize the report"}, backend.goals)
}

func TestSubmit_JSON(t *testing.T) {
	isolate(t)
	url := (&fakeBackend{}).start(t)

	stdout, _, err := executeCommand(t, "submit", "--api-url", url+"/", "-f", "json", "X")
	require.NoError(t, err)

	var out ux.SubmitResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, "t1", out.TaskID)
	assert.Equal(t, url, out.APIURL, "trailing slash is stripped")
}

func TestSubmit_EmptyGoal(t *testing.T) {
	isolate(t)
	backend := &fakeBackend{}
	url := backend.start(t)

	_, _, err := executeCommand(t, "submit", "--api-url", url)

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeEmptyGoal))
	assert.Equal(t, exitcode.UsageError, exitcode.DetermineExitCode(err))
	assert.Empty(t, backend.goals, "nothing is sent")
}

func TestSubmit_BackendDown(t *testing.T) {
	isolate(t)

	_, _, err := executeCommand(t, "submit", "--api-url", "http://127.0.0.1:1", "X")

	require.Error(t, err)
	assert.Equal(t, exitcode.NetworkError, exitcode.DetermineExitCode(err))
}

func TestSubmit_Watch(t *testing.T) {
	isolate(t)
	backend := &fakeBackend{snapshots: []map[string]any{
		{"status": "planning", "goal": "X"},
		doneTask(true),
	}}
	url := backend.start(t)

	stdout, stderr, err := executeCommand(t, "submit", "--watch", "--api-url", url, "--poll-interval", "100ms", "X")

	require.NoError(t, err)
	assert.Contains(t, stderr, "t1 [planning]")
	assert.Contains(t, stderr, "t1 [done]")
	assert.Contains(t, stderr, "Watch Summary")
	assert.Contains(t, stdout, "1. step1")
	assert.Contains(t, stdout, "Passed: true")
}

func TestGet(t *testing.T) {
	isolate(t)
	backend := &fakeBackend{snapshots: []map[string]any{
		{"status": "executing", "goal": "X", "plan": []map[string]any{{"instruction": "step1"}}},
	}}
	url := backend.start(t)

	stdout, _, err := executeCommand(t, "get", "t1", "--api-url", url)

	require.NoError(t, err)
	assert.Contains(t, stdout, "Status:  executing")
	assert.Contains(t, stdout, "1. step1")
	assert.Contains(t, stdout, "Passed: undefined")
	assert.Equal(t, 1, backend.gets, "get fetches exactly once")
}

func TestGet_NotFound(t *testing.T) {
	isolate(t)
	url := (&fakeBackend{}).start(t)

	_, _, err := executeCommand(t, "get", "nope", "--api-url", url)

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeTaskNotFound))
}

func TestGet_BlankID(t *testing.T) {
	isolate(t)
	backend := &fakeBackend{}
	url := backend.start(t)

	_, _, err := executeCommand(t, "get", " ", "--api-url", url)

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeMissingTaskID))
	assert.Zero(t, backend.gets)
}

func TestWatch(t *testing.T) {
	tests := []struct {
		name     string
		final    map[string]any
		wantCode int
	}{
		{"review passed", doneTask(true), exitcode.Success},
		{"review failed", doneTask(false), exitcode.TaskFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			backend := &fakeBackend{snapshots: []map[string]any{
				{"status": "reviewing", "goal": "X"},
				tt.final,
			}}
			url := backend.start(t)

			stdout, _, err := executeCommand(t, "watch", "t1", "--api-url", url, "--poll-interval", "100ms", "-q")

			assert.Equal(t, tt.wantCode, exitcode.DetermineExitCode(err))
			assert.Contains(t, stdout, "Status:  done")
			assert.Equal(t, 2, backend.gets, "polling stops at done")
		})
	}
}

func TestWatch_StopsAtFirstFailure(t *testing.T) {
	isolate(t)
	url := (&fakeBackend{}).start(t)

	_, _, err := executeCommand(t, "watch", "t1", "--api-url", url, "--poll-interval", "100ms")

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeTaskNotFound))
}

func TestDoctor(t *testing.T) {
	isolate(t)
	backend := &fakeBackend{openapi: taskAPIDocument}
	url := backend.start(t)

	stdout, _, err := executeCommand(t, "doctor", "--api-url", url)

	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ backend")
	assert.Contains(t, stdout, "✓ api-contract")
	assert.Contains(t, stdout, "Backend is healthy")
}

func TestDoctor_ContractMismatch(t *testing.T) {
	isolate(t)
	backend := &fakeBackend{openapi: `{"openapi":"3.0.3","info":{"title":"x","version":"1"},"paths":{}}`}
	url := backend.start(t)

	_, _, err := executeCommand(t, "doctor", "--api-url", url)

	require.Error(t, err)
	assert.Equal(t, exitcode.ContractMismatch, exitcode.DetermineExitCode(err))
}

func TestDoctor_BackendDown(t *testing.T) {
	isolate(t)

	stdout, _, err := executeCommand(t, "doctor", "--api-url", "http://127.0.0.1:1", "--timeout", "1s", "-f", "json")

	require.Error(t, err)
	assert.Equal(t, exitcode.NetworkError, exitcode.DetermineExitCode(err))

	var report DoctorReport
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	assert.Equal(t, "unhealthy", string(report.Status))
}

func TestConfigInitSetGet(t *testing.T) {
	home := isolate(t)

	stdout, _, err := executeCommand(t, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, stdout, filepath.Join(home, "config.yaml"))

	_, _, err = executeCommand(t, "config", "init")
	assert.Error(t, err, "existing file is kept without --force")

	_, _, err = executeCommand(t, "config", "set", "poll_interval", "2s")
	require.NoError(t, err)

	stdout, _, err = executeCommand(t, "config", "get", "poll_interval")
	require.NoError(t, err)
	assert.Equal(t, "2s\n", stdout)

	_, _, err = executeCommand(t, "config", "set", "poll_interval", "10ms")
	assert.Equal(t, exitcode.ConfigError, exitcode.DetermineExitCode(err))

	_, _, err = executeCommand(t, "config", "get", "nope")
	assert.Error(t, err)
}

func TestConfigView(t *testing.T) {
	isolate(t)
	t.Setenv("PIPECTL_API_URL", "http://backend:9000/")

	stdout, _, err := executeCommand(t, "config", "view")
	require.NoError(t, err)
	assert.Contains(t, stdout, "# defaults only")
	assert.Contains(t, stdout, "api_url: http://backend:9000\n")

	stdout, _, err = executeCommand(t, "config", "view", "-f", "json", "--api-url", "http://flag:1")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"api_url": "http://flag:1"`)
}

func TestConfigPath(t *testing.T) {
	home := isolate(t)

	stdout, _, err := executeCommand(t, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "config.yaml")+"\n", stdout)

	custom := filepath.Join(home, "other.toml")
	stdout, _, err = executeCommand(t, "config", "path", "--config", custom)
	require.NoError(t, err)
	assert.Equal(t, custom+"\n", stdout)
}

func TestConfig_ExplicitMissingFile(t *testing.T) {
	home := isolate(t)

	_, _, err := executeCommand(t, "get", "t1", "--config", filepath.Join(home, "missing.yaml"))

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeConfigRead))
}

func TestConfig_TOMLFile(t *testing.T) {
	home := isolate(t)
	backend := &fakeBackend{snapshots: []map[string]any{{"status": "queued"}}}
	url := backend.start(t)

	path := filepath.Join(home, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("api_url = \""+url+"\"\n"), 0o600))

	stdout, _, err := executeCommand(t, "get", "t1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Status:  queued")
}

func TestVersion(t *testing.T) {
	stdout, _, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "pipectl ")

	stdout, _, err = executeCommand(t, "version", "--json")
	require.NoError(t, err)

	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(stdout), &info))
	assert.NotEmpty(t, info["version"])
	assert.NotEmpty(t, info["go_version"])
}

func TestUnknownCommandIsUsageError(t *testing.T) {
	_, _, err := executeCommand(t, "frobnicate")

	require.Error(t, err)
	assert.Equal(t, exitcode.UsageError, exitcode.DetermineExitCode(err))
}

func TestConfigSet_Telemetry(t *testing.T) {
	isolate(t)

	_, _, err := executeCommand(t, "config", "set", "telemetry.sample_rate", "0.5")
	require.NoError(t, err)

	stdout, _, err := executeCommand(t, "config", "get", "telemetry.sample_rate")
	require.NoError(t, err)
	assert.Equal(t, "0.5\n", stdout)

	_, _, err = executeCommand(t, "config", "set", "telemetry.sample_rate", "2")
	assert.Equal(t, exitcode.ConfigError, exitcode.DetermineExitCode(err))
}

func TestCompletion(t *testing.T) {
	stdout, _, err := executeCommand(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, stdout, "pipectl")

	_, _, err = executeCommand(t, "completion", "tcsh")
	assert.Error(t, err)
}
