package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/felixgeelhaar/pipectl/pkg/pipeline/types"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		want    string
	}{
		{"plain", "http://localhost:8000", "http://localhost:8000"},
		{"trailing slash stripped", "http://localhost:8000/", "http://localhost:8000"},
		{"several trailing slashes", "http://localhost:8000///", "http://localhost:8000"},
		{"whitespace trimmed", "  http://localhost:8000/ ", "http://localhost:8000"},
		{"empty falls back to loopback", "", DefaultBaseURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.baseURL).BaseURL())
		})
	}
}

func TestClient_CreateTask(t *testing.T) {
	var gotBody types.CreateTaskRequest
	var gotRequestID string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/tasks", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		gotRequestID = r.Header.Get(RequestIDHeader)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"task_id":"t1","status":"queued"}`))
	}))
	defer server.Close()

	c := New(server.URL + "/")
	resp, err := c.CreateTask(context.Background(), "X")

	require.NoError(t, err)
	assert.Equal(t, "t1", resp.TaskID)
	assert.Equal(t, types.StatusQueued, resp.Status)
	assert.Equal(t, "X", gotBody.Goal)
	assert.NotEmpty(t, gotRequestID)
}

func TestClient_CreateTask_DefaultsStatusToQueued(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"task_id":"t2"}`))
	}))
	defer server.Close()

	resp, err := New(server.URL).CreateTask(context.Background(), "goal")

	require.NoError(t, err)
	assert.Equal(t, "t2", resp.TaskID)
	assert.Equal(t, types.StatusQueued, resp.Status)
}

func TestClient_CreateTask_BackendStatusKept(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"task_id":"t3","status":"planning"}`))
	}))
	defer server.Close()

	resp, err := New(server.URL).CreateTask(context.Background(), "goal")

	require.NoError(t, err)
	assert.Equal(t, types.StatusPlanning, resp.Status)
}

func TestClient_CreateTask_Errors(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		wantDetail string
	}{
		{"internal error", http.StatusInternalServerError, "", ""},
		{"validation error", http.StatusUnprocessableEntity, `{"detail":[{"loc":["body","goal"]}]}`, ""},
		{"bad gateway with detail", http.StatusBadGateway, `{"detail":"upstream down"}`, "upstream down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			resp, err := New(server.URL).CreateTask(context.Background(), "goal")

			require.Error(t, err)
			assert.Nil(t, resp)

			reqErr, ok := AsRequestError(err)
			require.True(t, ok, "expected RequestError, got %T", err)
			assert.Equal(t, "create task", reqErr.Op)
			assert.Equal(t, tt.statusCode, reqErr.StatusCode)
			assert.Equal(t, tt.wantDetail, reqErr.Detail)
		})
	}
}

func TestClient_CreateTask_MissingTaskID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"queued"}`))
	}))
	defer server.Close()

	_, err := New(server.URL).CreateTask(context.Background(), "goal")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing task_id")
}

func TestClient_CreateTask_EmptyGoalSkipsNetwork(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	_, err := New(server.URL).CreateTask(context.Background(), "   ")

	assert.ErrorIs(t, err, ErrEmptyGoal)
	assert.Zero(t, calls.Load())
}

func TestClient_GetTask(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/tasks/t1", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"running","goal":"X","plan":[{"instruction":"step1"}]}`))
	}))
	defer server.Close()

	task, err := New(server.URL).GetTask(context.Background(), "t1")

	require.NoError(t, err)
	assert.Equal(t, "t1", task.ID, "id is filled from the request path")
	assert.Equal(t, types.StatusRunning, task.Status)
	require.Len(t, task.Plan, 1)
	assert.Equal(t, "step1", task.Plan[0].Instruction)
}

func TestClient_GetTask_EscapesID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tasks/a%2Fb", r.URL.EscapedPath())
		_, _ = w.Write([]byte(`{"status":"queued"}`))
	}))
	defer server.Close()

	_, err := New(server.URL).GetTask(context.Background(), "a/b")
	require.NoError(t, err)
}

func TestClient_GetTask_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Task not found"}`))
	}))
	defer server.Close()

	_, err := New(server.URL).GetTask(context.Background(), "missing")

	reqErr, ok := AsRequestError(err)
	require.True(t, ok)
	assert.True(t, reqErr.NotFound())
	assert.Equal(t, "Task not found", reqErr.Detail)
	assert.Equal(t, "get task failed: 404 (Task not found)", reqErr.Error())
}

func TestClient_GetTask_MissingIDSkipsNetwork(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	_, err := New(server.URL).GetTask(context.Background(), "")

	assert.True(t, errors.Is(err, ErrMissingTaskID))
	assert.Zero(t, calls.Load())
}

func TestClient_GetTask_ContextCancelled(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := New(server.URL).GetTask(ctx, "t1")

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_Health(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		wantErr    bool
	}{
		{"healthy", http.StatusOK, `{"status":"ok"}`, false},
		{"unexpected status value", http.StatusOK, `{"status":"degraded"}`, true},
		{"server error", http.StatusServiceUnavailable, ``, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/health", r.URL.Path)
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			err := New(server.URL).Health(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestClient_OpenAPIDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/openapi.json", r.URL.Path)
		_, _ = w.Write([]byte(`{"openapi":"3.1.0"}`))
	}))
	defer server.Close()

	doc, err := New(server.URL).OpenAPIDocument(context.Background())

	require.NoError(t, err)
	assert.JSONEq(t, `{"openapi":"3.1.0"}`, string(doc))
}

func TestWithOptions(t *testing.T) {
	transport := &http.Transport{}
	hc := &http.Client{Transport: transport}
	c := New("http://example.test", WithHTTPClient(hc), WithTimeout(5*time.Second), WithUserAgent("pipectl/1.0"))

	assert.Equal(t, 5*time.Second, c.httpClient.Timeout)
	assert.Same(t, transport, c.httpClient.Transport)
	assert.Zero(t, hc.Timeout, "caller's client must not be modified")
	assert.Equal(t, "pipectl/1.0", c.userAgent)

	c = New("http://example.test", WithHTTPClient(hc))
	assert.Same(t, hc, c.httpClient)
}

func TestWithTimeout_LeavesDefaultClientAlone(t *testing.T) {
	before := http.DefaultClient.Timeout
	c := New("http://example.test", WithHTTPClient(http.DefaultClient), WithTimeout(3*time.Second))

	assert.Equal(t, before, http.DefaultClient.Timeout)
	assert.Equal(t, 3*time.Second, c.httpClient.Timeout)
	assert.NotSame(t, http.DefaultClient, c.httpClient)
}

func TestClient_RecordsSpans(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/tasks/t1" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"queued"}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	c := New(srv.URL, WithTracerProvider(tp))

	_, err := c.GetTask(context.Background(), "t1")
	require.NoError(t, err)
	_, err = c.GetTask(context.Background(), "t2")
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "GET /tasks/{task_id}", spans[0].Name())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}
