package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/pipectl/pkg/pipeline/types"
)

// DefaultBaseURL is the loopback address the backend listens on by default
const DefaultBaseURL = "http://127.0.0.1:8000"

// RequestIDHeader carries a per-request correlation id
const RequestIDHeader = "X-Request-ID"

const tracerName = "github.com/felixgeelhaar/pipectl/pkg/pipeline/client"

var (
	// ErrEmptyGoal is returned when a submission carries no goal text
	ErrEmptyGoal = errors.New("goal must not be empty")
	// ErrMissingTaskID is returned when a fetch is attempted without a task id
	ErrMissingTaskID = errors.New("no task id")
)

// Client talks to the pipeline backend's task API.
//
// Usage:
//
//	c := client.New("http://127.0.0.1:8000")
//	created, err := c.CreateTask(ctx, "Summarize the report")
//	task, err := c.GetTask(ctx, created.TaskID)
//
// The client never retries; failures are returned to the caller as-is.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	userAgent  string
	tracer     trace.Tracer
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout. A client passed with
// WithHTTPClient is copied rather than modified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every request
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithTracerProvider sets where request spans are recorded.
// The global provider is used by default.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) {
		if tp != nil {
			c.tracer = tp.Tracer(tracerName)
		}
	}
}

// New creates a client for the backend at baseURL.
// A trailing slash on baseURL is stripped; an empty baseURL falls back to DefaultBaseURL.
func New(baseURL string, opts ...Option) *Client {
	baseURL = NormalizeBaseURL(baseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		userAgent:  "pipectl",
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 && c.httpClient.Timeout != c.timeout {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	return c
}

// NormalizeBaseURL trims whitespace and trailing slashes
func NormalizeBaseURL(raw string) string {
	return strings.TrimRight(strings.TrimSpace(raw), "/")
}

// BaseURL returns the normalized backend address
func (c *Client) BaseURL() string {
	return c.baseURL
}

// CreateTask submits a goal and returns the identifier the backend assigned.
// The returned status defaults to "queued" when the backend omits it.
func (c *Client) CreateTask(ctx context.Context, goal string) (*types.CreateTaskResponse, error) {
	if strings.TrimSpace(goal) == "" {
		return nil, ErrEmptyGoal
	}

	body, err := json.Marshal(types.CreateTaskRequest{Goal: goal})
	if err != nil {
		return nil, fmt.Errorf("failed to encode create task request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/tasks", "/tasks", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return nil, newRequestError("create task", resp)
	}

	var out types.CreateTaskResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode create task response: %w", err)
	}
	if out.TaskID == "" {
		return nil, fmt.Errorf("failed to decode create task response: missing task_id")
	}
	if out.Status.IsEmpty() {
		out.Status = types.StatusQueued
	}

	return &out, nil
}

// GetTask fetches the current snapshot of a task.
func (c *Client) GetTask(ctx context.Context, taskID string) (*types.Task, error) {
	if strings.TrimSpace(taskID) == "" {
		return nil, ErrMissingTaskID
	}

	resp, err := c.do(ctx, http.MethodGet, "/tasks/{task_id}", "/tasks/"+url.PathEscape(taskID), nil)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return nil, newRequestError("get task", resp)
	}

	var task types.Task
	if err := json.NewDecoder(resp.Body).Decode(&task); err != nil {
		return nil, fmt.Errorf("failed to decode task %s: %w", taskID, err)
	}
	if task.ID == "" {
		task.ID = taskID
	}

	return &task, nil
}

// Health checks that the backend is reachable and reports ok
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/health", "/health", nil)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return newRequestError("health", resp)
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("failed to decode health response: %w", err)
	}
	if body.Status != "ok" {
		return fmt.Errorf("backend reported status %q", body.Status)
	}
	return nil
}

// OpenAPIDocument downloads the backend's published OpenAPI document
func (c *Client) OpenAPIDocument(ctx context.Context) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, "/openapi.json", "/openapi.json", nil)
	if err != nil {
		return nil, fmt.Errorf("fetch openapi document: %w", err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return nil, newRequestError("fetch openapi document", resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read openapi document: %w", err)
	}
	return data, nil
}

// do sends one request inside a client span named after route, the path
// template, so task ids stay out of span names.
func (c *Client) do(ctx context.Context, method, route, path string, body io.Reader) (*http.Response, error) {
	ctx, span := c.tracer.Start(ctx, method+" "+route, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("http.route", route),
		attribute.String("server.address", req.URL.Host),
		attribute.String("pipectl.request_id", requestID),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	if resp.StatusCode >= 400 {
		span.SetStatus(codes.Error, resp.Status)
	}
	return resp, nil
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}
