package health

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/pipectl/internal/contract"
	"github.com/felixgeelhaar/pipectl/internal/errors"
	"github.com/felixgeelhaar/pipectl/internal/poller"
	"github.com/felixgeelhaar/pipectl/pkg/pipeline/types"
)

// HealthAPI is implemented by *client.Client
type HealthAPI interface {
	Health(ctx context.Context) error
	BaseURL() string
}

// DocumentAPI is implemented by *client.Client
type DocumentAPI interface {
	OpenAPIDocument(ctx context.Context) ([]byte, error)
}

// BackendChecker calls the backend's /health endpoint
type BackendChecker struct {
	api HealthAPI
}

// NewBackendChecker creates a checker for api
func NewBackendChecker(api HealthAPI) *BackendChecker {
	return &BackendChecker{api: api}
}

// Name implements Checker
func (c *BackendChecker) Name() string {
	return "backend"
}

// Check implements Checker
func (c *BackendChecker) Check(ctx context.Context) *Result {
	if err := c.api.Health(ctx); err != nil {
		return Unhealthy(fmt.Sprintf("backend at %s is not healthy", c.api.BaseURL())).
			WithDetail("api_url", c.api.BaseURL()).
			WithError(err)
	}
	return Healthy(fmt.Sprintf("backend at %s is up", c.api.BaseURL())).
		WithDetail("api_url", c.api.BaseURL())
}

// ContractChecker downloads the backend's OpenAPI document and checks
// that the task API is declared
type ContractChecker struct {
	api DocumentAPI
}

// NewContractChecker creates a contract checker for api
func NewContractChecker(api DocumentAPI) *ContractChecker {
	return &ContractChecker{api: api}
}

// Name implements Checker
func (c *ContractChecker) Name() string {
	return "api-contract"
}

// Check implements Checker. A backend that publishes no document is
// degraded rather than unhealthy; the task API may still work.
func (c *ContractChecker) Check(ctx context.Context) *Result {
	data, err := c.api.OpenAPIDocument(ctx)
	if err != nil {
		return Degraded("backend publishes no OpenAPI document").WithError(err)
	}

	report, err := contract.CheckDocument(ctx, data)
	if err != nil {
		return Degraded("backend OpenAPI document could not be parsed").WithError(err)
	}

	if !report.OK() {
		pErr := errors.NewContractMismatchError(report.Summary())
		return Unhealthy(pErr.Message).
			WithDetail("error_code", string(pErr.Code)).
			WithDetail("summary", report.Summary()).
			WithDetail("findings", report.Findings)
	}

	result := Healthy("task API contract satisfied").
		WithDetail("openapi", report.OpenAPI)
	if report.Title != "" {
		result.WithDetail("title", report.Title)
	}
	if len(report.Findings) > 0 {
		result.WithDetail("warnings", len(report.Findings))
	}
	return result
}

// SessionChecker reports the state of a controller's watch session
type SessionChecker struct {
	snapshot func() poller.ViewState
}

// NewSessionChecker creates a checker reading controller snapshots
func NewSessionChecker(snapshot func() poller.ViewState) *SessionChecker {
	return &SessionChecker{snapshot: snapshot}
}

// Name implements Checker
func (c *SessionChecker) Name() string {
	return "poll-session"
}

// Check implements Checker
func (c *SessionChecker) Check(ctx context.Context) *Result {
	v := c.snapshot()

	var result *Result
	switch {
	case v.Err != nil:
		result = Unhealthy(v.ErrorMessage()).
			WithDetail("error_code", string(errors.Code(v.Err)))
	case v.Polling:
		result = Healthy("polling")
	case v.Phase() == types.StatusDone:
		result = Healthy("task done")
	default:
		result = Degraded("not polling")
	}

	return result.
		WithDetail("task_id", v.TaskID).
		WithDetail("status", v.Phase().String()).
		WithDetail("fetches", v.Fetches)
}
