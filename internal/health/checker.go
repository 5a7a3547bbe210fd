// Package health checks the things pipectl depends on: the backend's
// reachability, its task API contract, and the state of a watch session.
//
//	manager := health.NewManager()
//	manager.AddChecker(health.NewBackendChecker(c))
//	manager.AddChecker(health.NewContractChecker(c), "backend")
//
//	results := manager.Check(ctx)
//	status := OverallStatus(results)
package health

import (
	"context"
	"time"
)

// Checker verifies one dependency
type Checker interface {
	// Name is lowercase with hyphens, e.g. "backend" or "api-contract"
	Name() string

	// Check must respect the context deadline
	Check(ctx context.Context) *Result
}

// Status of a check, ordered healthy < degraded < unhealthy
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) severity() int {
	switch s {
	case StatusHealthy:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

// Icon is the symbol doctor prints next to a check
func (s Status) Icon() string {
	switch s {
	case StatusHealthy:
		return "✓"
	case StatusDegraded:
		return "⚠"
	default:
		return "✗"
	}
}

// Worst returns the most severe status, healthy for none
func Worst(statuses ...Status) Status {
	worst := StatusHealthy
	for _, s := range statuses {
		if s.severity() > worst.severity() {
			worst = s
		}
	}
	return worst
}

// Result is the outcome of one check
type Result struct {
	Status  Status                 `json:"status" yaml:"status"`
	Message string                 `json:"message" yaml:"message"`
	Details map[string]interface{} `json:"details,omitempty" yaml:"details,omitempty"`
	Latency time.Duration          `json:"latency" yaml:"latency"`
}

func newResult(status Status, message string) *Result {
	return &Result{Status: status, Message: message}
}

// Healthy creates a healthy result
func Healthy(message string) *Result { return newResult(StatusHealthy, message) }

// Degraded creates a degraded result
func Degraded(message string) *Result { return newResult(StatusDegraded, message) }

// Unhealthy creates an unhealthy result
func Unhealthy(message string) *Result { return newResult(StatusUnhealthy, message) }

// WithDetail sets a detail and returns r for chaining
func (r *Result) WithDetail(key string, value interface{}) *Result {
	if r.Details == nil {
		r.Details = make(map[string]interface{})
	}
	r.Details[key] = value
	return r
}

// WithError records err under the "error" detail
func (r *Result) WithError(err error) *Result {
	if err == nil {
		return r
	}
	return r.WithDetail("error", err.Error())
}

// ErrorDetail returns the recorded error text, or ""
func (r *Result) ErrorDetail() string {
	msg, _ := r.Details["error"].(string)
	return msg
}
