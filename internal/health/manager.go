package health

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

type registration struct {
	checker  Checker
	requires []string
}

// Manager runs checks concurrently, each under its own timeout. A check
// registered with requirements runs only after those checks passed
// without becoming unhealthy; otherwise it is reported as skipped.
type Manager struct {
	mu      sync.RWMutex
	checks  []registration
	timeout time.Duration
}

// NewManager creates a manager with a 5 second per-check timeout
func NewManager() *Manager {
	return &Manager{timeout: 5 * time.Second}
}

// WithTimeout sets the per-check timeout
func (m *Manager) WithTimeout(timeout time.Duration) *Manager {
	m.mu.Lock()
	defer m.mu.Unlock()
	if timeout > 0 {
		m.timeout = timeout
	}
	return m
}

// AddChecker registers checker. It runs after every check named in requires.
func (m *Manager) AddChecker(checker Checker, requires ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks = append(m.checks, registration{checker: checker, requires: requires})
}

// Check runs all registered checks and returns results by checker name.
// Checks whose requirements are unknown never run and are reported
// unhealthy.
func (m *Manager) Check(ctx context.Context) map[string]*Result {
	m.mu.RLock()
	pending := append([]registration(nil), m.checks...)
	timeout := m.timeout
	m.mu.RUnlock()

	results := make(map[string]*Result, len(pending))
	for len(pending) > 0 {
		var ready, waiting []registration
		for _, reg := range pending {
			if requirementsDone(reg, results) {
				ready = append(ready, reg)
			} else {
				waiting = append(waiting, reg)
			}
		}
		if len(ready) == 0 {
			for _, reg := range waiting {
				results[reg.checker.Name()] = Unhealthy("not run: requires " + strings.Join(reg.requires, ", "))
			}
			break
		}

		for name, r := range runAll(ctx, ready, results, timeout) {
			results[name] = r
		}
		pending = waiting
	}
	return results
}

func requirementsDone(reg registration, results map[string]*Result) bool {
	for _, name := range reg.requires {
		if _, ok := results[name]; !ok {
			return false
		}
	}
	return true
}

// runAll runs one wave of checks whose requirements already have results
func runAll(ctx context.Context, wave []registration, done map[string]*Result, timeout time.Duration) map[string]*Result {
	var mu sync.Mutex
	out := make(map[string]*Result, len(wave))
	var g errgroup.Group

	for _, reg := range wave {
		if failed := failedRequirement(reg, done); failed != "" {
			mu.Lock()
			out[reg.checker.Name()] = Degraded(fmt.Sprintf("skipped: %s is unhealthy", failed))
			mu.Unlock()
			continue
		}

		g.Go(func() error {
			checkCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			start := time.Now()
			result := reg.checker.Check(checkCtx)
			if result == nil {
				result = Unhealthy("check returned no result")
			}
			if result.Latency == 0 {
				result.Latency = time.Since(start)
			}

			mu.Lock()
			out[reg.checker.Name()] = result
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return out
}

func failedRequirement(reg registration, done map[string]*Result) string {
	for _, name := range reg.requires {
		if done[name].Status == StatusUnhealthy {
			return name
		}
	}
	return ""
}

// OverallStatus is the worst status among results
func OverallStatus(results map[string]*Result) Status {
	statuses := make([]Status, 0, len(results))
	for _, r := range results {
		statuses = append(statuses, r.Status)
	}
	return Worst(statuses...)
}

// SortedNames returns the keys of results in alphabetical order
func SortedNames(results map[string]*Result) []string {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
