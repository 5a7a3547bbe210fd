package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// isolate points config and environment lookups at an empty home and
// disables prompts and spinners
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("PIPECTL_HOME", home)
	t.Setenv("PIPECTL_API_URL", "")
	t.Setenv("VITE_API_URL", "")
	t.Setenv("PIPECTL_POLL_INTERVAL", "")
	t.Setenv("PIPECTL_LOG_LEVEL", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("CI", "true")
	return home
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// executeCommand runs the root command with args and returns stdout and stderr
func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// fakeBackend serves the task API. Each GET /tasks/{id} returns the next
// snapshot in the list; the last one repeats.
type fakeBackend struct {
	mu        sync.Mutex
	snapshots []map[string]any
	gets      int
	goals     []string
	openapi   string
	health    int
}

func (b *fakeBackend) start(t *testing.T) string {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /tasks", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Goal string `json:"goal"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		b.mu.Lock()
		b.goals = append(b.goals, body.Goal)
		b.mu.Unlock()
		writeTestJSON(w, http.StatusOK, map[string]any{"task_id": "t1", "status": "queued"})
	})
	mux.HandleFunc("GET /tasks/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if r.PathValue("id") != "t1" || len(b.snapshots) == 0 {
			writeTestJSON(w, http.StatusNotFound, map[string]any{"detail": "Task not found"})
			return
		}
		i := b.gets
		if i >= len(b.snapshots) {
			i = len(b.snapshots) - 1
		}
		b.gets++
		writeTestJSON(w, http.StatusOK, b.snapshots[i])
	})
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		status := b.health
		if status == 0 {
			status = http.StatusOK
		}
		writeTestJSON(w, status, map[string]any{"status": "ok"})
	})
	mux.HandleFunc("GET /openapi.json", func(w http.ResponseWriter, r *http.Request) {
		if b.openapi == "" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(b.openapi))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv.URL
}

func writeTestJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func doneTask(passed bool) map[string]any {
	return map[string]any{
		"status":    "done",
		"goal":      "X",
		"plan":      []map[string]any{{"instruction": "step1"}},
		"execution": []map[string]any{{"instruction": "step1", "result": "r1"}},
		"review":    map[string]any{"review": "looks good", "passed": passed},
	}
}

const taskAPIDocument = `{
  "openapi": "3.1.0",
  "info": {"title": "Agents Capstone API", "version": "0.1.0"},
  "paths": {
    "/tasks": {
      "post": {
        "requestBody": {
          "content": {"application/json": {"schema": {"$ref": "#/components/schemas/TaskCreate"}}},
          "required": true
        },
        "responses": {"200": {"description": "Successful Response"}}
      }
    },
    "/tasks/{task_id}": {
      "get": {
        "parameters": [{"name": "task_id", "in": "path", "required": true, "schema": {"type": "string"}}],
        "responses": {"200": {"description": "Successful Response"}}
      }
    },
    "/health": {
      "get": {"responses": {"200": {"description": "Successful Response"}}}
    }
  },
  "components": {
    "schemas": {
      "TaskCreate": {
        "properties": {"goal": {"type": "string"}},
        "type": "object",
        "required": ["goal"]
      }
    }
  }
}`
