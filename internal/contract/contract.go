// Package contract checks that a backend publishes the task API pipectl
// talks to, using the backend's OpenAPI document.
package contract

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// Endpoint is an HTTP method and path template
type Endpoint struct {
	Method string `json:"method" yaml:"method"`
	Path   string `json:"path" yaml:"path"`
}

// String returns "METHOD /path"
func (e Endpoint) String() string {
	return e.Method + " " + e.Path
}

// Required lists the operations the client cannot work without
var Required = []Endpoint{
	{Method: http.MethodPost, Path: "/tasks"},
	{Method: http.MethodGet, Path: "/tasks/{task_id}"},
}

// Optional lists operations used by doctor when present
var Optional = []Endpoint{
	{Method: http.MethodGet, Path: "/health"},
}

// Finding codes
const (
	CodeMissingPath    = "MISSING_API_PATH"
	CodeMissingMethod  = "MISSING_API_METHOD"
	CodeMissingField   = "MISSING_REQUEST_FIELD"
	CodeInvalidSpec    = "INVALID_OPENAPI"
	CodeOptionalAbsent = "OPTIONAL_ENDPOINT_ABSENT"
)

// Finding is a single contract problem
type Finding struct {
	Code     string `json:"code" yaml:"code"`
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Message  string `json:"message" yaml:"message"`
	Severity string `json:"severity" yaml:"severity"` // error, warning
}

// Report is the outcome of a contract check
type Report struct {
	Title    string    `json:"title,omitempty" yaml:"title,omitempty"`
	Version  string    `json:"version,omitempty" yaml:"version,omitempty"`
	OpenAPI  string    `json:"openapi,omitempty" yaml:"openapi,omitempty"`
	Findings []Finding `json:"findings" yaml:"findings"`
}

// OK reports whether no error-level finding was recorded
func (r *Report) OK() bool {
	return len(r.Errors()) == 0
}

// Errors returns the error-level findings
func (r *Report) Errors() []Finding {
	var errs []Finding
	for _, f := range r.Findings {
		if f.Severity == "error" {
			errs = append(errs, f)
		}
	}
	return errs
}

// Summary joins the error messages into one line
func (r *Report) Summary() string {
	msgs := make([]string, 0, len(r.Findings))
	for _, f := range r.Errors() {
		msgs = append(msgs, f.Message)
	}
	return strings.Join(msgs, "; ")
}

// Load parses an OpenAPI document from JSON or YAML
func Load(data []byte) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load OpenAPI document: %w", err)
	}
	return doc, nil
}

// CheckDocument loads data and checks it
func CheckDocument(ctx context.Context, data []byte) (*Report, error) {
	doc, err := Load(data)
	if err != nil {
		return nil, err
	}
	return Check(ctx, doc), nil
}

// Check verifies that doc declares every required endpoint
func Check(ctx context.Context, doc *openapi3.T) *Report {
	report := &Report{OpenAPI: doc.OpenAPI}
	if doc.Info != nil {
		report.Title = doc.Info.Title
		report.Version = doc.Info.Version
	}

	// 3.1 documents only partly validate; reported as warnings
	if err := doc.Validate(ctx); err != nil {
		report.Findings = append(report.Findings, Finding{
			Code:     CodeInvalidSpec,
			Message:  fmt.Sprintf("OpenAPI document does not validate: %v", err),
			Severity: "warning",
		})
	}

	for _, ep := range Required {
		report.Findings = append(report.Findings, checkEndpoint(doc, ep, "error")...)
	}
	for _, ep := range Optional {
		for _, f := range checkEndpoint(doc, ep, "warning") {
			f.Code = CodeOptionalAbsent
			report.Findings = append(report.Findings, f)
		}
	}

	if op := operation(doc, Required[0]); op != nil && !requestHasField(op, "goal") {
		report.Findings = append(report.Findings, Finding{
			Code:     CodeMissingField,
			Endpoint: Required[0].String(),
			Message:  fmt.Sprintf("%s request body does not declare a goal field", Required[0]),
			Severity: "error",
		})
	}

	return report
}

func checkEndpoint(doc *openapi3.T, ep Endpoint, severity string) []Finding {
	item := findPath(doc, ep.Path)
	if item == nil {
		return []Finding{{
			Code:     CodeMissingPath,
			Endpoint: ep.String(),
			Message:  fmt.Sprintf("API path not found: %s", ep),
			Severity: severity,
		}}
	}
	if item.GetOperation(ep.Method) == nil {
		return []Finding{{
			Code:     CodeMissingMethod,
			Endpoint: ep.String(),
			Message:  fmt.Sprintf("API method not found: %s", ep),
			Severity: severity,
		}}
	}
	return nil
}

func operation(doc *openapi3.T, ep Endpoint) *openapi3.Operation {
	item := findPath(doc, ep.Path)
	if item == nil {
		return nil
	}
	return item.GetOperation(ep.Method)
}

// requestHasField reports whether the JSON request body schema declares
// field. A body without a resolvable schema or properties counts as declaring it.
func requestHasField(op *openapi3.Operation, field string) bool {
	if op.RequestBody == nil || op.RequestBody.Value == nil {
		return false
	}
	media := op.RequestBody.Value.Content.Get("application/json")
	if media == nil || media.Schema == nil || media.Schema.Value == nil {
		return true
	}
	schema := media.Schema.Value
	if len(schema.Properties) == 0 && len(schema.AllOf) == 0 {
		return true
	}
	if _, ok := schema.Properties[field]; ok {
		return true
	}
	for _, sub := range schema.AllOf {
		if sub.Value != nil {
			if _, ok := sub.Value.Properties[field]; ok {
				return true
			}
		}
	}
	return false
}

// findPath matches a path template against the document, treating any
// {param} segment as a wildcard on both sides.
func findPath(doc *openapi3.T, path string) *openapi3.PathItem {
	if doc.Paths == nil {
		return nil
	}
	if item := doc.Paths.Value(path); item != nil {
		return item
	}

	want := strings.Split(strings.Trim(path, "/"), "/")
	for specPath, item := range doc.Paths.Map() {
		have := strings.Split(strings.Trim(specPath, "/"), "/")
		if len(have) != len(want) {
			continue
		}

		match := true
		for i := range want {
			if isParam(want[i]) || isParam(have[i]) {
				continue
			}
			if want[i] != have[i] {
				match = false
				break
			}
		}
		if match {
			return item
		}
	}
	return nil
}

func isParam(segment string) bool {
	return strings.HasPrefix(segment, "{") && strings.HasSuffix(segment, "}")
}
