package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// RequestError is returned when the backend answers with a non-success status
type RequestError struct {
	// Op names the operation that failed ("create task", "get task", ...)
	Op string
	// StatusCode is the HTTP status returned by the backend
	StatusCode int
	// Detail is the backend's error detail, when it sent one
	Detail string
}

// Error implements the error interface
func (e *RequestError) Error() string {
	msg := fmt.Sprintf("%s failed: %d", e.Op, e.StatusCode)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

// NotFound reports whether the backend does not know the task
func (e *RequestError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// AsRequestError extracts a RequestError from an error chain
func AsRequestError(err error) (*RequestError, bool) {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr, true
	}
	return nil, false
}

func newRequestError(op string, resp *http.Response) *RequestError {
	reqErr := &RequestError{Op: op, StatusCode: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(data) == 0 {
		return reqErr
	}

	var body struct {
		Detail any `json:"detail"`
	}
	if json.Unmarshal(data, &body) == nil {
		if s, ok := body.Detail.(string); ok {
			reqErr.Detail = s
		}
	}
	return reqErr
}
